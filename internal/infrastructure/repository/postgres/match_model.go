package postgres

import (
	"fmt"

	sonic "github.com/bytedance/sonic"
	"github.com/lib/pq"

	"github.com/pitchside/matchtracker/internal/domain/match"
)

type matchTableModel struct {
	ID               string         `db:"id"`
	HomeTeam         []byte         `db:"home_team"`
	AwayTeam         []byte         `db:"away_team"`
	Status           string         `db:"status"`
	ManagerIDs       pq.StringArray `db:"manager_ids"`
	BackupTrackerIDs pq.StringArray `db:"backup_tracker_ids"`
}

func matchFromRow(row matchTableModel) (match.Match, error) {
	out := match.Match{
		ID:               row.ID,
		Status:           row.Status,
		ManagerIDs:       []string(row.ManagerIDs),
		BackupTrackerIDs: []string(row.BackupTrackerIDs),
	}
	if err := sonic.Unmarshal(row.HomeTeam, &out.HomeTeam); err != nil {
		return match.Match{}, fmt.Errorf("decode home team roster: %w", err)
	}
	if err := sonic.Unmarshal(row.AwayTeam, &out.AwayTeam); err != nil {
		return match.Match{}, fmt.Errorf("decode away team roster: %w", err)
	}
	return out, nil
}
