package postgres

import (
	"context"
	"fmt"

	sonic "github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/pitchside/matchtracker/internal/domain/match"
	qb "github.com/pitchside/matchtracker/internal/platform/querybuilder"
)

type MatchRepository struct {
	db *sqlx.DB
}

func NewMatchRepository(db *sqlx.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

func (r *MatchRepository) GetByID(ctx context.Context, matchID string) (match.Match, bool, error) {
	query, args, err := matchBaseSelectBuilder().Where(qb.Eq("id", matchID)).ToSQL()
	if err != nil {
		return match.Match{}, false, fmt.Errorf("build get match query: %w", err)
	}

	var row matchTableModel
	if err := getContext(ctx, r.db, &row, query, args...); err != nil {
		if isNotFound(err) {
			return match.Match{}, false, nil
		}
		return match.Match{}, false, fmt.Errorf("get match: %w", err)
	}

	out, err := matchFromRow(row)
	if err != nil {
		return match.Match{}, false, err
	}
	return out, true, nil
}

func (r *MatchRepository) ListByStatus(ctx context.Context, status string) ([]match.Match, error) {
	query, args, err := matchBaseSelectBuilder().
		Where(qb.Eq("status", match.NormalizeStatus(status))).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list matches query: %w", err)
	}

	var rows []matchTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}

	out := make([]match.Match, 0, len(rows))
	for _, row := range rows {
		m, err := matchFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *MatchRepository) UpdateStatus(ctx context.Context, matchID, status string) error {
	query, args, err := qb.Update("matches").
		Set("status", match.NormalizeStatus(status)).
		Where(qb.Eq("id", matchID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update match status query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update match status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("confirm match status update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("match %s not found", matchID)
	}
	return nil
}

// Upsert refreshes a match row from the external roster source.
func (r *MatchRepository) Upsert(ctx context.Context, m match.Match) error {
	home, err := sonic.Marshal(m.HomeTeam)
	if err != nil {
		return fmt.Errorf("encode home team roster: %w", err)
	}
	away, err := sonic.Marshal(m.AwayTeam)
	if err != nil {
		return fmt.Errorf("encode away team roster: %w", err)
	}

	query, args, err := qb.InsertInto("matches").
		Columns("id", "home_team", "away_team", "status", "manager_ids", "backup_tracker_ids").
		Values(m.ID, home, away, match.NormalizeStatus(m.Status), pq.StringArray(m.ManagerIDs), pq.StringArray(m.BackupTrackerIDs)).
		Suffix("ON CONFLICT (id) DO UPDATE SET home_team = EXCLUDED.home_team, away_team = EXCLUDED.away_team, status = EXCLUDED.status, manager_ids = EXCLUDED.manager_ids, backup_tracker_ids = EXCLUDED.backup_tracker_ids").
		ToSQL()
	if err != nil {
		return fmt.Errorf("build upsert match query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert match: %w", err)
	}
	return nil
}

func matchBaseSelectBuilder() *qb.SelectBuilder {
	return qb.Select("id", "home_team", "away_team", "status", "manager_ids", "backup_tracker_ids").
		From("matches")
}
