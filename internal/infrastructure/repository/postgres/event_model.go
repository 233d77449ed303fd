package postgres

import (
	"database/sql"
	"fmt"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/pitchside/matchtracker/internal/domain/event"
)

type eventTableModel struct {
	ID              string         `db:"id"`
	MatchID         string         `db:"match_id"`
	Sequence        int64          `db:"sequence"`
	ActionType      string         `db:"action_type"`
	PlayerID        sql.NullString `db:"player_id"`
	TeamID          string         `db:"team_id"`
	RecordedBy      string         `db:"recorded_by"`
	SourcePendingID sql.NullString `db:"source_pending_event_id"`
	Details         []byte         `db:"details"`
	Review          []byte         `db:"review"`
	RecordedAt      time.Time      `db:"recorded_at"`
}

func eventFromRow(row eventTableModel) (event.ConfirmedEvent, error) {
	out := event.ConfirmedEvent{
		ID:              row.ID,
		MatchID:         row.MatchID,
		Sequence:        row.Sequence,
		ActionType:      event.ActionType(row.ActionType),
		PlayerID:        row.PlayerID.String,
		TeamID:          row.TeamID,
		RecordedBy:      row.RecordedBy,
		SourcePendingID: row.SourcePendingID.String,
		RecordedAt:      row.RecordedAt,
	}

	if len(row.Details) > 0 {
		if err := sonic.Unmarshal(row.Details, &out.Details); err != nil {
			return event.ConfirmedEvent{}, fmt.Errorf("decode event details: %w", err)
		}
	}
	if len(row.Review) > 0 {
		var review event.QualityReview
		if err := sonic.Unmarshal(row.Review, &review); err != nil {
			return event.ConfirmedEvent{}, fmt.Errorf("decode event review: %w", err)
		}
		out.Review = &review
	}

	return out, nil
}

func eventDetailsJSON(item event.ConfirmedEvent) ([]byte, error) {
	payload, err := sonic.Marshal(item.Details)
	if err != nil {
		return nil, fmt.Errorf("encode event details: %w", err)
	}
	return payload, nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
