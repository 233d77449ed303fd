package postgres

import (
	"context"
	"fmt"

	sonic "github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"

	"github.com/pitchside/matchtracker/internal/domain/event"
	qb "github.com/pitchside/matchtracker/internal/platform/querybuilder"
)

// EventRepository is the durable confirmed event log. The unique index on
// source_pending_event_id makes the commit idempotent at the storage layer.
type EventRepository struct {
	db *sqlx.DB
}

func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Append(ctx context.Context, item event.ConfirmedEvent) (event.ConfirmedEvent, bool, error) {
	details, err := eventDetailsJSON(item)
	if err != nil {
		return event.ConfirmedEvent{}, false, err
	}

	query, args, err := qb.InsertInto("confirmed_events").
		Columns(
			"id",
			"match_id",
			"sequence",
			"action_type",
			"player_id",
			"team_id",
			"recorded_by",
			"source_pending_event_id",
			"details",
			"recorded_at",
		).
		Values(
			item.ID,
			item.MatchID,
			item.Sequence,
			string(item.ActionType),
			nullString(item.PlayerID),
			item.TeamID,
			item.RecordedBy,
			nullString(item.SourcePendingID),
			details,
			item.RecordedAt,
		).
		Suffix("ON CONFLICT (source_pending_event_id) DO NOTHING").
		ToSQL()
	if err != nil {
		return event.ConfirmedEvent{}, false, fmt.Errorf("build insert confirmed event query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return event.ConfirmedEvent{}, false, fmt.Errorf("insert confirmed event: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return event.ConfirmedEvent{}, false, fmt.Errorf("confirm event insert: %w", err)
	}
	if inserted > 0 {
		return item, true, nil
	}

	// Conflict path: another commit of the same pending event won.
	stored, found, err := r.GetBySourcePendingID(ctx, item.SourcePendingID)
	if err != nil {
		return event.ConfirmedEvent{}, false, err
	}
	if !found {
		return event.ConfirmedEvent{}, false, fmt.Errorf("confirmed event for pending %s vanished after conflict", item.SourcePendingID)
	}
	return stored, false, nil
}

func (r *EventRepository) GetByID(ctx context.Context, id string) (event.ConfirmedEvent, bool, error) {
	return r.getOne(ctx, qb.Eq("id", id))
}

func (r *EventRepository) GetBySourcePendingID(ctx context.Context, pendingID string) (event.ConfirmedEvent, bool, error) {
	return r.getOne(ctx, qb.Eq("source_pending_event_id", pendingID))
}

func (r *EventRepository) getOne(ctx context.Context, cond qb.Condition) (event.ConfirmedEvent, bool, error) {
	query, args, err := eventBaseSelectBuilder().Where(cond).ToSQL()
	if err != nil {
		return event.ConfirmedEvent{}, false, fmt.Errorf("build get confirmed event query: %w", err)
	}

	var row eventTableModel
	if err := getContext(ctx, r.db, &row, query, args...); err != nil {
		if isNotFound(err) {
			return event.ConfirmedEvent{}, false, nil
		}
		return event.ConfirmedEvent{}, false, fmt.Errorf("get confirmed event: %w", err)
	}

	out, err := eventFromRow(row)
	if err != nil {
		return event.ConfirmedEvent{}, false, err
	}
	return out, true, nil
}

func (r *EventRepository) ListByMatch(ctx context.Context, matchID string) ([]event.ConfirmedEvent, error) {
	query, args, err := eventBaseSelectBuilder().
		Where(qb.Eq("match_id", matchID)).
		OrderBy("sequence", "recorded_at").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list confirmed events query: %w", err)
	}

	var rows []eventTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list confirmed events: %w", err)
	}

	out := make([]event.ConfirmedEvent, 0, len(rows))
	for _, row := range rows {
		item, err := eventFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func (r *EventRepository) MaxSequence(ctx context.Context, matchID string) (int64, error) {
	const query = `SELECT COALESCE(MAX(sequence), 0) FROM confirmed_events WHERE match_id = $1`

	var max int64
	if err := getContext(ctx, r.db, &max, query, matchID); err != nil {
		return 0, fmt.Errorf("max confirmed event sequence: %w", err)
	}
	return max, nil
}

func (r *EventRepository) AttachReview(ctx context.Context, eventID string, review event.QualityReview) (event.ConfirmedEvent, error) {
	payload, err := sonic.Marshal(review)
	if err != nil {
		return event.ConfirmedEvent{}, fmt.Errorf("encode event review: %w", err)
	}

	query, args, err := qb.Update("confirmed_events").
		Set("review", payload).
		Where(qb.Eq("id", eventID)).
		ToSQL()
	if err != nil {
		return event.ConfirmedEvent{}, fmt.Errorf("build attach review query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return event.ConfirmedEvent{}, fmt.Errorf("attach review: %w", err)
	}

	stored, found, err := r.GetByID(ctx, eventID)
	if err != nil {
		return event.ConfirmedEvent{}, err
	}
	if !found {
		return event.ConfirmedEvent{}, fmt.Errorf("confirmed event %s not found after review update", eventID)
	}
	return stored, nil
}

func eventBaseSelectBuilder() *qb.SelectBuilder {
	return qb.Select(
		"id",
		"match_id",
		"sequence",
		"action_type",
		"player_id",
		"team_id",
		"recorded_by",
		"source_pending_event_id",
		"details",
		"review",
		"recorded_at",
	).From("confirmed_events")
}
