package postgres

import (
	"context"
	"fmt"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/pitchside/matchtracker/internal/domain/assignment"
	"github.com/pitchside/matchtracker/internal/domain/replacement"
	qb "github.com/pitchside/matchtracker/internal/platform/querybuilder"
)

type replacementTableModel struct {
	ID                   string         `db:"id"`
	MatchID              string         `db:"match_id"`
	AbsentTrackerID      string         `db:"absent_tracker_id"`
	ReplacementTrackerID string         `db:"replacement_tracker_id"`
	AssignmentSnapshot   []byte         `db:"assignment_snapshot"`
	MigratedPendingIDs   pq.StringArray `db:"migrated_pending_ids"`
	Reason               string         `db:"reason"`
	CreatedAt            time.Time      `db:"created_at"`
}

type ReplacementRepository struct {
	db *sqlx.DB
}

func NewReplacementRepository(db *sqlx.DB) *ReplacementRepository {
	return &ReplacementRepository{db: db}
}

func (r *ReplacementRepository) Append(ctx context.Context, record replacement.Record) error {
	snapshot, err := sonic.Marshal(record.AssignmentSnapshot)
	if err != nil {
		return fmt.Errorf("marshal assignment snapshot: %w", err)
	}

	row := replacementTableModel{
		ID:                   record.ID,
		MatchID:              record.MatchID,
		AbsentTrackerID:      record.AbsentTrackerID,
		ReplacementTrackerID: record.ReplacementTrackerID,
		AssignmentSnapshot:   snapshot,
		MigratedPendingIDs:   pq.StringArray(record.MigratedPendingIDs),
		Reason:               record.Reason,
		CreatedAt:            record.CreatedAt,
	}
	query, args, err := qb.InsertModel("replacement_records", row, "")
	if err != nil {
		return fmt.Errorf("build insert replacement record query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert replacement record: %w", err)
	}
	return nil
}

func (r *ReplacementRepository) ListByMatch(ctx context.Context, matchID string) ([]replacement.Record, error) {
	query, args, err := qb.Select("id", "match_id", "absent_tracker_id", "replacement_tracker_id", "assignment_snapshot", "migrated_pending_ids", "reason", "created_at").
		From("replacement_records").
		Where(qb.Eq("match_id", matchID)).
		OrderBy("created_at ASC", "id ASC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list replacement records query: %w", err)
	}

	var rows []replacementTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list replacement records: %w", err)
	}

	out := make([]replacement.Record, 0, len(rows))
	for _, row := range rows {
		record, err := replacementFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, nil
}

func replacementFromRow(row replacementTableModel) (replacement.Record, error) {
	var snapshot []assignment.Assignment
	if len(row.AssignmentSnapshot) > 0 {
		if err := sonic.Unmarshal(row.AssignmentSnapshot, &snapshot); err != nil {
			return replacement.Record{}, fmt.Errorf("unmarshal assignment snapshot: %w", err)
		}
	}
	return replacement.Record{
		ID:                   row.ID,
		MatchID:              row.MatchID,
		AbsentTrackerID:      row.AbsentTrackerID,
		ReplacementTrackerID: row.ReplacementTrackerID,
		AssignmentSnapshot:   snapshot,
		MigratedPendingIDs:   []string(row.MigratedPendingIDs),
		Reason:               row.Reason,
		CreatedAt:            row.CreatedAt,
	}, nil
}
