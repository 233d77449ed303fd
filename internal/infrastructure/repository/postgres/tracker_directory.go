package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pitchside/matchtracker/internal/domain/tracker"
	qb "github.com/pitchside/matchtracker/internal/platform/querybuilder"
)

type trackerTableModel struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Role         string    `db:"role"`
	RegisteredAt time.Time `db:"registered_at"`
}

// TrackerDirectory mirrors the operator roster owned by the auth service.
type TrackerDirectory struct {
	db *sqlx.DB
}

func NewTrackerDirectory(db *sqlx.DB) *TrackerDirectory {
	return &TrackerDirectory{db: db}
}

func (r *TrackerDirectory) GetByID(ctx context.Context, trackerID string) (tracker.Tracker, bool, error) {
	query, args, err := trackerBaseSelectBuilder().Where(qb.Eq("id", trackerID)).ToSQL()
	if err != nil {
		return tracker.Tracker{}, false, fmt.Errorf("build get tracker query: %w", err)
	}

	var row trackerTableModel
	if err := getContext(ctx, r.db, &row, query, args...); err != nil {
		if isNotFound(err) {
			return tracker.Tracker{}, false, nil
		}
		return tracker.Tracker{}, false, fmt.Errorf("get tracker: %w", err)
	}
	return trackerFromRow(row), true, nil
}

func (r *TrackerDirectory) ListByRole(ctx context.Context, role tracker.Role) ([]tracker.Tracker, error) {
	query, args, err := trackerBaseSelectBuilder().
		Where(qb.Eq("role", string(role))).
		OrderBy("registered_at", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list trackers query: %w", err)
	}

	var rows []trackerTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list trackers: %w", err)
	}

	out := make([]tracker.Tracker, 0, len(rows))
	for _, row := range rows {
		out = append(out, trackerFromRow(row))
	}
	return out, nil
}

// Register inserts or refreshes one operator record.
func (r *TrackerDirectory) Register(ctx context.Context, t tracker.Tracker) error {
	if err := t.Validate(); err != nil {
		return err
	}

	query, args, err := qb.InsertInto("trackers").
		Columns("id", "name", "role", "registered_at").
		Values(t.ID, t.Name, string(t.Role), t.RegisteredAt).
		Suffix("ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, role = EXCLUDED.role").
		ToSQL()
	if err != nil {
		return fmt.Errorf("build register tracker query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("register tracker: %w", err)
	}
	return nil
}

func trackerFromRow(row trackerTableModel) tracker.Tracker {
	return tracker.Tracker{
		ID:           row.ID,
		Name:         row.Name,
		Role:         tracker.Role(row.Role),
		RegisteredAt: row.RegisteredAt,
	}
}

func trackerBaseSelectBuilder() *qb.SelectBuilder {
	return qb.Select("id", "name", "role", "registered_at").From("trackers")
}
