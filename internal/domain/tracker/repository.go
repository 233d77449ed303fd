package tracker

import "context"

// Directory lists known operators. Identity itself is owned by the external
// auth service; this directory only covers replacement selection.
type Directory interface {
	GetByID(ctx context.Context, trackerID string) (Tracker, bool, error)
	ListByRole(ctx context.Context, role Role) ([]Tracker, error)
}
