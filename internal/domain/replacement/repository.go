package replacement

import "context"

// Repository stores the append-only replacement audit trail.
type Repository interface {
	Append(ctx context.Context, record Record) error
	ListByMatch(ctx context.Context, matchID string) ([]Record, error)
}
