package match

import "context"

// Repository exposes read access to the externally owned match store,
// plus the status transitions this service drives.
type Repository interface {
	GetByID(ctx context.Context, matchID string) (Match, bool, error)
	ListByStatus(ctx context.Context, status string) ([]Match, error)
	UpdateStatus(ctx context.Context, matchID, status string) error
}
