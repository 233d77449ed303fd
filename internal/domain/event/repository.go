package event

import "context"

// Repository is the durable append-only confirmed event log.
type Repository interface {
	// Append stores the event. When an event with the same SourcePendingID
	// already exists, the stored event is returned with created=false and
	// no new row is written.
	Append(ctx context.Context, item ConfirmedEvent) (stored ConfirmedEvent, created bool, err error)
	GetByID(ctx context.Context, id string) (ConfirmedEvent, bool, error)
	GetBySourcePendingID(ctx context.Context, pendingID string) (ConfirmedEvent, bool, error)
	ListByMatch(ctx context.Context, matchID string) ([]ConfirmedEvent, error)
	// MaxSequence returns the highest committed sequence of a match, or 0
	// for an empty log. Coordination restarts continue from it.
	MaxSequence(ctx context.Context, matchID string) (int64, error)
	AttachReview(ctx context.Context, eventID string, review QualityReview) (ConfirmedEvent, error)
}
