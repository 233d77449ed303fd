package notification

import "context"

// Repository backs the per-user notification feed.
type Repository interface {
	Insert(ctx context.Context, item Notification) error
	ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string) (bool, error)
	Delete(ctx context.Context, userID, notificationID string) (bool, error)
}
