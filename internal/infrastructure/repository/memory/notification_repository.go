package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/pitchside/matchtracker/internal/domain/notification"
)

type NotificationRepository struct {
	mu    sync.RWMutex
	items map[string]notification.Notification
}

func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{items: make(map[string]notification.Notification)}
}

func (r *NotificationRepository) Insert(_ context.Context, item notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[item.ID] = item
	return nil
}

func (r *NotificationRepository) ListByUser(_ context.Context, userID string, unreadOnly bool) ([]notification.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]notification.Notification, 0)
	for _, item := range r.items {
		if item.UserID != userID {
			continue
		}
		if unreadOnly && item.IsRead {
			continue
		}
		out = append(out, item)
	}

	// Newest first, like a feed.
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *NotificationRepository) MarkRead(_ context.Context, userID, notificationID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[notificationID]
	if !ok || item.UserID != userID {
		return false, nil
	}
	item.IsRead = true
	r.items[notificationID] = item
	return true, nil
}

func (r *NotificationRepository) Delete(_ context.Context, userID, notificationID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[notificationID]
	if !ok || item.UserID != userID {
		return false, nil
	}
	delete(r.items, notificationID)
	return true, nil
}
