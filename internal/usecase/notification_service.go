package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pitchside/matchtracker/internal/domain/notification"
	idgen "github.com/pitchside/matchtracker/internal/platform/id"
)

// PushSender forwards a notification to the external push transport.
// Delivery is best effort; the feed repository remains the source of truth.
type PushSender interface {
	Send(ctx context.Context, item notification.Notification) error
}

// NotificationService dispatches typed, user-scoped notifications and backs
// the per-user feed.
type NotificationService struct {
	repo   notification.Repository
	push   PushSender
	ids    idgen.Generator
	logger *slog.Logger
	now    nowFunc
}

func NewNotificationService(
	repo notification.Repository,
	push PushSender,
	ids idgen.Generator,
	logger *slog.Logger,
) *NotificationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationService{
		repo:   repo,
		push:   push,
		ids:    ids,
		logger: logger,
		now:    time.Now,
	}
}

// Dispatch stores the notification and forwards it to the push transport.
// A push failure is logged, never propagated: async alerts must not break
// the flow that raised them.
func (s *NotificationService) Dispatch(ctx context.Context, item notification.Notification) (notification.Notification, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.NotificationService.Dispatch")
	defer span.End()

	if err := item.Validate(); err != nil {
		return notification.Notification{}, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	if item.ID == "" {
		id, err := s.ids.NewID()
		if err != nil {
			return notification.Notification{}, fmt.Errorf("generate notification id: %w", err)
		}
		item.ID = id
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now()
	}

	if err := s.repo.Insert(ctx, item); err != nil {
		return notification.Notification{}, fmt.Errorf("insert notification: %w", err)
	}

	if s.push != nil {
		if err := s.push.Send(ctx, item); err != nil {
			s.logger.WarnContext(ctx, "push delivery failed",
				"notification_id", item.ID, "user_id", item.UserID, "error", err)
		}
	}

	return item, nil
}

// DispatchAll fans one payload out to several users.
func (s *NotificationService) DispatchAll(ctx context.Context, userIDs []string, template notification.Notification) {
	for _, userID := range userIDs {
		item := template
		item.ID = ""
		item.UserID = userID
		if _, err := s.Dispatch(ctx, item); err != nil {
			s.logger.ErrorContext(ctx, "dispatch notification failed",
				"user_id", userID, "type", string(template.Type), "error", err)
		}
	}
}

func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool) ([]notification.Notification, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.NotificationService.List")
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}

	items, err := s.repo.ListByUser(ctx, userID, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return items, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.NotificationService.MarkRead")
	defer span.End()

	if strings.TrimSpace(userID) == "" || strings.TrimSpace(notificationID) == "" {
		return fmt.Errorf("%w: user_id and notification id are required", ErrInvalidInput)
	}

	ok, err := s.repo.MarkRead(ctx, userID, notificationID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: notification %s", ErrNotFound, notificationID)
	}
	return nil
}

func (s *NotificationService) Dismiss(ctx context.Context, userID, notificationID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.NotificationService.Dismiss")
	defer span.End()

	if strings.TrimSpace(userID) == "" || strings.TrimSpace(notificationID) == "" {
		return fmt.Errorf("%w: user_id and notification id are required", ErrInvalidInput)
	}

	ok, err := s.repo.Delete(ctx, userID, notificationID)
	if err != nil {
		return fmt.Errorf("dismiss notification: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: notification %s", ErrNotFound, notificationID)
	}
	return nil
}
