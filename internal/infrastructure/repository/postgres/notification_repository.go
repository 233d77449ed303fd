package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pitchside/matchtracker/internal/domain/notification"
	qb "github.com/pitchside/matchtracker/internal/platform/querybuilder"
)

type notificationTableModel struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Type      string    `db:"type"`
	Title     string    `db:"title"`
	Body      string    `db:"body"`
	MatchID   string    `db:"match_id"`
	WithSound bool      `db:"with_sound"`
	IsRead    bool      `db:"is_read"`
	CreatedAt time.Time `db:"created_at"`
}

type NotificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Insert(ctx context.Context, item notification.Notification) error {
	query, args, err := qb.InsertInto("notifications").
		Columns("id", "user_id", "type", "title", "body", "match_id", "with_sound", "is_read", "created_at").
		Values(item.ID, item.UserID, string(item.Type), item.Title, item.Body, item.MatchID, item.WithSound, item.IsRead, item.CreatedAt).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build insert notification query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]notification.Notification, error) {
	builder := qb.Select("id", "user_id", "type", "title", "body", "match_id", "with_sound", "is_read", "created_at").
		From("notifications").
		Where(qb.Eq("user_id", userID))
	if unreadOnly {
		builder = builder.Where(qb.Expr("is_read = FALSE"))
	}

	query, args, err := builder.OrderBy("created_at DESC", "id DESC").ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list notifications query: %w", err)
	}

	var rows []notificationTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	out := make([]notification.Notification, 0, len(rows))
	for _, row := range rows {
		out = append(out, notification.Notification{
			ID:        row.ID,
			UserID:    row.UserID,
			Type:      notification.Type(row.Type),
			Title:     row.Title,
			Body:      row.Body,
			MatchID:   row.MatchID,
			WithSound: row.WithSound,
			IsRead:    row.IsRead,
			CreatedAt: row.CreatedAt,
		})
	}
	return out, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, userID, notificationID string) (bool, error) {
	query, args, err := qb.Update("notifications").
		Set("is_read", true).
		Where(qb.Eq("id", notificationID), qb.Eq("user_id", userID)).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build mark notification read query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("mark notification read: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("confirm notification update: %w", err)
	}
	return affected > 0, nil
}

func (r *NotificationRepository) Delete(ctx context.Context, userID, notificationID string) (bool, error) {
	query := "DELETE FROM notifications WHERE id = $1 AND user_id = $2"

	result, err := r.db.ExecContext(ctx, query, notificationID, userID)
	if err != nil {
		return false, fmt.Errorf("delete notification: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("confirm notification delete: %w", err)
	}
	return affected > 0, nil
}
