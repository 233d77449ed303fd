package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/pitchside/matchtracker/internal/usecase"
)

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListNotifications")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	unreadOnly := false
	if raw := strings.TrimSpace(r.URL.Query().Get("unread")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(ctx, w, fmt.Errorf("%w: invalid unread query value: %v", usecase.ErrInvalidInput, err))
			return
		}
		unreadOnly = parsed
	}

	notifications, err := h.notifications.List(ctx, principal.UserID, unreadOnly)
	if err != nil {
		h.logger.WarnContext(ctx, "list notifications failed", "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]notificationDTO, 0, len(notifications))
	for _, n := range notifications {
		items = append(items, notificationToDTO(ctx, n))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.MarkNotificationRead")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	notificationID := strings.TrimSpace(r.PathValue("notificationID"))
	if err := h.notifications.MarkRead(ctx, principal.UserID, notificationID); err != nil {
		h.logger.WarnContext(ctx, "mark notification read failed",
			"user_id", principal.UserID, "notification_id", notificationID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) DismissNotification(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.DismissNotification")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	notificationID := strings.TrimSpace(r.PathValue("notificationID"))
	if err := h.notifications.Dismiss(ctx, principal.UserID, notificationID); err != nil {
		h.logger.WarnContext(ctx, "dismiss notification failed",
			"user_id", principal.UserID, "notification_id", notificationID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}
