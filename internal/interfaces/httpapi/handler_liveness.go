package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/pitchside/matchtracker/internal/domain/tracker"
	"github.com/pitchside/matchtracker/internal/usecase"
)

// Heartbeat registers a liveness ping for the calling tracker.
func (h *Handler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Heartbeat")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	matchID := strings.TrimSpace(r.PathValue("matchID"))

	var req heartbeatRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	presence, err := h.livenessService.Heartbeat(ctx, usecase.HeartbeatInput{
		MatchID:      matchID,
		TrackerID:    principal.UserID,
		BatteryLevel: req.BatteryLevel,
		Connection:   tracker.ConnectionState(req.Connection),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "heartbeat failed",
			"match_id", matchID, "tracker_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, presenceToDTO(ctx, presence))
}

func (h *Handler) ListPresences(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListPresences")
	defer span.End()

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	presences, err := h.livenessService.Presences(ctx, matchID)
	if err != nil {
		h.logger.WarnContext(ctx, "list presences failed", "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]presenceDTO, 0, len(presences))
	for _, p := range presences {
		items = append(items, presenceToDTO(ctx, p))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}
