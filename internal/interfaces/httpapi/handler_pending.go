package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/pitchside/matchtracker/internal/domain/event"
	"github.com/pitchside/matchtracker/internal/domain/pending"
	"github.com/pitchside/matchtracker/internal/usecase"
)

// SubmitDetection accepts a manually spotted candidate action from an
// authenticated operator.
func (h *Handler) SubmitDetection(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SubmitDetection")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	matchID := strings.TrimSpace(r.PathValue("matchID"))

	var req detectionRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	item, err := h.pendingService.Enqueue(ctx, pending.Detection{
		MatchID:    matchID,
		ActionType: event.ActionType(req.ActionType),
		PlayerID:   req.PlayerID,
		TeamID:     req.TeamID,
		DetectedBy: principal.UserID,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "submit detection failed", "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, pendingToDTO(ctx, item))
}

// IngestDetection is the machine-to-machine path used by the vision
// classifier; it carries the match id in the body and authenticates with
// the detector token.
func (h *Handler) IngestDetection(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.IngestDetection")
	defer span.End()

	var req ingestDetectionRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	detectedBy := strings.TrimSpace(req.DetectedBy)
	if detectedBy == "" {
		detectedBy = "detector"
	}

	item, err := h.pendingService.Enqueue(ctx, pending.Detection{
		MatchID:    req.MatchID,
		ActionType: event.ActionType(req.ActionType),
		PlayerID:   req.PlayerID,
		TeamID:     req.TeamID,
		DetectedBy: detectedBy,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "ingest detection failed", "match_id", req.MatchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, pendingToDTO(ctx, item))
}

func (h *Handler) ListPendingEvents(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListPendingEvents")
	defer span.End()

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	items, err := h.pendingService.ListByMatch(ctx, matchID)
	if err != nil {
		h.logger.WarnContext(ctx, "list pending events failed", "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	dtos := make([]pendingEventDTO, 0, len(items))
	for _, item := range items {
		dtos = append(dtos, pendingToDTO(ctx, item))
	}

	writeSuccess(ctx, w, http.StatusOK, dtos)
}

func (h *Handler) ClaimPendingEvent(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ClaimPendingEvent")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	pendingID := strings.TrimSpace(r.PathValue("pendingID"))

	item, err := h.pendingService.Claim(ctx, matchID, pendingID, principal.UserID)
	if err != nil {
		h.logger.WarnContext(ctx, "claim pending event failed",
			"match_id", matchID, "pending_id", pendingID, "tracker_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, pendingToDTO(ctx, item))
}

func (h *Handler) ReleasePendingEvent(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ReleasePendingEvent")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	pendingID := strings.TrimSpace(r.PathValue("pendingID"))

	item, err := h.pendingService.Release(ctx, matchID, pendingID, principal.UserID)
	if err != nil {
		h.logger.WarnContext(ctx, "release pending event failed",
			"match_id", matchID, "pending_id", pendingID, "tracker_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, pendingToDTO(ctx, item))
}
