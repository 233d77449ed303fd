package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pitchside/matchtracker/internal/domain/event"
	"github.com/pitchside/matchtracker/internal/usecase"
)

// RecordEvent commits a claimed pending event (or a manual observation when
// pending_id is empty) as a confirmed event. Retried commits for the same
// pending id return the already recorded event.
func (h *Handler) RecordEvent(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RecordEvent")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	matchID := strings.TrimSpace(r.PathValue("matchID"))

	var req recordEventRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	item, err := h.recorderService.Record(ctx, usecase.RecordEventInput{
		MatchID:    matchID,
		PendingID:  strings.TrimSpace(req.PendingID),
		TrackerID:  principal.UserID,
		ActionType: event.ActionType(req.ActionType),
		PlayerID:   req.PlayerID,
		TeamID:     req.TeamID,
		Details: event.Details{
			Outcome:        event.Outcome(req.Details.Outcome),
			DistanceMeters: req.Details.DistanceMeters,
			CardColor:      req.Details.CardColor,
			PlayerInID:     req.Details.PlayerInID,
			PlayerOutID:    req.Details.PlayerOutID,
			Note:           req.Details.Note,
		},
	})
	if err != nil {
		h.logger.WarnContext(ctx, "record event failed",
			"match_id", matchID, "tracker_id", principal.UserID, "pending_id", req.PendingID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, confirmedEventToDTO(ctx, item))
}

// ReviewEvent attaches a quality verdict to an already confirmed event.
func (h *Handler) ReviewEvent(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ReviewEvent")
	defer span.End()

	principal, ok := principalFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized))
		return
	}

	eventID := strings.TrimSpace(r.PathValue("eventID"))

	var req reviewEventRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	item, err := h.recorderService.AttachReview(ctx, eventID, event.QualityReview{
		ReviewerID: principal.UserID,
		Verdict:    req.Verdict,
		Note:       req.Note,
		ReviewedAt: time.Now().UTC(),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "review event failed",
			"event_id", eventID, "reviewer_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, confirmedEventToDTO(ctx, item))
}
