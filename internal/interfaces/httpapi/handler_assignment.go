package httpapi

import (
	"net/http"
	"strings"

	"github.com/pitchside/matchtracker/internal/domain/assignment"
	"github.com/pitchside/matchtracker/internal/domain/event"
	"github.com/pitchside/matchtracker/internal/usecase"
)

func (h *Handler) SetAssignment(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SetAssignment")
	defer span.End()

	matchID := strings.TrimSpace(r.PathValue("matchID"))

	var req setAssignmentRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	item, err := h.assignmentService.SetAssignment(ctx, usecase.SetAssignmentInput{
		MatchID:    matchID,
		TrackerID:  req.TrackerID,
		EventTypes: toActionTypes(req.EventTypes),
		PlayerIDs:  req.PlayerIDs,
		TeamID:     req.TeamID,
		Type:       assignment.Type(req.Type),
		Override:   req.Override,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "set assignment failed",
			"match_id", matchID, "tracker_id", req.TrackerID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, assignmentToDTO(ctx, item))
}

func (h *Handler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListAssignments")
	defer span.End()

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	assignments, err := h.assignmentService.ListByMatch(ctx, matchID)
	if err != nil {
		h.logger.WarnContext(ctx, "list assignments failed", "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]assignmentDTO, 0, len(assignments))
	for _, a := range assignments {
		items = append(items, assignmentToDTO(ctx, a))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

// ResolveAssignmentOwner answers which tracker covers a detection area. An
// empty tracker_id means the area is uncovered.
func (h *Handler) ResolveAssignmentOwner(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ResolveAssignmentOwner")
	defer span.End()

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	actionType := strings.TrimSpace(r.URL.Query().Get("event_type"))
	playerID := strings.TrimSpace(r.URL.Query().Get("player_id"))

	ownerID, err := h.assignmentService.ResolveOwner(ctx, matchID, event.ActionType(actionType), playerID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"tracker_id": ownerID})
}
