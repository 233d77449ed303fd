package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/pitchside/matchtracker/internal/usecase"
)

const streamKeepaliveInterval = 15 * time.Second

// StreamMatch serves the per-match delta channel over server-sent events.
// The subscription lasts until the client disconnects, the match channel
// closes, or the subscriber falls too far behind and is dropped.
func (h *Handler) StreamMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.StreamMatch")
	defer span.End()

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	if _, err := h.matchService.Get(ctx, matchID); err != nil {
		writeError(ctx, w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: streaming is not supported by this connection", usecase.ErrInvalidInput))
		return
	}

	deltas, cancel := h.streams.Subscribe(matchID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepalive := time.NewTicker(streamKeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-keepalive.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case delta, open := <-deltas:
			if !open {
				return
			}
			payload, err := sonic.Marshal(delta)
			if err != nil {
				h.logger.ErrorContext(ctx, "marshal stream delta failed",
					"match_id", matchID, "sequence", delta.Sequence, "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", delta.Sequence, delta.Kind, payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
