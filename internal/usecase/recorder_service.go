package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pitchside/matchtracker/internal/domain/event"
	"github.com/pitchside/matchtracker/internal/domain/stream"
	idgen "github.com/pitchside/matchtracker/internal/platform/id"
)

type RecordEventInput struct {
	MatchID string
	// PendingID links the commit to a claimed detection. Empty means a
	// manual recording, which bypasses claim checks but still honors
	// assignment coverage.
	PendingID  string
	TrackerID  string
	ActionType event.ActionType
	PlayerID   string
	TeamID     string
	Details    event.Details
}

// RecorderService commits pending events into durable, exactly-once
// confirmed events.
type RecorderService struct {
	runtimes    *RuntimeRegistry
	events      event.Repository
	broadcaster Broadcaster
	ids         idgen.Generator
	logger      *slog.Logger
	now         nowFunc
}

func NewRecorderService(
	runtimes *RuntimeRegistry,
	events event.Repository,
	broadcaster Broadcaster,
	ids idgen.Generator,
	logger *slog.Logger,
) *RecorderService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecorderService{
		runtimes:    runtimes,
		events:      events,
		broadcaster: broadcaster,
		ids:         ids,
		logger:      logger,
		now:         time.Now,
	}
}

// Record commits a confirmed event. Calling it again with the same pending
// id returns the original confirmed event unchanged: idempotency is
// enforced in the runtime and backed by the repository's uniqueness
// guarantee on the source pending id.
func (s *RecorderService) Record(ctx context.Context, input RecordEventInput) (event.ConfirmedEvent, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RecorderService.Record")
	defer span.End()

	input.MatchID = strings.TrimSpace(input.MatchID)
	input.PendingID = strings.TrimSpace(input.PendingID)
	input.TrackerID = strings.TrimSpace(input.TrackerID)
	if input.MatchID == "" || input.TrackerID == "" {
		return event.ConfirmedEvent{}, fmt.Errorf("%w: match_id and tracker_id are required", ErrInvalidInput)
	}

	rt, ok := s.runtimes.Get(input.MatchID)
	if !ok {
		return event.ConfirmedEvent{}, fmt.Errorf("%w: match %s is not being coordinated", ErrNotFound, input.MatchID)
	}

	id, err := s.ids.NewID()
	if err != nil {
		return event.ConfirmedEvent{}, fmt.Errorf("generate event id: %w", err)
	}

	var confirmed event.ConfirmedEvent
	err = rt.Do(ctx, func(st *matchState) error {
		candidate := event.ConfirmedEvent{
			ID:              id,
			MatchID:         input.MatchID,
			ActionType:      input.ActionType,
			PlayerID:        input.PlayerID,
			TeamID:          input.TeamID,
			RecordedBy:      input.TrackerID,
			SourcePendingID: input.PendingID,
			Details:         input.Details,
		}

		if input.PendingID != "" {
			item, found := st.pendings[input.PendingID]
			if !found {
				// Idempotent replay: the pending event is gone once
				// committed, so hand the original recorder its event back.
				stored, exists, lookupErr := s.events.GetBySourcePendingID(ctx, input.PendingID)
				if lookupErr != nil {
					return fmt.Errorf("look up confirmed event by pending id: %w", lookupErr)
				}
				if exists && stored.RecordedBy == input.TrackerID {
					confirmed = stored
					return nil
				}
				return fmt.Errorf("%w: pending event %s", ErrNotFound, input.PendingID)
			}
			if item.ClaimedBy != input.TrackerID {
				if item.ClaimedBy == "" {
					return fmt.Errorf("%w: pending event %s is not claimed", ErrConflict, input.PendingID)
				}
				return fmt.Errorf("%w: pending event %s is claimed by %s", ErrConflict, input.PendingID, item.ClaimedBy)
			}
			// Detection fields win over blanks in the commit call.
			if candidate.ActionType == "" {
				candidate.ActionType = item.ActionType
			}
			if candidate.PlayerID == "" {
				candidate.PlayerID = item.PlayerID
			}
			if candidate.TeamID == "" {
				candidate.TeamID = item.TeamID
			}
		} else {
			owner := st.owner(input.ActionType, input.PlayerID, input.TeamID)
			if owner != "" && owner != input.TrackerID {
				return fmt.Errorf("%w: coverage for %s/%s belongs to tracker %s",
					ErrConflict, input.ActionType, input.PlayerID, owner)
			}
		}

		if candidate.PlayerID != "" {
			if _, found := st.match.RosterPlayer(candidate.PlayerID); !found {
				return fmt.Errorf("%w: player %s is not on the match roster", ErrInvalidInput, candidate.PlayerID)
			}
		}
		if _, found := st.match.TeamByID(candidate.TeamID); !found {
			return fmt.Errorf("%w: team %s is not in match %s", ErrInvalidInput, candidate.TeamID, candidate.MatchID)
		}

		st.eventSeq++
		candidate.Sequence = st.eventSeq
		candidate.RecordedAt = s.now()
		if err := candidate.Validate(); err != nil {
			st.eventSeq--
			return fmt.Errorf("%w: %s", ErrInvalidInput, err)
		}

		stored, created, appendErr := s.events.Append(ctx, candidate)
		if appendErr != nil {
			st.eventSeq--
			return fmt.Errorf("append confirmed event: %w", appendErr)
		}
		if !created {
			// The repository saw this pending id before; keep its row.
			st.eventSeq--
		}
		confirmed = stored

		if input.PendingID != "" {
			delete(st.pendings, input.PendingID)
		}
		return nil
	})
	if err != nil {
		return event.ConfirmedEvent{}, err
	}

	s.broadcaster.Publish(input.MatchID, stream.KindEventConfirmed, confirmed)
	return confirmed, nil
}

// ListByMatch returns the confirmed event log in commit order.
func (s *RecorderService) ListByMatch(ctx context.Context, matchID string) ([]event.ConfirmedEvent, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RecorderService.ListByMatch")
	defer span.End()

	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return nil, fmt.Errorf("%w: match_id is required", ErrInvalidInput)
	}

	items, err := s.events.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("list confirmed events: %w", err)
	}
	return items, nil
}

// AttachReview adds the quality-control subrecord to a committed event.
// Review never touches the commit path.
func (s *RecorderService) AttachReview(ctx context.Context, eventID string, review event.QualityReview) (event.ConfirmedEvent, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RecorderService.AttachReview")
	defer span.End()

	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return event.ConfirmedEvent{}, fmt.Errorf("%w: event id is required", ErrInvalidInput)
	}
	if review.ReviewedAt.IsZero() {
		review.ReviewedAt = s.now()
	}
	if err := review.Validate(); err != nil {
		return event.ConfirmedEvent{}, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	_, found, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return event.ConfirmedEvent{}, fmt.Errorf("look up confirmed event: %w", err)
	}
	if !found {
		return event.ConfirmedEvent{}, fmt.Errorf("%w: confirmed event %s", ErrNotFound, eventID)
	}

	updated, err := s.events.AttachReview(ctx, eventID, review)
	if err != nil {
		return event.ConfirmedEvent{}, fmt.Errorf("attach review: %w", err)
	}

	s.broadcaster.Publish(updated.MatchID, stream.KindEventConfirmed, updated)
	return updated, nil
}
