package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/pitchside/matchtracker/internal/domain/assignment"
	"github.com/pitchside/matchtracker/internal/domain/event"
	"github.com/pitchside/matchtracker/internal/domain/notification"
	"github.com/pitchside/matchtracker/internal/domain/stream"
	"github.com/pitchside/matchtracker/internal/domain/tracker"
)

type SetAssignmentInput struct {
	MatchID    string
	TrackerID  string
	EventTypes []event.ActionType
	PlayerIDs  []string
	TeamID     string
	Type       assignment.Type
	// Override skips the overlap check, used by managers to force a
	// coverage change during handover.
	Override bool
}

// AssignmentService is the assignment registry: it arbitrates which tracker
// covers which (event-type, player) combinations per match.
type AssignmentService struct {
	runtimes    *RuntimeRegistry
	trackers    tracker.Directory
	notifier    *NotificationService
	broadcaster Broadcaster
	maxTrackers int
	logger      *slog.Logger
	now         nowFunc
}

func NewAssignmentService(
	runtimes *RuntimeRegistry,
	trackers tracker.Directory,
	notifier *NotificationService,
	broadcaster Broadcaster,
	maxTrackers int,
	logger *slog.Logger,
) *AssignmentService {
	if maxTrackers <= 0 {
		maxTrackers = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AssignmentService{
		runtimes:    runtimes,
		trackers:    trackers,
		notifier:    notifier,
		broadcaster: broadcaster,
		maxTrackers: maxTrackers,
		logger:      logger,
		now:         time.Now,
	}
}

// SetAssignment creates or replaces a tracker's coverage for a match.
func (s *AssignmentService) SetAssignment(ctx context.Context, input SetAssignmentInput) (assignment.Assignment, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AssignmentService.SetAssignment")
	defer span.End()

	input.MatchID = strings.TrimSpace(input.MatchID)
	input.TrackerID = strings.TrimSpace(input.TrackerID)

	candidate := assignment.Assignment{
		MatchID:    input.MatchID,
		TrackerID:  input.TrackerID,
		EventTypes: append([]event.ActionType(nil), input.EventTypes...),
		PlayerIDs:  append([]string(nil), input.PlayerIDs...),
		TeamID:     strings.TrimSpace(input.TeamID),
		Type:       input.Type,
		CreatedAt:  s.now(),
	}
	if err := candidate.Validate(); err != nil {
		return assignment.Assignment{}, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	trk, found, err := s.trackers.GetByID(ctx, input.TrackerID)
	if err != nil {
		return assignment.Assignment{}, fmt.Errorf("look up tracker: %w", err)
	}
	if !found {
		return assignment.Assignment{}, fmt.Errorf("%w: tracker %s", ErrNotFound, input.TrackerID)
	}
	if trk.Role != tracker.RoleTracker && trk.Role != tracker.RoleManager {
		return assignment.Assignment{}, fmt.Errorf("%w: %s cannot hold a tracking assignment", ErrInvalidInput, trk.Role)
	}

	rt, ok := s.runtimes.Get(input.MatchID)
	if !ok {
		return assignment.Assignment{}, fmt.Errorf("%w: match %s is not being coordinated", ErrNotFound, input.MatchID)
	}

	err = rt.Do(ctx, func(st *matchState) error {
		if _, exists := st.assignments[candidate.TrackerID]; !exists && len(st.assignments) >= s.maxTrackers {
			return fmt.Errorf("%w: match %s already has %d active trackers",
				ErrCapacityExceeded, candidate.MatchID, len(st.assignments))
		}

		if !input.Override {
			for trackerID, existing := range st.assignments {
				if trackerID == candidate.TrackerID {
					continue
				}
				if existing.Overlaps(candidate) {
					return fmt.Errorf("%w: coverage overlaps active assignment of tracker %s",
						ErrConflict, trackerID)
				}
			}
		}

		st.assignments[candidate.TrackerID] = candidate
		// Monitoring starts with the assignment, not with the first
		// heartbeat, so a no-show tracker still goes absent on silence.
		st.ensurePresence(candidate.TrackerID, s.now())
		s.closeCoveredAreas(st, candidate)
		return nil
	})
	if err != nil {
		return assignment.Assignment{}, err
	}

	s.broadcaster.Publish(candidate.MatchID, stream.KindAssignmentChanged, candidate)

	if _, err := s.notifier.Dispatch(ctx, notification.Notification{
		UserID:  candidate.TrackerID,
		Type:    notification.TypeMatchAssignment,
		Title:   "Tracking assignment updated",
		Body:    fmt.Sprintf("You are covering match %s as %s", candidate.MatchID, candidate.Type),
		MatchID: candidate.MatchID,
	}); err != nil {
		s.logger.WarnContext(ctx, "assignment notification failed",
			"match_id", candidate.MatchID, "tracker_id", candidate.TrackerID, "error", err)
	}

	return candidate, nil
}

// closeCoveredAreas removes open-coverage entries now handled by a fresh
// assignment, ending the urgent-enqueue regime for those areas.
func (s *AssignmentService) closeCoveredAreas(st *matchState, fresh assignment.Assignment) {
	kept := st.openCoverage[:0]
	for _, area := range st.openCoverage {
		if !area.Overlaps(fresh) {
			kept = append(kept, area)
		}
	}
	st.openCoverage = kept
}

// ResolveOwner returns the tracker responsible for an (eventType, playerID)
// pair, or "" when the pair is uncovered.
func (s *AssignmentService) ResolveOwner(ctx context.Context, matchID string, eventType event.ActionType, playerID string) (string, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AssignmentService.ResolveOwner")
	defer span.End()

	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return "", fmt.Errorf("%w: match_id is required", ErrInvalidInput)
	}
	if _, ok := event.AllActionTypes[eventType]; !ok {
		return "", fmt.Errorf("%w: invalid event type %s", ErrInvalidInput, eventType)
	}

	rt, ok := s.runtimes.Get(matchID)
	if !ok {
		return "", fmt.Errorf("%w: match %s is not being coordinated", ErrNotFound, matchID)
	}

	var owner string
	err := rt.Do(ctx, func(st *matchState) error {
		owner = st.owner(eventType, playerID, "")
		return nil
	})
	return owner, err
}

// ListByMatch snapshots the active assignments of a match, ordered by
// tracker id for stable output.
func (s *AssignmentService) ListByMatch(ctx context.Context, matchID string) ([]assignment.Assignment, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AssignmentService.ListByMatch")
	defer span.End()

	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return nil, fmt.Errorf("%w: match_id is required", ErrInvalidInput)
	}

	rt, ok := s.runtimes.Get(matchID)
	if !ok {
		return nil, fmt.Errorf("%w: match %s is not being coordinated", ErrNotFound, matchID)
	}

	var out []assignment.Assignment
	err := rt.Do(ctx, func(st *matchState) error {
		out = make([]assignment.Assignment, 0, len(st.assignments))
		for _, a := range st.assignments {
			out = append(out, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].TrackerID < out[j].TrackerID })
	return out, nil
}
