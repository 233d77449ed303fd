package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/pitchside/matchtracker/internal/domain/notification"
	"github.com/pitchside/matchtracker/internal/domain/pending"
	"github.com/pitchside/matchtracker/internal/domain/stream"
	idgen "github.com/pitchside/matchtracker/internal/platform/id"
)

// PendingQueueConfig carries the aging thresholds. Zero values fall back to
// the documented defaults.
type PendingQueueConfig struct {
	HighAfter            time.Duration
	UrgentAfter          time.Duration
	UnclaimedHardTimeout time.Duration
	ClaimHoldTimeout     time.Duration
}

func (c PendingQueueConfig) withDefaults() PendingQueueConfig {
	if c.HighAfter <= 0 {
		c.HighAfter = 10 * time.Second
	}
	if c.UrgentAfter <= 0 {
		c.UrgentAfter = 30 * time.Second
	}
	if c.UnclaimedHardTimeout <= 0 {
		c.UnclaimedHardTimeout = 60 * time.Second
	}
	if c.ClaimHoldTimeout <= 0 {
		c.ClaimHoldTimeout = 120 * time.Second
	}
	return c
}

// PendingQueueService holds detected-but-unconfirmed candidate events with
// an aging priority and exclusive, time-bounded claims.
type PendingQueueService struct {
	runtimes    *RuntimeRegistry
	notifier    *NotificationService
	broadcaster Broadcaster
	ids         idgen.Generator
	cfg         PendingQueueConfig
	logger      *slog.Logger
	now         nowFunc
}

func NewPendingQueueService(
	runtimes *RuntimeRegistry,
	notifier *NotificationService,
	broadcaster Broadcaster,
	ids idgen.Generator,
	cfg PendingQueueConfig,
	logger *slog.Logger,
) *PendingQueueService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PendingQueueService{
		runtimes:    runtimes,
		notifier:    notifier,
		broadcaster: broadcaster,
		ids:         ids,
		cfg:         cfg.withDefaults(),
		logger:      logger,
		now:         time.Now,
	}
}

// Enqueue inserts a detection at normal priority and age zero. Detections
// inside coverage left open by a failed replacement start at urgent.
func (s *PendingQueueService) Enqueue(ctx context.Context, detection pending.Detection) (pending.PendingEvent, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PendingQueueService.Enqueue")
	defer span.End()

	detection.MatchID = strings.TrimSpace(detection.MatchID)
	if err := detection.Validate(); err != nil {
		return pending.PendingEvent{}, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	rt, ok := s.runtimes.Get(detection.MatchID)
	if !ok {
		return pending.PendingEvent{}, fmt.Errorf("%w: match %s is not being coordinated", ErrNotFound, detection.MatchID)
	}

	id, err := s.ids.NewID()
	if err != nil {
		return pending.PendingEvent{}, fmt.Errorf("generate pending event id: %w", err)
	}

	item := pending.PendingEvent{
		ID:         id,
		MatchID:    detection.MatchID,
		ActionType: detection.ActionType,
		PlayerID:   detection.PlayerID,
		TeamID:     detection.TeamID,
		Priority:   pending.PriorityNormal,
		DetectedAt: s.now(),
	}

	err = rt.Do(ctx, func(st *matchState) error {
		if _, found := st.match.TeamByID(item.TeamID); !found {
			return fmt.Errorf("%w: team %s is not in match %s", ErrInvalidInput, item.TeamID, item.MatchID)
		}
		if st.inOpenCoverage(item.ActionType, item.PlayerID, item.TeamID) {
			item.Priority = pending.PriorityUrgent
		}
		stored := item
		st.pendings[item.ID] = &stored
		return nil
	})
	if err != nil {
		return pending.PendingEvent{}, err
	}

	s.broadcaster.Publish(item.MatchID, stream.KindPendingEventUpdated, item)
	return item, nil
}

// Claim takes exclusive ownership of a pending event. The check-and-set
// runs inside the match's writer goroutine, so exactly one concurrent
// caller succeeds; the rest get ErrConflict.
func (s *PendingQueueService) Claim(ctx context.Context, matchID, pendingID, trackerID string) (pending.PendingEvent, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PendingQueueService.Claim")
	defer span.End()

	matchID = strings.TrimSpace(matchID)
	pendingID = strings.TrimSpace(pendingID)
	trackerID = strings.TrimSpace(trackerID)
	if matchID == "" || pendingID == "" || trackerID == "" {
		return pending.PendingEvent{}, fmt.Errorf("%w: match_id, pending id and tracker_id are required", ErrInvalidInput)
	}

	rt, ok := s.runtimes.Get(matchID)
	if !ok {
		return pending.PendingEvent{}, fmt.Errorf("%w: match %s is not being coordinated", ErrNotFound, matchID)
	}

	var claimed pending.PendingEvent
	err := rt.Do(ctx, func(st *matchState) error {
		item, found := st.pendings[pendingID]
		if !found {
			return fmt.Errorf("%w: pending event %s", ErrNotFound, pendingID)
		}
		if item.IsClaimed() {
			if item.ClaimedBy == trackerID {
				claimed = *item
				return nil
			}
			return fmt.Errorf("%w: pending event %s already claimed by %s", ErrConflict, pendingID, item.ClaimedBy)
		}
		item.ClaimedBy = trackerID
		item.ClaimedAt = s.now()
		claimed = *item
		return nil
	})
	if err != nil {
		return pending.PendingEvent{}, err
	}

	s.broadcaster.Publish(matchID, stream.KindPendingEventUpdated, claimed)
	return claimed, nil
}

// Release returns a claimed-but-unconfirmed item to the unclaimed pool,
// preserving its age and priority.
func (s *PendingQueueService) Release(ctx context.Context, matchID, pendingID, trackerID string) (pending.PendingEvent, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PendingQueueService.Release")
	defer span.End()

	matchID = strings.TrimSpace(matchID)
	pendingID = strings.TrimSpace(pendingID)
	if matchID == "" || pendingID == "" {
		return pending.PendingEvent{}, fmt.Errorf("%w: match_id and pending id are required", ErrInvalidInput)
	}

	rt, ok := s.runtimes.Get(matchID)
	if !ok {
		return pending.PendingEvent{}, fmt.Errorf("%w: match %s is not being coordinated", ErrNotFound, matchID)
	}

	var released pending.PendingEvent
	err := rt.Do(ctx, func(st *matchState) error {
		item, found := st.pendings[pendingID]
		if !found {
			return fmt.Errorf("%w: pending event %s", ErrNotFound, pendingID)
		}
		if !item.IsClaimed() {
			released = *item
			return nil
		}
		if trackerID != "" && item.ClaimedBy != trackerID {
			return fmt.Errorf("%w: pending event %s is claimed by %s", ErrConflict, pendingID, item.ClaimedBy)
		}
		item.ClaimedBy = ""
		item.ClaimedAt = time.Time{}
		released = *item
		return nil
	})
	if err != nil {
		return pending.PendingEvent{}, err
	}

	s.broadcaster.Publish(matchID, stream.KindPendingEventUpdated, released)
	return released, nil
}

// ListByMatch snapshots the pending pool ordered by detection time.
func (s *PendingQueueService) ListByMatch(ctx context.Context, matchID string) ([]pending.PendingEvent, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PendingQueueService.ListByMatch")
	defer span.End()

	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return nil, fmt.Errorf("%w: match_id is required", ErrInvalidInput)
	}

	rt, ok := s.runtimes.Get(matchID)
	if !ok {
		return nil, fmt.Errorf("%w: match %s is not being coordinated", ErrNotFound, matchID)
	}

	var out []pending.PendingEvent
	err := rt.Do(ctx, func(st *matchState) error {
		out = make([]pending.PendingEvent, 0, len(st.pendings))
		for _, item := range st.pendings {
			out = append(out, *item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].DetectedAt.Equal(out[j].DetectedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].DetectedAt.Before(out[j].DetectedAt)
	})
	return out, nil
}

// tick ages the pool: it escalates unclaimed priorities, expires stale
// claims back to the pool, and raises the unclaimed-urgent hard-timeout
// alert once per item. It runs inside the match's writer goroutine.
func (s *PendingQueueService) tick(ctx context.Context, st *matchState, now time.Time) {
	for _, item := range st.pendings {
		if item.IsClaimed() {
			if now.Sub(item.ClaimedAt) > s.cfg.ClaimHoldTimeout {
				s.logger.InfoContext(ctx, "claim hold expired",
					"match_id", item.MatchID, "pending_id", item.ID, "tracker_id", item.ClaimedBy)
				item.ClaimedBy = ""
				item.ClaimedAt = time.Time{}
				s.broadcaster.Publish(item.MatchID, stream.KindPendingEventUpdated, *item)
			}
			continue
		}

		escalated := pending.EscalatedPriority(item.Priority, item.Age(now), s.cfg.HighAfter, s.cfg.UrgentAfter)
		if escalated != item.Priority {
			item.Priority = escalated
			s.broadcaster.Publish(item.MatchID, stream.KindPendingEventUpdated, *item)
		}

		if item.Priority == pending.PriorityUrgent &&
			!item.HardTimeoutAlerted &&
			item.Age(now) > s.cfg.UnclaimedHardTimeout {
			item.HardTimeoutAlerted = true
			s.alertHardTimeout(ctx, st, *item)
		}
	}
}

func (s *PendingQueueService) alertHardTimeout(ctx context.Context, st *matchState, item pending.PendingEvent) {
	recipients := append([]string(nil), st.match.ManagerIDs...)
	if owner := st.owner(item.ActionType, item.PlayerID, item.TeamID); owner != "" {
		recipients = append([]string{owner}, recipients...)
	}

	s.notifier.DispatchAll(ctx, recipients, notification.Notification{
		Type:      notification.TypeUrgentReplacement,
		Title:     "Unclaimed urgent detection",
		Body:      fmt.Sprintf("Detection %s (%s) has been unclaimed for over %s", item.ID, item.ActionType, s.cfg.UnclaimedHardTimeout),
		MatchID:   item.MatchID,
		WithSound: true,
	})
}
