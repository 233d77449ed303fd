package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pitchside/matchtracker/internal/domain/replacement"
	"github.com/pitchside/matchtracker/internal/domain/stream"
	"github.com/pitchside/matchtracker/internal/domain/tracker"
)

// LivenessConfig tunes the presence state machine. Zero values fall back to
// the documented defaults.
type LivenessConfig struct {
	HeartbeatInterval time.Duration
	// SuspectAfterMisses missed intervals move Active to Suspect.
	SuspectAfterMisses int
	// AbsentAfterMisses missed intervals in total move Suspect to Absent.
	AbsentAfterMisses int
	// BatteryCriticalLevel forces absence when the last reported battery
	// level sits below it with no heartbeat for at least one interval.
	BatteryCriticalLevel int
}

func (c LivenessConfig) withDefaults() LivenessConfig {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 10 * time.Second
	}
	if c.SuspectAfterMisses <= 0 {
		c.SuspectAfterMisses = 2
	}
	if c.AbsentAfterMisses <= c.SuspectAfterMisses {
		c.AbsentAfterMisses = 6
	}
	if c.BatteryCriticalLevel <= 0 {
		c.BatteryCriticalLevel = 10
	}
	return c
}

type HeartbeatInput struct {
	MatchID      string
	TrackerID    string
	BatteryLevel int
	Connection   tracker.ConnectionState
}

// LivenessService runs the per-(tracker, match) presence state machine:
// Active -> Suspect -> Absent -> Replaced, with heartbeat-driven recovery.
// Absence detection is server-owned: the tick below fires from the
// scheduler regardless of any client connection.
type LivenessService struct {
	runtimes     *RuntimeRegistry
	replacements *ReplacementService
	broadcaster  Broadcaster
	cfg          LivenessConfig
	logger       *slog.Logger
	now          nowFunc
}

func NewLivenessService(
	runtimes *RuntimeRegistry,
	replacements *ReplacementService,
	broadcaster Broadcaster,
	cfg LivenessConfig,
	logger *slog.Logger,
) *LivenessService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LivenessService{
		runtimes:     runtimes,
		replacements: replacements,
		broadcaster:  broadcaster,
		cfg:          cfg.withDefaults(),
		logger:       logger,
		now:          time.Now,
	}
}

// Heartbeat records a liveness ping and recovers Suspect/Absent presences
// back to Active. The first heartbeat of a tracker creates its presence.
func (s *LivenessService) Heartbeat(ctx context.Context, input HeartbeatInput) (tracker.Presence, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LivenessService.Heartbeat")
	defer span.End()

	input.MatchID = strings.TrimSpace(input.MatchID)
	input.TrackerID = strings.TrimSpace(input.TrackerID)
	if input.MatchID == "" || input.TrackerID == "" {
		return tracker.Presence{}, fmt.Errorf("%w: match_id and tracker_id are required", ErrInvalidInput)
	}
	if input.BatteryLevel < 0 || input.BatteryLevel > 100 {
		return tracker.Presence{}, fmt.Errorf("%w: battery level must be within 0-100", ErrInvalidInput)
	}
	if input.Connection == "" {
		input.Connection = tracker.ConnectionOnline
	}

	rt, ok := s.runtimes.Get(input.MatchID)
	if !ok {
		return tracker.Presence{}, fmt.Errorf("%w: match %s is not being coordinated", ErrNotFound, input.MatchID)
	}

	var snapshot tracker.Presence
	var stateChanged bool
	err := rt.Do(ctx, func(st *matchState) error {
		p, found := st.presences[input.TrackerID]
		if !found {
			p = &tracker.Presence{
				TrackerID: input.TrackerID,
				MatchID:   input.MatchID,
				State:     tracker.PresenceActive,
			}
			st.presences[input.TrackerID] = p
			stateChanged = true
		}

		p.LastHeartbeatAt = s.now()
		p.BatteryLevel = input.BatteryLevel
		p.Connection = input.Connection

		switch p.State {
		case tracker.PresenceSuspect, tracker.PresenceAbsent:
			p.State = tracker.PresenceActive
			p.AbsentReported = false
			stateChanged = true
		case tracker.PresenceReplaced:
			// A replaced tracker rejoining starts a fresh episode.
			p.State = tracker.PresenceActive
			p.AbsentReported = false
			stateChanged = true
		}

		snapshot = *p
		return nil
	})
	if err != nil {
		return tracker.Presence{}, err
	}

	if stateChanged {
		s.broadcaster.Publish(input.MatchID, stream.KindTrackerPresenceChanged, snapshot)
	}
	return snapshot, nil
}

// Presences snapshots all presence records of a match.
func (s *LivenessService) Presences(ctx context.Context, matchID string) ([]tracker.Presence, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LivenessService.Presences")
	defer span.End()

	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return nil, fmt.Errorf("%w: match_id is required", ErrInvalidInput)
	}

	rt, ok := s.runtimes.Get(matchID)
	if !ok {
		return nil, fmt.Errorf("%w: match %s is not being coordinated", ErrNotFound, matchID)
	}

	var out []tracker.Presence
	err := rt.Do(ctx, func(st *matchState) error {
		out = make([]tracker.Presence, 0, len(st.presences))
		for _, p := range st.presences {
			out = append(out, *p)
		}
		return nil
	})
	return out, err
}

// tick advances the state machine from heartbeat silence. It runs inside
// the match's writer goroutine. A transition to Absent is reported exactly
// once per absence episode and hands over to the replacement coordinator.
func (s *LivenessService) tick(ctx context.Context, st *matchState, now time.Time) {
	// Replacement below inserts the successor's presence; iterate a
	// snapshot so the new entry is not visited mid-pass.
	monitored := make([]*tracker.Presence, 0, len(st.presences))
	for _, p := range st.presences {
		monitored = append(monitored, p)
	}

	for _, p := range monitored {
		if p.State == tracker.PresenceReplaced {
			continue
		}

		silence := now.Sub(p.LastHeartbeatAt)
		missed := int(silence / s.cfg.HeartbeatInterval)
		// A reported 0% is as dead as a battery gets; only the unreported
		// sentinel skips the fast path.
		batteryDead := p.BatteryLevel != tracker.BatteryUnreported &&
			p.BatteryLevel < s.cfg.BatteryCriticalLevel && missed >= 1

		if p.State == tracker.PresenceActive && (missed >= s.cfg.SuspectAfterMisses || batteryDead) {
			p.State = tracker.PresenceSuspect
			s.broadcaster.Publish(st.match.ID, stream.KindTrackerPresenceChanged, *p)
			s.logger.InfoContext(ctx, "tracker presence suspect",
				"match_id", st.match.ID, "tracker_id", p.TrackerID, "missed_intervals", missed)
		}

		if p.State == tracker.PresenceSuspect && (missed >= s.cfg.AbsentAfterMisses || batteryDead) {
			p.State = tracker.PresenceAbsent
			s.broadcaster.Publish(st.match.ID, stream.KindTrackerPresenceChanged, *p)

			if !p.AbsentReported {
				p.AbsentReported = true
				reason := replacement.ReasonHeartbeatLoss
				if batteryDead {
					reason = replacement.ReasonBatteryCritical
				}
				s.logger.WarnContext(ctx, "tracker absent",
					"match_id", st.match.ID, "tracker_id", p.TrackerID, "reason", reason)
				s.replacements.onAbsent(ctx, st, p.TrackerID, reason)
			}
		}
	}
}
