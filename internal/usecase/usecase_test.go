package usecase

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/pitchside/matchtracker/internal/domain/match"
	"github.com/pitchside/matchtracker/internal/domain/stream"
	"github.com/pitchside/matchtracker/internal/domain/tracker"
	"github.com/pitchside/matchtracker/internal/infrastructure/repository/memory"
	idgen "github.com/pitchside/matchtracker/internal/platform/id"
)

// fakeClock is a settable clock shared by every service in a fixture so
// aging and absence detection can be driven deterministically.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, time.March, 7, 19, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// captureBroadcaster records published deltas instead of fanning them out.
type captureBroadcaster struct {
	mu     sync.Mutex
	seq    int64
	deltas []stream.Delta
}

func (b *captureBroadcaster) Publish(matchID string, kind stream.Kind, payload any) stream.Delta {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	delta := stream.Delta{MatchID: matchID, Sequence: b.seq, Kind: kind, Payload: payload}
	b.deltas = append(b.deltas, delta)
	return delta
}

func (b *captureBroadcaster) kinds() []stream.Kind {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]stream.Kind, 0, len(b.deltas))
	for _, d := range b.deltas {
		out = append(out, d.Kind)
	}
	return out
}

func (b *captureBroadcaster) countKind(kind stream.Kind) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, d := range b.deltas {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

type noopCloser struct{}

func (noopCloser) CloseMatch(string) {}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMatch() match.Match {
	return match.Match{
		ID:     "match-derby",
		Status: match.StatusLive,
		HomeTeam: match.Team{
			ID:   "team-home",
			Name: "Persija Jakarta",
			Players: []match.Player{
				{ID: "home-gk-1", Name: "Keeper", Number: 1, TeamID: "team-home"},
				{ID: "home-fwd-9", Name: "Striker", Number: 9, TeamID: "team-home"},
			},
		},
		AwayTeam: match.Team{
			ID:   "team-away",
			Name: "Persib Bandung",
			Players: []match.Player{
				{ID: "away-def-4", Name: "Defender", Number: 4, TeamID: "team-away"},
				{ID: "away-mid-10", Name: "Playmaker", Number: 10, TeamID: "team-away"},
			},
		},
		ManagerIDs:       []string{"manager-1"},
		BackupTrackerIDs: []string{"tracker-backup"},
	}
}

func testTrackers() []tracker.Tracker {
	registered := time.Date(2026, time.January, 10, 8, 0, 0, 0, time.UTC)
	return []tracker.Tracker{
		{ID: "tracker-a", Name: "Ayu", Role: tracker.RoleTracker, RegisteredAt: registered},
		{ID: "tracker-b", Name: "Budi", Role: tracker.RoleTracker, RegisteredAt: registered.Add(time.Hour)},
		{ID: "tracker-c", Name: "Citra", Role: tracker.RoleTracker, RegisteredAt: registered.Add(2 * time.Hour)},
		{ID: "tracker-d", Name: "Dimas", Role: tracker.RoleTracker, RegisteredAt: registered.Add(3 * time.Hour)},
		{ID: "tracker-e", Name: "Eka", Role: tracker.RoleTracker, RegisteredAt: registered.Add(4 * time.Hour)},
		{ID: "tracker-backup", Name: "Fajar", Role: tracker.RoleTracker, RegisteredAt: registered.Add(5 * time.Hour)},
		{ID: "manager-1", Name: "Gita", Role: tracker.RoleManager, RegisteredAt: registered},
		{ID: "reviewer-1", Name: "Indah", Role: tracker.RoleReviewer, RegisteredAt: registered},
	}
}

// coordinationFixture wires the full service graph over in-memory stores
// with a pinned clock.
type coordinationFixture struct {
	clock      *fakeClock
	runtimes   *RuntimeRegistry
	broadcasts *captureBroadcaster

	matches       *memory.MatchRepository
	events        *memory.EventRepository
	trackers      *memory.TrackerDirectory
	notifications *memory.NotificationRepository
	replacements  *memory.ReplacementRepository

	notifier    *NotificationService
	replacer    *ReplacementService
	assignments *AssignmentService
	queue       *PendingQueueService
	recorder    *RecorderService
	liveness    *LivenessService
	matchSvc    *MatchService
}

func newCoordinationFixture(t *testing.T, seed match.Match) *coordinationFixture {
	t.Helper()
	return newCoordinationFixtureWith(t, seed, testTrackers())
}

func newCoordinationFixtureWith(t *testing.T, seed match.Match, roster []tracker.Tracker) *coordinationFixture {
	t.Helper()

	clock := newFakeClock()
	logger := testLogger()
	broadcasts := &captureBroadcaster{}
	runtimes := NewRuntimeRegistry()
	ids := idgen.NewRandomGenerator()

	f := &coordinationFixture{
		clock:         clock,
		runtimes:      runtimes,
		broadcasts:    broadcasts,
		matches:       memory.NewMatchRepository([]match.Match{seed}),
		events:        memory.NewEventRepository(),
		trackers:      memory.NewTrackerDirectory(roster),
		notifications: memory.NewNotificationRepository(),
		replacements:  memory.NewReplacementRepository(),
	}

	f.notifier = NewNotificationService(f.notifications, nil, ids, logger)
	f.notifier.now = clock.Now

	f.replacer = NewReplacementService(f.trackers, f.replacements, f.notifier, broadcasts, ids, logger)
	f.replacer.now = clock.Now

	f.assignments = NewAssignmentService(runtimes, f.trackers, f.notifier, broadcasts, 4, logger)
	f.assignments.now = clock.Now

	f.queue = NewPendingQueueService(runtimes, f.notifier, broadcasts, ids, PendingQueueConfig{
		HighAfter:            10 * time.Second,
		UrgentAfter:          30 * time.Second,
		UnclaimedHardTimeout: 60 * time.Second,
		ClaimHoldTimeout:     120 * time.Second,
	}, logger)
	f.queue.now = clock.Now

	f.recorder = NewRecorderService(runtimes, f.events, broadcasts, ids, logger)
	f.recorder.now = clock.Now

	f.liveness = NewLivenessService(runtimes, f.replacer, broadcasts, LivenessConfig{
		HeartbeatInterval:    10 * time.Second,
		SuspectAfterMisses:   2,
		AbsentAfterMisses:    6,
		BatteryCriticalLevel: 10,
	}, logger)
	f.liveness.now = clock.Now

	f.matchSvc = NewMatchService(f.matches, f.events, nil, runtimes, noopCloser{}, logger)
	f.matchSvc.now = clock.Now

	if match.IsLiveStatus(seed.Status) {
		runtimes.Start(seed, 0)
	}
	t.Cleanup(func() { runtimes.Stop(seed.ID) })

	return f
}

// tick drives one scheduler pass for the given match at the clock's
// current time.
func (f *coordinationFixture) tick(t *testing.T, matchID string) {
	t.Helper()

	rt, ok := f.runtimes.Get(matchID)
	if !ok {
		t.Fatalf("match %s has no runtime", matchID)
	}
	now := f.clock.Now()
	err := rt.Do(t.Context(), func(st *matchState) error {
		f.liveness.tick(t.Context(), st, now)
		f.queue.tick(t.Context(), st, now)
		return nil
	})
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
}
