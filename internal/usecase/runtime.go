package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/pitchside/matchtracker/internal/domain/assignment"
	"github.com/pitchside/matchtracker/internal/domain/event"
	"github.com/pitchside/matchtracker/internal/domain/match"
	"github.com/pitchside/matchtracker/internal/domain/pending"
	"github.com/pitchside/matchtracker/internal/domain/tracker"
)

const runtimeCommandBuffer = 64

// matchState is the coordination state of one live match. It is owned by a
// single runtime goroutine: only closures executed through MatchRuntime.Do
// may touch it, which makes intra-match races impossible by construction.
type matchState struct {
	match       match.Match
	assignments map[string]assignment.Assignment // keyed by tracker id
	pendings    map[string]*pending.PendingEvent
	presences   map[string]*tracker.Presence // keyed by tracker id
	// eventSeq is the per-match commit counter; confirmed events are
	// totally ordered by it.
	eventSeq int64
	// openCoverage holds coverage areas left without an owner after a
	// failed replacement. Detections falling inside enqueue at urgent
	// until a manager assigns a tracker.
	openCoverage []assignment.Assignment
}

func newMatchState(m match.Match, lastSequence int64) *matchState {
	return &matchState{
		match:       m,
		assignments: make(map[string]assignment.Assignment),
		pendings:    make(map[string]*pending.PendingEvent),
		presences:   make(map[string]*tracker.Presence),
		eventSeq:    lastSequence,
	}
}

// playerTeam resolves a player's team through the roster, falling back to
// the caller-supplied team id for players not on file.
func (st *matchState) playerTeam(playerID, teamID string) string {
	if p, found := st.match.RosterPlayer(playerID); found {
		return p.TeamID
	}
	return teamID
}

// owner resolves which tracker is responsible for a detection of the given
// type attributed to the given player and team, or "" when the area is
// uncovered. Coverage is exclusive per (eventType, player), so the sorted
// walk exists only to keep the answer stable for off-roster input.
func (st *matchState) owner(eventType event.ActionType, playerID, teamID string) string {
	team := st.playerTeam(playerID, teamID)
	ids := make([]string, 0, len(st.assignments))
	for trackerID := range st.assignments {
		ids = append(ids, trackerID)
	}
	sort.Strings(ids)
	for _, trackerID := range ids {
		if st.assignments[trackerID].Covers(eventType, playerID, team) {
			return trackerID
		}
	}
	return ""
}

// inOpenCoverage reports whether a detection falls inside coverage that a
// failed replacement left without an owner.
func (st *matchState) inOpenCoverage(eventType event.ActionType, playerID, teamID string) bool {
	team := st.playerTeam(playerID, teamID)
	for _, a := range st.openCoverage {
		if a.Covers(eventType, playerID, team) {
			return true
		}
	}
	return false
}

// ensurePresence starts liveness monitoring for a tracker that has not sent
// a heartbeat yet. Coverage without monitoring would hide a no-show: the
// silence clock starts at the handover.
func (st *matchState) ensurePresence(trackerID string, now time.Time) *tracker.Presence {
	if p, ok := st.presences[trackerID]; ok {
		return p
	}
	p := &tracker.Presence{
		TrackerID:       trackerID,
		MatchID:         st.match.ID,
		State:           tracker.PresenceActive,
		LastHeartbeatAt: now,
		BatteryLevel:    tracker.BatteryUnreported,
		Connection:      tracker.ConnectionOffline,
	}
	st.presences[trackerID] = p
	return p
}

// MatchRuntime is the single-writer process of one match. Callers submit
// closures; the runtime executes them in arrival order on its own
// goroutine.
type MatchRuntime struct {
	matchID string
	cmds    chan runtimeCommand
	// quit signals shutdown; the command channel itself is never closed so
	// a Do racing a stop can never panic on the send.
	quit    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

type runtimeCommand struct {
	fn   func(st *matchState)
	done chan struct{}
}

func newMatchRuntime(m match.Match, lastSequence int64) *MatchRuntime {
	r := &MatchRuntime{
		matchID: m.ID,
		cmds:    make(chan runtimeCommand, runtimeCommandBuffer),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go r.loop(newMatchState(m, lastSequence))
	return r
}

func (r *MatchRuntime) loop(st *matchState) {
	defer close(r.stopped)
	for {
		select {
		case cmd := <-r.cmds:
			cmd.fn(st)
			close(cmd.done)
		case <-r.quit:
			// Drain commands accepted before the stop signal.
			for {
				select {
				case cmd := <-r.cmds:
					cmd.fn(st)
					close(cmd.done)
				default:
					return
				}
			}
		}
	}
}

// Do runs fn inside the match's writer goroutine and waits for completion.
// A closure accepted before the runtime stops runs to completion, even when
// ctx expires while waiting.
func (r *MatchRuntime) Do(ctx context.Context, fn func(st *matchState) error) error {
	var runErr error
	cmd := runtimeCommand{
		fn:   func(st *matchState) { runErr = fn(st) },
		done: make(chan struct{}),
	}

	select {
	case r.cmds <- cmd:
	case <-r.quit:
		return fmt.Errorf("%w: match %s is not being coordinated", ErrNotFound, r.matchID)
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-cmd.done:
		return runErr
	case <-r.stopped:
		// The loop may have applied the command while draining; report its
		// result when it did instead of disowning the mutation.
		select {
		case <-cmd.done:
			return runErr
		default:
		}
		return fmt.Errorf("%w: match %s is not being coordinated", ErrNotFound, r.matchID)
	}
}

func (r *MatchRuntime) stop() {
	r.once.Do(func() { close(r.quit) })
}

// RuntimeRegistry owns one MatchRuntime per actively coordinated match.
// Matches are fully independent: operations on different matches run in
// parallel, operations on one match are serialized by its runtime.
type RuntimeRegistry struct {
	mu       sync.RWMutex
	runtimes map[string]*MatchRuntime
}

func NewRuntimeRegistry() *RuntimeRegistry {
	return &RuntimeRegistry{runtimes: make(map[string]*MatchRuntime)}
}

// Start spins up coordination for a match, seeding the commit counter from
// lastSequence so restarts continue the durable log instead of reusing
// sequences. Starting an already coordinated match returns the existing
// runtime; its live counter stays authoritative.
func (g *RuntimeRegistry) Start(m match.Match, lastSequence int64) *MatchRuntime {
	g.mu.Lock()
	defer g.mu.Unlock()

	if rt, ok := g.runtimes[m.ID]; ok {
		return rt
	}
	rt := newMatchRuntime(m, lastSequence)
	g.runtimes[m.ID] = rt
	return rt
}

func (g *RuntimeRegistry) Get(matchID string) (*MatchRuntime, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	rt, ok := g.runtimes[matchID]
	return rt, ok
}

// Stop tears down coordination for one match. In-flight commands drain
// before the runtime goroutine exits.
func (g *RuntimeRegistry) Stop(matchID string) {
	g.mu.Lock()
	rt, ok := g.runtimes[matchID]
	delete(g.runtimes, matchID)
	g.mu.Unlock()
	if ok {
		rt.stop()
	}
}

// MatchIDs snapshots the currently coordinated match ids.
func (g *RuntimeRegistry) MatchIDs() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := make([]string, 0, len(g.runtimes))
	for id := range g.runtimes {
		ids = append(ids, id)
	}
	return ids
}

// Shutdown drains every runtime, waiting up to the context deadline.
func (g *RuntimeRegistry) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	runtimes := g.runtimes
	g.runtimes = make(map[string]*MatchRuntime)
	g.mu.Unlock()

	var wg conc.WaitGroup
	for _, rt := range runtimes {
		rt := rt
		wg.Go(func() {
			rt.stop()
			select {
			case <-rt.stopped:
			case <-ctx.Done():
			}
		})
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("runtime registry shutdown: %w", err)
	}
	return nil
}

// nowFunc lets tests pin the clock.
type nowFunc func() time.Time
