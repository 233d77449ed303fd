package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/pitchside/matchtracker/internal/domain/assignment"
	"github.com/pitchside/matchtracker/internal/domain/match"
	"github.com/pitchside/matchtracker/internal/domain/pending"
)

type recordingCloser struct {
	mu     sync.Mutex
	closed []string
}

func (c *recordingCloser) CloseMatch(matchID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = append(c.closed, matchID)
}

type staticRoster struct {
	m     match.Match
	found bool
	err   error
}

func (r staticRoster) FetchMatch(context.Context, string) (match.Match, bool, error) {
	return r.m, r.found, r.err
}

func TestMatchService_Start_SpinsUpCoordination(t *testing.T) {
	t.Parallel()

	m := testMatch()
	m.Status = match.StatusScheduled
	f := newCoordinationFixture(t, m)

	started, err := f.matchSvc.Start(t.Context(), m.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.Status != match.StatusLive {
		t.Fatalf("status = %s, want LIVE", started.Status)
	}
	if _, ok := f.runtimes.Get(m.ID); !ok {
		t.Fatal("no runtime after start")
	}

	// Starting again is tolerated so a crashed coordinator can resume.
	if _, err := f.matchSvc.Start(t.Context(), m.ID); err != nil {
		t.Fatalf("restart: %v", err)
	}
}

func TestMatchService_Start_RejectsCompleted(t *testing.T) {
	t.Parallel()

	m := testMatch()
	m.Status = match.StatusCompleted
	f := newCoordinationFixture(t, m)

	_, err := f.matchSvc.Start(t.Context(), m.ID)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestMatchService_Start_UnknownMatch(t *testing.T) {
	t.Parallel()

	f := newCoordinationFixture(t, testMatch())

	_, err := f.matchSvc.Start(t.Context(), "match-unknown")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMatchService_Complete_DestroysCoordinationState(t *testing.T) {
	t.Parallel()

	f := newCoordinationFixture(t, testMatch())
	closer := &recordingCloser{}
	f.matchSvc = NewMatchService(f.matches, f.events, nil, f.runtimes, closer, testLogger())

	if _, err := f.assignments.SetAssignment(t.Context(), SetAssignmentInput{
		MatchID:   "match-derby",
		TrackerID: "tracker-a",
		Type:      assignment.TypeGeneralist,
	}); err != nil {
		t.Fatalf("set assignment: %v", err)
	}
	if _, err := f.queue.Enqueue(t.Context(), pending.Detection{
		MatchID:    "match-derby",
		ActionType: "GOAL",
		TeamID:     "team-home",
	}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	completed, err := f.matchSvc.Complete(t.Context(), "match-derby")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != match.StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", completed.Status)
	}

	// Assignments and pendings died with the runtime.
	if _, ok := f.runtimes.Get("match-derby"); ok {
		t.Fatal("runtime survived completion")
	}
	if _, err := f.assignments.ListByMatch(t.Context(), "match-derby"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("list assignments after completion: err = %v, want ErrNotFound", err)
	}
	if len(closer.closed) != 1 || closer.closed[0] != "match-derby" {
		t.Fatalf("match channel not closed: %v", closer.closed)
	}

	// Completing twice is a conflict.
	if _, err := f.matchSvc.Complete(t.Context(), "match-derby"); !errors.Is(err, ErrConflict) {
		t.Fatalf("second complete: err = %v, want ErrConflict", err)
	}
}

func TestMatchService_Start_RefreshesRosterWhenAvailable(t *testing.T) {
	t.Parallel()

	m := testMatch()
	m.Status = match.StatusScheduled
	f := newCoordinationFixture(t, m)

	refreshed := m
	refreshed.HomeTeam.Players = append(refreshed.HomeTeam.Players, match.Player{
		ID: "home-sub-17", Name: "Late Call-up", Number: 17, TeamID: "team-home",
	})
	f.matchSvc = NewMatchService(f.matches, f.events, staticRoster{m: refreshed, found: true}, f.runtimes, noopCloser{}, testLogger())

	started, err := f.matchSvc.Start(t.Context(), m.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, found := started.RosterPlayer("home-sub-17"); !found {
		t.Fatal("refreshed roster not applied")
	}
	if started.Status != match.StatusLive {
		t.Fatalf("status = %s, want LIVE despite provider snapshot", started.Status)
	}

	stored, err := f.matchSvc.Get(t.Context(), m.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, found := stored.RosterPlayer("home-sub-17"); !found {
		t.Fatal("refreshed roster not persisted")
	}
}

func TestMatchService_Start_ToleratesRosterOutage(t *testing.T) {
	t.Parallel()

	m := testMatch()
	m.Status = match.StatusScheduled
	f := newCoordinationFixture(t, m)
	f.matchSvc = NewMatchService(f.matches, f.events, staticRoster{err: errors.New("provider down")}, f.runtimes, noopCloser{}, testLogger())

	started, err := f.matchSvc.Start(t.Context(), m.ID)
	if err != nil {
		t.Fatalf("start during provider outage: %v", err)
	}
	if started.Status != match.StatusLive {
		t.Fatalf("status = %s, want LIVE", started.Status)
	}
}

func TestMatchService_ResumeLive_ContinuesSequence(t *testing.T) {
	t.Parallel()

	f := newCoordinationFixture(t, testMatch())

	for i := 0; i < 2; i++ {
		item := f.enqueueAndClaim(t, "tracker-a", pending.Detection{
			MatchID:    "match-derby",
			ActionType: "PASS_SHORT",
			TeamID:     "team-home",
		})
		if _, err := f.recorder.Record(t.Context(), RecordEventInput{
			MatchID:   "match-derby",
			PendingID: item.ID,
			TrackerID: "tracker-a",
		}); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	// Coordinator restart: the runtime dies, the durable log survives.
	f.runtimes.Stop("match-derby")
	if err := f.matchSvc.ResumeLive(t.Context()); err != nil {
		t.Fatalf("resume live: %v", err)
	}

	item := f.enqueueAndClaim(t, "tracker-a", pending.Detection{
		MatchID:    "match-derby",
		ActionType: "GOAL",
		TeamID:     "team-home",
	})
	confirmed, err := f.recorder.Record(t.Context(), RecordEventInput{
		MatchID:   "match-derby",
		PendingID: item.ID,
		TrackerID: "tracker-a",
	})
	if err != nil {
		t.Fatalf("record after resume: %v", err)
	}
	if confirmed.Sequence != 3 {
		t.Fatalf("sequence after resume = %d, want 3: restart reused committed sequences", confirmed.Sequence)
	}

	log, err := f.recorder.ListByMatch(t.Context(), "match-derby")
	if err != nil {
		t.Fatalf("list log: %v", err)
	}
	if len(log) != 3 {
		t.Fatalf("log length = %d, want 3", len(log))
	}
	for i, ev := range log {
		if ev.Sequence != int64(i+1) {
			t.Fatalf("log[%d].Sequence = %d, want %d", i, ev.Sequence, i+1)
		}
	}
}

func TestMatchService_ResumeLive(t *testing.T) {
	t.Parallel()

	m := testMatch()
	f := newCoordinationFixture(t, m)
	f.runtimes.Stop(m.ID)

	if err := f.matchSvc.ResumeLive(t.Context()); err != nil {
		t.Fatalf("resume live: %v", err)
	}
	if _, ok := f.runtimes.Get(m.ID); !ok {
		t.Fatal("live match not resumed")
	}
}
