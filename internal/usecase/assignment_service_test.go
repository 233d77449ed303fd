package usecase

import (
	"errors"
	"fmt"
	"testing"

	"github.com/pitchside/matchtracker/internal/domain/assignment"
	"github.com/pitchside/matchtracker/internal/domain/event"
	"github.com/pitchside/matchtracker/internal/domain/notification"
)

func TestAssignment_SetAssignment_Basic(t *testing.T) {
	t.Parallel()

	f := newCoordinationFixture(t, testMatch())

	created, err := f.assignments.SetAssignment(t.Context(), SetAssignmentInput{
		MatchID:    "match-derby",
		TrackerID:  "tracker-a",
		EventTypes: []event.ActionType{event.ActionPassShort, event.ActionPassLong},
		Type:       assignment.TypeEventSpecialist,
	})
	if err != nil {
		t.Fatalf("set assignment: %v", err)
	}
	if created.TrackerID != "tracker-a" {
		t.Fatalf("tracker id = %s", created.TrackerID)
	}

	// The assignee is notified.
	feed, err := f.notifier.List(t.Context(), "tracker-a", true)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(feed) != 1 || feed[0].Type != notification.TypeMatchAssignment {
		t.Fatalf("assignment notification missing: %+v", feed)
	}
}

func TestAssignment_SetAssignment_OverlapConflict(t *testing.T) {
	t.Parallel()

	f := newCoordinationFixture(t, testMatch())

	if _, err := f.assignments.SetAssignment(t.Context(), SetAssignmentInput{
		MatchID:    "match-derby",
		TrackerID:  "tracker-a",
		EventTypes: []event.ActionType{event.ActionGoal},
		Type:       assignment.TypeEventSpecialist,
	}); err != nil {
		t.Fatalf("first assignment: %v", err)
	}

	_, err := f.assignments.SetAssignment(t.Context(), SetAssignmentInput{
		MatchID:    "match-derby",
		TrackerID:  "tracker-b",
		EventTypes: []event.ActionType{event.ActionGoal, event.ActionSave},
		Type:       assignment.TypeEventSpecialist,
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict on overlapping coverage", err)
	}

	// Disjoint event types are fine.
	if _, err := f.assignments.SetAssignment(t.Context(), SetAssignmentInput{
		MatchID:    "match-derby",
		TrackerID:  "tracker-b",
		EventTypes: []event.ActionType{event.ActionSave},
		Type:       assignment.TypeEventSpecialist,
	}); err != nil {
		t.Fatalf("disjoint assignment: %v", err)
	}
}

func TestAssignment_SetAssignment_OverrideBypassesOverlap(t *testing.T) {
	t.Parallel()

	f := newCoordinationFixture(t, testMatch())

	if _, err := f.assignments.SetAssignment(t.Context(), SetAssignmentInput{
		MatchID:   "match-derby",
		TrackerID: "tracker-a",
		Type:      assignment.TypeGeneralist,
	}); err != nil {
		t.Fatalf("first assignment: %v", err)
	}

	if _, err := f.assignments.SetAssignment(t.Context(), SetAssignmentInput{
		MatchID:   "match-derby",
		TrackerID: "tracker-b",
		Type:      assignment.TypeGeneralist,
		Override:  true,
	}); err != nil {
		t.Fatalf("override assignment: %v", err)
	}

	active, err := f.assignments.ListByMatch(t.Context(), "match-derby")
	if err != nil {
		t.Fatalf("list assignments: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("active assignments = %d, want 2", len(active))
	}
}

func TestAssignment_SetAssignment_CapacityLimit(t *testing.T) {
	t.Parallel()

	f := newCoordinationFixture(t, testMatch())

	trackers := []string{"tracker-a", "tracker-b", "tracker-c", "tracker-d"}
	players := []string{"home-gk-1", "home-fwd-9", "away-def-4", "away-mid-10"}
	for i, id := range trackers {
		if _, err := f.assignments.SetAssignment(t.Context(), SetAssignmentInput{
			MatchID:   "match-derby",
			TrackerID: id,
			PlayerIDs: []string{players[i]},
			Type:      assignment.TypePlayerSpecialist,
		}); err != nil {
			t.Fatalf("assignment %d: %v", i, err)
		}
	}

	_, err := f.assignments.SetAssignment(t.Context(), SetAssignmentInput{
		MatchID:   "match-derby",
		TrackerID: "tracker-e",
		Type:      assignment.TypeGeneralist,
		Override:  true,
	})
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("err = %v, want ErrCapacityExceeded", err)
	}

	// Re-assigning an already active tracker does not hit the cap.
	if _, err := f.assignments.SetAssignment(t.Context(), SetAssignmentInput{
		MatchID:   "match-derby",
		TrackerID: "tracker-a",
		PlayerIDs: []string{"home-gk-1"},
		Type:      assignment.TypePlayerSpecialist,
		Override:  true,
	}); err != nil {
		t.Fatalf("replace active assignment: %v", err)
	}
}

func TestAssignment_SetAssignment_RejectsUnknownAndReviewer(t *testing.T) {
	t.Parallel()

	f := newCoordinationFixture(t, testMatch())

	_, err := f.assignments.SetAssignment(t.Context(), SetAssignmentInput{
		MatchID:   "match-derby",
		TrackerID: "tracker-ghost",
		Type:      assignment.TypeGeneralist,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown tracker: err = %v, want ErrNotFound", err)
	}

	_, err = f.assignments.SetAssignment(t.Context(), SetAssignmentInput{
		MatchID:   "match-derby",
		TrackerID: "reviewer-1",
		Type:      assignment.TypeGeneralist,
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("reviewer assignment: err = %v, want ErrInvalidInput", err)
	}
}

func TestAssignment_ResolveOwner(t *testing.T) {
	t.Parallel()

	f := newCoordinationFixture(t, testMatch())

	if _, err := f.assignments.SetAssignment(t.Context(), SetAssignmentInput{
		MatchID:    "match-derby",
		TrackerID:  "tracker-a",
		EventTypes: []event.ActionType{event.ActionShotOnTarget},
		PlayerIDs:  []string{"home-fwd-9"},
		Type:       assignment.TypePlayerSpecialist,
	}); err != nil {
		t.Fatalf("set assignment: %v", err)
	}

	owner, err := f.assignments.ResolveOwner(t.Context(), "match-derby", event.ActionShotOnTarget, "home-fwd-9")
	if err != nil {
		t.Fatalf("resolve owner: %v", err)
	}
	if owner != "tracker-a" {
		t.Fatalf("owner = %q, want tracker-a", owner)
	}

	uncovered, err := f.assignments.ResolveOwner(t.Context(), "match-derby", event.ActionShotOnTarget, "away-def-4")
	if err != nil {
		t.Fatalf("resolve uncovered: %v", err)
	}
	if uncovered != "" {
		t.Fatalf("uncovered owner = %q, want empty", uncovered)
	}
}

func TestAssignment_ResolveOwner_TeamGeneralists(t *testing.T) {
	t.Parallel()

	f := newCoordinationFixture(t, testMatch())

	// One generalist per team: their team scopes keep them from overlapping,
	// so both are admitted without Override.
	if _, err := f.assignments.SetAssignment(t.Context(), SetAssignmentInput{
		MatchID:   "match-derby",
		TrackerID: "tracker-a",
		TeamID:    "team-home",
		Type:      assignment.TypeGeneralist,
	}); err != nil {
		t.Fatalf("home generalist: %v", err)
	}
	if _, err := f.assignments.SetAssignment(t.Context(), SetAssignmentInput{
		MatchID:   "match-derby",
		TrackerID: "tracker-b",
		TeamID:    "team-away",
		Type:      assignment.TypeGeneralist,
	}); err != nil {
		t.Fatalf("away generalist: %v", err)
	}

	homeOwner, err := f.assignments.ResolveOwner(t.Context(), "match-derby", event.ActionGoal, "home-fwd-9")
	if err != nil {
		t.Fatalf("resolve home owner: %v", err)
	}
	if homeOwner != "tracker-a" {
		t.Fatalf("home owner = %q, want tracker-a", homeOwner)
	}
	awayOwner, err := f.assignments.ResolveOwner(t.Context(), "match-derby", event.ActionGoal, "away-mid-10")
	if err != nil {
		t.Fatalf("resolve away owner: %v", err)
	}
	if awayOwner != "tracker-b" {
		t.Fatalf("away owner = %q, want tracker-b", awayOwner)
	}

	// The away generalist owns its own team's events, so its manual
	// recording is not misrouted to the other team's tracker.
	confirmed, err := f.recorder.Record(t.Context(), RecordEventInput{
		MatchID:    "match-derby",
		TrackerID:  "tracker-b",
		ActionType: event.ActionTackle,
		PlayerID:   "away-mid-10",
		TeamID:     "team-away",
	})
	if err != nil {
		t.Fatalf("manual record by away generalist: %v", err)
	}
	if confirmed.RecordedBy != "tracker-b" {
		t.Fatalf("recorded by = %s, want tracker-b", confirmed.RecordedBy)
	}
}

func TestAssignment_ListByMatch_StableOrder(t *testing.T) {
	t.Parallel()

	f := newCoordinationFixture(t, testMatch())

	for i, id := range []string{"tracker-c", "tracker-a", "tracker-b"} {
		if _, err := f.assignments.SetAssignment(t.Context(), SetAssignmentInput{
			MatchID:   "match-derby",
			TrackerID: id,
			PlayerIDs: []string{fmt.Sprintf("player-%d", i)},
			Type:      assignment.TypePlayerSpecialist,
			Override:  true,
		}); err != nil {
			t.Fatalf("assignment for %s: %v", id, err)
		}
	}

	active, err := f.assignments.ListByMatch(t.Context(), "match-derby")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"tracker-a", "tracker-b", "tracker-c"}
	for i, a := range active {
		if a.TrackerID != want[i] {
			t.Fatalf("active[%d] = %s, want %s", i, a.TrackerID, want[i])
		}
	}
}
