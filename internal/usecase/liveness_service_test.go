package usecase

import (
	"errors"
	"testing"
	"time"

	"github.com/pitchside/matchtracker/internal/domain/assignment"
	"github.com/pitchside/matchtracker/internal/domain/event"
	"github.com/pitchside/matchtracker/internal/domain/notification"
	"github.com/pitchside/matchtracker/internal/domain/pending"
	"github.com/pitchside/matchtracker/internal/domain/tracker"
)

func (f *coordinationFixture) heartbeat(t *testing.T, trackerID string) tracker.Presence {
	t.Helper()

	p, err := f.liveness.Heartbeat(t.Context(), HeartbeatInput{
		MatchID:      "match-derby",
		TrackerID:    trackerID,
		BatteryLevel: 80,
		Connection:   tracker.ConnectionOnline,
	})
	if err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	return p
}

func (f *coordinationFixture) presenceOf(t *testing.T, trackerID string) tracker.Presence {
	t.Helper()

	presences, err := f.liveness.Presences(t.Context(), "match-derby")
	if err != nil {
		t.Fatalf("presences: %v", err)
	}
	for _, p := range presences {
		if p.TrackerID == trackerID {
			return p
		}
	}
	t.Fatalf("no presence for %s", trackerID)
	return tracker.Presence{}
}

func TestLiveness_Heartbeat_CreatesActivePresence(t *testing.T) {
	t.Parallel()

	f := newCoordinationFixture(t, testMatch())

	p := f.heartbeat(t, "tracker-a")
	if p.State != tracker.PresenceActive {
		t.Fatalf("state = %s, want ACTIVE", p.State)
	}
	if p.BatteryLevel != 80 || p.Connection != tracker.ConnectionOnline {
		t.Fatalf("telemetry not recorded: %+v", p)
	}
}

func TestLiveness_Heartbeat_RejectsBadInput(t *testing.T) {
	t.Parallel()

	f := newCoordinationFixture(t, testMatch())

	if _, err := f.liveness.Heartbeat(t.Context(), HeartbeatInput{
		MatchID:      "match-derby",
		TrackerID:    "tracker-a",
		BatteryLevel: 140,
	}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("battery out of range: err = %v, want ErrInvalidInput", err)
	}

	if _, err := f.liveness.Heartbeat(t.Context(), HeartbeatInput{
		MatchID:   "match-unknown",
		TrackerID: "tracker-a",
	}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("uncoordinated match: err = %v, want ErrNotFound", err)
	}
}

func TestLiveness_Tick_SuspectThenRecover(t *testing.T) {
	t.Parallel()

	f := newCoordinationFixture(t, testMatch())

	f.heartbeat(t, "tracker-a")

	// Two missed intervals: ACTIVE -> SUSPECT.
	f.clock.Advance(25 * time.Second)
	f.tick(t, "match-derby")
	if got := f.presenceOf(t, "tracker-a").State; got != tracker.PresenceSuspect {
		t.Fatalf("state = %s, want SUSPECT", got)
	}

	// A heartbeat recovers the tracker without any replacement.
	p := f.heartbeat(t, "tracker-a")
	if p.State != tracker.PresenceActive {
		t.Fatalf("state after recovery = %s, want ACTIVE", p.State)
	}

	records, err := f.replacer.ListByMatch(t.Context(), "match-derby")
	if err != nil {
		t.Fatalf("list replacements: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("replacement records = %d, want 0", len(records))
	}
}

func TestLiveness_Tick_AbsenceTriggersBackupReplacement(t *testing.T) {
	t.Parallel()

	f := newCoordinationFixture(t, testMatch())

	f.heartbeat(t, "tracker-a")
	if _, err := f.assignments.SetAssignment(t.Context(), SetAssignmentInput{
		MatchID:    "match-derby",
		TrackerID:  "tracker-a",
		EventTypes: []event.ActionType{event.ActionGoal},
		Type:       assignment.TypeEventSpecialist,
	}); err != nil {
		t.Fatalf("set assignment: %v", err)
	}

	// A claim held by the soon-absent tracker.
	held := f.enqueueAndClaim(t, "tracker-a", pending.Detection{
		MatchID:    "match-derby",
		ActionType: event.ActionGoal,
		TeamID:     "team-home",
	})

	// Six missed intervals: ABSENT, replacement fires once.
	f.clock.Advance(65 * time.Second)
	f.tick(t, "match-derby")
	f.tick(t, "match-derby")

	if got := f.presenceOf(t, "tracker-a").State; got != tracker.PresenceReplaced {
		t.Fatalf("state = %s, want REPLACED", got)
	}

	records, err := f.replacer.ListByMatch(t.Context(), "match-derby")
	if err != nil {
		t.Fatalf("list replacements: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("replacement records = %d, want exactly 1", len(records))
	}
	rec := records[0]
	if rec.ReplacementTrackerID != "tracker-backup" {
		t.Fatalf("replacement = %s, want the designated backup", rec.ReplacementTrackerID)
	}
	if rec.Reason != "HEARTBEAT_LOSS" {
		t.Fatalf("reason = %s, want HEARTBEAT_LOSS", rec.Reason)
	}
	if len(rec.MigratedPendingIDs) != 1 || rec.MigratedPendingIDs[0] != held.ID {
		t.Fatalf("migrated pending ids = %v, want [%s]", rec.MigratedPendingIDs, held.ID)
	}

	// Coverage moved to the backup, and the held claim was released.
	owner, err := f.assignments.ResolveOwner(t.Context(), "match-derby", event.ActionGoal, "home-fwd-9")
	if err != nil {
		t.Fatalf("resolve owner: %v", err)
	}
	if owner != "tracker-backup" {
		t.Fatalf("owner after replacement = %s, want tracker-backup", owner)
	}

	items, err := f.queue.ListByMatch(t.Context(), "match-derby")
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if items[0].IsClaimed() {
		t.Fatalf("pending still claimed by %s after replacement", items[0].ClaimedBy)
	}

	// The backup got an urgent notification, managers an info one.
	backupFeed, err := f.notifier.List(t.Context(), "tracker-backup", false)
	if err != nil {
		t.Fatalf("backup feed: %v", err)
	}
	if len(backupFeed) != 1 || backupFeed[0].Type != notification.TypeUrgentReplacement || !backupFeed[0].WithSound {
		t.Fatalf("backup notification wrong: %+v", backupFeed)
	}
	managerFeed, err := f.notifier.List(t.Context(), "manager-1", false)
	if err != nil {
		t.Fatalf("manager feed: %v", err)
	}
	if len(managerFeed) != 1 || managerFeed[0].Title != "Tracker replaced" {
		t.Fatalf("manager notification wrong: %+v", managerFeed)
	}
}

func TestLiveness_Tick_BatteryCriticalForcesAbsence(t *testing.T) {
	t.Parallel()

	f := newCoordinationFixture(t, testMatch())

	if _, err := f.liveness.Heartbeat(t.Context(), HeartbeatInput{
		MatchID:      "match-derby",
		TrackerID:    "tracker-a",
		BatteryLevel: 5,
		Connection:   tracker.ConnectionDegraded,
	}); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}

	// One missed interval with critical battery is enough.
	f.clock.Advance(11 * time.Second)
	f.tick(t, "match-derby")

	if got := f.presenceOf(t, "tracker-a").State; got != tracker.PresenceReplaced {
		t.Fatalf("state = %s, want REPLACED", got)
	}

	records, err := f.replacer.ListByMatch(t.Context(), "match-derby")
	if err != nil {
		t.Fatalf("list replacements: %v", err)
	}
	if len(records) != 1 || records[0].Reason != "BATTERY_CRITICAL" {
		t.Fatalf("records = %+v, want one BATTERY_CRITICAL entry", records)
	}
}

func TestLiveness_Tick_ZeroBatteryIsCritical(t *testing.T) {
	t.Parallel()

	f := newCoordinationFixture(t, testMatch())

	// A fully drained battery is a real reading, not a missing one.
	if _, err := f.liveness.Heartbeat(t.Context(), HeartbeatInput{
		MatchID:      "match-derby",
		TrackerID:    "tracker-a",
		BatteryLevel: 0,
		Connection:   tracker.ConnectionDegraded,
	}); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}

	f.clock.Advance(11 * time.Second)
	f.tick(t, "match-derby")

	if got := f.presenceOf(t, "tracker-a").State; got != tracker.PresenceReplaced {
		t.Fatalf("state = %s, want REPLACED on a 0%% battery", got)
	}

	records, err := f.replacer.ListByMatch(t.Context(), "match-derby")
	if err != nil {
		t.Fatalf("list replacements: %v", err)
	}
	if len(records) != 1 || records[0].Reason != "BATTERY_CRITICAL" {
		t.Fatalf("records = %+v, want one BATTERY_CRITICAL entry", records)
	}
}

func TestLiveness_Tick_NoShowAssigneeIsReplaced(t *testing.T) {
	t.Parallel()

	f := newCoordinationFixture(t, testMatch())

	// The tracker is assigned but never sends a single heartbeat.
	if _, err := f.assignments.SetAssignment(t.Context(), SetAssignmentInput{
		MatchID:    "match-derby",
		TrackerID:  "tracker-a",
		EventTypes: []event.ActionType{event.ActionGoal},
		Type:       assignment.TypeEventSpecialist,
	}); err != nil {
		t.Fatalf("set assignment: %v", err)
	}
	if got := f.presenceOf(t, "tracker-a").State; got != tracker.PresenceActive {
		t.Fatalf("state right after assignment = %s, want ACTIVE", got)
	}

	f.clock.Advance(65 * time.Second)
	f.tick(t, "match-derby")

	if got := f.presenceOf(t, "tracker-a").State; got != tracker.PresenceReplaced {
		t.Fatalf("state = %s, want REPLACED for a no-show assignee", got)
	}

	records, err := f.replacer.ListByMatch(t.Context(), "match-derby")
	if err != nil {
		t.Fatalf("list replacements: %v", err)
	}
	if len(records) != 1 || records[0].ReplacementTrackerID != "tracker-backup" {
		t.Fatalf("records = %+v, want one handover to tracker-backup", records)
	}

	owner, err := f.assignments.ResolveOwner(t.Context(), "match-derby", event.ActionGoal, "home-fwd-9")
	if err != nil {
		t.Fatalf("resolve owner: %v", err)
	}
	if owner != "tracker-backup" {
		t.Fatalf("owner = %s, want tracker-backup after the handover", owner)
	}
}

func TestLiveness_ReplacementUnavailable_OpensCoverage(t *testing.T) {
	t.Parallel()

	// No designated backups, and every tracker in the directory already
	// holds coverage in this match, so nobody is eligible to step in.
	m := testMatch()
	m.BackupTrackerIDs = nil
	registered := time.Date(2026, time.January, 10, 8, 0, 0, 0, time.UTC)
	f := newCoordinationFixtureWith(t, m, []tracker.Tracker{
		{ID: "tracker-a", Name: "Ayu", Role: tracker.RoleTracker, RegisteredAt: registered},
		{ID: "tracker-b", Name: "Budi", Role: tracker.RoleTracker, RegisteredAt: registered.Add(time.Hour)},
		{ID: "tracker-c", Name: "Citra", Role: tracker.RoleTracker, RegisteredAt: registered.Add(2 * time.Hour)},
		{ID: "tracker-d", Name: "Dimas", Role: tracker.RoleTracker, RegisteredAt: registered.Add(3 * time.Hour)},
		{ID: "manager-1", Name: "Gita", Role: tracker.RoleManager, RegisteredAt: registered},
	})

	busy := []string{"tracker-a", "tracker-b", "tracker-c", "tracker-d"}
	players := []string{"home-gk-1", "home-fwd-9", "away-def-4", "away-mid-10"}
	for i, id := range busy {
		if _, err := f.assignments.SetAssignment(t.Context(), SetAssignmentInput{
			MatchID:   "match-derby",
			TrackerID: id,
			PlayerIDs: []string{players[i]},
			Type:      assignment.TypePlayerSpecialist,
		}); err != nil {
			t.Fatalf("assignment for %s: %v", id, err)
		}
	}
	f.heartbeat(t, "tracker-a")

	f.clock.Advance(65 * time.Second)
	f.tick(t, "match-derby")

	records, err := f.replacer.ListByMatch(t.Context(), "match-derby")
	if err != nil {
		t.Fatalf("list replacements: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("replacement records = %d, want 0 when nobody is eligible", len(records))
	}

	// Managers were alerted about the open coverage.
	managerFeed, err := f.notifier.List(t.Context(), "manager-1", false)
	if err != nil {
		t.Fatalf("manager feed: %v", err)
	}
	found := false
	for _, n := range managerFeed {
		if n.Title == "Replacement unavailable" {
			found = true
		}
	}
	if !found {
		t.Fatalf("no replacement-unavailable alert in %+v", managerFeed)
	}

	// Detections inside the open coverage now enqueue at URGENT.
	item, err := f.queue.Enqueue(t.Context(), pending.Detection{
		MatchID:    "match-derby",
		ActionType: event.ActionPassShort,
		PlayerID:   "home-gk-1",
		TeamID:     "team-home",
	})
	if err != nil {
		t.Fatalf("enqueue in open coverage: %v", err)
	}
	if item.Priority != pending.PriorityUrgent {
		t.Fatalf("priority = %s, want URGENT inside open coverage", item.Priority)
	}

	// A manual assignment closes the area; later detections are normal.
	if _, err := f.assignments.SetAssignment(t.Context(), SetAssignmentInput{
		MatchID:   "match-derby",
		TrackerID: "tracker-b",
		PlayerIDs: []string{"home-gk-1"},
		Type:      assignment.TypePlayerSpecialist,
		Override:  true,
	}); err != nil {
		t.Fatalf("manual reassignment: %v", err)
	}
	later, err := f.queue.Enqueue(t.Context(), pending.Detection{
		MatchID:    "match-derby",
		ActionType: event.ActionPassShort,
		PlayerID:   "home-gk-1",
		TeamID:     "team-home",
	})
	if err != nil {
		t.Fatalf("enqueue after reassignment: %v", err)
	}
	if later.Priority != pending.PriorityNormal {
		t.Fatalf("priority = %s, want NORMAL after coverage closed", later.Priority)
	}
}

func TestLiveness_PresenceTransitions(t *testing.T) {
	t.Parallel()

	valid := []struct{ from, to tracker.PresenceState }{
		{tracker.PresenceActive, tracker.PresenceSuspect},
		{tracker.PresenceSuspect, tracker.PresenceActive},
		{tracker.PresenceSuspect, tracker.PresenceAbsent},
		{tracker.PresenceAbsent, tracker.PresenceActive},
		{tracker.PresenceAbsent, tracker.PresenceReplaced},
	}
	for _, tc := range valid {
		if !tracker.ValidTransition(tc.from, tc.to) {
			t.Errorf("transition %s -> %s should be allowed", tc.from, tc.to)
		}
	}

	invalid := []struct{ from, to tracker.PresenceState }{
		{tracker.PresenceActive, tracker.PresenceAbsent},
		{tracker.PresenceActive, tracker.PresenceReplaced},
		{tracker.PresenceReplaced, tracker.PresenceActive},
		{tracker.PresenceReplaced, tracker.PresenceSuspect},
	}
	for _, tc := range invalid {
		if tracker.ValidTransition(tc.from, tc.to) {
			t.Errorf("transition %s -> %s should be rejected", tc.from, tc.to)
		}
	}
}
