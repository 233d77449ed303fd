package assignment

import (
	"testing"

	"github.com/pitchside/matchtracker/internal/domain/event"
)

func TestAssignment_Covers_TeamScoped(t *testing.T) {
	t.Parallel()

	home := Assignment{MatchID: "match-derby", TrackerID: "tracker-a", TeamID: "team-home", Type: TypeGeneralist}
	away := Assignment{MatchID: "match-derby", TrackerID: "tracker-b", TeamID: "team-away", Type: TypeGeneralist}

	if home.Overlaps(away) {
		t.Fatal("generalists scoped to different teams must not overlap")
	}
	if !home.Covers(event.ActionGoal, "home-fwd-9", "team-home") {
		t.Fatal("home generalist must cover its own team's players")
	}
	if away.Covers(event.ActionGoal, "home-fwd-9", "team-home") {
		t.Fatal("away generalist covers a home-team player: non-overlapping assignments would both own the same pair")
	}
}

func TestAssignment_Covers_Filters(t *testing.T) {
	t.Parallel()

	a := Assignment{
		MatchID:    "match-derby",
		TrackerID:  "tracker-a",
		EventTypes: []event.ActionType{event.ActionGoal, event.ActionSave},
		PlayerIDs:  []string{"home-fwd-9"},
		Type:       TypePlayerSpecialist,
	}

	if !a.Covers(event.ActionGoal, "home-fwd-9", "") {
		t.Fatal("listed pair must be covered")
	}
	if a.Covers(event.ActionTackle, "home-fwd-9", "") {
		t.Fatal("unlisted event type must not be covered")
	}
	if a.Covers(event.ActionGoal, "away-def-4", "") {
		t.Fatal("unlisted player must not be covered")
	}

	all := Assignment{MatchID: "match-derby", TrackerID: "tracker-b", Type: TypeGeneralist}
	if !all.Covers(event.ActionTackle, "away-def-4", "team-away") {
		t.Fatal("unscoped generalist must cover any player of either team")
	}
}
