package assignment

import (
	"fmt"
	"time"

	"github.com/pitchside/matchtracker/internal/domain/event"
)

// Type categorizes how a tracker's coverage is sliced.
type Type string

const (
	TypeEventSpecialist  Type = "EVENT_TYPE_SPECIALIST"
	TypePlayerSpecialist Type = "PLAYER_SPECIALIST"
	TypeGeneralist       Type = "GENERALIST"
)

// Assignment maps one tracker to the (event-type, player) coverage it is
// responsible for in a match. For any (eventType, playerID) pair at most
// one active assignment covers it, except during a replacement handover.
type Assignment struct {
	MatchID    string
	TrackerID  string
	EventTypes []event.ActionType
	PlayerIDs  []string
	TeamID     string
	Type       Type
	CreatedAt  time.Time
}

func (a Assignment) Validate() error {
	if a.MatchID == "" {
		return fmt.Errorf("assignment match id is required")
	}
	if a.TrackerID == "" {
		return fmt.Errorf("assignment tracker id is required")
	}
	switch a.Type {
	case TypeEventSpecialist, TypePlayerSpecialist, TypeGeneralist:
	default:
		return fmt.Errorf("invalid assignment type: %s", a.Type)
	}
	for _, et := range a.EventTypes {
		if _, ok := event.AllActionTypes[et]; !ok {
			return fmt.Errorf("invalid event type in assignment: %s", et)
		}
	}
	return nil
}

// Covers reports whether this assignment is responsible for an event of the
// given type attributed to the given player and team. Empty EventTypes means
// all event types; empty PlayerIDs means all players of the assignment's
// team; an empty assignment TeamID spans both teams. The team scoping is the
// same one Overlaps applies, so two admitted assignments never cover the
// same pair.
func (a Assignment) Covers(eventType event.ActionType, playerID, teamID string) bool {
	if a.TeamID != "" && teamID != "" && a.TeamID != teamID {
		return false
	}
	if len(a.EventTypes) > 0 && !containsAction(a.EventTypes, eventType) {
		return false
	}
	if len(a.PlayerIDs) > 0 && !containsString(a.PlayerIDs, playerID) {
		return false
	}
	return true
}

// Overlaps reports whether two assignments claim any common
// (eventType, playerID) pair.
func (a Assignment) Overlaps(other Assignment) bool {
	if a.MatchID != other.MatchID {
		return false
	}
	if len(a.TeamID) > 0 && len(other.TeamID) > 0 && a.TeamID != other.TeamID {
		return false
	}
	return actionsIntersect(a.EventTypes, other.EventTypes) &&
		playersIntersect(a.PlayerIDs, other.PlayerIDs)
}

func containsAction(list []event.ActionType, want event.ActionType) bool {
	for _, item := range list {
		if item == want {
			return true
		}
	}
	return false
}

func containsString(list []string, want string) bool {
	for _, item := range list {
		if item == want {
			return true
		}
	}
	return false
}

// An empty slice means "all", which intersects with anything.
func actionsIntersect(a, b []event.ActionType) bool {
	if len(a) == 0 || len(b) == 0 {
		return true
	}
	for _, item := range a {
		if containsAction(b, item) {
			return true
		}
	}
	return false
}

func playersIntersect(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return true
	}
	for _, item := range a {
		if containsString(b, item) {
			return true
		}
	}
	return false
}
