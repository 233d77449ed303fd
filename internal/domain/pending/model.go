package pending

import (
	"fmt"
	"time"

	"github.com/pitchside/matchtracker/internal/domain/event"
)

// Priority escalates monotonically while a pending event sits unclaimed.
type Priority string

const (
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

var priorityRank = map[Priority]int{
	PriorityNormal: 0,
	PriorityHigh:   1,
	PriorityUrgent: 2,
}

// Rank orders priorities for monotonicity checks.
func (p Priority) Rank() int {
	return priorityRank[p]
}

// AtLeast reports whether p is the same or more urgent than other.
func (p Priority) AtLeast(other Priority) bool {
	return p.Rank() >= other.Rank()
}

// PendingEvent is a detected-but-unconfirmed candidate action awaiting a
// tracker's classification. It is destroyed on commit or discarded when the
// match completes; a claim is exclusive and time-bounded.
type PendingEvent struct {
	ID         string
	MatchID    string
	ActionType event.ActionType
	PlayerID   string
	TeamID     string
	Priority   Priority
	DetectedAt time.Time
	ClaimedBy  string
	ClaimedAt  time.Time
	// HardTimeoutAlerted marks that the unclaimed-urgent alert has already
	// been dispatched for this item.
	HardTimeoutAlerted bool
}

// Detection is the inbound shape from manual spotting or the external
// classifier service.
type Detection struct {
	MatchID    string
	ActionType event.ActionType
	PlayerID   string
	TeamID     string
	DetectedBy string
}

func (d Detection) Validate() error {
	if d.MatchID == "" {
		return fmt.Errorf("detection match id is required")
	}
	if _, ok := event.AllActionTypes[d.ActionType]; !ok {
		return fmt.Errorf("invalid detection action type: %s", d.ActionType)
	}
	if d.TeamID == "" {
		return fmt.Errorf("detection team id is required")
	}
	return nil
}

// Age is the time the item has existed, relative to now.
func (p PendingEvent) Age(now time.Time) time.Duration {
	return now.Sub(p.DetectedAt)
}

// IsClaimed reports whether a tracker currently holds the claim.
func (p PendingEvent) IsClaimed() bool {
	return p.ClaimedBy != ""
}

// EscalatedPriority computes the priority an unclaimed item should carry at
// the given age. Claimed items keep their priority frozen.
func EscalatedPriority(current Priority, age, highAfter, urgentAfter time.Duration) Priority {
	next := PriorityNormal
	if age > urgentAfter {
		next = PriorityUrgent
	} else if age > highAfter {
		next = PriorityHigh
	}
	if current.AtLeast(next) {
		return current
	}
	return next
}
