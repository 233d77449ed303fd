package replacement

import (
	"fmt"
	"time"

	"github.com/pitchside/matchtracker/internal/domain/assignment"
)

const (
	ReasonHeartbeatLoss   = "HEARTBEAT_LOSS"
	ReasonBatteryCritical = "BATTERY_CRITICAL"
	ReasonManual          = "MANUAL"
)

// Record is an immutable audit entry describing one coverage handover.
type Record struct {
	ID                   string
	MatchID              string
	AbsentTrackerID      string
	ReplacementTrackerID string
	AssignmentSnapshot   []assignment.Assignment
	MigratedPendingIDs   []string
	Reason               string
	CreatedAt            time.Time
}

func (r Record) Validate() error {
	if r.MatchID == "" {
		return fmt.Errorf("replacement match id is required")
	}
	if r.AbsentTrackerID == "" {
		return fmt.Errorf("replacement absent tracker id is required")
	}
	if r.ReplacementTrackerID == "" {
		return fmt.Errorf("replacement tracker id is required")
	}
	switch r.Reason {
	case ReasonHeartbeatLoss, ReasonBatteryCritical, ReasonManual:
	default:
		return fmt.Errorf("invalid replacement reason: %s", r.Reason)
	}
	return nil
}
