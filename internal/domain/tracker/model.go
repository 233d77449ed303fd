package tracker

import (
	"fmt"
	"time"
)

// Role is the permission level of an operator.
type Role string

const (
	RoleTracker  Role = "TRACKER"
	RoleManager  Role = "MANAGER"
	RoleReviewer Role = "REVIEWER"
)

// Tracker is a human operator who records live match events.
type Tracker struct {
	ID           string
	Name         string
	Role         Role
	RegisteredAt time.Time
}

func (t Tracker) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("tracker id is required")
	}
	switch t.Role {
	case RoleTracker, RoleManager, RoleReviewer:
	default:
		return fmt.Errorf("invalid tracker role: %s", t.Role)
	}
	return nil
}

// PresenceState is the liveness lifecycle of a tracker within one match.
type PresenceState string

const (
	PresenceActive   PresenceState = "ACTIVE"
	PresenceSuspect  PresenceState = "SUSPECT"
	PresenceAbsent   PresenceState = "ABSENT"
	PresenceReplaced PresenceState = "REPLACED"
)

// ConnectionState is reported by the tracker client with each heartbeat.
type ConnectionState string

const (
	ConnectionOnline   ConnectionState = "ONLINE"
	ConnectionDegraded ConnectionState = "DEGRADED"
	ConnectionOffline  ConnectionState = "OFFLINE"
)

// BatteryUnreported marks a presence created before its tracker's first
// heartbeat. The battery-critical fast path skips it; a reported level of 0
// is a real reading.
const BatteryUnreported = -1

// Presence is the per-(tracker, match) liveness record. Transitions are
// owned exclusively by the liveness state machine.
type Presence struct {
	TrackerID       string
	MatchID         string
	State           PresenceState
	LastHeartbeatAt time.Time
	BatteryLevel    int
	Connection      ConnectionState
	// AbsentReported marks that the current absence episode has already
	// been handed to the replacement coordinator.
	AbsentReported bool
}

// ValidTransition reports whether the lifecycle allows moving from one
// presence state to another.
func ValidTransition(from, to PresenceState) bool {
	switch from {
	case PresenceActive:
		return to == PresenceSuspect
	case PresenceSuspect:
		return to == PresenceActive || to == PresenceAbsent
	case PresenceAbsent:
		return to == PresenceActive || to == PresenceReplaced
	case PresenceReplaced:
		return false
	default:
		return false
	}
}
