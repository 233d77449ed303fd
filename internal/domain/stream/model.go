package stream

import "time"

// Kind tags a state-delta message on a match channel.
type Kind string

const (
	KindAssignmentChanged      Kind = "AssignmentChanged"
	KindPendingEventUpdated    Kind = "PendingEventUpdated"
	KindEventConfirmed         Kind = "EventConfirmed"
	KindTrackerPresenceChanged Kind = "TrackerPresenceChanged"
)

// Delta is one entry in a match channel's ordered stream. Sequence is
// monotonic per match; every subscriber observes the same order.
type Delta struct {
	MatchID   string    `json:"match_id"`
	Sequence  int64     `json:"sequence"`
	Kind      Kind      `json:"kind"`
	Payload   any       `json:"payload,omitempty"`
	EmittedAt time.Time `json:"emitted_at"`
}
