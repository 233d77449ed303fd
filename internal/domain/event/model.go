package event

import (
	"fmt"
	"time"
)

// ActionType enumerates the recordable match actions.
type ActionType string

const (
	ActionPassShort     ActionType = "PASS_SHORT"
	ActionPassLong      ActionType = "PASS_LONG"
	ActionShotOnTarget  ActionType = "SHOT_ON_TARGET"
	ActionShotOffTarget ActionType = "SHOT_OFF_TARGET"
	ActionTackle        ActionType = "TACKLE"
	ActionInterception  ActionType = "INTERCEPTION"
	ActionSave          ActionType = "SAVE"
	ActionGoal          ActionType = "GOAL"
	ActionYellowCard    ActionType = "YELLOW_CARD"
	ActionRedCard       ActionType = "RED_CARD"
	ActionSubstitution  ActionType = "SUBSTITUTION"
)

var AllActionTypes = map[ActionType]struct{}{
	ActionPassShort:     {},
	ActionPassLong:      {},
	ActionShotOnTarget:  {},
	ActionShotOffTarget: {},
	ActionTackle:        {},
	ActionInterception:  {},
	ActionSave:          {},
	ActionGoal:          {},
	ActionYellowCard:    {},
	ActionRedCard:       {},
	ActionSubstitution:  {},
}

// Outcome is the result of an attempted action.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailure Outcome = "FAILURE"
)

// Details carries the per-action-kind payload that replaces the old
// loosely-typed metadata blob. Only the fields relevant to the action
// type are populated; Validate enforces the pairing.
type Details struct {
	Outcome        Outcome `json:"outcome,omitempty"`
	DistanceMeters int     `json:"distance_meters,omitempty"`
	CardColor      string  `json:"card_color,omitempty"`
	PlayerInID     string  `json:"player_in_id,omitempty"`
	PlayerOutID    string  `json:"player_out_id,omitempty"`
	Note           string  `json:"note,omitempty"`
}

// QualityReview is attached asynchronously by a reviewer and never blocks
// the commit path.
type QualityReview struct {
	ReviewerID string    `json:"reviewer_id"`
	Verdict    string    `json:"verdict"`
	Note       string    `json:"note,omitempty"`
	ReviewedAt time.Time `json:"reviewed_at"`
}

const (
	ReviewVerdictConfirmed = "CONFIRMED"
	ReviewVerdictDisputed  = "DISPUTED"
	ReviewVerdictRejected  = "REJECTED"
)

// ConfirmedEvent is an append-only record of a committed match action.
// At most one confirmed event exists per source pending event.
type ConfirmedEvent struct {
	ID              string
	MatchID         string
	Sequence        int64
	ActionType      ActionType
	PlayerID        string
	TeamID          string
	RecordedBy      string
	SourcePendingID string
	Details         Details
	Review          *QualityReview
	RecordedAt      time.Time
}

func (e ConfirmedEvent) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("event id is required")
	}
	if e.MatchID == "" {
		return fmt.Errorf("event match id is required")
	}
	if _, ok := AllActionTypes[e.ActionType]; !ok {
		return fmt.Errorf("invalid action type: %s", e.ActionType)
	}
	if e.TeamID == "" {
		return fmt.Errorf("event team id is required")
	}
	if e.RecordedBy == "" {
		return fmt.Errorf("event recorded_by is required")
	}
	return e.Details.ValidateFor(e.ActionType)
}

// ValidateFor checks the detail payload against the action kind.
func (d Details) ValidateFor(action ActionType) error {
	switch action {
	case ActionPassShort, ActionPassLong, ActionTackle, ActionInterception:
		if d.Outcome != "" && d.Outcome != OutcomeSuccess && d.Outcome != OutcomeFailure {
			return fmt.Errorf("invalid outcome: %s", d.Outcome)
		}
	case ActionYellowCard:
		if d.CardColor != "" && d.CardColor != "YELLOW" {
			return fmt.Errorf("card color %q does not match action %s", d.CardColor, action)
		}
	case ActionRedCard:
		if d.CardColor != "" && d.CardColor != "RED" {
			return fmt.Errorf("card color %q does not match action %s", d.CardColor, action)
		}
	case ActionSubstitution:
		if d.PlayerInID == "" || d.PlayerOutID == "" {
			return fmt.Errorf("substitution requires player_in_id and player_out_id")
		}
	}
	return nil
}

func (r QualityReview) Validate() error {
	if r.ReviewerID == "" {
		return fmt.Errorf("review reviewer id is required")
	}
	switch r.Verdict {
	case ReviewVerdictConfirmed, ReviewVerdictDisputed, ReviewVerdictRejected:
	default:
		return fmt.Errorf("invalid review verdict: %s", r.Verdict)
	}
	return nil
}
