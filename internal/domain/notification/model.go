package notification

import (
	"fmt"
	"time"
)

// Type tags a notification for client-side routing.
type Type string

const (
	TypeMatchAssignment   Type = "match_assignment"
	TypeUrgentReplacement Type = "urgent_replacement_assignment"
	TypeVideoAssignment   Type = "video_assignment"
	TypeInfo              Type = "info"
)

var AllTypes = map[Type]struct{}{
	TypeMatchAssignment:   {},
	TypeUrgentReplacement: {},
	TypeVideoAssignment:   {},
	TypeInfo:              {},
}

// Notification is a user-scoped message. WithSound asks the receiving
// client to play an audible alert.
type Notification struct {
	ID        string
	UserID    string
	Type      Type
	Title     string
	Body      string
	MatchID   string
	WithSound bool
	IsRead    bool
	CreatedAt time.Time
}

func (n Notification) Validate() error {
	if n.UserID == "" {
		return fmt.Errorf("notification user id is required")
	}
	if _, ok := AllTypes[n.Type]; !ok {
		return fmt.Errorf("invalid notification type: %s", n.Type)
	}
	if n.Title == "" {
		return fmt.Errorf("notification title is required")
	}
	return nil
}
