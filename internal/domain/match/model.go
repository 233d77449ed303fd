package match

import (
	"fmt"
	"strings"
)

const (
	StatusScheduled = "SCHEDULED"
	StatusLive      = "LIVE"
	StatusCompleted = "COMPLETED"
)

// Team is one side of a match roster.
type Team struct {
	ID      string
	Name    string
	Players []Player
}

// Player is a rostered athlete. Rosters are owned by the external
// match/roster store; this service only reads them.
type Player struct {
	ID     string
	Name   string
	Number int
	TeamID string
}

// Match is the unit of coordination. BackupTrackerIDs are the trackers
// pre-designated to step in when an active tracker goes absent.
type Match struct {
	ID               string
	HomeTeam         Team
	AwayTeam         Team
	Status           string
	ManagerIDs       []string
	BackupTrackerIDs []string
}

func NormalizeStatus(value string) string {
	status := strings.ToUpper(strings.TrimSpace(value))
	if status == "" {
		return StatusScheduled
	}
	return status
}

func IsLiveStatus(status string) bool {
	return NormalizeStatus(status) == StatusLive
}

// RosterPlayer looks a player up across both rosters.
func (m Match) RosterPlayer(playerID string) (Player, bool) {
	for _, p := range m.HomeTeam.Players {
		if p.ID == playerID {
			return p, true
		}
	}
	for _, p := range m.AwayTeam.Players {
		if p.ID == playerID {
			return p, true
		}
	}
	return Player{}, false
}

// TeamByID resolves a team id against the two rostered sides.
func (m Match) TeamByID(teamID string) (Team, bool) {
	switch teamID {
	case m.HomeTeam.ID:
		return m.HomeTeam, true
	case m.AwayTeam.ID:
		return m.AwayTeam, true
	default:
		return Team{}, false
	}
}

func (m Match) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("match id is required")
	}
	if m.HomeTeam.ID == "" || m.AwayTeam.ID == "" {
		return fmt.Errorf("match requires both team ids")
	}
	if m.HomeTeam.ID == m.AwayTeam.ID {
		return fmt.Errorf("match teams must differ")
	}
	return nil
}
