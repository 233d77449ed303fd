package rosterapi

import (
	"strings"

	"github.com/pitchside/matchtracker/internal/domain/match"
)

type matchEnvelope struct {
	Data providerMatch `json:"data"`
}

type matchListEnvelope struct {
	Data []providerMatch `json:"data"`
}

type providerMatch struct {
	ID               string       `json:"id"`
	Status           string       `json:"status"`
	HomeTeam         providerTeam `json:"home_team"`
	AwayTeam         providerTeam `json:"away_team"`
	ManagerIDs       []string     `json:"manager_ids"`
	BackupTrackerIDs []string     `json:"backup_tracker_ids"`
}

type providerTeam struct {
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Players []providerPlayer `json:"players"`
}

type providerPlayer struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Number int    `json:"shirt_number"`
}

func mapProviderMatch(item providerMatch) match.Match {
	return match.Match{
		ID:               strings.TrimSpace(item.ID),
		Status:           match.NormalizeStatus(item.Status),
		HomeTeam:         mapProviderTeam(item.HomeTeam),
		AwayTeam:         mapProviderTeam(item.AwayTeam),
		ManagerIDs:       item.ManagerIDs,
		BackupTrackerIDs: item.BackupTrackerIDs,
	}
}

func mapProviderTeam(team providerTeam) match.Team {
	players := make([]match.Player, 0, len(team.Players))
	for _, p := range team.Players {
		if strings.TrimSpace(p.ID) == "" {
			continue
		}
		players = append(players, match.Player{
			ID:     strings.TrimSpace(p.ID),
			Name:   strings.TrimSpace(p.Name),
			Number: p.Number,
			TeamID: strings.TrimSpace(team.ID),
		})
	}
	return match.Team{
		ID:      strings.TrimSpace(team.ID),
		Name:    strings.TrimSpace(team.Name),
		Players: players,
	}
}
