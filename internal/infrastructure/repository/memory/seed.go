package memory

import (
	"time"

	"github.com/pitchside/matchtracker/internal/domain/match"
	"github.com/pitchside/matchtracker/internal/domain/tracker"
)

const (
	MatchIDPersijaPersib    = "idn-2026-persija-persib"
	MatchIDPersebayaBaliUtd = "idn-2026-persebaya-baliutd"
)

func SeedMatches() []match.Match {
	return []match.Match{
		{
			ID:     MatchIDPersijaPersib,
			Status: match.StatusScheduled,
			HomeTeam: match.Team{
				ID:   "idn-persija",
				Name: "Persija Jakarta",
				Players: []match.Player{
					{ID: "psj-gk-01", Name: "Andritany Ardhiyasa", Number: 1, TeamID: "idn-persija"},
					{ID: "psj-def-02", Name: "Hansamu Yama", Number: 2, TeamID: "idn-persija"},
					{ID: "psj-mid-08", Name: "Maciej Gajos", Number: 8, TeamID: "idn-persija"},
					{ID: "psj-fwd-09", Name: "Gustavo Almeida", Number: 9, TeamID: "idn-persija"},
				},
			},
			AwayTeam: match.Team{
				ID:   "idn-persib",
				Name: "Persib Bandung",
				Players: []match.Player{
					{ID: "psb-gk-01", Name: "Teja Paku Alam", Number: 1, TeamID: "idn-persib"},
					{ID: "psb-def-04", Name: "Nick Kuipers", Number: 4, TeamID: "idn-persib"},
					{ID: "psb-mid-10", Name: "Marc Klok", Number: 10, TeamID: "idn-persib"},
					{ID: "psb-fwd-07", Name: "David da Silva", Number: 7, TeamID: "idn-persib"},
				},
			},
			ManagerIDs:       []string{"manager-1"},
			BackupTrackerIDs: []string{"tracker-5"},
		},
		{
			ID:     MatchIDPersebayaBaliUtd,
			Status: match.StatusScheduled,
			HomeTeam: match.Team{
				ID:   "idn-persebaya",
				Name: "Persebaya Surabaya",
				Players: []match.Player{
					{ID: "prb-def-05", Name: "Dusan Stevanovic", Number: 5, TeamID: "idn-persebaya"},
					{ID: "prb-mid-11", Name: "Bruno Moreira", Number: 11, TeamID: "idn-persebaya"},
				},
			},
			AwayTeam: match.Team{
				ID:   "idn-baliutd",
				Name: "Bali United",
				Players: []match.Player{
					{ID: "bu-def-03", Name: "Ricky Fajrin", Number: 3, TeamID: "idn-baliutd"},
					{ID: "bu-mid-06", Name: "Eber Bessa", Number: 6, TeamID: "idn-baliutd"},
				},
			},
			ManagerIDs: []string{"manager-1", "manager-2"},
		},
	}
}

func SeedTrackers() []tracker.Tracker {
	registered := time.Date(2026, time.January, 15, 9, 0, 0, 0, time.UTC)
	return []tracker.Tracker{
		{ID: "tracker-1", Name: "Ayu Lestari", Role: tracker.RoleTracker, RegisteredAt: registered},
		{ID: "tracker-2", Name: "Budi Santoso", Role: tracker.RoleTracker, RegisteredAt: registered.Add(time.Hour)},
		{ID: "tracker-3", Name: "Citra Dewi", Role: tracker.RoleTracker, RegisteredAt: registered.Add(2 * time.Hour)},
		{ID: "tracker-4", Name: "Dimas Pratama", Role: tracker.RoleTracker, RegisteredAt: registered.Add(3 * time.Hour)},
		{ID: "tracker-5", Name: "Eka Wijaya", Role: tracker.RoleTracker, RegisteredAt: registered.Add(4 * time.Hour)},
		{ID: "tracker-6", Name: "Fajar Nugroho", Role: tracker.RoleTracker, RegisteredAt: registered.Add(5 * time.Hour)},
		{ID: "manager-1", Name: "Gita Purnama", Role: tracker.RoleManager, RegisteredAt: registered},
		{ID: "manager-2", Name: "Hendra Saputra", Role: tracker.RoleManager, RegisteredAt: registered.Add(time.Minute)},
		{ID: "reviewer-1", Name: "Indah Maharani", Role: tracker.RoleReviewer, RegisteredAt: registered},
	}
}
