package rosterapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/pitchside/matchtracker/internal/platform/resilience"
)

const matchPayload = `{
  "data": {
    "id": "idn-2026-persija-persib",
    "status": "live",
    "home_team": {
      "id": "persija",
      "name": "Persija Jakarta",
      "players": [
        {"id": "p-10", "name": "Riko Simanjuntak", "shirt_number": 10},
        {"id": "p-9", "name": "Marko Simic", "shirt_number": 9}
      ]
    },
    "away_team": {
      "id": "persib",
      "name": "Persib Bandung",
      "players": [
        {"id": "p-7", "name": "Ciro Alves", "shirt_number": 7}
      ]
    },
    "manager_ids": ["manager-1"],
    "backup_tracker_ids": ["tracker-5"]
  }
}`

func TestClientFetchMatch_MapsRosters(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/matches/idn-2026-persija-persib" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("include"); got != "rosters" {
			t.Fatalf("unexpected include: %s", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer roster-token" {
			t.Fatalf("unexpected authorization: %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(matchPayload))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		BaseURL:        srv.URL,
		Token:          "roster-token",
		CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: false},
	})

	m, found, err := client.FetchMatch(context.Background(), "idn-2026-persija-persib")
	if err != nil {
		t.Fatalf("fetch match: %v", err)
	}
	if !found {
		t.Fatalf("expected match to be found")
	}
	if m.Status != "LIVE" {
		t.Fatalf("expected normalized LIVE status, got %s", m.Status)
	}
	if len(m.HomeTeam.Players) != 2 || len(m.AwayTeam.Players) != 1 {
		t.Fatalf("unexpected roster sizes: %d / %d", len(m.HomeTeam.Players), len(m.AwayTeam.Players))
	}
	if m.HomeTeam.Players[0].TeamID != "persija" {
		t.Fatalf("expected player team id to be filled from the team, got %s", m.HomeTeam.Players[0].TeamID)
	}
	if len(m.BackupTrackerIDs) != 1 || m.BackupTrackerIDs[0] != "tracker-5" {
		t.Fatalf("unexpected backup trackers: %v", m.BackupTrackerIDs)
	}
}

func TestClientFetchMatch_NotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		BaseURL:        srv.URL,
		CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: false},
	})

	_, found, err := client.FetchMatch(context.Background(), "no-such-match")
	if err != nil {
		t.Fatalf("expected no error for missing match, got %v", err)
	}
	if found {
		t.Fatalf("expected found=false")
	}
}

func TestClientFetchMatch_RetriesTransientFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(matchPayload))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		BaseURL:        srv.URL,
		MaxRetries:     1,
		CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: false},
	})

	_, found, err := client.FetchMatch(context.Background(), "idn-2026-persija-persib")
	if err != nil {
		t.Fatalf("fetch match after retry: %v", err)
	}
	if !found {
		t.Fatalf("expected match to be found")
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls.Load())
	}
}
