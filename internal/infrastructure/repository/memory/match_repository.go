package memory

import (
	"context"
	"sync"

	"github.com/pitchside/matchtracker/internal/domain/match"
)

type MatchRepository struct {
	mu    sync.RWMutex
	items map[string]match.Match
}

func NewMatchRepository(seed []match.Match) *MatchRepository {
	items := make(map[string]match.Match, len(seed))
	for _, m := range seed {
		items[m.ID] = cloneMatch(m)
	}
	return &MatchRepository{items: items}
}

func (r *MatchRepository) GetByID(_ context.Context, matchID string) (match.Match, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[matchID]
	if !ok {
		return match.Match{}, false, nil
	}
	return cloneMatch(item), true, nil
}

func (r *MatchRepository) ListByStatus(_ context.Context, status string) ([]match.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status = match.NormalizeStatus(status)
	out := make([]match.Match, 0)
	for _, item := range r.items {
		if match.NormalizeStatus(item.Status) == status {
			out = append(out, cloneMatch(item))
		}
	}
	return out, nil
}

func (r *MatchRepository) UpdateStatus(_ context.Context, matchID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[matchID]
	if !ok {
		return errNotFound
	}
	item.Status = match.NormalizeStatus(status)
	r.items[matchID] = item
	return nil
}

// Upsert supports roster refreshes from the external match store.
func (r *MatchRepository) Upsert(_ context.Context, m match.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[m.ID] = cloneMatch(m)
	return nil
}

func cloneMatch(m match.Match) match.Match {
	copied := m
	copied.HomeTeam.Players = append([]match.Player(nil), m.HomeTeam.Players...)
	copied.AwayTeam.Players = append([]match.Player(nil), m.AwayTeam.Players...)
	copied.ManagerIDs = append([]string(nil), m.ManagerIDs...)
	copied.BackupTrackerIDs = append([]string(nil), m.BackupTrackerIDs...)
	return copied
}
