package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/pitchside/matchtracker/internal/domain/tracker"
)

type TrackerDirectory struct {
	mu    sync.RWMutex
	items map[string]tracker.Tracker
}

func NewTrackerDirectory(seed []tracker.Tracker) *TrackerDirectory {
	items := make(map[string]tracker.Tracker, len(seed))
	for _, t := range seed {
		items[t.ID] = t
	}
	return &TrackerDirectory{items: items}
}

func (r *TrackerDirectory) GetByID(_ context.Context, trackerID string) (tracker.Tracker, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[trackerID]
	return item, ok, nil
}

func (r *TrackerDirectory) ListByRole(_ context.Context, role tracker.Role) ([]tracker.Tracker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]tracker.Tracker, 0)
	for _, item := range r.items {
		if item.Role == role {
			out = append(out, item)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].RegisteredAt.Equal(out[j].RegisteredAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].RegisteredAt.Before(out[j].RegisteredAt)
	})
	return out, nil
}

// Register adds an operator, used when identity introspection sees a
// principal the directory does not know yet.
func (r *TrackerDirectory) Register(_ context.Context, t tracker.Tracker) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[t.ID]; !exists {
		r.items[t.ID] = t
	}
	return nil
}
