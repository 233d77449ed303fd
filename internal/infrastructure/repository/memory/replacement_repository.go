package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/pitchside/matchtracker/internal/domain/assignment"
	"github.com/pitchside/matchtracker/internal/domain/replacement"
)

type ReplacementRepository struct {
	mu    sync.RWMutex
	items []replacement.Record
}

func NewReplacementRepository() *ReplacementRepository {
	return &ReplacementRepository{}
}

func (r *ReplacementRepository) Append(_ context.Context, record replacement.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = append(r.items, cloneReplacement(record))
	return nil
}

func (r *ReplacementRepository) ListByMatch(_ context.Context, matchID string) ([]replacement.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]replacement.Record, 0)
	for _, item := range r.items {
		if item.MatchID == matchID {
			out = append(out, cloneReplacement(item))
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func cloneReplacement(record replacement.Record) replacement.Record {
	copied := record
	copied.AssignmentSnapshot = append([]assignment.Assignment(nil), record.AssignmentSnapshot...)
	copied.MigratedPendingIDs = append([]string(nil), record.MigratedPendingIDs...)
	return copied
}
