package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/pitchside/matchtracker/internal/domain/event"
)

// EventRepository is the in-memory confirmed event log. The uniqueness
// guarantee on the source pending id mirrors the postgres unique index.
type EventRepository struct {
	mu       sync.RWMutex
	items    map[string]event.ConfirmedEvent
	bySource map[string]string // source pending id -> event id
}

func NewEventRepository() *EventRepository {
	return &EventRepository{
		items:    make(map[string]event.ConfirmedEvent),
		bySource: make(map[string]string),
	}
}

func (r *EventRepository) Append(_ context.Context, item event.ConfirmedEvent) (event.ConfirmedEvent, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if item.SourcePendingID != "" {
		if existingID, ok := r.bySource[item.SourcePendingID]; ok {
			return cloneEvent(r.items[existingID]), false, nil
		}
	}

	r.items[item.ID] = cloneEvent(item)
	if item.SourcePendingID != "" {
		r.bySource[item.SourcePendingID] = item.ID
	}
	return cloneEvent(item), true, nil
}

func (r *EventRepository) GetByID(_ context.Context, id string) (event.ConfirmedEvent, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return event.ConfirmedEvent{}, false, nil
	}
	return cloneEvent(item), true, nil
}

func (r *EventRepository) GetBySourcePendingID(_ context.Context, pendingID string) (event.ConfirmedEvent, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.bySource[pendingID]
	if !ok {
		return event.ConfirmedEvent{}, false, nil
	}
	return cloneEvent(r.items[id]), true, nil
}

func (r *EventRepository) ListByMatch(_ context.Context, matchID string) ([]event.ConfirmedEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]event.ConfirmedEvent, 0)
	for _, item := range r.items {
		if item.MatchID == matchID {
			out = append(out, cloneEvent(item))
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (r *EventRepository) MaxSequence(_ context.Context, matchID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var max int64
	for _, item := range r.items {
		if item.MatchID == matchID && item.Sequence > max {
			max = item.Sequence
		}
	}
	return max, nil
}

func (r *EventRepository) AttachReview(_ context.Context, eventID string, review event.QualityReview) (event.ConfirmedEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[eventID]
	if !ok {
		return event.ConfirmedEvent{}, errNotFound
	}
	reviewCopy := review
	item.Review = &reviewCopy
	r.items[eventID] = item
	return cloneEvent(item), nil
}

func cloneEvent(item event.ConfirmedEvent) event.ConfirmedEvent {
	copied := item
	if item.Review != nil {
		review := *item.Review
		copied.Review = &review
	}
	return copied
}
