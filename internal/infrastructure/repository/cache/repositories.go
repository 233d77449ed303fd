package cache

import (
	"context"
	"fmt"

	"github.com/pitchside/matchtracker/internal/domain/match"
	"github.com/pitchside/matchtracker/internal/domain/tracker"
	basecache "github.com/pitchside/matchtracker/internal/platform/cache"
)

// MatchRepository caches match reads. Matches are externally owned and
// change rarely outside status transitions, so a short TTL keeps the hot
// read path off the database. Writes invalidate eagerly.
type MatchRepository struct {
	next  match.Repository
	cache *basecache.Store
}

func NewMatchRepository(next match.Repository, cache *basecache.Store) *MatchRepository {
	return &MatchRepository{next: next, cache: cache}
}

func (r *MatchRepository) GetByID(ctx context.Context, matchID string) (match.Match, bool, error) {
	key := "match:id:" + matchID
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetByID(ctx, matchID)
		if err != nil {
			return nil, err
		}
		return cachedMatchByID{value: item, exists: exists}, nil
	})
	if err != nil {
		return match.Match{}, false, err
	}

	cached, _ := v.(cachedMatchByID)
	return cached.value, cached.exists, nil
}

func (r *MatchRepository) ListByStatus(ctx context.Context, status string) ([]match.Match, error) {
	key := "match:status:" + match.NormalizeStatus(status)
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		items, err := r.next.ListByStatus(ctx, status)
		if err != nil {
			return nil, err
		}
		return append([]match.Match(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]match.Match)
	return append([]match.Match(nil), items...), nil
}

func (r *MatchRepository) UpdateStatus(ctx context.Context, matchID, status string) error {
	if err := r.next.UpdateStatus(ctx, matchID, status); err != nil {
		return err
	}
	r.invalidate(ctx, matchID)
	return nil
}

// Upsert forwards roster refreshes to the underlying store when it
// supports them.
func (r *MatchRepository) Upsert(ctx context.Context, m match.Match) error {
	upserter, ok := r.next.(interface {
		Upsert(ctx context.Context, m match.Match) error
	})
	if !ok {
		return fmt.Errorf("match store does not support upsert")
	}
	if err := upserter.Upsert(ctx, m); err != nil {
		return err
	}
	r.invalidate(ctx, m.ID)
	return nil
}

func (r *MatchRepository) invalidate(ctx context.Context, matchID string) {
	r.cache.Delete(ctx, "match:id:"+matchID)
	r.cache.DeletePrefix(ctx, "match:status:")
}

type cachedMatchByID struct {
	value  match.Match
	exists bool
}

// TrackerDirectory caches operator lookups. The directory is append-mostly;
// staleness is bounded by the store's TTL.
type TrackerDirectory struct {
	next  tracker.Directory
	cache *basecache.Store
}

func NewTrackerDirectory(next tracker.Directory, cache *basecache.Store) *TrackerDirectory {
	return &TrackerDirectory{next: next, cache: cache}
}

func (r *TrackerDirectory) GetByID(ctx context.Context, trackerID string) (tracker.Tracker, bool, error) {
	key := "tracker:id:" + trackerID
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetByID(ctx, trackerID)
		if err != nil {
			return nil, err
		}
		return cachedTrackerByID{value: item, exists: exists}, nil
	})
	if err != nil {
		return tracker.Tracker{}, false, err
	}

	cached, _ := v.(cachedTrackerByID)
	return cached.value, cached.exists, nil
}

func (r *TrackerDirectory) ListByRole(ctx context.Context, role tracker.Role) ([]tracker.Tracker, error) {
	key := "tracker:role:" + string(role)
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		items, err := r.next.ListByRole(ctx, role)
		if err != nil {
			return nil, err
		}
		return append([]tracker.Tracker(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}

	items, _ := v.([]tracker.Tracker)
	return append([]tracker.Tracker(nil), items...), nil
}

type cachedTrackerByID struct {
	value  tracker.Tracker
	exists bool
}
