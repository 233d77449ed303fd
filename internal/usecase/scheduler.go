package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
)

const (
	defaultTickInterval  = time.Second
	defaultTickPoolSize  = 16
	tickSubmitRetryDelay = 5 * time.Millisecond
)

// Scheduler is the server-owned ticking process. Every interval it drives
// each coordinated match's aging and absence detection through an ants
// worker pool, so matches tick in parallel while each match's tick is
// serialized with client calls by its runtime. The scheduler does not
// depend on any client connection: a tracker whose clients all vanish is
// still detected absent.
type Scheduler struct {
	runtimes *RuntimeRegistry
	queue    *PendingQueueService
	liveness *LivenessService
	interval time.Duration
	pool     *ants.Pool
	logger   *slog.Logger
	now      nowFunc

	stopOnce sync.Once
	stopped  chan struct{}
	done     chan struct{}
}

func NewScheduler(
	runtimes *RuntimeRegistry,
	queue *PendingQueueService,
	liveness *LivenessService,
	interval time.Duration,
	poolSize int,
	logger *slog.Logger,
) (*Scheduler, error) {
	if interval <= 0 {
		interval = defaultTickInterval
	}
	if poolSize <= 0 {
		poolSize = defaultTickPoolSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := ants.NewPool(poolSize, ants.WithNonblocking(false))
	if err != nil {
		return nil, fmt.Errorf("create tick worker pool: %w", err)
	}

	return &Scheduler{
		runtimes: runtimes,
		queue:    queue,
		liveness: liveness,
		interval: interval,
		pool:     pool,
		logger:   logger,
		now:      time.Now,
		stopped:  make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Run blocks, ticking until Stop is called or ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopped:
			return
		case <-ticker.C:
			s.tickAll(ctx)
		}
	}
}

// Stop halts ticking and releases the worker pool.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopped)
		<-s.done
		s.pool.Release()
	})
}

func (s *Scheduler) tickAll(ctx context.Context) {
	now := s.now()
	var wg sync.WaitGroup

	for _, matchID := range s.runtimes.MatchIDs() {
		rt, ok := s.runtimes.Get(matchID)
		if !ok {
			continue
		}

		wg.Add(1)
		job := func() {
			defer wg.Done()
			s.tickMatch(ctx, rt, now)
		}
		if err := s.pool.Submit(job); err != nil {
			wg.Done()
			s.logger.WarnContext(ctx, "tick submit failed", "match_id", matchID, "error", err)
		}
	}

	wg.Wait()
}

func (s *Scheduler) tickMatch(ctx context.Context, rt *MatchRuntime, now time.Time) {
	err := rt.Do(ctx, func(st *matchState) error {
		s.liveness.tick(ctx, st, now)
		s.queue.tick(ctx, st, now)
		return nil
	})
	if err != nil && ctx.Err() == nil {
		s.logger.WarnContext(ctx, "match tick failed", "match_id", rt.matchID, "error", err)
	}
}
