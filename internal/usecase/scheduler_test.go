package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/pitchside/matchtracker/internal/domain/pending"
)

func TestScheduler_DrivesAgingWithoutClients(t *testing.T) {
	t.Parallel()

	f := newCoordinationFixture(t, testMatch())

	item, err := f.queue.Enqueue(t.Context(), pending.Detection{
		MatchID:    "match-derby",
		ActionType: "GOAL",
		TeamID:     "team-home",
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	sched, err := NewScheduler(f.runtimes, f.queue, f.liveness, 5*time.Millisecond, 4, testLogger())
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	sched.now = f.clock.Now

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx)
	defer sched.Stop()

	// Nothing is claimed and no client polls; the item must still escalate.
	f.clock.Advance(45 * time.Second)

	deadline := time.After(2 * time.Second)
	for {
		items, err := f.queue.ListByMatch(t.Context(), "match-derby")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(items) == 1 && items[0].ID == item.ID && items[0].Priority == pending.PriorityUrgent {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("item never escalated: %+v", items)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newCoordinationFixture(t, testMatch())

	sched, err := NewScheduler(f.runtimes, f.queue, f.liveness, 5*time.Millisecond, 2, testLogger())
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	go sched.Run(context.Background())
	time.Sleep(20 * time.Millisecond)

	sched.Stop()
	sched.Stop()
}
