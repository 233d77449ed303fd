package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMatchRuntime_Do_SerializesAccess(t *testing.T) {
	t.Parallel()

	registry := NewRuntimeRegistry()
	rt := registry.Start(testMatch(), 0)
	t.Cleanup(func() { registry.Stop("match-derby") })

	const workers = 32
	const perWorker = 25

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				_ = rt.Do(context.Background(), func(st *matchState) error {
					st.eventSeq++
					return nil
				})
			}
		}()
	}
	wg.Wait()

	var total int64
	if err := rt.Do(t.Context(), func(st *matchState) error {
		total = st.eventSeq
		return nil
	}); err != nil {
		t.Fatalf("read back: %v", err)
	}
	if total != workers*perWorker {
		t.Fatalf("eventSeq = %d, want %d: lost updates under contention", total, workers*perWorker)
	}
}

func TestMatchRuntime_Do_PropagatesClosureError(t *testing.T) {
	t.Parallel()

	registry := NewRuntimeRegistry()
	rt := registry.Start(testMatch(), 0)
	t.Cleanup(func() { registry.Stop("match-derby") })

	wantErr := errors.New("boom")
	if err := rt.Do(t.Context(), func(*matchState) error { return wantErr }); !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}

func TestMatchRuntime_Do_AfterStop(t *testing.T) {
	t.Parallel()

	registry := NewRuntimeRegistry()
	rt := registry.Start(testMatch(), 0)
	registry.Stop("match-derby")

	// Wait for the runtime goroutine to drain.
	select {
	case <-rt.stopped:
	case <-time.After(time.Second):
		t.Fatal("runtime did not stop")
	}

	err := rt.Do(t.Context(), func(*matchState) error { return nil })
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound after stop", err)
	}
}

func TestMatchRuntime_Do_RacingStop(t *testing.T) {
	t.Parallel()

	registry := NewRuntimeRegistry()
	rt := registry.Start(testMatch(), 0)

	// Park the loop so the racing callers pile up on the command channel.
	release := make(chan struct{})
	blocked := make(chan struct{})
	go func() {
		_ = rt.Do(context.Background(), func(*matchState) error {
			close(blocked)
			<-release
			return nil
		})
	}()
	<-blocked

	const callers = 16
	var executed atomic.Int64
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer func() {
				if p := recover(); p != nil {
					results <- fmt.Errorf("Do panicked: %v", p)
				}
			}()
			results <- rt.Do(context.Background(), func(*matchState) error {
				executed.Add(1)
				return nil
			})
		}()
	}

	registry.Stop("match-derby")
	close(release)

	var applied int64
	for i := 0; i < callers; i++ {
		select {
		case err := <-results:
			switch {
			case err == nil:
				applied++
			case errors.Is(err, ErrNotFound):
			default:
				t.Fatalf("caller %d: %v", i, err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("caller stuck racing the stop")
		}
	}

	select {
	case <-rt.stopped:
	case <-time.After(time.Second):
		t.Fatal("runtime did not stop")
	}
	if got := executed.Load(); got != applied {
		t.Fatalf("executed %d mutations but reported %d successes: results were disowned", got, applied)
	}
}

func TestRuntimeRegistry_Start_Idempotent(t *testing.T) {
	t.Parallel()

	registry := NewRuntimeRegistry()
	t.Cleanup(func() { registry.Stop("match-derby") })

	first := registry.Start(testMatch(), 0)
	second := registry.Start(testMatch(), 0)
	if first != second {
		t.Fatal("starting an already coordinated match must return the existing runtime")
	}

	ids := registry.MatchIDs()
	if len(ids) != 1 || ids[0] != "match-derby" {
		t.Fatalf("match ids = %v", ids)
	}
}

func TestRuntimeRegistry_IndependentMatches(t *testing.T) {
	t.Parallel()

	registry := NewRuntimeRegistry()
	t.Cleanup(func() {
		registry.Stop("match-derby")
		registry.Stop("match-other")
	})

	a := registry.Start(testMatch(), 0)
	other := testMatch()
	other.ID = "match-other"
	b := registry.Start(other, 0)

	// Block runtime A; runtime B must still make progress.
	release := make(chan struct{})
	blocked := make(chan struct{})
	go func() {
		_ = a.Do(context.Background(), func(*matchState) error {
			close(blocked)
			<-release
			return nil
		})
	}()
	<-blocked

	done := make(chan error, 1)
	go func() {
		done <- b.Do(context.Background(), func(*matchState) error { return nil })
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("independent match blocked: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("operation on an independent match did not complete")
	}
	close(release)
}

func TestRuntimeRegistry_Shutdown(t *testing.T) {
	t.Parallel()

	registry := NewRuntimeRegistry()
	registry.Start(testMatch(), 0)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := registry.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if got := len(registry.MatchIDs()); got != 0 {
		t.Fatalf("registry still tracks %d matches after shutdown", got)
	}
}
