package attempt_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/attempt"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func newAttempt(t *testing.T, budgetSeconds int) *attempt.Attempt {
	t.Helper()
	c, err := attempt.New(uuid.New(), uuid.New(), 1, budgetSeconds, fourChoiceSpecs(2))
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	return &attempt.Attempt{
		Controller: c,
		Owner:      attempt.Owner{UserID: 7},
		CreatedAt:  time.Now().UTC(),
	}
}

func TestRegistryAddGetRemove(t *testing.T) {
	r := attempt.NewRegistry(zerolog.Nop(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := newAttempt(t, 600)
	r.Add(ctx, a)

	got, ok := r.Get(a.ID())
	if !ok || got != a {
		t.Fatalf("expected to find the attempt just added")
	}
	if r.Len() != 1 {
		t.Fatalf("expected len 1, got %d", r.Len())
	}

	if _, ok := r.Get(uuid.New()); ok {
		t.Fatalf("unknown id must not resolve")
	}

	r.Remove(a.ID())
	if _, ok := r.Get(a.ID()); ok {
		t.Fatalf("removed attempt must not resolve")
	}
	if r.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", r.Len())
	}
}

func TestRegistryTimeoutFiresCallbackOnce(t *testing.T) {
	var fired atomic.Int32
	done := make(chan *model.AttemptResult, 1)

	r := attempt.NewRegistry(zerolog.Nop(), func(a *attempt.Attempt, res *model.AttemptResult) {
		fired.Add(1)
		done <- res
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := newAttempt(t, 1)
	r.Add(ctx, a)

	select {
	case res := <-done:
		if res.ElapsedSeconds != 1 {
			t.Fatalf("expected full 1s budget consumed, got %d", res.ElapsedSeconds)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("timeout callback never fired")
	}

	// The ticker goroutine exits after the claim; give it a beat and make
	// sure nothing fires twice.
	time.Sleep(1500 * time.Millisecond)
	if n := fired.Load(); n != 1 {
		t.Fatalf("callback fired %d times, want 1", n)
	}
}

func TestRegistrySubmitSuppressesTimeoutCallback(t *testing.T) {
	var fired atomic.Int32
	r := attempt.NewRegistry(zerolog.Nop(), func(a *attempt.Attempt, res *model.AttemptResult) {
		fired.Add(1)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := newAttempt(t, 2)
	r.Add(ctx, a)

	if _, claimed := a.Finalize(); !claimed {
		t.Fatalf("submit should claim the finalize")
	}

	// The runner stops on Done(); the next tick must never arrive.
	time.Sleep(2500 * time.Millisecond)
	if n := fired.Load(); n != 0 {
		t.Fatalf("submit path must not trigger the timeout callback, fired %d times", n)
	}
}

func TestRegistryContextCancelStopsTicker(t *testing.T) {
	r := attempt.NewRegistry(zerolog.Nop(), func(a *attempt.Attempt, res *model.AttemptResult) {
		t.Errorf("callback must not fire after shutdown")
	})

	ctx, cancel := context.WithCancel(context.Background())
	a := newAttempt(t, 2)
	r.Add(ctx, a)
	cancel()

	time.Sleep(2500 * time.Millisecond)
	if a.Phase() != attempt.PhaseInProgress {
		t.Fatalf("cancelled runner must leave the attempt untouched")
	}
}

func TestJanitorEvictsFinalizedAttempts(t *testing.T) {
	r := attempt.NewRegistry(zerolog.Nop(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	live := newAttempt(t, 600)
	finished := newAttempt(t, 600)
	r.Add(ctx, live)
	r.Add(ctx, finished)
	finished.Finalize()

	r.StartJanitor(ctx, 50*time.Millisecond, 0)

	deadline := time.After(2 * time.Second)
	for {
		if _, ok := r.Get(finished.ID()); !ok {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("janitor never evicted the finalized attempt")
		case <-time.After(25 * time.Millisecond):
		}
	}

	if _, ok := r.Get(live.ID()); !ok {
		t.Fatalf("janitor must keep in-progress attempts")
	}
}
