package attempt

import (
	"context"
	"sync"
	"time"

	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Owner identifies who an attempt belongs to: a registered user (UserID > 0)
// or an anonymous visitor carrying a guest token.
type Owner struct {
	UserID     int
	GuestToken string
}

// Anonymous reports whether the owner has no established identity.
func (o Owner) Anonymous() bool { return o.UserID == 0 }

// Attempt pairs a live controller with its owner.
type Attempt struct {
	*Controller
	Owner     Owner
	CreatedAt time.Time
}

// FinalizeFunc is invoked exactly once when a ticker-driven timeout
// finalizes an attempt. Explicit submits run their side effects inline and
// never reach this callback.
type FinalizeFunc func(a *Attempt, res *model.AttemptResult)

// Registry owns all live attempts in this process and drives their
// countdowns. One goroutine per attempt delivers one Tick per second until
// the attempt finalizes by either path.
type Registry struct {
	mu         sync.Mutex
	attempts   map[uuid.UUID]*Attempt
	onFinalize FinalizeFunc
	log        zerolog.Logger
}

// NewRegistry creates an empty registry. onFinalize may be nil for tests
// that drive ticks manually.
func NewRegistry(log zerolog.Logger, onFinalize FinalizeFunc) *Registry {
	return &Registry{
		attempts:   make(map[uuid.UUID]*Attempt),
		onFinalize: onFinalize,
		log:        log.With().Str("component", "attempt_registry").Logger(),
	}
}

// Add registers a live attempt and starts its ticker goroutine.
func (r *Registry) Add(ctx context.Context, a *Attempt) {
	r.mu.Lock()
	r.attempts[a.ID()] = a
	r.mu.Unlock()

	go r.run(ctx, a)
}

// Get looks up a live attempt by ID.
func (r *Registry) Get(id uuid.UUID) (*Attempt, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[id]
	return a, ok
}

// Remove drops an attempt from the registry. The ticker goroutine, if
// still running, exits on its own via the controller's done channel.
func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.attempts, id)
}

// Len reports the number of attempts currently held, finalized or not.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.attempts)
}

// run delivers one tick per second until the attempt finalizes or the
// server shuts down. Stopping on Done() guarantees no tick races a
// finalize that already happened on the submit path.
func (r *Registry) run(ctx context.Context, a *Attempt) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.Done():
			return
		case <-ticker.C:
			res, claimed := a.Tick()
			if !claimed {
				continue
			}
			r.log.Info().
				Str("attempt_id", a.ID().String()).
				Int("score", res.Score).
				Int("total", res.Total).
				Msg("Attempt auto-finalized on timeout")
			if r.onFinalize != nil {
				r.onFinalize(a, res)
			}
			return
		}
	}
}

// StartJanitor periodically evicts finalized attempts that have lingered
// past retention. Finalized attempts are kept briefly so the client can
// still fetch the result after submit.
func (r *Registry) StartJanitor(ctx context.Context, interval, retention time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.sweep(retention)
			}
		}
	}()
}

func (r *Registry) sweep(retention time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().UTC().Add(-retention)
	removed := 0
	for id, a := range r.attempts {
		res, ok := a.Result()
		if ok && res.FinalizedAt.Before(cutoff) {
			delete(r.attempts, id)
			removed++
		}
	}
	if removed > 0 {
		r.log.Debug().Int("count", removed).Msg("Evicted finalized attempts")
	}
}
