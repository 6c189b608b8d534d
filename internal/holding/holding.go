// Package holding is the session-scoped holding area for anonymous
// attempts: a finalized result (and its answer set) parked in Redis under
// the visitor's guest token until they register or log in. Entries expire
// on a TTL, so an abandoned handoff is discarded without ever writing a
// partial record to PostgreSQL.
package holding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/config"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/model"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound indicates no pending result exists for the guest token:
// either none was held or the TTL already discarded it.
var ErrNotFound = errors.New("no held result for this guest token")

// Entry is one parked result: the frozen AttemptResult plus the full
// question/answer set needed for deferred persistence.
type Entry struct {
	Result  model.AttemptResult `json:"result"`
	Answers map[string]int      `json:"answers"`
	HeldAt  time.Time           `json:"held_at"`
}

// Store is the Redis-backed holding area.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore creates a holding store with the given entry TTL.
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// Put parks a finalized anonymous result under the guest token,
// overwriting any previous entry for the same session.
func (s *Store) Put(ctx context.Context, guestToken string, e *Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal held result: %w", err)
	}

	key := config.CacheKey.HeldResultKey(guestToken)
	if err := s.rdb.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("store held result: %w", err)
	}
	return nil
}

// Peek reads the held entry without consuming it. Used to show the
// top-line score while the breakdown stays withheld.
func (s *Store) Peek(ctx context.Context, guestToken string) (*Entry, error) {
	raw, err := s.rdb.Get(ctx, config.CacheKey.HeldResultKey(guestToken)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read held result: %w", err)
	}
	return decode(raw)
}

// Claim atomically takes the entry out of the holding area. After a
// successful claim the holding area is empty for that token; the score
// inside is authoritative and must not be recomputed.
func (s *Store) Claim(ctx context.Context, guestToken string) (*Entry, error) {
	raw, err := s.rdb.GetDel(ctx, config.CacheKey.HeldResultKey(guestToken)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("claim held result: %w", err)
	}
	return decode(raw)
}

// Discard drops a pending entry immediately (user explicitly declined to
// register). Discarding a missing entry is not an error.
func (s *Store) Discard(ctx context.Context, guestToken string) error {
	return s.rdb.Del(ctx, config.CacheKey.HeldResultKey(guestToken)).Err()
}

func decode(raw string) (*Entry, error) {
	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, fmt.Errorf("decode held result: %w", err)
	}
	return &e, nil
}
