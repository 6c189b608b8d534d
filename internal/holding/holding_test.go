package holding_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/holding"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/model"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func newStore(t *testing.T, ttl time.Duration) (*holding.Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return holding.NewStore(client, ttl), mr
}

func sampleEntry() *holding.Entry {
	return &holding.Entry{
		Result: model.AttemptResult{
			AttemptID:      uuid.New(),
			ExamID:         uuid.New(),
			SubjectID:      1,
			Score:          7,
			Total:          10,
			Percentage:     70,
			ElapsedSeconds: 412,
			FinalizedAt:    time.Now().UTC().Truncate(time.Second),
		},
		Answers: map[string]int{uuid.New().String(): 2, uuid.New().String(): 0},
		HeldAt:  time.Now().UTC().Truncate(time.Second),
	}
}

func TestPutThenPeekRoundTrips(t *testing.T) {
	store, mr := newStore(t, time.Hour)
	ctx := context.Background()
	token := uuid.New().String()
	entry := sampleEntry()

	if err := store.Put(ctx, token, entry); err != nil {
		t.Fatalf("put: %v", err)
	}

	key := "guest:" + token + ":held_result"
	if !mr.Exists(key) {
		t.Fatalf("expected key %s to exist", key)
	}
	if ttl := mr.TTL(key); ttl != time.Hour {
		t.Fatalf("expected 1h TTL, got %v", ttl)
	}

	got, err := store.Peek(ctx, token)
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if got.Result.Score != entry.Result.Score || got.Result.AttemptID != entry.Result.AttemptID {
		t.Fatalf("peek returned a different result: %+v", got.Result)
	}
	if len(got.Answers) != len(entry.Answers) {
		t.Fatalf("answer set lost in round trip")
	}

	// Peek does not consume.
	if _, err := store.Peek(ctx, token); err != nil {
		t.Fatalf("second peek: %v", err)
	}
}

func TestClaimConsumesTheEntry(t *testing.T) {
	store, _ := newStore(t, time.Hour)
	ctx := context.Background()
	token := uuid.New().String()

	if err := store.Put(ctx, token, sampleEntry()); err != nil {
		t.Fatalf("put: %v", err)
	}

	if _, err := store.Claim(ctx, token); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := store.Claim(ctx, token); !errors.Is(err, holding.ErrNotFound) {
		t.Fatalf("second claim should be ErrNotFound, got %v", err)
	}
	if _, err := store.Peek(ctx, token); !errors.Is(err, holding.ErrNotFound) {
		t.Fatalf("peek after claim should be ErrNotFound, got %v", err)
	}
}

func TestPutOverwritesPreviousEntry(t *testing.T) {
	store, _ := newStore(t, time.Hour)
	ctx := context.Background()
	token := uuid.New().String()

	first := sampleEntry()
	second := sampleEntry()
	second.Result.Score = 3

	if err := store.Put(ctx, token, first); err != nil {
		t.Fatalf("put first: %v", err)
	}
	if err := store.Put(ctx, token, second); err != nil {
		t.Fatalf("put second: %v", err)
	}

	got, err := store.Peek(ctx, token)
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if got.Result.AttemptID != second.Result.AttemptID || got.Result.Score != 3 {
		t.Fatalf("latest attempt must replace the earlier one")
	}
}

func TestDiscard(t *testing.T) {
	store, _ := newStore(t, time.Hour)
	ctx := context.Background()
	token := uuid.New().String()

	if err := store.Put(ctx, token, sampleEntry()); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Discard(ctx, token); err != nil {
		t.Fatalf("discard: %v", err)
	}
	if _, err := store.Peek(ctx, token); !errors.Is(err, holding.ErrNotFound) {
		t.Fatalf("peek after discard should be ErrNotFound, got %v", err)
	}

	// Discarding an empty holding area is fine.
	if err := store.Discard(ctx, token); err != nil {
		t.Fatalf("discard on missing entry: %v", err)
	}
}

func TestEntryExpiresWithTTL(t *testing.T) {
	store, mr := newStore(t, time.Minute)
	ctx := context.Background()
	token := uuid.New().String()

	if err := store.Put(ctx, token, sampleEntry()); err != nil {
		t.Fatalf("put: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := store.Peek(ctx, token); !errors.Is(err, holding.ErrNotFound) {
		t.Fatalf("expired entry should be ErrNotFound, got %v", err)
	}
}
