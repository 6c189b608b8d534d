package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UsageRepository tracks per-user, per-subject monthly attempt counters.
type UsageRepository struct {
	pool *pgxpool.Pool
}

// NewUsageRepository creates a new UsageRepository.
func NewUsageRepository(pool *pgxpool.Pool) *UsageRepository {
	return &UsageRepository{pool: pool}
}

// GetCount returns the attempt count for one user/subject/month bucket.
// A missing row reads as zero.
func (r *UsageRepository) GetCount(ctx context.Context, userID, subjectID int, month string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT attempt_count FROM usage_counters
		 WHERE user_id = $1 AND subject_id = $2 AND month = $3`,
		userID, subjectID, month).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Increment bumps the counter for the bucket, creating it at 1 if absent.
// The row upsert is the only synchronization; concurrent tabs may
// double-count in a rare race.
func (r *UsageRepository) Increment(ctx context.Context, userID, subjectID int, month string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO usage_counters (user_id, subject_id, month, attempt_count)
		 VALUES ($1, $2, $3, 1)
		 ON CONFLICT (user_id, subject_id, month) DO UPDATE
		 SET attempt_count = usage_counters.attempt_count + 1`,
		userID, subjectID, month)
	return err
}
