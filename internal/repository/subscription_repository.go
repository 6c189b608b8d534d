package repository

import (
	"context"
	"errors"
	"time"

	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubscriptionRepository handles premium entitlement data access.
type SubscriptionRepository struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepository creates a new SubscriptionRepository.
func NewSubscriptionRepository(pool *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{pool: pool}
}

// GetActive returns the user's current premium subscription, or nil if the
// user has none in effect right now.
func (r *SubscriptionRepository) GetActive(ctx context.Context, userID int) (*model.Subscription, error) {
	s := &model.Subscription{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, plan, started_at, expires_at, created_at
		 FROM subscriptions
		 WHERE user_id = $1
		   AND plan = $2
		   AND (expires_at IS NULL OR expires_at > NOW())
		 ORDER BY started_at DESC
		 LIMIT 1`, userID, model.PlanPremium,
	).Scan(&s.ID, &s.UserID, &s.Plan, &s.StartedAt, &s.ExpiresAt, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Grant records a premium window for the user.
func (r *SubscriptionRepository) Grant(ctx context.Context, userID int, expiresAt *time.Time) (*model.Subscription, error) {
	s := &model.Subscription{UserID: userID, Plan: model.PlanPremium, ExpiresAt: expiresAt}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO subscriptions (user_id, plan, expires_at)
		 VALUES ($1, $2, $3)
		 RETURNING id, started_at, created_at`,
		userID, model.PlanPremium, expiresAt,
	).Scan(&s.ID, &s.StartedAt, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}
