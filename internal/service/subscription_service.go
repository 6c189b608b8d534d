package service

import (
	"context"
	"time"

	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/model"
	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/repository"
	"github.com/rs/zerolog"
)

// SubscriptionService answers premium-entitlement questions. Charging runs
// in an external payment processor; this service only reads and records
// the resulting entitlement windows.
type SubscriptionService struct {
	subRepo *repository.SubscriptionRepository
	log     zerolog.Logger
}

// NewSubscriptionService creates a new SubscriptionService.
func NewSubscriptionService(subRepo *repository.SubscriptionRepository, log zerolog.Logger) *SubscriptionService {
	return &SubscriptionService{
		subRepo: subRepo,
		log:     log.With().Str("component", "subscription_service").Logger(),
	}
}

// IsPremium reports whether the user holds an active premium subscription
// right now. Evaluated at the moment of consumption, never cached across a
// session.
func (s *SubscriptionService) IsPremium(ctx context.Context, userID int) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	sub, err := s.subRepo.GetActive(ctx, userID)
	if err != nil {
		return false, err
	}
	return sub != nil, nil
}

// GetActive returns the user's active subscription, or nil.
func (s *SubscriptionService) GetActive(ctx context.Context, userID int) (*model.Subscription, error) {
	return s.subRepo.GetActive(ctx, userID)
}

// Grant activates premium for the user for the given number of days.
func (s *SubscriptionService) Grant(ctx context.Context, userID, durationDays int) (*model.Subscription, error) {
	expires := time.Now().UTC().AddDate(0, 0, durationDays)
	sub, err := s.subRepo.Grant(ctx, userID, &expires)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int("user_id", userID).
		Time("expires_at", expires).
		Msg("Premium granted")
	return sub, nil
}
