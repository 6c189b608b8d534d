package model

import "time"

// SubscriptionPlan enumerates the supported plans.
type SubscriptionPlan string

const (
	PlanFree    SubscriptionPlan = "FREE"
	PlanPremium SubscriptionPlan = "PREMIUM"
)

// Subscription tracks a user's premium window. A user is premium iff an
// active subscription row exists whose ExpiresAt is in the future (or nil
// for non-expiring grants). Charging happens in an external processor; this
// table only mirrors the resulting entitlement.
type Subscription struct {
	ID        int              `json:"id"`
	UserID    int              `json:"user_id"`
	Plan      SubscriptionPlan `json:"plan"`
	StartedAt time.Time        `json:"started_at"`
	ExpiresAt *time.Time       `json:"expires_at,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// GrantSubscriptionRequest is the admin payload for activating premium.
type GrantSubscriptionRequest struct {
	DurationDays int `json:"duration_days" binding:"required,min=1,max=3650"`
}
