// Package permissions evaluates feature access from the caller's subscription tier.
package permissions

import (
	"context"
	"fmt"

	"github.com/PortNumber53/ppp-dashboard/backend/internal/models"
)

// SubscriptionReader loads a user's subscription, returning nil when none exists.
type SubscriptionReader interface {
	GetUserSubscription(ctx context.Context, userID string) (*models.Subscription, error)
}

// Checker answers permission questions for a user.
type Checker struct {
	subs  SubscriptionReader
	tiers models.Tiers
}

// NewChecker creates a Checker backed by subs.
func NewChecker(subs SubscriptionReader, tiers models.Tiers) *Checker {
	return &Checker{subs: subs, tiers: tiers}
}

// Tier returns the user's current tier. Users without a subscription are on Free.
func (c *Checker) Tier(ctx context.Context, userID string) (models.Tier, error) {
	sub, err := c.subs.GetUserSubscription(ctx, userID)
	if err != nil {
		return models.Tier{}, fmt.Errorf("permissions: load subscription: %w", err)
	}
	if sub == nil {
		return c.tiers.Get(models.TierFree), nil
	}
	return c.tiers.Get(sub.Tier), nil
}

// CanAccessAnalytics reports whether the user's tier includes analytics.
func (c *Checker) CanAccessAnalytics(ctx context.Context, userID string) (bool, error) {
	tier, err := c.Tier(ctx, userID)
	if err != nil {
		return false, err
	}
	return tier.CanAccessAnalytics, nil
}
