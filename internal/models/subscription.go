package models

import "time"

// Subscription links an authenticated user to their Stripe billing state.
// A nil StripeCustomerID means the user has never checked out.
type Subscription struct {
	ID                       string    `json:"id"`
	UserID                   string    `json:"user_id"`
	Tier                     TierName  `json:"tier"`
	StripeCustomerID         *string   `json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID     *string   `json:"stripe_subscription_id,omitempty"`
	StripeSubscriptionItemID *string   `json:"stripe_subscription_item_id,omitempty"`
	CreatedAt                time.Time `json:"created_at"`
	UpdatedAt                time.Time `json:"updated_at"`
}

// HasUpgradeIDs reports whether every Stripe identifier required for an
// in-place price swap is present.
func (s *Subscription) HasUpgradeIDs() bool {
	return nonEmpty(s.StripeCustomerID) && nonEmpty(s.StripeSubscriptionID) && nonEmpty(s.StripeSubscriptionItemID)
}

// OptionalString is a nullable column update. Set distinguishes "leave alone"
// from "write Value", and a nil Value clears the column.
type OptionalString struct {
	Set   bool
	Value *string
}

// SetString returns an update writing v.
func SetString(v string) OptionalString {
	return OptionalString{Set: true, Value: &v}
}

// ClearString returns an update writing NULL.
func ClearString() OptionalString {
	return OptionalString{Set: true}
}

// SubscriptionUpdate is a partial update of a subscription row.
type SubscriptionUpdate struct {
	Tier                     *TierName
	StripeCustomerID         OptionalString
	StripeSubscriptionID     OptionalString
	StripeSubscriptionItemID OptionalString
}

// Empty reports whether the update would change nothing.
func (u SubscriptionUpdate) Empty() bool {
	return u.Tier == nil && !u.StripeCustomerID.Set && !u.StripeSubscriptionID.Set && !u.StripeSubscriptionItemID.Set
}

func nonEmpty(s *string) bool {
	return s != nil && *s != ""
}
