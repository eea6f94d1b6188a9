// Package billing implements the subscription purchase, upgrade and
// cancellation actions on top of Stripe's hosted Checkout and billing portal.
//
// Every action either returns the URL of a hosted flow to redirect the caller
// to, or an error matching ErrActionFailed. Callers are not told why an action
// failed; the cause is only carried in the wrapped error for logging.
package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/PortNumber53/ppp-dashboard/backend/internal/models"
)

// ErrActionFailed is returned by every billing action that cannot proceed.
var ErrActionFailed = errors.New("billing action failed")

// UserIDMetadataKey is the subscription metadata key linking a Stripe
// subscription back to the auth-provider user who purchased it.
const UserIDMetadataKey = "clerkUserId"

// PortalFlow selects the billing portal deep link.
type PortalFlow string

const (
	PortalFlowNone                      PortalFlow = ""
	PortalFlowSubscriptionCancel        PortalFlow = "subscription_cancel"
	PortalFlowSubscriptionUpdateConfirm PortalFlow = "subscription_update_confirm"
)

// CheckoutParams describes a new subscription checkout.
type CheckoutParams struct {
	UserID        string
	CustomerEmail string
	PriceID       string
	SuccessURL    string
	CancelURL     string
}

// PortalParams describes a billing portal session.
type PortalParams struct {
	CustomerID string
	ReturnURL  string
	Flow       PortalFlow

	// SubscriptionID is required by the cancel and update-confirm flows.
	SubscriptionID string
	// SubscriptionItemID and PriceID are required by the update-confirm flow.
	SubscriptionItemID string
	PriceID            string
}

// PaymentProvider creates hosted payment sessions and returns their URLs.
type PaymentProvider interface {
	NewCheckoutSession(ctx context.Context, params CheckoutParams) (string, error)
	NewPortalSession(ctx context.Context, params PortalParams) (string, error)
}

// SubscriptionStore loads a user's subscription, returning nil when none exists.
type SubscriptionStore interface {
	GetUserSubscription(ctx context.Context, userID string) (*models.Subscription, error)
}

// Service runs billing actions for authenticated users.
type Service struct {
	store     SubscriptionStore
	provider  PaymentProvider
	tiers     models.Tiers
	returnURL string
}

// NewService creates a Service. serverURL is the public dashboard base URL;
// every hosted flow returns the user to its subscription page.
func NewService(store SubscriptionStore, provider PaymentProvider, tiers models.Tiers, serverURL string) *Service {
	return &Service{
		store:     store,
		provider:  provider,
		tiers:     tiers,
		returnURL: serverURL + "/dashboard/subscription",
	}
}

// ReturnURL is the page hosted flows send the user back to.
func (s *Service) ReturnURL() string {
	return s.returnURL
}

// CreateCheckoutSession starts a purchase of tier. Users who have never paid
// get a new Checkout session; existing customers get a portal flow that swaps
// their subscription item to the tier's price.
func (s *Service) CreateCheckoutSession(ctx context.Context, id *models.Identity, tier models.TierName) (string, error) {
	sub, err := s.subscriptionFor(ctx, id)
	if err != nil {
		return "", err
	}

	paid, ok := s.tiers.Paid(tier)
	if !ok {
		return "", fail("tier %q cannot be purchased", tier)
	}

	if sub.StripeCustomerID == nil {
		return s.newCheckout(ctx, id, paid)
	}
	return s.upgrade(ctx, sub, paid)
}

func (s *Service) newCheckout(ctx context.Context, id *models.Identity, tier models.Tier) (string, error) {
	url, err := s.provider.NewCheckoutSession(ctx, CheckoutParams{
		UserID:        id.UserID,
		CustomerEmail: id.Email,
		PriceID:       tier.StripePriceID,
		SuccessURL:    s.returnURL,
		CancelURL:     s.returnURL,
	})
	if err != nil {
		return "", fail("create checkout session: %v", err)
	}
	if url == "" {
		return "", fail("checkout session has no url")
	}
	return url, nil
}

func (s *Service) upgrade(ctx context.Context, sub *models.Subscription, tier models.Tier) (string, error) {
	if !sub.HasUpgradeIDs() {
		return "", fail("subscription %s is missing stripe identifiers", sub.ID)
	}

	url, err := s.provider.NewPortalSession(ctx, PortalParams{
		CustomerID:         *sub.StripeCustomerID,
		ReturnURL:          s.returnURL,
		Flow:               PortalFlowSubscriptionUpdateConfirm,
		SubscriptionID:     *sub.StripeSubscriptionID,
		SubscriptionItemID: *sub.StripeSubscriptionItemID,
		PriceID:            tier.StripePriceID,
	})
	if err != nil {
		return "", fail("create upgrade portal session: %v", err)
	}
	return url, nil
}

// CreateCancelSession opens the portal's cancellation flow for the user's subscription.
func (s *Service) CreateCancelSession(ctx context.Context, id *models.Identity) (string, error) {
	sub, err := s.subscriptionFor(ctx, id)
	if err != nil {
		return "", err
	}
	if isEmpty(sub.StripeCustomerID) || isEmpty(sub.StripeSubscriptionID) {
		return "", fail("subscription %s has no active stripe subscription", sub.ID)
	}

	url, err := s.provider.NewPortalSession(ctx, PortalParams{
		CustomerID:     *sub.StripeCustomerID,
		ReturnURL:      s.returnURL,
		Flow:           PortalFlowSubscriptionCancel,
		SubscriptionID: *sub.StripeSubscriptionID,
	})
	if err != nil {
		return "", fail("create cancel portal session: %v", err)
	}
	return url, nil
}

// CreateCustomerPortalSession opens the billing portal home for the user.
func (s *Service) CreateCustomerPortalSession(ctx context.Context, id *models.Identity) (string, error) {
	sub, err := s.subscriptionFor(ctx, id)
	if err != nil {
		return "", err
	}
	if isEmpty(sub.StripeCustomerID) {
		return "", fail("subscription %s has no stripe customer", sub.ID)
	}

	url, err := s.provider.NewPortalSession(ctx, PortalParams{
		CustomerID: *sub.StripeCustomerID,
		ReturnURL:  s.returnURL,
	})
	if err != nil {
		return "", fail("create portal session: %v", err)
	}
	return url, nil
}

func (s *Service) subscriptionFor(ctx context.Context, id *models.Identity) (*models.Subscription, error) {
	if id == nil || id.UserID == "" {
		return nil, fail("not authenticated")
	}
	sub, err := s.store.GetUserSubscription(ctx, id.UserID)
	if err != nil {
		return nil, fail("load subscription for %s: %v", id.UserID, err)
	}
	if sub == nil {
		return nil, fail("no subscription for %s", id.UserID)
	}
	return sub, nil
}

func fail(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrActionFailed, fmt.Sprintf(format, args...))
}

func isEmpty(s *string) bool {
	return s == nil || *s == ""
}
