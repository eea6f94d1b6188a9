package stripe

import (
	"context"
	"fmt"
	"log"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/PortNumber53/ppp-dashboard/backend/internal/billing"
)

// Client creates Stripe hosted sessions through the stripe-go SDK.
type Client struct {
	api *client.API
}

// NewClient creates a new Stripe API client.
func NewClient(secretKey string) *Client {
	return NewClientWithBackends(secretKey, nil)
}

// NewClientWithBackends creates a client using custom backends, which lets
// tests point the SDK at a local server.
func NewClientWithBackends(secretKey string, backends *stripe.Backends) *Client {
	api := &client.API{}
	api.Init(secretKey, backends)
	return &Client{api: api}
}

// NewCheckoutSession creates a subscription-mode Checkout session for one unit
// of the given price. The purchasing user's id is stored in the subscription
// metadata so webhook events can be linked back to them.
func (c *Client) NewCheckoutSession(ctx context.Context, p billing.CheckoutParams) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(p.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				billing.UserIDMetadataKey: p.UserID,
			},
		},
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
	}
	if p.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(p.CustomerEmail)
	}
	params.Context = ctx

	sess, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}

	log.Printf("[stripe] Created checkout session %s for user %s", sess.ID, p.UserID)
	return sess.URL, nil
}

// NewPortalSession creates a billing portal session, optionally deep linking
// into the cancel or update-confirm flow.
func (c *Client) NewPortalSession(ctx context.Context, p billing.PortalParams) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(p.CustomerID),
		ReturnURL: stripe.String(p.ReturnURL),
	}

	switch p.Flow {
	case billing.PortalFlowNone:
	case billing.PortalFlowSubscriptionCancel:
		params.FlowData = &stripe.BillingPortalSessionFlowDataParams{
			Type: stripe.String(string(p.Flow)),
			SubscriptionCancel: &stripe.BillingPortalSessionFlowDataSubscriptionCancelParams{
				Subscription: stripe.String(p.SubscriptionID),
			},
		}
	case billing.PortalFlowSubscriptionUpdateConfirm:
		params.FlowData = &stripe.BillingPortalSessionFlowDataParams{
			Type: stripe.String(string(p.Flow)),
			SubscriptionUpdateConfirm: &stripe.BillingPortalSessionFlowDataSubscriptionUpdateConfirmParams{
				Subscription: stripe.String(p.SubscriptionID),
				Items: []*stripe.BillingPortalSessionFlowDataSubscriptionUpdateConfirmItemParams{
					{
						ID:       stripe.String(p.SubscriptionItemID),
						Price:    stripe.String(p.PriceID),
						Quantity: stripe.Int64(1),
					},
				},
			},
		}
	default:
		return "", fmt.Errorf("create portal session: unknown flow %q", p.Flow)
	}
	params.Context = ctx

	sess, err := c.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create portal session: %w", err)
	}

	log.Printf("[stripe] Created portal session %s (flow=%q) for customer %s", sess.ID, p.Flow, p.CustomerID)
	return sess.URL, nil
}

// ConstructWebhookEvent verifies the Stripe-Signature header against the
// signing secret and parses the event. Events generated for a different API
// version are accepted; handlers only read fields stable across versions.
func ConstructWebhookEvent(body []byte, signature, secret string) (stripe.Event, error) {
	event, err := webhook.ConstructEventWithOptions(body, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("verify webhook event: %w", err)
	}
	return event, nil
}
