package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/stripe/stripe-go/v78"

	"github.com/PortNumber53/ppp-dashboard/backend/internal/billing"
	"github.com/PortNumber53/ppp-dashboard/backend/internal/models"
	"github.com/PortNumber53/ppp-dashboard/backend/internal/store"
	stripeClient "github.com/PortNumber53/ppp-dashboard/backend/internal/stripe"
)

// SubscriptionSyncStore applies Stripe subscription changes to local records.
type SubscriptionSyncStore interface {
	UpdateSubscriptionByUserID(ctx context.Context, userID string, update models.SubscriptionUpdate) error
	UpdateSubscriptionByCustomerID(ctx context.Context, customerID string, update models.SubscriptionUpdate) error
}

// StripeHandler keeps user subscriptions in sync with Stripe webhook events.
type StripeHandler struct {
	Store         SubscriptionSyncStore
	Tiers         models.Tiers
	WebhookSecret string
}

// NewStripeHandler creates a new StripeHandler
func NewStripeHandler(syncStore SubscriptionSyncStore, tiers models.Tiers, webhookSecret string) *StripeHandler {
	return &StripeHandler{
		Store:         syncStore,
		Tiers:         tiers,
		WebhookSecret: webhookSecret,
	}
}

// HandleWebhook verifies and dispatches a Stripe event. Store failures other
// than a missing subscription answer 500 so Stripe redelivers the event.
func (h *StripeHandler) HandleWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, 65536))
		if err != nil {
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}

		event, err := stripeClient.ConstructWebhookEvent(body, r.Header.Get("Stripe-Signature"), h.WebhookSecret)
		if err != nil {
			log.Printf("Webhook: failed to verify event: %v", err)
			http.Error(w, "invalid webhook payload", http.StatusBadRequest)
			return
		}

		log.Printf("[webhook] Received event %s (type: %s)", event.ID, event.Type)

		switch event.Type {
		case stripe.EventTypeCustomerSubscriptionCreated:
			err = h.withSubscription(event, func(sub *stripe.Subscription) error {
				return h.handleSubscriptionCreated(r.Context(), sub)
			})
		case stripe.EventTypeCustomerSubscriptionUpdated:
			err = h.withSubscription(event, func(sub *stripe.Subscription) error {
				return h.handleSubscriptionUpdated(r.Context(), sub)
			})
		case stripe.EventTypeCustomerSubscriptionDeleted:
			err = h.withSubscription(event, func(sub *stripe.Subscription) error {
				return h.handleSubscriptionDeleted(r.Context(), sub)
			})
		default:
			log.Printf("[webhook] Unhandled event type: %s", event.Type)
		}

		switch {
		case errors.Is(err, store.ErrSubscriptionNotFound):
			log.Printf("[webhook] %s: no local subscription, ignoring", event.Type)
		case err != nil:
			log.Printf("[webhook] %s: %v", event.Type, err)
			http.Error(w, "failed to process event", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (h *StripeHandler) withSubscription(event stripe.Event, fn func(*stripe.Subscription) error) error {
	if event.Data == nil {
		log.Printf("[webhook] event %s has no data", event.ID)
		return nil
	}
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		log.Printf("[webhook] event %s: invalid subscription object: %v", event.ID, err)
		return nil
	}
	return fn(&sub)
}

func (h *StripeHandler) handleSubscriptionCreated(ctx context.Context, sub *stripe.Subscription) error {
	userID := sub.Metadata[billing.UserIDMetadataKey]
	customerID := customerIDOf(sub)
	itemID, priceID := firstItem(sub)
	if userID == "" || customerID == "" || itemID == "" {
		log.Printf("[webhook] subscription.created %s: missing user, customer or item", sub.ID)
		return nil
	}

	log.Printf("[webhook] Subscription %s created for %s (customer %s)", sub.ID, userID, customerID)

	update := models.SubscriptionUpdate{
		StripeCustomerID:         models.SetString(customerID),
		StripeSubscriptionID:     models.SetString(sub.ID),
		StripeSubscriptionItemID: models.SetString(itemID),
	}
	if tier, ok := h.Tiers.ByPriceID(priceID); ok {
		update.Tier = &tier.Name
	} else {
		log.Printf("[webhook] subscription.created %s: unknown price %q", sub.ID, priceID)
	}
	return h.Store.UpdateSubscriptionByUserID(ctx, userID, update)
}

func (h *StripeHandler) handleSubscriptionUpdated(ctx context.Context, sub *stripe.Subscription) error {
	customerID := customerIDOf(sub)
	_, priceID := firstItem(sub)
	if customerID == "" {
		log.Printf("[webhook] subscription.updated %s: missing customer", sub.ID)
		return nil
	}

	tier, ok := h.Tiers.ByPriceID(priceID)
	if !ok {
		log.Printf("[webhook] subscription.updated %s: unknown price %q", sub.ID, priceID)
		return nil
	}

	log.Printf("[webhook] Subscription %s updated: customer=%s, tier=%s", sub.ID, customerID, tier.Name)
	return h.Store.UpdateSubscriptionByCustomerID(ctx, customerID, models.SubscriptionUpdate{Tier: &tier.Name})
}

func (h *StripeHandler) handleSubscriptionDeleted(ctx context.Context, sub *stripe.Subscription) error {
	customerID := customerIDOf(sub)
	if customerID == "" {
		log.Printf("[webhook] subscription.deleted %s: missing customer", sub.ID)
		return nil
	}

	log.Printf("[webhook] Subscription %s deleted for customer %s", sub.ID, customerID)

	free := models.TierFree
	return h.Store.UpdateSubscriptionByCustomerID(ctx, customerID, models.SubscriptionUpdate{
		Tier:                     &free,
		StripeSubscriptionID:     models.ClearString(),
		StripeSubscriptionItemID: models.ClearString(),
	})
}

func customerIDOf(sub *stripe.Subscription) string {
	if sub.Customer == nil {
		return ""
	}
	return sub.Customer.ID
}

func firstItem(sub *stripe.Subscription) (itemID, priceID string) {
	if sub.Items == nil || len(sub.Items.Data) == 0 || sub.Items.Data[0] == nil {
		return "", ""
	}
	item := sub.Items.Data[0]
	if item.Price != nil {
		priceID = item.Price.ID
	}
	return item.ID, priceID
}
