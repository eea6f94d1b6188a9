package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/PortNumber53/ppp-dashboard/backend/internal/middleware"
	"github.com/PortNumber53/ppp-dashboard/backend/internal/models"
)

// SubscriptionStore reads and provisions subscription records.
type SubscriptionStore interface {
	GetUserSubscription(ctx context.Context, userID string) (*models.Subscription, error)
	CreateUserSubscription(ctx context.Context, userID string, tier models.TierName) error
}

type subscriptionResponse struct {
	Tier         models.Tier          `json:"tier"`
	Subscription *models.Subscription `json:"subscription"`
}

// CurrentSubscription returns the caller's tier. A Free record is created on
// first visit so the billing actions have a subscription to work from.
func CurrentSubscription(store SubscriptionStore, tiers models.Tiers) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}

		sub, err := store.GetUserSubscription(r.Context(), id.UserID)
		if err != nil {
			log.Printf("CurrentSubscription: load for %s: %v", id.UserID, err)
			http.Error(w, "failed to get subscription", http.StatusInternalServerError)
			return
		}

		if sub == nil {
			if err := store.CreateUserSubscription(r.Context(), id.UserID, models.TierFree); err != nil {
				log.Printf("CurrentSubscription: provision for %s: %v", id.UserID, err)
				http.Error(w, "failed to get subscription", http.StatusInternalServerError)
				return
			}
			log.Printf("CurrentSubscription: provisioned free subscription for %s", id.UserID)
			if sub, err = store.GetUserSubscription(r.Context(), id.UserID); err != nil {
				log.Printf("CurrentSubscription: reload for %s: %v", id.UserID, err)
				http.Error(w, "failed to get subscription", http.StatusInternalServerError)
				return
			}
		}

		tier := tiers.Get(models.TierFree)
		if sub != nil {
			tier = tiers.Get(sub.Tier)
		}
		writeJSON(w, http.StatusOK, subscriptionResponse{Tier: tier, Subscription: sub})
	}
}
