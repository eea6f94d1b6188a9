package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/PortNumber53/ppp-dashboard/backend/internal/middleware"
	"github.com/PortNumber53/ppp-dashboard/backend/internal/models"
)

// BillingActions are the subscription actions that end in a redirect to a
// Stripe-hosted page.
type BillingActions interface {
	CreateCheckoutSession(ctx context.Context, id *models.Identity, tier models.TierName) (string, error)
	CreateCancelSession(ctx context.Context, id *models.Identity) (string, error)
	CreateCustomerPortalSession(ctx context.Context, id *models.Identity) (string, error)
}

// Checkout starts a purchase or upgrade of the tier named by the "tier"
// query or form value.
func Checkout(actions BillingActions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tier := models.TierName(strings.TrimSpace(r.FormValue("tier")))
		url, err := actions.CreateCheckoutSession(r.Context(), identityFrom(r), tier)
		redirectOrFail(w, r, "Checkout", url, err)
	}
}

// CancelSubscription opens the portal cancellation flow.
func CancelSubscription(actions BillingActions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		url, err := actions.CreateCancelSession(r.Context(), identityFrom(r))
		redirectOrFail(w, r, "CancelSubscription", url, err)
	}
}

// CustomerPortal opens the billing portal home.
func CustomerPortal(actions BillingActions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		url, err := actions.CreateCustomerPortalSession(r.Context(), identityFrom(r))
		redirectOrFail(w, r, "CustomerPortal", url, err)
	}
}

// identityFrom returns nil for anonymous requests.
func identityFrom(r *http.Request) *models.Identity {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		return nil
	}
	return &id
}

// redirectOrFail never tells the caller why an action failed.
func redirectOrFail(w http.ResponseWriter, r *http.Request, name, url string, err error) {
	if err != nil {
		log.Printf("%s: %v", name, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}
