package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/PortNumber53/ppp-dashboard/backend/internal/analytics"
	"github.com/PortNumber53/ppp-dashboard/backend/internal/billing"
	"github.com/PortNumber53/ppp-dashboard/backend/internal/middleware"
	"github.com/PortNumber53/ppp-dashboard/backend/internal/models"
)

func withUser(r *http.Request, userID string) *http.Request {
	return r.WithContext(middleware.WithIdentity(r.Context(), models.Identity{UserID: userID, Email: userID + "@example.com"}))
}

type stubBuilder struct {
	page    *analytics.Page
	err     error
	userID  string
	filters analytics.Filters
}

func (s *stubBuilder) Build(ctx context.Context, userID string, f analytics.Filters) (*analytics.Page, error) {
	s.userID = userID
	s.filters = f
	return s.page, s.err
}

func TestHealth(t *testing.T) {
	rr := httptest.NewRecorder()
	Health(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("expected status ok got %v", body["status"])
	}
}

func TestAnalyticsPageRedirectsAnonymous(t *testing.T) {
	builder := &stubBuilder{}
	req := httptest.NewRequest(http.MethodGet, "/dashboard/analytics?interval=last30Days", nil)
	rr := httptest.NewRecorder()

	AnalyticsPage(builder, "https://app.example.com/sign-in").ServeHTTP(rr, req)

	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 got %d", rr.Code)
	}
	loc, err := url.Parse(rr.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	if loc.Host != "app.example.com" || loc.Path != "/sign-in" {
		t.Fatalf("unexpected location %s", loc)
	}
	if got := loc.Query().Get("redirect_url"); got != "/dashboard/analytics?interval=last30Days" {
		t.Fatalf("unexpected redirect_url %q", got)
	}
	if builder.userID != "" {
		t.Fatalf("builder should not be called for anonymous requests")
	}
}

func TestAnalyticsPageRenders(t *testing.T) {
	builder := &stubBuilder{page: &analytics.Page{FallbackText: "You do not have permission to access analytics"}}
	req := withUser(httptest.NewRequest(http.MethodGet, "/dashboard/analytics?timezone=Europe/Paris", nil), "user_1")
	rr := httptest.NewRecorder()

	AnalyticsPage(builder, "/sign-in").ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	if !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("unexpected content type %q", rr.Header().Get("Content-Type"))
	}
	if !strings.Contains(rr.Body.String(), "You do not have permission to access analytics") {
		t.Fatalf("fallback text missing from page")
	}
	if builder.userID != "user_1" || builder.filters.Timezone != "Europe/Paris" {
		t.Fatalf("unexpected build call: %q %+v", builder.userID, builder.filters)
	}
}

func TestAnalyticsPageBuildError(t *testing.T) {
	builder := &stubBuilder{err: errors.New("db down")}
	req := withUser(httptest.NewRequest(http.MethodGet, "/dashboard/analytics", nil), "user_1")
	rr := httptest.NewRecorder()

	AnalyticsPage(builder, "/sign-in").ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "db down") {
		t.Fatalf("error cause leaked to client")
	}
}

func TestAnalyticsData(t *testing.T) {
	builder := &stubBuilder{page: &analytics.Page{CanAccessAnalytics: true, Timezone: "UTC"}}

	rr := httptest.NewRecorder()
	AnalyticsData(builder).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/analytics", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	AnalyticsData(builder).ServeHTTP(rr, withUser(httptest.NewRequest(http.MethodGet, "/api/analytics", nil), "user_1"))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	var page analytics.Page
	if err := json.NewDecoder(rr.Body).Decode(&page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !page.CanAccessAnalytics {
		t.Fatalf("expected can_access_analytics true")
	}
}

type stubActions struct {
	id   *models.Identity
	tier models.TierName
	url  string
	err  error
}

func (s *stubActions) CreateCheckoutSession(ctx context.Context, id *models.Identity, tier models.TierName) (string, error) {
	s.id, s.tier = id, tier
	return s.url, s.err
}

func (s *stubActions) CreateCancelSession(ctx context.Context, id *models.Identity) (string, error) {
	s.id = id
	return s.url, s.err
}

func (s *stubActions) CreateCustomerPortalSession(ctx context.Context, id *models.Identity) (string, error) {
	s.id = id
	return s.url, s.err
}

func TestCheckoutRedirects(t *testing.T) {
	actions := &stubActions{url: "https://checkout.stripe.com/c/pay/cs_test"}
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/billing/checkout?tier=Standard", nil), "user_1")
	rr := httptest.NewRecorder()

	Checkout(actions).ServeHTTP(rr, req)

	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 got %d", rr.Code)
	}
	if rr.Header().Get("Location") != actions.url {
		t.Fatalf("unexpected location %q", rr.Header().Get("Location"))
	}
	if actions.tier != models.TierStandard {
		t.Fatalf("expected tier Standard got %q", actions.tier)
	}
	if actions.id == nil || actions.id.UserID != "user_1" {
		t.Fatalf("identity not passed through: %+v", actions.id)
	}
}

func TestCheckoutReadsFormTier(t *testing.T) {
	actions := &stubActions{url: "https://checkout.stripe.com/c/pay/cs_test"}
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/billing/checkout", strings.NewReader("tier=Premium")), "user_1")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()

	Checkout(actions).ServeHTTP(rr, req)

	if actions.tier != models.TierPremium {
		t.Fatalf("expected tier Premium got %q", actions.tier)
	}
}

func TestBillingActionsPassNilIdentityForAnonymous(t *testing.T) {
	actions := &stubActions{err: billing.ErrActionFailed}
	rr := httptest.NewRecorder()

	CancelSubscription(actions).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/billing/cancel", nil))

	if actions.id != nil {
		t.Fatalf("expected nil identity got %+v", actions.id)
	}
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rr.Code)
	}
}

func TestBillingFailureIsUninformative(t *testing.T) {
	handlers := map[string]http.HandlerFunc{}
	actions := &stubActions{err: errors.New("billing action failed: subscription sub_1 is missing stripe identifiers")}
	handlers["checkout"] = Checkout(actions)
	handlers["cancel"] = CancelSubscription(actions)
	handlers["portal"] = CustomerPortal(actions)

	for name, h := range handlers {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, withUser(httptest.NewRequest(http.MethodPost, "/", nil), "user_1"))

		if rr.Code != http.StatusInternalServerError {
			t.Fatalf("%s: expected 500 got %d", name, rr.Code)
		}
		if strings.TrimSpace(rr.Body.String()) != http.StatusText(http.StatusInternalServerError) {
			t.Fatalf("%s: unexpected body %q", name, rr.Body.String())
		}
		if rr.Header().Get("Location") != "" {
			t.Fatalf("%s: unexpected redirect", name)
		}
	}
}

func TestCustomerPortalRedirects(t *testing.T) {
	actions := &stubActions{url: "https://billing.stripe.com/p/session/test"}
	rr := httptest.NewRecorder()

	CustomerPortal(actions).ServeHTTP(rr, withUser(httptest.NewRequest(http.MethodPost, "/api/billing/portal", nil), "user_1"))

	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != actions.url {
		t.Fatalf("unexpected response %d %q", rr.Code, rr.Header().Get("Location"))
	}
}

type stubSubscriptions struct {
	subs    map[string]*models.Subscription
	created []string
	err     error
}

func (s *stubSubscriptions) GetUserSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.subs[userID], nil
}

func (s *stubSubscriptions) CreateUserSubscription(ctx context.Context, userID string, tier models.TierName) error {
	s.created = append(s.created, userID)
	s.subs[userID] = &models.Subscription{ID: "sub-row", UserID: userID, Tier: tier}
	return nil
}

func TestCurrentSubscription(t *testing.T) {
	subs := &stubSubscriptions{subs: map[string]*models.Subscription{
		"user_1": {ID: "row1", UserID: "user_1", Tier: models.TierStandard},
	}}
	handler := CurrentSubscription(subs, models.DefaultTiers())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, withUser(httptest.NewRequest(http.MethodGet, "/api/subscription", nil), "user_1"))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	var resp subscriptionResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Tier.Name != models.TierStandard || !resp.Tier.CanAccessAnalytics {
		t.Fatalf("unexpected tier %+v", resp.Tier)
	}
	if len(subs.created) != 0 {
		t.Fatalf("existing subscription should not be recreated")
	}
}

func TestCurrentSubscriptionProvisionsFree(t *testing.T) {
	subs := &stubSubscriptions{subs: map[string]*models.Subscription{}}
	handler := CurrentSubscription(subs, models.DefaultTiers())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, withUser(httptest.NewRequest(http.MethodGet, "/api/subscription", nil), "user_2"))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	var resp subscriptionResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Tier.Name != models.TierFree || resp.Tier.CanAccessAnalytics {
		t.Fatalf("unexpected tier %+v", resp.Tier)
	}
	if len(subs.created) != 1 || subs.created[0] != "user_2" {
		t.Fatalf("expected free subscription provisioned, got %v", subs.created)
	}
}

func TestCurrentSubscriptionErrors(t *testing.T) {
	subs := &stubSubscriptions{err: errors.New("db down")}
	handler := CurrentSubscription(subs, models.DefaultTiers())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/subscription", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, withUser(httptest.NewRequest(http.MethodGet, "/api/subscription", nil), "user_1"))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rr.Code)
	}
}
