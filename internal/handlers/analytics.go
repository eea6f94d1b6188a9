package handlers

import (
	"bytes"
	"context"
	"log"
	"net/http"
	"net/url"

	"github.com/PortNumber53/ppp-dashboard/backend/internal/analytics"
	"github.com/PortNumber53/ppp-dashboard/backend/internal/middleware"
)

// AnalyticsBuilder assembles the analytics view model for a user.
type AnalyticsBuilder interface {
	Build(ctx context.Context, userID string, f analytics.Filters) (*analytics.Page, error)
}

// AnalyticsPage serves the HTML dashboard. Anonymous visitors are sent to
// signInURL with a redirect_url pointing back at the requested page.
func AnalyticsPage(builder AnalyticsBuilder, signInURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, signInRedirect(signInURL, r), http.StatusSeeOther)
			return
		}

		page, err := builder.Build(r.Context(), id.UserID, analytics.ParseFilters(r.URL.Query()))
		if err != nil {
			log.Printf("AnalyticsPage: build for %s: %v", id.UserID, err)
			http.Error(w, "failed to load analytics", http.StatusInternalServerError)
			return
		}

		var buf bytes.Buffer
		if err := analytics.Render(&buf, page); err != nil {
			log.Printf("AnalyticsPage: render: %v", err)
			http.Error(w, "failed to render analytics", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = buf.WriteTo(w)
	}
}

// AnalyticsData returns the dashboard view model as JSON.
func AnalyticsData(builder AnalyticsBuilder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}

		page, err := builder.Build(r.Context(), id.UserID, analytics.ParseFilters(r.URL.Query()))
		if err != nil {
			log.Printf("AnalyticsData: build for %s: %v", id.UserID, err)
			http.Error(w, "failed to load analytics", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func signInRedirect(signInURL string, r *http.Request) string {
	u, err := url.Parse(signInURL)
	if err != nil {
		return signInURL
	}
	q := u.Query()
	q.Set("redirect_url", r.URL.RequestURI())
	u.RawQuery = q.Encode()
	return u.String()
}
