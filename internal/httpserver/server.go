package httpserver

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/PortNumber53/ppp-dashboard/backend/internal/analytics"
	"github.com/PortNumber53/ppp-dashboard/backend/internal/config"
	"github.com/PortNumber53/ppp-dashboard/backend/internal/handlers"
	"github.com/PortNumber53/ppp-dashboard/backend/internal/middleware"
)

// Deps are the collaborators the routes are served by.
type Deps struct {
	Analytics     handlers.AnalyticsBuilder
	Billing       handlers.BillingActions
	Subscriptions handlers.SubscriptionStore
	Sync          handlers.SubscriptionSyncStore
	Verifier      *middleware.TokenVerifier
}

// Server wraps an http.Server with convenience helpers for startup/shutdown.
type Server struct {
	httpServer *http.Server
}

// New constructs an HTTP server using the provided configuration and dependencies.
func New(cfg config.Config, deps Deps) *Server {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Metrics)
	if deps.Verifier != nil {
		router.Use(middleware.Authenticate(deps.Verifier))
	}

	tiers := cfg.Tiers()

	router.Get("/healthz", handlers.Health)
	router.Handle("/metrics", promhttp.Handler())

	if deps.Analytics != nil {
		router.Get(analytics.PagePath, handlers.AnalyticsPage(deps.Analytics, cfg.SignInURL))
		router.Get("/api/analytics", handlers.AnalyticsData(deps.Analytics))
	}

	if deps.Subscriptions != nil {
		router.Get("/api/subscription", handlers.CurrentSubscription(deps.Subscriptions, tiers))
	}

	if deps.Billing != nil {
		router.Route("/api/billing", func(r chi.Router) {
			r.Post("/checkout", handlers.Checkout(deps.Billing))
			r.Post("/cancel", handlers.CancelSubscription(deps.Billing))
			r.Post("/portal", handlers.CustomerPortal(deps.Billing))
		})
	}

	switch {
	case cfg.StripeWebhookSecret == "":
		log.Printf("[server] STRIPE_WEBHOOK_SECRET not set; Stripe webhook route disabled")
	case deps.Sync != nil:
		stripeHandler := handlers.NewStripeHandler(deps.Sync, tiers, cfg.StripeWebhookSecret)
		router.Post("/api/webhooks/stripe", stripeHandler.HandleWebhook())
	}

	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{httpServer: srv}
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
