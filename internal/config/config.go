package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/PortNumber53/ppp-dashboard/backend/internal/models"
)

// Config captures runtime configuration values used by the backend service.
type Config struct {
	// ServerAddress is the host:port pair the HTTP server listens on. Defaults to ":18111".
	ServerAddress string

	// DatabaseURL is the Postgres DSN used by database/sql.
	DatabaseURL string

	// ServerURL is the public base URL of the dashboard (no trailing slash).
	// Stripe return, success and cancel URLs are built from it.
	ServerURL string

	// SignInURL is where anonymous visitors of dashboard pages are sent.
	SignInURL string

	// StripeSecretKey authenticates calls to the Stripe API.
	StripeSecretKey string

	// StripeWebhookSecret verifies Stripe-Signature headers. The webhook route
	// is not registered when empty.
	StripeWebhookSecret string

	// PriceIDs maps each paid tier to its Stripe price.
	PriceIDs map[models.TierName]string

	// AuthSecret is the HMAC secret used to verify session tokens issued by the
	// authentication provider.
	AuthSecret string

	// Timezones lists the extra zones offered in the analytics timezone picker.
	Timezones []string
}

const (
	defaultServerAddress = ":18111"
	defaultServerURL     = "http://localhost:3000"
	envServerAddress     = "BACKEND_ADDR"
	envDatabaseURL       = "DATABASE_URL"
	envServerURL         = "SERVER_URL"
	envSignInURL         = "SIGN_IN_URL"
	envStripeSecretKey   = "STRIPE_SECRET_KEY"
	envStripeWebhook     = "STRIPE_WEBHOOK_SECRET"
	envBasicPriceID      = "STRIPE_BASIC_PLAN_STRIPE_PRICE_ID"
	envStandardPriceID   = "STRIPE_STANDARD_PLAN_STRIPE_PRICE_ID"
	envPremiumPriceID    = "STRIPE_PREMIUM_PLAN_STRIPE_PRICE_ID"
	envAuthSecret        = "AUTH_JWT_SECRET"
	envTimezones         = "ANALYTICS_TIMEZONES"
)

var priceIDEnv = []struct {
	tier models.TierName
	env  string
}{
	{models.TierBasic, envBasicPriceID},
	{models.TierStandard, envStandardPriceID},
	{models.TierPremium, envPremiumPriceID},
}

// Load reads configuration from environment variables, applies defaults, and returns
// a Config structure. Required values return an error when missing.
func Load() (Config, error) {
	cfg := Config{
		ServerAddress:       firstNonEmpty(os.Getenv(envServerAddress), defaultServerAddress),
		DatabaseURL:         strings.TrimSpace(os.Getenv(envDatabaseURL)),
		ServerURL:           strings.TrimRight(firstNonEmpty(os.Getenv(envServerURL), defaultServerURL), "/"),
		StripeSecretKey:     strings.TrimSpace(os.Getenv(envStripeSecretKey)),
		StripeWebhookSecret: strings.TrimSpace(os.Getenv(envStripeWebhook)),
		AuthSecret:          os.Getenv(envAuthSecret),
		Timezones:           splitList(os.Getenv(envTimezones)),
		PriceIDs:            make(map[models.TierName]string, len(priceIDEnv)),
	}
	cfg.SignInURL = firstNonEmpty(os.Getenv(envSignInURL), cfg.ServerURL+"/sign-in")

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("%s is required", envDatabaseURL)
	}
	if cfg.StripeSecretKey == "" {
		return Config{}, fmt.Errorf("%s is required", envStripeSecretKey)
	}
	if cfg.AuthSecret == "" {
		return Config{}, fmt.Errorf("%s is required", envAuthSecret)
	}

	for _, p := range priceIDEnv {
		value := strings.TrimSpace(os.Getenv(p.env))
		if value == "" {
			return Config{}, fmt.Errorf("%s is required", p.env)
		}
		cfg.PriceIDs[p.tier] = value
	}

	return cfg, nil
}

// Tiers returns the subscription tier table with the configured Stripe prices applied.
func (c Config) Tiers() models.Tiers {
	return models.DefaultTiers().WithPriceIDs(c.PriceIDs)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// LoadDatabaseURL reads only the database DSN, for tools that do not serve HTTP.
func LoadDatabaseURL() (string, error) {
	dsn := strings.TrimSpace(os.Getenv(envDatabaseURL))
	if dsn == "" {
		return "", fmt.Errorf("%s is required", envDatabaseURL)
	}
	return dsn, nil
}
