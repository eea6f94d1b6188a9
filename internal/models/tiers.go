package models

// TierName identifies a subscription tier.
type TierName string

const (
	TierFree     TierName = "Free"
	TierBasic    TierName = "Basic"
	TierStandard TierName = "Standard"
	TierPremium  TierName = "Premium"
)

// Tier describes the limits and permissions granted by a subscription tier.
type Tier struct {
	Name                TierName `json:"name"`
	PriceInCents        int      `json:"price_in_cents"`
	MaxNumberOfProducts int      `json:"max_number_of_products"`
	MaxNumberOfVisits   int      `json:"max_number_of_visits"`
	CanAccessAnalytics  bool     `json:"can_access_analytics"`
	CanCustomizeBanner  bool     `json:"can_customize_banner"`
	CanRemoveBranding   bool     `json:"can_remove_branding"`
	StripePriceID       string   `json:"-"`
}

// Tiers is the tier table keyed by name.
type Tiers map[TierName]Tier

// PaidTierNames lists the tiers that can be purchased, cheapest first.
var PaidTierNames = []TierName{TierBasic, TierStandard, TierPremium}

// DefaultTiers returns the tier table without Stripe price ids.
func DefaultTiers() Tiers {
	return Tiers{
		TierFree: {
			Name:                TierFree,
			PriceInCents:        0,
			MaxNumberOfProducts: 1,
			MaxNumberOfVisits:   5000,
		},
		TierBasic: {
			Name:                TierBasic,
			PriceInCents:        1900,
			MaxNumberOfProducts: 5,
			MaxNumberOfVisits:   10000,
			CanAccessAnalytics:  true,
			CanRemoveBranding:   true,
		},
		TierStandard: {
			Name:                TierStandard,
			PriceInCents:        4900,
			MaxNumberOfProducts: 30,
			MaxNumberOfVisits:   100000,
			CanAccessAnalytics:  true,
			CanCustomizeBanner:  true,
			CanRemoveBranding:   true,
		},
		TierPremium: {
			Name:                TierPremium,
			PriceInCents:        9900,
			MaxNumberOfProducts: 50,
			MaxNumberOfVisits:   1000000,
			CanAccessAnalytics:  true,
			CanCustomizeBanner:  true,
			CanRemoveBranding:   true,
		},
	}
}

// WithPriceIDs returns a copy of the table with the given Stripe prices applied.
func (t Tiers) WithPriceIDs(priceIDs map[TierName]string) Tiers {
	out := make(Tiers, len(t))
	for name, tier := range t {
		if id, ok := priceIDs[name]; ok {
			tier.StripePriceID = id
		}
		out[name] = tier
	}
	return out
}

// Get returns the named tier, falling back to Free for unknown names.
func (t Tiers) Get(name TierName) Tier {
	if tier, ok := t[name]; ok {
		return tier
	}
	return t[TierFree]
}

// Paid returns the named tier only when it can be purchased.
func (t Tiers) Paid(name TierName) (Tier, bool) {
	for _, paid := range PaidTierNames {
		if paid == name {
			tier, ok := t[name]
			return tier, ok && tier.StripePriceID != ""
		}
	}
	return Tier{}, false
}

// ByPriceID resolves the tier billed with the given Stripe price.
func (t Tiers) ByPriceID(priceID string) (Tier, bool) {
	if priceID == "" {
		return Tier{}, false
	}
	for _, tier := range t {
		if tier.StripePriceID == priceID {
			return tier, true
		}
	}
	return Tier{}, false
}
