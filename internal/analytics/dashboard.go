// Package analytics assembles the analytics dashboard: filter controls built
// from query parameters and the three visitor charts.
package analytics

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/PortNumber53/ppp-dashboard/backend/internal/models"
)

// PagePath is the dashboard route filter links point at.
const PagePath = "/dashboard/analytics"

const (
	allProductsLabel = "All Products"
	noAccessText     = "You do not have permission to access analytics"
)

// DataSource provides the user's products and the chart aggregations.
type DataSource interface {
	ListProducts(ctx context.Context, userID string) ([]models.Product, error)
	ViewsByDay(ctx context.Context, q models.ChartQuery) ([]models.ViewsByDayPoint, error)
	ViewsByPPP(ctx context.Context, q models.ChartQuery) ([]models.ViewsByPPPPoint, error)
	ViewsByCountry(ctx context.Context, q models.ChartQuery) ([]models.ViewsByCountryPoint, error)
}

// PermissionChecker decides whether a user may see analytics.
type PermissionChecker interface {
	CanAccessAnalytics(ctx context.Context, userID string) (bool, error)
}

// Option is one entry of a filter dropdown.
type Option struct {
	Label    string `json:"label"`
	URL      string `json:"url"`
	Selected bool   `json:"selected"`
}

// Dropdown is a filter control: the trigger label and its link options.
type Dropdown struct {
	Label   string   `json:"label"`
	Options []Option `json:"options"`
}

// Charts holds the three chart datasets.
type Charts struct {
	ViewsByDay     []models.ViewsByDayPoint     `json:"views_by_day"`
	ViewsByPPP     []models.ViewsByPPPPoint     `json:"views_by_ppp"`
	ViewsByCountry []models.ViewsByCountryPoint `json:"views_by_country"`
}

// Page is the view model of the analytics dashboard.
type Page struct {
	CanAccessAnalytics bool   `json:"can_access_analytics"`
	FallbackText       string `json:"fallback_text,omitempty"`

	Interval  models.ChartInterval `json:"interval"`
	Timezone  string               `json:"timezone"`
	ProductID string               `json:"product_id,omitempty"`

	Intervals *Dropdown `json:"intervals,omitempty"`
	Products  *Dropdown `json:"products,omitempty"`
	Timezones *Dropdown `json:"timezones,omitempty"`
	Charts    *Charts   `json:"charts,omitempty"`
}

// Dashboard builds analytics pages.
type Dashboard struct {
	data      DataSource
	perms     PermissionChecker
	timezones []string
}

// NewDashboard creates a Dashboard. timezones are offered in the timezone
// picker in addition to UTC.
func NewDashboard(data DataSource, perms PermissionChecker, timezones []string) *Dashboard {
	return &Dashboard{data: data, perms: perms, timezones: timezones}
}

// Build assembles the page for userID. Without analytics access only the
// fallback text is returned and no analytics data is queried.
func (d *Dashboard) Build(ctx context.Context, userID string, f Filters) (*Page, error) {
	allowed, err := d.perms.CanAccessAnalytics(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("analytics: check permission: %w", err)
	}

	page := &Page{
		CanAccessAnalytics: allowed,
		Interval:           f.Interval,
		Timezone:           f.Timezone,
		ProductID:          f.ProductID,
	}
	if !allowed {
		page.FallbackText = noAccessText
		return page, nil
	}

	q := models.ChartQuery{
		UserID:    userID,
		ProductID: f.ProductID,
		Timezone:  f.Timezone,
		Interval:  f.Interval,
	}

	var (
		products []models.Product
		charts   Charts
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = d.data.ListProducts(gctx, userID)
		if err != nil {
			return fmt.Errorf("analytics: list products: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		charts.ViewsByDay, err = d.data.ViewsByDay(gctx, q)
		if err != nil {
			return fmt.Errorf("analytics: views by day: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		charts.ViewsByPPP, err = d.data.ViewsByPPP(gctx, q)
		if err != nil {
			return fmt.Errorf("analytics: views by ppp: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		charts.ViewsByCountry, err = d.data.ViewsByCountry(gctx, q)
		if err != nil {
			return fmt.Errorf("analytics: views by country: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	page.Charts = &charts
	page.Intervals = intervalDropdown(f)
	page.Products = productDropdown(f, products)
	page.Timezones = timezoneDropdown(f, d.timezones)
	return page, nil
}

func intervalDropdown(f Filters) *Dropdown {
	dd := &Dropdown{Label: f.Interval.Label}
	for _, iv := range ChartIntervals {
		key := iv.Key
		dd.Options = append(dd.Options, Option{
			Label:    iv.Label,
			URL:      CreateURL(PagePath, f.Raw, map[string]*string{ParamInterval: &key}),
			Selected: iv.Key == f.Interval.Key,
		})
	}
	return dd
}

func productDropdown(f Filters, products []models.Product) *Dropdown {
	dd := &Dropdown{Label: allProductsLabel}
	dd.Options = append(dd.Options, Option{
		Label:    allProductsLabel,
		URL:      CreateURL(PagePath, f.Raw, map[string]*string{ParamProductID: nil}),
		Selected: f.ProductID == "",
	})
	for _, p := range products {
		id := p.ID
		selected := p.ID == f.ProductID
		if selected {
			dd.Label = p.Name
		}
		dd.Options = append(dd.Options, Option{
			Label:    p.Name,
			URL:      CreateURL(PagePath, f.Raw, map[string]*string{ParamProductID: &id}),
			Selected: selected,
		})
	}
	return dd
}

func timezoneDropdown(f Filters, configured []string) *Dropdown {
	dd := &Dropdown{Label: f.Timezone}
	for _, tz := range timezoneChoices(configured, f.Timezone) {
		dd.Options = append(dd.Options, Option{
			Label:    tz,
			URL:      CreateURL(PagePath, f.Raw, map[string]*string{ParamTimezone: &tz}),
			Selected: tz == f.Timezone,
		})
	}
	return dd
}
