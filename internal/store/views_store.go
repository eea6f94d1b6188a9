package store

import (
	"context"
	"fmt"
	"time"

	"github.com/PortNumber53/ppp-dashboard/backend/internal/models"
)

// viewFilter restricts product_views (pv) joined with products (p) to one
// user, an optional product and the reporting window. It expects the
// positional args produced by windowArgs.
const viewFilter = `
	p.clerk_user_id = $1
	AND ($2 = '' OR p.id::text = $2)
	AND pv.visited_at AT TIME ZONE $3 >= date_trunc($4, ((now() AT TIME ZONE $3)::date - $5::int)::timestamp)`

func windowArgs(q models.ChartQuery) []any {
	tz := q.Timezone
	if tz == "" {
		tz = "UTC"
	}
	return []any{q.UserID, q.ProductID, tz, string(q.Interval.Bucket), q.Interval.Days}
}

// ViewsByDay returns one point per bucket in the window, including empty buckets.
func (s *Store) ViewsByDay(ctx context.Context, q models.ChartQuery) ([]models.ViewsByDayPoint, error) {
	query := `
WITH bounds AS (
	SELECT
		date_trunc($4, ((now() AT TIME ZONE $3)::date - $5::int)::timestamp) AS start_at,
		date_trunc($4, (now() AT TIME ZONE $3)::date::timestamp) AS end_at
), series AS (
	SELECT generate_series(b.start_at, b.end_at, ('1 ' || $4)::interval) AS bucket
	FROM bounds b
), views AS (
	SELECT date_trunc($4, pv.visited_at AT TIME ZONE $3) AS bucket, COUNT(*) AS views
	FROM product_views pv
	JOIN products p ON p.id = pv.product_id
	WHERE` + viewFilter + `
	GROUP BY 1
)
SELECT s.bucket, COALESCE(v.views, 0)
FROM series s
LEFT JOIN views v ON v.bucket = s.bucket
ORDER BY s.bucket
`

	rows, err := s.db.QueryContext(ctx, query, windowArgs(q)...)
	if err != nil {
		return nil, fmt.Errorf("store: views by day: %w", err)
	}
	defer rows.Close()

	layout := q.Interval.DateForm
	if layout == "" {
		layout = models.IntervalLast7Days.DateForm
	}

	var points []models.ViewsByDayPoint
	for rows.Next() {
		var (
			bucket time.Time
			views  int
		)
		if err := rows.Scan(&bucket, &views); err != nil {
			return nil, fmt.Errorf("store: scan views by day: %w", err)
		}
		points = append(points, models.ViewsByDayPoint{Date: bucket.Format(layout), Views: views})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate views by day: %w", err)
	}
	return points, nil
}

// ViewsByPPP returns visits per country group. Every group is listed.
func (s *Store) ViewsByPPP(ctx context.Context, q models.ChartQuery) ([]models.ViewsByPPPPoint, error) {
	query := `
SELECT cg.name, COUNT(v.id) AS views
FROM country_groups cg
LEFT JOIN countries c ON c.country_group_id = cg.id
LEFT JOIN (
	SELECT pv.id, pv.country_id
	FROM product_views pv
	JOIN products p ON p.id = pv.product_id
	WHERE` + viewFilter + `
) v ON v.country_id = c.id
GROUP BY cg.name
ORDER BY cg.name
`

	rows, err := s.db.QueryContext(ctx, query, windowArgs(q)...)
	if err != nil {
		return nil, fmt.Errorf("store: views by ppp: %w", err)
	}
	defer rows.Close()

	var points []models.ViewsByPPPPoint
	for rows.Next() {
		var p models.ViewsByPPPPoint
		if err := rows.Scan(&p.PPPName, &p.Views); err != nil {
			return nil, fmt.Errorf("store: scan views by ppp: %w", err)
		}
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate views by ppp: %w", err)
	}
	return points, nil
}

// ViewsByCountry returns visits per country, busiest first. Countries without
// visits are omitted.
func (s *Store) ViewsByCountry(ctx context.Context, q models.ChartQuery) ([]models.ViewsByCountryPoint, error) {
	query := `
SELECT c.code, c.name, COUNT(*) AS views
FROM product_views pv
JOIN products p ON p.id = pv.product_id
JOIN countries c ON c.id = pv.country_id
WHERE` + viewFilter + `
GROUP BY c.code, c.name
ORDER BY views DESC, c.name
`

	rows, err := s.db.QueryContext(ctx, query, windowArgs(q)...)
	if err != nil {
		return nil, fmt.Errorf("store: views by country: %w", err)
	}
	defer rows.Close()

	var points []models.ViewsByCountryPoint
	for rows.Next() {
		var p models.ViewsByCountryPoint
		if err := rows.Scan(&p.CountryCode, &p.CountryName, &p.Views); err != nil {
			return nil, fmt.Errorf("store: scan views by country: %w", err)
		}
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate views by country: %w", err)
	}
	return points, nil
}
