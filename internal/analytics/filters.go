package analytics

import (
	"net/url"
	"sort"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/PortNumber53/ppp-dashboard/backend/internal/models"
)

// Query parameters understood by the analytics page.
const (
	ParamInterval  = "interval"
	ParamTimezone  = "timezone"
	ParamProductID = "productId"

	DefaultTimezone = "UTC"
)

// ChartIntervals lists the selectable intervals in display order.
var ChartIntervals = []models.ChartInterval{
	models.IntervalLast7Days,
	models.IntervalLast30Days,
	models.IntervalLast365Days,
}

// ParseInterval returns the interval with the given key, or the last-7-days
// interval when the key is unknown.
func ParseInterval(key string) models.ChartInterval {
	for _, iv := range ChartIntervals {
		if iv.Key == key {
			return iv
		}
	}
	return models.IntervalLast7Days
}

// ParseTimezone returns name when it is a loadable IANA zone, else UTC.
func ParseTimezone(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "local") {
		return DefaultTimezone
	}
	if _, err := time.LoadLocation(name); err != nil {
		return DefaultTimezone
	}
	return name
}

// Filters is the parsed filter state of one analytics request. Raw keeps the
// query exactly as received so generated links preserve unrelated parameters.
type Filters struct {
	Interval  models.ChartInterval
	Timezone  string
	ProductID string
	Raw       url.Values
}

// ParseFilters reads the filter query parameters.
func ParseFilters(q url.Values) Filters {
	raw := url.Values{}
	for k, v := range q {
		raw[k] = append([]string(nil), v...)
	}
	return Filters{
		Interval:  ParseInterval(q.Get(ParamInterval)),
		Timezone:  ParseTimezone(q.Get(ParamTimezone)),
		ProductID: strings.TrimSpace(q.Get(ParamProductID)),
		Raw:       raw,
	}
}

// CreateURL returns path with current merged with overrides. A nil override
// removes the parameter. Parameters are encoded in key order.
func CreateURL(path string, current url.Values, overrides map[string]*string) string {
	merged := url.Values{}
	for k, v := range current {
		if len(v) > 0 {
			merged.Set(k, v[0])
		}
	}
	for k, v := range overrides {
		if v == nil {
			merged.Del(k)
			continue
		}
		merged.Set(k, *v)
	}
	if len(merged) == 0 {
		return path
	}
	return path + "?" + merged.Encode()
}

// timezoneChoices returns UTC, then the configured zones, then the selected
// zone, without duplicates and skipping zones that cannot be loaded.
func timezoneChoices(configured []string, selected string) []string {
	seen := map[string]bool{DefaultTimezone: true}
	out := []string{DefaultTimezone}

	var extra []string
	for _, tz := range append(append([]string(nil), configured...), selected) {
		tz = ParseTimezone(tz)
		if !seen[tz] {
			seen[tz] = true
			extra = append(extra, tz)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}
