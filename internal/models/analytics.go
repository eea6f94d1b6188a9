package models

// BucketUnit is the width of one point on the visitors-per-day chart.
type BucketUnit string

const (
	BucketDay   BucketUnit = "day"
	BucketMonth BucketUnit = "month"
)

// ChartInterval is a selectable reporting window for the analytics charts.
type ChartInterval struct {
	Key      string     `json:"key"`
	Label    string     `json:"label"`
	Days     int        `json:"days"`
	Bucket   BucketUnit `json:"bucket"`
	DateForm string     `json:"-"`
}

// Chart interval presets, in display order.
var (
	IntervalLast7Days = ChartInterval{
		Key: "last7Days", Label: "Last 7 Days", Days: 7, Bucket: BucketDay, DateForm: "1/2/06",
	}
	IntervalLast30Days = ChartInterval{
		Key: "last30Days", Label: "Last 30 Days", Days: 30, Bucket: BucketDay, DateForm: "1/2/06",
	}
	IntervalLast365Days = ChartInterval{
		Key: "last365Days", Label: "Last 365 Days", Days: 365, Bucket: BucketMonth, DateForm: "Jan 06",
	}
)

// ChartQuery scopes an aggregation query to one user's products.
type ChartQuery struct {
	UserID    string
	ProductID string // empty means all of the user's products
	Timezone  string
	Interval  ChartInterval
}

type ViewsByDayPoint struct {
	Date  string `json:"date"`
	Views int    `json:"views"`
}

type ViewsByPPPPoint struct {
	PPPName string `json:"ppp_name"`
	Views   int    `json:"views"`
}

type ViewsByCountryPoint struct {
	CountryCode string `json:"country_code"`
	CountryName string `json:"country_name"`
	Views       int    `json:"views"`
}
