package models

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// KeyValue is one ranked entry of an aggregate summary.
type KeyValue struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// MonthPoint is one month-start labelled bucket of a monthly series.
type MonthPoint struct {
	Month   time.Time `json:"month"`
	Revenue float64   `json:"revenue"`
}

// GroupSeries is a monthly series for one dimension value.
type GroupSeries struct {
	Key    string       `json:"key"`
	Points []MonthPoint `json:"points"`
}

type Category string

const (
	CategoryStar         Category = "Star"
	CategoryCashCow      Category = "Cash Cow"
	CategoryQuestionMark Category = "Question Mark"
	CategoryDead         Category = "Dead"
)

type ZoneRecord struct {
	Key        string   `json:"key"`
	Revenue    float64  `json:"revenue"`
	Percentile float64  `json:"revenue_percentile"`
	Growth     float64  `json:"growth"`
	Margin     *float64 `json:"margin,omitempty"`
	Category   Category `json:"category"`
}

type ChurnRecord struct {
	Customer     string    `json:"customer"`
	LastPurchase time.Time `json:"last_purchase"`
	RecencyDays  int       `json:"recency_days"`
	Churned      bool      `json:"churn_label"`
	Probability  float64   `json:"probability"`
	Flagged      bool      `json:"flagged"`
}

// KPIBundle is a read-only roll-up of a single analysis run. Nil pointers
// mean the figure could not be computed for this dataset.
type KPIBundle struct {
	TotalRevenue      float64  `json:"total_revenue"`
	GrowthPct         float64  `json:"growth_pct"`
	Top5ProductShare  float64  `json:"top5_products_share"`
	Top5CustomerShare float64  `json:"top5_customers_share"`
	ChurnRate         *float64 `json:"churn_rate"`
	ForecastAccuracy  *float64 `json:"forecast_accuracy"`
}

// Round rounds half away from zero to the given number of decimal places.
// Non-finite inputs are returned unchanged.
func Round(x float64, places int32) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	return decimal.NewFromFloat(x).Round(places).InexactFloat64()
}
