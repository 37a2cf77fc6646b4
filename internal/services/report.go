package services

import (
	"time"

	"sales-insight/internal/aggregate"
	"sales-insight/internal/churn"
	"sales-insight/internal/diagnostics"
	"sales-insight/internal/models"
	"sales-insight/internal/segment"
	"sales-insight/internal/strategy"
	"sales-insight/internal/timeseries"
)

// Report is the full result of one analysis run. It is rebuilt on every
// request and never stored.
type Report struct {
	RunID       string         `json:"run_id"`
	Source      string         `json:"source"`
	GeneratedAt time.Time      `json:"generated_at"`
	Rows        int            `json:"rows"`
	Columns     []string       `json:"columns"`
	Roles       models.RoleMap `json:"roles"`

	Health   []string             `json:"data_health"`
	Patterns diagnostics.Patterns `json:"patterns"`

	Summary        aggregate.Summary                          `json:"summary"`
	Activity       models.Outcome[aggregate.Activity]         `json:"customer_activity"`
	TopProducts    models.Outcome[[]models.KeyValue]          `json:"top_products"`
	BottomProducts models.Outcome[[]models.KeyValue]          `json:"bottom_products"`
	Monthly        models.Outcome[[]models.MonthPoint]        `json:"monthly"`
	Seasonality    Seasonality                                `json:"seasonality"`
	ProductZones   models.Outcome[[]models.ZoneRecord]        `json:"product_zones"`
	RegionZones    models.Outcome[[]models.ZoneRecord]        `json:"region_zones"`
	ZoneCounts     map[models.Category]int                    `json:"product_zone_counts"`
	Churn          models.Outcome[churn.Model]                `json:"churn"`
	Inactive       models.Outcome[[]churn.InactiveCustomer]   `json:"inactive_customers"`
	Tiers          models.Outcome[segment.TierReport]         `json:"transaction_tiers"`
	CustomerTiers  models.Outcome[segment.TierReport]         `json:"customer_tiers"`
	Clusters       models.Outcome[segment.ClusterReport]      `json:"customer_clusters"`
	Discounts      models.Outcome[diagnostics.DiscountEffect] `json:"discount_effectiveness"`

	KPIs     models.KPIBundle       `json:"kpis"`
	Strategy []string               `json:"strategy"`
	Uplift   []string               `json:"uplift_plan"`
	Board    strategy.DecisionBoard `json:"decision_board"`

	Segments        []SegmentResult `json:"segments"`
	SegmentsSkipped []string        `json:"segments_skipped"`
	Views           Views           `json:"stakeholder_views"`
	Synthesis       []string        `json:"executive_synthesis"`
}

type Seasonality struct {
	Forecast   models.Outcome[timeseries.Forecast] `json:"next_month"`
	Backtest   models.Outcome[timeseries.Backtest] `json:"backtest"`
	Projection models.Outcome[[]models.MonthPoint] `json:"projection"`
}

// ChurnDigest is the compact churn view used for segments and views.
type ChurnDigest struct {
	Status    models.Status `json:"status"`
	Reason    string        `json:"reason,omitempty"`
	Customers int           `json:"customers"`
	AtRisk    int           `json:"at_risk"`
	Precision float64       `json:"precision"`
	Recall    float64       `json:"recall"`
}

func digest(out models.Outcome[churn.Model]) ChurnDigest {
	d := ChurnDigest{Status: out.Status, Reason: out.Reason, Customers: len(out.Value.Records)}
	if out.OK() {
		d.AtRisk = len(out.Value.Flagged)
		d.Precision = out.Value.Precision
		d.Recall = out.Value.Recall
	}
	return d
}
