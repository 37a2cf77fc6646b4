package services

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"sales-insight/internal/models"
	"sales-insight/internal/segment"
)

// Views slices the report for the four audiences of the dashboard.
type Views struct {
	CEO       CEOView       `json:"ceo"`
	SalesHead SalesHeadView `json:"sales_head"`
	Marketing MarketingView `json:"marketing"`
	Ops       OpsView       `json:"ops"`
}

type CEOView struct {
	TotalRevenue float64 `json:"total_revenue"`
	GrowthPct    float64 `json:"growth_pct"`
	AtRisk       int     `json:"customers_at_risk"`
	Issues       int     `json:"data_issues"`
}

type SalesHeadView struct {
	TopProducts []string `json:"top_products"`
	TopRegions  []string `json:"top_regions"`
	Push        []string `json:"push"`
	Leak        []string `json:"leak"`
}

type MarketingView struct {
	Segments          []string `json:"segments"`
	CustomerTiers     []string `json:"customer_tiers"`
	DiscountReading   string   `json:"discount_effectiveness"`
	InactiveCustomers int      `json:"inactive_customers"`
}

type OpsView struct {
	NextMonthForecast *float64            `json:"next_month_forecast"`
	Projection        []models.MonthPoint `json:"projection"`
	ForecastAccuracy  *float64            `json:"forecast_accuracy"`
}

func buildViews(rep *Report) Views {
	var v Views

	v.CEO = CEOView{
		TotalRevenue: rep.KPIs.TotalRevenue,
		GrowthPct:    rep.KPIs.GrowthPct,
		AtRisk:       digest(rep.Churn).AtRisk,
		Issues:       len(rep.Health),
	}

	v.SalesHead = SalesHeadView{
		TopProducts: keys(rep.Summary.TopProducts),
		TopRegions:  keys(rep.Summary.TopRegions),
		Push:        []string{},
		Leak:        []string{},
	}
	for _, z := range rep.Board.Push {
		v.SalesHead.Push = append(v.SalesHead.Push, z.Key)
	}
	for _, z := range rep.Board.Leak {
		v.SalesHead.Leak = append(v.SalesHead.Leak, z.Key)
	}

	v.Marketing = MarketingView{
		Segments:          []string{},
		CustomerTiers:     []string{},
		InactiveCustomers: len(rep.Inactive.Value),
	}
	for _, s := range rep.Segments {
		v.Marketing.Segments = append(v.Marketing.Segments, s.Name)
	}
	if rep.CustomerTiers.OK() {
		for _, tier := range rep.CustomerTiers.Value.Tiers {
			v.Marketing.CustomerTiers = append(v.Marketing.CustomerTiers, tierLine(tier))
		}
	}
	if rep.Discounts.OK() {
		v.Marketing.DiscountReading = rep.Discounts.Value.Reading
	} else {
		v.Marketing.DiscountReading = "unavailable: " + unavailable(rep.Discounts.Status, rep.Discounts.Missing, rep.Discounts.Reason)
	}

	v.Ops = OpsView{
		Projection:       rep.Seasonality.Projection.Value,
		ForecastAccuracy: rep.KPIs.ForecastAccuracy,
	}
	if rep.Seasonality.Forecast.OK() {
		fc := models.Round(rep.Seasonality.Forecast.Value.Value, 2)
		v.Ops.NextMonthForecast = &fc
	}
	if v.Ops.Projection == nil {
		v.Ops.Projection = []models.MonthPoint{}
	}
	return v
}

// synthesize writes one line for the whole dataset followed by one per
// analysed segment.
func synthesize(rep *Report) []string {
	lines := []string{
		fmt.Sprintf("Overall: Revenue %s, Risk %d customers at risk.", Money(rep.KPIs.TotalRevenue), digest(rep.Churn).AtRisk),
	}
	for _, s := range rep.Segments {
		lines = append(lines, fmt.Sprintf("%s: Revenue %s, Risk %d customers at risk.",
			s.Name, Money(s.Summary.TotalRevenue.Value), s.Churn.AtRisk))
	}
	return lines
}

func keys(out models.Outcome[[]models.KeyValue]) []string {
	ks := []string{}
	for _, kv := range out.Value {
		ks = append(ks, kv.Key)
	}
	return ks
}

func tierLine(t segment.TierSummary) string {
	return fmt.Sprintf("%s: %d customers, revenue %s", t.Tier, t.Count, Money(t.Revenue))
}

// unavailable explains a non-ok outcome in one phrase.
func unavailable(status models.Status, missing []models.Role, reason string) string {
	if status == models.StatusMissingRole && len(missing) > 0 {
		names := make([]string, len(missing))
		for i, r := range missing {
			names[i] = string(r)
		}
		return "missing " + strings.Join(names, ", ") + " column"
	}
	return reason
}

// Money formats v with two decimals and comma thousands separators.
func Money(v float64) string {
	s := decimal.NewFromFloat(v).StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}
