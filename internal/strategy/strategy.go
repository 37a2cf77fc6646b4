// Package strategy turns analysis results into ordered recommendations.
package strategy

import (
	"fmt"
	"slices"
	"strings"

	"sales-insight/internal/models"
)

type Options struct {
	TopCustomerShare      float64 `yaml:"top_customer_share"`
	TopProductsCount      int     `yaml:"top_products_count"`
	TopProductsShare      float64 `yaml:"top_products_share"`
	TopRegionShare        float64 `yaml:"top_region_share"`
	ChurnCount            int     `yaml:"churn_count"`
	MinHighValueCustomers int     `yaml:"min_high_value_customers"`
	PushLimit             int     `yaml:"push_limit"`
}

func DefaultOptions() Options {
	return Options{
		TopCustomerShare:      0.40,
		TopProductsCount:      3,
		TopProductsShare:      0.50,
		TopRegionShare:        0.35,
		ChurnCount:            10,
		MinHighValueCustomers: 5,
		PushLimit:             5,
	}
}

const (
	MsgRetention     = "High dependency on few customers. Introduce retention and loyalty offers."
	MsgConcentration = "Focus marketing on top 3 products contributing majority revenue."
	MsgBreadth       = "Broaden product promotion. Test bundles and upsells to lift mid-tier products."
	MsgRegional      = "Region-heavy revenue. Launch localized campaigns and logistics improvements in top market."
	MsgDeclining     = "Sales trend is declining. Immediate promotional campaign needed."
	MsgWinBack       = "High churn risk detected. Start win-back offers for inactive customers."
	MsgExpandMidTier = "Revenue concentration risk. Expand mid-tier customer base."
)

// Inputs carries the figures the rules read. Nil rankings and nil pointers
// mean the figure was unavailable, and the matching rules stay silent.
type Inputs struct {
	TotalRevenue       float64
	TopCustomers       []models.KeyValue
	TopProducts        []models.KeyValue
	TopRegions         []models.KeyValue
	NextMonthForecast  *float64
	ChurnCount         *int
	HighValueCustomers *int
}

// Generate evaluates the rules in a fixed order and returns the message of
// every rule that fires.
func Generate(in Inputs, opts Options) []string {
	out := []string{}
	total := in.TotalRevenue

	if total > 0 && len(in.TopCustomers) > 0 && in.TopCustomers[0].Value/total > opts.TopCustomerShare {
		out = append(out, MsgRetention)
	}
	if total > 0 && len(in.TopProducts) > 0 {
		var top float64
		for _, p := range in.TopProducts[:min(opts.TopProductsCount, len(in.TopProducts))] {
			top += p.Value
		}
		if top/total >= opts.TopProductsShare {
			out = append(out, MsgConcentration)
		} else {
			out = append(out, MsgBreadth)
		}
	}
	if total > 0 && len(in.TopRegions) > 0 && in.TopRegions[0].Value/total > opts.TopRegionShare {
		out = append(out, MsgRegional)
	}

	if in.NextMonthForecast != nil && *in.NextMonthForecast < 0 {
		out = append(out, MsgDeclining)
	}
	if in.ChurnCount != nil && *in.ChurnCount > opts.ChurnCount {
		out = append(out, MsgWinBack)
	}
	if in.HighValueCustomers != nil && *in.HighValueCustomers < opts.MinHighValueCustomers {
		out = append(out, MsgExpandMidTier)
	}
	return out
}

// Uplift returns the improvement plan for the weakest products. It is empty
// when there are none.
func Uplift(bottom []models.KeyValue) []string {
	if len(bottom) == 0 {
		return []string{}
	}
	names := make([]string, 0, 3)
	for _, b := range bottom[:min(3, len(bottom))] {
		names = append(names, b.Key)
	}
	return []string{
		fmt.Sprintf("Bundle %s with star products to increase visibility.", strings.Join(names, ", ")),
		"Improve pricing using targeted discounts instead of flat offers.",
		"Run region-specific campaigns where demand is growing.",
		"Fix stock-outs and lead-times; ensure availability during peaks.",
		"Cross-sell with top categories on checkout and emails.",
	}
}

// DecisionBoard splits classified products into those worth pushing and
// those leaking revenue.
type DecisionBoard struct {
	Push         []models.ZoneRecord `json:"push"`
	Leak         []models.ZoneRecord `json:"leak"`
	PushSharePct float64             `json:"push_share_pct"`
	LeakSharePct float64             `json:"leak_share_pct"`
	NextActions  []string            `json:"next_actions"`
}

// Board builds the decision board. Stars and question marks are pushed, dead
// products leak. Shares are percentages of total rounded to one decimal.
// followUps are appended to the board's next actions.
func Board(zones []models.ZoneRecord, total float64, opts Options, followUps ...string) DecisionBoard {
	b := DecisionBoard{Push: []models.ZoneRecord{}, Leak: []models.ZoneRecord{}}
	var pushRev, leakRev float64
	for _, z := range zones {
		switch z.Category {
		case models.CategoryStar, models.CategoryQuestionMark:
			b.Push = append(b.Push, z)
			pushRev += z.Revenue
		case models.CategoryDead:
			b.Leak = append(b.Leak, z)
			leakRev += z.Revenue
		}
	}
	byRevenue := func(a, b models.ZoneRecord) int {
		switch {
		case a.Revenue > b.Revenue:
			return -1
		case a.Revenue < b.Revenue:
			return 1
		default:
			return 0
		}
	}
	slices.SortStableFunc(b.Push, byRevenue)
	slices.SortStableFunc(b.Leak, byRevenue)

	if total > 0 {
		b.PushSharePct = models.Round(pushRev/total*100, 1)
		b.LeakSharePct = models.Round(leakRev/total*100, 1)
	}

	b.NextActions = []string{}
	if len(b.Push) > 0 {
		names := make([]string, 0, opts.PushLimit)
		for _, z := range b.Push[:min(opts.PushLimit, len(b.Push))] {
			names = append(names, z.Key)
		}
		b.NextActions = append(b.NextActions, "Push "+strings.Join(names, ", "))
	}
	if len(b.Leak) > 0 {
		b.NextActions = append(b.NextActions, "Bundle or exit dead products")
	}
	b.NextActions = append(b.NextActions, followUps...)
	return b
}
