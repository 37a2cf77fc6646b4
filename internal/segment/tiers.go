// Package segment splits transactions and customers into value tiers and
// revenue clusters.
package segment

import (
	"math"
	"slices"

	"sales-insight/internal/aggregate"
	"sales-insight/internal/models"
)

type Tier string

const (
	TierHigh Tier = "High Value"
	TierMid  Tier = "Mid Value"
	TierLow  Tier = "Low Value"
)

// Tiers lists tiers from most to least valuable.
var Tiers = []Tier{TierHigh, TierMid, TierLow}

type Options struct {
	HighQuantile float64 `yaml:"high_quantile"`
	MidQuantile  float64 `yaml:"mid_quantile"`
	Clusters     int     `yaml:"clusters"`
	// HighValueShare marks a customer as high value for strategy purposes
	// when their revenue is at least this share of the total.
	HighValueShare float64 `yaml:"high_value_share"`
	MinSliceRows   int     `yaml:"min_slice_rows"`
	MaxSlices      int     `yaml:"max_slices"`
}

func DefaultOptions() Options {
	return Options{
		HighQuantile:   0.8,
		MidQuantile:    0.4,
		Clusters:       3,
		HighValueShare: 0.05,
		MinSliceRows:   20,
		MaxSlices:      6,
	}
}

// Quantile returns the q-th quantile of values using linear interpolation
// between closest ranks. values need not be sorted.
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	s := slices.Clone(values)
	slices.Sort(s)
	q = math.Min(math.Max(q, 0), 1)
	pos := q * float64(len(s)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	return s[lo] + (s[hi]-s[lo])*(pos-float64(lo))
}

// Classify places v against the high and mid cut points.
func Classify(v, highCut, midCut float64) Tier {
	switch {
	case v >= highCut:
		return TierHigh
	case v >= midCut:
		return TierMid
	default:
		return TierLow
	}
}

type TierSummary struct {
	Tier    Tier     `json:"tier"`
	Count   int      `json:"count"`
	Revenue float64  `json:"revenue"`
	Members []string `json:"members,omitempty"`
}

type TierReport struct {
	HighCut float64       `json:"high_cut"`
	MidCut  float64       `json:"mid_cut"`
	Tiers   []TierSummary `json:"tiers"`
	// HighValueCount is only set for customer tiers.
	HighValueCount int `json:"high_value_count,omitempty"`
}

func summarize(entries []models.KeyValue, highCut, midCut float64, withMembers bool) []TierSummary {
	byTier := map[Tier]*TierSummary{}
	out := make([]TierSummary, len(Tiers))
	for i, tier := range Tiers {
		out[i] = TierSummary{Tier: tier}
		byTier[tier] = &out[i]
	}
	for _, e := range entries {
		s := byTier[Classify(e.Value, highCut, midCut)]
		s.Count++
		s.Revenue += e.Value
		if withMembers {
			s.Members = append(s.Members, e.Key)
		}
	}
	return out
}

// TransactionTiers tiers individual rows by their revenue. Cut points are
// computed from this table alone.
func TransactionTiers(t *models.Table, roles models.RoleMap, opts Options) models.Outcome[TierReport] {
	if out, ok := models.Require[TierReport](roles, models.RoleRevenue); !ok {
		return out
	}
	if t.Len() == 0 {
		return models.Insufficient("no transactions", TierReport{})
	}
	values := rowRevenues(t, roles)
	entries := make([]models.KeyValue, len(values))
	for i, v := range values {
		entries[i] = models.KeyValue{Value: v}
	}
	rep := TierReport{
		HighCut: Quantile(values, opts.HighQuantile),
		MidCut:  Quantile(values, opts.MidQuantile),
	}
	rep.Tiers = summarize(entries, rep.HighCut, rep.MidCut, false)
	return models.Available(rep)
}

// CustomerTiers tiers customers by total revenue.
func CustomerTiers(t *models.Table, roles models.RoleMap, opts Options) models.Outcome[TierReport] {
	ranked := aggregate.ByDimension(t, roles, models.RoleCustomer, models.RoleRevenue)
	if !ranked.OK() {
		return models.Outcome[TierReport]{Status: ranked.Status, Missing: ranked.Missing, Reason: ranked.Reason}
	}
	if len(ranked.Value) == 0 {
		return models.Insufficient("no customers", TierReport{})
	}
	values := make([]float64, len(ranked.Value))
	var total float64
	for i, e := range ranked.Value {
		values[i] = e.Value
		total += e.Value
	}
	rep := TierReport{
		HighCut: Quantile(values, opts.HighQuantile),
		MidCut:  Quantile(values, opts.MidQuantile),
	}
	rep.Tiers = summarize(ranked.Value, rep.HighCut, rep.MidCut, true)
	if total > 0 {
		for _, v := range values {
			if v >= opts.HighValueShare*total {
				rep.HighValueCount++
			}
		}
	}
	return models.Available(rep)
}

func rowRevenues(t *models.Table, roles models.RoleMap) []float64 {
	col, _ := roles.Column(models.RoleRevenue)
	out := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = models.Number(r[col])
	}
	return out
}

// Slice is a named subset of the table analysed on its own.
type Slice struct {
	Name  string        `json:"name"`
	Table *models.Table `json:"-"`
}

// Slices builds the value-tier slices followed by up to MaxSlices region and
// product slices. Each slice owns a copy of its rows.
func Slices(t *models.Table, roles models.RoleMap, opts Options) []Slice {
	var out []Slice
	if col, ok := roles.Column(models.RoleRevenue); ok && t.Len() > 0 {
		values := rowRevenues(t, roles)
		high, mid := Quantile(values, opts.HighQuantile), Quantile(values, opts.MidQuantile)
		for _, tier := range Tiers {
			out = append(out, Slice{
				Name: string(tier),
				Table: t.Filter(func(r models.Row) bool {
					return Classify(models.Number(r[col]), high, mid) == tier
				}),
			})
		}
	}
	for _, dim := range []struct {
		role  models.Role
		label string
	}{{models.RoleRegion, "Region"}, {models.RoleProduct, "Product"}} {
		col, ok := roles.Column(dim.role)
		if !ok {
			continue
		}
		values := t.Distinct(col)
		if len(values) > opts.MaxSlices {
			values = values[:opts.MaxSlices]
		}
		for _, v := range values {
			out = append(out, Slice{
				Name:  dim.label + ": " + v,
				Table: t.Filter(func(r models.Row) bool { return r[col] == v }),
			})
		}
	}
	return out
}
