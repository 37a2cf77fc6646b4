// Package aggregate ranks revenue by product, customer and region.
package aggregate

import (
	"slices"

	"sales-insight/internal/models"
)

// Options controls summary sizes.
type Options struct {
	TopN int `yaml:"top_n"`
	// MinGroupsForShare is the number of distinct keys below which a top-N
	// share is reported as 0 instead of being extrapolated.
	MinGroupsForShare int `yaml:"min_groups_for_share"`
}

func DefaultOptions() Options {
	return Options{TopN: 5, MinGroupsForShare: 5}
}

// Summary is the headline aggregate view of a dataset.
type Summary struct {
	TotalRevenue models.Outcome[float64]           `json:"total_revenue"`
	TopProducts  models.Outcome[[]models.KeyValue] `json:"top_products"`
	TopCustomers models.Outcome[[]models.KeyValue] `json:"top_customers"`
	TopRegions   models.Outcome[[]models.KeyValue] `json:"top_regions"`
}

// Activity counts customers by purchase frequency.
type Activity struct {
	Repeat  int `json:"repeat_count"`
	OneTime int `json:"one_time_count"`
}

// ByDimension sums value per distinct dimension value and ranks the result
// descending. Rows with an empty dimension are dropped; ties keep the order
// in which keys first appear in the table.
func ByDimension(t *models.Table, roles models.RoleMap, dim, value models.Role) models.Outcome[[]models.KeyValue] {
	if out, ok := models.Require[[]models.KeyValue](roles, dim, value); !ok {
		return out
	}
	dimCol, _ := roles.Column(dim)
	valCol, _ := roles.Column(value)

	index := make(map[string]int)
	var entries []models.KeyValue
	for _, r := range t.Rows {
		key := r[dimCol]
		if key == "" {
			continue
		}
		i, ok := index[key]
		if !ok {
			i = len(entries)
			index[key] = i
			entries = append(entries, models.KeyValue{Key: key})
		}
		entries[i].Value += models.Number(r[valCol])
	}

	slices.SortStableFunc(entries, func(a, b models.KeyValue) int {
		switch {
		case a.Value > b.Value:
			return -1
		case a.Value < b.Value:
			return 1
		default:
			return 0
		}
	})
	if entries == nil {
		entries = []models.KeyValue{}
	}
	return models.Available(entries)
}

// Top returns the first n entries of a ranking.
func Top(entries []models.KeyValue, n int) []models.KeyValue {
	if n < 0 {
		n = 0
	}
	if len(entries) <= n {
		return slices.Clone(entries)
	}
	return slices.Clone(entries[:n])
}

// Bottom returns the last n entries of a ranking, still in descending order.
func Bottom(entries []models.KeyValue, n int) []models.KeyValue {
	if n < 0 {
		n = 0
	}
	if len(entries) <= n {
		return slices.Clone(entries)
	}
	return slices.Clone(entries[len(entries)-n:])
}

// TopN ranks by dimension and keeps the first n entries.
func TopN(t *models.Table, roles models.RoleMap, dim models.Role, n int) models.Outcome[[]models.KeyValue] {
	ranked := ByDimension(t, roles, dim, models.RoleRevenue)
	if ranked.OK() {
		ranked.Value = Top(ranked.Value, n)
	}
	return ranked
}

// Total sums the revenue column over every row.
func Total(t *models.Table, roles models.RoleMap) models.Outcome[float64] {
	if out, ok := models.Require[float64](roles, models.RoleRevenue); !ok {
		return out
	}
	col, _ := roles.Column(models.RoleRevenue)
	var sum float64
	for _, r := range t.Rows {
		sum += models.Number(r[col])
	}
	return models.Available(sum)
}

func Summarize(t *models.Table, roles models.RoleMap, opts Options) Summary {
	return Summary{
		TotalRevenue: Total(t, roles),
		TopProducts:  TopN(t, roles, models.RoleProduct, opts.TopN),
		TopCustomers: TopN(t, roles, models.RoleCustomer, opts.TopN),
		TopRegions:   TopN(t, roles, models.RoleRegion, opts.TopN),
	}
}

// TopShare is the fraction of total held by the first n entries. It is 0
// when total is not positive or when fewer than minGroups keys exist.
func TopShare(entries []models.KeyValue, total float64, n, minGroups int) float64 {
	if total <= 0 || len(entries) < minGroups {
		return 0
	}
	var sum float64
	for _, e := range Top(entries, n) {
		sum += e.Value
	}
	return sum / total
}

// Sum adds up entry values.
func Sum(entries []models.KeyValue) float64 {
	var s float64
	for _, e := range entries {
		s += e.Value
	}
	return s
}

// CustomerActivity counts repeat and one-time customers by row count.
func CustomerActivity(t *models.Table, roles models.RoleMap) models.Outcome[Activity] {
	if out, ok := models.Require[Activity](roles, models.RoleCustomer, models.RoleRevenue); !ok {
		return out
	}
	col, _ := roles.Column(models.RoleCustomer)
	counts := make(map[string]int)
	for _, r := range t.Rows {
		if c := r[col]; c != "" {
			counts[c]++
		}
	}
	var a Activity
	for _, n := range counts {
		if n > 1 {
			a.Repeat++
		} else {
			a.OneTime++
		}
	}
	return models.Available(a)
}
