// Package zones classifies products and regions into BCG-style zones from
// revenue percentile and trailing growth.
package zones

import (
	"slices"

	"sales-insight/internal/aggregate"
	"sales-insight/internal/models"
	"sales-insight/internal/timeseries"
)

type Options struct {
	PercentileCutoff float64 `yaml:"percentile_cutoff"`
	GrowthWindow     int     `yaml:"growth_window"`
}

func DefaultOptions() Options {
	return Options{PercentileCutoff: 80, GrowthWindow: 3}
}

// Classify applies the fixed 2×2 table: high share is percentile >= cutoff,
// growing is growth > 0.
func Classify(percentile, growth, cutoff float64) models.Category {
	high := percentile >= cutoff
	growing := growth > 0
	switch {
	case high && growing:
		return models.CategoryStar
	case high:
		return models.CategoryCashCow
	case growing:
		return models.CategoryQuestionMark
	default:
		return models.CategoryDead
	}
}

// PercentileRanks converts values to ascending percentile ranks in (0, 100].
// Ties share the average of the ranks they span. Results are rounded to two
// decimals.
func PercentileRanks(values []float64) []float64 {
	n := len(values)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case values[a] < values[b]:
			return -1
		case values[a] > values[b]:
			return 1
		default:
			return 0
		}
	})

	for i := 0; i < n; {
		j := i
		for j+1 < n && values[order[j+1]] == values[order[i]] {
			j++
		}
		// ranks are 1-based: positions i..j hold ranks i+1..j+1
		avg := float64(i+j+2) / 2
		for k := i; k <= j; k++ {
			out[order[k]] = models.Round(avg/float64(n)*100, 2)
		}
		i = j + 1
	}
	return out
}

// Analyze ranks every value of dim by revenue and classifies it. Growth
// falls back to 0 for entities without enough monthly history, and for all
// entities when no date column was detected. Margin, when present, is
// attached for reporting only and never changes the category.
func Analyze(t *models.Table, roles models.RoleMap, dim models.Role, opts Options) models.Outcome[[]models.ZoneRecord] {
	ranked := aggregate.ByDimension(t, roles, dim, models.RoleRevenue)
	if !ranked.OK() {
		return models.Outcome[[]models.ZoneRecord]{Status: ranked.Status, Missing: ranked.Missing, Reason: ranked.Reason}
	}
	if len(ranked.Value) == 0 {
		return models.Insufficient("no rows carry a value for "+string(dim), []models.ZoneRecord{})
	}

	revenues := make([]float64, len(ranked.Value))
	for i, e := range ranked.Value {
		revenues[i] = e.Value
	}
	pct := PercentileRanks(revenues)

	growth := make(map[string]float64)
	note := ""
	if series := timeseries.MonthlyByGroup(t, roles, models.RoleRevenue, dim); series.OK() {
		for _, g := range series.Value {
			growth[g.Key] = timeseries.TrailingGrowth(g.Points, opts.GrowthWindow)
		}
	} else {
		note = "growth unavailable: date column not detected"
	}

	var margins map[string]float64
	if roles.Has(models.RoleMargin) {
		m := aggregate.ByDimension(t, roles, dim, models.RoleMargin)
		margins = make(map[string]float64, len(m.Value))
		for _, e := range m.Value {
			margins[e.Key] = e.Value
		}
	}

	records := make([]models.ZoneRecord, len(ranked.Value))
	for i, e := range ranked.Value {
		rec := models.ZoneRecord{
			Key:        e.Key,
			Revenue:    e.Value,
			Percentile: pct[i],
			Growth:     growth[e.Key],
		}
		if margins != nil {
			m := margins[e.Key]
			rec.Margin = &m
		}
		rec.Category = Classify(rec.Percentile, rec.Growth, opts.PercentileCutoff)
		records[i] = rec
	}

	if note != "" {
		return models.AvailableWithNote(records, note)
	}
	return models.Available(records)
}

// Count tallies records per category.
func Count(records []models.ZoneRecord) map[models.Category]int {
	out := make(map[models.Category]int, 4)
	for _, r := range records {
		out[r.Category]++
	}
	return out
}
