// Package timeseries buckets transactions by month and fits linear trends.
package timeseries

import (
	"slices"
	"time"

	"sales-insight/internal/models"
)

// Monthly sums value per calendar month. Buckets are labelled with the
// first day of the month (UTC); rows with unparseable dates are dropped and
// months without rows are not synthesized.
func Monthly(t *models.Table, roles models.RoleMap, value models.Role) models.Outcome[[]models.MonthPoint] {
	if out, ok := models.Require[[]models.MonthPoint](roles, models.RoleDate, value); !ok {
		return out
	}
	dateCol, _ := roles.Column(models.RoleDate)
	valCol, _ := roles.Column(value)

	buckets := make(map[time.Time]float64)
	for _, r := range t.Rows {
		d, ok := models.Date(r[dateCol])
		if !ok {
			continue
		}
		buckets[models.MonthStart(d)] += models.Number(r[valCol])
	}

	points := toPoints(buckets)
	if len(points) == 0 {
		return models.Insufficient("no parseable dates", points)
	}
	return models.Available(points)
}

// MonthlyByGroup builds one monthly series per non-empty group value, in
// order of first appearance.
func MonthlyByGroup(t *models.Table, roles models.RoleMap, value, group models.Role) models.Outcome[[]models.GroupSeries] {
	if out, ok := models.Require[[]models.GroupSeries](roles, models.RoleDate, value, group); !ok {
		return out
	}
	dateCol, _ := roles.Column(models.RoleDate)
	valCol, _ := roles.Column(value)
	groupCol, _ := roles.Column(group)

	var order []string
	groups := make(map[string]map[time.Time]float64)
	for _, r := range t.Rows {
		key := r[groupCol]
		if key == "" {
			continue
		}
		d, ok := models.Date(r[dateCol])
		if !ok {
			continue
		}
		b, seen := groups[key]
		if !seen {
			b = make(map[time.Time]float64)
			groups[key] = b
			order = append(order, key)
		}
		b[models.MonthStart(d)] += models.Number(r[valCol])
	}

	out := make([]models.GroupSeries, 0, len(order))
	for _, key := range order {
		out = append(out, models.GroupSeries{Key: key, Points: toPoints(groups[key])})
	}
	return models.Available(out)
}

// Values extracts the revenue column of a series.
func Values(series []models.MonthPoint) []float64 {
	out := make([]float64, len(series))
	for i, p := range series {
		out[i] = p.Revenue
	}
	return out
}

func toPoints(buckets map[time.Time]float64) []models.MonthPoint {
	points := make([]models.MonthPoint, 0, len(buckets))
	for m, v := range buckets {
		points = append(points, models.MonthPoint{Month: m, Revenue: v})
	}
	slices.SortFunc(points, func(a, b models.MonthPoint) int {
		return a.Month.Compare(b.Month)
	})
	return points
}
