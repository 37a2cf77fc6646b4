// Package templates holds the dashboard components. The page shell is
// rendered once; the fragments are patched in over SSE.
//
//go:generate templ generate
package templates

import (
	"context"
	"fmt"
	"strings"

	"github.com/a-h/templ"

	"sales-insight/internal/models"
)

// Fragment ids patched by the dashboard stream.
const (
	IDKPICards     = "kpi-cards"
	IDProductZones = "product-zones"
	IDRegionZones  = "region-zones"
	IDStrategy     = "strategy-list"
	IDHealth       = "data-health"
	IDMonthly      = "monthly-table"
	IDStatus       = "dashboard-status"
)

var sectionIDs = []string{IDKPICards, IDHealth, IDStrategy, IDProductZones, IDRegionZones, IDMonthly}

// Render renders c into a string for SSE patches.
func Render(ctx context.Context, c templ.Component) (string, error) {
	var b strings.Builder
	if err := c.Render(ctx, &b); err != nil {
		return "", err
	}
	return b.String(), nil
}

type card struct{ label, value string }

// kpiCards lists the headline figures. Missing figures show as n/a.
func kpiCards(k models.KPIBundle) []card {
	return []card{
		{"Total revenue", money(k.TotalRevenue)},
		{"Growth (3m vs prior 3m)", percent(k.GrowthPct)},
		{"Top 5 products share", percent(k.Top5ProductShare)},
		{"Top 5 customers share", percent(k.Top5CustomerShare)},
		{"Churn rate", optionalPercent(k.ChurnRate)},
		{"Forecast accuracy", optionalPercent(k.ForecastAccuracy)},
	}
}

func limit(zs []models.ZoneRecord, n int) []models.ZoneRecord {
	if n >= 0 && len(zs) > n {
		return zs[:n]
	}
	return zs
}

func roleNames(roles []models.Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}

func statusClass(failed bool) string {
	if failed {
		return "error"
	}
	return "muted"
}

func zoneClass(c models.Category) string {
	return strings.ReplaceAll(strings.ToLower(string(c)), " ", "-")
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

func optionalPercent(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return percent(*v)
}

const styles = `body{font-family:system-ui,sans-serif;margin:0;background:#f6f7f9;color:#1d2430}
header{padding:1rem 2rem;background:#1d2430;color:#fff}main{padding:1rem 2rem;display:grid;gap:1.5rem}
.cards{display:grid;grid-template-columns:repeat(auto-fit,minmax(180px,1fr));gap:1rem}
.card{background:#fff;border-radius:8px;padding:1rem;display:flex;flex-direction:column;gap:.25rem}
.label,.muted{color:#6b7280}.error{color:#b91c1c}
.modern-table{width:100%;border-collapse:collapse;background:#fff}.modern-table td,.modern-table th{padding:.4rem .6rem;border-bottom:1px solid #e5e7eb;text-align:left}
.zone{padding:.1rem .5rem;border-radius:999px;font-size:.85em}.star{background:#dcfce7}.cash-cow{background:#e0f2fe}.question-mark{background:#fef9c3}.dead{background:#fee2e2}
.projected{color:#6b7280;font-style:italic}`
