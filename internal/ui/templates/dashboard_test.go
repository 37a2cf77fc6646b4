package templates

import (
	"context"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-insight/internal/models"
	"sales-insight/internal/strategy"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	out, err := Render(context.Background(), c)
	require.NoError(t, err)
	return out
}

func TestDashboardShell(t *testing.T) {
	html := render(t, Dashboard("Sales <Insight>"))

	assert.Contains(t, html, "<title>Sales &lt;Insight&gt;</title>")
	assert.Contains(t, html, `data-on-load="@get('/sse/dashboard')"`)
	for _, id := range []string{IDKPICards, IDHealth, IDStrategy, IDProductZones, IDRegionZones, IDMonthly, IDStatus} {
		assert.Contains(t, html, `id="`+id+`"`)
	}
}

func TestKPICards(t *testing.T) {
	acc := 0.91
	html := render(t, KPICards(models.KPIBundle{TotalRevenue: 1234.5, GrowthPct: 0.125, ForecastAccuracy: &acc}))

	assert.Contains(t, html, "1234.50")
	assert.Contains(t, html, "12.5%")
	assert.Contains(t, html, "91.0%")
	assert.Contains(t, html, "n/a", "missing churn rate")
}

func TestZoneTable(t *testing.T) {
	out := models.Available([]models.ZoneRecord{
		{Key: "Widget & Co", Revenue: 100, Percentile: 0.9, Growth: 0.2, Category: models.CategoryStar},
		{Key: "Gadget", Revenue: 10, Percentile: 0.1, Growth: -0.5, Category: models.CategoryDead},
		{Key: "Hidden", Revenue: 1, Category: models.CategoryCashCow},
	})
	html := render(t, ZoneTable(IDProductZones, "Products", out, 2))

	assert.Contains(t, html, "Widget &amp; Co")
	assert.Contains(t, html, `class="zone star"`)
	assert.Contains(t, html, `class="zone dead"`)
	assert.NotContains(t, html, "Hidden")
}

func TestZoneTableUnavailable(t *testing.T) {
	html := render(t, ZoneTable(IDRegionZones, "Regions", models.MissingRoles[[]models.ZoneRecord](models.RoleRegion), 10))
	assert.Contains(t, html, "no region column detected")

	html = render(t, ZoneTable(IDRegionZones, "Regions", models.Insufficient[[]models.ZoneRecord]("need two months", nil), 10))
	assert.Contains(t, html, "Could not compute: need two months")
}

func TestStrategyList(t *testing.T) {
	board := strategy.DecisionBoard{
		Push:         []models.ZoneRecord{{Key: "a"}},
		PushSharePct: 42.5,
		NextActions:  []string{"Push a"},
	}
	html := render(t, StrategyList([]string{"Diversify"}, board, nil))

	assert.Contains(t, html, "<li>Push a</li>")
	assert.Contains(t, html, "42.5% of revenue")
	assert.Contains(t, html, "<li>Diversify</li>")
	assert.NotContains(t, html, "Uplift plan")
}

func TestHealthListEmpty(t *testing.T) {
	html := render(t, HealthList(nil, nil))
	assert.Contains(t, html, "No data quality issues detected.")
}

func TestMonthlyTable(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	html := render(t, MonthlyTable(
		[]models.MonthPoint{{Month: jan, Revenue: 10}},
		[]models.MonthPoint{{Month: jan.AddDate(0, 1, 0), Revenue: 12}},
	))

	assert.Contains(t, html, "<td>2024-01</td><td>10.00</td>")
	assert.Contains(t, html, `<tr class="projected"><td>2024-02</td>`)
}

func TestStatus(t *testing.T) {
	assert.Contains(t, render(t, Status("boom", true)), `class="error"`)
	assert.Contains(t, render(t, Status("ok", false)), `class="muted"`)
}

func TestRender_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Render(ctx, HealthList([]string{"x"}, nil))
	assert.ErrorIs(t, err, context.Canceled)
}
