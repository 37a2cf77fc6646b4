package timeseries

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-insight/internal/models"
)

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func linearSeries(n int, intercept, slope float64) []models.MonthPoint {
	out := make([]models.MonthPoint, n)
	start := month(2023, time.January)
	for i := range out {
		out[i] = models.MonthPoint{Month: start.AddDate(0, i, 0), Revenue: intercept + slope*float64(i)}
	}
	return out
}

func seriesOf(values ...float64) []models.MonthPoint {
	out := linearSeries(len(values), 0, 0)
	for i, v := range values {
		out[i].Revenue = v
	}
	return out
}

func TestMonthly_BucketsByMonthStartAndKeepsGaps(t *testing.T) {
	table := models.NewTable([]string{"order_date", "amount"}, []models.Row{
		{"order_date": "2024-01-03", "amount": "100"},
		{"order_date": "2024-01-31", "amount": "50"},
		{"order_date": "2024-03-15", "amount": "x"},
		{"order_date": "2024-03-16", "amount": "25"},
		{"order_date": "not a date", "amount": "999"},
		{"order_date": "", "amount": "999"},
	})
	roles := models.NewRoleMap(map[models.Role]string{models.RoleDate: "order_date", models.RoleRevenue: "amount"}, false)

	out := Monthly(table, roles, models.RoleRevenue)
	require.True(t, out.OK())
	assert.Equal(t, []models.MonthPoint{
		{Month: month(2024, time.January), Revenue: 150},
		{Month: month(2024, time.March), Revenue: 25},
	}, out.Value)
}

func TestMonthly_Unavailable(t *testing.T) {
	roles := models.NewRoleMap(map[models.Role]string{models.RoleRevenue: "amount"}, false)
	out := Monthly(models.NewTable([]string{"amount"}, nil), roles, models.RoleRevenue)
	assert.Equal(t, models.StatusMissingRole, out.Status)
	assert.Equal(t, []models.Role{models.RoleDate}, out.Missing)

	roles = models.NewRoleMap(map[models.Role]string{models.RoleDate: "d", models.RoleRevenue: "amount"}, false)
	out = Monthly(models.NewTable([]string{"d", "amount"}, []models.Row{{"d": "??", "amount": "1"}}), roles, models.RoleRevenue)
	assert.Equal(t, models.StatusInsufficientData, out.Status)
}

func TestMonthlyByGroup(t *testing.T) {
	table := models.NewTable([]string{"date", "sales", "region"}, []models.Row{
		{"date": "2024-02-01", "sales": "5", "region": "north"},
		{"date": "2024-01-01", "sales": "7", "region": "south"},
		{"date": "2024-01-20", "sales": "3", "region": "north"},
		{"date": "2024-02-10", "sales": "4", "region": ""},
	})
	roles := models.NewRoleMap(map[models.Role]string{
		models.RoleDate: "date", models.RoleRevenue: "sales", models.RoleRegion: "region",
	}, false)

	out := MonthlyByGroup(table, roles, models.RoleRevenue, models.RoleRegion)
	require.True(t, out.OK())
	require.Len(t, out.Value, 2)
	assert.Equal(t, "north", out.Value[0].Key)
	assert.Equal(t, []models.MonthPoint{
		{Month: month(2024, time.January), Revenue: 3},
		{Month: month(2024, time.February), Revenue: 5},
	}, out.Value[0].Points)
	assert.Equal(t, "south", out.Value[1].Key)
}

func TestTrailingGrowth(t *testing.T) {
	tests := []struct {
		name   string
		series []models.MonthPoint
		want   float64
	}{
		{"fewer than six points", seriesOf(1, 2, 3, 4, 5), 0},
		{"empty", nil, 0},
		{"prior mean zero", seriesOf(0, 0, 0, 10, 20, 30), 0},
		{"doubling", seriesOf(10, 10, 10, 20, 20, 20), 1},
		{"uses only the last six", seriesOf(1000, 10, 10, 10, 5, 5, 5), -0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, TrailingGrowth(tt.series, 3), 1e-12)
		})
	}
}

func TestFitLine(t *testing.T) {
	line := FitLine([]float64{0, 1, 2, 3}, []float64{1, 3, 5, 7})
	assert.InDelta(t, 2.0, line.Slope, 1e-12)
	assert.InDelta(t, 1.0, line.Intercept, 1e-12)

	single := FitLine([]float64{4}, []float64{9})
	assert.Equal(t, Line{Intercept: 9}, single)

	assert.Equal(t, Line{}, FitLine(nil, nil))
}

func TestForecastNextMonth_LinearSeries(t *testing.T) {
	// revenue = 1000 + 100*i for i = 0..11; the fit uses 0..10 and predicts i = 12
	series := linearSeries(12, 1000, 100)
	out := ForecastNextMonth(series)
	require.True(t, out.OK())

	assert.Equal(t, 12, out.Value.Index)
	assert.InDelta(t, 2200.0, out.Value.Value, 1e-6)
	assert.InDelta(t, 100.0, out.Value.Line.Slope, 1e-9)
	assert.Equal(t, month(2024, time.January), out.Value.Month)
	require.NotNil(t, out.Value.LastPointAccuracy)
	assert.InDelta(t, 1.0, *out.Value.LastPointAccuracy, 1e-9)
}

func TestForecastNextMonth_InsufficientHistory(t *testing.T) {
	out := ForecastNextMonth(seriesOf(5))
	assert.Equal(t, models.StatusInsufficientData, out.Status)
	assert.Zero(t, out.Value.Value)

	two := ForecastNextMonth(seriesOf(5, 9))
	require.True(t, two.OK())
	// a single training point gives a flat line
	assert.InDelta(t, 5.0, two.Value.Value, 1e-12)
}

func TestRunBacktest(t *testing.T) {
	opts := DefaultOptions()

	out := RunBacktest(linearSeries(10, 500, 50), opts)
	require.True(t, out.OK())
	assert.InDelta(t, 1.0, out.Value.ModelAccuracy, 1e-9)
	assert.InDelta(t, 0.0, out.Value.RMSE, 1e-6)
	// the naive forecast lags a rising series by one step
	assert.Less(t, out.Value.BaselineAccuracy, out.Value.ModelAccuracy)

	flat := RunBacktest(seriesOf(10, 20, 10, 10), opts)
	require.True(t, flat.OK())
	// trained on a single point (10): predictions 10, actuals 20,10,10
	assert.InDelta(t, 1-(0.5/3), flat.Value.ModelAccuracy, 1e-6)
	// naive: 10 vs 20, 20 vs 10, 10 vs 10
	assert.InDelta(t, 1-(0.5+1.0)/3, flat.Value.BaselineAccuracy, 1e-6)

	short := RunBacktest(seriesOf(1, 2, 3), opts)
	assert.Equal(t, models.StatusInsufficientData, short.Status)
}

func TestRunBacktest_ZeroActualsDoNotDivideByZero(t *testing.T) {
	out := RunBacktest(seriesOf(0, 0, 0, 0), DefaultOptions())
	require.True(t, out.OK())
	assert.InDelta(t, 1.0, out.Value.ModelAccuracy, 1e-9)
	assert.InDelta(t, 1.0, out.Value.BaselineAccuracy, 1e-9)
}

func TestExtend_SixMonths(t *testing.T) {
	series := []models.MonthPoint{
		{Month: month(2024, time.October), Revenue: 100},
		{Month: month(2024, time.November), Revenue: 200},
		{Month: month(2024, time.December), Revenue: 300},
	}
	out := Extend(series, 6)
	require.True(t, out.OK())
	require.Len(t, out.Value, 6)

	assert.Equal(t, month(2025, time.January), out.Value[0].Month)
	assert.Equal(t, month(2025, time.June), out.Value[5].Month)
	assert.InDelta(t, 400.0, out.Value[0].Revenue, 1e-9)
	assert.InDelta(t, 900.0, out.Value[5].Revenue, 1e-9)

	assert.Equal(t, models.StatusInsufficientData, Extend(series[:1], 6).Status)
}
