package timeseries

import (
	"math"
	"time"

	"sales-insight/internal/models"
)

// Options holds the time-series knobs.
type Options struct {
	GrowthWindow    int     `yaml:"growth_window"`
	BacktestHorizon int     `yaml:"backtest_horizon"`
	ForecastSteps   int     `yaml:"forecast_steps"`
	MAPEEpsilon     float64 `yaml:"mape_epsilon"`
}

func DefaultOptions() Options {
	return Options{
		GrowthWindow:    3,
		BacktestHorizon: 3,
		ForecastSteps:   6,
		MAPEEpsilon:     1e-9,
	}
}

// Line is an ordinary least squares fit y = Intercept + Slope*x.
type Line struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

func (l Line) At(x float64) float64 {
	return l.Intercept + l.Slope*x
}

// FitLine fits y on x by OLS. With a single point or no spread in x the
// slope is 0 and the intercept is the mean of y.
func FitLine(xs, ys []float64) Line {
	n := float64(len(xs))
	if len(xs) == 0 || len(xs) != len(ys) {
		return Line{}
	}
	var mx, my float64
	for i := range xs {
		mx += xs[i]
		my += ys[i]
	}
	mx /= n
	my /= n

	var sxy, sxx float64
	for i := range xs {
		dx := xs[i] - mx
		sxy += dx * (ys[i] - my)
		sxx += dx * dx
	}
	if sxx == 0 {
		return Line{Intercept: my}
	}
	slope := sxy / sxx
	return Line{Slope: slope, Intercept: my - slope*mx}
}

// fitIndexed fits values against their zero-based position.
func fitIndexed(values []float64) Line {
	xs := make([]float64, len(values))
	for i := range xs {
		xs[i] = float64(i)
	}
	return FitLine(xs, values)
}

type Forecast struct {
	Month time.Time `json:"month"`
	Index int       `json:"index"`
	Value float64   `json:"value"`
	Line  Line      `json:"trend"`
	// LastPointAccuracy is 1 - |actual-predicted|/actual for the last
	// observed month, which the fit did not see. Nil when actual is 0.
	LastPointAccuracy *float64 `json:"last_point_accuracy,omitempty"`
}

// ForecastNextMonth fits a trend on every point but the last and predicts
// the month after the last observed one.
func ForecastNextMonth(series []models.MonthPoint) models.Outcome[Forecast] {
	n := len(series)
	if n < 2 {
		return models.Insufficient("forecast needs at least 2 monthly points", Forecast{})
	}
	v := Values(series)
	line := fitIndexed(v[:n-1])

	fc := Forecast{
		Month: series[n-1].Month.AddDate(0, 1, 0),
		Index: n,
		Value: line.At(float64(n)),
		Line:  line,
	}
	if actual := v[n-1]; actual != 0 {
		acc := 1 - math.Abs(actual-line.At(float64(n-1)))/actual
		fc.LastPointAccuracy = &acc
	}
	return models.Available(fc)
}

type Backtest struct {
	Horizon          int     `json:"horizon"`
	MAPE             float64 `json:"mape"`
	BaselineMAPE     float64 `json:"baseline_mape"`
	ModelAccuracy    float64 `json:"model_accuracy"`
	BaselineAccuracy float64 `json:"baseline_accuracy"`
	RMSE             float64 `json:"rmse"`
}

// RunBacktest holds out the last Horizon months, fits a trend on the rest
// and scores it against a naive forecast that repeats the previous month.
// MAPE denominators are |actual| + MAPEEpsilon.
func RunBacktest(series []models.MonthPoint, opts Options) models.Outcome[Backtest] {
	h := opts.BacktestHorizon
	n := len(series)
	if h <= 0 || n < h+1 {
		return models.Insufficient("backtest needs more months than the holdout window", Backtest{Horizon: h})
	}
	v := Values(series)
	line := fitIndexed(v[:n-h])

	var modelErr, naiveErr, sq float64
	for i := n - h; i < n; i++ {
		actual := v[i]
		denom := math.Abs(actual) + opts.MAPEEpsilon
		pred := line.At(float64(i))
		modelErr += math.Abs(actual-pred) / denom
		naiveErr += math.Abs(actual-v[i-1]) / denom
		sq += (actual - pred) * (actual - pred)
	}
	hf := float64(h)
	bt := Backtest{
		Horizon:      h,
		MAPE:         modelErr / hf,
		BaselineMAPE: naiveErr / hf,
		RMSE:         math.Sqrt(sq / hf),
	}
	bt.ModelAccuracy = 1 - bt.MAPE
	bt.BaselineAccuracy = 1 - bt.BaselineMAPE
	return models.Available(bt)
}

// Extend fits a trend on the whole series and projects it steps months past
// the last observed month. Labels are produced by adding months to the last
// label, not by rebuilding a calendar grid.
func Extend(series []models.MonthPoint, steps int) models.Outcome[[]models.MonthPoint] {
	n := len(series)
	if n < 2 {
		return models.Insufficient("projection needs at least 2 monthly points", []models.MonthPoint{})
	}
	line := fitIndexed(Values(series))
	last := series[n-1].Month

	out := make([]models.MonthPoint, 0, steps)
	for i := 1; i <= steps; i++ {
		out = append(out, models.MonthPoint{
			Month:   last.AddDate(0, i, 0),
			Revenue: line.At(float64(n - 1 + i)),
		})
	}
	return models.Available(out)
}
