package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	"sales-insight/internal/aggregate"
	"sales-insight/internal/churn"
	"sales-insight/internal/models"
	"sales-insight/internal/segment"
	"sales-insight/internal/strategy"
	"sales-insight/internal/timeseries"
)

// SegmentResult is the per-slice rerun of the core engines.
type SegmentResult struct {
	Name     string                              `json:"name"`
	Rows     int                                 `json:"rows"`
	Summary  aggregate.Summary                   `json:"summary"`
	Forecast models.Outcome[timeseries.Forecast] `json:"forecast"`
	Backtest models.Outcome[timeseries.Backtest] `json:"backtest"`
	Churn    ChurnDigest                         `json:"churn"`
	Strategy []string                            `json:"strategy"`
}

// runSegments analyses each slice with at least MinSliceRows rows. Slices
// own their rows, so workers share nothing but the read-only role map.
// Results keep slice order.
func (a *Analytics) runSegments(ctx context.Context, t *models.Table, roles models.RoleMap) ([]SegmentResult, []string, error) {
	cfg := a.cfg
	var eligible []segment.Slice
	skipped := []string{}
	for _, s := range segment.Slices(t, roles, cfg.Segment) {
		if s.Table.Len() < cfg.Segment.MinSliceRows {
			skipped = append(skipped, s.Name)
			continue
		}
		eligible = append(eligible, s)
	}

	results := make([]SegmentResult, len(eligible))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)

	for i, s := range eligible {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = a.analyzeSegment(s, roles)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	a.logger.DebugContext(ctx, "segments analysed",
		"analysed", len(results),
		"skipped", len(skipped),
	)
	return results, skipped, nil
}

func (a *Analytics) analyzeSegment(s segment.Slice, roles models.RoleMap) SegmentResult {
	cfg := a.cfg
	res := SegmentResult{
		Name:    s.Name,
		Rows:    s.Table.Len(),
		Summary: aggregate.Summarize(s.Table, roles, cfg.Aggregate),
	}

	monthly := timeseries.Monthly(s.Table, roles, models.RoleRevenue)
	season := seasonality(monthly, cfg.TimeSeries)
	res.Forecast = season.Forecast
	res.Backtest = season.Backtest

	res.Churn = digest(churn.Fit(s.Table, roles, cfg.Churn))

	in := strategy.Inputs{TotalRevenue: res.Summary.TotalRevenue.Value}
	if res.Summary.TopCustomers.OK() {
		in.TopCustomers = res.Summary.TopCustomers.Value
	}
	if res.Summary.TopProducts.OK() {
		in.TopProducts = res.Summary.TopProducts.Value
	}
	if res.Summary.TopRegions.OK() {
		in.TopRegions = res.Summary.TopRegions.Value
	}
	if season.Forecast.OK() {
		v := season.Forecast.Value.Value
		in.NextMonthForecast = &v
	}
	if inactive := churn.Inactive(s.Table, roles, cfg.Churn.InactivityDays); inactive.OK() {
		n := len(inactive.Value)
		in.ChurnCount = &n
	}
	res.Strategy = strategy.Generate(in, cfg.Strategy)
	return res
}
