package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"sales-insight/internal/aggregate"
	"sales-insight/internal/churn"
	"sales-insight/internal/config"
	"sales-insight/internal/diagnostics"
	"sales-insight/internal/ingest"
	"sales-insight/internal/models"
	"sales-insight/internal/observability"
	"sales-insight/internal/profiler"
	"sales-insight/internal/segment"
	"sales-insight/internal/strategy"
	"sales-insight/internal/timeseries"
	"sales-insight/internal/zones"
)

var ErrEmptyDataset = errors.New("dataset has no rows")

// Analytics runs the analysis pipeline. It holds no per-run state and is
// safe for concurrent use.
type Analytics struct {
	cfg      config.AnalysisConfig
	profiler *profiler.Profiler
	logger   *slog.Logger
}

func NewAnalytics(cfg config.AnalysisConfig, logger *slog.Logger) *Analytics {
	return &Analytics{
		cfg:      cfg,
		profiler: profiler.New(profiler.DefaultRules, logger),
		logger:   logger,
	}
}

func (a *Analytics) Config() config.AnalysisConfig {
	return a.cfg
}

// ProfileResult is the column inference for a table without running the
// engines.
type ProfileResult struct {
	Columns []string       `json:"columns"`
	Rows    int            `json:"rows"`
	Roles   models.RoleMap `json:"roles"`
}

// Profile detects column roles on a copy of t.
func (a *Analytics) Profile(t *models.Table) ProfileResult {
	own := t.Clone()
	roles := a.profiler.Profile(own)
	return ProfileResult{Columns: own.Columns, Rows: own.Len(), Roles: roles}
}

// AnalyzeFile loads a CSV or XLSX file from disk and analyses it.
func (a *Analytics) AnalyzeFile(ctx context.Context, path string) (*Report, error) {
	table, err := ingest.LoadFile(ctx, path)
	if err != nil {
		observability.ObserveAnalysis(sourceLabel(path), "error", 0, 0)
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return a.Analyze(ctx, path, table)
}

// AnalyzeUpload loads an uploaded file and analyses it.
func (a *Analytics) AnalyzeUpload(ctx context.Context, name string, r io.Reader) (*Report, error) {
	table, err := ingest.Load(ctx, name, r)
	if err != nil {
		observability.ObserveAnalysis(sourceLabel(name), "error", 0, 0)
		return nil, fmt.Errorf("load upload: %w", err)
	}
	return a.Analyze(ctx, name, table)
}

// Analyze runs every engine over a private copy of t. Engine shortfalls are
// reported inside the Report; the error is only set for empty input or a
// cancelled context.
func (a *Analytics) Analyze(ctx context.Context, source string, t *models.Table) (*Report, error) {
	start := time.Now()
	if t.Len() == 0 {
		observability.ObserveAnalysis(sourceLabel(source), "error", 0, time.Since(start))
		return nil, ErrEmptyDataset
	}

	ctx, span := observability.StartSpan(ctx, "analysis")
	span.SetTag("source", source)
	defer span.End(ctx, a.logger)

	rep, err := a.run(ctx, source, t.Clone())
	if err != nil {
		span.SetError(err)
		observability.ObserveAnalysis(sourceLabel(source), "error", t.Len(), time.Since(start))
		return nil, err
	}

	observability.ObserveAnalysis(sourceLabel(source), "ok", rep.Rows, time.Since(start))
	a.logger.InfoContext(ctx, "analysis complete",
		"run_id", rep.RunID,
		"source", source,
		"rows", rep.Rows,
		"segments", len(rep.Segments),
		"strategies", len(rep.Strategy),
		"duration", time.Since(start),
	)
	return rep, nil
}

func (a *Analytics) run(ctx context.Context, source string, t *models.Table) (*Report, error) {
	cfg := a.cfg
	rep := &Report{
		RunID:       uuid.NewString(),
		Source:      source,
		GeneratedAt: time.Now().UTC(),
		Rows:        t.Len(),
	}

	var roles models.RoleMap
	if err := a.stage(ctx, "profile", func(context.Context) error {
		roles = a.profiler.Profile(t)
		rep.Columns = t.Columns
		rep.Roles = roles
		return nil
	}); err != nil {
		return nil, err
	}

	if err := a.stage(ctx, "diagnostics", func(context.Context) error {
		rep.Health = diagnostics.Health(t, roles, cfg.Diagnostics)
		rep.Patterns = diagnostics.Detect(t, roles, cfg.Diagnostics)
		rep.Discounts = diagnostics.Discounts(t, roles)
		return nil
	}); err != nil {
		return nil, err
	}

	var productRanking, customerRanking models.Outcome[[]models.KeyValue]
	if err := a.stage(ctx, "aggregate", func(context.Context) error {
		rep.Summary = aggregate.Summarize(t, roles, cfg.Aggregate)
		rep.Activity = aggregate.CustomerActivity(t, roles)
		productRanking = aggregate.ByDimension(t, roles, models.RoleProduct, models.RoleRevenue)
		customerRanking = aggregate.ByDimension(t, roles, models.RoleCustomer, models.RoleRevenue)
		rep.TopProducts = mapOutcome(productRanking, func(v []models.KeyValue) []models.KeyValue {
			return aggregate.Top(v, cfg.Aggregate.TopN)
		})
		rep.BottomProducts = mapOutcome(productRanking, func(v []models.KeyValue) []models.KeyValue {
			return aggregate.Bottom(v, cfg.Aggregate.TopN)
		})
		return nil
	}); err != nil {
		return nil, err
	}

	if err := a.stage(ctx, "timeseries", func(context.Context) error {
		rep.Monthly = timeseries.Monthly(t, roles, models.RoleRevenue)
		rep.Seasonality = seasonality(rep.Monthly, cfg.TimeSeries)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := a.stage(ctx, "zones", func(context.Context) error {
		rep.ProductZones = zones.Analyze(t, roles, models.RoleProduct, cfg.Zones)
		rep.RegionZones = zones.Analyze(t, roles, models.RoleRegion, cfg.Zones)
		rep.ZoneCounts = zones.Count(rep.ProductZones.Value)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := a.stage(ctx, "churn", func(context.Context) error {
		rep.Churn = churn.Fit(t, roles, cfg.Churn)
		rep.Inactive = churn.Inactive(t, roles, cfg.Churn.InactivityDays)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := a.stage(ctx, "segment", func(context.Context) error {
		rep.Tiers = segment.TransactionTiers(t, roles, cfg.Segment)
		rep.CustomerTiers = segment.CustomerTiers(t, roles, cfg.Segment)
		rep.Clusters = segment.Cluster(t, roles, cfg.Segment.Clusters)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := a.stage(ctx, "strategy", func(context.Context) error {
		rep.KPIs = buildKPIs(rep, productRanking, customerRanking, cfg)
		rep.Strategy = strategy.Generate(strategyInputs(rep), cfg.Strategy)
		rep.Uplift = strategy.Uplift(rep.BottomProducts.Value)
		rep.Board = strategy.Board(rep.ProductZones.Value, rep.KPIs.TotalRevenue, cfg.Strategy, rep.Strategy...)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := a.stage(ctx, "segment_runner", func(ctx context.Context) error {
		var err error
		rep.Segments, rep.SegmentsSkipped, err = a.runSegments(ctx, t, roles)
		return err
	}); err != nil {
		return nil, err
	}

	rep.Views = buildViews(rep)
	rep.Synthesis = synthesize(rep)
	a.recordOutcomes(ctx, rep)
	return rep, nil
}

// stage runs fn inside a span after checking for cancellation.
func (a *Analytics) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	ctx, span := observability.StartSpan(ctx, "analysis."+name)
	defer span.End(ctx, a.logger)
	if err := fn(ctx); err != nil {
		span.SetError(err)
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func seasonality(monthly models.Outcome[[]models.MonthPoint], opts timeseries.Options) Seasonality {
	if !monthly.OK() {
		return Seasonality{
			Forecast:   carry[[]models.MonthPoint, timeseries.Forecast](monthly),
			Backtest:   carry[[]models.MonthPoint, timeseries.Backtest](monthly),
			Projection: monthly,
		}
	}
	return Seasonality{
		Forecast:   timeseries.ForecastNextMonth(monthly.Value),
		Backtest:   timeseries.RunBacktest(monthly.Value, opts),
		Projection: timeseries.Extend(monthly.Value, opts.ForecastSteps),
	}
}

func (a *Analytics) recordOutcomes(ctx context.Context, rep *Report) {
	statuses := []struct {
		engine string
		status models.Status
		reason string
	}{
		{"total", rep.Summary.TotalRevenue.Status, rep.Summary.TotalRevenue.Reason},
		{"monthly", rep.Monthly.Status, rep.Monthly.Reason},
		{"forecast", rep.Seasonality.Forecast.Status, rep.Seasonality.Forecast.Reason},
		{"backtest", rep.Seasonality.Backtest.Status, rep.Seasonality.Backtest.Reason},
		{"product_zones", rep.ProductZones.Status, rep.ProductZones.Reason},
		{"region_zones", rep.RegionZones.Status, rep.RegionZones.Reason},
		{"churn", rep.Churn.Status, rep.Churn.Reason},
		{"customer_tiers", rep.CustomerTiers.Status, rep.CustomerTiers.Reason},
		{"clusters", rep.Clusters.Status, rep.Clusters.Reason},
		{"discounts", rep.Discounts.Status, rep.Discounts.Reason},
	}
	for _, s := range statuses {
		observability.ObserveOutcome(s.engine, string(s.status))
		if s.status != models.StatusOK {
			a.logger.DebugContext(ctx, "engine result unavailable",
				"engine", s.engine,
				"status", s.status,
				"reason", s.reason,
			)
		}
	}
}

// mapOutcome transforms the value of an available outcome and passes any
// other outcome through.
func mapOutcome[T, U any](in models.Outcome[T], fn func(T) U) models.Outcome[U] {
	out := models.Outcome[U]{Status: in.Status, Missing: in.Missing, Reason: in.Reason}
	if in.OK() {
		out.Value = fn(in.Value)
	}
	return out
}

// carry re-types an unavailable outcome, keeping its status and reason.
func carry[T, U any](in models.Outcome[T]) models.Outcome[U] {
	return models.Outcome[U]{Status: in.Status, Missing: in.Missing, Reason: in.Reason}
}

func sourceLabel(source string) string {
	if f, err := ingest.DetectFormat(source); err == nil {
		return string(f)
	}
	return "table"
}
