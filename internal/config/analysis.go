package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"sales-insight/internal/aggregate"
	"sales-insight/internal/churn"
	"sales-insight/internal/diagnostics"
	"sales-insight/internal/segment"
	"sales-insight/internal/strategy"
	"sales-insight/internal/timeseries"
	"sales-insight/internal/zones"
)

// AnalysisConfig holds every threshold the engines read. Keys missing from
// the YAML file keep their defaults.
type AnalysisConfig struct {
	Aggregate   aggregate.Options   `yaml:"aggregate"`
	TimeSeries  timeseries.Options  `yaml:"timeseries"`
	Zones       zones.Options       `yaml:"zones"`
	Churn       churn.Options       `yaml:"churn"`
	Segment     segment.Options     `yaml:"segment"`
	Strategy    strategy.Options    `yaml:"strategy"`
	Diagnostics diagnostics.Options `yaml:"diagnostics"`
	// Workers bounds how many segment slices are analysed at once.
	Workers int `yaml:"workers"`
}

func DefaultAnalysis() AnalysisConfig {
	return AnalysisConfig{
		Aggregate:   aggregate.DefaultOptions(),
		TimeSeries:  timeseries.DefaultOptions(),
		Zones:       zones.DefaultOptions(),
		Churn:       churn.DefaultOptions(),
		Segment:     segment.DefaultOptions(),
		Strategy:    strategy.DefaultOptions(),
		Diagnostics: diagnostics.DefaultOptions(),
		Workers:     4,
	}
}

// LoadAnalysis reads the YAML threshold file at path over the defaults.
// An empty path returns the defaults.
func LoadAnalysis(path string) (AnalysisConfig, error) {
	cfg := DefaultAnalysis()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read analysis config: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse analysis config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("analysis config %s: %w", path, err)
	}
	return cfg, nil
}

func (a AnalysisConfig) Validate() error {
	switch {
	case a.Aggregate.TopN < 1:
		return fmt.Errorf("aggregate.top_n must be positive")
	case a.TimeSeries.GrowthWindow < 1 || a.Zones.GrowthWindow < 1:
		return fmt.Errorf("growth_window must be positive")
	case a.TimeSeries.BacktestHorizon < 1:
		return fmt.Errorf("timeseries.backtest_horizon must be positive")
	case a.TimeSeries.ForecastSteps < 1:
		return fmt.Errorf("timeseries.forecast_steps must be positive")
	case a.Zones.PercentileCutoff <= 0 || a.Zones.PercentileCutoff > 100:
		return fmt.Errorf("zones.percentile_cutoff must be in (0, 100], got %v", a.Zones.PercentileCutoff)
	case a.Churn.ProbabilityThreshold <= 0 || a.Churn.ProbabilityThreshold >= 1:
		return fmt.Errorf("churn.probability_threshold must be in (0, 1), got %v", a.Churn.ProbabilityThreshold)
	case a.Churn.LabelDays < 1 || a.Churn.InactivityDays < 1:
		return fmt.Errorf("churn day thresholds must be positive")
	case a.Churn.Regularization <= 0 || a.Churn.MaxIterations < 1:
		return fmt.Errorf("churn.regularization and churn.max_iterations must be positive")
	case a.Segment.MidQuantile < 0 || a.Segment.MidQuantile >= a.Segment.HighQuantile || a.Segment.HighQuantile > 1:
		return fmt.Errorf("segment quantiles must satisfy 0 <= mid < high <= 1")
	case !(a.TimeSeries.MAPEEpsilon > 0):
		return fmt.Errorf("timeseries.mape_epsilon must be positive, got %v", a.TimeSeries.MAPEEpsilon)
	case a.Segment.Clusters < 1:
		return fmt.Errorf("segment.clusters must be positive")
	case a.Segment.MaxSlices < 0 || a.Segment.MinSliceRows < 0:
		return fmt.Errorf("segment.max_slices and segment.min_slice_rows must not be negative")
	case a.Strategy.TopProductsCount < 0 || a.Strategy.PushLimit < 0:
		return fmt.Errorf("strategy.top_products_count and strategy.push_limit must not be negative")
	case a.Workers < 1:
		return fmt.Errorf("workers must be positive")
	}
	return nil
}
