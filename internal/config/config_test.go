package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8084, cfg.Server.Port)
	assert.Equal(t, "data.csv", cfg.Dataset.CSVFile)
	assert.Equal(t, int64(32<<20), cfg.Dataset.MaxUploadBytes)
	assert.Equal(t, 45*time.Second, cfg.Dataset.AnalysisTimeout)
	assert.Equal(t, DefaultAnalysis(), cfg.Analysis)
	assert.Equal(t, "localhost:8084", cfg.Address())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("CSV_FILE", "sales.xlsx")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SECURITY_ALLOWED_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sales.xlsx", cfg.Dataset.CSVFile)
	assert.Equal(t, "text", cfg.Logger.Format)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Security.AllowedOrigins)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("MAX_UPLOAD_MB=4\nLOG_LEVEL=debug\n"), 0o644))
	t.Setenv("MAX_UPLOAD_MB", "")
	t.Setenv("LOG_LEVEL", "")
	// godotenv never overrides variables that are already set, so unset them
	os.Unsetenv("MAX_UPLOAD_MB")
	os.Unsetenv("LOG_LEVEL")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(4<<20), cfg.Dataset.MaxUploadBytes)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"port out of range", "SERVER_PORT", "70000"},
		{"bad log level", "LOG_LEVEL", "trace"},
		{"bad log format", "LOG_FORMAT", "xml"},
		{"zero rate limit", "SECURITY_RATE_LIMIT_RPS", "0"},
		{"zero upload", "MAX_UPLOAD_MB", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadAnalysis(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analysis.yaml")
	yaml := `
aggregate:
  top_n: 10
zones:
  percentile_cutoff: 75
churn:
  label_days: 120
  probability_threshold: 0.6
strategy:
  churn_count: 3
workers: 2
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := LoadAnalysis(path)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Aggregate.TopN)
	assert.Equal(t, 5, cfg.Aggregate.MinGroupsForShare, "unset keys keep defaults")
	assert.Equal(t, 75.0, cfg.Zones.PercentileCutoff)
	assert.Equal(t, 3, cfg.Zones.GrowthWindow)
	assert.Equal(t, 120, cfg.Churn.LabelDays)
	assert.Equal(t, 0.6, cfg.Churn.ProbabilityThreshold)
	assert.Equal(t, 60, cfg.Churn.InactivityDays)
	assert.Equal(t, 3, cfg.Strategy.ChurnCount)
	assert.Equal(t, 2, cfg.Workers)
}

func TestLoadAnalysis_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadAnalysis(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	unknown := filepath.Join(dir, "unknown.yaml")
	require.NoError(t, os.WriteFile(unknown, []byte("zones:\n  cutoff: 10\n"), 0o644))
	_, err = LoadAnalysis(unknown)
	assert.Error(t, err, "unknown keys are rejected")

	for name, body := range map[string]string{
		"quantiles":      "segment:\n  mid_quantile: 0.9\n",
		"max_slices":     "segment:\n  max_slices: -1\n",
		"min_slice_rows": "segment:\n  min_slice_rows: -5\n",
		"mape_zero":      "timeseries:\n  mape_epsilon: 0\n",
		"mape_negative":  "timeseries:\n  mape_epsilon: -0.5\n",
		"mape_nan":       "timeseries:\n  mape_epsilon: .nan\n",
		"push_limit":     "strategy:\n  push_limit: -1\n",
		"top_products":   "strategy:\n  top_products_count: -2\n",
	} {
		path := filepath.Join(dir, name+".yaml")
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		_, err = LoadAnalysis(path)
		assert.Error(t, err, name)
	}
}

func TestAnalysisValidate_ZeroSlicesAllowed(t *testing.T) {
	cfg := DefaultAnalysis()
	cfg.Segment.MaxSlices = 0
	cfg.Segment.MinSliceRows = 0
	assert.NoError(t, cfg.Validate())
}

func TestLoadAnalysis_EmptyPath(t *testing.T) {
	cfg, err := LoadAnalysis("")
	require.NoError(t, err)
	assert.Equal(t, DefaultAnalysis(), cfg)
}
