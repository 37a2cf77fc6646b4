package timeseries

import (
	"github.com/montanaflynn/stats"

	"sales-insight/internal/models"
)

// TrailingGrowth compares the mean of the last window months with the mean
// of the window before it and returns (recent-prior)/prior. It returns 0
// when fewer than 2*window points exist or the prior mean is exactly 0.
func TrailingGrowth(series []models.MonthPoint, window int) float64 {
	if window <= 0 || len(series) < 2*window {
		return 0
	}
	v := Values(series)
	n := len(v)

	prior, err := stats.Mean(v[n-2*window : n-window])
	if err != nil || prior == 0 {
		return 0
	}
	recent, err := stats.Mean(v[n-window:])
	if err != nil {
		return 0
	}
	return (recent - prior) / prior
}
