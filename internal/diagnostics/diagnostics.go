// Package diagnostics reports data quality issues and distribution patterns
// that qualify the rest of an analysis.
package diagnostics

import (
	"math"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"

	"sales-insight/internal/aggregate"
	"sales-insight/internal/models"
)

type Options struct {
	MaxMissingRevenue  float64 `yaml:"max_missing_revenue"`
	MinCustomers       int     `yaml:"min_customers"`
	SkewThreshold      float64 `yaml:"skew_threshold"`
	ConcentrationTopN  int     `yaml:"concentration_top_n"`
	ConcentrationShare float64 `yaml:"concentration_share"`
	MultiRegionCount   int     `yaml:"multi_region_count"`
}

func DefaultOptions() Options {
	return Options{
		MaxMissingRevenue:  0.10,
		MinCustomers:       5,
		SkewThreshold:      2,
		ConcentrationTopN:  10,
		ConcentrationShare: 0.40,
		MultiRegionCount:   5,
	}
}

const (
	IssueEmpty           = "Dataset is empty"
	IssueFewCustomers    = "Very few unique customers"
	PatternSkewed        = "Highly skewed revenue (few dominate)"
	PatternConcentration = "Revenue concentration risk"
	PatternMultiRegion   = "Multi-region behavior"
)

// MissingRevenueIssue reports a revenue column whose missing share exceeds
// maxShare.
func MissingRevenueIssue(maxShare float64) string {
	pct := strconv.FormatFloat(models.Round(maxShare*100, 2), 'f', -1, 64)
	return "Revenue column has >" + pct + "% missing values"
}

// Health lists data quality issues. An empty dataset short-circuits the
// other checks.
func Health(t *models.Table, roles models.RoleMap, opts Options) []string {
	issues := []string{}
	if t.Len() == 0 {
		return append(issues, IssueEmpty)
	}
	if col, ok := roles.Column(models.RoleRevenue); ok {
		missing := 0
		for _, r := range t.Rows {
			if !models.Numeric(r[col]) {
				missing++
			}
		}
		if float64(missing)/float64(t.Len()) > opts.MaxMissingRevenue {
			issues = append(issues, MissingRevenueIssue(opts.MaxMissingRevenue))
		}
	}
	if col, ok := roles.Column(models.RoleCustomer); ok {
		if len(t.Distinct(col)) < opts.MinCustomers {
			issues = append(issues, IssueFewCustomers)
		}
	}
	return issues
}

type Patterns struct {
	Messages      []string `json:"messages"`
	Skewness      *float64 `json:"revenue_skewness,omitempty"`
	TopShare      *float64 `json:"top_customer_share,omitempty"`
	ProductCount  int      `json:"product_count"`
	RegionCount   int      `json:"region_count"`
	CustomerCount int      `json:"customer_count"`
}

// Detect describes the shape of the revenue distribution.
func Detect(t *models.Table, roles models.RoleMap, opts Options) Patterns {
	p := Patterns{Messages: []string{}}

	if col, ok := roles.Column(models.RoleRevenue); ok && t.Len() > 0 {
		values := make([]float64, len(t.Rows))
		var sum float64
		for i, r := range t.Rows {
			values[i] = models.Number(r[col])
			sum += values[i]
		}
		if skew, ok := Skewness(values); ok {
			p.Skewness = &skew
			if skew > opts.SkewThreshold {
				p.Messages = append(p.Messages, PatternSkewed)
			}
		}
		if ranked := aggregate.ByDimension(t, roles, models.RoleCustomer, models.RoleRevenue); ranked.OK() && sum > 0 {
			share := aggregate.Sum(aggregate.Top(ranked.Value, opts.ConcentrationTopN)) / sum
			p.TopShare = &share
			if share > opts.ConcentrationShare {
				p.Messages = append(p.Messages, PatternConcentration)
			}
		}
	}

	if col, ok := roles.Column(models.RoleRegion); ok {
		p.RegionCount = len(t.Distinct(col))
		if p.RegionCount > opts.MultiRegionCount {
			p.Messages = append(p.Messages, PatternMultiRegion)
		}
	}
	if col, ok := roles.Column(models.RoleProduct); ok {
		p.ProductCount = len(t.Distinct(col))
	}
	if col, ok := roles.Column(models.RoleCustomer); ok {
		p.CustomerCount = len(t.Distinct(col))
	}
	return p
}

// Skewness is the adjusted Fisher-Pearson sample skewness. It needs at least
// three values with non-zero spread.
func Skewness(values []float64) (float64, bool) {
	n := float64(len(values))
	if n < 3 {
		return 0, false
	}
	mean, err := stats.Mean(values)
	if err != nil {
		return 0, false
	}
	var m2, m3 float64
	for _, v := range values {
		d := v - mean
		m2 += d * d
		m3 += d * d * d
	}
	m2 /= n
	m3 /= n
	if m2 == 0 {
		return 0, false
	}
	g1 := m3 / math.Pow(m2, 1.5)
	return g1 * math.Sqrt(n*(n-1)) / (n - 2), true
}

// DiscountEffect is the linear association between discount and revenue.
type DiscountEffect struct {
	Correlation float64 `json:"correlation"`
	Samples     int     `json:"samples"`
	Reading     string  `json:"reading"`
}

// Discounts correlates the discount column with row revenue.
func Discounts(t *models.Table, roles models.RoleMap) models.Outcome[DiscountEffect] {
	if out, ok := models.Require[DiscountEffect](roles, models.RoleDiscount, models.RoleRevenue); !ok {
		return out
	}
	if t.Len() < 3 {
		return models.Insufficient("need at least 3 rows", DiscountEffect{Samples: t.Len()})
	}
	discCol, _ := roles.Column(models.RoleDiscount)
	revCol, _ := roles.Column(models.RoleRevenue)
	disc := make(stats.Float64Data, len(t.Rows))
	rev := make(stats.Float64Data, len(t.Rows))
	for i, r := range t.Rows {
		disc[i] = models.Number(r[discCol])
		rev[i] = models.Number(r[revCol])
	}

	effect := DiscountEffect{Samples: len(t.Rows)}
	sd1, _ := stats.StandardDeviationPopulation(disc)
	sd2, _ := stats.StandardDeviationPopulation(rev)
	if sd1 == 0 || sd2 == 0 {
		return models.Degenerate("discount or revenue is constant", effect)
	}
	corr, err := stats.Correlation(disc, rev)
	if err != nil {
		return models.Degenerate(err.Error(), effect)
	}
	effect.Correlation = models.Round(corr, 4)
	effect.Reading = reading(corr)
	return models.Available(effect)
}

func reading(corr float64) string {
	var b strings.Builder
	switch a := math.Abs(corr); {
	case a >= 0.5:
		b.WriteString("strong")
	case a >= 0.2:
		b.WriteString("moderate")
	default:
		return "no meaningful relationship between discount and revenue"
	}
	if corr > 0 {
		b.WriteString(" positive: deeper discounts go with higher revenue")
	} else {
		b.WriteString(" negative: deeper discounts go with lower revenue")
	}
	return b.String()
}
