// Package churn scores customers for churn from purchase recency.
//
// The label is synthetic: a customer is "churned" when their last purchase
// is more than LabelDays before the last purchase in the dataset. The model
// is then fit on that same recency, so the precision and recall it reports
// measure in-sample agreement with its own training label. They are not an
// estimate of predictive performance on real churn.
package churn

import (
	"errors"
	"slices"
	"time"

	"sales-insight/internal/models"
)

type Options struct {
	LabelDays            int     `yaml:"label_days"`
	ProbabilityThreshold float64 `yaml:"probability_threshold"`
	InactivityDays       int     `yaml:"inactivity_days"`
	Regularization       float64 `yaml:"regularization"`
	MaxIterations        int     `yaml:"max_iterations"`
}

func DefaultOptions() Options {
	return Options{
		LabelDays:            90,
		ProbabilityThreshold: 0.70,
		InactivityDays:       60,
		Regularization:       1.0,
		MaxIterations:        100,
	}
}

type Model struct {
	AsOf        time.Time            `json:"as_of"`
	LabelDays   int                  `json:"label_days"`
	Threshold   float64              `json:"threshold"`
	Coefficient float64              `json:"coefficient"`
	Intercept   float64              `json:"intercept"`
	Records     []models.ChurnRecord `json:"records"`
	Flagged     []string             `json:"flagged"`
	Precision   float64              `json:"precision"`
	Recall      float64              `json:"recall"`
	// InSample is always true: precision and recall are scored against the
	// label the model was trained on.
	InSample bool `json:"in_sample"`
}

// Rate is the share of scored customers that were flagged.
func (m Model) Rate() float64 {
	if len(m.Records) == 0 {
		return 0
	}
	return float64(len(m.Flagged)) / float64(len(m.Records))
}

type lastPurchase struct {
	customer string
	last     time.Time
}

// lastPurchases returns each customer's most recent parseable date, in
// first-appearance order, and the latest date of any row, including rows
// without a customer.
func lastPurchases(t *models.Table, roles models.RoleMap) ([]lastPurchase, time.Time) {
	custCol, _ := roles.Column(models.RoleCustomer)
	dateCol, _ := roles.Column(models.RoleDate)

	index := make(map[string]int)
	var out []lastPurchase
	var asOf time.Time
	for _, r := range t.Rows {
		d, ok := models.Date(r[dateCol])
		if !ok {
			continue
		}
		if d.After(asOf) {
			asOf = d
		}
		c := r[custCol]
		if c == "" {
			continue
		}
		i, seen := index[c]
		if !seen {
			index[c] = len(out)
			out = append(out, lastPurchase{customer: c, last: d})
			continue
		}
		if d.After(out[i].last) {
			out[i].last = d
		}
	}
	return out, asOf
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

// Fit labels, models and flags every customer. A dataset where every
// customer carries the same label cannot support a logistic fit; that case
// is returned as degenerate with recency and labels but no probabilities.
func Fit(t *models.Table, roles models.RoleMap, opts Options) models.Outcome[Model] {
	if out, ok := models.Require[Model](roles, models.RoleCustomer, models.RoleDate); !ok {
		return out
	}
	purchases, asOf := lastPurchases(t, roles)
	m := Model{
		AsOf:      asOf,
		LabelDays: opts.LabelDays,
		Threshold: opts.ProbabilityThreshold,
		InSample:  true,
		Flagged:   []string{},
	}
	if len(purchases) == 0 {
		m.Records = []models.ChurnRecord{}
		return models.Insufficient("no customer has a parseable purchase date", m)
	}

	xs := make([]float64, len(purchases))
	ys := make([]float64, len(purchases))
	m.Records = make([]models.ChurnRecord, len(purchases))
	positives := 0
	for i, p := range purchases {
		rec := models.ChurnRecord{
			Customer:     p.customer,
			LastPurchase: p.last,
			RecencyDays:  daysBetween(p.last, asOf),
		}
		rec.Churned = rec.RecencyDays > opts.LabelDays
		if rec.Churned {
			ys[i] = 1
			positives++
		}
		xs[i] = float64(rec.RecencyDays)
		m.Records[i] = rec
	}

	if positives == 0 || positives == len(purchases) {
		return models.Degenerate("churn label has a single class; logistic model not fit", m)
	}
	if slices.Min(xs) == slices.Max(xs) {
		return models.Degenerate("recency has zero variance; logistic model not fit", m)
	}

	fit, err := fitLogit(xs, ys, opts.Regularization, opts.MaxIterations)
	note := ""
	if errors.Is(err, errNotConverged) {
		note = "logistic fit stopped before convergence"
	}
	m.Coefficient, m.Intercept = fit.w, fit.b

	var tp, fp, fn int
	for i := range m.Records {
		rec := &m.Records[i]
		rec.Probability = fit.prob(xs[i])
		rec.Flagged = rec.Probability > opts.ProbabilityThreshold
		if rec.Flagged {
			m.Flagged = append(m.Flagged, rec.Customer)
		}
		switch {
		case rec.Flagged && rec.Churned:
			tp++
		case rec.Flagged:
			fp++
		case rec.Churned:
			fn++
		}
	}
	m.Precision = models.Round(ratio(tp, tp+fp), 2)
	m.Recall = models.Round(ratio(tp, tp+fn), 2)

	if note != "" {
		return models.AvailableWithNote(m, note)
	}
	return models.Available(m)
}

// ratio returns 0 for an empty denominator.
func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

type InactiveCustomer struct {
	Customer     string    `json:"customer"`
	LastPurchase time.Time `json:"last_purchase"`
	DaysInactive int       `json:"days_inactive"`
	// Score is a fixed logistic curve centred on the inactivity window with
	// a 30-day scale; it needs no fitting.
	Score float64 `json:"score"`
}

// Inactive lists customers whose last purchase is more than days before the
// dataset's last purchase, most inactive first.
func Inactive(t *models.Table, roles models.RoleMap, days int) models.Outcome[[]InactiveCustomer] {
	if out, ok := models.Require[[]InactiveCustomer](roles, models.RoleCustomer, models.RoleDate); !ok {
		return out
	}
	purchases, asOf := lastPurchases(t, roles)
	out := []InactiveCustomer{}
	for _, p := range purchases {
		d := daysBetween(p.last, asOf)
		if d <= days {
			continue
		}
		out = append(out, InactiveCustomer{
			Customer:     p.customer,
			LastPurchase: p.last,
			DaysInactive: d,
			Score:        models.Round(sigmoid(float64(d-days)/30), 4),
		})
	}
	slices.SortStableFunc(out, func(a, b InactiveCustomer) int {
		return b.DaysInactive - a.DaysInactive
	})
	return models.Available(out)
}
