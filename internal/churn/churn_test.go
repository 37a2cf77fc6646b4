package churn

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-insight/internal/models"
)

var asOf = time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC)

func recencyTable(recencies ...int) (*models.Table, models.RoleMap) {
	var rows []models.Row
	for _, d := range recencies {
		cust := fmt.Sprintf("c%d", d)
		last := asOf.AddDate(0, 0, -d)
		// an older purchase first, so the model has to pick the latest one
		rows = append(rows,
			models.Row{"customer": cust, "date": last.AddDate(0, 0, -400).Format("2006-01-02")},
			models.Row{"customer": cust, "date": last.Format("2006-01-02")},
		)
	}
	// keeps the global last date at asOf even when no customer is recent
	rows = append(rows,
		models.Row{"customer": "", "date": asOf.Format("2006-01-02")},
		models.Row{"customer": "ghost", "date": "not-a-date"},
	)
	roles := models.NewRoleMap(map[models.Role]string{models.RoleCustomer: "customer", models.RoleDate: "date"}, false)
	return models.NewTable([]string{"customer", "date"}, rows), roles
}

func probabilityOf(t *testing.T, m Model, customer string) float64 {
	t.Helper()
	for _, r := range m.Records {
		if r.Customer == customer {
			return r.Probability
		}
	}
	t.Fatalf("customer %s not scored", customer)
	return 0
}

func TestFit_ScoresRecency(t *testing.T) {
	table, roles := recencyTable(0, 5, 10, 20, 30, 45, 60, 80, 100, 120, 150, 200, 250, 300)

	out := Fit(table, roles, DefaultOptions())
	require.Equal(t, models.StatusOK, out.Status, out.Reason)
	m := out.Value

	assert.True(t, m.InSample, "precision/recall are in-sample against the synthetic label")
	assert.Equal(t, asOf, m.AsOf)
	assert.Len(t, m.Records, 14)
	assert.Greater(t, m.Coefficient, 0.0)

	for _, r := range m.Records {
		assert.Equal(t, r.RecencyDays > 90, r.Churned, r.Customer)
	}

	assert.Greater(t, probabilityOf(t, m, "c200"), probabilityOf(t, m, "c10"))
	assert.Contains(t, m.Flagged, "c300")
	assert.NotContains(t, m.Flagged, "c0")
	assert.LessOrEqual(t, len(m.Flagged), len(m.Records))

	for _, v := range []float64{m.Precision, m.Recall} {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
		assert.InDelta(t, math.Round(v*100), v*100, 1e-9, "rounded to 2 decimals")
	}
	assert.InDelta(t, float64(len(m.Flagged))/14, m.Rate(), 1e-12)
}

func TestFit_ProbabilityMonotonicInRecency(t *testing.T) {
	table, roles := recencyTable(1, 7, 14, 33, 64, 91, 95, 130, 181, 365)
	out := Fit(table, roles, DefaultOptions())
	require.True(t, out.OK())

	prev := -1.0
	for _, d := range []int{1, 7, 14, 33, 64, 91, 95, 130, 181, 365} {
		p := probabilityOf(t, out.Value, fmt.Sprintf("c%d", d))
		assert.GreaterOrEqual(t, p, prev)
		prev = p
	}
}

func TestFit_SingleClassIsDegenerate(t *testing.T) {
	table, roles := recencyTable(0, 10, 20, 30)
	out := Fit(table, roles, DefaultOptions())

	assert.Equal(t, models.StatusDegenerate, out.Status)
	assert.NotEmpty(t, out.Reason)
	assert.Len(t, out.Value.Records, 4)
	assert.Empty(t, out.Value.Flagged)
	for _, r := range out.Value.Records {
		assert.False(t, r.Churned)
		assert.Zero(t, r.Probability)
	}
}

func TestFit_MissingRoles(t *testing.T) {
	roles := models.NewRoleMap(map[models.Role]string{models.RoleCustomer: "customer"}, false)
	out := Fit(models.NewTable([]string{"customer"}, nil), roles, DefaultOptions())

	assert.Equal(t, models.StatusMissingRole, out.Status)
	assert.Equal(t, []models.Role{models.RoleDate}, out.Missing)
}

func TestFit_NoParseableDates(t *testing.T) {
	roles := models.NewRoleMap(map[models.Role]string{models.RoleCustomer: "c", models.RoleDate: "d"}, false)
	table := models.NewTable([]string{"c", "d"}, []models.Row{{"c": "x", "d": "soon"}})

	out := Fit(table, roles, DefaultOptions())
	assert.Equal(t, models.StatusInsufficientData, out.Status)
}

func TestInactive(t *testing.T) {
	table, roles := recencyTable(5, 61, 200, 60)
	out := Inactive(table, roles, 60)
	require.True(t, out.OK())
	require.Len(t, out.Value, 2)

	assert.Equal(t, "c200", out.Value[0].Customer)
	assert.Equal(t, 200, out.Value[0].DaysInactive)
	assert.Equal(t, "c61", out.Value[1].Customer)
	assert.Greater(t, out.Value[0].Score, out.Value[1].Score)
	assert.Greater(t, out.Value[1].Score, 0.5)
}

func TestInactive_AsOfIncludesRowsWithoutCustomer(t *testing.T) {
	roles := models.NewRoleMap(map[models.Role]string{models.RoleCustomer: "customer", models.RoleDate: "date"}, false)
	table := models.NewTable([]string{"customer", "date"}, []models.Row{
		{"customer": "a", "date": "2024-01-01"},
		{"customer": "b", "date": "2024-03-01"},
		{"customer": "", "date": "2024-12-31"},
	})

	purchases, last := lastPurchases(table, roles)
	assert.Equal(t, asOf, last)
	require.Len(t, purchases, 2)

	out := Inactive(table, roles, 60)
	require.True(t, out.OK())
	require.Len(t, out.Value, 2)
	assert.Equal(t, "a", out.Value[0].Customer)
	assert.Equal(t, 365, out.Value[0].DaysInactive)
	assert.Equal(t, "b", out.Value[1].Customer)
	assert.Equal(t, 305, out.Value[1].DaysInactive)
}

func TestFitLogit_Separable(t *testing.T) {
	xs := []float64{0, 1, 2, 3, 10, 11, 12, 13}
	ys := []float64{0, 0, 0, 0, 1, 1, 1, 1}
	m, err := fitLogit(xs, ys, 1.0, 100)
	require.NoError(t, err)

	assert.Greater(t, m.w, 0.0)
	assert.Less(t, m.prob(0), 0.5)
	assert.Greater(t, m.prob(13), 0.5)
}
