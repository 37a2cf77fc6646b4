package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sales-insight/internal/models"
)

func ptr[T any](v T) *T { return &v }

func TestGenerate_RuleOrder(t *testing.T) {
	in := Inputs{
		TotalRevenue:       1000,
		TopCustomers:       []models.KeyValue{{Key: "acme", Value: 450}},
		TopProducts:        []models.KeyValue{{Key: "a", Value: 300}, {Key: "b", Value: 150}, {Key: "c", Value: 60}, {Key: "d", Value: 10}},
		TopRegions:         []models.KeyValue{{Key: "north", Value: 400}},
		NextMonthForecast:  ptr(-5.0),
		ChurnCount:         ptr(11),
		HighValueCustomers: ptr(4),
	}
	assert.Equal(t, []string{
		MsgRetention, MsgConcentration, MsgRegional, MsgDeclining, MsgWinBack, MsgExpandMidTier,
	}, Generate(in, DefaultOptions()))
}

func TestGenerate_Thresholds(t *testing.T) {
	tests := []struct {
		name string
		in   Inputs
		want []string
	}{
		{
			name: "breadth when top three under half",
			in: Inputs{
				TotalRevenue: 1000,
				TopCustomers: []models.KeyValue{{Key: "x", Value: 400}},
				TopProducts:  []models.KeyValue{{Key: "a", Value: 200}, {Key: "b", Value: 150}, {Key: "c", Value: 100}},
				TopRegions:   []models.KeyValue{{Key: "n", Value: 350}},
			},
			want: []string{MsgBreadth},
		},
		{
			name: "concentration at exactly half",
			in: Inputs{
				TotalRevenue: 1000,
				TopProducts:  []models.KeyValue{{Key: "a", Value: 300}, {Key: "b", Value: 200}},
			},
			want: []string{MsgConcentration},
		},
		{
			name: "boundaries do not fire",
			in: Inputs{
				TotalRevenue:       1000,
				NextMonthForecast:  ptr(0.0),
				ChurnCount:         ptr(10),
				HighValueCustomers: ptr(5),
			},
			want: []string{},
		},
		{
			name: "zero total skips share rules",
			in: Inputs{
				TopCustomers: []models.KeyValue{{Key: "x", Value: 0}},
				TopProducts:  []models.KeyValue{{Key: "a", Value: 0}},
			},
			want: []string{},
		},
		{
			name: "unavailable inputs stay silent",
			in:   Inputs{TotalRevenue: 100},
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Generate(tt.in, DefaultOptions()))
		})
	}
}

func TestGenerate_CustomThresholds(t *testing.T) {
	opts := DefaultOptions()
	opts.ChurnCount = 2
	got := Generate(Inputs{ChurnCount: ptr(3)}, opts)
	assert.Equal(t, []string{MsgWinBack}, got)
}

func TestUplift(t *testing.T) {
	assert.Empty(t, Uplift(nil))

	plan := Uplift([]models.KeyValue{{Key: "p6"}, {Key: "p7"}, {Key: "p8"}, {Key: "p9"}})
	assert.Len(t, plan, 5)
	assert.Equal(t, "Bundle p6, p7, p8 with star products to increase visibility.", plan[0])
}

func TestBoard(t *testing.T) {
	zones := []models.ZoneRecord{
		{Key: "q", Revenue: 100, Category: models.CategoryQuestionMark},
		{Key: "s", Revenue: 500, Category: models.CategoryStar},
		{Key: "c", Revenue: 300, Category: models.CategoryCashCow},
		{Key: "d1", Revenue: 40, Category: models.CategoryDead},
		{Key: "d2", Revenue: 60, Category: models.CategoryDead},
	}

	b := Board(zones, 1000, DefaultOptions(), MsgWinBack)
	assert.Equal(t, "s", b.Push[0].Key)
	assert.Equal(t, "q", b.Push[1].Key)
	assert.Equal(t, "d2", b.Leak[0].Key)
	assert.Equal(t, 60.0, b.PushSharePct)
	assert.Equal(t, 10.0, b.LeakSharePct)
	assert.Equal(t, []string{"Push s, q", "Bundle or exit dead products", MsgWinBack}, b.NextActions)
}

func TestBoard_Empty(t *testing.T) {
	b := Board(nil, 0, DefaultOptions())
	assert.Empty(t, b.Push)
	assert.Empty(t, b.Leak)
	assert.Zero(t, b.PushSharePct)
	assert.Empty(t, b.NextActions)
}
