package reshape

import (
	"testing"

	"MarketScout/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statement(periods []string, rows map[string][]float64, order ...string) *model.Table {
	t := model.NewTable("", periods...)
	for _, name := range order {
		vals := make([]model.Value, len(periods))
		for i, v := range rows[name] {
			vals[i] = model.Number(v)
		}
		_ = t.AppendRow(name, vals...)
	}
	return t
}

func TestStatements_ChronologicalInnerJoin(t *testing.T) {
	cashflow := statement(
		[]string{"2024-06-30", "2023-12-31", "2024-03-31", "2023-09-30"},
		map[string][]float64{"FreeCashFlow": {4, 2, 3, 1}},
		"FreeCashFlow",
	)
	balance := statement(
		[]string{"2023-12-31", "2024-03-31", "2024-06-30"},
		map[string][]float64{"TotalAssets": {20, 30, 40}},
		"TotalAssets",
	)
	income := statement(
		[]string{"2024-03-31", "2024-06-30", "2023-12-31", "2023-09-30"},
		map[string][]float64{"TotalRevenue": {300, 400, 200, 100}},
		"TotalRevenue",
	)

	got, err := Statements(cashflow, balance, income, model.Quarterly)
	require.NoError(t, err)

	assert.Equal(t, []string{"2023Q4", "2024Q1", "2024Q2"}, got.Columns)
	assert.Equal(t, []string{"FreeCashFlow", "TotalAssets", "TotalRevenue"}, got.Index)
	assert.Equal(t, model.Number(2), got.Get("FreeCashFlow", "2023Q4"))
	assert.Equal(t, model.Number(40), got.Get("TotalAssets", "2024Q2"))
	assert.Equal(t, model.Number(300), got.Get("TotalRevenue", "2024Q1"))
}

func TestStatements_OrderIndependent(t *testing.T) {
	periods := []string{"2021-12-31", "2023-12-31", "2022-12-31"}
	reversed := []string{"2022-12-31", "2023-12-31", "2021-12-31"}
	a := statement(periods, map[string][]float64{"A": {1, 3, 2}}, "A")
	b := statement(reversed, map[string][]float64{"B": {2, 3, 1}}, "B")
	c := statement(periods, map[string][]float64{"C": {1, 3, 2}}, "C")

	got, err := Statements(a, b, c, model.Yearly)
	require.NoError(t, err)
	assert.Equal(t, []string{"2021", "2022", "2023"}, got.Columns)
	for _, metric := range []string{"A", "B", "C"} {
		assert.Equal(t, model.Number(1), got.Get(metric, "2021"), metric)
		assert.Equal(t, model.Number(3), got.Get(metric, "2023"), metric)
	}
}

func TestStatements_NoSharedPeriods(t *testing.T) {
	a := statement([]string{"2021-12-31"}, map[string][]float64{"A": {1}}, "A")
	b := statement([]string{"2022-12-31"}, map[string][]float64{"B": {1}}, "B")
	c := statement([]string{"2021-12-31"}, map[string][]float64{"C": {1}}, "C")

	got, err := Statements(a, b, c, model.Yearly)
	require.NoError(t, err)
	assert.True(t, got.Empty())
}

func TestStatements_BadInput(t *testing.T) {
	a := statement([]string{"last year"}, map[string][]float64{"A": {1}}, "A")
	_, err := Statements(a, a, a, model.Yearly)
	assert.Error(t, err)

	_, err = Statements(a, a, a, "monthly")
	assert.ErrorIs(t, err, model.ErrInvalidFrequency)

	_, err = Statements(a, nil, a, model.Yearly)
	assert.Error(t, err)
}
