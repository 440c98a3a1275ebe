package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget/internal/core"
)

func TestStatsNegativeRemaining(t *testing.T) {
	l := newTestLedger()
	p := core.MonthlyPeriod(month(t, 2026, 6))
	cat, err := l.CreateCategory(p, "Sorties", core.AmountFromInt(100))
	require.NoError(t, err)
	_, err = l.Impute(ImputeInput{Date: "2026-06-10", Source: core.NewCategoryRef(p, cat.ID), Name: "Concert", Amount: core.AmountFromInt(150)})
	require.NoError(t, err)

	st := l.Stats(p)
	assert.True(t, st.Rows[0].Remaining.Equal(core.AmountFromInt(-50)))
	assert.True(t, st.Totals.Remaining.Equal(core.AmountFromInt(-50)))
}

func TestStatsTotalsAreRecomputedFromRows(t *testing.T) {
	l := newTestLedger()
	p := core.MonthlyPeriod(month(t, 2026, 8))
	amounts := map[string][]string{
		"Courses":   {"12.30", "45", "0.70"},
		"Transport": {"75.20"},
		"Vide":      nil,
	}
	for _, name := range []string{"Courses", "Transport", "Vide"} {
		cat, err := l.CreateCategory(p, name, core.AmountFromInt(100))
		require.NoError(t, err)
		for _, a := range amounts[name] {
			_, err := l.Impute(ImputeInput{Date: "2026-08-01", Source: core.NewCategoryRef(p, cat.ID), Name: "e", Amount: core.MustAmount(a)})
			require.NoError(t, err)
		}
	}

	st := l.Stats(p)
	sum := core.Totals{}
	for _, r := range st.Rows {
		rowSpent := core.Zero
		for _, e := range r.Expenses {
			rowSpent = rowSpent.Add(e.Amount)
		}
		assert.True(t, r.Spent.Equal(rowSpent), r.Name)
		sum = sum.Add(r)
	}
	assert.True(t, st.Totals.Budget.Equal(sum.Budget))
	assert.True(t, st.Totals.Spent.Equal(core.MustAmount("133.20")))
	assert.True(t, st.Totals.Remaining.Equal(core.MustAmount("166.80")))

	assert.Equal(t, st, l.Stats(p), "stats are idempotent")
}

func TestGlobalStatsIgnoreAnnual(t *testing.T) {
	l := newTestLedger()
	k := month(t, 2026, 9)
	_, err := l.CreateCategory(core.MonthlyPeriod(k), "Loyer", core.AmountFromInt(800))
	require.NoError(t, err)
	_, err = l.CreateCategory(core.AnnualPeriod(k.YearKey()), "Impôts", core.AmountFromInt(3000))
	require.NoError(t, err)

	g := l.GlobalStats(k)
	assert.True(t, g.Budget.Equal(core.AmountFromInt(800)))
}

func TestChoices(t *testing.T) {
	l := newTestLedger()
	k := month(t, 2026, 11)
	m, err := l.CreateCategory(core.MonthlyPeriod(k), "Courses", core.AmountFromInt(300))
	require.NoError(t, err)
	a, err := l.CreateCategory(core.AnnualPeriod(2026), "Cadeaux", core.AmountFromInt(500))
	require.NoError(t, err)

	ch, err := l.Choices("2026-11-20")
	require.NoError(t, err)
	assert.Equal(t, "2026-11", ch.Month)
	assert.Equal(t, "2026", ch.Year)
	assert.Equal(t, []Choice{{Ref: "m:2026-11:" + m.ID, Name: "Courses"}}, ch.Monthly)
	assert.Equal(t, []Choice{{Ref: "a:2026:" + a.ID, Name: "Cadeaux"}}, ch.Annual)

	ch, err = l.Choices("2026-12-01")
	require.NoError(t, err)
	assert.Empty(t, ch.Monthly)
	assert.Len(t, ch.Annual, 1)

	_, err = l.Choices("1999-01-01")
	assert.ErrorIs(t, err, core.ErrDateOutOfRange)
}
