package ledger

import "budget/internal/core"

// Stats summarizes the collection of p. Amounts that failed to decode are
// already zero, so the sums never fail. Reading does not create the period.
func (l *Ledger) Stats(p core.PeriodKey) core.Stats {
	st := core.Stats{Period: p, Rows: []core.Row{}}
	c, ok := l.collection(p)
	if !ok {
		return st
	}
	c.each(func(cat *core.Category) {
		spent := cat.Spent()
		row := core.Row{
			ID:        cat.ID,
			Name:      cat.Name,
			Budget:    cat.Budget,
			Spent:     spent,
			Remaining: cat.Budget.Sub(spent),
			Expenses:  append([]core.Expense{}, cat.Expenses...),
		}
		st.Rows = append(st.Rows, row)
		st.Totals = st.Totals.Add(row)
	})
	return st
}

// GlobalStats are the dashboard figures of month k. Only the monthly
// categories count; annual budgets are reported on their own.
func (l *Ledger) GlobalStats(k core.MonthKey) core.Totals {
	return l.Stats(core.MonthlyPeriod(k)).Totals
}
