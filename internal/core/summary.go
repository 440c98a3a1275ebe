package core

// Totals are the budget, spent and remaining sums of a set of categories.
type Totals struct {
	Budget    Amount `json:"budget"`
	Spent     Amount `json:"spent"`
	Remaining Amount `json:"remaining"`
}

// Row is the computed view of one category.
type Row struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Budget    Amount    `json:"budget"`
	Spent     Amount    `json:"spent"`
	Remaining Amount    `json:"remaining"`
	Expenses  []Expense `json:"expenses"`
}

// Stats is the summary of one period: a row per category, in collection
// order, and the totals recomputed from the rows.
type Stats struct {
	Period PeriodKey `json:"-"`
	Rows   []Row     `json:"rows"`
	Totals Totals    `json:"totals"`
}

// Add accumulates a row into the totals.
func (t Totals) Add(r Row) Totals {
	return Totals{
		Budget:    t.Budget.Add(r.Budget),
		Spent:     t.Spent.Add(r.Spent),
		Remaining: t.Remaining.Add(r.Remaining),
	}
}
