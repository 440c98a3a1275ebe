package ledger

import "budget/internal/core"

type (
	// Choice is a category that an expense can be logged against.
	Choice struct {
		Ref  string `json:"ref"`
		Name string `json:"name"`
	}

	// Choices lists the candidate source categories for a date.
	Choices struct {
		Month   string   `json:"month"`
		Year    string   `json:"year"`
		Monthly []Choice `json:"monthly"`
		Annual  []Choice `json:"annual"`
	}
)

// Choices returns the monthly categories of the date's month and the annual
// categories of its year. The date must be in the supported range.
func (l *Ledger) Choices(date string) (Choices, error) {
	d, err := core.ParseDate(date)
	if err != nil {
		return Choices{}, err
	}
	month, err := d.MonthKey()
	if err != nil {
		return Choices{}, err
	}
	mp := core.MonthlyPeriod(month)
	yp := core.AnnualPeriod(month.YearKey())
	return Choices{
		Month:   mp.String(),
		Year:    yp.String(),
		Monthly: l.choicesOf(mp),
		Annual:  l.choicesOf(yp),
	}, nil
}

func (l *Ledger) choicesOf(p core.PeriodKey) []Choice {
	out := []Choice{}
	if c, ok := l.collection(p); ok {
		c.each(func(cat *core.Category) {
			out = append(out, Choice{Ref: core.NewCategoryRef(p, cat.ID).String(), Name: cat.Name})
		})
	}
	return out
}
