package ledger

import "budget/internal/core"

// CategoryPatch carries the fields of an update. Nil fields are left as is.
type CategoryPatch struct {
	Name   *string
	Budget *core.Amount
}

// CreateCategory validates name and budget, then inserts a new category in
// the collection of period. Nothing is written on failure.
func (l *Ledger) CreateCategory(period core.PeriodKey, name string, budget core.Amount) (core.Category, error) {
	if err := period.Validate(); err != nil {
		return core.Category{}, err
	}
	name, err := core.ValidateName(name)
	if err != nil {
		return core.Category{}, err
	}
	if err := budget.Validate(); err != nil {
		return core.Category{}, err
	}

	cat := &core.Category{
		ID:       l.id(),
		Name:     name,
		Budget:   budget,
		Expenses: []core.Expense{},
	}
	l.ensurePeriodOf(period).add(cat)
	return cat.Clone(), nil
}

// UpdateCategory applies patch to the referenced category in place.
func (l *Ledger) UpdateCategory(ref core.CategoryRef, patch CategoryPatch) (core.Category, error) {
	cat, err := l.lookup(ref)
	if err != nil {
		return core.Category{}, err
	}

	name := cat.Name
	if patch.Name != nil {
		if name, err = core.ValidateName(*patch.Name); err != nil {
			return core.Category{}, err
		}
	}
	budget := cat.Budget
	if patch.Budget != nil {
		if err := patch.Budget.Validate(); err != nil {
			return core.Category{}, err
		}
		budget = *patch.Budget
	}

	cat.Name = name
	cat.Budget = budget
	return cat.Clone(), nil
}

// DeleteCategory removes the category and its expenses. It reports whether
// anything was removed; deleting an absent category is a no-op.
func (l *Ledger) DeleteCategory(ref core.CategoryRef) bool {
	c, ok := l.collection(ref.Period)
	if !ok {
		return false
	}
	return c.remove(ref.ID)
}

// ensurePeriodOf touches the containers holding p. A monthly period also
// touches its year; an annual period touches only the year.
func (l *Ledger) ensurePeriodOf(p core.PeriodKey) *categories {
	if p.Scope == core.Monthly {
		l.EnsurePeriod(p.MonthKey())
	}
	return l.ensure(p)
}
