package ledger

import (
	"fmt"
	"strings"

	"budget/internal/core"
)

type (
	// ImputeInput is an expense logged against a source category. Source is
	// the category the user picked, in whatever period it was listed; Date
	// alone decides where the expense lands.
	ImputeInput struct {
		Date   string
		Source core.CategoryRef
		Name   string
		Amount core.Amount
	}

	// Imputation is the outcome of Impute.
	Imputation struct {
		Target        core.PeriodKey
		Category      core.Category
		Expense       core.Expense
		MirrorCreated bool
	}
)

// Impute places an expense in the period its date belongs to.
//
// The target collection has the source's scope: the monthly categories of
// the date's month for a monthly source, the annual categories of the
// date's year for an annual one. Within it, the first category (insertion
// order) whose name equals the source name receives the expense, even when
// it is not the source itself. When none matches, a mirror category is
// created with the source name and a copy of its current budget.
//
// Names are the identity across periods: renaming a category means later
// imputations no longer find its mirrors.
//
// Every validation and lookup happens before the first write, so a failed
// call leaves the ledger untouched.
func (l *Ledger) Impute(in ImputeInput) (Imputation, error) {
	d, err := core.ParseDate(in.Date)
	if err != nil {
		return Imputation{}, err
	}
	month, err := d.MonthKey()
	if err != nil {
		return Imputation{}, err
	}
	name, err := core.ValidateName(in.Name)
	if err != nil {
		return Imputation{}, err
	}
	if err := in.Amount.Validate(); err != nil {
		return Imputation{}, err
	}

	src, err := l.lookup(in.Source)
	if err != nil {
		return Imputation{}, fmt.Errorf("%w: %s", core.ErrSourceCategoryNotFound, in.Source)
	}
	srcName, srcBudget := src.Name, src.Budget

	l.EnsurePeriod(month)
	target := core.PeriodFor(in.Source.Scope(), month)
	coll := l.ensure(target)

	cat, found := coll.findByName(srcName)
	if !found {
		cat = &core.Category{
			ID:       l.id(),
			Name:     srcName,
			Budget:   srcBudget,
			Expenses: []core.Expense{},
		}
		coll.add(cat)
	}

	exp := core.Expense{
		ID:     l.id(),
		Date:   strings.TrimSpace(in.Date),
		Name:   name,
		Amount: in.Amount,
	}
	cat.Expenses = append(cat.Expenses, exp)

	return Imputation{
		Target:        target,
		Category:      cat.Clone(),
		Expense:       exp,
		MirrorCreated: !found,
	}, nil
}
