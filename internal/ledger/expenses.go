package ledger

import (
	"fmt"

	"budget/internal/core"
)

// ExpensePatch carries the fields of an expense edit. The date cannot be
// changed: moving an expense means deleting it and logging it again.
type ExpensePatch struct {
	Name   *string
	Amount *core.Amount
}

// EditExpense updates one expense of the referenced category.
func (l *Ledger) EditExpense(ref core.CategoryRef, expenseID string, patch ExpensePatch) (core.Expense, error) {
	cat, i, err := l.expense(ref, expenseID)
	if err != nil {
		return core.Expense{}, err
	}
	exp := cat.Expenses[i]
	if patch.Name != nil {
		name, err := core.ValidateName(*patch.Name)
		if err != nil {
			return core.Expense{}, err
		}
		exp.Name = name
	}
	if patch.Amount != nil {
		if err := patch.Amount.Validate(); err != nil {
			return core.Expense{}, err
		}
		exp.Amount = *patch.Amount
	}
	cat.Expenses[i] = exp
	return exp, nil
}

// DeleteExpense removes one expense, keeping the order of the others.
func (l *Ledger) DeleteExpense(ref core.CategoryRef, expenseID string) error {
	cat, i, err := l.expense(ref, expenseID)
	if err != nil {
		return err
	}
	cat.Expenses = append(cat.Expenses[:i], cat.Expenses[i+1:]...)
	return nil
}

func (l *Ledger) expense(ref core.CategoryRef, expenseID string) (*core.Category, int, error) {
	cat, err := l.lookup(ref)
	if err != nil {
		return nil, 0, err
	}
	for i, e := range cat.Expenses {
		if e.ID == expenseID {
			return cat, i, nil
		}
	}
	return nil, 0, fmt.Errorf("%w: %s in %s", core.ErrExpenseNotFound, expenseID, ref)
}
