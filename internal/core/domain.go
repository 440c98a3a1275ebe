package core

import (
	"fmt"
	"strings"
)

const (
	Monthly Scope = "monthly"
	Annual  Scope = "annual"
)

// MaxNameLength bounds category and expense labels.
const MaxNameLength = 200

type (
	// Scope tells whether a category belongs to a month or to a year.
	Scope string

	// Category is a named budget inside one period. Its expenses are kept in
	// append order.
	Category struct {
		ID       string    `json:"id"`
		Name     string    `json:"name"`
		Budget   Amount    `json:"budget"`
		Expenses []Expense `json:"expenses"`
	}

	// Expense is a dated cost. Date is the day it was incurred, which selects
	// the period it is imputed to.
	Expense struct {
		ID     string `json:"id"`
		Date   string `json:"date"`
		Name   string `json:"name"`
		Amount Amount `json:"amount"`
	}
)

// ParseScope accepts the canonical names and the short forms used in
// category references.
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "monthly", "m", "mensuel":
		return Monthly, nil
	case "annual", "a", "annuel", "yearly":
		return Annual, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidScope, s)
	}
}

func (s Scope) String() string { return string(s) }

// IsValid reports whether s is Monthly or Annual.
func (s Scope) IsValid() bool {
	return s == Monthly || s == Annual
}

// ValidateName trims name and rejects empty or oversized labels.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	if len(name) > MaxNameLength {
		return "", fmt.Errorf("%w: name longer than %d characters", ErrValidation, MaxNameLength)
	}
	return name, nil
}

// Validate checks a category before it is written.
func (c Category) Validate() error {
	if _, err := ValidateName(c.Name); err != nil {
		return err
	}
	return c.Budget.Validate()
}

// Spent sums the expense amounts.
func (c Category) Spent() Amount {
	total := Zero
	for _, e := range c.Expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// Clone returns a copy that shares no expense storage with c.
func (c Category) Clone() Category {
	out := c
	out.Expenses = make([]Expense, len(c.Expenses))
	copy(out.Expenses, c.Expenses)
	return out
}

// Validate checks an expense before it is written.
func (e Expense) Validate() error {
	d, err := ParseDate(e.Date)
	if err != nil {
		return err
	}
	if _, err := d.MonthKey(); err != nil {
		return err
	}
	if _, err := ValidateName(e.Name); err != nil {
		return err
	}
	return e.Amount.Validate()
}
