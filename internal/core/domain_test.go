package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScope(t *testing.T) {
	for in, want := range map[string]Scope{"monthly": Monthly, "M": Monthly, "annual": Annual, "a": Annual, "yearly": Annual} {
		got, err := ParseScope(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseScope("weekly")
	assert.ErrorIs(t, err, ErrInvalidScope)
}

func TestValidateName(t *testing.T) {
	name, err := ValidateName("  Loyer ")
	require.NoError(t, err)
	assert.Equal(t, "Loyer", name)

	_, err = ValidateName("   ")
	assert.ErrorIs(t, err, ErrEmptyName)

	_, err = ValidateName(strings.Repeat("x", MaxNameLength+1))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{Date: "2026-03-15", Name: "Mars", Amount: AmountFromInt(1000)}
	require.NoError(t, good.Validate())

	bads := []Expense{
		{Date: "", Name: "a", Amount: AmountFromInt(1)},
		{Date: "2025-12-31", Name: "a", Amount: AmountFromInt(1)},
		{Date: "2026-01-01", Name: "", Amount: AmountFromInt(1)},
		{Date: "2026-01-01", Name: "a", Amount: AmountFromInt(-1)},
	}
	for i, e := range bads {
		assert.ErrorIs(t, e.Validate(), ErrValidation, "case %d", i)
	}
}

func TestCategorySpentAndClone(t *testing.T) {
	c := Category{ID: "c1", Name: "Courses", Budget: AmountFromInt(300), Expenses: []Expense{
		{ID: "e1", Date: "2026-01-02", Name: "a", Amount: MustAmount("10.50")},
		{ID: "e2", Date: "2026-01-03", Name: "b", Amount: MustAmount("4.50")},
	}}
	assert.True(t, c.Spent().Equal(AmountFromInt(15)))

	cp := c.Clone()
	cp.Expenses[0].Name = "changed"
	assert.Equal(t, "a", c.Expenses[0].Name)
}
