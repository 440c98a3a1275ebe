package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{"0", "0", true},
		{".5", "0.5", true},
		{"1.005", "1.01", true}, // half-up rounding
		{" 2.50 ", "2.5", true},
		{"-1", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"1e3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if !tc.ok {
			assert.Error(t, err, "%q", tc.in)
			assert.ErrorIs(t, err, ErrValidation, "%q", tc.in)
			continue
		}
		require.NoError(t, err, "%q", tc.in)
		assert.True(t, got.Equal(MustAmount(tc.out)), "%q: got %s want %s", tc.in, got, tc.out)
	}
}

func TestAmountJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Amount `json:"a"`
	}{MustAmount("12.5")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":12.5}`, string(b))
}

func TestAmountUnmarshalIsLenient(t *testing.T) {
	cases := map[string]string{
		`12.5`:    "12.5",
		`"7,25"`:  "7.25",
		`"42"`:    "42",
		`null`:    "0",
		`"oops"`:  "0",
		`true`:    "0",
		`{"x":1}`: "0",
	}
	for in, want := range cases {
		var a Amount
		require.NoError(t, json.Unmarshal([]byte(in), &a), in)
		assert.True(t, a.Equal(MustAmount(want)), "%s: got %s", in, a)
	}

	var e Expense
	require.NoError(t, json.Unmarshal([]byte(`{"date":"2026-01-01","name":"x"}`), &e))
	assert.True(t, e.Amount.IsZero())
}

func TestAmountArithmetic(t *testing.T) {
	budget := AmountFromInt(100)
	spent := AmountFromInt(150)
	rem := budget.Sub(spent)
	assert.True(t, rem.IsNegative())
	assert.True(t, rem.Equal(AmountFromInt(-50)))
	assert.ErrorIs(t, rem.Validate(), ErrNegativeAmount)
	assert.NoError(t, budget.Add(spent).Validate())
}
