package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMonthKey(t *testing.T) {
	cases := []struct {
		year, month int
		want        string
		ok          bool
	}{
		{2026, 1, "2026-01", true},
		{2026, 12, "2026-12", true},
		{2100, 7, "2100-07", true},
		{2025, 12, "", false},
		{2101, 1, "", false},
		{2026, 0, "", false},
		{2026, 13, "", false},
	}
	for _, tc := range cases {
		k, err := ToMonthKey(tc.year, tc.month)
		if !tc.ok {
			require.Error(t, err, "%d-%d", tc.year, tc.month)
			assert.ErrorIs(t, err, ErrValidation)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tc.want, k.String())
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-03-15")
	require.NoError(t, err)
	assert.Equal(t, DateParts{Year: 2026, Month: 3, Day: 15}, d)

	// Structural only: February 31st is accepted.
	d, err = ParseDate("2026-02-31")
	require.NoError(t, err)
	assert.Equal(t, 31, d.Day)

	for _, bad := range []string{"", "2026-03", "2026/03/15", "abcd-01-01", "2026-03-15T10:00"} {
		_, err := ParseDate(bad)
		assert.ErrorIs(t, err, ErrInvalidDate, bad)
	}
}

func TestDatePartsMonthKey(t *testing.T) {
	k, err := DateParts{Year: 2026, Month: 4, Day: 2}.MonthKey()
	require.NoError(t, err)
	assert.Equal(t, MonthKey{Year: 2026, Month: 4}, k)

	_, err = DateParts{Year: 2025, Month: 12, Day: 31}.MonthKey()
	assert.ErrorIs(t, err, ErrDateOutOfRange)

	_, err = DateParts{Year: 2026, Month: 13, Day: 1}.MonthKey()
	assert.ErrorIs(t, err, ErrDateOutOfRange)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, MinYear, ClampYear(1999))
	assert.Equal(t, MaxYear, ClampYear(3000))
	assert.Equal(t, 2050, ClampYear(2050))
	assert.Equal(t, 1, ClampMonth(0))
	assert.Equal(t, 12, ClampMonth(42))
}

func TestParsePeriodKey(t *testing.T) {
	p, err := ParsePeriodKey(Monthly, "2026-03")
	require.NoError(t, err)
	assert.Equal(t, PeriodKey{Scope: Monthly, Year: 2026, Month: 3}, p)
	assert.Equal(t, "2026-03", p.String())

	p, err = ParsePeriodKey(Annual, "2027")
	require.NoError(t, err)
	assert.Equal(t, PeriodKey{Scope: Annual, Year: 2027}, p)
	assert.Equal(t, "2027", p.String())

	_, err = ParsePeriodKey(Annual, "2027-01")
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	_, err = ParsePeriodKey(Scope("weekly"), "2027")
	assert.ErrorIs(t, err, ErrInvalidScope)
}

func TestPeriodFor(t *testing.T) {
	k := MonthKey{Year: 2026, Month: 11}
	assert.Equal(t, MonthlyPeriod(k), PeriodFor(Monthly, k))
	assert.Equal(t, AnnualPeriod(2026), PeriodFor(Annual, k))
}
