package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Supported years. The range is a business rule: dates outside it are
// rejected, not clamped, except by period selection.
const (
	MinYear = 2026
	MaxYear = 2100
)

type (
	// MonthKey identifies a calendar month. Canonical form is YYYY-MM.
	MonthKey struct {
		Year  int
		Month int // 1-12
	}

	// YearKey identifies a calendar year. Canonical form is YYYY.
	YearKey int

	// DateParts is a structurally split ISO date. It is not calendar checked.
	DateParts struct {
		Year  int
		Month int
		Day   int
	}

	// PeriodKey names one scoped category collection: the monthly categories
	// of a month, or the annual categories of a year (Month is 0).
	PeriodKey struct {
		Scope Scope
		Year  int
		Month int
	}
)

// ToMonthKey validates year and month and returns the month key.
func ToMonthKey(year, month int) (MonthKey, error) {
	if err := ValidateYear(year); err != nil {
		return MonthKey{}, err
	}
	if month < 1 || month > 12 {
		return MonthKey{}, fmt.Errorf("%w: month %d", ErrInvalidPeriod, month)
	}
	return MonthKey{Year: year, Month: month}, nil
}

// ValidateYear reports whether year lies in the supported range.
func ValidateYear(year int) error {
	if year < MinYear || year > MaxYear {
		return fmt.Errorf("%w: year %d outside %d-%d", ErrInvalidPeriod, year, MinYear, MaxYear)
	}
	return nil
}

// String returns the YYYY-MM form with a zero padded month.
func (k MonthKey) String() string {
	return fmt.Sprintf("%d-%02d", k.Year, k.Month)
}

// YearKey returns the year containing the month.
func (k MonthKey) YearKey() YearKey {
	return YearKey(k.Year)
}

// Validate checks the key against the supported range.
func (k MonthKey) Validate() error {
	_, err := ToMonthKey(k.Year, k.Month)
	return err
}

func (y YearKey) String() string {
	return strconv.Itoa(int(y))
}

// ParseMonthKey parses a YYYY-MM key.
func ParseMonthKey(s string) (MonthKey, error) {
	y, m, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return MonthKey{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	year, err := strconv.Atoi(y)
	if err != nil {
		return MonthKey{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	month, err := strconv.Atoi(m)
	if err != nil {
		return MonthKey{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return ToMonthKey(year, month)
}

// ParseYearKey parses a YYYY key.
func ParseYearKey(s string) (YearKey, error) {
	year, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	if err := ValidateYear(year); err != nil {
		return 0, err
	}
	return YearKey(year), nil
}

// ParseDate splits an ISO YYYY-MM-DD string into numeric parts. Only the
// structure is checked; callers range-check year and month.
func ParseDate(iso string) (DateParts, error) {
	iso = strings.TrimSpace(iso)
	if iso == "" {
		return DateParts{}, fmt.Errorf("%w: missing date", ErrInvalidDate)
	}
	parts := strings.Split(iso, "-")
	if len(parts) != 3 {
		return DateParts{}, fmt.Errorf("%w: %q", ErrInvalidDate, iso)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return DateParts{}, fmt.Errorf("%w: %q", ErrInvalidDate, iso)
		}
		nums[i] = n
	}
	return DateParts{Year: nums[0], Month: nums[1], Day: nums[2]}, nil
}

// MonthKey range-checks the date and returns the month it falls in.
func (d DateParts) MonthKey() (MonthKey, error) {
	if d.Year < MinYear || d.Year > MaxYear || d.Month < 1 || d.Month > 12 {
		return MonthKey{}, fmt.Errorf("%w: %04d-%02d outside %d-%d", ErrDateOutOfRange, d.Year, d.Month, MinYear, MaxYear)
	}
	return MonthKey{Year: d.Year, Month: d.Month}, nil
}

// ClampYear forces year into the supported range. Period selection only.
func ClampYear(year int) int {
	return clamp(year, MinYear, MaxYear)
}

// ClampMonth forces month into 1-12. Period selection only.
func ClampMonth(month int) int {
	return clamp(month, 1, 12)
}

func clamp(n, lo, hi int) int {
	return min(hi, max(lo, n))
}

// MonthlyPeriod names the monthly collection of k.
func MonthlyPeriod(k MonthKey) PeriodKey {
	return PeriodKey{Scope: Monthly, Year: k.Year, Month: k.Month}
}

// AnnualPeriod names the annual collection of y.
func AnnualPeriod(y YearKey) PeriodKey {
	return PeriodKey{Scope: Annual, Year: int(y)}
}

// PeriodFor returns the collection of scope that contains month k.
func PeriodFor(scope Scope, k MonthKey) PeriodKey {
	if scope == Annual {
		return AnnualPeriod(k.YearKey())
	}
	return MonthlyPeriod(k)
}

// ParsePeriodKey parses "YYYY-MM" for Monthly or "YYYY" for Annual.
func ParsePeriodKey(scope Scope, s string) (PeriodKey, error) {
	switch scope {
	case Monthly:
		k, err := ParseMonthKey(s)
		if err != nil {
			return PeriodKey{}, err
		}
		return MonthlyPeriod(k), nil
	case Annual:
		y, err := ParseYearKey(s)
		if err != nil {
			return PeriodKey{}, err
		}
		return AnnualPeriod(y), nil
	default:
		return PeriodKey{}, fmt.Errorf("%w: %q", ErrInvalidScope, scope)
	}
}

// String returns YYYY-MM for monthly periods and YYYY for annual ones.
func (p PeriodKey) String() string {
	if p.Scope == Annual {
		return YearKey(p.Year).String()
	}
	return MonthKey{Year: p.Year, Month: p.Month}.String()
}

// MonthKey returns the month of a monthly period.
func (p PeriodKey) MonthKey() MonthKey {
	return MonthKey{Year: p.Year, Month: p.Month}
}

func (p PeriodKey) Validate() error {
	switch p.Scope {
	case Monthly:
		return p.MonthKey().Validate()
	case Annual:
		return ValidateYear(p.Year)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidScope, p.Scope)
	}
}
