package core

import (
	"fmt"
	"strings"
)

// CategoryRef locates a category: the period whose list it was picked from
// and its id. The string form is "m:YYYY-MM:<id>" or "a:YYYY:<id>".
type CategoryRef struct {
	Period PeriodKey
	ID     string
}

// NewCategoryRef builds a reference to id inside period.
func NewCategoryRef(period PeriodKey, id string) CategoryRef {
	return CategoryRef{Period: period, ID: id}
}

// Scope returns the scope of the referenced category.
func (r CategoryRef) Scope() Scope { return r.Period.Scope }

func (r CategoryRef) String() string {
	tag := "m"
	if r.Period.Scope == Annual {
		tag = "a"
	}
	return tag + ":" + r.Period.String() + ":" + r.ID
}

// Validate checks the period and that an id is present.
func (r CategoryRef) Validate() error {
	if err := r.Period.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidRef)
	}
	return nil
}

// ParseCategoryRef decodes the string form. Ids may themselves contain
// colons; everything after the second separator is the id.
func ParseCategoryRef(s string) (CategoryRef, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 3)
	if len(parts) != 3 || parts[2] == "" {
		return CategoryRef{}, fmt.Errorf("%w: %q", ErrInvalidRef, s)
	}
	var scope Scope
	switch parts[0] {
	case "m":
		scope = Monthly
	case "a":
		scope = Annual
	default:
		return CategoryRef{}, fmt.Errorf("%w: %q", ErrInvalidRef, s)
	}
	period, err := ParsePeriodKey(scope, parts[1])
	if err != nil {
		return CategoryRef{}, fmt.Errorf("%w: %q: %w", ErrInvalidRef, s, err)
	}
	return CategoryRef{Period: period, ID: parts[2]}, nil
}
