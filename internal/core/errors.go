package core

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the ledger wraps exactly one of them,
// so callers switch with errors.Is.
var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("not found")
	ErrPersistence = errors.New("persistence failure")
)

var (
	ErrEmptyName      = fmt.Errorf("%w: empty name", ErrValidation)
	ErrInvalidAmount  = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrNegativeAmount = fmt.Errorf("%w: negative amount", ErrValidation)
	ErrInvalidDate    = fmt.Errorf("%w: invalid date", ErrValidation)
	ErrDateOutOfRange = fmt.Errorf("%w: date out of range", ErrValidation)
	ErrInvalidScope   = fmt.Errorf("%w: invalid scope", ErrValidation)
	ErrInvalidPeriod  = fmt.Errorf("%w: invalid period", ErrValidation)
	ErrInvalidRef     = fmt.Errorf("%w: invalid category reference", ErrValidation)

	ErrCategoryNotFound       = fmt.Errorf("%w: category", ErrNotFound)
	ErrSourceCategoryNotFound = fmt.Errorf("%w: source category", ErrNotFound)
	ErrExpenseNotFound        = fmt.Errorf("%w: expense", ErrNotFound)
)

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsNotFound reports whether err is a missing category or expense.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
