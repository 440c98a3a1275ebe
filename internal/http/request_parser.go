package http

// This file parses request bodies, query strings and path parameters into
// core types. Every failure is a core validation error.

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"budget/internal/core"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// decodeJSON reads one JSON object into dst. Unknown fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty request body", core.ErrValidation)
		}
		return fmt.Errorf("%w: malformed request body: %v", core.ErrValidation, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: request body must hold a single object", core.ErrValidation)
	}
	return nil
}

// parseAmountJSON accepts a JSON number or a numeric string with a dot or
// comma decimal separator.
func parseAmountJSON(raw json.RawMessage) (core.Amount, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return core.Zero, fmt.Errorf("%w: amount is required", core.ErrInvalidAmount)
	}
	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return core.Zero, fmt.Errorf("%w: %v", core.ErrInvalidAmount, err)
		}
	}
	return core.ParseAmount(s)
}

// optionalAmount parses raw when it is present. A JSON null counts as
// absent.
func optionalAmount(raw json.RawMessage) (*core.Amount, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	a, err := parseAmountJSON(raw)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// parseMonthQuery reads year and month from the query string, each
// defaulting to the corresponding part of fallback. Present values must be
// valid.
func parseMonthQuery(q url.Values, fallback core.MonthKey) (core.MonthKey, error) {
	year, month := fallback.Year, fallback.Month
	if v := strings.TrimSpace(q.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return core.MonthKey{}, fmt.Errorf("%w: year %q", core.ErrInvalidPeriod, v)
		}
		year = y
	}
	if v := strings.TrimSpace(q.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return core.MonthKey{}, fmt.Errorf("%w: month %q", core.ErrInvalidPeriod, v)
		}
		month = m
	}
	return core.ToMonthKey(year, month)
}

// parsePeriod resolves a scope and an optional period string. An empty
// period is the selected month, or its year for the annual scope.
func parsePeriod(scope, period string, selection core.MonthKey) (core.PeriodKey, error) {
	sc := core.Monthly
	if s := strings.TrimSpace(scope); s != "" {
		var err error
		if sc, err = core.ParseScope(s); err != nil {
			return core.PeriodKey{}, err
		}
	}
	if p := strings.TrimSpace(period); p != "" {
		return core.ParsePeriodKey(sc, p)
	}
	return core.PeriodFor(sc, selection), nil
}

// refParam decodes the {ref} path parameter.
func refParam(r *http.Request) (core.CategoryRef, error) {
	raw := chi.URLParam(r, "ref")
	if s, err := url.PathUnescape(raw); err == nil {
		raw = s
	}
	return core.ParseCategoryRef(raw)
}

// idParam decodes the {id} path parameter.
func idParam(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "id")
	if s, err := url.PathUnescape(raw); err == nil {
		raw = s
	}
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("%w: expense id is required", core.ErrValidation)
	}
	return raw, nil
}
