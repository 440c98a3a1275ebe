// Package ledger is the period-scoped budget ledger: categories partitioned by
// month and by year, the imputation of dated expenses to the period they
// belong to, and the per-period statistics.
//
// A Ledger is not safe for concurrent use; callers serialize access (see
// services.BudgetService).
package ledger

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"budget/internal/core"
)

type (
	// Ledger holds the month and year containers. Containers are created on
	// first touch and never removed.
	Ledger struct {
		months map[string]*categories // "YYYY-MM" -> monthly categories
		years  map[string]*categories // "YYYY" -> annual categories
		newID  func() string

		// origin and rev identify the write that produced this document.
		origin string
		rev    uint64
	}

	// Option configures a Ledger.
	Option func(*Ledger)
)

// WithIDGenerator replaces the UUID generator used for new categories and
// expenses.
func WithIDGenerator(fn func() string) Option {
	return func(l *Ledger) { l.newID = fn }
}

// New returns an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		months: make(map[string]*categories),
		years:  make(map[string]*categories),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SetIDGenerator replaces the id generator, e.g. after decoding.
func (l *Ledger) SetIDGenerator(fn func() string) {
	if fn != nil {
		l.newID = fn
	}
}

func (l *Ledger) id() string {
	if l.newID == nil {
		l.newID = uuid.NewString
	}
	return l.newID()
}

// EnsurePeriod creates the container of month k and of its year if they do
// not exist yet. It is idempotent.
func (l *Ledger) EnsurePeriod(k core.MonthKey) {
	l.ensure(core.MonthlyPeriod(k))
	l.ensure(core.AnnualPeriod(k.YearKey()))
}

// ensure creates the container for p alone and returns it.
func (l *Ledger) ensure(p core.PeriodKey) *categories {
	m := l.containers(p.Scope)
	key := p.String()
	c, ok := m[key]
	if !ok {
		c = newCategories()
		m[key] = c
	}
	return c
}

func (l *Ledger) containers(scope core.Scope) map[string]*categories {
	if l.months == nil {
		l.months = make(map[string]*categories)
	}
	if l.years == nil {
		l.years = make(map[string]*categories)
	}
	if scope == core.Annual {
		return l.years
	}
	return l.months
}

// collection returns the container of p without creating it.
func (l *Ledger) collection(p core.PeriodKey) (*categories, bool) {
	c, ok := l.containers(p.Scope)[p.String()]
	return c, ok
}

// HasPeriod reports whether the container of p has been touched.
func (l *Ledger) HasPeriod(p core.PeriodKey) bool {
	_, ok := l.collection(p)
	return ok
}

// Categories returns copies of the categories of p in insertion order.
func (l *Ledger) Categories(p core.PeriodKey) []core.Category {
	c, ok := l.collection(p)
	if !ok {
		return []core.Category{}
	}
	return c.list()
}

// Category returns a copy of the referenced category.
func (l *Ledger) Category(ref core.CategoryRef) (core.Category, error) {
	cat, err := l.lookup(ref)
	if err != nil {
		return core.Category{}, err
	}
	return cat.Clone(), nil
}

func (l *Ledger) lookup(ref core.CategoryRef) (*core.Category, error) {
	c, ok := l.collection(ref.Period)
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrCategoryNotFound, ref)
	}
	cat, ok := c.get(ref.ID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrCategoryNotFound, ref)
	}
	return cat, nil
}

// Periods lists the touched month and year keys, sorted.
func (l *Ledger) Periods() (months, years []string) {
	for k := range l.months {
		months = append(months, k)
	}
	for k := range l.years {
		years = append(years, k)
	}
	sort.Strings(months)
	sort.Strings(years)
	return months, years
}

// Revision returns the writer session and its sequence number stamped on
// the document. Both are zero for documents that were never stamped.
func (l *Ledger) Revision() (origin string, rev uint64) {
	return l.origin, l.rev
}

// SetRevision stamps the document with the session that writes it and a
// sequence number increasing with each of that session's writes.
func (l *Ledger) SetRevision(origin string, rev uint64) {
	l.origin, l.rev = origin, rev
}

// Clone returns a deep copy that shares nothing with l.
func (l *Ledger) Clone() *Ledger {
	out := New(WithIDGenerator(l.newID))
	out.origin, out.rev = l.origin, l.rev
	for k, c := range l.months {
		out.months[k] = c.clone()
	}
	for k, c := range l.years {
		out.years[k] = c.clone()
	}
	return out
}

// document is the persisted shape shared by local and remote stores.
type document struct {
	Months map[string]*monthDoc `json:"months"`
	Years  map[string]*yearDoc  `json:"years"`
	Origin string               `json:"origin,omitempty"`
	Rev    uint64               `json:"rev,omitempty"`
}

type monthDoc struct {
	MonthlyCategories *categories `json:"monthlyCategories"`
}

type yearDoc struct {
	AnnualCategories *categories `json:"annualCategories"`
}

func (l *Ledger) MarshalJSON() ([]byte, error) {
	doc := document{
		Months: make(map[string]*monthDoc, len(l.months)),
		Years:  make(map[string]*yearDoc, len(l.years)),
		Origin: l.origin,
		Rev:    l.rev,
	}
	for k, c := range l.months {
		doc.Months[k] = &monthDoc{MonthlyCategories: c}
	}
	for k, c := range l.years {
		doc.Years[k] = &yearDoc{AnnualCategories: c}
	}
	return json.Marshal(doc)
}

// UnmarshalJSON replaces the content of l with the document in b. Missing
// sections become empty, and expenses stored without an id get one.
func (l *Ledger) UnmarshalJSON(b []byte) error {
	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	gen := l.newID
	*l = *New()
	if gen != nil {
		l.newID = gen
	}
	l.origin, l.rev = doc.Origin, doc.Rev
	for k, m := range doc.Months {
		c := newCategories()
		if m != nil && m.MonthlyCategories != nil {
			c = m.MonthlyCategories
		}
		l.months[k] = c
	}
	for k, y := range doc.Years {
		c := newCategories()
		if y != nil && y.AnnualCategories != nil {
			c = y.AnnualCategories
		}
		l.years[k] = c
	}
	l.normalize()
	return nil
}

func (l *Ledger) normalize() {
	fix := func(c *categories) {
		c.each(func(cat *core.Category) {
			if cat.Expenses == nil {
				cat.Expenses = []core.Expense{}
			}
			for i := range cat.Expenses {
				if cat.Expenses[i].ID == "" {
					cat.Expenses[i].ID = l.id()
				}
			}
		})
	}
	for _, c := range l.months {
		fix(c)
	}
	for _, c := range l.years {
		fix(c)
	}
}

// Decode parses a persisted document. An empty or "null" input yields an
// empty ledger.
func Decode(b []byte, opts ...Option) (*Ledger, error) {
	l := New(opts...)
	if len(b) == 0 || string(b) == "null" {
		return l, nil
	}
	if err := json.Unmarshal(b, l); err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}
	return l, nil
}

// Encode returns the persisted document.
func Encode(l *Ledger) ([]byte, error) {
	if l == nil {
		l = New()
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("encode ledger: %w", err)
	}
	return b, nil
}
