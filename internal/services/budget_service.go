// Package services orchestrates the budget ledger with its stores: every
// mutation is applied in memory, saved locally and, when a user is signed
// in, pushed to the remote store.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"budget/internal/cache"
	"budget/internal/core"
	"budget/internal/ledger"
	"budget/internal/log"
	"budget/internal/ports"
)

// Dashboard is the view of a selected month: its monthly categories, the
// annual categories of its year and the monthly totals.
type Dashboard struct {
	Month   string      `json:"month"`
	Year    string      `json:"year"`
	Monthly core.Stats  `json:"monthly"`
	Annual  core.Stats  `json:"annual"`
	Global  core.Totals `json:"global"`
}

// Options configures a BudgetService. Local is required.
type Options struct {
	Local  ports.LocalStore
	Remote ports.RemoteStore
	// Sync carries remote writes in the background. When nil, writes happen
	// on the calling goroutine after the mutation completes.
	Sync *SyncProcessor

	StatsCacheSize int
	StatsCacheTTL  time.Duration

	Logger *log.Logger

	// SessionID stamps remote writes so their echoes can be recognized.
	// A random id is used when empty.
	SessionID string

	// Now and IDGenerator are overridable for tests.
	Now         func() time.Time
	IDGenerator func() string
}

// BudgetService serializes every ledger operation and remote snapshot
// behind one mutex.
type BudgetService struct {
	mu        sync.Mutex
	ledger    *ledger.Ledger
	selection core.MonthKey

	local     ports.LocalStore
	selStore  ports.SelectionStore
	remote    ports.RemoteStore
	syncer    *SyncProcessor
	stats     cache.Cache[core.Stats]
	now       func() time.Time
	newID     func() string
	logger    *log.Logger
	userID    string
	unsub     ports.Unsubscribe
	subscribe uint64 // generation of the live subscription

	session  string
	rev      uint64 // last revision stamped on a remote write
	echoFrom uint64 // first revision written under the live subscription
}

// NewBudgetService loads the local ledger and restores the last selected
// month, or today's month clamped to the supported range. A corrupt local
// store is logged and replaced by an empty ledger.
func NewBudgetService(ctx context.Context, opts Options) (*BudgetService, error) {
	if opts.Local == nil {
		return nil, fmt.Errorf("budget service: local store is required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.SessionID == "" {
		opts.SessionID = uuid.NewString()
	}
	if opts.StatsCacheSize <= 0 {
		opts.StatsCacheSize = 64
	}
	if opts.StatsCacheTTL <= 0 {
		opts.StatsCacheTTL = 5 * time.Minute
	}

	s := &BudgetService{
		local:  opts.Local,
		remote: opts.Remote,
		syncer: opts.Sync,
		stats:  cache.NewLRUCache[core.Stats](opts.StatsCacheSize, opts.StatsCacheTTL),
		now:    opts.Now,
		newID:  opts.IDGenerator,
		logger:  opts.Logger.WithComponent(log.ComponentLedger),
		session: opts.SessionID,
	}
	if ss, ok := opts.Local.(ports.SelectionStore); ok {
		s.selStore = ss
	}

	l, err := opts.Local.Load(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Local ledger unreadable, starting empty",
			log.FieldOperation, log.OpLoad, log.FieldError, err)
	}
	if l == nil {
		l = ledger.New()
	}
	s.setLedgerLocked(l)
	s.selection = s.restoreSelection(ctx)
	s.ledger.EnsurePeriod(s.selection)

	s.logger.InfoContext(ctx, "Budget service ready",
		log.FieldOperation, log.OpStartup,
		log.FieldPeriod, s.selection.String())
	return s, nil
}

// StatsCache exposes the stats cache so a cache.Manager can expire it.
func (s *BudgetService) StatsCache() cache.Cleaner {
	if c, ok := s.stats.(cache.Cleaner); ok {
		return c
	}
	return nil
}

func (s *BudgetService) restoreSelection(ctx context.Context) core.MonthKey {
	if s.selStore != nil {
		k, ok, err := s.selStore.LoadSelection(ctx)
		if err != nil {
			s.logger.WarnContext(ctx, "Saved selection unreadable",
				log.FieldOperation, log.OpLoad, log.FieldError, err)
		}
		if ok && err == nil {
			return clampedMonth(k.Year, k.Month)
		}
	}
	now := s.now()
	return clampedMonth(now.Year(), int(now.Month()))
}

func clampedMonth(year, month int) core.MonthKey {
	return core.MonthKey{Year: core.ClampYear(year), Month: core.ClampMonth(month)}
}

func (s *BudgetService) setLedgerLocked(l *ledger.Ledger) {
	if s.newID != nil {
		l.SetIDGenerator(s.newID)
	}
	s.ledger = l
	s.stats.Purge()
}

// write is a remote write that must run once the lock is released.
type write func(ctx context.Context)

// mutate runs fn on the ledger and persists the result. fn must leave the
// ledger untouched when it returns an error.
func (s *BudgetService) mutate(ctx context.Context, op string, fn func(l *ledger.Ledger) error) error {
	s.mu.Lock()
	if err := fn(s.ledger); err != nil {
		s.mu.Unlock()
		return err
	}
	w := s.persistLocked(ctx, op)
	s.mu.Unlock()

	if w != nil {
		w(ctx)
	}
	return nil
}

// persistLocked saves the ledger locally and schedules the remote write.
// Failures are logged only: the in-memory ledger stays authoritative.
func (s *BudgetService) persistLocked(ctx context.Context, op string) write {
	s.stats.Purge()
	if err := s.local.Save(ctx, s.ledger); err != nil {
		s.logger.ErrorContext(ctx, "Local save failed",
			log.FieldOperation, op, log.FieldError, err)
	}
	if s.remote == nil || s.userID == "" {
		return nil
	}
	s.rev++
	userID, snap := s.userID, s.ledger.Clone()
	snap.SetRevision(s.session, s.rev)
	if s.syncer != nil {
		s.syncer.Enqueue(userID, snap)
		return nil
	}
	return func(ctx context.Context) {
		if err := s.remote.Write(ctx, userID, snap); err != nil {
			s.logger.WarnContext(ctx, "Remote write failed",
				log.FieldOperation, op, log.FieldUserID, userID, log.FieldError, err)
		}
	}
}

// CreateCategory adds a category to period.
func (s *BudgetService) CreateCategory(ctx context.Context, period core.PeriodKey, name string, budget core.Amount) (core.Category, error) {
	var out core.Category
	err := s.mutate(ctx, log.OpCreate, func(l *ledger.Ledger) error {
		c, err := l.CreateCategory(period, name, budget)
		out = c
		return err
	})
	if err != nil {
		return core.Category{}, err
	}
	s.logger.InfoContext(ctx, "Category created",
		log.NewFields().WithOperation(log.OpCreate).
			WithCategory(core.NewCategoryRef(period, out.ID).String(), out.Name).ToSlice()...)
	return out, nil
}

// UpdateCategory renames or re-budgets a category.
func (s *BudgetService) UpdateCategory(ctx context.Context, ref core.CategoryRef, patch ledger.CategoryPatch) (core.Category, error) {
	var out core.Category
	err := s.mutate(ctx, log.OpUpdate, func(l *ledger.Ledger) error {
		c, err := l.UpdateCategory(ref, patch)
		out = c
		return err
	})
	if err != nil {
		return core.Category{}, err
	}
	return out, nil
}

// DeleteCategory removes a category and its expenses. Deleting an absent
// category is a no-op that reports false and persists nothing.
func (s *BudgetService) DeleteCategory(ctx context.Context, ref core.CategoryRef) (bool, error) {
	if err := ref.Validate(); err != nil {
		return false, err
	}
	var removed bool
	err := s.mutate(ctx, log.OpDelete, func(l *ledger.Ledger) error {
		if removed = l.DeleteCategory(ref); !removed {
			return errUnchanged
		}
		return nil
	})
	if err != nil && !errors.Is(err, errUnchanged) {
		return false, err
	}
	if removed {
		s.logger.InfoContext(ctx, "Category deleted",
			log.NewFields().WithOperation(log.OpDelete).WithCategory(ref.String(), "").ToSlice()...)
	}
	return removed, nil
}

// errUnchanged aborts a mutation that had nothing to do.
var errUnchanged = errors.New("unchanged")

// ImputeExpense logs an expense against the period of its own date. See
// ledger.Ledger.Impute for the resolution rules.
func (s *BudgetService) ImputeExpense(ctx context.Context, in ledger.ImputeInput) (ledger.Imputation, error) {
	var out ledger.Imputation
	err := s.mutate(ctx, log.OpImpute, func(l *ledger.Ledger) error {
		imp, err := l.Impute(in)
		out = imp
		return err
	})
	if err != nil {
		return ledger.Imputation{}, err
	}
	s.logger.InfoContext(ctx, "Expense imputed",
		log.NewFields().WithOperation(log.OpImpute).
			WithCategory(core.NewCategoryRef(out.Target, out.Category.ID).String(), out.Category.Name).
			WithImputation(out.Target.String(), out.Expense.ID, out.Expense.Amount.String(), out.MirrorCreated).
			ToSlice()...)
	return out, nil
}

func (s *BudgetService) EditExpense(ctx context.Context, ref core.CategoryRef, expenseID string, patch ledger.ExpensePatch) (core.Expense, error) {
	var out core.Expense
	err := s.mutate(ctx, log.OpUpdate, func(l *ledger.Ledger) error {
		e, err := l.EditExpense(ref, expenseID, patch)
		out = e
		return err
	})
	if err != nil {
		return core.Expense{}, err
	}
	return out, nil
}

func (s *BudgetService) DeleteExpense(ctx context.Context, ref core.CategoryRef, expenseID string) error {
	return s.mutate(ctx, log.OpDelete, func(l *ledger.Ledger) error {
		return l.DeleteExpense(ref, expenseID)
	})
}

// StatsForPeriod summarizes one period. Reading never creates the period.
func (s *BudgetService) StatsForPeriod(period core.PeriodKey) (core.Stats, error) {
	if err := period.Validate(); err != nil {
		return core.Stats{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statsLocked(period), nil
}

func (s *BudgetService) statsLocked(period core.PeriodKey) core.Stats {
	key := string(period.Scope) + "|" + period.String()
	if st, ok := s.stats.Get(key); ok {
		return st
	}
	st := s.ledger.Stats(period)
	s.stats.Set(key, st)
	return st
}

// GlobalStats returns the totals of the monthly categories of k.
func (s *BudgetService) GlobalStats(k core.MonthKey) (core.Totals, error) {
	if err := k.Validate(); err != nil {
		return core.Totals{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.GlobalStats(k), nil
}

// Dashboard summarizes month k and its year.
func (s *BudgetService) Dashboard(k core.MonthKey) (Dashboard, error) {
	if err := k.Validate(); err != nil {
		return Dashboard{}, err
	}
	mp, yp := core.MonthlyPeriod(k), core.AnnualPeriod(k.YearKey())

	s.mu.Lock()
	defer s.mu.Unlock()
	monthly := s.statsLocked(mp)
	return Dashboard{
		Month:   mp.String(),
		Year:    yp.String(),
		Monthly: monthly,
		Annual:  s.statsLocked(yp),
		Global:  monthly.Totals,
	}, nil
}

// CategoryChoices lists the categories an expense dated date can be logged
// against.
func (s *BudgetService) CategoryChoices(date string) (ledger.Choices, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Choices(date)
}

// SelectPeriod changes the selected month. Out-of-range input is clamped,
// not rejected. The month and its year are ensured and the ledger saved.
func (s *BudgetService) SelectPeriod(ctx context.Context, year, month int) core.MonthKey {
	k := clampedMonth(year, month)

	s.mu.Lock()
	s.selection = k
	s.ledger.EnsurePeriod(k)
	if s.selStore != nil {
		if err := s.selStore.SaveSelection(ctx, k); err != nil {
			s.logger.ErrorContext(ctx, "Saving selection failed",
				log.FieldOperation, log.OpSelect, log.FieldError, err)
		}
	}
	w := s.persistLocked(ctx, log.OpSelect)
	s.mu.Unlock()

	if w != nil {
		w(ctx)
	}
	return k
}

// Selection returns the selected month.
func (s *BudgetService) Selection() core.MonthKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

// Ledger returns a copy of the current ledger.
func (s *BudgetService) Ledger() *ledger.Ledger {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Clone()
}

// UserID returns the signed-in user, or "".
func (s *BudgetService) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// SignIn ends any previous subscription and subscribes to userID's remote
// document. The first snapshot replaces the local ledger, an absent
// document included. Without a remote store SignIn only records the user.
func (s *BudgetService) SignIn(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("%w: user id is required", core.ErrValidation)
	}

	s.mu.Lock()
	prev := s.detachLocked()
	s.userID = userID
	s.subscribe++
	gen := s.subscribe
	s.echoFrom = s.rev + 1
	s.mu.Unlock()

	if prev != nil {
		prev()
	}
	if s.remote == nil {
		return nil
	}

	// Stores may deliver the first snapshot before Subscribe returns, so the
	// lock is not held here.
	unsub, err := s.remote.Subscribe(ctx, userID, func(l *ledger.Ledger) {
		s.applySnapshot(gen, l)
	})
	if err != nil {
		s.mu.Lock()
		if s.subscribe == gen {
			s.userID = ""
		}
		s.mu.Unlock()
		s.logger.ErrorContext(ctx, "Remote subscription failed",
			log.FieldOperation, log.OpSignIn, log.FieldUserID, userID, log.FieldError, err)
		return fmt.Errorf("%w: subscribe %s: %v", core.ErrPersistence, userID, err)
	}

	s.mu.Lock()
	if s.subscribe != gen {
		s.mu.Unlock()
		unsub()
		return nil
	}
	s.unsub = unsub
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Signed in",
		log.FieldOperation, log.OpSignIn, log.FieldUserID, userID)
	return nil
}

// SignOut ends the subscription. The in-memory ledger is kept.
func (s *BudgetService) SignOut(ctx context.Context) {
	s.mu.Lock()
	prev := s.detachLocked()
	userID := s.userID
	s.userID = ""
	s.subscribe++
	s.mu.Unlock()

	if prev != nil {
		prev()
	}
	if userID != "" {
		s.logger.InfoContext(ctx, "Signed out",
			log.FieldOperation, log.OpSignOut, log.FieldUserID, userID)
	}
}

func (s *BudgetService) detachLocked() ports.Unsubscribe {
	prev := s.unsub
	s.unsub = nil
	return prev
}

// applySnapshot replaces the ledger with a remote snapshot. Snapshots of a
// cancelled subscription are dropped, and so are echoes of this session's
// own writes under the live subscription: the ledger already holds them or
// a later state. Any other document wins whole, so local edits not yet
// written remotely are lost.
func (s *BudgetService) applySnapshot(gen uint64, l *ledger.Ledger) {
	ctx := context.Background()

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.subscribe {
		return
	}
	if l != nil {
		if origin, rev := l.Revision(); origin == s.session && rev >= s.echoFrom {
			s.logger.DebugContext(ctx, "Own remote echo ignored",
				log.FieldOperation, log.OpSnapshot, log.FieldUserID, s.userID, "rev", rev)
			return
		}
	}
	if l == nil {
		l = ledger.New()
	}
	s.setLedgerLocked(l)
	s.ledger.EnsurePeriod(s.selection)
	if err := s.local.Save(ctx, s.ledger); err != nil {
		s.logger.ErrorContext(ctx, "Local save failed",
			log.FieldOperation, log.OpSnapshot, log.FieldError, err)
	}
	months, years := s.ledger.Periods()
	s.logger.DebugContext(ctx, "Remote snapshot applied",
		log.FieldOperation, log.OpSnapshot, log.FieldUserID, s.userID,
		"months", len(months), "years", len(years))
}

// Close ends the subscription.
func (s *BudgetService) Close(ctx context.Context) {
	s.SignOut(ctx)
}
