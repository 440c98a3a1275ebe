// Package http serves the budget ledger as a JSON API.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"budget/internal/core"
	"budget/internal/ledger"
	"budget/internal/log"
	"budget/internal/services"
)

// BudgetAPI is the part of services.BudgetService the handlers use.
type BudgetAPI interface {
	CreateCategory(ctx context.Context, period core.PeriodKey, name string, budget core.Amount) (core.Category, error)
	UpdateCategory(ctx context.Context, ref core.CategoryRef, patch ledger.CategoryPatch) (core.Category, error)
	DeleteCategory(ctx context.Context, ref core.CategoryRef) (bool, error)
	ImputeExpense(ctx context.Context, in ledger.ImputeInput) (ledger.Imputation, error)
	EditExpense(ctx context.Context, ref core.CategoryRef, expenseID string, patch ledger.ExpensePatch) (core.Expense, error)
	DeleteExpense(ctx context.Context, ref core.CategoryRef, expenseID string) error
	StatsForPeriod(period core.PeriodKey) (core.Stats, error)
	Dashboard(k core.MonthKey) (services.Dashboard, error)
	CategoryChoices(date string) (ledger.Choices, error)
	SelectPeriod(ctx context.Context, year, month int) core.MonthKey
	Selection() core.MonthKey
	SignIn(ctx context.Context, userID string) error
	SignOut(ctx context.Context)
	UserID() string
}

var _ BudgetAPI = (*services.BudgetService)(nil)

// Options tunes the server.
type Options struct {
	// AllowedOrigins for CORS. Empty allows any origin.
	AllowedOrigins []string
	// MutationsPerMinute limits write requests per client IP. Zero disables
	// the limit.
	MutationsPerMinute int
	Logger             *log.Logger
}

// Server wraps http.Server with the budget routes.
type Server struct {
	http.Server
	svc     BudgetAPI
	limiter *rateLimiter
}

// NewServer configures routes and middleware, returning a ready-to-run
// server.
func NewServer(addr string, svc BudgetAPI, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	s := &Server{svc: svc}
	if opts.MutationsPerMinute > 0 {
		s.limiter = newRateLimiter(opts.MutationsPerMinute, time.Minute)
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(opts),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes(opts Options) http.Handler {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(log.Middleware(opts.Logger.WithComponent(log.ComponentHTTP)))
	r.Use(log.RequestLogger)
	r.Use(securityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/selection", s.handleGetSelection)
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/stats", s.handleStats)
		r.Get("/choices", s.handleChoices)

		r.Group(func(r chi.Router) {
			if s.limiter != nil {
				r.Use(s.limiter.middleware)
			}
			r.Put("/selection", s.handleSelectPeriod)

			r.Post("/categories", s.handleCreateCategory)
			r.Route("/categories/{ref}", func(r chi.Router) {
				r.Patch("/", s.handleUpdateCategory)
				r.Delete("/", s.handleDeleteCategory)
				r.Patch("/expenses/{id}", s.handleEditExpense)
				r.Delete("/expenses/{id}", s.handleDeleteExpense)
			})

			r.Post("/expenses", s.handleImputeExpense)

			r.Post("/session", s.handleSignIn)
			r.Delete("/session", s.handleSignOut)
		})
		r.Get("/session", s.handleGetSession)
	})

	return r
}

// Shutdown stops the listener and the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.stop()
	}
	return s.Server.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
