package http

import (
	"encoding/json"
	"net/http"

	"budget/internal/core"
	"budget/internal/ledger"
)

type (
	selectionRequest struct {
		Year  int `json:"year"`
		Month int `json:"month"`
	}

	selectionResponse struct {
		Year  int    `json:"year"`
		Month int    `json:"month"`
		Key   string `json:"key"`
	}

	createCategoryRequest struct {
		Scope  string          `json:"scope"`
		Period string          `json:"period"`
		Name   string          `json:"name"`
		Budget json.RawMessage `json:"budget"`
	}

	updateCategoryRequest struct {
		Name   *string         `json:"name"`
		Budget json.RawMessage `json:"budget"`
	}

	categoryResponse struct {
		Ref   string     `json:"ref"`
		Scope core.Scope `json:"scope"`
		// Period is YYYY-MM or YYYY.
		Period   string        `json:"period"`
		Category core.Category `json:"category"`
	}

	imputeRequest struct {
		Date   string          `json:"date"`
		Source string          `json:"source"`
		Name   string          `json:"name"`
		Amount json.RawMessage `json:"amount"`
	}

	imputeResponse struct {
		Target        string        `json:"target"`
		Scope         core.Scope    `json:"scope"`
		Ref           string        `json:"ref"`
		Category      core.Category `json:"category"`
		Expense       core.Expense  `json:"expense"`
		MirrorCreated bool          `json:"mirror_created"`
	}

	expensePatchRequest struct {
		Name   *string         `json:"name"`
		Amount json.RawMessage `json:"amount"`
	}

	statsResponse struct {
		Scope  core.Scope  `json:"scope"`
		Period string      `json:"period"`
		Rows   []core.Row  `json:"rows"`
		Totals core.Totals `json:"totals"`
	}

	sessionRequest struct {
		UserID string `json:"user_id"`
	}

	sessionResponse struct {
		UserID   string `json:"user_id"`
		SignedIn bool   `json:"signed_in"`
	}
)

func toSelection(k core.MonthKey) selectionResponse {
	return selectionResponse{Year: k.Year, Month: k.Month, Key: k.String()}
}

func toCategory(p core.PeriodKey, c core.Category) categoryResponse {
	return categoryResponse{
		Ref:      core.NewCategoryRef(p, c.ID).String(),
		Scope:    p.Scope,
		Period:   p.String(),
		Category: c,
	}
}

func toStats(st core.Stats) statsResponse {
	rows := st.Rows
	if rows == nil {
		rows = []core.Row{}
	}
	return statsResponse{Scope: st.Period.Scope, Period: st.Period.String(), Rows: rows, Totals: st.Totals}
}

func (s *Server) handleGetSelection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toSelection(s.svc.Selection()))
}

// handleSelectPeriod clamps out-of-range values instead of rejecting them.
func (s *Server) handleSelectPeriod(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSelection(s.svc.SelectPeriod(r.Context(), req.Year, req.Month)))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	k, err := parseMonthQuery(r.URL.Query(), s.svc.Selection())
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := s.svc.Dashboard(k)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"month":   d.Month,
		"year":    d.Year,
		"monthly": toStats(d.Monthly),
		"annual":  toStats(d.Annual),
		"global":  d.Global,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p, err := parsePeriod(q.Get("scope"), q.Get("period"), s.svc.Selection())
	if err != nil {
		writeError(w, r, err)
		return
	}
	st, err := s.svc.StatsForPeriod(p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStats(st))
}

func (s *Server) handleChoices(w http.ResponseWriter, r *http.Request) {
	choices, err := s.svc.CategoryChoices(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, choices)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := parsePeriod(req.Scope, req.Period, s.svc.Selection())
	if err != nil {
		writeError(w, r, err)
		return
	}
	budget, err := parseAmountJSON(req.Budget)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.svc.CreateCategory(r.Context(), p, req.Name, budget)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategory(p, c))
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	ref, err := refParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateCategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	budget, err := optionalAmount(req.Budget)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.svc.UpdateCategory(r.Context(), ref, ledger.CategoryPatch{Name: req.Name, Budget: budget})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategory(ref.Period, c))
}

// handleDeleteCategory succeeds whether or not the category existed.
func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	ref, err := refParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := s.svc.DeleteCategory(r.Context(), ref); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleImputeExpense(w http.ResponseWriter, r *http.Request) {
	var req imputeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	source, err := core.ParseCategoryRef(req.Source)
	if err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := parseAmountJSON(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	imp, err := s.svc.ImputeExpense(r.Context(), ledger.ImputeInput{
		Date:   req.Date,
		Source: source,
		Name:   req.Name,
		Amount: amount,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, imputeResponse{
		Target:        imp.Target.String(),
		Scope:         imp.Target.Scope,
		Ref:           core.NewCategoryRef(imp.Target, imp.Category.ID).String(),
		Category:      imp.Category,
		Expense:       imp.Expense,
		MirrorCreated: imp.MirrorCreated,
	})
}

func (s *Server) handleEditExpense(w http.ResponseWriter, r *http.Request) {
	ref, err := refParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req expensePatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := optionalAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.svc.EditExpense(r.Context(), ref, id, ledger.ExpensePatch{Name: req.Name, Amount: amount})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	ref, err := refParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.DeleteExpense(r.Context(), ref, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	userID := s.svc.UserID()
	writeJSON(w, http.StatusOK, sessionResponse{UserID: userID, SignedIn: userID != ""})
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.SignIn(r.Context(), req.UserID); err != nil {
		writeError(w, r, err)
		return
	}
	s.handleGetSession(w, r)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	s.svc.SignOut(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
