package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

func (s *Server) handleMonthlySpending(w http.ResponseWriter, r *http.Request) {
	year := queryInt(r, "year", time.Now().UTC().Year())
	buckets, err := s.analytics.MonthlySpending(r.Context(), userIDFrom(r), year)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to compute monthly spending")
		return
	}

	type bucketResponse struct {
		Month int    `json:"month"`
		Total string `json:"total"`
	}
	out := make([]bucketResponse, len(buckets))
	for i, b := range buckets {
		out[i] = bucketResponse{Month: b.Month, Total: b.Total.String()}
	}
	respondJSON(w, http.StatusOK, map[string]any{"year": year, "months": out})
}

func (s *Server) handleCategoryBreakdown(w http.ResponseWriter, r *http.Request) {
	t := core.TransactionType(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("type"))))
	if t == "" {
		t = core.Expense
	}

	from, err := queryDate(r, "from")
	if err != nil {
		respondError(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
		return
	}
	to, err := queryDate(r, "to")
	if err != nil {
		respondError(w, http.StatusBadRequest, "to must be YYYY-MM-DD")
		return
	}

	shares, err := s.analytics.CategoryBreakdown(r.Context(), userIDFrom(r), t, from, to)
	if err != nil {
		if errors.Is(err, core.ErrInvalidType) {
			respondError(w, http.StatusBadRequest, "type must be 'income' or 'expense'")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to compute category breakdown")
		return
	}

	type shareResponse struct {
		Category string `json:"category"`
		Total    string `json:"total"`
	}
	out := make([]shareResponse, len(shares))
	for i, sh := range shares {
		out[i] = shareResponse{Category: sh.Category, Total: sh.Total.String()}
	}
	respondJSON(w, http.StatusOK, map[string]any{"type": t.String(), "categories": out})
}

func (s *Server) handleNetWorthTrend(w http.ResponseWriter, r *http.Request) {
	months := queryInt(r, "months", 12)
	points, err := s.analytics.NetWorthTrend(r.Context(), userIDFrom(r), months)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to compute net worth trend")
		return
	}

	type pointResponse struct {
		Year     int    `json:"year"`
		Month    int    `json:"month"`
		Income   string `json:"income"`
		Expense  string `json:"expense"`
		Net      string `json:"net"`
		NetWorth string `json:"net_worth"`
	}
	out := make([]pointResponse, len(points))
	for i, p := range points {
		out[i] = pointResponse{
			Year:     p.Year,
			Month:    p.Month,
			Income:   p.Income.String(),
			Expense:  p.Expense.String(),
			Net:      p.Net.String(),
			NetWorth: p.NetWorth.String(),
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{"points": out})
}

func (s *Server) handleBudgetProgress(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.analytics.BudgetProgress(r.Context(), userIDFrom(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to compute budget progress")
		return
	}

	out := make([]budgetStatusResponse, len(statuses))
	for i, st := range statuses {
		out[i] = toBudgetStatusResponse(st)
	}
	respondJSON(w, http.StatusOK, map[string]any{"budgets": out})
}

type budgetStatusResponse struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	Period     string  `json:"period"`
	Amount     string  `json:"amount"`
	Spent      string  `json:"spent"`
	Remaining  string  `json:"remaining"`
	Progress   float64 `json:"progress"`
	OverBudget bool    `json:"over_budget"`
}

func toBudgetStatusResponse(st services.BudgetStatus) budgetStatusResponse {
	return budgetStatusResponse{
		ID:         st.Budget.ID,
		Name:       st.Budget.Name,
		Category:   st.Budget.Category,
		Period:     string(st.Budget.Period),
		Amount:     st.Budget.Amount.String(),
		Spent:      st.Spent.String(),
		Remaining:  st.Remaining.String(),
		Progress:   st.Progress,
		OverBudget: st.OverBudget,
	}
}
