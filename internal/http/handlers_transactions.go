package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// handleListTransactions serves the full list from the balance cache.
// With from/to query parameters it becomes a date-windowed view answered
// by the store directly, leaving the cache untouched.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("from") != "" || q.Get("to") != "" {
		s.handleListTransactionsInRange(w, r)
		return
	}

	txs := s.cache.GetTransactions(r.Context(), userIDFrom(r))
	respondJSON(w, http.StatusOK, map[string]any{
		"transactions": toTransactionResponses(txs),
	})
}

func (s *Server) handleListTransactionsInRange(w http.ResponseWriter, r *http.Request) {
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
	if from == nil || to == nil {
		respondError(w, http.StatusBadRequest, "from and to must be given together")
		return
	}

	txs, err := s.analytics.TransactionsInRange(r.Context(), userIDFrom(r), *from, *to)
	if err != nil {
		if errors.Is(err, core.ErrInvalidDate) {
			respondError(w, http.StatusBadRequest, "to must not precede from")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"transactions": toTransactionResponses(txs),
	})
}

func (s *Server) handleBalanceSummary(w http.ResponseWriter, r *http.Request) {
	bal := s.cache.GetBalanceSummary(r.Context(), userIDFrom(r))
	respondJSON(w, http.StatusOK, toBalanceResponse(bal))
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := req.toTransaction(userIDFrom(r))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.cache.AddTransaction(r.Context(), t)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to add transaction")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"success":     true,
		"transaction": toTransactionResponse(created),
	})
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := req.toTransaction(userIDFrom(r))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	t.ID = id

	updated, err := s.cache.UpdateTransaction(r.Context(), t)
	if err != nil {
		if errors.Is(err, storage.ErrTransactionNotFound) {
			respondError(w, http.StatusNotFound, "transaction not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to update transaction")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"transaction": toTransactionResponse(updated),
	})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	deleted, err := s.cache.DeleteTransaction(r.Context(), id, userIDFrom(r))
	if err != nil {
		if errors.Is(err, storage.ErrTransactionNotFound) {
			respondError(w, http.StatusNotFound, "transaction not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to delete transaction")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"transaction": toTransactionResponse(deleted),
	})
}

// handleClearCache drops the caller's cache entry, or every entry when
// scope=all is passed. Clearing is idempotent.
func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	if strings.EqualFold(r.URL.Query().Get("scope"), "all") {
		s.cache.Clear()
	} else {
		s.cache.ClearUser(userIDFrom(r))
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	t := core.TransactionType(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("type"))))
	if !t.IsValid() {
		respondError(w, http.StatusBadRequest, "type must be 'income' or 'expense'")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"type":       t.String(),
		"categories": core.CategoriesFor(t),
	})
}
