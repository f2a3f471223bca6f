package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
)

const dateLayout = "2006-01-02"

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]any{"success": false, "error": msg})
}

// parseDate parses a date in YYYY-MM-DD format as midnight UTC.
func parseDate(dateStr string) (time.Time, error) {
	return time.Parse(dateLayout, strings.TrimSpace(dateStr))
}

// queryInt returns the integer query parameter or the default when absent
// or malformed.
func queryInt(r *http.Request, key string, def int) int {
	if v := strings.TrimSpace(r.URL.Query().Get(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// queryDate returns the optional date query parameter, nil when absent.
func queryDate(r *http.Request, key string) (*time.Time, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return nil, nil
	}
	t, err := parseDate(v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type transactionResponse struct {
	ID          int64  `json:"id"`
	Type        string `json:"type"`
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Description string `json:"description,omitempty"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID,
		Type:        t.Type.String(),
		Category:    t.Category,
		Amount:      t.Amount.String(),
		Date:        t.Date.Format(dateLayout),
		Description: t.Description,
	}
}

func toTransactionResponses(txs []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, len(txs))
	for i, t := range txs {
		out[i] = toTransactionResponse(t)
	}
	return out
}

type balanceResponse struct {
	TotalBalance string `json:"total_balance"`
	TotalIncome  string `json:"total_income"`
	TotalExpense string `json:"total_expense"`
}

func toBalanceResponse(b core.BalanceSummary) balanceResponse {
	return balanceResponse{
		TotalBalance: b.TotalBalance.String(),
		TotalIncome:  b.TotalIncome.String(),
		TotalExpense: b.TotalExpense.String(),
	}
}

type transactionRequest struct {
	Type        string `json:"type"`
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Description string `json:"description"`
}

// toTransaction validates and converts a request body into a domain
// transaction owned by userID.
func (req transactionRequest) toTransaction(userID string) (core.Transaction, error) {
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return core.Transaction{}, core.ErrInvalidDate
	}
	t := core.Transaction{
		Type:        core.TransactionType(strings.ToLower(strings.TrimSpace(req.Type))),
		Category:    strings.TrimSpace(req.Category),
		Amount:      core.Money{Cents: cents},
		Date:        date,
		UserID:      userID,
		Description: strings.TrimSpace(req.Description),
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}
