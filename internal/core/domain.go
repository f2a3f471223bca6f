package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

type (
	TransactionType string

	Money struct {
		Cents int64
	}

	// Transaction is a single income or expense row. The store assigns IDs;
	// everything else holds non-owning copies.
	Transaction struct {
		ID          int64
		Type        TransactionType
		Category    string
		Amount      Money
		Date        time.Time
		UserID      string
		Description string
	}

	// BalanceSummary is derived data: TotalBalance is always
	// TotalIncome - TotalExpense over the same transaction set.
	BalanceSummary struct {
		TotalBalance Money
		TotalIncome  Money
		TotalExpense Money
	}
)

var (
	ErrInvalidType     = errors.New("invalid transaction type")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidCategory = errors.New("invalid category")
	ErrEmptyUserID     = errors.New("empty user id")
)

// IsValid reports whether the type is one of the two known kinds.
func (t TransactionType) IsValid() bool {
	return t == Income || t == Expense
}

func (t TransactionType) String() string {
	return string(t)
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if !t.Type.IsValid() {
		return ErrInvalidType
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if strings.TrimSpace(t.UserID) == "" {
		return ErrEmptyUserID
	}
	if !CategoryAllowed(t.Type, t.Category) {
		return ErrInvalidCategory
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

// Summarize derives a balance from a transaction set. Anything that is not
// income counts as expense, so the three totals always reconcile.
func Summarize(transactions []Transaction) BalanceSummary {
	var income, expense int64
	for _, t := range transactions {
		if t.Type == Income {
			income += t.Amount.Cents
		} else {
			expense += t.Amount.Cents
		}
	}
	return BalanceSummary{
		TotalBalance: Money{Cents: income - expense},
		TotalIncome:  Money{Cents: income},
		TotalExpense: Money{Cents: expense},
	}
}
