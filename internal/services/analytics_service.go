// Package services holds read-only aggregation services layered over the
// transaction store. Analytics queries deliberately bypass the balance
// cache: they are derived views the store answers directly.
package services

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// AnalyticsStore is the slice of the store the analytics service consumes.
type AnalyticsStore interface {
	ListTransactionsBetween(ctx context.Context, userID string, from, to time.Time) ([]core.Transaction, error)
	MonthlyExpenseTotals(ctx context.Context, userID string, year int) ([]storage.MonthTotal, error)
	CategoryTotals(ctx context.Context, userID string, t core.TransactionType, from, to *time.Time) ([]storage.CategoryTotal, error)
	MonthlyNetFlows(ctx context.Context, userID string, since time.Time) ([]storage.MonthFlow, error)
	ActiveBudgets(ctx context.Context, userID string, today time.Time) ([]core.Budget, error)
	SumExpensesInCategory(ctx context.Context, userID, category string, from, to time.Time) (int64, error)
}

type (
	// MonthBucket is one month's expense total; months with no spending
	// carry a zero total.
	MonthBucket struct {
		Month int
		Total core.Money
	}

	// CategoryShare is one category's aggregate amount.
	CategoryShare struct {
		Category string
		Total    core.Money
	}

	// NetWorthPoint is one month on the net worth trend line. NetWorth is
	// the running sum of Net over the requested window.
	NetWorthPoint struct {
		Year     int
		Month    int
		Income   core.Money
		Expense  core.Money
		Net      core.Money
		NetWorth core.Money
	}

	// BudgetStatus pairs a budget with its spending so far in the current
	// period. Progress is a percentage capped at 100.
	BudgetStatus struct {
		Budget     core.Budget
		Spent      core.Money
		Remaining  core.Money
		Progress   float64
		OverBudget bool
	}
)

// AnalyticsService computes spending breakdowns, trends and budget
// progress for a user.
type AnalyticsService struct {
	store AnalyticsStore
	now   func() time.Time
}

func NewAnalyticsService(store AnalyticsStore) *AnalyticsService {
	return &AnalyticsService{store: store, now: time.Now}
}

// TransactionsInRange returns the raw transaction list for [from, to],
// newest first. Like the other derived views it reads the store directly,
// bypassing the balance cache.
func (s *AnalyticsService) TransactionsInRange(ctx context.Context, userID string, from, to time.Time) ([]core.Transaction, error) {
	if to.Before(from) {
		return nil, core.ErrInvalidDate
	}
	txs, err := s.store.ListTransactionsBetween(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("transactions in range: %w", err)
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	return txs, nil
}

// MonthlySpending returns twelve expense buckets for the year, zero-filled
// for months without spending.
func (s *AnalyticsService) MonthlySpending(ctx context.Context, userID string, year int) ([]MonthBucket, error) {
	totals, err := s.store.MonthlyExpenseTotals(ctx, userID, year)
	if err != nil {
		return nil, fmt.Errorf("monthly spending: %w", err)
	}

	buckets := make([]MonthBucket, 12)
	for i := range buckets {
		buckets[i].Month = i + 1
	}
	for _, mt := range totals {
		if mt.Month >= 1 && mt.Month <= 12 {
			buckets[mt.Month-1].Total = core.Money{Cents: mt.Total}
		}
	}
	return buckets, nil
}

// CategoryBreakdown returns per-category totals for the type, largest
// first, optionally restricted to [from, to].
func (s *AnalyticsService) CategoryBreakdown(ctx context.Context, userID string, t core.TransactionType, from, to *time.Time) ([]CategoryShare, error) {
	if !t.IsValid() {
		return nil, core.ErrInvalidType
	}
	totals, err := s.store.CategoryTotals(ctx, userID, t, from, to)
	if err != nil {
		return nil, fmt.Errorf("category breakdown: %w", err)
	}

	shares := make([]CategoryShare, len(totals))
	for i, ct := range totals {
		shares[i] = CategoryShare{Category: ct.Category, Total: core.Money{Cents: ct.Total}}
	}
	return shares, nil
}

// NetWorthTrend returns one point per month over the trailing window,
// oldest first, with a running net worth total.
func (s *AnalyticsService) NetWorthTrend(ctx context.Context, userID string, months int) ([]NetWorthPoint, error) {
	if months < 1 {
		months = 12
	}
	now := s.now()
	since := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(months - 1), 0)

	flows, err := s.store.MonthlyNetFlows(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("net worth trend: %w", err)
	}

	points := make([]NetWorthPoint, 0, len(flows))
	var netWorth int64
	for _, f := range flows {
		net := f.Income - f.Expense
		netWorth += net
		points = append(points, NetWorthPoint{
			Year:     f.Year,
			Month:    f.Month,
			Income:   core.Money{Cents: f.Income},
			Expense:  core.Money{Cents: f.Expense},
			Net:      core.Money{Cents: net},
			NetWorth: core.Money{Cents: netWorth},
		})
	}
	return points, nil
}

// BudgetProgress returns spending status for each budget active today.
func (s *AnalyticsService) BudgetProgress(ctx context.Context, userID string) ([]BudgetStatus, error) {
	now := s.now()
	budgets, err := s.store.ActiveBudgets(ctx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("budget progress: %w", err)
	}

	statuses := make([]BudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		from, to := budgetWindow(b, now)
		spent, err := s.store.SumExpensesInCategory(ctx, userID, b.Category, from, to)
		if err != nil {
			return nil, fmt.Errorf("budget progress for %q: %w", b.Name, err)
		}

		progress := 0.0
		if b.Amount.Cents > 0 {
			progress = float64(spent) / float64(b.Amount.Cents) * 100
		}
		if progress > 100 {
			progress = 100
		}
		statuses = append(statuses, BudgetStatus{
			Budget:     b,
			Spent:      core.Money{Cents: spent},
			Remaining:  core.Money{Cents: b.Amount.Cents - spent},
			Progress:   progress,
			OverBudget: spent > b.Amount.Cents,
		})
	}
	return statuses, nil
}

// budgetWindow resolves the date range spending counts against: the
// current calendar month or year for recurring budgets, the budget's own
// range otherwise.
func budgetWindow(b core.Budget, now time.Time) (from, to time.Time) {
	switch b.Period {
	case core.BudgetMonthly:
		from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		to = from.AddDate(0, 1, 0).Add(-time.Second)
	case core.BudgetYearly:
		from = time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		to = time.Date(now.Year(), 12, 31, 23, 59, 59, 0, time.UTC)
	default:
		from = b.StartDate
		to = now
		if b.EndDate != nil {
			to = *b.EndDate
		}
	}
	return from, to
}
