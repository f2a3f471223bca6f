package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fintrack/internal/core"
)

// MonthTotal is one month's aggregate amount.
type MonthTotal struct {
	Month int // 1-12
	Total int64
}

// CategoryTotal is the aggregate amount for one category.
type CategoryTotal struct {
	Category string
	Total    int64
}

// MonthFlow is one month's income and expense totals.
type MonthFlow struct {
	Year    int
	Month   int
	Income  int64
	Expense int64
}

// MonthlyExpenseTotals returns per-month expense sums for a year. Months
// with no spending are absent from the result.
func (r *SQLiteRepository) MonthlyExpenseTotals(ctx context.Context, userID string, year int) ([]MonthTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT CAST(strftime('%m', date) AS INTEGER) AS month, SUM(amount_cents)
		 FROM transactions
		 WHERE user_id = ? AND type = 'expense' AND strftime('%Y', date) = ?
		 GROUP BY month ORDER BY month`,
		userID, fmt.Sprintf("%04d", year))
	if err != nil {
		return nil, fmt.Errorf("monthly expense totals: %w", err)
	}
	defer rows.Close()

	var totals []MonthTotal
	for rows.Next() {
		var mt MonthTotal
		if err := rows.Scan(&mt.Month, &mt.Total); err != nil {
			return nil, fmt.Errorf("scan month total: %w", err)
		}
		totals = append(totals, mt)
	}
	return totals, rows.Err()
}

// CategoryTotals returns per-category sums for one transaction type,
// optionally bounded by [from, to], largest first.
func (r *SQLiteRepository) CategoryTotals(ctx context.Context, userID string, t core.TransactionType, from, to *time.Time) ([]CategoryTotal, error) {
	query := `SELECT category, SUM(amount_cents) AS total
	          FROM transactions WHERE user_id = ? AND type = ?`
	args := []any{userID, string(t)}
	if from != nil {
		query += ` AND date >= ?`
		args = append(args, from.UTC().Format(dateFmt))
	}
	if to != nil {
		query += ` AND date <= ?`
		args = append(args, to.UTC().Format(dateFmt))
	}
	query += ` GROUP BY category ORDER BY total DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	defer rows.Close()

	var totals []CategoryTotal
	for rows.Next() {
		var ct CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Total); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		totals = append(totals, ct)
	}
	return totals, rows.Err()
}

// MonthlyNetFlows returns income and expense totals per month since the
// given date, oldest first.
func (r *SQLiteRepository) MonthlyNetFlows(ctx context.Context, userID string, since time.Time) ([]MonthFlow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT CAST(strftime('%Y', date) AS INTEGER) AS year,
		        CAST(strftime('%m', date) AS INTEGER) AS month,
		        SUM(CASE WHEN type = 'income' THEN amount_cents ELSE 0 END),
		        SUM(CASE WHEN type = 'expense' THEN amount_cents ELSE 0 END)
		 FROM transactions
		 WHERE user_id = ? AND date >= ?
		 GROUP BY year, month ORDER BY year, month`,
		userID, since.UTC().Format(dateFmt))
	if err != nil {
		return nil, fmt.Errorf("monthly net flows: %w", err)
	}
	defer rows.Close()

	var flows []MonthFlow
	for rows.Next() {
		var mf MonthFlow
		if err := rows.Scan(&mf.Year, &mf.Month, &mf.Income, &mf.Expense); err != nil {
			return nil, fmt.Errorf("scan month flow: %w", err)
		}
		flows = append(flows, mf)
	}
	return flows, rows.Err()
}

// CreateBudget inserts a budget and returns it with the assigned id.
func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	var end any
	if b.EndDate != nil {
		end = b.EndDate.UTC().Format(dateFmt)
	}
	var id int64
	err := withRetry(ctx, func(ctx context.Context) error {
		res, err := r.db.ExecContext(ctx,
			`INSERT INTO budgets (user_id, name, category, amount_cents, period, start_date, end_date)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			b.UserID, b.Name, b.Category, b.Amount.Cents, string(b.Period),
			b.StartDate.UTC().Format(dateFmt), end)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	b.ID = id
	return b, nil
}

// ActiveBudgets returns budgets whose period covers the given day.
func (r *SQLiteRepository) ActiveBudgets(ctx context.Context, userID string, today time.Time) ([]core.Budget, error) {
	day := today.UTC().Format(dateFmt)
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, category, amount_cents, period, start_date, end_date
		 FROM budgets
		 WHERE user_id = ? AND start_date <= ? AND (end_date IS NULL OR end_date >= ?)
		 ORDER BY id`, userID, day, day)
	if err != nil {
		return nil, fmt.Errorf("active budgets: %w", err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		var (
			b        core.Budget
			period   string
			startStr string
			endStr   sql.NullString
		)
		if err := rows.Scan(&b.ID, &b.UserID, &b.Name, &b.Category, &b.Amount.Cents, &period, &startStr, &endStr); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		b.Period = core.BudgetPeriod(period)
		start, err := time.Parse(dateFmt, startStr)
		if err != nil {
			return nil, fmt.Errorf("parse budget start date %q: %w", startStr, err)
		}
		b.StartDate = start
		if endStr.Valid {
			end, err := time.Parse(dateFmt, endStr.String)
			if err != nil {
				return nil, fmt.Errorf("parse budget end date %q: %w", endStr.String, err)
			}
			b.EndDate = &end
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// SumExpensesInCategory totals the user's expense transactions for one
// category within [from, to].
func (r *SQLiteRepository) SumExpensesInCategory(ctx context.Context, userID, category string, from, to time.Time) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
		 WHERE user_id = ? AND type = 'expense' AND category = ? AND date >= ? AND date <= ?`,
		userID, category, from.UTC().Format(dateFmt), to.UTC().Format(dateFmt)).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum expenses in category: %w", err)
	}
	return total, nil
}
