package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	_ "modernc.org/sqlite"

	"fintrack/internal/core"
)

// ErrTransactionNotFound is returned by updates and deletes referencing an
// id the store does not know, or one owned by a different user.
var ErrTransactionNotFound = errors.New("transaction not found")

// Dates are stored as RFC3339 UTC text so lexicographic order matches
// chronological order and strftime() works on the raw column.
const dateFmt = time.RFC3339

// SQLiteRepository is the durable transaction store.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// withRetry retries transient SQLITE_BUSY failures with fibonacci backoff.
// Anything else fails immediately.
func withRetry(ctx context.Context, op func(context.Context) error) error {
	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(25*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := op(ctx)
		if isBusy(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

// CreateTransaction inserts the row and returns it with the assigned id.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	var id int64
	err := withRetry(ctx, func(ctx context.Context) error {
		res, err := r.db.ExecContext(ctx,
			`INSERT INTO transactions (user_id, type, category, amount_cents, date, description)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			t.UserID, string(t.Type), t.Category, t.Amount.Cents, t.Date.UTC().Format(dateFmt), t.Description)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	t.ID = id
	slog.InfoContext(ctx, "Transaction saved",
		"transaction_id", id,
		"user_id", t.UserID,
		"type", t.Type,
		"amount_cents", t.Amount.Cents)
	return t, nil
}

// UpdateTransaction replaces the mutable fields of the row with t's id,
// scoped to t's user. Returns ErrTransactionNotFound for unknown ids.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	err := withRetry(ctx, func(ctx context.Context) error {
		res, err := r.db.ExecContext(ctx,
			`UPDATE transactions
			 SET type = ?, category = ?, amount_cents = ?, date = ?, description = ?,
			     updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
			 WHERE id = ? AND user_id = ?`,
			string(t.Type), t.Category, t.Amount.Cents, t.Date.UTC().Format(dateFmt), t.Description,
			t.ID, t.UserID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrTransactionNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrTransactionNotFound) {
			return core.Transaction{}, ErrTransactionNotFound
		}
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction updated", "transaction_id", t.ID, "user_id", t.UserID)
	return t, nil
}

// DeleteTransaction removes the row and returns the deleted record.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64, userID string) (core.Transaction, error) {
	var deleted core.Transaction
	err := withRetry(ctx, func(ctx context.Context) error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		row := tx.QueryRowContext(ctx,
			`SELECT id, user_id, type, category, amount_cents, date, description
			 FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
		deleted, err = scanTransaction(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrTransactionNotFound
			}
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		if errors.Is(err, ErrTransactionNotFound) {
			return core.Transaction{}, ErrTransactionNotFound
		}
		return core.Transaction{}, fmt.Errorf("delete transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction deleted", "transaction_id", id, "user_id", userID)
	return deleted, nil
}

// ListTransactions returns all of the user's transactions, newest first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, type, category, amount_cents, date, description
		 FROM transactions WHERE user_id = ?
		 ORDER BY date DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	transactions := []core.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return transactions, nil
}

// ListTransactionsBetween returns the user's transactions dated within
// [from, to], newest first.
func (r *SQLiteRepository) ListTransactionsBetween(ctx context.Context, userID string, from, to time.Time) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, type, category, amount_cents, date, description
		 FROM transactions WHERE user_id = ? AND date >= ? AND date <= ?
		 ORDER BY date DESC, id DESC`,
		userID, from.UTC().Format(dateFmt), to.UTC().Format(dateFmt))
	if err != nil {
		return nil, fmt.Errorf("list transactions between: %w", err)
	}
	defer rows.Close()

	transactions := []core.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions between: %w", err)
	}
	return transactions, nil
}

// SumAmounts returns the total amount of the user's transactions of the
// given type, in cents.
func (r *SQLiteRepository) SumAmounts(ctx context.Context, userID string, t core.TransactionType) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
		 WHERE user_id = ? AND type = ?`, userID, string(t)).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum amounts: %w", err)
	}
	return total, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanTransaction(row scannable) (core.Transaction, error) {
	var (
		t       core.Transaction
		typ     string
		dateStr string
	)
	if err := row.Scan(&t.ID, &t.UserID, &typ, &t.Category, &t.Amount.Cents, &dateStr, &t.Description); err != nil {
		return core.Transaction{}, err
	}
	t.Type = core.TransactionType(typ)
	date, err := time.Parse(dateFmt, dateStr)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse date %q: %w", dateStr, err)
	}
	t.Date = date
	return t, nil
}
