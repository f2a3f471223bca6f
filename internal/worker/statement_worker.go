// Package worker regenerates exported statements in response to
// revalidation signals.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/export"
)

// StatementStore is the slice of the store the worker reads from.
type StatementStore interface {
	ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
	SumAmounts(ctx context.Context, userID string, t core.TransactionType) (int64, error)
}

// StatementWorker rebuilds one user's statement per revalidation signal.
type StatementWorker struct {
	store  StatementStore
	writer export.StatementWriter
}

func NewStatementWorker(store StatementStore, writer export.StatementWriter) *StatementWorker {
	return &StatementWorker{store: store, writer: writer}
}

// HandleRevalidation fetches the user's current data and replaces the
// exported statement.
func (w *StatementWorker) HandleRevalidation(ctx context.Context, msg *amqp.RevalidationMessage) error {
	slog.InfoContext(ctx, "Processing revalidation signal",
		"user_id", msg.UserID,
		"reason", msg.Reason)

	st, err := w.buildStatement(ctx, msg.UserID)
	if err != nil {
		return fmt.Errorf("build statement: %w", err)
	}

	if err := w.writer.WriteStatement(ctx, st); err != nil {
		return fmt.Errorf("write statement: %w", err)
	}

	slog.InfoContext(ctx, "Statement regenerated",
		"user_id", msg.UserID,
		"transactions", len(st.Transactions))
	return nil
}

// buildStatement loads the transaction list and the two aggregate sums
// concurrently.
func (w *StatementWorker) buildStatement(ctx context.Context, userID string) (export.Statement, error) {
	var (
		transactions    []core.Transaction
		income, expense int64
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		txs, err := w.store.ListTransactions(ctx, userID)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		transactions = txs
		return nil
	})
	g.Go(func() error {
		sum, err := w.store.SumAmounts(ctx, userID, core.Income)
		if err != nil {
			return fmt.Errorf("sum income: %w", err)
		}
		income = sum
		return nil
	})
	g.Go(func() error {
		sum, err := w.store.SumAmounts(ctx, userID, core.Expense)
		if err != nil {
			return fmt.Errorf("sum expense: %w", err)
		}
		expense = sum
		return nil
	})
	if err := g.Wait(); err != nil {
		return export.Statement{}, err
	}

	return export.Statement{
		UserID:       userID,
		Transactions: transactions,
		Balance: core.BalanceSummary{
			TotalBalance: core.Money{Cents: income - expense},
			TotalIncome:  core.Money{Cents: income},
			TotalExpense: core.Money{Cents: expense},
		},
	}, nil
}
