// Package export defines the outbound port for rendered statements. The
// statement worker regenerates a user's statement whenever a revalidation
// signal arrives.
package export

import (
	"context"

	"fintrack/internal/core"
)

// Statement is a rendered view of one user's finances: the transaction
// list plus the summary derived from it.
type Statement struct {
	UserID       string
	Transactions []core.Transaction
	Balance      core.BalanceSummary
}

// StatementWriter replaces the externally cached statement for a user.
type StatementWriter interface {
	WriteStatement(ctx context.Context, st Statement) error
}
