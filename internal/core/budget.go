package core

import "time"

const (
	BudgetMonthly BudgetPeriod = "monthly"
	BudgetYearly  BudgetPeriod = "yearly"
	BudgetCustom  BudgetPeriod = "custom"
)

type (
	BudgetPeriod string

	// Budget caps spending for one expense category over a recurring or
	// fixed period. EndDate is nil for open-ended budgets.
	Budget struct {
		ID        int64
		UserID    string
		Name      string
		Category  string
		Amount    Money
		Period    BudgetPeriod
		StartDate time.Time
		EndDate   *time.Time
	}
)

func (p BudgetPeriod) IsValid() bool {
	switch p {
	case BudgetMonthly, BudgetYearly, BudgetCustom:
		return true
	default:
		return false
	}
}
