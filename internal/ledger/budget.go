package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"
)

// PeriodType describes how a budget window was chosen.
type PeriodType string

const (
	PeriodMonthly PeriodType = "monthly"
	PeriodYearly  PeriodType = "yearly"
	PeriodCustom  PeriodType = "custom"
)

// BudgetStatus is the lifecycle state of a budget.
type BudgetStatus string

const (
	BudgetActive    BudgetStatus = "active"
	BudgetPaused    BudgetStatus = "paused"
	BudgetCompleted BudgetStatus = "completed"
)

// DefaultAlertPercentage applies when a budget is created without one.
var DefaultAlertPercentage = decimal.MustNew(80, 0)

// Budget caps spending in an optional category over [StartDate, EndDate].
// SpentAmount is a cache refreshed on read; it is never set by callers.
type Budget struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	Name            string
	Description     string
	CategoryID      *uuid.UUID
	Amount          money.Amount
	SpentAmount     money.Amount
	StartDate       time.Time
	EndDate         time.Time
	PeriodType      PeriodType
	AlertPercentage decimal.Decimal
	Status          BudgetStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Covers reports whether day d falls inside the budget window.
func (b Budget) Covers(d time.Time) bool {
	d = Day(d)
	return !d.Before(Day(b.StartDate)) && !d.After(Day(b.EndDate))
}
