// Package budget tracks spending limits. The spent amount is a cache over the
// user's expenses; it is recomputed whenever a budget is read and written back
// only when it moved.
package budget

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"

	"github.com/tinoosan/finledger/internal/errs"
	"github.com/tinoosan/finledger/internal/ledger"
	"github.com/tinoosan/finledger/internal/metrics"
	"github.com/tinoosan/finledger/internal/storage"
)

type Store interface {
	Budget(ctx context.Context, userID, id uuid.UUID) (ledger.Budget, error)
	Budgets(ctx context.Context, userID uuid.UUID, f storage.BudgetFilter) ([]ledger.Budget, error)
	InTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error
}

// View is a budget with its derived figures.
type View struct {
	ledger.Budget
	RemainingAmount  money.Amount
	SpentPercentage  decimal.Decimal
	IsOverBudget     bool
	IsAlertTriggered bool
}

// CategoryAverage is one per-category row of a Summary.
type CategoryAverage struct {
	// CategoryID is nil for the uncategorized bucket.
	CategoryID             *uuid.UUID
	Count                  int
	TotalBudget            money.Amount
	TotalSpent             money.Amount
	AverageSpentPercentage decimal.Decimal
}

// Summary aggregates a list of budget views.
type Summary struct {
	TotalBudgets        int
	TotalBudgetAmount   money.Amount
	TotalSpentAmount    money.Amount
	ActiveBudgets       int
	OverBudgetCount     int
	AlertTriggeredCount int
	ByCategory          []CategoryAverage
}

// Period selects the window used by Analytics.
type Period string

const (
	PeriodCurrent     Period = "current"
	PeriodLastMonth   Period = "last_month"
	PeriodLast3Months Period = "last_3_months"
)

// Analytics summarizes the budgets overlapping a period.
type Analytics struct {
	Period  Period
	From    time.Time
	To      time.Time
	Budgets []View
	Summary Summary
}

// CreateInput creates a budget. A nil AlertPercentage takes the default.
type CreateInput struct {
	Name            string
	Description     string
	CategoryID      *uuid.UUID
	Amount          money.Amount
	StartDate       time.Time
	EndDate         time.Time
	PeriodType      ledger.PeriodType
	AlertPercentage *decimal.Decimal
}

// UpdateInput edits a budget; nil fields are left as they are.
type UpdateInput struct {
	Name            *string
	Description     *string
	CategoryID      *uuid.UUID
	ClearCategory   bool
	Amount          *money.Amount
	StartDate       *time.Time
	EndDate         *time.Time
	PeriodType      *ledger.PeriodType
	AlertPercentage *decimal.Decimal
	Status          *ledger.BudgetStatus
}

type Service interface {
	Create(ctx context.Context, userID uuid.UUID, in CreateInput) (View, error)
	Get(ctx context.Context, userID, id uuid.UUID) (View, error)
	List(ctx context.Context, userID uuid.UUID, f storage.BudgetFilter) ([]View, error)
	RecomputeSpent(ctx context.Context, userID, id uuid.UUID) (ledger.Budget, error)
	Update(ctx context.Context, userID, id uuid.UUID, in UpdateInput) (View, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	// Summarize covers the views denominated in curr.
	Summarize(curr string, views []View) (Summary, error)
	Analytics(ctx context.Context, userID uuid.UUID, curr string, p Period, now time.Time) (Analytics, error)
	// ExpireBudgets completes active budgets whose window ended before asOf.
	ExpireBudgets(ctx context.Context, asOf time.Time) (int, error)
}

type service struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

func New(store Store, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{store: store, log: logger, now: func() time.Time { return time.Now().UTC() }}
}

var hundred = decimal.MustNew(100, 0)

func validate(b ledger.Budget) error {
	switch {
	case b.Name == "":
		return errs.Field("budget_name", "required")
	case b.Amount.IsNeg():
		return errs.Field("budget_amount", "must be >= 0")
	case b.StartDate.IsZero():
		return errs.Field("start_date", "required")
	case b.EndDate.IsZero():
		return errs.Field("end_date", "required")
	case !b.EndDate.After(b.StartDate):
		return errs.Field("end_date", "must be after start_date")
	case !b.AlertPercentage.IsPos() || b.AlertPercentage.Cmp(hundred) > 0:
		return errs.Field("alert_percentage", "must be > 0 and <= 100")
	}
	switch b.PeriodType {
	case ledger.PeriodMonthly, ledger.PeriodYearly, ledger.PeriodCustom:
	default:
		return errs.Field("period_type", "must be monthly, yearly or custom")
	}
	switch b.Status {
	case ledger.BudgetActive, ledger.BudgetPaused, ledger.BudgetCompleted:
	default:
		return errs.Field("status", "must be active, paused or completed")
	}
	return nil
}

func checkCategory(ctx context.Context, tx storage.Tx, userID uuid.UUID, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	owner, err := tx.OwnerOf(ctx, storage.TableCategories, *id)
	if err != nil {
		return err
	}
	if owner != userID {
		return errs.Consistency("category %s belongs to another user", *id)
	}
	c, err := tx.Category(ctx, userID, *id)
	if err != nil {
		return err
	}
	if !c.Kind.Accepts(ledger.CategoryExpense) {
		return errs.Field("category_id", "must be an expense category")
	}
	return nil
}

// spent sums the user's expenses inside the budget window, restricted to the
// budget's category when it has one.
func spent(ctx context.Context, r storage.Reader, b ledger.Budget) (money.Amount, error) {
	from, to := ledger.Day(b.StartDate), ledger.Day(b.EndDate)
	list, err := r.Expenses(ctx, b.UserID, storage.ExpenseFilter{From: &from, To: &to, CategoryID: b.CategoryID})
	if err != nil {
		return money.Amount{}, err
	}
	total := ledger.Zero(b.Amount.Curr().Code())
	for _, e := range list {
		if e.Amount.Curr() != total.Curr() {
			continue
		}
		if total, err = total.Add(e.Amount); err != nil {
			return money.Amount{}, err
		}
	}
	return total, nil
}

// refresh recomputes b's cache inside tx, writing only on change.
func (s *service) refresh(ctx context.Context, tx storage.Tx, b ledger.Budget) (ledger.Budget, error) {
	got, err := spent(ctx, tx, b)
	if err != nil {
		return ledger.Budget{}, err
	}
	if ledger.Minor(got) == ledger.Minor(b.SpentAmount) && got.Curr() == b.SpentAmount.Curr() {
		return b, nil
	}
	b.SpentAmount = got
	b.UpdatedAt = s.now()
	if err := tx.UpdateBudget(ctx, b); err != nil {
		return ledger.Budget{}, err
	}
	metrics.BudgetRecomputes.Inc()
	s.log.Debug("budget spent refreshed", "user_id", b.UserID, "budget_id", b.ID, "spent", ledger.FormatAmount(got))
	return b, nil
}

// NewView derives the computed figures of b.
func NewView(b ledger.Budget) View {
	v := View{Budget: b, RemainingAmount: ledger.Zero(b.Amount.Curr().Code())}
	if rem, err := b.Amount.Sub(b.SpentAmount); err == nil && rem.IsPos() {
		v.RemainingAmount = rem
	}
	exact := ledger.PercentExact(b.SpentAmount, b.Amount)
	v.SpentPercentage = exact.Round(2)
	v.IsOverBudget = ledger.Minor(b.SpentAmount) > ledger.Minor(b.Amount)
	v.IsAlertTriggered = exact.Cmp(b.AlertPercentage) >= 0
	return v
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, in CreateInput) (View, error) {
	if userID == uuid.Nil {
		return View{}, errs.Field("user_id", "required")
	}
	now := s.now()
	b := ledger.Budget{
		ID:              uuid.New(),
		UserID:          userID,
		Name:            in.Name,
		Description:     in.Description,
		CategoryID:      in.CategoryID,
		Amount:          in.Amount.RoundToCurr(),
		SpentAmount:     ledger.Zero(in.Amount.Curr().Code()),
		StartDate:       ledger.Day(in.StartDate),
		EndDate:         ledger.Day(in.EndDate),
		PeriodType:      in.PeriodType,
		AlertPercentage: ledger.DefaultAlertPercentage,
		Status:          ledger.BudgetActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if b.PeriodType == "" {
		b.PeriodType = ledger.PeriodMonthly
	}
	if in.AlertPercentage != nil {
		b.AlertPercentage = *in.AlertPercentage
	}
	if err := validate(b); err != nil {
		return View{}, err
	}
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := checkCategory(ctx, tx, userID, b.CategoryID); err != nil {
			return err
		}
		got, err := spent(ctx, tx, b)
		if err != nil {
			return err
		}
		b.SpentAmount = got
		return tx.InsertBudget(ctx, b)
	})
	if err != nil {
		return View{}, err
	}
	s.log.Info("budget created", "user_id", userID, "budget_id", b.ID)
	return NewView(b), nil
}

func (s *service) RecomputeSpent(ctx context.Context, userID, id uuid.UUID) (ledger.Budget, error) {
	var out ledger.Budget
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		b, err := tx.Budget(ctx, userID, id)
		if err != nil {
			return err
		}
		out, err = s.refresh(ctx, tx, b)
		return err
	})
	return out, err
}

func (s *service) Get(ctx context.Context, userID, id uuid.UUID) (View, error) {
	b, err := s.RecomputeSpent(ctx, userID, id)
	if err != nil {
		return View{}, err
	}
	return NewView(b), nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, f storage.BudgetFilter) ([]View, error) {
	var out []View
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		list, err := tx.Budgets(ctx, userID, f)
		if err != nil {
			return err
		}
		out = make([]View, 0, len(list))
		for _, b := range list {
			if b, err = s.refresh(ctx, tx, b); err != nil {
				return err
			}
			out = append(out, NewView(b))
		}
		return nil
	})
	return out, err
}

func (s *service) Update(ctx context.Context, userID, id uuid.UUID, in UpdateInput) (View, error) {
	var out ledger.Budget
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		b, err := tx.Budget(ctx, userID, id)
		if err != nil {
			return err
		}
		if in.Name != nil {
			b.Name = *in.Name
		}
		if in.Description != nil {
			b.Description = *in.Description
		}
		if in.ClearCategory {
			b.CategoryID = nil
		} else if in.CategoryID != nil {
			b.CategoryID = in.CategoryID
		}
		if in.Amount != nil {
			if in.Amount.Curr() != b.Amount.Curr() {
				return errs.Field("budget_amount", "currency must be "+b.Amount.Curr().Code())
			}
			b.Amount = in.Amount.RoundToCurr()
		}
		if in.StartDate != nil {
			b.StartDate = ledger.Day(*in.StartDate)
		}
		if in.EndDate != nil {
			b.EndDate = ledger.Day(*in.EndDate)
		}
		if in.PeriodType != nil {
			b.PeriodType = *in.PeriodType
		}
		if in.AlertPercentage != nil {
			b.AlertPercentage = *in.AlertPercentage
		}
		if in.Status != nil {
			b.Status = *in.Status
		}
		if err := validate(b); err != nil {
			return err
		}
		if err := checkCategory(ctx, tx, userID, b.CategoryID); err != nil {
			return err
		}
		if b.SpentAmount, err = spent(ctx, tx, b); err != nil {
			return err
		}
		b.UpdatedAt = s.now()
		out = b
		return tx.UpdateBudget(ctx, b)
	})
	if err != nil {
		return View{}, err
	}
	return NewView(out), nil
}

func (s *service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.DeleteBudget(ctx, userID, id)
	})
}

func (s *service) Summarize(curr string, views []View) (Summary, error) {
	out := Summary{TotalBudgetAmount: ledger.Zero(curr), TotalSpentAmount: ledger.Zero(curr)}
	type bucket struct {
		row CategoryAverage
		pct decimal.Decimal
	}
	groups := map[uuid.UUID]*bucket{}
	var order []uuid.UUID
	var err error
	for _, v := range views {
		if v.Amount.Curr().Code() != curr {
			continue
		}
		out.TotalBudgets++
		if out.TotalBudgetAmount, err = out.TotalBudgetAmount.Add(v.Amount); err != nil {
			return Summary{}, err
		}
		if out.TotalSpentAmount, err = out.TotalSpentAmount.Add(v.SpentAmount); err != nil {
			return Summary{}, err
		}
		if v.Status == ledger.BudgetActive {
			out.ActiveBudgets++
		}
		if v.IsOverBudget {
			out.OverBudgetCount++
		}
		if v.IsAlertTriggered {
			out.AlertTriggeredCount++
		}

		key := uuid.Nil // uncategorized
		if v.CategoryID != nil {
			key = *v.CategoryID
		}
		g, ok := groups[key]
		if !ok {
			g = &bucket{row: CategoryAverage{CategoryID: v.CategoryID, TotalBudget: ledger.Zero(curr), TotalSpent: ledger.Zero(curr)}}
			groups[key] = g
			order = append(order, key)
		}
		g.row.Count++
		if g.row.TotalBudget, err = g.row.TotalBudget.Add(v.Amount); err != nil {
			return Summary{}, err
		}
		if g.row.TotalSpent, err = g.row.TotalSpent.Add(v.SpentAmount); err != nil {
			return Summary{}, err
		}
		if g.pct, err = g.pct.Add(v.SpentPercentage); err != nil {
			return Summary{}, err
		}
	}
	for _, k := range order {
		g := groups[k]
		avg, err := g.pct.Quo(decimal.MustNew(int64(g.row.Count), 0))
		if err != nil {
			return Summary{}, err
		}
		g.row.AverageSpentPercentage = avg.Round(2)
		out.ByCategory = append(out.ByCategory, g.row)
	}
	return out, nil
}

// window returns the inclusive day range of p relative to now.
func window(p Period, now time.Time) (time.Time, time.Time, error) {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	switch p {
	case PeriodCurrent, "":
		return first, first.AddDate(0, 1, -1), nil
	case PeriodLastMonth:
		return first.AddDate(0, -1, 0), first.AddDate(0, 0, -1), nil
	case PeriodLast3Months:
		return first.AddDate(0, -3, 0), first.AddDate(0, 0, -1), nil
	}
	return time.Time{}, time.Time{}, errs.Field("period", "must be current, last_month or last_3_months")
}

func (s *service) Analytics(ctx context.Context, userID uuid.UUID, curr string, p Period, now time.Time) (Analytics, error) {
	if p == "" {
		p = PeriodCurrent
	}
	from, to, err := window(p, now)
	if err != nil {
		return Analytics{}, err
	}
	all, err := s.List(ctx, userID, storage.BudgetFilter{})
	if err != nil {
		return Analytics{}, err
	}
	out := Analytics{Period: p, From: from, To: to, Budgets: []View{}}
	for _, v := range all {
		if v.StartDate.After(to) || v.EndDate.Before(from) {
			continue
		}
		out.Budgets = append(out.Budgets, v)
	}
	out.Summary, err = s.Summarize(curr, out.Budgets)
	return out, err
}

func (s *service) ExpireBudgets(ctx context.Context, asOf time.Time) (int, error) {
	var n int
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		n, err = tx.ExpireBudgets(ctx, ledger.Day(asOf))
		return err
	})
	if err == nil && n > 0 {
		s.log.Info("budgets completed", "count", n, "as_of", ledger.FormatDate(asOf))
	}
	return n, err
}
