package budget

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/finledger/internal/errs"
	"github.com/tinoosan/finledger/internal/ledger"
	"github.com/tinoosan/finledger/internal/storage"
	"github.com/tinoosan/finledger/internal/storage/memory"
)

var (
	march1  = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	march31 = time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
)

func newService() (*memory.Store, Service) {
	store := memory.New()
	return store, New(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func addCategory(t *testing.T, store *memory.Store, user uuid.UUID, slug string) uuid.UUID {
	t.Helper()
	c := ledger.Category{ID: uuid.New(), UserID: user, Name: slug, Slug: slug, Kind: ledger.CategoryExpense}
	require.NoError(t, store.InTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		return tx.InsertCategory(ctx, c)
	}))
	return c.ID
}

func addExpense(t *testing.T, store *memory.Store, user uuid.UUID, cat *uuid.UUID, amount string, date time.Time) {
	t.Helper()
	e := ledger.Expense{ID: uuid.New(), UserID: user, Title: "spend", CategoryID: cat, Type: ledger.ExpenseRegular,
		Amount: ledger.MustAmount("USD", amount), Date: date}
	require.NoError(t, store.InTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		return tx.InsertExpense(ctx, e)
	}))
}

func assertPct(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Zero(t, decimal.MustParse(want).Cmp(got), "want %s, got %s", want, got)
}

func create(t *testing.T, svc Service, user uuid.UUID, cat *uuid.UUID, amount string) View {
	t.Helper()
	v, err := svc.Create(context.Background(), user, CreateInput{
		Name: "Food", CategoryID: cat, Amount: ledger.MustAmount("USD", amount),
		StartDate: march1, EndDate: march31, PeriodType: ledger.PeriodMonthly,
	})
	require.NoError(t, err)
	return v
}

func TestRecomputeIsStable(t *testing.T) {
	store, svc := newService()
	user := uuid.New()
	food := addCategory(t, store, user, "food")
	b := create(t, svc, user, &food, "200.00")

	addExpense(t, store, user, &food, "50.00", march1)
	addExpense(t, store, user, &food, "25.50", march31)
	addExpense(t, store, user, &food, "99.00", march31.AddDate(0, 0, 1)) // outside window
	addExpense(t, store, user, nil, "10.00", march1)                     // other category

	first, err := svc.RecomputeSpent(context.Background(), user, b.ID)
	require.NoError(t, err)
	second, err := svc.RecomputeSpent(context.Background(), user, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "75.50", ledger.FormatAmount(first.SpentAmount))
	assert.Equal(t, ledger.FormatAmount(first.SpentAmount), ledger.FormatAmount(second.SpentAmount))
	assert.Equal(t, first.UpdatedAt, second.UpdatedAt, "unchanged spend must not rewrite")

	v, err := svc.Get(context.Background(), user, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "124.50", ledger.FormatAmount(v.RemainingAmount))
	assertPct(t, "37.75", v.SpentPercentage)
	assert.False(t, v.IsOverBudget)
	assert.False(t, v.IsAlertTriggered)
}

func TestDerivedFields(t *testing.T) {
	store, svc := newService()
	user := uuid.New()

	zero := create(t, svc, user, nil, "0.00")
	assert.True(t, zero.SpentPercentage.IsZero())

	addExpense(t, store, user, nil, "120.00", march1)
	v, err := svc.Get(context.Background(), user, zero.ID)
	require.NoError(t, err)
	assert.True(t, v.SpentPercentage.IsZero())
	assert.True(t, v.IsOverBudget)
	assert.Equal(t, "0.00", ledger.FormatAmount(v.RemainingAmount))

	over := create(t, svc, user, nil, "100.00")
	assert.True(t, over.IsOverBudget)
	assert.True(t, over.IsAlertTriggered)
	assertPct(t, "120", over.SpentPercentage)

	exact := create(t, svc, user, nil, "150.00")
	assert.False(t, exact.IsOverBudget)
	assert.True(t, exact.IsAlertTriggered, "80% of 150 is 120")
}

func TestAlertUsesUnroundedPercentage(t *testing.T) {
	v := NewView(ledger.Budget{
		Amount:          ledger.MustAmount("USD", "200.01"),
		SpentAmount:     ledger.MustAmount("USD", "160.00"),
		AlertPercentage: decimal.MustNew(80, 0),
	})
	assertPct(t, "80.00", v.SpentPercentage)
	assert.False(t, v.IsAlertTriggered, "79.996% is below an 80% alert")

	v = NewView(ledger.Budget{
		Amount:          ledger.MustAmount("USD", "200.00"),
		SpentAmount:     ledger.MustAmount("USD", "160.00"),
		AlertPercentage: decimal.MustNew(80, 0),
	})
	assert.True(t, v.IsAlertTriggered)
}

func TestCreateValidation(t *testing.T) {
	store, svc := newService()
	user := uuid.New()
	over := decimal.MustNew(101, 0)
	cases := map[string]struct {
		in    CreateInput
		field string
	}{
		"negative":     {CreateInput{Name: "x", Amount: ledger.MustAmount("USD", "-1.00"), StartDate: march1, EndDate: march31}, "budget_amount"},
		"window":       {CreateInput{Name: "x", Amount: ledger.MustAmount("USD", "1.00"), StartDate: march31, EndDate: march1}, "end_date"},
		"alert":        {CreateInput{Name: "x", Amount: ledger.MustAmount("USD", "1.00"), StartDate: march1, EndDate: march31, AlertPercentage: &over}, "alert_percentage"},
		"period":       {CreateInput{Name: "x", Amount: ledger.MustAmount("USD", "1.00"), StartDate: march1, EndDate: march31, PeriodType: "weekly"}, "period_type"},
		"missing name": {CreateInput{Amount: ledger.MustAmount("USD", "1.00"), StartDate: march1, EndDate: march31}, "budget_name"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), user, tc.in)
			var fe *errs.FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tc.field, fe.Field)
		})
	}

	foreign := addCategory(t, store, uuid.New(), "rent")
	_, err := svc.Create(context.Background(), user, CreateInput{Name: "x", CategoryID: &foreign,
		Amount: ledger.MustAmount("USD", "1.00"), StartDate: march1, EndDate: march31})
	require.ErrorIs(t, err, errs.ErrConsistency)
}

func TestSummarizeGroupsByFirstOccurrence(t *testing.T) {
	store, svc := newService()
	user := uuid.New()
	food := addCategory(t, store, user, "food")
	rent := addCategory(t, store, user, "rent")
	addExpense(t, store, user, &food, "50.00", march1)

	views := []View{
		create(t, svc, user, &rent, "1000.00"),
		create(t, svc, user, nil, "100.00"),
		create(t, svc, user, &food, "100.00"),
		create(t, svc, user, &rent, "500.00"),
	}
	sum, err := svc.Summarize("USD", views)
	require.NoError(t, err)
	assert.Equal(t, 4, sum.TotalBudgets)
	assert.Equal(t, 4, sum.ActiveBudgets)
	assert.Equal(t, "1700.00", ledger.FormatAmount(sum.TotalBudgetAmount))
	require.Len(t, sum.ByCategory, 3)
	assert.Equal(t, rent, *sum.ByCategory[0].CategoryID)
	assert.Equal(t, 2, sum.ByCategory[0].Count)
	assert.Nil(t, sum.ByCategory[1].CategoryID)
	assertPct(t, "50", sum.ByCategory[1].AverageSpentPercentage)
	assert.Equal(t, food, *sum.ByCategory[2].CategoryID)
}

func TestAnalyticsAndExpiry(t *testing.T) {
	_, svc := newService()
	user := uuid.New()
	create(t, svc, user, nil, "100.00")

	a, err := svc.Analytics(context.Background(), user, "USD", PeriodLastMonth, time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, a.Budgets, 1)

	a, err = svc.Analytics(context.Background(), user, "USD", PeriodCurrent, time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, a.Budgets)

	_, err = svc.Analytics(context.Background(), user, "USD", "forever", time.Now())
	require.ErrorIs(t, err, errs.ErrInvalid)

	n, err := svc.ExpireBudgets(context.Background(), time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	list, err := svc.List(context.Background(), user, storage.BudgetFilter{Status: ledger.BudgetCompleted})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
