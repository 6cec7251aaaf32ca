package dashboard

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/finledger/internal/errs"
	"github.com/tinoosan/finledger/internal/ledger"
	"github.com/tinoosan/finledger/internal/service/account"
	"github.com/tinoosan/finledger/internal/service/budget"
	"github.com/tinoosan/finledger/internal/service/cashflow"
	"github.com/tinoosan/finledger/internal/service/investment"
	"github.com/tinoosan/finledger/internal/service/journal"
	"github.com/tinoosan/finledger/internal/storage/memory"
)

func TestOverview(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New()
	accounts := account.New(store, logger)
	investments := investment.New(store, logger)
	cf := cashflow.New(store, journal.New(store, logger), investments, logger)
	budgets := budget.New(store, logger)
	svc := New(accounts, cf, budgets, investments)
	user := uuid.New()

	acc, err := accounts.Create(ctx, user, account.CreateInput{
		BankName: "City Bank", AccountName: "Main", AccountNumber: "001", AccountType: "savings",
		Currency: "USD", InitialAmount: ledger.MustAmount("USD", "1000.00"),
	})
	require.NoError(t, err)

	may := time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)
	_, err = cf.CreateIncome(ctx, user, cashflow.IncomeInput{Title: "Salary", Amount: ledger.MustAmount("USD", "3000.00"), Date: may, BankAccountID: &acc.ID})
	require.NoError(t, err)
	_, err = cf.CreateExpense(ctx, user, cashflow.ExpenseInput{Title: "Rent", Amount: ledger.MustAmount("USD", "1200.00"), Date: may, BankAccountID: &acc.ID})
	require.NoError(t, err)
	_, err = cf.CreateExpense(ctx, user, cashflow.ExpenseInput{Title: "Food", Amount: ledger.MustAmount("USD", "300.00"), Date: may.AddDate(0, -1, 0)})
	require.NoError(t, err)
	_, err = budgets.Create(ctx, user, budget.CreateInput{Name: "May", Amount: ledger.MustAmount("USD", "1000.00"),
		StartDate: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), EndDate: time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)

	ov, err := svc.Overview(ctx, user, "USD", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "3000.00", ledger.FormatAmount(ov.TotalIncome))
	assert.Equal(t, "1200.00", ledger.FormatAmount(ov.TotalExpenses))
	assert.Equal(t, "1800.00", ledger.FormatAmount(ov.Net))
	assert.Equal(t, "2800.00", ledger.FormatAmount(ov.Bank.TotalBalance))
	assert.Equal(t, "1800.00", ledger.FormatAmount(ov.Bank.NetChange))
	assert.Equal(t, 1, ov.Budgets.OverBudgetCount)

	require.Len(t, ov.Trend, 12)
	assert.Equal(t, "2023-06", ov.Trend[0].Month)
	assert.Equal(t, "2024-05", ov.Trend[11].Month)
	assert.Equal(t, "300.00", ledger.FormatAmount(ov.Trend[10].Expenses))
	assert.Equal(t, "3000.00", ledger.FormatAmount(ov.Trend[11].Income))

	_, err = svc.Overview(ctx, user, "USD", may, may.AddDate(0, 0, -1))
	require.ErrorIs(t, err, errs.ErrInvalid)
}

func TestOverviewIgnoresOtherCurrencies(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New()
	accounts := account.New(store, logger)
	investments := investment.New(store, logger)
	cf := cashflow.New(store, journal.New(store, logger), investments, logger)
	budgets := budget.New(store, logger)
	svc := New(accounts, cf, budgets, investments)
	user := uuid.New()
	may := time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)
	mayStart, mayEnd := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)

	for _, curr := range []string{"USD", "EUR"} {
		_, err := accounts.Create(ctx, user, account.CreateInput{
			BankName: "City Bank", AccountName: curr, AccountNumber: curr, AccountType: "savings",
			Currency: curr, InitialAmount: ledger.MustAmount(curr, "100.00"),
		})
		require.NoError(t, err)
		_, err = cf.CreateExpense(ctx, user, cashflow.ExpenseInput{Title: "Cafe", Amount: ledger.MustAmount(curr, "10.00"), Date: may})
		require.NoError(t, err)
		_, err = cf.CreateIncome(ctx, user, cashflow.IncomeInput{Title: "Gift", Amount: ledger.MustAmount(curr, "40.00"), Date: may})
		require.NoError(t, err)
		_, err = budgets.Create(ctx, user, budget.CreateInput{Name: curr, Amount: ledger.MustAmount(curr, "50.00"),
			StartDate: mayStart, EndDate: mayEnd})
		require.NoError(t, err)
		_, err = investments.CreateFixedDeposit(ctx, user, investment.FixedDepositInput{
			Name: curr, PrincipalAmount: ledger.MustAmount(curr, "500.00"), TenureMonths: 12, StartDate: may,
		})
		require.NoError(t, err)
	}

	ov, err := svc.Overview(ctx, user, "EUR", mayStart, mayEnd)
	require.NoError(t, err)
	assert.Equal(t, "10.00", ledger.FormatAmount(ov.TotalExpenses))
	assert.Equal(t, "40.00", ledger.FormatAmount(ov.TotalIncome))
	assert.Equal(t, "10.00", ledger.FormatAmount(ov.Trend[11].Expenses))
	assert.Equal(t, "100.00", ledger.FormatAmount(ov.Bank.TotalBalance))
	assert.Equal(t, 1, ov.Budgets.TotalBudgets)
	assert.Equal(t, 1, ov.Investments.Count)
	assert.Equal(t, "500.00", ledger.FormatAmount(ov.Investments.ByKind[ledger.SchemaFDR].Invested))
}
