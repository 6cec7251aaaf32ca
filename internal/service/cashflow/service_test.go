package cashflow

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
	"github.com/tinoosan/finledger/internal/service/account"
	"github.com/tinoosan/finledger/internal/service/category"
	"github.com/tinoosan/finledger/internal/service/client"
	"github.com/tinoosan/finledger/internal/service/investment"
	"github.com/tinoosan/finledger/internal/service/journal"
	"github.com/tinoosan/finledger/internal/storage"
	"github.com/tinoosan/finledger/internal/storage/memory"
)

var jan = time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

type fixture struct {
	store       *memory.Store
	svc         Service
	ledger      journal.Service
	investments investment.Service
	accounts    account.Service
	user        uuid.UUID
	bank        ledger.BankAccount
}

func setup(t *testing.T) fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New()
	f := fixture{store: store, user: uuid.New(), accounts: account.New(store, logger)}
	f.ledger = journal.New(store, logger)
	f.investments = investment.New(store, logger)
	f.svc = New(store, f.ledger, f.investments, logger)
	f.bank = f.newAccount(t, f.user, "1000.00")
	return f
}

func (f fixture) newAccount(t *testing.T, user uuid.UUID, initial string) ledger.BankAccount {
	t.Helper()
	acc, err := f.accounts.Create(context.Background(), user, account.CreateInput{
		BankName: "City Bank", AccountName: "Main", AccountNumber: uuid.NewString(), AccountType: "savings",
		Currency: "USD", InitialAmount: ledger.MustAmount("USD", initial),
	})
	require.NoError(t, err)
	return acc
}

func (f fixture) balance(t *testing.T, id uuid.UUID) string {
	t.Helper()
	acc, err := f.store.BankAccount(context.Background(), f.user, id)
	require.NoError(t, err)
	want, err := f.ledger.Rebalance(context.Background(), f.user, id)
	require.NoError(t, err)
	require.Equal(t, ledger.FormatAmount(want), ledger.FormatAmount(acc.CurrentBalance), "rebalance drift")
	return ledger.FormatAmount(acc.CurrentBalance)
}

func (f fixture) dps(t *testing.T, user uuid.UUID) ledger.RecurringDeposit {
	t.Helper()
	d, err := f.investments.CreateRecurringDeposit(context.Background(), user, investment.DepositInput{
		Name: "DPS", MonthlyInstallment: ledger.MustAmount("USD", "100.00"),
		InterestRate: decimal.MustNew(6, 0), TenureMonths: 12, StartDate: jan,
	})
	require.NoError(t, err)
	return d
}

func expenseIn(s string) ExpenseInput {
	return ExpenseInput{Title: "Groceries", Amount: ledger.MustAmount("USD", s), Date: jan}
}

func TestDPSPaymentExpenseUpdatesSchema(t *testing.T) {
	f := setup(t)
	d := f.dps(t, f.user)

	in := expenseIn("100.00")
	in.Type, in.RelatedID, in.BankAccountID = ledger.ExpenseDPSPayment, &d.ID, &f.bank.ID
	in.Date = jan.AddDate(0, 1, 0)
	exp, err := f.svc.CreateExpense(context.Background(), f.user, in)
	require.NoError(t, err)
	require.NotNil(t, exp.Related)
	assert.Equal(t, ledger.SchemaDPS, exp.Related.Kind)

	got, err := f.investments.Get(context.Background(), f.user, d.Ref())
	require.NoError(t, err)
	rd := got.(ledger.RecurringDeposit)
	assert.Equal(t, 1, rd.PaidInstallments)
	assert.Equal(t, 11, rd.RemainingInstallments)
	assert.Equal(t, "100.00", ledger.FormatAmount(rd.TotalDeposited))
	assert.Equal(t, "900.00", f.balance(t, f.bank.ID))

	require.NoError(t, f.svc.DeleteExpense(context.Background(), f.user, exp.ID))
	got, err = f.investments.Get(context.Background(), f.user, d.Ref())
	require.NoError(t, err)
	rd = got.(ledger.RecurringDeposit)
	assert.Equal(t, 0, rd.PaidInstallments)
	assert.Equal(t, 12, rd.RemainingInstallments)
	assert.Equal(t, "1000.00", f.balance(t, f.bank.ID))
}

func TestForeignSchemaPaymentIsAllOrNothing(t *testing.T) {
	f := setup(t)
	other := uuid.New()
	d := f.dps(t, other)

	in := expenseIn("100.00")
	in.Type, in.RelatedID, in.BankAccountID = ledger.ExpenseDPSPayment, &d.ID, &f.bank.ID
	_, err := f.svc.CreateExpense(context.Background(), f.user, in)
	require.ErrorIs(t, err, errs.ErrConsistency)

	list, err := f.svc.ListExpenses(context.Background(), f.user, storage.ExpenseFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
	entries, err := f.ledger.List(context.Background(), f.user, storage.EntryFilter{IncludeReversed: true})
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, "1000.00", f.balance(t, f.bank.ID))

	got, err := f.investments.Get(context.Background(), other, d.Ref())
	require.NoError(t, err)
	assert.Equal(t, 0, got.(ledger.RecurringDeposit).PaidInstallments)
}

func TestLinkChecks(t *testing.T) {
	f := setup(t)
	foreign := f.newAccount(t, uuid.New(), "50.00")

	in := expenseIn("10.00")
	in.BankAccountID = &foreign.ID
	_, err := f.svc.CreateExpense(context.Background(), f.user, in)
	require.ErrorIs(t, err, errs.ErrConsistency)

	missing := uuid.New()
	in.BankAccountID = &missing
	_, err = f.svc.CreateExpense(context.Background(), f.user, in)
	require.ErrorIs(t, err, errs.ErrNotFound)

	in = expenseIn("10.00")
	in.Type, in.RelatedID = ledger.ExpenseDPSPayment, &missing
	_, err = f.svc.CreateExpense(context.Background(), f.user, in)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestExpenseValidation(t *testing.T) {
	f := setup(t)
	id := uuid.New()
	cases := map[string]struct {
		mutate func(*ExpenseInput)
		field  string
	}{
		"zero amount":     {func(in *ExpenseInput) { in.Amount = ledger.Zero("USD") }, "amount"},
		"missing title":   {func(in *ExpenseInput) { in.Title = " " }, "title"},
		"missing date":    {func(in *ExpenseInput) { in.Date = time.Time{} }, "expense_date"},
		"unknown type":    {func(in *ExpenseInput) { in.Type = "gift" }, "expense_type"},
		"regular related": {func(in *ExpenseInput) { in.RelatedID = &id }, "related_id"},
		"payment no ref":  {func(in *ExpenseInput) { in.Type = ledger.ExpenseLoanPayment }, "related_id"},
		"kind mismatch": {func(in *ExpenseInput) {
			in.Type, in.RelatedType, in.RelatedID = ledger.ExpenseLoanPayment, ledger.SchemaDPS, &id
		}, "related_type"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			in := expenseIn("10.00")
			tc.mutate(&in)
			_, err := f.svc.CreateExpense(context.Background(), f.user, in)
			require.ErrorIs(t, err, errs.ErrInvalid)
			var fe *errs.FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tc.field, fe.Field)
		})
	}
}

func TestUpdateExpenseMovesEffects(t *testing.T) {
	f := setup(t)
	second := f.newAccount(t, f.user, "500.00")

	in := expenseIn("40.00")
	in.BankAccountID = &f.bank.ID
	exp, err := f.svc.CreateExpense(context.Background(), f.user, in)
	require.NoError(t, err)
	require.NotNil(t, exp.EntryID)
	assert.Equal(t, "960.00", f.balance(t, f.bank.ID))

	in.Amount = ledger.MustAmount("USD", "75.25")
	in.BankAccountID = &second.ID
	updated, err := f.svc.UpdateExpense(context.Background(), f.user, exp.ID, in)
	require.NoError(t, err)
	assert.Equal(t, exp.CreatedAt, updated.CreatedAt)
	assert.NotEqual(t, *exp.EntryID, *updated.EntryID)
	assert.Equal(t, "1000.00", f.balance(t, f.bank.ID))
	assert.Equal(t, "424.75", f.balance(t, second.ID))

	in.BankAccountID = nil
	updated, err = f.svc.UpdateExpense(context.Background(), f.user, exp.ID, in)
	require.NoError(t, err)
	assert.Nil(t, updated.EntryID)
	assert.Equal(t, "500.00", f.balance(t, second.ID))
}

func TestIncomeLifecycle(t *testing.T) {
	f := setup(t)
	inc, err := f.svc.CreateIncome(context.Background(), f.user, IncomeInput{
		Title: "Salary", Amount: ledger.MustAmount("USD", "2500.00"), Date: jan,
		IsRecurring: true, RecurringFrequency: "monthly", BankAccountID: &f.bank.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "3500.00", f.balance(t, f.bank.ID))

	entry, err := f.ledger.Get(context.Background(), f.user, *inc.EntryID)
	require.NoError(t, err)
	assert.Equal(t, ledger.DirectionIn, entry.Direction)
	assert.Equal(t, ledger.CauseRef{Kind: ledger.CauseIncome, ID: inc.ID}, entry.Cause)

	// caused entries are owned by the income
	err = f.ledger.Delete(context.Background(), f.user, entry.ID)
	require.ErrorIs(t, err, errs.ErrConflict)

	_, err = f.svc.UpdateIncome(context.Background(), f.user, inc.ID, IncomeInput{
		Title: "Salary", Amount: ledger.MustAmount("USD", "2600.00"), Date: jan, BankAccountID: &f.bank.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "3600.00", f.balance(t, f.bank.ID))

	require.NoError(t, f.svc.DeleteIncome(context.Background(), f.user, inc.ID))
	assert.Equal(t, "1000.00", f.balance(t, f.bank.ID))
	_, err = f.svc.GetIncome(context.Background(), f.user, inc.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)

	_, err = f.svc.CreateIncome(context.Background(), f.user, IncomeInput{
		Title: "Bonus", Amount: ledger.MustAmount("USD", "1.00"), Date: jan, IsRecurring: true, RecurringFrequency: "daily",
	})
	require.ErrorIs(t, err, errs.ErrInvalid)
}

func TestExpenseStats(t *testing.T) {
	f := setup(t)
	for _, amt := range []string{"10.00", "20.00", "30.01"} {
		_, err := f.svc.CreateExpense(context.Background(), f.user, expenseIn(amt))
		require.NoError(t, err)
	}
	st, err := f.svc.ExpenseStats(context.Background(), f.user, "USD", storage.ExpenseFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, st.Count)
	assert.Equal(t, "60.01", ledger.FormatAmount(st.Total))
	assert.Equal(t, "20.00", ledger.FormatAmount(st.Average))
	require.Len(t, st.ByCategory, 1)
	assert.Equal(t, "Uncategorized", st.ByCategory[0].Name)
	assert.Equal(t, "60.01", ledger.FormatAmount(st.ByType[ledger.ExpenseRegular]))
}

func TestStatsSkipOtherCurrencies(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	_, err := f.svc.CreateExpense(ctx, f.user, expenseIn("10.00"))
	require.NoError(t, err)
	_, err = f.svc.CreateExpense(ctx, f.user, ExpenseInput{Title: "Cafe", Amount: ledger.MustAmount("EUR", "5.00"), Date: jan})
	require.NoError(t, err)

	st, err := f.svc.ExpenseStats(ctx, f.user, "USD", storage.ExpenseFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, st.Count)
	assert.Equal(t, "10.00", ledger.FormatAmount(st.Total))
	assert.Equal(t, "10.00", ledger.FormatAmount(st.ByType[ledger.ExpenseRegular]))

	st, err = f.svc.ExpenseStats(ctx, f.user, "EUR", storage.ExpenseFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, st.Count)
	assert.Equal(t, "5.00", ledger.FormatAmount(st.Total))

	_, err = f.svc.CreateIncome(ctx, f.user, IncomeInput{Title: "Salary", Amount: ledger.MustAmount("USD", "100.00"), Date: jan})
	require.NoError(t, err)
	_, err = f.svc.CreateIncome(ctx, f.user, IncomeInput{Title: "Refund", Amount: ledger.MustAmount("EUR", "7.00"), Date: jan})
	require.NoError(t, err)
	ist, err := f.svc.IncomeStats(ctx, f.user, "USD", storage.IncomeFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, ist.Count)
	assert.Equal(t, "100.00", ledger.FormatAmount(ist.Total))
}

func TestIncomeClientLinks(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	clients := client.New(f.store, nil)
	mine, err := clients.Create(ctx, f.user, client.Input{Name: "Acme", Status: ledger.ClientActive})
	require.NoError(t, err)
	theirs, err := clients.Create(ctx, uuid.New(), client.Input{Name: "Globex", Status: ledger.ClientActive})
	require.NoError(t, err)

	in := IncomeInput{Title: "Invoice 7", Amount: ledger.MustAmount("USD", "400.00"), Date: jan, BankAccountID: &f.bank.ID}

	in.ClientID = &theirs.ID
	_, err = f.svc.CreateIncome(ctx, f.user, in)
	require.ErrorIs(t, err, errs.ErrConsistency)
	assert.Equal(t, "1000.00", f.balance(t, f.bank.ID))

	missing := uuid.New()
	in.ClientID = &missing
	_, err = f.svc.CreateIncome(ctx, f.user, in)
	require.ErrorIs(t, err, errs.ErrNotFound)

	in.ClientID = &mine.ID
	inc, err := f.svc.CreateIncome(ctx, f.user, in)
	require.NoError(t, err)
	assert.Equal(t, mine.ID, *inc.ClientID)
	assert.Equal(t, "1400.00", f.balance(t, f.bank.ID))

	in.ClientID = &theirs.ID
	_, err = f.svc.UpdateIncome(ctx, f.user, inc.ID, in)
	require.ErrorIs(t, err, errs.ErrConsistency)

	billed, err := f.svc.ListIncomes(ctx, f.user, storage.IncomeFilter{ClientID: &mine.ID})
	require.NoError(t, err)
	require.Len(t, billed, 1)
	assert.Equal(t, inc.ID, billed[0].ID)
}

func TestBothCategoryFilesEitherKind(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	cats := category.New(f.store, nil)
	both, err := cats.Create(ctx, f.user, category.CreateInput{Name: "Side Gig", Kind: ledger.CategoryBoth})
	require.NoError(t, err)
	incomeOnly, err := cats.Create(ctx, f.user, category.CreateInput{Name: "Salary", Kind: ledger.CategoryIncome})
	require.NoError(t, err)

	exp := expenseIn("12.00")
	exp.CategoryID = &both.ID
	_, err = f.svc.CreateExpense(ctx, f.user, exp)
	require.NoError(t, err)
	_, err = f.svc.CreateIncome(ctx, f.user, IncomeInput{Title: "Gig", Amount: ledger.MustAmount("USD", "50.00"), Date: jan, CategoryID: &both.ID})
	require.NoError(t, err)

	exp.CategoryID = &incomeOnly.ID
	_, err = f.svc.CreateExpense(ctx, f.user, exp)
	require.ErrorIs(t, err, errs.ErrInvalid)

	st, err := f.svc.ExpenseStats(ctx, f.user, "USD", storage.ExpenseFilter{})
	require.NoError(t, err)
	require.Len(t, st.ByCategory, 1)
	assert.Equal(t, "Side Gig", st.ByCategory[0].Name)
}
