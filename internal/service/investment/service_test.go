package investment

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

var jan = time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

func newService() (*memory.Store, Service) {
	store := memory.New()
	return store, New(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func payment(user uuid.UUID, typ ledger.ExpenseType, ref ledger.SchemaRef, amount string, date time.Time) ledger.Expense {
	return ledger.Expense{ID: uuid.New(), UserID: user, Type: typ, Related: &ref, Amount: ledger.MustAmount("USD", amount), Date: date}
}

// pay applies and persists the payment the way the cash flow service does.
func pay(t *testing.T, store *memory.Store, svc Service, user uuid.UUID, exp ledger.Expense) error {
	t.Helper()
	return store.InTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		if _, err := svc.ApplyPaymentTx(ctx, tx, user, exp); err != nil {
			return err
		}
		return tx.InsertExpense(ctx, exp)
	})
}

func unpay(t *testing.T, store *memory.Store, svc Service, user uuid.UUID, exp ledger.Expense) error {
	t.Helper()
	return store.InTx(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		if _, err := svc.ReversePaymentTx(ctx, tx, user, exp); err != nil {
			return err
		}
		return tx.DeleteExpense(ctx, user, exp.ID)
	})
}

func TestRecurringDepositCreationDerivations(t *testing.T) {
	_, svc := newService()
	d, err := svc.CreateRecurringDeposit(context.Background(), uuid.New(), DepositInput{
		Name: "Monthly saver", MonthlyInstallment: ledger.MustAmount("USD", "100.00"),
		InterestRate: decimal.MustNew(6, 0), TenureMonths: 12, StartDate: jan,
	})
	require.NoError(t, err)
	// 100 * 12 * (1 + 6/100 * 12/12)
	assert.Equal(t, "1272.00", ledger.FormatAmount(d.MaturityAmount))
	assert.Equal(t, "2025-01-10", ledger.FormatDate(d.MaturityDate))
	assert.Equal(t, "2024-02-10", ledger.FormatDate(*d.NextPaymentDate))
	assert.Equal(t, 12, d.RemainingInstallments)
	assert.Equal(t, "0.00", ledger.FormatAmount(d.TotalDeposited))
}

func TestRecurringDepositInstallmentCounters(t *testing.T) {
	store, svc := newService()
	user := uuid.New()
	d, err := svc.CreateRecurringDeposit(context.Background(), user, DepositInput{
		Name: "DPS", MonthlyInstallment: ledger.MustAmount("USD", "100.00"),
		InterestRate: decimal.MustNew(6, 0), TenureMonths: 12, StartDate: jan,
	})
	require.NoError(t, err)

	for n := 1; n <= 12; n++ {
		require.NoError(t, pay(t, store, svc, user, payment(user, ledger.ExpenseDPSPayment, d.Ref(), "100.00", jan.AddDate(0, n, 0))))
		got, err := svc.Get(context.Background(), user, d.Ref())
		require.NoError(t, err)
		dps := got.(ledger.RecurringDeposit)
		assert.Equal(t, n, dps.PaidInstallments)
		assert.Equal(t, 12-n, dps.RemainingInstallments)
		assert.Equal(t, dps.TenureMonths, dps.PaidInstallments+dps.RemainingInstallments)
		assert.Equal(t, "1272.00", ledger.FormatAmount(dps.MaturityAmount), "maturity is fixed at creation")
	}
	got, _ := svc.Get(context.Background(), user, d.Ref())
	assert.Equal(t, ledger.StatusCompleted, got.(ledger.RecurringDeposit).Status)

	err = pay(t, store, svc, user, payment(user, ledger.ExpenseDPSPayment, d.Ref(), "100.00", jan))
	require.ErrorIs(t, err, errs.ErrConflict)
}

func TestReversePaymentRestoresPreviousDates(t *testing.T) {
	store, svc := newService()
	user := uuid.New()
	d, err := svc.CreateRecurringDeposit(context.Background(), user, DepositInput{
		Name: "DPS", MonthlyInstallment: ledger.MustAmount("USD", "50.00"),
		InterestRate: decimal.MustNew(5, 0), TenureMonths: 6, StartDate: jan,
	})
	require.NoError(t, err)
	first := payment(user, ledger.ExpenseDPSPayment, d.Ref(), "50.00", jan.AddDate(0, 1, 0))
	second := payment(user, ledger.ExpenseDPSPayment, d.Ref(), "50.00", jan.AddDate(0, 2, 0))
	require.NoError(t, pay(t, store, svc, user, first))
	require.NoError(t, pay(t, store, svc, user, second))

	require.NoError(t, unpay(t, store, svc, user, second))
	got, _ := svc.Get(context.Background(), user, d.Ref())
	dps := got.(ledger.RecurringDeposit)
	assert.Equal(t, 1, dps.PaidInstallments)
	assert.Equal(t, "50.00", ledger.FormatAmount(dps.TotalDeposited))
	assert.Equal(t, "2024-02-10", ledger.FormatDate(*dps.LastPaymentDate))
	assert.Equal(t, "2024-03-10", ledger.FormatDate(*dps.NextPaymentDate))

	require.NoError(t, unpay(t, store, svc, user, first))
	got, _ = svc.Get(context.Background(), user, d.Ref())
	dps = got.(ledger.RecurringDeposit)
	assert.Nil(t, dps.LastPaymentDate)
	assert.Equal(t, "2024-02-10", ledger.FormatDate(*dps.NextPaymentDate))
}

func TestFixedDepositRecomputesMaturityOnInvestment(t *testing.T) {
	store, svc := newService()
	user := uuid.New()
	fd, err := svc.CreateFixedDeposit(context.Background(), user, FixedDepositInput{
		Name: "FDR", PrincipalAmount: ledger.MustAmount("USD", "1000.00"),
		InterestRate: decimal.MustNew(12, 0), TenureMonths: 6, StartDate: jan,
	})
	require.NoError(t, err)
	// 1000 * (1 + 12/100 * 6/12)
	assert.Equal(t, "1060.00", ledger.FormatAmount(fd.MaturityAmount))
	assert.Equal(t, "on_maturity", fd.InterestPayout)

	require.NoError(t, pay(t, store, svc, user, payment(user, ledger.ExpenseFDRInvestment, fd.Ref(), "500.00", jan)))
	got, _ := svc.Get(context.Background(), user, fd.Ref())
	assert.Equal(t, "1500.00", ledger.FormatAmount(got.(ledger.FixedDeposit).PrincipalAmount))
	assert.Equal(t, "1590.00", ledger.FormatAmount(got.(ledger.FixedDeposit).MaturityAmount))
}

func TestLoanPayments(t *testing.T) {
	store, svc := newService()
	user := uuid.New()
	l, err := svc.CreateLoan(context.Background(), user, LoanInput{
		Lender: "Bank", LoanType: "car", PrincipalAmount: ledger.MustAmount("USD", "300.00"),
		MonthlyEMI: ledger.MustAmount("USD", "110.00"), InterestRate: decimal.MustNew(10, 0),
		TenureMonths: 3, StartDate: jan,
	})
	require.NoError(t, err)
	assert.Equal(t, "330.00", ledger.FormatAmount(l.TotalAmountPayable))
	assert.Equal(t, "2024-04-10", ledger.FormatDate(l.EndDate))
	assert.Equal(t, "300.00", ledger.FormatAmount(l.OutstandingBalance))

	require.NoError(t, pay(t, store, svc, user, payment(user, ledger.ExpenseLoanPayment, l.Ref(), "110.00", jan.AddDate(0, 1, 0))))
	got, _ := svc.Get(context.Background(), user, l.Ref())
	loan := got.(ledger.Loan)
	assert.Equal(t, "190.00", ledger.FormatAmount(loan.OutstandingBalance))
	assert.Equal(t, "110.00", ledger.FormatAmount(loan.AmountPaid))
	assert.Equal(t, 1, loan.PaidEMIs)
	assert.Equal(t, 2, loan.RemainingEMIs)

	err = pay(t, store, svc, user, payment(user, ledger.ExpenseLoanPayment, l.Ref(), "500.00", jan))
	require.ErrorIs(t, err, errs.ErrConflict)

	require.NoError(t, pay(t, store, svc, user, payment(user, ledger.ExpenseLoanPayment, l.Ref(), "190.00", jan.AddDate(0, 2, 0))))
	got, _ = svc.Get(context.Background(), user, l.Ref())
	assert.Equal(t, ledger.StatusCompleted, got.(ledger.Loan).Status)
	assert.True(t, got.(ledger.Loan).OutstandingBalance.IsZero())
}

func TestPaymentTargetChecks(t *testing.T) {
	store, svc := newService()
	owner, intruder := uuid.New(), uuid.New()
	d, err := svc.CreateRecurringDeposit(context.Background(), owner, DepositInput{
		Name: "DPS", MonthlyInstallment: ledger.MustAmount("USD", "10.00"), TenureMonths: 3, StartDate: jan,
	})
	require.NoError(t, err)

	err = pay(t, store, svc, intruder, payment(intruder, ledger.ExpenseDPSPayment, d.Ref(), "10.00", jan))
	require.ErrorIs(t, err, errs.ErrConsistency)

	missing := ledger.SchemaRef{Kind: ledger.SchemaDPS, ID: uuid.New()}
	err = pay(t, store, svc, owner, payment(owner, ledger.ExpenseDPSPayment, missing, "10.00", jan))
	require.ErrorIs(t, err, errs.ErrNotFound)

	wrongKind := ledger.SchemaRef{Kind: ledger.SchemaLoan, ID: d.ID}
	err = pay(t, store, svc, owner, payment(owner, ledger.ExpenseDPSPayment, wrongKind, "10.00", jan))
	require.ErrorIs(t, err, errs.ErrInvalid)

	got, _ := svc.Get(context.Background(), owner, d.Ref())
	assert.Equal(t, 0, got.(ledger.RecurringDeposit).PaidInstallments)
}

func TestDeleteRefusedWhilePaymentsExist(t *testing.T) {
	store, svc := newService()
	user := uuid.New()
	d, err := svc.CreateRecurringDeposit(context.Background(), user, DepositInput{
		Name: "DPS", MonthlyInstallment: ledger.MustAmount("USD", "10.00"), TenureMonths: 3, StartDate: jan,
	})
	require.NoError(t, err)
	exp := payment(user, ledger.ExpenseDPSPayment, d.Ref(), "10.00", jan)
	require.NoError(t, pay(t, store, svc, user, exp))
	require.ErrorIs(t, svc.Delete(context.Background(), user, d.Ref()), errs.ErrConflict)
	require.NoError(t, unpay(t, store, svc, user, exp))
	require.NoError(t, svc.Delete(context.Background(), user, d.Ref()))
}

func TestCreateValidationAndStats(t *testing.T) {
	_, svc := newService()
	user := uuid.New()
	_, err := svc.CreateLoan(context.Background(), user, LoanInput{Lender: "X", LoanType: "yacht"})
	require.ErrorIs(t, err, errs.ErrInvalid)
	_, err = svc.CreateRecurringDeposit(context.Background(), user, DepositInput{
		Name: "DPS", MonthlyInstallment: ledger.MustAmount("USD", "10.00"), TenureMonths: 0, StartDate: jan,
	})
	require.ErrorIs(t, err, errs.ErrInvalid)

	_, err = svc.CreateFixedDeposit(context.Background(), user, FixedDepositInput{
		Name: "FDR", PrincipalAmount: ledger.MustAmount("USD", "100.00"), TenureMonths: 12, StartDate: jan,
	})
	require.NoError(t, err)
	stats, err := svc.Stats(context.Background(), user, "USD")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Count)
	assert.Equal(t, 1, stats.ByKind[ledger.SchemaFDR].Active)
	assert.Equal(t, "100.00", ledger.FormatAmount(stats.ByKind[ledger.SchemaFDR].Invested))
}
