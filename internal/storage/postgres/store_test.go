package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"

	"github.com/tinoosan/finledger/internal/errs"
	"github.com/tinoosan/finledger/internal/ledger"
	"github.com/tinoosan/finledger/internal/service/account"
	"github.com/tinoosan/finledger/internal/service/cashflow"
	"github.com/tinoosan/finledger/internal/service/category"
	"github.com/tinoosan/finledger/internal/service/client"
	"github.com/tinoosan/finledger/internal/service/investment"
	"github.com/tinoosan/finledger/internal/service/journal"
	"github.com/tinoosan/finledger/internal/storage"
)

func getTestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping Postgres store tests")
	}
	return dsn
}

// openMigrated applies the embedded migrations, empties every table and opens a store.
func openMigrated(t *testing.T) *Store {
	t.Helper()
	dsn := getTestDSN(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := Migrate(ctx, dsn, MigrateUp); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(s.Close)
	if _, err := s.pool.Exec(ctx, `truncate table budgets, incomes, clients, expenses, loans, fixed_deposits,
		recurring_deposits, categories, ledger_entries, bank_accounts cascade`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return s
}

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func createAccount(t *testing.T, ctx context.Context, s *Store, user uuid.UUID, initial string) ledger.BankAccount {
	t.Helper()
	acc, err := account.New(s, testLogger()).Create(ctx, user, account.CreateInput{
		BankName: "City Bank", AccountName: "Main", AccountNumber: uuid.NewString(), AccountType: "savings",
		Currency: "USD", InitialAmount: ledger.MustAmount("USD", initial),
		AdditionalInfo: map[string]string{"branch_code": "001"},
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return acc
}

func TestStore_TransactionLifecycle(t *testing.T) {
	s := openMigrated(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Ready(ctx); err != nil {
		t.Fatalf("ready: %v", err)
	}

	user := uuid.New()
	acc := createAccount(t, ctx, s, user, "1000.00")
	svc := journal.New(s, testLogger())
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	first, err := svc.Record(ctx, user, journal.Input{AccountID: acc.ID, Direction: ledger.DirectionIn, Amount: ledger.MustAmount("USD", "250.50"), Date: day})
	if err != nil {
		t.Fatalf("record in: %v", err)
	}
	if _, err := svc.Record(ctx, user, journal.Input{AccountID: acc.ID, Direction: ledger.DirectionOut, Amount: ledger.MustAmount("USD", "300.00"), Date: day}); err != nil {
		t.Fatalf("record out: %v", err)
	}
	if err := svc.Delete(ctx, user, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, err := s.BankAccount(ctx, user, acc.ID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if ledger.FormatAmount(got.CurrentBalance) != "700.00" || ledger.FormatAmount(got.AvailableBalance) != "700.00" {
		t.Fatalf("expected 700.00, got %s / %s", ledger.FormatAmount(got.CurrentBalance), ledger.FormatAmount(got.AvailableBalance))
	}
	if v, _ := got.AdditionalInfo.Get("branch_code"); v != "001" {
		t.Fatalf("additional info not persisted: %v", got.AdditionalInfo)
	}
	want, err := svc.Rebalance(ctx, user, acc.ID)
	if err != nil {
		t.Fatalf("rebalance: %v", err)
	}
	if ledger.Minor(want) != ledger.Minor(got.CurrentBalance) {
		t.Fatalf("rebalance %s != balance %s", ledger.FormatAmount(want), ledger.FormatAmount(got.CurrentBalance))
	}

	all, err := s.Entries(ctx, user, storage.EntryFilter{AccountID: &acc.ID, IncludeReversed: true})
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(all) != 2 || !all[0].IsReversed || all[0].ReversedAt == nil {
		t.Fatalf("expected reversed audit record first, got %+v", all)
	}

	// scoped reads hide other users' rows
	if _, err := s.BankAccount(ctx, uuid.New(), acc.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found for foreign read, got %v", err)
	}
}

func TestStore_ForeignSchemaPaymentRollsBack(t *testing.T) {
	s := openMigrated(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	owner, intruder := uuid.New(), uuid.New()
	investments := investment.New(s, testLogger())
	dps, err := investments.CreateRecurringDeposit(ctx, owner, investment.DepositInput{
		Name: "DPS", MonthlyInstallment: ledger.MustAmount("USD", "100.00"),
		InterestRate: decimal.MustNew(6, 0), TenureMonths: 12, StartDate: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create dps: %v", err)
	}
	acc := createAccount(t, ctx, s, intruder, "500.00")
	cf := cashflow.New(s, journal.New(s, testLogger()), investments, testLogger())

	_, err = cf.CreateExpense(ctx, intruder, cashflow.ExpenseInput{
		Title: "DPS", Amount: ledger.MustAmount("USD", "100.00"), Date: time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
		Type: ledger.ExpenseDPSPayment, RelatedID: &dps.ID, BankAccountID: &acc.ID,
	})
	if !errors.Is(err, errs.ErrConsistency) {
		t.Fatalf("expected consistency error, got %v", err)
	}
	list, err := s.Expenses(ctx, intruder, storage.ExpenseFilter{})
	if err != nil || len(list) != 0 {
		t.Fatalf("expected no expenses, got %d (%v)", len(list), err)
	}
	got, err := s.BankAccount(ctx, intruder, acc.ID)
	if err != nil || ledger.FormatAmount(got.CurrentBalance) != "500.00" {
		t.Fatalf("balance changed: %v %v", got.CurrentBalance, err)
	}

	// the owner's payment goes through and round-trips every counter
	ownAcc := createAccount(t, ctx, s, owner, "500.00")
	if _, err := cf.CreateExpense(ctx, owner, cashflow.ExpenseInput{
		Title: "DPS", Amount: ledger.MustAmount("USD", "100.00"), Date: time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
		Type: ledger.ExpenseDPSPayment, RelatedID: &dps.ID, BankAccountID: &ownAcc.ID, Tags: []string{"Savings"},
	}); err != nil {
		t.Fatalf("owner payment: %v", err)
	}
	sch, err := s.Schema(ctx, owner, dps.Ref())
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	rd := sch.(ledger.RecurringDeposit)
	if rd.PaidInstallments != 1 || rd.RemainingInstallments != 11 || ledger.FormatAmount(rd.TotalDeposited) != "100.00" {
		t.Fatalf("unexpected counters: %+v", rd)
	}
	if rd.InterestRate.Cmp(decimal.MustNew(6, 0)) != 0 {
		t.Fatalf("rate round trip: %s", rd.InterestRate)
	}
	if rd.NextPaymentDate == nil || ledger.FormatDate(*rd.NextPaymentDate) != "2024-03-10" {
		t.Fatalf("unexpected next payment date: %v", rd.NextPaymentDate)
	}
}

func TestStore_InTxRollsBack(t *testing.T) {
	s := openMigrated(t)
	ctx := context.Background()
	user := uuid.New()
	acc := createAccount(t, ctx, s, user, "10.00")

	boom := errors.New("boom")
	err := s.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		a, err := tx.LockBankAccount(ctx, user, acc.ID)
		if err != nil {
			return err
		}
		a.CurrentBalance = ledger.MustAmount("USD", "99.00")
		if err := tx.UpdateBankAccount(ctx, a); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	got, _ := s.BankAccount(ctx, user, acc.ID)
	if ledger.FormatAmount(got.CurrentBalance) != "10.00" {
		t.Fatalf("update leaked out of rolled back tx: %s", ledger.FormatAmount(got.CurrentBalance))
	}

	owner, err := s.OwnerOf(ctx, storage.TableBankAccounts, acc.ID)
	if err != nil || owner != user {
		t.Fatalf("owner of: %v %v", owner, err)
	}
	if _, err := s.OwnerOf(ctx, storage.TableLoans, uuid.New()); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStore_CategoryTreeAndClients(t *testing.T) {
	s := openMigrated(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	user := uuid.New()

	cats := category.New(s, testLogger())
	parent, err := cats.Create(ctx, user, category.CreateInput{Name: "Work", Kind: ledger.CategoryBoth, SortOrder: 1})
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	child, err := cats.Create(ctx, user, category.CreateInput{Name: "Consulting", Kind: ledger.CategoryIncome, ParentID: &parent.ID})
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	income, err := s.Categories(ctx, user, ledger.CategoryIncome)
	if err != nil || len(income) != 2 {
		t.Fatalf("income categories should include both-kind rows: %v %v", income, err)
	}
	got, err := s.Category(ctx, user, child.ID)
	if err != nil || got.ParentID == nil || *got.ParentID != parent.ID || !got.Active {
		t.Fatalf("child round trip: %+v %v", got, err)
	}
	if err := cats.Delete(ctx, user, parent.ID); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected conflict deleting a parent, got %v", err)
	}

	c, err := client.New(s, testLogger()).Create(ctx, user, client.Input{Name: "Acme", Email: "ops@acme.test", Status: ledger.ClientActive})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	cf := cashflow.New(s, journal.New(s, testLogger()), investment.New(s, testLogger()), testLogger())
	inc, err := cf.CreateIncome(ctx, user, cashflow.IncomeInput{
		Title: "Invoice", Amount: ledger.MustAmount("USD", "250.00"), Date: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
		CategoryID: &child.ID, ClientID: &c.ID,
	})
	if err != nil {
		t.Fatalf("create income: %v", err)
	}
	billed, err := s.Incomes(ctx, user, storage.IncomeFilter{ClientID: &c.ID})
	if err != nil || len(billed) != 1 || billed[0].ID != inc.ID || *billed[0].ClientID != c.ID {
		t.Fatalf("incomes by client: %+v %v", billed, err)
	}
	found, err := s.Clients(ctx, user, storage.ClientFilter{Search: "ACME", Status: ledger.ClientActive})
	if err != nil || len(found) != 1 || found[0].Email != "ops@acme.test" {
		t.Fatalf("clients search: %+v %v", found, err)
	}
}
