package journal

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
	"github.com/tinoosan/finledger/internal/storage"
	"github.com/tinoosan/finledger/internal/storage/memory"
)

type fixture struct {
	store   *memory.Store
	ledger  Service
	user    uuid.UUID
	account ledger.BankAccount
}

func setup(t *testing.T, initial string) fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New()
	user := uuid.New()
	acc, err := account.New(store, logger).Create(context.Background(), user, account.CreateInput{
		BankName: "City Bank", AccountName: "Main", AccountNumber: uuid.NewString(), AccountType: "current",
		Currency: "USD", InitialAmount: ledger.MustAmount("USD", initial),
	})
	require.NoError(t, err)
	return fixture{store: store, ledger: New(store, logger), user: user, account: acc}
}

func (f fixture) input(dir ledger.Direction, amount string) Input {
	return Input{AccountID: f.account.ID, Direction: dir, Amount: ledger.MustAmount("USD", amount), Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
}

func (f fixture) balance(t *testing.T) string {
	t.Helper()
	a, err := f.store.BankAccount(context.Background(), f.user, f.account.ID)
	require.NoError(t, err)
	require.Equal(t, ledger.FormatAmount(a.CurrentBalance), ledger.FormatAmount(a.AvailableBalance))
	return ledger.FormatAmount(a.CurrentBalance)
}

func (f fixture) assertRebalanced(t *testing.T) {
	t.Helper()
	want, err := f.ledger.Rebalance(context.Background(), f.user, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.FormatAmount(want), f.balance(t))
}

func TestTransactionLifecycleScenario(t *testing.T) {
	ctx := context.Background()
	f := setup(t, "1000.00")

	first, err := f.ledger.Record(ctx, f.user, f.input(ledger.DirectionIn, "250.50"))
	require.NoError(t, err)
	assert.Equal(t, "1250.50", f.balance(t))

	_, err = f.ledger.Record(ctx, f.user, f.input(ledger.DirectionOut, "300.00"))
	require.NoError(t, err)
	assert.Equal(t, "950.50", f.balance(t))

	require.NoError(t, f.ledger.Delete(ctx, f.user, first.ID))
	assert.Equal(t, "700.00", f.balance(t))
	f.assertRebalanced(t)

	got, err := f.ledger.Get(ctx, f.user, first.ID)
	require.NoError(t, err)
	assert.True(t, got.IsReversed, "deleted transaction stays as reversed audit record")
	visible, err := f.ledger.List(ctx, f.user, storage.EntryFilter{})
	require.NoError(t, err)
	assert.Len(t, visible, 1)
}

func TestApplyReverseRestoresBalanceExactly(t *testing.T) {
	ctx := context.Background()
	f := setup(t, "0.10")
	for _, amt := range []string{"0.01", "0.07", "19.99", "1234567.89"} {
		e, err := f.ledger.Apply(ctx, f.user, Input{AccountID: f.account.ID, Direction: ledger.DirectionOut, Amount: ledger.MustAmount("USD", amt), Date: time.Now(), Cause: ledger.Manual()})
		require.NoError(t, err)
		require.NoError(t, f.ledger.Reverse(ctx, f.user, e.ID))
		assert.Equal(t, "0.10", f.balance(t))
	}
	f.assertRebalanced(t)
}

func TestBalanceEqualsInitialPlusSignedEntries(t *testing.T) {
	ctx := context.Background()
	f := setup(t, "500.00")
	ops := []struct {
		dir     ledger.Direction
		amount  string
		reverse bool
	}{
		{ledger.DirectionIn, "100.25", false},
		{ledger.DirectionOut, "40.10", true},
		{ledger.DirectionOut, "600.00", false},
		{ledger.DirectionIn, "0.05", true},
		{ledger.DirectionIn, "9.95", false},
	}
	for _, op := range ops {
		e, err := f.ledger.Record(ctx, f.user, f.input(op.dir, op.amount))
		require.NoError(t, err)
		if op.reverse {
			require.NoError(t, f.ledger.Delete(ctx, f.user, e.ID))
		}
	}
	// 500.00 + 100.25 - 600.00 + 9.95
	assert.Equal(t, "10.20", f.balance(t))
	f.assertRebalanced(t)
}

func TestUpdateMovesTransactionToAnotherAccount(t *testing.T) {
	ctx := context.Background()
	f := setup(t, "100.00")
	other, err := account.New(f.store, nil).Create(ctx, f.user, account.CreateInput{
		BankName: "Other", AccountName: "Second", AccountNumber: "SECOND", AccountType: "savings",
		Currency: "USD", InitialAmount: ledger.MustAmount("USD", "50.00"),
	})
	require.NoError(t, err)

	e, err := f.ledger.Record(ctx, f.user, f.input(ledger.DirectionOut, "30.00"))
	require.NoError(t, err)
	in := f.input(ledger.DirectionOut, "20.00")
	in.AccountID = other.ID
	replaced, err := f.ledger.Update(ctx, f.user, e.ID, in)
	require.NoError(t, err)
	require.NotNil(t, replaced.ReplacesID)
	assert.Equal(t, e.ID, *replaced.ReplacesID)

	assert.Equal(t, "100.00", f.balance(t))
	got, err := f.store.BankAccount(ctx, f.user, other.ID)
	require.NoError(t, err)
	assert.Equal(t, "30.00", ledger.FormatAmount(got.CurrentBalance))

	_, err = f.ledger.Update(ctx, f.user, e.ID, in)
	require.ErrorIs(t, err, errs.ErrNotFound, "a replaced transaction can not be updated again")
}

func TestValidationAndOwnership(t *testing.T) {
	ctx := context.Background()
	f := setup(t, "100.00")

	_, err := f.ledger.Record(ctx, f.user, f.input(ledger.DirectionIn, "0.00"))
	require.ErrorIs(t, err, errs.ErrInvalid)

	in := f.input(ledger.DirectionIn, "1.00")
	in.Direction = "sideways"
	_, err = f.ledger.Record(ctx, f.user, in)
	require.ErrorIs(t, err, errs.ErrInvalid)

	_, err = f.ledger.Record(ctx, uuid.New(), f.input(ledger.DirectionIn, "1.00"))
	require.ErrorIs(t, err, errs.ErrNotFound)

	e, err := f.ledger.Record(ctx, f.user, f.input(ledger.DirectionIn, "1.00"))
	require.NoError(t, err)
	require.ErrorIs(t, f.ledger.Delete(ctx, uuid.New(), e.ID), errs.ErrNotFound)
	require.NoError(t, f.ledger.Reverse(ctx, f.user, e.ID))
	require.ErrorIs(t, f.ledger.Reverse(ctx, f.user, e.ID), errs.ErrConflict)
	assert.Equal(t, "100.00", f.balance(t))
}

func TestInactiveAccountRejectsEntries(t *testing.T) {
	ctx := context.Background()
	f := setup(t, "50.00")
	require.NoError(t, account.New(f.store, nil).Deactivate(ctx, f.user, f.account.ID))

	_, err := f.ledger.Record(ctx, f.user, f.input(ledger.DirectionOut, "10.00"))
	require.ErrorIs(t, err, errs.ErrUnprocessable)
	assert.Equal(t, "50.00", f.balance(t))
}

func TestCausedEntriesAreNotEditableAsTransactions(t *testing.T) {
	ctx := context.Background()
	f := setup(t, "100.00")
	in := f.input(ledger.DirectionOut, "10.00")
	in.Cause = ledger.CauseRef{Kind: ledger.CauseExpense, ID: uuid.New()}
	e, err := f.ledger.Apply(ctx, f.user, in)
	require.NoError(t, err)
	require.ErrorIs(t, f.ledger.Delete(ctx, f.user, e.ID), errs.ErrConflict)
	assert.Equal(t, "90.00", f.balance(t))
}

func TestSummarize(t *testing.T) {
	ctx := context.Background()
	f := setup(t, "0.00")
	_, _ = f.ledger.Record(ctx, f.user, f.input(ledger.DirectionIn, "200.00"))
	_, _ = f.ledger.Record(ctx, f.user, f.input(ledger.DirectionOut, "50.50"))
	list, err := f.ledger.List(ctx, f.user, storage.EntryFilter{})
	require.NoError(t, err)
	sum, err := f.ledger.Summarize("USD", list)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Count)
	assert.Equal(t, "149.50", ledger.FormatAmount(sum.Net))
}
