package account

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/finledger/internal/errs"
	"github.com/tinoosan/finledger/internal/ledger"
	"github.com/tinoosan/finledger/internal/meta"
	"github.com/tinoosan/finledger/internal/storage/memory"
)

func newService() Service {
	return New(memory.New(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func validInput() CreateInput {
	return CreateInput{
		BankName:      "City Bank",
		AccountName:   "Salary",
		AccountNumber: "ACC-1",
		AccountType:   "savings",
		Currency:      "USD",
		InitialAmount: ledger.MustAmount("USD", "1000.00"),
	}
}

func TestCreateStartsBalancesAtInitialAmount(t *testing.T) {
	svc := newService()
	a, err := svc.Create(context.Background(), uuid.New(), validInput())
	require.NoError(t, err)
	assert.Equal(t, "1000.00", ledger.FormatAmount(a.CurrentBalance))
	assert.Equal(t, "1000.00", ledger.FormatAmount(a.AvailableBalance))
	assert.True(t, a.Active)
}

func TestCreateValidation(t *testing.T) {
	svc := newService()
	in := validInput()
	in.AccountType = "crypto"
	_, err := svc.Create(context.Background(), uuid.New(), in)
	require.ErrorIs(t, err, errs.ErrInvalid)

	in = validInput()
	in.InitialAmount = ledger.MustAmount("EUR", "10.00")
	_, err = svc.Create(context.Background(), uuid.New(), in)
	require.ErrorIs(t, err, errs.ErrInvalid)
}

func TestUpdateKeepsBalancesAndMergesInfo(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	user := uuid.New()
	in := validInput()
	in.AdditionalInfo = meta.New(map[string]string{"manager": "A"})
	a, err := svc.Create(ctx, user, in)
	require.NoError(t, err)

	name := "Household"
	got, err := svc.Update(ctx, user, a.ID, UpdateInput{AccountName: &name, AdditionalInfo: meta.New(map[string]string{"locker": "7"})})
	require.NoError(t, err)
	assert.Equal(t, "Household", got.AccountName)
	assert.Equal(t, "1000.00", ledger.FormatAmount(got.CurrentBalance))
	assert.Len(t, got.AdditionalInfo, 2)

	_, err = svc.Update(ctx, uuid.New(), a.ID, UpdateInput{AccountName: &name})
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUpdateRejectsImmutableFields(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	user := uuid.New()
	a, err := svc.Create(ctx, user, validInput())
	require.NoError(t, err)

	_, err = svc.Update(ctx, user, a.ID, UpdateInput{Balances: true})
	require.ErrorIs(t, err, errs.ErrImmutable)

	other := "EUR"
	if a.Currency == other {
		other = "GBP"
	}
	_, err = svc.Update(ctx, user, a.ID, UpdateInput{Currency: &other})
	require.ErrorIs(t, err, errs.ErrImmutable)

	same := a.Currency
	_, err = svc.Update(ctx, user, a.ID, UpdateInput{Currency: &same})
	require.NoError(t, err)
}

func TestDeactivate(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	user := uuid.New()
	a, err := svc.Create(ctx, user, validInput())
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(ctx, user, a.ID))
	got, err := svc.Get(ctx, user, a.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
}

func TestCreateBatchReportsItemErrors(t *testing.T) {
	svc := newService()
	bad := validInput()
	bad.BankName = ""
	dup := validInput()
	created, itemErrs, err := svc.CreateBatch(context.Background(), uuid.New(), []CreateInput{validInput(), bad, dup})
	require.NoError(t, err)
	assert.Len(t, created, 1)
	require.Len(t, itemErrs, 2)
	assert.Equal(t, 1, itemErrs[0].Index)
	assert.ErrorIs(t, itemErrs[1].Err, errs.ErrConflict)
}
