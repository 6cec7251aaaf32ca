// Package journal is the account ledger: the only code path that changes a
// bank account balance. Every movement is a LedgerEntry; undoing one marks it
// reversed and applies the inverse to the same account.
package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/finledger/internal/errs"
	"github.com/tinoosan/finledger/internal/ledger"
	"github.com/tinoosan/finledger/internal/metrics"
	"github.com/tinoosan/finledger/internal/storage"
)

// Store defines the persistence the ledger needs.
type Store interface {
	BankAccount(ctx context.Context, userID, id uuid.UUID) (ledger.BankAccount, error)
	Entry(ctx context.Context, userID, id uuid.UUID) (ledger.LedgerEntry, error)
	Entries(ctx context.Context, userID uuid.UUID, f storage.EntryFilter) ([]ledger.LedgerEntry, error)
	InTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error
}

// Input describes one movement to apply.
type Input struct {
	AccountID   uuid.UUID
	Direction   ledger.Direction
	Amount      money.Amount
	Date        time.Time
	Description string
	Cause       ledger.CauseRef
	Replaces    *uuid.UUID
}

// Summary totals a set of entries; reversed entries are ignored.
type Summary struct {
	Count    int
	TotalIn  money.Amount
	TotalOut money.Amount
	Net      money.Amount
}

// BalanceCheck holds an account's stored balance next to the balance
// recomputed from its entries, both read in one unit of work.
type BalanceCheck struct {
	Stored   money.Amount
	Computed money.Amount
}

func (c BalanceCheck) InSync() bool {
	return c.Stored.Curr() == c.Computed.Curr() && ledger.Minor(c.Stored) == ledger.Minor(c.Computed)
}

// Service exposes the account ledger and the transaction log built on it.
type Service interface {
	// Apply validates and posts one entry, adjusting its account in the same unit of work.
	Apply(ctx context.Context, userID uuid.UUID, in Input) (ledger.LedgerEntry, error)
	// Reverse undoes a posted entry.
	Reverse(ctx context.Context, userID, entryID uuid.UUID) error
	// Rebalance recomputes the balance an account should have from its unreversed entries.
	Rebalance(ctx context.Context, userID, accountID uuid.UUID) (money.Amount, error)
	// CheckBalance locks the account and compares its stored balance with Rebalance's figure.
	CheckBalance(ctx context.Context, userID, accountID uuid.UUID) (BalanceCheck, error)

	// Record posts a standalone (manual) transaction.
	Record(ctx context.Context, userID uuid.UUID, in Input) (ledger.LedgerEntry, error)
	// Update reverses a standalone transaction and posts its replacement, possibly on another account.
	Update(ctx context.Context, userID, entryID uuid.UUID, in Input) (ledger.LedgerEntry, error)
	// Delete reverses a standalone transaction. The reversed entry is kept for audit.
	Delete(ctx context.Context, userID, entryID uuid.UUID) error
	Get(ctx context.Context, userID, entryID uuid.UUID) (ledger.LedgerEntry, error)
	List(ctx context.Context, userID uuid.UUID, f storage.EntryFilter) ([]ledger.LedgerEntry, error)
	Summarize(curr string, entries []ledger.LedgerEntry) (Summary, error)

	// ApplyTx and ReverseTx run inside a caller's unit of work.
	ApplyTx(ctx context.Context, tx storage.Tx, userID uuid.UUID, in Input) (ledger.LedgerEntry, error)
	ReverseTx(ctx context.Context, tx storage.Tx, userID, entryID uuid.UUID) error
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

// Validate checks the shape of an Input without touching storage.
func Validate(in Input) error {
	if in.AccountID == uuid.Nil {
		return errs.Field("bank_account_id", "required")
	}
	if !in.Direction.Valid() {
		return errs.Field("type", "must be in or out")
	}
	if !in.Amount.IsPos() {
		return errs.Field("amount", "must be > 0")
	}
	if in.Date.IsZero() {
		return errs.Field("transaction_date", "required")
	}
	if !in.Cause.Valid() {
		return errs.Field("cause", "invalid cause reference")
	}
	return nil
}

func (s *service) Apply(ctx context.Context, userID uuid.UUID, in Input) (ledger.LedgerEntry, error) {
	var out ledger.LedgerEntry
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		out, err = s.ApplyTx(ctx, tx, userID, in)
		return err
	})
	return out, err
}

func (s *service) ApplyTx(ctx context.Context, tx storage.Tx, userID uuid.UUID, in Input) (ledger.LedgerEntry, error) {
	if userID == uuid.Nil {
		return ledger.LedgerEntry{}, errs.Field("user_id", "required")
	}
	if err := Validate(in); err != nil {
		return ledger.LedgerEntry{}, err
	}
	acc, err := tx.LockBankAccount(ctx, userID, in.AccountID)
	if err != nil {
		return ledger.LedgerEntry{}, err
	}
	if !acc.Active {
		return ledger.LedgerEntry{}, fmt.Errorf("%w: bank account is inactive", errs.ErrUnprocessable)
	}
	if in.Amount.Curr().Code() != acc.Currency {
		return ledger.LedgerEntry{}, errs.Field("amount", "currency must be "+acc.Currency)
	}

	now := s.now()
	e := ledger.LedgerEntry{
		ID:          uuid.New(),
		UserID:      userID,
		AccountID:   acc.ID,
		Direction:   in.Direction,
		Amount:      in.Amount.RoundToCurr(),
		Date:        ledger.Day(in.Date),
		Description: in.Description,
		Cause:       in.Cause,
		ReplacesID:  in.Replaces,
		CreatedAt:   now,
	}
	if acc, err = adjust(acc, e.Signed(), now); err != nil {
		return ledger.LedgerEntry{}, err
	}
	if err := tx.InsertEntry(ctx, e); err != nil {
		return ledger.LedgerEntry{}, err
	}
	if err := tx.UpdateBankAccount(ctx, acc); err != nil {
		return ledger.LedgerEntry{}, err
	}
	metrics.EntriesApplied.WithLabelValues(string(e.Direction), string(e.Cause.Kind)).Inc()
	s.log.Debug("ledger entry applied", "user_id", userID, "account_id", acc.ID, "entry_id", e.ID,
		"direction", e.Direction, "amount", ledger.FormatAmount(e.Amount))
	return e, nil
}

func (s *service) Reverse(ctx context.Context, userID, entryID uuid.UUID) error {
	return s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return s.ReverseTx(ctx, tx, userID, entryID)
	})
}

func (s *service) ReverseTx(ctx context.Context, tx storage.Tx, userID, entryID uuid.UUID) error {
	e, err := tx.Entry(ctx, userID, entryID)
	if err != nil {
		return err
	}
	if e.IsReversed {
		return errs.Conflict("transaction %s already reversed", e.ID)
	}
	acc, err := tx.LockBankAccount(ctx, userID, e.AccountID)
	if errors.Is(err, errs.ErrNotFound) {
		return errs.Consistency("transaction %s references a missing bank account", e.ID)
	}
	if err != nil {
		return err
	}
	now := s.now()
	if acc, err = adjust(acc, e.Signed().Neg(), now); err != nil {
		return err
	}
	if err := tx.MarkEntryReversed(ctx, userID, e.ID, now); err != nil {
		return err
	}
	if err := tx.UpdateBankAccount(ctx, acc); err != nil {
		return err
	}
	metrics.EntriesReversed.WithLabelValues(string(e.Cause.Kind)).Inc()
	s.log.Debug("ledger entry reversed", "user_id", userID, "account_id", acc.ID, "entry_id", e.ID)
	return nil
}

// adjust moves both balances by delta; they never diverge.
func adjust(acc ledger.BankAccount, delta money.Amount, now time.Time) (ledger.BankAccount, error) {
	cur, err := acc.CurrentBalance.Add(delta)
	if err != nil {
		return acc, err
	}
	avail, err := acc.AvailableBalance.Add(delta)
	if err != nil {
		return acc, err
	}
	acc.CurrentBalance, acc.AvailableBalance, acc.UpdatedAt = cur, avail, now
	return acc, nil
}

func (s *service) Rebalance(ctx context.Context, userID, accountID uuid.UUID) (money.Amount, error) {
	acc, err := s.store.BankAccount(ctx, userID, accountID)
	if err != nil {
		return money.Amount{}, err
	}
	return recompute(ctx, s.store, acc)
}

func (s *service) CheckBalance(ctx context.Context, userID, accountID uuid.UUID) (BalanceCheck, error) {
	var out BalanceCheck
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		acc, err := tx.LockBankAccount(ctx, userID, accountID)
		if err != nil {
			return err
		}
		computed, err := recompute(ctx, tx, acc)
		if err != nil {
			return err
		}
		out = BalanceCheck{Stored: acc.CurrentBalance, Computed: computed}
		return nil
	})
	return out, err
}

type entryLister interface {
	Entries(ctx context.Context, userID uuid.UUID, f storage.EntryFilter) ([]ledger.LedgerEntry, error)
}

// recompute is the initial amount plus every unreversed entry of acc.
func recompute(ctx context.Context, r entryLister, acc ledger.BankAccount) (money.Amount, error) {
	entries, err := r.Entries(ctx, acc.UserID, storage.EntryFilter{AccountID: &acc.ID})
	if err != nil {
		return money.Amount{}, err
	}
	total := acc.InitialAmount
	for _, e := range entries {
		if e.IsReversed {
			continue
		}
		if total, err = total.Add(e.Signed()); err != nil {
			return money.Amount{}, err
		}
	}
	return total, nil
}

func (s *service) Record(ctx context.Context, userID uuid.UUID, in Input) (ledger.LedgerEntry, error) {
	in.Cause = ledger.Manual()
	in.Replaces = nil
	return s.Apply(ctx, userID, in)
}

func (s *service) Update(ctx context.Context, userID, entryID uuid.UUID, in Input) (ledger.LedgerEntry, error) {
	var out ledger.LedgerEntry
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		old, err := s.standalone(ctx, tx, userID, entryID)
		if err != nil {
			return err
		}
		if err := Validate(withManual(in)); err != nil {
			return err
		}
		if err := s.ReverseTx(ctx, tx, userID, old.ID); err != nil {
			return err
		}
		in.Cause = ledger.Manual()
		in.Replaces = &old.ID
		out, err = s.ApplyTx(ctx, tx, userID, in)
		return err
	})
	if err == nil {
		s.log.Info("transaction replaced", "user_id", userID, "old_entry_id", entryID, "entry_id", out.ID)
	}
	return out, err
}

func (s *service) Delete(ctx context.Context, userID, entryID uuid.UUID) error {
	return s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := s.standalone(ctx, tx, userID, entryID); err != nil {
			return err
		}
		return s.ReverseTx(ctx, tx, userID, entryID)
	})
}

// standalone loads an entry that the transaction log may change directly.
// Entries posted for an expense or income are changed through that record.
func (s *service) standalone(ctx context.Context, tx storage.Tx, userID, entryID uuid.UUID) (ledger.LedgerEntry, error) {
	e, err := tx.Entry(ctx, userID, entryID)
	if err != nil {
		return e, err
	}
	if e.IsReversed {
		return e, errs.NotFound("transaction")
	}
	if e.Cause.Kind != ledger.CauseManual {
		return e, errs.Conflict("transaction belongs to %s %s", e.Cause.Kind, e.Cause.ID)
	}
	return e, nil
}

func withManual(in Input) Input { in.Cause = ledger.Manual(); return in }

func (s *service) Get(ctx context.Context, userID, entryID uuid.UUID) (ledger.LedgerEntry, error) {
	return s.store.Entry(ctx, userID, entryID)
}

func (s *service) List(ctx context.Context, userID uuid.UUID, f storage.EntryFilter) ([]ledger.LedgerEntry, error) {
	if userID == uuid.Nil {
		return nil, errs.Field("user_id", "required")
	}
	return s.store.Entries(ctx, userID, f)
}

func (s *service) Summarize(curr string, entries []ledger.LedgerEntry) (Summary, error) {
	sum := Summary{TotalIn: ledger.Zero(curr), TotalOut: ledger.Zero(curr), Net: ledger.Zero(curr)}
	var err error
	for _, e := range entries {
		if e.IsReversed {
			continue
		}
		sum.Count++
		if e.Direction == ledger.DirectionIn {
			sum.TotalIn, err = sum.TotalIn.Add(e.Amount)
		} else {
			sum.TotalOut, err = sum.TotalOut.Add(e.Amount)
		}
		if err != nil {
			return Summary{}, err
		}
	}
	sum.Net, err = sum.TotalIn.Sub(sum.TotalOut)
	return sum, err
}
