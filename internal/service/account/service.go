// Package account implements bank account rules: balances start at the
// initial amount and are never edited here, descriptive fields are editable,
// deletion is a soft deactivate, and account numbers are unique per user.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/finledger/internal/errs"
	"github.com/tinoosan/finledger/internal/ledger"
	"github.com/tinoosan/finledger/internal/meta"
	"github.com/tinoosan/finledger/internal/storage"
)

type Store interface {
	BankAccount(ctx context.Context, userID, id uuid.UUID) (ledger.BankAccount, error)
	BankAccounts(ctx context.Context, userID uuid.UUID) ([]ledger.BankAccount, error)
	InTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error
}

// AccountTypes lists accepted account_type values.
var AccountTypes = []string{"savings", "current", "salary", "business", "wallet", "other"}

// CreateInput carries the fields of a new account.
type CreateInput struct {
	BankName       string
	AccountName    string
	AccountNumber  string
	AccountType    string
	Currency       string
	Branch         string
	IFSC           string
	SWIFT          string
	InitialAmount  money.Amount
	AdditionalInfo meta.Metadata
}

// UpdateInput changes descriptive fields only. Nil pointers are left as they are.
type UpdateInput struct {
	BankName       *string
	AccountName    *string
	AccountNumber  *string
	AccountType    *string
	Branch         *string
	IFSC           *string
	SWIFT          *string
	Active         *bool
	AdditionalInfo meta.Metadata
	// Currency and Balances are rejected with ErrImmutable. Balances is set
	// when the caller tried to write any balance field.
	Currency *string
	Balances bool
}

// ItemError represents a per-item failure in a batch operation.
type ItemError struct {
	Index int
	Err   error
}

type Service interface {
	ValidateCreate(in CreateInput) error
	Create(ctx context.Context, userID uuid.UUID, in CreateInput) (ledger.BankAccount, error)
	// CreateBatch creates every valid item in one unit of work and reports the rest.
	CreateBatch(ctx context.Context, userID uuid.UUID, items []CreateInput) ([]ledger.BankAccount, []ItemError, error)
	Get(ctx context.Context, userID, id uuid.UUID) (ledger.BankAccount, error)
	List(ctx context.Context, userID uuid.UUID) ([]ledger.BankAccount, error)
	Update(ctx context.Context, userID, id uuid.UUID, in UpdateInput) (ledger.BankAccount, error)
	Deactivate(ctx context.Context, userID, id uuid.UUID) error
}

type service struct {
	store Store
	log   *slog.Logger
}

func New(store Store, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{store: store, log: logger}
}

func (s *service) ValidateCreate(in CreateInput) error {
	if strings.TrimSpace(in.BankName) == "" {
		return errs.Field("bank_name", "required")
	}
	if strings.TrimSpace(in.AccountName) == "" {
		return errs.Field("account_name", "required")
	}
	if strings.TrimSpace(in.AccountNumber) == "" {
		return errs.Field("account_number", "required")
	}
	if !slices.Contains(AccountTypes, in.AccountType) {
		return errs.Field("account_type", "must be one of "+strings.Join(AccountTypes, ", "))
	}
	if !ledger.ValidCurrency(in.Currency) {
		return errs.Field("currency", "unknown currency")
	}
	if in.InitialAmount.Curr().Code() != in.Currency {
		return errs.Field("initial_amount", "currency must be "+in.Currency)
	}
	if in.InitialAmount.IsNeg() {
		return errs.Field("initial_amount", "must be >= 0")
	}
	if err := in.AdditionalInfo.Validate(); err != nil {
		return errs.Field("additional_info", err.Error())
	}
	return nil
}

func (s *service) build(userID uuid.UUID, in CreateInput, now time.Time) ledger.BankAccount {
	initial := in.InitialAmount.RoundToCurr()
	return ledger.BankAccount{
		ID:               uuid.New(),
		UserID:           userID,
		BankName:         strings.TrimSpace(in.BankName),
		AccountName:      strings.TrimSpace(in.AccountName),
		AccountNumber:    strings.TrimSpace(in.AccountNumber),
		AccountType:      in.AccountType,
		Currency:         in.Currency,
		Branch:           in.Branch,
		IFSC:             strings.ToUpper(in.IFSC),
		SWIFT:            strings.ToUpper(in.SWIFT),
		InitialAmount:    initial,
		CurrentBalance:   initial,
		AvailableBalance: initial,
		AdditionalInfo:   in.AdditionalInfo.Clone(),
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, in CreateInput) (ledger.BankAccount, error) {
	if userID == uuid.Nil {
		return ledger.BankAccount{}, errs.Field("user_id", "required")
	}
	if err := s.ValidateCreate(in); err != nil {
		return ledger.BankAccount{}, err
	}
	a := s.build(userID, in, time.Now().UTC())
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.InsertBankAccount(ctx, a)
	})
	if err != nil {
		return ledger.BankAccount{}, err
	}
	s.log.Info("bank account created", "user_id", userID, "account_id", a.ID)
	return a, nil
}

func (s *service) CreateBatch(ctx context.Context, userID uuid.UUID, items []CreateInput) ([]ledger.BankAccount, []ItemError, error) {
	if userID == uuid.Nil {
		return nil, nil, errs.Field("user_id", "required")
	}
	var created []ledger.BankAccount
	var itemErrs []ItemError
	now := time.Now().UTC()
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		created, itemErrs = nil, nil
		for i, in := range items {
			if err := s.ValidateCreate(in); err != nil {
				itemErrs = append(itemErrs, ItemError{Index: i, Err: err})
				continue
			}
			a := s.build(userID, in, now)
			if err := tx.InsertBankAccount(ctx, a); err != nil {
				if errors.Is(err, errs.ErrConflict) {
					itemErrs = append(itemErrs, ItemError{Index: i, Err: err})
					continue
				}
				return err
			}
			created = append(created, a)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return created, itemErrs, nil
}

func (s *service) Get(ctx context.Context, userID, id uuid.UUID) (ledger.BankAccount, error) {
	return s.store.BankAccount(ctx, userID, id)
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]ledger.BankAccount, error) {
	if userID == uuid.Nil {
		return nil, errs.Field("user_id", "required")
	}
	return s.store.BankAccounts(ctx, userID)
}

func (s *service) Update(ctx context.Context, userID, id uuid.UUID, in UpdateInput) (ledger.BankAccount, error) {
	var out ledger.BankAccount
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		a, err := tx.LockBankAccount(ctx, userID, id)
		if err != nil {
			return err
		}
		if err := apply(&a, in); err != nil {
			return err
		}
		a.UpdatedAt = time.Now().UTC()
		out = a
		return tx.UpdateBankAccount(ctx, a)
	})
	return out, err
}

func apply(a *ledger.BankAccount, in UpdateInput) error {
	if in.Balances {
		return fmt.Errorf("%w: balances change only through transactions", errs.ErrImmutable)
	}
	if in.Currency != nil && !strings.EqualFold(strings.TrimSpace(*in.Currency), a.Currency) {
		return fmt.Errorf("%w: currency", errs.ErrImmutable)
	}
	setStr := func(dst *string, v *string, field string, required bool) error {
		if v == nil {
			return nil
		}
		val := strings.TrimSpace(*v)
		if required && val == "" {
			return errs.Field(field, "must not be empty")
		}
		*dst = val
		return nil
	}
	if err := setStr(&a.BankName, in.BankName, "bank_name", true); err != nil {
		return err
	}
	if err := setStr(&a.AccountName, in.AccountName, "account_name", true); err != nil {
		return err
	}
	if err := setStr(&a.AccountNumber, in.AccountNumber, "account_number", true); err != nil {
		return err
	}
	if in.AccountType != nil && !slices.Contains(AccountTypes, *in.AccountType) {
		return errs.Field("account_type", "must be one of "+strings.Join(AccountTypes, ", "))
	}
	_ = setStr(&a.AccountType, in.AccountType, "account_type", true)
	_ = setStr(&a.Branch, in.Branch, "branch", false)
	if in.IFSC != nil {
		a.IFSC = strings.ToUpper(strings.TrimSpace(*in.IFSC))
	}
	if in.SWIFT != nil {
		a.SWIFT = strings.ToUpper(strings.TrimSpace(*in.SWIFT))
	}
	if in.Active != nil {
		a.Active = *in.Active
	}
	if len(in.AdditionalInfo) > 0 {
		info := a.AdditionalInfo.Clone()
		info.Merge(in.AdditionalInfo)
		if err := info.Validate(); err != nil {
			return errs.Field("additional_info", err.Error())
		}
		a.AdditionalInfo = info
	}
	return nil
}

func (s *service) Deactivate(ctx context.Context, userID, id uuid.UUID) error {
	inactive := false
	_, err := s.Update(ctx, userID, id, UpdateInput{Active: &inactive})
	if err == nil {
		s.log.Info("bank account deactivated", "user_id", userID, "account_id", id)
	}
	return err
}
