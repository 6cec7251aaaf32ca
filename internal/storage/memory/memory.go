// Package memory provides an in-memory store used for development and tests.
// A unit of work runs against a private copy of the data under the write lock
// and replaces the live copy only when it succeeds.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/tinoosan/finledger/internal/ledger"
	"github.com/tinoosan/finledger/internal/storage"
)

// Store is guarded by an RWMutex: reads share it, units of work serialize on it.
type Store struct {
	mu sync.RWMutex
	st *state
}

// New constructs an empty in-memory store.
func New() *Store { return &Store{st: newState()} }

// Reset drops all data.
func (s *Store) Reset() {
	s.mu.Lock()
	s.st = newState()
	s.mu.Unlock()
}

// InTx runs fn against a copy of the data and commits the copy if fn returns nil.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.st.clone()
	if err := fn(ctx, work); err != nil {
		return err
	}
	s.st = work
	return nil
}

// Ready always succeeds for the memory store.
func (s *Store) Ready(context.Context) error { return nil }

func (s *Store) BankAccount(ctx context.Context, userID, id uuid.UUID) (ledger.BankAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.BankAccount(ctx, userID, id)
}

func (s *Store) BankAccounts(ctx context.Context, userID uuid.UUID) ([]ledger.BankAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.BankAccounts(ctx, userID)
}

func (s *Store) AllBankAccounts(ctx context.Context) ([]ledger.BankAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.AllBankAccounts(ctx)
}

func (s *Store) Entry(ctx context.Context, userID, id uuid.UUID) (ledger.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.Entry(ctx, userID, id)
}

func (s *Store) Entries(ctx context.Context, userID uuid.UUID, f storage.EntryFilter) ([]ledger.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.Entries(ctx, userID, f)
}

func (s *Store) Expense(ctx context.Context, userID, id uuid.UUID) (ledger.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.Expense(ctx, userID, id)
}

func (s *Store) Expenses(ctx context.Context, userID uuid.UUID, f storage.ExpenseFilter) ([]ledger.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.Expenses(ctx, userID, f)
}

func (s *Store) Income(ctx context.Context, userID, id uuid.UUID) (ledger.Income, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.Income(ctx, userID, id)
}

func (s *Store) Incomes(ctx context.Context, userID uuid.UUID, f storage.IncomeFilter) ([]ledger.Income, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.Incomes(ctx, userID, f)
}

func (s *Store) Schema(ctx context.Context, userID uuid.UUID, ref ledger.SchemaRef) (ledger.Schema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.Schema(ctx, userID, ref)
}

func (s *Store) Schemas(ctx context.Context, userID uuid.UUID, kind ledger.SchemaKind) ([]ledger.Schema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.Schemas(ctx, userID, kind)
}

func (s *Store) Budget(ctx context.Context, userID, id uuid.UUID) (ledger.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.Budget(ctx, userID, id)
}

func (s *Store) Budgets(ctx context.Context, userID uuid.UUID, f storage.BudgetFilter) ([]ledger.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.Budgets(ctx, userID, f)
}

func (s *Store) Category(ctx context.Context, userID, id uuid.UUID) (ledger.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.Category(ctx, userID, id)
}

func (s *Store) Categories(ctx context.Context, userID uuid.UUID, kind ledger.CategoryKind) ([]ledger.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.Categories(ctx, userID, kind)
}

func (s *Store) Client(ctx context.Context, userID, id uuid.UUID) (ledger.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.Client(ctx, userID, id)
}

func (s *Store) Clients(ctx context.Context, userID uuid.UUID, f storage.ClientFilter) ([]ledger.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.Clients(ctx, userID, f)
}

func (s *Store) OwnerOf(ctx context.Context, t storage.Table, id uuid.UUID) (uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.OwnerOf(ctx, t, id)
}
