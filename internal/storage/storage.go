// Package storage declares the persistence contract shared by the memory and
// postgres backends. Every read is scoped by the owning user; a record owned
// by someone else is reported as errs.ErrNotFound.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/finledger/internal/ledger"
)

// Table names an owned table for unscoped ownership lookups.
type Table string

const (
	TableBankAccounts      Table = "bank_accounts"
	TableCategories        Table = "categories"
	TableClients           Table = "clients"
	TableRecurringDeposits Table = "recurring_deposits"
	TableFixedDeposits     Table = "fixed_deposits"
	TableLoans             Table = "loans"
)

// SchemaTable maps a schema kind to its table.
func SchemaTable(k ledger.SchemaKind) Table {
	switch k {
	case ledger.SchemaDPS:
		return TableRecurringDeposits
	case ledger.SchemaFDR:
		return TableFixedDeposits
	default:
		return TableLoans
	}
}

// EntryFilter narrows ledger entry listings. Zero values do not filter.
type EntryFilter struct {
	AccountID       *uuid.UUID
	Direction       ledger.Direction
	From, To        *time.Time
	IncludeReversed bool
}

// ExpenseFilter narrows expense listings. Zero values do not filter.
type ExpenseFilter struct {
	From, To   *time.Time
	CategoryID *uuid.UUID
	Type       ledger.ExpenseType
	Related    *ledger.SchemaRef
	Search     string
}

// IncomeFilter narrows income listings. Zero values do not filter.
type IncomeFilter struct {
	From, To   *time.Time
	CategoryID *uuid.UUID
	ClientID   *uuid.UUID
	Search     string
}

// ClientFilter narrows client listings. Search matches name, email or company.
type ClientFilter struct {
	Status ledger.ClientStatus
	Search string
}

// BudgetFilter narrows budget listings. Zero values do not filter.
type BudgetFilter struct {
	Status     ledger.BudgetStatus
	CategoryID *uuid.UUID
}

// Reader is the read side, usable outside a unit of work.
type Reader interface {
	BankAccount(ctx context.Context, userID, id uuid.UUID) (ledger.BankAccount, error)
	BankAccounts(ctx context.Context, userID uuid.UUID) ([]ledger.BankAccount, error)
	// AllBankAccounts lists accounts across users for integrity sweeps.
	AllBankAccounts(ctx context.Context) ([]ledger.BankAccount, error)
	Entry(ctx context.Context, userID, id uuid.UUID) (ledger.LedgerEntry, error)
	Entries(ctx context.Context, userID uuid.UUID, f EntryFilter) ([]ledger.LedgerEntry, error)
	Expense(ctx context.Context, userID, id uuid.UUID) (ledger.Expense, error)
	Expenses(ctx context.Context, userID uuid.UUID, f ExpenseFilter) ([]ledger.Expense, error)
	Income(ctx context.Context, userID, id uuid.UUID) (ledger.Income, error)
	Incomes(ctx context.Context, userID uuid.UUID, f IncomeFilter) ([]ledger.Income, error)
	Schema(ctx context.Context, userID uuid.UUID, ref ledger.SchemaRef) (ledger.Schema, error)
	// Schemas lists schemas of kind, or of every kind when kind is empty.
	Schemas(ctx context.Context, userID uuid.UUID, kind ledger.SchemaKind) ([]ledger.Schema, error)
	Budget(ctx context.Context, userID, id uuid.UUID) (ledger.Budget, error)
	Budgets(ctx context.Context, userID uuid.UUID, f BudgetFilter) ([]ledger.Budget, error)
	Category(ctx context.Context, userID, id uuid.UUID) (ledger.Category, error)
	// Categories lists the categories that accept kind, including those of
	// kind both, or every category when kind is empty.
	Categories(ctx context.Context, userID uuid.UUID, kind ledger.CategoryKind) ([]ledger.Category, error)
	Client(ctx context.Context, userID, id uuid.UUID) (ledger.Client, error)
	// Clients lists clients ordered by name.
	Clients(ctx context.Context, userID uuid.UUID, f ClientFilter) ([]ledger.Client, error)
	// OwnerOf returns the owning user of a row regardless of the acting user.
	OwnerOf(ctx context.Context, t Table, id uuid.UUID) (uuid.UUID, error)
}

// Tx is a unit of work. Writes become visible to other readers only when the
// function passed to Store.InTx returns nil.
type Tx interface {
	Reader

	// LockBankAccount reads an account and holds it against concurrent balance writes
	// until the unit of work ends.
	LockBankAccount(ctx context.Context, userID, id uuid.UUID) (ledger.BankAccount, error)
	// LockSchema reads a schema and holds it until the unit of work ends.
	LockSchema(ctx context.Context, userID uuid.UUID, ref ledger.SchemaRef) (ledger.Schema, error)

	InsertBankAccount(ctx context.Context, a ledger.BankAccount) error
	UpdateBankAccount(ctx context.Context, a ledger.BankAccount) error

	InsertEntry(ctx context.Context, e ledger.LedgerEntry) error
	MarkEntryReversed(ctx context.Context, userID, id uuid.UUID, at time.Time) error

	InsertExpense(ctx context.Context, e ledger.Expense) error
	UpdateExpense(ctx context.Context, e ledger.Expense) error
	DeleteExpense(ctx context.Context, userID, id uuid.UUID) error

	InsertIncome(ctx context.Context, in ledger.Income) error
	UpdateIncome(ctx context.Context, in ledger.Income) error
	DeleteIncome(ctx context.Context, userID, id uuid.UUID) error

	InsertSchema(ctx context.Context, s ledger.Schema) error
	UpdateSchema(ctx context.Context, s ledger.Schema) error
	DeleteSchema(ctx context.Context, userID uuid.UUID, ref ledger.SchemaRef) error

	InsertBudget(ctx context.Context, b ledger.Budget) error
	UpdateBudget(ctx context.Context, b ledger.Budget) error
	DeleteBudget(ctx context.Context, userID, id uuid.UUID) error
	// ExpireBudgets marks active budgets that ended before asOf as completed, across users.
	ExpireBudgets(ctx context.Context, asOf time.Time) (int, error)

	InsertCategory(ctx context.Context, c ledger.Category) error
	UpdateCategory(ctx context.Context, c ledger.Category) error
	DeleteCategory(ctx context.Context, userID, id uuid.UUID) error

	InsertClient(ctx context.Context, c ledger.Client) error
	UpdateClient(ctx context.Context, c ledger.Client) error
	DeleteClient(ctx context.Context, userID, id uuid.UUID) error
}

// Store runs units of work and serves reads.
type Store interface {
	Reader
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Ready(ctx context.Context) error
}
