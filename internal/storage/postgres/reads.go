package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tinoosan/finledger/internal/errs"
	"github.com/tinoosan/finledger/internal/ledger"
	"github.com/tinoosan/finledger/internal/storage"
)

// reader serves storage.Reader from either the pool or an open transaction.
type reader struct {
	q querier
}

func (r reader) BankAccount(ctx context.Context, userID, id uuid.UUID) (ledger.BankAccount, error) {
	return one(r.q.QueryRow(ctx, `select `+accountCols+` from bank_accounts where id = $1 and user_id = $2`, id, userID),
		scanAccount, "bank account")
}

func (r reader) BankAccounts(ctx context.Context, userID uuid.UUID) ([]ledger.BankAccount, error) {
	rows, err := r.q.Query(ctx, `select `+accountCols+` from bank_accounts where user_id = $1 order by created_at, id`, userID)
	return collect(rows, err, scanAccount)
}

func (r reader) AllBankAccounts(ctx context.Context) ([]ledger.BankAccount, error) {
	rows, err := r.q.Query(ctx, `select `+accountCols+` from bank_accounts order by user_id, created_at, id`)
	return collect(rows, err, scanAccount)
}

func (r reader) Entry(ctx context.Context, userID, id uuid.UUID) (ledger.LedgerEntry, error) {
	return one(r.q.QueryRow(ctx, `select `+entryCols+` from ledger_entries where id = $1 and user_id = $2`, id, userID),
		scanEntry, "transaction")
}

func (r reader) Entries(ctx context.Context, userID uuid.UUID, f storage.EntryFilter) ([]ledger.LedgerEntry, error) {
	w := &where{}
	w.add("user_id = ?", userID)
	if f.AccountID != nil {
		w.add("account_id = ?", *f.AccountID)
	}
	if f.Direction != "" {
		w.add("direction = ?", string(f.Direction))
	}
	if f.From != nil {
		w.add("entry_date >= ?", ledger.Day(*f.From))
	}
	if f.To != nil {
		w.add("entry_date <= ?", ledger.Day(*f.To))
	}
	if !f.IncludeReversed {
		w.add("is_reversed = ?", false)
	}
	rows, err := r.q.Query(ctx, `select `+entryCols+` from ledger_entries`+w.String()+` order by entry_date, created_at, id`, w.args...)
	return collect(rows, err, scanEntry)
}

func (r reader) Expense(ctx context.Context, userID, id uuid.UUID) (ledger.Expense, error) {
	return one(r.q.QueryRow(ctx, `select `+expenseCols+` from expenses where id = $1 and user_id = $2`, id, userID),
		scanExpense, "expense")
}

func (r reader) Expenses(ctx context.Context, userID uuid.UUID, f storage.ExpenseFilter) ([]ledger.Expense, error) {
	w := &where{}
	w.add("user_id = ?", userID)
	if f.From != nil {
		w.add("expense_date >= ?", ledger.Day(*f.From))
	}
	if f.To != nil {
		w.add("expense_date <= ?", ledger.Day(*f.To))
	}
	if f.CategoryID != nil {
		w.add("category_id = ?", *f.CategoryID)
	}
	if f.Type != "" {
		w.add("expense_type = ?", string(f.Type))
	}
	if f.Related != nil {
		w.add("related_type = ?", string(f.Related.Kind))
		w.add("related_id = ?", f.Related.ID)
	}
	if f.Search != "" {
		w.add("(title ilike ? or description ilike ?)", "%"+f.Search+"%")
	}
	rows, err := r.q.Query(ctx, `select `+expenseCols+` from expenses`+w.String()+` order by expense_date desc, created_at desc`, w.args...)
	return collect(rows, err, scanExpense)
}

func (r reader) Income(ctx context.Context, userID, id uuid.UUID) (ledger.Income, error) {
	return one(r.q.QueryRow(ctx, `select `+incomeCols+` from incomes where id = $1 and user_id = $2`, id, userID),
		scanIncome, "income")
}

func (r reader) Incomes(ctx context.Context, userID uuid.UUID, f storage.IncomeFilter) ([]ledger.Income, error) {
	w := &where{}
	w.add("user_id = ?", userID)
	if f.From != nil {
		w.add("income_date >= ?", ledger.Day(*f.From))
	}
	if f.To != nil {
		w.add("income_date <= ?", ledger.Day(*f.To))
	}
	if f.CategoryID != nil {
		w.add("category_id = ?", *f.CategoryID)
	}
	if f.ClientID != nil {
		w.add("client_id = ?", *f.ClientID)
	}
	if f.Search != "" {
		w.add("(title ilike ? or description ilike ? or source ilike ?)", "%"+f.Search+"%")
	}
	rows, err := r.q.Query(ctx, `select `+incomeCols+` from incomes`+w.String()+` order by income_date desc, created_at desc`, w.args...)
	return collect(rows, err, scanIncome)
}

func (r reader) Schema(ctx context.Context, userID uuid.UUID, ref ledger.SchemaRef) (ledger.Schema, error) {
	return r.schema(ctx, userID, ref, "")
}

func (r reader) schema(ctx context.Context, userID uuid.UUID, ref ledger.SchemaRef, suffix string) (ledger.Schema, error) {
	if !ref.Kind.Valid() {
		return nil, errs.Field("related_type", "must be dps, fdr or loan")
	}
	cols, table, scan := schemaQuery(ref.Kind)
	return one(r.q.QueryRow(ctx, `select `+cols+` from `+table+` where id = $1 and user_id = $2`+suffix, ref.ID, userID),
		scan, string(ref.Kind))
}

func (r reader) Schemas(ctx context.Context, userID uuid.UUID, kind ledger.SchemaKind) ([]ledger.Schema, error) {
	kinds := []ledger.SchemaKind{ledger.SchemaDPS, ledger.SchemaFDR, ledger.SchemaLoan}
	if kind != "" {
		kinds = []ledger.SchemaKind{kind}
	}
	out := make([]ledger.Schema, 0)
	for _, k := range kinds {
		cols, table, scan := schemaQuery(k)
		rows, err := r.q.Query(ctx, `select `+cols+` from `+table+` where user_id = $1 order by created_at, id`, userID)
		list, err := collect(rows, err, scan)
		if err != nil {
			return nil, err
		}
		out = append(out, list...)
	}
	return out, nil
}

func (r reader) Budget(ctx context.Context, userID, id uuid.UUID) (ledger.Budget, error) {
	return one(r.q.QueryRow(ctx, `select `+budgetCols+` from budgets where id = $1 and user_id = $2`, id, userID),
		scanBudget, "budget")
}

func (r reader) Budgets(ctx context.Context, userID uuid.UUID, f storage.BudgetFilter) ([]ledger.Budget, error) {
	w := &where{}
	w.add("user_id = ?", userID)
	if f.Status != "" {
		w.add("status = ?", string(f.Status))
	}
	if f.CategoryID != nil {
		w.add("category_id = ?", *f.CategoryID)
	}
	rows, err := r.q.Query(ctx, `select `+budgetCols+` from budgets`+w.String()+` order by created_at, id`, w.args...)
	return collect(rows, err, scanBudget)
}

func (r reader) Category(ctx context.Context, userID, id uuid.UUID) (ledger.Category, error) {
	return one(r.q.QueryRow(ctx, `select `+categoryCols+` from categories where id = $1 and user_id = $2`, id, userID),
		scanCategory, "category")
}

func (r reader) Categories(ctx context.Context, userID uuid.UUID, kind ledger.CategoryKind) ([]ledger.Category, error) {
	w := &where{}
	w.add("user_id = ?", userID)
	if kind != "" {
		w.add("kind in (?, 'both')", string(kind))
	}
	rows, err := r.q.Query(ctx, `select `+categoryCols+` from categories`+w.String()+` order by kind, sort_order, slug`, w.args...)
	return collect(rows, err, scanCategory)
}

func (r reader) Client(ctx context.Context, userID, id uuid.UUID) (ledger.Client, error) {
	return one(r.q.QueryRow(ctx, `select `+clientCols+` from clients where id = $1 and user_id = $2`, id, userID),
		scanClient, "client")
}

func (r reader) Clients(ctx context.Context, userID uuid.UUID, f storage.ClientFilter) ([]ledger.Client, error) {
	w := &where{}
	w.add("user_id = ?", userID)
	if f.Status != "" {
		w.add("status = ?", string(f.Status))
	}
	if f.Search != "" {
		w.add("(name ilike ? or email ilike ? or company ilike ?)", "%"+f.Search+"%")
	}
	rows, err := r.q.Query(ctx, `select `+clientCols+` from clients`+w.String()+` order by name, created_at`, w.args...)
	return collect(rows, err, scanClient)
}

var ownedTables = map[storage.Table]bool{
	storage.TableBankAccounts:      true,
	storage.TableCategories:        true,
	storage.TableClients:           true,
	storage.TableRecurringDeposits: true,
	storage.TableFixedDeposits:     true,
	storage.TableLoans:             true,
}

func (r reader) OwnerOf(ctx context.Context, t storage.Table, id uuid.UUID) (uuid.UUID, error) {
	if !ownedTables[t] {
		return uuid.Nil, fmt.Errorf("unknown table %q", t)
	}
	var owner uuid.UUID
	err := r.q.QueryRow(ctx, `select user_id from `+string(t)+` where id = $1`, id).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, errs.NotFound(string(t))
	}
	return owner, err
}
