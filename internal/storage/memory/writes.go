package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/finledger/internal/errs"
	"github.com/tinoosan/finledger/internal/ledger"
	"github.com/tinoosan/finledger/internal/storage"
)

// The store holds its write lock for the whole unit of work, so row locks are reads.

func (st *state) LockBankAccount(ctx context.Context, userID, id uuid.UUID) (ledger.BankAccount, error) {
	return st.BankAccount(ctx, userID, id)
}

func (st *state) LockSchema(ctx context.Context, userID uuid.UUID, ref ledger.SchemaRef) (ledger.Schema, error) {
	return st.Schema(ctx, userID, ref)
}

func (st *state) InsertBankAccount(_ context.Context, a ledger.BankAccount) error {
	if _, ok := st.accounts[a.ID]; ok {
		return errs.Conflict("bank account %s exists", a.ID)
	}
	for _, other := range st.accounts {
		if other.UserID == a.UserID && a.AccountNumber != "" && other.AccountNumber == a.AccountNumber {
			return errs.Conflict("account number already in use")
		}
	}
	st.accounts[a.ID] = a
	st.push(colAccounts, a.ID)
	return nil
}

func (st *state) UpdateBankAccount(_ context.Context, a ledger.BankAccount) error {
	cur, ok := st.accounts[a.ID]
	if !ok || cur.UserID != a.UserID {
		return errs.NotFound("bank account")
	}
	for _, other := range st.accounts {
		if other.ID != a.ID && other.UserID == a.UserID && a.AccountNumber != "" && other.AccountNumber == a.AccountNumber {
			return errs.Conflict("account number already in use")
		}
	}
	st.accounts[a.ID] = a
	return nil
}

func (st *state) InsertEntry(_ context.Context, e ledger.LedgerEntry) error {
	if _, ok := st.entries[e.ID]; ok {
		return errs.Conflict("transaction %s exists", e.ID)
	}
	st.entries[e.ID] = e
	st.push(colEntries, e.ID)
	return nil
}

func (st *state) MarkEntryReversed(_ context.Context, userID, id uuid.UUID, at time.Time) error {
	e, ok := st.entries[id]
	if !ok || e.UserID != userID {
		return errs.NotFound("transaction")
	}
	e.IsReversed = true
	e.ReversedAt = &at
	st.entries[id] = e
	return nil
}

func (st *state) InsertExpense(_ context.Context, e ledger.Expense) error {
	st.expenses[e.ID] = e
	st.push(colExpenses, e.ID)
	return nil
}

func (st *state) UpdateExpense(_ context.Context, e ledger.Expense) error {
	if cur, ok := st.expenses[e.ID]; !ok || cur.UserID != e.UserID {
		return errs.NotFound("expense")
	}
	st.expenses[e.ID] = e
	return nil
}

func (st *state) DeleteExpense(_ context.Context, userID, id uuid.UUID) error {
	if cur, ok := st.expenses[id]; !ok || cur.UserID != userID {
		return errs.NotFound("expense")
	}
	delete(st.expenses, id)
	st.drop(colExpenses, id)
	return nil
}

func (st *state) InsertIncome(_ context.Context, in ledger.Income) error {
	st.incomes[in.ID] = in
	st.push(colIncomes, in.ID)
	return nil
}

func (st *state) UpdateIncome(_ context.Context, in ledger.Income) error {
	if cur, ok := st.incomes[in.ID]; !ok || cur.UserID != in.UserID {
		return errs.NotFound("income")
	}
	st.incomes[in.ID] = in
	return nil
}

func (st *state) DeleteIncome(_ context.Context, userID, id uuid.UUID) error {
	if cur, ok := st.incomes[id]; !ok || cur.UserID != userID {
		return errs.NotFound("income")
	}
	delete(st.incomes, id)
	st.drop(colIncomes, id)
	return nil
}

func (st *state) InsertSchema(_ context.Context, s ledger.Schema) error {
	st.schemas[s.Ref()] = s
	st.push(colSchemas, s.Ref().ID)
	return nil
}

func (st *state) UpdateSchema(_ context.Context, s ledger.Schema) error {
	if cur, ok := st.schemas[s.Ref()]; !ok || cur.Owner() != s.Owner() {
		return errs.NotFound(string(s.Ref().Kind))
	}
	st.schemas[s.Ref()] = s
	return nil
}

func (st *state) DeleteSchema(_ context.Context, userID uuid.UUID, ref ledger.SchemaRef) error {
	if cur, ok := st.schemas[ref]; !ok || cur.Owner() != userID {
		return errs.NotFound(string(ref.Kind))
	}
	delete(st.schemas, ref)
	st.drop(colSchemas, ref.ID)
	return nil
}

func (st *state) InsertBudget(_ context.Context, b ledger.Budget) error {
	st.budgets[b.ID] = b
	st.push(colBudgets, b.ID)
	return nil
}

func (st *state) UpdateBudget(_ context.Context, b ledger.Budget) error {
	if cur, ok := st.budgets[b.ID]; !ok || cur.UserID != b.UserID {
		return errs.NotFound("budget")
	}
	st.budgets[b.ID] = b
	return nil
}

func (st *state) DeleteBudget(_ context.Context, userID, id uuid.UUID) error {
	if cur, ok := st.budgets[id]; !ok || cur.UserID != userID {
		return errs.NotFound("budget")
	}
	delete(st.budgets, id)
	st.drop(colBudgets, id)
	return nil
}

func (st *state) ExpireBudgets(_ context.Context, asOf time.Time) (int, error) {
	n := 0
	day := ledger.Day(asOf)
	for id, b := range st.budgets {
		if b.Status == ledger.BudgetActive && ledger.Day(b.EndDate).Before(day) {
			b.Status = ledger.BudgetCompleted
			b.UpdatedAt = asOf
			st.budgets[id] = b
			n++
		}
	}
	return n, nil
}

func (st *state) InsertCategory(_ context.Context, c ledger.Category) error {
	for _, other := range st.categories {
		if other.UserID == c.UserID && other.Kind == c.Kind && other.Slug == c.Slug {
			return errs.Conflict("category %s exists", c.Slug)
		}
	}
	st.categories[c.ID] = c
	return nil
}

func (st *state) UpdateCategory(_ context.Context, c ledger.Category) error {
	cur, ok := st.categories[c.ID]
	if !ok || cur.UserID != c.UserID {
		return errs.NotFound("category")
	}
	for _, other := range st.categories {
		if other.ID != c.ID && other.UserID == c.UserID && other.Kind == c.Kind && other.Slug == c.Slug {
			return errs.Conflict("category %s exists", c.Slug)
		}
	}
	st.categories[c.ID] = c
	return nil
}

func (st *state) DeleteCategory(_ context.Context, userID, id uuid.UUID) error {
	if cur, ok := st.categories[id]; !ok || cur.UserID != userID {
		return errs.NotFound("category")
	}
	delete(st.categories, id)
	return nil
}

func (st *state) InsertClient(_ context.Context, c ledger.Client) error {
	if _, ok := st.clients[c.ID]; ok {
		return errs.Conflict("client %s exists", c.ID)
	}
	st.clients[c.ID] = c
	return nil
}

func (st *state) UpdateClient(_ context.Context, c ledger.Client) error {
	cur, ok := st.clients[c.ID]
	if !ok || cur.UserID != c.UserID {
		return errs.NotFound("client")
	}
	st.clients[c.ID] = c
	return nil
}

func (st *state) DeleteClient(_ context.Context, userID, id uuid.UUID) error {
	if cur, ok := st.clients[id]; !ok || cur.UserID != userID {
		return errs.NotFound("client")
	}
	delete(st.clients, id)
	return nil
}

var _ storage.Tx = (*state)(nil)
