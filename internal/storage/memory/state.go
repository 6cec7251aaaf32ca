package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/finledger/internal/errs"
	"github.com/tinoosan/finledger/internal/ledger"
	"github.com/tinoosan/finledger/internal/storage"
)

// state is one version of the data. A unit of work mutates a clone and the
// store swaps it in on commit.
type state struct {
	accounts   map[uuid.UUID]ledger.BankAccount
	entries    map[uuid.UUID]ledger.LedgerEntry
	expenses   map[uuid.UUID]ledger.Expense
	incomes    map[uuid.UUID]ledger.Income
	schemas    map[ledger.SchemaRef]ledger.Schema
	budgets    map[uuid.UUID]ledger.Budget
	categories map[uuid.UUID]ledger.Category
	clients    map[uuid.UUID]ledger.Client
	// insertion order per collection
	order map[string][]uuid.UUID
}

func newState() *state {
	return &state{
		accounts:   map[uuid.UUID]ledger.BankAccount{},
		entries:    map[uuid.UUID]ledger.LedgerEntry{},
		expenses:   map[uuid.UUID]ledger.Expense{},
		incomes:    map[uuid.UUID]ledger.Income{},
		schemas:    map[ledger.SchemaRef]ledger.Schema{},
		budgets:    map[uuid.UUID]ledger.Budget{},
		categories: map[uuid.UUID]ledger.Category{},
		clients:    map[uuid.UUID]ledger.Client{},
		order:      map[string][]uuid.UUID{},
	}
}

func (st *state) clone() *state {
	out := &state{
		accounts:   cloneMap(st.accounts),
		entries:    cloneMap(st.entries),
		expenses:   cloneMap(st.expenses),
		incomes:    cloneMap(st.incomes),
		schemas:    cloneMap(st.schemas),
		budgets:    cloneMap(st.budgets),
		categories: cloneMap(st.categories),
		clients:    cloneMap(st.clients),
		order:      make(map[string][]uuid.UUID, len(st.order)),
	}
	for k, v := range st.order {
		out.order[k] = slices.Clone(v)
	}
	return out
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

const (
	colAccounts = "accounts"
	colEntries  = "entries"
	colExpenses = "expenses"
	colIncomes  = "incomes"
	colSchemas  = "schemas"
	colBudgets  = "budgets"
)

func (st *state) push(col string, id uuid.UUID) { st.order[col] = append(st.order[col], id) }

func (st *state) drop(col string, id uuid.UUID) {
	st.order[col] = slices.DeleteFunc(st.order[col], func(x uuid.UUID) bool { return x == id })
}

func inWindow(d time.Time, from, to *time.Time) bool {
	d = ledger.Day(d)
	if from != nil && d.Before(ledger.Day(*from)) {
		return false
	}
	if to != nil && d.After(ledger.Day(*to)) {
		return false
	}
	return true
}

func matches(search string, fields ...string) bool {
	if search == "" {
		return true
	}
	search = strings.ToLower(search)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), search) {
			return true
		}
	}
	return false
}

// --- reads ---

func (st *state) BankAccount(_ context.Context, userID, id uuid.UUID) (ledger.BankAccount, error) {
	a, ok := st.accounts[id]
	if !ok || a.UserID != userID {
		return ledger.BankAccount{}, errs.NotFound("bank account")
	}
	return a, nil
}

func (st *state) BankAccounts(_ context.Context, userID uuid.UUID) ([]ledger.BankAccount, error) {
	out := make([]ledger.BankAccount, 0)
	for _, id := range st.order[colAccounts] {
		if a := st.accounts[id]; a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (st *state) AllBankAccounts(_ context.Context) ([]ledger.BankAccount, error) {
	out := make([]ledger.BankAccount, 0, len(st.accounts))
	for _, id := range st.order[colAccounts] {
		out = append(out, st.accounts[id])
	}
	return out, nil
}

func (st *state) Entry(_ context.Context, userID, id uuid.UUID) (ledger.LedgerEntry, error) {
	e, ok := st.entries[id]
	if !ok || e.UserID != userID {
		return ledger.LedgerEntry{}, errs.NotFound("transaction")
	}
	return e, nil
}

func (st *state) Entries(_ context.Context, userID uuid.UUID, f storage.EntryFilter) ([]ledger.LedgerEntry, error) {
	out := make([]ledger.LedgerEntry, 0)
	for _, id := range st.order[colEntries] {
		e := st.entries[id]
		if e.UserID != userID {
			continue
		}
		if f.AccountID != nil && e.AccountID != *f.AccountID {
			continue
		}
		if f.Direction != "" && e.Direction != f.Direction {
			continue
		}
		if !f.IncludeReversed && e.IsReversed {
			continue
		}
		if !inWindow(e.Date, f.From, f.To) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (st *state) Expense(_ context.Context, userID, id uuid.UUID) (ledger.Expense, error) {
	e, ok := st.expenses[id]
	if !ok || e.UserID != userID {
		return ledger.Expense{}, errs.NotFound("expense")
	}
	return e, nil
}

func (st *state) Expenses(_ context.Context, userID uuid.UUID, f storage.ExpenseFilter) ([]ledger.Expense, error) {
	out := make([]ledger.Expense, 0)
	for _, id := range st.order[colExpenses] {
		e := st.expenses[id]
		if e.UserID != userID || !inWindow(e.Date, f.From, f.To) {
			continue
		}
		if f.CategoryID != nil && (e.CategoryID == nil || *e.CategoryID != *f.CategoryID) {
			continue
		}
		if f.Type != "" && e.Type != f.Type {
			continue
		}
		if f.Related != nil && (e.Related == nil || *e.Related != *f.Related) {
			continue
		}
		if !matches(f.Search, e.Title, e.Description) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (st *state) Income(_ context.Context, userID, id uuid.UUID) (ledger.Income, error) {
	in, ok := st.incomes[id]
	if !ok || in.UserID != userID {
		return ledger.Income{}, errs.NotFound("income")
	}
	return in, nil
}

func (st *state) Incomes(_ context.Context, userID uuid.UUID, f storage.IncomeFilter) ([]ledger.Income, error) {
	out := make([]ledger.Income, 0)
	for _, id := range st.order[colIncomes] {
		in := st.incomes[id]
		if in.UserID != userID || !inWindow(in.Date, f.From, f.To) {
			continue
		}
		if f.CategoryID != nil && (in.CategoryID == nil || *in.CategoryID != *f.CategoryID) {
			continue
		}
		if f.ClientID != nil && (in.ClientID == nil || *in.ClientID != *f.ClientID) {
			continue
		}
		if !matches(f.Search, in.Title, in.Description, in.Source) {
			continue
		}
		out = append(out, in)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (st *state) Schema(_ context.Context, userID uuid.UUID, ref ledger.SchemaRef) (ledger.Schema, error) {
	s, ok := st.schemas[ref]
	if !ok || s.Owner() != userID {
		return nil, errs.NotFound(string(ref.Kind))
	}
	return s, nil
}

func (st *state) Schemas(_ context.Context, userID uuid.UUID, kind ledger.SchemaKind) ([]ledger.Schema, error) {
	out := make([]ledger.Schema, 0)
	for _, id := range st.order[colSchemas] {
		for _, k := range []ledger.SchemaKind{ledger.SchemaDPS, ledger.SchemaFDR, ledger.SchemaLoan} {
			if kind != "" && k != kind {
				continue
			}
			if s, ok := st.schemas[ledger.SchemaRef{Kind: k, ID: id}]; ok && s.Owner() == userID {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

func (st *state) Budget(_ context.Context, userID, id uuid.UUID) (ledger.Budget, error) {
	b, ok := st.budgets[id]
	if !ok || b.UserID != userID {
		return ledger.Budget{}, errs.NotFound("budget")
	}
	return b, nil
}

func (st *state) Budgets(_ context.Context, userID uuid.UUID, f storage.BudgetFilter) ([]ledger.Budget, error) {
	out := make([]ledger.Budget, 0)
	for _, id := range st.order[colBudgets] {
		b := st.budgets[id]
		if b.UserID != userID {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		if f.CategoryID != nil && (b.CategoryID == nil || *b.CategoryID != *f.CategoryID) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (st *state) Category(_ context.Context, userID, id uuid.UUID) (ledger.Category, error) {
	c, ok := st.categories[id]
	if !ok || c.UserID != userID {
		return ledger.Category{}, errs.NotFound("category")
	}
	return c, nil
}

func (st *state) Categories(_ context.Context, userID uuid.UUID, kind ledger.CategoryKind) ([]ledger.Category, error) {
	out := make([]ledger.Category, 0)
	for _, c := range st.categories {
		if c.UserID == userID && (kind == "" || c.Kind.Accepts(kind)) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Slug < out[j].Slug
	})
	return out, nil
}

func (st *state) Client(_ context.Context, userID, id uuid.UUID) (ledger.Client, error) {
	c, ok := st.clients[id]
	if !ok || c.UserID != userID {
		return ledger.Client{}, errs.NotFound("client")
	}
	return c, nil
}

func (st *state) Clients(_ context.Context, userID uuid.UUID, f storage.ClientFilter) ([]ledger.Client, error) {
	out := make([]ledger.Client, 0)
	for _, c := range st.clients {
		if c.UserID != userID {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if !matches(f.Search, c.Name, c.Email, c.Company) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (st *state) OwnerOf(_ context.Context, t storage.Table, id uuid.UUID) (uuid.UUID, error) {
	var owner uuid.UUID
	found := false
	switch t {
	case storage.TableBankAccounts:
		var a ledger.BankAccount
		a, found = st.accounts[id]
		owner = a.UserID
	case storage.TableCategories:
		var c ledger.Category
		c, found = st.categories[id]
		owner = c.UserID
	case storage.TableClients:
		var c ledger.Client
		c, found = st.clients[id]
		owner = c.UserID
	case storage.TableRecurringDeposits, storage.TableFixedDeposits, storage.TableLoans:
		kind := map[storage.Table]ledger.SchemaKind{
			storage.TableRecurringDeposits: ledger.SchemaDPS,
			storage.TableFixedDeposits:     ledger.SchemaFDR,
			storage.TableLoans:             ledger.SchemaLoan,
		}[t]
		var s ledger.Schema
		if s, found = st.schemas[ledger.SchemaRef{Kind: kind, ID: id}]; found {
			owner = s.Owner()
		}
	}
	if !found {
		return uuid.Nil, errs.NotFound(string(t))
	}
	return owner, nil
}
