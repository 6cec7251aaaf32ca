// Package cashflow records expenses and incomes. Each create, update or delete
// is one unit of work covering the record, its ledger entry on the linked bank
// account, and for investment payments the schema's progress counters.
package cashflow

import (
	"context"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"

	"github.com/tinoosan/finledger/internal/errs"
	"github.com/tinoosan/finledger/internal/ledger"
	"github.com/tinoosan/finledger/internal/meta"
	"github.com/tinoosan/finledger/internal/service/investment"
	"github.com/tinoosan/finledger/internal/service/journal"
	"github.com/tinoosan/finledger/internal/storage"
)

type Store interface {
	Expense(ctx context.Context, userID, id uuid.UUID) (ledger.Expense, error)
	Expenses(ctx context.Context, userID uuid.UUID, f storage.ExpenseFilter) ([]ledger.Expense, error)
	Income(ctx context.Context, userID, id uuid.UUID) (ledger.Income, error)
	Incomes(ctx context.Context, userID uuid.UUID, f storage.IncomeFilter) ([]ledger.Income, error)
	Categories(ctx context.Context, userID uuid.UUID, kind ledger.CategoryKind) ([]ledger.Category, error)
	InTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error
}

// ExpenseInput describes an expense. RelatedType may be left empty; it is
// derived from Type.
type ExpenseInput struct {
	Title         string
	Description   string
	Amount        money.Amount
	Date          time.Time
	CategoryID    *uuid.UUID
	PaymentMethod string
	Tags          []string
	Type          ledger.ExpenseType
	RelatedType   ledger.SchemaKind
	RelatedID     *uuid.UUID
	BankAccountID *uuid.UUID
}

// IncomeInput describes an income.
type IncomeInput struct {
	Title              string
	Description        string
	Amount             money.Amount
	Date               time.Time
	CategoryID         *uuid.UUID
	Source             string
	IsRecurring        bool
	RecurringFrequency string
	Tags               []string
	ClientID           *uuid.UUID
	BankAccountID      *uuid.UUID
}

// CategoryTotal is one row of a per-category breakdown. CategoryID is nil for uncategorized records.
type CategoryTotal struct {
	CategoryID *uuid.UUID
	Name       string
	Count      int
	Total      money.Amount
}

// Stats aggregates a filtered set of expenses or incomes. Records in a
// currency other than the requested one are left out.
type Stats struct {
	Count      int
	Total      money.Amount
	Average    money.Amount
	ByCategory []CategoryTotal
	// ByType is filled for expenses only.
	ByType map[ledger.ExpenseType]money.Amount
}

type Service interface {
	CreateExpense(ctx context.Context, userID uuid.UUID, in ExpenseInput) (ledger.Expense, error)
	UpdateExpense(ctx context.Context, userID, id uuid.UUID, in ExpenseInput) (ledger.Expense, error)
	DeleteExpense(ctx context.Context, userID, id uuid.UUID) error
	GetExpense(ctx context.Context, userID, id uuid.UUID) (ledger.Expense, error)
	ListExpenses(ctx context.Context, userID uuid.UUID, f storage.ExpenseFilter) ([]ledger.Expense, error)
	ExpenseStats(ctx context.Context, userID uuid.UUID, curr string, f storage.ExpenseFilter) (Stats, error)

	CreateIncome(ctx context.Context, userID uuid.UUID, in IncomeInput) (ledger.Income, error)
	UpdateIncome(ctx context.Context, userID, id uuid.UUID, in IncomeInput) (ledger.Income, error)
	DeleteIncome(ctx context.Context, userID, id uuid.UUID) error
	GetIncome(ctx context.Context, userID, id uuid.UUID) (ledger.Income, error)
	ListIncomes(ctx context.Context, userID uuid.UUID, f storage.IncomeFilter) ([]ledger.Income, error)
	IncomeStats(ctx context.Context, userID uuid.UUID, curr string, f storage.IncomeFilter) (Stats, error)
}

type service struct {
	store       Store
	ledger      journal.Service
	investments investment.Service
	log         *slog.Logger
	now         func() time.Time
}

func New(store Store, ledgerSvc journal.Service, investments investment.Service, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{store: store, ledger: ledgerSvc, investments: investments, log: logger, now: func() time.Time { return time.Now().UTC() }}
}

// --- validation ---

func validateCommon(title string, amount money.Amount, date time.Time, dateField string) error {
	if strings.TrimSpace(title) == "" {
		return errs.Field("title", "required")
	}
	if !amount.IsPos() {
		return errs.Field("amount", "must be > 0")
	}
	if date.IsZero() {
		return errs.Field(dateField, "required")
	}
	return nil
}

func (s *service) buildExpense(userID uuid.UUID, in ExpenseInput) (ledger.Expense, error) {
	if err := validateCommon(in.Title, in.Amount, in.Date, "expense_date"); err != nil {
		return ledger.Expense{}, err
	}
	if in.Type == "" {
		in.Type = ledger.ExpenseRegular
	}
	if !in.Type.Valid() {
		return ledger.Expense{}, errs.Field("expense_type", "must be regular, dps_payment, fdr_investment or loan_payment")
	}
	tags, err := meta.NormalizeTags(in.Tags)
	if err != nil {
		return ledger.Expense{}, errs.Field("tags", err.Error())
	}
	exp := ledger.Expense{
		UserID:        userID,
		Title:         strings.TrimSpace(in.Title),
		Description:   in.Description,
		Amount:        in.Amount.RoundToCurr(),
		Date:          ledger.Day(in.Date),
		CategoryID:    in.CategoryID,
		PaymentMethod: in.PaymentMethod,
		Tags:          tags,
		Type:          in.Type,
		BankAccountID: in.BankAccountID,
	}
	kind, pays := in.Type.SchemaKind()
	switch {
	case !pays && (in.RelatedID != nil || in.RelatedType != ""):
		return ledger.Expense{}, errs.Field("related_id", "only investment payments reference an investment")
	case pays && in.RelatedID == nil:
		return ledger.Expense{}, errs.Field("related_id", "required for "+string(in.Type))
	case pays && in.RelatedType != "" && in.RelatedType != kind:
		return ledger.Expense{}, errs.Field("related_type", "must be "+string(kind)+" for "+string(in.Type))
	case pays:
		exp.Related = &ledger.SchemaRef{Kind: kind, ID: *in.RelatedID}
	}
	return exp, nil
}

func (s *service) buildIncome(userID uuid.UUID, in IncomeInput) (ledger.Income, error) {
	if err := validateCommon(in.Title, in.Amount, in.Date, "income_date"); err != nil {
		return ledger.Income{}, err
	}
	if in.IsRecurring && !slices.Contains(ledger.Frequencies, in.RecurringFrequency) {
		return ledger.Income{}, errs.Field("recurring_frequency", "must be one of "+strings.Join(ledger.Frequencies, ", "))
	}
	if !in.IsRecurring {
		in.RecurringFrequency = ""
	}
	tags, err := meta.NormalizeTags(in.Tags)
	if err != nil {
		return ledger.Income{}, errs.Field("tags", err.Error())
	}
	return ledger.Income{
		UserID:             userID,
		Title:              strings.TrimSpace(in.Title),
		Description:        in.Description,
		Amount:             in.Amount.RoundToCurr(),
		Date:               ledger.Day(in.Date),
		CategoryID:         in.CategoryID,
		Source:             in.Source,
		IsRecurring:        in.IsRecurring,
		RecurringFrequency: in.RecurringFrequency,
		Tags:               tags,
		ClientID:           in.ClientID,
		BankAccountID:      in.BankAccountID,
	}, nil
}

// checkLinks verifies that the category, bank account and client exist and
// belong to userID.
func checkLinks(ctx context.Context, tx storage.Tx, userID uuid.UUID, categoryID, bankAccountID, clientID *uuid.UUID, kind ledger.CategoryKind) error {
	if categoryID != nil {
		if err := checkOwner(ctx, tx, userID, storage.TableCategories, *categoryID, "category"); err != nil {
			return err
		}
		c, err := tx.Category(ctx, userID, *categoryID)
		if err != nil {
			return err
		}
		if !c.Kind.Accepts(kind) {
			return errs.Field("category_id", "must be an "+string(kind)+" category")
		}
	}
	if bankAccountID != nil {
		if err := checkOwner(ctx, tx, userID, storage.TableBankAccounts, *bankAccountID, "bank account"); err != nil {
			return err
		}
	}
	if clientID != nil {
		if err := checkOwner(ctx, tx, userID, storage.TableClients, *clientID, "client"); err != nil {
			return err
		}
	}
	return nil
}

func checkOwner(ctx context.Context, tx storage.Tx, userID uuid.UUID, t storage.Table, id uuid.UUID, what string) error {
	owner, err := tx.OwnerOf(ctx, t, id)
	if err != nil {
		return err
	}
	if owner != userID {
		return errs.Consistency("%s %s belongs to another user", what, id)
	}
	return nil
}

// --- expenses ---

// applyExpense posts the expense's effects: an outflow on its bank account and
// a payment on its investment schema.
func (s *service) applyExpense(ctx context.Context, tx storage.Tx, exp *ledger.Expense) error {
	exp.EntryID = nil
	if exp.BankAccountID != nil {
		e, err := s.ledger.ApplyTx(ctx, tx, exp.UserID, journal.Input{
			AccountID:   *exp.BankAccountID,
			Direction:   ledger.DirectionOut,
			Amount:      exp.Amount,
			Date:        exp.Date,
			Description: exp.Title,
			Cause:       ledger.CauseRef{Kind: ledger.CauseExpense, ID: exp.ID},
		})
		if err != nil {
			return err
		}
		exp.EntryID = &e.ID
	}
	if exp.Related != nil {
		if _, err := s.investments.ApplyPaymentTx(ctx, tx, exp.UserID, *exp); err != nil {
			return err
		}
	}
	return nil
}

// undoExpense reverses everything applyExpense did for exp.
func (s *service) undoExpense(ctx context.Context, tx storage.Tx, exp ledger.Expense) error {
	if exp.EntryID != nil {
		if err := s.ledger.ReverseTx(ctx, tx, exp.UserID, *exp.EntryID); err != nil {
			return err
		}
	}
	if exp.Related != nil {
		if _, err := s.investments.ReversePaymentTx(ctx, tx, exp.UserID, exp); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) CreateExpense(ctx context.Context, userID uuid.UUID, in ExpenseInput) (ledger.Expense, error) {
	if userID == uuid.Nil {
		return ledger.Expense{}, errs.Field("user_id", "required")
	}
	exp, err := s.buildExpense(userID, in)
	if err != nil {
		return ledger.Expense{}, err
	}
	now := s.now()
	exp.ID, exp.CreatedAt, exp.UpdatedAt = uuid.New(), now, now
	err = s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := checkLinks(ctx, tx, userID, exp.CategoryID, exp.BankAccountID, nil, ledger.CategoryExpense); err != nil {
			return err
		}
		if err := s.applyExpense(ctx, tx, &exp); err != nil {
			return err
		}
		return tx.InsertExpense(ctx, exp)
	})
	if err != nil {
		return ledger.Expense{}, err
	}
	s.log.Info("expense created", "user_id", userID, "expense_id", exp.ID, "expense_type", exp.Type)
	return exp, nil
}

func (s *service) UpdateExpense(ctx context.Context, userID, id uuid.UUID, in ExpenseInput) (ledger.Expense, error) {
	next, err := s.buildExpense(userID, in)
	if err != nil {
		return ledger.Expense{}, err
	}
	err = s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		old, err := tx.Expense(ctx, userID, id)
		if err != nil {
			return err
		}
		if err := checkLinks(ctx, tx, userID, next.CategoryID, next.BankAccountID, nil, ledger.CategoryExpense); err != nil {
			return err
		}
		if err := s.undoExpense(ctx, tx, old); err != nil {
			return err
		}
		next.ID, next.CreatedAt, next.UpdatedAt = old.ID, old.CreatedAt, s.now()
		if err := s.applyExpense(ctx, tx, &next); err != nil {
			return err
		}
		return tx.UpdateExpense(ctx, next)
	})
	if err != nil {
		return ledger.Expense{}, err
	}
	s.log.Info("expense updated", "user_id", userID, "expense_id", id)
	return next, nil
}

func (s *service) DeleteExpense(ctx context.Context, userID, id uuid.UUID) error {
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		old, err := tx.Expense(ctx, userID, id)
		if err != nil {
			return err
		}
		if err := s.undoExpense(ctx, tx, old); err != nil {
			return err
		}
		return tx.DeleteExpense(ctx, userID, id)
	})
	if err == nil {
		s.log.Info("expense deleted", "user_id", userID, "expense_id", id)
	}
	return err
}

func (s *service) GetExpense(ctx context.Context, userID, id uuid.UUID) (ledger.Expense, error) {
	return s.store.Expense(ctx, userID, id)
}

func (s *service) ListExpenses(ctx context.Context, userID uuid.UUID, f storage.ExpenseFilter) ([]ledger.Expense, error) {
	return s.store.Expenses(ctx, userID, f)
}

// --- incomes ---

func (s *service) applyIncome(ctx context.Context, tx storage.Tx, in *ledger.Income) error {
	in.EntryID = nil
	if in.BankAccountID == nil {
		return nil
	}
	e, err := s.ledger.ApplyTx(ctx, tx, in.UserID, journal.Input{
		AccountID:   *in.BankAccountID,
		Direction:   ledger.DirectionIn,
		Amount:      in.Amount,
		Date:        in.Date,
		Description: in.Title,
		Cause:       ledger.CauseRef{Kind: ledger.CauseIncome, ID: in.ID},
	})
	if err != nil {
		return err
	}
	in.EntryID = &e.ID
	return nil
}

func (s *service) undoIncome(ctx context.Context, tx storage.Tx, in ledger.Income) error {
	if in.EntryID == nil {
		return nil
	}
	return s.ledger.ReverseTx(ctx, tx, in.UserID, *in.EntryID)
}

func (s *service) CreateIncome(ctx context.Context, userID uuid.UUID, in IncomeInput) (ledger.Income, error) {
	if userID == uuid.Nil {
		return ledger.Income{}, errs.Field("user_id", "required")
	}
	inc, err := s.buildIncome(userID, in)
	if err != nil {
		return ledger.Income{}, err
	}
	now := s.now()
	inc.ID, inc.CreatedAt, inc.UpdatedAt = uuid.New(), now, now
	err = s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := checkLinks(ctx, tx, userID, inc.CategoryID, inc.BankAccountID, inc.ClientID, ledger.CategoryIncome); err != nil {
			return err
		}
		if err := s.applyIncome(ctx, tx, &inc); err != nil {
			return err
		}
		return tx.InsertIncome(ctx, inc)
	})
	if err != nil {
		return ledger.Income{}, err
	}
	s.log.Info("income created", "user_id", userID, "income_id", inc.ID)
	return inc, nil
}

func (s *service) UpdateIncome(ctx context.Context, userID, id uuid.UUID, in IncomeInput) (ledger.Income, error) {
	next, err := s.buildIncome(userID, in)
	if err != nil {
		return ledger.Income{}, err
	}
	err = s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		old, err := tx.Income(ctx, userID, id)
		if err != nil {
			return err
		}
		if err := checkLinks(ctx, tx, userID, next.CategoryID, next.BankAccountID, next.ClientID, ledger.CategoryIncome); err != nil {
			return err
		}
		if err := s.undoIncome(ctx, tx, old); err != nil {
			return err
		}
		next.ID, next.CreatedAt, next.UpdatedAt = old.ID, old.CreatedAt, s.now()
		if err := s.applyIncome(ctx, tx, &next); err != nil {
			return err
		}
		return tx.UpdateIncome(ctx, next)
	})
	if err != nil {
		return ledger.Income{}, err
	}
	return next, nil
}

func (s *service) DeleteIncome(ctx context.Context, userID, id uuid.UUID) error {
	return s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		old, err := tx.Income(ctx, userID, id)
		if err != nil {
			return err
		}
		if err := s.undoIncome(ctx, tx, old); err != nil {
			return err
		}
		return tx.DeleteIncome(ctx, userID, id)
	})
}

func (s *service) GetIncome(ctx context.Context, userID, id uuid.UUID) (ledger.Income, error) {
	return s.store.Income(ctx, userID, id)
}

func (s *service) ListIncomes(ctx context.Context, userID uuid.UUID, f storage.IncomeFilter) ([]ledger.Income, error) {
	return s.store.Incomes(ctx, userID, f)
}

// --- stats ---

type record struct {
	categoryID *uuid.UUID
	amount     money.Amount
}

func (s *service) ExpenseStats(ctx context.Context, userID uuid.UUID, curr string, f storage.ExpenseFilter) (Stats, error) {
	list, err := s.store.Expenses(ctx, userID, f)
	if err != nil {
		return Stats{}, err
	}
	recs := make([]record, 0, len(list))
	byType := map[ledger.ExpenseType]money.Amount{}
	for _, e := range list {
		if e.Amount.Curr().Code() != curr {
			continue
		}
		recs = append(recs, record{categoryID: e.CategoryID, amount: e.Amount})
		cur, ok := byType[e.Type]
		if !ok {
			cur = ledger.Zero(curr)
		}
		if byType[e.Type], err = cur.Add(e.Amount); err != nil {
			return Stats{}, err
		}
	}
	st, err := s.stats(ctx, userID, curr, ledger.CategoryExpense, recs)
	st.ByType = byType
	return st, err
}

func (s *service) IncomeStats(ctx context.Context, userID uuid.UUID, curr string, f storage.IncomeFilter) (Stats, error) {
	list, err := s.store.Incomes(ctx, userID, f)
	if err != nil {
		return Stats{}, err
	}
	recs := make([]record, 0, len(list))
	for _, in := range list {
		if in.Amount.Curr().Code() == curr {
			recs = append(recs, record{categoryID: in.CategoryID, amount: in.Amount})
		}
	}
	return s.stats(ctx, userID, curr, ledger.CategoryIncome, recs)
}

func (s *service) stats(ctx context.Context, userID uuid.UUID, curr string, kind ledger.CategoryKind, recs []record) (Stats, error) {
	cats, err := s.store.Categories(ctx, userID, kind)
	if err != nil {
		return Stats{}, err
	}
	names := make(map[uuid.UUID]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	out := Stats{Total: ledger.Zero(curr), Average: ledger.Zero(curr)}
	rows := map[uuid.UUID]*CategoryTotal{}
	var order []uuid.UUID
	for _, r := range recs {
		if out.Total, err = out.Total.Add(r.amount); err != nil {
			return Stats{}, err
		}
		out.Count++
		key := uuid.Nil
		if r.categoryID != nil {
			key = *r.categoryID
		}
		row, ok := rows[key]
		if !ok {
			row = &CategoryTotal{CategoryID: r.categoryID, Name: "Uncategorized", Total: ledger.Zero(curr)}
			if n, found := names[key]; found {
				row.Name = n
			}
			rows[key] = row
			order = append(order, key)
		}
		row.Count++
		if row.Total, err = row.Total.Add(r.amount); err != nil {
			return Stats{}, err
		}
	}
	if out.Count > 0 {
		avg, err := out.Total.Quo(decimal.MustNew(int64(out.Count), 0))
		if err != nil {
			return Stats{}, err
		}
		out.Average = avg.RoundToCurr()
	}
	for _, k := range order {
		out.ByCategory = append(out.ByCategory, *rows[k])
	}
	sort.SliceStable(out.ByCategory, func(i, j int) bool {
		return ledger.Minor(out.ByCategory[i].Total) > ledger.Minor(out.ByCategory[j].Total)
	})
	return out, nil
}
