package postgres

import (
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/jackc/pgx/v5"

	"github.com/tinoosan/finledger/internal/errs"
	"github.com/tinoosan/finledger/internal/ledger"
	"github.com/tinoosan/finledger/internal/meta"
)

const (
	accountCols = `id, user_id, bank_name, account_name, account_number, account_type, currency, branch,
		ifsc_code, swift_code, initial_amount_minor, current_balance_minor, available_balance_minor,
		additional_info, active, created_at, updated_at`
	entryCols = `id, user_id, account_id, direction, amount_minor, currency, entry_date, description,
		cause_kind, cause_id, is_reversed, reversed_at, replaces_id, created_at`
	expenseCols = `id, user_id, title, description, amount_minor, currency, expense_date, category_id,
		payment_method, tags, expense_type, related_type, related_id, bank_account_id, entry_id,
		created_at, updated_at`
	incomeCols = `id, user_id, title, description, amount_minor, currency, income_date, category_id,
		source, is_recurring, recurring_frequency, tags, client_id, bank_account_id, entry_id,
		created_at, updated_at`
	budgetCols = `id, user_id, budget_name, description, category_id, currency, budget_amount_minor,
		spent_amount_minor, start_date, end_date, period_type, alert_percentage::text, status,
		created_at, updated_at`
	categoryCols = `id, user_id, name, slug, kind, color, description, parent_id, is_active, sort_order,
		created_at, updated_at`
	clientCols = `id, user_id, name, email, phone, address, company, notes, status, created_at, updated_at`
	dpsCols    = `id, user_id, bank_account_id, name, account_number, currency, monthly_installment_minor,
		interest_rate::text, tenure_months, start_date, maturity_date, maturity_amount_minor,
		total_deposited_minor, paid_installments, remaining_installments, last_payment_date,
		next_payment_date, status, notes, created_at, updated_at`
	fdrCols = `id, user_id, bank_account_id, name, account_number, currency, principal_amount_minor,
		interest_rate::text, tenure_months, start_date, maturity_date, maturity_amount_minor,
		interest_payout, auto_renewal, status, notes, created_at, updated_at`
	loanCols = `id, user_id, bank_account_id, lender, loan_type, currency, principal_amount_minor,
		interest_rate::text, tenure_months, monthly_emi_minor, total_amount_payable_minor,
		amount_paid_minor, outstanding_balance_minor, penalty_amount_minor, paid_emis, remaining_emis,
		start_date, end_date, last_payment_date, next_payment_date, status, notes, created_at, updated_at`
)

// where accumulates AND-ed conditions; each ? in a condition becomes the
// placeholder of the argument added with it.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(w.args))))
}

func (w *where) String() string { return " where " + strings.Join(w.conds, " and ") }

func one[T any](row pgx.Row, scan func(pgx.Row) (T, error), what string) (T, error) {
	v, err := scan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		var zero T
		return zero, errs.NotFound(what)
	}
	return v, err
}

func collect[T any](rows pgx.Rows, err error, scan func(pgx.Row) (T, error)) ([]T, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func parseRate(s string) (decimal.Decimal, error) {
	d, err := decimal.Parse(s)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return d.Trim(0), nil
}

func tags(t []string) []string {
	if t == nil {
		return []string{}
	}
	return t
}

func nullableID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func scanAccount(row pgx.Row) (ledger.BankAccount, error) {
	var a ledger.BankAccount
	var initial, current, available int64
	var info []byte
	if err := row.Scan(&a.ID, &a.UserID, &a.BankName, &a.AccountName, &a.AccountNumber, &a.AccountType,
		&a.Currency, &a.Branch, &a.IFSC, &a.SWIFT, &initial, &current, &available, &info, &a.Active,
		&a.CreatedAt, &a.UpdatedAt); err != nil {
		return a, err
	}
	a.InitialAmount = ledger.FromMinor(a.Currency, initial)
	a.CurrentBalance = ledger.FromMinor(a.Currency, current)
	a.AvailableBalance = ledger.FromMinor(a.Currency, available)
	if len(info) > 0 {
		var m meta.Metadata
		if err := m.UnmarshalJSON(info); err != nil {
			return a, err
		}
		a.AdditionalInfo = m
	}
	return a, nil
}

func scanEntry(row pgx.Row) (ledger.LedgerEntry, error) {
	var e ledger.LedgerEntry
	var amount int64
	var curr, dir, cause string
	var causeID *uuid.UUID
	if err := row.Scan(&e.ID, &e.UserID, &e.AccountID, &dir, &amount, &curr, &e.Date, &e.Description,
		&cause, &causeID, &e.IsReversed, &e.ReversedAt, &e.ReplacesID, &e.CreatedAt); err != nil {
		return e, err
	}
	e.Direction = ledger.Direction(dir)
	e.Amount = ledger.FromMinor(curr, amount)
	e.Cause = ledger.CauseRef{Kind: ledger.CauseKind(cause)}
	if causeID != nil {
		e.Cause.ID = *causeID
	}
	return e, nil
}

func scanExpense(row pgx.Row) (ledger.Expense, error) {
	var e ledger.Expense
	var amount int64
	var curr, typ string
	var relatedType *string
	var relatedID *uuid.UUID
	if err := row.Scan(&e.ID, &e.UserID, &e.Title, &e.Description, &amount, &curr, &e.Date, &e.CategoryID,
		&e.PaymentMethod, &e.Tags, &typ, &relatedType, &relatedID, &e.BankAccountID, &e.EntryID,
		&e.CreatedAt, &e.UpdatedAt); err != nil {
		return e, err
	}
	e.Amount = ledger.FromMinor(curr, amount)
	e.Type = ledger.ExpenseType(typ)
	if relatedType != nil && relatedID != nil {
		e.Related = &ledger.SchemaRef{Kind: ledger.SchemaKind(*relatedType), ID: *relatedID}
	}
	return e, nil
}

func scanIncome(row pgx.Row) (ledger.Income, error) {
	var in ledger.Income
	var amount int64
	var curr string
	if err := row.Scan(&in.ID, &in.UserID, &in.Title, &in.Description, &amount, &curr, &in.Date, &in.CategoryID,
		&in.Source, &in.IsRecurring, &in.RecurringFrequency, &in.Tags, &in.ClientID, &in.BankAccountID,
		&in.EntryID, &in.CreatedAt, &in.UpdatedAt); err != nil {
		return in, err
	}
	in.Amount = ledger.FromMinor(curr, amount)
	return in, nil
}

func scanBudget(row pgx.Row) (ledger.Budget, error) {
	var b ledger.Budget
	var amount, spent int64
	var curr, period, alert, status string
	if err := row.Scan(&b.ID, &b.UserID, &b.Name, &b.Description, &b.CategoryID, &curr, &amount, &spent,
		&b.StartDate, &b.EndDate, &period, &alert, &status, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return b, err
	}
	b.Amount = ledger.FromMinor(curr, amount)
	b.SpentAmount = ledger.FromMinor(curr, spent)
	b.PeriodType = ledger.PeriodType(period)
	b.Status = ledger.BudgetStatus(status)
	var err error
	b.AlertPercentage, err = parseRate(alert)
	return b, err
}

func scanCategory(row pgx.Row) (ledger.Category, error) {
	var c ledger.Category
	var kind string
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Slug, &kind, &c.Color, &c.Description, &c.ParentID,
		&c.Active, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt)
	c.Kind = ledger.CategoryKind(kind)
	return c, err
}

func scanClient(row pgx.Row) (ledger.Client, error) {
	var c ledger.Client
	var status string
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.Company, &c.Notes,
		&status, &c.CreatedAt, &c.UpdatedAt)
	c.Status = ledger.ClientStatus(status)
	return c, err
}

func scanDPS(row pgx.Row) (ledger.Schema, error) {
	var d ledger.RecurringDeposit
	var curr, rate string
	var installment, maturity, deposited int64
	if err := row.Scan(&d.ID, &d.UserID, &d.BankAccountID, &d.Name, &d.AccountNumber, &curr, &installment,
		&rate, &d.TenureMonths, &d.StartDate, &d.MaturityDate, &maturity, &deposited, &d.PaidInstallments,
		&d.RemainingInstallments, &d.LastPaymentDate, &d.NextPaymentDate, &d.Status, &d.Notes,
		&d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.MonthlyInstallment = ledger.FromMinor(curr, installment)
	d.MaturityAmount = ledger.FromMinor(curr, maturity)
	d.TotalDeposited = ledger.FromMinor(curr, deposited)
	var err error
	d.InterestRate, err = parseRate(rate)
	return d, err
}

func scanFDR(row pgx.Row) (ledger.Schema, error) {
	var d ledger.FixedDeposit
	var curr, rate string
	var principal, maturity int64
	if err := row.Scan(&d.ID, &d.UserID, &d.BankAccountID, &d.Name, &d.AccountNumber, &curr, &principal,
		&rate, &d.TenureMonths, &d.StartDate, &d.MaturityDate, &maturity, &d.InterestPayout, &d.AutoRenewal,
		&d.Status, &d.Notes, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.PrincipalAmount = ledger.FromMinor(curr, principal)
	d.MaturityAmount = ledger.FromMinor(curr, maturity)
	var err error
	d.InterestRate, err = parseRate(rate)
	return d, err
}

func scanLoan(row pgx.Row) (ledger.Schema, error) {
	var l ledger.Loan
	var curr, rate string
	var principal, emi, payable, paid, outstanding, penalty int64
	if err := row.Scan(&l.ID, &l.UserID, &l.BankAccountID, &l.Lender, &l.LoanType, &curr, &principal, &rate,
		&l.TenureMonths, &emi, &payable, &paid, &outstanding, &penalty, &l.PaidEMIs, &l.RemainingEMIs,
		&l.StartDate, &l.EndDate, &l.LastPaymentDate, &l.NextPaymentDate, &l.Status, &l.Notes,
		&l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	l.PrincipalAmount = ledger.FromMinor(curr, principal)
	l.MonthlyEMI = ledger.FromMinor(curr, emi)
	l.TotalAmountPayable = ledger.FromMinor(curr, payable)
	l.AmountPaid = ledger.FromMinor(curr, paid)
	l.OutstandingBalance = ledger.FromMinor(curr, outstanding)
	l.PenaltyAmount = ledger.FromMinor(curr, penalty)
	var err error
	l.InterestRate, err = parseRate(rate)
	return l, err
}

// schemaQuery returns the select list, table and scanner for a schema kind.
func schemaQuery(k ledger.SchemaKind) (cols, table string, scan func(pgx.Row) (ledger.Schema, error)) {
	switch k {
	case ledger.SchemaDPS:
		return dpsCols, "recurring_deposits", scanDPS
	case ledger.SchemaFDR:
		return fdrCols, "fixed_deposits", scanFDR
	default:
		return loanCols, "loans", scanLoan
	}
}
