package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tinoosan/finledger/internal/errs"
	"github.com/tinoosan/finledger/internal/ledger"
)

// --- locks ---

func (t *pgTx) LockBankAccount(ctx context.Context, userID, id uuid.UUID) (ledger.BankAccount, error) {
	return one(t.q.QueryRow(ctx, `select `+accountCols+` from bank_accounts where id = $1 and user_id = $2 for update`, id, userID),
		scanAccount, "bank account")
}

func (t *pgTx) LockSchema(ctx context.Context, userID uuid.UUID, ref ledger.SchemaRef) (ledger.Schema, error) {
	return t.schema(ctx, userID, ref, " for update")
}

// --- bank accounts ---

func (t *pgTx) InsertBankAccount(ctx context.Context, a ledger.BankAccount) error {
	if err := a.AdditionalInfo.Validate(); err != nil {
		return errs.Field("additional_info", err.Error())
	}
	info, err := a.AdditionalInfo.MarshalStableJSON()
	if err != nil {
		return fmt.Errorf("encode additional_info: %w", err)
	}
	_, err = t.q.Exec(ctx, `
		insert into bank_accounts (`+accountCols+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
	`, a.ID, a.UserID, a.BankName, a.AccountName, a.AccountNumber, a.AccountType, strings.ToUpper(a.Currency),
		a.Branch, a.IFSC, a.SWIFT, ledger.Minor(a.InitialAmount), ledger.Minor(a.CurrentBalance),
		ledger.Minor(a.AvailableBalance), info, a.Active, a.CreatedAt, a.UpdatedAt)
	return mapWriteErr(err, "bank account")
}

// UpdateBankAccount writes descriptive fields and both balances; the opening
// amount and currency never change.
func (t *pgTx) UpdateBankAccount(ctx context.Context, a ledger.BankAccount) error {
	if err := a.AdditionalInfo.Validate(); err != nil {
		return errs.Field("additional_info", err.Error())
	}
	info, err := a.AdditionalInfo.MarshalStableJSON()
	if err != nil {
		return fmt.Errorf("encode additional_info: %w", err)
	}
	tag, err := t.q.Exec(ctx, `
		update bank_accounts
		set bank_name=$1, account_name=$2, account_number=$3, account_type=$4, branch=$5, ifsc_code=$6,
		    swift_code=$7, current_balance_minor=$8, available_balance_minor=$9, additional_info=$10,
		    active=$11, updated_at=$12
		where id=$13 and user_id=$14
	`, a.BankName, a.AccountName, a.AccountNumber, a.AccountType, a.Branch, a.IFSC, a.SWIFT,
		ledger.Minor(a.CurrentBalance), ledger.Minor(a.AvailableBalance), info, a.Active, a.UpdatedAt, a.ID, a.UserID)
	return affected(tag, err, "bank account")
}

// --- ledger entries ---

func (t *pgTx) InsertEntry(ctx context.Context, e ledger.LedgerEntry) error {
	_, err := t.q.Exec(ctx, `
		insert into ledger_entries (`+entryCols+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`, e.ID, e.UserID, e.AccountID, string(e.Direction), ledger.Minor(e.Amount), e.Amount.Curr().Code(),
		ledger.Day(e.Date), e.Description, string(e.Cause.Kind), nullableID(e.Cause.ID), e.IsReversed,
		e.ReversedAt, e.ReplacesID, e.CreatedAt)
	return mapWriteErr(err, "transaction")
}

func (t *pgTx) MarkEntryReversed(ctx context.Context, userID, id uuid.UUID, at time.Time) error {
	tag, err := t.q.Exec(ctx, `
		update ledger_entries set is_reversed = true, reversed_at = $1
		where id = $2 and user_id = $3 and not is_reversed
	`, at, id, userID)
	return affected(tag, err, "transaction")
}

// --- expenses ---

func relatedCols(r *ledger.SchemaRef) (*string, *uuid.UUID) {
	if r == nil {
		return nil, nil
	}
	kind := string(r.Kind)
	return &kind, &r.ID
}

func (t *pgTx) InsertExpense(ctx context.Context, e ledger.Expense) error {
	rt, rid := relatedCols(e.Related)
	_, err := t.q.Exec(ctx, `
		insert into expenses (`+expenseCols+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
	`, e.ID, e.UserID, e.Title, e.Description, ledger.Minor(e.Amount), e.Amount.Curr().Code(), ledger.Day(e.Date),
		e.CategoryID, e.PaymentMethod, tags(e.Tags), string(e.Type), rt, rid, e.BankAccountID, e.EntryID,
		e.CreatedAt, e.UpdatedAt)
	return mapWriteErr(err, "expense")
}

func (t *pgTx) UpdateExpense(ctx context.Context, e ledger.Expense) error {
	rt, rid := relatedCols(e.Related)
	tag, err := t.q.Exec(ctx, `
		update expenses
		set title=$1, description=$2, amount_minor=$3, currency=$4, expense_date=$5, category_id=$6,
		    payment_method=$7, tags=$8, expense_type=$9, related_type=$10, related_id=$11,
		    bank_account_id=$12, entry_id=$13, updated_at=$14
		where id=$15 and user_id=$16
	`, e.Title, e.Description, ledger.Minor(e.Amount), e.Amount.Curr().Code(), ledger.Day(e.Date), e.CategoryID,
		e.PaymentMethod, tags(e.Tags), string(e.Type), rt, rid, e.BankAccountID, e.EntryID, e.UpdatedAt,
		e.ID, e.UserID)
	return affected(tag, err, "expense")
}

func (t *pgTx) DeleteExpense(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := t.q.Exec(ctx, `delete from expenses where id = $1 and user_id = $2`, id, userID)
	return affected(tag, err, "expense")
}

// --- incomes ---

func (t *pgTx) InsertIncome(ctx context.Context, in ledger.Income) error {
	_, err := t.q.Exec(ctx, `
		insert into incomes (`+incomeCols+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
	`, in.ID, in.UserID, in.Title, in.Description, ledger.Minor(in.Amount), in.Amount.Curr().Code(),
		ledger.Day(in.Date), in.CategoryID, in.Source, in.IsRecurring, in.RecurringFrequency, tags(in.Tags),
		in.ClientID, in.BankAccountID, in.EntryID, in.CreatedAt, in.UpdatedAt)
	return mapWriteErr(err, "income")
}

func (t *pgTx) UpdateIncome(ctx context.Context, in ledger.Income) error {
	tag, err := t.q.Exec(ctx, `
		update incomes
		set title=$1, description=$2, amount_minor=$3, currency=$4, income_date=$5, category_id=$6,
		    source=$7, is_recurring=$8, recurring_frequency=$9, tags=$10, client_id=$11,
		    bank_account_id=$12, entry_id=$13, updated_at=$14
		where id=$15 and user_id=$16
	`, in.Title, in.Description, ledger.Minor(in.Amount), in.Amount.Curr().Code(), ledger.Day(in.Date),
		in.CategoryID, in.Source, in.IsRecurring, in.RecurringFrequency, tags(in.Tags), in.ClientID,
		in.BankAccountID, in.EntryID, in.UpdatedAt, in.ID, in.UserID)
	return affected(tag, err, "income")
}

func (t *pgTx) DeleteIncome(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := t.q.Exec(ctx, `delete from incomes where id = $1 and user_id = $2`, id, userID)
	return affected(tag, err, "income")
}

// --- investment schemas ---

func (t *pgTx) InsertSchema(ctx context.Context, s ledger.Schema) error {
	var err error
	switch v := s.(type) {
	case ledger.RecurringDeposit:
		_, err = t.q.Exec(ctx, `
			insert into recurring_deposits (`+strings.Replace(dpsCols, "::text", "", 1)+`)
			values ($1,$2,$3,$4,$5,$6,$7,$8::numeric,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
		`, v.ID, v.UserID, v.BankAccountID, v.Name, v.AccountNumber, v.MonthlyInstallment.Curr().Code(),
			ledger.Minor(v.MonthlyInstallment), v.InterestRate.String(), v.TenureMonths, ledger.Day(v.StartDate),
			ledger.Day(v.MaturityDate), ledger.Minor(v.MaturityAmount), ledger.Minor(v.TotalDeposited),
			v.PaidInstallments, v.RemainingInstallments, v.LastPaymentDate, v.NextPaymentDate, v.Status,
			v.Notes, v.CreatedAt, v.UpdatedAt)
	case ledger.FixedDeposit:
		_, err = t.q.Exec(ctx, `
			insert into fixed_deposits (`+strings.Replace(fdrCols, "::text", "", 1)+`)
			values ($1,$2,$3,$4,$5,$6,$7,$8::numeric,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		`, v.ID, v.UserID, v.BankAccountID, v.Name, v.AccountNumber, v.PrincipalAmount.Curr().Code(),
			ledger.Minor(v.PrincipalAmount), v.InterestRate.String(), v.TenureMonths, ledger.Day(v.StartDate),
			ledger.Day(v.MaturityDate), ledger.Minor(v.MaturityAmount), v.InterestPayout, v.AutoRenewal,
			v.Status, v.Notes, v.CreatedAt, v.UpdatedAt)
	case ledger.Loan:
		_, err = t.q.Exec(ctx, `
			insert into loans (`+strings.Replace(loanCols, "::text", "", 1)+`)
			values ($1,$2,$3,$4,$5,$6,$7,$8::numeric,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)
		`, v.ID, v.UserID, v.BankAccountID, v.Lender, v.LoanType, v.PrincipalAmount.Curr().Code(),
			ledger.Minor(v.PrincipalAmount), v.InterestRate.String(), v.TenureMonths, ledger.Minor(v.MonthlyEMI),
			ledger.Minor(v.TotalAmountPayable), ledger.Minor(v.AmountPaid), ledger.Minor(v.OutstandingBalance),
			ledger.Minor(v.PenaltyAmount), v.PaidEMIs, v.RemainingEMIs, ledger.Day(v.StartDate),
			ledger.Day(v.EndDate), v.LastPaymentDate, v.NextPaymentDate, v.Status, v.Notes, v.CreatedAt, v.UpdatedAt)
	default:
		return fmt.Errorf("unknown schema type %T", s)
	}
	return mapWriteErr(err, string(s.Ref().Kind))
}

// UpdateSchema writes every mutable column of a schema.
func (t *pgTx) UpdateSchema(ctx context.Context, s ledger.Schema) error {
	var (
		ct  pgconn.CommandTag
		err error
	)
	switch v := s.(type) {
	case ledger.RecurringDeposit:
		ct, err = t.q.Exec(ctx, `
			update recurring_deposits
			set bank_account_id=$1, name=$2, account_number=$3, maturity_amount_minor=$4,
			    total_deposited_minor=$5, paid_installments=$6, remaining_installments=$7,
			    last_payment_date=$8, next_payment_date=$9, status=$10, notes=$11, updated_at=$12
			where id=$13 and user_id=$14
		`, v.BankAccountID, v.Name, v.AccountNumber, ledger.Minor(v.MaturityAmount), ledger.Minor(v.TotalDeposited),
			v.PaidInstallments, v.RemainingInstallments, v.LastPaymentDate, v.NextPaymentDate, v.Status, v.Notes,
			v.UpdatedAt, v.ID, v.UserID)
	case ledger.FixedDeposit:
		ct, err = t.q.Exec(ctx, `
			update fixed_deposits
			set bank_account_id=$1, name=$2, account_number=$3, principal_amount_minor=$4,
			    maturity_amount_minor=$5, auto_renewal=$6, status=$7, notes=$8, updated_at=$9
			where id=$10 and user_id=$11
		`, v.BankAccountID, v.Name, v.AccountNumber, ledger.Minor(v.PrincipalAmount), ledger.Minor(v.MaturityAmount),
			v.AutoRenewal, v.Status, v.Notes, v.UpdatedAt, v.ID, v.UserID)
	case ledger.Loan:
		ct, err = t.q.Exec(ctx, `
			update loans
			set bank_account_id=$1, lender=$2, amount_paid_minor=$3, outstanding_balance_minor=$4,
			    penalty_amount_minor=$5, paid_emis=$6, remaining_emis=$7, last_payment_date=$8,
			    next_payment_date=$9, status=$10, notes=$11, updated_at=$12
			where id=$13 and user_id=$14
		`, v.BankAccountID, v.Lender, ledger.Minor(v.AmountPaid), ledger.Minor(v.OutstandingBalance),
			ledger.Minor(v.PenaltyAmount), v.PaidEMIs, v.RemainingEMIs, v.LastPaymentDate, v.NextPaymentDate,
			v.Status, v.Notes, v.UpdatedAt, v.ID, v.UserID)
	default:
		return fmt.Errorf("unknown schema type %T", s)
	}
	return affected(ct, err, string(s.Ref().Kind))
}

func (t *pgTx) DeleteSchema(ctx context.Context, userID uuid.UUID, ref ledger.SchemaRef) error {
	_, table, _ := schemaQuery(ref.Kind)
	ct, err := t.q.Exec(ctx, `delete from `+table+` where id = $1 and user_id = $2`, ref.ID, userID)
	return affected(ct, err, string(ref.Kind))
}

// --- budgets ---

func (t *pgTx) InsertBudget(ctx context.Context, b ledger.Budget) error {
	_, err := t.q.Exec(ctx, `
		insert into budgets (`+strings.Replace(budgetCols, "::text", "", 1)+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12::numeric,$13,$14,$15)
	`, b.ID, b.UserID, b.Name, b.Description, b.CategoryID, b.Amount.Curr().Code(), ledger.Minor(b.Amount),
		ledger.Minor(b.SpentAmount), ledger.Day(b.StartDate), ledger.Day(b.EndDate), string(b.PeriodType),
		b.AlertPercentage.String(), string(b.Status), b.CreatedAt, b.UpdatedAt)
	return mapWriteErr(err, "budget")
}

func (t *pgTx) UpdateBudget(ctx context.Context, b ledger.Budget) error {
	ct, err := t.q.Exec(ctx, `
		update budgets
		set budget_name=$1, description=$2, category_id=$3, budget_amount_minor=$4, spent_amount_minor=$5,
		    start_date=$6, end_date=$7, period_type=$8, alert_percentage=$9::numeric, status=$10, updated_at=$11
		where id=$12 and user_id=$13
	`, b.Name, b.Description, b.CategoryID, ledger.Minor(b.Amount), ledger.Minor(b.SpentAmount),
		ledger.Day(b.StartDate), ledger.Day(b.EndDate), string(b.PeriodType), b.AlertPercentage.String(),
		string(b.Status), b.UpdatedAt, b.ID, b.UserID)
	return affected(ct, err, "budget")
}

func (t *pgTx) DeleteBudget(ctx context.Context, userID, id uuid.UUID) error {
	ct, err := t.q.Exec(ctx, `delete from budgets where id = $1 and user_id = $2`, id, userID)
	return affected(ct, err, "budget")
}

func (t *pgTx) ExpireBudgets(ctx context.Context, asOf time.Time) (int, error) {
	ct, err := t.q.Exec(ctx, `
		update budgets set status = $1, updated_at = $2
		where status = $3 and end_date < $4
	`, string(ledger.BudgetCompleted), asOf, string(ledger.BudgetActive), ledger.Day(asOf))
	if err != nil {
		return 0, mapWriteErr(err, "budget")
	}
	return int(ct.RowsAffected()), nil
}

// --- categories ---

func (t *pgTx) InsertCategory(ctx context.Context, c ledger.Category) error {
	_, err := t.q.Exec(ctx, `
		insert into categories (`+categoryCols+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, c.ID, c.UserID, c.Name, c.Slug, string(c.Kind), c.Color, c.Description, c.ParentID, c.Active,
		c.SortOrder, c.CreatedAt, c.UpdatedAt)
	return mapWriteErr(err, "category "+c.Slug)
}

func (t *pgTx) UpdateCategory(ctx context.Context, c ledger.Category) error {
	tag, err := t.q.Exec(ctx, `
		update categories
		set name=$1, slug=$2, kind=$3, color=$4, description=$5, parent_id=$6, is_active=$7,
		    sort_order=$8, updated_at=$9
		where id=$10 and user_id=$11
	`, c.Name, c.Slug, string(c.Kind), c.Color, c.Description, c.ParentID, c.Active, c.SortOrder,
		c.UpdatedAt, c.ID, c.UserID)
	return affected(tag, err, "category")
}

func (t *pgTx) DeleteCategory(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := t.q.Exec(ctx, `delete from categories where id = $1 and user_id = $2`, id, userID)
	return affected(tag, err, "category")
}

// --- clients ---

func (t *pgTx) InsertClient(ctx context.Context, c ledger.Client) error {
	_, err := t.q.Exec(ctx, `
		insert into clients (`+clientCols+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, c.ID, c.UserID, c.Name, c.Email, c.Phone, c.Address, c.Company, c.Notes, string(c.Status),
		c.CreatedAt, c.UpdatedAt)
	return mapWriteErr(err, "client")
}

func (t *pgTx) UpdateClient(ctx context.Context, c ledger.Client) error {
	tag, err := t.q.Exec(ctx, `
		update clients
		set name=$1, email=$2, phone=$3, address=$4, company=$5, notes=$6, status=$7, updated_at=$8
		where id=$9 and user_id=$10
	`, c.Name, c.Email, c.Phone, c.Address, c.Company, c.Notes, string(c.Status), c.UpdatedAt, c.ID, c.UserID)
	return affected(tag, err, "client")
}

func (t *pgTx) DeleteClient(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := t.q.Exec(ctx, `delete from clients where id = $1 and user_id = $2`, id, userID)
	return affected(tag, err, "client")
}
