// Package investment manages recurring deposits, fixed deposits and loans,
// and applies expense payments to their progress counters.
package investment

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"

	"github.com/tinoosan/finledger/internal/errs"
	"github.com/tinoosan/finledger/internal/ledger"
	"github.com/tinoosan/finledger/internal/metrics"
	"github.com/tinoosan/finledger/internal/storage"
)

const maxTenureMonths = 600

type Store interface {
	Schema(ctx context.Context, userID uuid.UUID, ref ledger.SchemaRef) (ledger.Schema, error)
	Schemas(ctx context.Context, userID uuid.UUID, kind ledger.SchemaKind) ([]ledger.Schema, error)
	InTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error
}

// DepositInput creates a recurring deposit.
type DepositInput struct {
	Name               string
	AccountNumber      string
	BankAccountID      *uuid.UUID
	MonthlyInstallment money.Amount
	InterestRate       decimal.Decimal
	TenureMonths       int
	StartDate          time.Time
	MaturityDate       *time.Time
	Notes              string
}

// FixedDepositInput creates a fixed deposit.
type FixedDepositInput struct {
	Name            string
	AccountNumber   string
	BankAccountID   *uuid.UUID
	PrincipalAmount money.Amount
	InterestRate    decimal.Decimal
	TenureMonths    int
	StartDate       time.Time
	MaturityDate    *time.Time
	InterestPayout  string
	AutoRenewal     bool
	Notes           string
}

// LoanInput creates a loan.
type LoanInput struct {
	Lender          string
	LoanType        string
	BankAccountID   *uuid.UUID
	PrincipalAmount money.Amount
	InterestRate    decimal.Decimal
	TenureMonths    int
	MonthlyEMI      money.Amount
	StartDate       time.Time
	Notes           string
}

// DetailsInput edits the descriptive fields of any schema. Progress counters
// and amounts only change through payments.
type DetailsInput struct {
	Name             *string
	Notes            *string
	Status           *string
	AutoRenewal      *bool
	BankAccountID    *uuid.UUID
	ClearBankAccount bool
}

// KindStats aggregates one schema kind. Invested is total deposited for DPS,
// principal for FDR and outstanding balance for loans; Maturity is the maturity
// amount for deposits and the total payable for loans.
type KindStats struct {
	Count    int
	Active   int
	Invested money.Amount
	Maturity money.Amount
}

type Stats struct {
	Count    int
	ByKind   map[ledger.SchemaKind]KindStats
	ByStatus map[string]int
}

type Service interface {
	CreateRecurringDeposit(ctx context.Context, userID uuid.UUID, in DepositInput) (ledger.RecurringDeposit, error)
	CreateFixedDeposit(ctx context.Context, userID uuid.UUID, in FixedDepositInput) (ledger.FixedDeposit, error)
	CreateLoan(ctx context.Context, userID uuid.UUID, in LoanInput) (ledger.Loan, error)
	Get(ctx context.Context, userID uuid.UUID, ref ledger.SchemaRef) (ledger.Schema, error)
	List(ctx context.Context, userID uuid.UUID, kind ledger.SchemaKind) ([]ledger.Schema, error)
	UpdateDetails(ctx context.Context, userID uuid.UUID, ref ledger.SchemaRef, in DetailsInput) (ledger.Schema, error)
	// Delete removes a schema that no expense pays toward.
	Delete(ctx context.Context, userID uuid.UUID, ref ledger.SchemaRef) error
	// Stats covers the schemas denominated in curr.
	Stats(ctx context.Context, userID uuid.UUID, curr string) (Stats, error)

	// ApplyPaymentTx applies a non-regular expense to the schema it references.
	ApplyPaymentTx(ctx context.Context, tx storage.Tx, userID uuid.UUID, exp ledger.Expense) (ledger.Schema, error)
	// ReversePaymentTx undoes ApplyPaymentTx for the same expense.
	ReversePaymentTx(ctx context.Context, tx storage.Tx, userID uuid.UUID, exp ledger.Expense) (ledger.Schema, error)
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

func validateTerms(rate decimal.Decimal, tenure int, start time.Time) error {
	if rate.IsNeg() {
		return errs.Field("interest_rate", "must be >= 0")
	}
	if rate.Cmp(decimal.MustNew(100, 0)) > 0 {
		return errs.Field("interest_rate", "must be <= 100")
	}
	if tenure < 1 || tenure > maxTenureMonths {
		return errs.Field("tenure_months", "must be between 1 and 600")
	}
	if start.IsZero() {
		return errs.Field("start_date", "required")
	}
	return nil
}

func maturityDate(start time.Time, tenure int, given *time.Time) (time.Time, error) {
	if given == nil {
		return ledger.AddMonths(start, tenure), nil
	}
	d := ledger.Day(*given)
	if !d.After(ledger.Day(start)) {
		return time.Time{}, errs.Field("maturity_date", "must be after start_date")
	}
	return d, nil
}

// checkBankAccount verifies an optional bank account link belongs to userID.
func checkBankAccount(ctx context.Context, tx storage.Tx, userID uuid.UUID, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	owner, err := tx.OwnerOf(ctx, storage.TableBankAccounts, *id)
	if err != nil {
		return err
	}
	if owner != userID {
		return errs.Consistency("bank account %s belongs to another user", *id)
	}
	return nil
}

func (s *service) CreateRecurringDeposit(ctx context.Context, userID uuid.UUID, in DepositInput) (ledger.RecurringDeposit, error) {
	if strings.TrimSpace(in.Name) == "" {
		return ledger.RecurringDeposit{}, errs.Field("name", "required")
	}
	if !in.MonthlyInstallment.IsPos() {
		return ledger.RecurringDeposit{}, errs.Field("monthly_installment", "must be > 0")
	}
	if err := validateTerms(in.InterestRate, in.TenureMonths, in.StartDate); err != nil {
		return ledger.RecurringDeposit{}, err
	}
	matDate, err := maturityDate(in.StartDate, in.TenureMonths, in.MaturityDate)
	if err != nil {
		return ledger.RecurringDeposit{}, err
	}
	installment := in.MonthlyInstallment.RoundToCurr()
	deposits, err := installment.Mul(decimal.MustNew(int64(in.TenureMonths), 0))
	if err != nil {
		return ledger.RecurringDeposit{}, err
	}
	matAmount, err := ledger.ApplyInterest(deposits, in.InterestRate, in.TenureMonths)
	if err != nil {
		return ledger.RecurringDeposit{}, err
	}
	now := s.now()
	start := ledger.Day(in.StartDate)
	next := ledger.AddMonths(start, 1)
	d := ledger.RecurringDeposit{
		ID:                    uuid.New(),
		UserID:                userID,
		BankAccountID:         in.BankAccountID,
		Name:                  strings.TrimSpace(in.Name),
		AccountNumber:         in.AccountNumber,
		MonthlyInstallment:    installment,
		InterestRate:          in.InterestRate,
		TenureMonths:          in.TenureMonths,
		StartDate:             start,
		MaturityDate:          matDate,
		MaturityAmount:        matAmount,
		TotalDeposited:        ledger.Zero(installment.Curr().Code()),
		RemainingInstallments: in.TenureMonths,
		NextPaymentDate:       &next,
		Status:                ledger.StatusActive,
		Notes:                 in.Notes,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := s.insert(ctx, userID, d, in.BankAccountID); err != nil {
		return ledger.RecurringDeposit{}, err
	}
	return d, nil
}

func (s *service) CreateFixedDeposit(ctx context.Context, userID uuid.UUID, in FixedDepositInput) (ledger.FixedDeposit, error) {
	if strings.TrimSpace(in.Name) == "" {
		return ledger.FixedDeposit{}, errs.Field("name", "required")
	}
	if !in.PrincipalAmount.IsPos() {
		return ledger.FixedDeposit{}, errs.Field("principal_amount", "must be > 0")
	}
	if err := validateTerms(in.InterestRate, in.TenureMonths, in.StartDate); err != nil {
		return ledger.FixedDeposit{}, err
	}
	if in.InterestPayout == "" {
		in.InterestPayout = "on_maturity"
	}
	if !slices.Contains(ledger.InterestPayouts, in.InterestPayout) {
		return ledger.FixedDeposit{}, errs.Field("interest_payout", "must be one of "+strings.Join(ledger.InterestPayouts, ", "))
	}
	matDate, err := maturityDate(in.StartDate, in.TenureMonths, in.MaturityDate)
	if err != nil {
		return ledger.FixedDeposit{}, err
	}
	principal := in.PrincipalAmount.RoundToCurr()
	matAmount, err := ledger.ApplyInterest(principal, in.InterestRate, in.TenureMonths)
	if err != nil {
		return ledger.FixedDeposit{}, err
	}
	now := s.now()
	d := ledger.FixedDeposit{
		ID:              uuid.New(),
		UserID:          userID,
		BankAccountID:   in.BankAccountID,
		Name:            strings.TrimSpace(in.Name),
		AccountNumber:   in.AccountNumber,
		PrincipalAmount: principal,
		InterestRate:    in.InterestRate,
		TenureMonths:    in.TenureMonths,
		StartDate:       ledger.Day(in.StartDate),
		MaturityDate:    matDate,
		MaturityAmount:  matAmount,
		InterestPayout:  in.InterestPayout,
		AutoRenewal:     in.AutoRenewal,
		Status:          ledger.StatusActive,
		Notes:           in.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.insert(ctx, userID, d, in.BankAccountID); err != nil {
		return ledger.FixedDeposit{}, err
	}
	return d, nil
}

func (s *service) CreateLoan(ctx context.Context, userID uuid.UUID, in LoanInput) (ledger.Loan, error) {
	if strings.TrimSpace(in.Lender) == "" {
		return ledger.Loan{}, errs.Field("lender", "required")
	}
	if !slices.Contains(ledger.LoanTypes, in.LoanType) {
		return ledger.Loan{}, errs.Field("loan_type", "must be one of "+strings.Join(ledger.LoanTypes, ", "))
	}
	if !in.PrincipalAmount.IsPos() {
		return ledger.Loan{}, errs.Field("principal_amount", "must be > 0")
	}
	if !in.MonthlyEMI.IsPos() {
		return ledger.Loan{}, errs.Field("monthly_emi", "must be > 0")
	}
	if in.MonthlyEMI.Curr().Code() != in.PrincipalAmount.Curr().Code() {
		return ledger.Loan{}, errs.Field("monthly_emi", "currency must match principal_amount")
	}
	if err := validateTerms(in.InterestRate, in.TenureMonths, in.StartDate); err != nil {
		return ledger.Loan{}, err
	}
	principal := in.PrincipalAmount.RoundToCurr()
	emi := in.MonthlyEMI.RoundToCurr()
	payable, err := emi.Mul(decimal.MustNew(int64(in.TenureMonths), 0))
	if err != nil {
		return ledger.Loan{}, err
	}
	curr := principal.Curr().Code()
	now := s.now()
	start := ledger.Day(in.StartDate)
	next := ledger.AddMonths(start, 1)
	l := ledger.Loan{
		ID:                 uuid.New(),
		UserID:             userID,
		BankAccountID:      in.BankAccountID,
		Lender:             strings.TrimSpace(in.Lender),
		LoanType:           in.LoanType,
		PrincipalAmount:    principal,
		InterestRate:       in.InterestRate,
		TenureMonths:       in.TenureMonths,
		MonthlyEMI:         emi,
		TotalAmountPayable: payable.RoundToCurr(),
		AmountPaid:         ledger.Zero(curr),
		OutstandingBalance: principal,
		PenaltyAmount:      ledger.Zero(curr),
		RemainingEMIs:      in.TenureMonths,
		StartDate:          start,
		EndDate:            ledger.AddMonths(start, in.TenureMonths),
		NextPaymentDate:    &next,
		Status:             ledger.StatusActive,
		Notes:              in.Notes,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.insert(ctx, userID, l, in.BankAccountID); err != nil {
		return ledger.Loan{}, err
	}
	return l, nil
}

func (s *service) insert(ctx context.Context, userID uuid.UUID, sch ledger.Schema, bankAccountID *uuid.UUID) error {
	if userID == uuid.Nil {
		return errs.Field("user_id", "required")
	}
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := checkBankAccount(ctx, tx, userID, bankAccountID); err != nil {
			return err
		}
		return tx.InsertSchema(ctx, sch)
	})
	if err == nil {
		s.log.Info("investment created", "user_id", userID, "schema_kind", sch.Ref().Kind, "schema_id", sch.Ref().ID)
	}
	return err
}

func (s *service) Get(ctx context.Context, userID uuid.UUID, ref ledger.SchemaRef) (ledger.Schema, error) {
	if !ref.Kind.Valid() {
		return nil, errs.Field("kind", "must be dps, fdr or loan")
	}
	return s.store.Schema(ctx, userID, ref)
}

func (s *service) List(ctx context.Context, userID uuid.UUID, kind ledger.SchemaKind) ([]ledger.Schema, error) {
	if kind != "" && !kind.Valid() {
		return nil, errs.Field("kind", "must be dps, fdr or loan")
	}
	return s.store.Schemas(ctx, userID, kind)
}

func (s *service) UpdateDetails(ctx context.Context, userID uuid.UUID, ref ledger.SchemaRef, in DetailsInput) (ledger.Schema, error) {
	if in.Status != nil && !slices.Contains(ledger.SchemaStatuses[ref.Kind], *in.Status) {
		return nil, errs.Field("status", "must be one of "+strings.Join(ledger.SchemaStatuses[ref.Kind], ", "))
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, errs.Field("name", "must not be empty")
	}
	var out ledger.Schema
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		sch, err := tx.LockSchema(ctx, userID, ref)
		if err != nil {
			return err
		}
		if err := checkBankAccount(ctx, tx, userID, in.BankAccountID); err != nil {
			return err
		}
		link := func(cur *uuid.UUID) *uuid.UUID {
			if in.ClearBankAccount {
				return nil
			}
			if in.BankAccountID != nil {
				return in.BankAccountID
			}
			return cur
		}
		now := s.now()
		switch v := sch.(type) {
		case ledger.RecurringDeposit:
			setDetails(&v.Name, &v.Notes, &v.Status, in)
			v.BankAccountID, v.UpdatedAt = link(v.BankAccountID), now
			out = v
		case ledger.FixedDeposit:
			setDetails(&v.Name, &v.Notes, &v.Status, in)
			if in.AutoRenewal != nil {
				v.AutoRenewal = *in.AutoRenewal
			}
			v.BankAccountID, v.UpdatedAt = link(v.BankAccountID), now
			out = v
		case ledger.Loan:
			setDetails(&v.Lender, &v.Notes, &v.Status, in)
			v.BankAccountID, v.UpdatedAt = link(v.BankAccountID), now
			out = v
		}
		return tx.UpdateSchema(ctx, out)
	})
	return out, err
}

func setDetails(name, notes, status *string, in DetailsInput) {
	if in.Name != nil {
		*name = strings.TrimSpace(*in.Name)
	}
	if in.Notes != nil {
		*notes = *in.Notes
	}
	if in.Status != nil {
		*status = *in.Status
	}
}

func (s *service) Delete(ctx context.Context, userID uuid.UUID, ref ledger.SchemaRef) error {
	return s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := tx.LockSchema(ctx, userID, ref); err != nil {
			return err
		}
		payments, err := tx.Expenses(ctx, userID, storage.ExpenseFilter{Related: &ref})
		if err != nil {
			return err
		}
		if len(payments) > 0 {
			return errs.Conflict("%s has %d linked payments", ref.Kind, len(payments))
		}
		return tx.DeleteSchema(ctx, userID, ref)
	})
}

func (s *service) Stats(ctx context.Context, userID uuid.UUID, curr string) (Stats, error) {
	list, err := s.store.Schemas(ctx, userID, "")
	if err != nil {
		return Stats{}, err
	}
	out := Stats{ByKind: map[ledger.SchemaKind]KindStats{}, ByStatus: map[string]int{}}
	for _, k := range []ledger.SchemaKind{ledger.SchemaDPS, ledger.SchemaFDR, ledger.SchemaLoan} {
		out.ByKind[k] = KindStats{Invested: ledger.Zero(curr), Maturity: ledger.Zero(curr)}
	}
	for _, sch := range list {
		var invested, maturity money.Amount
		var status string
		switch v := sch.(type) {
		case ledger.RecurringDeposit:
			invested, maturity, status = v.TotalDeposited, v.MaturityAmount, v.Status
		case ledger.FixedDeposit:
			invested, maturity, status = v.PrincipalAmount, v.MaturityAmount, v.Status
		case ledger.Loan:
			invested, maturity, status = v.OutstandingBalance, v.TotalAmountPayable, v.Status
		}
		if invested.Curr().Code() != curr {
			continue
		}
		ks := out.ByKind[sch.Ref().Kind]
		ks.Count++
		if status == ledger.StatusActive {
			ks.Active++
		}
		if ks.Invested, err = ks.Invested.Add(invested); err != nil {
			return Stats{}, err
		}
		if ks.Maturity, err = ks.Maturity.Add(maturity); err != nil {
			return Stats{}, err
		}
		out.ByKind[sch.Ref().Kind] = ks
		out.ByStatus[status]++
		out.Count++
	}
	return out, nil
}

// lockPaymentTarget resolves and locks the schema an expense pays toward.
// A missing schema is ErrNotFound; one owned by another user is ErrConsistency.
func lockPaymentTarget(ctx context.Context, tx storage.Tx, userID uuid.UUID, exp ledger.Expense) (ledger.Schema, error) {
	kind, ok := exp.Type.SchemaKind()
	if !ok {
		return nil, errs.Field("expense_type", "regular expenses do not pay toward an investment")
	}
	if exp.Related == nil || exp.Related.ID == uuid.Nil {
		return nil, errs.Field("related_id", "required for "+string(exp.Type))
	}
	if exp.Related.Kind != kind {
		return nil, errs.Field("related_type", "must be "+string(kind)+" for "+string(exp.Type))
	}
	if exp.UserID != userID {
		return nil, errs.Consistency("expense %s belongs to another user", exp.ID)
	}
	owner, err := tx.OwnerOf(ctx, storage.SchemaTable(kind), exp.Related.ID)
	if err != nil {
		return nil, err
	}
	if owner != userID {
		return nil, errs.Consistency("%s %s belongs to another user", kind, exp.Related.ID)
	}
	return tx.LockSchema(ctx, userID, *exp.Related)
}

func sameCurrency(a, b money.Amount) error {
	if a.Curr().Code() != b.Curr().Code() {
		return errs.Field("amount", "currency must be "+b.Curr().Code())
	}
	return nil
}

func (s *service) ApplyPaymentTx(ctx context.Context, tx storage.Tx, userID uuid.UUID, exp ledger.Expense) (ledger.Schema, error) {
	sch, err := lockPaymentTarget(ctx, tx, userID, exp)
	if err != nil {
		return nil, err
	}
	if !exp.Amount.IsPos() {
		return nil, errs.Field("amount", "must be > 0")
	}
	date := ledger.Day(exp.Date)
	next := ledger.AddMonths(date, 1)
	now := s.now()
	var out ledger.Schema
	switch v := sch.(type) {
	case ledger.RecurringDeposit:
		if err := sameCurrency(exp.Amount, v.MonthlyInstallment); err != nil {
			return nil, err
		}
		if v.Status != ledger.StatusActive || v.RemainingInstallments == 0 {
			return nil, errs.Conflict("dps %s accepts no further installments", v.ID)
		}
		if v.TotalDeposited, err = v.TotalDeposited.Add(exp.Amount); err != nil {
			return nil, err
		}
		v.PaidInstallments++
		v.RemainingInstallments--
		v.LastPaymentDate, v.NextPaymentDate = &date, &next
		if v.RemainingInstallments == 0 {
			v.Status = ledger.StatusCompleted
		}
		v.UpdatedAt = now
		out = v
	case ledger.FixedDeposit:
		if err := sameCurrency(exp.Amount, v.PrincipalAmount); err != nil {
			return nil, err
		}
		if v.Status != ledger.StatusActive {
			return nil, errs.Conflict("fdr %s is %s", v.ID, v.Status)
		}
		if v.PrincipalAmount, err = v.PrincipalAmount.Add(exp.Amount); err != nil {
			return nil, err
		}
		if v.MaturityAmount, err = ledger.ApplyInterest(v.PrincipalAmount, v.InterestRate, v.TenureMonths); err != nil {
			return nil, err
		}
		v.UpdatedAt = now
		out = v
	case ledger.Loan:
		if err := sameCurrency(exp.Amount, v.PrincipalAmount); err != nil {
			return nil, err
		}
		if v.Status != ledger.StatusActive || v.RemainingEMIs == 0 || !v.OutstandingBalance.IsPos() {
			return nil, errs.Conflict("loan %s accepts no further payments", v.ID)
		}
		if ledger.Minor(exp.Amount) > ledger.Minor(v.OutstandingBalance) {
			return nil, errs.Conflict("payment exceeds outstanding balance %s", ledger.FormatAmount(v.OutstandingBalance))
		}
		if v.AmountPaid, err = v.AmountPaid.Add(exp.Amount); err != nil {
			return nil, err
		}
		if v.OutstandingBalance, err = v.PrincipalAmount.Sub(v.AmountPaid); err != nil {
			return nil, err
		}
		v.PaidEMIs++
		v.RemainingEMIs--
		v.LastPaymentDate, v.NextPaymentDate = &date, &next
		if v.RemainingEMIs == 0 || v.OutstandingBalance.IsZero() {
			v.Status = ledger.StatusCompleted
		}
		v.UpdatedAt = now
		out = v
	}
	if err := tx.UpdateSchema(ctx, out); err != nil {
		return nil, err
	}
	metrics.SchemaPayments.WithLabelValues(string(exp.Related.Kind), "apply").Inc()
	s.log.Debug("investment payment applied", "user_id", userID, "schema_kind", exp.Related.Kind,
		"schema_id", exp.Related.ID, "expense_id", exp.ID)
	return out, nil
}

func (s *service) ReversePaymentTx(ctx context.Context, tx storage.Tx, userID uuid.UUID, exp ledger.Expense) (ledger.Schema, error) {
	sch, err := lockPaymentTarget(ctx, tx, userID, exp)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.Consistency("expense %s pays toward a missing %s", exp.ID, exp.Related.Kind)
	}
	if err != nil {
		return nil, err
	}
	last, next, err := s.previousPayment(ctx, tx, userID, exp)
	if err != nil {
		return nil, err
	}
	now := s.now()
	var out ledger.Schema
	switch v := sch.(type) {
	case ledger.RecurringDeposit:
		if v.PaidInstallments == 0 {
			return nil, errs.Consistency("dps %s has no installments to reverse", v.ID)
		}
		if v.TotalDeposited, err = v.TotalDeposited.Sub(exp.Amount); err != nil {
			return nil, err
		}
		v.PaidInstallments--
		v.RemainingInstallments++
		v.LastPaymentDate = last
		v.NextPaymentDate = orStart(next, v.StartDate)
		if v.Status == ledger.StatusCompleted {
			v.Status = ledger.StatusActive
		}
		v.UpdatedAt = now
		out = v
	case ledger.FixedDeposit:
		if v.PrincipalAmount, err = v.PrincipalAmount.Sub(exp.Amount); err != nil {
			return nil, err
		}
		if !v.PrincipalAmount.IsPos() {
			return nil, errs.Consistency("fdr %s principal would drop to %s", v.ID, ledger.FormatAmount(v.PrincipalAmount))
		}
		if v.MaturityAmount, err = ledger.ApplyInterest(v.PrincipalAmount, v.InterestRate, v.TenureMonths); err != nil {
			return nil, err
		}
		v.UpdatedAt = now
		out = v
	case ledger.Loan:
		if v.PaidEMIs == 0 {
			return nil, errs.Consistency("loan %s has no payments to reverse", v.ID)
		}
		if v.AmountPaid, err = v.AmountPaid.Sub(exp.Amount); err != nil {
			return nil, err
		}
		if v.OutstandingBalance, err = v.PrincipalAmount.Sub(v.AmountPaid); err != nil {
			return nil, err
		}
		v.PaidEMIs--
		v.RemainingEMIs++
		v.LastPaymentDate = last
		v.NextPaymentDate = orStart(next, v.StartDate)
		if v.Status == ledger.StatusCompleted {
			v.Status = ledger.StatusActive
		}
		v.UpdatedAt = now
		out = v
	}
	if err := tx.UpdateSchema(ctx, out); err != nil {
		return nil, err
	}
	metrics.SchemaPayments.WithLabelValues(string(exp.Related.Kind), "reverse").Inc()
	s.log.Debug("investment payment reversed", "user_id", userID, "schema_kind", exp.Related.Kind,
		"schema_id", exp.Related.ID, "expense_id", exp.ID)
	return out, nil
}

// previousPayment finds the latest remaining payment toward the schema once exp is gone.
func (s *service) previousPayment(ctx context.Context, tx storage.Tx, userID uuid.UUID, exp ledger.Expense) (last, next *time.Time, err error) {
	payments, err := tx.Expenses(ctx, userID, storage.ExpenseFilter{Related: exp.Related})
	if err != nil {
		return nil, nil, err
	}
	for _, p := range payments {
		if p.ID == exp.ID {
			continue
		}
		d := ledger.Day(p.Date)
		if last == nil || d.After(*last) {
			last = &d
		}
	}
	if last != nil {
		n := ledger.AddMonths(*last, 1)
		next = &n
	}
	return last, next, nil
}

func orStart(next *time.Time, start time.Time) *time.Time {
	if next != nil {
		return next
	}
	n := ledger.AddMonths(start, 1)
	return &n
}
