package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"
)

// SchemaKind tags the three investment schema variants.
type SchemaKind string

const (
	SchemaDPS  SchemaKind = "dps"
	SchemaFDR  SchemaKind = "fdr"
	SchemaLoan SchemaKind = "loan"
)

// Valid reports whether k is a known schema kind.
func (k SchemaKind) Valid() bool { return k == SchemaDPS || k == SchemaFDR || k == SchemaLoan }

// SchemaRef identifies one investment schema.
type SchemaRef struct {
	Kind SchemaKind
	ID   uuid.UUID
}

// Schema is the closed set of investment records: RecurringDeposit, FixedDeposit and Loan.
type Schema interface {
	Ref() SchemaRef
	Owner() uuid.UUID
	isSchema()
}

// Status values shared by the schema variants.
const (
	StatusActive          = "active"
	StatusCompleted       = "completed"
	StatusClosed          = "closed"
	StatusDefaulted       = "defaulted"
	StatusMatured         = "matured"
	StatusPrematureClosed = "premature_closed"
	StatusRenewed         = "renewed"
	StatusForeclosed      = "foreclosed"
)

// RecurringDeposit (DPS) collects a fixed installment every month.
type RecurringDeposit struct {
	ID                    uuid.UUID
	UserID                uuid.UUID
	BankAccountID         *uuid.UUID
	Name                  string
	AccountNumber         string
	MonthlyInstallment    money.Amount
	InterestRate          decimal.Decimal
	TenureMonths          int
	StartDate             time.Time
	MaturityDate          time.Time
	MaturityAmount        money.Amount
	TotalDeposited        money.Amount
	PaidInstallments      int
	RemainingInstallments int
	LastPaymentDate       *time.Time
	NextPaymentDate       *time.Time
	Status                string
	Notes                 string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (d RecurringDeposit) Ref() SchemaRef   { return SchemaRef{Kind: SchemaDPS, ID: d.ID} }
func (d RecurringDeposit) Owner() uuid.UUID { return d.UserID }
func (RecurringDeposit) isSchema()          {}

// FixedDeposit (FDR) grows its principal with each additional investment.
type FixedDeposit struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	BankAccountID   *uuid.UUID
	Name            string
	AccountNumber   string
	PrincipalAmount money.Amount
	InterestRate    decimal.Decimal
	TenureMonths    int
	StartDate       time.Time
	MaturityDate    time.Time
	MaturityAmount  money.Amount
	// InterestPayout is one of monthly, quarterly, yearly, on_maturity.
	InterestPayout string
	AutoRenewal    bool
	Status         string
	Notes          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (d FixedDeposit) Ref() SchemaRef   { return SchemaRef{Kind: SchemaFDR, ID: d.ID} }
func (d FixedDeposit) Owner() uuid.UUID { return d.UserID }
func (FixedDeposit) isSchema()          {}

// Loan tracks repayment of borrowed principal in monthly EMIs.
type Loan struct {
	ID                 uuid.UUID
	UserID             uuid.UUID
	BankAccountID      *uuid.UUID
	Lender             string
	LoanType           string
	PrincipalAmount    money.Amount
	InterestRate       decimal.Decimal
	TenureMonths       int
	MonthlyEMI         money.Amount
	TotalAmountPayable money.Amount
	AmountPaid         money.Amount
	OutstandingBalance money.Amount
	PenaltyAmount      money.Amount
	PaidEMIs           int
	RemainingEMIs      int
	StartDate          time.Time
	EndDate            time.Time
	LastPaymentDate    *time.Time
	NextPaymentDate    *time.Time
	Status             string
	Notes              string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (l Loan) Ref() SchemaRef   { return SchemaRef{Kind: SchemaLoan, ID: l.ID} }
func (l Loan) Owner() uuid.UUID { return l.UserID }
func (Loan) isSchema()          {}

// LoanTypes lists the accepted loan_type values.
var LoanTypes = []string{"personal", "home", "car", "education", "business", "other"}

// InterestPayouts lists the accepted interest_payout values for fixed deposits.
var InterestPayouts = []string{"monthly", "quarterly", "yearly", "on_maturity"}

// SchemaStatuses lists the status values each kind accepts.
var SchemaStatuses = map[SchemaKind][]string{
	SchemaDPS:  {StatusActive, StatusCompleted, StatusClosed, StatusDefaulted},
	SchemaFDR:  {StatusActive, StatusMatured, StatusPrematureClosed, StatusRenewed},
	SchemaLoan: {StatusActive, StatusCompleted, StatusDefaulted, StatusForeclosed},
}
