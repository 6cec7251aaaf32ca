package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
)

// CategoryKind separates income and expense categories. A category of kind
// both files either.
type CategoryKind string

const (
	CategoryExpense CategoryKind = "expense"
	CategoryIncome  CategoryKind = "income"
	CategoryBoth    CategoryKind = "both"
)

// Valid reports whether k is a known category kind.
func (k CategoryKind) Valid() bool {
	return k == CategoryExpense || k == CategoryIncome || k == CategoryBoth
}

// Accepts reports whether a category of kind k may file records of kind.
func (k CategoryKind) Accepts(kind CategoryKind) bool {
	return k == kind || k == CategoryBoth
}

// DefaultCategoryColor is used when a category is created without a color.
const DefaultCategoryColor = "#3B82F6"

// Category groups incomes or expenses for a user. Categories nest through ParentID.
type Category struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Name        string
	Slug        string
	Kind        CategoryKind
	Color       string
	Description string
	ParentID    *uuid.UUID
	Active      bool
	SortOrder   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ExpenseType tags whether an expense pays toward an investment schema.
type ExpenseType string

const (
	ExpenseRegular       ExpenseType = "regular"
	ExpenseDPSPayment    ExpenseType = "dps_payment"
	ExpenseFDRInvestment ExpenseType = "fdr_investment"
	ExpenseLoanPayment   ExpenseType = "loan_payment"
)

// Valid reports whether t is a known expense type.
func (t ExpenseType) Valid() bool {
	switch t {
	case ExpenseRegular, ExpenseDPSPayment, ExpenseFDRInvestment, ExpenseLoanPayment:
		return true
	}
	return false
}

// SchemaKind returns the schema kind an expense type pays toward.
func (t ExpenseType) SchemaKind() (SchemaKind, bool) {
	switch t {
	case ExpenseDPSPayment:
		return SchemaDPS, true
	case ExpenseFDRInvestment:
		return SchemaFDR, true
	case ExpenseLoanPayment:
		return SchemaLoan, true
	}
	return "", false
}

// Expense is money spent by a user, optionally paid from a bank account
// and optionally counted as a payment toward an investment schema.
type Expense struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Title         string
	Description   string
	Amount        money.Amount
	Date          time.Time
	CategoryID    *uuid.UUID
	PaymentMethod string
	Tags          []string
	Type          ExpenseType
	Related       *SchemaRef
	BankAccountID *uuid.UUID
	// EntryID is the ledger entry posted against BankAccountID.
	EntryID   *uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Frequencies lists accepted recurring income frequencies.
var Frequencies = []string{"weekly", "monthly", "quarterly", "yearly"}

// Income is money received by a user, optionally into a bank account.
type Income struct {
	ID                 uuid.UUID
	UserID             uuid.UUID
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
	EntryID            *uuid.UUID
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
