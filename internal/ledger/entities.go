package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/finledger/internal/meta"
)

// User captures the owner of ledger data.
type User struct {
	ID    uuid.UUID
	Email *string
}

// Direction is the sign of a ledger entry relative to its account.
type Direction string

const (
	// DirectionIn adds the amount to the account balance.
	DirectionIn Direction = "in"
	// DirectionOut subtracts the amount from the account balance.
	DirectionOut Direction = "out"
)

// Valid reports whether d is one of the known directions.
func (d Direction) Valid() bool { return d == DirectionIn || d == DirectionOut }

// Inverse returns the opposite direction.
func (d Direction) Inverse() Direction {
	if d == DirectionIn {
		return DirectionOut
	}
	return DirectionIn
}

// BankAccount is a user's bank account. Balances change only through ledger entries.
type BankAccount struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	BankName      string
	AccountName   string
	AccountNumber string
	AccountType   string
	Currency      string
	Branch        string
	IFSC          string
	SWIFT         string
	// InitialAmount is the opening balance; CurrentBalance = InitialAmount + signed unreversed entries.
	InitialAmount    money.Amount
	CurrentBalance   money.Amount
	AvailableBalance money.Amount
	// AdditionalInfo holds free-form attributes for the account.
	AdditionalInfo meta.Metadata
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CauseKind names the domain event behind a ledger entry.
type CauseKind string

const (
	CauseManual  CauseKind = "manual"
	CauseExpense CauseKind = "expense"
	CauseIncome  CauseKind = "income"
)

// CauseRef points at the record that caused a ledger entry. ID is uuid.Nil for manual entries.
type CauseRef struct {
	Kind CauseKind
	ID   uuid.UUID
}

// Manual is the cause of standalone transactions.
func Manual() CauseRef { return CauseRef{Kind: CauseManual} }

// Valid reports whether the cause is well formed.
func (c CauseRef) Valid() bool {
	switch c.Kind {
	case CauseManual:
		return c.ID == uuid.Nil
	case CauseExpense, CauseIncome:
		return c.ID != uuid.Nil
	}
	return false
}

// LedgerEntry is one signed movement applied to exactly one bank account.
type LedgerEntry struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	AccountID   uuid.UUID
	Direction   Direction
	Amount      money.Amount
	Date        time.Time
	Description string
	Cause       CauseRef
	// IsReversed marks that the entry's effect has been undone.
	IsReversed bool
	ReversedAt *time.Time
	// ReplacesID links a correcting entry to the entry it replaced.
	ReplacesID *uuid.UUID
	CreatedAt  time.Time
}

// Signed returns the amount with the entry's sign applied.
func (e LedgerEntry) Signed() money.Amount {
	if e.Direction == DirectionOut {
		return e.Amount.Neg()
	}
	return e.Amount
}
