package ledger

import (
	"time"

	"github.com/google/uuid"
)

// ClientStatus marks whether a client is still being billed.
type ClientStatus string

const (
	ClientActive   ClientStatus = "active"
	ClientInactive ClientStatus = "inactive"
)

// Valid reports whether s is a known client status.
func (s ClientStatus) Valid() bool {
	return s == ClientActive || s == ClientInactive
}

// Client is someone a user receives income from.
type Client struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Name      string
	Email     string
	Phone     string
	Address   string
	Company   string
	Notes     string
	Status    ClientStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
