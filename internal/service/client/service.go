// Package client keeps the people and businesses a user bills. Incomes may
// name a client; a client with incomes cannot be deleted.
package client

import (
	"context"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/finledger/internal/errs"
	"github.com/tinoosan/finledger/internal/ledger"
	"github.com/tinoosan/finledger/internal/storage"
)

type Store interface {
	Client(ctx context.Context, userID, id uuid.UUID) (ledger.Client, error)
	Clients(ctx context.Context, userID uuid.UUID, f storage.ClientFilter) ([]ledger.Client, error)
	InTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error
}

// Input carries every field of a client. Update replaces them all.
type Input struct {
	Name    string
	Email   string
	Phone   string
	Address string
	Company string
	Notes   string
	Status  ledger.ClientStatus
}

type Service interface {
	Create(ctx context.Context, userID uuid.UUID, in Input) (ledger.Client, error)
	Get(ctx context.Context, userID, id uuid.UUID) (ledger.Client, error)
	List(ctx context.Context, userID uuid.UUID, f storage.ClientFilter) ([]ledger.Client, error)
	Update(ctx context.Context, userID, id uuid.UUID, in Input) (ledger.Client, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
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

const maxField = 255

func normalize(in Input) (Input, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Company = strings.TrimSpace(in.Company)
	switch {
	case in.Name == "":
		return in, errs.Field("name", "required")
	case len(in.Name) > maxField:
		return in, errs.Field("name", "too long")
	case len(in.Email) > maxField:
		return in, errs.Field("email", "too long")
	case len(in.Phone) > maxField:
		return in, errs.Field("phone", "too long")
	case len(in.Company) > maxField:
		return in, errs.Field("company", "too long")
	case !in.Status.Valid():
		return in, errs.Field("status", "must be active or inactive")
	}
	if in.Email != "" {
		addr, err := mail.ParseAddress(in.Email)
		if err != nil || addr.Address != in.Email {
			return in, errs.Field("email", "must be an email address")
		}
	}
	return in, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, in Input) (ledger.Client, error) {
	if userID == uuid.Nil {
		return ledger.Client{}, errs.Field("user_id", "required")
	}
	in, err := normalize(in)
	if err != nil {
		return ledger.Client{}, err
	}
	now := s.now()
	c := ledger.Client{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      in.Name,
		Email:     in.Email,
		Phone:     in.Phone,
		Address:   in.Address,
		Company:   in.Company,
		Notes:     in.Notes,
		Status:    in.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.InsertClient(ctx, c)
	}); err != nil {
		return ledger.Client{}, err
	}
	s.log.Info("client created", "user_id", userID, "client_id", c.ID)
	return c, nil
}

func (s *service) Get(ctx context.Context, userID, id uuid.UUID) (ledger.Client, error) {
	return s.store.Client(ctx, userID, id)
}

func (s *service) List(ctx context.Context, userID uuid.UUID, f storage.ClientFilter) ([]ledger.Client, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, errs.Field("status", "must be active or inactive")
	}
	f.Search = strings.TrimSpace(f.Search)
	return s.store.Clients(ctx, userID, f)
}

func (s *service) Update(ctx context.Context, userID, id uuid.UUID, in Input) (ledger.Client, error) {
	in, err := normalize(in)
	if err != nil {
		return ledger.Client{}, err
	}
	var c ledger.Client
	err = s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		if c, err = tx.Client(ctx, userID, id); err != nil {
			return err
		}
		c.Name, c.Email, c.Phone, c.Address = in.Name, in.Email, in.Phone, in.Address
		c.Company, c.Notes, c.Status = in.Company, in.Notes, in.Status
		c.UpdatedAt = s.now()
		return tx.UpdateClient(ctx, c)
	})
	if err != nil {
		return ledger.Client{}, err
	}
	s.log.Debug("client updated", "user_id", userID, "client_id", id)
	return c, nil
}

func (s *service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if _, err := tx.Client(ctx, userID, id); err != nil {
			return err
		}
		incomes, err := tx.Incomes(ctx, userID, storage.IncomeFilter{ClientID: &id})
		if err != nil {
			return err
		}
		if len(incomes) > 0 {
			return errs.Conflict("client %s has %d incomes", id, len(incomes))
		}
		return tx.DeleteClient(ctx, userID, id)
	})
	if err != nil {
		return err
	}
	s.log.Info("client deleted", "user_id", userID, "client_id", id)
	return nil
}
