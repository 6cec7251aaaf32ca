package v1

import (
	"context"
	"net/http"
	"strings"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"

	"github.com/tinoosan/finledger/internal/errs"
	"github.com/tinoosan/finledger/internal/ledger"
)

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, errs.Field(name, "invalid id")
	}
	return id, nil
}

func parseDate(field, s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, errs.Field(field, "required")
	}
	d, err := ledger.ParseDate(s)
	if err != nil {
		return time.Time{}, errs.Field(field, "must be YYYY-MM-DD")
	}
	return d, nil
}

func optDate(field string, s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	d, err := parseDate(field, *s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseMoney(field, curr, s string) (money.Amount, error) {
	if !ledger.ValidCurrency(curr) {
		return money.Amount{}, errs.Field("currency", "unknown currency")
	}
	if strings.TrimSpace(s) == "" {
		return money.Amount{}, errs.Field(field, "required")
	}
	a, err := ledger.ParseAmount(curr, s)
	if err != nil {
		return money.Amount{}, errs.Field(field, err.Error())
	}
	return a, nil
}

func parseRate(field, s string) (decimal.Decimal, error) {
	d, err := decimal.Parse(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, errs.Field(field, "must be a decimal number")
	}
	return d, nil
}

func queryUUID(r *http.Request, name string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, errs.Field(name, "invalid id")
	}
	return &id, nil
}

// queryWindow reads the optional from/to date bounds of a listing.
func queryWindow(r *http.Request) (from, to *time.Time, err error) {
	q := r.URL.Query()
	f, t := q.Get("from"), q.Get("to")
	if from, err = optDate("from", &f); err != nil {
		return nil, nil, err
	}
	if to, err = optDate("to", &t); err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

// currencyParam is the ?currency= override of the server default.
func (s *Server) currencyParam(r *http.Request) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("currency")))
	if c == "" {
		return s.currency, nil
	}
	if !ledger.ValidCurrency(c) {
		return "", errs.Field("currency", "unknown currency")
	}
	return c, nil
}

// amountCurrency picks the currency an amount in a request body is read in:
// the explicit one, else the linked bank account's, else the server default.
// A linked account that cannot be read is left for the service to report.
func (s *Server) amountCurrency(ctx context.Context, userID uuid.UUID, explicit string, accountID *uuid.UUID) string {
	if c := strings.ToUpper(strings.TrimSpace(explicit)); c != "" {
		return c
	}
	if accountID != nil {
		if acc, err := s.accounts.Get(ctx, userID, *accountID); err == nil {
			return acc.Currency
		}
	}
	return s.currency
}
