package v1

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tinoosan/finledger/internal/errs"
	"github.com/tinoosan/finledger/internal/ledger"
	"github.com/tinoosan/finledger/internal/service/journal"
	"github.com/tinoosan/finledger/internal/storage"
)

func (s *Server) toJournalInput(r *http.Request, userID uuid.UUID, req transactionRequest) (journal.Input, error) {
	if req.BankAccountID == uuid.Nil {
		return journal.Input{}, errs.Field("bank_account_id", "required")
	}
	curr := s.amountCurrency(r.Context(), userID, "", &req.BankAccountID)
	amount, err := parseMoney("amount", curr, req.Amount)
	if err != nil {
		return journal.Input{}, err
	}
	date, err := parseDate("transaction_date", req.TransactionDate)
	if err != nil {
		return journal.Input{}, err
	}
	return journal.Input{
		AccountID:   req.BankAccountID,
		Direction:   req.Type,
		Amount:      amount,
		Date:        date,
		Description: req.Description,
	}, nil
}

// postTransaction handles POST /v1/transactions.
func (s *Server) postTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if !decode(w, r, &req) {
		return
	}
	userID := userFrom(r)
	in, err := s.toJournalInput(r, userID, req)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	e, err := s.ledger.Record(r.Context(), userID, in)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toTransactionResponse(e))
}

// listTransactions handles GET /v1/transactions with optional
// bank_account_id, type, from, to and include_reversed filters.
func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f storage.EntryFilter
	var err error
	if f.AccountID, err = queryUUID(r, "bank_account_id"); err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	if t := q.Get("type"); t != "" {
		f.Direction = ledger.Direction(t)
		if !f.Direction.Valid() {
			badRequest(w, "type", "must be in or out")
			return
		}
	}
	if f.From, f.To, err = queryWindow(r); err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	f.IncludeReversed = q.Get("include_reversed") == "true"

	curr, err := s.currencyParam(r)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	entries, err := s.ledger.List(r.Context(), userFrom(r), f)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	// The summary is per currency; entries in other currencies are listed but not totalled.
	same := make([]ledger.LedgerEntry, 0, len(entries))
	items := make([]transactionResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, toTransactionResponse(e))
		if e.Amount.Curr().Code() == curr {
			same = append(same, e)
		}
	}
	sum, err := s.ledger.Summarize(curr, same)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, listTransactionsResponse{Items: items, Summary: toTransactionSummary(sum)})
}

func (s *Server) getTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	e, err := s.ledger.Get(r.Context(), userFrom(r), id)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toTransactionResponse(e))
}

// putTransaction handles PUT /v1/transactions/{id}. The old entry is reversed
// and a replacement posted; the response is the replacement.
func (s *Server) putTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	var req transactionRequest
	if !decode(w, r, &req) {
		return
	}
	userID := userFrom(r)
	in, err := s.toJournalInput(r, userID, req)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	e, err := s.ledger.Update(r.Context(), userID, id, in)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toTransactionResponse(e))
}

func (s *Server) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	if err := s.ledger.Delete(r.Context(), userFrom(r), id); err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
