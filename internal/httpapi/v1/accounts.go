package v1

import (
	"errors"
	"net/http"
	"strings"

	"github.com/tinoosan/finledger/internal/errs"
	"github.com/tinoosan/finledger/internal/meta"
	"github.com/tinoosan/finledger/internal/service/account"
)

const maxBatchItems = 100

func (s *Server) toAccountInput(req postAccountRequest) (account.CreateInput, error) {
	curr := strings.ToUpper(strings.TrimSpace(req.Currency))
	if curr == "" {
		curr = s.currency
	}
	initial := req.InitialAmount
	if strings.TrimSpace(initial) == "" {
		initial = "0"
	}
	amount, err := parseMoney("initial_amount", curr, initial)
	if err != nil {
		return account.CreateInput{}, err
	}
	return account.CreateInput{
		BankName:       req.BankName,
		AccountName:    req.AccountName,
		AccountNumber:  req.AccountNumber,
		AccountType:    req.AccountType,
		Currency:       curr,
		Branch:         req.Branch,
		IFSC:           req.IFSCCode,
		SWIFT:          req.SwiftCode,
		InitialAmount:  amount,
		AdditionalInfo: meta.New(req.AdditionalInfo),
	}, nil
}

// postAccount handles POST /v1/bank-accounts.
func (s *Server) postAccount(w http.ResponseWriter, r *http.Request) {
	var req postAccountRequest
	if !decode(w, r, &req) {
		return
	}
	in, err := s.toAccountInput(req)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	acc, err := s.accounts.Create(r.Context(), userFrom(r), in)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toAccountResponse(acc))
}

type batchItemError struct {
	Index int    `json:"index"`
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func toBatchItemError(i int, err error) batchItemError {
	out := batchItemError{Index: i, Error: err.Error()}
	var fe *errs.FieldError
	if errors.As(err, &fe) {
		out.Error, out.Field = fe.Msg, fe.Field
	}
	return out
}

// postAccountsBatch handles POST /v1/bank-accounts/batch.
// Valid items are created together; invalid ones are reported by index.
// Returns 201 when anything was created, 422 otherwise.
func (s *Server) postAccountsBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Accounts []postAccountRequest `json:"accounts"`
	}
	if !decode(w, r, &req) {
		return
	}
	if len(req.Accounts) == 0 {
		badRequest(w, "accounts", "accounts is required")
		return
	}
	if len(req.Accounts) > maxBatchItems {
		writeErr(w, http.StatusUnprocessableEntity, "too_many_items", "too_many_items")
		return
	}

	var itemErrs []batchItemError
	inputs := make([]account.CreateInput, 0, len(req.Accounts))
	index := make([]int, 0, len(req.Accounts))
	for i, a := range req.Accounts {
		in, err := s.toAccountInput(a)
		if err != nil {
			itemErrs = append(itemErrs, toBatchItemError(i, err))
			continue
		}
		inputs = append(inputs, in)
		index = append(index, i)
	}
	created, failed, err := s.accounts.CreateBatch(r.Context(), userFrom(r), inputs)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	for _, f := range failed {
		itemErrs = append(itemErrs, toBatchItemError(index[f.Index], f.Err))
	}

	resp := struct {
		Accounts []accountResponse `json:"accounts"`
		Errors   []batchItemError  `json:"errors,omitempty"`
	}{Accounts: make([]accountResponse, 0, len(created)), Errors: itemErrs}
	for _, a := range created {
		resp.Accounts = append(resp.Accounts, toAccountResponse(a))
	}
	status := http.StatusCreated
	if len(created) == 0 {
		status = http.StatusUnprocessableEntity
	}
	toJSON(w, status, resp)
}

// listAccounts handles GET /v1/bank-accounts. ?active=true limits to active accounts.
func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	accs, err := s.accounts.List(r.Context(), userFrom(r))
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	activeOnly := r.URL.Query().Get("active") == "true"
	out := make([]accountResponse, 0, len(accs))
	for _, a := range accs {
		if activeOnly && !a.Active {
			continue
		}
		out = append(out, toAccountResponse(a))
	}
	toJSON(w, http.StatusOK, map[string]any{"accounts": out})
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	acc, err := s.accounts.Get(r.Context(), userFrom(r), id)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toAccountResponse(acc))
}

// updateAccount handles PATCH /v1/bank-accounts/{id}.
// Descriptive fields only; balances and currency cannot be changed.
func (s *Server) updateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	var req patchAccountRequest
	if !decode(w, r, &req) {
		return
	}
	acc, err := s.accounts.Update(r.Context(), userFrom(r), id, account.UpdateInput{
		BankName:       req.BankName,
		AccountName:    req.AccountName,
		AccountNumber:  req.AccountNumber,
		AccountType:    req.AccountType,
		Branch:         req.Branch,
		IFSC:           req.IFSCCode,
		SWIFT:          req.SwiftCode,
		Active:         req.IsActive,
		AdditionalInfo: meta.New(req.AdditionalInfo),
		Currency:       req.Currency,
		Balances:       req.InitialAmount != nil || req.CurrentBalance != nil || req.AvailableBalance != nil,
	})
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toAccountResponse(acc))
}

// deactivateAccount handles DELETE /v1/bank-accounts/{id}. Accounts with
// history are never removed, only marked inactive.
func (s *Server) deactivateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	if err := s.accounts.Deactivate(r.Context(), userFrom(r), id); err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// rebalanceAccount handles GET /v1/bank-accounts/{id}/rebalance. It reports
// the balance recomputed from history next to the stored one without writing.
func (s *Server) rebalanceAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	c, err := s.ledger.CheckBalance(r.Context(), userFrom(r), id)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, rebalanceResponse{
		AccountID:       id,
		StoredBalance:   amt(c.Stored),
		ComputedBalance: amt(c.Computed),
		InSync:          c.InSync(),
	})
}
