package v1

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"

	"github.com/tinoosan/finledger/internal/errs"
	"github.com/tinoosan/finledger/internal/ledger"
	"github.com/tinoosan/finledger/internal/service/investment"
)

func schemaRef(r *http.Request) (ledger.SchemaRef, error) {
	kind := ledger.SchemaKind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		return ledger.SchemaRef{}, errs.Field("kind", "must be dps, fdr or loan")
	}
	id, err := pathID(r, "id")
	if err != nil {
		return ledger.SchemaRef{}, err
	}
	return ledger.SchemaRef{Kind: kind, ID: id}, nil
}

// postInvestment handles POST /v1/investments; the body's kind selects the schema.
func (s *Server) postInvestment(w http.ResponseWriter, r *http.Request) {
	var req investmentRequest
	if !decode(w, r, &req) {
		return
	}
	ctx, userID := r.Context(), userFrom(r)
	if !req.Kind.Valid() {
		badRequest(w, "kind", "must be dps, fdr or loan")
		return
	}
	curr := s.amountCurrency(ctx, userID, req.Currency, req.BankAccountID)
	rate, err := parseRate("interest_rate", req.InterestRate)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	maturity, err := optDate("maturity_date", req.MaturityDate)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}

	var created ledger.Schema
	switch req.Kind {
	case ledger.SchemaDPS:
		installment, err := parseMoney("monthly_installment", curr, req.MonthlyInstallment)
		if err != nil {
			s.writeServiceErr(w, r, err)
			return
		}
		created, err = s.investments.CreateRecurringDeposit(ctx, userID, investment.DepositInput{
			Name:               req.Name,
			AccountNumber:      req.AccountNumber,
			BankAccountID:      req.BankAccountID,
			MonthlyInstallment: installment,
			InterestRate:       rate,
			TenureMonths:       req.TenureMonths,
			StartDate:          start,
			MaturityDate:       maturity,
			Notes:              req.Notes,
		})
		if err != nil {
			s.writeServiceErr(w, r, err)
			return
		}
	case ledger.SchemaFDR:
		principal, err := parseMoney("principal_amount", curr, req.PrincipalAmount)
		if err != nil {
			s.writeServiceErr(w, r, err)
			return
		}
		created, err = s.investments.CreateFixedDeposit(ctx, userID, investment.FixedDepositInput{
			Name:            req.Name,
			AccountNumber:   req.AccountNumber,
			BankAccountID:   req.BankAccountID,
			PrincipalAmount: principal,
			InterestRate:    rate,
			TenureMonths:    req.TenureMonths,
			StartDate:       start,
			MaturityDate:    maturity,
			InterestPayout:  req.InterestPayout,
			AutoRenewal:     req.AutoRenewal,
			Notes:           req.Notes,
		})
		if err != nil {
			s.writeServiceErr(w, r, err)
			return
		}
	case ledger.SchemaLoan:
		principal, err := parseMoney("principal_amount", curr, req.PrincipalAmount)
		if err != nil {
			s.writeServiceErr(w, r, err)
			return
		}
		emi, err := parseMoney("monthly_emi", curr, req.MonthlyEMI)
		if err != nil {
			s.writeServiceErr(w, r, err)
			return
		}
		created, err = s.investments.CreateLoan(ctx, userID, investment.LoanInput{
			Lender:          req.Lender,
			LoanType:        req.LoanType,
			BankAccountID:   req.BankAccountID,
			PrincipalAmount: principal,
			InterestRate:    rate,
			TenureMonths:    req.TenureMonths,
			MonthlyEMI:      emi,
			StartDate:       start,
			Notes:           req.Notes,
		})
		if err != nil {
			s.writeServiceErr(w, r, err)
			return
		}
	}
	toJSON(w, http.StatusCreated, toSchemaResponse(created))
}

// listInvestments handles GET /v1/investments with an optional ?kind= filter.
func (s *Server) listInvestments(w http.ResponseWriter, r *http.Request) {
	kind := ledger.SchemaKind(r.URL.Query().Get("kind"))
	if kind != "" && !kind.Valid() {
		badRequest(w, "kind", "must be dps, fdr or loan")
		return
	}
	list, err := s.investments.List(r.Context(), userFrom(r), kind)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	out := make([]any, 0, len(list))
	for _, sch := range list {
		out = append(out, toSchemaResponse(sch))
	}
	toJSON(w, http.StatusOK, map[string]any{"investments": out})
}

func (s *Server) investmentStats(w http.ResponseWriter, r *http.Request) {
	curr, err := s.currencyParam(r)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	st, err := s.investments.Stats(r.Context(), userFrom(r), curr)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toInvestmentStats(st))
}

func (s *Server) getInvestment(w http.ResponseWriter, r *http.Request) {
	ref, err := schemaRef(r)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	sch, err := s.investments.Get(r.Context(), userFrom(r), ref)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toSchemaResponse(sch))
}

// patchInvestment handles PATCH /v1/investments/{kind}/{id}. Progress
// counters only move through payment expenses.
func (s *Server) patchInvestment(w http.ResponseWriter, r *http.Request) {
	ref, err := schemaRef(r)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	var req investmentPatchRequest
	if !decode(w, r, &req) {
		return
	}
	sch, err := s.investments.UpdateDetails(r.Context(), userFrom(r), ref, investment.DetailsInput{
		Name:             req.Name,
		Notes:            req.Notes,
		Status:           req.Status,
		AutoRenewal:      req.AutoRenewal,
		BankAccountID:    req.BankAccountID,
		ClearBankAccount: req.ClearBankAccount,
	})
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toSchemaResponse(sch))
}

func (s *Server) deleteInvestment(w http.ResponseWriter, r *http.Request) {
	ref, err := schemaRef(r)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	if err := s.investments.Delete(r.Context(), userFrom(r), ref); err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
