package v1

import (
	"net/http"
	"strings"
	"time"

	"github.com/govalues/decimal"

	"github.com/tinoosan/finledger/internal/ledger"
	"github.com/tinoosan/finledger/internal/service/budget"
	"github.com/tinoosan/finledger/internal/storage"
)

func (s *Server) postBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if !decode(w, r, &req) {
		return
	}
	curr := strings.ToUpper(strings.TrimSpace(req.Currency))
	if curr == "" {
		curr = s.currency
	}
	amount, err := parseMoney("budget_amount", curr, req.BudgetAmount)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	in := budget.CreateInput{
		Name:        req.BudgetName,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		Amount:      amount,
		StartDate:   start,
		EndDate:     end,
		PeriodType:  ledger.PeriodType(req.PeriodType),
	}
	if req.AlertPercentage != nil {
		p, err := parseRate("alert_percentage", *req.AlertPercentage)
		if err != nil {
			s.writeServiceErr(w, r, err)
			return
		}
		in.AlertPercentage = &p
	}
	v, err := s.budgets.Create(r.Context(), userFrom(r), in)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toBudgetResponse(v))
}

// listBudgets handles GET /v1/budgets. Every listed budget has its spent
// amount refreshed; the summary covers budgets in the requested currency.
func (s *Server) listBudgets(w http.ResponseWriter, r *http.Request) {
	var f storage.BudgetFilter
	var err error
	f.Status = ledger.BudgetStatus(r.URL.Query().Get("status"))
	if f.CategoryID, err = queryUUID(r, "category_id"); err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	curr, err := s.currencyParam(r)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	views, err := s.budgets.List(r.Context(), userFrom(r), f)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	sum, err := s.budgets.Summarize(curr, views)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, listBudgetsResponse{Items: toBudgetResponses(views), Summary: toBudgetSummary(sum)})
}

// budgetAnalytics handles GET /v1/budgets/analytics?period=current|last_month|last_3_months.
func (s *Server) budgetAnalytics(w http.ResponseWriter, r *http.Request) {
	p := budget.Period(r.URL.Query().Get("period"))
	if p == "" {
		p = budget.PeriodCurrent
	}
	curr, err := s.currencyParam(r)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	a, err := s.budgets.Analytics(r.Context(), userFrom(r), curr, p, time.Now().UTC())
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, analyticsResponse{
		Period:  a.Period,
		From:    ledger.FormatDate(a.From),
		To:      ledger.FormatDate(a.To),
		Budgets: toBudgetResponses(a.Budgets),
		Summary: toBudgetSummary(a.Summary),
	})
}

func (s *Server) getBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	v, err := s.budgets.Get(r.Context(), userFrom(r), id)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toBudgetResponse(v))
}

func (s *Server) patchBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	var req budgetPatchRequest
	if !decode(w, r, &req) {
		return
	}
	userID := userFrom(r)
	in := budget.UpdateInput{
		Name:          req.BudgetName,
		Description:   req.Description,
		CategoryID:    req.CategoryID,
		ClearCategory: req.ClearCategory,
	}
	if req.BudgetAmount != nil {
		cur, err := s.budgets.Get(r.Context(), userID, id)
		if err != nil {
			s.writeServiceErr(w, r, err)
			return
		}
		a, err := parseMoney("budget_amount", cur.Amount.Curr().Code(), *req.BudgetAmount)
		if err != nil {
			s.writeServiceErr(w, r, err)
			return
		}
		in.Amount = &a
	}
	if in.StartDate, err = optDate("start_date", req.StartDate); err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	if in.EndDate, err = optDate("end_date", req.EndDate); err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	if req.PeriodType != nil {
		pt := ledger.PeriodType(*req.PeriodType)
		in.PeriodType = &pt
	}
	if req.Status != nil {
		st := ledger.BudgetStatus(*req.Status)
		in.Status = &st
	}
	if req.AlertPercentage != nil {
		var p decimal.Decimal
		if p, err = parseRate("alert_percentage", *req.AlertPercentage); err != nil {
			s.writeServiceErr(w, r, err)
			return
		}
		in.AlertPercentage = &p
	}
	v, err := s.budgets.Update(r.Context(), userID, id, in)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toBudgetResponse(v))
}

func (s *Server) deleteBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	if err := s.budgets.Delete(r.Context(), userFrom(r), id); err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
