package v1

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tinoosan/finledger/internal/ledger"
	"github.com/tinoosan/finledger/internal/service/cashflow"
	"github.com/tinoosan/finledger/internal/storage"
)

func (s *Server) toExpenseInput(r *http.Request, userID uuid.UUID, req expenseRequest) (cashflow.ExpenseInput, error) {
	curr := s.amountCurrency(r.Context(), userID, req.Currency, req.BankAccountID)
	amount, err := parseMoney("amount", curr, req.Amount)
	if err != nil {
		return cashflow.ExpenseInput{}, err
	}
	date, err := parseDate("expense_date", req.ExpenseDate)
	if err != nil {
		return cashflow.ExpenseInput{}, err
	}
	return cashflow.ExpenseInput{
		Title:         req.Title,
		Description:   req.Description,
		Amount:        amount,
		Date:          date,
		CategoryID:    req.CategoryID,
		PaymentMethod: req.PaymentMethod,
		Tags:          req.Tags,
		Type:          req.ExpenseType,
		RelatedType:   req.RelatedType,
		RelatedID:     req.RelatedID,
		BankAccountID: req.BankAccountID,
	}, nil
}

func expenseFilter(r *http.Request) (storage.ExpenseFilter, error) {
	var f storage.ExpenseFilter
	var err error
	if f.From, f.To, err = queryWindow(r); err != nil {
		return f, err
	}
	if f.CategoryID, err = queryUUID(r, "category_id"); err != nil {
		return f, err
	}
	f.Type = ledger.ExpenseType(r.URL.Query().Get("expense_type"))
	f.Search = r.URL.Query().Get("search")
	return f, nil
}

// postExpense handles POST /v1/expenses. The ledger entry and any investment
// progress are applied in the same unit of work as the expense itself.
func (s *Server) postExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if !decode(w, r, &req) {
		return
	}
	userID := userFrom(r)
	in, err := s.toExpenseInput(r, userID, req)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	exp, err := s.cashflow.CreateExpense(r.Context(), userID, in)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toExpenseResponse(exp))
}

func (s *Server) listExpenses(w http.ResponseWriter, r *http.Request) {
	f, err := expenseFilter(r)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	list, err := s.cashflow.ListExpenses(r.Context(), userFrom(r), f)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	out := make([]expenseResponse, 0, len(list))
	for _, e := range list {
		out = append(out, toExpenseResponse(e))
	}
	toJSON(w, http.StatusOK, map[string]any{"expenses": out})
}

func (s *Server) expenseStats(w http.ResponseWriter, r *http.Request) {
	f, err := expenseFilter(r)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	curr, err := s.currencyParam(r)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	st, err := s.cashflow.ExpenseStats(r.Context(), userFrom(r), curr, f)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toStatsResponse(st))
}

func (s *Server) getExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	exp, err := s.cashflow.GetExpense(r.Context(), userFrom(r), id)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toExpenseResponse(exp))
}

// putExpense handles PUT /v1/expenses/{id}: a full replacement whose old
// effects are undone before the new ones apply.
func (s *Server) putExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	var req expenseRequest
	if !decode(w, r, &req) {
		return
	}
	userID := userFrom(r)
	in, err := s.toExpenseInput(r, userID, req)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	exp, err := s.cashflow.UpdateExpense(r.Context(), userID, id, in)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toExpenseResponse(exp))
}

func (s *Server) deleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	if err := s.cashflow.DeleteExpense(r.Context(), userFrom(r), id); err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) toIncomeInput(r *http.Request, userID uuid.UUID, req incomeRequest) (cashflow.IncomeInput, error) {
	curr := s.amountCurrency(r.Context(), userID, req.Currency, req.BankAccountID)
	amount, err := parseMoney("amount", curr, req.Amount)
	if err != nil {
		return cashflow.IncomeInput{}, err
	}
	date, err := parseDate("income_date", req.IncomeDate)
	if err != nil {
		return cashflow.IncomeInput{}, err
	}
	return cashflow.IncomeInput{
		Title:              req.Title,
		Description:        req.Description,
		Amount:             amount,
		Date:               date,
		CategoryID:         req.CategoryID,
		Source:             req.Source,
		IsRecurring:        req.IsRecurring,
		RecurringFrequency: req.RecurringFrequency,
		Tags:               req.Tags,
		ClientID:           req.ClientID,
		BankAccountID:      req.BankAccountID,
	}, nil
}

func incomeFilter(r *http.Request) (storage.IncomeFilter, error) {
	var f storage.IncomeFilter
	var err error
	if f.From, f.To, err = queryWindow(r); err != nil {
		return f, err
	}
	if f.CategoryID, err = queryUUID(r, "category_id"); err != nil {
		return f, err
	}
	if f.ClientID, err = queryUUID(r, "client_id"); err != nil {
		return f, err
	}
	f.Search = r.URL.Query().Get("search")
	return f, nil
}

func (s *Server) postIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if !decode(w, r, &req) {
		return
	}
	userID := userFrom(r)
	in, err := s.toIncomeInput(r, userID, req)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	inc, err := s.cashflow.CreateIncome(r.Context(), userID, in)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toIncomeResponse(inc))
}

func (s *Server) listIncomes(w http.ResponseWriter, r *http.Request) {
	f, err := incomeFilter(r)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	list, err := s.cashflow.ListIncomes(r.Context(), userFrom(r), f)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	out := make([]incomeResponse, 0, len(list))
	for _, in := range list {
		out = append(out, toIncomeResponse(in))
	}
	toJSON(w, http.StatusOK, map[string]any{"incomes": out})
}

func (s *Server) incomeStats(w http.ResponseWriter, r *http.Request) {
	f, err := incomeFilter(r)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	curr, err := s.currencyParam(r)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	st, err := s.cashflow.IncomeStats(r.Context(), userFrom(r), curr, f)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toStatsResponse(st))
}

func (s *Server) getIncome(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	inc, err := s.cashflow.GetIncome(r.Context(), userFrom(r), id)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toIncomeResponse(inc))
}

func (s *Server) putIncome(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	var req incomeRequest
	if !decode(w, r, &req) {
		return
	}
	userID := userFrom(r)
	in, err := s.toIncomeInput(r, userID, req)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	inc, err := s.cashflow.UpdateIncome(r.Context(), userID, id, in)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toIncomeResponse(inc))
}

func (s *Server) deleteIncome(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	if err := s.cashflow.DeleteIncome(r.Context(), userFrom(r), id); err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
