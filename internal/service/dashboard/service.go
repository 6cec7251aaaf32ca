// Package dashboard assembles the period overview shown on a user's home screen.
package dashboard

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/finledger/internal/errs"
	"github.com/tinoosan/finledger/internal/ledger"
	"github.com/tinoosan/finledger/internal/service/account"
	"github.com/tinoosan/finledger/internal/service/budget"
	"github.com/tinoosan/finledger/internal/service/cashflow"
	"github.com/tinoosan/finledger/internal/service/investment"
	"github.com/tinoosan/finledger/internal/storage"
)

const (
	trendMonths   = 12
	topCategories = 5
)

type MonthTotal struct {
	Month    string // YYYY-MM
	Income   money.Amount
	Expenses money.Amount
}

type BankSummary struct {
	Accounts     int
	TotalBalance money.Amount
	TotalInitial money.Amount
	NetChange    money.Amount
}

type Overview struct {
	From           time.Time
	To             time.Time
	TotalIncome    money.Amount
	TotalExpenses  money.Amount
	Net            money.Amount
	Trend          []MonthTotal
	TopCategories  []cashflow.CategoryTotal
	ExpensesByType map[ledger.ExpenseType]money.Amount
	Bank           BankSummary
	Budgets        budget.Summary
	Investments    investment.Stats
}

type Service interface {
	// Overview covers [from, to]; the trend covers the twelve months ending with to.
	Overview(ctx context.Context, userID uuid.UUID, curr string, from, to time.Time) (Overview, error)
}

type service struct {
	accounts    account.Service
	cashflow    cashflow.Service
	budgets     budget.Service
	investments investment.Service
}

func New(accounts account.Service, cf cashflow.Service, budgets budget.Service, investments investment.Service) Service {
	return &service{accounts: accounts, cashflow: cf, budgets: budgets, investments: investments}
}

func (s *service) Overview(ctx context.Context, userID uuid.UUID, curr string, from, to time.Time) (Overview, error) {
	from, to = ledger.Day(from), ledger.Day(to)
	if to.Before(from) {
		return Overview{}, errs.Field("to", "must not be before from")
	}
	out := Overview{From: from, To: to}

	exp, err := s.cashflow.ExpenseStats(ctx, userID, curr, storage.ExpenseFilter{From: &from, To: &to})
	if err != nil {
		return Overview{}, err
	}
	inc, err := s.cashflow.IncomeStats(ctx, userID, curr, storage.IncomeFilter{From: &from, To: &to})
	if err != nil {
		return Overview{}, err
	}
	out.TotalExpenses, out.TotalIncome, out.ExpensesByType = exp.Total, inc.Total, exp.ByType
	if out.Net, err = inc.Total.Sub(exp.Total); err != nil {
		return Overview{}, err
	}
	out.TopCategories = exp.ByCategory
	if len(out.TopCategories) > topCategories {
		out.TopCategories = out.TopCategories[:topCategories]
	}

	if out.Trend, err = s.trend(ctx, userID, curr, to); err != nil {
		return Overview{}, err
	}
	if out.Bank, err = s.bank(ctx, userID, curr); err != nil {
		return Overview{}, err
	}
	views, err := s.budgets.List(ctx, userID, storage.BudgetFilter{Status: ledger.BudgetActive})
	if err != nil {
		return Overview{}, err
	}
	if out.Budgets, err = s.budgets.Summarize(curr, views); err != nil {
		return Overview{}, err
	}
	if out.Investments, err = s.investments.Stats(ctx, userID, curr); err != nil {
		return Overview{}, err
	}
	return out, nil
}

func (s *service) trend(ctx context.Context, userID uuid.UUID, curr string, to time.Time) ([]MonthTotal, error) {
	last := time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)
	start := last.AddDate(0, -(trendMonths - 1), 0)
	end := last.AddDate(0, 1, -1)

	months := make([]MonthTotal, trendMonths)
	index := make(map[string]int, trendMonths)
	for i := range months {
		key := start.AddDate(0, i, 0).Format("2006-01")
		months[i] = MonthTotal{Month: key, Income: ledger.Zero(curr), Expenses: ledger.Zero(curr)}
		index[key] = i
	}

	expenses, err := s.cashflow.ListExpenses(ctx, userID, storage.ExpenseFilter{From: &start, To: &end})
	if err != nil {
		return nil, err
	}
	for _, e := range expenses {
		if e.Amount.Curr().Code() != curr {
			continue
		}
		m := &months[index[e.Date.Format("2006-01")]]
		if m.Expenses, err = m.Expenses.Add(e.Amount); err != nil {
			return nil, err
		}
	}
	incomes, err := s.cashflow.ListIncomes(ctx, userID, storage.IncomeFilter{From: &start, To: &end})
	if err != nil {
		return nil, err
	}
	for _, in := range incomes {
		if in.Amount.Curr().Code() != curr {
			continue
		}
		m := &months[index[in.Date.Format("2006-01")]]
		if m.Income, err = m.Income.Add(in.Amount); err != nil {
			return nil, err
		}
	}
	return months, nil
}

func (s *service) bank(ctx context.Context, userID uuid.UUID, curr string) (BankSummary, error) {
	accs, err := s.accounts.List(ctx, userID)
	if err != nil {
		return BankSummary{}, err
	}
	out := BankSummary{TotalBalance: ledger.Zero(curr), TotalInitial: ledger.Zero(curr)}
	for _, a := range accs {
		if !a.Active || a.Currency != curr {
			continue
		}
		out.Accounts++
		if out.TotalBalance, err = out.TotalBalance.Add(a.CurrentBalance); err != nil {
			return BankSummary{}, err
		}
		if out.TotalInitial, err = out.TotalInitial.Add(a.InitialAmount); err != nil {
			return BankSummary{}, err
		}
	}
	if out.NetChange, err = out.TotalBalance.Sub(out.TotalInitial); err != nil {
		return BankSummary{}, err
	}
	return out, nil
}
