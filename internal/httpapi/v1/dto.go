package v1

import (
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"

	"github.com/tinoosan/finledger/internal/ledger"
	"github.com/tinoosan/finledger/internal/meta"
	"github.com/tinoosan/finledger/internal/service/budget"
	"github.com/tinoosan/finledger/internal/service/cashflow"
	"github.com/tinoosan/finledger/internal/service/dashboard"
	"github.com/tinoosan/finledger/internal/service/investment"
	"github.com/tinoosan/finledger/internal/service/journal"
)

// Money is serialized as a two-place decimal string, dates as YYYY-MM-DD.

func amt(a money.Amount) string { return ledger.FormatAmount(a) }

func optDay(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := ledger.FormatDate(*t)
	return &s
}

func pct(d decimal.Decimal) string { return d.Round(2).String() }

// Bank accounts

type postAccountRequest struct {
	BankName       string            `json:"bank_name"`
	AccountName    string            `json:"account_name"`
	AccountNumber  string            `json:"account_number"`
	AccountType    string            `json:"account_type"`
	Currency       string            `json:"currency"`
	Branch         string            `json:"branch"`
	IFSCCode       string            `json:"ifsc_code"`
	SwiftCode      string            `json:"swift_code"`
	InitialAmount  string            `json:"initial_amount"`
	AdditionalInfo map[string]string `json:"additional_info,omitempty"`
}

type patchAccountRequest struct {
	BankName       *string           `json:"bank_name"`
	AccountName    *string           `json:"account_name"`
	AccountNumber  *string           `json:"account_number"`
	AccountType    *string           `json:"account_type"`
	Branch         *string           `json:"branch"`
	IFSCCode       *string           `json:"ifsc_code"`
	SwiftCode      *string           `json:"swift_code"`
	IsActive       *bool             `json:"is_active"`
	AdditionalInfo map[string]string `json:"additional_info"`

	// Accepted only so that attempts to write them answer 422 instead of 400.
	Currency         *string `json:"currency"`
	InitialAmount    *string `json:"initial_amount"`
	CurrentBalance   *string `json:"current_balance"`
	AvailableBalance *string `json:"available_balance"`
}

type accountResponse struct {
	ID               uuid.UUID     `json:"id"`
	UserID           uuid.UUID     `json:"user_id"`
	BankName         string        `json:"bank_name"`
	AccountName      string        `json:"account_name"`
	AccountNumber    string        `json:"account_number"`
	AccountType      string        `json:"account_type"`
	Currency         string        `json:"currency"`
	Branch           string        `json:"branch,omitempty"`
	IFSCCode         string        `json:"ifsc_code,omitempty"`
	SwiftCode        string        `json:"swift_code,omitempty"`
	InitialAmount    string        `json:"initial_amount"`
	CurrentBalance   string        `json:"current_balance"`
	AvailableBalance string        `json:"available_balance"`
	AdditionalInfo   meta.Metadata `json:"additional_info,omitempty"`
	IsActive         bool          `json:"is_active"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

func toAccountResponse(a ledger.BankAccount) accountResponse {
	return accountResponse{
		ID:               a.ID,
		UserID:           a.UserID,
		BankName:         a.BankName,
		AccountName:      a.AccountName,
		AccountNumber:    a.AccountNumber,
		AccountType:      a.AccountType,
		Currency:         a.Currency,
		Branch:           a.Branch,
		IFSCCode:         a.IFSC,
		SwiftCode:        a.SWIFT,
		InitialAmount:    amt(a.InitialAmount),
		CurrentBalance:   amt(a.CurrentBalance),
		AvailableBalance: amt(a.AvailableBalance),
		AdditionalInfo:   a.AdditionalInfo,
		IsActive:         a.Active,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

type rebalanceResponse struct {
	AccountID       uuid.UUID `json:"account_id"`
	StoredBalance   string    `json:"stored_balance"`
	ComputedBalance string    `json:"computed_balance"`
	InSync          bool      `json:"in_sync"`
}

// Transactions

type transactionRequest struct {
	BankAccountID   uuid.UUID        `json:"bank_account_id"`
	Type            ledger.Direction `json:"type"`
	Amount          string           `json:"amount"`
	TransactionDate string           `json:"transaction_date"`
	Description     string           `json:"description"`
}

type transactionResponse struct {
	ID              uuid.UUID        `json:"id"`
	BankAccountID   uuid.UUID        `json:"bank_account_id"`
	Type            ledger.Direction `json:"type"`
	Amount          string           `json:"amount"`
	Currency        string           `json:"currency"`
	TransactionDate string           `json:"transaction_date"`
	Description     string           `json:"description,omitempty"`
	CauseType       ledger.CauseKind `json:"cause_type"`
	CauseID         *uuid.UUID       `json:"cause_id,omitempty"`
	IsReversed      bool             `json:"is_reversed"`
	ReversedAt      *time.Time       `json:"reversed_at,omitempty"`
	ReplacesID      *uuid.UUID       `json:"replaces_id,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

func toTransactionResponse(e ledger.LedgerEntry) transactionResponse {
	out := transactionResponse{
		ID:              e.ID,
		BankAccountID:   e.AccountID,
		Type:            e.Direction,
		Amount:          amt(e.Amount),
		Currency:        e.Amount.Curr().Code(),
		TransactionDate: ledger.FormatDate(e.Date),
		Description:     e.Description,
		CauseType:       e.Cause.Kind,
		IsReversed:      e.IsReversed,
		ReversedAt:      e.ReversedAt,
		ReplacesID:      e.ReplacesID,
		CreatedAt:       e.CreatedAt,
	}
	if e.Cause.ID != uuid.Nil {
		id := e.Cause.ID
		out.CauseID = &id
	}
	return out
}

type transactionSummary struct {
	Count    int    `json:"count"`
	TotalIn  string `json:"total_in"`
	TotalOut string `json:"total_out"`
	Net      string `json:"net"`
}

func toTransactionSummary(s journal.Summary) transactionSummary {
	return transactionSummary{Count: s.Count, TotalIn: amt(s.TotalIn), TotalOut: amt(s.TotalOut), Net: amt(s.Net)}
}

type listTransactionsResponse struct {
	Items   []transactionResponse `json:"items"`
	Summary transactionSummary    `json:"summary"`
}

// Expenses and incomes

type expenseRequest struct {
	Title         string             `json:"title"`
	Description   string             `json:"description"`
	Amount        string             `json:"amount"`
	Currency      string             `json:"currency"`
	ExpenseDate   string             `json:"expense_date"`
	CategoryID    *uuid.UUID         `json:"category_id"`
	PaymentMethod string             `json:"payment_method"`
	Tags          []string           `json:"tags"`
	ExpenseType   ledger.ExpenseType `json:"expense_type"`
	RelatedType   ledger.SchemaKind  `json:"related_type"`
	RelatedID     *uuid.UUID         `json:"related_id"`
	BankAccountID *uuid.UUID         `json:"bank_account_id"`
}

type expenseResponse struct {
	ID            uuid.UUID          `json:"id"`
	Title         string             `json:"title"`
	Description   string             `json:"description,omitempty"`
	Amount        string             `json:"amount"`
	Currency      string             `json:"currency"`
	ExpenseDate   string             `json:"expense_date"`
	CategoryID    *uuid.UUID         `json:"category_id,omitempty"`
	PaymentMethod string             `json:"payment_method,omitempty"`
	Tags          []string           `json:"tags"`
	ExpenseType   ledger.ExpenseType `json:"expense_type"`
	RelatedType   ledger.SchemaKind  `json:"related_type,omitempty"`
	RelatedID     *uuid.UUID         `json:"related_id,omitempty"`
	BankAccountID *uuid.UUID         `json:"bank_account_id,omitempty"`
	TransactionID *uuid.UUID         `json:"transaction_id,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

func toExpenseResponse(e ledger.Expense) expenseResponse {
	out := expenseResponse{
		ID:            e.ID,
		Title:         e.Title,
		Description:   e.Description,
		Amount:        amt(e.Amount),
		Currency:      e.Amount.Curr().Code(),
		ExpenseDate:   ledger.FormatDate(e.Date),
		CategoryID:    e.CategoryID,
		PaymentMethod: e.PaymentMethod,
		Tags:          e.Tags,
		ExpenseType:   e.Type,
		BankAccountID: e.BankAccountID,
		TransactionID: e.EntryID,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	if e.Related != nil {
		id := e.Related.ID
		out.RelatedType, out.RelatedID = e.Related.Kind, &id
	}
	return out
}

type incomeRequest struct {
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Amount             string     `json:"amount"`
	Currency           string     `json:"currency"`
	IncomeDate         string     `json:"income_date"`
	CategoryID         *uuid.UUID `json:"category_id"`
	Source             string     `json:"source"`
	IsRecurring        bool       `json:"is_recurring"`
	RecurringFrequency string     `json:"recurring_frequency"`
	Tags               []string   `json:"tags"`
	ClientID           *uuid.UUID `json:"client_id"`
	BankAccountID      *uuid.UUID `json:"bank_account_id"`
}

type incomeResponse struct {
	ID                 uuid.UUID  `json:"id"`
	Title              string     `json:"title"`
	Description        string     `json:"description,omitempty"`
	Amount             string     `json:"amount"`
	Currency           string     `json:"currency"`
	IncomeDate         string     `json:"income_date"`
	CategoryID         *uuid.UUID `json:"category_id,omitempty"`
	Source             string     `json:"source,omitempty"`
	IsRecurring        bool       `json:"is_recurring"`
	RecurringFrequency string     `json:"recurring_frequency,omitempty"`
	Tags               []string   `json:"tags"`
	ClientID           *uuid.UUID `json:"client_id,omitempty"`
	BankAccountID      *uuid.UUID `json:"bank_account_id,omitempty"`
	TransactionID      *uuid.UUID `json:"transaction_id,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func toIncomeResponse(in ledger.Income) incomeResponse {
	out := incomeResponse{
		ID:                 in.ID,
		Title:              in.Title,
		Description:        in.Description,
		Amount:             amt(in.Amount),
		Currency:           in.Amount.Curr().Code(),
		IncomeDate:         ledger.FormatDate(in.Date),
		CategoryID:         in.CategoryID,
		Source:             in.Source,
		IsRecurring:        in.IsRecurring,
		RecurringFrequency: in.RecurringFrequency,
		Tags:               in.Tags,
		ClientID:           in.ClientID,
		BankAccountID:      in.BankAccountID,
		TransactionID:      in.EntryID,
		CreatedAt:          in.CreatedAt,
		UpdatedAt:          in.UpdatedAt,
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	return out
}

type categoryTotalResponse struct {
	CategoryID *uuid.UUID `json:"category_id"`
	Name       string     `json:"name"`
	Count      int        `json:"count"`
	Total      string     `json:"total"`
}

func toCategoryTotals(rows []cashflow.CategoryTotal) []categoryTotalResponse {
	out := make([]categoryTotalResponse, 0, len(rows))
	for _, c := range rows {
		out = append(out, categoryTotalResponse{CategoryID: c.CategoryID, Name: c.Name, Count: c.Count, Total: amt(c.Total)})
	}
	return out
}

type statsResponse struct {
	Count      int                     `json:"count"`
	Total      string                  `json:"total"`
	Average    string                  `json:"average"`
	ByCategory []categoryTotalResponse `json:"by_category"`
	ByType     map[string]string       `json:"by_type,omitempty"`
}

func toStatsResponse(st cashflow.Stats) statsResponse {
	out := statsResponse{
		Count:      st.Count,
		Total:      amt(st.Total),
		Average:    amt(st.Average),
		ByCategory: toCategoryTotals(st.ByCategory),
	}
	if st.ByType != nil {
		out.ByType = byTypeMap(st.ByType)
	}
	return out
}

func byTypeMap(m map[ledger.ExpenseType]money.Amount) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[string(k)] = amt(v)
	}
	return out
}

// Budgets

type budgetRequest struct {
	BudgetName      string     `json:"budget_name"`
	Description     string     `json:"description"`
	CategoryID      *uuid.UUID `json:"category_id"`
	BudgetAmount    string     `json:"budget_amount"`
	Currency        string     `json:"currency"`
	StartDate       string     `json:"start_date"`
	EndDate         string     `json:"end_date"`
	PeriodType      string     `json:"period_type"`
	AlertPercentage *string    `json:"alert_percentage"`
}

type budgetPatchRequest struct {
	BudgetName      *string    `json:"budget_name"`
	Description     *string    `json:"description"`
	CategoryID      *uuid.UUID `json:"category_id"`
	ClearCategory   bool       `json:"clear_category"`
	BudgetAmount    *string    `json:"budget_amount"`
	StartDate       *string    `json:"start_date"`
	EndDate         *string    `json:"end_date"`
	PeriodType      *string    `json:"period_type"`
	AlertPercentage *string    `json:"alert_percentage"`
	Status          *string    `json:"status"`
}

type budgetResponse struct {
	ID               uuid.UUID           `json:"id"`
	BudgetName       string              `json:"budget_name"`
	Description      string              `json:"description,omitempty"`
	CategoryID       *uuid.UUID          `json:"category_id,omitempty"`
	BudgetAmount     string              `json:"budget_amount"`
	SpentAmount      string              `json:"spent_amount"`
	Currency         string              `json:"currency"`
	StartDate        string              `json:"start_date"`
	EndDate          string              `json:"end_date"`
	PeriodType       ledger.PeriodType   `json:"period_type"`
	AlertPercentage  string              `json:"alert_percentage"`
	Status           ledger.BudgetStatus `json:"status"`
	RemainingAmount  string              `json:"remaining_amount"`
	SpentPercentage  string              `json:"spent_percentage"`
	IsOverBudget     bool                `json:"is_over_budget"`
	IsAlertTriggered bool                `json:"is_alert_triggered"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

func toBudgetResponse(v budget.View) budgetResponse {
	return budgetResponse{
		ID:               v.ID,
		BudgetName:       v.Name,
		Description:      v.Description,
		CategoryID:       v.CategoryID,
		BudgetAmount:     amt(v.Amount),
		SpentAmount:      amt(v.SpentAmount),
		Currency:         v.Amount.Curr().Code(),
		StartDate:        ledger.FormatDate(v.StartDate),
		EndDate:          ledger.FormatDate(v.EndDate),
		PeriodType:       v.PeriodType,
		AlertPercentage:  pct(v.AlertPercentage),
		Status:           v.Status,
		RemainingAmount:  amt(v.RemainingAmount),
		SpentPercentage:  pct(v.SpentPercentage),
		IsOverBudget:     v.IsOverBudget,
		IsAlertTriggered: v.IsAlertTriggered,
		CreatedAt:        v.CreatedAt,
		UpdatedAt:        v.UpdatedAt,
	}
}

func toBudgetResponses(views []budget.View) []budgetResponse {
	out := make([]budgetResponse, 0, len(views))
	for _, v := range views {
		out = append(out, toBudgetResponse(v))
	}
	return out
}

type categoryAverageResponse struct {
	CategoryID             *uuid.UUID `json:"category_id"`
	Count                  int        `json:"count"`
	TotalBudget            string     `json:"total_budget"`
	TotalSpent             string     `json:"total_spent"`
	AverageSpentPercentage string     `json:"average_spent_percentage"`
}

type budgetSummaryResponse struct {
	TotalBudgets        int                       `json:"total_budgets"`
	TotalBudgetAmount   string                    `json:"total_budget_amount"`
	TotalSpentAmount    string                    `json:"total_spent_amount"`
	ActiveBudgets       int                       `json:"active_budgets"`
	OverBudgetCount     int                       `json:"over_budget_count"`
	AlertTriggeredCount int                       `json:"alert_triggered_count"`
	ByCategory          []categoryAverageResponse `json:"by_category"`
}

func toBudgetSummary(s budget.Summary) budgetSummaryResponse {
	out := budgetSummaryResponse{
		TotalBudgets:        s.TotalBudgets,
		TotalBudgetAmount:   amt(s.TotalBudgetAmount),
		TotalSpentAmount:    amt(s.TotalSpentAmount),
		ActiveBudgets:       s.ActiveBudgets,
		OverBudgetCount:     s.OverBudgetCount,
		AlertTriggeredCount: s.AlertTriggeredCount,
		ByCategory:          make([]categoryAverageResponse, 0, len(s.ByCategory)),
	}
	for _, c := range s.ByCategory {
		out.ByCategory = append(out.ByCategory, categoryAverageResponse{
			CategoryID:             c.CategoryID,
			Count:                  c.Count,
			TotalBudget:            amt(c.TotalBudget),
			TotalSpent:             amt(c.TotalSpent),
			AverageSpentPercentage: pct(c.AverageSpentPercentage),
		})
	}
	return out
}

type listBudgetsResponse struct {
	Items   []budgetResponse      `json:"items"`
	Summary budgetSummaryResponse `json:"summary"`
}

type analyticsResponse struct {
	Period  budget.Period         `json:"period"`
	From    string                `json:"from"`
	To      string                `json:"to"`
	Budgets []budgetResponse      `json:"budgets"`
	Summary budgetSummaryResponse `json:"summary"`
}

// Investments

// investmentRequest creates any schema kind; fields not used by Kind are ignored.
type investmentRequest struct {
	Kind               ledger.SchemaKind `json:"kind"`
	Currency           string            `json:"currency"`
	BankAccountID      *uuid.UUID        `json:"bank_account_id"`
	Name               string            `json:"name"`
	AccountNumber      string            `json:"account_number"`
	MonthlyInstallment string            `json:"monthly_installment"`
	PrincipalAmount    string            `json:"principal_amount"`
	InterestRate       string            `json:"interest_rate"`
	TenureMonths       int               `json:"tenure_months"`
	StartDate          string            `json:"start_date"`
	MaturityDate       *string           `json:"maturity_date"`
	InterestPayout     string            `json:"interest_payout"`
	AutoRenewal        bool              `json:"auto_renewal"`
	Lender             string            `json:"lender"`
	LoanType           string            `json:"loan_type"`
	MonthlyEMI         string            `json:"monthly_emi"`
	Notes              string            `json:"notes"`
}

type investmentPatchRequest struct {
	Name             *string    `json:"name"`
	Notes            *string    `json:"notes"`
	Status           *string    `json:"status"`
	AutoRenewal      *bool      `json:"auto_renewal"`
	BankAccountID    *uuid.UUID `json:"bank_account_id"`
	ClearBankAccount bool       `json:"clear_bank_account"`
}

type dpsResponse struct {
	Kind                  ledger.SchemaKind `json:"kind"`
	ID                    uuid.UUID         `json:"id"`
	BankAccountID         *uuid.UUID        `json:"bank_account_id,omitempty"`
	Name                  string            `json:"name"`
	AccountNumber         string            `json:"account_number,omitempty"`
	MonthlyInstallment    string            `json:"monthly_installment"`
	InterestRate          string            `json:"interest_rate"`
	TenureMonths          int               `json:"tenure_months"`
	StartDate             string            `json:"start_date"`
	MaturityDate          string            `json:"maturity_date"`
	MaturityAmount        string            `json:"maturity_amount"`
	TotalDeposited        string            `json:"total_deposited"`
	PaidInstallments      int               `json:"paid_installments"`
	RemainingInstallments int               `json:"remaining_installments"`
	LastPaymentDate       *string           `json:"last_payment_date"`
	NextPaymentDate       *string           `json:"next_payment_date"`
	Status                string            `json:"status"`
	Notes                 string            `json:"notes,omitempty"`
}

type fdrResponse struct {
	Kind            ledger.SchemaKind `json:"kind"`
	ID              uuid.UUID         `json:"id"`
	BankAccountID   *uuid.UUID        `json:"bank_account_id,omitempty"`
	Name            string            `json:"name"`
	AccountNumber   string            `json:"account_number,omitempty"`
	PrincipalAmount string            `json:"principal_amount"`
	InterestRate    string            `json:"interest_rate"`
	TenureMonths    int               `json:"tenure_months"`
	StartDate       string            `json:"start_date"`
	MaturityDate    string            `json:"maturity_date"`
	MaturityAmount  string            `json:"maturity_amount"`
	InterestPayout  string            `json:"interest_payout"`
	AutoRenewal     bool              `json:"auto_renewal"`
	Status          string            `json:"status"`
	Notes           string            `json:"notes,omitempty"`
}

type loanResponse struct {
	Kind               ledger.SchemaKind `json:"kind"`
	ID                 uuid.UUID         `json:"id"`
	BankAccountID      *uuid.UUID        `json:"bank_account_id,omitempty"`
	Lender             string            `json:"lender"`
	LoanType           string            `json:"loan_type"`
	PrincipalAmount    string            `json:"principal_amount"`
	InterestRate       string            `json:"interest_rate"`
	TenureMonths       int               `json:"tenure_months"`
	MonthlyEMI         string            `json:"monthly_emi"`
	TotalAmountPayable string            `json:"total_amount_payable"`
	AmountPaid         string            `json:"amount_paid"`
	OutstandingBalance string            `json:"outstanding_balance"`
	PenaltyAmount      string            `json:"penalty_amount"`
	PaidEMIs           int               `json:"paid_emis"`
	RemainingEMIs      int               `json:"remaining_emis"`
	StartDate          string            `json:"start_date"`
	EndDate            string            `json:"end_date"`
	LastPaymentDate    *string           `json:"last_payment_date"`
	NextPaymentDate    *string           `json:"next_payment_date"`
	Status             string            `json:"status"`
	Notes              string            `json:"notes,omitempty"`
}

func toSchemaResponse(sch ledger.Schema) any {
	switch v := sch.(type) {
	case ledger.RecurringDeposit:
		return dpsResponse{
			Kind:                  ledger.SchemaDPS,
			ID:                    v.ID,
			BankAccountID:         v.BankAccountID,
			Name:                  v.Name,
			AccountNumber:         v.AccountNumber,
			MonthlyInstallment:    amt(v.MonthlyInstallment),
			InterestRate:          v.InterestRate.String(),
			TenureMonths:          v.TenureMonths,
			StartDate:             ledger.FormatDate(v.StartDate),
			MaturityDate:          ledger.FormatDate(v.MaturityDate),
			MaturityAmount:        amt(v.MaturityAmount),
			TotalDeposited:        amt(v.TotalDeposited),
			PaidInstallments:      v.PaidInstallments,
			RemainingInstallments: v.RemainingInstallments,
			LastPaymentDate:       optDay(v.LastPaymentDate),
			NextPaymentDate:       optDay(v.NextPaymentDate),
			Status:                v.Status,
			Notes:                 v.Notes,
		}
	case ledger.FixedDeposit:
		return fdrResponse{
			Kind:            ledger.SchemaFDR,
			ID:              v.ID,
			BankAccountID:   v.BankAccountID,
			Name:            v.Name,
			AccountNumber:   v.AccountNumber,
			PrincipalAmount: amt(v.PrincipalAmount),
			InterestRate:    v.InterestRate.String(),
			TenureMonths:    v.TenureMonths,
			StartDate:       ledger.FormatDate(v.StartDate),
			MaturityDate:    ledger.FormatDate(v.MaturityDate),
			MaturityAmount:  amt(v.MaturityAmount),
			InterestPayout:  v.InterestPayout,
			AutoRenewal:     v.AutoRenewal,
			Status:          v.Status,
			Notes:           v.Notes,
		}
	case ledger.Loan:
		return loanResponse{
			Kind:               ledger.SchemaLoan,
			ID:                 v.ID,
			BankAccountID:      v.BankAccountID,
			Lender:             v.Lender,
			LoanType:           v.LoanType,
			PrincipalAmount:    amt(v.PrincipalAmount),
			InterestRate:       v.InterestRate.String(),
			TenureMonths:       v.TenureMonths,
			MonthlyEMI:         amt(v.MonthlyEMI),
			TotalAmountPayable: amt(v.TotalAmountPayable),
			AmountPaid:         amt(v.AmountPaid),
			OutstandingBalance: amt(v.OutstandingBalance),
			PenaltyAmount:      amt(v.PenaltyAmount),
			PaidEMIs:           v.PaidEMIs,
			RemainingEMIs:      v.RemainingEMIs,
			StartDate:          ledger.FormatDate(v.StartDate),
			EndDate:            ledger.FormatDate(v.EndDate),
			LastPaymentDate:    optDay(v.LastPaymentDate),
			NextPaymentDate:    optDay(v.NextPaymentDate),
			Status:             v.Status,
			Notes:              v.Notes,
		}
	}
	return nil
}

type kindStatsResponse struct {
	Count    int    `json:"count"`
	Active   int    `json:"active"`
	Invested string `json:"invested"`
	Maturity string `json:"maturity"`
}

type investmentStatsResponse struct {
	Count    int                                     `json:"count"`
	ByKind   map[ledger.SchemaKind]kindStatsResponse `json:"by_kind"`
	ByStatus map[string]int                          `json:"by_status"`
}

func toInvestmentStats(st investment.Stats) investmentStatsResponse {
	out := investmentStatsResponse{
		Count:    st.Count,
		ByKind:   make(map[ledger.SchemaKind]kindStatsResponse, len(st.ByKind)),
		ByStatus: st.ByStatus,
	}
	for k, v := range st.ByKind {
		out.ByKind[k] = kindStatsResponse{Count: v.Count, Active: v.Active, Invested: amt(v.Invested), Maturity: amt(v.Maturity)}
	}
	return out
}

// Categories

type categoryRequest struct {
	Name        string              `json:"name"`
	Type        ledger.CategoryKind `json:"type"`
	Color       string              `json:"color"`
	Description string              `json:"description"`
	ParentID    *uuid.UUID          `json:"parent_id"`
	IsActive    *bool               `json:"is_active"`
	SortOrder   int                 `json:"sort_order"`
}

type categoryPatchRequest struct {
	Name        *string              `json:"name"`
	Type        *ledger.CategoryKind `json:"type"`
	Color       *string              `json:"color"`
	Description *string              `json:"description"`
	ParentID    *uuid.UUID           `json:"parent_id"`
	ClearParent bool                 `json:"clear_parent"`
	IsActive    *bool                `json:"is_active"`
	SortOrder   *int                 `json:"sort_order"`
}

type categoryResponse struct {
	ID          uuid.UUID           `json:"id"`
	Name        string              `json:"name"`
	Slug        string              `json:"slug"`
	Type        ledger.CategoryKind `json:"type"`
	Color       string              `json:"color,omitempty"`
	Description string              `json:"description,omitempty"`
	ParentID    *uuid.UUID          `json:"parent_id"`
	IsActive    bool                `json:"is_active"`
	SortOrder   int                 `json:"sort_order"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func toCategoryResponse(c ledger.Category) categoryResponse {
	return categoryResponse{
		ID: c.ID, Name: c.Name, Slug: c.Slug, Type: c.Kind, Color: c.Color, Description: c.Description,
		ParentID: c.ParentID, IsActive: c.Active, SortOrder: c.SortOrder, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt,
	}
}

func toCategoryList(list []ledger.Category) map[string]any {
	out := make([]categoryResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toCategoryResponse(c))
	}
	return map[string]any{"categories": out}
}

// Clients

type clientRequest struct {
	Name    string              `json:"name"`
	Email   string              `json:"email"`
	Phone   string              `json:"phone"`
	Address string              `json:"address"`
	Company string              `json:"company"`
	Notes   string              `json:"notes"`
	Status  ledger.ClientStatus `json:"status"`
}

type clientResponse struct {
	ID        uuid.UUID           `json:"id"`
	Name      string              `json:"name"`
	Email     string              `json:"email,omitempty"`
	Phone     string              `json:"phone,omitempty"`
	Address   string              `json:"address,omitempty"`
	Company   string              `json:"company,omitempty"`
	Notes     string              `json:"notes,omitempty"`
	Status    ledger.ClientStatus `json:"status"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

func toClientResponse(c ledger.Client) clientResponse {
	return clientResponse{
		ID: c.ID, Name: c.Name, Email: c.Email, Phone: c.Phone, Address: c.Address, Company: c.Company,
		Notes: c.Notes, Status: c.Status, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt,
	}
}

// Dashboard

type monthTotalResponse struct {
	Month    string `json:"month"`
	Income   string `json:"income"`
	Expenses string `json:"expenses"`
}

type bankSummaryResponse struct {
	Accounts     int    `json:"accounts"`
	TotalBalance string `json:"total_balance"`
	TotalInitial string `json:"total_initial"`
	NetChange    string `json:"net_change"`
}

type dashboardResponse struct {
	From           string                  `json:"from"`
	To             string                  `json:"to"`
	Currency       string                  `json:"currency"`
	TotalIncome    string                  `json:"total_income"`
	TotalExpenses  string                  `json:"total_expenses"`
	Net            string                  `json:"net"`
	Trend          []monthTotalResponse    `json:"trend"`
	TopCategories  []categoryTotalResponse `json:"top_categories"`
	ExpensesByType map[string]string       `json:"expenses_by_type"`
	Bank           bankSummaryResponse     `json:"bank"`
	Budgets        budgetSummaryResponse   `json:"budgets"`
	Investments    investmentStatsResponse `json:"investments"`
}

func toDashboardResponse(curr string, o dashboard.Overview) dashboardResponse {
	out := dashboardResponse{
		From:           ledger.FormatDate(o.From),
		To:             ledger.FormatDate(o.To),
		Currency:       curr,
		TotalIncome:    amt(o.TotalIncome),
		TotalExpenses:  amt(o.TotalExpenses),
		Net:            amt(o.Net),
		Trend:          make([]monthTotalResponse, 0, len(o.Trend)),
		TopCategories:  toCategoryTotals(o.TopCategories),
		ExpensesByType: byTypeMap(o.ExpensesByType),
		Bank: bankSummaryResponse{
			Accounts:     o.Bank.Accounts,
			TotalBalance: amt(o.Bank.TotalBalance),
			TotalInitial: amt(o.Bank.TotalInitial),
			NetChange:    amt(o.Bank.NetChange),
		},
		Budgets:     toBudgetSummary(o.Budgets),
		Investments: toInvestmentStats(o.Investments),
	}
	for _, m := range o.Trend {
		out.Trend = append(out.Trend, monthTotalResponse{Month: m.Month, Income: amt(m.Income), Expenses: amt(m.Expenses)})
	}
	return out
}
