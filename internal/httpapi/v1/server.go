// Package v1 wires the HTTP surface of finledger.
// It keeps handlers thin, delegating business rules to the service layer.
package v1

import (
	"context"
	"log/slog"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tinoosan/finledger/internal/service/account"
	"github.com/tinoosan/finledger/internal/service/budget"
	"github.com/tinoosan/finledger/internal/service/cashflow"
	"github.com/tinoosan/finledger/internal/service/category"
	"github.com/tinoosan/finledger/internal/service/client"
	"github.com/tinoosan/finledger/internal/service/dashboard"
	"github.com/tinoosan/finledger/internal/service/investment"
	"github.com/tinoosan/finledger/internal/service/journal"
)

// ReadyChecker reports whether the backing store can serve requests.
type ReadyChecker interface {
	Ready(ctx context.Context) error
}

// Deps are the services the API delegates to.
type Deps struct {
	Accounts    account.Service
	Ledger      journal.Service
	Cashflow    cashflow.Service
	Budgets     budget.Service
	Investments investment.Service
	Categories  category.Service
	Clients     client.Service
	Dashboard   dashboard.Service
	Ready       ReadyChecker
}

// Options tune request handling.
type Options struct {
	// Currency is used for aggregates when a request names none.
	Currency string
	// JWTSecret enables bearer auth. When empty the acting user comes from ?user_id=.
	JWTSecret string
	JWTIssuer string
}

// Server wires handlers and middleware using Chi.
type Server struct {
	accounts    account.Service
	ledger      journal.Service
	cashflow    cashflow.Service
	budgets     budget.Service
	investments investment.Service
	categories  category.Service
	clients     client.Service
	dashboard   dashboard.Service
	ready       ReadyChecker
	currency    string
	log         *slog.Logger
	rt          *chi.Mux
}

// New constructs the HTTP server with routes and middleware.
// The logger is used by request logging and panic recovery.
func New(d Deps, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Currency == "" {
		opts.Currency = "USD"
	}
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))
	r.Use(metricsMiddleware)

	s := &Server{
		accounts:    d.Accounts,
		ledger:      d.Ledger,
		cashflow:    d.Cashflow,
		budgets:     d.Budgets,
		investments: d.Investments,
		categories:  d.Categories,
		clients:     d.Clients,
		dashboard:   d.Dashboard,
		ready:       d.Ready,
		currency:    opts.Currency,
		log:         logger,
		rt:          r,
	}
	s.routes(actingUser(opts.JWTSecret, opts.JWTIssuer))
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

// routes declares the public HTTP API endpoints.
func (s *Server) routes(auth func(http.Handler) http.Handler) {
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Method(http.MethodGet, "/metrics", metricsHandler())

	s.rt.Route("/v1", func(r chi.Router) {
		r.Use(auth)

		r.Post("/bank-accounts", s.postAccount)
		r.Post("/bank-accounts/batch", s.postAccountsBatch)
		r.Get("/bank-accounts", s.listAccounts)
		r.Get("/bank-accounts/{id}", s.getAccount)
		r.Patch("/bank-accounts/{id}", s.updateAccount)
		r.Delete("/bank-accounts/{id}", s.deactivateAccount)
		r.Get("/bank-accounts/{id}/rebalance", s.rebalanceAccount)

		r.Post("/transactions", s.postTransaction)
		r.Get("/transactions", s.listTransactions)
		r.Get("/transactions/{id}", s.getTransaction)
		r.Put("/transactions/{id}", s.putTransaction)
		r.Delete("/transactions/{id}", s.deleteTransaction)

		r.Post("/expenses", s.postExpense)
		r.Get("/expenses", s.listExpenses)
		r.Get("/expenses/stats", s.expenseStats)
		r.Get("/expenses/{id}", s.getExpense)
		r.Put("/expenses/{id}", s.putExpense)
		r.Delete("/expenses/{id}", s.deleteExpense)

		r.Post("/incomes", s.postIncome)
		r.Get("/incomes", s.listIncomes)
		r.Get("/incomes/stats", s.incomeStats)
		r.Get("/incomes/{id}", s.getIncome)
		r.Put("/incomes/{id}", s.putIncome)
		r.Delete("/incomes/{id}", s.deleteIncome)

		r.Post("/budgets", s.postBudget)
		r.Get("/budgets", s.listBudgets)
		r.Get("/budgets/analytics", s.budgetAnalytics)
		r.Get("/budgets/{id}", s.getBudget)
		r.Patch("/budgets/{id}", s.patchBudget)
		r.Delete("/budgets/{id}", s.deleteBudget)

		r.Post("/investments", s.postInvestment)
		r.Get("/investments", s.listInvestments)
		r.Get("/investments/stats", s.investmentStats)
		r.Get("/investments/{kind}/{id}", s.getInvestment)
		r.Patch("/investments/{kind}/{id}", s.patchInvestment)
		r.Delete("/investments/{kind}/{id}", s.deleteInvestment)

		r.Post("/categories", s.postCategory)
		r.Get("/categories", s.listCategories)
		r.Get("/categories/parents", s.listParentCategories)
		r.Get("/categories/{id}", s.getCategory)
		r.Patch("/categories/{id}", s.patchCategory)
		r.Delete("/categories/{id}", s.deleteCategory)

		r.Post("/clients", s.postClient)
		r.Get("/clients", s.listClients)
		r.Get("/clients/{id}", s.getClient)
		r.Put("/clients/{id}", s.putClient)
		r.Delete("/clients/{id}", s.deleteClient)

		r.Get("/dashboard", s.getDashboard)
	})
}
