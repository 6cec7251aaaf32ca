// Package jobs runs periodic maintenance: an integrity sweep comparing every
// account balance with its entry history, and budget expiry.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"github.com/robfig/cron/v3"

	"github.com/tinoosan/finledger/internal/ledger"
	"github.com/tinoosan/finledger/internal/metrics"
	"github.com/tinoosan/finledger/internal/service/journal"
)

type Accounts interface {
	AllBankAccounts(ctx context.Context) ([]ledger.BankAccount, error)
}

type Ledger interface {
	CheckBalance(ctx context.Context, userID, accountID uuid.UUID) (journal.BalanceCheck, error)
}

type Budgets interface {
	ExpireBudgets(ctx context.Context, asOf time.Time) (int, error)
}

// Drift is an account whose stored balance disagrees with its entries.
type Drift struct {
	UserID    uuid.UUID
	AccountID uuid.UUID
	Stored    money.Amount
	Computed  money.Amount
}

type Runner struct {
	accounts Accounts
	ledger   Ledger
	budgets  Budgets
	log      *slog.Logger
	now      func() time.Time
}

func New(accounts Accounts, l Ledger, budgets Budgets, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{accounts: accounts, ledger: l, budgets: budgets, log: logger, now: func() time.Time { return time.Now().UTC() }}
}

// CheckIntegrity rebalances every account and reports the ones that drifted.
// The account list only names what to check; each comparison uses balances
// read under the account lock. A failure on one account is logged and the
// sweep continues.
func (r *Runner) CheckIntegrity(ctx context.Context) ([]Drift, error) {
	accs, err := r.accounts.AllBankAccounts(ctx)
	if err != nil {
		metrics.JobRuns.WithLabelValues("integrity", "error").Inc()
		return nil, err
	}
	var drift []Drift
	failed := 0
	for _, a := range accs {
		c, err := r.ledger.CheckBalance(ctx, a.UserID, a.ID)
		if err != nil {
			failed++
			r.log.Error("integrity check failed", "user_id", a.UserID, "account_id", a.ID, "err", err)
			continue
		}
		if !c.InSync() {
			drift = append(drift, Drift{UserID: a.UserID, AccountID: a.ID, Stored: c.Stored, Computed: c.Computed})
			r.log.Warn("balance drift",
				"user_id", a.UserID,
				"account_id", a.ID,
				"stored", ledger.FormatAmount(c.Stored),
				"computed", ledger.FormatAmount(c.Computed),
			)
		}
	}
	metrics.IntegrityDrift.Set(float64(len(drift)))
	outcome := "ok"
	if failed > 0 || len(drift) > 0 {
		outcome = "drift"
	}
	metrics.JobRuns.WithLabelValues("integrity", outcome).Inc()
	r.log.Info("integrity sweep complete", "accounts", len(accs), "drifted", len(drift), "failed", failed)
	return drift, nil
}

// ExpireBudgets completes budgets whose window has ended.
func (r *Runner) ExpireBudgets(ctx context.Context) (int, error) {
	n, err := r.budgets.ExpireBudgets(ctx, r.now())
	outcome := "ok"
	if err != nil {
		outcome = "error"
		r.log.Error("budget expiry failed", "err", err)
	}
	metrics.JobRuns.WithLabelValues("budget_expiry", outcome).Inc()
	return n, err
}

// Schedule registers both jobs on a new cron scheduler. An empty spec skips
// that job. The caller starts and stops the returned scheduler; ctx bounds
// every run.
func (r *Runner) Schedule(ctx context.Context, integritySpec, budgetSpec string) (*cron.Cron, error) {
	c := cron.New()
	if integritySpec != "" {
		if _, err := c.AddFunc(integritySpec, func() { _, _ = r.CheckIntegrity(ctx) }); err != nil {
			return nil, err
		}
	}
	if budgetSpec != "" {
		if _, err := c.AddFunc(budgetSpec, func() { _, _ = r.ExpireBudgets(ctx) }); err != nil {
			return nil, err
		}
	}
	return c, nil
}
