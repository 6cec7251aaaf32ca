package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/tinoosan/finledger/internal/config"
	httpapi "github.com/tinoosan/finledger/internal/httpapi/v1"
	"github.com/tinoosan/finledger/internal/jobs"
	"github.com/tinoosan/finledger/internal/ledger"
	"github.com/tinoosan/finledger/internal/service/account"
	"github.com/tinoosan/finledger/internal/service/budget"
	"github.com/tinoosan/finledger/internal/service/cashflow"
	"github.com/tinoosan/finledger/internal/service/category"
	"github.com/tinoosan/finledger/internal/service/client"
	"github.com/tinoosan/finledger/internal/service/dashboard"
	"github.com/tinoosan/finledger/internal/service/investment"
	"github.com/tinoosan/finledger/internal/service/journal"
	"github.com/tinoosan/finledger/internal/storage"
	"github.com/tinoosan/finledger/internal/storage/memory"
	"github.com/tinoosan/finledger/internal/storage/postgres"
)

var cmdServe = &cli.Command{
	Name:    "serve",
	Aliases: []string{"start"},
	Usage:   "Start the HTTP API",
	Action:  serve,
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.Root().String("config"))
	if err != nil {
		return err
	}
	logger := config.NewLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	var store storage.Store
	if cfg.Database.URL != "" {
		pg, err := postgres.Open(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pg.Close()
		store = pg
		logger.Info("storage backend: postgres")
	} else {
		store = memory.New()
		logger.Info("storage backend: memory")
	}

	accounts := account.New(store, logger)
	ledgerSvc := journal.New(store, logger)
	investments := investment.New(store, logger)
	cf := cashflow.New(store, ledgerSvc, investments, logger)
	budgets := budget.New(store, logger)
	categories := category.New(store, logger)

	// The memory store starts empty, so it always gets a user to play with.
	if cfg.Ledger.DevSeed || cfg.Database.URL == "" {
		if err := devSeed(ctx, logger, cfg.Ledger.Currency, accounts, categories); err != nil {
			logger.Error("dev seed failed", "err", err)
		}
	}

	if cfg.Jobs.Enabled {
		runner := jobs.New(store, ledgerSvc, budgets, logger)
		c, err := runner.Schedule(ctx, cfg.Jobs.IntegritySchedule, cfg.Jobs.BudgetExpirySchedule)
		if err != nil {
			return fmt.Errorf("schedule jobs: %w", err)
		}
		c.Start()
		defer func() { <-c.Stop().Done() }()
		logger.Info("jobs scheduled", "integrity", cfg.Jobs.IntegritySchedule, "budget_expiry", cfg.Jobs.BudgetExpirySchedule)
	}

	api := httpapi.New(httpapi.Deps{
		Accounts:    accounts,
		Ledger:      ledgerSvc,
		Cashflow:    cf,
		Budgets:     budgets,
		Investments: investments,
		Categories:  categories,
		Clients:     client.New(store, logger),
		Dashboard:   dashboard.New(accounts, cf, budgets, investments),
		Ready:       store,
	}, httpapi.Options{
		Currency:  cfg.Ledger.Currency,
		JWTSecret: cfg.Auth.JWTSecret,
		JWTIssuer: cfg.Auth.Issuer,
	}, logger)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("finledger listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error("server shutdown error", "err", err)
		}
		return nil
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	}
}

// devSeed creates a user with one bank account and the default categories,
// and prints the ids for easy copy/paste.
func devSeed(ctx context.Context, l *slog.Logger, curr string, accounts account.Service, categories category.Service) error {
	userID := uuid.New()
	acc, err := accounts.Create(ctx, userID, account.CreateInput{
		BankName:      "Dev Bank",
		AccountName:   "Everyday",
		AccountNumber: "DEV-" + userID.String()[:8],
		AccountType:   "savings",
		Currency:      curr,
		InitialAmount: ledger.MustAmount(curr, "1000.00"),
	})
	if err != nil {
		return err
	}
	cats, err := categories.SeedDefaults(ctx, userID)
	if err != nil {
		return err
	}
	l.Info("DEV seed", "user_id", userID.String(), "bank_account_id", acc.ID.String(), "categories", len(cats))

	fmt.Println("==================== DEV SEED ====================")
	fmt.Printf("user_id: %s\n", userID)
	fmt.Printf("bank_account_id: %s\n", acc.ID)
	fmt.Printf("categories: %d\n", len(cats))
	fmt.Println("==================================================")
	return nil
}
