package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/tinoosan/finledger/internal/config"
	"github.com/tinoosan/finledger/internal/storage/postgres"
)

var cmdMigrate = &cli.Command{
	Name:  "migrate",
	Usage: "Database migration commands",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "database-url",
			Sources: cli.EnvVars("DATABASE_URL"),
			Usage:   "PostgreSQL connection string; falls back to database.url from the config",
		},
	},
	Commands: []*cli.Command{
		{
			Name:   "up",
			Usage:  "Run all pending migrations",
			Action: migrateAction(postgres.MigrateUp),
		},
		{
			Name:   "down",
			Usage:  "Roll back the last migration",
			Action: migrateAction(postgres.MigrateDown),
		},
		{
			Name:   "status",
			Usage:  "Show migration status",
			Action: migrateAction(postgres.MigrateStatus),
		},
	},
}

func migrateAction(op postgres.MigrateOp) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		dsn := cmd.String("database-url")
		if dsn == "" {
			cfg, err := config.Load(cmd.Root().String("config"))
			if err != nil {
				return err
			}
			dsn = cfg.Database.URL
		}
		if dsn == "" {
			return errors.New("database-url is required (set via --database-url, DATABASE_URL or database.url)")
		}
		if err := postgres.Migrate(ctx, dsn, op); err != nil {
			return fmt.Errorf("migrate %s: %w", op, err)
		}
		return nil
	}
}
