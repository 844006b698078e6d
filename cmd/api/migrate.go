package main

import (
	"context"
	"database/sql"
	"fmt"

	"todocalendar/internal/app"
	"todocalendar/internal/config"
	"todocalendar/migrations"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	var dsn string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect database migrations",
	}
	cmd.PersistentFlags().StringVar(&dsn, "dsn", "", "Postgres DSN (defaults to PG_DSN from the configuration)")

	step := func(use, short string, run func(context.Context, *sql.DB) error) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDB(cmd.Context(), dsn, run)
			},
		}
	}
	cmd.AddCommand(
		step("up", "Apply all pending migrations", migrations.Up),
		step("down", "Roll back the latest migration", migrations.Down),
		step("status", "Show applied and pending migrations", migrations.Status),
	)
	return cmd
}

func withDB(ctx context.Context, dsn string, run func(context.Context, *sql.DB) error) error {
	pg := config.PGConfig{DSN: dsn, MaxConns: 2}
	if dsn == "" {
		cfg, _, err := loadConfig()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		pg = cfg.PG
	}
	pool, db, err := app.OpenPostgres(ctx, pg)
	if err != nil {
		return err
	}
	defer pool.Close()
	defer db.Close()
	return run(ctx, db.DB)
}
