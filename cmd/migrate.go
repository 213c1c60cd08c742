package cmd

import (
	"fmt"

	"github.com/jmehdipour/sqlperf-lab/internal/config"
	"github.com/jmehdipour/sqlperf-lab/internal/db"
	"github.com/jmehdipour/sqlperf-lab/internal/repository"
	"github.com/jmehdipour/sqlperf-lab/migrations"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations (dev: DROP & CREATE tables)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup(config.LoadOptions{})
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()
		ctx := cmd.Context()

		sqlDB, err := db.DialPostgres(ctx, cfg.Postgres.DSN())
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer sqlDB.Close()

		ms, err := migrations.All()
		if err != nil {
			return fmt.Errorf("read migrations: %w", err)
		}
		for _, m := range ms {
			if _, err := sqlDB.ExecContext(ctx, m.SQL); err != nil {
				return fmt.Errorf("exec migration %s: %w", m.Name, err)
			}
			log.Info("migration applied", zap.String("file", m.Name))
		}

		if cfg.Report.ClickHouse.DSN != "" {
			ch, err := db.NewClickHouseConnection(ctx, cfg.Report.ClickHouse)
			if err != nil {
				return fmt.Errorf("clickhouse connect: %w", err)
			}
			defer ch.Close()

			if _, err := ch.ExecContext(ctx, `CREATE DATABASE IF NOT EXISTS sqlperf`); err != nil {
				return fmt.Errorf("create clickhouse database: %w", err)
			}
			if _, err := ch.ExecContext(ctx, repository.RunsTableDDL); err != nil {
				return fmt.Errorf("create runs table: %w", err)
			}
			log.Info("clickhouse runs table ready")
		}

		fmt.Fprintln(cmd.OutOrStdout(), ">> Migration complete")
		return nil
	},
}
