package cmd

import (
	"fmt"

	"github.com/jmehdipour/sqlperf-lab/internal/config"
	"github.com/jmehdipour/sqlperf-lab/internal/db"
	"github.com/jmehdipour/sqlperf-lab/internal/service/seed"
	"github.com/spf13/cobra"
)

var seedPlan seed.Plan

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Replace customers and orders with deterministic demo data",
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

		if err := seed.NewSeeder(sqlDB, log).Run(ctx, seedPlan); err != nil {
			return fmt.Errorf("seed: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), ">> Seeded %d customers, %d orders\n",
			seedPlan.Customers, seedPlan.Customers*seedPlan.OrdersPerCustomer)
		return nil
	},
}

func init() {
	seedCmd.Flags().IntVar(&seedPlan.Customers, "customers", 10000, "number of customers")
	seedCmd.Flags().IntVar(&seedPlan.OrdersPerCustomer, "orders-per-customer", 20, "orders per customer")
	seedCmd.Flags().Uint64Var(&seedPlan.Seed, "seed", 1, "random seed for order amounts")
}
