package cmd

import (
	"github.com/jmehdipour/sqlperf-lab/internal/config"
	"github.com/jmehdipour/sqlperf-lab/internal/dashboard"
	"github.com/spf13/cobra"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Run the HTML comparison dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup(config.LoadOptions{})
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		ctx := cmd.Context()

		svc, cleanup, err := newPerfService(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer cleanup()

		server, err := dashboard.NewServer(cfg, svc, log)
		if err != nil {
			return err
		}
		return serveUntilSignal(log, cfg.HTTP.DashboardAddr, server)
	},
}
