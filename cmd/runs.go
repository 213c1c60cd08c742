package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmehdipour/sqlperf-lab/internal/config"
	"github.com/jmehdipour/sqlperf-lab/internal/kafka"
	"github.com/jmehdipour/sqlperf-lab/internal/model"
	"github.com/jmehdipour/sqlperf-lab/internal/worker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newRunsCmd returns the parent "runs" command.
func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect reported runs",
	}
	cmd.AddCommand(runsTailCmd)
	return cmd
}

var runsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Follow run events on the report Kafka topic and print them as JSON lines",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup(config.LoadOptions{})
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		kc := cfg.Report.Kafka
		if len(kc.Brokers) == 0 {
			return errors.New("report.kafka.brokers is empty")
		}

		consumer := kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers: kc.Brokers,
			Topic:   kc.Topic,
			GroupID: kc.GroupID,
		})
		defer consumer.Close()

		enc := json.NewEncoder(cmd.OutOrStdout())
		w := worker.NewRunTail(consumer, func(_ context.Context, ev model.RunEvent) error {
			if err := enc.Encode(ev); err != nil {
				return fmt.Errorf("write event: %w", err)
			}
			return nil
		}, log)

		// graceful shutdown
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Info("tailing runs", zap.String("topic", kc.Topic), zap.String("group", kc.GroupID))
		return w.Run(ctx)
	},
}
