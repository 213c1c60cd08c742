package cmd

import (
	"context"
	"fmt"

	"github.com/jmehdipour/sqlperf-lab/internal/config"
	"github.com/jmehdipour/sqlperf-lab/internal/db"
	"github.com/jmehdipour/sqlperf-lab/internal/kafka"
	"github.com/jmehdipour/sqlperf-lab/internal/logger"
	"github.com/jmehdipour/sqlperf-lab/internal/repository"
	"github.com/jmehdipour/sqlperf-lab/internal/service/perf"
	"github.com/jmehdipour/sqlperf-lab/internal/service/report"
	"go.uber.org/zap"
)

// setup loads config and the logger every command starts from.
func setup(opts config.LoadOptions) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgPath, opts)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.Init(cfg.Log.Level)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

// newPerfService builds the perf service plus the report sinks enabled in cfg. The returned
// cleanup closes the sinks.
func newPerfService(ctx context.Context, cfg config.Config, log *zap.Logger) (*perf.Service, func(), error) {
	var (
		sinks   []report.Sink
		closers []func() error
	)
	cleanup := func() {
		for _, c := range closers {
			_ = c()
		}
	}

	if cfg.Report.Enabled {
		if len(cfg.Report.Kafka.Brokers) > 0 {
			p := kafka.NewProducer(kafka.ProducerConfig{
				Brokers:      cfg.Report.Kafka.Brokers,
				Topic:        cfg.Report.Kafka.Topic,
				BatchTimeout: cfg.Report.Kafka.BatchTimeout,
			})
			closers = append(closers, p.Close)
			sinks = append(sinks, report.NewKafkaSink(p))
		}
		if cfg.Report.ClickHouse.DSN != "" {
			ch, err := db.NewClickHouseConnection(ctx, cfg.Report.ClickHouse)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("clickhouse connect: %w", err)
			}
			closers = append(closers, ch.Close)
			sinks = append(sinks, report.NewClickHouseSink(repository.NewCHRunsRepository(ch)))
		}
		br := cfg.Report.Breaker
		for i, s := range sinks {
			sinks[i] = report.WithBreaker(s, br.FailThreshold, br.OpenFor)
		}
		log.Info("run reporting enabled", zap.Int("sinks", len(sinks)))
	}

	svc := perf.New(db.NewProvider(cfg.Postgres), report.NewRecorder(log, sinks...), log)
	return svc, cleanup, nil
}
