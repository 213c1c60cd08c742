package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmehdipour/sqlperf-lab/internal/config"
	"github.com/jmehdipour/sqlperf-lab/internal/db"
	httpSrv "github.com/jmehdipour/sqlperf-lab/internal/http"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Run the JSON HTTP API (requires DB_HOST, DB_PORT, DB_NAME, DB_USER, DB_PASSWORD)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup(config.LoadOptions{RequireDBEnv: true})
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		ctx := cmd.Context()

		redisClient, err := db.NewRedisClient(ctx, db.RedisOpts{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		if err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
		if redisClient != nil {
			defer func() { _ = redisClient.Close() }()
		}

		svc, cleanup, err := newPerfService(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer cleanup()

		server := httpSrv.NewServer(cfg, svc, redisClient, log)
		return serveUntilSignal(log, cfg.HTTP.APIAddr, server)
	},
}

type startStopper interface {
	Start(addr string) error
	Shutdown(ctx context.Context) error
}

// serveUntilSignal runs srv until SIGINT/SIGTERM or a listen error, then shuts it down.
func serveUntilSignal(log *zap.Logger, addr string, srv startStopper) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(addr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		log.Info("signal received, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server exited", zap.Error(err))
			runErr = err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)

	return runErr
}
