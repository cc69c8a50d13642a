package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/threadline-dev/threadline/backend/internal/router"
	"github.com/threadline-dev/threadline/backend/internal/setup"
	"github.com/threadline-dev/threadline/shared/logger"
	"github.com/threadline-dev/threadline/shared/telemetry"
)

const shutdownTimeout = 15 * time.Second

var version = "dev"

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
				ServiceName:    "threadline",
				ServiceVersion: version,
				Exporter:       cfg.Public.TraceExporter,
			})
			if err != nil {
				return fmt.Errorf("init telemetry: %w", err)
			}
			defer func() {
				if err := shutdownTracing(context.Background()); err != nil {
					logger.Log.Error("failed to flush traces", "error", err)
				}
			}()

			deps, err := setup.SetupDependencies(ctx, cfg)
			if err != nil {
				return fmt.Errorf("setup: %w", err)
			}
			defer deps.Close()

			if err := deps.Storage.Migrate(ctx); err != nil {
				return err
			}

			handler, limiters := router.New(deps)
			defer limiters.Stop()

			srv := &http.Server{
				Addr:              fmt.Sprintf(":%d", cfg.Public.HTTPPort),
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}

			deps.Repairer.StartBackgroundRepair(ctx, cfg.Public.RepairInterval)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				logger.Log.Info("server started", "addr", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				logger.Log.Info("shutting down server")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}
}
