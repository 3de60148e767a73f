package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lecap-inc/kaiten-billing/pkg/handlers"
	"github.com/lecap-inc/kaiten-billing/pkg/middleware"
	"github.com/lecap-inc/kaiten-billing/pkg/services"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the background sync scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger.Info("Configuration loaded",
				zap.String("version", cfg.Version),
				zap.String("env", cfg.Env),
				zap.String("kaiten", cfg.Kaiten.APIBaseURL()),
				zap.String("database", cfg.Database.Host+"/"+cfg.Database.Database),
				zap.Bool("billing_filter", cfg.Kaiten.BillingFilterConfigured()))

			if err := migrate(cfg, logger); err != nil {
				return err
			}
			db, err := connectDB(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			a, err := newApp(cfg, db, reg, logger)
			if err != nil {
				return err
			}

			limiter := middleware.NewRateLimiter(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst, logger)

			mux := http.NewServeMux()
			handlers.NewHealthHandler(cfg, db, logger).RegisterRoutes(mux)
			handlers.NewProjectsHandler(a.projects, logger).RegisterRoutes(mux)
			handlers.NewRatesHandler(a.rates, logger).RegisterRoutes(mux)
			handlers.NewRoleOverridesHandler(a.overrides, logger).RegisterRoutes(mux)
			handlers.NewSyncHandler(a.sync, logger).RegisterRoutes(mux, limiter.HandlerFunc)
			handlers.NewReportsHandler(a.reports, logger).RegisterRoutes(mux, limiter.HandlerFunc)
			mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

			var scheduler *services.SyncScheduler
			if cfg.Sync.Schedule != "" {
				scheduler = services.NewSyncScheduler(a.sync, cfg.Sync.Schedule, cfg.Sync.Timeout, logger)
				if err := scheduler.Start(ctx); err != nil {
					return err
				}
			}

			srv := &http.Server{
				Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
				Handler:           middleware.RequestID(middleware.RequestLogger(logger)(mux)),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Starting kaiten-billing", zap.String("addr", srv.Addr), zap.String("version", cfg.Version))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return err
				}
			case <-ctx.Done():
			}

			logger.Info("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Server shutdown failed", zap.Error(err))
			}
			if scheduler != nil {
				scheduler.Stop()
			}
			return nil
		},
	}
}
