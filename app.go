package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/lecap-inc/kaiten-billing/pkg/config"
	"github.com/lecap-inc/kaiten-billing/pkg/database"
	"github.com/lecap-inc/kaiten-billing/pkg/kaiten"
	"github.com/lecap-inc/kaiten-billing/pkg/repositories"
	"github.com/lecap-inc/kaiten-billing/pkg/retry"
	"github.com/lecap-inc/kaiten-billing/pkg/services"
)

// app holds the wired service graph shared by the server and the CLI commands.
type app struct {
	rates     services.RatesService
	overrides services.RoleOverrideService
	sync      services.RateSyncService
	projects  services.ProjectsService
	reports   services.ReportService
}

func connectDB(ctx context.Context, cfg *config.Config) (*database.DB, error) {
	return database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
}

func migrate(cfg *config.Config, logger *zap.Logger) error {
	sqlDB, err := database.OpenSQL(cfg.Database.ConnectionString())
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	return database.RunMigrations(sqlDB, logger)
}

// newApp validates the Kaiten settings and wires repositories and services.
// reg may be nil when metrics are not exported.
func newApp(cfg *config.Config, db *database.DB, reg prometheus.Registerer, logger *zap.Logger) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.Report.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid report.timezone %q: %w", cfg.Report.Timezone, err)
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxRetries = cfg.Kaiten.MaxRetries
	retryCfg.InitialDelay = cfg.Kaiten.BackoffBase
	retryCfg.MaxDelay = cfg.Kaiten.BackoffCap

	var metrics *kaiten.Metrics
	if reg != nil {
		metrics = kaiten.NewMetrics(reg)
	}

	client := kaiten.NewClient(kaiten.Options{
		BaseURL:       cfg.Kaiten.APIBaseURL(),
		Token:         cfg.Kaiten.Token,
		MinInterval:   cfg.Kaiten.MinInterval,
		Retry:         retryCfg,
		Timeout:       cfg.Kaiten.Timeout,
		LookupTimeout: cfg.Kaiten.LookupTimeout,
		Debug:         cfg.Kaiten.Debug,
		ShowSecrets:   cfg.Kaiten.ShowSecrets,
		Metrics:       metrics,
	}, logger)

	defaultRepo := repositories.NewDefaultRateRepository(db)
	projectRateRepo := repositories.NewProjectRateRepository(db)
	overrideRepo := repositories.NewRoleOverrideRepository(db)

	pool := services.NewWorkerPool(services.WorkerPoolConfig{MaxConcurrent: cfg.Report.FetchConcurrency}, logger)
	resolver := services.NewRateResolver(client, defaultRepo, projectRateRepo, cfg.Report.ZeroRateLabel, logger)
	overrides := services.NewRoleOverrideService(overrideRepo, logger)

	return &app{
		rates:     services.NewRatesService(db, defaultRepo, projectRateRepo, logger),
		overrides: overrides,
		sync: services.NewRateSyncService(client, defaultRepo, projectRateRepo, services.RateSyncConfig{
			StaleAfter:    cfg.Sync.StaleAfter,
			TouchInterval: cfg.Sync.TouchInterval,
		}, logger),
		projects: services.NewProjectsService(client, resolver, pool, logger),
		reports: services.NewReportService(client, resolver, overrides, services.NewRubleSpeller(), pool, services.ReportConfig{
			BillingFieldID:    cfg.Kaiten.BillingFieldID,
			BillingFieldValue: cfg.Kaiten.BillingFieldValue,
			UnknownSpecialist: cfg.Report.UnknownSpecialist,
			Currency:          cfg.Report.Currency,
			HoursUnit:         cfg.Report.HoursUnit,
			Location:          loc,
		}, logger),
	}, nil
}
