package main

import (
	"fmt"
	"os"
	_ "time/tzdata" // report.timezone must resolve on images without zoneinfo

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lecap-inc/kaiten-billing/pkg/config"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "kaiten-billing",
		Short:         "Billing reports and rate management for Kaiten boards",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (environment variables override it)")

	load := func() (*config.Config, *zap.Logger, error) {
		cfg, err := config.Load(configPath, Version)
		if err != nil {
			return nil, nil, err
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create logger: %w", err)
		}
		return cfg, logger, nil
	}

	root.AddCommand(
		newServeCommand(load),
		newMigrateCommand(load),
		newSyncCommand(load),
		newReportCommand(load),
	)
	return root
}

type loader func() (*config.Config, *zap.Logger, error)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Env == "local" || cfg.Kaiten.Debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
