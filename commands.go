package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/lecap-inc/kaiten-billing/pkg/database"
	"github.com/lecap-inc/kaiten-billing/pkg/models"
)

func newMigrateCommand(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if err := migrate(cfg, logger); err != nil {
				return err
			}
			sqlDB, err := database.OpenSQL(cfg.Database.ConnectionString())
			if err != nil {
				return err
			}
			defer sqlDB.Close()
			status, err := database.GetMigrationStatus(sqlDB, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d of %d (dirty=%v)\n",
				status.CurrentVersion, status.LatestVersion, status.Dirty)
			return nil
		},
	}
}

func newSyncCommand(load loader) *cobra.Command {
	var projectID, boardID string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile stored rate records with Kaiten once",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (projectID == "") != (boardID == "") {
				return fmt.Errorf("--project and --board must be given together")
			}
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if err := migrate(cfg, logger); err != nil {
				return err
			}
			db, err := connectDB(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			a, err := newApp(cfg, db, nil, logger)
			if err != nil {
				return err
			}

			if projectID != "" {
				result, err := a.sync.SyncBoard(cmd.Context(), projectID, boardID)
				if err != nil {
					return err
				}
				return printYAML(cmd, result)
			}
			results, err := a.sync.SyncAll(cmd.Context())
			if err != nil {
				return err
			}
			return printYAML(cmd, results)
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "sync only this project's board (requires --board)")
	cmd.Flags().StringVar(&boardID, "board", "", "board id")
	return cmd
}

func newReportCommand(load loader) *cobra.Command {
	var req models.ReportRequest

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build a billing dataset and print it as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			db, err := connectDB(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			a, err := newApp(cfg, db, nil, logger)
			if err != nil {
				return err
			}

			ds, err := a.reports.Generate(cmd.Context(), req)
			if err != nil {
				return err
			}
			if ds.Degraded {
				logger.Warn("Report built from partial data", zap.Bool("refused", ds.Refused))
			}
			return printYAML(cmd, ds)
		},
	}
	cmd.Flags().StringVar(&req.ProjectID, "project", "", "Kaiten project (space) id")
	cmd.Flags().StringVar(&req.BoardID, "board", "", "Kaiten board id")
	cmd.Flags().StringVar(&req.StartDate, "start", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&req.EndDate, "end", "", "last day, YYYY-MM-DD")
	for _, name := range []string{"project", "board", "start", "end"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func printYAML(cmd *cobra.Command, v any) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return enc.Close()
}
