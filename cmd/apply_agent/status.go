package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/auto-apply/internal/db"
	"github.com/jonathan/auto-apply/internal/observability"
	"github.com/jonathan/auto-apply/internal/types"
)

var statusCommand = &cobra.Command{
	Use:   "status",
	Short: "List application records",
	Long:  `Lists application records, newest first, optionally filtered by user and status.`,
	RunE:  runStatusCmd,
}

var (
	statusConfigPath  string
	statusDatabaseURL string
	statusUserID      string
	statusFilter      string
	statusRecordID    string
	statusLimit       int
)

func init() {
	statusCommand.Flags().StringVar(&statusConfigPath, "config", "", "Path to config.json file")
	statusCommand.Flags().StringVar(&statusDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	statusCommand.Flags().StringVarP(&statusUserID, "user-id", "u", "", "Filter by user ID")
	statusCommand.Flags().StringVar(&statusFilter, "status", "", "Filter by status (PENDING, APPLYING, SUBMITTED, MANUAL_REQUIRED, FAILED)")
	statusCommand.Flags().StringVar(&statusRecordID, "record-id", "", "Show one record in full")
	statusCommand.Flags().IntVar(&statusLimit, "limit", 20, "Maximum number of records to list")

	rootCmd.AddCommand(statusCommand)
}

func runStatusCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadConfig(statusConfigPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = statusDatabaseURL
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable or --db-url flag is required")
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	printer := observability.NewPrinter(os.Stdout)

	if statusRecordID != "" {
		id, err := uuid.Parse(statusRecordID)
		if err != nil {
			return fmt.Errorf("invalid record-id format: %w", err)
		}
		record, err := database.GetRecord(ctx, id)
		if err != nil {
			return err
		}
		if record == nil {
			return fmt.Errorf("record not found: %s", id)
		}
		printer.PrintRecord(record)
		return nil
	}

	filters := db.RecordFilters{
		Status: types.Status(statusFilter),
		Limit:  statusLimit,
	}
	if statusUserID != "" {
		filters.UserID, err = uuid.Parse(statusUserID)
		if err != nil {
			return fmt.Errorf("invalid user-id format: %w", err)
		}
	}

	records, err := database.ListRecords(ctx, filters)
	if err != nil {
		return err
	}
	printer.PrintRecordList(records)
	return nil
}
