package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/auto-apply/internal/observability"
	"github.com/jonathan/auto-apply/internal/types"
)

var applyCommand = &cobra.Command{
	Use:   "apply",
	Short: "Apply to a single job posting",
	Long: `Runs one application end-to-end: resolves the resume to attach, opens the
posting in a browser, fills and submits the form, and records the outcome.

With --enqueue the request is pushed onto the durable queue for the worker
pool instead of running in this process.

Configuration can be loaded from a JSON file using --config. Command-line
arguments override config file values.`,
	RunE: runApplyCmd,
}

var (
	applyConfigPath  string
	applyUserID      string
	applyJobURL      string
	applyJobID       string
	applyCompany     string
	applyTitle       string
	applyDatabaseURL string
	applyAPIKey      string
	applyHeadless    bool
	applyProxyServer string
	applyEnqueue     bool
	applyVerbose     bool
)

func init() {
	// Config file flag (processed first)
	applyCommand.Flags().StringVar(&applyConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	applyCommand.Flags().StringVarP(&applyUserID, "user-id", "u", "", "Candidate user ID (required)")
	applyCommand.Flags().StringVar(&applyJobURL, "job-url", "", "URL of the job posting to apply to (required)")
	applyCommand.Flags().StringVar(&applyJobID, "job-id", "", "Job ID (optional, generated if omitted)")
	applyCommand.Flags().StringVar(&applyCompany, "company", "", "Employer name (improves artifact reuse)")
	applyCommand.Flags().StringVar(&applyTitle, "title", "", "Job title")
	applyCommand.Flags().BoolVar(&applyHeadless, "headless", true, "Run the browser headless")
	applyCommand.Flags().StringVar(&applyProxyServer, "proxy-server", "", "Proxy server for the stealth path (optional, defaults to PROXY_SERVER env var)")
	applyCommand.Flags().BoolVar(&applyEnqueue, "enqueue", false, "Queue the request for the worker pool instead of running directly")
	applyCommand.Flags().BoolVarP(&applyVerbose, "verbose", "v", false, "Print a formatted record summary")

	// API key can be passed as a flag, or read from env var GEMINI_API_KEY
	applyCommand.Flags().StringVar(&applyAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")

	// Database URL for record persistence
	applyCommand.Flags().StringVar(&applyDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	rootCmd.AddCommand(applyCommand)
}

func runApplyCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadConfig(applyConfigPath)
	if err != nil {
		return err
	}

	// Apply CLI overrides; only flags explicitly set win over the config file.
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = applyDatabaseURL
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = applyAPIKey
	}
	if cmd.Flags().Changed("headless") {
		cfg.Headless = applyHeadless
	}
	if cmd.Flags().Changed("proxy-server") {
		cfg.Proxy.Server = applyProxyServer
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = applyVerbose
	}

	if applyUserID == "" {
		return fmt.Errorf("--user-id is required")
	}
	if applyJobURL == "" {
		return fmt.Errorf("--job-url is required")
	}
	userID, err := uuid.Parse(applyUserID)
	if err != nil {
		return fmt.Errorf("invalid user-id format: %w", err)
	}

	jobID := uuid.New()
	if applyJobID != "" {
		jobID, err = uuid.Parse(applyJobID)
		if err != nil {
			return fmt.Errorf("invalid job-id format: %w", err)
		}
	}

	req := types.ApplicationRequest{
		UserID: userID,
		Job: types.JobContext{
			JobID:   jobID,
			URL:     applyJobURL,
			Company: applyCompany,
			Title:   applyTitle,
		},
	}

	s, err := buildStack(ctx, &cfg, applyEnqueue)
	if err != nil {
		return err
	}
	defer s.close()

	if applyEnqueue {
		if err := s.host.Enqueue(ctx, req); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Queued application for %s\n", applyJobURL)
		return nil
	}

	record, err := s.host.Execute(ctx, req)
	if err != nil {
		return err
	}

	if cfg.Verbose {
		observability.NewPrinter(os.Stdout).PrintRecord(record)
	} else {
		fmt.Fprintf(os.Stdout, "Application %s: %s\n", record.ID, record.Status)
	}

	// A failed application is a clean exit; the record carries the detail.
	return nil
}
