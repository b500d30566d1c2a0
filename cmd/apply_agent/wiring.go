package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/auto-apply/internal/artifact"
	"github.com/jonathan/auto-apply/internal/browser"
	"github.com/jonathan/auto-apply/internal/config"
	"github.com/jonathan/auto-apply/internal/cycle"
	"github.com/jonathan/auto-apply/internal/db"
	"github.com/jonathan/auto-apply/internal/forms"
	"github.com/jonathan/auto-apply/internal/host"
	"github.com/jonathan/auto-apply/internal/logging"
	"github.com/jonathan/auto-apply/internal/orchestrator"
	"github.com/jonathan/auto-apply/internal/verification"
)

// stack is the assembled application stack shared by the CLI commands.
type stack struct {
	cfg      *config.Config
	log      *zap.Logger
	database *db.DB
	host     *host.Host
	metrics  *host.Metrics
}

func (s *stack) close() {
	if s.database != nil {
		s.database.Close()
	}
	_ = s.log.Sync()
}

// buildStack wires the full orchestration stack from configuration. When
// withQueue is set a Redis-backed queue is attached to the host.
func buildStack(ctx context.Context, cfg *config.Config, withQueue bool) (*stack, error) {
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable or --db-url flag is required")
	}
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// The generator is optional; without an API key the resolver falls back
	// to stored documents only.
	var generator artifact.Generator
	if cfg.APIKey != "" {
		gen, err := artifact.NewGeminiGenerator(ctx, cfg.APIKey, cfg.ArtifactDir, log)
		if err != nil {
			database.Close()
			return nil, err
		}
		generator = gen
	}
	resolver := artifact.NewResolver(database, generator, cfg, log)

	launcher := browser.NewChromeLauncher(log)
	acquirer := browser.NewAcquirer(launcher, cfg, log)

	locator := forms.NewLocator(cfg, log)
	filler := forms.NewHeuristicFiller(log)
	submitter := forms.NewClickSubmitter(cfg, log)
	validator := forms.NewHeuristicValidator(cfg, log)

	// Mailbox access needs a per-user OAuth client; until one is configured
	// the poller runs without a searcher and challenges stay unresolved.
	poller := verification.NewPoller(nil, cfg, log)

	controller := cycle.NewController(locator, filler, submitter, validator, poller, cfg, log)
	runner := orchestrator.New(database, resolver, acquirer, controller, cfg, log)

	var queue *host.Queue
	if withQueue {
		queue, err = host.NewQueue(cfg)
		if err != nil {
			database.Close()
			return nil, err
		}
		if err := queue.Ping(ctx); err != nil {
			database.Close()
			return nil, err
		}
	}

	metrics := host.NewMetrics()
	h := host.New(runner, queue, metrics, cfg, log)

	return &stack{cfg: cfg, log: log, database: database, host: h, metrics: metrics}, nil
}

// loadConfig loads the optional config file, applies environment values,
// and merges defaults.
func loadConfig(path string) (config.Config, error) {
	cfg := config.Config{Headless: true}
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}
	cfg.ApplyEnv()
	cfg = cfg.MergeWithDefaults(config.Defaults())
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
