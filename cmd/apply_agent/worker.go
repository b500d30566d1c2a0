package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/jonathan/auto-apply/internal/observability"
)

var workerCommand = &cobra.Command{
	Use:   "worker",
	Short: "Run the worker pool against the durable queue",
	Long: `Starts a pool of workers that consume queued application requests from
Redis and run them under the configured concurrency cap. Runs until
interrupted; in-flight applications finish before shutdown.`,
	RunE: runWorkerCmd,
}

var (
	workerConfigPath  string
	workerDatabaseURL string
	workerRedisAddr   string
	workerPoolSize    int
	workerMetricsAddr string
	workerVerbose     bool
)

func init() {
	workerCommand.Flags().StringVar(&workerConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	workerCommand.Flags().StringVar(&workerDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	workerCommand.Flags().StringVar(&workerRedisAddr, "redis-addr", "", "Redis address for the durable queue")
	workerCommand.Flags().IntVar(&workerPoolSize, "pool-size", 0, "Worker pool size")
	workerCommand.Flags().StringVar(&workerMetricsAddr, "metrics-addr", "", "Address to serve Prometheus metrics on (e.g. :9090, disabled if empty)")
	workerCommand.Flags().BoolVarP(&workerVerbose, "verbose", "v", false, "Print an activity summary on shutdown")

	rootCmd.AddCommand(workerCommand)
}

func runWorkerCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(workerConfigPath)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = workerDatabaseURL
	}
	if cmd.Flags().Changed("redis-addr") {
		cfg.RedisAddr = workerRedisAddr
	}
	if cmd.Flags().Changed("pool-size") {
		cfg.PoolSize = workerPoolSize
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := buildStack(ctx, &cfg, true)
	if err != nil {
		return err
	}
	defer s.close()

	if workerMetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
		server := &http.Server{Addr: workerMetricsAddr, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fmt.Fprintf(os.Stderr, "metrics server error: %v\n", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	err = s.host.Serve(ctx)
	if workerVerbose {
		observability.NewPrinter(os.Stdout).PrintStats(s.host.Stats(context.Background()))
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
