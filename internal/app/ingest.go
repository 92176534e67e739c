package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/signaldesk/signaldesk/internal/cli"
	"github.com/signaldesk/signaldesk/internal/config"
	"github.com/signaldesk/signaldesk/internal/db"
	"github.com/signaldesk/signaldesk/internal/logging"
	"github.com/signaldesk/signaldesk/internal/pipeline"
)

func runIngest(args []string) int {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 3*time.Minute, "Command timeout, separate from the cycle's own DIRECT_MODE_TIMEOUT_MS budget")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("ingest command failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	runner := pipeline.New(cfg, pool, logger)
	summary, err := runner.RunOnce(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("ingest cycle failed")
		fmt.Fprintf(os.Stderr, "Ingest cycle failed: %v\n", err)
		return 1
	}

	logger.Info().
		Str("status", summary.Status).
		Int("fetched", summary.SignalsFetched).
		Int("accepted", summary.SignalsAccepted).
		Int("rejected", summary.SignalsRejected).
		Int("errors", len(summary.Errors)).
		Msg("ingest cycle completed")
	fmt.Printf("ingest run_id=%d status=%s fetched=%d accepted=%d rejected=%d errors=%d\n",
		summary.RunID, summary.Status, summary.SignalsFetched, summary.SignalsAccepted, summary.SignalsRejected, len(summary.Errors))

	if summary.Status == "FAILED" {
		return 1
	}
	return 0
}
