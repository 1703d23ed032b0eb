package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rgourley/styleluxe/internal/cli"
	"github.com/rgourley/styleluxe/internal/config"
	"github.com/rgourley/styleluxe/internal/db"
	"github.com/rgourley/styleluxe/internal/logging"
	"github.com/rgourley/styleluxe/internal/scoring"
)

func runDecay(args []string) int {
	return runEngineSweep("decay", args, func(ctx context.Context, engine *scoring.Engine) (scoring.Summary, error) {
		return engine.RunDecay(ctx)
	})
}

func runRecalculate(args []string) int {
	return runEngineSweep("recalculate", args, func(ctx context.Context, engine *scoring.Engine) (scoring.Summary, error) {
		return engine.RecalculateAll(ctx)
	})
}

func runBackfill(args []string) int {
	return runEngineSweep("backfill", args, func(ctx context.Context, engine *scoring.Engine) (scoring.Summary, error) {
		return engine.BackfillDecayFields(ctx)
	})
}

// runEngineSweep shares the bootstrap for the full-catalog scoring
// commands, which differ only in the engine method they invoke.
func runEngineSweep(name string, args []string, sweep func(context.Context, *scoring.Engine) (scoring.Summary, error)) int {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Minute, "Command timeout")

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
		logger.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	engine := scoring.NewEngine(pool, logger, scoring.Config{
		PrimarySourceKey:  cfg.PrimarySourceKey,
		SecondaryMinValue: cfg.SecondaryMinValue,
		PrimaryStaleAfter: cfg.PrimaryStaleAfter,
	})

	summary, err := sweep(ctx, engine)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", name, err)
		return 1
	}

	fmt.Printf("updated=%d skipped=%d failed=%d\n", summary.Updated, summary.Skipped, summary.Failed)
	if summary.Failed > 0 {
		return 1
	}
	return 0
}
