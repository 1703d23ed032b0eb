package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rgourley/styleluxe/internal/cli"
	"github.com/rgourley/styleluxe/internal/config"
	"github.com/rgourley/styleluxe/internal/db"
	"github.com/rgourley/styleluxe/internal/logging"
	"github.com/rgourley/styleluxe/internal/merge"
	"github.com/rgourley/styleluxe/internal/scoring"
)

func runMerge(args []string) int {
	fs := flag.NewFlagSet("merge", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	duplicateUUID := fs.String("duplicate", "", "UUID of the duplicate product to merge away")
	targetUUID := fs.String("target", "", "UUID of the product to keep")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if strings.TrimSpace(*duplicateUUID) == "" || strings.TrimSpace(*targetUUID) == "" {
		fmt.Fprintln(os.Stderr, "--duplicate and --target are required")
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
	operator := merge.NewOperator(pool, engine, logger)

	result, err := operator.Merge(ctx, *duplicateUUID, *targetUUID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Merge failed: %v\n", err)
		return 1
	}

	fmt.Printf("target_product_id=%d merged_signals=%d dropped_signals=%d\n",
		result.TargetProductID, result.MergedSignalCount, result.DroppedSignals)
	return 0
}
