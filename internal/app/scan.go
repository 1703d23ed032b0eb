package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rgourley/styleluxe/internal/cli"
	"github.com/rgourley/styleluxe/internal/config"
	"github.com/rgourley/styleluxe/internal/db"
	"github.com/rgourley/styleluxe/internal/ingest"
	"github.com/rgourley/styleluxe/internal/logging"
	"github.com/rgourley/styleluxe/internal/match"
	"github.com/rgourley/styleluxe/internal/scoring"
)

func runScan(args []string) int {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Minute, "Command timeout")
	readingsDir := fs.String("readings-dir", "", "Directory with one subdirectory of reading files per source")
	kind := fs.String("kind", "scan", "Scan kind recorded in the run ledger")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if strings.TrimSpace(*readingsDir) == "" {
		fmt.Fprintln(os.Stderr, "--readings-dir is required")
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

	adapters, err := buildDirAdapters(*readingsDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build adapters: %v\n", err)
		return 2
	}
	if len(adapters) == 0 {
		fmt.Fprintf(os.Stderr, "No source subdirectories found under %s\n", *readingsDir)
		return 2
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

	resolver := match.NewResolver(pool, logger, cfg.MatchThreshold)
	engine := scoring.NewEngine(pool, logger, scoring.Config{
		PrimarySourceKey:  cfg.PrimarySourceKey,
		SecondaryMinValue: cfg.SecondaryMinValue,
		PrimaryStaleAfter: cfg.PrimaryStaleAfter,
	})
	svc := ingest.NewService(pool, resolver, engine, logger, ingest.Config{
		PrimarySourceKey:    cfg.PrimarySourceKey,
		ResetAgeOnRelisting: cfg.ResetAgeOnRelisting,
	})
	runner := ingest.NewRunner(svc, pool, logger, adapters, ingest.RunnerConfig{
		AdapterDelay:   cfg.AdapterDelay,
		AdapterTimeout: cfg.AdapterTimeout,
	})

	summary, err := runner.Run(ctx, strings.TrimSpace(*kind))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Scan failed: %v\n", err)
		return 1
	}

	fmt.Printf("run_id=%d candidates_seen=%d products_updated=%d products_skipped=%d products_failed=%d\n",
		summary.RunID, summary.CandidatesSeen, summary.ProductsUpdated, summary.ProductsSkipped, summary.ProductsFailed)
	fmt.Printf("run_uuid=%s\n", summary.RunUUID)

	if summary.ProductsFailed > 0 {
		return 1
	}
	return 0
}

// buildDirAdapters maps each subdirectory of root to a source adapter
// named after the subdirectory.
func buildDirAdapters(root string) ([]ingest.SourceAdapter, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read readings dir %s: %w", root, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	adapters := make([]ingest.SourceAdapter, 0, len(names))
	for _, name := range names {
		adapters = append(adapters, ingest.NewReadingDirAdapter(name, filepath.Join(root, name)))
	}
	return adapters, nil
}
