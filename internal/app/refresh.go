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
	"github.com/rgourley/styleluxe/internal/refresh"
)

func runRefresh(args []string) int {
	fs := flag.NewFlagSet("refresh", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Minute, "Command timeout")
	snapshot := fs.String("snapshot", "", "Path to the primary-source metadata snapshot JSON")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if strings.TrimSpace(*snapshot) == "" {
		fmt.Fprintln(os.Stderr, "--snapshot is required")
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

	svc := refresh.NewService(pool, refresh.NewSnapshotFetcher(*snapshot), logger, refresh.Config{
		SkipWindow:   cfg.RefreshSkipWindow,
		MaxRows:      cfg.RefreshMaxRows,
		FetchDelay:   cfg.AdapterDelay,
		FetchTimeout: cfg.AdapterTimeout,
	})

	summary, err := svc.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Refresh failed: %v\n", err)
		return 1
	}

	fmt.Printf("checked=%d updated=%d failed=%d\n", summary.Checked, summary.Updated, summary.Failed)
	if summary.Failed > 0 {
		return 1
	}
	return 0
}
