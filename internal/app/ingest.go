package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rgourley/styleluxe/internal/cli"
	"github.com/rgourley/styleluxe/internal/config"
	"github.com/rgourley/styleluxe/internal/db"
	"github.com/rgourley/styleluxe/internal/ingest"
	"github.com/rgourley/styleluxe/internal/logging"
	"github.com/rgourley/styleluxe/internal/match"
	"github.com/rgourley/styleluxe/internal/scoring"
	payloadschema "github.com/rgourley/styleluxe/schema"
)

func runIngest(args []string) int {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 20*time.Second, "Command timeout")
	payload := fs.String("payload", "", "Signal reading payload JSON")
	payloadFile := fs.String("payload-file", "", "Path to payload JSON file (overrides --payload)")

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

	payloadJSON, err := loadJSONInput(*payload, *payloadFile, "payload")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid payload: %v\n", err)
		return 2
	}

	reading, err := payloadschema.ValidateSignalReadingPayload(payloadJSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid payload: %v\n", err)
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

	result, err := svc.IngestOne(ctx, reading)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		return 1
	}

	fmt.Printf("product_id=%d inserted=%t product_created=%t external_ref=%s\n",
		result.ProductID, result.Inserted, result.ProductCreated, result.ExternalRef)
	fmt.Printf("product_uuid=%s\n", result.ProductUUID)

	return 0
}

func loadJSONInput(inlineValue, filePath, label string) (json.RawMessage, error) {
	if path := strings.TrimSpace(filePath); path != "" {
		payload, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s file %q: %w", label, path, err)
		}
		trimmed := strings.TrimSpace(string(payload))
		if trimmed == "" {
			return nil, fmt.Errorf("%s file %q is empty", label, path)
		}
		return json.RawMessage(trimmed), nil
	}

	trimmed := strings.TrimSpace(inlineValue)
	if trimmed == "" {
		return nil, fmt.Errorf("%s JSON is empty", label)
	}
	return json.RawMessage(trimmed), nil
}
