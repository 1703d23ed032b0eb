package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/rgourley/styleluxe/internal/db"
	"github.com/rgourley/styleluxe/internal/faults"
	"github.com/rgourley/styleluxe/internal/globaltime"
	payloadschema "github.com/rgourley/styleluxe/schema"
)

const maxRunErrorLength = 4000

type RunnerConfig struct {
	AdapterDelay   time.Duration
	AdapterTimeout time.Duration
}

// Runner drives a scan across all configured source adapters. Sources are
// polled sequentially and readings are applied one at a time behind a
// shared rate limiter, so a scan never hammers the database or an
// upstream site.
type Runner struct {
	service  *Service
	pool     *db.Pool
	logger   zerolog.Logger
	adapters []SourceAdapter
	cfg      RunnerConfig
}

type RunSummary struct {
	RunID           int64  `json:"run_id"`
	RunUUID         string `json:"run_uuid"`
	CandidatesSeen  int    `json:"candidates_seen"`
	ProductsUpdated int    `json:"products_updated"`
	ProductsSkipped int    `json:"products_skipped"`
	ProductsFailed  int    `json:"products_failed"`
}

func NewRunner(service *Service, pool *db.Pool, logger zerolog.Logger, adapters []SourceAdapter, cfg RunnerConfig) *Runner {
	return &Runner{
		service:  service,
		pool:     pool,
		logger:   logger,
		adapters: adapters,
		cfg:      cfg,
	}
}

// Run executes one scan of the given kind. A failed reading is counted
// and logged but never aborts the scan; only a canceled context or a scan
// bookkeeping error does.
func (r *Runner) Run(ctx context.Context, kind string) (RunSummary, error) {
	if r == nil || r.pool == nil {
		return RunSummary{}, fmt.Errorf("scan runner is not initialized")
	}

	runID, runUUID, err := r.insertRun(ctx, kind, globaltime.UTC())
	if err != nil {
		return RunSummary{}, faults.Storage("insert scan run", err)
	}

	summary := RunSummary{RunID: runID, RunUUID: runUUID}

	limiter := rate.NewLimiter(rate.Every(r.cfg.AdapterDelay), 1)
	if r.cfg.AdapterDelay <= 0 {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}

	var runErr error
	for _, adapter := range r.adapters {
		if runErr = ctx.Err(); runErr != nil {
			break
		}

		readings, err := r.fetch(ctx, adapter)
		if err != nil {
			if ctx.Err() != nil {
				runErr = ctx.Err()
				break
			}
			summary.ProductsFailed++
			r.logger.Error().Err(err).Str("source", adapter.Source()).Msg("adapter fetch failed")
			continue
		}

		for i := range readings {
			if runErr = limiter.Wait(ctx); runErr != nil {
				break
			}

			summary.CandidatesSeen++
			result, err := r.service.IngestOne(ctx, &readings[i])
			if err != nil {
				if ctx.Err() != nil {
					runErr = ctx.Err()
					break
				}
				summary.ProductsFailed++
				r.logger.Error().
					Err(err).
					Str("source", adapter.Source()).
					Str("candidate_name", readings[i].CandidateName).
					Msg("reading failed")
				continue
			}

			if result.Inserted {
				summary.ProductsUpdated++
			} else {
				summary.ProductsSkipped++
			}
		}
		if runErr != nil {
			break
		}
	}

	finishedAt := globaltime.UTC()
	if runErr != nil {
		if markErr := r.markRunFailed(ctx, runID, summary, runErr, finishedAt); markErr != nil {
			return summary, fmt.Errorf("scan failed (%v); failed to mark run failed: %w", runErr, markErr)
		}
		return summary, runErr
	}

	if err := r.markRunCompleted(ctx, runID, summary, finishedAt); err != nil {
		return summary, faults.Storage("mark scan run completed", err)
	}

	r.logger.Info().
		Int64("run_id", runID).
		Str("kind", kind).
		Int("candidates_seen", summary.CandidatesSeen).
		Int("products_updated", summary.ProductsUpdated).
		Int("products_skipped", summary.ProductsSkipped).
		Int("products_failed", summary.ProductsFailed).
		Msg("scan completed")
	return summary, nil
}

func (r *Runner) fetch(ctx context.Context, adapter SourceAdapter) ([]payloadschema.SignalReading, error) {
	fetchCtx := ctx
	if r.cfg.AdapterTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, r.cfg.AdapterTimeout)
		defer cancel()
	}
	return adapter.Fetch(fetchCtx)
}

func (r *Runner) insertRun(ctx context.Context, kind string, startedAt time.Time) (int64, string, error) {
	const q = `
INSERT INTO trend.scan_runs (kind, started_at, status, created_at, updated_at)
VALUES ($1, $2, 'running', $2, $2)
RETURNING run_id, run_uuid
`
	var runID int64
	var runUUID string
	if err := r.pool.QueryRow(ctx, q, kind, startedAt).Scan(&runID, &runUUID); err != nil {
		return 0, "", err
	}
	return runID, runUUID, nil
}

func (r *Runner) markRunCompleted(ctx context.Context, runID int64, summary RunSummary, finishedAt time.Time) error {
	const q = `
UPDATE trend.scan_runs
SET status = 'completed',
    candidates_seen = $2,
    products_updated = $3,
    products_skipped = $4,
    products_failed = $5,
    finished_at = $6,
    updated_at = $6,
    error_message = NULL
WHERE run_id = $1
`
	_, err := r.pool.Exec(ctx, q, runID, summary.CandidatesSeen, summary.ProductsUpdated, summary.ProductsSkipped, summary.ProductsFailed, finishedAt)
	return err
}

func (r *Runner) markRunFailed(ctx context.Context, runID int64, summary RunSummary, cause error, finishedAt time.Time) error {
	const q = `
UPDATE trend.scan_runs
SET status = 'failed',
    candidates_seen = $2,
    products_updated = $3,
    products_skipped = $4,
    products_failed = $5,
    error_message = $6,
    finished_at = $7,
    updated_at = $7
WHERE run_id = $1
`
	msg := strings.TrimSpace(cause.Error())
	if len(msg) > maxRunErrorLength {
		msg = msg[:maxRunErrorLength]
	}

	// Bookkeeping must land even when the scan died to a canceled
	// context.
	markCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		markCtx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}

	_, err := r.pool.Exec(markCtx, q, runID, summary.CandidatesSeen, summary.ProductsUpdated, summary.ProductsSkipped, summary.ProductsFailed, msg, finishedAt)
	return err
}
