package scoring

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rgourley/styleluxe/internal/db"
	"github.com/rgourley/styleluxe/internal/faults"
	"github.com/rgourley/styleluxe/internal/globaltime"
)

// Config carries the tunables the engine reads from the app config.
type Config struct {
	PrimarySourceKey  string
	SecondaryMinValue float64
	PrimaryStaleAfter time.Duration
}

// Scores is the result of one recompute.
type Scores struct {
	BaseScore    int `json:"base_score"`
	CurrentScore int `json:"current_score"`
	PeakScore    int `json:"peak_score"`
	DaysTrending int `json:"days_trending"`
}

// Summary reports a full-population pass without throwing on partial
// failure.
type Summary struct {
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Engine recomputes product scores from stored signals and the clock. It
// is the only writer of base_score, current_score, and peak_score, and it
// serializes recomputes per product so the read-modify-write on peak is
// single-writer.
type Engine struct {
	pool   *db.Pool
	logger zerolog.Logger
	cfg    Config

	locks [lockStripes]sync.Mutex
}

func NewEngine(pool *db.Pool, logger zerolog.Logger, cfg Config) *Engine {
	if cfg.PrimarySourceKey == "" {
		cfg.PrimarySourceKey = "amazon_movers"
	}
	if cfg.SecondaryMinValue <= 0 {
		cfg.SecondaryMinValue = 50
	}
	if cfg.PrimaryStaleAfter <= 0 {
		cfg.PrimaryStaleAfter = 48 * time.Hour
	}
	return &Engine{
		pool:   pool,
		logger: logger,
		cfg:    cfg,
	}
}

// Recompute derives all three scores for one product from its signal set
// and age. Safe to call redundantly: it is a pure function of stored
// signals and the clock.
func (e *Engine) Recompute(ctx context.Context, productID int64) (Scores, error) {
	return e.recompute(ctx, productID, false)
}

// RecomputeAndSample recomputes and appends one score_samples row for the
// sparkline series. The daily decay run uses this variant.
func (e *Engine) RecomputeAndSample(ctx context.Context, productID int64) (Scores, error) {
	return e.recompute(ctx, productID, true)
}

func (e *Engine) recompute(ctx context.Context, productID int64, sample bool) (Scores, error) {
	if e == nil || e.pool == nil {
		return Scores{}, fmt.Errorf("scoring engine is not initialized")
	}

	unlock := e.lockProduct(productID)
	defer unlock()

	state, err := e.loadProduct(ctx, productID)
	if err != nil {
		return Scores{}, err
	}

	signals, err := e.loadSignals(ctx, productID)
	if err != nil {
		return Scores{}, err
	}

	now := globaltime.UTC()

	if state.onPrimarySource && primaryListingStale(state.lastSeenPrimary, now, e.cfg.PrimaryStaleAfter) {
		delisted, err := e.delistProduct(ctx, productID, now)
		if err != nil {
			return Scores{}, err
		}
		if delisted {
			state.onPrimarySource = false
		}
	}

	firstDetected := resolveFirstDetected(state, signals)
	days := globaltime.DaysSince(firstDetected)

	base := BaseScore(signals, e.cfg.PrimarySourceKey, e.cfg.SecondaryMinValue, state.onPrimarySource)
	current := CurrentScore(base, days, state.onPrimarySource)
	peak := foldPeak(state.peakScore, current)

	const updateQ = `
UPDATE trend.products
SET base_score = $2,
    current_score = $3,
    peak_score = $4,
    updated_at = $5
WHERE product_id = $1
`
	if _, err := e.pool.Exec(ctx, updateQ, productID, base, current, peak, now); err != nil {
		return Scores{}, faults.Storage("write product scores", err)
	}

	if sample {
		const sampleQ = `
INSERT INTO trend.score_samples (product_id, base_score, current_score, recorded_at)
VALUES ($1, $2, $3, $4)
`
		if _, err := e.pool.Exec(ctx, sampleQ, productID, base, current, now); err != nil {
			return Scores{}, faults.Storage("insert score sample", err)
		}
	}

	e.logger.Debug().
		Int64("product_id", productID).
		Int("base_score", base).
		Int("current_score", current).
		Int("peak_score", peak).
		Int("days_trending", days).
		Msg("scores recomputed")

	return Scores{
		BaseScore:    base,
		CurrentScore: current,
		PeakScore:    peak,
		DaysTrending: days,
	}, nil
}

// RecalculateAll forces a full recompute across every product, for use
// after scoring-logic changes. Per-product failures are counted, not
// fatal.
func (e *Engine) RecalculateAll(ctx context.Context) (Summary, error) {
	return e.sweep(ctx, false)
}

// RunDecay is the daily full-population decay pass: recompute everything
// and append one history sample per product.
func (e *Engine) RunDecay(ctx context.Context) (Summary, error) {
	return e.sweep(ctx, true)
}

func (e *Engine) sweep(ctx context.Context, sample bool) (Summary, error) {
	ids, err := e.listProductIDs(ctx)
	if err != nil {
		return Summary{}, err
	}

	var summary Summary
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if _, err := e.recompute(ctx, id, sample); err != nil {
			if faults.IsNotFound(err) {
				summary.Skipped++
				continue
			}
			summary.Failed++
			e.logger.Error().Err(err).Int64("product_id", id).Msg("recompute failed")
			continue
		}
		summary.Updated++
	}

	e.logger.Info().
		Bool("sampled", sample).
		Int("updated", summary.Updated).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Msg("score sweep finished")
	return summary, nil
}

// BackfillDecayFields populates first_detected_at and base_score for
// legacy rows created before decay scoring existed, then recomputes them.
func (e *Engine) BackfillDecayFields(ctx context.Context) (Summary, error) {
	if e == nil || e.pool == nil {
		return Summary{}, fmt.Errorf("scoring engine is not initialized")
	}

	const q = `
UPDATE trend.products p
SET first_detected_at = COALESCE(
	(SELECT MIN(s.detected_at) FROM trend.signals s WHERE s.product_id = p.product_id),
	p.created_at
)
WHERE p.first_detected_at IS NULL
RETURNING p.product_id
`
	rows, err := e.pool.Query(ctx, q)
	if err != nil {
		return Summary{}, faults.Storage("backfill first_detected_at", err)
	}

	ids := make([]int64, 0, 64)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return Summary{}, faults.Storage("scan backfilled product id", err)
		}
		ids = append(ids, id)
	}
	iterErr := rows.Err()
	rows.Close()
	if iterErr != nil {
		return Summary{}, faults.Storage("iterate backfilled product ids", iterErr)
	}

	var summary Summary
	for _, id := range ids {
		if _, err := e.recompute(ctx, id, false); err != nil {
			summary.Failed++
			e.logger.Error().Err(err).Int64("product_id", id).Msg("backfill recompute failed")
			continue
		}
		summary.Updated++
	}

	e.logger.Info().
		Int("updated", summary.Updated).
		Int("failed", summary.Failed).
		Msg("decay field backfill finished")
	return summary, nil
}

type productState struct {
	peakScore       int
	onPrimarySource bool
	lastSeenPrimary *time.Time
	firstDetectedAt *time.Time
	createdAt       time.Time
}

func (e *Engine) loadProduct(ctx context.Context, productID int64) (productState, error) {
	const q = `
SELECT peak_score, on_primary_source, last_seen_on_primary_source, first_detected_at, created_at
FROM trend.products
WHERE product_id = $1
`
	var state productState
	err := e.pool.QueryRow(ctx, q, productID).Scan(
		&state.peakScore,
		&state.onPrimarySource,
		&state.lastSeenPrimary,
		&state.firstDetectedAt,
		&state.createdAt,
	)
	if err != nil {
		if db.IsNoRows(err) {
			return productState{}, faults.NotFound("product", strconv.FormatInt(productID, 10))
		}
		return productState{}, faults.Storage("load product for scoring", err)
	}
	return state, nil
}

func (e *Engine) loadSignals(ctx context.Context, productID int64) ([]SignalInput, error) {
	const q = `
SELECT source, signal_type, value, detected_at
FROM trend.signals
WHERE product_id = $1
ORDER BY detected_at ASC
`
	rows, err := e.pool.Query(ctx, q, productID)
	if err != nil {
		return nil, faults.Storage("load signals for scoring", err)
	}
	defer rows.Close()

	signals := make([]SignalInput, 0, 16)
	for rows.Next() {
		var signal SignalInput
		if err := rows.Scan(&signal.Source, &signal.SignalType, &signal.Value, &signal.DetectedAt); err != nil {
			return nil, faults.Storage("scan signal for scoring", err)
		}
		signals = append(signals, signal)
	}
	if err := rows.Err(); err != nil {
		return nil, faults.Storage("iterate signals for scoring", err)
	}
	return signals, nil
}

func (e *Engine) listProductIDs(ctx context.Context) ([]int64, error) {
	const q = `SELECT product_id FROM trend.products ORDER BY product_id`
	rows, err := e.pool.Query(ctx, q)
	if err != nil {
		return nil, faults.Storage("list product ids", err)
	}
	defer rows.Close()

	ids := make([]int64, 0, 128)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, faults.Storage("scan product id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, faults.Storage("iterate product ids", err)
	}
	return ids, nil
}

// primaryListingStale reports whether a listed product has gone unseen on
// the primary feed for longer than the staleness window. A listed row with
// no sighting timestamp at all is treated as stale.
func primaryListingStale(lastSeen *time.Time, now time.Time, window time.Duration) bool {
	if lastSeen == nil {
		return true
	}
	return lastSeen.Before(now.Add(-window))
}

// delistProduct clears on_primary_source so the sharper delisted decay
// applies. The cutoff is re-checked in SQL: a primary scan landing between
// the read and this write keeps the product listed.
func (e *Engine) delistProduct(ctx context.Context, productID int64, now time.Time) (bool, error) {
	const q = `
UPDATE trend.products
SET on_primary_source = FALSE, updated_at = $3
WHERE product_id = $1
  AND on_primary_source
  AND (last_seen_on_primary_source IS NULL OR last_seen_on_primary_source < $2)
`
	cutoff := now.Add(-e.cfg.PrimaryStaleAfter)
	tag, err := e.pool.Exec(ctx, q, productID, cutoff, now)
	if err != nil {
		return false, faults.Storage("delist product", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	e.logger.Info().Int64("product_id", productID).Msg("product delisted from primary source")
	return true, nil
}

// foldPeak is the high-water fold: the stored peak only ever ratchets up.
func foldPeak(previousPeak, current int) int {
	return maxInt(previousPeak, current)
}

// resolveFirstDetected falls back to the earliest signal, then to row
// creation, for legacy rows the backfill has not visited yet.
func resolveFirstDetected(state productState, signals []SignalInput) time.Time {
	if state.firstDetectedAt != nil {
		return *state.firstDetectedAt
	}
	if len(signals) > 0 {
		return signals[0].DetectedAt
	}
	return state.createdAt
}

// lockStripes bounds the per-product lock set: products hash onto a fixed
// set of mutexes, so a long-lived serve process never accumulates one lock
// per product ever scored.
const lockStripes = 64

func lockIndex(productID int64) int {
	return int(uint64(productID) % lockStripes)
}

func (e *Engine) lockProduct(productID int64) func() {
	lock := &e.locks[lockIndex(productID)]
	lock.Lock()
	return lock.Unlock
}
