// Package merge consolidates two product records believed to be
// duplicates. The whole transfer runs in one transaction: a partial merge
// (signals moved but duplicate kept, or the reverse) is a correctness
// violation.
package merge

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rgourley/styleluxe/internal/db"
	"github.com/rgourley/styleluxe/internal/faults"
	"github.com/rgourley/styleluxe/internal/globaltime"
	"github.com/rgourley/styleluxe/internal/scoring"
)

type Result struct {
	TargetProductID   int64  `json:"target_product_id"`
	TargetProductUUID string `json:"target_product_uuid"`
	MergedSignalCount int64  `json:"merged_signal_count"`
	DroppedSignals    int64  `json:"dropped_signals"`
}

type Operator struct {
	pool   *db.Pool
	engine *scoring.Engine
	logger zerolog.Logger
}

func NewOperator(pool *db.Pool, engine *scoring.Engine, logger zerolog.Logger) *Operator {
	return &Operator{
		pool:   pool,
		engine: engine,
		logger: logger,
	}
}

// Merge transfers every signal, the content record (when the target lacks
// one), and the duplicate's slug as a historical alias, deletes the
// duplicate, and recomputes the target from the merged signal set. Scores
// are never averaged or summed across the two records.
func (o *Operator) Merge(ctx context.Context, duplicateUUID, targetUUID string) (Result, error) {
	if o == nil || o.pool == nil {
		return Result{}, fmt.Errorf("merge operator is not initialized")
	}

	dupUUID := strings.TrimSpace(duplicateUUID)
	tgtUUID := strings.TrimSpace(targetUUID)
	if dupUUID == "" || tgtUUID == "" {
		return Result{}, faults.Invalid("product_uuid", "both duplicate and target are required")
	}
	if dupUUID == tgtUUID {
		return Result{}, faults.Invalid("product_uuid", "cannot merge a product into itself")
	}

	tx, err := o.pool.BeginTx(ctx, db.TxOptions{})
	if err != nil {
		return Result{}, faults.Storage("begin merge transaction", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	duplicate, err := lockProduct(ctx, tx, dupUUID)
	if err != nil {
		return Result{}, err
	}
	target, err := lockProduct(ctx, tx, tgtUUID)
	if err != nil {
		return Result{}, err
	}
	if duplicate.id == target.id {
		return Result{}, faults.Invalid("product_uuid", "cannot merge a product into itself")
	}

	now := globaltime.UTC()

	// Transfer signals, re-validating idempotency keys against the target:
	// colliding rows are dropped, never double-applied.
	const moveSignals = `
UPDATE trend.signals AS s
SET product_id = $2
WHERE s.product_id = $1
  AND NOT EXISTS (
	SELECT 1
	FROM trend.signals t
	WHERE t.product_id = $2
	  AND t.source = s.source
	  AND t.external_ref = s.external_ref
  )
`
	movedTag, err := tx.Exec(ctx, moveSignals, duplicate.id, target.id)
	if err != nil {
		return Result{}, faults.Storage("transfer signals", err)
	}

	const dropCollided = `DELETE FROM trend.signals WHERE product_id = $1`
	droppedTag, err := tx.Exec(ctx, dropCollided, duplicate.id)
	if err != nil {
		return Result{}, faults.Storage("drop collided signals", err)
	}

	// Content moves only when the target has none; otherwise the
	// duplicate's copy dies with it.
	const moveContent = `
UPDATE trend.product_contents
SET product_id = $2, updated_at = $3
WHERE product_id = $1
  AND NOT EXISTS (SELECT 1 FROM trend.product_contents WHERE product_id = $2)
`
	if _, err := tx.Exec(ctx, moveContent, duplicate.id, target.id, now); err != nil {
		return Result{}, faults.Storage("transfer content", err)
	}
	const dropContent = `DELETE FROM trend.product_contents WHERE product_id = $1`
	if _, err := tx.Exec(ctx, dropContent, duplicate.id); err != nil {
		return Result{}, faults.Storage("drop duplicate content", err)
	}

	// The duplicate's slug and any aliases it accumulated keep resolving
	// to the target.
	const moveAliases = `UPDATE trend.product_aliases SET product_id = $2 WHERE product_id = $1`
	if _, err := tx.Exec(ctx, moveAliases, duplicate.id, target.id); err != nil {
		return Result{}, faults.Storage("transfer aliases", err)
	}
	const insertAlias = `
INSERT INTO trend.product_aliases (product_id, slug, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (slug) DO NOTHING
`
	if _, err := tx.Exec(ctx, insertAlias, target.id, duplicate.slug, now); err != nil {
		return Result{}, faults.Storage("record duplicate slug alias", err)
	}

	// Enrich the target with identity fields it lacks and fold the
	// primary-source listing state together: earliest detection, latest
	// sighting.
	const enrichTarget = `
UPDATE trend.products t
SET canonical_key = COALESCE(t.canonical_key, d.canonical_key),
    canonical_url = COALESCE(t.canonical_url, d.canonical_url),
    brand = COALESCE(t.brand, d.brand),
    price = COALESCE(t.price, d.price),
    on_primary_source = t.on_primary_source OR d.on_primary_source,
    first_detected_at = LEAST(
	COALESCE(t.first_detected_at, d.first_detected_at),
	COALESCE(d.first_detected_at, t.first_detected_at)
    ),
    last_seen_on_primary_source = GREATEST(
	COALESCE(t.last_seen_on_primary_source, d.last_seen_on_primary_source),
	COALESCE(d.last_seen_on_primary_source, t.last_seen_on_primary_source)
    ),
    peak_score = GREATEST(t.peak_score, d.peak_score),
    updated_at = $3
FROM trend.products d
WHERE t.product_id = $2
  AND d.product_id = $1
`
	if _, err := tx.Exec(ctx, enrichTarget, duplicate.id, target.id, now); err != nil {
		return Result{}, faults.Storage("enrich merge target", err)
	}

	// Everything still attached to the duplicate is orphaned history.
	for _, q := range []string{
		`DELETE FROM trend.score_samples WHERE product_id = $1`,
		`DELETE FROM trend.lifecycle_events WHERE product_id = $1`,
		`DELETE FROM trend.products WHERE product_id = $1`,
	} {
		if _, err := tx.Exec(ctx, q, duplicate.id); err != nil {
			return Result{}, faults.Storage("delete duplicate product", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Result{}, faults.Storage("commit merge transaction", err)
	}

	// Recompute from the merged raw signal set. Recompute is idempotent,
	// so a failure here can simply be retried via recalculate.
	if o.engine != nil {
		if _, err := o.engine.Recompute(ctx, target.id); err != nil {
			return Result{}, fmt.Errorf("merge committed but target recompute failed: %w", err)
		}
	}

	result := Result{
		TargetProductID:   target.id,
		TargetProductUUID: tgtUUID,
		MergedSignalCount: movedTag.RowsAffected(),
		DroppedSignals:    droppedTag.RowsAffected(),
	}

	o.logger.Info().
		Str("duplicate_uuid", dupUUID).
		Str("target_uuid", tgtUUID).
		Int64("merged_signals", result.MergedSignalCount).
		Int64("dropped_signals", result.DroppedSignals).
		Msg("products merged")
	return result, nil
}

type lockedProduct struct {
	id   int64
	slug string
}

func lockProduct(ctx context.Context, tx db.Tx, productUUID string) (lockedProduct, error) {
	const q = `
SELECT product_id, slug
FROM trend.products
WHERE product_uuid = $1::uuid
FOR UPDATE
`
	var locked lockedProduct
	if err := tx.QueryRow(ctx, q, productUUID).Scan(&locked.id, &locked.slug); err != nil {
		if db.IsNoRows(err) {
			return lockedProduct{}, faults.NotFound("product", productUUID)
		}
		return lockedProduct{}, faults.Storage("lock product for merge", err)
	}
	return locked, nil
}
