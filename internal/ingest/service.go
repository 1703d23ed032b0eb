// Package ingest turns validated signal readings into signal rows and
// keeps product listing state in step with the primary source.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rgourley/styleluxe/internal/db"
	"github.com/rgourley/styleluxe/internal/faults"
	"github.com/rgourley/styleluxe/internal/globaltime"
	"github.com/rgourley/styleluxe/internal/langdetect"
	"github.com/rgourley/styleluxe/internal/match"
	"github.com/rgourley/styleluxe/internal/scoring"
	payloadschema "github.com/rgourley/styleluxe/schema"
)

type Config struct {
	PrimarySourceKey    string
	ResetAgeOnRelisting bool
}

type Service struct {
	pool     *db.Pool
	resolver *match.Resolver
	engine   *scoring.Engine
	logger   zerolog.Logger
	cfg      Config
}

type Result struct {
	ProductID      int64  `json:"product_id"`
	ProductUUID    string `json:"product_uuid"`
	ProductCreated bool   `json:"product_created"`
	Inserted       bool   `json:"inserted"`
	ExternalRef    string `json:"external_ref"`
}

func NewService(pool *db.Pool, resolver *match.Resolver, engine *scoring.Engine, logger zerolog.Logger, cfg Config) *Service {
	return &Service{
		pool:     pool,
		resolver: resolver,
		engine:   engine,
		logger:   logger,
		cfg:      cfg,
	}
}

// IngestOne applies a single reading: resolve the candidate to a product,
// insert the signal if its idempotency key is new, update primary-source
// listing state, and recompute the product's score. Re-delivering the same
// reading is a no-op for the signal row and leaves scores unchanged.
func (s *Service) IngestOne(ctx context.Context, reading *payloadschema.SignalReading) (Result, error) {
	if s == nil || s.pool == nil {
		return Result{}, fmt.Errorf("ingest service is not initialized")
	}
	if reading == nil {
		return Result{}, faults.Invalid("reading", "reading is nil")
	}

	if strings.TrimSpace(reading.CandidateName) == "" {
		return Result{}, faults.Invalid("candidate_name", "must not be empty")
	}
	switch reading.SignalType {
	case payloadschema.SignalTypeSalesSpike, payloadschema.SignalTypeMention:
		if reading.Value == nil {
			return Result{}, faults.Invalid("value", fmt.Sprintf("%s readings require a value", reading.SignalType))
		}
	case payloadschema.SignalTypeWatchlist:
	default:
		return Result{}, faults.Invalid("signal_type", fmt.Sprintf("unknown signal_type %q", reading.SignalType))
	}
	if reading.Value != nil && *reading.Value < 0 {
		return Result{}, faults.Invalid("value", "must not be negative")
	}

	detectedAt, err := reading.DetectedAtTime()
	if err != nil {
		return Result{}, faults.Invalid("detected_at", err.Error())
	}
	detectedAt = detectedAt.UTC()

	externalRef := reading.ExternalRef()
	if externalRef == "" {
		externalRef = fallbackExternalRef(reading, detectedAt)
	}

	candidateURL := ""
	if reading.CandidateURL != nil {
		candidateURL = *reading.CandidateURL
	}

	resolution, err := s.resolver.Resolve(ctx, reading.CandidateName, candidateURL, reading.Source)
	if err != nil {
		return Result{}, fmt.Errorf("resolve candidate %q: %w", reading.CandidateName, err)
	}

	metadata, err := buildMetadata(reading)
	if err != nil {
		return Result{}, faults.Invalid("metadata", err.Error())
	}

	inserted, err := s.insertSignal(ctx, resolution.ProductID, reading, externalRef, metadata, detectedAt)
	if err != nil {
		return Result{}, err
	}

	if err := s.enrichProduct(ctx, resolution.ProductID, reading); err != nil {
		return Result{}, err
	}

	isPrimary := reading.Source == s.cfg.PrimarySourceKey
	if isPrimary {
		if err := s.markPrimaryPresence(ctx, resolution.ProductID, detectedAt); err != nil {
			return Result{}, err
		}
	}

	if inserted || isPrimary {
		if _, err := s.engine.Recompute(ctx, resolution.ProductID); err != nil {
			return Result{}, fmt.Errorf("recompute product %d: %w", resolution.ProductID, err)
		}
	}

	s.logger.Info().
		Int64("product_id", resolution.ProductID).
		Str("source", reading.Source).
		Str("signal_type", reading.SignalType).
		Str("external_ref", externalRef).
		Bool("inserted", inserted).
		Bool("product_created", resolution.IsNew).
		Msg("reading ingested")

	return Result{
		ProductID:      resolution.ProductID,
		ProductUUID:    resolution.ProductUUID,
		ProductCreated: resolution.IsNew,
		Inserted:       inserted,
		ExternalRef:    externalRef,
	}, nil
}

func (s *Service) insertSignal(
	ctx context.Context,
	productID int64,
	reading *payloadschema.SignalReading,
	externalRef string,
	metadata json.RawMessage,
	detectedAt time.Time,
) (bool, error) {
	const q = `
INSERT INTO trend.signals (
	product_id,
	source,
	external_ref,
	signal_type,
	value,
	metadata,
	detected_at,
	created_at
)
VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8)
ON CONFLICT (product_id, source, external_ref) DO NOTHING
RETURNING signal_id
`
	var signalID int64
	err := s.pool.QueryRow(
		ctx,
		q,
		productID,
		reading.Source,
		externalRef,
		reading.SignalType,
		reading.Value,
		string(metadata),
		detectedAt,
		globaltime.UTC(),
	).Scan(&signalID)
	return insertOutcome(err)
}

// insertOutcome maps the idempotent-insert scan result onto the Inserted
// contract: a returned row is a fresh signal, no row means the idempotency
// key already existed and the reading must not count again.
func insertOutcome(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if db.IsNoRows(err) {
		return false, nil
	}
	return false, faults.Storage("insert signal", err)
}

// markPrimaryPresence flips the product to listed and advances the
// sighting timestamps. first_detected_at is set on first listing only,
// unless re-listing resets are enabled and the product was delisted.
func (s *Service) markPrimaryPresence(ctx context.Context, productID int64, detectedAt time.Time) error {
	const q = `
UPDATE trend.products
SET on_primary_source = TRUE,
    last_seen_on_primary_source = GREATEST(COALESCE(last_seen_on_primary_source, $2), $2),
    first_detected_at = CASE
	WHEN first_detected_at IS NULL THEN $2
	WHEN $3 AND NOT on_primary_source THEN $2
	ELSE first_detected_at
    END,
    updated_at = $4
WHERE product_id = $1
`
	if _, err := s.pool.Exec(ctx, q, productID, detectedAt, s.cfg.ResetAgeOnRelisting, globaltime.UTC()); err != nil {
		return faults.Storage("mark primary presence", err)
	}
	return nil
}

// enrichProduct fills identity fields the reading carries and the product
// lacks. Existing values always win.
func (s *Service) enrichProduct(ctx context.Context, productID int64, reading *payloadschema.SignalReading) error {
	if reading.CandidateBrand == nil && reading.CandidatePrice == nil {
		return nil
	}

	const q = `
UPDATE trend.products
SET brand = COALESCE(brand, $2),
    price = COALESCE(price, $3),
    updated_at = $4
WHERE product_id = $1
`
	if _, err := s.pool.Exec(ctx, q, productID, reading.CandidateBrand, reading.CandidatePrice, globaltime.UTC()); err != nil {
		return faults.Storage("enrich product", err)
	}
	return nil
}

func buildMetadata(reading *payloadschema.SignalReading) (json.RawMessage, error) {
	metadata := make(map[string]any, len(reading.Metadata)+2)
	for k, v := range reading.Metadata {
		metadata[k] = v
	}

	if reading.Text != nil && strings.TrimSpace(*reading.Text) != "" {
		metadata["text"] = strings.TrimSpace(*reading.Text)
		if lang := langdetect.DetectISO6391(*reading.Text); lang != "" {
			metadata["language"] = lang
		}
	}

	encoded, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return encoded, nil
}

// fallbackExternalRef derives a deterministic idempotency key for readings
// whose metadata carries none. The same reading always hashes to the same
// key, so redelivery still deduplicates.
func fallbackExternalRef(reading *payloadschema.SignalReading, detectedAt time.Time) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s", reading.Source, reading.SignalType, strings.ToLower(strings.TrimSpace(reading.CandidateName)), detectedAt.Format(time.RFC3339))
	return "auto_" + hex.EncodeToString(h.Sum(nil))[:16]
}
