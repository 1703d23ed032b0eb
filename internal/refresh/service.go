// Package refresh keeps listing metadata for products on the primary
// source current without re-checking every product on every run.
package refresh

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/rgourley/styleluxe/internal/db"
	"github.com/rgourley/styleluxe/internal/faults"
	"github.com/rgourley/styleluxe/internal/globaltime"
)

// Metadata is what a primary-source product page currently reports.
type Metadata struct {
	Rating      *float64
	ReviewCount *int
}

// MetadataFetcher pulls current listing metadata for one product page.
type MetadataFetcher interface {
	Fetch(ctx context.Context, canonicalURL string) (Metadata, error)
}

type Config struct {
	SkipWindow   time.Duration
	MaxRows      int
	FetchDelay   time.Duration
	FetchTimeout time.Duration
}

type Service struct {
	pool    *db.Pool
	fetcher MetadataFetcher
	logger  zerolog.Logger
	cfg     Config
}

type Summary struct {
	Checked int `json:"checked"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

func NewService(pool *db.Pool, fetcher MetadataFetcher, logger zerolog.Logger, cfg Config) *Service {
	return &Service{
		pool:    pool,
		fetcher: fetcher,
		logger:  logger,
		cfg:     cfg,
	}
}

// Run refreshes rating and review count for listed products whose
// metadata is stale. Rows checked within the skip window are left alone
// and at most MaxRows products are touched per run, so a large catalog is
// refreshed across several runs instead of one burst.
func (s *Service) Run(ctx context.Context) (Summary, error) {
	if s == nil || s.pool == nil {
		return Summary{}, fmt.Errorf("refresh service is not initialized")
	}
	if s.fetcher == nil {
		return Summary{}, fmt.Errorf("refresh service has no metadata fetcher")
	}

	candidates, err := s.listStale(ctx)
	if err != nil {
		return Summary{}, err
	}

	limiter := rate.NewLimiter(rate.Every(s.cfg.FetchDelay), 1)
	if s.cfg.FetchDelay <= 0 {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}

	var summary Summary
	for _, candidate := range candidates {
		if err := limiter.Wait(ctx); err != nil {
			return summary, err
		}

		summary.Checked++
		metadata, err := s.fetch(ctx, candidate.canonicalURL)
		if err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			summary.Failed++
			s.logger.Error().
				Err(err).
				Int64("product_id", candidate.productID).
				Msg("metadata fetch failed")
			continue
		}

		if err := s.apply(ctx, candidate.productID, metadata); err != nil {
			summary.Failed++
			s.logger.Error().
				Err(err).
				Int64("product_id", candidate.productID).
				Msg("metadata update failed")
			continue
		}
		summary.Updated++
	}

	s.logger.Info().
		Int("checked", summary.Checked).
		Int("updated", summary.Updated).
		Int("failed", summary.Failed).
		Msg("metadata refresh completed")
	return summary, nil
}

type staleProduct struct {
	productID    int64
	canonicalURL string
}

func (s *Service) listStale(ctx context.Context) ([]staleProduct, error) {
	const q = `
SELECT product_id, canonical_url
FROM trend.products
WHERE on_primary_source
  AND canonical_url IS NOT NULL
  AND (metadata_checked_at IS NULL OR metadata_checked_at < $1)
ORDER BY metadata_checked_at ASC NULLS FIRST, product_id ASC
LIMIT $2
`
	cutoff := globaltime.UTC().Add(-s.cfg.SkipWindow)
	maxRows := s.cfg.MaxRows
	if maxRows <= 0 {
		maxRows = 50
	}

	rows, err := s.pool.Query(ctx, q, cutoff, maxRows)
	if err != nil {
		return nil, faults.Storage("list stale products", err)
	}
	defer rows.Close()

	var candidates []staleProduct
	for rows.Next() {
		var candidate staleProduct
		if err := rows.Scan(&candidate.productID, &candidate.canonicalURL); err != nil {
			return nil, faults.Storage("scan stale product", err)
		}
		candidates = append(candidates, candidate)
	}
	if err := rows.Err(); err != nil {
		return nil, faults.Storage("iterate stale products", err)
	}
	return candidates, nil
}

func (s *Service) fetch(ctx context.Context, canonicalURL string) (Metadata, error) {
	fetchCtx := ctx
	if s.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, s.cfg.FetchTimeout)
		defer cancel()
	}

	metadata, err := s.fetcher.Fetch(fetchCtx, canonicalURL)
	if err != nil {
		return Metadata{}, faults.Adapter("primary_metadata", canonicalURL, err)
	}
	return metadata, nil
}

func (s *Service) apply(ctx context.Context, productID int64, metadata Metadata) error {
	const update = `
UPDATE trend.products
SET primary_rating = $2,
    primary_review_count = $3,
    metadata_checked_at = $4,
    updated_at = $4
WHERE product_id = $1
`
	if _, err := s.pool.Exec(ctx, update, productID, metadata.Rating, metadata.ReviewCount, globaltime.UTC()); err != nil {
		return faults.Storage("update product metadata", err)
	}
	return nil
}
