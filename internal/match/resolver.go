package match

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/rgourley/styleluxe/internal/db"
	"github.com/rgourley/styleluxe/internal/faults"
	"github.com/rgourley/styleluxe/internal/globaltime"
)

// Resolver decides whether a candidate name/URL from one source refers to
// an already-known product or a new one. A hard catalog key extracted from
// the URL wins unconditionally; otherwise the best name similarity at or
// above the threshold wins, ties broken by score then most recent update.
type Resolver struct {
	pool      *db.Pool
	logger    zerolog.Logger
	threshold float64
}

// Resolution is the outcome of one resolve call. Resolve never ingests the
// signal itself; product creation is its only side effect.
type Resolution struct {
	ProductID   int64
	ProductUUID string
	IsNew       bool
}

func NewResolver(pool *db.Pool, logger zerolog.Logger, threshold float64) *Resolver {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.6
	}
	return &Resolver{
		pool:      pool,
		logger:    logger,
		threshold: threshold,
	}
}

func (r *Resolver) Resolve(ctx context.Context, candidateName, candidateURL, sourceKey string) (Resolution, error) {
	if r == nil || r.pool == nil {
		return Resolution{}, fmt.Errorf("resolver is not initialized")
	}

	name := strings.TrimSpace(candidateName)
	if name == "" {
		return Resolution{}, faults.Invalid("candidate_name", "must not be empty")
	}

	catalogKey := ExtractCatalogKey(candidateURL)
	if catalogKey != "" {
		resolution, found, err := r.lookupByCatalogKey(ctx, catalogKey)
		if err != nil {
			return Resolution{}, err
		}
		if found {
			return resolution, nil
		}
	}

	best, found, err := r.bestNameMatch(ctx, name)
	if err != nil {
		return Resolution{}, err
	}
	if found {
		if catalogKey != "" {
			r.attachCatalogKey(ctx, best.ProductID, catalogKey, candidateURL)
		}
		return best, nil
	}

	created, err := r.createProduct(ctx, name, candidateURL, catalogKey)
	if err != nil {
		return Resolution{}, err
	}

	r.logger.Info().
		Str("source", sourceKey).
		Str("name", name).
		Str("product_uuid", created.ProductUUID).
		Msg("new product detected")

	return created, nil
}

func (r *Resolver) lookupByCatalogKey(ctx context.Context, catalogKey string) (Resolution, bool, error) {
	const q = `
SELECT product_id, product_uuid::text
FROM trend.products
WHERE canonical_key = $1
`
	var resolution Resolution
	err := r.pool.QueryRow(ctx, q, catalogKey).Scan(&resolution.ProductID, &resolution.ProductUUID)
	if err != nil {
		if db.IsNoRows(err) {
			return Resolution{}, false, nil
		}
		return Resolution{}, false, faults.Storage("lookup product by catalog key", err)
	}
	return resolution, true, nil
}

func (r *Resolver) bestNameMatch(ctx context.Context, name string) (Resolution, bool, error) {
	const q = `
SELECT product_id, product_uuid::text, display_name
FROM trend.products
ORDER BY updated_at DESC
`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return Resolution{}, false, faults.Storage("list products for matching", err)
	}
	defer rows.Close()

	var (
		best      Resolution
		bestScore float64
		found     bool
	)
	for rows.Next() {
		var (
			productID   int64
			productUUID string
			displayName string
		)
		if err := rows.Scan(&productID, &productUUID, &displayName); err != nil {
			return Resolution{}, false, faults.Storage("scan product candidate", err)
		}

		score := Similarity(name, displayName)
		if score < r.threshold {
			continue
		}
		// Rows arrive most-recently-updated first, so a strictly-greater
		// comparison also implements the recency tie-break.
		if !found || score > bestScore {
			best = Resolution{ProductID: productID, ProductUUID: productUUID}
			bestScore = score
			found = true
		}
	}
	if err := rows.Err(); err != nil {
		return Resolution{}, false, faults.Storage("iterate product candidates", err)
	}

	if found {
		r.logger.Debug().
			Str("name", name).
			Float64("score", bestScore).
			Int64("product_id", best.ProductID).
			Msg("matched existing product by name")
	}
	return best, found, nil
}

// attachCatalogKey backfills the hard key onto a fuzzy-matched product that
// has none yet. Failures are logged and ignored: the match already
// succeeded and the key will be offered again on the next sighting.
func (r *Resolver) attachCatalogKey(ctx context.Context, productID int64, catalogKey, candidateURL string) {
	canonical, _ := NormalizeURL(candidateURL)

	const q = `
UPDATE trend.products
SET canonical_key = $2,
    canonical_url = COALESCE(canonical_url, $3),
    updated_at = $4
WHERE product_id = $1
  AND canonical_key IS NULL
`
	if _, err := r.pool.Exec(ctx, q, productID, catalogKey, nullableString(canonical), globaltime.UTC()); err != nil {
		r.logger.Warn().Err(err).Int64("product_id", productID).Msg("failed to backfill catalog key")
	}
}

func (r *Resolver) createProduct(ctx context.Context, name, candidateURL, catalogKey string) (Resolution, error) {
	canonical, _ := NormalizeURL(candidateURL)
	now := globaltime.UTC()
	baseSlug := Slugify(name)

	const q = `
INSERT INTO trend.products (
	display_name,
	slug,
	canonical_url,
	canonical_key,
	base_score,
	current_score,
	peak_score,
	first_detected_at,
	on_primary_source,
	status,
	created_at,
	updated_at
)
VALUES ($1, $2, $3, $4, 0, 0, 0, $5, false, 'flagged', $5, $5)
ON CONFLICT (slug) DO NOTHING
RETURNING product_id, product_uuid::text
`

	for attempt := 0; attempt < 5; attempt++ {
		slug := baseSlug
		if attempt > 0 {
			slug = fmt.Sprintf("%s-%d", baseSlug, attempt+1)
		}

		var resolution Resolution
		err := r.pool.QueryRow(ctx, q,
			name,
			slug,
			nullableString(canonical),
			nullableString(catalogKey),
			now,
		).Scan(&resolution.ProductID, &resolution.ProductUUID)
		if err == nil {
			resolution.IsNew = true
			return resolution, nil
		}
		if db.IsNoRows(err) {
			// Slug taken by a product the similarity pass rejected; try a
			// suffixed variant.
			continue
		}
		return Resolution{}, faults.Storage("create product", err)
	}

	return Resolution{}, faults.Storage("create product",
		fmt.Errorf("could not allocate a unique slug for %q", baseSlug))
}

// Slugify renders a display name as a URL-safe slug.
func Slugify(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))

	var sb strings.Builder
	sb.Grow(len(lowered))
	lastDash := true
	for _, r := range lowered {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash {
			sb.WriteByte('-')
			lastDash = true
		}
	}

	slug := strings.Trim(sb.String(), "-")
	if slug == "" {
		slug = fmt.Sprintf("product-%d", globaltime.UTC().UnixNano())
	}
	return slug
}

func nullableString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
