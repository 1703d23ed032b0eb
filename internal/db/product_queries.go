package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ProductSummary is a read model used by list queries and the public API.
type ProductSummary struct {
	ProductID               int64      `json:"product_id"`
	ProductUUID             string     `json:"product_uuid"`
	DisplayName             string     `json:"display_name"`
	Brand                   *string    `json:"brand,omitempty"`
	Slug                    string     `json:"slug"`
	CanonicalURL            *string    `json:"canonical_url,omitempty"`
	Price                   *string    `json:"price,omitempty"`
	BaseScore               int        `json:"base_score"`
	CurrentScore            int        `json:"current_score"`
	PeakScore               int        `json:"peak_score"`
	FirstDetectedAt         *time.Time `json:"first_detected_at,omitempty"`
	DaysTrending            int        `json:"days_trending"`
	OnPrimarySource         bool       `json:"on_primary_source"`
	LastSeenOnPrimarySource *time.Time `json:"last_seen_on_primary_source,omitempty"`
	PrimaryRating           *float64   `json:"primary_rating,omitempty"`
	PrimaryReviewCount      *int       `json:"primary_review_count,omitempty"`
	Status                  string     `json:"status"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

// ProductListOptions controls product list queries. MaxAgeDays limits
// results to products first detected within that many days; zero means
// no age limit.
type ProductListOptions struct {
	Status     string
	MinScore   int
	MaxAgeDays int
	Sort       string
	Limit      int
	Offset     int
}

// ProductContentView is the editorial content attached to a product.
type ProductContentView struct {
	Title         string     `json:"title"`
	Body          string     `json:"body"`
	ContentStatus string     `json:"content_status"`
	UpdatedAt     time.Time  `json:"updated_at"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
}

// ProductDetail contains one product plus its content and signal rollup.
type ProductDetail struct {
	Product        ProductSummary      `json:"product"`
	Content        *ProductContentView `json:"content,omitempty"`
	SignalCount    int                 `json:"signal_count"`
	LatestSignalAt *time.Time          `json:"latest_signal_at,omitempty"`
}

const productSummaryColumns = `
	p.product_id,
	p.product_uuid::text,
	p.display_name,
	p.brand,
	p.slug,
	p.canonical_url,
	p.price,
	p.base_score,
	p.current_score,
	p.peak_score,
	p.first_detected_at,
	GREATEST(0, COALESCE(EXTRACT(DAY FROM now() - p.first_detected_at)::int, 0)) AS days_trending,
	p.on_primary_source,
	p.last_seen_on_primary_source,
	p.primary_rating,
	p.primary_review_count,
	p.status,
	p.created_at,
	p.updated_at`

// ListProducts returns products filtered by status and minimum current
// score and age. Sort accepts score, peak, newest, or trending; anything
// else is rejected.
func (p *Pool) ListProducts(ctx context.Context, opts ProductListOptions) ([]ProductSummary, error) {
	if opts.Limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}
	if opts.Offset < 0 {
		return nil, fmt.Errorf("offset must be >= 0")
	}

	orderBy, err := resolveProductSort(opts.Sort)
	if err != nil {
		return nil, err
	}

	status := strings.TrimSpace(strings.ToLower(opts.Status))
	if status != "" && status != StatusFlagged && status != StatusDraft && status != StatusPublished {
		return nil, fmt.Errorf("unknown status %q", opts.Status)
	}

	if opts.MaxAgeDays < 0 {
		return nil, fmt.Errorf("max age days must be >= 0")
	}

	q := `
SELECT` + productSummaryColumns + `
FROM trend.products p
WHERE ($1 = '' OR p.status = $1)
  AND p.current_score >= $2
  AND ($3 = 0 OR p.first_detected_at >= now() - make_interval(days => $3))
` + orderBy + `
LIMIT $4 OFFSET $5
`

	rows, err := p.Query(ctx, q, status, opts.MinScore, opts.MaxAgeDays, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	return scanProductSummaries(rows, opts.Limit)
}

// ListProductsNeedingContent returns flagged products above the score
// floor that have no editorial content yet, hottest first.
func (p *Pool) ListProductsNeedingContent(ctx context.Context, minScore, limit int) ([]ProductSummary, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	q := `
SELECT` + productSummaryColumns + `
FROM trend.products p
WHERE p.status = $1
  AND p.current_score >= $2
  AND NOT EXISTS (
	SELECT 1 FROM trend.product_contents c WHERE c.product_id = p.product_id
  )
ORDER BY p.current_score DESC, p.peak_score DESC, p.product_id DESC
LIMIT $3
`

	rows, err := p.Query(ctx, q, StatusFlagged, minScore, limit)
	if err != nil {
		return nil, fmt.Errorf("query products needing content: %w", err)
	}
	defer rows.Close()

	return scanProductSummaries(rows, limit)
}

// GetProductDetail returns one product by UUID with content and signal
// rollup. Returns ErrNoRows when the product does not exist.
func (p *Pool) GetProductDetail(ctx context.Context, productUUID string) (*ProductDetail, error) {
	trimmedUUID := strings.TrimSpace(productUUID)
	if trimmedUUID == "" {
		return nil, fmt.Errorf("product UUID is required")
	}

	q := `
SELECT` + productSummaryColumns + `
FROM trend.products p
WHERE p.product_uuid = $1::uuid
`
	summary, err := p.queryProductSummary(ctx, q, trimmedUUID)
	if err != nil {
		return nil, err
	}

	return p.attachProductDetail(ctx, summary)
}

// GetProductDetailBySlug resolves a slug to a product, following
// historical aliases left behind by merges.
func (p *Pool) GetProductDetailBySlug(ctx context.Context, slug string) (*ProductDetail, error) {
	trimmedSlug := strings.TrimSpace(strings.ToLower(slug))
	if trimmedSlug == "" {
		return nil, fmt.Errorf("slug is required")
	}

	q := `
SELECT` + productSummaryColumns + `
FROM trend.products p
WHERE p.slug = $1
`
	summary, err := p.queryProductSummary(ctx, q, trimmedSlug)
	if err != nil {
		if !errors.Is(err, ErrNoRows) {
			return nil, err
		}

		aliasQuery := `
SELECT` + productSummaryColumns + `
FROM trend.product_aliases al
JOIN trend.products p
	ON p.product_id = al.product_id
WHERE al.slug = $1
`
		summary, err = p.queryProductSummary(ctx, aliasQuery, trimmedSlug)
		if err != nil {
			return nil, err
		}
	}

	return p.attachProductDetail(ctx, summary)
}

func (p *Pool) queryProductSummary(ctx context.Context, query string, arg any) (ProductSummary, error) {
	var s ProductSummary
	err := p.QueryRow(ctx, query, arg).Scan(
		&s.ProductID,
		&s.ProductUUID,
		&s.DisplayName,
		&s.Brand,
		&s.Slug,
		&s.CanonicalURL,
		&s.Price,
		&s.BaseScore,
		&s.CurrentScore,
		&s.PeakScore,
		&s.FirstDetectedAt,
		&s.DaysTrending,
		&s.OnPrimarySource,
		&s.LastSeenOnPrimarySource,
		&s.PrimaryRating,
		&s.PrimaryReviewCount,
		&s.Status,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, ErrNoRows) {
			return ProductSummary{}, ErrNoRows
		}
		return ProductSummary{}, fmt.Errorf("query product summary: %w", err)
	}
	return s, nil
}

func (p *Pool) attachProductDetail(ctx context.Context, summary ProductSummary) (*ProductDetail, error) {
	detail := &ProductDetail{Product: summary}

	const contentQuery = `
SELECT title, body, content_status, updated_at, published_at
FROM trend.product_contents
WHERE product_id = $1
`
	var content ProductContentView
	err := p.QueryRow(ctx, contentQuery, summary.ProductID).Scan(
		&content.Title,
		&content.Body,
		&content.ContentStatus,
		&content.UpdatedAt,
		&content.PublishedAt,
	)
	switch {
	case err == nil:
		detail.Content = &content
	case errors.Is(err, ErrNoRows):
	default:
		return nil, fmt.Errorf("query product content: %w", err)
	}

	const rollupQuery = `
SELECT COUNT(*), MAX(detected_at)
FROM trend.signals
WHERE product_id = $1
`
	if err := p.QueryRow(ctx, rollupQuery, summary.ProductID).Scan(&detail.SignalCount, &detail.LatestSignalAt); err != nil {
		return nil, fmt.Errorf("query product signal rollup: %w", err)
	}

	return detail, nil
}

func scanProductSummaries(rows *Rows, capacity int) ([]ProductSummary, error) {
	items := make([]ProductSummary, 0, capacity)
	for rows.Next() {
		var s ProductSummary
		if err := rows.Scan(
			&s.ProductID,
			&s.ProductUUID,
			&s.DisplayName,
			&s.Brand,
			&s.Slug,
			&s.CanonicalURL,
			&s.Price,
			&s.BaseScore,
			&s.CurrentScore,
			&s.PeakScore,
			&s.FirstDetectedAt,
			&s.DaysTrending,
			&s.OnPrimarySource,
			&s.LastSeenOnPrimarySource,
			&s.PrimaryRating,
			&s.PrimaryReviewCount,
			&s.Status,
			&s.CreatedAt,
			&s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return items, nil
}

func resolveProductSort(sort string) (string, error) {
	switch strings.TrimSpace(strings.ToLower(sort)) {
	case "", "score":
		return "ORDER BY p.current_score DESC, p.peak_score DESC, p.product_id DESC", nil
	case "peak":
		return "ORDER BY p.peak_score DESC, p.current_score DESC, p.product_id DESC", nil
	case "newest":
		return "ORDER BY p.first_detected_at DESC NULLS LAST, p.product_id DESC", nil
	case "trending":
		return "ORDER BY p.first_detected_at ASC NULLS LAST, p.current_score DESC, p.product_id DESC", nil
	default:
		return "", fmt.Errorf("unknown sort %q", sort)
	}
}
