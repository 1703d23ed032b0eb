package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ScoreSampleView is one point on a product's score history chart.
type ScoreSampleView struct {
	RecordedAt   time.Time `json:"recorded_at"`
	BaseScore    int       `json:"base_score"`
	CurrentScore int       `json:"current_score"`
}

// ListScoreSamples returns the most recent score history for a product,
// oldest first. Returns ErrNoRows when the product does not exist.
func (p *Pool) ListScoreSamples(ctx context.Context, productUUID string, limit int) ([]ScoreSampleView, error) {
	trimmedUUID := strings.TrimSpace(productUUID)
	if trimmedUUID == "" {
		return nil, fmt.Errorf("product UUID is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	const productQuery = `
SELECT product_id
FROM trend.products
WHERE product_uuid = $1::uuid
`
	var productID int64
	if err := p.QueryRow(ctx, productQuery, trimmedUUID).Scan(&productID); err != nil {
		if errors.Is(err, ErrNoRows) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("query product for history: %w", err)
	}

	const q = `
SELECT recorded_at, base_score, current_score
FROM (
	SELECT recorded_at, base_score, current_score
	FROM trend.score_samples
	WHERE product_id = $1
	ORDER BY recorded_at DESC
	LIMIT $2
) recent
ORDER BY recorded_at ASC
`

	rows, err := p.Query(ctx, q, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("query score samples: %w", err)
	}
	defer rows.Close()

	samples := make([]ScoreSampleView, 0, limit)
	for rows.Next() {
		var sample ScoreSampleView
		if err := rows.Scan(&sample.RecordedAt, &sample.BaseScore, &sample.CurrentScore); err != nil {
			return nil, fmt.Errorf("scan score sample: %w", err)
		}
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate score samples: %w", err)
	}
	return samples, nil
}
