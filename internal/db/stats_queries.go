package db

import (
	"context"
	"fmt"
	"time"
)

// StatsStatusCount stores per-status product counts.
type StatsStatusCount struct {
	Status   string `json:"status"`
	Products int64  `json:"products"`
	Listed   int64  `json:"listed"`
}

// StatsTotals stores totals across statuses.
type StatsTotals struct {
	Products int64 `json:"products"`
	Signals  int64 `json:"signals"`
	Listed   int64 `json:"listed"`
}

// EngineThroughput stores daily throughput and backlog counters.
type EngineThroughput struct {
	SignalsIngestedToday int64 `json:"signals_ingested_today"`
	ProductsFlaggedToday int64 `json:"products_flagged_today"`
	ScansCompletedToday  int64 `json:"scans_completed_today"`
	PendingContent       int64 `json:"pending_content"`
}

// EngineStats is the read model returned by the stats endpoint.
type EngineStats struct {
	Day        string             `json:"day"`
	Statuses   []StatsStatusCount `json:"statuses"`
	Totals     StatsTotals        `json:"totals"`
	Throughput EngineThroughput   `json:"throughput"`
}

// QueryEngineStats returns per-status and total counts plus daily throughput.
func (p *Pool) QueryEngineStats(ctx context.Context, dayStart, dayEnd time.Time) (*EngineStats, error) {
	startUTC := dayStart.UTC()
	endUTC := dayEnd.UTC()
	if !startUTC.Before(endUTC) {
		return nil, fmt.Errorf("dayStart must be before dayEnd")
	}

	stats := &EngineStats{
		Day:      startUTC.Format("2006-01-02"),
		Statuses: make([]StatsStatusCount, 0, 4),
	}

	const countsQuery = `
SELECT
	p.status,
	COUNT(*)::BIGINT AS products,
	COUNT(*) FILTER (WHERE p.on_primary_source)::BIGINT AS listed
FROM trend.products p
GROUP BY p.status
ORDER BY 1
`

	rows, err := p.Query(ctx, countsQuery)
	if err != nil {
		return nil, fmt.Errorf("query stats status counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row StatsStatusCount
		if err := rows.Scan(&row.Status, &row.Products, &row.Listed); err != nil {
			return nil, fmt.Errorf("scan stats status row: %w", err)
		}
		stats.Statuses = append(stats.Statuses, row)
		stats.Totals.Products += row.Products
		stats.Totals.Listed += row.Listed
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats status rows: %w", err)
	}

	const signalsQuery = `SELECT COUNT(*)::BIGINT FROM trend.signals`
	if err := p.QueryRow(ctx, signalsQuery).Scan(&stats.Totals.Signals); err != nil {
		return nil, fmt.Errorf("query stats signal total: %w", err)
	}

	const throughputQuery = `
SELECT
	(SELECT COUNT(*) FROM trend.signals s WHERE s.created_at >= $1 AND s.created_at < $2) AS signals_ingested_today,
	(SELECT COUNT(*) FROM trend.products p WHERE p.created_at >= $1 AND p.created_at < $2) AS products_flagged_today,
	(SELECT COUNT(*) FROM trend.scan_runs r WHERE r.status = 'completed' AND r.finished_at >= $1 AND r.finished_at < $2) AS scans_completed_today,
	(SELECT COUNT(*) FROM trend.products p WHERE p.status = 'flagged' AND NOT EXISTS (SELECT 1 FROM trend.product_contents c WHERE c.product_id = p.product_id)) AS pending_content
`

	if err := p.QueryRow(ctx, throughputQuery, startUTC, endUTC).Scan(
		&stats.Throughput.SignalsIngestedToday,
		&stats.Throughput.ProductsFlaggedToday,
		&stats.Throughput.ScansCompletedToday,
		&stats.Throughput.PendingContent,
	); err != nil {
		return nil, fmt.Errorf("query stats throughput: %w", err)
	}

	return stats, nil
}
