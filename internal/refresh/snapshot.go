package refresh

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rgourley/styleluxe/internal/match"
)

// SnapshotFetcher serves metadata from a JSON snapshot file written by the
// scraper job, keyed by normalized product URL:
//
//	{"https://www.amazon.com/dp/B01MSSDEPK": {"rating": 4.7, "review_count": 98123}}
//
// A product missing from the snapshot is an error; the refresh run counts
// it as failed and tries again next run.
type SnapshotFetcher struct {
	path string
}

type snapshotEntry struct {
	Rating      *float64 `json:"rating"`
	ReviewCount *int     `json:"review_count"`
}

func NewSnapshotFetcher(path string) *SnapshotFetcher {
	return &SnapshotFetcher{path: path}
}

func (f *SnapshotFetcher) Fetch(ctx context.Context, canonicalURL string) (Metadata, error) {
	if err := ctx.Err(); err != nil {
		return Metadata{}, err
	}

	raw, err := os.ReadFile(f.path)
	if err != nil {
		return Metadata{}, fmt.Errorf("read snapshot %s: %w", f.path, err)
	}

	var entries map[string]snapshotEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return Metadata{}, fmt.Errorf("decode snapshot %s: %w", f.path, err)
	}

	key, _ := match.NormalizeURL(canonicalURL)
	entry, ok := entries[key]
	if !ok {
		entry, ok = entries[canonicalURL]
	}
	if !ok {
		return Metadata{}, fmt.Errorf("snapshot has no entry for %s", canonicalURL)
	}

	return Metadata{
		Rating:      entry.Rating,
		ReviewCount: entry.ReviewCount,
	}, nil
}
