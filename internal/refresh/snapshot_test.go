package refresh

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestSnapshotFetcher_Fetch(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "snapshot.json")
	content := `{
		"https://www.amazon.com/dp/B01MSSDEPK": {"rating": 4.7, "review_count": 98123},
		"https://www.amazon.com/dp/B00TTD9BRC": {"rating": 4.4}
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}

	fetcher := NewSnapshotFetcher(path)

	metadata, err := fetcher.Fetch(context.Background(), "https://www.amazon.com/dp/B01MSSDEPK?tag=affiliate-20")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if metadata.Rating == nil || *metadata.Rating != 4.7 {
		t.Fatalf("expected rating 4.7, got %v", metadata.Rating)
	}
	if metadata.ReviewCount == nil || *metadata.ReviewCount != 98123 {
		t.Fatalf("expected review_count 98123, got %v", metadata.ReviewCount)
	}

	partial, err := fetcher.Fetch(context.Background(), "https://www.amazon.com/dp/B00TTD9BRC")
	if err != nil {
		t.Fatalf("Fetch partial entry: %v", err)
	}
	if partial.ReviewCount != nil {
		t.Fatalf("expected nil review_count, got %v", *partial.ReviewCount)
	}
}

func TestSnapshotFetcher_MissingEntry(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}

	fetcher := NewSnapshotFetcher(path)
	if _, err := fetcher.Fetch(context.Background(), "https://www.amazon.com/dp/B01MSSDEPK"); err == nil {
		t.Fatalf("expected error for missing entry")
	}
}

func TestSnapshotFetcher_MissingFile(t *testing.T) {
	t.Parallel()

	fetcher := NewSnapshotFetcher(filepath.Join(t.TempDir(), "missing.json"))
	if _, err := fetcher.Fetch(context.Background(), "https://example.com/p/1"); err == nil {
		t.Fatalf("expected error for missing snapshot file")
	}
}
