package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeReadingFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestReadingDirAdapter_Fetch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeReadingFile(t, dir, "01_single.json", `{
		"payload_version":"v1",
		"source":"amazon_movers",
		"signal_type":"sales_spike",
		"candidate_name":"CeraVe Hydrating Facial Cleanser",
		"value":200,
		"detected_at":"2026-08-28T09:00:00Z",
		"metadata":{"external_ref":"movers_a"}
	}`)
	writeReadingFile(t, dir, "02_batch.json", `[
		{
			"payload_version":"v1",
			"source":"amazon_movers",
			"signal_type":"watchlist",
			"candidate_name":"Laneige Lip Sleeping Mask",
			"detected_at":"2026-08-28T09:05:00Z",
			"metadata":{"external_ref":"movers_b"}
		},
		{
			"payload_version":"v1",
			"source":"amazon_movers",
			"signal_type":"sales_spike",
			"candidate_name":"The Ordinary Niacinamide",
			"value":150,
			"detected_at":"2026-08-28T09:10:00Z",
			"metadata":{"external_ref":"movers_c"}
		}
	]`)
	writeReadingFile(t, dir, "ignore.txt", "not json")

	adapter := NewReadingDirAdapter("amazon_movers", dir)
	readings, err := adapter.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if len(readings) != 3 {
		t.Fatalf("expected 3 readings, got %d", len(readings))
	}
	if readings[0].CandidateName != "CeraVe Hydrating Facial Cleanser" {
		t.Fatalf("expected files read in name order, got first %q", readings[0].CandidateName)
	}
	if readings[1].SignalType != "watchlist" {
		t.Fatalf("expected second reading watchlist, got %q", readings[1].SignalType)
	}
}

func TestReadingDirAdapter_InvalidReading(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeReadingFile(t, dir, "bad.json", `{
		"payload_version":"v1",
		"source":"amazon_movers",
		"signal_type":"sales_spike",
		"candidate_name":"Broken Reading",
		"detected_at":"2026-08-28T09:00:00Z"
	}`)

	adapter := NewReadingDirAdapter("amazon_movers", dir)
	if _, err := adapter.Fetch(context.Background()); err == nil {
		t.Fatalf("expected fetch to fail for sales_spike without value")
	}
}

func TestReadingDirAdapter_MissingDir(t *testing.T) {
	t.Parallel()

	adapter := NewReadingDirAdapter("amazon_movers", filepath.Join(t.TempDir(), "missing"))
	if _, err := adapter.Fetch(context.Background()); err == nil {
		t.Fatalf("expected fetch to fail for missing directory")
	}
}
