package ingest

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rgourley/styleluxe/internal/db"
	"github.com/rgourley/styleluxe/internal/faults"
	payloadschema "github.com/rgourley/styleluxe/schema"
)

func TestFallbackExternalRef_Deterministic(t *testing.T) {
	t.Parallel()

	detectedAt := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	reading := &payloadschema.SignalReading{
		Source:        "reddit_sotd",
		SignalType:    payloadschema.SignalTypeMention,
		CandidateName: "CeraVe Hydrating Facial Cleanser",
	}

	first := fallbackExternalRef(reading, detectedAt)
	second := fallbackExternalRef(reading, detectedAt)
	if first != second {
		t.Fatalf("expected deterministic ref, got %q and %q", first, second)
	}
	if first == "" {
		t.Fatalf("expected non-empty fallback ref")
	}

	other := &payloadschema.SignalReading{
		Source:        "reddit_sotd",
		SignalType:    payloadschema.SignalTypeMention,
		CandidateName: "A Different Cleanser",
	}
	if got := fallbackExternalRef(other, detectedAt); got == first {
		t.Fatalf("expected distinct refs for distinct candidates, both %q", got)
	}
}

func TestFallbackExternalRef_NameCaseInsensitive(t *testing.T) {
	t.Parallel()

	detectedAt := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	lower := &payloadschema.SignalReading{
		Source:        "sephora_trending",
		SignalType:    payloadschema.SignalTypeWatchlist,
		CandidateName: "laneige lip sleeping mask",
	}
	upper := &payloadschema.SignalReading{
		Source:        "sephora_trending",
		SignalType:    payloadschema.SignalTypeWatchlist,
		CandidateName: "Laneige Lip Sleeping Mask",
	}

	if fallbackExternalRef(lower, detectedAt) != fallbackExternalRef(upper, detectedAt) {
		t.Fatalf("expected casing not to change the fallback ref")
	}
}

func TestBuildMetadata_PreservesFields(t *testing.T) {
	t.Parallel()

	reading := &payloadschema.SignalReading{
		Source:        "reddit_sotd",
		SignalType:    payloadschema.SignalTypeMention,
		CandidateName: "Paula's Choice BHA Exfoliant",
		Metadata: map[string]any{
			"post_id": "t3_abc123",
			"run_id":  "run_2026_08_28_001",
		},
	}

	raw, err := buildMetadata(reading)
	if err != nil {
		t.Fatalf("buildMetadata: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode metadata: %v", err)
	}
	if decoded["post_id"] != "t3_abc123" {
		t.Fatalf("expected post_id preserved, got %v", decoded["post_id"])
	}
	if _, ok := decoded["text"]; ok {
		t.Fatalf("expected no text key for reading without text")
	}
}

func TestBuildMetadata_TrimsText(t *testing.T) {
	t.Parallel()

	text := "  Holy grail cleanser, repurchased three times.  "
	reading := &payloadschema.SignalReading{
		Source:        "reddit_sotd",
		SignalType:    payloadschema.SignalTypeMention,
		CandidateName: "CeraVe Hydrating Facial Cleanser",
		Text:          &text,
	}

	raw, err := buildMetadata(reading)
	if err != nil {
		t.Fatalf("buildMetadata: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode metadata: %v", err)
	}
	if decoded["text"] != "Holy grail cleanser, repurchased three times." {
		t.Fatalf("expected trimmed text, got %q", decoded["text"])
	}
}

func TestInsertOutcome_FreshSignal(t *testing.T) {
	t.Parallel()

	inserted, err := insertOutcome(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !inserted {
		t.Fatalf("a returned row must report inserted = true")
	}
}

func TestInsertOutcome_DuplicateKeySkips(t *testing.T) {
	t.Parallel()

	inserted, err := insertOutcome(db.ErrNoRows)
	if err != nil {
		t.Fatalf("a duplicate idempotency key is not an error, got %v", err)
	}
	if inserted {
		t.Fatalf("a conflicting reading must report inserted = false")
	}
}

func TestInsertOutcome_StorageFailure(t *testing.T) {
	t.Parallel()

	inserted, err := insertOutcome(errors.New("connection reset"))
	if err == nil {
		t.Fatalf("expected a storage error")
	}
	if !faults.IsStorage(err) {
		t.Fatalf("expected a storage fault, got %v", err)
	}
	if inserted {
		t.Fatalf("a failed insert must not report inserted = true")
	}
}
