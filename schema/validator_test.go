package payloadschema

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestValidateSignalReadingPayload_Valid(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"source":"amazon_movers",
		"signal_type":"sales_spike",
		"candidate_name":"CeraVe Hydrating Facial Cleanser",
		"candidate_url":"https://www.amazon.com/dp/B01MSSDEPK",
		"value":212.5,
		"detected_at":"2026-08-28T09:00:00Z",
		"metadata":{
			"external_ref":"movers_2026_08_28_b01mssdepk",
			"run_id":"run_2026_08_28_001"
		}
	}`)

	reading, err := ValidateSignalReadingPayload(payload)
	if err != nil {
		t.Fatalf("expected payload to be valid, got error: %v", err)
	}

	if reading.Source != "amazon_movers" {
		t.Fatalf("expected source=amazon_movers, got %q", reading.Source)
	}
	if reading.SignalType != SignalTypeSalesSpike {
		t.Fatalf("expected signal_type=sales_spike, got %q", reading.SignalType)
	}
	if reading.Value == nil || *reading.Value != 212.5 {
		t.Fatalf("expected value=212.5, got %v", reading.Value)
	}
	if got := reading.ExternalRef(); got != "movers_2026_08_28_b01mssdepk" {
		t.Fatalf("expected external_ref from metadata, got %q", got)
	}
}

func TestValidateSignalReadingPayload_MissingRequired(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"source":"reddit_sotd",
		"signal_type":"mention",
		"value":88,
		"detected_at":"2026-08-28T09:00:00Z"
	}`)

	_, err := ValidateSignalReadingPayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for missing candidate_name")
	}
}

func TestValidateSignalReadingPayload_NegativeValue(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"source":"amazon_movers",
		"signal_type":"sales_spike",
		"candidate_name":"Some Serum",
		"value":-12,
		"detected_at":"2026-08-28T09:00:00Z"
	}`)

	_, err := ValidateSignalReadingPayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for negative value")
	}
	if !strings.Contains(err.Error(), "negative") {
		t.Fatalf("expected negative value error, got: %v", err)
	}
}

func TestValidateSignalReadingPayload_MentionRequiresValue(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"source":"reddit_sotd",
		"signal_type":"mention",
		"candidate_name":"Paula's Choice BHA Exfoliant",
		"detected_at":"2026-08-28T09:00:00Z"
	}`)

	_, err := ValidateSignalReadingPayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for mention without value")
	}
}

func TestValidateSignalReadingPayload_WatchlistPresenceOnly(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"source":"sephora_trending",
		"signal_type":"watchlist",
		"candidate_name":"Glow Recipe Watermelon Dew Drops",
		"detected_at":"2026-08-28T09:00:00Z",
		"metadata":{"run_id":"run_2026_08_28_002"}
	}`)

	reading, err := ValidateSignalReadingPayload(payload)
	if err != nil {
		t.Fatalf("expected presence-only watchlist reading to be valid, got: %v", err)
	}
	if reading.Value != nil {
		t.Fatalf("expected nil value, got %v", *reading.Value)
	}
	if got := reading.ExternalRef(); got != "run_2026_08_28_002" {
		t.Fatalf("expected run_id fallback for external_ref, got %q", got)
	}
}

func TestValidateSignalReadingPayload_UnknownType(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"source":"reddit_sotd",
		"signal_type":"restock",
		"candidate_name":"The Ordinary Niacinamide",
		"detected_at":"2026-08-28T09:00:00Z"
	}`)

	_, err := ValidateSignalReadingPayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for unknown signal_type")
	}
}

func TestValidateSignalReadingPayload_TrailingContent(t *testing.T) {
	payload := json.RawMessage(`{"payload_version":"v1"} {"extra":true}`)

	_, err := ValidateSignalReadingPayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for trailing content")
	}
}

func TestValidateSignalReadingPayload_BadDetectedAt(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"source":"amazon_movers",
		"signal_type":"watchlist",
		"candidate_name":"Laneige Lip Sleeping Mask",
		"detected_at":"yesterday"
	}`)

	_, err := ValidateSignalReadingPayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for malformed detected_at")
	}
}
