package payloadschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed signal_reading.schema.json
var signalReadingSchemaJSON string

// SignalReading is one observed demand signal for a candidate product, as
// produced by a source adapter or read from a batch file.
type SignalReading struct {
	PayloadVersion string         `json:"payload_version"`
	Source         string         `json:"source"`
	SignalType     string         `json:"signal_type"`
	CandidateName  string         `json:"candidate_name"`
	CandidateURL   *string        `json:"candidate_url,omitempty"`
	CandidateBrand *string        `json:"candidate_brand,omitempty"`
	CandidatePrice *string        `json:"candidate_price,omitempty"`
	Value          *float64       `json:"value,omitempty"`
	Text           *string        `json:"text,omitempty"`
	DetectedAt     string         `json:"detected_at"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

const (
	SignalTypeSalesSpike = "sales_spike"
	SignalTypeWatchlist  = "watchlist"
	SignalTypeMention    = "mention"
)

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// ValidateSignalReadingPayload checks a raw JSON payload against the
// embedded schema plus the semantic rules the schema cannot express, and
// returns the decoded reading.
func ValidateSignalReadingPayload(payload json.RawMessage) (*SignalReading, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize payload JSON: %w", err)
	}

	var reading SignalReading
	if err := json.Unmarshal(normalized, &reading); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := validateSemantics(&reading); err != nil {
		return nil, err
	}

	return &reading, nil
}

// ExternalRef derives the idempotency key for the reading: an explicit
// external_ref wins, then post_id, then run_id.
func (r *SignalReading) ExternalRef() string {
	if r == nil {
		return ""
	}
	for _, key := range []string{"external_ref", "post_id", "run_id"} {
		if raw, ok := r.Metadata[key]; ok {
			if s, ok := raw.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// DetectedAtTime parses the detected_at timestamp. Validation already
// guarantees the format, so errors indicate a reading that skipped it.
func (r *SignalReading) DetectedAtTime() (time.Time, error) {
	return time.Parse(time.RFC3339, strings.TrimSpace(r.DetectedAt))
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("signal_reading.schema.json", strings.NewReader(signalReadingSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("signal_reading.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}

func validateSemantics(reading *SignalReading) error {
	if reading == nil {
		return fmt.Errorf("payload is nil")
	}

	if strings.TrimSpace(reading.PayloadVersion) != "v1" {
		return fmt.Errorf("payload_version must be v1")
	}
	if strings.TrimSpace(reading.Source) == "" {
		return fmt.Errorf("source must not be empty")
	}
	if strings.TrimSpace(reading.CandidateName) == "" {
		return fmt.Errorf("candidate_name must not be empty")
	}

	switch reading.SignalType {
	case SignalTypeSalesSpike, SignalTypeMention:
		if reading.Value == nil {
			return fmt.Errorf("%s readings require a value", reading.SignalType)
		}
		if *reading.Value < 0 {
			return fmt.Errorf("value must not be negative")
		}
	case SignalTypeWatchlist:
		if reading.Value != nil && *reading.Value < 0 {
			return fmt.Errorf("value must not be negative")
		}
	default:
		return fmt.Errorf("unknown signal_type %q", reading.SignalType)
	}

	if reading.CandidateURL != nil {
		if err := validateURI("candidate_url", *reading.CandidateURL); err != nil {
			return err
		}
	}

	if _, err := time.Parse(time.RFC3339, strings.TrimSpace(reading.DetectedAt)); err != nil {
		return fmt.Errorf("detected_at must be RFC3339: %w", err)
	}

	return nil
}

func validateURI(fieldName, value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fmt.Errorf("%s must not be empty", fieldName)
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return fmt.Errorf("%s is not a valid URI: %w", fieldName, err)
	}
	return nil
}
