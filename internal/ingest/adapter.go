package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rgourley/styleluxe/internal/faults"
	payloadschema "github.com/rgourley/styleluxe/schema"
)

// SourceAdapter yields the current batch of signal readings for one
// upstream source. Fetch must return schema-valid readings; the runner
// treats an adapter error as a failure of that source, not of the scan.
type SourceAdapter interface {
	Source() string
	Fetch(ctx context.Context) ([]payloadschema.SignalReading, error)
}

// ReadingDirAdapter reads signal payloads dropped as JSON files into a
// directory, one reading or an array of readings per file. Scraper jobs
// write their output there and the scan picks it up.
type ReadingDirAdapter struct {
	source string
	dir    string
}

func NewReadingDirAdapter(source, dir string) *ReadingDirAdapter {
	return &ReadingDirAdapter{
		source: strings.TrimSpace(source),
		dir:    dir,
	}
}

func (a *ReadingDirAdapter) Source() string {
	return a.source
}

func (a *ReadingDirAdapter) Fetch(ctx context.Context) ([]payloadschema.SignalReading, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return nil, faults.Adapter(a.source, "", fmt.Errorf("read directory %s: %w", a.dir, err))
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var readings []payloadschema.SignalReading
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw, err := os.ReadFile(filepath.Join(a.dir, name))
		if err != nil {
			return nil, faults.Adapter(a.source, "", fmt.Errorf("read %s: %w", name, err))
		}

		fileReadings, err := decodeReadings(raw)
		if err != nil {
			return nil, faults.Adapter(a.source, "", fmt.Errorf("decode %s: %w", name, err))
		}
		readings = append(readings, fileReadings...)
	}

	return readings, nil
}

func decodeReadings(raw []byte) ([]payloadschema.SignalReading, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("file is empty")
	}

	var payloads []json.RawMessage
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &payloads); err != nil {
			return nil, fmt.Errorf("decode reading array: %w", err)
		}
	} else {
		payloads = []json.RawMessage{json.RawMessage(trimmed)}
	}

	readings := make([]payloadschema.SignalReading, 0, len(payloads))
	for i, payload := range payloads {
		reading, err := payloadschema.ValidateSignalReadingPayload(payload)
		if err != nil {
			return nil, fmt.Errorf("reading %d: %w", i, err)
		}
		readings = append(readings, *reading)
	}
	return readings, nil
}
