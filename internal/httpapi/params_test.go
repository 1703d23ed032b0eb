package httpapi

import "testing"

func TestParsePositiveInt(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name         string
		raw          string
		defaultValue int
		minValue     int
		maxValue     int
		want         int
		wantErr      bool
	}{
		{name: "empty uses default", raw: "", defaultValue: 25, minValue: 1, maxValue: 200, want: 25},
		{name: "valid value", raw: "50", defaultValue: 25, minValue: 1, maxValue: 200, want: 50},
		{name: "at minimum", raw: "1", defaultValue: 25, minValue: 1, maxValue: 200, want: 1},
		{name: "at maximum", raw: "200", defaultValue: 25, minValue: 1, maxValue: 200, want: 200},
		{name: "zero min score allowed", raw: "0", defaultValue: 40, minValue: 0, maxValue: 100, want: 0},
		{name: "below minimum", raw: "0", defaultValue: 25, minValue: 1, maxValue: 200, wantErr: true},
		{name: "above maximum", raw: "201", defaultValue: 25, minValue: 1, maxValue: 200, wantErr: true},
		{name: "not a number", raw: "ten", defaultValue: 25, minValue: 1, maxValue: 200, wantErr: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := parsePositiveInt(tc.raw, tc.defaultValue, tc.minValue, tc.maxValue)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestNeedsContentFilters_DefaultsToEveryFlaggedProduct(t *testing.T) {
	t.Parallel()

	minScore, limit, fieldErrors := needsContentFilters("", "")
	if fieldErrors != nil {
		t.Fatalf("unexpected field errors: %v", fieldErrors)
	}
	if minScore != 0 {
		t.Fatalf("default min_score = %d, want 0 so a fresh low-score detection still reaches the queue", minScore)
	}
	if limit != defaultPageSize {
		t.Fatalf("default limit = %d, want %d", limit, defaultPageSize)
	}
}

func TestNeedsContentFilters_RejectsBadValues(t *testing.T) {
	t.Parallel()

	if _, _, fieldErrors := needsContentFilters("abc", ""); fieldErrors["min_score"] == "" {
		t.Fatalf("expected a min_score field error, got %v", fieldErrors)
	}
	if _, _, fieldErrors := needsContentFilters("", "0"); fieldErrors["limit"] == "" {
		t.Fatalf("expected a limit field error, got %v", fieldErrors)
	}
}
