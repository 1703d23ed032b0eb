package langdetect

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateSample_ShortTextUntouched(t *testing.T) {
	t.Parallel()

	text := "short mention text"
	if got := truncateSample(text); got != text {
		t.Fatalf("truncateSample(%q) = %q, want unchanged", text, got)
	}
}

func TestTruncateSample_MultiByteBoundary(t *testing.T) {
	t.Parallel()

	// Each rune is 3 bytes, so the raw byte cap lands mid-rune.
	text := strings.Repeat("제품이", 300)
	got := truncateSample(text)

	if len(got) > maxSampleLength {
		t.Fatalf("truncated sample is %d bytes, want <= %d", len(got), maxSampleLength)
	}
	if !utf8.ValidString(got) {
		t.Fatalf("truncated sample is not valid UTF-8")
	}
	if len(got) == 0 {
		t.Fatalf("truncated sample is empty")
	}
}

func TestTruncateSample_AsciiExactCap(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("a", maxSampleLength+500)
	got := truncateSample(text)
	if len(got) != maxSampleLength {
		t.Fatalf("truncated sample is %d bytes, want exactly %d", len(got), maxSampleLength)
	}
}
