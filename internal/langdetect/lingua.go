// Package langdetect tags mention text with an ISO 639-1 language code so
// editors can filter non-English chatter. Detection is restricted to the
// languages the mention communities actually post in; anything else comes
// back empty rather than as a low-confidence guess.
package langdetect

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	lingua "github.com/pemistahl/lingua-go"
)

const maxSampleLength = 2000

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

func DetectISO6391(text string) string {
	sample := truncateSample(strings.TrimSpace(text))
	if sample == "" {
		return ""
	}

	letterCount := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			letterCount++
		}
	}
	if letterCount < 6 {
		return ""
	}

	language, exists := getDetector().DetectLanguageOf(sample)
	if !exists {
		return ""
	}

	code := strings.ToLower(language.IsoCode639_1().String())
	if len(code) != 2 {
		return ""
	}
	return code
}

// truncateSample caps the detector input, backing off to a rune boundary
// so a cut never leaves an invalid UTF-8 tail.
func truncateSample(text string) string {
	if len(text) <= maxSampleLength {
		return text
	}
	cut := maxSampleLength
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

func getDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(
				lingua.English,
				lingua.Spanish,
				lingua.French,
				lingua.German,
				lingua.Portuguese,
				lingua.Korean,
				lingua.Japanese,
			).
			WithPreloadedLanguageModels().
			Build()
	})
	return detector
}
