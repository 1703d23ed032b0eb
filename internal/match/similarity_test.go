package match

import "testing"

func TestSimilarity_IdenticalNames(t *testing.T) {
	t.Parallel()

	if got := Similarity("CeraVe Moisturizing Cream", "CeraVe Moisturizing Cream"); got != 1.0 {
		t.Fatalf("expected identical names to score 1.0, got %f", got)
	}
}

func TestSimilarity_CaseAndPunctuationInsensitive(t *testing.T) {
	t.Parallel()

	if got := Similarity("CeraVe Moisturizing Cream", "cerave moisturizing-cream"); got != 1.0 {
		t.Fatalf("expected normalized match to score 1.0, got %f", got)
	}
}

func TestSimilarity_SubstringContainment(t *testing.T) {
	t.Parallel()

	got := Similarity("CeraVe Moisturizing Cream", "CeraVe Moisturizing Cream 19 oz")
	if got != 0.8 {
		t.Fatalf("expected substring containment to score 0.8, got %f", got)
	}
}

func TestSimilarity_UnrelatedBelowThreshold(t *testing.T) {
	t.Parallel()

	got := Similarity("CeraVe Moisturizing Cream", "Totally Unrelated Item")
	if got >= 0.6 {
		t.Fatalf("expected unrelated names to score below 0.6, got %f", got)
	}
}

func TestSimilarity_PartialTokenOverlap(t *testing.T) {
	t.Parallel()

	got := Similarity("CeraVe Hydrating Facial Cleanser", "CeraVe Foaming Facial Wash")
	if got <= 0 || got >= 0.8 {
		t.Fatalf("expected partial overlap in (0, 0.8), got %f", got)
	}
}

func TestSimilarity_HalfCreditForContainedTokens(t *testing.T) {
	t.Parallel()

	// "moisturizer" contains "moisturize"; both are longer than 3 runes so
	// the pair earns half credit rather than full. Word order differs so the
	// substring shortcut does not fire.
	withContainment := Similarity("Neutrogena Moisturizer Hydro Boost", "Neutrogena Hydro Boost Moisturize")
	if withContainment != 3.5/4.0 {
		t.Fatalf("expected three full + one half credit over four tokens, got %f", withContainment)
	}
}

func TestSimilarity_EmptyInputs(t *testing.T) {
	t.Parallel()

	if got := Similarity("", "CeraVe Moisturizing Cream"); got != 0 {
		t.Fatalf("expected empty name to score 0, got %f", got)
	}
	if got := Similarity("the of and", "CeraVe"); got != 0 {
		t.Fatalf("expected stopword-only name to score 0, got %f", got)
	}
}

func TestSimilarity_ShortTokensIgnored(t *testing.T) {
	t.Parallel()

	// Two-rune tokens contribute nothing even when they match.
	if got := Similarity("la ro", "la ro"); got != 1.0 {
		// Exact normalized match short-circuits before token credit.
		t.Fatalf("expected exact short names to still score 1.0, got %f", got)
	}
	got := Similarity("it cosmetics cc cream", "it cosmetics bb cream")
	if got >= 1.0 {
		t.Fatalf("expected differing short tokens to keep score below 1.0, got %f", got)
	}
}
