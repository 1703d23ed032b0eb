package match

import (
	"strings"
	"unicode"
)

// Similarity thresholds used by Resolve and its callers. An exact
// normalized match scores 1.0 and a one-way substring containment 0.8;
// everything else falls through to token overlap.
const (
	scoreExactMatch     = 1.0
	scoreSubstringMatch = 0.8
)

var nameStopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {},
	"and": {}, "or": {}, "of": {}, "for": {}, "with": {},
	"by": {}, "in": {}, "on": {}, "to": {},
	"oz": {}, "ml": {}, "fl": {}, "pack": {}, "count": {},
}

// Similarity scores how likely two product names refer to the same
// real-world item, in [0, 1]. It is a pure function: normalize both names,
// check exact and substring containment, then fall back to word overlap
// where exact token matches earn full credit and substring containment of
// longer tokens earns half credit.
func Similarity(a, b string) float64 {
	normA := normalizeName(a)
	normB := normalizeName(b)
	if normA == "" || normB == "" {
		return 0
	}
	if normA == normB {
		return scoreExactMatch
	}
	if strings.Contains(normA, normB) || strings.Contains(normB, normA) {
		return scoreSubstringMatch
	}

	tokensA := strings.Fields(normA)
	tokensB := strings.Fields(normB)
	longest := max(len(tokensA), len(tokensB))
	if longest == 0 {
		return 0
	}

	used := make([]bool, len(tokensB))
	credit := 0.0
	for _, tokenA := range tokensA {
		if len([]rune(tokenA)) <= 2 {
			continue
		}
		for i, tokenB := range tokensB {
			if used[i] {
				continue
			}
			if tokenA == tokenB {
				used[i] = true
				credit += 1.0
				break
			}
			if len([]rune(tokenA)) > 3 && len([]rune(tokenB)) > 3 &&
				(strings.Contains(tokenA, tokenB) || strings.Contains(tokenB, tokenA)) {
				used[i] = true
				credit += 0.5
				break
			}
		}
	}

	return credit / float64(longest)
}

func normalizeName(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	if lowered == "" {
		return ""
	}

	var sb strings.Builder
	sb.Grow(len(lowered))
	for _, r := range lowered {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			continue
		}
		sb.WriteRune(' ')
	}

	fields := strings.Fields(sb.String())
	kept := make([]string, 0, len(fields))
	for _, field := range fields {
		if _, stop := nameStopwords[field]; stop {
			continue
		}
		kept = append(kept, field)
	}
	return strings.Join(kept, " ")
}
