// Package textmatch compares free-form names and addresses the way a human
// would: ignoring case, surrounding space and diacritics.
package textmatch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases s, strips diacritics (ș -> s, ă -> a) and collapses
// whitespace.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// Equal reports whether a and b are the same after normalisation.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// Similarity scores two names in [0, 1]: 1 for equal names, 0.8 when one
// contains the other, otherwise the share of common words (Jaccard index).
func Similarity(a, b string) float64 {
	a, b = Normalize(a), Normalize(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 0.8
	}

	wordsA := wordSet(a)
	wordsB := wordSet(b)
	union := make(map[string]struct{}, len(wordsA)+len(wordsB))
	overlap := 0
	for w := range wordsA {
		union[w] = struct{}{}
		if _, ok := wordsB[w]; ok {
			overlap++
		}
	}
	for w := range wordsB {
		union[w] = struct{}{}
	}
	if len(union) == 0 {
		return 0
	}
	return float64(overlap) / float64(len(union))
}

// Score is Similarity scaled to an integer percentage.
func Score(a, b string) int {
	return int(Similarity(a, b)*100 + 0.5)
}

func wordSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		out[w] = struct{}{}
	}
	return out
}
