package duplicate

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// CalculateSimilarity returns the normalised Levenshtein similarity of two strings in [0, 1],
// ignoring case and surrounding whitespace.
func CalculateSimilarity(s1, s2 string) float64 {
	a := normalize(s1)
	b := normalize(s2)

	if a == "" || b == "" {
		return 0
	}

	if a == b {
		return 1.0
	}

	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))

	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(maxLen)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
