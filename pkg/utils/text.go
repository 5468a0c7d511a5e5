package utils

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MultipleSpaces matches any sequence of whitespace (including newlines).
var MultipleSpaces = regexp.MustCompile(`\s+`)

// CompressAllWhitespace replaces all whitespace sequences with a single space.
func CompressAllWhitespace(s string) string {
	return strings.TrimSpace(MultipleSpaces.ReplaceAllString(s, " "))
}

// newFoldTransformer builds the folding chain. Transformers keep state, so
// every call gets its own chain.
func newFoldTransformer() transform.Transformer {
	return transform.Chain(
		norm.NFKD,                          // Decompose with compatibility decomposition
		runes.Remove(runes.In(unicode.Mn)), // Remove non-spacing marks
		runes.Map(unicode.ToLower),
		norm.NFKC,
	)
}

// FoldText lowercases s, strips diacritics and folds compatibility forms such
// as fullwidth letters to their plain equivalents. Whitespace runs collapse to
// a single space. Safe for concurrent use.
func FoldText(s string) string {
	s = CompressAllWhitespace(s)
	if s == "" {
		return ""
	}

	result, _, err := transform.String(newFoldTransformer(), s)
	if err != nil {
		return strings.ToLower(s)
	}

	return result
}

// ContainsFold reports whether substr is within s after both are folded.
// Empty inputs never match.
func ContainsFold(s, substr string) bool {
	s, substr = FoldText(s), FoldText(substr)
	if s == "" || substr == "" {
		return false
	}

	return strings.Contains(s, substr)
}
