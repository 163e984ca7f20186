// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import (
	"strings"

	"github.com/agext/levenshtein"
	"github.com/pmezard/go-difflib/difflib"
)

// Similarity scores two strings in [0, 1]. Implementations must be
// symmetric and case-insensitive.
type Similarity func(a, b string) float64

// Ratio is the gestalt pattern matching (Ratcliff/Obershelp) ratio 2·M/T
// computed by difflib's SequenceMatcher over the characters of both
// strings. Inputs are lower-cased and put in a fixed order so the result is
// symmetric. Two empty strings score 1.
func Ratio(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a > b {
		a, b = b, a
	}
	return difflib.NewMatcher(chars(a), chars(b)).Ratio()
}

// chars splits s into one element per rune.
func chars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// Levenshtein is the normalized edit similarity 1 - distance/maxlen,
// computed case-insensitively.
func Levenshtein(a, b string) float64 {
	return levenshtein.Similarity(strings.ToLower(a), strings.ToLower(b), nil)
}
