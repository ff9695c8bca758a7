// Package fuzzy matches mistyped shell input against known names.
package fuzzy

import (
	"sort"
	"strings"
	"unicode"
)

// LevenshteinDistance calculates the case-insensitive edit distance between
// two strings, counted in runes.
func LevenshteinDistance(s1, s2 string) int {
	a := []rune(strings.ToLower(s1))
	b := []rune(strings.ToLower(s2))

	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// Similarity returns a score between 0 and 1 indicating how similar two strings are.
// 1.0 means identical, 0.0 means completely different.
func Similarity(s1, s2 string) float64 {
	longest := max(len([]rune(s1)), len([]rune(s2)))
	if longest == 0 {
		return 1.0
	}
	return 1.0 - float64(LevenshteinDistance(s1, s2))/float64(longest)
}

// threshold is the similarity a word of the given length needs to count as
// a typo of another. Short words tolerate fewer edits.
func threshold(word string) float64 {
	switch n := len([]rune(word)); {
	case n <= 3:
		return 0.8
	case n <= 5:
		return 0.7
	default:
		return 0.65
	}
}

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// ContainsFuzzy reports whether query occurs in text, either literally or as
// a word close enough to one of the words of text. Dotted sink names are
// split into words.
func ContainsFuzzy(text, query string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return false
	}
	if strings.Contains(strings.ToLower(text), query) {
		return true
	}

	textWords := words(text)
	queryWords := words(query)
	if len(queryWords) == 0 {
		return false
	}

	matched := 0
	for _, q := range queryWords {
		for _, w := range textWords {
			if Similarity(w, q) >= threshold(q) {
				matched++
				break
			}
		}
	}
	return float64(matched)/float64(len(queryWords)) >= 0.6
}

// Score rates how well candidate matches query: 1 for a prefix, 0.95 for a
// substring, otherwise the similarity scaled below those.
func Score(candidate, query string) float64 {
	c := strings.ToLower(candidate)
	q := strings.ToLower(query)
	switch {
	case q == "":
		return 0
	case strings.HasPrefix(c, q):
		return 1.0
	case strings.Contains(c, q):
		return 0.95
	default:
		return Similarity(c, q) * 0.9
	}
}

// Closest returns the candidate scoring highest against query, ties broken
// alphabetically. ok is false when no candidate is a plausible match.
func Closest(query string, candidates []string) (best string, ok bool) {
	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)

	bestScore := 0.0
	for _, c := range sorted {
		if s := Score(c, query); s > bestScore {
			best, bestScore = c, s
		}
	}
	if bestScore < threshold(query)*0.9 {
		return "", false
	}
	return best, true
}
