package ui

import (
	"sort"
	"strings"
)

const (
	// DefaultMaxDistance is the largest edit distance still suggested
	DefaultMaxDistance = 3
	// MaxSuggestions caps the number of suggestions returned
	MaxSuggestions = 3
)

// FindSimilar returns the candidates within maxDistance edits of target,
// closest first. Comparison ignores case. A maxDistance of zero means
// DefaultMaxDistance.
func FindSimilar(target string, candidates []string, maxDistance int) []string {
	if maxDistance <= 0 {
		maxDistance = DefaultMaxDistance
	}

	type match struct {
		value    string
		distance int
	}
	var matches []match
	lowered := strings.ToLower(target)
	for _, candidate := range candidates {
		if candidate == target {
			continue
		}
		if d := LevenshteinDistance(lowered, strings.ToLower(candidate)); d <= maxDistance {
			matches = append(matches, match{candidate, d})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].distance < matches[j].distance
	})

	out := make([]string, 0, MaxSuggestions)
	for i := 0; i < len(matches) && i < MaxSuggestions; i++ {
		out = append(out, matches[i].value)
	}
	return out
}

// LevenshteinDistance returns the number of single byte insertions,
// deletions or substitutions turning a into b.
func LevenshteinDistance(a, b string) int {
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
