package ui

import (
	"sort"
	"strings"
)

const (
	// DefaultMaxDistance is the maximum edit distance considered a match
	DefaultMaxDistance = 3
	// DefaultMaxSuggestions is the maximum number of suggestions returned
	DefaultMaxSuggestions = 3
)

// FuzzyMatchOptions configures fuzzy matching behavior
type FuzzyMatchOptions struct {
	MaxDistance    int
	MaxSuggestions int
	CaseSensitive  bool
}

type suggestion struct {
	value    string
	distance int
}

// FindSimilar returns the candidates closest to target by edit distance,
// nearest first. Used to build "did you mean" hints for unknown collection
// and field names.
func FindSimilar(target string, candidates []string, opts *FuzzyMatchOptions) []string {
	if opts == nil {
		opts = &FuzzyMatchOptions{}
	}
	maxDistance := opts.MaxDistance
	if maxDistance == 0 {
		maxDistance = DefaultMaxDistance
	}
	maxSuggestions := opts.MaxSuggestions
	if maxSuggestions == 0 {
		maxSuggestions = DefaultMaxSuggestions
	}

	var matches []suggestion
	for _, candidate := range candidates {
		targetCmp, candidateCmp := target, candidate
		if !opts.CaseSensitive {
			targetCmp = strings.ToLower(target)
			candidateCmp = strings.ToLower(candidate)
		}
		if dist := levenshtein(targetCmp, candidateCmp); dist <= maxDistance {
			matches = append(matches, suggestion{value: candidate, distance: dist})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].distance < matches[j].distance
	})

	result := make([]string, 0, maxSuggestions)
	for i := 0; i < len(matches) && i < maxSuggestions; i++ {
		result = append(result, matches[i].value)
	}
	return result
}

// levenshtein is the minimum number of single-character edits turning s1
// into s2.
func levenshtein(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := 0; j <= len(s2); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = prev[j] + 1 // deletion
			if ins := curr[j-1] + 1; ins < curr[j] {
				curr[j] = ins
			}
			if sub := prev[j-1] + cost; sub < curr[j] {
				curr[j] = sub
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(s2)]
}
