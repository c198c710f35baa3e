package validate

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Closest returns the candidate nearest to word by edit distance, compared
// case-insensitively. Candidates further away than a length-dependent
// limit are ignored; ties go to the earliest candidate.
func Closest(word string, candidates []string) (string, bool) {
	w := strings.ToLower(strings.TrimSpace(word))
	if w == "" {
		return "", false
	}
	best, bestDist := "", -1
	for _, cand := range candidates {
		c := strings.ToLower(cand)
		if c == w {
			return cand, true
		}
		dist := levenshtein.ComputeDistance(w, c)
		if dist > distanceLimit(len([]rune(c))) {
			continue
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = cand, dist
		}
	}
	return best, bestDist >= 0
}

// distanceLimit scales the tolerated edit distance with the label length.
func distanceLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}

func didYouMean(word string, candidates []string) string {
	if s, ok := Closest(word, candidates); ok && s != word {
		return fmt.Sprintf(" (did you mean %q?)", s)
	}
	return ""
}
