// Package match provides the normalized edit-distance name comparator used
// by conflict detection and the exclusion registry.
package match

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/domain"
)

// Normalize lowercases and trims a name for comparison.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Score compares two names and returns a confidence in [0, 100].
// Exact normalized match scores 100; if exactly one side is empty the score
// is 0; otherwise classic edit distance normalized by the longer length.
// Pure and symmetric: Score(a, b) == Score(b, a).
func Score(a, b string) int {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return 100
	}
	if na == "" || nb == "" {
		return 0
	}

	dist := levenshtein(na, nb)
	maxLen := utf8.RuneCountInString(na)
	if n := utf8.RuneCountInString(nb); n > maxLen {
		maxLen = n
	}

	return int(math.Round((1 - float64(dist)/float64(maxLen)) * 100))
}

// ContainmentScore applies the substring tier: if one normalized name
// contains the other, the score is 70 plus up to 30 points for length
// similarity. ok is false when neither contains the other.
func ContainmentScore(a, b string) (score int, ok bool) {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0, false
	}
	if !strings.Contains(na, nb) && !strings.Contains(nb, na) {
		return 0, false
	}

	minLen, maxLen := utf8.RuneCountInString(na), utf8.RuneCountInString(nb)
	if minLen > maxLen {
		minLen, maxLen = maxLen, minLen
	}

	return int(math.Round(70 + float64(minLen)/float64(maxLen)*30)), true
}

// BestScore is the two-tier comparison the strategies use: the containment
// shortcut first, then raw edit-distance scoring.
func BestScore(a, b string) int {
	if s, ok := ContainmentScore(a, b); ok {
		return s
	}
	return Score(a, b)
}

// Match reports whether two names match under the given thresholds, along
// with the two-tier score that decided it.
func Match(a, b string, t domain.Thresholds) (score int, matched bool) {
	score = BestScore(a, b)
	return score, score >= t.Min
}

// Band labels a score for presentation. It has no effect on the boolean
// match decision.
func Band(score int, t domain.Thresholds) string {
	switch {
	case score >= t.Exact:
		return "exact"
	case score >= t.High:
		return "high"
	case score >= t.Low:
		return "low"
	default:
		return "minimal"
	}
}

// levenshtein computes the classic edit distance with a two-row table.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
