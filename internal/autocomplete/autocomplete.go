// Package autocomplete provides prefix and fuzzy suggestion lookup over a
// thesaurus's normalized term values (spec.md §4.5). It is a read-only view:
// callers rebuild an Index whenever the underlying thesaurus changes.
package autocomplete

import (
	"sort"
	"strings"

	"github.com/hyperjump/rolegraph/internal/normalize"
	"github.com/hyperjump/rolegraph/internal/thesaurus"
	"github.com/xrash/smetrics"
)

// Result is one autocomplete suggestion and its score.
type Result struct {
	Term  string
	Score float64
}

// Index supports prefix and fuzzy lookups over a fixed snapshot of thesaurus
// term values, in insertion order.
type Index struct {
	values []string
}

// New builds an Index from th's current entries. Rebuild after any
// thesaurus change.
func New(th *thesaurus.Thesaurus) *Index {
	return &Index{values: th.Values()}
}

// Search performs a case-insensitive prefix match. Queries shorter than
// minPrefixLength return an empty result, not an error, per §4.5. Results
// are ordered by descending score (1/rank-within-prefix, i.e. earliest
// matches among the thesaurus's insertion order score highest) and capped
// at maxResults (0 means unbounded).
func (idx *Index) Search(prefix string, minPrefixLength, maxResults int) []Result {
	normalizedPrefix := normalize.Term(prefix)
	if len(normalizedPrefix) < minPrefixLength {
		return nil
	}

	var out []Result
	rank := 0
	for _, v := range idx.values {
		if !strings.HasPrefix(v, normalizedPrefix) {
			continue
		}
		rank++
		out = append(out, Result{Term: v, Score: 1.0 / float64(rank)})
	}
	if maxResults > 0 && len(out) > maxResults {
		out = out[:maxResults]
	}
	return out
}

// FuzzySearch returns terms whose similarity to query is >= threshold
// (threshold in [0,1]), ordered by descending Jaro-Winkler similarity with
// Levenshtein distance (ascending) as the tie-break, per §4.5.
func (idx *Index) FuzzySearch(query string, threshold float64, maxResults int) []Result {
	normalizedQuery := normalize.Term(query)

	type scored struct {
		term       string
		similarity float64
		distance   int
	}
	var candidates []scored
	for _, v := range idx.values {
		sim := smetrics.JaroWinkler(normalizedQuery, v, 0.7, 4)
		if sim < threshold {
			continue
		}
		candidates = append(candidates, scored{
			term:       v,
			similarity: sim,
			distance:   levenshteinDistance(normalizedQuery, v),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].similarity != candidates[j].similarity {
			return candidates[i].similarity > candidates[j].similarity
		}
		return candidates[i].distance < candidates[j].distance
	})

	if maxResults > 0 && len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}

	out := make([]Result, len(candidates))
	for i, c := range candidates {
		out[i] = Result{Term: c.term, Score: c.similarity}
	}
	return out
}

// levenshteinDistance calculates the minimum number of single-character
// edits (insertions, deletions, substitutions) needed to turn a into b.
// Adapted from the teacher's keyword-index Levenshtein helper.
func levenshteinDistance(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len([]rune(b))
	}
	if len(b) == 0 {
		return len([]rune(a))
	}

	runesA := []rune(a)
	runesB := []rune(b)
	lenA := len(runesA)
	lenB := len(runesB)

	prev := make([]int, lenB+1)
	curr := make([]int, lenB+1)
	for j := 0; j <= lenB; j++ {
		prev[j] = j
	}

	for i := 1; i <= lenA; i++ {
		curr[0] = i
		for j := 1; j <= lenB; j++ {
			cost := 0
			if runesA[i-1] != runesB[j-1] {
				cost = 1
			}
			curr[j] = minOfThree(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[lenB]
}

func minOfThree(a, b, c int) int {
	if a <= b && a <= c {
		return a
	}
	if b <= c {
		return b
	}
	return c
}
