// Package normalize canonicalizes raw strings into the normalized term
// values used as keys throughout the thesaurus, matcher, and rolegraph.
package normalize

import (
	"strings"
	"unicode"
)

// Term case-folds s to lower case, collapses any run of whitespace to a
// single ASCII space, and trims leading/trailing whitespace. No stemming,
// diacritic stripping, or stopword removal is performed. Term is stable and
// idempotent: Term(Term(x)) == Term(x).
func Term(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	started := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if started {
				inSpace = true
			}
			continue
		}
		if inSpace {
			b.WriteByte(' ')
			inSpace = false
		}
		b.WriteRune(unicode.ToLower(r))
		started = true
	}
	return b.String()
}
