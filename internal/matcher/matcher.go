// Package matcher builds an Aho-Corasick automaton over a thesaurus and
// exposes find/extract/replace operations over arbitrary text (spec.md
// §4.4). The automaton is built once per thesaurus version; every operation
// below is stateless thereafter and safe for concurrent readers.
package matcher

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	ahocorasick "github.com/cloudflare/ahocorasick"
	"github.com/hyperjump/rolegraph/internal/concept"
	"github.com/hyperjump/rolegraph/internal/normalize"
	"github.com/hyperjump/rolegraph/internal/thesaurus"
)

// Matched is a single concept mention found in text.
type Matched struct {
	Term  string
	Start int // byte offset in the ORIGINAL text
	End   int // byte offset in the ORIGINAL text, exclusive
	ID    concept.ID
}

// Matcher locates concept mentions in text using a thesaurus-derived
// Aho-Corasick automaton, with case-insensitive, leftmost-longest match
// semantics and whole-word boundaries enforced by post-filtering (§9: "if
// the chosen Aho-Corasick library does not natively expose word-boundary
// filtering, post-filter matches" — cloudflare/ahocorasick does not, so we
// do).
type Matcher struct {
	thesaurus *thesaurus.Thesaurus
	automaton *ahocorasick.Matcher
	keys      []string // keys[i] corresponds to automaton pattern i
}

// New builds a Matcher from th. Returns an error if th has no entries (§4.4:
// "empty thesaurus keys rejected at build").
func New(th *thesaurus.Thesaurus) (*Matcher, error) {
	if th.Len() == 0 {
		return nil, fmt.Errorf("matcher: empty thesaurus %q", th.Name)
	}
	keys := th.Values()
	m := &Matcher{thesaurus: th, keys: keys}
	m.automaton = ahocorasick.NewStringMatcher(keys)
	return m, nil
}

// FindMatches returns all non-overlapping leftmost-longest matches in text.
// Matching is performed against the normalized form of text; returned spans
// are re-projected onto the original, un-normalized text's byte offsets.
func (m *Matcher) FindMatches(text string) []Matched {
	return m.findCandidates(text, false)
}

// matchCandidate is a single raw occurrence before overlap resolution.
type matchCandidate struct {
	start, end int
	key        string
}

// findCandidates does the matching behind FindMatches. With keepOverlaps
// true it also keeps candidates that overlap an earlier match; FindMatches
// passes false.
func (m *Matcher) findCandidates(text string, keepOverlaps bool) []Matched {
	normalized := normalize.Term(text)
	offsets := projectOffsets(text, normalized)

	hitIdx := m.automaton.Match([]byte(normalized))
	var candidates []matchCandidate
	for _, idx := range hitIdx {
		key := m.keys[idx]
		for _, start := range findAllOccurrences(normalized, key) {
			end := start + len(key)
			if !wordBounded(normalized, start, end) {
				continue
			}
			candidates = append(candidates, matchCandidate{start: start, end: end, key: key})
		}
	}

	// leftmost-longest: sort by start asc, length desc, then greedily take
	// non-overlapping matches.
	sortCandidates(candidates)

	var out []Matched
	lastEnd := -1
	for _, c := range candidates {
		if !keepOverlaps && c.start < lastEnd {
			continue
		}
		term, _ := m.thesaurus.Get(c.key)
		origStart := mapOffset(offsets, c.start)
		origEnd := mapOffset(offsets, c.end)
		out = append(out, Matched{Term: c.key, Start: origStart, End: origEnd, ID: term.ID})
		lastEnd = c.end
	}
	return out
}

func sortCandidates(c []matchCandidate) {
	// insertion sort is fine: candidate counts per call are small (bounded
	// by thesaurus size x occurrences), and keeps this dependency-free.
	for i := 1; i < len(c); i++ {
		j := i
		for j > 0 && candidateLess(c[j], c[j-1]) {
			c[j], c[j-1] = c[j-1], c[j]
			j--
		}
	}
}

func candidateLess(a, b matchCandidate) bool {
	if a.start != b.start {
		return a.start < b.start
	}
	return (a.end - a.start) > (b.end - b.start)
}

// findAllOccurrences returns all start offsets of key within s (they must
// still pass word-boundary filtering by the caller).
func findAllOccurrences(s, key string) []int {
	var out []int
	from := 0
	for {
		i := strings.Index(s[from:], key)
		if i < 0 {
			break
		}
		out = append(out, from+i)
		from = from + i + 1
	}
	return out
}

func wordBounded(s string, start, end int) bool {
	if start > 0 {
		r := rune(s[start-1])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(s) {
		r := rune(s[end])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// projectOffsets returns, for every byte index in normalized, the
// corresponding byte index in the original text. normalize.Term only
// lowercases and collapses whitespace, so the mapping is monotonic and
// computed by walking both strings in lockstep.
func projectOffsets(original, normalized string) []int {
	offsets := make([]int, len(normalized)+1)
	oi := 0
	ni := 0
	inSpace := false
	started := false
	for oi < len(original) {
		r := rune(original[oi])
		if unicode.IsSpace(r) {
			if started && !inSpace {
				offsets[ni] = oi
				ni++
				inSpace = true
			}
			oi++
			continue
		}
		inSpace = false
		started = true
		offsets[ni] = oi
		ni++
		oi++
	}
	for ; ni <= len(normalized); ni++ {
		offsets[ni] = len(original)
	}
	return offsets
}

func mapOffset(offsets []int, i int) int {
	if i < 0 {
		return 0
	}
	if i >= len(offsets) {
		return offsets[len(offsets)-1]
	}
	return offsets[i]
}

// ExtractParagraphs partitions text at blank-line boundaries and returns
// one result per match together with its enclosing paragraph. When
// includeTerm is false, the sentence containing the matched term is
// stripped from the returned paragraph text.
func (m *Matcher) ExtractParagraphs(text string, includeTerm bool) []ParagraphMatch {
	paragraphs := splitParagraphs(text)
	var out []ParagraphMatch
	for _, p := range paragraphs {
		matches := m.FindMatches(p.text)
		for _, match := range matches {
			paraText := p.text
			if !includeTerm {
				paraText = stripSentence(paraText, match.Start, match.End)
			}
			match.Start += p.start
			match.End += p.start
			out = append(out, ParagraphMatch{Match: match, Paragraph: paraText})
		}
	}
	return out
}

// ParagraphMatch pairs a Matched concept with the paragraph it was found in.
type ParagraphMatch struct {
	Match     Matched
	Paragraph string
}

type paragraph struct {
	text  string
	start int
}

func splitParagraphs(text string) []paragraph {
	var out []paragraph
	start := 0
	for {
		idx := strings.Index(text[start:], "\n\n")
		if idx < 0 {
			if start < len(text) {
				out = append(out, paragraph{text: text[start:], start: start})
			}
			break
		}
		end := start + idx
		if end > start {
			out = append(out, paragraph{text: text[start:end], start: start})
		}
		start = end + 2
	}
	return out
}

func stripSentence(text string, relStart, relEnd int) string {
	if relStart < 0 || relEnd > len(text) || relStart > relEnd {
		return text
	}
	sentStart := 0
	for i := relStart - 1; i >= 0; i-- {
		if text[i] == '.' || text[i] == '\n' {
			sentStart = i + 1
			break
		}
	}
	sentEnd := len(text)
	for i := relEnd; i < len(text); i++ {
		if text[i] == '.' {
			sentEnd = i + 1
			break
		}
	}
	return strings.TrimSpace(text[:sentStart] + text[sentEnd:])
}

// LinkType selects the output format for ReplaceMatches.
type LinkType int

const (
	HTMLAnchor LinkType = iota
	MarkdownLink
	WikiLink
)

// ReplaceMatches emits text with each match replaced by a link to
// NormalizedTerm.URL, in the given link format. Non-matching regions are
// byte-copied verbatim.
func (m *Matcher) ReplaceMatches(text string, linkType LinkType) []byte {
	matches := m.FindMatches(text)
	var buf bytes.Buffer
	pos := 0
	for _, match := range matches {
		term, _ := m.thesaurus.Get(match.Term)
		buf.WriteString(text[pos:match.Start])
		original := text[match.Start:match.End]
		buf.WriteString(renderLink(linkType, original, term.URL))
		pos = match.End
	}
	buf.WriteString(text[pos:])
	return buf.Bytes()
}

func renderLink(linkType LinkType, text, url string) string {
	switch linkType {
	case HTMLAnchor:
		return fmt.Sprintf(`<a href="%s">%s</a>`, url, text)
	case WikiLink:
		return fmt.Sprintf("[[%s|%s]]", url, text)
	default: // MarkdownLink
		return fmt.Sprintf("[%s](%s)", text, url)
	}
}
