// Package scoring implements the role-selectable relevance functions named
// in spec.md §4.7: TitleScorer, BM25, BM25F, BM25+, TFIDF, Jaccard, and
// QueryRatio. Every scorer satisfies the Scorer interface: initialize once
// against a corpus, then score a query against any document from it.
package scoring

import (
	"math"
	"strings"

	"github.com/hyperjump/rolegraph/internal/models"
	"github.com/hyperjump/rolegraph/internal/normalize"
)

// FieldWeights are the per-field multipliers shared by TitleScorer and
// BM25F, matching the weights named in §4.7.
type FieldWeights struct {
	Title       float64
	Body        float64
	Description float64
	Tags        float64
}

// DefaultFieldWeights are the weights named explicitly in §4.7.
var DefaultFieldWeights = FieldWeights{Title: 3.0, Body: 1.0, Description: 2.0, Tags: 2.5}

// BM25Params configures the Okapi BM25 family.
type BM25Params struct {
	K1    float64
	B     float64
	Delta float64 // only used by BM25+
}

// DefaultBM25Params matches the constants named in §4.7.
var DefaultBM25Params = BM25Params{K1: 1.2, B: 0.75, Delta: 1.0}

// Scorer is the common interface every relevance function implements.
// Initialize is called once per corpus snapshot; Score may be called
// concurrently afterward.
type Scorer interface {
	Initialize(corpus []models.Document)
	Score(query string, doc models.Document) float64
}

func tokenize(s string) []string {
	return strings.Fields(normalize.Term(s))
}

func tokenSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, t := range tokenize(s) {
		out[t] = struct{}{}
	}
	return out
}

// fieldText returns the text for one document field, joining Tags with
// spaces so it tokenizes the same way as the other fields.
func fieldText(doc models.Document, field string) string {
	switch field {
	case "title":
		return doc.Title
	case "body":
		return doc.Body
	case "description":
		return doc.Description
	case "tags":
		return strings.Join(doc.Tags, " ")
	default:
		return ""
	}
}

var allFields = []string{"title", "body", "description", "tags"}

func weightFor(w FieldWeights, field string) float64 {
	switch field {
	case "title":
		return w.Title
	case "body":
		return w.Body
	case "description":
		return w.Description
	case "tags":
		return w.Tags
	default:
		return 0
	}
}

// TitleScorer is a deterministic weighted term-count scorer: matches of
// query terms are counted per field and weighted per DefaultFieldWeights.
type TitleScorer struct {
	weights FieldWeights
}

// NewTitleScorer creates a TitleScorer with the default field weights.
func NewTitleScorer() *TitleScorer {
	return &TitleScorer{weights: DefaultFieldWeights}
}

func (s *TitleScorer) Initialize(_ []models.Document) {}

func (s *TitleScorer) Score(query string, doc models.Document) float64 {
	terms := tokenize(query)
	if len(terms) == 0 {
		return 0
	}
	var total float64
	for _, field := range allFields {
		tokens := tokenize(fieldText(doc, field))
		counts := countOf(tokens)
		weight := weightFor(s.weights, field)
		for _, term := range terms {
			total += float64(counts[term]) * weight
		}
	}
	return total
}

func countOf(tokens []string) map[string]int {
	out := make(map[string]int, len(tokens))
	for _, t := range tokens {
		out[t]++
	}
	return out
}

// docStats holds the per-document token data a corpus-aware scorer needs.
type docStats struct {
	doc      models.Document
	tokens   []string
	counts   map[string]int
	length   int
	fieldLen map[string]int
}

func buildDocStats(doc models.Document) docStats {
	tokens := tokenize(doc.Title + " " + doc.Body + " " + doc.Description + " " + strings.Join(doc.Tags, " "))
	fieldLen := make(map[string]int, len(allFields))
	for _, f := range allFields {
		fieldLen[f] = len(tokenize(fieldText(doc, f)))
	}
	return docStats{doc: doc, tokens: tokens, counts: countOf(tokens), length: len(tokens), fieldLen: fieldLen}
}

// corpusIndex precomputes document frequency and average length, shared by
// the BM25 family and TFIDF.
type corpusIndex struct {
	docs       []docStats
	docFreq    map[string]int
	avgLength  float64
	avgFieldLn map[string]float64
	n          int
}

func buildCorpusIndex(corpus []models.Document) corpusIndex {
	idx := corpusIndex{docFreq: make(map[string]int), avgFieldLn: make(map[string]float64)}
	var totalLen int
	fieldTotals := make(map[string]int)
	for _, doc := range corpus {
		stats := buildDocStats(doc)
		idx.docs = append(idx.docs, stats)
		totalLen += stats.length
		for term := range stats.counts {
			idx.docFreq[term]++
		}
		for _, f := range allFields {
			fieldTotals[f] += stats.fieldLen[f]
		}
	}
	idx.n = len(corpus)
	if idx.n > 0 {
		idx.avgLength = float64(totalLen) / float64(idx.n)
		for _, f := range allFields {
			idx.avgFieldLn[f] = float64(fieldTotals[f]) / float64(idx.n)
		}
	}
	return idx
}

func (idx corpusIndex) idf(term string) float64 {
	nt := float64(idx.docFreq[term])
	n := float64(idx.n)
	v := math.Log((n-nt+0.5)/(nt+0.5) + 1)
	if v < 0 {
		return 0
	}
	return v
}

func findStats(idx corpusIndex, doc models.Document) (docStats, bool) {
	for _, s := range idx.docs {
		if s.doc.ID == doc.ID {
			return s, true
		}
	}
	return buildDocStats(doc), false
}

// BM25 is Okapi BM25 with k1=1.2, b=0.75 over the whole-document token bag.
type BM25 struct {
	params BM25Params
	index  corpusIndex
}

func NewBM25() *BM25 { return &BM25{params: DefaultBM25Params} }

func (s *BM25) Initialize(corpus []models.Document) { s.index = buildCorpusIndex(corpus) }

func (s *BM25) Score(query string, doc models.Document) float64 {
	terms := tokenize(query)
	stats, _ := findStats(s.index, doc)
	avgLen := s.index.avgLength
	if avgLen == 0 {
		avgLen = float64(stats.length)
	}
	var total float64
	for _, term := range terms {
		tf := float64(stats.counts[term])
		if tf == 0 {
			continue
		}
		idf := s.index.idf(term)
		denom := tf + s.params.K1*(1-s.params.B+s.params.B*float64(stats.length)/maxFloat(avgLen, 1))
		total += idf * (tf * (s.params.K1 + 1)) / denom
	}
	return total
}

// BM25Plus adds the lower-bound delta to the TF saturation term.
type BM25Plus struct {
	params BM25Params
	index  corpusIndex
}

func NewBM25Plus() *BM25Plus { return &BM25Plus{params: DefaultBM25Params} }

func (s *BM25Plus) Initialize(corpus []models.Document) { s.index = buildCorpusIndex(corpus) }

func (s *BM25Plus) Score(query string, doc models.Document) float64 {
	terms := tokenize(query)
	stats, _ := findStats(s.index, doc)
	avgLen := s.index.avgLength
	if avgLen == 0 {
		avgLen = float64(stats.length)
	}
	var total float64
	for _, term := range terms {
		tf := float64(stats.counts[term])
		if tf == 0 {
			continue
		}
		idf := s.index.idf(term)
		denom := tf + s.params.K1*(1-s.params.B+s.params.B*float64(stats.length)/maxFloat(avgLen, 1))
		total += idf * (tf*(s.params.K1+1)/denom + s.params.Delta)
	}
	return total
}

// BM25F is the per-field variant: each field contributes its own
// length-normalized term frequency, weighted by DefaultFieldWeights, before
// the shared IDF is applied.
type BM25F struct {
	params  BM25Params
	weights FieldWeights
	index   corpusIndex
}

func NewBM25F() *BM25F { return &BM25F{params: DefaultBM25Params, weights: DefaultFieldWeights} }

func (s *BM25F) Initialize(corpus []models.Document) { s.index = buildCorpusIndex(corpus) }

func (s *BM25F) Score(query string, doc models.Document) float64 {
	terms := tokenize(query)
	var total float64
	for _, term := range terms {
		idf := s.index.idf(term)
		var weightedTF float64
		for _, field := range allFields {
			tokens := tokenize(fieldText(doc, field))
			counts := countOf(tokens)
			tf := float64(counts[term])
			if tf == 0 {
				continue
			}
			avgFieldLen := s.index.avgFieldLn[field]
			if avgFieldLen == 0 {
				avgFieldLen = float64(len(tokens))
			}
			norm := 1 - s.params.B + s.params.B*float64(len(tokens))/maxFloat(avgFieldLen, 1)
			weightedTF += weightFor(s.weights, field) * tf / norm
		}
		if weightedTF == 0 {
			continue
		}
		total += idf * (weightedTF * (s.params.K1 + 1)) / (weightedTF + s.params.K1)
	}
	return total
}

// TFIDF is the classic term-frequency times inverse-document-frequency sum.
type TFIDF struct {
	index corpusIndex
}

func NewTFIDF() *TFIDF { return &TFIDF{} }

func (s *TFIDF) Initialize(corpus []models.Document) { s.index = buildCorpusIndex(corpus) }

func (s *TFIDF) Score(query string, doc models.Document) float64 {
	terms := tokenize(query)
	stats, _ := findStats(s.index, doc)
	var total float64
	for _, term := range terms {
		tf := float64(stats.counts[term])
		if tf == 0 {
			continue
		}
		total += tf * s.index.idf(term)
	}
	return total
}

// Jaccard scores by the Jaccard similarity of whitespace-split lowercased
// token sets between query and document.
type Jaccard struct{}

func NewJaccard() *Jaccard { return &Jaccard{} }

func (s *Jaccard) Initialize(_ []models.Document) {}

func (s *Jaccard) Score(query string, doc models.Document) float64 {
	q := tokenSet(query)
	d := tokenSet(doc.Title + " " + doc.Body)
	if len(q) == 0 && len(d) == 0 {
		return 0
	}
	var intersection, union int
	union = len(d)
	for t := range q {
		if _, ok := d[t]; ok {
			intersection++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// QueryRatio scores as |query ∩ doc| / |query|.
type QueryRatio struct{}

func NewQueryRatio() *QueryRatio { return &QueryRatio{} }

func (s *QueryRatio) Initialize(_ []models.Document) {}

func (s *QueryRatio) Score(query string, doc models.Document) float64 {
	q := tokenSet(query)
	if len(q) == 0 {
		return 0
	}
	d := tokenSet(doc.Title + " " + doc.Body)
	var intersection int
	for t := range q {
		if _, ok := d[t]; ok {
			intersection++
		}
	}
	return float64(intersection) / float64(len(q))
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
