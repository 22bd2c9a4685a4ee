// Package search implements the role-dispatching search pipeline named in
// spec.md §4.8: query composition (And/Or), role dispatch to either
// RoleGraph.query_graph or a configured scorer, paging, and the
// summarization-enqueue hook.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/hyperjump/rolegraph/internal/config"
	"github.com/hyperjump/rolegraph/internal/haystack"
	"github.com/hyperjump/rolegraph/internal/metrics"
	"github.com/hyperjump/rolegraph/internal/models"
	"github.com/hyperjump/rolegraph/internal/role"
	"github.com/hyperjump/rolegraph/internal/rolegraph"
	"github.com/hyperjump/rolegraph/internal/scoring"
	"github.com/hyperjump/rolegraph/internal/summarize"
)

// ErrUnknownRole is returned when a query names a role the Config doesn't have.
var ErrUnknownRole = errors.New("search: unknown role")

// Corpus supplies the in-memory document set a non-graph scorer runs over,
// per role. Roles backed by TerraphimGraph never call this — their corpus
// lives inside the RoleGraph itself.
type Corpus interface {
	Documents(role string) []models.Document
}

// Engine runs the search pipeline against a ConfigState, dispatching to
// either a role's RoleGraph or a configured Scorer, and optionally
// enqueuing summarization for results that lack a description.
type Engine struct {
	state      *config.ConfigState
	corpus     Corpus
	summarizer summarize.Summarizer
	metrics    *metrics.Registry
}

// New creates an Engine. summarizer may be nil, in which case the
// auto-summarize hook (§4.8 step 5) is a no-op.
func New(state *config.ConfigState, corpus Corpus, summarizer summarize.Summarizer) *Engine {
	return &Engine{state: state, corpus: corpus, summarizer: summarizer}
}

// SetMetrics wires a metrics.Registry into the engine so Ingest records
// DocumentsIndexed. A nil Registry (the default) makes Ingest's counting a
// no-op, matching the package's general "metrics are optional" shape.
func (e *Engine) SetMetrics(m *metrics.Registry) {
	e.metrics = m
}

// Ingest drains hs for role roleName and inserts every document it produces
// into that role's RoleGraph (§4.9: "the core only consumes the stream [a
// haystack] produces"). It returns the first error encountered, either from
// the haystack itself or from a failed insert; documents already inserted
// before that point remain in the graph.
func (e *Engine) Ingest(ctx context.Context, roleName string, hs haystack.Haystack) error {
	graphSync, ok := e.state.RoleGraph(roleName)
	if !ok {
		return fmt.Errorf("search: role %q has no knowledge graph", roleName)
	}

	docs, errs := hs.Index(ctx, roleName)
	for docs != nil || errs != nil {
		select {
		case d, open := <-docs:
			if !open {
				docs = nil
				continue
			}
			var insertErr error
			graphSync.With(func(g *rolegraph.RoleGraph) {
				insertErr = g.InsertDocument(d.ID, d)
			})
			if insertErr != nil {
				return fmt.Errorf("search: ingest %q: %w", d.ID, insertErr)
			}
			if e.metrics != nil {
				e.metrics.DocumentsIndexed.WithLabelValues(roleName).Inc()
			}
		case err, open := <-errs:
			if !open {
				errs = nil
				continue
			}
			if err != nil {
				return fmt.Errorf("search: haystack %q: %w", roleName, err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Search runs the full §4.8 algorithm and returns the response shape named
// in §6.
func (e *Engine) Search(ctx context.Context, query models.SearchQuery) (models.SearchResponse, error) {
	if err := query.Validate(); err != nil {
		return models.NewErrorResponse(err), err
	}

	roleName := query.Role
	if roleName == "" {
		roleName = e.state.Config().SelectedRole
	}
	r, ok := e.state.Config().RoleByName(roleName)
	if !ok {
		err := fmt.Errorf("%w: %q", ErrUnknownRole, roleName)
		return models.NewErrorResponse(err), err
	}

	scored, err := e.scoreTerms(r, query)
	if err != nil {
		return models.NewErrorResponse(err), err
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].doc.ID < scored[j].doc.ID
	})

	paged := page(scored, int(query.Skip), int(query.Limit))

	taskIDs := make(map[models.DocumentID]string)
	results := make([]models.Document, 0, len(paged))
	for _, sd := range paged {
		doc := sd.doc
		if r.LLMAutoSummarize && e.summarizer != nil && !doc.HasDescription() {
			task, err := e.summarizer.Enqueue(ctx, doc, r.Name)
			if err == nil {
				taskIDs[doc.ID] = string(task)
			}
		}
		results = append(results, doc)
	}

	return models.SearchResponse{
		Status:               models.StatusSuccess,
		Results:              results,
		Total:                uint32(len(scored)),
		SummarizationTaskIDs: taskIDs,
	}, nil
}

// MergeCompletedSummaries polls the summarization subsystem for each task id
// in taskIDs and copies any summary that is ready into the matching
// document's Description, returning the updated copy of documents. It never
// blocks longer than timeout; a document whose task is still in flight when
// timeout elapses keeps its Description unchanged, and its task id can be
// polled again later.
func (e *Engine) MergeCompletedSummaries(ctx context.Context, documents []models.Document, taskIDs map[models.DocumentID]string, timeout time.Duration) []models.Document {
	if e.summarizer == nil || len(taskIDs) == 0 {
		return documents
	}

	deadline := time.Now().Add(timeout)
	merged := make([]models.Document, len(documents))
	copy(merged, documents)

	for i, doc := range merged {
		task, queued := taskIDs[doc.ID]
		if !queued {
			continue
		}
		for {
			summary, done, err := e.summarizer.Poll(ctx, summarize.TaskID(task))
			if err != nil || (done && summary == nil) {
				break
			}
			if done {
				merged[i].Description = summary.Text
				break
			}
			if timeout <= 0 || time.Now().After(deadline) {
				break
			}
			select {
			case <-ctx.Done():
				return merged
			case <-time.After(pollInterval):
			}
		}
	}
	return merged
}

const pollInterval = 25 * time.Millisecond

type scoredDoc struct {
	doc   models.Document
	score float64
}

// scoreTerms composes query.Terms() per query.Operator and dispatches to
// either the role's RoleGraph or its configured scorer (§4.8 steps 2-3).
func (e *Engine) scoreTerms(r role.Role, query models.SearchQuery) ([]scoredDoc, error) {
	fn, _ := r.EffectiveRelevanceFunction()
	if fn == role.RelevanceTerraphimGraph {
		return e.scoreViaGraph(r, query)
	}
	return e.scoreViaScorer(fn, r, query)
}

func (e *Engine) scoreViaGraph(r role.Role, query models.SearchQuery) ([]scoredDoc, error) {
	graphSync, ok := e.state.RoleGraph(r.Name)
	if !ok {
		return nil, fmt.Errorf("search: role %q has no knowledge graph", r.Name)
	}

	perTerm := make([]map[models.DocumentID]scoredDoc, 0, len(query.Terms()))
	for _, term := range query.Terms() {
		var results []rolegraph.IndexedDocument
		var err error
		graphSync.With(func(g *rolegraph.RoleGraph) {
			results, err = g.QueryGraph(term, 0, 0)
		})
		if err != nil {
			return nil, err
		}
		byID := make(map[models.DocumentID]scoredDoc, len(results))
		for _, res := range results {
			byID[res.Document.ID] = scoredDoc{doc: res.Document, score: float64(res.Score)}
		}
		perTerm = append(perTerm, byID)
	}

	return combine(perTerm, query.Operator), nil
}

func (e *Engine) scoreViaScorer(fn role.RelevanceFunction, r role.Role, query models.SearchQuery) ([]scoredDoc, error) {
	scorer := newScorer(fn)
	var corpus []models.Document
	if e.corpus != nil {
		corpus = e.corpus.Documents(r.Name)
	}
	scorer.Initialize(corpus)

	perTerm := make([]map[models.DocumentID]scoredDoc, 0, len(query.Terms()))
	for _, term := range query.Terms() {
		byID := make(map[models.DocumentID]scoredDoc, len(corpus))
		for _, doc := range corpus {
			s := scorer.Score(term, doc)
			if s == 0 {
				continue
			}
			byID[doc.ID] = scoredDoc{doc: doc, score: s}
		}
		perTerm = append(perTerm, byID)
	}
	return combine(perTerm, query.Operator), nil
}

func newScorer(fn role.RelevanceFunction) scoring.Scorer {
	switch fn {
	case role.RelevanceBM25:
		return scoring.NewBM25()
	case role.RelevanceBM25F:
		return scoring.NewBM25F()
	case role.RelevanceBM25Plus:
		return scoring.NewBM25Plus()
	default:
		return scoring.NewTitleScorer()
	}
}

// combine merges per-term result sets per the query operator (§4.8 step 2):
// And intersects on document id and sums scores, Or unions and sums scores.
func combine(perTerm []map[models.DocumentID]scoredDoc, op models.Operator) []scoredDoc {
	if len(perTerm) == 0 {
		return nil
	}
	if len(perTerm) == 1 {
		return valuesOf(perTerm[0])
	}

	merged := make(map[models.DocumentID]scoredDoc)
	if op == models.OperatorAnd {
		for id, sd := range perTerm[0] {
			merged[id] = sd
		}
		for _, set := range perTerm[1:] {
			for id := range merged {
				other, ok := set[id]
				if !ok {
					delete(merged, id)
					continue
				}
				existing := merged[id]
				existing.score += other.score
				merged[id] = existing
			}
		}
		return valuesOf(merged)
	}

	for _, set := range perTerm {
		for id, sd := range set {
			if existing, ok := merged[id]; ok {
				existing.score += sd.score
				merged[id] = existing
			} else {
				merged[id] = sd
			}
		}
	}
	return valuesOf(merged)
}

func valuesOf(m map[models.DocumentID]scoredDoc) []scoredDoc {
	out := make([]scoredDoc, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

func page(results []scoredDoc, skip, limit int) []scoredDoc {
	if skip > 0 {
		if skip >= len(results) {
			return nil
		}
		results = results[skip:]
	}
	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	return results
}
