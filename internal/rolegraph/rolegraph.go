// Package rolegraph implements the per-role document index and
// concept-cooccurrence graph (spec.md §4.6): insert_document, query_graph,
// is_all_terms_connected_by_path, find_matching_node_ids.
package rolegraph

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/hyperjump/rolegraph/internal/concept"
	"github.com/hyperjump/rolegraph/internal/matcher"
	"github.com/hyperjump/rolegraph/internal/models"
	"github.com/hyperjump/rolegraph/internal/thesaurus"
)

// ErrNoKnowledgeGraph is returned by any query operation against a role
// that was built without a thesaurus (§4.6: "queries against a role without
// thesaurus fail with NoKnowledgeGraph").
var ErrNoKnowledgeGraph = errors.New("rolegraph: role has no knowledge graph")

// Node is a concept's position in the graph: its centrality rank and the
// set of concepts it directly co-occurs with.
type Node struct {
	ID          concept.ID
	Rank        uint64
	ConnectedTo map[concept.ID]struct{}
}

// edgeKey canonicalizes an undirected pair as (min,max).
type edgeKey struct {
	A, B concept.ID
}

func canonical(a, b concept.ID) edgeKey {
	if a <= b {
		return edgeKey{A: a, B: b}
	}
	return edgeKey{A: b, B: a}
}

// Edge is the weighted co-occurrence link between two concepts, with a
// per-document breakdown of how much each document contributed to it.
type Edge struct {
	Src, Dst concept.ID
	Weight   uint64
	DocRefs  map[models.DocumentID]uint64
}

// IndexedDocument is a scored query_graph result.
type IndexedDocument struct {
	Document          models.Document
	Score             uint64
	MatchedConcepts   []concept.ID
	RankContributions []RankContribution
	insertSeq         uint64
}

// RankContribution records the node rank of one matched concept that
// contributed to a result's score, for explainability. Rank is the node's
// rank, not its share of the score (which is rank times frequency).
type RankContribution struct {
	ConceptID concept.ID
	Rank      uint64
}

// RoleGraph is the document index and concept graph for a single role. All
// exported methods are safe for concurrent use.
type RoleGraph struct {
	role      string
	matcher   *matcher.Matcher
	thesaurus *thesaurus.Thesaurus

	mu         sync.RWMutex
	nodes      map[concept.ID]*Node
	edges      map[edgeKey]*Edge
	documents  map[models.DocumentID]models.Document
	docOrder   map[models.DocumentID]uint64
	nextDocSeq uint64
	acReverse  map[concept.ID]string // concept -> canonical normalized term value

	// docConcepts/conceptDocs track which concepts each document
	// contributed an occurrence of (not just co-occurring pairs), so a
	// replacing InsertDocument can retract exactly that document's prior
	// contribution — including an isolated concept with no edges — before
	// applying the new body.
	docConcepts map[models.DocumentID]map[concept.ID]struct{}
	conceptDocs map[concept.ID]map[models.DocumentID]struct{}
}

// New creates an empty RoleGraph for role, driven by a matcher built from
// th. Pass a nil matcher to represent a role with no knowledge graph;
// queries against it fail with ErrNoKnowledgeGraph.
func New(role string, th *thesaurus.Thesaurus, m *matcher.Matcher) *RoleGraph {
	return &RoleGraph{
		role:        role,
		matcher:     m,
		thesaurus:   th,
		nodes:       make(map[concept.ID]*Node),
		edges:       make(map[edgeKey]*Edge),
		documents:   make(map[models.DocumentID]models.Document),
		docOrder:    make(map[models.DocumentID]uint64),
		acReverse:   make(map[concept.ID]string),
		docConcepts: make(map[models.DocumentID]map[concept.ID]struct{}),
		conceptDocs: make(map[concept.ID]map[models.DocumentID]struct{}),
	}
}

// HasKnowledgeGraph reports whether this role was built with a matcher.
func (g *RoleGraph) HasKnowledgeGraph() bool {
	return g.matcher != nil
}

// InsertDocument runs the matcher over doc.title + "\n" + doc.body, updates
// node occurrence ranks and co-occurrence edges, and stores/replaces the
// document. Replacing an existing docID first retracts every node and edge
// contribution that document previously made — including an isolated
// concept that formed no edge — before the new body's matches are applied,
// in the same critical section (§5: "old edges for that doc_id removed,
// new edges added in one critical section"). A document with empty matched
// text still retracts any prior contribution; it just adds nothing new.
func (g *RoleGraph) InsertDocument(docID models.DocumentID, doc models.Document) error {
	if g.matcher == nil {
		return ErrNoKnowledgeGraph
	}

	var matches []matcher.Matched
	if text := doc.Title + "\n" + doc.Body; strings.TrimSpace(text) != "" {
		matches = g.matcher.FindMatches(text)
	}

	occurrences := make(map[concept.ID]int)
	termOf := make(map[concept.ID]string)
	order := make([]concept.ID, 0, len(matches))
	seen := make(map[concept.ID]bool)
	for _, m := range matches {
		occurrences[m.ID]++
		if !seen[m.ID] {
			seen[m.ID] = true
			order = append(order, m.ID)
			termOf[m.ID] = m.Term
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	touched := g.retractDocument(docID)

	for _, c := range order {
		g.upsertNode(c)
		g.acReverse[c] = termOf[c]
		g.linkDocConcept(docID, c)
		touched[c] = struct{}{}
	}

	for i := 0; i < len(order); i++ {
		for j := i + 1; j < len(order); j++ {
			a, b := order[i], order[j]
			if a == b {
				continue
			}
			key := canonical(a, b)
			edge := g.edges[key]
			if edge == nil {
				edge = &Edge{Src: key.A, Dst: key.B, DocRefs: make(map[models.DocumentID]uint64)}
				g.edges[key] = edge
			}
			contribution := uint64(minInt(occurrences[a], occurrences[b]))
			edge.DocRefs[docID] += contribution
			edge.Weight = sumDocRefs(edge.DocRefs)

			g.nodes[key.A].ConnectedTo[key.B] = struct{}{}
			g.nodes[key.B].ConnectedTo[key.A] = struct{}{}
			touched[key.A] = struct{}{}
			touched[key.B] = struct{}{}
		}
	}

	for c := range touched {
		if n, ok := g.nodes[c]; ok {
			n.Rank = g.incidentWeightSum(c)
		}
	}

	g.storeDocument(docID, doc)
	return nil
}

// retractDocument removes every edge and node contribution docID previously
// made (a no-op if docID was never inserted, or had no matched concepts),
// deleting an edge outright once its last contributing document is gone and
// deleting a node outright once no remaining document references its
// concept. It returns the set of concepts whose rank may need recomputing —
// a concept deleted outright is not included, since there is nothing left
// to recompute for it.
func (g *RoleGraph) retractDocument(docID models.DocumentID) map[concept.ID]struct{} {
	touched := make(map[concept.ID]struct{})
	concepts, ok := g.docConcepts[docID]
	if !ok {
		return touched
	}

	for key, edge := range g.edges {
		if _, hasDoc := edge.DocRefs[docID]; !hasDoc {
			continue
		}
		delete(edge.DocRefs, docID)
		if len(edge.DocRefs) == 0 {
			delete(g.edges, key)
			if n, ok := g.nodes[key.A]; ok {
				delete(n.ConnectedTo, key.B)
			}
			if n, ok := g.nodes[key.B]; ok {
				delete(n.ConnectedTo, key.A)
			}
		} else {
			edge.Weight = sumDocRefs(edge.DocRefs)
		}
		touched[key.A] = struct{}{}
		touched[key.B] = struct{}{}
	}

	for c := range concepts {
		refs := g.conceptDocs[c]
		delete(refs, docID)
		if len(refs) == 0 {
			delete(g.conceptDocs, c)
			delete(g.nodes, c)
			delete(g.acReverse, c)
			delete(touched, c)
		} else {
			touched[c] = struct{}{}
		}
	}

	delete(g.docConcepts, docID)
	return touched
}

// linkDocConcept records that docID contributed an occurrence of c, in both
// the forward (doc -> concepts) and reverse (concept -> docs) indexes that
// retractDocument uses to undo it.
func (g *RoleGraph) linkDocConcept(docID models.DocumentID, c concept.ID) {
	if g.docConcepts[docID] == nil {
		g.docConcepts[docID] = make(map[concept.ID]struct{})
	}
	g.docConcepts[docID][c] = struct{}{}

	if g.conceptDocs[c] == nil {
		g.conceptDocs[c] = make(map[models.DocumentID]struct{})
	}
	g.conceptDocs[c][docID] = struct{}{}
}

func (g *RoleGraph) storeDocument(docID models.DocumentID, doc models.Document) {
	if _, exists := g.docOrder[docID]; !exists {
		g.docOrder[docID] = g.nextDocSeq
		g.nextDocSeq++
	}
	g.documents[docID] = doc
}

func (g *RoleGraph) upsertNode(c concept.ID) {
	if _, ok := g.nodes[c]; !ok {
		g.nodes[c] = &Node{ID: c, ConnectedTo: make(map[concept.ID]struct{})}
	}
}

func (g *RoleGraph) incidentWeightSum(c concept.ID) uint64 {
	var sum uint64
	for key, edge := range g.edges {
		if key.A == c || key.B == c {
			sum += edge.Weight
		}
	}
	return sum
}

func sumDocRefs(refs map[models.DocumentID]uint64) uint64 {
	var sum uint64
	for _, v := range refs {
		sum += v
	}
	return sum
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// QueryGraph matches concepts in queryText, scores every document whose
// matched concepts overlap the query's, and returns them ordered by
// descending score, tie-broken by insertion time then document id
// (lexicographic), per §4.6.
func (g *RoleGraph) QueryGraph(queryText string, skip, limit int) ([]IndexedDocument, error) {
	if g.matcher == nil {
		return nil, ErrNoKnowledgeGraph
	}

	matches := g.matcher.FindMatches(queryText)
	if len(matches) == 0 {
		return nil, nil
	}
	queryConcepts := dedupConcepts(matches)

	g.mu.RLock()
	defer g.mu.RUnlock()

	scores := make(map[models.DocumentID]uint64)
	matchedByDoc := make(map[models.DocumentID]map[concept.ID]struct{})
	contributions := make(map[models.DocumentID]map[concept.ID]uint64)

	for _, c := range queryConcepts {
		node, ok := g.nodes[c]
		if !ok {
			continue
		}
		freq := g.freqByDoc(c)
		for docID, f := range freq {
			if f == 0 {
				continue
			}
			scores[docID] += node.Rank * f
			if matchedByDoc[docID] == nil {
				matchedByDoc[docID] = make(map[concept.ID]struct{})
				contributions[docID] = make(map[concept.ID]uint64)
			}
			matchedByDoc[docID][c] = struct{}{}
			contributions[docID][c] += node.Rank
		}
	}

	var results []IndexedDocument
	for docID, score := range scores {
		if score == 0 {
			continue
		}
		doc, ok := g.documents[docID]
		if !ok {
			continue
		}
		var matchedConcepts []concept.ID
		for c := range matchedByDoc[docID] {
			matchedConcepts = append(matchedConcepts, c)
		}
		sort.Slice(matchedConcepts, func(i, j int) bool { return matchedConcepts[i] < matchedConcepts[j] })

		var rankContribs []RankContribution
		for c, rank := range contributions[docID] {
			rankContribs = append(rankContribs, RankContribution{ConceptID: c, Rank: rank})
		}
		sort.Slice(rankContribs, func(i, j int) bool { return rankContribs[i].ConceptID < rankContribs[j].ConceptID })

		results = append(results, IndexedDocument{
			Document:          doc,
			Score:             score,
			MatchedConcepts:   matchedConcepts,
			RankContributions: rankContribs,
			insertSeq:         g.docOrder[docID],
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].insertSeq != results[j].insertSeq {
			return results[i].insertSeq < results[j].insertSeq
		}
		return results[i].Document.ID < results[j].Document.ID
	})

	if skip > 0 {
		if skip >= len(results) {
			return nil, nil
		}
		results = results[skip:]
	}
	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	return results, nil
}

// freqByDoc sums edge.doc_refs[doc] over every edge incident to c, giving
// per-document occurrence-weighted frequency of c (§4.6 query_graph step 3).
func (g *RoleGraph) freqByDoc(c concept.ID) map[models.DocumentID]uint64 {
	freq := make(map[models.DocumentID]uint64)
	for key, edge := range g.edges {
		if key.A != c && key.B != c {
			continue
		}
		for docID, count := range edge.DocRefs {
			freq[docID] += count
		}
	}
	return freq
}

func dedupConcepts(matches []matcher.Matched) []concept.ID {
	seen := make(map[concept.ID]bool)
	var out []concept.ID
	for _, m := range matches {
		if !seen[m.ID] {
			seen[m.ID] = true
			out = append(out, m.ID)
		}
	}
	return out
}

// IsAllTermsConnectedByPath reports whether the concepts matched in text
// form a single connected component in the graph, via BFS over
// connected_to.
func (g *RoleGraph) IsAllTermsConnectedByPath(text string) (bool, error) {
	if g.matcher == nil {
		return false, ErrNoKnowledgeGraph
	}
	matches := g.matcher.FindMatches(text)
	ids := dedupConcepts(matches)
	if len(ids) <= 1 {
		return true, nil
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	target := make(map[concept.ID]bool, len(ids))
	for _, id := range ids {
		target[id] = true
	}

	visited := make(map[concept.ID]bool)
	queue := []concept.ID{ids[0]}
	visited[ids[0]] = true
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		node, ok := g.nodes[cur]
		if !ok {
			continue
		}
		for next := range node.ConnectedTo {
			if target[next] && !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}

	for _, id := range ids {
		if !visited[id] {
			return false, nil
		}
	}
	return true, nil
}

// FindMatchingNodeIDs returns the distinct concept ids matched in text, in
// order of first occurrence.
func (g *RoleGraph) FindMatchingNodeIDs(text string) ([]concept.ID, error) {
	if g.matcher == nil {
		return nil, ErrNoKnowledgeGraph
	}
	matches := g.matcher.FindMatches(text)
	return dedupConcepts(matches), nil
}

// Node returns a snapshot copy of the node for c, if present.
func (g *RoleGraph) Node(c concept.ID) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[c]
	if !ok {
		return Node{}, false
	}
	connected := make(map[concept.ID]struct{}, len(n.ConnectedTo))
	for k := range n.ConnectedTo {
		connected[k] = struct{}{}
	}
	return Node{ID: n.ID, Rank: n.Rank, ConnectedTo: connected}, true
}

// Edges returns a snapshot of every edge currently in the graph, for
// visualization (§6 rolegraph endpoint).
func (g *RoleGraph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Edge, 0, len(g.edges))
	for _, e := range g.edges {
		refs := make(map[models.DocumentID]uint64, len(e.DocRefs))
		for k, v := range e.DocRefs {
			refs[k] = v
		}
		out = append(out, Edge{Src: e.Src, Dst: e.Dst, Weight: e.Weight, DocRefs: refs})
	}
	return out
}

// Nodes returns a snapshot of every node currently in the graph.
func (g *RoleGraph) Nodes() []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		connected := make(map[concept.ID]struct{}, len(n.ConnectedTo))
		for k := range n.ConnectedTo {
			connected[k] = struct{}{}
		}
		out = append(out, Node{ID: n.ID, Rank: n.Rank, ConnectedTo: connected})
	}
	return out
}

// TermForConcept returns the canonical normalized term value last observed
// for c (the reverse index named in §4.6's state).
func (g *RoleGraph) TermForConcept(c concept.ID) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, ok := g.acReverse[c]
	return v, ok
}
