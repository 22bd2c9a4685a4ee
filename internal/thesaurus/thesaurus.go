// Package thesaurus provides the normalized_term -> concept mapping (§4.2),
// the markdown-to-thesaurus builder (§4.3), remote/local automaton loading,
// and a watcher that triggers rebuilds when a role's KG directory changes.
package thesaurus

import (
	"encoding/json"
	"fmt"

	"github.com/hyperjump/rolegraph/internal/concept"
)

// Thesaurus is an insertion-ordered mapping from normalized term value to
// the NormalizedTerm (concept) it resolves to. Insertion order is
// observable: it drives deterministic automaton construction and
// serialization. Multiple values (synonyms) may share the same concept ID;
// every distinct ID maps to exactly one canonical term.
type Thesaurus struct {
	Name    string
	entries map[string]concept.NormalizedTerm
	order   []string
}

// New creates an empty, named Thesaurus.
func New(name string) *Thesaurus {
	return &Thesaurus{
		Name:    name,
		entries: make(map[string]concept.NormalizedTerm),
	}
}

// Insert adds or overwrites the entry for value. If value was not
// previously present, it is appended to the insertion order.
func (t *Thesaurus) Insert(value string, term concept.NormalizedTerm) {
	if _, exists := t.entries[value]; !exists {
		t.order = append(t.order, value)
	}
	t.entries[value] = term
}

// Get returns the NormalizedTerm for value, if present.
func (t *Thesaurus) Get(value string) (concept.NormalizedTerm, bool) {
	term, ok := t.entries[value]
	return term, ok
}

// Len returns the number of distinct normalized term values in the
// thesaurus (not the number of distinct concept ids).
func (t *Thesaurus) Len() int {
	return len(t.order)
}

// Each calls fn for every (value, term) pair in insertion order. Iteration
// stops early if fn returns false.
func (t *Thesaurus) Each(fn func(value string, term concept.NormalizedTerm) bool) {
	for _, v := range t.order {
		if !fn(v, t.entries[v]) {
			return
		}
	}
}

// Values returns the normalized term values in insertion order.
func (t *Thesaurus) Values() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// wireEntry is the serialized shape of one thesaurus entry; a slice of
// these (rather than a map) is what preserves insertion order across
// encoding/json, which does not otherwise guarantee map key order.
type wireEntry struct {
	Value string `json:"value"`
	ID    concept.ID `json:"id"`
	URL   string `json:"url,omitempty"`
}

type wireThesaurus struct {
	Name    string      `json:"name"`
	Entries []wireEntry `json:"entries"`
}

// MarshalJSON serializes the thesaurus as {name, entries:[{value,id,url?}]}
// per spec.md §6's precompiled-automaton-file shape, preserving insertion
// order in the entries array.
func (t *Thesaurus) MarshalJSON() ([]byte, error) {
	w := wireThesaurus{Name: t.Name, Entries: make([]wireEntry, 0, len(t.order))}
	for _, v := range t.order {
		term := t.entries[v]
		w.Entries = append(w.Entries, wireEntry{Value: v, ID: term.ID, URL: term.URL})
	}
	return json.Marshal(w)
}

// UnmarshalJSON restores a thesaurus from its serialized form, preserving
// entry order exactly as encoded.
func (t *Thesaurus) UnmarshalJSON(data []byte) error {
	var w wireThesaurus
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode thesaurus: %w", err)
	}
	t.Name = w.Name
	t.entries = make(map[string]concept.NormalizedTerm, len(w.Entries))
	t.order = make([]string, 0, len(w.Entries))
	for _, e := range w.Entries {
		t.Insert(e.Value, concept.NormalizedTerm{ID: e.ID, Value: e.Value, URL: e.URL})
	}
	return nil
}

// Equal reports whether two thesauri have the same name and the same
// entries in the same insertion order (used by the serialization
// round-trip property test).
func (t *Thesaurus) Equal(other *Thesaurus) bool {
	if other == nil || t.Name != other.Name || len(t.order) != len(other.order) {
		return false
	}
	for i, v := range t.order {
		if other.order[i] != v {
			return false
		}
		a, aok := t.entries[v]
		b, bok := other.entries[v]
		if aok != bok || a != b {
			return false
		}
	}
	return true
}
