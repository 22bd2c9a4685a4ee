// Package models defines the core data structures shared by the thesaurus,
// matcher, rolegraph, scoring, and search packages.
package models

// DocumentID identifies a document stably across ingest cycles. Opaque,
// ≤256 bytes per spec.md §6.
type DocumentID string

// Document is an immutable (from the core's perspective) unit of searchable
// content indexed into a role's concept graph. Mutating a logical document
// produces a new Document with the same ID, which replaces the prior one.
type Document struct {
	ID             DocumentID        `json:"id" validate:"required,max=256"`
	URL            string            `json:"url,omitempty"`
	Title          string            `json:"title"`
	Body           string            `json:"body"`
	Description    string            `json:"description,omitempty"`
	Summarization  string            `json:"summarization,omitempty"`
	Tags           []string          `json:"tags,omitempty"`
	Rank           *uint64           `json:"rank,omitempty"`
	SourceHaystack string            `json:"source_haystack,omitempty"`
	Extra          map[string]string `json:"extra,omitempty"`
}

// HasDescription reports whether the document already has a description,
// used by the search pipeline to decide whether to enqueue summarization.
func (d *Document) HasDescription() bool {
	return d != nil && d.Description != ""
}
