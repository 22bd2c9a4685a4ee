package models

import "errors"

// Operator composes multiple search terms in a SearchQuery.
type Operator string

const (
	OperatorAnd Operator = "And"
	OperatorOr  Operator = "Or"
)

// ErrInvalidQuery is returned when a query has neither SearchTerm nor
// SearchTerms populated (§7 InvalidQuery).
var ErrInvalidQuery = errors.New("models: empty search_term and search_terms")

// SearchQuery is the request shape carried over HTTP or passed directly to
// the search pipeline, per spec.md §6.
type SearchQuery struct {
	SearchTerm  string   `json:"search_term" validate:"max=1024"`
	SearchTerms []string `json:"search_terms,omitempty" validate:"max=32,dive,max=1024"`
	Operator    Operator `json:"operator,omitempty" validate:"omitempty,oneof=And Or"`
	Role        string   `json:"role,omitempty" validate:"max=128"`
	Skip        uint32   `json:"skip,omitempty"`
	Limit       uint32   `json:"limit,omitempty"`
}

// Validate rejects a query with no search terms at all and applies the
// default operator. It does not mutate Skip/Limit — zero values carry their
// own documented defaults (skip 0, limit unbounded) at the pipeline layer.
func (q *SearchQuery) Validate() error {
	if q.SearchTerm == "" && len(q.SearchTerms) == 0 {
		return ErrInvalidQuery
	}
	if q.Operator == "" {
		q.Operator = OperatorOr
	}
	return nil
}

// Terms returns every search term this query carries, SearchTerm first
// (when non-empty) followed by SearchTerms.
func (q *SearchQuery) Terms() []string {
	var out []string
	if q.SearchTerm != "" {
		out = append(out, q.SearchTerm)
	}
	out = append(out, q.SearchTerms...)
	return out
}
