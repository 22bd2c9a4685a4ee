// Package haystack defines the external document-source contract named in
// spec.md §4.9/§6. Concrete scrapers (filesystem walkers, web crawlers,
// issue trackers, etc.) are explicitly out of scope for the core; this
// package only fixes the interface the search pipeline consumes.
package haystack

import (
	"context"

	"github.com/hyperjump/rolegraph/internal/models"
)

// Haystack streams the documents a role should index. Implementations push
// onto the returned channel and close it when the role's corpus has been
// fully enumerated, or when ctx is canceled.
type Haystack interface {
	Index(ctx context.Context, role string) (<-chan models.Document, <-chan error)
}

// Func adapts a plain function to Haystack, for tests and trivial
// in-memory sources.
type Func func(ctx context.Context, role string) (<-chan models.Document, <-chan error)

func (f Func) Index(ctx context.Context, role string) (<-chan models.Document, <-chan error) {
	return f(ctx, role)
}

// Static returns a Haystack that replays a fixed slice of documents, useful
// for tests and for roles whose corpus is supplied up front rather than
// scraped.
func Static(docs []models.Document) Haystack {
	return Func(func(ctx context.Context, role string) (<-chan models.Document, <-chan error) {
		out := make(chan models.Document, len(docs))
		errs := make(chan error, 1)
		go func() {
			defer close(out)
			defer close(errs)
			for _, d := range docs {
				select {
				case <-ctx.Done():
					errs <- ctx.Err()
					return
				case out <- d:
				}
			}
		}()
		return out, errs
	})
}
