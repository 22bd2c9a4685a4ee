// Package summarize implements the asynchronous summarization collaborator
// named in spec.md §4.9: enqueue a document for summarization, get a task
// id back immediately, and poll for completion without blocking. The core
// (internal/search) depends only on the Summarizer interface — it does not
// know which backend is wired in.
package summarize

import (
	"context"

	"github.com/hyperjump/rolegraph/internal/models"
)

// TaskID identifies one enqueued summarization job.
type TaskID string

// Summary is the result of a completed summarization job.
type Summary struct {
	DocumentID models.DocumentID
	Text       string
}

// Summarizer accepts (document, role), returns a TaskID immediately, and
// completes asynchronously. Poll is non-blocking: it returns (nil, false)
// when the task is still in flight.
type Summarizer interface {
	Enqueue(ctx context.Context, doc models.Document, role string) (TaskID, error)
	Poll(ctx context.Context, task TaskID) (*Summary, bool, error)
}
