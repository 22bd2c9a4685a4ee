package summarize

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/workflow"

	"github.com/hyperjump/rolegraph/internal/models"
)

// ErrTaskNotFound is returned by Poll when task does not correspond to a
// workflow Temporal knows about (expired, never started, or a bad TaskID
// handed back to a different deployment).
var ErrTaskNotFound = errors.New("summarize: task not found")

// SummarizeWorkflowName is the registered workflow type name a
// Temporal worker must expose for Temporal to drive summarization jobs.
const SummarizeWorkflowName = "rolegraph-summarize-document"

// SummarizeWorkflowInput is the payload handed to SummarizeWorkflowName.
type SummarizeWorkflowInput struct {
	DocumentID models.DocumentID
	Title      string
	Body       string
	Role       string
}

// SummarizeQueryType is the query handlers must register under, returning
// SummarizeWorkflowResult once available.
const SummarizeQueryType = "summary"

// SummarizeWorkflowResult is what SummarizeQueryType returns once the
// workflow has produced a summary.
type SummarizeWorkflowResult struct {
	Text  string
	Ready bool
}

// Temporal is a Summarizer backed by a Temporal workflow per document.
// Enqueue starts the workflow and returns immediately (§4.9: "returns a
// TaskID immediately and completes asynchronously"); Poll issues a
// non-blocking QueryWorkflow rather than waiting on the workflow's result.
type Temporal struct {
	client    client.Client
	taskQueue string
}

// NewTemporal creates a Temporal-backed summarizer using an already-dialed
// client and the task queue its worker polls.
func NewTemporal(c client.Client, taskQueue string) *Temporal {
	return &Temporal{client: c, taskQueue: taskQueue}
}

// Enqueue starts SummarizeWorkflowName and returns its workflow id as the
// TaskID. It does not wait for the workflow to complete.
func (t *Temporal) Enqueue(ctx context.Context, doc models.Document, role string) (TaskID, error) {
	options := client.StartWorkflowOptions{
		ID:        fmt.Sprintf("summarize-%s-%s", role, doc.ID),
		TaskQueue: t.taskQueue,
	}
	run, err := t.client.ExecuteWorkflow(ctx, options, SummarizeWorkflowName, SummarizeWorkflowInput{
		DocumentID: doc.ID,
		Title:      doc.Title,
		Body:       doc.Body,
		Role:       role,
	})
	if err != nil {
		return "", fmt.Errorf("summarize: start workflow: %w", err)
	}
	return TaskID(run.GetID()), nil
}

// Poll queries the workflow for its current result without blocking on
// workflow completion. A still-running workflow answers Ready=false.
func (t *Temporal) Poll(ctx context.Context, task TaskID) (*Summary, bool, error) {
	value, err := t.client.QueryWorkflow(ctx, string(task), "", SummarizeQueryType)
	if err != nil {
		var notFound *serviceerror.NotFound
		if errors.As(err, &notFound) {
			return nil, false, ErrTaskNotFound
		}
		return nil, false, fmt.Errorf("summarize: query workflow %q: %w", task, err)
	}

	var result SummarizeWorkflowResult
	if err := value.Get(&result); err != nil {
		return nil, false, fmt.Errorf("summarize: decode query result: %w", err)
	}
	if !result.Ready {
		return nil, false, nil
	}
	return &Summary{Text: result.Text}, true, nil
}

// RegisterQueryHandler installs the SummarizeQueryType handler a workflow
// implementation must expose for Temporal.Poll to function; workflow
// authors call this once at the top of SummarizeWorkflowName.
func RegisterQueryHandler(ctx workflow.Context, current *SummarizeWorkflowResult) error {
	return workflow.SetQueryHandler(ctx, SummarizeQueryType, func() (SummarizeWorkflowResult, error) {
		return *current, nil
	})
}
