package summarize

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/hyperjump/rolegraph/internal/models"
)

// SummaryFunc produces a summary for a document; InMemory runs it on a
// worker goroutine per task. Swap it out in tests for a deterministic stub.
type SummaryFunc func(ctx context.Context, doc models.Document) (string, error)

// InMemory is a local, in-process Summarizer: Enqueue spins up a goroutine
// per task (fire-and-forget), and Poll reads the result under a mutex.
// It is the zero-config default and the implementation used in tests.
type InMemory struct {
	fn SummaryFunc

	mu      sync.Mutex
	results map[TaskID]*taskState
}

type taskState struct {
	summary *Summary
	err     error
	done    bool
}

// NewInMemory creates an InMemory summarizer driven by fn.
func NewInMemory(fn SummaryFunc) *InMemory {
	return &InMemory{fn: fn, results: make(map[TaskID]*taskState)}
}

// Enqueue starts a goroutine running fn(doc) and returns its TaskID
// immediately; the goroutine's result is recorded for a later Poll.
func (s *InMemory) Enqueue(ctx context.Context, doc models.Document, role string) (TaskID, error) {
	task := TaskID(uuid.NewString())

	s.mu.Lock()
	s.results[task] = &taskState{}
	s.mu.Unlock()

	go func() {
		text, err := s.fn(ctx, doc)

		s.mu.Lock()
		defer s.mu.Unlock()
		state := s.results[task]
		state.done = true
		if err != nil {
			state.err = fmt.Errorf("summarize: role %q: %w", role, err)
			return
		}
		state.summary = &Summary{DocumentID: doc.ID, Text: text}
	}()

	return task, nil
}

// Poll returns (summary, true, nil) once the task's goroutine has
// completed successfully, (nil, true, err) if the summary function failed,
// or (nil, false, nil) while it is still in flight. An unknown task id is
// reported as an error.
func (s *InMemory) Poll(_ context.Context, task TaskID) (*Summary, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.results[task]
	if !ok {
		return nil, false, fmt.Errorf("summarize: unknown task %q", task)
	}
	if !state.done {
		return nil, false, nil
	}
	if state.err != nil {
		return nil, true, state.err
	}
	return state.summary, true, nil
}
