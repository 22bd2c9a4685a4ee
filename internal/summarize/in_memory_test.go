package summarize

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hyperjump/rolegraph/internal/models"
	"github.com/stretchr/testify/require"
)

func TestInMemoryEnqueueAndPoll(t *testing.T) {
	ready := make(chan struct{})
	s := NewInMemory(func(ctx context.Context, doc models.Document) (string, error) {
		<-ready
		return "a concise summary", nil
	})

	task, err := s.Enqueue(context.Background(), models.Document{ID: "doc1"}, "Engineer")
	require.NoError(t, err)

	_, done, err := s.Poll(context.Background(), task)
	require.NoError(t, err)
	require.False(t, done)

	close(ready)
	require.Eventually(t, func() bool {
		summary, done, err := s.Poll(context.Background(), task)
		return err == nil && done && summary != nil && summary.Text == "a concise summary"
	}, time.Second, 5*time.Millisecond)
}

func TestInMemoryPollUnknownTask(t *testing.T) {
	s := NewInMemory(func(ctx context.Context, doc models.Document) (string, error) { return "", nil })
	_, _, err := s.Poll(context.Background(), TaskID("ghost"))
	require.Error(t, err)
}

func TestInMemoryPropagatesError(t *testing.T) {
	s := NewInMemory(func(ctx context.Context, doc models.Document) (string, error) {
		return "", errors.New("llm unavailable")
	})
	task, err := s.Enqueue(context.Background(), models.Document{ID: "doc1"}, "Engineer")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, done, err := s.Poll(context.Background(), task)
		return done && err != nil
	}, time.Second, 5*time.Millisecond)
}
