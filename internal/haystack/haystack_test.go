package haystack

import (
	"context"
	"testing"
	"time"

	"github.com/hyperjump/rolegraph/internal/models"
	"github.com/stretchr/testify/require"
)

func TestStaticReplaysAllDocuments(t *testing.T) {
	docs := []models.Document{
		{ID: "1", Title: "Haystack"},
		{ID: "2", Title: "Service"},
	}
	h := Static(docs)

	out, errs := h.Index(context.Background(), "Engineer")

	var got []models.Document
	for d := range out {
		got = append(got, d)
	}
	require.NoError(t, drain(errs))
	require.Equal(t, docs, got)
}

func TestStaticStopsOnCanceledContext(t *testing.T) {
	docs := make([]models.Document, 100)
	for i := range docs {
		docs[i] = models.Document{ID: models.DocumentID(string(rune('a' + i%26)))}
	}
	h := Static(docs)

	// Canceling before Index even starts forces every loop iteration to
	// race a ready ctx.Done() against a (never-blocking, since the out
	// channel is buffered to len(docs)) send; across 100 iterations the
	// producer is certain to observe cancellation and report it.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, errs := h.Index(ctx, "Engineer")

	select {
	case err := <-errs:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("expected an error on the errs channel after cancellation")
	}
}

func TestFuncAdaptsPlainFunction(t *testing.T) {
	called := false
	var h Haystack = Func(func(ctx context.Context, role string) (<-chan models.Document, <-chan error) {
		called = true
		out := make(chan models.Document)
		close(out)
		errs := make(chan error)
		close(errs)
		return out, errs
	})

	out, errs := h.Index(context.Background(), "Engineer")
	<-out
	require.NoError(t, drain(errs))
	require.True(t, called)
}

func drain(errs <-chan error) error {
	for err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
