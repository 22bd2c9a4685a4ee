package thesaurus

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcherTriggersOnChangeDebounced(t *testing.T) {
	dir := t.TempDir()

	changed := make(chan struct{}, 1)
	w := NewWatcher(dir, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}, WithDebounce(20*time.Millisecond))

	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "haystack.md"), []byte("# Haystack\n"), 0o600))

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("onChange was not called after file write")
	}
}

func TestWatcherIgnoresNonMarkdownFiles(t *testing.T) {
	dir := t.TempDir()

	changed := make(chan struct{}, 1)
	w := NewWatcher(dir, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}, WithDebounce(20*time.Millisecond))

	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("irrelevant"), 0o600))

	select {
	case <-changed:
		t.Fatal("onChange fired for a non-markdown file")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherStartIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	w := NewWatcher(dir, func() {})
	require.NoError(t, w.Start())
	require.NoError(t, w.Start())
	w.Stop()
}
