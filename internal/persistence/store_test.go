package persistence

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSaveLoad(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Save("thesaurus:Engineer", []byte("payload")))

	v, err := s.Load("thesaurus:Engineer")
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), v)
}

func TestMemoryStoreMissingKey(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Load("ghost")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(filepath.Join(dir, "cache"))
	require.NoError(t, err)

	require.NoError(t, s.Save("config", []byte(`{"id":"abc"}`)))
	v, err := s.Load("config")
	require.NoError(t, err)
	require.Equal(t, `{"id":"abc"}`, string(v))
}

func TestFileStoreMissingKey(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	_, err = s.Load("ghost")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreNoPartialWriteVisible(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Save("key", []byte("v1")))
	require.NoError(t, s.Save("key", []byte("v2-longer-value")))

	v, err := s.Load("key")
	require.NoError(t, err)
	require.Equal(t, "v2-longer-value", string(v))
}
