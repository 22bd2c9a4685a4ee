package thesaurus

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/rolegraph/internal/concept"
	"github.com/stretchr/testify/require"
)

func sampleThesaurusJSON(t *testing.T) []byte {
	t.Helper()
	th := New("kg")
	th.Insert("haystack", concept.NormalizedTerm{ID: 1, Value: "haystack", URL: "https://kg/haystack"})
	raw, err := th.MarshalJSON()
	require.NoError(t, err)
	return raw
}

func TestAutomatonFetcherLoadsLocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kg.json")
	require.NoError(t, os.WriteFile(path, sampleThesaurusJSON(t), 0o600))

	f := NewAutomatonFetcher(time.Second)
	th, err := f.Load(context.Background(), path)
	require.NoError(t, err)
	_, ok := th.Get("haystack")
	require.True(t, ok)
}

func TestAutomatonFetcherLoadsGzippedLocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kg.json.gz")

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, err := gw.Write(sampleThesaurusJSON(t))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	f := NewAutomatonFetcher(time.Second)
	th, err := f.Load(context.Background(), path)
	require.NoError(t, err)
	_, ok := th.Get("haystack")
	require.True(t, ok)
}

func TestAutomatonFetcherMissingLocalFileIsAutomataError(t *testing.T) {
	f := NewAutomatonFetcher(time.Second)
	_, err := f.Load(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	var automataErr *AutomataError
	require.ErrorAs(t, err, &automataErr)
}

func TestAutomatonFetcherLoadsRemoteHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(sampleThesaurusJSON(t))
	}))
	defer srv.Close()

	f := NewAutomatonFetcher(time.Second)
	th, err := f.Load(context.Background(), srv.URL)
	require.NoError(t, err)
	_, ok := th.Get("haystack")
	require.True(t, ok)
}

func TestAutomatonFetcherRemoteClientErrorIsPermanent(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewAutomatonFetcher(time.Second)
	_, err := f.Load(context.Background(), srv.URL)
	require.Error(t, err)
	require.Equal(t, 1, hits)
}
