package thesaurus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConceptFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestBuildFromDirectoryHeadingAndSynonyms(t *testing.T) {
	dir := t.TempDir()
	writeConceptFile(t, dir, "haystack.md", "# Haystack\n\nsynonyms:: needle store, search index\n")
	writeConceptFile(t, dir, "service.md", "# Service\n")

	th, warnings, err := BuildFromDirectory("kg", dir)
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Equal(t, 4, th.Len())

	for _, v := range []string{"haystack", "needle store", "search index", "service"} {
		_, ok := th.Get(v)
		require.True(t, ok, "expected value %q", v)
	}

	haystack, _ := th.Get("haystack")
	searchIndex, _ := th.Get("search index")
	require.Equal(t, haystack.ID, searchIndex.ID)
}

func TestBuildFromDirectoryFrontmatterTitle(t *testing.T) {
	dir := t.TempDir()
	writeConceptFile(t, dir, "haystack.md", "---\ntitle: Haystack\nlinked_terms:\n  - needle store\n---\nBody text.\n")

	th, warnings, err := BuildFromDirectory("kg", dir)
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Equal(t, 2, th.Len())
	_, ok := th.Get("needle store")
	require.True(t, ok)
}

func TestBuildFromDirectoryMalformedFrontmatterWarns(t *testing.T) {
	dir := t.TempDir()
	writeConceptFile(t, dir, "broken.md", "---\ntitle: [unterminated\n---\n# Broken\n")

	th, warnings, err := BuildFromDirectory("kg", dir)
	require.NoError(t, err)
	require.NotEmpty(t, warnings)
	_, ok := th.Get("broken")
	require.True(t, ok)
}

func TestBuildFromDirectorySkipsFileWithNoTitle(t *testing.T) {
	dir := t.TempDir()
	writeConceptFile(t, dir, "empty.md", "no heading here\n")
	writeConceptFile(t, dir, "haystack.md", "# Haystack\n")

	th, warnings, err := BuildFromDirectory("kg", dir)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Message, "no title or # heading")
	require.Equal(t, 1, th.Len())
}

func TestBuildFromDirectoryDuplicateNormalizedValueWarns(t *testing.T) {
	dir := t.TempDir()
	writeConceptFile(t, dir, "a_haystack.md", "# Haystack\n")
	writeConceptFile(t, dir, "b_haystack.md", "# haystack\n")

	th, warnings, err := BuildFromDirectory("kg", dir)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Message, "duplicate normalized value")

	term, ok := th.Get("haystack")
	require.True(t, ok)
	require.Equal(t, 1, th.Len())
	_ = term
}

func TestBuildFromDirectoryMissingDirReturnsProfileError(t *testing.T) {
	_, _, err := BuildFromDirectory("kg", filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, err)
	var profileErr *ProfileError
	require.ErrorAs(t, err, &profileErr)
}

func TestBuildFromDirectoryIgnoresNonMarkdownFiles(t *testing.T) {
	dir := t.TempDir()
	writeConceptFile(t, dir, "haystack.md", "# Haystack\n")
	writeConceptFile(t, dir, "notes.txt", "# Not a concept\n")

	th, _, err := BuildFromDirectory("kg", dir)
	require.NoError(t, err)
	require.Equal(t, 1, th.Len())
}
