package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyperjump/rolegraph/internal/models"
)

func TestLoadConfigPrefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
roles:
  - name: Engineer
    relevance_function: TitleScorer
selected_role: Engineer
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))

	origWd, err := os.Getwd()
	require.NoError(t, err)
	defer func() { _ = os.Chdir(origWd) }()
	require.NoError(t, os.Chdir(dir))

	cfg, resolved, err := loadConfig(defaultConfigPath)
	require.NoError(t, err)

	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	require.Equal(t, configPathCanon, resolvedCanon)
	require.Equal(t, "Engineer", cfg.SelectedRole)
}

func TestLoadConfigUsesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
roles:
  - name: Researcher
    relevance_function: BM25
selected_role: Researcher
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))

	cfg, resolved, err := loadConfig(configPath)
	require.NoError(t, err)
	require.Equal(t, configPath, resolved)
	require.Equal(t, "Researcher", cfg.SelectedRole)
}

func TestStubSummaryTruncatesLongBody(t *testing.T) {
	body := make([]byte, 500)
	for i := range body {
		body[i] = 'a'
	}
	text, err := stubSummary(context.Background(), models.Document{Body: string(body)})
	require.NoError(t, err)
	require.Len(t, text, 243)
	require.True(t, strings.HasSuffix(text, "..."))
}

func TestPrintSearchResultsHandlesErrorResponse(t *testing.T) {
	var buf bytes.Buffer
	orig := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	printSearchResults(&models.SearchResponse{Status: models.StatusError, Error: "boom"})

	w.Close()
	os.Stdout = orig
	_, _ = buf.ReadFrom(r)
	require.Contains(t, buf.String(), "boom")
}
