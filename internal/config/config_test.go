package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/rolegraph/internal/role"
	"github.com/stretchr/testify/require"
)

func TestLoadExpandsKGPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "kg"), 0755))

	path := filepath.Join(dir, "config.yaml")
	content := `
selected_role: Engineer
roles:
  - name: Engineer
    relevance_function: TerraphimGraph
    kg: ./kg
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "Engineer", cfg.SelectedRole)
	require.NotEmpty(t, cfg.ID)

	r, ok := cfg.RoleByName("Engineer")
	require.True(t, ok)
	require.Equal(t, filepath.Join(dir, "kg"), r.KG)
}

func TestApplyDefaultsSelectsFirstRole(t *testing.T) {
	cfg := &Config{Roles: []role.Role{{Name: "Default"}, {Name: "Other"}}}
	ApplyDefaults(cfg)
	require.Equal(t, "Default", cfg.SelectedRole)
	require.NotEmpty(t, cfg.ID)
}

func TestApplyDefaultsPrefersDefaultRole(t *testing.T) {
	cfg := &Config{Roles: []role.Role{{Name: "A"}, {Name: "B"}}, DefaultRole: "B"}
	ApplyDefaults(cfg)
	require.Equal(t, "B", cfg.SelectedRole)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	cfg := &Config{ID: "abc", SelectedRole: "Engineer", Roles: []role.Role{{Name: "Engineer"}}}
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "abc", loaded.ID)
	require.Equal(t, "Engineer", loaded.SelectedRole)
}
