// Package config provides the role registry (spec.md §4.9): Config
// load/save, and ConfigState, which wires a thesaurus and RoleGraph for
// every role that declares a knowledge graph.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/hyperjump/rolegraph/internal/role"
)

// Config holds all roles known to a deployment plus which one is selected.
type Config struct {
	ID             string      `yaml:"id"`
	Roles          []role.Role `yaml:"roles"`
	SelectedRole   string      `yaml:"selected_role"`
	DefaultRole    string      `yaml:"default_role"`
	GlobalShortcut string      `yaml:"global_shortcut,omitempty"`
}

// Load reads and parses the config file at path, expands any relative KG
// directory paths against the config file's own directory, and applies
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	for i := range cfg.Roles {
		if cfg.Roles[i].KG != "" {
			cfg.Roles[i].KG = expandPath(cfg.Roles[i].KG, configDir)
		}
	}

	return &cfg, nil
}

// Save writes cfg to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ApplyDefaults fills in an id when absent and, when no role is selected,
// selects the default role (or the first configured role).
func ApplyDefaults(cfg *Config) {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.SelectedRole == "" {
		if cfg.DefaultRole != "" {
			cfg.SelectedRole = cfg.DefaultRole
		} else if len(cfg.Roles) > 0 {
			cfg.SelectedRole = cfg.Roles[0].Name
		}
	}
}

// RoleByName returns the role named name, if configured.
func (c Config) RoleByName(name string) (role.Role, bool) {
	for _, r := range c.Roles {
		if r.Name == name {
			return r, true
		}
	}
	return role.Role{}, false
}

// expandPath converts a path to absolute. Paths starting with "./" are
// relative to configDir; other relative paths are relative to the home
// directory. Adapted from the teacher's config.expandPath.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
