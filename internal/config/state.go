package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/rolegraph/internal/matcher"
	"github.com/hyperjump/rolegraph/internal/metrics"
	"github.com/hyperjump/rolegraph/internal/role"
	"github.com/hyperjump/rolegraph/internal/rolegraph"
	"github.com/hyperjump/rolegraph/internal/thesaurus"
)

// automatonFetchTimeout bounds a single precompiled-automaton load (local
// read or remote fetch) per role, per §5's "every external call accepts or
// enforces a deadline".
const automatonFetchTimeout = 10 * time.Second

// RoleGraphSync is a mutex around a single role's live RoleGraph, matching
// the `RoleGraph (per role): per-role mutex` mutation discipline in §5.
type RoleGraphSync struct {
	mu        sync.Mutex
	graph     *rolegraph.RoleGraph
	thesaurus *thesaurus.Thesaurus
}

// With runs fn with exclusive access to the role's graph.
func (s *RoleGraphSync) With(fn func(*rolegraph.RoleGraph)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.graph)
}

// Thesaurus returns the thesaurus currently backing this role's graph.
func (s *RoleGraphSync) Thesaurus() *thesaurus.Thesaurus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.thesaurus
}

// Swap atomically replaces this role's thesaurus and graph — used by a
// thesaurus rebuild to satisfy §3's "replaced atomically on rebuild".
func (s *RoleGraphSync) Swap(th *thesaurus.Thesaurus, g *rolegraph.RoleGraph) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thesaurus = th
	s.graph = g
}

// ConfigState wraps a Config behind a mutex, alongside one RoleGraphSync per
// role that declares a knowledge graph (§4.9).
type ConfigState struct {
	mu           sync.Mutex
	config       *Config
	graphs       map[string]*RoleGraphSync
	logger       *zap.Logger
	fetcher      *thesaurus.AutomatonFetcher
	metrics      *metrics.Registry
	fingerprints map[string]string
}

// New builds a ConfigState from cfg: for every role with a knowledge-graph
// source, it loads a thesaurus — from a precompiled automaton
// (role.AutomataPath, via internal/thesaurus.AutomatonFetcher) or by
// compiling the markdown records under role.KG
// (internal/thesaurus.BuildFromDirectory) — and an empty RoleGraph, and
// installs both in the role map. Roles without either source have no
// entry, so RoleGraph reports false for them.
func New(cfg *Config, logger *zap.Logger) (*ConfigState, error) {
	state := &ConfigState{
		config:       cfg,
		graphs:       make(map[string]*RoleGraphSync),
		logger:       logger,
		fetcher:      thesaurus.NewAutomatonFetcher(automatonFetchTimeout),
		fingerprints: make(map[string]string),
	}

	for _, r := range cfg.Roles {
		if !r.CanUseGraph() {
			continue
		}
		if err := state.buildRoleGraph(r); err != nil {
			return nil, fmt.Errorf("config: role %q: %w", r.Name, err)
		}
	}

	return state, nil
}

// SetMetrics wires a metrics.Registry into this ConfigState so every future
// thesaurus build or rebuild records ThesaurusRebuilds/GraphNodes. It also
// back-fills GraphNodes for roles New already built, since those happened
// before a Registry existed to record them against.
func (s *ConfigState) SetMetrics(m *metrics.Registry) {
	s.mu.Lock()
	s.metrics = m
	graphs := make(map[string]*RoleGraphSync, len(s.graphs))
	for name, g := range s.graphs {
		graphs[name] = g
	}
	s.mu.Unlock()

	for name, g := range graphs {
		var nodeCount int
		g.With(func(rg *rolegraph.RoleGraph) { nodeCount = len(rg.Nodes()) })
		m.GraphNodes.WithLabelValues(name).Set(float64(nodeCount))
	}
}

// recordRebuild reports outcome of a thesaurus build/rebuild for role, and
// the resulting node count when graph is non-nil. A nil Registry (no metrics
// wired) makes this a no-op.
func (s *ConfigState) recordRebuild(roleName, outcome string, graph *rolegraph.RoleGraph) {
	s.mu.Lock()
	m := s.metrics
	s.mu.Unlock()
	if m == nil {
		return
	}
	m.ThesaurusRebuilds.WithLabelValues(roleName, outcome).Inc()
	if graph != nil {
		m.GraphNodes.WithLabelValues(roleName).Set(float64(len(graph.Nodes())))
	}
}

// loadThesaurus resolves role r's thesaurus from whichever source it
// declares: a precompiled automaton (AutomataPath) takes precedence over
// building one from the KG markdown directory.
func (s *ConfigState) loadThesaurus(r role.Role) (*thesaurus.Thesaurus, []thesaurus.BuildWarning, error) {
	if r.AutomataPath != "" {
		ctx, cancel := context.WithTimeout(context.Background(), automatonFetchTimeout)
		defer cancel()
		th, err := s.fetcher.Load(ctx, r.AutomataPath)
		if err != nil {
			return nil, nil, fmt.Errorf("load automaton: %w", err)
		}
		return th, nil, nil
	}
	return thesaurus.BuildFromDirectory(r.Name, r.KG)
}

func (s *ConfigState) buildRoleGraph(r role.Role) error {
	th, warnings, err := s.loadThesaurus(r)
	if err != nil {
		s.recordRebuild(r.Name, "error", nil)
		return fmt.Errorf("build thesaurus: %w", err)
	}
	for _, w := range warnings {
		if s.logger != nil {
			s.logger.Warn("thesaurus build warning", zap.String("role", r.Name), zap.String("detail", w.String()))
		}
	}

	mt, err := matcher.New(th)
	if err != nil {
		s.recordRebuild(r.Name, "error", nil)
		return fmt.Errorf("build matcher: %w", err)
	}

	graph := rolegraph.New(r.Name, th, mt)

	s.mu.Lock()
	s.graphs[r.Name] = &RoleGraphSync{graph: graph, thesaurus: th}
	if fp, ok := s.directoryFingerprint(r); ok {
		s.fingerprints[r.Name] = fp
	}
	s.mu.Unlock()
	s.recordRebuild(r.Name, "success", graph)
	return nil
}

// directoryFingerprint computes r's KG-directory fingerprint, for roles
// that have one (AutomataPath-sourced roles have no directory to fingerprint
// and are always rebuilt). Fingerprint failures are not fatal — they just
// disable the cache-skip optimization for that build.
func (s *ConfigState) directoryFingerprint(r role.Role) (string, bool) {
	if r.AutomataPath != "" || r.KG == "" {
		return "", false
	}
	fp, err := thesaurus.DirectoryFingerprint(r.KG)
	if err != nil {
		return "", false
	}
	return fp, true
}

// StartWatchers starts a filesystem watcher for every role whose thesaurus
// is built from a KG markdown directory (AutomataPath unset — a
// precompiled automaton has no directory to watch), rebuilding that role
// via RebuildRole whenever its KG directory changes (§4.3 supplement: a
// running deployment picks up edited concept records without a manual
// rebuild-kg call). It returns a stop function that halts every watcher it
// started; callers should invoke it during graceful shutdown.
func (s *ConfigState) StartWatchers() func() {
	var watchers []*thesaurus.Watcher
	for _, r := range s.config.Roles {
		if !r.CanUseGraph() || r.AutomataPath != "" || r.KG == "" {
			continue
		}
		name := r.Name
		w := thesaurus.NewWatcher(r.KG, func() {
			if err := s.RebuildRole(name); err != nil {
				if s.logger != nil {
					s.logger.Warn("thesaurus watch rebuild failed", zap.String("role", name), zap.Error(err))
				}
				return
			}
			if s.logger != nil {
				s.logger.Info("thesaurus rebuilt from watch event", zap.String("role", name))
			}
		}, thesaurus.WithLogger(s.logger))
		if err := w.Start(); err != nil {
			if s.logger != nil {
				s.logger.Warn("failed to start thesaurus watcher", zap.String("role", name), zap.Error(err))
			}
			continue
		}
		watchers = append(watchers, w)
	}

	return func() {
		for _, w := range watchers {
			w.Stop()
		}
	}
}

// RebuildRole reloads the thesaurus for role name from its configured
// source (AutomataPath, else the KG directory), rebuilds the matcher, and
// swaps both in atomically with a fresh, empty graph. Documents indexed
// into the previous graph are not replayed into the new one.
//
// For a KG-directory-sourced role, RebuildRole skips the rebuild entirely
// when the directory's content fingerprint (sha256 of its sorted file paths
// and modification times, internal/thesaurus.DirectoryFingerprint) matches
// the fingerprint recorded at the last build — the common case for a
// debounced fsnotify event that fired on an unrelated or reverted edit.
func (s *ConfigState) RebuildRole(name string) error {
	r, ok := s.Config().RoleByName(name)
	if !ok {
		return fmt.Errorf("config: unknown role %q", name)
	}
	if !r.CanUseGraph() {
		return fmt.Errorf("config: role %q has no knowledge graph", name)
	}

	if fp, ok := s.directoryFingerprint(r); ok {
		s.mu.Lock()
		last, known := s.fingerprints[name]
		s.mu.Unlock()
		if known && last == fp {
			s.recordRebuild(name, "skipped_unchanged", nil)
			return nil
		}
	}

	th, warnings, err := s.loadThesaurus(r)
	if err != nil {
		s.recordRebuild(name, "error", nil)
		return fmt.Errorf("rebuild thesaurus: %w", err)
	}
	for _, w := range warnings {
		if s.logger != nil {
			s.logger.Warn("thesaurus rebuild warning", zap.String("role", r.Name), zap.String("detail", w.String()))
		}
	}
	mt, err := matcher.New(th)
	if err != nil {
		s.recordRebuild(name, "error", nil)
		return fmt.Errorf("rebuild matcher: %w", err)
	}
	graph := rolegraph.New(r.Name, th, mt)

	s.mu.Lock()
	existing, ok := s.graphs[name]
	if fp, fpOK := s.directoryFingerprint(r); fpOK {
		s.fingerprints[name] = fp
	}
	if !ok {
		s.graphs[name] = &RoleGraphSync{graph: graph, thesaurus: th}
	}
	s.mu.Unlock()

	if ok {
		existing.Swap(th, graph)
	}
	s.recordRebuild(name, "success", graph)
	return nil
}

// RoleGraph returns the RoleGraphSync for name, if the role has a
// knowledge graph.
func (s *ConfigState) RoleGraph(name string) (*RoleGraphSync, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.graphs[name]
	return g, ok
}

// Config returns a shallow copy of the current configuration's scalar
// fields — callers must not mutate the returned Roles slice in place.
func (s *ConfigState) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.config
}

// SetSelectedRole updates the selected role under the Config mutex.
func (s *ConfigState) SetSelectedRole(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.config.RoleByName(name); !ok {
		return fmt.Errorf("config: unknown role %q", name)
	}
	s.config.SelectedRole = name
	return nil
}
