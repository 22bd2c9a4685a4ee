// Package role defines the per-role configuration record (spec.md §3): its
// relevance function, theme, optional knowledge-graph path, and haystacks.
package role

// RelevanceFunction selects which scorer (or the graph) ranks a role's
// search results.
type RelevanceFunction string

const (
	RelevanceTitleScorer    RelevanceFunction = "TitleScorer"
	RelevanceTerraphimGraph RelevanceFunction = "TerraphimGraph"
	RelevanceBM25           RelevanceFunction = "BM25"
	RelevanceBM25F          RelevanceFunction = "BM25F"
	RelevanceBM25Plus       RelevanceFunction = "BM25Plus"
)

// HaystackSpec names one external document source a role indexes from. The
// core only consumes the stream it produces (internal/haystack); it never
// interprets Kind beyond routing to the configured collaborator.
type HaystackSpec struct {
	Kind     string            `yaml:"kind" json:"kind"`
	Location string            `yaml:"location" json:"location"`
	Extra    map[string]string `yaml:"extra,omitempty" json:"extra,omitempty"`
}

// Role is one named search configuration within a Config.
type Role struct {
	Name              string            `yaml:"name" json:"name"`
	Shortname         string            `yaml:"shortname,omitempty" json:"shortname,omitempty"`
	RelevanceFunction RelevanceFunction `yaml:"relevance_function" json:"relevance_function"`
	Theme             string            `yaml:"theme,omitempty" json:"theme,omitempty"`
	KG                string            `yaml:"kg,omitempty" json:"kg,omitempty"`
	// AutomataPath, when set, loads this role's thesaurus from a
	// precompiled automaton file or URL (internal/thesaurus.AutomatonFetcher)
	// instead of building it from the markdown records under KG. KG is
	// still used as the directory a fsnotify watcher observes for
	// rebuild triggers when AutomataPath is empty; the two are mutually
	// exclusive sources for the thesaurus itself.
	AutomataPath      string            `yaml:"automata_path,omitempty" json:"automata_path,omitempty"`
	Haystacks         []HaystackSpec    `yaml:"haystacks,omitempty" json:"haystacks,omitempty"`
	LLMAutoSummarize  bool              `yaml:"llm_auto_summarize,omitempty" json:"llm_auto_summarize,omitempty"`
	Extra             map[string]string `yaml:"extra,omitempty" json:"extra,omitempty"`
}

// CanUseGraph reports whether this role has a knowledge graph source —
// either a markdown KG directory or a precompiled automaton path — the
// precondition for selecting TerraphimGraph as its relevance function
// (§3: "a role without kg cannot use TerraphimGraph").
func (r Role) CanUseGraph() bool {
	return r.KG != "" || r.AutomataPath != ""
}

// EffectiveRelevanceFunction downgrades TerraphimGraph to TitleScorer when
// the role has no KG, per §7's local-recovery rule ("a missing thesaurus
// for a role downgrades that role's relevance function to TitleScorer with
// a warning").
func (r Role) EffectiveRelevanceFunction() (fn RelevanceFunction, downgraded bool) {
	if r.RelevanceFunction == RelevanceTerraphimGraph && !r.CanUseGraph() {
		return RelevanceTitleScorer, true
	}
	if r.RelevanceFunction == "" {
		return RelevanceTitleScorer, false
	}
	return r.RelevanceFunction, false
}
