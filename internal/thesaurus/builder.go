package thesaurus

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hyperjump/rolegraph/internal/concept"
	"github.com/hyperjump/rolegraph/internal/normalize"
	"gopkg.in/yaml.v3"
)

// BuildWarning records a non-fatal problem encountered while building a
// thesaurus from a directory (e.g. a malformed header, or a duplicate
// normalized value across concepts).
type BuildWarning struct {
	Path    string
	Message string
}

func (w BuildWarning) String() string {
	return fmt.Sprintf("%s: %s", w.Path, w.Message)
}

// ProfileError is returned when the KG directory itself cannot be read.
type ProfileError struct {
	Path string
	Err  error
}

func (e *ProfileError) Error() string {
	return fmt.Sprintf("thesaurus: profile directory %q: %v", e.Path, e.Err)
}

func (e *ProfileError) Unwrap() error { return e.Err }

type frontmatter struct {
	Title       string   `yaml:"title"`
	Tags        []string `yaml:"tags"`
	LinkedTerms []string `yaml:"linked_terms"`
}

// BuildFromDirectory scans dir for markdown concept records and compiles a
// Thesaurus from them. Each file becomes one concept: its canonical name is
// the frontmatter `title:` or the first `# Heading`; `synonyms:: a, b, c`
// lines enumerate additional synonyms. File order is fixed by sorted path
// (determinism, §9); within a file, synonyms are inserted in textual order.
//
// A missing directory is a ProfileError. A malformed header causes that
// file to be skipped with a warning, not a fatal error. A duplicate
// normalized value across concepts is last-writer-wins, recorded as a
// warning.
func BuildFromDirectory(name, dir string) (*Thesaurus, []BuildWarning, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, &ProfileError{Path: dir, Err: err}
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".md") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)

	th := New(name)
	var warnings []BuildWarning
	var nextID concept.ID = 1

	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			warnings = append(warnings, BuildWarning{Path: path, Message: err.Error()})
			continue
		}
		canonical, synonyms, fmWarn, err := parseConceptFile(string(raw))
		if fmWarn != "" {
			warnings = append(warnings, BuildWarning{Path: path, Message: fmWarn})
		}
		if err != nil {
			warnings = append(warnings, BuildWarning{Path: path, Message: err.Error()})
			continue
		}
		if canonical == "" {
			warnings = append(warnings, BuildWarning{Path: path, Message: "no title or # heading found, skipped"})
			continue
		}

		id := nextID
		nextID++

		values := append([]string{canonical}, synonyms...)
		var url string
		for _, v := range values {
			nv := normalize.Term(v)
			if nv == "" {
				continue
			}
			if _, exists := th.Get(nv); exists {
				warnings = append(warnings, BuildWarning{Path: path, Message: fmt.Sprintf("duplicate normalized value %q, last writer wins", nv)})
			}
			th.Insert(nv, concept.NormalizedTerm{ID: id, Value: nv, URL: url})
		}
	}

	return th, warnings, nil
}

// parseConceptFile extracts the canonical name and synonyms from a single
// KG markdown record. YAML frontmatter (delimited by `---` lines) is parsed
// for `title`; unknown frontmatter directives are ignored. The first `#
// Heading` is used as a fallback canonical name when no frontmatter title
// is present. `synonyms:: a, b, c` lines are collected in textual order.
func parseConceptFile(content string) (canonical string, synonyms []string, warning string, err error) {
	body := content
	if strings.HasPrefix(content, "---\n") {
		if end := strings.Index(content[4:], "\n---"); end >= 0 {
			fmRaw := content[4 : 4+end]
			body = content[4+end+4:]
			var fm frontmatter
			if yerr := yaml.Unmarshal([]byte(fmRaw), &fm); yerr != nil {
				warning = fmt.Sprintf("malformed frontmatter: %v", yerr)
			} else {
				canonical = strings.TrimSpace(fm.Title)
				synonyms = append(synonyms, fm.LinkedTerms...)
			}
		}
	}

	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if canonical == "" && strings.HasPrefix(trimmed, "#") {
			canonical = strings.TrimSpace(strings.TrimLeft(trimmed, "# "))
			continue
		}
		if idx := strings.Index(trimmed, "synonyms::"); idx == 0 {
			rest := strings.TrimSpace(trimmed[len("synonyms::"):])
			for _, s := range strings.Split(rest, ",") {
				s = strings.TrimSpace(s)
				if s != "" {
					synonyms = append(synonyms, s)
				}
			}
		}
	}
	return canonical, synonyms, warning, nil
}
