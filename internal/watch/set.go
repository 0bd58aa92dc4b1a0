// Package watch re-runs the affected subset of a build when source files
// change. A Set maps source globs to task names; a Watcher drives the
// Idle -> Debouncing -> Running state machine over a stream of changed
// paths; a Source produces that stream from fsnotify.
package watch

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/vk/assetgrid/internal/fsutil"
	"github.com/vk/assetgrid/internal/task"
)

// Entry maps source globs to the task or alias names re-run when a matching
// file changes.
type Entry struct {
	Name     string
	Patterns []string
	Tasks    []string
}

// Set is the read-only collection of watch entries for one session.
type Set struct {
	outputRoot string
	entries    []Entry
}

// NewSet builds a Set. Paths under outputRoot never match, so a build never
// triggers itself.
func NewSet(outputRoot string, entries ...Entry) *Set {
	return &Set{outputRoot: outputRoot, entries: entries}
}

// Entries returns the entries in declaration order.
func (s *Set) Entries() []Entry {
	return s.entries
}

// Match returns the task names to re-run for a change at path, in entry
// order and without duplicates.
func (s *Set) Match(path string) []string {
	if s.outputRoot != "" && fsutil.Within(s.outputRoot, path) {
		return nil
	}
	seen := make(map[string]bool)
	var names []string
	for _, e := range s.entries {
		if !matchesAny(e.Patterns, path) {
			continue
		}
		for _, name := range e.Tasks {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

func matchesAny(patterns []string, path string) bool {
	for _, p := range patterns {
		if fsutil.Match(p, path) {
			return true
		}
	}
	return false
}

// Roots returns the directories that must be observed to see every change
// the Set can match. Nested roots are folded into their ancestor and roots
// under the output root are dropped.
func (s *Set) Roots() []string {
	var dirs []string
	for _, e := range s.entries {
		for _, p := range e.Patterns {
			dir := fsutil.StaticBase(p)
			if !fsutil.IsGlob(p) {
				dir = filepath.Dir(p)
			}
			if s.outputRoot != "" && fsutil.Within(s.outputRoot, dir) {
				continue
			}
			dirs = append(dirs, filepath.Clean(dir))
		}
	}
	sort.Strings(dirs)

	var roots []string
	for _, d := range dirs {
		if len(roots) > 0 && fsutil.Within(roots[len(roots)-1], d) {
			continue
		}
		roots = append(roots, d)
	}
	return roots
}

// Derive builds one entry per spec for the specs not already covered by an
// explicit entry. The entry watches every input outside the output root;
// stylesheet tasks also watch the directories their imports resolve from.
func Derive(specs []*task.Spec, covered map[task.ID]bool, outputRoot string) []Entry {
	var entries []Entry
	for _, spec := range specs {
		if covered[spec.ID] {
			continue
		}
		var patterns []string
		add := func(p string) {
			if p == "" || (outputRoot != "" && fsutil.Within(outputRoot, fsutil.StaticBase(p))) {
				return
			}
			for _, existing := range patterns {
				if existing == p {
					return
				}
			}
			patterns = append(patterns, p)
		}

		for _, in := range spec.Inputs() {
			switch {
			case fsutil.IsGlob(in):
				add(in)
			case isDir(in):
				add(filepath.Join(in, "**"))
			case spec.ID.Kind == "less":
				add(filepath.Join(filepath.Dir(in), "**", "*.less"))
			default:
				add(in)
			}
		}
		if spec.ID.Kind == "less" {
			for _, p := range spec.Options.Paths {
				add(filepath.Join(p, "**", "*.less"))
			}
		}
		if len(patterns) == 0 {
			continue
		}
		entries = append(entries, Entry{Name: spec.ID.String(), Patterns: patterns, Tasks: []string{spec.ID.String()}})
	}
	return entries
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
