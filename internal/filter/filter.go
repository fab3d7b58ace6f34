package filter

import (
	"sort"

	"github.com/atikulmunna/logdiagram/internal/model"
)

// DefaultFunctions is how many functions are pre-selected when a log has
// more distinct functions than that.
const DefaultFunctions = 10

type set map[string]struct{}

func (s set) add(v string) { s[v] = struct{}{} }

func (s set) sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Facets holds the distinct values of each filterable field.
type Facets struct {
	Functions map[string]struct{}
	Modules   map[string]struct{}
	Actions   map[string]struct{}
	Threads   map[string]struct{}
}

// SortedFacets is Facets flattened to sorted lists for display and JSON.
type SortedFacets struct {
	Functions []string `json:"functions" yaml:"functions"`
	Modules   []string `json:"modules" yaml:"modules"`
	Actions   []string `json:"actions" yaml:"actions"`
	Threads   []string `json:"threads" yaml:"threads"`
}

// Extract collects facet values from entries. Entries without a thread id
// contribute nothing to Threads.
func Extract(entries []model.LogEntry) Facets {
	functions, modules, actions, threads := set{}, set{}, set{}, set{}

	for _, e := range entries {
		functions.add(e.Function)
		modules.add(e.Module)
		actions.add(string(e.Action))
		if th, ok := e.Thread(); ok && th != "" {
			threads.add(th)
		}
	}

	return Facets{
		Functions: functions,
		Modules:   modules,
		Actions:   actions,
		Threads:   threads,
	}
}

// Sorted returns every facet as a sorted slice.
func (f Facets) Sorted() SortedFacets {
	return SortedFacets{
		Functions: set(f.Functions).sorted(),
		Modules:   set(f.Modules).sorted(),
		Actions:   set(f.Actions).sorted(),
		Threads:   set(f.Threads).sorted(),
	}
}

// Selection lists the accepted values per facet. An empty list accepts
// everything for that facet.
type Selection struct {
	Functions []string `json:"functions,omitempty" yaml:"functions,omitempty" mapstructure:"functions"`
	Modules   []string `json:"modules,omitempty" yaml:"modules,omitempty" mapstructure:"modules"`
	Actions   []string `json:"actions,omitempty" yaml:"actions,omitempty" mapstructure:"actions"`
	Threads   []string `json:"threads,omitempty" yaml:"threads,omitempty" mapstructure:"threads"`
}

// Empty reports whether the selection constrains nothing.
func (s Selection) Empty() bool {
	return len(s.Functions) == 0 && len(s.Modules) == 0 && len(s.Actions) == 0 && len(s.Threads) == 0
}

// DefaultSelection pre-selects the first DefaultFunctions functions in sorted
// order, plus every module, action and thread.
func DefaultSelection(f Facets) Selection {
	sorted := f.Sorted()
	fns := sorted.Functions
	if len(fns) > DefaultFunctions {
		fns = fns[:DefaultFunctions]
	}
	return Selection{
		Functions: fns,
		Modules:   sorted.Modules,
		Actions:   sorted.Actions,
		Threads:   sorted.Threads,
	}
}

// Apply keeps the entries that satisfy every non-empty facet of sel, in
// their original order. Entries without a thread id always pass the thread
// facet.
func Apply(entries []model.LogEntry, sel Selection) []model.LogEntry {
	if sel.Empty() {
		return entries
	}

	functions := lookup(sel.Functions)
	modules := lookup(sel.Modules)
	actions := lookup(sel.Actions)
	threads := lookup(sel.Threads)

	out := make([]model.LogEntry, 0, len(entries))
	for _, e := range entries {
		if !functions.allows(e.Function) ||
			!modules.allows(e.Module) ||
			!actions.allows(string(e.Action)) {
			continue
		}
		if th, ok := e.Thread(); ok && th != "" && !threads.allows(th) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// lookup is nil for an unconstrained facet.
func lookup(values []string) set {
	if len(values) == 0 {
		return nil
	}
	s := make(set, len(values))
	for _, v := range values {
		s.add(v)
	}
	return s
}

func (s set) allows(v string) bool {
	if s == nil {
		return true
	}
	_, ok := s[v]
	return ok
}
