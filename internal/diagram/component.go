package diagram

import (
	"sort"
	"strings"

	"github.com/atikulmunna/logdiagram/internal/model"
)

// Component groups functions into per-module packages and links
// consecutive distinct entering calls.
func Component(entries []model.LogEntry) string {
	lines := []string{startUML, "title QDMA Driver Component Interaction"}

	byModule := make(map[string]map[string]struct{})
	for _, e := range entries {
		fns, ok := byModule[e.Module]
		if !ok {
			fns = make(map[string]struct{})
			byModule[e.Module] = fns
		}
		fns[e.Function] = struct{}{}
	}

	for _, module := range sortedKeys(byModule) {
		lines = append(lines, "package "+module+" {")
		for _, fn := range sortedKeys(byModule[module]) {
			lines = append(lines, "  component "+fn)
		}
		lines = append(lines, "}")
	}

	var prev string
	for _, e := range entries {
		if e.Action != model.ActionEntering {
			continue
		}
		if prev != "" && prev != e.Function {
			lines = append(lines, prev+" --> "+e.Function)
		}
		prev = e.Function
	}

	lines = append(lines, endUML)
	return strings.Join(lines, "\n")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
