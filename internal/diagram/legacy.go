package diagram

import (
	"fmt"
	"strings"

	"github.com/atikulmunna/logdiagram/internal/model"
)

const legacyActor = "Caller"

// LegacyMatcher extracts the function name and qualifier word from a
// legacy-dialect line.
type LegacyMatcher interface {
	LegacyMatch(line string) (fn, word string, ok bool)
}

// BuildLegacy dispatches legacy-dialect lines to the builder for t.
func BuildLegacy(t Type, lines []string, m LegacyMatcher) (string, error) {
	switch t {
	case TypeSequence:
		return Legacy(lines, m), nil
	case TypeActivity:
		return LegacyActivity(lines, m), nil
	case TypeComponent:
		return LegacyComponent(lines, m), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
}

// Legacy renders a sequence diagram straight from legacy-dialect lines. It is
// the fallback when the primary parser finds nothing, so it always returns a
// diagram, possibly with only the Caller participant.
func Legacy(lines []string, m LegacyMatcher) string {
	out := []string{startUML, "participant " + legacyActor}
	seen := map[string]bool{legacyActor: true}

	for _, line := range lines {
		fn, word, ok := m.LegacyMatch(line)
		if !ok {
			continue
		}
		if !seen[fn] {
			seen[fn] = true
			out = append(out, "participant "+fn)
		}

		action, _ := model.ParseAction(word)
		switch action {
		case model.ActionEntering, model.ActionCalled, model.ActionCommand, model.ActionRetry:
			out = append(out, fmt.Sprintf("%s -> %s: %s", legacyActor, fn, word))
		case model.ActionExiting, model.ActionCompleted:
			out = append(out, fmt.Sprintf("%s --> %s: %s", fn, legacyActor, word))
		default:
			out = append(out, fmt.Sprintf("note right of %s: %s", fn, strings.ToUpper(word)))
		}
	}

	out = append(out, endUML)
	return strings.Join(out, "\n")
}

// LegacyActivity renders legacy lines as an activity flow: calls, completions
// and retries become steps, anything else a note on the previous step.
// Unmatched lines are skipped.
func LegacyActivity(lines []string, m LegacyMatcher) string {
	out := []string{startUML, "start"}

	for _, line := range lines {
		fn, word, ok := m.LegacyMatch(line)
		if !ok {
			continue
		}

		action, _ := model.ParseAction(word)
		switch action {
		case model.ActionCalled, model.ActionEntering:
			out = append(out, fmt.Sprintf(":Call %s;", fn))
		case model.ActionCompleted, model.ActionExiting:
			out = append(out, fmt.Sprintf(":Complete %s;", fn))
		case model.ActionRetry:
			out = append(out, fmt.Sprintf(":Retry %s;", fn))
		default:
			out = append(out, fmt.Sprintf("note right: %s %s", fn, strings.ToLower(word)))
		}
	}

	out = append(out, "stop", endUML)
	return strings.Join(out, "\n")
}

// LegacyComponent declares one component per function and links a function
// to each function called while it was still open.
func LegacyComponent(lines []string, m LegacyMatcher) string {
	out := []string{startUML}
	components := make(map[string]struct{})
	edges := make(map[string]struct{})
	var order []string
	var stack []string

	for _, line := range lines {
		fn, word, ok := m.LegacyMatch(line)
		if !ok {
			continue
		}
		components[fn] = struct{}{}

		action, _ := model.ParseAction(word)
		switch action {
		case model.ActionCalled, model.ActionEntering:
			if n := len(stack); n > 0 && stack[n-1] != fn {
				edge := stack[n-1] + " --> " + fn
				if _, dup := edges[edge]; !dup {
					edges[edge] = struct{}{}
					order = append(order, edge)
				}
			}
			stack = append(stack, fn)
		case model.ActionCompleted, model.ActionExiting:
			if n := len(stack); n > 0 && stack[n-1] == fn {
				stack = stack[:n-1]
			}
		}
	}

	for _, c := range sortedKeys(components) {
		out = append(out, "component "+c)
	}
	out = append(out, order...)
	out = append(out, endUML)
	return strings.Join(out, "\n")
}
