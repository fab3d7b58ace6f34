// Package diagram folds parsed log entries into PlantUML source.
//
// Every builder is a pure function: the same entries always produce the same
// text, opening with @startuml and closing with @enduml.
package diagram

import (
	"errors"
	"fmt"
	"strings"

	"github.com/atikulmunna/logdiagram/internal/model"
)

// ErrUnknownType is returned for a diagram type outside the supported set.
var ErrUnknownType = errors.New("unknown diagram type")

// Type selects one of the diagram builders.
type Type string

const (
	TypeSequence  Type = "sequence"
	TypeActivity  Type = "activity"
	TypeComponent Type = "component"
)

// Types lists the supported diagram types in display order.
var Types = []Type{TypeSequence, TypeActivity, TypeComponent}

// Note truncation lengths, in runes.
const (
	SequenceNoteLen = 50
	ActivityCmdLen  = 30
	ActivityNoteLen = 40
)

const (
	startUML  = "@startuml"
	endUML    = "@enduml"
	rootActor = "User"
	ellipsis  = "..."
)

// ParseType accepts short names ("sequence") and the long labels
// ("Sequence Diagram"), ignoring case.
func ParseType(s string) (Type, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.TrimSuffix(norm, " diagram")
	if norm == "" {
		return TypeSequence, nil
	}
	for _, t := range Types {
		if Type(norm) == t {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q (want one of %v)", ErrUnknownType, s, Types)
}

// Build dispatches to the builder for t.
func Build(t Type, entries []model.LogEntry) (string, error) {
	switch t {
	case TypeSequence:
		return Sequence(entries), nil
	case TypeActivity:
		return Activity(entries), nil
	case TypeComponent:
		return Component(entries), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
}

// truncate keeps the first n runes of s and always appends an ellipsis,
// even when s is already shorter than n.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r) + ellipsis
}
