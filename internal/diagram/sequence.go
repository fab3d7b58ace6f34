package diagram

import (
	"fmt"
	"strings"

	"github.com/atikulmunna/logdiagram/internal/model"
)

// Sequence renders a call sequence, reconstructing nesting from
// entering/exiting pairs.
func Sequence(entries []model.LogEntry) string {
	src, _ := SequenceTrace(entries)
	return src
}

// SequenceTrace is Sequence that also returns the call stack left open at
// the end of the input, bottom first.
func SequenceTrace(entries []model.LogEntry) (string, []string) {
	b := &sequenceBuilder{
		lines: []string{
			startUML,
			"title QDMA Driver Function Call Sequence",
			"participant " + rootActor,
		},
		participants: map[string]bool{rootActor: true},
	}

	for _, e := range entries {
		b.declare(e.Function)
		b.apply(e)
	}

	b.lines = append(b.lines, endUML)
	return strings.Join(b.lines, "\n"), b.stack
}

type sequenceBuilder struct {
	lines        []string
	participants map[string]bool
	stack        []string
}

func (b *sequenceBuilder) declare(fn string) {
	if b.participants[fn] {
		return
	}
	b.participants[fn] = true
	b.lines = append(b.lines, "participant "+fn)
}

// top returns the innermost active function, or the root actor.
func (b *sequenceBuilder) top() string {
	if len(b.stack) == 0 {
		return rootActor
	}
	return b.stack[len(b.stack)-1]
}

func (b *sequenceBuilder) apply(e model.LogEntry) {
	switch e.Action {
	case model.ActionEntering:
		b.lines = append(b.lines, fmt.Sprintf("%s->%s: %s", b.top(), e.Function, e.Action))
		b.stack = append(b.stack, e.Function)

	case model.ActionExiting:
		// Strict LIFO: an exit that does not match the innermost call is ignored.
		if len(b.stack) == 0 || b.stack[len(b.stack)-1] != e.Function {
			return
		}
		b.stack = b.stack[:len(b.stack)-1]
		b.lines = append(b.lines, fmt.Sprintf("%s-->%s: %s", e.Function, b.top(), e.Action))

	case model.ActionCommand:
		msg, _ := e.Text()
		b.lines = append(b.lines, fmt.Sprintf("note over %s: %s", rootActor, msg))

	case model.ActionInfo:
		if msg, ok := e.Text(); ok && msg != "" {
			b.lines = append(b.lines, fmt.Sprintf("note right of %s: %s", e.Function, truncate(msg, SequenceNoteLen)))
		}
	}
}
