package diagram

import (
	"strings"

	"github.com/atikulmunna/logdiagram/internal/model"
)

// Activity renders a flat activity flow, one statement per entry.
func Activity(entries []model.LogEntry) string {
	lines := []string{startUML, "title QDMA Driver Activity Flow", "start"}

	for _, e := range entries {
		switch e.Action {
		case model.ActionEntering:
			lines = append(lines, ":Enter "+e.Function+";")
		case model.ActionExiting:
			lines = append(lines, ":Exit "+e.Function+";")
		case model.ActionCommand:
			msg, _ := e.Text()
			lines = append(lines, `:Execute Command\n`+truncate(msg, ActivityCmdLen)+";")
		case model.ActionInfo:
			if msg, ok := e.Text(); ok {
				lines = append(lines, "note right: "+truncate(msg, ActivityNoteLen))
			}
		}
	}

	lines = append(lines, "stop", endUML)
	return strings.Join(lines, "\n")
}
