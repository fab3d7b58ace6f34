package model

import "strings"

// DefaultModule is used when a line carries no subsystem identifier.
const DefaultModule = "system"

// Action is the closed vocabulary of events a log line can describe.
type Action string

const (
	ActionEntering  Action = "entering"
	ActionExiting   Action = "exiting"
	ActionCommand   Action = "command"
	ActionInfo      Action = "info"
	ActionCalled    Action = "called"
	ActionCompleted Action = "completed"
	ActionError     Action = "error"
	ActionRetry     Action = "retry"
	ActionSkipped   Action = "skipped"
)

var actions = map[string]Action{
	"entering":  ActionEntering,
	"exiting":   ActionExiting,
	"command":   ActionCommand,
	"info":      ActionInfo,
	"called":    ActionCalled,
	"completed": ActionCompleted,
	"error":     ActionError,
	"retry":     ActionRetry,
	"skipped":   ActionSkipped,
}

// ParseAction maps a qualifier word onto the vocabulary, ignoring case.
func ParseAction(s string) (Action, bool) {
	a, ok := actions[strings.ToLower(strings.TrimSpace(s))]
	return a, ok
}

// Dialect names a family of log line formats.
type Dialect string

const (
	DialectQDMA   Dialect = "qdma"
	DialectLegacy Dialect = "legacy"
)

// ParseDialect accepts "qdma", "legacy" or "" (auto).
func ParseDialect(s string) (Dialect, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return "", true
	case "qdma", "primary":
		return DialectQDMA, true
	case "legacy":
		return DialectLegacy, true
	default:
		return "", false
	}
}

// LogEntry is one normalized event extracted from a single log line.
// Entries are built by the parser and never modified afterwards.
type LogEntry struct {
	Module         string  `json:"module" yaml:"module"`
	CallerFunction string  `json:"caller_function" yaml:"caller_function"`
	Function       string  `json:"function" yaml:"function"`
	Action         Action  `json:"action" yaml:"action"`
	ThreadID       *string `json:"thread_id,omitempty" yaml:"thread_id,omitempty"`
	Message        *string `json:"message,omitempty" yaml:"message,omitempty"`
	Raw            string  `json:"raw" yaml:"raw"`
}

// Key is the logical identity of an entry.
type Key struct {
	Module   string
	Function string
	Action   Action
}

// Key returns the (module, function, action) triple.
func (e LogEntry) Key() Key {
	return Key{Module: e.Module, Function: e.Function, Action: e.Action}
}

// Equivalent reports whether two entries share the same identity triple.
func (e LogEntry) Equivalent(other LogEntry) bool {
	return e.Key() == other.Key()
}

// Thread returns the thread identifier and whether the line carried one.
func (e LogEntry) Thread() (string, bool) {
	if e.ThreadID == nil {
		return "", false
	}
	return *e.ThreadID, true
}

// Text returns the free-text payload and whether one was present.
func (e LogEntry) Text() (string, bool) {
	if e.Message == nil {
		return "", false
	}
	return *e.Message, true
}

// Dedupe keeps the first entry for every identity triple, preserving order.
func Dedupe(entries []LogEntry) []LogEntry {
	seen := make(map[Key]struct{}, len(entries))
	out := make([]LogEntry, 0, len(entries))
	for _, e := range entries {
		k := e.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, e)
	}
	return out
}

// Str returns a pointer to s, for populating optional fields.
func Str(s string) *string { return &s }

// RawLine is an unparsed line read from a tailed file.
type RawLine struct {
	Text   string
	Source string // originating file path
}
