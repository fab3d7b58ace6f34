package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAction(t *testing.T) {
	a, ok := ParseAction("COMPLETED")
	assert.True(t, ok)
	assert.Equal(t, ActionCompleted, a)

	_, ok = ParseAction("finished")
	assert.False(t, ok)
}

func TestParseDialect(t *testing.T) {
	d, ok := ParseDialect("")
	assert.True(t, ok)
	assert.Equal(t, Dialect(""), d)

	d, ok = ParseDialect("Legacy")
	assert.True(t, ok)
	assert.Equal(t, DialectLegacy, d)

	_, ok = ParseDialect("syslog")
	assert.False(t, ok)
}

func TestEquivalentIgnoresPayload(t *testing.T) {
	a := LogEntry{Module: "pf", Function: "probe", Action: ActionEntering, ThreadID: Str("5"), Raw: "a"}
	b := LogEntry{Module: "pf", Function: "probe", Action: ActionEntering, ThreadID: Str("9"), Raw: "b"}
	c := LogEntry{Module: "vf", Function: "probe", Action: ActionEntering}

	assert.True(t, a.Equivalent(b))
	assert.False(t, a.Equivalent(c))
}

func TestDedupe(t *testing.T) {
	entries := []LogEntry{
		{Module: "pf", Function: "init", Action: ActionEntering, Raw: "1"},
		{Module: "pf", Function: "init", Action: ActionExiting, Raw: "2"},
		{Module: "pf", Function: "init", Action: ActionEntering, Raw: "3"},
	}

	got := Dedupe(entries)
	assert.Len(t, got, 2)
	assert.Equal(t, "1", got[0].Raw)
	assert.Equal(t, "2", got[1].Raw)
}

func TestOptionalFields(t *testing.T) {
	e := LogEntry{Function: "probe"}
	_, ok := e.Thread()
	assert.False(t, ok)
	_, ok = e.Text()
	assert.False(t, ok)

	e = LogEntry{Function: "probe", ThreadID: Str("7"), Message: Str("hi")}
	th, ok := e.Thread()
	assert.True(t, ok)
	assert.Equal(t, "7", th)
	msg, ok := e.Text()
	assert.True(t, ok)
	assert.Equal(t, "hi", msg)
}
