package filter

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/atikulmunna/logdiagram/internal/model"
)

func sample() []model.LogEntry {
	return []model.LogEntry{
		{Module: "pf", Function: "probe", Action: model.ActionEntering, ThreadID: model.Str("7")},
		{Module: "pf", Function: "probe", Action: model.ActionInfo, Message: model.Str("ready")},
		{Module: "vf", Function: "vf_init", Action: model.ActionEntering, ThreadID: model.Str("9")},
		{Module: "vf", Function: "vf_init", Action: model.ActionExiting, ThreadID: model.Str("9")},
	}
}

func TestExtract(t *testing.T) {
	f := Extract(sample()).Sorted()

	assert.Equal(t, []string{"probe", "vf_init"}, f.Functions)
	assert.Equal(t, []string{"pf", "vf"}, f.Modules)
	assert.Equal(t, []string{"entering", "exiting", "info"}, f.Actions)
	assert.Equal(t, []string{"7", "9"}, f.Threads)
}

func TestExtractSkipsMissingThreads(t *testing.T) {
	f := Extract([]model.LogEntry{
		{Module: "pf", Function: "a", Action: model.ActionInfo},
		{Module: "vf", Function: "b", Action: model.ActionEntering, ThreadID: model.Str("7")},
	})

	assert.Equal(t, map[string]struct{}{"7": {}}, f.Threads)
	assert.Len(t, f.Modules, 2)
}

func TestApplyEmptySelectionIsIdentity(t *testing.T) {
	entries := sample()
	assert.Equal(t, entries, Apply(entries, Selection{}))
}

func TestApplyConjunctive(t *testing.T) {
	got := Apply(sample(), Selection{
		Modules: []string{"vf"},
		Actions: []string{"entering"},
	})

	assert.Len(t, got, 1)
	assert.Equal(t, "vf_init", got[0].Function)
	assert.Equal(t, model.ActionEntering, got[0].Action)
}

func TestApplyThreadlessEntriesPassThreadFilter(t *testing.T) {
	got := Apply(sample(), Selection{Threads: []string{"7"}})

	assert.Len(t, got, 2)
	assert.Equal(t, model.ActionEntering, got[0].Action)
	assert.Equal(t, model.ActionInfo, got[1].Action)
}

func TestApplyPreservesOrder(t *testing.T) {
	got := Apply(sample(), Selection{Functions: []string{"vf_init", "probe"}})
	assert.Equal(t, sample(), got)
}

func TestDefaultSelection(t *testing.T) {
	var entries []model.LogEntry
	for i := 0; i < 12; i++ {
		entries = append(entries, model.LogEntry{Module: "pf", Function: fmt.Sprintf("fn%02d", i), Action: model.ActionEntering})
	}

	sel := DefaultSelection(Extract(entries))
	assert.Len(t, sel.Functions, DefaultFunctions)
	assert.Equal(t, "fn00", sel.Functions[0])
	assert.Equal(t, "fn09", sel.Functions[DefaultFunctions-1])
	assert.Equal(t, []string{"pf"}, sel.Modules)
	assert.Empty(t, sel.Threads)

	small := DefaultSelection(Extract(sample()))
	assert.Len(t, small.Functions, 2)
}
