package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/atikulmunna/logdiagram/internal/diagram"
	"github.com/atikulmunna/logdiagram/internal/encoder"
	"github.com/atikulmunna/logdiagram/internal/filter"
	"github.com/atikulmunna/logdiagram/internal/metrics"
	"github.com/atikulmunna/logdiagram/internal/model"
	"github.com/atikulmunna/logdiagram/internal/parser"
)

var qdmaLog = []string{
	"[0.1] pf:init: ----- QDMA entering the probe function at x [Thread ID: 5]",
	"[0.15] qdma_pf:probe: device ready",
	"[0.2] pf:probe: ----- QDMA exiting the probe function at x [Thread ID: 5]",
}

func newGenerator(t *testing.T) (*Generator, *metrics.Metrics) {
	m := metrics.New()
	mt, err := parser.NewMatcher(parser.WithCache(128))
	require.NoError(t, err)
	return New(parser.New(mt, parser.DetectSymmetric), encoder.New(), m, zaptest.NewLogger(t)), m
}

func TestGenerateSequence(t *testing.T) {
	g, m := newGenerator(t)

	res, err := g.Generate(context.Background(), Request{Lines: qdmaLog, Type: diagram.TypeSequence})
	require.NoError(t, err)

	assert.False(t, res.Legacy)
	assert.Equal(t, model.DialectQDMA, res.Dialect)
	assert.Len(t, res.Entries, 3)
	assert.NotEmpty(t, res.ID)
	assert.Contains(t, res.Source, "User->probe: entering")
	assert.Contains(t, res.Source, "probe-->User: exiting")
	assert.Equal(t, encoder.New().URL(res.Source), res.URL)
	assert.Equal(t, []string{"5"}, res.Facets.Threads)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.LinesRead))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.EntriesParsed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Diagrams.WithLabelValues("sequence")))
}

func TestGenerateLegacyFallback(t *testing.T) {
	g, m := newGenerator(t)

	res, err := g.Generate(context.Background(), Request{
		Lines: []string{"Function foo is called", "Function foo is completed"},
		Type:  diagram.TypeSequence,
	})
	require.NoError(t, err)

	assert.True(t, res.Legacy)
	assert.Equal(t, diagram.TypeSequence, res.Type)
	assert.Contains(t, res.Source, "participant foo")
	assert.Contains(t, res.Source, "Caller -> foo: called")
	assert.Contains(t, res.Source, "foo --> Caller: completed")
	assert.Equal(t, []string{"foo"}, res.Facets.Functions)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LegacyFallbacks))
}

func TestGenerateLegacyFallbackFollowsType(t *testing.T) {
	g, _ := newGenerator(t)
	lines := []string{
		"Function outer is called",
		"Function inner is called",
		"Retrying Function inner",
		"Function inner is completed",
		"Function outer is completed",
	}

	res, err := g.Generate(context.Background(), Request{Lines: lines, Type: diagram.TypeActivity})
	require.NoError(t, err)
	assert.True(t, res.Legacy)
	assert.Equal(t, diagram.TypeActivity, res.Type)
	assert.Equal(t, strings.Join([]string{
		"@startuml",
		"start",
		":Call outer;",
		":Call inner;",
		":Retry inner;",
		":Complete inner;",
		":Complete outer;",
		"stop",
		"@enduml",
	}, "\n"), res.Source)

	res, err = g.Generate(context.Background(), Request{Lines: lines, Type: diagram.TypeComponent})
	require.NoError(t, err)
	assert.Equal(t, diagram.TypeComponent, res.Type)
	assert.Equal(t, "@startuml\ncomponent inner\ncomponent outer\nouter --> inner\n@enduml", res.Source)
	assert.Equal(t, []string{"called", "completed", "retry"}, res.Facets.Actions)
}

func TestGenerateForcedQDMAWithNoMatchesFallsBack(t *testing.T) {
	g, _ := newGenerator(t)

	res, err := g.Generate(context.Background(), Request{
		Lines:   []string{"nothing structured"},
		Dialect: model.DialectQDMA,
	})
	require.NoError(t, err)
	assert.True(t, res.Legacy)
	assert.Equal(t, "@startuml\nparticipant Caller\n@enduml", res.Source)
}

func TestGenerateAppliesFilters(t *testing.T) {
	g, _ := newGenerator(t)

	res, err := g.Generate(context.Background(), Request{
		Lines:   qdmaLog,
		Type:    diagram.TypeActivity,
		Filters: filter.Selection{Actions: []string{"entering"}},
	})
	require.NoError(t, err)

	assert.Len(t, res.Entries, 1)
	assert.Contains(t, res.Source, ":Enter probe;")
	assert.NotContains(t, res.Source, ":Exit probe;")
	// Facets describe the unfiltered log.
	assert.Equal(t, []string{"entering", "exiting", "info"}, res.Facets.Actions)
}

func TestGenerateNoContent(t *testing.T) {
	g, _ := newGenerator(t)

	_, err := g.Generate(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrNoContent)

	_, err = g.Generate(context.Background(), Request{Lines: []string{"", "   "}})
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestGenerateUnknownType(t *testing.T) {
	g, _ := newGenerator(t)

	_, err := g.Generate(context.Background(), Request{Lines: qdmaLog, Type: "gantt"})
	assert.ErrorIs(t, err, diagram.ErrUnknownType)
}

func TestGenerateCancelled(t *testing.T) {
	g, _ := newGenerator(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Generate(ctx, Request{Lines: qdmaLog})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFacets(t *testing.T) {
	g, _ := newGenerator(t)

	f, err := g.Facets(qdmaLog, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"pf", "qdma_pf"}, f.Sorted().Modules)

	f, err = g.Facets([]string{"Function foo is called"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"legacy"}, f.Sorted().Modules)

	_, err = g.Facets(nil, "")
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestSplitLines(t *testing.T) {
	assert.Nil(t, SplitLines(""))
	assert.Equal(t, []string{"a", "b"}, SplitLines("a\r\nb\n"))
	assert.Equal(t, []string{"a", "", "b"}, SplitLines(strings.Join([]string{"a", "", "b"}, "\n")))
}
