package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atikulmunna/logdiagram/internal/diagram"
	"github.com/atikulmunna/logdiagram/internal/encoder"
	"github.com/atikulmunna/logdiagram/internal/filter"
	"github.com/atikulmunna/logdiagram/internal/metrics"
	"github.com/atikulmunna/logdiagram/internal/model"
	"github.com/atikulmunna/logdiagram/internal/parser"
)

// ErrNoContent is returned when the input holds no non-blank line.
var ErrNoContent = errors.New("no log content found")

// Request describes one diagram generation.
type Request struct {
	Lines   []string
	Type    diagram.Type
	Dialect model.Dialect // empty means auto-detect
	Filters filter.Selection
}

// Result is the outcome of a generation. Entries and Facets are empty when
// the legacy fallback produced the diagram.
type Result struct {
	ID      string              `json:"id" yaml:"id"`
	Type    diagram.Type        `json:"type" yaml:"type"`
	Dialect model.Dialect       `json:"dialect" yaml:"dialect"`
	Legacy  bool                `json:"legacy" yaml:"legacy"`
	Source  string              `json:"source" yaml:"source"`
	URL     string              `json:"url" yaml:"url"`
	Entries []model.LogEntry    `json:"-" yaml:"-"`
	Facets  filter.SortedFacets `json:"facets" yaml:"facets"`
}

// Generator runs the parse → filter → build → encode pipeline.
type Generator struct {
	parser  *parser.Parser
	encoder *encoder.Encoder
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// New wires a Generator. Nil metrics or logger are replaced with no-op ones.
func New(p *parser.Parser, enc *encoder.Encoder, m *metrics.Metrics, logger *zap.Logger) *Generator {
	if p == nil {
		p = parser.New(nil, "")
	}
	if enc == nil {
		enc = encoder.New()
	}
	if m == nil {
		m = metrics.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{parser: p, encoder: enc, metrics: m, logger: logger}
}

// Generate produces diagram source and its rendering URL for req.
// Input that parses to zero primary entries falls back to the legacy builder
// of the requested type, regardless of the detected dialect.
func (g *Generator) Generate(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if !hasContent(req.Lines) {
		return Result{}, ErrNoContent
	}
	t, err := diagram.ParseType(string(req.Type))
	if err != nil {
		return Result{}, err
	}
	req.Type = t

	dialect := req.Dialect
	if dialect == "" {
		dialect = g.parser.Detect(req.Lines)
	}

	g.metrics.LinesRead.Add(float64(len(req.Lines)))
	entries := g.parser.Parse(req.Lines, dialect)
	g.metrics.EntriesParsed.Add(float64(len(entries)))

	res := Result{
		ID:      uuid.NewString(),
		Type:    req.Type,
		Dialect: dialect,
	}

	if len(entries) == 0 {
		src, err := diagram.BuildLegacy(req.Type, req.Lines, g.parser)
		if err != nil {
			return Result{}, err
		}
		res.Legacy = true
		res.Source = src
		res.Facets = filter.Extract(g.parser.ParseLegacy(req.Lines)).Sorted()
		g.metrics.LegacyFallbacks.Inc()
		g.logger.Debug("primary parse empty, using legacy builder",
			zap.String("id", res.ID),
			zap.Int("lines", len(req.Lines)),
			zap.String("dialect", string(dialect)))
	} else {
		res.Facets = filter.Extract(entries).Sorted()
		entries = filter.Apply(entries, req.Filters)

		src, err := diagram.Build(req.Type, entries)
		if err != nil {
			return Result{}, err
		}
		res.Source = src
		res.Entries = entries
	}

	res.URL = g.encoder.URL(res.Source)
	g.metrics.Diagrams.WithLabelValues(string(req.Type)).Inc()

	g.logger.Debug("diagram generated",
		zap.String("id", res.ID),
		zap.String("type", string(res.Type)),
		zap.Bool("legacy", res.Legacy),
		zap.Int("entries", len(res.Entries)))

	return res, nil
}

// Facets returns the facet values for lines. When the primary parser finds
// nothing, legacy entries are used instead.
func (g *Generator) Facets(lines []string, dialect model.Dialect) (filter.Facets, error) {
	if !hasContent(lines) {
		return filter.Facets{}, ErrNoContent
	}
	entries := g.parser.Parse(lines, dialect)
	if len(entries) == 0 {
		entries = g.parser.ParseLegacy(lines)
	}
	return filter.Extract(entries), nil
}

// SplitLines splits pasted or uploaded text on newlines, accepting CRLF.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}

func hasContent(lines []string) bool {
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			return true
		}
	}
	return false
}
