package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/atikulmunna/logdiagram/internal/filter"
	"github.com/atikulmunna/logdiagram/internal/pipeline"
)

// Renderer writes generation results and facet listings to an output stream.
type Renderer interface {
	Result(res pipeline.Result) error
	Facets(f filter.SortedFacets) error
}

// New picks a renderer by format name: text (default), json or yaml.
func New(format string, w io.Writer) (Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		return NewTextRenderer(w), nil
	case "json":
		return NewJSONRenderer(w), nil
	case "yaml", "yml":
		return NewYAMLRenderer(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// ---------------------------------------------------------------------------
// Text Renderer (styled terminal output)
// ---------------------------------------------------------------------------

var (
	styleHeader = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true) // cyan
	styleLegacy = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))           // yellow
	styleSource = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))           // gray
	styleURL    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleLabel  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Faint(true)
)

// TextRenderer prints the diagram source followed by its image URL.
type TextRenderer struct {
	w io.Writer

	// URLOnly suppresses everything but the URL line, for piping.
	URLOnly bool
}

// NewTextRenderer returns a Renderer that writes styled text to w.
func NewTextRenderer(w io.Writer) *TextRenderer {
	return &TextRenderer{w: w}
}

func (r *TextRenderer) Result(res pipeline.Result) error {
	if r.URLOnly {
		_, err := fmt.Fprintln(r.w, res.URL)
		return err
	}

	header := styleHeader.Render(fmt.Sprintf("%s diagram", res.Type))
	if res.Legacy {
		header += " " + styleLegacy.Render("(legacy fallback)")
	} else {
		header += " " + styleLabel.Render(fmt.Sprintf("dialect=%s entries=%d", res.Dialect, len(res.Entries)))
	}

	var b strings.Builder
	b.WriteString(header + "\n\n")
	b.WriteString(styleSource.Render(res.Source) + "\n\n")
	b.WriteString(styleURL.Render(res.URL) + "\n")

	_, err := io.WriteString(r.w, b.String())
	return err
}

func (r *TextRenderer) Facets(f filter.SortedFacets) error {
	rows := []struct {
		label  string
		values []string
	}{
		{"functions", f.Functions},
		{"modules", f.Modules},
		{"actions", f.Actions},
		{"threads", f.Threads},
	}

	for _, row := range rows {
		values := strings.Join(row.values, ", ")
		if values == "" {
			values = "-"
		}
		line := fmt.Sprintf("%s %s", styleLabel.Render(fmt.Sprintf("%-9s", row.label)), values)
		if _, err := fmt.Fprintln(r.w, line); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// JSON Renderer (structured output for piping)
// ---------------------------------------------------------------------------

// JSONRenderer prints each result as a single JSON object per line.
type JSONRenderer struct {
	enc *json.Encoder
}

// NewJSONRenderer returns a Renderer that writes JSON lines to w.
func NewJSONRenderer(w io.Writer) *JSONRenderer {
	return &JSONRenderer{enc: json.NewEncoder(w)}
}

func (r *JSONRenderer) Result(res pipeline.Result) error {
	return r.enc.Encode(res)
}

func (r *JSONRenderer) Facets(f filter.SortedFacets) error {
	return r.enc.Encode(f)
}

// ---------------------------------------------------------------------------
// YAML Renderer
// ---------------------------------------------------------------------------

// YAMLRenderer prints results as YAML documents.
type YAMLRenderer struct {
	w io.Writer
}

// NewYAMLRenderer returns a Renderer that writes YAML documents to w.
func NewYAMLRenderer(w io.Writer) *YAMLRenderer {
	return &YAMLRenderer{w: w}
}

func (r *YAMLRenderer) Result(res pipeline.Result) error {
	return r.encode(res)
}

func (r *YAMLRenderer) Facets(f filter.SortedFacets) error {
	return r.encode(f)
}

func (r *YAMLRenderer) encode(v any) error {
	enc := yaml.NewEncoder(r.w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
