package parser

import (
	"strings"

	"github.com/atikulmunna/logdiagram/internal/model"
)

// LegacyModule is the module assigned to entries from legacy-dialect lines,
// which carry no subsystem name.
const LegacyModule = "legacy"

// Parser converts raw log lines into normalized LogEntry values.
// Lines that match no known form are dropped without error.
type Parser struct {
	matcher *Matcher
	mode    DetectMode
}

// New returns a Parser. A nil matcher gets an uncached one.
func New(m *Matcher, mode DetectMode) *Parser {
	if m == nil {
		m = &Matcher{}
	}
	if mode == "" {
		mode = DetectSymmetric
	}
	return &Parser{matcher: m, mode: mode}
}

// Detect runs format detection with the parser's mode.
func (p *Parser) Detect(lines []string) model.Dialect {
	return DetectDialect(lines, p.mode)
}

// Parse extracts entries from lines. An empty dialect triggers detection.
// Only the primary dialect is parsed here; legacy input yields no entries and
// is left to the legacy diagram path.
func (p *Parser) Parse(lines []string, dialect model.Dialect) []model.LogEntry {
	if dialect == "" {
		dialect = p.Detect(lines)
	}
	if dialect != model.DialectQDMA {
		return nil
	}

	entries := make([]model.LogEntry, 0, len(lines))
	for _, line := range lines {
		if e, ok := p.ParseLine(line); ok {
			entries = append(entries, e)
		}
	}
	return entries
}

// ParseLine tries the primary-dialect forms in priority order: full detail,
// simplified, then command.
func (p *Parser) ParseLine(line string) (model.LogEntry, bool) {
	raw := strings.TrimSpace(line)

	if g, ok := p.matcher.Match(line, PatternQDMAMain); ok {
		action, _ := model.ParseAction(g[2])
		return model.LogEntry{
			Module:         g[0],
			CallerFunction: g[1],
			Function:       g[3],
			Action:         action,
			ThreadID:       model.Str(g[4]),
			Raw:            raw,
		}, true
	}

	if g, ok := p.matcher.Match(line, PatternQDMASimple); ok {
		return model.LogEntry{
			Module:         g[0],
			CallerFunction: g[1],
			Function:       g[1],
			Action:         model.ActionInfo,
			Message:        model.Str(g[2]),
			Raw:            raw,
		}, true
	}

	if g, ok := p.matcher.Match(line, PatternCommandExec); ok {
		return model.LogEntry{
			Module:         model.DefaultModule,
			CallerFunction: "command",
			Function:       "command",
			Action:         model.ActionCommand,
			Message:        model.Str(g[0]),
			Raw:            raw,
		}, true
	}

	return model.LogEntry{}, false
}

// ParseLegacy extracts entries from legacy-dialect lines. Lines LegacyMatch
// rejects are skipped.
func (p *Parser) ParseLegacy(lines []string) []model.LogEntry {
	var entries []model.LogEntry
	for _, line := range lines {
		fn, word, ok := p.LegacyMatch(line)
		if !ok {
			continue
		}
		action, ok := model.ParseAction(word)
		if !ok {
			continue
		}
		entries = append(entries, model.LogEntry{
			Module:         LegacyModule,
			CallerFunction: fn,
			Function:       fn,
			Action:         action,
			Raw:            strings.TrimSpace(line),
		})
	}
	return entries
}

// LegacyMatch returns the function name and qualifier word of a legacy line,
// keeping the qualifier's original casing. The "Retrying Function <name>"
// form is checked first and reports the word "retry".
func (p *Parser) LegacyMatch(line string) (fn, word string, ok bool) {
	line = strings.TrimSpace(line)
	if g, ok := p.matcher.Match(line, PatternLegacyRetry); ok {
		return g[0], string(model.ActionRetry), true
	}
	g, ok := p.matcher.Match(line, PatternLegacyFunc)
	if !ok {
		return "", "", false
	}
	return g[0], g[1], true
}
