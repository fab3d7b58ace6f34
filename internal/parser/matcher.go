package parser

import (
	"regexp"

	lru "github.com/hashicorp/golang-lru/v2"
)

// PatternKey names one of the recognized line formats.
type PatternKey string

const (
	PatternQDMAMain    PatternKey = "qdma_main"
	PatternQDMASimple  PatternKey = "qdma_simple"
	PatternCommandExec PatternKey = "command_exec"
	PatternLegacyFunc  PatternKey = "legacy_func"
	PatternLegacyRetry PatternKey = "legacy_retry"
)

// Identifiers and digits are matched by Unicode class; the ASCII-only \w, \d
// and \b would split names such as "föo" or "mod_é".
const (
	ident    = `[\p{L}\p{N}_]+`
	nonIdent = `[^\p{L}\p{N}_]`
	digits   = `\p{Nd}+`
	stamp    = `\[[\p{Nd}.]+\]`

	legacyWords = `entering|command|info|exiting|called|completed|error|retry|skipped`
)

var patterns = map[PatternKey]*regexp.Regexp{
	PatternQDMAMain:    regexp.MustCompile(`(?i)` + stamp + `\s+(` + ident + `):(` + ident + `):\s+----- QDMA (entering|exiting) the (` + ident + `) function at.*?\[Thread ID: (` + digits + `)\]`),
	PatternQDMASimple:  regexp.MustCompile(`(?i)` + stamp + `\s+(` + ident + `):(` + ident + `):\s+(.+)$`),
	PatternCommandExec: regexp.MustCompile(`(?i)` + stamp + `\s+Command:\s+(.+)$`),
	PatternLegacyFunc:  regexp.MustCompile(`(?i)(?:^|` + nonIdent + `)Function (` + ident + `)` + nonIdent + `(?:.*?` + nonIdent + `)?(` + legacyWords + `)(?:` + nonIdent + `|$)`),
	PatternLegacyRetry: regexp.MustCompile(`(?i)(?:^|` + nonIdent + `)Retrying Function (` + ident + `)`),
}

type cacheKey struct {
	line string
	key  PatternKey
}

type cacheValue struct {
	groups []string
	ok     bool
}

// Matcher classifies raw lines against the known patterns.
// The optional cache only saves regex work; results are identical without it.
type Matcher struct {
	cache *lru.Cache[cacheKey, cacheValue]
}

// MatcherOption configures a Matcher.
type MatcherOption func(*Matcher) error

// WithCache memoizes up to size (line, pattern) lookups in an LRU.
// A non-positive size leaves the matcher uncached.
func WithCache(size int) MatcherOption {
	return func(m *Matcher) error {
		if size <= 0 {
			return nil
		}
		c, err := lru.New[cacheKey, cacheValue](size)
		if err != nil {
			return err
		}
		m.cache = c
		return nil
	}
}

// NewMatcher builds a Matcher. Without options it does no caching.
func NewMatcher(opts ...MatcherOption) (*Matcher, error) {
	m := &Matcher{}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Match searches line for the pattern named by key and returns the capture
// groups (without the full match). Unknown keys never match.
func (m *Matcher) Match(line string, key PatternKey) ([]string, bool) {
	if m.cache != nil {
		ck := cacheKey{line: line, key: key}
		if v, ok := m.cache.Get(ck); ok {
			return v.groups, v.ok
		}
		groups, ok := match(line, key)
		m.cache.Add(ck, cacheValue{groups: groups, ok: ok})
		return groups, ok
	}
	return match(line, key)
}

// Cached reports how many lookups are currently memoized.
func (m *Matcher) Cached() int {
	if m.cache == nil {
		return 0
	}
	return m.cache.Len()
}

func match(line string, key PatternKey) ([]string, bool) {
	re, ok := patterns[key]
	if !ok {
		return nil, false
	}
	sub := re.FindStringSubmatch(line)
	if sub == nil {
		return nil, false
	}
	return sub[1:], true
}
