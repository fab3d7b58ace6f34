package parser

import (
	"fmt"
	"testing"
)

// BenchmarkParseLineFull measures the full-detail path.
func BenchmarkParseLineFull(b *testing.B) {
	p := New(nil, "")

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		p.ParseLine(enterLine)
	}
}

// BenchmarkParseLineCommand measures the worst case, where two forms miss first.
func BenchmarkParseLineCommand(b *testing.B) {
	p := New(nil, "")

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		p.ParseLine(commandLine)
	}
}

// BenchmarkParseCached compares a repeated batch with the LRU enabled.
func BenchmarkParseCached(b *testing.B) {
	m, _ := NewMatcher(WithCache(4096))
	p := New(m, "")
	lines := benchLines(1000)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		p.Parse(lines, "")
	}
}

// BenchmarkParseUncached is the same batch without memoization.
func BenchmarkParseUncached(b *testing.B) {
	p := New(nil, "")
	lines := benchLines(1000)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		p.Parse(lines, "")
	}
}

func benchLines(n int) []string {
	lines := make([]string, n)
	for i := range lines {
		switch i % 4 {
		case 0:
			lines[i] = fmt.Sprintf("[%d.1] qdma_pf:init: ----- QDMA entering the fn%d function at x [Thread ID: %d]", i, i%20, i%4)
		case 1:
			lines[i] = fmt.Sprintf("[%d.2] qdma_pf:fn%d: queue %d configured", i, i%20, i)
		case 2:
			lines[i] = fmt.Sprintf("[%d.3] Command: dmactl qdma01000 q start idx %d", i, i)
		case 3:
			lines[i] = fmt.Sprintf("[%d.4] qdma_pf:init: ----- QDMA exiting the fn%d function at x [Thread ID: %d]", i, (i-3)%20, i%4)
		}
	}
	return lines
}
