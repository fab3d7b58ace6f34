package parser

import (
	"fmt"
	"strings"

	"github.com/atikulmunna/logdiagram/internal/model"
)

// PreviewLines is how many leading lines format detection looks at.
const PreviewLines = 10

// DetectMode selects how legacy-dialect lines are recognized during detection.
type DetectMode string

const (
	// DetectSymmetric counts a line as legacy when it mentions "Function" and
	// either "is called" or "is completed".
	DetectSymmetric DetectMode = "symmetric"

	// DetectCompat never counts legacy lines, so detection picks legacy only
	// when no primary indicator is seen at all.
	DetectCompat DetectMode = "compat"
)

// ParseDetectMode validates a mode name. Empty means DetectSymmetric.
func ParseDetectMode(s string) (DetectMode, error) {
	switch DetectMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", DetectSymmetric:
		return DetectSymmetric, nil
	case DetectCompat:
		return DetectCompat, nil
	default:
		return "", fmt.Errorf("unknown detect mode %q", s)
	}
}

var (
	qdmaIndicators   = []string{"qdma_pf:", "QDMA entering", "QDMA exiting"}
	legacyIndicators = []string{"is called", "is completed"}
)

// DetectDialect scores the first PreviewLines lines and picks the dialect
// with more hits. Ties go to legacy.
func DetectDialect(lines []string, mode DetectMode) model.Dialect {
	var qdma, legacy int

	for i, line := range lines {
		if i >= PreviewLines {
			break
		}
		switch {
		case containsAny(line, qdmaIndicators):
			qdma++
		case mode != DetectCompat && strings.Contains(line, "Function") && containsAny(line, legacyIndicators):
			legacy++
		}
	}

	if qdma > legacy {
		return model.DialectQDMA
	}
	return model.DialectLegacy
}

func containsAny(line string, subs []string) bool {
	for _, s := range subs {
		if strings.Contains(line, s) {
			return true
		}
	}
	return false
}
