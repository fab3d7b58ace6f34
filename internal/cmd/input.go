package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/atikulmunna/logdiagram/internal/filter"
	"github.com/atikulmunna/logdiagram/internal/model"
)

const maxLineSize = 1 << 20

// readLines loads the log from a file argument, or stdin when the argument
// is missing or "-".
func readLines(args []string, stdin io.Reader) ([]string, error) {
	r := stdin
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, fmt.Errorf("open log: %w", err)
		}
		defer f.Close()
		r = f
	}

	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	return lines, nil
}

// selectionFlags registers the facet filter flags on cmd.
type selectionFlags struct {
	functions []string
	modules   []string
	actions   []string
	threads   []string
}

func (s *selectionFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringSliceVar(&s.functions, "function", nil, "only include these functions (repeatable, comma-separated)")
	f.StringSliceVar(&s.modules, "module", nil, "only include these modules")
	f.StringSliceVar(&s.actions, "action", nil, "only include these actions")
	f.StringSliceVar(&s.threads, "thread", nil, "only include these thread ids (lines without one always pass)")
}

func (s *selectionFlags) selection() filter.Selection {
	return filter.Selection{
		Functions: s.functions,
		Modules:   s.modules,
		Actions:   s.actions,
		Threads:   s.threads,
	}
}

func parseDialectFlag(s string) (model.Dialect, error) {
	if s == "" {
		s = cfg.Dialect
	}
	d, ok := model.ParseDialect(s)
	if !ok {
		return "", fmt.Errorf("unknown dialect %q (want auto, qdma or legacy)", s)
	}
	return d, nil
}
