package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atikulmunna/logdiagram/internal/diagram"
	"github.com/atikulmunna/logdiagram/internal/encoder"
	"github.com/atikulmunna/logdiagram/internal/metrics"
	"github.com/atikulmunna/logdiagram/internal/output"
	"github.com/atikulmunna/logdiagram/internal/pipeline"
)

var (
	renderType    string
	renderDialect string
	renderURLOnly bool
	renderVerify  bool
	renderFilters selectionFlags
)

var renderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Generate a diagram and its rendering URL from a log",
	Long: `Parse a log file (or stdin) and print the PlantUML source and image URL.

Examples:
  logdiagram render qdma.log
  logdiagram render qdma.log --type component
  dmesg | logdiagram render --function qdma_probe,qdma_open --url-only`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	f := renderCmd.Flags()
	f.StringVarP(&renderType, "type", "t", "", "diagram type: sequence, activity, component")
	f.StringVar(&renderDialect, "dialect", "", "log dialect: auto, qdma, legacy")
	f.BoolVar(&renderURLOnly, "url-only", false, "print only the image URL (text output)")
	f.BoolVar(&renderVerify, "verify", false, "decode the URL payload and check it reproduces the source")
	renderFilters.register(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	lines, err := readLines(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	typ := renderType
	if typ == "" {
		typ = cfg.DiagramType
	}
	t, err := diagram.ParseType(typ)
	if err != nil {
		return err
	}
	dialect, err := parseDialectFlag(renderDialect)
	if err != nil {
		return err
	}

	gen, err := newGenerator(metrics.New())
	if err != nil {
		return err
	}

	res, err := gen.Generate(cmd.Context(), pipeline.Request{
		Lines:   lines,
		Type:    t,
		Dialect: dialect,
		Filters: renderFilters.selection(),
	})
	if err != nil {
		return err
	}

	if renderVerify {
		if err := verifyPayload(res); err != nil {
			return err
		}
		logger.Info("payload verified", zap.String("id", res.ID))
	}

	renderer, err := output.New(outputFmt, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if tr, ok := renderer.(*output.TextRenderer); ok {
		tr.URLOnly = renderURLOnly
	}
	return renderer.Result(res)
}

// verifyPayload re-encodes the source, checks it reproduces the URL, and
// inflates the payload back to the source.
func verifyPayload(res pipeline.Result) error {
	enc := encoder.New(encoder.WithBaseURL(cfg.ServerURL), encoder.WithLogger(logger))
	payload := enc.Payload(res.Source)
	if enc.BaseURL()+payload != res.URL {
		return fmt.Errorf("verify payload: URL does not match a fresh encoding")
	}

	got, err := encoder.Inflate(payload)
	if err != nil {
		return fmt.Errorf("verify payload: %w", err)
	}
	if got != res.Source {
		return fmt.Errorf("verify payload: decoded source differs (%d vs %d bytes)", len(got), len(res.Source))
	}
	return nil
}
