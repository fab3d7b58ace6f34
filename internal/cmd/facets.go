package cmd

import (
	"github.com/spf13/cobra"

	"github.com/atikulmunna/logdiagram/internal/filter"
	"github.com/atikulmunna/logdiagram/internal/metrics"
	"github.com/atikulmunna/logdiagram/internal/output"
)

var (
	facetsDialect  string
	facetsDefaults bool
)

var facetsCmd = &cobra.Command{
	Use:   "facets [file]",
	Short: "List the functions, modules, actions and threads found in a log",
	Long: `List the distinct filter values of a log. Use them with the --function,
--module, --action and --thread flags of "render".

With --defaults the output is the selection a filter form would start with:
the first 10 functions plus every module, action and thread.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFacets,
}

func init() {
	rootCmd.AddCommand(facetsCmd)
	facetsCmd.Flags().StringVar(&facetsDialect, "dialect", "", "log dialect: auto, qdma, legacy")
	facetsCmd.Flags().BoolVar(&facetsDefaults, "defaults", false, "print the default filter selection instead")
}

func runFacets(cmd *cobra.Command, args []string) error {
	lines, err := readLines(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	dialect, err := parseDialectFlag(facetsDialect)
	if err != nil {
		return err
	}

	gen, err := newGenerator(metrics.New())
	if err != nil {
		return err
	}
	facets, err := gen.Facets(lines, dialect)
	if err != nil {
		return err
	}

	renderer, err := output.New(outputFmt, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	if facetsDefaults {
		sel := filter.DefaultSelection(facets)
		return renderer.Facets(filter.SortedFacets{
			Functions: sel.Functions,
			Modules:   sel.Modules,
			Actions:   sel.Actions,
			Threads:   sel.Threads,
		})
	}
	return renderer.Facets(facets.Sorted())
}
