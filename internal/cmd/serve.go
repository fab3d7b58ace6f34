package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/atikulmunna/logdiagram/internal/metrics"
	"github.com/atikulmunna/logdiagram/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the diagram API over HTTP",
	Long: `Start an HTTP server exposing:

  POST /api/diagram   {"log": "...", "type": "sequence", "filters": {...}}
  POST /api/facets    {"log": "..."}
  GET  /healthz
  GET  /metrics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", ":8080", "listen address")
	_ = viper.BindPFlag("listen", serveCmd.Flags().Lookup("listen"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	m := metrics.New()
	gen, err := newGenerator(m)
	if err != nil {
		return err
	}

	srv := server.New(gen, m, logger, cfg.Listen)
	logger.Info("starting diagram API", zap.String("listen", cfg.Listen), zap.String("render_base", cfg.ServerURL))
	return srv.Start(ctx)
}
