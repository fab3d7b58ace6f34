package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/atikulmunna/logdiagram/internal/aggregator"
	"github.com/atikulmunna/logdiagram/internal/diagram"
	"github.com/atikulmunna/logdiagram/internal/hub"
	"github.com/atikulmunna/logdiagram/internal/metrics"
	"github.com/atikulmunna/logdiagram/internal/output"
	"github.com/atikulmunna/logdiagram/internal/server"
	"github.com/atikulmunna/logdiagram/internal/tailer"
	"github.com/atikulmunna/logdiagram/internal/watcher"
)

var (
	watchType    string
	watchDialect string
	watchListen  string
	watchQuiet   bool
	watchFilters selectionFlags
)

var watchCmd = &cobra.Command{
	Use:   "watch [paths...]",
	Short: "Follow log files and regenerate their diagrams as they grow",
	Long: `Watch one or more log files (or glob patterns), read them from the start,
and rebuild each file's diagram whenever new lines arrive. Updates are printed
to the terminal and, with --listen, streamed to WebSocket clients on /ws.

Examples:
  logdiagram watch /var/log/qdma.log
  logdiagram watch "logs/**/*.log" --type component --listen :8080`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	f := watchCmd.Flags()
	f.StringVarP(&watchType, "type", "t", "", "diagram type: sequence, activity, component")
	f.StringVar(&watchDialect, "dialect", "", "log dialect: auto, qdma, legacy")
	f.StringVar(&watchListen, "listen", "", "also serve the live API on this address")
	f.BoolVarP(&watchQuiet, "quiet", "q", false, "do not print updates to the terminal")
	f.Int("max-lines", 100000, "newest lines kept per file for rebuilding (0 keeps all)")
	_ = viper.BindPFlag("max_lines", f.Lookup("max-lines"))
	watchFilters.register(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	typ := watchType
	if typ == "" {
		typ = cfg.DiagramType
	}
	t, err := diagram.ParseType(typ)
	if err != nil {
		return err
	}
	dialect, err := parseDialectFlag(watchDialect)
	if err != nil {
		return err
	}

	w, err := watcher.New(args, logger)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if len(w.Paths()) == 0 {
		_ = w.Close()
		return fmt.Errorf("no files matched the given patterns: %v", args)
	}
	logger.Info("watching files", zap.Strings("paths", w.Paths()))

	m := metrics.New()
	gen, err := newGenerator(m)
	if err != nil {
		return err
	}

	tl := tailer.New(w, logger)
	h := hub.New(tl.Lines(), gen, hub.Config{
		Type:     t,
		Dialect:  dialect,
		Filters:  watchFilters.selection(),
		Interval: cfg.RegenInterval,
		MaxLines: cfg.MaxLines,
	}, m, logger)

	renderer, err := output.New(outputFmt, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	terminal := h.Subscribe()
	agg := aggregator.New(h.Subscribe(), h.Received, h.Dropped, func() int { return len(w.Paths()) })

	go w.Start(ctx)
	go tl.Start(ctx)
	go h.Start(ctx)
	go agg.Start(ctx)

	srvErr := make(chan error, 1)
	if watchListen != "" {
		srv := server.New(gen, m, logger, watchListen, server.WithLive(h, agg))
		go func() {
			err := srv.Start(ctx)
			if err != nil {
				logger.Error("http server stopped", zap.Error(err))
				cancel()
			}
			srvErr <- err
		}()
	} else {
		srvErr <- nil
	}

	// The hub closes subscriber channels once the tailer output drains.
	for u := range terminal {
		if watchQuiet {
			continue
		}
		if err := renderer.Result(u.Result); err != nil {
			logger.Warn("render error", zap.String("source", u.Source), zap.Error(err))
		}
	}

	cancel()
	return <-srvErr
}

// signalContext cancels on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\nlogdiagram shutting down gracefully...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}
