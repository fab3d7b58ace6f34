package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/atikulmunna/logdiagram/internal/config"
	"github.com/atikulmunna/logdiagram/internal/encoder"
	"github.com/atikulmunna/logdiagram/internal/logging"
	"github.com/atikulmunna/logdiagram/internal/metrics"
	"github.com/atikulmunna/logdiagram/internal/parser"
	"github.com/atikulmunna/logdiagram/internal/pipeline"
)

var (
	cfgFile   string
	outputFmt string
	debug     bool

	cfg    *config.Config
	logger = zap.NewNop()
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "logdiagram",
	Short: "logdiagram turns driver logs into PlantUML diagrams",
	Long: `logdiagram reads QDMA driver logs (or legacy "Function X is called" logs),
reconstructs the call structure, and emits PlantUML sequence, activity or
component diagrams together with a ready-to-open rendering URL.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "config file (default: $HOME/.logdiagram.yaml)")
	pf.StringVarP(&outputFmt, "output", "o", "text", "output format: text, json, yaml")
	pf.BoolVar(&debug, "debug", false, "enable debug logging")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("server-url", encoder.DefaultServerURL, "rendering service base URL")
	pf.String("detect-mode", "symmetric", "legacy detection: symmetric or compat")
	pf.Int("cache-size", 4096, "pattern match cache entries (0 disables)")

	_ = viper.BindPFlag("log_level", pf.Lookup("log-level"))
	_ = viper.BindPFlag("server_url", pf.Lookup("server-url"))
	_ = viper.BindPFlag("detect_mode", pf.Lookup("detect-mode"))
	_ = viper.BindPFlag("cache_size", pf.Lookup("cache-size"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigName(".logdiagram")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("LOGDIAGRAM")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
}

// setup loads configuration and builds the logger before any subcommand runs.
func setup(cmd *cobra.Command, args []string) error {
	c, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	cfg = c

	l, err := logging.New(cfg.LogLevel, debug)
	if err != nil {
		return err
	}
	logger = l

	if used := viper.ConfigFileUsed(); used != "" {
		logger.Debug("loaded config file", zap.String("path", used))
	}
	return nil
}

// newGenerator wires the parse/encode pipeline from the loaded config.
func newGenerator(m *metrics.Metrics) (*pipeline.Generator, error) {
	mode, err := parser.ParseDetectMode(cfg.DetectMode)
	if err != nil {
		return nil, err
	}
	matcher, err := parser.NewMatcher(parser.WithCache(cfg.CacheSize))
	if err != nil {
		return nil, fmt.Errorf("create matcher: %w", err)
	}

	enc := encoder.New(encoder.WithBaseURL(cfg.ServerURL), encoder.WithLogger(logger))
	return pipeline.New(parser.New(matcher, mode), enc, m, logger), nil
}
