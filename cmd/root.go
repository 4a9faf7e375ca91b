package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cfgpkg "github.com/KaramelBytes/corrloom-cli/internal/config"
	"github.com/KaramelBytes/corrloom-cli/internal/logging"
)

var (
	// Global flags
	cfgFile   string
	debug     bool
	logFormat string

	// Loaded configuration
	cfg *cfgpkg.Global
	// Shared logger; a no-op until loadConfig runs
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "corrloom",
	Short: "corrloom: Pearson, Spearman and distance correlation matrices for tabular data",
	Long: `corrloom reads a CSV/TSV/XLSX table, coerces every column to numbers, computes
Pearson, Spearman and distance correlation matrices, and lists the variable
pairs whose absolute association meets a threshold.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	defer func() { _ = logger.Sync() }()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		_ = logger.Sync()
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.corrloom/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: console|json (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = cfgpkg.Defaults()
	}
	cfg = c

	level, format := cfg.LogLevel, cfg.LogFormat
	if debug {
		level = "debug"
	}
	if rootCmd.PersistentFlags().Changed("log-format") {
		format = logFormat
	}
	l, err := logging.New(level, format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %v; logging disabled\n", err)
		return
	}
	logger = l
}
