package cmd

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/KaramelBytes/profiloom/internal/catalog"
	cfgpkg "github.com/KaramelBytes/profiloom/internal/config"
	"github.com/KaramelBytes/profiloom/internal/logging"
	"github.com/KaramelBytes/profiloom/internal/report"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	debug   bool
	// Overrides for config values when set
	flagHTTPTimeoutSec int
	flagLogLevel       string
	flagLogFormat      string
	flagDataDir        string

	// Loaded configuration
	cfg *cfgpkg.Global
	// logger is built from the loaded configuration
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "profiloom",
	Short: "Profiloom: interactive profiling reports for tabular datasets",
	Long: `Profiloom profiles CSV, TSV and XLSX datasets. Pick a built-in sample dataset
or bring your own file, sample it, and get a self-contained HTML report.
Run "profiloom serve" for the interactive dashboard.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.profiloom/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "catalog download timeout in seconds (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "log format: text|json (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "dataset cache directory (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: allow running commands that don't need config
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		logger = logging.New("info", "text", os.Stderr)
		return
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
		cfg.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	if f.Changed("log-level") && flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if f.Changed("log-format") && flagLogFormat != "" {
		cfg.LogFormat = flagLogFormat
	}
	if f.Changed("data-dir") && flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}
	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	logger = logging.New(level, cfg.LogFormat, os.Stderr)
	slog.SetDefault(logger)
}

// requireConfig returns the loaded configuration, loading it on demand.
func requireConfig() (*cfgpkg.Global, error) {
	if cfg != nil {
		return cfg, nil
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg = c
	return cfg, nil
}

func appLogger() *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// newCatalog builds the dataset catalog from configuration.
func newCatalog(c *cfgpkg.Global) *catalog.Catalog {
	timeout := time.Duration(c.HTTPTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return catalog.New(catalog.Options{
		DataDir: c.DataDir,
		BaseURL: c.CatalogBaseURL,
		Client:  &http.Client{Timeout: timeout},
		Logger:  appLogger(),
	})
}

// newProfiler builds the report generator from configuration.
func newProfiler(c *cfgpkg.Global) *report.Profiler {
	p := report.NewProfiler()
	if c.HistogramBins > 0 {
		p.Bins = c.HistogramBins
	}
	if c.OutlierThreshold > 0 {
		p.OutlierThreshold = c.OutlierThreshold
	}
	return p
}
