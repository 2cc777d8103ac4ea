package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultCatalogBaseURL serves the sample datasets as <slug>.csv.
const DefaultCatalogBaseURL = "https://raw.githubusercontent.com/mwaskom/seaborn-data/master"

// Global configuration structure.
type Global struct {
	// Server
	ListenAddr  string `mapstructure:"listen_addr" yaml:"listen_addr"`
	MaxUploadMB int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`

	// Sample dataset catalog
	DataDir        string `mapstructure:"data_dir" yaml:"data_dir"`
	CatalogBaseURL string `mapstructure:"catalog_base_url" yaml:"catalog_base_url"`
	HTTPTimeoutSec int    `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`

	// Report defaults
	SampleSeed         int64   `mapstructure:"sample_seed" yaml:"sample_seed"`
	DefaultMinimal     bool    `mapstructure:"default_minimal" yaml:"default_minimal"`
	DefaultExplorative bool    `mapstructure:"default_explorative" yaml:"default_explorative"`
	DefaultDarkMode    bool    `mapstructure:"default_dark_mode" yaml:"default_dark_mode"`
	HistogramBins      int     `mapstructure:"histogram_bins" yaml:"histogram_bins"`
	OutlierThreshold   float64 `mapstructure:"outlier_threshold" yaml:"outlier_threshold"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// Dir returns ~/.profiloom.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".profiloom"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.profiloom/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("PROFILOOM")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("listen_addr", ":8501")
	v.SetDefault("max_upload_mb", 200)
	v.SetDefault("data_dir", "")
	v.SetDefault("catalog_base_url", DefaultCatalogBaseURL)
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("sample_seed", 42)
	v.SetDefault("default_minimal", false)
	v.SetDefault("default_explorative", true)
	v.SetDefault("default_dark_mode", false)
	v.SetDefault("histogram_bins", 10)
	v.SetDefault("outlier_threshold", 3.5)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// Resolve data_dir default: ~/.profiloom/datasets
	if c.DataDir == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		c.DataDir = filepath.Join(dir, "datasets")
	}
	c.CatalogBaseURL = strings.TrimRight(c.CatalogBaseURL, "/")
	return &c, nil
}

// MaxUploadBytes converts the upload limit to bytes.
func (c *Global) MaxUploadBytes() int64 {
	if c.MaxUploadMB <= 0 {
		return 200 << 20
	}
	return int64(c.MaxUploadMB) << 20
}
