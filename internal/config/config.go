package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DirName is the per-user configuration directory under $HOME.
const DirName = ".corrloom"

// Global configuration structure.
type Global struct {
	Threshold float64  `mapstructure:"threshold" yaml:"threshold"`
	OutputDir string   `mapstructure:"output_dir" yaml:"output_dir"`
	Formats   []string `mapstructure:"formats" yaml:"formats"`
	Scatter   bool     `mapstructure:"scatter" yaml:"scatter"`
	Workers   int      `mapstructure:"workers" yaml:"workers"`

	// Limits (0 = unlimited)
	MaxRows    int   `mapstructure:"max_rows" yaml:"max_rows"`
	MaxColumns int   `mapstructure:"max_columns" yaml:"max_columns"`
	MaxCells   int64 `mapstructure:"max_cells" yaml:"max_cells"`

	// Locale-aware numeric parsing; empty means strict parsing.
	Decimal   string `mapstructure:"decimal" yaml:"decimal"`
	Thousands string `mapstructure:"thousands" yaml:"thousands"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	// HTTP surface
	ServerAddr      string `mapstructure:"server_addr" yaml:"server_addr"`
	ServerMaxBodyMB int    `mapstructure:"server_max_body_mb" yaml:"server_max_body_mb"`
}

// Keys lists the settable configuration keys in display order.
var Keys = []string{
	"threshold", "output_dir", "formats", "scatter", "workers",
	"max_rows", "max_columns", "max_cells", "decimal", "thousands",
	"log_level", "log_format", "server_addr", "server_max_body_mb",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("threshold", 0.9)
	v.SetDefault("output_dir", ".")
	v.SetDefault("formats", []string{"xlsx", "csv", "json", "md"})
	v.SetDefault("scatter", true)
	v.SetDefault("workers", 0)
	v.SetDefault("max_rows", 0)
	v.SetDefault("max_columns", 0)
	v.SetDefault("max_cells", 0)
	v.SetDefault("decimal", "")
	v.SetDefault("thousands", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("server_addr", ":8080")
	v.SetDefault("server_max_body_mb", 32)
}

// Defaults returns the built-in configuration without reading files or env.
func Defaults() *Global {
	v := viper.New()
	setDefaults(v)
	var c Global
	_ = v.Unmarshal(&c)
	return &c
}

// DefaultPath returns ~/.corrloom/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, DirName, "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.corrloom/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
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
// Precedence: env > config file > defaults. Flags are applied by callers.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("CORRLOOM")
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		v.AddConfigPath(filepath.Join(home, DirName))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// the default file is optional; an explicit one must be readable
	if err := v.ReadInConfig(); err != nil && cfgFile != "" && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Global) Validate() error {
	if !(c.Threshold > 0 && c.Threshold <= 1) {
		return fmt.Errorf("config: threshold %v must be in (0, 1]", c.Threshold)
	}
	if c.Workers < 0 || c.MaxRows < 0 || c.MaxColumns < 0 || c.MaxCells < 0 {
		return fmt.Errorf("config: workers and limits must not be negative")
	}
	if (c.Decimal != "auto" && len([]rune(c.Decimal)) > 1) || len([]rune(c.Thousands)) > 1 {
		return fmt.Errorf("config: decimal and thousands must be a single character (decimal may also be \"auto\")")
	}
	return nil
}
