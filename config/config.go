// Package config provides configuration management for the factboard CLI.
//
// Values are layered with koanf. Precedence, highest first: explicitly set
// flags, FACTBOARD_* environment variables, the YAML config file, defaults.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/spektr-org/factboard/schema"
)

// Defaults.
const (
	DefaultDataDir     = "."
	DefaultCacheSize   = 16
	DefaultParallelism = 4
	DefaultOutput      = OutputTable
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
	DefaultPreviewRows = 300

	// EnvPrefix prefixes every environment variable read.
	EnvPrefix = "FACTBOARD_"
)

// Output modes.
const (
	OutputTable = "table"
	OutputJSON  = "json"
)

// Config holds all CLI configuration options.
type Config struct {
	DataDir      string            `koanf:"data_dir"`
	Files        map[string]string `koanf:"files"`
	RegistryFile string            `koanf:"registry_file"`
	CacheSize    int               `koanf:"cache_size"`
	Parallelism  int               `koanf:"parallelism"`
	Output       string            `koanf:"output"`
	LogLevel     string            `koanf:"log_level"`
	LogFormat    string            `koanf:"log_format"`
	PreviewRows  int               `koanf:"preview_rows"`
	MetricsOut   string            `koanf:"metrics_out"`

	// FileUsed is the config file that was read, if any.
	FileUsed string `koanf:"-"`
}

// flagKeys bridges flag names that differ from their config keys.
var flagKeys = map[string]string{
	"registry": "registry_file",
}

// findConfigFile finds the config file to use.
// Priority: explicit path > factboard.yaml > factboard.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"factboard.yaml", "factboard.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load loads configuration from defaults, file, environment variables and flags.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"data_dir":     DefaultDataDir,
		"cache_size":   DefaultCacheSize,
		"parallelism":  DefaultParallelism,
		"output":       DefaultOutput,
		"log_level":    DefaultLogLevel,
		"log_format":   DefaultLogFormat,
		"preview_rows": DefaultPreviewRows,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// 3. Environment: FACTBOARD_CACHE_SIZE -> cache_size
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, only those explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			if mapped, ok := flagKeys[f.Name]; ok {
				key = mapped
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.FileUsed = used

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks option values.
func (c *Config) Validate() error {
	var errs []error
	switch c.Output {
	case OutputTable, OutputJSON:
	default:
		errs = append(errs, fmt.Errorf("output must be %q or %q, got %q", OutputTable, OutputJSON, c.Output))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.CacheSize <= 0 {
		errs = append(errs, fmt.Errorf("cache_size must be positive, got %d", c.CacheSize))
	}
	if c.Parallelism <= 0 {
		errs = append(errs, fmt.Errorf("parallelism must be positive, got %d", c.Parallelism))
	}
	if c.PreviewRows <= 0 {
		errs = append(errs, fmt.Errorf("preview_rows must be positive, got %d", c.PreviewRows))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// FileFor resolves the CSV path of a dataset. Relative paths are taken from
// the data directory.
func (c *Config) FileFor(ds schema.Dataset) string {
	name := c.Files[ds.Name]
	if name == "" {
		name = ds.DefaultFile
	}
	if name == "" {
		name = ds.Name + ".csv"
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

// NewLogger builds the configured slog logger writing to w.
func (c *Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}
