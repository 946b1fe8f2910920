// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"diffwrite/internal/fingerprint"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/viper"
)

const envPrefix = "DIFFWRITE"

type Config struct {
	LogLevel  string        `mapstructure:"log_level"` // debug, info, warn, error
	Algorithm string        `mapstructure:"algorithm"` // xxhash, fnv64a, sha256
	Atomic    bool          `mapstructure:"atomic"`
	DryRun    bool          `mapstructure:"dry_run"`
	Ignore    []string      `mapstructure:"ignore"`
	Debounce  time.Duration `mapstructure:"debounce"`
}

func Default() *Config {
	return &Config{
		LogLevel:  "warn",
		Algorithm: "xxhash",
		Debounce:  200 * time.Millisecond,
	}
}

// New returns a viper instance carrying defaults and DIFFWRITE_* environment
// bindings. Callers may bind CLI flags onto it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	d := Default()
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("algorithm", d.Algorithm)
	v.SetDefault("atomic", d.Atomic)
	v.SetDefault("dry_run", d.DryRun)
	v.SetDefault("ignore", []string{})
	v.SetDefault("debounce", d.Debounce)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file at path (JSON, YAML or TOML, by
// extension) into v and decodes the merged settings.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	// zap only parses all-lower or all-upper level names.
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if _, err := fingerprint.Lookup(c.Algorithm); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid config: unknown log level %q", c.LogLevel)
	}
	for _, pattern := range c.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid config: bad ignore pattern %q", pattern)
		}
	}
	if c.Debounce < 0 {
		return fmt.Errorf("invalid config: negative debounce %s", c.Debounce)
	}
	return nil
}
