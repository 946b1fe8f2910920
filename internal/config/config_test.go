package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"diffwrite/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	d := Default()
	assert.Equal(t, d.LogLevel, cfg.LogLevel)
	assert.Equal(t, d.Algorithm, cfg.Algorithm)
	assert.Equal(t, d.Debounce, cfg.Debounce)
	assert.False(t, cfg.Atomic)
	assert.False(t, cfg.DryRun)
	assert.Empty(t, cfg.Ignore)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diffwrite.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"log_level": "debug",
		"algorithm": "sha256",
		"atomic": true,
		"ignore": ["**/*.tmp", ".git"],
		"debounce": "1s"
	}`), 0o644))

	cfg, err := Load(New(), path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "sha256", cfg.Algorithm)
	assert.True(t, cfg.Atomic)
	assert.False(t, cfg.DryRun)
	assert.Equal(t, []string{"**/*.tmp", ".git"}, cfg.Ignore)
	assert.Equal(t, time.Second, cfg.Debounce)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diffwrite.yaml")
	require.NoError(t, os.WriteFile(path, []byte("algorithm: fnv64a\ndry_run: true\n"), 0o644))

	cfg, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, "fnv64a", cfg.Algorithm)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DIFFWRITE_ALGORITHM", "sha256")
	t.Setenv("DIFFWRITE_ATOMIC", "true")

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, "sha256", cfg.Algorithm)
	assert.True(t, cfg.Atomic)
}

func TestLoadNormalizesLogLevel(t *testing.T) {
	t.Setenv("DIFFWRITE_LOG_LEVEL", "Warn")

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)

	_, err = logging.NewLogger(cfg.LogLevel)
	assert.NoError(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "empty algorithm uses default", mutate: func(c *Config) { c.Algorithm = "" }},
		{name: "unknown algorithm", mutate: func(c *Config) { c.Algorithm = "crc7" }, wantErr: true},
		{name: "unknown level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: true},
		{name: "bad pattern", mutate: func(c *Config) { c.Ignore = []string{"[a-"} }, wantErr: true},
		{name: "negative debounce", mutate: func(c *Config) { c.Debounce = -time.Second }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
