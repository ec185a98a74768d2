package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/vjranagit/spinrtt/pkg/ingest"
)

func TestDefaultConfigIsValid(t *testing.T) {
	assert.NilError(t, DefaultConfig().Validate())
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	assert.NilError(t, err)
	assert.DeepEqual(t, cfg, DefaultConfig())
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spinrtt.yaml")
	content := `
storage:
  path: /tmp/runs
  cache_ttl: 30s
analysis:
  workers: 8
log:
  format: json
`
	assert.NilError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("SPINRTT_ANALYSIS_WORKERS", "2")
	t.Setenv("SPINRTT_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	assert.NilError(t, err)

	assert.Equal(t, cfg.Storage.Path, "/tmp/runs")
	assert.Equal(t, cfg.Storage.CacheTTL, 30*time.Second)
	assert.Equal(t, cfg.Storage.CompressionLevel, 3)
	assert.Equal(t, cfg.Analysis.Workers, 2)
	assert.Equal(t, cfg.Log.Level, "debug")
	assert.Equal(t, cfg.Log.Format, "json")
	assert.Equal(t, cfg.Analysis.ValueScale, 1000.0)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Assert(t, err != nil)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"empty path", func(c *Config) { c.Storage.Path = "" }},
		{"compression level", func(c *Config) { c.Storage.CompressionLevel = 5 }},
		{"workers", func(c *Config) { c.Analysis.Workers = 0 }},
		{"value scale", func(c *Config) { c.Analysis.ValueScale = 0 }},
		{"skip rows", func(c *Config) { c.Analysis.SkipRows = -1 }},
		{"log level", func(c *Config) { c.Log.Level = "loud" }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			assert.Assert(t, cfg.Validate() != nil)
		})
	}
}

func TestDerivedConfigs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Analysis.SkipRows = 0

	sc := cfg.ToStorageConfig()
	assert.Equal(t, sc.Path, cfg.Storage.Path)
	assert.Equal(t, sc.CompressionLevel, cfg.Storage.CompressionLevel)

	opts := cfg.ObserverOptions(ingest.TCPAnalyzers())
	assert.Equal(t, opts.SkipRows, 0)
	assert.Equal(t, opts.ValueScale, 1000.0)
	assert.Assert(t, is.Len(opts.Analyzers, 3))
}

func TestLogConfigApply(t *testing.T) {
	logger := logrus.New()
	assert.NilError(t, LogConfig{Level: "warn", Format: "json"}.Apply(logger))
	assert.Equal(t, logger.GetLevel(), logrus.WarnLevel)
	_, ok := logger.Formatter.(*logrus.JSONFormatter)
	assert.Assert(t, ok)

	assert.Assert(t, LogConfig{Level: "nope"}.Apply(logger) != nil)
}
