package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/vjranagit/spinrtt/pkg/ingest"
	"github.com/vjranagit/spinrtt/pkg/storage"
)

// EnvPrefix prefixes every environment override, e.g. SPINRTT_STORAGE_PATH
const EnvPrefix = "SPINRTT"

// Config holds the application configuration
type Config struct {
	Storage  StorageConfig  `mapstructure:"storage"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// StorageConfig holds storage configuration
type StorageConfig struct {
	Path             string        `mapstructure:"path"`
	CompressionLevel int           `mapstructure:"compression_level"`
	CacheCapacity    int           `mapstructure:"cache_capacity"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
	SyncWrites       bool          `mapstructure:"sync_writes"`
}

// AnalysisConfig holds analysis and ingestion settings
type AnalysisConfig struct {
	Workers    int     `mapstructure:"workers"`
	ValueScale float64 `mapstructure:"value_scale"`
	SkipRows   int     `mapstructure:"skip_rows"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Path:             "./data",
			CompressionLevel: 3,
			CacheCapacity:    256,
			CacheTTL:         10 * time.Minute,
		},
		Analysis: AnalysisConfig{
			Workers:    4,
			ValueScale: 1000,
			SkipRows:   2,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from the optional file at path, then applies
// environment overrides on top of the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()

	def := DefaultConfig()
	v.SetDefault("storage.path", def.Storage.Path)
	v.SetDefault("storage.compression_level", def.Storage.CompressionLevel)
	v.SetDefault("storage.cache_capacity", def.Storage.CacheCapacity)
	v.SetDefault("storage.cache_ttl", def.Storage.CacheTTL)
	v.SetDefault("storage.sync_writes", def.Storage.SyncWrites)
	v.SetDefault("analysis.workers", def.Analysis.Workers)
	v.SetDefault("analysis.value_scale", def.Analysis.ValueScale)
	v.SetDefault("analysis.skip_rows", def.Analysis.SkipRows)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
	v.SetDefault("metrics.textfile", def.Metrics.Textfile)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return cfg, cfg.Validate()
}

// ToStorageConfig converts to storage.Config
func (c *Config) ToStorageConfig() *storage.Config {
	return &storage.Config{
		Path:             c.Storage.Path,
		CompressionLevel: c.Storage.CompressionLevel,
		SyncWrites:       c.Storage.SyncWrites,
	}
}

// ObserverOptions returns ingestion options for the given analyzer columns
func (c *Config) ObserverOptions(columns []ingest.Column) ingest.ObserverOptions {
	opts := ingest.DefaultObserverOptions()
	opts.Analyzers = columns
	opts.SkipRows = c.Analysis.SkipRows
	opts.ValueScale = c.Analysis.ValueScale
	return opts
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Storage.Path == "" {
		return fmt.Errorf("storage path is required")
	}

	if c.Storage.CompressionLevel < 1 || c.Storage.CompressionLevel > 4 {
		return fmt.Errorf("compression level must be between 1 and 4")
	}

	if c.Storage.CacheCapacity < 0 {
		return fmt.Errorf("cache capacity must not be negative")
	}

	if c.Analysis.Workers < 1 {
		return fmt.Errorf("analysis workers must be at least 1")
	}

	if c.Analysis.ValueScale <= 0 {
		return fmt.Errorf("value scale must be positive")
	}

	if c.Analysis.SkipRows < 0 {
		return fmt.Errorf("skip rows must not be negative")
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

// Apply configures logger according to the log settings
func (c LogConfig) Apply(logger *logrus.Logger) error {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return err
	}
	logger.SetLevel(level)

	if c.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}
