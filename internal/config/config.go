// Package config loads the careers CLI configuration and initializes logging.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Aggregate AggregateConfig `yaml:"aggregate" mapstructure:"aggregate"`
	Ranker    RankerConfig    `yaml:"ranker" mapstructure:"ranker"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Embedding EmbeddingConfig `yaml:"embedding" mapstructure:"embedding"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// AggregateConfig configures the consolidation run.
type AggregateConfig struct {
	RecordsPath     string `yaml:"records_path" mapstructure:"records_path"`
	DefinitionsPath string `yaml:"definitions_path" mapstructure:"definitions_path"`
	ManualPath      string `yaml:"manual_path" mapstructure:"manual_path"`
	OutputPath      string `yaml:"output_path" mapstructure:"output_path"`
	Workers         int    `yaml:"workers" mapstructure:"workers"`
}

// WeightsConfig holds the per-facet ranking weights. They are expected to
// sum to 1.0 but are not renormalized.
type WeightsConfig struct {
	Task      float64 `yaml:"task" mapstructure:"task"`
	Narrative float64 `yaml:"narrative" mapstructure:"narrative"`
	Skills    float64 `yaml:"skills" mapstructure:"skills"`
}

// RankerConfig configures similarity ranking.
type RankerConfig struct {
	Weights            WeightsConfig `yaml:"weights" mapstructure:"weights"`
	Limit              int           `yaml:"limit" mapstructure:"limit"`
	PreferConsolidated bool          `yaml:"prefer_consolidated" mapstructure:"prefer_consolidated"`
	Dimensions         int           `yaml:"dimensions" mapstructure:"dimensions"`
	Workers            int           `yaml:"workers" mapstructure:"workers"`
}

// CacheConfig configures the recommendation query cache.
type CacheConfig struct {
	TTLHours          int `yaml:"ttl_hours" mapstructure:"ttl_hours"`
	SweepIntervalMins int `yaml:"sweep_interval_mins" mapstructure:"sweep_interval_mins"`
}

// TTL returns the cache time-to-live.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// SweepInterval returns the period between expired-entry sweeps.
func (c CacheConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMins) * time.Minute
}

// EmbeddingConfig configures the embedding service client.
type EmbeddingConfig struct {
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	Model             string  `yaml:"model" mapstructure:"model"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	MaxAttempts       int     `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CAREERS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "careers.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("aggregate.records_path", "data/occupations.json")
	v.SetDefault("aggregate.definitions_path", "data/consolidations.yaml")
	v.SetDefault("aggregate.manual_path", "")
	v.SetDefault("aggregate.output_path", "careers.json")
	v.SetDefault("aggregate.workers", 4)
	v.SetDefault("ranker.weights.task", 0.5)
	v.SetDefault("ranker.weights.narrative", 0.3)
	v.SetDefault("ranker.weights.skills", 0.2)
	v.SetDefault("ranker.limit", 20)
	v.SetDefault("ranker.prefer_consolidated", true)
	v.SetDefault("ranker.dimensions", 384)
	v.SetDefault("ranker.workers", 4)
	v.SetDefault("cache.ttl_hours", 24)
	v.SetDefault("cache.sweep_interval_mins", 60)
	v.SetDefault("embedding.base_url", "http://localhost:11434")
	v.SetDefault("embedding.model", "all-minilm:l6-v2")
	v.SetDefault("embedding.timeout_secs", 30)
	v.SetDefault("embedding.requests_per_second", 10)
	v.SetDefault("embedding.max_attempts", 3)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that configured values are usable.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return eris.Errorf("config: unknown store driver %q (want sqlite or postgres)", c.Store.Driver)
	}
	if c.Store.DatabaseURL == "" {
		return eris.New("config: store.database_url is required")
	}
	if c.Aggregate.Workers < 1 {
		return eris.Errorf("config: aggregate.workers must be >= 1 (got %d)", c.Aggregate.Workers)
	}
	if c.Ranker.Dimensions < 1 {
		return eris.Errorf("config: ranker.dimensions must be >= 1 (got %d)", c.Ranker.Dimensions)
	}
	if c.Ranker.Limit < 0 {
		return eris.Errorf("config: ranker.limit must be non-negative (got %d)", c.Ranker.Limit)
	}
	if c.Cache.TTLHours <= 0 {
		return eris.Errorf("config: cache.ttl_hours must be positive (got %d)", c.Cache.TTLHours)
	}
	if c.Cache.SweepIntervalMins <= 0 {
		return eris.Errorf("config: cache.sweep_interval_mins must be positive (got %d)", c.Cache.SweepIntervalMins)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
