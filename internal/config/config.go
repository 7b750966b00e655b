// Package config loads probgen settings from an optional YAML file and
// PROBGEN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/abhisek/probgen/internal/problemgen"
)

// EnvPrefix prefixes every environment override, e.g. PROBGEN_SERVER_ADDR.
const EnvPrefix = "PROBGEN"

type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Engine    EngineConfig    `mapstructure:"engine"`
}

type DatabaseConfig struct {
	// Path is the SQLite file. Empty means the default data directory.
	Path string `mapstructure:"path"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	// Mode is the gin mode: debug, release or test.
	Mode string `mapstructure:"mode"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"` // empty disables the rotated file core
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
	Console    bool   `mapstructure:"console"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	ServiceName       string `mapstructure:"service_name"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type RateLimitConfig struct {
	// MaxRequests per Window per client IP. Zero disables limiting.
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

type EngineConfig struct {
	Workers           int           `mapstructure:"workers"`
	MaxPublishCount   int           `mapstructure:"max_publish_count"`
	MaxOptionAttempts int           `mapstructure:"max_option_attempts"`
	EvalTimeout       time.Duration `mapstructure:"eval_timeout"`
}

func setDefaults(v *viper.Viper) {
	eng := problemgen.DefaultConfig()

	v.SetDefault("database.path", "")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("log.console", true)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "probgen")
	v.SetDefault("tracing.collector_endpoint", "http://localhost:14268/api/traces")

	v.SetDefault("rate_limit.max_requests", 120)
	v.SetDefault("rate_limit.window", time.Minute)

	v.SetDefault("engine.workers", eng.Workers)
	v.SetDefault("engine.max_publish_count", eng.MaxPublishCount)
	v.SetDefault("engine.max_option_attempts", eng.MaxOptionAttempts)
	v.SetDefault("engine.eval_timeout", eng.EvalTimeout)
}

// Load reads configuration. When path is empty a config.yaml is looked up
// in the working directory and $HOME/.config/probgen; a missing file is
// not an error. An explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/probgen")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the engine or server cannot run with.
func (c *Config) Validate() error {
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.mode must be debug, release or test, got %q", c.Server.Mode)
	}
	if c.Engine.Workers < 1 {
		return fmt.Errorf("engine.workers must be at least 1, got %d", c.Engine.Workers)
	}
	if c.Engine.MaxOptionAttempts < 1 {
		return fmt.Errorf("engine.max_option_attempts must be at least 1, got %d", c.Engine.MaxOptionAttempts)
	}
	if c.RateLimit.MaxRequests > 0 && c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate_limit.window must be positive when max_requests is set")
	}
	if c.Tracing.Enabled && c.Tracing.CollectorEndpoint == "" {
		return fmt.Errorf("tracing.collector_endpoint is required when tracing is enabled")
	}
	return nil
}

// EngineConfig returns the generation engine settings, keeping the
// default validator chain.
func (c *Config) EngineConfig() problemgen.Config {
	cfg := problemgen.DefaultConfig()
	cfg.Workers = c.Engine.Workers
	cfg.MaxPublishCount = c.Engine.MaxPublishCount
	cfg.MaxOptionAttempts = c.Engine.MaxOptionAttempts
	if c.Engine.EvalTimeout > 0 {
		cfg.EvalTimeout = c.Engine.EvalTimeout
	}
	return cfg
}
