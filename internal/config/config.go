// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/stanza-labs/refdata-cli/internal/refdata"
	"github.com/stanza-labs/refdata-cli/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Sources SourcesConfig `yaml:"sources" mapstructure:"sources"`
	Store   store.Config  `yaml:"store" mapstructure:"store"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// SourcesConfig configures the reference-data acquisition pass.
type SourcesConfig struct {
	Enabled              bool     `yaml:"enabled" mapstructure:"enabled"`
	LocalStoragePath     string   `yaml:"local_storage_path" mapstructure:"local_storage_path"`
	GenrePages           []string `yaml:"genre_pages" mapstructure:"genre_pages"`
	MetaTagPages         []string `yaml:"meta_tag_pages" mapstructure:"meta_tag_pages"`
	TipPages             []string `yaml:"tip_pages" mapstructure:"tip_pages"`
	RefreshIntervalHours float64  `yaml:"refresh_interval_hours" mapstructure:"refresh_interval_hours"`
	RequestTimeoutSecs   int      `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
	MaxRetries           int      `yaml:"max_retries" mapstructure:"max_retries"`
	RetryDelaySecs       int      `yaml:"retry_delay_secs" mapstructure:"retry_delay_secs"`
	FallbackToHardcoded  bool     `yaml:"fallback_to_hardcoded" mapstructure:"fallback_to_hardcoded"`
	UserAgent            string   `yaml:"user_agent" mapstructure:"user_agent"`
}

// ToRefdata converts the loaded settings into an acquisition Config.
func (c SourcesConfig) ToRefdata() refdata.Config {
	return refdata.Config{
		Enabled:             c.Enabled,
		LocalStoragePath:    c.LocalStoragePath,
		GenrePages:          c.GenrePages,
		MetaTagPages:        c.MetaTagPages,
		TipPages:            c.TipPages,
		RefreshInterval:     time.Duration(c.RefreshIntervalHours * float64(time.Hour)),
		RequestTimeout:      time.Duration(c.RequestTimeoutSecs) * time.Second,
		MaxRetries:          c.MaxRetries,
		RetryDelay:          time.Duration(c.RetryDelaySecs) * time.Second,
		FallbackToHardcoded: c.FallbackToHardcoded,
		UserAgent:           c.UserAgent,
	}.WithDefaults()
}

// ServerConfig configures the read-only HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("REFDATA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "refdata.db")
	v.SetDefault("sources.enabled", true)
	v.SetDefault("sources.local_storage_path", "data/refdata")
	v.SetDefault("sources.refresh_interval_hours", 24.0)
	v.SetDefault("sources.request_timeout_secs", 30)
	v.SetDefault("sources.max_retries", 3)
	v.SetDefault("sources.retry_delay_secs", 1)
	v.SetDefault("sources.fallback_to_hardcoded", true)
	v.SetDefault("sources.user_agent", "refdata-cli/1.0")

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
