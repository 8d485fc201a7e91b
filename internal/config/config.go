// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http" mapstructure:"http"`
	CityBikes CityBikesConfig `yaml:"citybikes" mapstructure:"citybikes"`
	Acquire   AcquireConfig   `yaml:"acquire" mapstructure:"acquire"`
	Labour    LabourConfig    `yaml:"labour" mapstructure:"labour"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// HTTPConfig configures outbound HTTP behavior.
type HTTPConfig struct {
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// CityBikesConfig configures the bike-share directory API.
type CityBikesConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AcquireConfig configures the acquisition pipeline.
type AcquireConfig struct {
	DestDir     string `yaml:"dest_dir" mapstructure:"dest_dir"`
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`
}

// LabourConfig configures Statistics Canada table processing.
type LabourConfig struct {
	Geography string `yaml:"geography" mapstructure:"geography"`
	Statistic string `yaml:"statistic" mapstructure:"statistic"`
	DataType  string `yaml:"data_type" mapstructure:"data_type"`
	Encoding  string `yaml:"encoding" mapstructure:"encoding"`
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
	v.SetEnvPrefix("OPENDATA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("http.user_agent", "opendata-cli/1.0")
	v.SetDefault("http.timeout_secs", 30)
	v.SetDefault("citybikes.base_url", "https://api.citybik.es/v2")
	v.SetDefault("acquire.dest_dir", "./data")
	v.SetDefault("acquire.concurrency", 1)
	v.SetDefault("labour.geography", "Canada")
	v.SetDefault("labour.statistic", "Estimate")
	v.SetDefault("labour.data_type", "Seasonally adjusted")
	v.SetDefault("labour.encoding", "")
	v.SetDefault("server.port", 8080)
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
