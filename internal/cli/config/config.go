package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config represents the rustlens configuration
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Delve  DelveConfig  `mapstructure:"delve"`
	Types  TypesConfig  `mapstructure:"types"`
	Log    LogConfig    `mapstructure:"log"`
}

// ServerConfig represents DAP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DelveConfig represents the Delve backend configuration
type DelveConfig struct {
	Path string `mapstructure:"path"`
}

// TypesConfig represents type manifest configuration
type TypesConfig struct {
	Manifest string `mapstructure:"manifest"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Addr returns the server listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Load loads the configuration from rustlens.yml or rustlens.yaml
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 4711)
	v.SetDefault("delve.path", "dlv")
	v.SetDefault("types.manifest", "")
	v.SetDefault("log.level", "info")

	// Set config name and paths
	v.SetConfigName("rustlens")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Enable environment variable support
	v.SetEnvPrefix("RUSTLENS")
	v.AutomaticEnv()

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error; got: %s", cfg.Log.Level)
	}

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", cfg.Server.Port)
	}

	return nil
}
