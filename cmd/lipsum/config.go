package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/spf13/viper"
)

// ServerConfig holds the configuration for the HTTP server and its database.
type ServerConfig struct {
	Addr           string   `mapstructure:"addr" json:"addr"`
	LogLevel       string   `mapstructure:"log_level" json:"log_level"`
	DatabasePath   string   `mapstructure:"database_path" json:"database_path"`
	TrustedProxies []string `mapstructure:"trusted_proxies" json:"trusted_proxies"`
	RateLimitRPS   float64  `mapstructure:"rate_limit_rps" json:"rate_limit_rps"`
	RateLimitBurst int      `mapstructure:"rate_limit_burst" json:"rate_limit_burst"`
}

// GenerationConfig holds the defaults and limits for text generation.
type GenerationConfig struct {
	DefaultWords int `mapstructure:"default_words" json:"default_words"`
	MaxWords     int `mapstructure:"max_words" json:"max_words"`
	DefaultOrder int `mapstructure:"default_order" json:"default_order"`
}

// Config is the top-level configuration struct.
type Config struct {
	Server     *ServerConfig     `mapstructure:"server_config" json:"server_config"`
	Generation *GenerationConfig `mapstructure:"generation_config" json:"generation_config"`
}

// DefaultConfig creates a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: &ServerConfig{
			Addr:           ":7280",
			LogLevel:       "info",
			DatabasePath:   "./data/lipsum.db",
			TrustedProxies: []string{},
			RateLimitRPS:   20,
			RateLimitBurst: 40,
		},
		Generation: &GenerationConfig{
			DefaultWords: 25,
			MaxWords:     10000,
			DefaultOrder: 2,
		},
	}
}

// LoadConfig reads the JSON configuration at path. A missing file is created
// with the default values. Every key can be overridden from the environment
// with a LIPSUM_ prefix, e.g. LIPSUM_SERVER_CONFIG_ADDR.
func LoadConfig(path string) (*Config, error) {
	defaults := DefaultConfig()

	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix("LIPSUM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, defaults)

	readFile := true
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		data, err := json.MarshalIndent(defaults, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal default config: %w", err)
		}
		if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
			// The defaults are still usable without a file on disk.
			fmt.Fprintf(os.Stderr, "warning: failed to write default config file: %v\n", err)
			readFile = false
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	if readFile {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key with viper. AutomaticEnv only applies to
// keys viper knows about, so this also enables the environment overrides.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server_config.addr", d.Server.Addr)
	v.SetDefault("server_config.log_level", d.Server.LogLevel)
	v.SetDefault("server_config.database_path", d.Server.DatabasePath)
	v.SetDefault("server_config.trusted_proxies", d.Server.TrustedProxies)
	v.SetDefault("server_config.rate_limit_rps", d.Server.RateLimitRPS)
	v.SetDefault("server_config.rate_limit_burst", d.Server.RateLimitBurst)
	v.SetDefault("generation_config.default_words", d.Generation.DefaultWords)
	v.SetDefault("generation_config.max_words", d.Generation.MaxWords)
	v.SetDefault("generation_config.default_order", d.Generation.DefaultOrder)
}

func (c *Config) validate() error {
	if c.Server == nil || c.Generation == nil {
		return errors.New("config is missing a section")
	}
	if c.Generation.DefaultOrder < 1 {
		return fmt.Errorf("generation_config.default_order must be positive, got %d", c.Generation.DefaultOrder)
	}
	if c.Generation.MaxWords < 1 {
		return fmt.Errorf("generation_config.max_words must be positive, got %d", c.Generation.MaxWords)
	}
	if c.Generation.DefaultWords < 0 || c.Generation.DefaultWords > c.Generation.MaxWords {
		return fmt.Errorf("generation_config.default_words must be between 0 and %d, got %d",
			c.Generation.MaxWords, c.Generation.DefaultWords)
	}
	for _, proxy := range c.Server.TrustedProxies {
		if net.ParseIP(proxy) == nil {
			if _, _, err := net.ParseCIDR(proxy); err != nil {
				return fmt.Errorf("invalid trusted proxy %q", proxy)
			}
		}
	}
	return nil
}
