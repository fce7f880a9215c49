// Package config provides configuration loading for the denpa tools.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds defaults for the command-line tool and the HTTP server.
type Config struct {
	// Times is the number of words generated per run.
	Times int `yaml:"times"`
	// Sentences is the number of sentences produced in text mode.
	Sentences int `yaml:"sentences"`
	// Width is the column width text mode wraps to.
	Width int `yaml:"width"`
	// Seed seeds the random source; 0 means seed from the clock.
	Seed int64 `yaml:"seed"`
	// Sorted collates generated words by letter order.
	Sorted bool `yaml:"sorted"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string       `yaml:"log_level"`
	Server   ServerConfig `yaml:"server"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	// MaxCount caps the number of words one request may generate.
	MaxCount int `yaml:"max_count"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Times:     1,
		Sentences: 11,
		Width:     70,
		LogLevel:  "warn",
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
			MaxCount:       1000,
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Times < 0 {
		return fmt.Errorf("times must not be negative")
	}
	if c.Sentences < 0 {
		return fmt.Errorf("sentences must not be negative")
	}
	if c.Width < 1 {
		return fmt.Errorf("width must be at least 1")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error")
	}
	if c.Server.MaxCount < 1 {
		return fmt.Errorf("server.max_count must be at least 1")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file over the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Times != 0 {
		c.Times = other.Times
	}
	if other.Sentences != 0 {
		c.Sentences = other.Sentences
	}
	if other.Width != 0 {
		c.Width = other.Width
	}
	if other.Seed != 0 {
		c.Seed = other.Seed
	}
	if other.Sorted {
		c.Sorted = true
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}

	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}
	if len(other.Server.AllowedOrigins) > 0 {
		c.Server.AllowedOrigins = other.Server.AllowedOrigins
	}
	if other.Server.MaxCount != 0 {
		c.Server.MaxCount = other.Server.MaxCount
	}
}
