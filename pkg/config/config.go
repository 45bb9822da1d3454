/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ssargent/baseband/pkg/logging"
	"github.com/ssargent/baseband/pkg/mark5b"
	"github.com/ssargent/baseband/pkg/metrics"
	"github.com/ssargent/baseband/pkg/stream"
)

// Config represents the m5b configuration
type Config struct {
	Format  Format  `yaml:"format"`
	Stream  Stream  `yaml:"stream"`
	Logging Logging `yaml:"logging"`
	Catalog Catalog `yaml:"catalog"`
	Metrics Metrics `yaml:"metrics"`
}

// Format describes the recordings m5b works on. Mark 5B headers do not carry
// the geometry or the rate.
type Format struct {
	Channels      int     `yaml:"channels"`
	BitsPerSample int     `yaml:"bits_per_sample"`
	SampleRate    float64 `yaml:"sample_rate"`
	// RefTime is any RFC 3339 time within 500 days of the recordings.
	// Empty means the current time.
	RefTime string `yaml:"ref_time"`
}

// Stream contains reader and writer settings
type Stream struct {
	Verify     bool `yaml:"verify"`
	BufferSize int  `yaml:"buffer_size"`
}

// Logging contains logging configuration
type Logging struct {
	Level string `yaml:"level"`
}

// Catalog contains the scan catalog location
type Catalog struct {
	Dir string `yaml:"dir"`
}

// Metrics contains metrics export settings
type Metrics struct {
	// Textfile, when set, receives the counters in the node exporter
	// textfile format after each command.
	Textfile string `yaml:"textfile"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Format: Format{
			Channels:      8,
			BitsPerSample: 2,
			SampleRate:    32e6,
		},
		Stream: Stream{
			Verify: false,
		},
		Logging: Logging{
			Level: "info",
		},
		Catalog: Catalog{
			Dir: "./data/catalog",
		},
	}
}

// LoadConfig loads configuration from the specified path
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start from the defaults so a partial file only overrides what it names.
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	// Ensure config directory exists
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// BootstrapConfig writes a default configuration, with the catalog under
// catalogDir when given.
func BootstrapConfig(configPath string, catalogDir string) (*Config, error) {
	config := DefaultConfig()
	if catalogDir != "" {
		config.Catalog.Dir = catalogDir
	}

	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./m5b.yaml"
	}

	// For Linux/macOS, use ~/.config/m5b/config.yaml
	configDir := filepath.Join(homeDir, ".config", "m5b")
	return filepath.Join(configDir, "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}

// Validate checks that every setting can be used.
func (c *Config) Validate() error {
	if err := c.SampleFormat().Validate(); err != nil {
		return fmt.Errorf("format: %w", err)
	}
	if c.Format.SampleRate <= 0 {
		return fmt.Errorf("format: sample_rate must be positive, got %v", c.Format.SampleRate)
	}
	if _, err := c.RefTime(); err != nil {
		return err
	}
	if c.Stream.BufferSize < 0 {
		return fmt.Errorf("stream: buffer_size must not be negative, got %d", c.Stream.BufferSize)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

// SampleFormat returns the configured frame geometry.
func (c *Config) SampleFormat() mark5b.Format {
	return mark5b.Format{Channels: c.Format.Channels, BitsPerSample: c.Format.BitsPerSample}
}

// RefTime parses the reference time, defaulting to now.
func (c *Config) RefTime() (time.Time, error) {
	if c.Format.RefTime == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, c.Format.RefTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("format: invalid ref_time: %w", err)
	}
	return t, nil
}

// ReaderConfig builds the stream reader settings for the file at path.
func (c *Config) ReaderConfig(path string, m *metrics.Metrics) (stream.ReaderConfig, error) {
	ref, err := c.RefTime()
	if err != nil {
		return stream.ReaderConfig{}, err
	}
	return stream.ReaderConfig{
		FilePath:   path,
		Format:     c.SampleFormat(),
		SampleRate: c.Format.SampleRate,
		RefTime:    ref,
		Verify:     c.Stream.Verify,
		Metrics:    m,
	}, nil
}

// WriterConfig builds the stream writer settings for a recording starting
// at start.
func (c *Config) WriterConfig(path string, start time.Time, m *metrics.Metrics) stream.WriterConfig {
	return stream.WriterConfig{
		FilePath:   path,
		Format:     c.SampleFormat(),
		SampleRate: c.Format.SampleRate,
		StartTime:  start,
		BufferSize: c.Stream.BufferSize,
		Metrics:    m,
	}
}
