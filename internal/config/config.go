// Package config provides configuration management.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"fe-catalog/internal/logging"
)

// Config is the main application configuration
type Config struct {
	// Version is the configuration version
	Version string `json:"version" yaml:"version"`

	// Node is the catalog partition every imported entity belongs to
	Node string `json:"node" yaml:"node"`

	// HoursMonth converts hourly costs to monthly ones
	HoursMonth float64 `json:"hours_month" yaml:"hours_month"`

	// Feed contains price feed settings
	Feed FeedConfig `json:"feed" yaml:"feed"`

	// Filters restricts what gets imported
	Filters FilterConfig `json:"filters" yaml:"filters"`

	// Database contains catalog store settings
	Database DatabaseConfig `json:"database" yaml:"database"`

	// Server contains HTTP wrapper settings
	Server ServerConfig `json:"server" yaml:"server"`

	// Logging contains logging configuration
	Logging logging.Config `json:"logging" yaml:"logging"`
}

// FeedConfig contains price feed settings
type FeedConfig struct {
	// PricesURL is the base URL, the CSV paths are appended to it
	PricesURL string `json:"prices_url" yaml:"prices_url"`

	// Delimiter is the CSV cell separator
	Delimiter string `json:"delimiter" yaml:"delimiter"`

	// HTTPTimeoutSeconds bounds each feed download
	HTTPTimeoutSeconds int `json:"http_timeout_seconds" yaml:"http_timeout_seconds"`
}

// FilterConfig holds the allow-patterns. An empty pattern means no restriction.
type FilterConfig struct {
	Regions       string `json:"regions" yaml:"regions"`
	InstanceTypes string `json:"instance_types" yaml:"instance_types"`
	OS            string `json:"os" yaml:"os"`
}

// DatabaseConfig selects the catalog store
type DatabaseConfig struct {
	// Driver is "memory" or "postgres"
	Driver string `json:"driver" yaml:"driver"`

	// DSN is the connection string for the postgres driver
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
}

// ServerConfig contains HTTP wrapper settings
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

// Default returns a default configuration
func Default() *Config {
	return &Config{
		Version:    "1.0",
		Node:       "service:prov:fe",
		HoursMonth: 730,
		Feed: FeedConfig{
			PricesURL:          "https://fe.ligoj.io",
			Delimiter:          ";",
			HTTPTimeoutSeconds: 300,
		},
		Filters: FilterConfig{
			Regions:       ".*",
			InstanceTypes: ".*",
			OS:            ".*",
		},
		Database: DatabaseConfig{
			Driver: "memory",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Logging: logging.DefaultConfig(),
	}
}

// HTTPTimeout returns the feed timeout as a duration
func (f FeedConfig) HTTPTimeout() time.Duration {
	return time.Duration(f.HTTPTimeoutSeconds) * time.Second
}

// Load loads configuration from a file. YAML is used for .yaml/.yml files, JSON otherwise.
func Load(path string) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(data, config)
		default:
			err = json.Unmarshal(data, config)
		}
		if err != nil {
			return nil, err
		}
	}

	config.ApplyEnv()
	return config, nil
}

// ApplyEnv overrides the feed URL and the database from the environment.
// A .env file of the working directory is loaded first, without replacing
// variables already set.
func (c *Config) ApplyEnv() {
	_ = godotenv.Load()
	if v, ok := os.LookupEnv("FE_PRICES_URL"); ok && v != "" {
		c.Feed.PricesURL = v
	}
	if v, ok := os.LookupEnv("DATABASE_URL"); ok && v != "" {
		c.Database.Driver = "postgres"
		c.Database.DSN = v
	}
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// YAML returns the configuration as a YAML document
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// Global configuration instance
var globalConfig = Default()

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// Set sets the global configuration
func Set(config *Config) {
	globalConfig = config
}
