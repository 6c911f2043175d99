// Package config provides layered configuration for laughless.
//
// Values come from three sources with clear precedence: built-in defaults,
// then an optional YAML config file, then LAUGHLESS_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/laughless/config.yaml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "LAUGHLESS_CONFIG"

// EnvPrefix is the prefix for environment-variable overrides, e.g.
// LAUGHLESS_SERVER_LISTEN_ADDR -> server.listen_addr.
const EnvPrefix = "LAUGHLESS_"

// Config is the root configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Classifier ClassifierConfig `koanf:"classifier"`
	Analyzer   AnalyzerConfig   `koanf:"analyzer"`
	Search     SearchConfig     `koanf:"search"`
	Challenge  ChallengeConfig  `koanf:"challenge"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	ListenAddr      string        `koanf:"listen_addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig holds event-store settings.
type DatabaseConfig struct {
	Path     string `koanf:"path"`
	MaxConns int    `koanf:"max_conns"`
}

// ClassifierConfig holds the per-frame emotion classifier endpoint.
type ClassifierConfig struct {
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
}

// AnalyzerConfig holds the per-event analysis service endpoint.
type AnalyzerConfig struct {
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
}

// SearchConfig holds the video-search provider settings.
type SearchConfig struct {
	BaseURL    string        `koanf:"base_url"`
	APIKey     string        `koanf:"api_key"`
	MaxResults int           `koanf:"max_results"`
	OrderBy    string        `koanf:"order_by"`
	Timeout    time.Duration `koanf:"timeout"`
}

// ChallengeConfig holds the client game-loop timings.
type ChallengeConfig struct {
	Duration       time.Duration `koanf:"duration"`
	SampleInterval time.Duration `koanf:"sample_interval"`
	Cooldown       time.Duration `koanf:"cooldown"`
	PollInterval   time.Duration `koanf:"poll_interval"`
}

// LoggingConfig holds log settings.
type LoggingConfig struct {
	Level string `koanf:"level"`
}

// Default returns a Config with all default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:      ":5001",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Path:     "laughless.db",
			MaxConns: 4,
		},
		Classifier: ClassifierConfig{
			URL:     "http://localhost:8000/predict",
			Timeout: 5 * time.Second,
		},
		Analyzer: AnalyzerConfig{
			URL:     "http://localhost:8100/laugh-event",
			Timeout: 60 * time.Second,
		},
		Search: SearchConfig{
			BaseURL:    "https://www.googleapis.com/youtube/v3/search",
			APIKey:     "",
			MaxResults: 5,
			OrderBy:    "relevance",
			Timeout:    10 * time.Second,
		},
		Challenge: ChallengeConfig{
			Duration:       180 * time.Second,
			SampleInterval: 200 * time.Millisecond,
			Cooldown:       600 * time.Millisecond,
			PollInterval:   10 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults, an optional config file, and
// environment variables, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		// LAUGHLESS_SERVER_LISTEN_ADDR -> server.listen_addr
		s = strings.TrimPrefix(s, EnvPrefix)
		s = strings.ToLower(s)
		return strings.Replace(s, "_", ".", 1)
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr must not be empty")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Challenge.SampleInterval <= 0 {
		return fmt.Errorf("challenge.sample_interval must be positive")
	}
	if c.Challenge.Duration <= 0 {
		return fmt.Errorf("challenge.duration must be positive")
	}
	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("search.max_results must be positive")
	}
	return nil
}

// findConfigFile returns the first config file that exists, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
