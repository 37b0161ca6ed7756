// ABOUTME: Configuration loading and parsing for coven-chat
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete coven-chat configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Agent    AgentConfig    `yaml:"agent"`
	Logging  LoggingConfig  `yaml:"logging"`
	WebUI    WebUIConfig    `yaml:"webui"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AgentConfig holds remote agent endpoint configuration
type AgentConfig struct {
	Endpoint string        `yaml:"endpoint"`
	ID       string        `yaml:"id"`
	Timeout  time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TimeoutRaw string `yaml:"timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// WebUIConfig holds chat UI configuration
type WebUIConfig struct {
	// Title is shown in the page header; defaults to "Coven Chat"
	Title string `yaml:"title"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	applyDefaults(&cfg)

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Agent.Endpoint == "" {
		return fmt.Errorf("agent.endpoint is required")
	}

	if c.Agent.ID == "" {
		return fmt.Errorf("agent.id is required")
	}

	return nil
}

// applyDefaults fills in optional fields
func applyDefaults(cfg *Config) {
	if cfg.Agent.Timeout == 0 {
		cfg.Agent.Timeout = 60 * time.Second
	}
	if cfg.WebUI.Title == "" {
		cfg.WebUI.Title = "Coven Chat"
	}
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Agent.TimeoutRaw != "" {
		cfg.Agent.Timeout, err = time.ParseDuration(cfg.Agent.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing agent timeout %q: %w", cfg.Agent.TimeoutRaw, err)
		}
	}

	return nil
}
