package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Database  DatabaseConfig  `toml:"database"`
	Log       LogConfig       `toml:"log"`
	Security  SecurityConfig  `toml:"security"`
	Discovery DiscoveryConfig `toml:"discovery"`
	Sources   []SourceConfig  `toml:"sources"`
	Server    ServerConfig    `toml:"server"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// SecurityConfig mirrors the import security policy.
type SecurityConfig struct {
	AllowHTTP         bool     `toml:"allow_http"`
	MaxRepositorySize int64    `toml:"max_repository_size"`
	MaxFileSize       int64    `toml:"max_file_size"`
	AllowedDomains    []string `toml:"allowed_domains"`
	BlockedDomains    []string `toml:"blocked_domains"`
	RequireChecksums  bool     `toml:"require_checksums"`
}

// DiscoveryConfig contains network settings for index, manifest and book fetches.
type DiscoveryConfig struct {
	RequestsPerSecond float64 `toml:"requests_per_second"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	DownloadWorkers   int     `toml:"download_workers"`
}

// Timeout returns the per-request timeout, defaulting to 30 seconds.
func (d DiscoveryConfig) Timeout() time.Duration {
	if d.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(d.TimeoutSeconds) * time.Second
}

// SourceConfig describes a repository source seeded at startup.
type SourceConfig struct {
	Name    string `toml:"name"`
	Type    string `toml:"type"`
	URL     string `toml:"url"`
	Enabled bool   `toml:"enabled"`
	Token   string `toml:"token"`
}

// ServerConfig contains local HTTP API settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	config.Sources = nil
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
