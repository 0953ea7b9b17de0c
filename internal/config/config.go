// Package config provides unified configuration loading for the render service.
// Supports YAML files, environment variables, and programmatic overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the render service.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Auth          AuthConfig          `yaml:"auth"`
	Storage       StorageConfig       `yaml:"storage"`
	Compile       CompileConfig       `yaml:"compile"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	// APIKey is the shared secret checked against the X-Api-Key header.
	// An empty key rejects every authenticated request.
	APIKey string `yaml:"api_key"`
}

// StorageConfig holds S3-compatible object storage settings
// (DigitalOcean Spaces, MinIO, or AWS S3 proper).
type StorageConfig struct {
	Endpoint      string        `yaml:"endpoint"`
	Region        string        `yaml:"region"`
	AccessKey     string        `yaml:"access_key"`
	SecretKey     string        `yaml:"secret_key"`
	Bucket        string        `yaml:"bucket"`
	UsePathStyle  bool          `yaml:"use_path_style"`
	PresignExpiry time.Duration `yaml:"presign_expiry"`
}

// Configured reports whether the settings are complete enough to build a client.
func (s StorageConfig) Configured() bool {
	return s.Endpoint != "" && s.Region != "" && s.AccessKey != "" &&
		s.SecretKey != "" && s.Bucket != ""
}

// CompileConfig holds LaTeX toolchain settings.
type CompileConfig struct {
	DriverTimeout   time.Duration `yaml:"driver_timeout"`
	PassTimeout     time.Duration `yaml:"pass_timeout"`
	BibTimeout      time.Duration `yaml:"bib_timeout"`
	LogTailBytes    int           `yaml:"log_tail_bytes"`
	MaxArchiveBytes int64         `yaml:"max_archive_bytes"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			ReadTimeout: 30 * time.Second,
			// Compiles run inside the request, so the write timeout must
			// outlast the slowest toolchain run.
			WriteTimeout:     15 * time.Minute,
			IdleTimeout:      120 * time.Second,
			RequestTimeout:   10 * time.Minute,
			GracefulShutdown: 30 * time.Second,
		},
		Auth: AuthConfig{},
		Storage: StorageConfig{
			Region:        "nyc3",
			PresignExpiry: 300 * time.Second,
		},
		Compile: CompileConfig{
			DriverTimeout:   300 * time.Second,
			PassTimeout:     90 * time.Second,
			BibTimeout:      60 * time.Second,
			LogTailBytes:    8000,
			MaxArchiveBytes: 64 << 20,
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "json",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Observability.LogFormat != "json" && c.Observability.LogFormat != "console" {
		return fmt.Errorf("invalid log format: %s", c.Observability.LogFormat)
	}

	if c.Storage.PresignExpiry <= 0 {
		return fmt.Errorf("presign_expiry must be positive")
	}

	if c.Compile.DriverTimeout <= 0 || c.Compile.PassTimeout <= 0 || c.Compile.BibTimeout <= 0 {
		return fmt.Errorf("compile timeouts must be positive")
	}

	if c.Compile.LogTailBytes < 1 {
		return fmt.Errorf("log_tail_bytes must be at least 1")
	}

	if c.Compile.MaxArchiveBytes < 1 {
		return fmt.Errorf("max_archive_bytes must be at least 1")
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}

	if v := os.Getenv("SERVER_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("APP_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}

	if v := os.Getenv("SPACES_ENDPOINT"); v != "" {
		cfg.Storage.Endpoint = v
	}

	if v := os.Getenv("SPACES_REGION"); v != "" {
		cfg.Storage.Region = v
	}

	if v := os.Getenv("SPACES_KEY"); v != "" {
		cfg.Storage.AccessKey = v
	}

	if v := os.Getenv("SPACES_SECRET"); v != "" {
		cfg.Storage.SecretKey = v
	}

	if v := os.Getenv("SPACES_BUCKET"); v != "" {
		cfg.Storage.Bucket = v
	}

	if v := os.Getenv("SPACES_PATH_STYLE"); v == "true" {
		cfg.Storage.UsePathStyle = true
	}

	if v := os.Getenv("COMPILE_DRIVER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Compile.DriverTimeout = d
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
}
