// Package config provides configuration management for deployctl.
//
// Configuration is loaded in the following order (later sources override
// earlier ones):
//  1. Default values
//  2. Configuration files (./deployctl.yaml, ~/.deployctl/deployctl.yaml,
//     /etc/deployctl/deployctl.yaml)
//  3. .env files
//  4. Environment variables with the DEPLOYCTL_ prefix
//
// Nested keys use underscore separation in the environment:
// DEPLOYCTL_PROJECT_DIR maps to project.dir.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ProjectConfig locates the deployment's files on disk.
type ProjectConfig struct {
	// Dir is the project directory holding the template and env file
	Dir string `mapstructure:"dir"`

	// Template is the compose template path, relative to Dir unless absolute
	Template string `mapstructure:"template"`

	// EnvFile is the environment file path, relative to Dir unless absolute
	EnvFile string `mapstructure:"env_file"`

	// TargetService is the compose service that receives derived keys
	TargetService string `mapstructure:"target_service"`
}

// DockerConfig contains daemon and compose settings.
type DockerConfig struct {
	// Socket is the Docker daemon endpoint
	Socket string `mapstructure:"socket"`
}

// ReadinessConfig controls post-start polling.
type ReadinessConfig struct {
	// Interval is the delay between probe rounds
	Interval time.Duration `mapstructure:"interval"`

	// Attempts is the number of probe rounds before giving up
	Attempts int `mapstructure:"attempts"`
}

// DatabaseConfig locates the application database as published on the host.
type DatabaseConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Name string `mapstructure:"name"`
}

// ImporterConfig contains content import settings.
type ImporterConfig struct {
	// URL is the base URL of the deployed API
	URL string `mapstructure:"url"`
}

// NetworkConfig contains public address discovery settings.
type NetworkConfig struct {
	// IPEndpoints are the services queried for the host's public IP,
	// tried in order
	IPEndpoints []string `mapstructure:"ip_endpoints"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the log level (debug, info, warn, error)
	Level string `mapstructure:"level"`
}

// Config is the complete deployctl configuration.
type Config struct {
	Project   ProjectConfig   `mapstructure:"project"`
	Docker    DockerConfig    `mapstructure:"docker"`
	Readiness ReadinessConfig `mapstructure:"readiness"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Importer  ImporterConfig  `mapstructure:"importer"`
	Network   NetworkConfig   `mapstructure:"network"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// Loader provides configuration loading functionality.
type Loader struct {
	v      *viper.Viper
	prefix string
}

// NewLoader creates a new configuration loader with the given environment
// prefix.
func NewLoader(envPrefix string) *Loader {
	return &Loader{
		v:      viper.New(),
		prefix: envPrefix,
	}
}

// SetConfigDefaults sets the standard deployctl defaults.
func (l *Loader) SetConfigDefaults() {
	l.v.SetDefault("project.dir", ".")
	l.v.SetDefault("project.template", "docker-compose.yaml")
	l.v.SetDefault("project.env_file", "production.env")
	l.v.SetDefault("project.target_service", "app")

	l.v.SetDefault("docker.socket", "unix:///var/run/docker.sock")

	l.v.SetDefault("readiness.interval", "5s")
	l.v.SetDefault("readiness.attempts", 30)

	l.v.SetDefault("database.host", "127.0.0.1")
	l.v.SetDefault("database.port", 5432)
	l.v.SetDefault("database.name", "natiq")

	l.v.SetDefault("importer.url", "http://127.0.0.1:8000")

	l.v.SetDefault("network.ip_endpoints", []string{
		"https://api.ipify.org",
		"https://ifconfig.me/ip",
		"https://icanhazip.com",
	})

	l.v.SetDefault("logging.level", "info")
}

// Load reads configuration from file, .env, and environment variables. If
// cfgFile is empty, deployctl.yaml is searched in standard locations.
func (l *Loader) Load(cfgFile string, target interface{}) error {
	if cfgFile != "" {
		l.v.SetConfigFile(cfgFile)
	} else {
		l.v.SetConfigName("deployctl")
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".")
		l.v.AddConfigPath("$HOME/.deployctl")
		l.v.AddConfigPath("/etc/deployctl")
	}

	if err := l.v.ReadInConfig(); err != nil {
		if cfgFile != "" && !isFileNotFoundError(err) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		if cfgFile == "" {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	// Merge .env file if present
	l.v.SetConfigFile(".env")
	l.v.SetConfigType("env")
	_ = l.v.MergeInConfig()

	if l.prefix != "" {
		l.v.SetEnvPrefix(l.prefix)
	}
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if err := l.v.Unmarshal(target); err != nil {
		return fmt.Errorf("unable to decode config: %w", err)
	}

	return nil
}

// LoadConfig loads a validated deployctl configuration.
func LoadConfig(cfgFile string) (*Config, error) {
	loader := NewLoader("DEPLOYCTL")
	loader.SetConfigDefaults()

	cfg := &Config{}
	if err := loader.Load(cfgFile, cfg); err != nil {
		return nil, err
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ValidateConfig validates the loaded configuration.
func ValidateConfig(cfg *Config) error {
	if cfg.Project.TargetService == "" {
		return fmt.Errorf("project target_service must not be empty")
	}
	if cfg.Readiness.Attempts < 1 {
		return fmt.Errorf("readiness attempts must be at least 1: %d", cfg.Readiness.Attempts)
	}
	if cfg.Readiness.Interval <= 0 {
		return fmt.Errorf("readiness interval must be positive: %s", cfg.Readiness.Interval)
	}
	if cfg.Database.Port < 1 || cfg.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", cfg.Database.Port)
	}
	return nil
}

// isFileNotFoundError checks if an error is a file not found error.
func isFileNotFoundError(err error) bool {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return errors.Is(pathErr, os.ErrNotExist)
	}
	return false
}
