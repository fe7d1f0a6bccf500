package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the Shapr project configuration, read from shapr.yml.
type Config struct {
	ProjectName string         `mapstructure:"project_name"`
	Schema      string         `mapstructure:"schema"`
	Server      ServerConfig   `mapstructure:"server"`
	Database    DatabaseConfig `mapstructure:"database"`
	Generate    GenerateConfig `mapstructure:"generate"`
	Auth        AuthConfig     `mapstructure:"auth"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	URL    string `mapstructure:"url"`
}

// GenerateConfig represents code generation configuration
type GenerateConfig struct {
	Output  string `mapstructure:"output"`
	Package string `mapstructure:"package"`
}

// AuthConfig represents token authentication configuration
type AuthConfig struct {
	Secret   string        `mapstructure:"secret"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// Load loads the configuration from shapr.yml or shapr.yaml
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("schema", "schema.shapr")
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 3000)
	v.SetDefault("database.driver", "memory")
	v.SetDefault("generate.output", "generated")
	v.SetDefault("generate.package", "generated")
	v.SetDefault("auth.token_ttl", "24h")

	v.SetConfigName("shapr")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Enable environment variable support
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

// GetDatabaseURL returns the database URL from the environment or config
func GetDatabaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	cfg, err := Load()
	if err != nil {
		return ""
	}

	return cfg.Database.URL
}

// GetProjectRoot tries to find the project root by looking for shapr.yml
func GetProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "shapr.yml")); err == nil {
			return dir, nil
		}
		if _, err := os.Stat(filepath.Join(dir, "shapr.yaml")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a Shapr project (no shapr.yml found)")
		}
		dir = parent
	}
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	switch cfg.Database.Driver {
	case "memory", "sqlite3", "postgres":
	default:
		return fmt.Errorf("database.driver must be one of memory, sqlite3, postgres; got: %s", cfg.Database.Driver)
	}
	if cfg.Database.Driver != "memory" && cfg.Database.URL == "" {
		return fmt.Errorf("database.url is required when database.driver is %s", cfg.Database.Driver)
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got: %d", cfg.Server.Port)
	}
	return nil
}
