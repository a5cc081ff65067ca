package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all application configuration.
type Config struct {
	AWS       AWSConfig       `mapstructure:"aws"`
	Docker    DockerConfig    `mapstructure:"docker"`
	Workspace WorkspaceConfig `mapstructure:"workspace"`
	State     StateConfig     `mapstructure:"state"`
	Infra     InfraConfig     `mapstructure:"infra"`
	Log       LogConfig       `mapstructure:"log"`
}

// AWSConfig holds cloud credentials and targeting defaults.
type AWSConfig struct {
	Region string `mapstructure:"region"`

	// AccessKeyID and SecretAccessKey pin static credentials. When empty,
	// the default AWS credential chain is used.
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`

	// ECRRepoName is the default registry repository for built images.
	ECRRepoName string `mapstructure:"ecr_repo_name"`
}

// DockerConfig holds Docker client configuration.
type DockerConfig struct {
	Host string `mapstructure:"host"`
}

// WorkspaceConfig holds working directory configuration. Source checkouts,
// build logs and rendered infrastructure all live under Root.
type WorkspaceConfig struct {
	Root string `mapstructure:"root"`
}

// StateConfig holds deployment state database configuration.
type StateConfig struct {
	DSN string `mapstructure:"dsn"`
}

// InfraConfig holds provisioning engine configuration.
type InfraConfig struct {
	TerraformBin string `mapstructure:"terraform_bin"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("aws.access_key_id", "")
	v.SetDefault("aws.secret_access_key", "")
	v.SetDefault("aws.ecr_repo_name", "auto-deploy-app")
	v.SetDefault("docker.host", "")
	v.SetDefault("workspace.root", "./data/workspace")
	v.SetDefault("state.dsn", "./data/slipway.db")
	v.SetDefault("infra.terraform_bin", "terraform")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// Load from file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Only return error if file was explicitly specified and is invalid
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// File not found is OK, we'll use defaults
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("SLIPWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format.
func SetupLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	// Logs go to stderr; stdout is reserved for command output.
	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
