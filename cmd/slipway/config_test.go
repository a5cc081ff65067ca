package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Config Loading Tests
// =============================================================================

func TestLoadConfig_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "us-east-1", cfg.AWS.Region)
	assert.Equal(t, "auto-deploy-app", cfg.AWS.ECRRepoName)
	assert.Equal(t, "", cfg.Docker.Host)
	assert.Equal(t, "./data/workspace", cfg.Workspace.Root)
	assert.Equal(t, "./data/slipway.db", cfg.State.DSN)
	assert.Equal(t, "terraform", cfg.Infra.TerraformBin)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadConfig_FromFile(t *testing.T) {
	clearEnv(t)

	configContent := `
aws:
  region: "eu-west-1"
  ecr_repo_name: "team-images"

workspace:
  root: "/var/lib/slipway"

state:
  dsn: "/tmp/test.db"

infra:
  terraform_bin: "/usr/local/bin/terraform"

log:
  level: "debug"
  format: "json"
`
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(configContent), 0644))

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)

	assert.Equal(t, "eu-west-1", cfg.AWS.Region)
	assert.Equal(t, "team-images", cfg.AWS.ECRRepoName)
	assert.Equal(t, "/var/lib/slipway", cfg.Workspace.Root)
	assert.Equal(t, "/tmp/test.db", cfg.State.DSN)
	assert.Equal(t, "/usr/local/bin/terraform", cfg.Infra.TerraformBin)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadConfig_EnvironmentOverride(t *testing.T) {
	clearEnv(t)

	t.Setenv("SLIPWAY_AWS_REGION", "ap-south-1")
	t.Setenv("SLIPWAY_STATE_DSN", "/custom/path.db")
	t.Setenv("SLIPWAY_LOG_LEVEL", "warn")
	t.Setenv("SLIPWAY_INFRA_TERRAFORM_BIN", "tofu")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "ap-south-1", cfg.AWS.Region)
	assert.Equal(t, "/custom/path.db", cfg.State.DSN)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "tofu", cfg.Infra.TerraformBin)
}

func TestLoadConfig_FileNotFound_UsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("/nonexistent/path/config.yaml")
	require.NoError(t, err) // Should not error, just use defaults

	assert.Equal(t, "us-east-1", cfg.AWS.Region)
	assert.Equal(t, "terraform", cfg.Infra.TerraformBin)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	clearEnv(t)

	tmpFile := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte("invalid: yaml: content: [[["), 0644))

	_, err := LoadConfig(tmpFile)
	assert.Error(t, err)
}

// =============================================================================
// Logger Setup Tests
// =============================================================================

func TestSetupLogger_TextFormat(t *testing.T) {
	cfg := &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}

	logger := SetupLogger(cfg)
	assert.NotNil(t, logger)
}

func TestSetupLogger_JSONFormat(t *testing.T) {
	cfg := &Config{
		Log: LogConfig{
			Level:  "debug",
			Format: "json",
		},
	}

	logger := SetupLogger(cfg)
	assert.NotNil(t, logger)
}

func TestSetupLogger_InvalidLevel(t *testing.T) {
	cfg := &Config{
		Log: LogConfig{
			Level:  "invalid",
			Format: "text",
		},
	}

	// Should fall back to info level, not panic
	logger := SetupLogger(cfg)
	assert.NotNil(t, logger)
}

// =============================================================================
// Test Helpers
// =============================================================================

func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"SLIPWAY_AWS_REGION",
		"SLIPWAY_AWS_ECR_REPO_NAME",
		"SLIPWAY_DOCKER_HOST",
		"SLIPWAY_WORKSPACE_ROOT",
		"SLIPWAY_STATE_DSN",
		"SLIPWAY_INFRA_TERRAFORM_BIN",
		"SLIPWAY_LOG_LEVEL",
		"SLIPWAY_LOG_FORMAT",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}
}
