package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "app", cfg.Project.TargetService)
	assert.Equal(t, "docker-compose.yaml", cfg.Project.Template)
	assert.Equal(t, "unix:///var/run/docker.sock", cfg.Docker.Socket)
	assert.Equal(t, 5*time.Second, cfg.Readiness.Interval)
	assert.Equal(t, 30, cfg.Readiness.Attempts)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Len(t, cfg.Network.IPEndpoints, 3)
}

func TestLoadConfig_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deployctl.yaml")
	content := `project:
  dir: /opt/natiq
  target_service: api
readiness:
  interval: 2s
  attempts: 10
importer:
  url: https://api.example.com
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/opt/natiq", cfg.Project.Dir)
	assert.Equal(t, "api", cfg.Project.TargetService)
	assert.Equal(t, 2*time.Second, cfg.Readiness.Interval)
	assert.Equal(t, 10, cfg.Readiness.Attempts)
	assert.Equal(t, "https://api.example.com", cfg.Importer.URL)
	// Untouched sections keep their defaults.
	assert.Equal(t, "production.env", cfg.Project.EnvFile)
}

func TestLoadConfig_EnvironmentOverride(t *testing.T) {
	t.Setenv("DEPLOYCTL_PROJECT_TARGET_SERVICE", "webapi")
	t.Setenv("DEPLOYCTL_READINESS_ATTEMPTS", "3")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "webapi", cfg.Project.TargetService)
	assert.Equal(t, 3, cfg.Readiness.Attempts)
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Project:   ProjectConfig{TargetService: "app"},
			Readiness: ReadinessConfig{Interval: time.Second, Attempts: 1},
			Database:  DatabaseConfig{Port: 5432},
		}
	}

	assert.NoError(t, ValidateConfig(valid()))

	cfg := valid()
	cfg.Project.TargetService = ""
	assert.Error(t, ValidateConfig(cfg))

	cfg = valid()
	cfg.Readiness.Attempts = 0
	assert.Error(t, ValidateConfig(cfg))

	cfg = valid()
	cfg.Database.Port = 70000
	assert.Error(t, ValidateConfig(cfg))
}
