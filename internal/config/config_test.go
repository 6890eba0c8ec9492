package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emptyConfigFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(emptyConfigFile(t))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "dev", cfg.Logging.Mode)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "warrantyd", cfg.Telemetry.ServiceName)
	assert.Equal(t, 60, cfg.Claims.RatePerMinute)
	assert.Equal(t, 10, cfg.Claims.Burst)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := []byte("server:\n  address: \":9000\"\nclaims:\n  burst: 3\n")
	require.NoError(t, os.WriteFile(path, yaml, 0o600))

	t.Setenv("WARRANTY_SERVER_ADDRESS", ":9100")
	t.Setenv("WARRANTY_SERVER_READ_TIMEOUT", "5s")
	t.Setenv("WARRANTY_LOGGING_MODE", "prod")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.Server.Address)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "prod", cfg.Logging.Mode)
	assert.Equal(t, 3, cfg.Claims.Burst)
}

func TestLoadConfig_RejectsInvalidValues(t *testing.T) {
	t.Setenv("WARRANTY_CLAIMS_RATE_PER_MINUTE", "0")

	_, err := LoadConfig(emptyConfigFile(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RatePerMinute")
}

func TestLoadConfig_UnreadableFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate_TelemetryEndpointRequiredWhenEnabled(t *testing.T) {
	cfg, err := LoadConfig(emptyConfigFile(t))
	require.NoError(t, err)

	cfg.Telemetry.Enabled = true
	cfg.Telemetry.Endpoint = ""
	assert.Error(t, Validate(cfg))

	cfg.Telemetry.Endpoint = "collector:4318"
	assert.NoError(t, Validate(cfg))
}
