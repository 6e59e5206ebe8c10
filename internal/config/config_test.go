package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "pagesmith.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())

	assert.Equal(t, "data/product_data.json", c.Input)
	assert.Equal(t, "output", c.OutputDir)
	assert.Equal(t, DriverMemory, c.Bus.Driver)
	assert.Equal(t, 500*time.Millisecond, c.Timing.AgentPollTimeout)
	assert.Equal(t, time.Second, c.Timing.OrchestratorPollTimeout)
	assert.Equal(t, 100*time.Millisecond, c.Timing.PollInterval)
	assert.Equal(t, 5*time.Second, c.Timing.StopTimeout)
	assert.Equal(t, "info", c.Logging.Level)
	assert.Equal(t, "console", c.Logging.Format)
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `version: "1.0"
input: fixtures/serum.json
output_dir: build/pages
bus:
  driver: redis
  redis_url: redis://cache:6379/2
  instance: ci
timing:
  agent_poll_timeout: 250ms
  run_timeout: 30s
logging:
  level: debug
  format: json
`)

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "fixtures/serum.json", config.Input)
	assert.Equal(t, "build/pages", config.OutputDir)
	assert.Equal(t, BusConfig{Driver: DriverRedis, RedisURL: "redis://cache:6379/2", Instance: "ci"}, config.Bus)
	assert.Equal(t, 250*time.Millisecond, config.Timing.AgentPollTimeout)
	assert.Equal(t, 30*time.Second, config.Timing.RunTimeout)
	// Unset fields keep their defaults
	assert.Equal(t, time.Second, config.Timing.OrchestratorPollTimeout)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestLoad_MinimalConfig(t *testing.T) {
	config, err := Load(writeConfig(t, `version: "1.0"`))
	require.NoError(t, err)
	assert.Equal(t, Default(), config)
}

func TestLoad_FileNotFound(t *testing.T) {
	config, err := Load("/nonexistent/pagesmith.yml")
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_InvalidYAML(t *testing.T) {
	config, err := Load(writeConfig(t, "version: \"1.0\"\nbus:\n  - this is invalid\n    yaml syntax\n"))
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoad_InvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"bad version", `version: "2.0"`, "unsupported version"},
		{"bad driver", "version: \"1.0\"\nbus:\n  driver: kafka\n", "bus.driver must be"},
		{"bad redis url", "version: \"1.0\"\nbus:\n  driver: redis\n  redis_url: \"http://nope\"\n", "bus.redis_url is invalid"},
		{"negative poll", "version: \"1.0\"\ntiming:\n  poll_interval: -1s\n", "timing.poll_interval must be positive"},
		{"bad level", "version: \"1.0\"\nlogging:\n  level: loud\n", "logging.level"},
		{"bad format", "version: \"1.0\"\nlogging:\n  format: xml\n", "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_RedisDriverDefaultsURL(t *testing.T) {
	config, err := Load(writeConfig(t, "version: \"1.0\"\nbus:\n  driver: redis\n"))
	require.NoError(t, err)
	assert.Equal(t, "redis://localhost:6379/0", config.Bus.RedisURL)
	assert.Equal(t, "default", config.Bus.Instance)
}

func TestLoadOptional(t *testing.T) {
	config, err := LoadOptional(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), config)

	_, err = LoadOptional(writeConfig(t, `version: "9"`))
	assert.Error(t, err)
}
