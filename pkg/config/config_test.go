package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
server:
  port: 9090
  read_timeout: 10s

providers:
  openai_api_key: file-key

mongo:
  uri: mongodb://localhost:27017
  database: automedia_test

redis:
  addr: localhost:6379

generation:
  default_model: gpt-4
  max_retries: 5
  stats_ttl: 30m
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "file-key", cfg.Providers.OpenAIAPIKey)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Mongo.URI)
	assert.Equal(t, "automedia_test", cfg.Mongo.Database)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "gpt-4", cfg.Generation.DefaultModel)
	assert.Equal(t, 5, cfg.Generation.MaxRetries)
	assert.Equal(t, 30*time.Minute, cfg.Generation.StatsTTL)
}

func TestLoadEnvOverride(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server:\n  port: 9090\n"), 0644))

	t.Setenv("AUTOMEDIA_SERVER_PORT", "7070")

	cfg, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "automedia", cfg.Mongo.Database)
}

func TestLoadAPIKeyEnvFallback(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "env-secret")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env-secret", cfg.Providers.DeepSeekAPIKey)
}
