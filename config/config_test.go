package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"DATABASE_URL", "SESSION_SECRET", "OPENROUTER_API_KEY"} {
		t.Setenv(key, "")
	}

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 5001, cfg.HTTPPort)
	assert.Equal(t, 50051, cfg.GRPCPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "lorecrafter", cfg.DatabaseName)
	assert.Equal(t, "https://openrouter.ai/api/v1/", cfg.Generation.BaseURL)
	assert.Equal(t, "openai/gpt-3.5-turbo", cfg.Generation.Model)
	assert.ErrorIs(t, cfg.Validate(), ErrNoSessionSecret)
	assert.Len(t, cfg.Warnings(), 2)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte("http_port: 9000\nlog_level: debug\ngeneration:\n  model: test-model\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	t.Setenv("DATABASE_URL", "mongodb://localhost:27017")
	t.Setenv("OPENROUTER_API_KEY", "sk-test")
	t.Setenv("LORECRAFTER_SESSION_SECRET", "shh")
	t.Setenv("LORECRAFTER_GRPC_PORT", "0")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.HTTPPort)
	assert.Equal(t, 0, cfg.GRPCPort)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "test-model", cfg.Generation.Model)
	assert.Equal(t, "mongodb://localhost:27017", cfg.DatabaseURL)
	assert.Equal(t, "sk-test", cfg.Generation.APIKey)
	assert.Equal(t, "shh", cfg.SessionSecret)
	assert.NoError(t, cfg.Validate())
	assert.Empty(t, cfg.Warnings())
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("http_port: [1"), 0o600))

	_, err := Load(dir)
	assert.Error(t, err)
}
