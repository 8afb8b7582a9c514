package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"curabot/internal/models"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "top_k", cfg.RAG.RetrievalMode)
	assert.Equal(t, 4, cfg.RAG.K)
	assert.NoError(t, Validate(cfg))
}

func TestLoadConfigShippedFile(t *testing.T) {
	cfg, err := LoadConfig("../../configs/config.yaml")
	require.NoError(t, err)

	names := make([]string, 0, len(cfg.Answering.Providers))
	for _, p := range cfg.Answering.Providers {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"openai", "groq", "gemini", "cohere", "anthropic"}, names)
	assert.Equal(t, models.DefaultFallbackMessage, cfg.Answering.FallbackText())
	assert.Equal(t, 12*time.Hour, cfg.Auth.TTL())
}

func TestLoadConfigOverridesAndDefaults(t *testing.T) {
	path := writeConfig(t, `
rag:
  chunk_size: 500
  chunk_overlap: 50
  splitter: recursive
  retrieval_mode: full
answering:
  providers:
    - name: openai
      api_key_env: MY_OPENAI_KEY
      model: gpt-4o-mini
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.RAG.ChunkSize)
	assert.Equal(t, "full", cfg.RAG.RetrievalMode)
	require.Len(t, cfg.Answering.Providers, 1)
	p := cfg.Answering.Providers[0]
	assert.Equal(t, "openai", p.Kind)
	d, err := p.TimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, d)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadConfigRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"overlap not below size", "rag:\n  chunk_size: 100\n  chunk_overlap: 100\n"},
		{"negative overlap", "rag:\n  chunk_overlap: -1\n"},
		{"unknown retrieval mode", "rag:\n  retrieval_mode: everything\n"},
		{"unknown provider kind", "answering:\n  providers:\n    - {name: x, kind: bard, api_key_env: X, model: m}\n"},
		{"duplicate provider", "answering:\n  providers:\n    - {name: a, kind: openai, api_key_env: A, model: m}\n    - {name: a, kind: groq, api_key_env: B, model: m}\n"},
		{"bad timeout", "answering:\n  providers:\n    - {name: a, kind: openai, api_key_env: A, model: m, timeout: soon}\n"},
		{"bad token ttl", "auth:\n  token_ttl: forever\n"},
		{"not yaml", "rag: [unclosed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))

			var cfgErr *ConfigurationError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestFallbackText(t *testing.T) {
	assert.Equal(t, models.DefaultFallbackMessage, AnsweringConfig{}.FallbackText())

	empty := ""
	assert.Equal(t, "", AnsweringConfig{FallbackMessage: &empty}.FallbackText())

	cfg, err := LoadConfig(writeConfig(t, "answering:\n  fallback_message: \"\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "", cfg.Answering.FallbackText())
}

func TestProviderAPIKeyIsTrimmed(t *testing.T) {
	t.Setenv("CURABOT_TEST_KEY", "  sk-123 \n")

	assert.Equal(t, "sk-123", ProviderConfig{APIKeyEnv: "CURABOT_TEST_KEY"}.APIKey())
	assert.Empty(t, ProviderConfig{APIKeyEnv: "CURABOT_TEST_KEY_UNSET"}.APIKey())
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("CURABOT_TEST_FROM_FILE=loaded\nCURABOT_TEST_PRESET=from-file\n"), 0o600))
	t.Setenv("CURABOT_TEST_PRESET", "from-env")
	t.Setenv("CURABOT_TEST_FROM_FILE", "")
	require.NoError(t, os.Unsetenv("CURABOT_TEST_FROM_FILE"))

	require.NoError(t, LoadEnv(path, filepath.Join(dir, "missing.env")))

	assert.Equal(t, "loaded", os.Getenv("CURABOT_TEST_FROM_FILE"))
	assert.Equal(t, "from-env", os.Getenv("CURABOT_TEST_PRESET"))
}
