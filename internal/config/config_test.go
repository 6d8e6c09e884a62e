package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
embedder:
  provider: "openai"
  base_url: "https://openrouter.ai/api/v1"
  api_key_env: "OPENROUTER_API_KEY"
  model: "text-embedding-3-small"
  dimension: 1536
index:
  type: "chromem"
  path: "/tmp/vectors"
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Embedder.Provider)
	assert.Equal(t, 1536, cfg.Embedder.Dimension)
	assert.Equal(t, "/tmp/vectors", cfg.Index.Path)

	// unset values fall back to defaults
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 1000, cfg.RAG.ChunkSize)
	assert.Equal(t, 150, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 5, cfg.RAG.TopK)
	assert.Equal(t, 3, cfg.RAG.MaxAttempts)
	assert.Equal(t, "openai", cfg.LLM.Provider, "llm provider defaults to the embedder's")
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEmbedderKeyFromEnv(t *testing.T) {
	t.Setenv("TEST_EMBED_KEY", "secret")
	cfg := EmbedderConfig{APIKeyEnv: "TEST_EMBED_KEY"}
	assert.Equal(t, "secret", cfg.Key())
}
