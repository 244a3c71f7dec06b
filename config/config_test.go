package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 1000, cfg.Processing.ChunkSize)
	assert.Equal(t, 200, cfg.Processing.ChunkOverlap)
	assert.Equal(t, 2, cfg.Processing.TopK)
	assert.Equal(t, 2, cfg.Generation.MaxRetries)
	assert.Equal(t, BackendSQLite, cfg.Index.Backend)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
provider: azure
openai:
  base_url: https://example.openai.azure.com
  chat_model: gpt-4o
processing:
  chunk_size: 500
  chunk_overlap: 50
  top_k: 4
index:
  backend: pgvector
  connection_string: postgres://localhost/hammond
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ProviderAzure, cfg.Provider)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.ChatModel)
	assert.Equal(t, 500, cfg.Processing.ChunkSize)
	assert.Equal(t, 50, cfg.Processing.ChunkOverlap)
	assert.Equal(t, 4, cfg.Processing.TopK)
	// untouched keys keep their defaults
	assert.Equal(t, 32, cfg.Processing.BatchSize)
	assert.Equal(t, "OPENAI_API_KEY", cfg.OpenAI.APIKeyEnv)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("processing: [unclosed"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero chunk size", func(c *Config) { c.Processing.ChunkSize = 0 }},
		{"overlap equals chunk size", func(c *Config) { c.Processing.ChunkOverlap = c.Processing.ChunkSize }},
		{"negative overlap", func(c *Config) { c.Processing.ChunkOverlap = -1 }},
		{"zero top k", func(c *Config) { c.Processing.TopK = 0 }},
		{"zero batch size", func(c *Config) { c.Processing.BatchSize = 0 }},
		{"negative retries", func(c *Config) { c.Generation.MaxRetries = -1 }},
		{"unknown provider", func(c *Config) { c.Provider = "bard" }},
		{"unknown embed provider", func(c *Config) { c.EmbedProvider = "word2vec" }},
		{"negative embed dim", func(c *Config) { c.EmbedDim = -1 }},
		{"unknown backend", func(c *Config) { c.Index.Backend = "chroma" }},
		{"sqlite without dir", func(c *Config) { c.Index.Dir = "" }},
		{"pgvector without dsn", func(c *Config) { c.Index.Backend = BackendPGVector }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Processing.TopK = 7

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Processing.TopK)
}

func TestAPIKey(t *testing.T) {
	cfg := Default()
	cfg.OpenAI.APIKeyEnv = "HAMMOND_TEST_KEY"

	t.Setenv("HAMMOND_TEST_KEY", "")
	_, err := cfg.APIKey()
	assert.Error(t, err)

	t.Setenv("HAMMOND_TEST_KEY", "sk-test")
	key, err := cfg.APIKey()
	require.NoError(t, err)
	assert.Equal(t, "sk-test", key)
}

func TestEmbeddingProvider(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ProviderOllama, cfg.EmbeddingProvider())

	cfg.EmbedProvider = EmbedHashing
	assert.Equal(t, EmbedHashing, cfg.EmbeddingProvider())
	assert.NoError(t, cfg.Validate())
}
