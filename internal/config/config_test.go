package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 500, cfg.RAG.ChunkSize)
	assert.Equal(t, 50, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 3, cfg.RAG.TopK)
	assert.Equal(t, "nomic-embed-text", cfg.EmbedLLM.Model)
	assert.Equal(t, []string{"pdf", "docx", "xlsx"}, cfg.Upload.Formats)
}

func TestLoadConfig_OverridesAndEnvExpansion(t *testing.T) {
	t.Setenv("DOCRAG_TEST_KEY", "secret")
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
llm:
  provider: openai
  base_url: https://openrouter.ai/api/v1
  key: ${DOCRAG_TEST_KEY}
  model: mistral
rag:
  chunk_size: 200
  chunk_overlap: 20
upload:
  formats: [pdf, txt]
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "secret", cfg.LLM.Key)
	assert.Equal(t, "mistral", cfg.LLM.Model)
	assert.Equal(t, 200, cfg.RAG.ChunkSize)
	assert.Equal(t, 20, cfg.RAG.ChunkOverlap)
	// untouched sections keep defaults
	assert.Equal(t, 3, cfg.RAG.TopK)
	assert.Equal(t, "nomic-embed-text", cfg.EmbedLLM.Model)
	assert.Equal(t, []string{"pdf", "txt"}, cfg.Upload.Formats)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"overlap equals size", func(c *Config) { c.RAG.ChunkOverlap = c.RAG.ChunkSize }},
		{"zero chunk size", func(c *Config) { c.RAG.ChunkSize = 0 }},
		{"zero top k", func(c *Config) { c.RAG.TopK = 0 }},
		{"unknown strategy", func(c *Config) { c.RAG.ChunkStrategy = "semantic" }},
		{"unknown provider", func(c *Config) { c.EmbedLLM.Provider = "bedrock" }},
		{"missing model", func(c *Config) { c.LLM.Model = " " }},
		{"unknown format", func(c *Config) { c.Upload.Formats = []string{"pptx"} }},
		{"no workers", func(c *Config) { c.Upload.Workers = 0 }},
		{"no upload cap", func(c *Config) { c.Server.MaxUploadMB = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}

func TestMaxUploadBytes(t *testing.T) {
	assert.Equal(t, int64(32<<20), Default().Server.MaxUploadBytes())
}
