package embedding

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/embeddings"

	"document-rag/internal/config"
	"document-rag/internal/models"
)

type countingEmbedder struct {
	mu      sync.Mutex
	batches [][]string
	fail    bool
}

func (c *countingEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return nil, errors.New("model not found")
	}
	c.batches = append(c.batches, texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

func (c *countingEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text)), 1}, nil
}

func TestEmbedders_AlwaysUsesPinnedModel(t *testing.T) {
	var requested []string
	fake := &countingEmbedder{}
	e := NewEmbeddersWithFactory("nomic-embed-text", 2, func(model string) (embeddings.Embedder, error) {
		requested = append(requested, model)
		return fake, nil
	})

	for _, chatModel := range []string{"llama3", "gemma", "", "nomic-embed-text"} {
		got, err := e.For(chatModel)
		require.NoError(t, err)
		assert.Same(t, fake, got)
	}
	assert.Equal(t, []string{"nomic-embed-text"}, requested)
	assert.Equal(t, "nomic-embed-text", e.Model())
}

func TestEmbedders_FactoryErrorIsUpstream(t *testing.T) {
	e := NewEmbeddersWithFactory("nomic-embed-text", 0, func(string) (embeddings.Embedder, error) {
		return nil, errors.New("dial tcp: refused")
	})
	_, err := e.For("llama3")
	var upstream *models.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "embedding", upstream.Op)
}

func TestGenerateEmbedding_BatchesInOrder(t *testing.T) {
	fake := &countingEmbedder{}
	e := NewEmbeddersWithFactory("pinned", 2, func(string) (embeddings.Embedder, error) { return fake, nil })
	chunks := []models.Chunk{{Content: "a"}, {Content: "bb"}, {Content: "ccc"}, {Content: "dddd"}, {Content: "eeeee"}}

	var progress []int
	vectors, err := e.GenerateEmbedding(context.Background(), fake, chunks, func(done, total int) {
		assert.Equal(t, 5, total)
		progress = append(progress, done)
	})
	require.NoError(t, err)
	require.Len(t, vectors, 5)
	for i, v := range vectors {
		assert.Equal(t, float32(i+1), v[0], "vector %d out of order", i)
	}
	assert.Equal(t, []int{2, 4, 5}, progress)
	assert.Len(t, fake.batches, 3)
}

func TestGenerateEmbedding_Errors(t *testing.T) {
	fake := &countingEmbedder{fail: true}
	e := NewEmbeddersWithFactory("pinned", 2, func(string) (embeddings.Embedder, error) { return fake, nil })

	_, err := e.GenerateEmbedding(context.Background(), fake, nil, nil)
	assert.ErrorIs(t, err, models.ErrEmptyInput)

	_, err = e.GenerateEmbedding(context.Background(), fake, []models.Chunk{{Content: "x"}}, nil)
	var upstream *models.UpstreamError
	assert.ErrorAs(t, err, &upstream)
}

func TestNewEmbedder_Ollama(t *testing.T) {
	emb, err := NewEmbedder(config.LLMConfig{Provider: config.ProviderOllama, BaseURL: "http://localhost:11434"}, "nomic-embed-text")
	require.NoError(t, err)
	assert.NotNil(t, emb)
}
