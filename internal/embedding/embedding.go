package embedding

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"document-rag/internal/config"
	"document-rag/internal/llmservice"
	"document-rag/internal/models"
)

const defaultBatchSize = 16

// Embedders resolves the embedder for a request. Chat models make poor
// embedders, so whatever model the caller names, every lookup resolves to the
// single pinned embedding model.
type Embedders struct {
	pinned    string
	batchSize int
	cache     *llmservice.ModelCache[embeddings.Embedder]
}

func NewEmbedders(embedConfig config.LLMConfig) *Embedders {
	return NewEmbeddersWithFactory(embedConfig.Model, embedConfig.BatchSize, func(model string) (embeddings.Embedder, error) {
		return NewEmbedder(embedConfig, model)
	})
}

// NewEmbeddersWithFactory is NewEmbedders with a custom client constructor.
func NewEmbeddersWithFactory(pinned string, batchSize int, create func(model string) (embeddings.Embedder, error)) *Embedders {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Embedders{
		pinned:    pinned,
		batchSize: batchSize,
		cache:     llmservice.NewModelCache("embedding", create),
	}
}

// NewEmbedder creates a langchaingo embedder for model on the configured endpoint.
func NewEmbedder(embedConfig config.LLMConfig, model string) (embeddings.Embedder, error) {
	llm, err := llmservice.NewLLM(embedConfig, model)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding llm: %w", err)
	}
	client, ok := llm.(embeddings.EmbedderClient)
	if !ok {
		return nil, fmt.Errorf("provider %q cannot embed", embedConfig.Provider)
	}
	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedder, nil
}

// For returns the pinned embedder. requested is only logged.
func (e *Embedders) For(requested string) (embeddings.Embedder, error) {
	if requested != "" && requested != e.pinned {
		log.Debug().Str("requested", requested).Str("pinned", e.pinned).Msg("Ignoring requested model for embeddings")
	}
	embedder, err := e.cache.Get(e.pinned)
	if err != nil {
		return nil, models.Upstream("embedding", err)
	}
	return embedder, nil
}

func (e *Embedders) Model() string {
	return e.pinned
}

// GenerateEmbedding embeds chunks in order, batch by batch, calling done with
// the number of chunks embedded so far after every batch.
func (e *Embedders) GenerateEmbedding(ctx context.Context, embedder embeddings.Embedder, chunks []models.Chunk, done func(embedded, total int)) ([][]float32, error) {
	if len(chunks) == 0 {
		return nil, models.ErrEmptyInput
	}

	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += e.batchSize {
		end := min(start+e.batchSize, len(chunks))
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Content)
		}

		batch, err := embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return nil, models.Upstream("embedding", err)
		}
		if len(batch) != len(texts) {
			return nil, models.Upstream("embedding", fmt.Errorf("got %d vectors for %d chunks", len(batch), len(texts)))
		}
		vectors = append(vectors, batch...)
		if done != nil {
			done(end, len(chunks))
		}
	}
	return vectors, nil
}
