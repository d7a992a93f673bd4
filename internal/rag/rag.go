package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"document-rag/internal/config"
	"document-rag/internal/llmservice"
	"document-rag/internal/models"
)

// RAG answers questions from the currently published index.
type RAG struct {
	state     *IndexState
	chats     *llmservice.ChatModels
	topK      int
	separator string
}

func NewRAG(state *IndexState, chats *llmservice.ChatModels, cfg config.RAGConfig) *RAG {
	topK := cfg.TopK
	if topK < 1 {
		topK = models.DefaultTopK
	}
	separator := cfg.ContextSeparator
	if separator == "" {
		separator = models.ContextSeparator
	}
	return &RAG{state: state, chats: chats, topK: topK, separator: separator}
}

// Query retrieves the top chunks for query, asks model to answer from them
// alone, and returns the model's output unmodified.
func (r *RAG) Query(ctx context.Context, query, model string) (*models.PromptResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.ErrEmptyQuery
	}
	idx := r.state.Current()
	if idx == nil {
		return nil, models.ErrNoIndex
	}

	results, err := idx.Query(ctx, query, r.topK)
	if err != nil {
		return nil, err
	}
	sources := make([]string, len(results))
	for i, res := range results {
		sources[i] = res.Chunk.Content
	}
	prompt := BuildPrompt(strings.Join(sources, r.separator), query)

	llm, err := r.chats.Get(model)
	if err != nil {
		return nil, models.Upstream("llm", err)
	}
	log.Debug().Str("model", model).Int("chunks", len(results)).Str("index", idx.Meta().ID).Msg("Answering query")
	answer, err := llm.Generate(ctx, prompt)
	if err != nil {
		return nil, models.Upstream("llm", err)
	}

	return &models.PromptResponse{
		Query:   query,
		Source:  idx.Meta().Source,
		Content: answer,
		Sources: sources,
	}, nil
}

// BuildPrompt grounds query in contextBlock.
func BuildPrompt(contextBlock, query string) string {
	return fmt.Sprintf(models.PromptTemplate, contextBlock, query)
}
