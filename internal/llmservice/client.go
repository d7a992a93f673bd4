package llmservice

import (
	"context"
	"fmt"
	"strings"

	"document-rag/internal/config"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Generator answers a single prompt with raw model output.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type langchainGenerator struct {
	model string
	llm   llms.Model
}

func (g *langchainGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	log.Debug().Str("model", g.model).Int("prompt_chars", len(prompt)).Msg("Generating content")
	return llms.GenerateFromSinglePrompt(ctx, g.llm, prompt)
}

// NewLLM builds a langchaingo model for the endpoint in llmConfig, overriding
// its model with model.
func NewLLM(llmConfig config.LLMConfig, model string) (llms.Model, error) {
	switch llmConfig.Provider {
	case config.ProviderOpenAI:
		return openai.New(
			openai.WithBaseURL(llmConfig.BaseURL),
			openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
			openai.WithModel(model),
		)
	case config.ProviderOllama, "":
		opts := []ollama.Option{ollama.WithModel(model)}
		if llmConfig.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(llmConfig.BaseURL))
		}
		return ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unknown llm provider: %q", llmConfig.Provider)
	}
}

// ChatModels hands out one Generator per chat model id.
type ChatModels struct {
	defaultModel string
	cache        *ModelCache[Generator]
}

func NewChatModels(llmConfig config.LLMConfig) *ChatModels {
	return NewChatModelsWithFactory(llmConfig.Model, func(model string) (Generator, error) {
		llm, err := NewLLM(llmConfig, model)
		if err != nil {
			return nil, err
		}
		return &langchainGenerator{model: model, llm: llm}, nil
	})
}

// NewChatModelsWithFactory is NewChatModels with a custom client constructor.
func NewChatModelsWithFactory(defaultModel string, create func(model string) (Generator, error)) *ChatModels {
	return &ChatModels{
		defaultModel: defaultModel,
		cache:        NewModelCache("chat", create),
	}
}

// Get returns the client for model, or for the default model when empty.
func (c *ChatModels) Get(model string) (Generator, error) {
	if strings.TrimSpace(model) == "" {
		model = c.defaultModel
	}
	return c.cache.Get(model)
}

func (c *ChatModels) DefaultModel() string {
	return c.defaultModel
}
