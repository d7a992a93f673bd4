package llmservice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"document-rag/internal/config"

	"github.com/rs/zerolog/log"
)

// ModelLister reports the chat models available on the configured Ollama
// server, falling back to a fixed list when the server cannot be asked.
type ModelLister struct {
	baseURL  string
	fallback []string
	client   *http.Client
}

func NewModelLister(llmConfig config.LLMConfig) *ModelLister {
	timeout := time.Duration(llmConfig.ListTimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ModelLister{
		baseURL:  strings.TrimSuffix(llmConfig.BaseURL, "/"),
		fallback: llmConfig.FallbackModels,
		client:   &http.Client{Timeout: timeout},
	}
}

// List never fails; errors are logged and answered with the fallback list.
func (m *ModelLister) List(ctx context.Context) []string {
	models, err := m.fetch(ctx)
	if err != nil || len(models) == 0 {
		log.Warn().Err(err).Strs("fallback", m.fallback).Msg("Could not list models, using fallback")
		return append([]string(nil), m.fallback...)
	}
	return models
}

func (m *ModelLister) fetch(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list models: unexpected status %d", resp.StatusCode)
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}

	names := make([]string, 0, len(tags.Models))
	for _, t := range tags.Models {
		// "llama3:latest" is offered as "llama3"
		names = append(names, strings.TrimSuffix(t.Name, ":latest"))
	}
	return names, nil
}
