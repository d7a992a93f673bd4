package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"

	StrategyWindow    = "window"
	StrategyRecursive = "recursive"
)

type Config struct {
	Server   ServerConfig `yaml:"server"`
	LLM      LLMConfig    `yaml:"llm"`
	EmbedLLM LLMConfig    `yaml:"embed_llm"`
	RAG      RAGConfig    `yaml:"rag"`
	Upload   UploadConfig `yaml:"upload"`
	Log      LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MaxUploadMB int64  `yaml:"max_upload_mb"`
	// StaticDir overrides the embedded front-end assets when set.
	StaticDir string `yaml:"static_dir"`
}

// LLMConfig describes one model endpoint. It is used both for the chat model
// and for the pinned embedding model.
type LLMConfig struct {
	Provider        string   `yaml:"provider"`
	BaseURL         string   `yaml:"base_url"`
	Key             string   `yaml:"key"`
	Model           string   `yaml:"model"`
	FallbackModels  []string `yaml:"fallback_models"`
	ListTimeoutSecs int      `yaml:"list_timeout_secs"`
	BatchSize       int      `yaml:"batch_size"`
}

type RAGConfig struct {
	ChunkSize        int    `yaml:"chunk_size"`
	ChunkOverlap     int    `yaml:"chunk_overlap"`
	ChunkStrategy    string `yaml:"chunk_strategy"`
	TopK             int    `yaml:"top_k"`
	ContextSeparator string `yaml:"context_separator"`
}

type UploadConfig struct {
	Formats []string `yaml:"formats"`
	Workers int      `yaml:"workers"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:        ":5000",
			MaxUploadMB: 32,
		},
		LLM: LLMConfig{
			Provider:        ProviderOllama,
			BaseURL:         "http://localhost:11434",
			Model:           "llama3",
			FallbackModels:  []string{"llama3", "gemma"},
			ListTimeoutSecs: 5,
		},
		EmbedLLM: LLMConfig{
			Provider:  ProviderOllama,
			BaseURL:   "http://localhost:11434",
			Model:     "nomic-embed-text",
			BatchSize: 16,
		},
		RAG: RAGConfig{
			ChunkSize:        500,
			ChunkOverlap:     50,
			ChunkStrategy:    StrategyWindow,
			TopK:             3,
			ContextSeparator: "\n---\n",
		},
		Upload: UploadConfig{
			Formats: []string{"pdf", "docx", "xlsx"},
			Workers: 1,
		},
		Log: LogConfig{
			Level:   "debug",
			Console: true,
		},
	}
}

// LoadConfig reads the YAML file at path on top of Default. A missing file is
// not an error. ${VAR} references are expanded from the environment.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, cfg.Validate()
		}
		return nil, err
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.RAG.ChunkSize <= 0 {
		return fmt.Errorf("rag.chunk_size must be positive, got %d", c.RAG.ChunkSize)
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("rag.chunk_overlap must be in [0, %d), got %d", c.RAG.ChunkSize, c.RAG.ChunkOverlap)
	}
	if c.RAG.TopK < 1 {
		return fmt.Errorf("rag.top_k must be at least 1, got %d", c.RAG.TopK)
	}
	switch c.RAG.ChunkStrategy {
	case StrategyWindow, StrategyRecursive:
	default:
		return fmt.Errorf("unknown rag.chunk_strategy: %q", c.RAG.ChunkStrategy)
	}
	for name, l := range map[string]LLMConfig{"llm": c.LLM, "embed_llm": c.EmbedLLM} {
		switch l.Provider {
		case ProviderOllama, ProviderOpenAI:
		default:
			return fmt.Errorf("unknown %s.provider: %q", name, l.Provider)
		}
		if strings.TrimSpace(l.Model) == "" {
			return fmt.Errorf("%s.model is required", name)
		}
	}
	if len(c.Upload.Formats) == 0 {
		return errors.New("upload.formats must not be empty")
	}
	for _, f := range c.Upload.Formats {
		switch strings.ToLower(f) {
		case "pdf", "docx", "xlsx", "txt", "md", "xlsm":
		default:
			return fmt.Errorf("unknown upload format: %q", f)
		}
	}
	if c.Upload.Workers < 1 {
		return fmt.Errorf("upload.workers must be at least 1, got %d", c.Upload.Workers)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server.max_upload_mb must be positive, got %d", c.Server.MaxUploadMB)
	}
	return nil
}

// MaxUploadBytes is the upload size cap in bytes.
func (s ServerConfig) MaxUploadBytes() int64 {
	return s.MaxUploadMB << 20
}
