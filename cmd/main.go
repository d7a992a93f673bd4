package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"document-rag/internal/config"
	"document-rag/internal/embedding"
	"document-rag/internal/llmservice"
	"document-rag/internal/metrics"
	"document-rag/internal/parser"
	"document-rag/internal/rag"
)

const configFilePath = "./configs/config.yaml"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "document-rag",
	Short: "Chat with a single uploaded document",
	Long: `document-rag indexes one PDF, Word or Excel document at a time and answers
questions about it with a local language model.

Examples:
  # Start the web server
  document-rag serve

  # Index a file and ask one question from the terminal
  document-rag ask --file manual.pdf --query "How often is the filter replaced?"`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// a missing .env is fine, variables may come from the environment
		_ = godotenv.Load()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", configFilePath, "Path to the YAML config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.Log)
	log.Debug().Interface("config", cfg).Msg("Loaded config")
	return cfg, nil
}

func setupLogging(logConfig config.LogConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	level, err := zerolog.ParseLevel(strings.ToLower(logConfig.Level))
	if err != nil || logConfig.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if logConfig.Console {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()
	}
}

// app is the wired pipeline shared by the serve and ask commands.
type app struct {
	state   *rag.IndexState
	indexer *rag.Indexer
	rag     *rag.RAG
	models  *llmservice.ModelLister
	metrics *metrics.Metrics
}

func newApp(cfg *config.Config) (*app, error) {
	extractor := parser.NewExtractor(cfg.Upload.Formats, parser.DefaultSpan)
	splitter := parser.NewSplitter(cfg.RAG)
	embedders := embedding.NewEmbedders(cfg.EmbedLLM)
	chats := llmservice.NewChatModels(cfg.LLM)
	state := rag.NewIndexState()
	m := metrics.New()

	indexer, err := rag.NewIndexer(cfg.Upload.Workers, extractor, splitter, embedders, chats, state, m)
	if err != nil {
		return nil, fmt.Errorf("failed to create indexer: %w", err)
	}
	return &app{
		state:   state,
		indexer: indexer,
		rag:     rag.NewRAG(state, chats, cfg.RAG),
		models:  llmservice.NewModelLister(cfg.LLM),
		metrics: m,
	}, nil
}

func (a *app) close() {
	a.indexer.Release()
}
