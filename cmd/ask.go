package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"document-rag/internal/helper"
	"document-rag/internal/models"
	"document-rag/internal/progress"
)

var (
	askFile  string
	askQuery string
	askModel string
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Index a file and answer one question about it",
	Long: `Index a file and answer one question about it.

Examples:
  document-rag ask --file report.docx --query "Who signed the report?"
  document-rag ask --file sales.xlsx --query "Which region sold most?" --model gemma`,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askFile, "file", "", "Path to the document file")
	askCmd.Flags().StringVar(&askQuery, "query", "", "Question to answer")
	askCmd.Flags().StringVar(&askModel, "model", "", "Chat model (defaults to llm.model)")
	_ = askCmd.MarkFlagRequired("file")
	_ = askCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	data, err := os.ReadFile(askFile)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", askFile, err)
	}
	name := filepath.Base(askFile)
	doc := models.Document{Name: name, Format: models.FormatFromFilename(name), Data: data}

	ctx := context.Background()
	stream := a.indexer.Submit(ctx, doc, askModel)
	for {
		ev, err := stream.Next(ctx)
		if errors.Is(err, progress.ErrClosed) {
			break
		}
		if err != nil {
			return err
		}
		if ev.Error != "" {
			return errors.New(ev.Error)
		}
		log.Info().Int("progress", ev.Percent()).Msg(ev.Message)
	}

	resp, err := a.rag.Query(ctx, askQuery, askModel)
	if err != nil {
		return errors.New(models.UserMessage(err))
	}
	helper.PrettyPrint(resp)
	return nil
}
