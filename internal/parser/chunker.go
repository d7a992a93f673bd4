package parser

import (
	"fmt"
	"strings"

	"document-rag/internal/config"
	"document-rag/internal/models"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	defaultChunkSize    = 500
	defaultChunkOverlap = 50
)

type Splitter interface {
	Split(content string) ([]models.Chunk, error)
}

// NewSplitter builds the splitter selected by cfg.ChunkStrategy.
func NewSplitter(cfg config.RAGConfig) Splitter {
	size, overlap := cfg.ChunkSize, cfg.ChunkOverlap
	if size <= 0 {
		size, overlap = defaultChunkSize, defaultChunkOverlap
	}
	if cfg.ChunkStrategy == config.StrategyRecursive {
		return &RecursiveSplitter{
			splitter: textsplitter.NewRecursiveCharacter(
				textsplitter.WithChunkSize(size),
				textsplitter.WithChunkOverlap(overlap),
			),
		}
	}
	return &WindowSplitter{Size: size, Overlap: overlap}
}

// WindowSplitter cuts fixed character windows where each window starts with
// exactly the last Overlap characters of the previous one.
type WindowSplitter struct {
	Size    int
	Overlap int
}

func (w *WindowSplitter) Split(content string) ([]models.Chunk, error) {
	parts, err := chunkContent(content, w.Size, w.Overlap)
	if err != nil {
		return nil, err
	}
	return toChunks(parts), nil
}

// RecursiveSplitter delegates to langchaingo's recursive character splitter.
// Its overlap is approximate because it splits on separators first.
type RecursiveSplitter struct {
	splitter textsplitter.RecursiveCharacter
}

func (r *RecursiveSplitter) Split(content string) ([]models.Chunk, error) {
	if strings.TrimSpace(content) == "" {
		return nil, models.ErrEmptyInput
	}
	parts, err := r.splitter.SplitText(content)
	if err != nil {
		return nil, fmt.Errorf("failed to split text: %w", err)
	}
	if len(parts) == 0 {
		return nil, models.ErrEmptyInput
	}
	return toChunks(parts), nil
}

func toChunks(parts []string) []models.Chunk {
	chunks := make([]models.Chunk, len(parts))
	for i, p := range parts {
		chunks[i] = models.Chunk{Content: p, ChunkID: i + 1}
	}
	return chunks
}

// chunk content into chunks with maxChars and overlapChars
//
// Lengths are counted in runes. A window may end early at a space, newline or
// period found in its last tenth, but never so early that the next window
// would not advance.
func chunkContent(content string, maxChars, overlapChars int) ([]string, error) {
	if strings.TrimSpace(content) == "" {
		return nil, models.ErrEmptyInput
	}
	if maxChars <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", maxChars)
	}
	if overlapChars < 0 {
		overlapChars = 0
	}
	if overlapChars >= maxChars {
		overlapChars = maxChars / 2
	}

	runes := []rune(content)
	contentLen := len(runes)
	if contentLen <= maxChars {
		return []string{content}, nil
	}

	var chunks []string
	start := 0
	for {
		end := min(start+maxChars, contentLen)

		if end < contentLen {
			lookBack := maxChars / 10
			for i := end - 1; i >= end-lookBack && i-start >= overlapChars; i-- {
				if runes[i] == ' ' || runes[i] == '\n' || runes[i] == '.' {
					end = i + 1
					break
				}
			}
		}

		chunks = append(chunks, string(runes[start:end]))
		if end >= contentLen {
			break
		}
		start = end - overlapChars
	}
	return chunks, nil
}
