package rag

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"document-rag/internal/chromemdb"
	"document-rag/internal/embedding"
	"document-rag/internal/helper"
	"document-rag/internal/llmservice"
	"document-rag/internal/metrics"
	"document-rag/internal/models"
	"document-rag/internal/parser"
	"document-rag/internal/progress"
)

// Progress milestones after extraction, which owns parser.DefaultSpan.
const (
	pctReceived   = 2
	pctChunking   = 38
	pctChunked    = 40
	pctEmbedded   = 90
	pctIndexing   = 95
	internalError = "Internal error while indexing the document"
)

// Indexer runs the upload pipeline (extract, chunk, embed, build) on a worker
// pool and publishes the result to an IndexState. With one worker, uploads
// are indexed one at a time in arrival order.
type Indexer struct {
	extractor *parser.Extractor
	splitter  parser.Splitter
	embedders *embedding.Embedders
	chats     *llmservice.ChatModels
	state     *IndexState
	metrics   *metrics.Metrics
	pool      *ants.Pool
	pending   atomic.Int32
}

func NewIndexer(workers int, extractor *parser.Extractor, splitter parser.Splitter, embedders *embedding.Embedders, chats *llmservice.ChatModels, state *IndexState, m *metrics.Metrics) (*Indexer, error) {
	if workers < 1 {
		workers = 1
	}
	pool, err := ants.NewPool(workers, ants.WithPanicHandler(func(p interface{}) {
		log.Error().Interface("panic", p).Msg("Indexing worker panic recovered")
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to create indexing pool: %w", err)
	}
	return &Indexer{
		extractor: extractor,
		splitter:  splitter,
		embedders: embedders,
		chats:     chats,
		state:     state,
		metrics:   m,
		pool:      pool,
	}, nil
}

// Submit validates doc and queues it for indexing. The returned stream always
// ends with an error or complete event followed by close. The work is not
// tied to ctx's cancellation: a client that disconnects does not stop it.
func (ix *Indexer) Submit(ctx context.Context, doc models.Document, model string) *progress.Stream {
	if err := ix.extractor.Check(doc); err != nil {
		ix.metrics.UploadFinished(metrics.OutcomeError, 0)
		return progress.Failed(models.UserMessage(err))
	}

	stream := progress.NewStream()
	if int(ix.pending.Add(1)) > ix.pool.Cap() {
		stream.Progress(0, "Waiting for previous upload to finish")
	}

	ctx = context.WithoutCancel(ctx)
	go func() {
		err := ix.pool.Submit(func() {
			defer stream.Close()
			// pending must drop before Close
			defer ix.pending.Add(-1)
			ix.index(ctx, doc, model, stream)
		})
		if err != nil {
			ix.pending.Add(-1)
			log.Error().Err(err).Str("file", doc.Name).Msg("Could not schedule indexing")
			ix.metrics.UploadFinished(metrics.OutcomeError, 0)
			stream.Fail("The indexer is not accepting uploads")
			stream.Close()
		}
	}()
	return stream
}

// index runs the pipeline for doc, reporting to stream. On success the new
// index is published; on failure the previous one stays.
func (ix *Indexer) index(ctx context.Context, doc models.Document, model string, stream *progress.Stream) {
	uploadID, err := helper.GenerateUUID()
	if err != nil {
		uploadID = fmt.Sprintf("upload-%d", time.Now().UnixNano())
	}
	logger := log.With().Str("upload", uploadID).Str("file", doc.Name).Logger()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("Indexing panicked")
			ix.metrics.UploadFinished(metrics.OutcomeError, 0)
			stream.Fail(internalError)
		}
	}()

	logger.Info().Str("format", string(doc.Format)).Int("bytes", len(doc.Data)).Str("model", model).Msg("Indexing document")
	stream.Progress(pctReceived, fmt.Sprintf("Upload received: %s", doc.Name))

	idx, err := ix.build(ctx, uploadID, doc, model, stream, logger)
	if err != nil {
		logger.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("Indexing failed")
		ix.metrics.UploadFinished(metrics.OutcomeError, 0)
		stream.Fail(models.UserMessage(err))
		return
	}

	previous := ix.state.publish(idx)
	ix.metrics.IndexPublished(idx.Len())
	ix.metrics.UploadFinished(metrics.OutcomeSuccess, time.Since(start).Seconds())
	ev := logger.Info().Int("chunks", idx.Len()).Dur("elapsed", time.Since(start))
	if previous != nil {
		ev = ev.Str("replaced", previous.Meta().ID)
	}
	ev.Msg("Published index")

	// warm the chat client the user picked; a failure here surfaces on /chat
	if _, err := ix.chats.Get(model); err != nil {
		logger.Warn().Err(err).Str("model", model).Msg("Could not prepare chat model")
	}

	stream.Complete("Indexing complete")
}

func (ix *Indexer) build(ctx context.Context, uploadID string, doc models.Document, model string, stream *progress.Stream, logger zerolog.Logger) (*chromemdb.Index, error) {
	content, err := ix.extractor.Extract(doc, stream.Progress)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, models.ErrEmptyInput
	}
	logger.Debug().Int("chars", len(content)).Msg("Extracted text")

	stream.Progress(pctChunking, "Chunking text")
	chunks, err := ix.splitter.Split(content)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, models.ErrEmptyInput
	}
	stream.Progress(pctChunked, fmt.Sprintf("Chunked into %d chunks", len(chunks)))

	embedder, err := ix.embedders.For(model)
	if err != nil {
		return nil, err
	}
	vectors, err := ix.embedders.GenerateEmbedding(ctx, embedder, chunks, func(done, total int) {
		pct := pctChunked + (pctEmbedded-pctChunked)*done/total
		stream.Progress(pct, fmt.Sprintf("Embedding chunks %d/%d", done, total))
	})
	if err != nil {
		return nil, err
	}

	stream.Progress(pctIndexing, "Building vector index")
	idx, err := chromemdb.Build(ctx, chromemdb.Meta{ID: uploadID, Source: doc.Name}, chunks, vectors, embedder.EmbedQuery)
	if err != nil {
		return nil, models.Upstream("vector index", err)
	}
	return idx, nil
}

// Release stops the worker pool. Uploads still waiting for a worker fail.
func (ix *Indexer) Release() {
	ix.pool.Release()
}
