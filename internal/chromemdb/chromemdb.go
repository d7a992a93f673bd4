package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"document-rag/internal/models"
)

const collectionName = "document"

// Meta describes what an index was built from.
type Meta struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Chunks    int       `json:"chunks"`
	Dimension int       `json:"dimension"`
	BuiltAt   time.Time `json:"built_at"`
}

// Index is an in-memory, build-once vector index over one document's chunks.
// It is never modified after Build returns, so it is safe for concurrent search.
type Index struct {
	collection *chromem.Collection
	chunks     []models.Chunk
	meta       Meta
}

// Result is one retrieved chunk, ranked by cosine similarity.
type Result struct {
	Chunk      models.Chunk
	Similarity float32
}

// Build creates a fresh index from chunks and their vectors. embedQuery is
// used to embed query text at search time and must be the same model that
// produced vectors.
func Build(ctx context.Context, meta Meta, chunks []models.Chunk, vectors [][]float32, embedQuery chromem.EmbeddingFunc) (*Index, error) {
	if len(chunks) == 0 {
		return nil, models.ErrEmptyInput
	}
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("chunks and vectors length mismatch: %d != %d", len(chunks), len(vectors))
	}
	if embedQuery == nil {
		return nil, errors.New("query embedding function is required")
	}

	dim := len(vectors[0])
	if dim == 0 {
		return nil, errors.New("empty embedding vector")
	}
	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		if len(vectors[i]) != dim {
			return nil, fmt.Errorf("vector dimension mismatch at chunk %d: %d != %d", i, len(vectors[i]), dim)
		}
		docs[i] = chromem.Document{
			ID:        strconv.Itoa(i),
			Content:   c.Content,
			Metadata:  map[string]string{"chunk_id": strconv.Itoa(c.ChunkID), "source": meta.Source},
			Embedding: vectors[i],
		}
	}

	db := chromem.NewDB()
	collection, err := db.CreateCollection(collectionName, map[string]string{"source": meta.Source}, embedQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}
	if err := collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return nil, fmt.Errorf("failed to add documents: %w", err)
	}

	meta.Chunks = len(chunks)
	meta.Dimension = dim
	if meta.BuiltAt.IsZero() {
		meta.BuiltAt = time.Now()
	}
	log.Debug().Str("index", meta.ID).Int("chunks", meta.Chunks).Int("dimension", dim).Msg("Built vector index")

	return &Index{
		collection: collection,
		chunks:     append([]models.Chunk(nil), chunks...),
		meta:       meta,
	}, nil
}

// Query embeds text with the index's embedding function and returns the k
// nearest chunks, best first.
func (i *Index) Query(ctx context.Context, text string, k int) ([]Result, error) {
	if text == "" {
		return nil, models.ErrEmptyQuery
	}
	results, err := i.collection.Query(ctx, text, i.clamp(k), nil, nil)
	if err != nil {
		return nil, models.Upstream("search", err)
	}
	return i.toResults(results), nil
}

// Search returns the k nearest chunks to an already embedded query.
func (i *Index) Search(ctx context.Context, vector []float32, k int) ([]Result, error) {
	if len(vector) != i.meta.Dimension {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(vector), i.meta.Dimension)
	}
	results, err := i.collection.QueryEmbedding(ctx, vector, i.clamp(k), nil, nil)
	if err != nil {
		return nil, models.Upstream("search", err)
	}
	return i.toResults(results), nil
}

// chromem rejects nResults larger than the collection
func (i *Index) clamp(k int) int {
	if k < 1 {
		k = models.DefaultTopK
	}
	return min(k, len(i.chunks))
}

func (i *Index) toResults(results []chromem.Result) []Result {
	out := make([]Result, 0, len(results))
	for _, r := range results {
		pos, err := strconv.Atoi(r.ID)
		if err != nil || pos < 0 || pos >= len(i.chunks) {
			continue
		}
		out = append(out, Result{Chunk: i.chunks[pos], Similarity: r.Similarity})
	}
	return out
}

func (i *Index) Meta() Meta {
	return i.meta
}

// Chunks returns a copy of the indexed chunks in document order.
func (i *Index) Chunks() []models.Chunk {
	return append([]models.Chunk(nil), i.chunks...)
}

func (i *Index) Len() int {
	return len(i.chunks)
}
