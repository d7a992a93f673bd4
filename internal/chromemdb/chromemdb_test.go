package chromemdb

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-rag/internal/models"
)

// unit returns a normalized 2-d vector at angle deg.
func unit(deg float64) []float32 {
	rad := deg * math.Pi / 180
	return []float32{float32(math.Cos(rad)), float32(math.Sin(rad))}
}

func fixture() ([]models.Chunk, [][]float32) {
	chunks := []models.Chunk{
		{Content: "cats purr", ChunkID: 1},
		{Content: "dogs bark", ChunkID: 2},
		{Content: "birds sing", ChunkID: 3},
		{Content: "fish swim", ChunkID: 4},
	}
	vectors := [][]float32{unit(0), unit(30), unit(70), unit(120)}
	return chunks, vectors
}

// angleEmbedder maps known query strings onto fixed angles.
func angleEmbedder(angles map[string]float64) func(context.Context, string) ([]float32, error) {
	return func(_ context.Context, text string) ([]float32, error) {
		a, ok := angles[text]
		if !ok {
			return nil, errors.New("unknown query")
		}
		return unit(a), nil
	}
}

func TestBuildAndSearch(t *testing.T) {
	ctx := context.Background()
	chunks, vectors := fixture()
	idx, err := Build(ctx, Meta{ID: "u1", Source: "pets.pdf"}, chunks, vectors, angleEmbedder(nil))
	require.NoError(t, err)

	meta := idx.Meta()
	assert.Equal(t, 4, meta.Chunks)
	assert.Equal(t, 2, meta.Dimension)
	assert.Equal(t, "pets.pdf", meta.Source)
	assert.False(t, meta.BuiltAt.IsZero())
	assert.Equal(t, chunks, idx.Chunks())

	results, err := idx.Search(ctx, unit(25), 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "dogs bark", results[0].Chunk.Content)
	assert.Equal(t, "cats purr", results[1].Chunk.Content)
	assert.Equal(t, "birds sing", results[2].Chunk.Content)
	assert.GreaterOrEqual(t, results[0].Similarity, results[1].Similarity)
}

func TestRebuildIsDeterministic(t *testing.T) {
	ctx := context.Background()
	chunks, vectors := fixture()
	var orders [][]string
	for i := 0; i < 2; i++ {
		idx, err := Build(ctx, Meta{ID: "u"}, chunks, vectors, angleEmbedder(nil))
		require.NoError(t, err)
		results, err := idx.Search(ctx, unit(100), 4)
		require.NoError(t, err)
		var order []string
		for _, r := range results {
			order = append(order, r.Chunk.Content)
		}
		orders = append(orders, order)
	}
	assert.Equal(t, orders[0], orders[1])
}

func TestQueryEmbedsText(t *testing.T) {
	ctx := context.Background()
	chunks, vectors := fixture()
	idx, err := Build(ctx, Meta{ID: "u"}, chunks, vectors, angleEmbedder(map[string]float64{"which swims?": 125}))
	require.NoError(t, err)

	results, err := idx.Query(ctx, "which swims?", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "fish swim", results[0].Chunk.Content)
	assert.Equal(t, 4, results[0].Chunk.ChunkID)

	_, err = idx.Query(ctx, "unknown", 1)
	var upstream *models.UpstreamError
	assert.ErrorAs(t, err, &upstream)
}

func TestSearchClampsK(t *testing.T) {
	ctx := context.Background()
	chunks, vectors := fixture()
	idx, err := Build(ctx, Meta{ID: "u"}, chunks[:2], vectors[:2], angleEmbedder(nil))
	require.NoError(t, err)

	results, err := idx.Search(ctx, unit(0), 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = idx.Search(ctx, unit(0), 0)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestBuildValidation(t *testing.T) {
	ctx := context.Background()
	chunks, vectors := fixture()
	emb := angleEmbedder(nil)

	_, err := Build(ctx, Meta{}, nil, nil, emb)
	assert.ErrorIs(t, err, models.ErrEmptyInput)

	_, err = Build(ctx, Meta{}, chunks, vectors[:3], emb)
	assert.Error(t, err)

	bad := append([][]float32(nil), vectors...)
	bad[2] = []float32{1, 0, 0}
	_, err = Build(ctx, Meta{}, chunks, bad, emb)
	assert.ErrorContains(t, err, "dimension mismatch")

	_, err = Build(ctx, Meta{}, chunks, vectors, nil)
	assert.Error(t, err)

	idx, err := Build(ctx, Meta{}, chunks, vectors, emb)
	require.NoError(t, err)
	_, err = idx.Search(ctx, []float32{1, 0, 0}, 1)
	assert.Error(t, err)
}
