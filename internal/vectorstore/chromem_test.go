package vectorstore

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// keywordEmbedder produces deterministic unit vectors from keyword
// counts so similarity ordering in tests is predictable.
type keywordEmbedder struct {
	keywords []string
}

func newKeywordEmbedder() *keywordEmbedder {
	return &keywordEmbedder{keywords: []string{"apple", "banana", "cherry"}}
}

func (e *keywordEmbedder) embed(text string) []float32 {
	vec := make([]float32, len(e.keywords)+1)
	lower := strings.ToLower(text)
	for i, kw := range e.keywords {
		vec[i] = float32(strings.Count(lower, kw))
	}
	vec[len(e.keywords)] = 0.1

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

func (e *keywordEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.embed(t)
	}
	return out, nil
}

func (e *keywordEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return e.embed(text), nil
}

func newTestChromemStore(t *testing.T) *ChromemStore {
	t.Helper()

	store, err := NewChromemStore(ChromemConfig{
		Path:       t.TempDir(),
		Collection: "documents",
		VectorSize: 4,
	}, newKeywordEmbedder(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.EnsureCollection(context.Background()))
	return store
}

func TestNewChromemStore(t *testing.T) {
	t.Run("creates store with defaults", func(t *testing.T) {
		store, err := NewChromemStore(ChromemConfig{Path: t.TempDir()}, newKeywordEmbedder(), zap.NewNop())
		require.NoError(t, err)
		defer store.Close()

		assert.Equal(t, "documents", store.config.Collection)
		assert.Equal(t, 1536, store.config.VectorSize)
	})

	t.Run("rejects nil embedder", func(t *testing.T) {
		_, err := NewChromemStore(ChromemConfig{Path: t.TempDir()}, nil, zap.NewNop())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("rejects invalid collection name", func(t *testing.T) {
		_, err := NewChromemStore(ChromemConfig{
			Path:       t.TempDir(),
			Collection: "Not Valid!",
		}, newKeywordEmbedder(), zap.NewNop())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidCollectionName)
	})
}

func TestChromemStore_AddDocuments(t *testing.T) {
	ctx := context.Background()

	t.Run("adds documents and assigns ids", func(t *testing.T) {
		store := newTestChromemStore(t)

		ids, err := store.AddDocuments(ctx, []Document{
			{Content: "apple pie recipe", Metadata: map[string]interface{}{
				MetaSource:      "recipes.pdf",
				MetaChunkIndex:  0,
				MetaTotalChunks: 2,
			}},
			{Content: "banana bread recipe", Metadata: map[string]interface{}{
				MetaSource:      "recipes.pdf",
				MetaChunkIndex:  1,
				MetaTotalChunks: 2,
			}},
		})
		require.NoError(t, err)
		require.Len(t, ids, 2)
		assert.NotEqual(t, ids[0], ids[1])

		info, err := store.Info(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, info.PointCount)
	})

	t.Run("preserves caller-provided ids", func(t *testing.T) {
		store := newTestChromemStore(t)

		ids, err := store.AddDocuments(ctx, []Document{
			{ID: "chunk-7", Content: "cherry tart"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"chunk-7"}, ids)
	})

	t.Run("rejects empty batch", func(t *testing.T) {
		store := newTestChromemStore(t)

		_, err := store.AddDocuments(ctx, nil)
		assert.ErrorIs(t, err, ErrEmptyDocuments)
	})

	t.Run("appends across batches", func(t *testing.T) {
		store := newTestChromemStore(t)

		_, err := store.AddDocuments(ctx, []Document{{Content: "apple one"}})
		require.NoError(t, err)
		_, err = store.AddDocuments(ctx, []Document{{Content: "banana two"}})
		require.NoError(t, err)

		info, err := store.Info(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, info.PointCount)
	})
}

func TestChromemStore_Search(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, store *ChromemStore) {
		t.Helper()
		_, err := store.AddDocuments(ctx, []Document{
			{Content: "apple apple apple", Metadata: map[string]interface{}{MetaSource: "a.pdf"}},
			{Content: "banana banana", Metadata: map[string]interface{}{MetaSource: "b.pdf"}},
			{Content: "cherry", Metadata: map[string]interface{}{MetaSource: "c.pdf"}},
		})
		require.NoError(t, err)
	}

	t.Run("ranks by similarity", func(t *testing.T) {
		store := newTestChromemStore(t)
		seed(t, store)

		results, err := store.Search(ctx, "apple", 3)
		require.NoError(t, err)
		require.Len(t, results, 3)

		assert.Equal(t, "apple apple apple", results[0].Content)
		assert.Equal(t, "a.pdf", results[0].Metadata[MetaSource])
		for i := 1; i < len(results); i++ {
			assert.LessOrEqual(t, results[i].Score, results[i-1].Score)
		}
	})

	t.Run("restores chunk counters as ints", func(t *testing.T) {
		store := newTestChromemStore(t)

		_, err := store.AddDocuments(ctx, []Document{
			{Content: "apple", Metadata: map[string]interface{}{
				MetaSource:      "a.pdf",
				MetaChunkIndex:  2,
				MetaTotalChunks: 3,
			}},
		})
		require.NoError(t, err)

		results, err := store.Search(ctx, "apple", 1)
		require.NoError(t, err)
		require.Len(t, results, 1)

		assert.Equal(t, "a.pdf", results[0].Metadata[MetaSource])
		assert.Equal(t, 2, results[0].Metadata[MetaChunkIndex])
		assert.Equal(t, 3, results[0].Metadata[MetaTotalChunks])
	})

	t.Run("caps k at collection size", func(t *testing.T) {
		store := newTestChromemStore(t)
		seed(t, store)

		results, err := store.Search(ctx, "banana", 10)
		require.NoError(t, err)
		assert.Len(t, results, 3)
	})

	t.Run("empty collection returns no results", func(t *testing.T) {
		store := newTestChromemStore(t)

		results, err := store.Search(ctx, "apple", 4)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("rejects invalid arguments", func(t *testing.T) {
		store := newTestChromemStore(t)

		_, err := store.Search(ctx, "", 4)
		assert.Error(t, err)

		_, err = store.Search(ctx, "apple", 0)
		assert.Error(t, err)
	})
}

func TestChromemStore_Persistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewChromemStore(ChromemConfig{Path: dir, VectorSize: 4}, newKeywordEmbedder(), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.EnsureCollection(ctx))

	_, err = store.AddDocuments(ctx, []Document{{Content: "apple on disk"}})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewChromemStore(ChromemConfig{Path: dir, VectorSize: 4}, newKeywordEmbedder(), zap.NewNop())
	require.NoError(t, err)
	defer reopened.Close()
	require.NoError(t, reopened.EnsureCollection(ctx))

	info, err := reopened.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, info.PointCount)
}
