package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/futig/workspace-agent/internal/entity"
	"github.com/futig/workspace-agent/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	embedFn func(ctx context.Context, text string) ([]float32, error)
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.embedFn(ctx, text)
}

// failingVectorStore wraps the memory store and breaks SearchByVector.
type failingVectorStore struct {
	*repository.ChunkMemory
	searchCalls int
}

func (s *failingVectorStore) SearchByVector(context.Context, []float32, int) ([]entity.Chunk, error) {
	s.searchCalls++
	return nil, errors.New("operator does not exist: vector <=> vector")
}

func seed(t *testing.T, store repository.ChunkRepository) {
	t.Helper()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveChunks(context.Background(), []entity.Chunk{
		{Text: "go developer", Embedding: []float32{1, 0}, Meta: entity.ChunkMeta{ResumeFileName: "jane.pdf"}, CreatedAt: base},
		{Text: "sales numbers", Embedding: []float32{0, 1}, Meta: entity.ChunkMeta{ResumeFileName: "q3.csv"}, CreatedAt: base.Add(time.Minute)},
		{Text: "jane summary", Embedding: []float32{0.9, 0.1}, Meta: entity.ChunkMeta{ResumeFileName: "jane_old.pdf"}, CreatedAt: base.Add(2 * time.Minute)},
	}))
}

func TestIndex_RecentOnly(t *testing.T) {
	store := repository.NewChunkMemory()
	seed(t, store)

	got, err := NewIndex(store, nil).Query(context.Background(), Query{RecentOnly: true, FileName: "JANE", Limit: 5})

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "jane summary", got[0].Text)
	assert.Equal(t, "go developer", got[1].Text)
}

func TestIndex_VectorFallsBackToCosine(t *testing.T) {
	store := &failingVectorStore{ChunkMemory: repository.NewChunkMemory()}
	seed(t, store)

	got, err := NewIndex(store, nil).Query(context.Background(), Query{Vector: []float32{1, 0}, Limit: 2})

	require.NoError(t, err)
	assert.Equal(t, 1, store.searchCalls)
	require.Len(t, got, 2)
	assert.Equal(t, "go developer", got[0].Text)
	assert.InDelta(t, 1.0, got[0].Score, 1e-6)
	assert.Equal(t, "jane summary", got[1].Text)
}

func TestIndex_NoEmbeddedChunksUsesMetadata(t *testing.T) {
	store := repository.NewChunkMemory()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveChunks(context.Background(), []entity.Chunk{
		{Text: "older", Meta: entity.ChunkMeta{ResumeFileName: "a.pdf"}, CreatedAt: base},
		{Text: "newer", Meta: entity.ChunkMeta{ResumeFileName: "b.pdf"}, CreatedAt: base.Add(time.Minute)},
	}))

	got, err := NewIndex(store, nil).Query(context.Background(), Query{Vector: []float32{1, 0}, Limit: 5})
	require.NoError(t, err)

	var texts []string
	for _, c := range got {
		texts = append(texts, c.Text)
	}
	assert.Equal(t, []string{"newer", "older"}, texts)
}

func TestIndex_TextIsEmbedded(t *testing.T) {
	store := repository.NewChunkMemory()
	seed(t, store)

	embedder := &fakeEmbedder{embedFn: func(_ context.Context, text string) ([]float32, error) {
		assert.Equal(t, "quarterly sales", text)
		return []float32{0, 1}, nil
	}}

	got, err := NewIndex(store, embedder).Query(context.Background(), Query{Text: "quarterly sales", Limit: 1})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "sales numbers", got[0].Text)
}

func TestIndex_MetadataFallback(t *testing.T) {
	down := &fakeEmbedder{embedFn: func(context.Context, string) ([]float32, error) {
		return nil, entity.ErrProvidersExhausted
	}}

	tests := []struct {
		name     string
		fileName string
		want     []string
	}{
		{name: "exact name wins over partial", fileName: "Jane.pdf", want: []string{"go developer"}},
		{name: "partial name", fileName: "jane_o", want: []string{"jane summary"}},
		{name: "no file name gives newest", want: []string{"jane summary", "sales numbers", "go developer"}},
		{name: "unknown file gives newest", fileName: "missing.pdf", want: []string{"jane summary", "sales numbers", "go developer"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := repository.NewChunkMemory()
			seed(t, store)

			got, err := NewIndex(store, down).Query(context.Background(), Query{Text: "anything", FileName: tt.fileName, Limit: 5})
			require.NoError(t, err)

			var texts []string
			for _, c := range got {
				texts = append(texts, c.Text)
			}
			assert.Equal(t, tt.want, texts)
		})
	}
}

func TestIndex_PersistRecord(t *testing.T) {
	store := repository.NewChunkMemory()
	ix := NewIndex(store, nil)

	require.NoError(t, ix.PersistRecord(context.Background(), entity.Record{Type: entity.RecordTypeEmailDraft, Text: "<p>offer</p>"}))
	require.NoError(t, ix.Persist(context.Background(), []entity.Chunk{{Text: "a"}}))

	assert.Len(t, store.Records(), 1)
	recent, err := ix.Query(context.Background(), Query{RecentOnly: true})
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}
