package retrieval

import (
	"context"
	"fmt"

	"github.com/futig/workspace-agent/internal/entity"
	"github.com/futig/workspace-agent/internal/repository"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	defaultLimit = 10
	sampleSize   = 1000
)

// Query describes one retrieval. Vector takes precedence over Text; with
// RecentOnly set both are ignored.
type Query struct {
	Vector     []float32
	Text       string
	FileName   string
	Limit      int
	RecentOnly bool
}

// Index answers similarity and metadata queries over stored chunks.
type Index struct {
	store    repository.ChunkRepository
	embedder Embedder
}

func NewIndex(store repository.ChunkRepository, embedder Embedder) *Index {
	return &Index{
		store:    store,
		embedder: embedder,
	}
}

func (ix *Index) Query(ctx context.Context, q Query) ([]entity.Chunk, error) {
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}

	if q.RecentOnly {
		chunks, err := ix.store.Recent(ctx, q.FileName, q.Limit)
		if err != nil {
			return nil, fmt.Errorf("recent chunks: %w", err)
		}
		return chunks, nil
	}

	vector := q.Vector
	if len(vector) == 0 && q.Text != "" && ix.embedder != nil {
		v, err := ix.embedder.Embed(ctx, q.Text)
		if err != nil {
			ctxzap.Warn(ctx, "query embedding failed, using metadata filter", zap.Error(err))
		}
		vector = v
	}

	if len(vector) > 0 {
		return ix.similar(ctx, vector, q.FileName, q.Limit)
	}

	return ix.byMetadata(ctx, q.FileName, q.Limit)
}

// similar falls back to metadata when no stored chunk carries an embedding.
func (ix *Index) similar(ctx context.Context, vector []float32, fileName string, limit int) ([]entity.Chunk, error) {
	chunks, err := ix.store.SearchByVector(ctx, vector, limit)
	if err == nil && len(chunks) > 0 {
		return chunks, nil
	}
	if err != nil {
		ctxzap.Warn(ctx, "vector search failed, ranking sample in process", zap.Error(err))
	}

	sample, err := ix.store.Sample(ctx, sampleSize)
	if err != nil {
		return nil, fmt.Errorf("sample chunks: %w", err)
	}
	if len(sample) == 0 {
		ctxzap.Debug(ctx, "no embedded chunks, using metadata")
		return ix.byMetadata(ctx, fileName, limit)
	}

	ctxzap.Debug(ctx, "ranking chunk sample", zap.Int("sample", len(sample)))
	return rankByCosine(sample, vector, limit), nil
}

// byMetadata tries an exact file name, then a partial one, then the newest
// chunks of any file.
func (ix *Index) byMetadata(ctx context.Context, fileName string, limit int) ([]entity.Chunk, error) {
	if fileName != "" {
		for _, exact := range []bool{true, false} {
			chunks, err := ix.store.ByFileName(ctx, fileName, exact, limit)
			if err != nil {
				return nil, fmt.Errorf("chunks by file name: %w", err)
			}
			if len(chunks) > 0 {
				return chunks, nil
			}
		}
	}

	chunks, err := ix.store.Recent(ctx, "", limit)
	if err != nil {
		return nil, fmt.Errorf("recent chunks: %w", err)
	}
	return chunks, nil
}

func (ix *Index) Persist(ctx context.Context, chunks []entity.Chunk) error {
	if err := ix.store.SaveChunks(ctx, chunks); err != nil {
		return fmt.Errorf("persist chunks: %w", err)
	}
	return nil
}

func (ix *Index) PersistRecord(ctx context.Context, record entity.Record) error {
	if err := ix.store.SaveRecord(ctx, record); err != nil {
		return fmt.Errorf("persist record: %w", err)
	}
	return nil
}
