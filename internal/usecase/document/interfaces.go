package document

import (
	"context"

	"github.com/futig/workspace-agent/internal/entity"
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Indexer interface {
	Persist(ctx context.Context, chunks []entity.Chunk) error
}
