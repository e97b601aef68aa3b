package agent

import (
	"context"

	"github.com/futig/workspace-agent/internal/entity"
)

type Runner interface {
	Run(ctx context.Context, req entity.RunRequest, progress chan<- entity.ProgressEvent) entity.RunResult
}

type FallbackAnswerer interface {
	Stream(ctx context.Context, question string, chunks []entity.Chunk, onChunk func(string)) (string, error)
}
