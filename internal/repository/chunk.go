package repository

import (
	"context"
	"strings"

	"github.com/futig/workspace-agent/internal/entity"
)

// ChunkRepository persists chunks and draft records.
type ChunkRepository interface {
	SaveChunks(ctx context.Context, chunks []entity.Chunk) error
	SaveRecord(ctx context.Context, record entity.Record) error
	// Recent returns the newest chunks, optionally limited to files whose
	// name contains fileName (case-insensitive).
	Recent(ctx context.Context, fileName string, limit int) ([]entity.Chunk, error)
	// ByFileName returns the newest chunks of a file matched exactly or,
	// when exact is false, partially (both case-insensitive).
	ByFileName(ctx context.Context, fileName string, exact bool, limit int) ([]entity.Chunk, error)
	SearchByVector(ctx context.Context, vector []float32, limit int) ([]entity.Chunk, error)
	// Sample returns up to limit of the newest embedded chunks.
	Sample(ctx context.Context, limit int) ([]entity.Chunk, error)
}

func fileNames(meta entity.ChunkMeta) []string {
	return []string{meta.ResumeFileName, meta.UploadedFileName}
}

func matchesFile(meta entity.ChunkMeta, fileName string, exact bool) bool {
	want := strings.ToLower(fileName)
	for _, name := range fileNames(meta) {
		if name == "" {
			continue
		}
		have := strings.ToLower(name)
		if have == want || (!exact && strings.Contains(have, want)) {
			return true
		}
	}
	return false
}
