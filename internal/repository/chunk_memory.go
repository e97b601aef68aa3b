package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/futig/workspace-agent/internal/entity"
	"github.com/google/uuid"
)

var _ ChunkRepository = &ChunkMemory{}

// ChunkMemory keeps chunks and records in process memory. It is used when no
// database is configured.
type ChunkMemory struct {
	mu      sync.RWMutex
	chunks  []entity.Chunk
	records []entity.Record
}

func NewChunkMemory() *ChunkMemory {
	return &ChunkMemory{}
}

func (r *ChunkMemory) SaveChunks(_ context.Context, chunks []entity.Chunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range chunks {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		c.CreatedAt = createdAt(c.CreatedAt)
		c.Embedding = slices.Clone(c.Embedding)
		r.chunks = append(r.chunks, c)
	}
	return nil
}

func (r *ChunkMemory) SaveRecord(_ context.Context, record entity.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record.CreatedAt = createdAt(record.CreatedAt)
	r.records = append(r.records, record)
	return nil
}

// Records returns a copy of the stored records.
func (r *ChunkMemory) Records() []entity.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.records)
}

func (r *ChunkMemory) Recent(_ context.Context, fileName string, limit int) ([]entity.Chunk, error) {
	return r.newest(limit, func(c entity.Chunk) bool {
		return fileName == "" || matchesFile(c.Meta, fileName, false)
	}), nil
}

func (r *ChunkMemory) ByFileName(_ context.Context, fileName string, exact bool, limit int) ([]entity.Chunk, error) {
	return r.newest(limit, func(c entity.Chunk) bool {
		return matchesFile(c.Meta, fileName, exact)
	}), nil
}

// SearchByVector always returns no rows: the memory store has no vector
// index, so callers rank a Sample instead.
func (r *ChunkMemory) SearchByVector(context.Context, []float32, int) ([]entity.Chunk, error) {
	return nil, nil
}

func (r *ChunkMemory) Sample(_ context.Context, limit int) ([]entity.Chunk, error) {
	return r.newest(limit, func(c entity.Chunk) bool {
		return len(c.Embedding) > 0
	}), nil
}

func (r *ChunkMemory) newest(limit int, keep func(entity.Chunk) bool) []entity.Chunk {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []entity.Chunk
	for i := len(r.chunks) - 1; i >= 0; i-- {
		if keep(r.chunks[i]) {
			out = append(out, r.chunks[i])
		}
	}

	// Later inserts win ties.
	slices.SortStableFunc(out, func(a, b entity.Chunk) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
