package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/futig/workspace-agent/internal/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

const (
	insertChunkQuery = `
INSERT INTO chunks (id, text, type, meta, embedding, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	insertRecordQuery = `
INSERT INTO records (id, type, text, meta, created_at)
VALUES ($1, $2, $3, $4, $5)`

	recentChunksQuery = `
SELECT id, text, type, meta, created_at
FROM chunks
WHERE $1::text = ''
   OR strpos(LOWER(meta->>'resumeFileName'), LOWER($1::text)) > 0
   OR strpos(LOWER(meta->>'uploadedFileName'), LOWER($1::text)) > 0
ORDER BY created_at DESC
LIMIT $2`

	exactFileChunksQuery = `
SELECT id, text, type, meta, created_at
FROM chunks
WHERE LOWER(meta->>'resumeFileName') = LOWER($1)
   OR LOWER(meta->>'uploadedFileName') = LOWER($1)
ORDER BY created_at DESC
LIMIT $2`

	vectorSearchQuery = `
SELECT id, text, type, meta, created_at, 1 - (embedding <=> $1) AS score
FROM chunks
WHERE embedding IS NOT NULL
ORDER BY embedding <=> $1
LIMIT $2`

	sampleChunksQuery = `
SELECT id, text, type, meta, created_at, embedding
FROM chunks
WHERE embedding IS NOT NULL
ORDER BY created_at DESC
LIMIT $1`
)

var _ ChunkRepository = &ChunkPostgres{}

// ChunkPostgres implements ChunkRepository on PostgreSQL with pgvector.
type ChunkPostgres struct {
	db *pgxpool.Pool
}

func NewChunkPostgres(db *pgxpool.Pool) *ChunkPostgres {
	return &ChunkPostgres{db: db}
}

func (r *ChunkPostgres) SaveChunks(ctx context.Context, chunks []entity.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, c := range chunks {
		id, err := chunkID(c.ID)
		if err != nil {
			return err
		}

		var embedding *pgvector.Vector
		if len(c.Embedding) > 0 {
			v := pgvector.NewVector(c.Embedding)
			embedding = &v
		}

		batch.Queue(insertChunkQuery, id, c.Text, string(c.Type), c.Meta, embedding, createdAt(c.CreatedAt))
	}

	if err := r.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert chunks: %w", err)
	}

	return nil
}

func (r *ChunkPostgres) SaveRecord(ctx context.Context, record entity.Record) error {
	id, err := chunkID(record.ID)
	if err != nil {
		return err
	}

	meta := record.Meta
	if meta == nil {
		meta = map[string]string{}
	}

	if _, err := r.db.Exec(ctx, insertRecordQuery, id, record.Type, record.Text, meta, createdAt(record.CreatedAt)); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}

	return nil
}

func (r *ChunkPostgres) Recent(ctx context.Context, fileName string, limit int) ([]entity.Chunk, error) {
	rows, err := r.db.Query(ctx, recentChunksQuery, fileName, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent chunks: %w", err)
	}

	return collectChunks(rows)
}

func (r *ChunkPostgres) ByFileName(ctx context.Context, fileName string, exact bool, limit int) ([]entity.Chunk, error) {
	if !exact {
		return r.Recent(ctx, fileName, limit)
	}

	rows, err := r.db.Query(ctx, exactFileChunksQuery, fileName, limit)
	if err != nil {
		return nil, fmt.Errorf("query chunks by file: %w", err)
	}

	return collectChunks(rows)
}

func (r *ChunkPostgres) SearchByVector(ctx context.Context, vector []float32, limit int) ([]entity.Chunk, error) {
	rows, err := r.db.Query(ctx, vectorSearchQuery, pgvector.NewVector(vector), limit)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	chunks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.Chunk, error) {
		var c entity.Chunk
		var id uuid.UUID
		var chunkType string
		if err := row.Scan(&id, &c.Text, &chunkType, &c.Meta, &c.CreatedAt, &c.Score); err != nil {
			return c, err
		}
		c.ID = id.String()
		c.Type = entity.ChunkType(chunkType)
		return c, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan vector search: %w", err)
	}

	return chunks, nil
}

func (r *ChunkPostgres) Sample(ctx context.Context, limit int) ([]entity.Chunk, error) {
	rows, err := r.db.Query(ctx, sampleChunksQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("query chunk sample: %w", err)
	}

	chunks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.Chunk, error) {
		var c entity.Chunk
		var id uuid.UUID
		var chunkType string
		var embedding pgvector.Vector
		if err := row.Scan(&id, &c.Text, &chunkType, &c.Meta, &c.CreatedAt, &embedding); err != nil {
			return c, err
		}
		c.ID = id.String()
		c.Type = entity.ChunkType(chunkType)
		c.Embedding = embedding.Slice()
		return c, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan chunk sample: %w", err)
	}

	return chunks, nil
}

func collectChunks(rows pgx.Rows) ([]entity.Chunk, error) {
	chunks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.Chunk, error) {
		var c entity.Chunk
		var id uuid.UUID
		var chunkType string
		if err := row.Scan(&id, &c.Text, &chunkType, &c.Meta, &c.CreatedAt); err != nil {
			return c, err
		}
		c.ID = id.String()
		c.Type = entity.ChunkType(chunkType)
		return c, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan chunks: %w", err)
	}

	return chunks, nil
}

func chunkID(id string) (uuid.UUID, error) {
	if id == "" {
		return uuid.New(), nil
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse ID %q: %w", id, err)
	}
	return parsed, nil
}

func createdAt(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
