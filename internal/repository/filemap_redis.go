package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/futig/workspace-agent/internal/entity"
	"github.com/redis/go-redis/v9"
)

const fileMappingsKey = "workspace-agent:file-mappings"

var _ FileMappingStore = &FileMappingRedis{}

// FileMappingRedis keeps mappings in a Redis hash so several instances share
// them.
type FileMappingRedis struct {
	client *redis.Client
}

func NewFileMappingRedis(client *redis.Client) *FileMappingRedis {
	return &FileMappingRedis{client: client}
}

func (r *FileMappingRedis) Put(ctx context.Context, mapping entity.FileMapping) error {
	data, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("marshal file mapping: %w", err)
	}

	if err := r.client.HSet(ctx, fileMappingsKey, mappingKey(mapping.OriginalName), data).Err(); err != nil {
		return fmt.Errorf("save file mapping: %w", err)
	}
	return nil
}

func (r *FileMappingRedis) Lookup(ctx context.Context, name string) (entity.FileMapping, bool, error) {
	data, err := r.client.HGet(ctx, fileMappingsKey, mappingKey(name)).Bytes()
	switch {
	case err == nil:
		var m entity.FileMapping
		if err := json.Unmarshal(data, &m); err != nil {
			return entity.FileMapping{}, false, fmt.Errorf("unmarshal file mapping: %w", err)
		}
		return m, true, nil
	case !errors.Is(err, redis.Nil):
		return entity.FileMapping{}, false, fmt.Errorf("get file mapping: %w", err)
	}

	all, err := r.List(ctx)
	if err != nil {
		return entity.FileMapping{}, false, err
	}
	m, ok := partialMatch(all, name)
	return m, ok, nil
}

func (r *FileMappingRedis) List(ctx context.Context) ([]entity.FileMapping, error) {
	values, err := r.client.HGetAll(ctx, fileMappingsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list file mappings: %w", err)
	}

	out := make([]entity.FileMapping, 0, len(values))
	for key, raw := range values {
		var m entity.FileMapping
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("unmarshal file mapping %q: %w", key, err)
		}
		out = append(out, m)
	}
	return out, nil
}
