package repository

import (
	"context"

	"github.com/futig/workspace-agent/internal/entity"
	"github.com/patrickmn/go-cache"
)

var _ FileMappingStore = &FileMappingCache{}

// FileMappingCache is the in-process mapping store. Entries never expire.
type FileMappingCache struct {
	cache *cache.Cache
}

func NewFileMappingCache() *FileMappingCache {
	return &FileMappingCache{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

func (r *FileMappingCache) Put(_ context.Context, mapping entity.FileMapping) error {
	r.cache.Set(mappingKey(mapping.OriginalName), mapping, cache.NoExpiration)
	return nil
}

func (r *FileMappingCache) Lookup(ctx context.Context, name string) (entity.FileMapping, bool, error) {
	if x, found := r.cache.Get(mappingKey(name)); found {
		return x.(entity.FileMapping), true, nil
	}

	all, _ := r.List(ctx)
	m, ok := partialMatch(all, name)
	return m, ok, nil
}

func (r *FileMappingCache) List(context.Context) ([]entity.FileMapping, error) {
	items := r.cache.Items()
	out := make([]entity.FileMapping, 0, len(items))
	for _, item := range items {
		out = append(out, item.Object.(entity.FileMapping))
	}
	return out, nil
}
