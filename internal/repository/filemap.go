package repository

import (
	"context"
	"strings"

	"github.com/futig/workspace-agent/internal/entity"
)

// FileMappingStore associates original upload names with stored files.
// Keys are case-insensitive and a repeated Put overwrites the entry.
type FileMappingStore interface {
	Put(ctx context.Context, mapping entity.FileMapping) error
	// Lookup finds a mapping by exact name, then by partial match in either
	// direction.
	Lookup(ctx context.Context, name string) (entity.FileMapping, bool, error)
	List(ctx context.Context) ([]entity.FileMapping, error)
}

func mappingKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// partialMatch picks the newest mapping whose key contains name or is
// contained in it.
func partialMatch(mappings []entity.FileMapping, name string) (entity.FileMapping, bool) {
	want := mappingKey(name)
	if want == "" {
		return entity.FileMapping{}, false
	}

	var best entity.FileMapping
	found := false
	for _, m := range mappings {
		key := mappingKey(m.OriginalName)
		if key == "" {
			continue
		}
		if !strings.Contains(key, want) && !strings.Contains(want, key) {
			continue
		}
		if !found || m.Timestamp.After(best.Timestamp) {
			best, found = m, true
		}
	}
	return best, found
}
