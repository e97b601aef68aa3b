package analysis

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/futig/workspace-agent/internal/config"
	"github.com/futig/workspace-agent/internal/entity"
	"github.com/futig/workspace-agent/internal/repository"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const csvExt = ".csv"

// Locator finds the uploaded CSV a data request refers to.
type Locator struct {
	mappings repository.FileMappingStore
	dir      string
}

func NewLocator(mappings repository.FileMappingStore, cfg config.UploadConfig) *Locator {
	return &Locator{
		mappings: mappings,
		dir:      cfg.Dir,
	}
}

// Choose picks the CSV for message: the explicit reference if given, else
// the newest upload named in the message, else the newest upload. It returns
// entity.ErrFileNotFound when no CSV has been uploaded.
func (l *Locator) Choose(ctx context.Context, message, ref string) (string, error) {
	if ref != "" {
		return ref, nil
	}

	all, err := l.mappings.List(ctx)
	if err != nil {
		return "", fmt.Errorf("list file mappings: %w", err)
	}

	var csvs []entity.FileMapping
	for _, m := range all {
		if hasCSVExt(m.OriginalName) || hasCSVExt(m.StoredPath) {
			csvs = append(csvs, m)
		}
	}
	if len(csvs) == 0 {
		return "", entity.ErrFileNotFound
	}

	slices.SortStableFunc(csvs, func(a, b entity.FileMapping) int {
		return b.Timestamp.Compare(a.Timestamp)
	})

	msg := strings.ToLower(message)
	for _, m := range csvs {
		name := strings.ToLower(m.OriginalName)
		base := strings.TrimSuffix(name, csvExt)
		if name != "" && (strings.Contains(msg, name) || (base != "" && strings.Contains(msg, base))) {
			return m.StoredPath, nil
		}
	}

	return csvs[0].StoredPath, nil
}

// Resolve turns a file reference into an existing path. An absolute path is
// taken as is only inside the upload directory or when it is a stored upload;
// any other reference goes by its base name through the mapping store, then
// the upload directory, then a partial name scan of that directory.
func (l *Locator) Resolve(ctx context.Context, ref string) (string, error) {
	if filepath.IsAbs(ref) {
		if l.inUploadDir(ref) || l.isStoredUpload(ctx, ref) {
			return existing(ref)
		}
		ctxzap.Warn(ctx, "absolute path outside uploads, resolving by name", zap.String("path", ref))
	}

	name := filepath.Base(ref)

	m, ok, err := l.mappings.Lookup(ctx, name)
	if err != nil {
		ctxzap.Warn(ctx, "file mapping lookup failed", zap.String("name", name), zap.Error(err))
	}
	if ok {
		if path, err := existing(m.StoredPath); err == nil {
			return path, nil
		}
	}

	if path, err := existing(filepath.Join(l.dir, name)); err == nil {
		return path, nil
	}

	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return "", fmt.Errorf("%w: %s", entity.ErrFileNotFound, name)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if strings.Contains(e.Name(), name) || (stem != "" && strings.Contains(name, stem)) {
			return filepath.Join(l.dir, e.Name()), nil
		}
	}

	return "", fmt.Errorf("%w: %s", entity.ErrFileNotFound, name)
}

func (l *Locator) inUploadDir(path string) bool {
	dir, err := filepath.Abs(l.dir)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(dir, filepath.Clean(path))
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (l *Locator) isStoredUpload(ctx context.Context, path string) bool {
	all, err := l.mappings.List(ctx)
	if err != nil {
		return false
	}
	path = filepath.Clean(path)
	for _, m := range all {
		if m.StoredPath != "" && filepath.Clean(m.StoredPath) == path {
			return true
		}
	}
	return false
}

func existing(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %s", entity.ErrFileNotFound, path)
	}
	return path, nil
}

func hasCSVExt(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), csvExt)
}

