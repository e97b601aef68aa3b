package analysis

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/futig/workspace-agent/internal/config"
	"github.com/futig/workspace-agent/internal/entity"
	"github.com/futig/workspace-agent/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingMappings struct {
	repository.FileMappingStore
}

func (failingMappings) List(context.Context) ([]entity.FileMapping, error) {
	return nil, errors.New("redis down")
}

func newTestLocator(t *testing.T, dir string, mappings ...entity.FileMapping) *Locator {
	t.Helper()
	store := repository.NewFileMappingCache()
	for _, m := range mappings {
		require.NoError(t, store.Put(context.Background(), m))
	}
	return NewLocator(store, config.UploadConfig{Dir: dir})
}

func TestLocator_Choose(t *testing.T) {
	t1 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	mappings := []entity.FileMapping{
		{OriginalName: "sales_q1.csv", StoredPath: "/u/1-sales_q1.csv", Timestamp: t1},
		{OriginalName: "sales_q2.csv", StoredPath: "/u/2-sales_q2.csv", Timestamp: t2},
		{OriginalName: "resume.pdf", StoredPath: "/u/3-resume.pdf", Timestamp: t2.Add(time.Hour)},
	}

	tests := []struct {
		name    string
		message string
		ref     string
		want    string
	}{
		{name: "explicit reference", message: "csv", ref: "other.csv", want: "other.csv"},
		{name: "newest when none mentioned", message: "csv", want: "/u/2-sales_q2.csv"},
		{name: "mentioned by full name", message: "plot SALES_Q1.csv please", want: "/u/1-sales_q1.csv"},
		{name: "mentioned by base name", message: "trend in sales_q1", want: "/u/1-sales_q1.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLocator(t, t.TempDir(), mappings...)

			got, err := l.Choose(context.Background(), tt.message, tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocator_Choose_NoCSV(t *testing.T) {
	l := newTestLocator(t, t.TempDir(), entity.FileMapping{OriginalName: "cv.pdf", StoredPath: "/u/cv.pdf", Timestamp: time.Now()})

	_, err := l.Choose(context.Background(), "analyze", "")
	assert.ErrorIs(t, err, entity.ErrFileNotFound)
}

func TestLocator_Choose_ListError(t *testing.T) {
	l := NewLocator(failingMappings{}, config.UploadConfig{Dir: t.TempDir()})

	_, err := l.Choose(context.Background(), "analyze", "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, entity.ErrFileNotFound)
}

func TestLocator_Resolve(t *testing.T) {
	dir := t.TempDir()
	stored := writeFile(t, dir, "1700-abcd1234-report.csv", "a,b\n1,2\n")
	plain := writeFile(t, dir, "plain.csv", "a,b\n1,2\n")

	l := newTestLocator(t, dir, entity.FileMapping{
		OriginalName:   "Report.csv",
		StoredPath:     stored,
		StoredFileName: filepath.Base(stored),
		Timestamp:      time.Now(),
	})

	tests := []struct {
		name    string
		ref     string
		want    string
		wantErr bool
	}{
		{name: "absolute existing", ref: plain, want: plain},
		{name: "absolute missing", ref: filepath.Join(dir, "gone.csv"), wantErr: true},
		{name: "mapped original name", ref: "report.csv", want: stored},
		{name: "upload dir", ref: "plain.csv", want: plain},
		{name: "directory scan", ref: "some/dir/1700-abcd1234-report", want: stored},
		{name: "not found", ref: "nothing.csv", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := l.Resolve(context.Background(), tt.ref)
			if tt.wantErr {
				assert.ErrorIs(t, err, entity.ErrFileNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocator_ResolveAbsoluteOutsideUploads(t *testing.T) {
	dir := t.TempDir()
	outside := writeFile(t, t.TempDir(), "secret.csv", "k,v\npassword,hunter2\n")
	mappedElsewhere := writeFile(t, t.TempDir(), "1700-ffff-kpi.csv", "a,b\n1,2\n")

	l := newTestLocator(t, dir, entity.FileMapping{
		OriginalName: "kpi.csv",
		StoredPath:   mappedElsewhere,
		Timestamp:    time.Now(),
	})

	_, err := l.Resolve(context.Background(), outside)
	assert.ErrorIs(t, err, entity.ErrFileNotFound)

	got, err := l.Resolve(context.Background(), mappedElsewhere)
	require.NoError(t, err)
	assert.Equal(t, mappedElsewhere, got)

	// An outside path whose name is an upload resolves to the upload.
	local := writeFile(t, dir, "secret.csv", "a,b\n1,2\n")
	got, err = l.Resolve(context.Background(), outside)
	require.NoError(t, err)
	assert.Equal(t, local, got)
}
