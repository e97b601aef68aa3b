package document

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/futig/workspace-agent/internal/config"
	"github.com/futig/workspace-agent/internal/entity"
	"github.com/futig/workspace-agent/internal/pkg/logger"
	"github.com/futig/workspace-agent/internal/pkg/validator"
	"github.com/futig/workspace-agent/internal/repository"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const uploadAcceptedMessage = "File uploaded successfully. Processing in background..."

// DocumentUsecase stores uploads and indexes them in the background.
type DocumentUsecase struct {
	index    Indexer
	embedder Embedder
	mappings repository.FileMappingStore
	cfg      config.UploadConfig
	now      func() time.Time

	background sync.WaitGroup
}

func NewUsecase(
	index Indexer,
	embedder Embedder,
	mappings repository.FileMappingStore,
	cfg config.UploadConfig,
) *DocumentUsecase {
	return &DocumentUsecase{
		index:    index,
		embedder: embedder,
		mappings: mappings,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Upload stores the file, extracts and chunks it, and returns as soon as the
// chunk count is known. Embedding and persistence continue in the background.
func (uc *DocumentUsecase) Upload(ctx context.Context, file entity.UploadedFile, body io.Reader) (*entity.UploadResponse, error) {
	stored, err := uc.store(file, body)
	if err != nil {
		return nil, err
	}

	ctx = logger.AddFields(ctx,
		zap.String("original_name", stored.OriginalName),
		zap.String("stored_file", stored.StoredFileName),
		zap.String("kind", string(stored.Kind)),
	)

	doc, err := extract(stored)
	if err != nil {
		_ = os.Remove(stored.StoredPath)
		return nil, fmt.Errorf("extract %s: %w", stored.OriginalName, err)
	}

	chunks := Chunk(doc)

	if stored.Kind == entity.FileKindCSV {
		mapping := entity.FileMapping{
			OriginalName:   stored.OriginalName,
			StoredPath:     stored.StoredPath,
			StoredFileName: stored.StoredFileName,
			Timestamp:      uc.now(),
		}
		if err := uc.mappings.Put(ctx, mapping); err != nil {
			ctxzap.Warn(ctx, "failed to store file mapping", zap.Error(err))
		}
	}

	ctxzap.Info(ctx, "upload accepted", zap.Int("chunks", len(chunks)))

	bgCtx := logger.Detach(ctx, zap.String("stage", "background"))
	uc.background.Add(1)
	go func() {
		defer uc.background.Done()
		uc.process(bgCtx, chunks, stored)
	}()

	return &entity.UploadResponse{
		Message:      uploadAcceptedMessage,
		Chunks:       len(chunks),
		FilePath:     stored.StoredPath,
		FileName:     stored.StoredFileName,
		OriginalName: stored.OriginalName,
		Processing:   true,
	}, nil
}

// Wait blocks until every background pipeline started so far has finished.
func (uc *DocumentUsecase) Wait() {
	uc.background.Wait()
}

func (uc *DocumentUsecase) store(file entity.UploadedFile, body io.Reader) (entity.UploadedFile, error) {
	if err := os.MkdirAll(uc.cfg.Dir, 0o755); err != nil {
		return file, fmt.Errorf("create upload dir: %w", err)
	}

	file.StoredFileName = fmt.Sprintf("%d-%s-%s",
		uc.now().UnixMilli(), uuid.NewString()[:8], validator.SanitizeFilename(file.OriginalName))

	path, err := filepath.Abs(filepath.Join(uc.cfg.Dir, file.StoredFileName))
	if err != nil {
		return file, fmt.Errorf("resolve upload path: %w", err)
	}
	file.StoredPath = path

	out, err := os.Create(path)
	if err != nil {
		return file, fmt.Errorf("create upload file: %w", err)
	}
	defer out.Close()

	written, err := io.Copy(out, io.LimitReader(body, uc.cfg.MaxUploadSize+1))
	if err != nil {
		_ = os.Remove(path)
		return file, fmt.Errorf("write upload file: %w", err)
	}
	if written > uc.cfg.MaxUploadSize {
		_ = os.Remove(path)
		return file, entity.ErrFileTooLarge
	}
	file.Size = written

	return file, nil
}

func extract(file entity.UploadedFile) (entity.ExtractedDocument, error) {
	switch file.Kind {
	case entity.FileKindPDF:
		return ExtractPDF(file.StoredPath)
	case entity.FileKindCSV:
		return ExtractCSVFile(file.StoredPath)
	default:
		return entity.ExtractedDocument{}, entity.ErrUnsupportedFile
	}
}

// process embeds the chunks, persists them and removes processed PDFs.
// Faults are logged only; the client already has its response.
func (uc *DocumentUsecase) process(ctx context.Context, chunks []entity.Chunk, file entity.UploadedFile) {
	started := uc.now()

	embedded := uc.embed(ctx, chunks)

	uploadedAt := uc.now().UTC().Format(time.RFC3339)
	for i := range embedded {
		embedded[i].Meta.ResumeFileName = file.OriginalName
		embedded[i].Meta.UploadedFileName = file.StoredFileName
		embedded[i].Meta.FileType = file.ContentType
		embedded[i].Meta.UploadedAt = uploadedAt
	}

	if err := uc.index.Persist(ctx, embedded); err != nil {
		ctxzap.Error(ctx, "failed to persist chunks", zap.Error(err))
	} else {
		ctxzap.Info(ctx, "upload processed",
			zap.Int("chunks", len(embedded)),
			zap.Duration("duration", uc.now().Sub(started)),
		)
	}

	if file.Kind == entity.FileKindPDF {
		if err := os.Remove(file.StoredPath); err != nil && !os.IsNotExist(err) {
			ctxzap.Warn(ctx, "failed to remove processed pdf", zap.Error(err))
		}
	}
}

// embed fills chunk embeddings in fixed-size groups, waiting for each group
// before starting the next. A chunk whose embedding fails is kept without one.
func (uc *DocumentUsecase) embed(ctx context.Context, chunks []entity.Chunk) []entity.Chunk {
	out := make([]entity.Chunk, len(chunks))
	copy(out, chunks)

	batch := max(uc.cfg.EmbedBatch, 1)
	failed := 0
	var mu sync.Mutex

	for start := 0; start < len(out); start += batch {
		end := min(start+batch, len(out))

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				vec, err := uc.embedder.Embed(ctx, out[i].Text)
				if err != nil {
					mu.Lock()
					failed++
					mu.Unlock()
					ctxzap.Warn(ctx, "chunk embedding failed", zap.Int("chunk", i), zap.Error(err))
					return nil
				}
				out[i].Embedding = vec
				return nil
			})
		}
		_ = g.Wait()
	}

	if failed > 0 {
		ctxzap.Warn(ctx, "some chunks stored without embeddings", zap.Int("failed", failed), zap.Int("total", len(out)))
	}
	return out
}
