package upload

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/futig/workspace-agent/internal/config"
	"github.com/futig/workspace-agent/internal/entity"
	"github.com/futig/workspace-agent/internal/pkg/logger"
	"github.com/futig/workspace-agent/internal/pkg/response"
	"github.com/futig/workspace-agent/internal/pkg/validator"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	fileField = "file"

	// multipart framing on top of the file itself
	formOverhead = 1 << 20
	// parts above this size are spooled to disk by the multipart reader
	formMemory = 8 << 20
)

type Handler struct {
	usecase   DocumentUsecase
	cfg       config.UploadConfig
	validator *validator.Validator
}

func NewHandler(usecase DocumentUsecase, cfg config.UploadConfig, validator *validator.Validator) *Handler {
	return &Handler{
		usecase:   usecase,
		cfg:       cfg,
		validator: validator,
	}
}

// Upload handles POST /api/upload
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Upload")

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadSize+formOverhead)
	if err := r.ParseMultipartForm(formMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondError(ctx, w, http.StatusBadRequest, h.tooLargeMessage(), err)
			return
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			h.respondError(ctx, w, http.StatusBadRequest, fmt.Sprintf("Upload error: %v", err), err)
			return
		}
	}

	fh := firstFile(r)
	kind, err := h.validator.ValidateUpload(fh)
	if err != nil {
		h.handleValidationError(ctx, w, err)
		return
	}

	file, err := fh.Open()
	if err != nil {
		h.respondError(ctx, w, http.StatusInternalServerError, "Failed to process file", err)
		return
	}
	defer file.Close()

	upload := entity.UploadedFile{
		OriginalName: fh.Filename,
		ContentType:  fh.Header.Get("Content-Type"),
		Kind:         kind,
		Size:         fh.Size,
	}

	ctxzap.Info(ctx, "uploading file",
		zap.String("original_name", upload.OriginalName),
		zap.String("kind", string(kind)),
		zap.Int64("size", upload.Size),
	)

	resp, err := h.usecase.Upload(ctx, upload, file)
	if err != nil {
		h.respondError(ctx, w, http.StatusInternalServerError, "Failed to process file", err)
		return
	}

	response.Success(w, resp)
}

func firstFile(r *http.Request) *multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	files := r.MultipartForm.File[fileField]
	if len(files) == 0 {
		return nil
	}
	return files[0]
}

func (h *Handler) handleValidationError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrNoFile):
		h.respondError(ctx, w, http.StatusBadRequest, "No file uploaded", err)
	case errors.Is(err, entity.ErrFileTooLarge):
		h.respondError(ctx, w, http.StatusBadRequest, h.tooLargeMessage(), err)
	case errors.Is(err, entity.ErrUnsupportedFile):
		h.respondError(ctx, w, http.StatusBadRequest, "Unsupported file format", err)
	default:
		h.respondError(ctx, w, http.StatusBadRequest, err.Error(), err)
	}
}

func (h *Handler) tooLargeMessage() string {
	return fmt.Sprintf("File size must be less than %dMB", h.cfg.MaxUploadSize>>20)
}

func (h *Handler) respondError(ctx context.Context, w http.ResponseWriter, status int, message string, err error) {
	if status >= http.StatusInternalServerError {
		ctxzap.Error(ctx, message, zap.Error(err))
	} else {
		ctxzap.Warn(ctx, message, zap.Error(err))
	}
	response.Error(w, status, message)
}
