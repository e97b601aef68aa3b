package upload

import (
	"context"
	"io"

	"github.com/futig/workspace-agent/internal/entity"
)

type DocumentUsecase interface {
	Upload(ctx context.Context, file entity.UploadedFile, body io.Reader) (*entity.UploadResponse, error)
}
