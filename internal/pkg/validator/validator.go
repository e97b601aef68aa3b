package validator

import (
	"fmt"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/futig/workspace-agent/internal/config"
	"github.com/futig/workspace-agent/internal/entity"
)

var contentTypeKinds = map[string]entity.FileKind{
	"application/pdf":          entity.FileKindPDF,
	"text/csv":                 entity.FileKindCSV,
	"application/csv":          entity.FileKindCSV,
	"application/vnd.ms-excel": entity.FileKindCSV,
}

var extensionKinds = map[string]entity.FileKind{
	".pdf": entity.FileKindPDF,
	".csv": entity.FileKindCSV,
}

// Validator validates inbound requests
type Validator struct {
	cfg config.UploadConfig
}

func New(cfg config.UploadConfig) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateUpload checks size and kind of an uploaded file. The content type
// decides the kind; the extension is consulted only for generic types.
func (v *Validator) ValidateUpload(fh *multipart.FileHeader) (entity.FileKind, error) {
	if fh == nil {
		return "", entity.ErrNoFile
	}

	if fh.Size > v.cfg.MaxUploadSize {
		return "", fmt.Errorf("%w: file '%s' is %d bytes (max %d)", entity.ErrFileTooLarge, fh.Filename, fh.Size, v.cfg.MaxUploadSize)
	}

	kind, ok := FileKind(fh.Header.Get("Content-Type"), fh.Filename)
	if !ok {
		return "", fmt.Errorf("%w: %s", entity.ErrUnsupportedFile, fh.Filename)
	}

	return kind, nil
}

// FileKind resolves the kind of a file from its content type and name.
func FileKind(contentType, filename string) (entity.FileKind, bool) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err == nil {
		if kind, ok := contentTypeKinds[strings.ToLower(mediaType)]; ok {
			return kind, true
		}
	}

	switch strings.ToLower(mediaType) {
	case "", "application/octet-stream", "text/plain":
		kind, ok := extensionKinds[strings.ToLower(filepath.Ext(filename))]
		return kind, ok
	}

	return "", false
}

// ValidateRunRequest validates an agent run request
func (v *Validator) ValidateRunRequest(req *entity.RunRequest) error {
	if strings.TrimSpace(req.UserMessage) == "" {
		return fmt.Errorf("%w: userMessage", entity.ErrMissingField)
	}
	return nil
}

func (v *Validator) ValidateSendEmail(req *entity.SendEmailRequest) error {
	if req.To == "" {
		return fmt.Errorf("%w: to", entity.ErrMissingField)
	}
	if req.Subject == "" {
		return fmt.Errorf("%w: subject", entity.ErrMissingField)
	}
	if req.HTML == "" {
		return fmt.Errorf("%w: html", entity.ErrMissingField)
	}
	return nil
}

// SanitizeFilename sanitizes a filename for safe storage
func SanitizeFilename(filename string) string {
	filename = filepath.Base(filename)
	replacer := strings.NewReplacer(
		" ", "_",
		"(", "",
		")", "",
		"[", "",
		"]", "",
		"{", "",
		"}", "",
	)
	return replacer.Replace(filename)
}
