package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/futig/workspace-agent/internal/entity"
	"github.com/futig/workspace-agent/internal/pkg/validator"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	unsupportedFileText = "Unsupported file format. Please send a PDF or CSV file."
	uploadFailedText    = "Failed to process file. Please try again."
)

// handleDocument feeds a PDF or CSV document into the upload pipeline.
func (b *Bot) handleDocument(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	doc := msg.Document
	ctx = ctxzap.ToContext(ctx, ctxzap.Extract(ctx).With(
		zap.String("file_name", doc.FileName),
		zap.Int("file_size", doc.FileSize),
	))

	kind, ok := validator.FileKind(doc.MimeType, doc.FileName)
	if !ok {
		b.reply(ctx, chatID, unsupportedFileText)
		return
	}

	if int64(doc.FileSize) > b.uploadCfg.MaxUploadSize {
		b.reply(ctx, chatID, fmt.Sprintf("File size must be less than %dMB", b.uploadCfg.MaxUploadSize>>20))
		return
	}

	_, _ = b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatUploadDocument))

	body, err := b.downloadFile(ctx, doc.FileID)
	if err != nil {
		ctxzap.Error(ctx, "failed to download document", zap.Error(err))
		b.reply(ctx, chatID, uploadFailedText)
		return
	}
	defer body.Close()

	contentType := doc.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	resp, err := b.documents.Upload(ctx, entity.UploadedFile{
		OriginalName: doc.FileName,
		ContentType:  contentType,
		Kind:         kind,
		Size:         int64(doc.FileSize),
	}, io.LimitReader(body, b.uploadCfg.MaxUploadSize))
	if err != nil {
		ctxzap.Error(ctx, "failed to upload document", zap.Error(err))
		b.reply(ctx, chatID, uploadFailedText)
		return
	}

	text := fmt.Sprintf("Got %s: %d chunks extracted.", resp.OriginalName, resp.Chunks)
	if resp.Processing {
		text += " Indexing continues in the background."
	}
	b.reply(ctx, chatID, text)
}

// downloadFile opens the Telegram file over HTTPS. The caller closes the body.
func (b *Bot) downloadFile(ctx context.Context, fileID string) (io.ReadCloser, error) {
	fileURL, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("get file url: %w", err)
	}

	parsedURL, err := url.Parse(fileURL)
	if err != nil {
		return nil, fmt.Errorf("invalid file URL: %w", err)
	}
	if parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("insecure URL scheme: %s (expected https)", parsedURL.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := b.download.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return resp.Body, nil
}
