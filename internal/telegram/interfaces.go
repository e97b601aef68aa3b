package telegram

import (
	"context"
	"io"

	"github.com/futig/workspace-agent/internal/entity"
	"github.com/futig/workspace-agent/internal/telegram/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// API is the subset of *tgbotapi.BotAPI the bot uses.
type API interface {
	middleware.Sender
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type Runner interface {
	Run(ctx context.Context, req entity.RunRequest, progress chan<- entity.ProgressEvent) entity.RunResult
}

type DocumentUsecase interface {
	Upload(ctx context.Context, file entity.UploadedFile, body io.Reader) (*entity.UploadResponse, error)
}
