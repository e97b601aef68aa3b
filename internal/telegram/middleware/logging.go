package middleware

import (
	"context"
	"time"

	"github.com/futig/workspace-agent/internal/pkg/logger"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Logging scopes the context logger to the update and logs its outcome.
func Logging(ctx context.Context, update tgbotapi.Update, next Next) {
	start := time.Now()
	userID, chatID := ids(update)

	ctx = logger.AddFields(ctx,
		zap.Int("update_id", update.UpdateID),
		zap.Int64("user_id", userID),
		zap.Int64("chat_id", chatID),
	)

	ctxzap.Info(ctx, "telegram update received", zap.String("type", updateType(update)))

	next(ctx, update)

	ctxzap.Info(ctx, "telegram update processed", zap.Duration("duration", time.Since(start)))
}

func updateType(update tgbotapi.Update) string {
	switch {
	case update.Message == nil:
		return "other"
	case update.Message.Document != nil:
		return "document"
	case update.Message.IsCommand():
		return "command"
	case update.Message.Text != "":
		return "text"
	default:
		return "other"
	}
}
