package middleware

import (
	"context"
	"runtime/debug"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const recoveredReply = "Something went wrong while handling your message. Please try again."

// Recovery turns a handler panic into a log entry and an apology in chat.
func Recovery(sender Sender) func(ctx context.Context, update tgbotapi.Update, next Next) {
	return func(ctx context.Context, update tgbotapi.Update, next Next) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			ctxzap.Error(ctx, "panic recovered in telegram handler",
				zap.Any("panic", r),
				zap.String("stack", string(debug.Stack())),
			)

			if _, chatID := ids(update); chatID != 0 {
				if _, err := sender.Send(tgbotapi.NewMessage(chatID, recoveredReply)); err != nil {
					ctxzap.Error(ctx, "failed to send error message", zap.Error(err))
				}
			}
		}()

		next(ctx, update)
	}
}
