package middleware

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the part of the bot API the middleware replies through.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Next func(ctx context.Context, update tgbotapi.Update)

// Chain wraps h so that the first middleware runs outermost.
func Chain(h Next, middlewares ...func(ctx context.Context, update tgbotapi.Update, next Next)) Next {
	for i := len(middlewares) - 1; i >= 0; i-- {
		mw, next := middlewares[i], h
		h = func(ctx context.Context, update tgbotapi.Update) {
			mw(ctx, update, next)
		}
	}
	return h
}

func ids(update tgbotapi.Update) (userID, chatID int64) {
	if update.Message != nil {
		if update.Message.From != nil {
			userID = update.Message.From.ID
		}
		if update.Message.Chat != nil {
			chatID = update.Message.Chat.ID
		}
	}
	return userID, chatID
}
