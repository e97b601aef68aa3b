package telegram

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/futig/workspace-agent/internal/config"
	"github.com/futig/workspace-agent/internal/pkg/formatter"
	"github.com/futig/workspace-agent/internal/telegram/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	downloadTimeout = 60 * time.Second
	cleanupInterval = 10 * time.Minute
)

// Bot is a Telegram chat channel for the agent. Text messages run the agent;
// PDF and CSV documents go through the upload pipeline.
type Bot struct {
	api       API
	runner    Runner
	documents DocumentUsecase
	exporter  formatter.Formatter
	cfg       config.TelegramConfig
	uploadCfg config.UploadConfig
	download  *http.Client
	limiter   *middleware.RateLimiter
	handle    middleware.Next
	logger    *zap.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func New(
	cfg config.TelegramConfig,
	uploadCfg config.UploadConfig,
	runner Runner,
	documents DocumentUsecase,
	logger *zap.Logger,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create bot API: %w", err)
	}

	logger.Info("telegram bot authorized",
		zap.String("username", api.Self.UserName),
		zap.Int64("id", api.Self.ID),
	)

	return newBot(api, cfg, uploadCfg, runner, documents, logger), nil
}

func newBot(
	api API,
	cfg config.TelegramConfig,
	uploadCfg config.UploadConfig,
	runner Runner,
	documents DocumentUsecase,
	logger *zap.Logger,
) *Bot {
	b := &Bot{
		api:       api,
		runner:    runner,
		documents: documents,
		exporter:  formatter.NewPDFFormatter(),
		cfg:       cfg,
		uploadCfg: uploadCfg,
		download: &http.Client{
			Timeout: downloadTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
		limiter: middleware.NewRateLimiter(cfg.RateLimitPerMinute, api),
		logger:  logger,
	}

	b.handle = middleware.Chain(b.handleUpdate,
		b.limiter.Handle,
		middleware.Logging,
		middleware.Recovery(api),
	)
	return b
}

// Start begins long polling. Updates are handled concurrently until Stop.
func (b *Bot) Start(ctx context.Context) {
	ctx, b.cancel = context.WithCancel(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.UpdateTimeout
	updates := b.api.GetUpdatesChan(u)

	go b.limiter.Cleanup(ctx, cleanupInterval)
	go b.processUpdates(ctx, updates)

	b.logger.Info("telegram bot started")
}

// Stop stops polling and waits for in-flight updates up to the shutdown
// timeout.
func (b *Bot) Stop() error {
	b.logger.Info("stopping telegram bot")

	b.api.StopReceivingUpdates()
	if b.cancel != nil {
		b.cancel()
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("telegram bot stopped")
		return nil
	case <-time.After(b.cfg.ShutdownTimeout):
		return errors.New("telegram bot shutdown timeout exceeded")
	}
}

func (b *Bot) processUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	// Handlers outlive the polling context so Stop can drain them.
	handlerCtx := ctxzap.ToContext(context.Background(), b.logger)

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.handle(handlerCtx, update)
			}()
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}

	switch {
	case msg.Document != nil:
		b.handleDocument(ctx, msg)
	case msg.IsCommand():
		b.handleCommand(ctx, msg)
	case msg.Text != "":
		b.handleChat(ctx, msg)
	}
}

func (b *Bot) send(ctx context.Context, c tgbotapi.Chattable) (tgbotapi.Message, error) {
	sent, err := b.api.Send(c)
	if err != nil {
		ctxzap.Error(ctx, "failed to send telegram message", zap.Error(err))
	}
	return sent, err
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	_, _ = b.send(ctx, tgbotapi.NewMessage(chatID, truncate(text, maxMessageLength)))
}
