package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/futig/workspace-agent/internal/entity"
	"github.com/futig/workspace-agent/internal/pkg/formatter"
	"github.com/futig/workspace-agent/internal/usecase/agent"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	maxMessageLength = 4096
	maxChartRows     = 10

	welcomeText = "Hi! I'm Karpa AI.\n\n" +
		"Send me a question and I'll answer it from your uploaded documents.\n" +
		"Send a PDF resume or a CSV file to add it to the workspace.\n" +
		"Ask me to \"generate an offer letter\" and I'll send it back as a PDF."
	unknownCommandText = "Unknown command. Use /help to see what I can do."

	thinkingNote = "Thinking..."
	offerNote    = "Generating offer letter..."

	offerFailedText = "The offer letter was drafted but could not be rendered. Please try again."
)

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start", "help":
		b.reply(ctx, msg.Chat.ID, welcomeText)
	default:
		b.reply(ctx, msg.Chat.ID, unknownCommandText)
	}
}

// handleChat runs the agent for a text message. Progress notes are shown by
// editing a single status message.
func (b *Bot) handleChat(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	req := entity.RunRequest{
		RequestID:   fmt.Sprintf("tg-%d-%d", chatID, msg.MessageID),
		UserMessage: msg.Text,
	}
	ctx = ctxzap.ToContext(ctx, ctxzap.Extract(ctx).With(zap.String("req_id", req.RequestID)))

	note := thinkingNote
	if agent.IsOfferRequest(msg.Text) {
		note = offerNote
	}

	_, _ = b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
	status, err := b.send(ctx, tgbotapi.NewMessage(chatID, note))

	progress := make(chan entity.ProgressEvent, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		b.relayProgress(ctx, chatID, status.MessageID, err == nil, note, progress)
	}()

	result := b.runner.Run(ctx, req, progress)
	close(progress)
	<-done

	b.deliver(ctx, chatID, result)
}

// relayProgress edits the status message with the latest progress note, at
// most once per progress interval.
func (b *Bot) relayProgress(ctx context.Context, chatID int64, statusID int, editable bool, shown string, progress <-chan entity.ProgressEvent) {
	var last time.Time
	for ev := range progress {
		if !editable || ev.Text == "" || ev.Text == shown {
			continue
		}
		if !last.IsZero() && time.Since(last) < b.cfg.ProgressInterval {
			continue
		}
		if _, err := b.api.Send(tgbotapi.NewEditMessageText(chatID, statusID, truncate(ev.Text, maxMessageLength))); err != nil {
			ctxzap.Debug(ctx, "failed to update progress message", zap.Error(err))
			continue
		}
		shown = ev.Text
		last = time.Now()
	}
}

func (b *Bot) deliver(ctx context.Context, chatID int64, result entity.RunResult) {
	switch {
	case result.OfferHTML != "":
		b.sendOffer(ctx, chatID, result)
	case result.Chart != nil:
		b.reply(ctx, chatID, chartText(result))
	case result.Answer != "":
		b.reply(ctx, chatID, result.Answer)
	default:
		b.reply(ctx, chatID, agent.DefaultAnswer)
	}
}

// sendOffer renders the offer letter to PDF and sends it as a document. The
// letter text is sent instead when rendering fails.
func (b *Bot) sendOffer(ctx context.Context, chatID int64, result entity.RunResult) {
	title := "Offer Letter"
	if result.Name != "" {
		title += " - " + result.Name
	}

	doc, err := formatter.FromHTML(title, result.OfferHTML)
	if err != nil {
		ctxzap.Error(ctx, "failed to parse offer letter", zap.Error(err))
		b.reply(ctx, chatID, offerFailedText)
		return
	}

	data, err := b.exporter.Format(doc)
	if err != nil {
		ctxzap.Error(ctx, "failed to render offer letter", zap.Error(err))
		b.reply(ctx, chatID, documentText(doc))
		return
	}

	upload := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  offerFileName(result.Name) + b.exporter.FileExtension(),
		Bytes: data,
	})
	upload.Caption = offerCaption(result)

	if _, err := b.send(ctx, upload); err != nil {
		b.reply(ctx, chatID, documentText(doc))
	}
}

func offerCaption(result entity.RunResult) string {
	switch {
	case result.Name != "" && result.Email != "":
		return fmt.Sprintf("Offer letter for %s (%s)", result.Name, result.Email)
	case result.Name != "":
		return "Offer letter for " + result.Name
	default:
		return "Offer letter"
	}
}

func offerFileName(name string) string {
	name = strings.Join(strings.Fields(name), "_")
	if name == "" {
		return "offer-letter"
	}
	return "offer-letter-" + name
}

func documentText(doc formatter.Document) string {
	var sb strings.Builder
	sb.WriteString(doc.Title)
	for _, p := range doc.Paragraphs {
		sb.WriteString("\n\n")
		sb.WriteString(p)
	}
	return sb.String()
}

func chartText(result entity.RunResult) string {
	chart := result.Chart

	var sb strings.Builder
	if result.Insights != "" {
		sb.WriteString(result.Insights)
		sb.WriteString("\n\n")
	}
	sb.WriteString(chart.Title)

	for i, row := range chart.Data {
		if i == maxChartRows {
			fmt.Fprintf(&sb, "\n... and %d more", len(chart.Data)-maxChartRows)
			break
		}
		fmt.Fprintf(&sb, "\n%v: %v", row[chart.XKey], row[chart.YKey])
	}
	return sb.String()
}

// truncate cuts s to at most limit runes.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}
