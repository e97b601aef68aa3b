package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/futig/workspace-agent/internal/config"
	"github.com/futig/workspace-agent/internal/entity"
	pkgRetry "github.com/futig/workspace-agent/internal/pkg/retry"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

// OllamaConnector is the local fallback backend.
type OllamaConnector struct {
	config config.OllamaConfig
	client *api.Client
	logger *zap.Logger
}

func NewOllamaConnector(cfg config.OllamaConfig, logger *zap.Logger) (*OllamaConnector, error) {
	host, err := url.Parse(cfg.Host)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host %q: %w", cfg.Host, err)
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}

	return &OllamaConnector{
		config: cfg,
		client: api.NewClient(host, httpClient),
		logger: logger,
	}, nil
}

func (c *OllamaConnector) Name() string {
	return "ollama"
}

func (c *OllamaConnector) Complete(ctx context.Context, req entity.CompletionRequest) (string, error) {
	ctxzap.Debug(ctx, "requesting completion", zap.String("provider", c.Name()), zap.String("model", c.config.ChatModel))

	text, err := pkgRetry.Do(ctx, &c.config.Retry, func(ctx context.Context) (string, error) {
		var out strings.Builder
		err := c.client.Chat(ctx, c.chatRequest(req, false), func(resp api.ChatResponse) error {
			out.WriteString(resp.Message.Content)
			return nil
		})
		return out.String(), err
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}

	return strings.TrimSpace(text), nil
}

func (c *OllamaConnector) Stream(ctx context.Context, req entity.CompletionRequest, onChunk func(string)) (string, error) {
	var out strings.Builder

	err := c.client.Chat(ctx, c.chatRequest(req, true), func(resp api.ChatResponse) error {
		if resp.Message.Content == "" {
			return nil
		}
		out.WriteString(resp.Message.Content)
		onChunk(resp.Message.Content)
		return nil
	})
	if err != nil {
		return strings.TrimSpace(out.String()), fmt.Errorf("ollama chat stream: %w", err)
	}

	return strings.TrimSpace(out.String()), nil
}

func (c *OllamaConnector) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.config.EmbeddingModel == "" {
		return nil, entity.ErrEmbeddingUnsupported
	}

	resp, err := pkgRetry.Do(ctx, &c.config.Retry, func(ctx context.Context) (*api.EmbeddingResponse, error) {
		return c.client.Embeddings(ctx, &api.EmbeddingRequest{
			Model:  c.config.EmbeddingModel,
			Prompt: text,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embedding: %w", err)
	}

	vec := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

func (c *OllamaConnector) chatRequest(req entity.CompletionRequest, stream bool) *api.ChatRequest {
	messages := make([]api.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, api.Message{Role: m.Role, Content: m.Content})
	}

	options := map[string]interface{}{
		"temperature": req.Temperature,
	}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}

	return &api.ChatRequest{
		Model:    c.config.ChatModel,
		Messages: messages,
		Stream:   &stream,
		Options:  options,
	}
}
