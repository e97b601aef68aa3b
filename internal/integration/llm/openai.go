package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/avast/retry-go/v4"
	"github.com/futig/workspace-agent/internal/config"
	"github.com/futig/workspace-agent/internal/entity"
	"github.com/futig/workspace-agent/internal/integration/common"
	pkgRetry "github.com/futig/workspace-agent/internal/pkg/retry"
	pkghttp "github.com/futig/workspace-agent/pkg/http"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	chatCompletionsEndpoint = "/chat/completions"
	embeddingsEndpoint      = "/embeddings"
)

var (
	sseDataPrefix = []byte("data:")
	sseDone       = []byte("[DONE]")
)

// OpenAIConnector talks to any backend exposing the OpenAI chat and
// embeddings API (OpenAI, Groq, Together).
type OpenAIConnector struct {
	name      string
	config    config.OpenAICompatibleConfig
	connector *pkghttp.Connector
	logger    *zap.Logger
}

func NewOpenAIConnector(
	name string,
	cfg config.OpenAICompatibleConfig,
	logger *zap.Logger,
) *OpenAIConnector {
	return &OpenAIConnector{
		name:      name,
		connector: common.NewBaseConnector(name, cfg.HTTPClientConfig, logger),
		config:    cfg,
		logger:    logger,
	}
}

func (c *OpenAIConnector) Name() string {
	return c.name
}

// Complete requests a non-streaming chat completion.
func (c *OpenAIConnector) Complete(ctx context.Context, req entity.CompletionRequest) (string, error) {
	ctxzap.Debug(ctx, "requesting completion", zap.String("provider", c.name), zap.String("model", c.config.ChatModel))

	body := c.chatRequest(req, false)
	text, err := pkgRetry.Do(ctx, &c.config.Retry, func(ctx context.Context) (string, error) {
		var resp entity.ChatCompletionResponse
		if err := c.connector.DoRequest(ctx, http.MethodPost, chatCompletionsEndpoint, body, &resp); err != nil {
			return "", classify(err)
		}
		if len(resp.Choices) == 0 {
			return "", nil
		}
		return resp.Choices[0].Message.Content, nil
	})
	if err != nil {
		return "", fmt.Errorf("%s chat completion: %w", c.name, err)
	}

	return strings.TrimSpace(text), nil
}

// Stream requests a streamed completion and forwards content deltas.
func (c *OpenAIConnector) Stream(ctx context.Context, req entity.CompletionRequest, onChunk func(string)) (string, error) {
	var full strings.Builder

	err := c.connector.DoStreamRequest(ctx, http.MethodPost, chatCompletionsEndpoint, c.chatRequest(req, true),
		func(line []byte) error {
			if !bytes.HasPrefix(line, sseDataPrefix) {
				return nil
			}
			payload := bytes.TrimSpace(line[len(sseDataPrefix):])
			if bytes.Equal(payload, sseDone) {
				return io.EOF
			}

			var chunk entity.ChatCompletionResponse
			if err := json.Unmarshal(payload, &chunk); err != nil {
				return fmt.Errorf("decode stream chunk: %w", err)
			}
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				return nil
			}

			delta := chunk.Choices[0].Delta.Content
			full.WriteString(delta)
			onChunk(delta)
			return nil
		})
	if err != nil {
		return strings.TrimSpace(full.String()), fmt.Errorf("%s chat stream: %w", c.name, err)
	}

	return strings.TrimSpace(full.String()), nil
}

// Embed returns the embedding of text, or ErrEmbeddingUnsupported when no
// embedding model is configured for this backend.
func (c *OpenAIConnector) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.config.EmbeddingModel == "" {
		return nil, entity.ErrEmbeddingUnsupported
	}

	body := entity.EmbeddingRequest{Model: c.config.EmbeddingModel, Input: text}
	vec, err := pkgRetry.Do(ctx, &c.config.Retry, func(ctx context.Context) ([]float32, error) {
		var resp entity.EmbeddingResponse
		if err := c.connector.DoRequest(ctx, http.MethodPost, embeddingsEndpoint, body, &resp); err != nil {
			return nil, classify(err)
		}
		if len(resp.Data) == 0 {
			return nil, nil
		}
		return resp.Data[0].Embedding, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s embedding: %w", c.name, err)
	}

	return vec, nil
}

func (c *OpenAIConnector) chatRequest(req entity.CompletionRequest, stream bool) entity.ChatCompletionRequest {
	return entity.ChatCompletionRequest{
		Model:       c.config.ChatModel,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
	}
}

// classify stops retries on client errors that repeating cannot fix.
func classify(err error) error {
	var httpErr *pkghttp.HTTPError
	if errors.As(err, &httpErr) && !httpErr.Temporary() {
		return retry.Unrecoverable(err)
	}
	return err
}
