package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/futig/workspace-agent/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Provider is one generation backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req entity.CompletionRequest) (string, error)
	Stream(ctx context.Context, req entity.CompletionRequest, onChunk func(string)) (string, error)
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Gateway tries its providers in order and returns the first success.
type Gateway struct {
	providers []Provider
}

func NewGateway(providers ...Provider) *Gateway {
	return &Gateway{providers: providers}
}

// Providers returns the configured provider names in priority order.
func (g *Gateway) Providers() []string {
	names := make([]string, 0, len(g.providers))
	for _, p := range g.providers {
		names = append(names, p.Name())
	}
	return names
}

func (g *Gateway) Complete(ctx context.Context, req entity.CompletionRequest) (string, error) {
	return attempt(ctx, g.providers, "complete", func(p Provider) (string, error) {
		text, err := p.Complete(ctx, req)
		if err == nil && text == "" {
			err = entity.ErrEmptyCompletion
		}
		return text, err
	})
}

// Stream forwards chunks from the first provider that produces any. Providers
// that fail before emitting a chunk are skipped.
func (g *Gateway) Stream(ctx context.Context, req entity.CompletionRequest, onChunk func(string)) (string, error) {
	return attempt(ctx, g.providers, "stream", func(p Provider) (string, error) {
		emitted := false
		text, err := p.Stream(ctx, req, func(chunk string) {
			emitted = true
			onChunk(chunk)
		})
		if err != nil && emitted {
			ctxzap.Warn(ctx, "stream interrupted after partial output",
				zap.String("provider", p.Name()), zap.Error(err))
			return text, nil
		}
		if err == nil && text == "" {
			err = entity.ErrEmptyCompletion
		}
		return text, err
	})
}

func (g *Gateway) Embed(ctx context.Context, text string) ([]float32, error) {
	return attempt(ctx, g.providers, "embed", func(p Provider) ([]float32, error) {
		vec, err := p.Embed(ctx, text)
		if err == nil && len(vec) == 0 {
			err = entity.ErrEmptyCompletion
		}
		return vec, err
	})
}

func attempt[T any](ctx context.Context, providers []Provider, op string, call func(Provider) (T, error)) (T, error) {
	var zero T
	var failures []error

	for _, p := range providers {
		result, err := call(p)
		if err == nil {
			if len(failures) > 0 {
				ctxzap.Info(ctx, "generation succeeded on fallback provider",
					zap.String("op", op),
					zap.String("provider", p.Name()),
					zap.Int("failed_providers", len(failures)),
				)
			}
			return result, nil
		}

		if ctx.Err() != nil {
			return zero, fmt.Errorf("%s via %s: %w", op, p.Name(), ctx.Err())
		}

		if errors.Is(err, entity.ErrEmbeddingUnsupported) {
			ctxzap.Debug(ctx, "provider skipped", zap.String("op", op), zap.String("provider", p.Name()))
		} else {
			ctxzap.Warn(ctx, "generation provider failed",
				zap.String("op", op),
				zap.String("provider", p.Name()),
				zap.Error(err),
			)
		}
		failures = append(failures, fmt.Errorf("%s: %w", p.Name(), err))
	}

	return zero, fmt.Errorf("%s: %w: %w", op, entity.ErrProvidersExhausted, errors.Join(failures...))
}
