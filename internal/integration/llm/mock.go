package llm

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/futig/workspace-agent/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const mockEmbeddingDim = 64

// MockConnector is an offline provider used when ENABLE_MOCKS is set.
// Completions echo the last user message; embeddings are deterministic
// token hashes, so equal texts embed equally.
type MockConnector struct {
	logger *zap.Logger
}

func NewMockConnector(logger *zap.Logger) *MockConnector {
	return &MockConnector{
		logger: logger,
	}
}

func (m *MockConnector) Name() string {
	return "mock"
}

func (m *MockConnector) Complete(ctx context.Context, req entity.CompletionRequest) (string, error) {
	ctxzap.Info(ctx, "[MOCK] generating completion", zap.Int("messages", len(req.Messages)))
	return m.reply(req), nil
}

func (m *MockConnector) Stream(ctx context.Context, req entity.CompletionRequest, onChunk func(string)) (string, error) {
	ctxzap.Info(ctx, "[MOCK] streaming completion", zap.Int("messages", len(req.Messages)))

	reply := m.reply(req)
	for _, word := range strings.SplitAfter(reply, " ") {
		onChunk(word)
	}
	return reply, nil
}

func (m *MockConnector) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, mockEmbeddingDim)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		vec[h.Sum32()%mockEmbeddingDim]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}

	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec, nil
}

func (m *MockConnector) reply(req entity.CompletionRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == entity.RoleUser {
			prompt := req.Messages[i].Content
			if len(prompt) > 120 {
				prompt = prompt[:120]
			}
			return "[MOCK] " + strings.Join(strings.Fields(prompt), " ")
		}
	}
	return "[MOCK] Hello!"
}
