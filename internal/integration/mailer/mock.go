package mailer

import (
	"context"
	"sync"

	"github.com/futig/workspace-agent/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// MockConnector records messages instead of sending them.
type MockConnector struct {
	mu   sync.Mutex
	sent []entity.SendEmailRequest
}

func NewMockConnector() *MockConnector {
	return &MockConnector{}
}

func (m *MockConnector) Send(ctx context.Context, req entity.SendEmailRequest) error {
	m.mu.Lock()
	m.sent = append(m.sent, req)
	m.mu.Unlock()

	ctxzap.Info(ctx, "[MOCK] email sent", zap.String("to", req.To), zap.Int("html_length", len(req.HTML)))
	return nil
}

func (m *MockConnector) Sent() []entity.SendEmailRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entity.SendEmailRequest, len(m.sent))
	copy(out, m.sent)
	return out
}
