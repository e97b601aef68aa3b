package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/futig/workspace-agent/internal/entity"
)

const (
	SimpleFallback  = "Hello! I'm Karpa AI. How can I help?"
	ContextFallback = "I found information in the documents. Could you rephrase your question?"

	temperature        = 0.7
	simpleMaxTokens    = 120
	simpleStreamTokens = 200
	contextMaxTokens   = 300
	contextChunks      = 5
)

type Generator interface {
	Complete(ctx context.Context, req entity.CompletionRequest) (string, error)
	Stream(ctx context.Context, req entity.CompletionRequest, onChunk func(string)) (string, error)
}

// Service answers free-form questions, grounded in retrieved chunks when
// any are given.
type Service struct {
	llm Generator
}

func NewService(llm Generator) *Service {
	return &Service{llm: llm}
}

// Answer generates a reply. An empty generation yields the fallback for the
// mode; a generation fault is returned to the caller.
func (s *Service) Answer(ctx context.Context, question string, chunks []entity.Chunk) (string, error) {
	req, fallback := s.request(question, chunks, false)

	text, err := s.llm.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}

	return orFallback(text, fallback), nil
}

// Stream is Answer with content deltas forwarded to onChunk as they arrive.
func (s *Service) Stream(ctx context.Context, question string, chunks []entity.Chunk, onChunk func(string)) (string, error) {
	req, fallback := s.request(question, chunks, true)

	text, err := s.llm.Stream(ctx, req, onChunk)
	if err != nil {
		return "", fmt.Errorf("stream answer: %w", err)
	}

	return orFallback(text, fallback), nil
}

func (s *Service) request(question string, chunks []entity.Chunk, stream bool) (entity.CompletionRequest, string) {
	if len(chunks) == 0 {
		maxTokens := simpleMaxTokens
		if stream {
			maxTokens = simpleStreamTokens
		}
		return entity.UserPrompt(simplePrompt(question), temperature, maxTokens), SimpleFallback
	}
	return entity.UserPrompt(contextPrompt(question, chunks), temperature, contextMaxTokens), ContextFallback
}

func simplePrompt(question string) string {
	return fmt.Sprintf("You are Karpa AI. Be friendly and concise.\n\nUser: %s\nAssistant:", question)
}

func contextPrompt(question string, chunks []entity.Chunk) string {
	if len(chunks) > contextChunks {
		chunks = chunks[:contextChunks]
	}

	lines := make([]string, 0, len(chunks))
	for i, c := range chunks {
		lines = append(lines, fmt.Sprintf("[%d]: %s", i+1, c.Text))
	}

	return fmt.Sprintf("Answer based on context. Be concise.\n\nQuestion: %s\nContext: %s\nAnswer:",
		question, strings.Join(lines, "\n"))
}

func orFallback(text, fallback string) string {
	if text = strings.TrimSpace(text); text != "" {
		return text
	}
	return fallback
}
