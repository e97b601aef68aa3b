package extractor

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/futig/workspace-agent/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	DefaultName = "Candidate"

	headerChunks   = 2
	headerMaxChars = 1500
	evidenceChars  = 300

	nameTemperature = 0.1
	nameMaxTokens   = 20
)

var (
	strictEmail  = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	spacedEmail  = regexp.MustCompile(`[a-zA-Z0-9._%+-]+\s*@\s*[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	capitalNames = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+)+)\b`)
	hasDigit     = regexp.MustCompile(`\d`)
	quotes       = strings.NewReplacer(`"`, "", `'`, "")
)

type Completer interface {
	Complete(ctx context.Context, req entity.CompletionRequest) (string, error)
}

// NameEmail is the contact block found in a resume header.
type NameEmail struct {
	Name     string
	Email    string
	Evidence string
}

// NameEmailExtractor reads the candidate name with a generation call and
// the email with patterns.
type NameEmailExtractor struct {
	llm Completer
}

func NewNameEmailExtractor(llm Completer) *NameEmailExtractor {
	return &NameEmailExtractor{llm: llm}
}

// Extract never fails on a generation fault; the name then comes from the
// capitalized-words fallback. It fails only when ctx is done.
func (e *NameEmailExtractor) Extract(ctx context.Context, chunks []entity.Chunk) (NameEmail, error) {
	text := headerText(chunks)

	result := NameEmail{
		Email:    FindEmail(text),
		Evidence: truncate(text, evidenceChars),
	}

	if e.llm != nil {
		name, err := e.llm.Complete(ctx, entity.UserPrompt(namePrompt(text), nameTemperature, nameMaxTokens))
		if err != nil {
			if ctx.Err() != nil {
				return NameEmail{}, fmt.Errorf("extract name: %w", ctx.Err())
			}
			ctxzap.Warn(ctx, "name extraction via generation failed", zap.Error(err))
		}
		result.Name = acceptName(name)
	}

	if result.Name == "" {
		if m := capitalNames.FindStringSubmatch(text); m != nil {
			result.Name = m[1]
		}
	}
	if result.Name == "" {
		result.Name = DefaultName
	}

	return result, nil
}

// FindEmail returns the first email-shaped token of text, tolerating
// spaces around "@", or "".
func FindEmail(text string) string {
	if m := strictEmail.FindString(text); m != "" {
		return m
	}
	if m := spacedEmail.FindString(text); m != "" {
		return strings.Join(strings.Fields(m), "")
	}
	return ""
}

func acceptName(raw string) string {
	name := strings.TrimSpace(raw)
	if len(name) <= 2 || len(name) >= 50 {
		return ""
	}
	if strings.Contains(name, DefaultName) || hasDigit.MatchString(name) {
		return ""
	}
	return quotes.Replace(name)
}

func headerText(chunks []entity.Chunk) string {
	if len(chunks) > headerChunks {
		chunks = chunks[:headerChunks]
	}
	texts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		texts = append(texts, c.Text)
	}
	return truncate(strings.Join(texts, "\n"), headerMaxChars)
}

func namePrompt(text string) string {
	return fmt.Sprintf(`Extract the Candidate Name from this resume header.

Text:
%s

Return ONLY the name. No labels, no extra text. If not found, return "Candidate".`, text)
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
