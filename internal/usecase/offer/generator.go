package offer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/futig/workspace-agent/internal/entity"
	"github.com/futig/workspace-agent/internal/usecase/extractor"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	companyName = "Synapse AI"
	dateLayout  = "January 2, 2006"
	startAfter  = 14 * 24 * time.Hour

	openingChunks      = 2
	openingContextSize = 300
	openingTemperature = 0.7
	openingMaxTokens   = 60
	minOpeningLength   = 10
)

type Completer interface {
	Complete(ctx context.Context, req entity.CompletionRequest) (string, error)
}

// Generator renders offer letters.
type Generator struct {
	llm Completer
	now func() time.Time
}

func NewGenerator(llm Completer) *Generator {
	return &Generator{
		llm: llm,
		now: time.Now,
	}
}

// Draft renders the offer letter HTML. Facts given explicitly win over
// details detected in chunks; the opening sentence is personalized when
// chunks are available and generation succeeds.
func (g *Generator) Draft(ctx context.Context, facts entity.CandidateFacts, chunks []entity.Chunk) (string, error) {
	facts = MergeFacts(facts, extractor.CandidateDetails(chunks))

	name := facts.Name
	if name == "" {
		name = extractor.DefaultName
	}
	signee := facts.Name
	if signee == "" {
		signee = "Candidate Name"
	}

	today := g.now()
	data := letterData{
		Company:   companyName,
		Date:      today.Format(dateLayout),
		Name:      name,
		Signee:    signee,
		Opening:   g.opening(ctx, facts, chunks),
		Salary:    EstimateSalary(facts),
		StartDate: today.Add(startAfter).Format(dateLayout),
	}

	var buf bytes.Buffer
	if err := letterTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render offer letter: %w", err)
	}

	return buf.String(), nil
}

func (g *Generator) opening(ctx context.Context, facts entity.CandidateFacts, chunks []entity.Chunk) template.HTML {
	position := template.HTMLEscapeString(facts.Position)
	fallback := template.HTML(fmt.Sprintf(
		`We are absolutely thrilled to offer you the position of <strong style="color: #0f172a;">%s</strong> at %s. `+
			`Your skills and experience impressed us deeply, and we believe you will be a transformative addition to our team.`,
		position, companyName))

	if len(chunks) == 0 || g.llm == nil {
		return fallback
	}

	generated, err := g.llm.Complete(ctx, entity.UserPrompt(openingPrompt(facts, chunks), openingTemperature, openingMaxTokens))
	if err != nil {
		ctxzap.Warn(ctx, "offer personalization skipped", zap.Error(err))
		return fallback
	}

	generated = strings.TrimSpace(generated)
	if len(generated) <= minOpeningLength {
		return fallback
	}

	return template.HTML(template.HTMLEscapeString(generated) + " We believe you will be a transformative addition to our team.")
}

func openingPrompt(facts entity.CandidateFacts, chunks []entity.Chunk) string {
	if len(chunks) > openingChunks {
		chunks = chunks[:openingChunks]
	}
	texts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		texts = append(texts, c.Text)
	}
	resume := strings.Join(texts, " ")
	if runes := []rune(resume); len(runes) > openingContextSize {
		resume = string(runes[:openingContextSize])
	}

	name := facts.Name
	if name == "" {
		name = "the candidate"
	}

	return fmt.Sprintf(`Write a single, enthusiastic sentence welcoming %s to %s as a %s, mentioning one specific skill or experience from their resume context.

Resume Context: %s

Output ONLY the sentence. No quotes.`, name, companyName, facts.Position, resume)
}

// MergeFacts fills every field of explicit that is empty from detected.
func MergeFacts(explicit, detected entity.CandidateFacts) entity.CandidateFacts {
	out := explicit
	if out.Name == "" {
		out.Name = detected.Name
	}
	if out.Email == "" {
		out.Email = detected.Email
	}
	if out.Position == "" {
		out.Position = detected.Position
	}
	if out.ExperienceYears == nil {
		out.ExperienceYears = detected.ExperienceYears
	}
	if len(out.Skills) == 0 {
		out.Skills = detected.Skills
	}
	if out.Location == "" {
		out.Location = detected.Location
	}
	if out.CurrentSalary == nil {
		out.CurrentSalary = detected.CurrentSalary
	}
	return out
}
