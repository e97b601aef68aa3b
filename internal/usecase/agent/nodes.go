package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/futig/workspace-agent/internal/entity"
	"github.com/futig/workspace-agent/internal/usecase/extractor"
	"github.com/futig/workspace-agent/internal/usecase/retrieval"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	offerChunkLimit   = 5
	contextChunkLimit = 20
	extractChunks     = 3
	chartTitle        = "Data Analysis"
)

// Terminal answers produced by the nodes.
const (
	MsgUploadResume     = "Please upload the required resume file to proceed with generating an offer letter."
	MsgNoEmailInResume  = "I couldn't find an email address in the resume. Please provide the candidate's email address to generate the offer letter."
	MsgExtractionFailed = "I encountered an issue extracting information from the resume. Please provide the candidate's email address to generate the offer letter."
	MsgDraftNeedsEmail  = "I need an email address to generate the offer letter. Please provide the candidate's email address."
	MsgDraftEmpty       = "I encountered an issue generating the offer letter. Please try again or provide more details about the candidate."
	MsgUploadCSV        = "Please upload the required CSV file to proceed with analysis."
	MsgCSVNotFound      = "The CSV file could not be found. Please upload the CSV file again and try the analysis."
	MsgChartFallback    = "CSV analysis completed. Here's the chart visualization."

	msgDraftFailed   = "I encountered an error while generating the offer letter: %s. Please try again or provide the candidate's information."
	msgAnalysisIssue = "I encountered an issue analyzing the CSV file: %s. Please check the file format and try again."
	msgAnalysisError = "I encountered an error while analyzing the CSV file: %s. Please ensure the file is properly formatted and try again."

	finalizationErrorFmt = "Finalization error: %s"
)

// answerReplies are the canned replies of an answer node.
type answerReplies struct {
	emptyMessage string
	failed       string
	emptyAnswer  string
}

var (
	simpleReplies = answerReplies{
		emptyMessage: "Hello! I'm Karpa AI. How can I help?",
		failed:       "Hello! I'm Synapse AI. How can I help?",
		emptyAnswer:  "I'm Karpa AI. How can I help?",
	}
	contextReplies = answerReplies{
		emptyMessage: "I'm Synapse AI. How can I help?",
		failed:       "I'm Synapse AI. How can I help?",
		emptyAnswer:  "I'm here to help! How can I assist you today?",
	}
)

func (g *Graph) retrieve(ctx context.Context, s State) State {
	q := retrieval.Query{
		Text:     s.Message,
		FileName: s.ResumeFileName,
		Limit:    contextChunkLimit,
	}
	if s.Flow == FlowOffer {
		q = retrieval.Query{
			FileName:   s.ResumeFileName,
			Limit:      offerChunkLimit,
			RecentOnly: true,
		}
	}

	chunks, err := g.retriever.Query(ctx, q)
	if err != nil {
		ctxzap.Warn(ctx, "retrieval failed", zap.Error(err))
		if s.Flow == FlowOffer {
			return s.finish(MsgUploadResume)
		}
		s = s.withChunks(nil)
		s.Next = NodeGenerateAnswer
		return s
	}

	if s.Flow == FlowOffer && len(chunks) == 0 {
		return s.finish(MsgUploadResume)
	}

	s = s.withChunks(chunks)
	s.Next = NodeGenerateAnswer
	if s.Flow == FlowOffer {
		s.Next = NodeExtract
	}
	s.Thought = fmt.Sprintf("Retriever: Fetched %d relevant chunks. Proceeding to %s...", len(chunks), s.Next)
	return s
}

func (g *Graph) extract(ctx context.Context, s State) State {
	head := s.Chunks
	if len(head) > extractChunks {
		head = head[:extractChunks]
	}

	var found extractor.NameEmail
	var err error
	if len(head) > 0 {
		found, err = g.names.Extract(ctx, head)
	}

	facts := extractor.CandidateDetails(s.Chunks)

	if err != nil {
		ctxzap.Warn(ctx, "name and email extraction failed", zap.Error(err))
		if s.CandidateEmail == "" {
			return s.finish(MsgExtractionFailed)
		}
		facts.Name, facts.Email = extractor.DefaultName, s.CandidateEmail
		s.Facts = facts
		s.Next = NodeDraft
		return s
	}

	facts.Name = found.Name
	if facts.Name == "" {
		facts.Name = extractor.DefaultName
	}
	facts.Email = s.CandidateEmail
	if facts.Email == "" {
		facts.Email = found.Email
	}
	s.Facts = facts

	if facts.Email == "" {
		return s.finish(MsgNoEmailInResume)
	}

	s.Next = NodeDraft
	s.Thought = fmt.Sprintf("Extractor: Found name %q and email %q. Proceeding to draft offer...", facts.Name, facts.Email)
	return s
}

func (g *Graph) draft(ctx context.Context, s State) State {
	if s.Facts.Email == "" {
		return s.finish(MsgDraftNeedsEmail)
	}

	html, err := g.drafter.Draft(ctx, s.Facts, s.Chunks)
	if err != nil {
		ctxzap.Warn(ctx, "offer drafting failed", zap.Error(err))
		return s.finish(fmt.Sprintf(msgDraftFailed, err))
	}
	if strings.TrimSpace(html) == "" {
		return s.finish(MsgDraftEmpty)
	}

	s.OfferHTML = html
	s.Next = NodeFinalize
	s.Thought = "Drafting: Generated HTML offer letter. Finalizing..."
	return s
}

func (g *Graph) finalize(ctx context.Context, s State) State {
	s.Next = NodeTerminal

	if s.OfferHTML != "" {
		record := entity.Record{
			ID:   uuid.New().String(),
			Type: entity.RecordTypeEmailDraft,
			Text: s.OfferHTML,
			Meta: map[string]string{
				"candidateName":  s.Facts.Name,
				"candidateEmail": s.Facts.Email,
			},
			CreatedAt: g.now().UTC(),
		}
		if err := g.retriever.PersistRecord(ctx, record); err != nil {
			ctxzap.Error(ctx, "save offer draft", zap.Error(err))
			s.Err = fmt.Sprintf(finalizationErrorFmt, err)
			return s
		}
	}

	s.Thought = "Finalize: Saved draft to database. Task complete."
	return s
}

func (g *Graph) analyzeData(ctx context.Context, s State) State {
	ref, err := g.files.Choose(ctx, s.Message, s.FileURL)
	if errors.Is(err, entity.ErrFileNotFound) {
		return s.finish(MsgUploadCSV)
	}
	if err != nil {
		ctxzap.Warn(ctx, "choose csv failed", zap.Error(err))
		return s.finish(fmt.Sprintf(msgAnalysisError, err))
	}

	path, err := g.files.Resolve(ctx, ref)
	if err != nil {
		ctxzap.Info(ctx, "csv not found", zap.String("ref", ref), zap.Error(err))
		return s.finish(MsgCSVNotFound)
	}

	res, err := g.analyzer.Analyze(ctx, path, chartTitle)
	if err != nil {
		return s.finish(fmt.Sprintf(msgAnalysisIssue, err))
	}

	insights := res.Insights
	if insights == "" {
		insights = MsgChartFallback
	}

	chart := res.Chart
	s.Chart = &chart
	s.Insights = insights
	s.Answer = insights
	s.Next = NodeTerminal
	s.Thought = "Analyzer: Generated chart and insights. Sending response..."
	return s
}

func (g *Graph) simpleAnswer(ctx context.Context, s State) State {
	return g.answer(ctx, s, false)
}

func (g *Graph) generateAnswer(ctx context.Context, s State) State {
	return g.answer(ctx, s, true)
}

// answer finishes the run with an LLM reply, grounded on the retrieved
// chunks when withContext is set.
func (g *Graph) answer(ctx context.Context, s State, withContext bool) State {
	replies := simpleReplies
	var chunks []entity.Chunk
	if withContext {
		replies = contextReplies
		chunks = s.Chunks
	}

	if strings.TrimSpace(s.Message) == "" {
		return s.finish(replies.emptyMessage)
	}

	answer, err := g.answers.Answer(ctx, s.Message, chunks)
	if err != nil {
		ctxzap.Warn(ctx, "answer failed", zap.Bool("with_context", withContext), zap.Error(err))
		return s.finish(replies.failed)
	}
	if answer == "" {
		answer = replies.emptyAnswer
	}
	return s.finish(answer)
}
