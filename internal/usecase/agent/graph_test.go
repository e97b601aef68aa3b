package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/futig/workspace-agent/internal/config"
	"github.com/futig/workspace-agent/internal/entity"
	"github.com/futig/workspace-agent/internal/repository"
	"github.com/futig/workspace-agent/internal/usecase/analysis"
	"github.com/futig/workspace-agent/internal/usecase/extractor"
	"github.com/futig/workspace-agent/internal/usecase/retrieval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRetriever struct {
	query   func(ctx context.Context, q retrieval.Query) ([]entity.Chunk, error)
	persist func(ctx context.Context, record entity.Record) error
	queries []retrieval.Query
	records []entity.Record
}

func (f *fakeRetriever) Query(ctx context.Context, q retrieval.Query) ([]entity.Chunk, error) {
	f.queries = append(f.queries, q)
	if f.query == nil {
		return nil, nil
	}
	return f.query(ctx, q)
}

func (f *fakeRetriever) PersistRecord(ctx context.Context, record entity.Record) error {
	if f.persist != nil {
		if err := f.persist(ctx, record); err != nil {
			return err
		}
	}
	f.records = append(f.records, record)
	return nil
}

type fakeNames struct {
	extract func(ctx context.Context, chunks []entity.Chunk) (extractor.NameEmail, error)
	got     []entity.Chunk
}

func (f *fakeNames) Extract(ctx context.Context, chunks []entity.Chunk) (extractor.NameEmail, error) {
	f.got = chunks
	return f.extract(ctx, chunks)
}

type fakeDrafter struct {
	draft func(ctx context.Context, facts entity.CandidateFacts, chunks []entity.Chunk) (string, error)
	facts entity.CandidateFacts
}

func (f *fakeDrafter) Draft(ctx context.Context, facts entity.CandidateFacts, chunks []entity.Chunk) (string, error) {
	f.facts = facts
	return f.draft(ctx, facts, chunks)
}

type fakeAnswerer struct {
	answer func(ctx context.Context, question string, chunks []entity.Chunk) (string, error)
	calls  int
	chunks []entity.Chunk
}

func (f *fakeAnswerer) Answer(ctx context.Context, question string, chunks []entity.Chunk) (string, error) {
	f.calls++
	f.chunks = chunks
	return f.answer(ctx, question, chunks)
}

type testDeps struct {
	retriever *fakeRetriever
	names     *fakeNames
	drafter   *fakeDrafter
	answers   *fakeAnswerer
	mappings  *repository.FileMappingCache
	dir       string
}

func newTestGraph(t *testing.T) (*Graph, *testDeps) {
	t.Helper()

	deps := &testDeps{
		retriever: &fakeRetriever{},
		names: &fakeNames{extract: func(context.Context, []entity.Chunk) (extractor.NameEmail, error) {
			return extractor.NameEmail{Name: "Jane Doe", Email: "jane@resume.io"}, nil
		}},
		drafter: &fakeDrafter{draft: func(_ context.Context, facts entity.CandidateFacts, _ []entity.Chunk) (string, error) {
			return "<div>Offer for " + facts.Name + "</div>", nil
		}},
		answers: &fakeAnswerer{answer: func(context.Context, string, []entity.Chunk) (string, error) {
			return "generated answer", nil
		}},
		mappings: repository.NewFileMappingCache(),
		dir:      t.TempDir(),
	}

	g, err := NewGraph(
		deps.retriever,
		deps.names,
		deps.drafter,
		deps.answers,
		analysis.NewLocator(deps.mappings, config.UploadConfig{Dir: deps.dir}),
		analysis.NewAnalyzer(),
	)
	require.NoError(t, err)
	g.now = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }

	return g, deps
}

func run(g *Graph, message string) (entity.RunResult, []string) {
	return runRequest(g, entity.RunRequest{UserMessage: message})
}

func runRequest(g *Graph, req entity.RunRequest) (entity.RunResult, []string) {
	progress := make(chan entity.ProgressEvent, 64)
	res := g.Run(context.Background(), req, progress)
	close(progress)

	var notes []string
	for ev := range progress {
		notes = append(notes, ev.Text)
	}
	return res, notes
}

func resumeChunks() []entity.Chunk {
	return []entity.Chunk{
		{Text: "Jane Doe\njane@resume.io\nSenior Backend Engineer with 6 years of experience"},
		{Text: "Skills: Go, Kubernetes, PostgreSQL"},
		{Text: "Location: Pune, India"},
		{Text: "Education"},
	}
}

func TestGraph_Greeting(t *testing.T) {
	for _, msg := range []string{"hi", "hi.", "hi!", "hello"} {
		t.Run(msg, func(t *testing.T) {
			g, deps := newTestGraph(t)

			res, notes := run(g, msg)

			assert.Equal(t, "generated answer", res.Answer)
			assert.Equal(t, 1, deps.answers.calls)
			assert.Nil(t, deps.answers.chunks)
			assert.Empty(t, deps.retriever.queries)
			assert.Equal(t, []string{
				"Planner: Detected casual greeting. Routing to simple answer...",
				"generated answer",
			}, notes)
		})
	}
}

func TestGraph_SimpleAnswerFallbacks(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
		want  string
	}{
		{name: "generation fault", err: entity.ErrProvidersExhausted, want: "Hello! I'm Synapse AI. How can I help?"},
		{name: "empty generation", want: "I'm Karpa AI. How can I help?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, deps := newTestGraph(t)
			deps.answers.answer = func(context.Context, string, []entity.Chunk) (string, error) {
				return tt.reply, tt.err
			}

			res, _ := run(g, "tell me a joke")
			assert.Equal(t, tt.want, res.Answer)
		})
	}
}

func TestGraph_OfferFlow(t *testing.T) {
	g, deps := newTestGraph(t)
	deps.retriever.query = func(context.Context, retrieval.Query) ([]entity.Chunk, error) {
		return resumeChunks(), nil
	}

	res, notes := runRequest(g, entity.RunRequest{
		UserMessage:    "Draft an offer letter for jane@co.com",
		ResumeFileName: "jane.pdf",
	})

	assert.Equal(t, "<div>Offer for Jane Doe</div>", res.OfferHTML)
	assert.Equal(t, "Jane Doe", res.Name)
	assert.Equal(t, "jane@co.com", res.Email)
	assert.Empty(t, res.Error)
	assert.Equal(t, map[string]any{"name": "Jane Doe", "email": "jane@co.com", "offerHtml": res.OfferHTML}, res.Payload())

	require.Len(t, deps.retriever.queries, 1)
	assert.Equal(t, retrieval.Query{FileName: "jane.pdf", Limit: 5, RecentOnly: true}, deps.retriever.queries[0])
	assert.Len(t, deps.names.got, 3)

	assert.Equal(t, "senior backend engineer", deps.drafter.facts.Position)
	require.NotNil(t, deps.drafter.facts.ExperienceYears)
	assert.Equal(t, 6, *deps.drafter.facts.ExperienceYears)

	require.Len(t, deps.retriever.records, 1)
	rec := deps.retriever.records[0]
	assert.Equal(t, entity.RecordTypeEmailDraft, rec.Type)
	assert.Equal(t, res.OfferHTML, rec.Text)
	assert.Equal(t, map[string]string{"candidateName": "Jane Doe", "candidateEmail": "jane@co.com"}, rec.Meta)
	assert.NotEmpty(t, rec.ID)

	assert.Equal(t, []string{
		"Planner: User wants an offer letter. Email detected in message. Proceeding to retrieval...",
		"Retriever: Fetched 4 relevant chunks. Proceeding to extract...",
		`Extractor: Found name "Jane Doe" and email "jane@co.com". Proceeding to draft offer...`,
		"Drafting: Generated HTML offer letter. Finalizing...",
		"Finalize: Saved draft to database. Task complete.",
	}, notes)
}

func TestGraph_OfferFlow_ExtractedEmail(t *testing.T) {
	g, deps := newTestGraph(t)
	deps.retriever.query = func(context.Context, retrieval.Query) ([]entity.Chunk, error) {
		return resumeChunks(), nil
	}

	res, _ := run(g, "write an offer")

	assert.Equal(t, "jane@resume.io", res.Email)
	assert.NotEmpty(t, res.OfferHTML)
}

func TestGraph_OfferFlow_NoChunks(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "empty store"},
		{name: "retrieval fault", err: errors.New("db down")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, deps := newTestGraph(t)
			deps.retriever.query = func(context.Context, retrieval.Query) ([]entity.Chunk, error) {
				return nil, tt.err
			}

			res, notes := run(g, "jane@co.com")

			assert.Equal(t, "Please upload the required resume file to proceed with generating an offer letter.", res.Answer)
			assert.Empty(t, res.OfferHTML)
			assert.Equal(t, res.Answer, notes[len(notes)-1])
		})
	}
}

func TestGraph_OfferFlow_MissingEmail(t *testing.T) {
	g, deps := newTestGraph(t)
	deps.retriever.query = func(context.Context, retrieval.Query) ([]entity.Chunk, error) {
		return []entity.Chunk{{Text: "John Smith, developer"}}, nil
	}
	deps.names.extract = func(context.Context, []entity.Chunk) (extractor.NameEmail, error) {
		return extractor.NameEmail{Name: "John Smith"}, nil
	}

	res, _ := run(g, "draft an offer letter")

	assert.Equal(t, "I couldn't find an email address in the resume. Please provide the candidate's email address to generate the offer letter.", res.Answer)
	assert.Equal(t, "John Smith", res.Name)
	assert.Empty(t, res.OfferHTML)
}

func TestGraph_OfferFlow_ExtractionFault(t *testing.T) {
	t.Run("without carried email", func(t *testing.T) {
		g, deps := newTestGraph(t)
		deps.retriever.query = func(context.Context, retrieval.Query) ([]entity.Chunk, error) {
			return resumeChunks(), nil
		}
		deps.names.extract = func(context.Context, []entity.Chunk) (extractor.NameEmail, error) {
			return extractor.NameEmail{}, context.DeadlineExceeded
		}

		res, _ := run(g, "draft an offer letter")

		assert.Equal(t, MsgExtractionFailed, res.Answer)
	})

	t.Run("with carried email", func(t *testing.T) {
		g, deps := newTestGraph(t)
		deps.retriever.query = func(context.Context, retrieval.Query) ([]entity.Chunk, error) {
			return resumeChunks(), nil
		}
		deps.names.extract = func(context.Context, []entity.Chunk) (extractor.NameEmail, error) {
			return extractor.NameEmail{}, context.DeadlineExceeded
		}

		res, _ := runRequest(g, entity.RunRequest{UserMessage: "draft an offer letter", CandidateEmail: "cand@x.io"})

		assert.Equal(t, "<div>Offer for Candidate</div>", res.OfferHTML)
		assert.Equal(t, "cand@x.io", res.Email)
	})
}

func TestGraph_DraftFailures(t *testing.T) {
	tests := []struct {
		name string
		html string
		err  error
		want string
	}{
		{
			name: "generator fault",
			err:  errors.New("template broke"),
			want: "I encountered an error while generating the offer letter: template broke. Please try again or provide the candidate's information.",
		},
		{name: "blank result", html: "  \n", want: MsgDraftEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, deps := newTestGraph(t)
			deps.retriever.query = func(context.Context, retrieval.Query) ([]entity.Chunk, error) {
				return resumeChunks(), nil
			}
			deps.drafter.draft = func(context.Context, entity.CandidateFacts, []entity.Chunk) (string, error) {
				return tt.html, tt.err
			}

			res, _ := run(g, "offer for jane@co.com")

			assert.Equal(t, tt.want, res.Answer)
			assert.Empty(t, res.OfferHTML)
			assert.Empty(t, deps.retriever.records)
		})
	}
}

func TestGraph_DraftRequiresEmail(t *testing.T) {
	g, _ := newTestGraph(t)

	s := g.draft(context.Background(), State{Facts: entity.CandidateFacts{Name: "Jane"}})

	assert.True(t, s.Terminal())
	assert.Equal(t, MsgDraftNeedsEmail, s.Answer)
}

func TestGraph_FinalizeFault(t *testing.T) {
	g, deps := newTestGraph(t)
	deps.retriever.query = func(context.Context, retrieval.Query) ([]entity.Chunk, error) {
		return resumeChunks(), nil
	}
	deps.retriever.persist = func(context.Context, entity.Record) error {
		return errors.New("records table missing")
	}

	res, notes := run(g, "offer letter for jane@co.com")

	assert.NotEmpty(t, res.OfferHTML)
	assert.Equal(t, "Finalization error: records table missing", res.Error)
	assert.Equal(t, "Drafting: Generated HTML offer letter. Finalizing...", notes[len(notes)-1])
}

func TestGraph_RetrieveConversation(t *testing.T) {
	g, deps := newTestGraph(t)
	chunks := resumeChunks()
	deps.retriever.query = func(context.Context, retrieval.Query) ([]entity.Chunk, error) {
		return chunks, nil
	}

	s := g.retrieve(context.Background(), State{Message: "who is jane", Flow: FlowConversation})

	assert.Equal(t, NodeGenerateAnswer, s.Next)
	assert.Equal(t, retrieval.Query{Text: "who is jane", Limit: 20}, deps.retriever.queries[0])
	assert.Equal(t, "Retriever: Fetched 4 relevant chunks. Proceeding to generateAnswer...", s.Thought)

	chunks[0].Text = "mutated"
	assert.NotEqual(t, "mutated", s.Chunks[0].Text)

	s = g.generateAnswer(context.Background(), s)
	assert.Equal(t, "generated answer", s.Answer)
	assert.Len(t, deps.answers.chunks, 4)
}

func TestGraph_RetrieveConversationFault(t *testing.T) {
	g, deps := newTestGraph(t)
	deps.retriever.query = func(context.Context, retrieval.Query) ([]entity.Chunk, error) {
		return nil, errors.New("index down")
	}

	s := g.retrieve(context.Background(), State{Message: "q", Flow: FlowConversation})

	assert.Equal(t, NodeGenerateAnswer, s.Next)
	assert.Empty(t, s.Chunks)
	assert.Empty(t, s.Thought)
}

func TestGraph_GenerateAnswerFallbacks(t *testing.T) {
	g, deps := newTestGraph(t)

	s := g.generateAnswer(context.Background(), State{Message: "  "})
	assert.Equal(t, "I'm Synapse AI. How can I help?", s.Answer)

	deps.answers.answer = func(context.Context, string, []entity.Chunk) (string, error) {
		return "", errors.New("boom")
	}
	s = g.generateAnswer(context.Background(), State{Message: "q"})
	assert.Equal(t, "I'm Synapse AI. How can I help?", s.Answer)

	deps.answers.answer = func(context.Context, string, []entity.Chunk) (string, error) {
		return "", nil
	}
	s = g.generateAnswer(context.Background(), State{Message: "q"})
	assert.Equal(t, "I'm here to help! How can I assist you today?", s.Answer)
}

func TestGraph_AnswerModes(t *testing.T) {
	chunks := []entity.Chunk{{Text: "ctx"}}
	answerErr := errors.New("boom")

	tests := []struct {
		name        string
		withContext bool
		message     string
		reply       string
		err         error
		want        string
		wantChunks  int
	}{
		{name: "simple empty message", message: " ", want: "Hello! I'm Karpa AI. How can I help?"},
		{name: "simple failure", message: "q", err: answerErr, want: "Hello! I'm Synapse AI. How can I help?"},
		{name: "simple empty reply", message: "q", want: "I'm Karpa AI. How can I help?"},
		{name: "simple ignores chunks", message: "q", reply: "plain", want: "plain"},
		{name: "context empty message", withContext: true, message: "", want: "I'm Synapse AI. How can I help?"},
		{name: "context failure", withContext: true, message: "q", err: answerErr, want: "I'm Synapse AI. How can I help?"},
		{name: "context empty reply", withContext: true, message: "q", want: "I'm here to help! How can I assist you today?"},
		{name: "context passes chunks", withContext: true, message: "q", reply: "grounded", want: "grounded", wantChunks: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, deps := newTestGraph(t)
			gotChunks := -1
			deps.answers.answer = func(_ context.Context, _ string, c []entity.Chunk) (string, error) {
				gotChunks = len(c)
				return tt.reply, tt.err
			}

			s := g.answer(context.Background(), State{Message: tt.message, Chunks: chunks}, tt.withContext)

			assert.Equal(t, tt.want, s.Answer)
			assert.True(t, s.Terminal())
			if tt.reply != "" {
				assert.Equal(t, tt.wantChunks, gotChunks)
			}
		})
	}
}

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestGraph_AnalyzeNewestCSV(t *testing.T) {
	g, deps := newTestGraph(t)
	ctx := context.Background()
	t1 := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(2 * time.Hour)

	older := writeCSV(t, deps.dir, "1-q1.csv", "month,revenue\nJan,10\n")
	newer := writeCSV(t, deps.dir, "2-q2.csv", "month,revenue\nApr,30\nMay,50\n")
	require.NoError(t, deps.mappings.Put(ctx, entity.FileMapping{OriginalName: "q1.csv", StoredPath: older, Timestamp: t1}))
	require.NoError(t, deps.mappings.Put(ctx, entity.FileMapping{OriginalName: "q2.csv", StoredPath: newer, Timestamp: t2}))

	res, notes := run(g, "csv")

	require.NotNil(t, res.Chart)
	assert.Equal(t, "Data Analysis", res.Chart.Title)
	assert.Len(t, res.Chart.Data, 2)
	assert.Equal(t, `Detected x="month", y="revenue". Rows=2. Sum=80.00, Avg=40.00.`, res.Insights)
	assert.Equal(t, res.Insights, res.Answer)
	assert.Equal(t, []string{
		"Planner: Detected request for data analysis. Routing to CSV Analyzer...",
		res.Insights,
		"Analyzer: Generated chart and insights. Sending response...",
	}, notes)
}

func TestGraph_AnalyzeMentionedCSV(t *testing.T) {
	g, deps := newTestGraph(t)
	ctx := context.Background()
	now := time.Now()

	older := writeCSV(t, deps.dir, "1-budget.csv", "dept,cost\nops,5\n")
	newer := writeCSV(t, deps.dir, "2-sales.csv", "month,revenue\nApr,30\n")
	require.NoError(t, deps.mappings.Put(ctx, entity.FileMapping{OriginalName: "budget.csv", StoredPath: older, Timestamp: now}))
	require.NoError(t, deps.mappings.Put(ctx, entity.FileMapping{OriginalName: "sales.csv", StoredPath: newer, Timestamp: now.Add(time.Minute)}))

	res, _ := run(g, "chart the budget please")

	require.NotNil(t, res.Chart)
	assert.Equal(t, "dept", res.Chart.XKey)
	assert.Equal(t, "cost", res.Chart.YKey)
}

func TestGraph_AnalyzeFailures(t *testing.T) {
	t.Run("no csv uploaded", func(t *testing.T) {
		g, _ := newTestGraph(t)

		res, _ := run(g, "analyze my data")
		assert.Equal(t, "Please upload the required CSV file to proceed with analysis.", res.Answer)
		assert.Nil(t, res.Chart)
	})

	t.Run("stored file gone", func(t *testing.T) {
		g, deps := newTestGraph(t)
		require.NoError(t, deps.mappings.Put(context.Background(), entity.FileMapping{
			OriginalName: "gone.csv",
			StoredPath:   filepath.Join(deps.dir, "123-gone.csv"),
			Timestamp:    time.Now(),
		}))

		res, _ := run(g, "plot it")
		assert.Equal(t, "The CSV file could not be found. Please upload the CSV file again and try the analysis.", res.Answer)
	})

	t.Run("unreadable csv", func(t *testing.T) {
		g, deps := newTestGraph(t)
		path := writeCSV(t, deps.dir, "empty.csv", "")

		res, _ := runRequest(g, entity.RunRequest{UserMessage: "visualize", FileURL: path})
		assert.Equal(t, "I encountered an issue analyzing the CSV file: CSV empty or unreadable. Please check the file format and try again.", res.Answer)
	})
}

func TestGraph_InvalidRoutingFallsBackToSimpleAnswer(t *testing.T) {
	g, deps := newTestGraph(t)
	g.nodes[NodePlanner] = func(_ context.Context, s State) State {
		s.Next = NodeFinalize
		return s
	}

	res, _ := run(g, "anything")

	assert.Equal(t, "generated answer", res.Answer)
	assert.Equal(t, 1, deps.answers.calls)
	assert.Empty(t, deps.retriever.records)
}

func TestGraph_UnknownNodeFallsBackToSimpleAnswer(t *testing.T) {
	g, _ := newTestGraph(t)
	g.nodes[NodePlanner] = func(_ context.Context, s State) State {
		s.Next = Node("ask_user_email")
		return s
	}

	res, _ := run(g, "anything")
	assert.Equal(t, "generated answer", res.Answer)
}

func TestGraph_PanicFallsBackToSimpleAnswer(t *testing.T) {
	g, deps := newTestGraph(t)
	deps.retriever.query = func(context.Context, retrieval.Query) ([]entity.Chunk, error) {
		panic("nil pool")
	}

	res, _ := run(g, "jane@co.com")

	assert.Equal(t, "generated answer", res.Answer)
	assert.Empty(t, res.Error)
}

func TestGraph_FatalFailure(t *testing.T) {
	g, deps := newTestGraph(t)
	deps.answers.answer = func(context.Context, string, []entity.Chunk) (string, error) {
		panic("answer service exploded")
	}

	res, notes := run(g, "hi")

	assert.Equal(t, FailureAnswer, res.Answer)
	assert.Contains(t, res.Error, "answer service exploded")
	require.NotEmpty(t, notes)
	assert.Equal(t, "I encountered an error: "+res.Error+". Let me try to help you in another way.", notes[len(notes)-1])
}

func TestGraph_StepLimit(t *testing.T) {
	g, deps := newTestGraph(t)
	g.transitions = map[Node][]Node{
		NodePlanner:      {NodePlanner},
		NodeSimpleAnswer: {NodeTerminal},
	}
	loops := 0
	g.nodes[NodePlanner] = func(_ context.Context, s State) State {
		loops++
		s.Next = NodePlanner
		return s
	}

	res, _ := run(g, "loop")

	assert.Equal(t, maxSteps, loops)
	assert.Equal(t, "generated answer", res.Answer)
	assert.Equal(t, 1, deps.answers.calls)
}

func TestGraph_DefaultAnswer(t *testing.T) {
	g, _ := newTestGraph(t)
	g.nodes[NodeSimpleAnswer] = func(_ context.Context, s State) State {
		s.Next = NodeTerminal
		return s
	}

	res, _ := run(g, "hello")

	assert.Equal(t, DefaultAnswer, res.Answer)
	assert.True(t, res.HasOutput())
}

func TestGraph_ProgressNeverBlocks(t *testing.T) {
	g, _ := newTestGraph(t)

	done := make(chan entity.RunResult, 2)
	go func() {
		done <- g.Run(context.Background(), entity.RunRequest{UserMessage: "hi"}, nil)
	}()
	go func() {
		done <- g.Run(context.Background(), entity.RunRequest{UserMessage: "hi"}, make(chan entity.ProgressEvent))
	}()

	for range 2 {
		select {
		case res := <-done:
			assert.Equal(t, "generated answer", res.Answer)
		case <-time.After(2 * time.Second):
			t.Fatal("run blocked on progress")
		}
	}
}

func TestGraph_AlwaysProducesOutput(t *testing.T) {
	messages := []string{"", "hi", "offer", "jane@co.com", "csv", "what is go", "resume for the candidate"}

	for _, msg := range messages {
		t.Run(msg, func(t *testing.T) {
			g, deps := newTestGraph(t)
			deps.answers.answer = func(context.Context, string, []entity.Chunk) (string, error) {
				return "", errors.New("providers exhausted")
			}

			res, _ := run(g, msg)
			assert.True(t, res.HasOutput())
		})
	}
}
