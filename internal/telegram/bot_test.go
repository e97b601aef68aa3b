package telegram

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/futig/workspace-agent/internal/config"
	"github.com/futig/workspace-agent/internal/entity"
	"github.com/futig/workspace-agent/internal/usecase/agent"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testChatID int64 = 42

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	actions  []string
	fileURL  string
	fileErr  error
	updates  chan tgbotapi.Update
	stopped  bool
	nextID   int
	stopOnce sync.Once
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	f.nextID++
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if action, ok := c.(tgbotapi.ChatActionConfig); ok {
		f.actions = append(f.actions, action.Action)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetFileDirectURL(string) (string, error) {
	return f.fileURL, f.fileErr
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.stopOnce.Do(func() {
		f.mu.Lock()
		f.stopped = true
		f.mu.Unlock()
		if f.updates != nil {
			close(f.updates)
		}
	})
}

// texts returns the text of every plain message sent, in order.
func (f *fakeAPI) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, msg.Text)
		}
	}
	return out
}

func (f *fakeAPI) edits() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		if msg, ok := c.(tgbotapi.EditMessageTextConfig); ok {
			out = append(out, msg.Text)
		}
	}
	return out
}

func (f *fakeAPI) documents() []tgbotapi.DocumentConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.DocumentConfig
	for _, c := range f.sent {
		if doc, ok := c.(tgbotapi.DocumentConfig); ok {
			out = append(out, doc)
		}
	}
	return out
}

type fakeRunner struct {
	runFunc func(ctx context.Context, req entity.RunRequest, progress chan<- entity.ProgressEvent) entity.RunResult
}

func (f *fakeRunner) Run(ctx context.Context, req entity.RunRequest, progress chan<- entity.ProgressEvent) entity.RunResult {
	return f.runFunc(ctx, req, progress)
}

type fakeDocuments struct {
	uploadFunc func(ctx context.Context, file entity.UploadedFile, body io.Reader) (*entity.UploadResponse, error)
}

func (f *fakeDocuments) Upload(ctx context.Context, file entity.UploadedFile, body io.Reader) (*entity.UploadResponse, error) {
	return f.uploadFunc(ctx, file, body)
}

func newTestBot(api *fakeAPI, runner Runner, documents DocumentUsecase) *Bot {
	cfg := config.TelegramConfig{
		UpdateTimeout:      1,
		RateLimitPerMinute: 60,
		ShutdownTimeout:    time.Second,
	}
	uploadCfg := config.UploadConfig{MaxUploadSize: 1 << 20}
	return newBot(api, cfg, uploadCfg, runner, documents, zap.NewNop())
}

func testContext() context.Context {
	return ctxzap.ToContext(context.Background(), zap.NewNop())
}

func textUpdate(text string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: 1,
		Message: &tgbotapi.Message{
			MessageID: 7,
			From:      &tgbotapi.User{ID: 100},
			Chat:      &tgbotapi.Chat{ID: testChatID},
			Text:      text,
		},
	}
}

func commandUpdate(command string) tgbotapi.Update {
	update := textUpdate(command)
	update.Message.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(command)}}
	return update
}

func documentUpdate(doc *tgbotapi.Document) tgbotapi.Update {
	update := textUpdate("")
	update.Message.Document = doc
	return update
}

func answerRunner(result entity.RunResult) *fakeRunner {
	return &fakeRunner{runFunc: func(context.Context, entity.RunRequest, chan<- entity.ProgressEvent) entity.RunResult {
		return result
	}}
}

func TestBot_Commands(t *testing.T) {
	tests := []struct {
		name    string
		command string
		want    string
	}{
		{name: "start", command: "/start", want: welcomeText},
		{name: "help", command: "/help", want: welcomeText},
		{name: "unknown", command: "/nope", want: unknownCommandText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{}
			runner := &fakeRunner{runFunc: func(context.Context, entity.RunRequest, chan<- entity.ProgressEvent) entity.RunResult {
				t.Fatal("commands must not run the agent")
				return entity.RunResult{}
			}}
			b := newTestBot(api, runner, nil)

			b.handle(testContext(), commandUpdate(tt.command))

			assert.Equal(t, []string{tt.want}, api.texts())
		})
	}
}

func TestBot_ChatRelaysProgressAndAnswer(t *testing.T) {
	api := &fakeAPI{}
	var got entity.RunRequest
	runner := &fakeRunner{runFunc: func(_ context.Context, req entity.RunRequest, progress chan<- entity.ProgressEvent) entity.RunResult {
		got = req
		progress <- entity.ProgressEvent{Text: "Searching documents..."}
		progress <- entity.ProgressEvent{Text: "Searching documents..."}
		progress <- entity.ProgressEvent{Text: "Writing answer..."}
		return entity.RunResult{Answer: "Paris."}
	}}
	b := newTestBot(api, runner, nil)

	b.handle(testContext(), textUpdate("What is the capital of France?"))

	assert.Equal(t, "tg-42-7", got.RequestID)
	assert.Equal(t, "What is the capital of France?", got.UserMessage)
	assert.Equal(t, []string{thinkingNote, "Paris."}, api.texts())
	assert.Equal(t, []string{"Searching documents...", "Writing answer..."}, api.edits())
	assert.Contains(t, api.actions, tgbotapi.ChatTyping)
}

func TestBot_ChatThrottlesProgress(t *testing.T) {
	api := &fakeAPI{}
	runner := &fakeRunner{runFunc: func(_ context.Context, _ entity.RunRequest, progress chan<- entity.ProgressEvent) entity.RunResult {
		progress <- entity.ProgressEvent{Text: "one"}
		progress <- entity.ProgressEvent{Text: "two"}
		progress <- entity.ProgressEvent{Text: "three"}
		return entity.RunResult{Answer: "done"}
	}}
	b := newTestBot(api, runner, nil)
	b.cfg.ProgressInterval = time.Hour

	b.handle(testContext(), textUpdate("hello there"))

	assert.Equal(t, []string{"one"}, api.edits())
}

func TestBot_ChatResults(t *testing.T) {
	tests := []struct {
		name    string
		message string
		result  entity.RunResult
		want    []string
	}{
		{
			name:    "empty result falls back to default answer",
			message: "hmm",
			result:  entity.RunResult{},
			want:    []string{thinkingNote, agent.DefaultAnswer},
		},
		{
			name:    "chart is summarized as text",
			message: "analyze sales",
			result: entity.RunResult{
				Insights: "Sales grew.",
				Chart: &entity.ChartSpec{
					Title: "Sales by month",
					XKey:  "month",
					YKey:  "sales",
					Data: []map[string]any{
						{"month": "Jan", "sales": 10},
						{"month": "Feb", "sales": 20},
					},
				},
			},
			want: []string{thinkingNote, "Sales grew.\n\nSales by month\nJan: 10\nFeb: 20"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{}
			b := newTestBot(api, answerRunner(tt.result), nil)

			b.handle(testContext(), textUpdate(tt.message))

			assert.Equal(t, tt.want, api.texts())
		})
	}
}

func TestBot_ChatSendsOfferAsPDF(t *testing.T) {
	api := &fakeAPI{}
	result := entity.RunResult{
		Name:      "Jane Doe",
		Email:     "jane@example.com",
		OfferHTML: "<h1>Offer</h1><p>Dear Jane, we are pleased to offer you the role.</p>",
	}
	b := newTestBot(api, answerRunner(result), nil)

	b.handle(testContext(), textUpdate("Generate an offer letter for jane@example.com"))

	assert.Equal(t, []string{offerNote}, api.texts())

	docs := api.documents()
	require.Len(t, docs, 1)
	assert.Equal(t, "Offer letter for Jane Doe (jane@example.com)", docs[0].Caption)

	file, ok := docs[0].File.(tgbotapi.FileBytes)
	require.True(t, ok)
	assert.Equal(t, "offer-letter-Jane_Doe.pdf", file.Name)
	assert.Equal(t, "%PDF", string(file.Bytes[:4]))
}

func TestBot_Document(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("name,score\nann,3\n"))
	}))
	defer srv.Close()

	tests := []struct {
		name       string
		doc        *tgbotapi.Document
		fileURL    string
		fileErr    error
		uploadErr  error
		wantText   string
		wantUpload bool
	}{
		{
			name:       "csv is uploaded",
			doc:        &tgbotapi.Document{FileID: "f1", FileName: "scores.csv", MimeType: "text/csv", FileSize: 17},
			fileURL:    srv.URL + "/file/f1",
			wantText:   "Got scores.csv: 1 chunks extracted.",
			wantUpload: true,
		},
		{
			name:     "unsupported format",
			doc:      &tgbotapi.Document{FileID: "f2", FileName: "photo.png", MimeType: "image/png", FileSize: 10},
			wantText: unsupportedFileText,
		},
		{
			name:     "too large",
			doc:      &tgbotapi.Document{FileID: "f3", FileName: "big.pdf", MimeType: "application/pdf", FileSize: 2 << 20},
			wantText: "File size must be less than 1MB",
		},
		{
			name:     "insecure download url",
			doc:      &tgbotapi.Document{FileID: "f4", FileName: "scores.csv", MimeType: "text/csv", FileSize: 17},
			fileURL:  "http://example.com/file",
			wantText: uploadFailedText,
		},
		{
			name:     "file url lookup fails",
			doc:      &tgbotapi.Document{FileID: "f5", FileName: "scores.csv", MimeType: "text/csv", FileSize: 17},
			fileErr:  errors.New("telegram down"),
			wantText: uploadFailedText,
		},
		{
			name:       "upload fails",
			doc:        &tgbotapi.Document{FileID: "f6", FileName: "scores.csv", MimeType: "text/csv", FileSize: 17},
			fileURL:    srv.URL + "/file/f6",
			uploadErr:  errors.New("disk full"),
			wantText:   uploadFailedText,
			wantUpload: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{fileURL: tt.fileURL, fileErr: tt.fileErr}

			var uploaded entity.UploadedFile
			var body string
			called := false
			documents := &fakeDocuments{uploadFunc: func(_ context.Context, file entity.UploadedFile, r io.Reader) (*entity.UploadResponse, error) {
				called = true
				uploaded = file
				data, err := io.ReadAll(r)
				require.NoError(t, err)
				body = string(data)
				if tt.uploadErr != nil {
					return nil, tt.uploadErr
				}
				return &entity.UploadResponse{OriginalName: file.OriginalName, Chunks: 1}, nil
			}}

			b := newTestBot(api, nil, documents)
			b.download = srv.Client()

			b.handle(testContext(), documentUpdate(tt.doc))

			assert.Equal(t, []string{tt.wantText}, api.texts())
			assert.Equal(t, tt.wantUpload, called)
			if tt.wantUpload {
				assert.Equal(t, entity.FileKindCSV, uploaded.Kind)
				assert.Equal(t, "scores.csv", uploaded.OriginalName)
				assert.Equal(t, "name,score\nann,3\n", body)
			}
		})
	}
}

func TestBot_StartStop(t *testing.T) {
	api := &fakeAPI{updates: make(chan tgbotapi.Update, 1)}
	handled := make(chan entity.RunRequest, 1)
	runner := &fakeRunner{runFunc: func(_ context.Context, req entity.RunRequest, _ chan<- entity.ProgressEvent) entity.RunResult {
		handled <- req
		return entity.RunResult{Answer: "ok"}
	}}
	b := newTestBot(api, runner, nil)

	b.Start(context.Background())
	api.updates <- textUpdate("ping")

	select {
	case req := <-handled:
		assert.Equal(t, "ping", req.UserMessage)
	case <-time.After(2 * time.Second):
		t.Fatal("update was not handled")
	}

	require.NoError(t, b.Stop())
	assert.True(t, api.stopped)
	assert.Contains(t, api.texts(), "ok")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "абв…", truncate("абвгдеж", 4))
}
