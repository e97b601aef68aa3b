package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/futig/workspace-agent/internal/config"
	"github.com/futig/workspace-agent/internal/entity"
	"github.com/futig/workspace-agent/internal/pkg/logger"
	"github.com/futig/workspace-agent/internal/pkg/response"
	"github.com/futig/workspace-agent/internal/pkg/validator"
	agentuc "github.com/futig/workspace-agent/internal/usecase/agent"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	resultReady       = "RESULT_READY"
	fallbackAnswer    = "I'm Karpa AI. How can I help?"
	missingMessage    = "User message is required"
	offerStartedNote  = "Generating offer letter..."
	thinkingNote      = "Thinking..."
	keepAliveComment  = ": keepalive\n\n"
	connectedEventFmt = "event: connected\ndata: %s\n\n"
	messageEventFmt   = "event: message\ndata: %s\n\n"
)

type Handler struct {
	runner    Runner
	answers   FallbackAnswerer
	broker    *Broker
	validator *validator.Validator
	cfg       config.StreamConfig
	now       func() time.Time
}

func NewHandler(
	runner Runner,
	answers FallbackAnswerer,
	broker *Broker,
	validator *validator.Validator,
	cfg config.StreamConfig,
) *Handler {
	return &Handler{
		runner:    runner,
		answers:   answers,
		broker:    broker,
		validator: validator,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Stream handles GET /api/agent/stream - progress events of one request over SSE
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	reqID := r.URL.Query().Get("reqId")
	if reqID == "" {
		reqID = uuid.New().String()
	}

	ctx := logger.AddFields(logger.WithAction(r.Context(), "AgentStream"), zap.String("req_id", reqID))

	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		ctxzap.Warn(ctx, "failed to clear write deadline", zap.Error(err))
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	events, unsubscribe := h.broker.Subscribe(reqID)
	defer unsubscribe()

	connected, _ := json.Marshal(map[string]any{"reqId": reqID, "ts": h.now().UTC()})
	fmt.Fprintf(w, connectedEventFmt, connected)
	if err := rc.Flush(); err != nil {
		ctxzap.Error(ctx, "streaming unsupported", zap.Error(err))
		return
	}

	ctxzap.Info(ctx, "sse client connected", zap.Int("subscribers", h.broker.Subscribers()))

	keepAlive := time.NewTicker(h.cfg.KeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			ctxzap.Info(ctx, "sse client disconnected")
			return

		case ev, ok := <-events:
			if !ok {
				ctxzap.Info(ctx, "sse subscription replaced")
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				ctxzap.Error(ctx, "failed to encode event", zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, messageEventFmt, data); err != nil {
				ctxzap.Info(ctx, "sse write failed", zap.Error(err))
				return
			}
			_ = rc.Flush()

		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, keepAliveComment); err != nil {
				ctxzap.Info(ctx, "sse keepalive failed", zap.Error(err))
				return
			}
			_ = rc.Flush()
		}
	}
}

// Run handles POST /api/agent/run - runs the agent and returns its final result
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	var req entity.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctxzap.Warn(r.Context(), "failed to decode request body", zap.Error(err))
	}

	reqID := r.URL.Query().Get("reqId")
	if reqID == "" {
		reqID = req.RequestID
	}
	if reqID == "" {
		reqID = uuid.New().String()
	}
	req.RequestID = reqID

	ctx := logger.AddFields(logger.WithAction(r.Context(), "AgentRun"), zap.String("req_id", reqID))

	if err := h.validator.ValidateRunRequest(&req); err != nil {
		ctxzap.Warn(ctx, "invalid run request", zap.Error(err))
		h.publish(reqID, "ERROR: "+missingMessage)
		response.ErrorWithAnswer(w, r.WithContext(ctx), http.StatusBadRequest, missingMessage)
		return
	}
	req.UserMessage = strings.TrimSpace(req.UserMessage)

	if agentuc.IsOfferRequest(req.UserMessage) {
		h.publish(reqID, offerStartedNote)
	} else {
		h.publish(reqID, thinkingNote)
	}

	// The run outlives a client that hangs up; its result is still published.
	runCtx := context.WithoutCancel(ctx)

	result, ok := h.execute(runCtx, req)
	if !ok || (result.Error != "" && !result.HasOutput()) {
		h.fallback(runCtx, w, req)
		return
	}

	h.publishResult(reqID, result.Payload())

	ctxzap.Info(ctx, "agent run finished",
		zap.Bool("has_offer", result.OfferHTML != ""),
		zap.Bool("has_chart", result.Chart != nil),
		zap.String("error_note", result.Error),
	)

	response.Success(w, entity.RunResponse{
		Status:    "ok",
		RequestID: reqID,
		Name:      result.Name,
		Email:     result.Email,
		OfferHTML: result.OfferHTML,
		Answer:    result.Answer,
		UI:        result.Chart,
		Insights:  result.Insights,
	})
}

// execute runs the agent, forwarding its progress to the broker. ok is false
// when the run panicked.
func (h *Handler) execute(ctx context.Context, req entity.RunRequest) (result entity.RunResult, ok bool) {
	progress := make(chan entity.ProgressEvent, h.cfg.BufferSize)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for ev := range progress {
			h.broker.Publish(req.RequestID, ev)
		}
	}()

	defer func() {
		close(progress)
		<-drained
		if p := recover(); p != nil {
			ctxzap.Error(ctx, "agent run panicked", zap.Any("panic", p))
			ok = false
		}
	}()

	return h.runner.Run(ctx, req, progress), true
}

// fallback answers with a plain streamed chat when the run itself failed.
func (h *Handler) fallback(ctx context.Context, w http.ResponseWriter, req entity.RunRequest) {
	ctxzap.Warn(ctx, "agent run failed, using fallback chat")

	var full strings.Builder
	answer, err := h.answers.Stream(ctx, req.UserMessage, nil, func(chunk string) {
		full.WriteString(chunk)
		h.publish(req.RequestID, full.String())
	})
	if err != nil {
		ctxzap.Error(ctx, "fallback chat failed", zap.Error(err))
		answer = fallbackAnswer
		h.publish(req.RequestID, answer)
	}
	if answer == "" {
		answer = strings.TrimSpace(full.String())
	}
	if answer == "" {
		answer = fallbackAnswer
	}

	h.publishResult(req.RequestID, map[string]any{"answer": answer})
	response.Success(w, entity.RunResponse{
		Status:    "ok",
		RequestID: req.RequestID,
		Answer:    answer,
	})
}

func (h *Handler) publishResult(reqID string, result map[string]any) {
	h.broker.PublishFinal(reqID, entity.ProgressEvent{
		Text:   resultReady,
		TS:     h.now().UTC(),
		Result: result,
	})
}

func (h *Handler) publish(reqID, text string) {
	h.broker.Publish(reqID, entity.ProgressEvent{
		Text: text,
		TS:   h.now().UTC(),
	})
}
