package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/futig/workspace-agent/internal/entity"
	"github.com/futig/workspace-agent/internal/pkg/logger"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const maxSteps = 16

const (
	DefaultAnswer = "I'm Karpa AI, your agentic workspace. I can read resumes, analyze CSV files, and chat with you. How can I help?"
	FailureAnswer = "I encountered an issue processing your request. " + DefaultAnswer

	failureNoteFmt = "I encountered an error: %s. Let me try to help you in another way."
)

var errStepLimit = errors.New("step limit exceeded")

type nodeFunc func(ctx context.Context, s State) State

// Graph runs a request through the node table until a terminal state.
type Graph struct {
	retriever Retriever
	names     NameEmailExtractor
	drafter   OfferDrafter
	answers   Answerer
	files     FileLocator
	analyzer  DataAnalyzer

	transitions map[Node][]Node
	nodes       map[Node]nodeFunc
	now         func() time.Time
}

func NewGraph(
	retriever Retriever,
	names NameEmailExtractor,
	drafter OfferDrafter,
	answers Answerer,
	files FileLocator,
	analyzer DataAnalyzer,
) (*Graph, error) {
	if err := ValidateTransitions(Transitions); err != nil {
		return nil, fmt.Errorf("validate transitions: %w", err)
	}

	g := &Graph{
		retriever:   retriever,
		names:       names,
		drafter:     drafter,
		answers:     answers,
		files:       files,
		analyzer:    analyzer,
		transitions: Transitions,
		now:         time.Now,
	}
	g.nodes = map[Node]nodeFunc{
		NodePlanner:        g.planner,
		NodeRetrieve:       g.retrieve,
		NodeExtract:        g.extract,
		NodeDraft:          g.draft,
		NodeFinalize:       g.finalize,
		NodeAnalyzeData:    g.analyzeData,
		NodeSimpleAnswer:   g.simpleAnswer,
		NodeGenerateAnswer: g.generateAnswer,
	}

	return g, nil
}

// Run executes one request. Progress notes go to progress without blocking;
// a nil channel discards them. The result always carries an answer, an offer
// or a chart.
func (g *Graph) Run(ctx context.Context, req entity.RunRequest, progress chan<- entity.ProgressEvent) entity.RunResult {
	ctx = logger.WithAction(ctx, "AgentRun")

	state, err := g.loop(ctx, newState(req), progress)
	if err != nil {
		ctxzap.Error(ctx, "agent run failed", zap.Error(err))
		g.emit(ctx, progress, fmt.Sprintf(failureNoteFmt, err))

		failed := newState(req)
		failed.Err = err.Error()
		failed.Answer = FailureAnswer
		return failed.result()
	}

	if !state.hasOutput() && state.Err == "" {
		ctxzap.Info(ctx, "run produced no output, using default answer")
		state.Answer = DefaultAnswer
	}

	return state.result()
}

func (g *Graph) loop(ctx context.Context, state State, progress chan<- entity.ProgressEvent) (State, error) {
	node := NodePlanner

	for steps := 0; ; steps++ {
		if err := ctx.Err(); err != nil {
			return state, err
		}
		if steps > maxSteps {
			return state, errStepLimit
		}
		if steps == maxSteps && node != NodeSimpleAnswer {
			ctxzap.Warn(ctx, "step limit reached, routing to simple answer", zap.Stringer("node", node))
			node = NodeSimpleAnswer
		}

		next, err := g.step(ctx, node, state)
		if err != nil {
			if node == NodeSimpleAnswer {
				return state, err
			}
			ctxzap.Warn(ctx, "node failed, routing to simple answer", zap.Stringer("node", node), zap.Error(err))
			node = NodeSimpleAnswer
			continue
		}

		g.report(ctx, progress, state, next)
		state = next

		if !allowed(g.transitions, node, state.Next) {
			ctxzap.Warn(ctx, "invalid routing",
				zap.Error(entity.ErrInvalidTransition),
				zap.Stringer("from", node),
				zap.Stringer("to", state.Next),
			)
			if node == NodeSimpleAnswer {
				state.Next = NodeTerminal
			} else {
				state.Next = NodeSimpleAnswer
			}
		}

		if state.Terminal() {
			return state, nil
		}
		node = state.Next
	}
}

// step runs a single node, turning a panic into an error.
func (g *Graph) step(ctx context.Context, node Node, state State) (next State, err error) {
	fn, ok := g.nodes[node]
	if !ok {
		return state, fmt.Errorf("%w: %s", entity.ErrUnknownNode, node)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("node %s panicked: %v", node, r)
		}
	}()

	ctx = logger.AddFields(ctx, zap.Stringer("node", node))
	ctxzap.Debug(ctx, "running node")

	state.Thought = ""
	return fn(ctx, state), nil
}

func (g *Graph) report(ctx context.Context, progress chan<- entity.ProgressEvent, prev, next State) {
	if next.Answer != "" && next.Answer != prev.Answer {
		g.emit(ctx, progress, next.Answer)
	}
	if next.Thought != "" {
		g.emit(ctx, progress, next.Thought)
	}
}

func (g *Graph) emit(ctx context.Context, progress chan<- entity.ProgressEvent, text string) {
	text = strings.TrimSpace(text)
	if progress == nil || text == "" {
		return
	}

	select {
	case progress <- entity.ProgressEvent{Text: text, TS: g.now().UTC()}:
	default:
		ctxzap.Debug(ctx, "progress note dropped")
	}
}
