package agent

import (
	"slices"

	"github.com/futig/workspace-agent/internal/entity"
)

type Flow string

const (
	FlowConversation Flow = "conversation"
	FlowOffer        Flow = "offer"
	FlowData         Flow = "data"
)

type Phase int

const (
	PhaseRunning Phase = iota
	PhaseTerminal
)

// State is the value threaded through the nodes of one run. Nodes receive a
// copy and return the successor state; slices are replaced, never mutated.
type State struct {
	Message        string
	ResumeFileName string
	CandidateEmail string
	FileURL        string

	Chunks    []entity.Chunk
	Facts     entity.CandidateFacts
	OfferHTML string
	Chart     *entity.ChartSpec
	Insights  string
	Answer    string

	Flow    Flow
	Next    Node
	Err     string
	Thought string
}

func newState(req entity.RunRequest) State {
	return State{
		Message:        req.UserMessage,
		ResumeFileName: req.ResumeFileName,
		CandidateEmail: req.CandidateEmail,
		FileURL:        req.FileURL,
		Flow:           FlowConversation,
		Next:           NodePlanner,
	}
}

func (s State) Phase() Phase {
	if s.Next == NodeTerminal {
		return PhaseTerminal
	}
	return PhaseRunning
}

func (s State) Terminal() bool {
	return s.Phase() == PhaseTerminal
}

// finish ends the run with a user-facing answer.
func (s State) finish(answer string) State {
	s.Answer = answer
	s.Next = NodeTerminal
	s.Thought = ""
	return s
}

func (s State) withChunks(chunks []entity.Chunk) State {
	s.Chunks = slices.Clone(chunks)
	return s
}

func (s State) hasOutput() bool {
	return s.Answer != "" || s.OfferHTML != "" || s.Chart != nil
}

func (s State) result() entity.RunResult {
	return entity.RunResult{
		Name:      s.Facts.Name,
		Email:     s.Facts.Email,
		OfferHTML: s.OfferHTML,
		Answer:    s.Answer,
		Chart:     s.Chart,
		Insights:  s.Insights,
		Error:     s.Err,
	}
}
