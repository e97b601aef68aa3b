package agent

import (
	"context"
	"regexp"
	"strings"
)

const primaryEmailShare = 0.7

var (
	emailToken = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

	greetings    = []string{"hi", "hello", "hey", "howdy", "greetings", "what's up", "sup"}
	dataKeywords = []string{"csv", "analyze", "chart", "plot", "trend", "sales", "data", "visualize"}
	offerWords   = []string{"offer", "draft", "letter"}
)

// planner routes the message by the first matching rule.
func (g *Graph) planner(_ context.Context, s State) State {
	msg := strings.ToLower(strings.TrimSpace(s.Message))
	email := emailToken.FindString(s.Message)

	switch {
	case email != "" && containsAny(msg, offerWords):
		s.Flow, s.CandidateEmail, s.Next = FlowOffer, email, NodeRetrieve
		s.Thought = "Planner: User wants an offer letter. Email detected in message. Proceeding to retrieval..."

	case email != "" && primarilyEmail(email, s.Message) && !containsAny(msg, dataKeywords):
		s.Flow, s.CandidateEmail, s.Next = FlowOffer, email, NodeRetrieve
		s.Thought = "Planner: User provided an email. Assuming follow-up for offer letter. Proceeding to retrieval..."

	case isGreeting(msg):
		s.Flow, s.Next = FlowConversation, NodeSimpleAnswer
		s.Thought = "Planner: Detected casual greeting. Routing to simple answer..."

	case containsAny(msg, dataKeywords):
		s.Flow, s.Next = FlowData, NodeAnalyzeData
		s.Thought = "Planner: Detected request for data analysis. Routing to CSV Analyzer..."

	case containsAny(msg, offerWords) ||
		(strings.Contains(msg, "resume") && (strings.Contains(msg, "candidate") || strings.Contains(msg, "for"))):
		s.Flow, s.Next = FlowOffer, NodeRetrieve
		s.Thought = "Planner: Detected offer letter request. Routing to Retriever..."

	default:
		s.Flow, s.Next = FlowConversation, NodeSimpleAnswer
		s.Thought = "Planner: General query detected. Routing to Simple Answer..."
	}

	return s
}

// IsOfferRequest reports whether the message asks for an offer letter.
func IsOfferRequest(message string) bool {
	return containsAny(strings.ToLower(message), offerWords)
}

func primarilyEmail(email, message string) bool {
	return float64(len(email)) >= primaryEmailShare*float64(len(strings.TrimSpace(message)))
}

func isGreeting(msg string) bool {
	for _, g := range greetings {
		if msg == g || msg == g+"." || msg == g+"!" {
			return true
		}
	}
	return false
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
