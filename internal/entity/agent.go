package entity

import "time"

// RunRequest is the input of one agent run.
type RunRequest struct {
	RequestID      string `json:"reqId,omitempty"`
	UserMessage    string `json:"userMessage"`
	ResumeFileName string `json:"resumeFileName,omitempty"`
	CandidateEmail string `json:"candidateEmail,omitempty"`
	FileURL        string `json:"fileUrl,omitempty"`
}

// CandidateFacts are the structured details used to draft an offer.
type CandidateFacts struct {
	Name            string   `json:"name,omitempty"`
	Email           string   `json:"email,omitempty"`
	Position        string   `json:"position,omitempty"`
	ExperienceYears *int     `json:"experienceYears,omitempty"`
	Skills          []string `json:"skills,omitempty"`
	Location        string   `json:"location,omitempty"`
	CurrentSalary   *string  `json:"currentSalary,omitempty"`
}

// ChartSpec is the chart description rendered by the client.
type ChartSpec struct {
	Type      string           `json:"type"`
	ChartType string           `json:"chartType"`
	Title     string           `json:"title"`
	XKey      string           `json:"xKey"`
	YKey      string           `json:"yKey"`
	Data      []map[string]any `json:"data"`
}

// RunResult is the outcome of a run. Exactly one of Answer, OfferHTML or
// Chart is the primary content; Error is a non-fatal note.
type RunResult struct {
	Name      string     `json:"name,omitempty"`
	Email     string     `json:"email,omitempty"`
	OfferHTML string     `json:"offerHtml,omitempty"`
	Answer    string     `json:"answer,omitempty"`
	Chart     *ChartSpec `json:"ui,omitempty"`
	Insights  string     `json:"insights,omitempty"`
	Error     string     `json:"-"`
}

// HasOutput reports whether the result carries user-facing content.
func (r RunResult) HasOutput() bool {
	return r.Answer != "" || r.OfferHTML != "" || r.Chart != nil
}

// Payload builds the client-facing shape of the result.
func (r RunResult) Payload() map[string]any {
	switch {
	case r.OfferHTML != "":
		return map[string]any{"name": r.Name, "email": r.Email, "offerHtml": r.OfferHTML}
	case r.Chart != nil:
		return map[string]any{"ui": r.Chart, "insights": r.Insights}
	default:
		return map[string]any{"answer": r.Answer}
	}
}

// ProgressEvent is one note emitted while a run executes. A non-nil Result
// marks the terminal event.
type ProgressEvent struct {
	Text   string         `json:"text"`
	TS     time.Time      `json:"ts"`
	Result map[string]any `json:"result,omitempty"`
}

// RunResponse is the synchronous response of POST /api/agent/run.
type RunResponse struct {
	Status    string     `json:"status"`
	RequestID string     `json:"reqId"`
	Name      string     `json:"name,omitempty"`
	Email     string     `json:"email,omitempty"`
	OfferHTML string     `json:"offerHtml,omitempty"`
	Answer    string     `json:"answer,omitempty"`
	UI        *ChartSpec `json:"ui,omitempty"`
	Insights  string     `json:"insights,omitempty"`
}
