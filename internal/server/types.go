package server

import (
	"github.com/slkreddy/SafeLayer/internal/manager"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// ProcessRequest is the body of POST /api/v1/process and of a JSON frame
// on /ws. Guards, when set, replaces the server's default guard list.
type ProcessRequest struct {
	Text   string   `json:"text"`
	Guards []string `json:"guards,omitempty"`
}

// ProcessResponse carries the run result. Error is set for failed and
// cancelled runs.
type ProcessResponse struct {
	RunID    string                 `json:"run_id"`
	Status   manager.Status         `json:"status"`
	Output   string                 `json:"output"`
	Outcomes []manager.GuardOutcome `json:"outcomes"`
	Error    string                 `json:"error,omitempty"`
}

type GuardsResponse struct {
	Guards []string `json:"guards"`
}

type VerifyResponse struct {
	Valid    bool   `json:"valid"`
	Checked  int    `json:"checked"`
	Head     uint64 `json:"head"`
	BrokenAt uint64 `json:"broken_at,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// streamResponse is written for every /ws frame.
type streamResponse struct {
	RunID  string         `json:"run_id,omitempty"`
	Output string         `json:"output"`
	Status manager.Status `json:"status"`
	Error  string         `json:"error,omitempty"`
}
