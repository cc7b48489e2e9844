package manager

import (
	"time"

	"github.com/slkreddy/SafeLayer/internal/guard"
)

// Status is the overall outcome of a run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusBlocked   Status = "blocked"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// GuardOutcome is what one guard did during a run. Action is one of the
// audit.Action* values.
type GuardOutcome struct {
	GuardID    string            `json:"guard_id"`
	Detections []guard.Detection `json:"detections"`
	Action     string            `json:"action_taken"`
	Duration   time.Duration     `json:"duration_ns"`
	Err        error             `json:"-"`
	Fault      string            `json:"fault,omitempty"`
	Sequence   uint64            `json:"sequence_no"`
}

// RunResult is returned by Manager.Run. The caller owns it.
type RunResult struct {
	RunID      string         `json:"run_id"`
	InputHash  string         `json:"input_hash"`
	OutputText string         `json:"output_text"`
	Outcomes   []GuardOutcome `json:"outcomes"`
	Status     Status         `json:"status"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Duration   time.Duration  `json:"duration_ns"`
	// Err is the cause of a failed or cancelled run.
	Err error `json:"-"`
}

// Detections returns every detection of the run in guard order.
func (r *RunResult) Detections() []guard.Detection {
	var out []guard.Detection
	for _, o := range r.Outcomes {
		out = append(out, o.Detections...)
	}
	return out
}

// Faults returns the guard faults recorded on outcomes.
func (r *RunResult) Faults() []error {
	var out []error
	for _, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, o.Err)
		}
	}
	return out
}

// Outcome returns the outcome for guardID, if that guard ran.
func (r *RunResult) Outcome(guardID string) (GuardOutcome, bool) {
	for _, o := range r.Outcomes {
		if o.GuardID == guardID {
			return o, true
		}
	}
	return GuardOutcome{}, false
}
