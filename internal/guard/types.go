package guard

import "fmt"

// Severity indicates the impact of a detection.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns a numeric ordering for comparisons. Higher is more severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool { return s.Rank() > 0 }

// Detection is one flagged span of text. Start and End are byte offsets
// into the text that was offered to the guard's Check, before any masking
// by that guard.
type Detection struct {
	GuardID     string   `json:"guard_id"`
	Kind        string   `json:"entity_kind"`
	Start       int      `json:"start"`
	End         int      `json:"end"`
	Severity    Severity `json:"severity"`
	Confidence  float64  `json:"confidence,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
}

// Score returns the detection confidence, treating an unset value as 1.
func (d Detection) Score() float64 {
	if d.Confidence <= 0 {
		return 1
	}
	return d.Confidence
}

// Len returns the span length in bytes.
func (d Detection) Len() int { return d.End - d.Start }

func (d Detection) String() string {
	return fmt.Sprintf("%s/%s[%d:%d](%s)", d.GuardID, d.Kind, d.Start, d.End, d.Severity)
}
