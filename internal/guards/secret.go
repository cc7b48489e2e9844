package guards

import (
	"github.com/slkreddy/SafeLayer/internal/guard"
	"github.com/slkreddy/SafeLayer/internal/redact"
)

// secretGuard masks credentials using the redact pattern table.
type secretGuard struct{}

// NewSecret returns a guard that replaces credentials with
// redact.Placeholder.
func NewSecret() guard.Guard { return secretGuard{} }

func (secretGuard) ID() string { return "secret" }

func (secretGuard) Check(text string) ([]guard.Detection, error) {
	matches := redact.Find(text)
	out := make([]guard.Detection, 0, len(matches))
	for _, m := range matches {
		out = append(out, guard.Detection{
			GuardID:  "secret",
			Kind:     m.Kind,
			Start:    m.Start,
			End:      m.End,
			Severity: guard.SeverityCritical,
		})
	}
	return out, nil
}

func (secretGuard) Mask(text string, detections []guard.Detection) (string, error) {
	return guard.MaskSpans(text, detections, guard.Placeholder(redact.Placeholder)), nil
}

func (secretGuard) Explain(d guard.Detection) string {
	return d.Kind + " credential"
}
