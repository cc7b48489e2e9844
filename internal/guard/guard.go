// Package guard defines the contract every content guard implements.
//
// A guard is a detector plus sanitizer for one category of unsafe content.
// Every guard implements Guard; guards that can describe their findings
// also implement Explainer. Guards never see the audit log, the policy or
// other guards' state.
package guard

//go:generate mockgen -destination=mocks/mock_guard.go -package=mocks github.com/slkreddy/SafeLayer/internal/guard Guard

// Guard is a pluggable detector+sanitizer.
//
// Check must be a pure, deterministic function of text and the guard's own
// configuration and must return an empty slice when text is clean.
// Mask must return text byte-identical when detections is empty, and its
// output must not contain new detections of the guard's own entity kinds.
//
// A guard signals an internal fault by returning an error (or by panicking;
// the manager recovers and records it the same way).
type Guard interface {
	// ID is the stable identifier used for policy lookup and audit records.
	ID() string

	// Check scans text and returns detections ordered by span start.
	Check(text string) ([]Detection, error)

	// Mask redacts or replaces the given detections in text.
	Mask(text string, detections []Detection) (string, error)
}

// Explainer is implemented by guards that can describe a detection in
// human-readable form. Absence of the capability is not an error.
type Explainer interface {
	Explain(d Detection) string
}

// Explain returns g's explanation for d if g implements Explainer,
// otherwise d.Explanation.
func Explain(g Guard, d Detection) string {
	if e, ok := g.(Explainer); ok {
		if s := e.Explain(d); s != "" {
			return s
		}
	}
	return d.Explanation
}
