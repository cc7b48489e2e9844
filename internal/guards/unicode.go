package guards

import (
	"github.com/slkreddy/SafeLayer/internal/guard"
	uniscan "github.com/slkreddy/SafeLayer/internal/unicode"
)

// unicodeRating is the severity and confidence reported per finding kind.
var unicodeRating = map[uniscan.Kind]struct {
	severity   guard.Severity
	confidence float64
}{
	uniscan.KindTag:         {guard.SeverityCritical, 1},
	uniscan.KindBidi:        {guard.SeverityHigh, 1},
	uniscan.KindInvisible:   {guard.SeverityHigh, 0.95},
	uniscan.KindControl:     {guard.SeverityHigh, 1},
	uniscan.KindInvalidUTF8: {guard.SeverityMedium, 1},
	uniscan.KindHomoglyph:   {guard.SeverityMedium, 0.8},
}

// unicodeGuard flags invisible, direction-changing and look-alike
// characters. Masking drops invisible characters and folds homoglyphs to
// their Latin counterparts.
type unicodeGuard struct{}

// NewUnicode returns the Unicode smuggling guard.
func NewUnicode() guard.Guard { return unicodeGuard{} }

func (unicodeGuard) ID() string { return "unicode" }

func (unicodeGuard) Check(text string) ([]guard.Detection, error) {
	findings := uniscan.Scan(text)
	if len(findings) == 0 {
		return nil, nil
	}
	out := make([]guard.Detection, 0, len(findings))
	for _, f := range findings {
		rating := unicodeRating[f.Kind]
		out = append(out, guard.Detection{
			GuardID:     "unicode",
			Kind:        string(f.Kind),
			Start:       f.Start,
			End:         f.End,
			Severity:    rating.severity,
			Confidence:  rating.confidence,
			Explanation: f.Describe(),
		})
	}
	return out, nil
}

func (unicodeGuard) Mask(text string, detections []guard.Detection) (string, error) {
	return guard.MaskSpans(text, detections, func(_ guard.Detection, original string) string {
		return uniscan.Sanitize(original)
	}), nil
}
