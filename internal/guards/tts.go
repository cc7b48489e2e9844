package guards

import (
	"regexp"

	"github.com/slkreddy/SafeLayer/internal/guard"
)

var (
	scriptTagPattern = regexp.MustCompile(`(?i)<[^>]*script[^>]*>?`)
	nonASCIIPattern  = regexp.MustCompile(`[^\x00-\x7F]+`)
)

// NewTTS returns a guard for text that will be spoken by a speech engine.
// Markup that opens a script and runs of non-ASCII characters are removed.
func NewTTS() guard.Guard {
	return ttsGuard{&patternGuard{
		id: "tts",
		rules: []rule{
			{
				kind:     "invalid_tts",
				re:       scriptTagPattern,
				severity: guard.SeverityHigh,
				reason:   "script markup cannot be spoken",
			},
			{
				kind:       "invalid_tts",
				re:         nonASCIIPattern,
				severity:   guard.SeverityMedium,
				confidence: 0.85,
				reason:     "non-ASCII characters are not supported by the speech engine",
			},
		},
		replace: guard.Remove,
	}}
}

type ttsGuard struct{ *patternGuard }

// Mask removes the detected spans. Removal can join the text on either side
// into a new script tag ("<scréipt>"), so script markup is stripped
// again until none is left.
func (g ttsGuard) Mask(text string, detections []guard.Detection) (string, error) {
	out := guard.MaskSpans(text, detections, guard.Remove)
	if len(detections) == 0 {
		return out, nil
	}
	for scriptTagPattern.MatchString(out) {
		out = scriptTagPattern.ReplaceAllString(out, "")
	}
	return out, nil
}
