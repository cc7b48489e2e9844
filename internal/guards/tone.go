package guards

import (
	"regexp"
	"slices"
	"strings"

	"github.com/slkreddy/SafeLayer/internal/guard"
)

// DefaultProfanity is the word list used when none is configured.
var DefaultProfanity = []string{"crap", "damn", "fuck", "shit"}

// NewTone returns a guard that flags profanity from words, matched as whole
// words case-insensitively, and masks it with asterisks. A list with no
// non-blank word means DefaultProfanity.
func NewTone(words []string) guard.Guard {
	quoted := quoteWords(words)
	if len(quoted) == 0 {
		quoted = quoteWords(DefaultProfanity)
	}
	// Longest first so alternation prefers the full word.
	slices.SortFunc(quoted, func(a, b string) int { return len(b) - len(a) })

	return &patternGuard{
		id: "tone",
		rules: []rule{{
			kind:       "profanity",
			re:         regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`),
			severity:   guard.SeverityMedium,
			confidence: 0.9,
			reason:     "profanity",
		}},
		replace: guard.Stars,
	}
}

func quoteWords(words []string) []string {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			quoted = append(quoted, regexp.QuoteMeta(w))
		}
	}
	return quoted
}
