package guards

import (
	"fmt"
	"regexp"

	"github.com/slkreddy/SafeLayer/internal/guard"
)

// Placeholders written over masked personal data.
const (
	EmailMask = "[EMAIL MASKED]"
	PhoneMask = "[PHONE MASKED]"
)

var (
	emailPattern = regexp.MustCompile(`[\w.\-+]+@[\w\-]+(?:\.[\w\-]+)*\.[A-Za-z]{2,}`)

	// North American numbers with optional country code, separators and
	// parenthesised area code, plus bare 10 digit runs.
	phonePattern = regexp.MustCompile(`(?:\+?1[\s.\-]?)?(?:\(\d{3}\)\s?|\b\d{3}[\s.\-]?)\d{3}[\s.\-]?\d{4}\b`)
)

func emailRule() rule {
	return rule{
		kind:       "email",
		re:         emailPattern,
		severity:   guard.SeverityHigh,
		confidence: 0.95,
		reason:     "email address",
	}
}

func phoneRule() rule {
	return rule{
		kind:       "phone",
		re:         phonePattern,
		severity:   guard.SeverityHigh,
		confidence: 0.9,
		reason:     "phone number",
	}
}

// NewEmail returns a guard that masks email addresses.
func NewEmail() guard.Guard {
	return &piiGuard{patternGuard{
		id:      "email",
		rules:   []rule{emailRule()},
		replace: guard.Placeholder(EmailMask),
	}}
}

// NewPhone returns a guard that masks phone numbers.
func NewPhone() guard.Guard {
	return &piiGuard{patternGuard{
		id:      "phone",
		rules:   []rule{phoneRule()},
		replace: guard.Placeholder(PhoneMask),
	}}
}

// NewPII returns a guard covering both email addresses and phone numbers.
func NewPII() guard.Guard {
	return &piiGuard{patternGuard{
		id:      "pii",
		rules:   []rule{emailRule(), phoneRule()},
		replace: byKind(map[string]string{"email": EmailMask, "phone": PhoneMask}, "[PII MASKED]"),
	}}
}

type piiGuard struct {
	patternGuard
}

// Explain never repeats the matched value.
func (g *piiGuard) Explain(d guard.Detection) string {
	return fmt.Sprintf("%s detected at bytes %d-%d", d.Kind, d.Start, d.End)
}
