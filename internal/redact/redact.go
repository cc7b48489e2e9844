package redact

import (
	"regexp"
	"sort"
)

// Pattern is one named secret pattern.
type Pattern struct {
	Kind string
	Re   *regexp.Regexp
}

// Match is a positioned secret occurrence.
type Match struct {
	Kind  string
	Start int
	End   int
}

var sensitivePatterns = []Pattern{
	// AWS
	{"aws_credential", regexp.MustCompile(`(?i)(aws_access_key_id|aws_secret_access_key|aws_session_token)\s*[=:]\s*['"]?[A-Za-z0-9/+=]{20,}['"]?`)},
	{"aws_access_key", regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},

	// GitHub
	{"github_token", regexp.MustCompile(`(?i)(github_token|gh_token|github_pat)\s*[=:]\s*['"]?[A-Za-z0-9_-]{30,}['"]?`)},
	{"github_token", regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{36}`)},

	// Generic API keys
	{"api_key", regexp.MustCompile(`(?i)(api_key|apikey|api-key|secret_key|secretkey|secret-key|access_token|auth_token)\s*[=:]\s*['"]?[A-Za-z0-9_-]{16,}['"]?`)},

	// Private keys
	{"private_key", regexp.MustCompile(`-----BEGIN (RSA |EC |DSA |OPENSSH |PGP )?PRIVATE KEY-----`)},

	// Bearer tokens
	{"bearer_token", regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9_-]{20,}`)},

	// Basic auth in URLs
	{"url_credential", regexp.MustCompile(`https?://[^:\s/]+:[^@\s]+@`)},

	// Slack tokens
	{"slack_token", regexp.MustCompile(`xox[baprs]-[0-9]{10,13}-[0-9]{10,13}[a-zA-Z0-9-]*`)},

	// Stripe
	{"stripe_key", regexp.MustCompile(`[sr]k_live_[0-9a-zA-Z]{24}`)},

	{"password", regexp.MustCompile(`(?i)(password|passwd|pwd|secret)\s*[=:]\s*['"]?[^\s'"]{8,}['"]?`)},
}

// Placeholder replaces every redacted secret.
const Placeholder = "[REDACTED]"

// Patterns returns the built-in pattern table.
func Patterns() []Pattern {
	out := make([]Pattern, len(sensitivePatterns))
	copy(out, sensitivePatterns)
	return out
}

// Find returns all secret matches in input ordered by start offset.
// Matches from different patterns may overlap.
func Find(input string) []Match {
	var matches []Match
	for _, p := range sensitivePatterns {
		for _, loc := range p.Re.FindAllStringIndex(input, -1) {
			matches = append(matches, Match{Kind: p.Kind, Start: loc[0], End: loc[1]})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Start != matches[j].Start {
			return matches[i].Start < matches[j].Start
		}
		return matches[i].End > matches[j].End
	})
	return matches
}

// Redact replaces every secret in input with Placeholder.
func Redact(input string) string {
	result := input
	for _, p := range sensitivePatterns {
		result = p.Re.ReplaceAllString(result, Placeholder)
	}
	return result
}
