package guards

import (
	"regexp"

	"github.com/slkreddy/SafeLayer/internal/guard"
)

// InjectionMask replaces text that tries to steer the model.
const InjectionMask = "[INSTRUCTION REMOVED]"

// injectionRules are positioned prompt injection signals.
var injectionRules = []rule{
	{
		kind:       "instruction_override",
		re:         anyOf(instructionOverridePatterns...),
		severity:   guard.SeverityHigh,
		confidence: 0.85,
		reason:     "instruction override language (e.g. 'ignore previous')",
	},
	{
		kind:       "prompt_exfiltration",
		re:         anyOf(promptExfilPatterns...),
		severity:   guard.SeverityMedium,
		confidence: 0.75,
		reason:     "attempt to reveal the system prompt or instructions",
	},
	{
		kind:       "disable_security",
		re:         anyOf(disableSecurityPatterns...),
		severity:   guard.SeverityCritical,
		confidence: 0.9,
		reason:     "attempt to disable or bypass safety controls",
	},
	{
		kind:       "indirect_injection",
		re:         anyOf(indirectInjectionPatterns...),
		severity:   guard.SeverityCritical,
		confidence: 0.8,
		reason:     "embedded instructions targeting an AI agent",
	},
	{
		kind:       "obfuscated_base64",
		re:         regexp.MustCompile(`[A-Za-z0-9+/]{40,}={0,2}`),
		severity:   guard.SeverityHigh,
		confidence: 0.6,
		reason:     "long base64 payload that may hide instructions",
	},
	{
		kind:       "obfuscated_hex",
		re:         regexp.MustCompile(`(\\\\?x[0-9a-fA-F]{2}){4,}`),
		severity:   guard.SeverityMedium,
		confidence: 0.7,
		reason:     "hex escape sequences that may hide instructions",
	},
}

var instructionOverridePatterns = []string{
	`(?i)ignore\s+(all\s+)?(previous|prior|above)\s+(instructions?|rules?)`,
	`(?i)disregard\s+(all\s+)?(previous|prior|your)\s+(previous\s+)?(instructions?|rules?|guidelines?)`,
	`(?i)forget\s+(all\s+)?(your|previous)\s+(instructions?|rules?)`,
	`(?i)override\s+(all\s+)?(safety|security)\s+(rules?|protocols?|guidelines?)`,
	`(?i)you\s+are\s+now\s+(free|unrestricted|unfiltered)`,
	`(?i)new\s+instructions?:`,
}

var promptExfilPatterns = []string{
	`(?i)(show|reveal|display|print|output)\s+(me\s+)?(your|the)\s+(system\s+)?prompt`,
	`(?i)(what\s+are|tell\s+me)\s+(your|the)\s+(instructions?|rules?|guidelines?)`,
	`(?i)repeat\s+(your\s+)?(system\s+)?(prompt|instructions?)`,
}

var disableSecurityPatterns = []string{
	`(?i)(disable|turn\s+off|bypass|skip)\s+(safelayer|safety|security|guards?|filters?)`,
	`(?i)SAFELAYER_DISABLE`,
}

var indirectInjectionPatterns = []string{
	`(?i)SYSTEM:\s*(ignore|forget|override|you\s+are)`,
	`(?i)\[INST\]`,
	`(?i)<\|im_start\|>system`,
	`(?i)BEGIN\s+HIDDEN\s+INSTRUCTIONS?`,
	`(?i)IMPORTANT:\s*(ignore|disregard|override)`,
}

// anyOf compiles patterns into a single alternation. Each pattern keeps
// its own flags inside a non-capturing group.
func anyOf(patterns ...string) *regexp.Regexp {
	expr := ""
	for i, p := range patterns {
		if i > 0 {
			expr += "|"
		}
		expr += "(?:" + p + ")"
	}
	return regexp.MustCompile(expr)
}

// NewInjection returns the prompt injection guard.
func NewInjection() guard.Guard {
	return &patternGuard{
		id:      "injection",
		rules:   injectionRules,
		replace: guard.Placeholder(InjectionMask),
	}
}
