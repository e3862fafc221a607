package tokenizer

import (
	"log/slog"
	"regexp"
)

// CompiledPattern holds a pre-compiled detection regex for one PII category.
type CompiledPattern struct {
	Name        string
	Regex       *regexp.Regexp
	Description string
}

// builtinPattern is the source form of a detection pattern before compilation.
type builtinPattern struct {
	name        string
	pattern     string
	description string
}

// builtinPatterns is the fixed detection battery. Order matters: some
// patterns overlap (bank account digit runs vs credit cards, phone numbers
// vs plain digit runs) and earlier categories claim the match.
var builtinPatterns = []builtinPattern{
	{
		name:        "email",
		pattern:     `[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`,
		description: "Email addresses",
	},
	{
		name:        "phone",
		pattern:     `(?:\+?\d{1,2}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`,
		description: "Phone numbers with optional country code",
	},
	{
		name:        "ssn",
		pattern:     `\b\d{3}-\d{2}-\d{4}\b`,
		description: "US social security numbers",
	},
	{
		name:        "credit_card",
		pattern:     `\b(?:\d{4}[-\s]?){3}\d{4}\b`,
		description: "16-digit card numbers, grouped or contiguous",
	},
	{
		name:        "ipv4",
		pattern:     `\b(?:\d{1,3}\.){3}\d{1,3}\b`,
		description: "IPv4 addresses",
	},
	{
		name:        "date_of_birth",
		pattern:     `\b\d{1,2}/\d{1,2}/(?:19|20)\d{2}\b`,
		description: "Slash-separated dates with a plausible year",
	},
	{
		name:        "api_key",
		pattern:     `(?i)\b(?:sk|pk|rk|api|key|token)[-_][A-Za-z0-9]{16,}\b`,
		description: "Prefixed API keys and tokens",
	},
	{
		name:        "passport",
		pattern:     `\b[A-Z]{1,2}\d{6,9}\b`,
		description: "Passport numbers",
	},
	{
		name:        "bank_account",
		pattern:     `\b\d{8,17}\b`,
		description: "Bare digit runs of bank account length",
	},
}

// compileBuiltinPatterns compiles the battery, preserving order.
// Invalid patterns are logged and skipped.
func compileBuiltinPatterns() []*CompiledPattern {
	compiled := make([]*CompiledPattern, 0, len(builtinPatterns))
	for _, p := range builtinPatterns {
		re, err := regexp.Compile(p.pattern)
		if err != nil {
			slog.Error("Failed to compile PII detection pattern, skipping",
				"pattern", p.name, "error", err)
			continue
		}
		compiled = append(compiled, &CompiledPattern{
			Name:        p.name,
			Regex:       re,
			Description: p.description,
		})
	}
	return compiled
}
