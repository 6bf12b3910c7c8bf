// Package sanitizer redacts secrets from free-form text before it is
// allowed into a cache key, a log line, or an LLM prompt, per spec §4.4.
//
// Its Pattern type is grounded on pkg/shelltest's lazy-compiled regexp
// pattern, generalized here from "required/forbidden structural check"
// to "find and replace" since sanitization rewrites text rather than
// merely flagging it.
package sanitizer

import "regexp"

// Pattern is a named, lazily-compiled regular expression used to find
// and redact a class of secret.
type Pattern struct {
	Name    string
	Regex   string
	Replace string // replacement text, e.g. "<REDACTED_API_KEY>"

	compiled *regexp.Regexp
}

func (p *Pattern) compile() *regexp.Regexp {
	if p.compiled == nil {
		p.compiled = regexp.MustCompile(p.Regex)
	}
	return p.compiled
}

// builtinPatterns returns the default secret patterns, per spec §4.4:
// API keys, bearer tokens, AWS-style keys, GitHub tokens, password-like
// flags, credentials embedded in URLs, and PEM private key blocks.
func builtinPatterns() []Pattern {
	return []Pattern{
		{
			Name:    "openai_api_key",
			Regex:   `\bsk-[A-Za-z0-9]{20,}\b`,
			Replace: "<REDACTED_API_KEY>",
		},
		{
			Name:    "github_token",
			Regex:   `\b(ghp|gho|ghs|ghu|ghr)_[A-Za-z0-9]{20,}\b`,
			Replace: "<REDACTED_GITHUB_TOKEN>",
		},
		{
			Name:    "aws_access_key",
			Regex:   `\b(AKIA|ASIA)[A-Z0-9]{16}\b`,
			Replace: "<REDACTED_AWS_KEY>",
		},
		{
			Name:    "bearer_token",
			Regex:   `(?i)\bbearer\s+[A-Za-z0-9._\-]{10,}`,
			Replace: "Bearer <REDACTED_TOKEN>",
		},
		{
			Name:    "password_flag",
			Regex:   `(?i)(--password|--pass|-p)[=\s]+\S+`,
			Replace: "$1 <REDACTED_PASSWORD>",
		},
		{
			Name:    "credential_flag_assignment",
			Regex:   `(?i)\b(password|passwd|secret|api_key|apikey|token|access_key)\s*=\s*['"]?[^\s'"]+['"]?`,
			Replace: "$1=<REDACTED>",
		},
		{
			Name:    "url_credentials",
			Regex:   `(https?://)[^/\s:@]+:[^/\s:@]+@`,
			Replace: "$1<REDACTED>@",
		},
		{
			Name:    "pem_private_key",
			Regex:   `(?s)-----BEGIN [A-Z ]*PRIVATE KEY-----.*?-----END [A-Z ]*PRIVATE KEY-----`,
			Replace: "<REDACTED_PRIVATE_KEY>",
		},
	}
}

// Sanitizer redacts secrets from text. The zero value is not usable;
// construct with New.
type Sanitizer struct {
	patterns []Pattern
}

// New builds a Sanitizer from the built-in patterns plus any
// user-supplied custom patterns from config (spec §4.4, applied after
// the built-ins so a custom rule can further redact what a built-in
// pattern left behind).
func New(custom []Pattern) *Sanitizer {
	all := make([]Pattern, 0, len(builtinPatterns())+len(custom))
	all = append(all, builtinPatterns()...)
	all = append(all, custom...)
	return &Sanitizer{patterns: all}
}

// Sanitize redacts every pattern match in text, reporting whether any
// replacement was made. Sanitize is idempotent: re-running it on its
// own output is always a no-op, since every Replace string is free of
// the patterns that produced it.
func (s *Sanitizer) Sanitize(text string) (redacted string, applied bool) {
	out := text
	for _, p := range s.patterns {
		re := p.compile()
		if re.MatchString(out) {
			applied = true
			out = re.ReplaceAllString(out, p.Replace)
		}
	}
	return out, applied
}
