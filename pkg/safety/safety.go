// Package safety implements the post-generation danger check described in
// spec §4.8: a suggested command is screened against a list of known
// destructive patterns before it reaches the user, independent of
// whatever the LLM itself claimed about risk.
//
// Its Pattern type mirrors pkg/shelltest's lazy-compiled regexp pattern,
// here specialized to "does this command match a known-dangerous shape"
// rather than "does this script satisfy a structural requirement".
package safety

import (
	"regexp"

	"github.com/Zhangtiande/nudge-sub000/pkg/protocol"
)

// Pattern is a named, lazily-compiled danger signature.
type Pattern struct {
	Name    string
	Regex   string
	Warning string

	compiled *regexp.Regexp
}

func (p *Pattern) compile() *regexp.Regexp {
	if p.compiled == nil {
		p.compiled = regexp.MustCompile(p.Regex)
	}
	return p.compiled
}

// builtinPatterns returns the default dangerous-command signatures, per
// spec §4.8: recursive root/home deletion, filesystem formatting, raw
// disk writes, and fork bombs.
func builtinPatterns() []Pattern {
	return []Pattern{
		{
			Name:    "rm_rf_root",
			Regex:   `\brm\s+(-[a-zA-Z]*r[a-zA-Z]*f[a-zA-Z]*|-[a-zA-Z]*f[a-zA-Z]*r[a-zA-Z]*)\s+(/\s*$|/\s|~\s*$|~/|\*\s*$)`,
			Warning: "recursively removes the root, home, or current directory",
		},
		{
			Name:    "rm_rf_no_preserve_root",
			Regex:   `\brm\b.*--no-preserve-root`,
			Warning: "disables rm's root-directory safeguard",
		},
		{
			Name:    "mkfs",
			Regex:   `\bmkfs(\.\w+)?\s+/dev/`,
			Warning: "formats a block device, destroying its contents",
		},
		{
			Name:    "dd_to_device",
			Regex:   `\bdd\b.*\bof=/dev/(sd|hd|nvme|disk)\w*`,
			Warning: "writes raw data over a disk device",
		},
		{
			Name:    "fork_bomb",
			Regex:   `:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;\s*:`,
			Warning: "is a fork bomb that will exhaust process resources",
		},
		{
			Name:    "chmod_recursive_root",
			Regex:   `\bchmod\s+-R\s+[0-7]{3,4}\s+/\s*$`,
			Warning: "recursively changes permissions across the entire filesystem",
		},
		{
			Name:    "git_push_force_main",
			Regex:   `\bgit\s+push\s+.*--force\b.*\b(main|master)\b`,
			Warning: "force-pushes over the main branch history",
		},
	}
}

// Checker screens suggested commands against built-in and user-supplied
// danger patterns.
type Checker struct {
	patterns []Pattern
}

// New builds a Checker from the built-in patterns plus any custom rules
// from config (spec §4.8 Privacy.CustomBlocked).
func New(custom []Pattern) *Checker {
	all := make([]Pattern, 0, len(builtinPatterns())+len(custom))
	all = append(all, builtinPatterns()...)
	all = append(all, custom...)
	return &Checker{patterns: all}
}

// Check screens command and, on a match, returns a high risk tag and a
// non-empty warning describing why. A command that matches nothing is
// left with its LLM-assigned risk untouched by the caller; Check never
// downgrades risk, only escalates it (spec §4.8 monotonicity).
func (c *Checker) Check(command string) (risk *protocol.RiskTag, warning *string) {
	for _, p := range c.patterns {
		if p.compile().MatchString(command) {
			r := protocol.RiskHigh
			w := p.Warning
			return &r, &w
		}
	}
	return nil, nil
}

// Apply overlays Check's verdict onto suggestion in place: a match always
// escalates to high risk and attaches the warning; a non-match leaves the
// suggestion's existing risk and warning untouched, per spec §4.8 ("the
// post-check can only raise risk, never lower it").
func Apply(c *Checker, s *protocol.Suggestion) {
	risk, warning := c.Check(s.Command)
	if risk == nil {
		return
	}
	s.Risk = risk
	if s.Warning == nil {
		s.Warning = warning
	}
}
