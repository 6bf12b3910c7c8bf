package llm

import (
	"fmt"
	"strings"

	"github.com/Zhangtiande/nudge-sub000/pkg/gather"
	"github.com/Zhangtiande/nudge-sub000/pkg/protocol"
)

// systemPrompt selects the shell-mode-specific system prompt, per spec
// §4.7: inline modes want a single best candidate, popup/auto modes want
// several ranked candidates, and diagnosis wants a root-cause write-up.
func systemPrompt(mode protocol.ShellMode) string {
	switch mode {
	case protocol.ZshInline, protocol.BashInline, protocol.PSInline, protocol.CmdInline:
		return "You are a shell completion assistant. Given the user's shell " +
			"history, working directory, and partial command, respond with " +
			"strict JSON: {\"suggestions\": [{\"command\": string}]} containing " +
			"exactly one best candidate."
	case protocol.BashPopup, protocol.ZshAuto, protocol.PSAuto:
		return "You are a shell completion assistant. Given the user's shell " +
			"history, working directory, and partial command, respond with " +
			"strict JSON: {\"suggestions\": [{\"command\": string, \"why\"?: " +
			"string, \"risk\"?: \"low\"|\"moderate\"|\"high\"}]} containing up " +
			"to five ranked candidates, most likely first."
	default:
		return "You are a shell completion assistant. Respond with strict " +
			"JSON: {\"suggestions\": [{\"command\": string}]}."
	}
}

const diagnosisSystemPrompt = "You are a shell diagnosis assistant. Given a " +
	"failed command, its exit code, and captured stderr, respond with " +
	"strict JSON: {\"diagnosis\": string, \"suggestion\"?: string} -- " +
	"diagnosis explains the likely root cause, suggestion is an optional " +
	"corrected command."

// buildUserMessage concatenates the context bundle (each source under a
// labeled header, system info first) followed by the sanitized buffer up
// to the cursor, per spec §4.7.
func buildUserMessage(bundle gather.Bundle, sanitizedPrefix string) string {
	var b strings.Builder
	for _, src := range orderedForPrompt(bundle) {
		if src.Text == "" {
			continue
		}
		fmt.Fprintf(&b, "## %s\n%s\n", src.Name, src.Text)
	}
	fmt.Fprintf(&b, "## current buffer\n%s", sanitizedPrefix)
	return b.String()
}

// orderedForPrompt puts the pinned system-info source first, then the
// remaining sources in their existing (priority-truncated) order.
func orderedForPrompt(bundle gather.Bundle) []gather.Source {
	var pinned, rest []gather.Source
	for _, s := range bundle.Sources {
		if s.Pinned {
			pinned = append(pinned, s)
		} else {
			rest = append(rest, s)
		}
	}
	return append(pinned, rest...)
}

// buildDiagnosisUserMessage assembles the diagnosis prompt body, per
// spec §4.9.
func buildDiagnosisUserMessage(bundle gather.Bundle, command string, exitCode int, sanitizedStderr string) string {
	var b strings.Builder
	for _, src := range orderedForPrompt(bundle) {
		if src.Text == "" {
			continue
		}
		fmt.Fprintf(&b, "## %s\n%s\n", src.Name, src.Text)
	}
	fmt.Fprintf(&b, "## failed command\n%s\n## exit code\n%d\n## stderr\n%s", command, exitCode, sanitizedStderr)
	return b.String()
}
