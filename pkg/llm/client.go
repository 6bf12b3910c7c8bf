// Package llm implements the upstream chat connector described in spec
// §4.7: prompt construction, an OpenAI-compatible chat call over
// net/http (no SDK for this wire format appears anywhere in the example
// pack, so this is a justified stdlib component -- see DESIGN.md), and
// response parsing.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/Zhangtiande/nudge-sub000/pkg/gather"
	"github.com/Zhangtiande/nudge-sub000/pkg/protocol"
)

// ErrKind classifies a connector failure into the spec §7 error taxonomy.
type ErrKind string

// Recognized connector error kinds.
const (
	KindTimeout     ErrKind = protocol.ErrLlmTimeout
	KindUnavailable ErrKind = protocol.ErrLlmUnavailable
)

// Error is returned by Client methods on failure.
type Error struct {
	Kind      ErrKind
	Message   string
	Retriable bool
}

func (e *Error) Error() string { return e.Message }

// Config holds the upstream chat-call parameters, mirroring
// pkg/config.ModelConfig.
type Config struct {
	Endpoint  string
	Model     string
	APIKey    string // resolved value: direct key or value read from APIKeyEnv
	Timeout   time.Duration
}

// Client is an OpenAI-compatible chat completion client.
type Client struct {
	cfg  Config
	http *http.Client
}

// New builds a Client. The provided httpClient may be nil, in which case
// a client with cfg.Timeout as its overall deadline is constructed.
func New(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, http: httpClient}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// CompletionResult is the parsed outcome of a completion call.
type CompletionResult struct {
	Suggestions []protocol.Suggestion
}

// Complete builds a shell-mode-specific prompt from bundle and
// sanitizedPrefix, calls the upstream model, and parses the reply into
// suggestions, per spec §4.7. The response's request_id is assigned by
// the dispatcher, not here, so every response (completion, diagnosis, or
// error) gets one from the same source.
func (c *Client) Complete(ctx context.Context, mode protocol.ShellMode, bundle gather.Bundle, sanitizedPrefix string) (*CompletionResult, *Error) {
	messages := []chatMessage{
		{Role: "system", Content: systemPrompt(mode)},
		{Role: "user", Content: buildUserMessage(bundle, sanitizedPrefix)},
	}

	raw, err := c.call(ctx, messages)
	if err != nil {
		return nil, err
	}

	suggestions := parseSuggestions(raw)
	return &CompletionResult{Suggestions: suggestions}, nil
}

// DiagnosisResult is the parsed outcome of a diagnosis call.
type DiagnosisResult struct {
	Diagnosis  string
	Suggestion *string
}

// Diagnose builds the diagnosis-template prompt and parses the reply
// into a diagnosis and optional corrected command, per spec §4.9.
func (c *Client) Diagnose(ctx context.Context, bundle gather.Bundle, command string, exitCode int, sanitizedStderr string) (*DiagnosisResult, *Error) {
	messages := []chatMessage{
		{Role: "system", Content: diagnosisSystemPrompt},
		{Role: "user", Content: buildDiagnosisUserMessage(bundle, command, exitCode, sanitizedStderr)},
	}

	raw, err := c.call(ctx, messages)
	if err != nil {
		return nil, err
	}

	return parseDiagnosis(raw), nil
}

// call performs the HTTP round trip and returns the assistant's raw
// message content.
func (c *Client) call(ctx context.Context, messages []chatMessage) (string, *Error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{Model: c.cfg.Model, Messages: messages})
	if err != nil {
		return "", &Error{Kind: KindUnavailable, Message: fmt.Sprintf("encoding request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &Error{Kind: KindUnavailable, Message: fmt.Sprintf("building request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	// Authorization is set only if a key is configured, so local
	// inference servers that expect no auth header still work (spec §4.7).
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", &Error{Kind: KindTimeout, Message: "upstream model call timed out", Retriable: true}
		}
		return "", &Error{Kind: KindUnavailable, Message: fmt.Sprintf("connecting to model endpoint: %v", err), Retriable: true}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Status and body are surfaced to logs by the caller, never to the
		// shell-facing message, per spec §4.7.
		return "", &Error{
			Kind:    KindUnavailable,
			Message: fmt.Sprintf("upstream model returned status %d: %s", resp.StatusCode, truncateForLog(string(respBody))),
		}
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil || len(parsed.Choices) == 0 {
		return "", &Error{Kind: KindUnavailable, Message: "upstream model response was not well-formed"}
	}

	return parsed.Choices[0].Message.Content, nil
}

func truncateForLog(s string) string {
	const max = 500
	if len(s) > max {
		return s[:max] + "...(truncated)"
	}
	return s
}

var fencedCodeBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// extractJSON strips leading/trailing prose and unwraps a fenced code
// block if present, per spec §4.7's "accept either strict JSON or a
// fenced code block" rule.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if m := fencedCodeBlockRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}

type suggestionsPayload struct {
	Suggestions []struct {
		Command string  `json:"command"`
		Why     *string `json:"why"`
		Diff    *string `json:"diff"`
		Risk    *string `json:"risk"`
	} `json:"suggestions"`
}

// parseSuggestions implements spec §4.7's response-parsing contract for
// completion requests: strict JSON or fenced JSON first, falling back to
// the whole text as a single suggestion's command when parsing fails
// entirely.
func parseSuggestions(raw string) []protocol.Suggestion {
	candidate := extractJSON(raw)

	var payload suggestionsPayload
	if err := json.Unmarshal([]byte(candidate), &payload); err == nil && len(payload.Suggestions) > 0 {
		out := make([]protocol.Suggestion, 0, len(payload.Suggestions))
		for _, s := range payload.Suggestions {
			sug := protocol.Suggestion{Command: s.Command, Why: s.Why, Diff: s.Diff}
			if s.Risk != nil {
				risk := protocol.RiskTag(*s.Risk)
				sug.Risk = &risk
			}
			out = append(out, sug)
		}
		return out
	}

	fallback := strings.TrimSpace(raw)
	if fallback == "" {
		return nil
	}
	return []protocol.Suggestion{{Command: fallback}}
}

type diagnosisPayload struct {
	Diagnosis  string  `json:"diagnosis"`
	Suggestion *string `json:"suggestion"`
}

// parseDiagnosis implements spec §4.7's parsing contract for diagnosis
// requests: strict/fenced JSON first, falling back to the whole text as
// the diagnosis message with a nil suggestion.
func parseDiagnosis(raw string) *DiagnosisResult {
	candidate := extractJSON(raw)

	var payload diagnosisPayload
	if err := json.Unmarshal([]byte(candidate), &payload); err == nil && payload.Diagnosis != "" {
		return &DiagnosisResult{Diagnosis: payload.Diagnosis, Suggestion: payload.Suggestion}
	}

	return &DiagnosisResult{Diagnosis: strings.TrimSpace(raw)}
}
