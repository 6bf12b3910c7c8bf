// Package dispatch implements the Server Dispatcher described in spec
// §4.2: envelope parsing (including the legacy bare-payload form), cache
// lookup, routing to the completion or diagnosis pipeline, response
// timing, and output-format serialization for client callers (§6).
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Zhangtiande/nudge-sub000/pkg/cache"
	"github.com/Zhangtiande/nudge-sub000/pkg/gather"
	"github.com/Zhangtiande/nudge-sub000/pkg/llm"
	"github.com/Zhangtiande/nudge-sub000/pkg/protocol"
	"github.com/Zhangtiande/nudge-sub000/pkg/safety"
	"github.com/Zhangtiande/nudge-sub000/pkg/sanitizer"
	"github.com/Zhangtiande/nudge-sub000/pkg/session"
)

// Config carries the pieces of pkg/config the dispatcher needs directly,
// rather than depending on the whole Config tree.
type Config struct {
	CacheTTLAuto     time.Duration
	CacheTTLManual   time.Duration
	CacheTTLNegative time.Duration
	MaxTotalTokens   int
	PrefixBytes      int

	DiagnosisEnabled    bool
	DiagnosisTimeout    time.Duration
	MaxStderrBytes      int

	ModelTimeout time.Duration
}

// Dispatcher routes parsed requests to the completion or diagnosis
// pipeline and shapes the response, per spec §4.2.
type Dispatcher struct {
	cfg       Config
	cacheDB   *cache.Store
	gatherer  *gather.Gatherer
	sessions  *session.Store
	sanitizer *sanitizer.Sanitizer
	safety    *safety.Checker
	llmClient *llm.Client
	log       *slog.Logger
}

// New builds a Dispatcher from its collaborators.
func New(cfg Config, cacheDB *cache.Store, gatherer *gather.Gatherer, sessions *session.Store, san *sanitizer.Sanitizer, chk *safety.Checker, llmClient *llm.Client, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{cfg: cfg, cacheDB: cacheDB, gatherer: gatherer, sessions: sessions, sanitizer: san, safety: chk, llmClient: llmClient, log: log}
}

// Dispatch parses one request line and returns the wire response, per
// spec §4.2's five-step dispatch logic. It never panics and never
// returns nil: every failure mode is represented as a CompletionResponse
// with a populated Error field.
func (d *Dispatcher) Dispatch(ctx context.Context, line []byte) protocol.CompletionResponse {
	start := time.Now()
	requestID := uuid.NewString()

	kind, payload, err := parseEnvelope(line)
	if err != nil {
		return d.errorResponse(start, requestID, protocol.ErrRequestInvalid, "malformed request: "+err.Error(), false)
	}

	var resp protocol.CompletionResponse
	switch kind {
	case "completion":
		resp = d.dispatchCompletion(ctx, payload, start, requestID)
	case "diagnosis":
		resp = d.dispatchDiagnosis(ctx, payload, start, requestID)
	default:
		return d.errorResponse(start, requestID, protocol.ErrRequestInvalid, fmt.Sprintf("unrecognized request type %q", kind), false)
	}

	resp.ProcessingTimeMS = uint64(time.Since(start).Milliseconds())
	return resp
}

func (d *Dispatcher) errorResponse(start time.Time, requestID, code, message string, retriable bool) protocol.CompletionResponse {
	return protocol.CompletionResponse{
		RequestID:        requestID,
		ProcessingTimeMS: uint64(time.Since(start).Milliseconds()),
		Error:            &protocol.Error{Code: code, Message: message, Retriable: retriable},
	}
}

// parseEnvelope accepts both the typed envelope form and the legacy bare
// completion payload, per spec §4.2 and §6.
func parseEnvelope(line []byte) (kind string, payload json.RawMessage, err error) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return "", nil, fmt.Errorf("empty request")
	}

	var env protocol.Envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return "", nil, err
	}

	if env.Type != "" {
		return env.Type, env.Payload, nil
	}

	// Legacy form: the whole line is the completion payload. Verify it at
	// least looks like a completion request (has a buffer field) before
	// accepting it, so a malformed envelope with an empty "type" doesn't
	// silently become a completion attempt.
	var probe struct {
		Buffer *string `json:"buffer"`
	}
	if err := json.Unmarshal(trimmed, &probe); err != nil || probe.Buffer == nil {
		return "", nil, fmt.Errorf("request has no recognized type and is not a valid bare completion payload")
	}
	return "completion", json.RawMessage(trimmed), nil
}

func (d *Dispatcher) dispatchCompletion(ctx context.Context, payload json.RawMessage, start time.Time, requestID string) protocol.CompletionResponse {
	var req protocol.CompletionRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return d.errorResponse(start, requestID, protocol.ErrRequestInvalid, "malformed completion payload: "+err.Error(), false)
	}

	mode := req.Mode()
	ttl := d.cfg.CacheTTLManual
	if mode.IsAuto() {
		ttl = d.cfg.CacheTTLAuto
	}

	var gitRoot, gitState string
	if req.GitRoot != nil {
		gitRoot = *req.GitRoot
	}
	if req.GitState != nil {
		gitState = *req.GitState
	}
	var timeBucket uint64
	hasTimeBucket := req.TimeBucket != nil
	if hasTimeBucket {
		timeBucket = *req.TimeBucket
	}

	key := cache.BuildKey(cache.KeyInput{
		Buffer: req.Buffer, CursorPos: req.CursorPos, CWD: req.CWD,
		GitRoot: gitRoot, GitState: gitState, ShellMode: mode,
		TimeBucket: timeBucket, HasTimeBucket: hasTimeBucket,
	}, d.sanitizer, d.cfg.PrefixBytes)

	now := time.Now()
	result := d.cacheDB.Get(key, now)

	switch result.Status {
	case cache.Fresh:
		resp := result.Response
		hit := true
		resp.CacheHit = &hit
		age := result.AgeMS
		resp.CacheAgeMS = &age
		return resp
	case cache.Stale:
		if result.ShouldRefresh {
			go d.refresh(context.Background(), req, mode, key, ttl)
		}
		resp := result.Response
		hit := true
		resp.CacheHit = &hit
		age := result.AgeMS
		resp.CacheAgeMS = &age
		return resp
	}

	resp := d.produceCompletion(ctx, req, mode, requestID)
	miss := false
	resp.CacheHit = &miss
	negative := len(resp.Suggestions) == 0 && resp.Error == nil
	entryTTL := ttl
	if negative {
		entryTTL = d.cfg.CacheTTLNegative
	}
	if resp.Error == nil {
		d.cacheDB.Insert(key, resp, entryTTL, negative, now)
	}
	return resp
}

// refresh recomputes a stale entry in the background and writes the
// result back via FinishRefresh, never overwriting a fresher value with
// an error (spec §4.3).
func (d *Dispatcher) refresh(ctx context.Context, req protocol.CompletionRequest, mode protocol.ShellMode, key string, ttl time.Duration) {
	resp := d.produceCompletion(ctx, req, mode, uuid.NewString())
	if resp.Error != nil {
		d.cacheDB.FinishRefresh(key, nil, ttl, false, time.Now())
		return
	}
	negative := len(resp.Suggestions) == 0
	entryTTL := ttl
	if negative {
		entryTTL = d.cfg.CacheTTLNegative
	}
	d.cacheDB.FinishRefresh(key, &resp, entryTTL, negative, time.Now())
}

func (d *Dispatcher) produceCompletion(ctx context.Context, req protocol.CompletionRequest, mode protocol.ShellMode, requestID string) protocol.CompletionResponse {
	d.sessions.RecordDelta(req.SessionID, req.Buffer, req.LastExitCode, req.Timestamp)

	bundle := d.gatherer.Gather(ctx, req.SessionID, req.CWD, req.Buffer)
	bundle = gather.Truncate(bundle, d.cfg.MaxTotalTokens)

	prefix := req.Buffer
	if req.CursorPos >= 0 && req.CursorPos <= len(req.Buffer) {
		prefix = req.Buffer[:req.CursorPos]
	}
	sanitizedPrefix, _ := d.sanitizer.Sanitize(prefix)

	llmCtx, cancel := context.WithTimeout(ctx, d.cfg.ModelTimeout)
	defer cancel()

	result, llmErr := d.llmClient.Complete(llmCtx, mode, bundle, sanitizedPrefix)
	if llmErr != nil {
		d.log.Warn("llm completion failed", "error", llmErr.Message, "kind", llmErr.Kind)
		return protocol.CompletionResponse{
			RequestID: requestID,
			Error:     &protocol.Error{Code: string(llmErr.Kind), Message: "the model did not produce a suggestion", Retriable: llmErr.Retriable},
		}
	}

	suggestions := result.Suggestions
	for i := range suggestions {
		safety.Apply(d.safety, &suggestions[i])
	}

	return protocol.CompletionResponse{RequestID: requestID, Suggestions: suggestions}
}

func (d *Dispatcher) dispatchDiagnosis(ctx context.Context, payload json.RawMessage, start time.Time, requestID string) protocol.CompletionResponse {
	if !d.cfg.DiagnosisEnabled {
		return d.errorResponse(start, requestID, protocol.ErrConfigError, "diagnosis is disabled", false)
	}

	var req protocol.DiagnosisRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return d.errorResponse(start, requestID, protocol.ErrRequestInvalid, "malformed diagnosis payload: "+err.Error(), false)
	}

	// The failed command and its exit code are known exactly here, unlike
	// the delta-attribution completion requests use, so record it
	// directly (spec §4.10).
	d.sessions.Record(req.SessionID, session.Entry{Command: req.Command, ExitCode: req.ExitCode, Timestamp: req.Timestamp})

	// Reduced gatherer: skip similar-commands, per spec §4.9. The
	// gatherer itself gates similar-commands on buffer length >= 3, so
	// passing the failed command's first word keeps plugins that
	// activate on command prefix working without re-introducing
	// similar-commands matching.
	firstWord := strings.Fields(req.Command)
	prefixBuffer := ""
	if len(firstWord) > 0 {
		prefixBuffer = firstWord[0]
	}
	bundle := d.gatherer.Gather(ctx, req.SessionID, req.CWD, prefixBuffer)

	stderr := req.StderrOutput
	if d.cfg.MaxStderrBytes > 0 && len(stderr) > d.cfg.MaxStderrBytes {
		stderr = stderr[:d.cfg.MaxStderrBytes]
	}
	sanitizedStderr, _ := d.sanitizer.Sanitize(stderr)

	llmCtx, cancel := context.WithTimeout(ctx, d.cfg.DiagnosisTimeout)
	defer cancel()

	result, llmErr := d.llmClient.Diagnose(llmCtx, bundle, req.Command, req.ExitCode, sanitizedStderr)
	if llmErr != nil {
		d.log.Warn("llm diagnosis failed", "error", llmErr.Message, "kind", llmErr.Kind)
		return protocol.CompletionResponse{
			RequestID: requestID,
			Error:     &protocol.Error{Code: string(llmErr.Kind), Message: "the model did not produce a diagnosis", Retriable: llmErr.Retriable},
		}
	}

	summary := result.Diagnosis
	resp := protocol.CompletionResponse{RequestID: requestID, Summary: &summary}
	if result.Suggestion != nil && *result.Suggestion != "" {
		resp.Suggestions = []protocol.Suggestion{{Command: *result.Suggestion}}
		safety.Apply(d.safety, &resp.Suggestions[0])
	}
	return resp
}

// FormatPlain renders resp as the single-line "plain" output format
// described in spec §6: the top suggestion's command, or the
// NUDGE_WARNING sentinel if the safety check flagged it.
func FormatPlain(resp protocol.CompletionResponse) string {
	if len(resp.Suggestions) == 0 {
		return ""
	}
	s := resp.Suggestions[0]
	if s.Warning != nil && *s.Warning != "" {
		return "NUDGE_WARNING: " + *s.Warning
	}
	return s.Command
}

// FormatList renders resp as the "list" output format described in spec
// §6: one candidate per line, TAB-separated fields in fixed order
// (risk, command, warning, why, diff), with empty fields left empty
// rather than omitted.
func FormatList(resp protocol.CompletionResponse) string {
	var b strings.Builder
	for i, s := range resp.Suggestions {
		if i > 0 {
			b.WriteByte('\n')
		}
		risk := ""
		if s.Risk != nil {
			risk = string(*s.Risk)
		}
		warning := ""
		if s.Warning != nil {
			warning = *s.Warning
		}
		why := ""
		if s.Why != nil {
			why = *s.Why
		}
		diff := ""
		if s.Diff != nil {
			diff = *s.Diff
		}
		fmt.Fprintf(&b, "%s\t%s\t%s\t%s\t%s", risk, s.Command, warning, why, diff)
	}
	return b.String()
}

// FormatJSON renders resp as the full response JSON, per spec §6.
func FormatJSON(resp protocol.CompletionResponse) (string, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
