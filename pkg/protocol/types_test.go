package protocol

import "testing"

func TestShellMode_NormalizeRejectsUnrecognizedTag(t *testing.T) {
	if got := ShellMode("made-up-mode").Normalize(); got != Unknown {
		t.Fatalf("expected Unknown, got %q", got)
	}
	if got := ShellMode("").Normalize(); got != Unknown {
		t.Fatalf("expected Unknown for empty tag, got %q", got)
	}
}

func TestShellMode_IsAutoOnlyForAutoVariants(t *testing.T) {
	auto := []ShellMode{ZshAuto, PSAuto}
	for _, m := range auto {
		if !m.IsAuto() {
			t.Errorf("expected %q.IsAuto() == true", m)
		}
	}
	manual := []ShellMode{ZshInline, BashInline, BashPopup, PSInline, CmdInline, Unknown}
	for _, m := range manual {
		if m.IsAuto() {
			t.Errorf("expected %q.IsAuto() == false", m)
		}
	}
}

func TestCompletionRequest_ModeDefaultsToUnknownWhenNil(t *testing.T) {
	req := CompletionRequest{Buffer: "ls"}
	if got := req.Mode(); got != Unknown {
		t.Fatalf("expected Unknown when ShellMode is nil, got %q", got)
	}
}

func TestCompletionRequest_ModeNormalizesSuppliedTag(t *testing.T) {
	tag := "zsh-inline"
	req := CompletionRequest{ShellMode: &tag}
	if got := req.Mode(); got != ZshInline {
		t.Fatalf("expected ZshInline, got %q", got)
	}
}
