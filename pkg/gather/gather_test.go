package gather

import (
	"context"
	"testing"
	"time"

	"github.com/Zhangtiande/nudge-sub000/pkg/plugins"
	"github.com/Zhangtiande/nudge-sub000/pkg/session"
	"github.com/Zhangtiande/nudge-sub000/pkg/sysinfo"
)

func TestGather_IncludesHistoryAndCWD(t *testing.T) {
	sessions := session.NewStore(session.StoreConfig{})
	sessions.Record("s1", session.Entry{Command: "git status", ExitCode: 0, Timestamp: time.Now()})

	cfg := Config{
		HistoryWindow:     20,
		IncludeCWDListing: true,
		MaxFilesInListing: 50,
		PriorityHistory:   80,
		PriorityCWD:       60,
	}
	g := New(cfg, sessions, plugins.NewRegistry(), nil)

	bundle := g.Gather(context.Background(), "s1", t.TempDir(), "git sta")

	names := map[string]bool{}
	for _, s := range bundle.Sources {
		names[s.Name] = true
	}
	if !names["history"] {
		t.Error("expected history source present")
	}
	if !names["cwd_listing"] {
		t.Error("expected cwd_listing source present")
	}
}

func TestGather_AbsorbsPluginTimeout(t *testing.T) {
	sessions := session.NewStore(session.StoreConfig{})
	slow := plugins.NewMockPlugin("slow", 20*time.Millisecond, 45, plugins.WithCollectFunc(
		func(ctx context.Context, cwd string) (string, error) {
			select {
			case <-time.After(200 * time.Millisecond):
				return "late payload", nil
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}))
	fast := plugins.NewMockPlugin("fast", time.Second, 45, plugins.WithPayload("fast payload"))

	registry := plugins.NewRegistry(slow, fast)
	g := New(Config{PriorityPlugins: 45}, sessions, registry, nil)

	bundle := g.Gather(context.Background(), "s1", t.TempDir(), "")

	var sawSlow, sawFast bool
	for _, s := range bundle.Sources {
		if s.Name == "slow" {
			sawSlow = true
		}
		if s.Name == "fast" {
			sawFast = true
		}
	}
	if sawSlow {
		t.Error("expected timed-out plugin payload to be absent")
	}
	if !sawFast {
		t.Error("expected fast plugin payload to be present")
	}
}

func TestGather_SystemInfoPinnedAtTop(t *testing.T) {
	sessions := session.NewStore(session.StoreConfig{})
	info := &sysinfo.SystemInfo{OS: "linux", Arch: "amd64", Kernel: "6.1", Hostname: "box"}
	cfg := Config{IncludeSystemInfo: true}
	g := New(cfg, sessions, plugins.NewRegistry(), info)

	bundle := g.Gather(context.Background(), "s1", t.TempDir(), "")
	var found bool
	for _, s := range bundle.Sources {
		if s.Name == "system_info" {
			found = true
			if !s.Pinned {
				t.Error("expected system_info to be pinned")
			}
		}
	}
	if !found {
		t.Fatal("expected system_info source present")
	}
}

func TestTruncate_DropsLowestPriorityFirstAndNeverPinned(t *testing.T) {
	bundle := Bundle{Sources: []Source{
		{Name: "system_info", Priority: 1 << 30, Text: "os linux arch amd64", Pinned: true},
		{Name: "history", Priority: 80, Text: "one two three four five"},
		{Name: "plugin", Priority: 45, Text: "alpha beta gamma"},
	}}

	out := Truncate(bundle, 6)

	names := map[string]bool{}
	for _, s := range out.Sources {
		names[s.Name] = true
	}
	if !names["system_info"] {
		t.Error("pinned source must never be dropped")
	}
	if names["plugin"] {
		t.Error("expected lowest-priority source to be dropped first")
	}
	if !names["history"] {
		t.Error("expected higher-priority source to survive")
	}
}

func TestTruncate_NoOpWhenUnderBudget(t *testing.T) {
	bundle := Bundle{Sources: []Source{{Name: "a", Priority: 50, Text: "short"}}}
	out := Truncate(bundle, 1000)
	if len(out.Sources) != 1 {
		t.Fatalf("expected no sources dropped, got %d", len(out.Sources))
	}
}
