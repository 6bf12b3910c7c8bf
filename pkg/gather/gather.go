// Package gather assembles the bounded, prioritized context bundle
// described in spec §4.4: history, CWD listing, system info, similar
// commands, and plugin contributions, each collected under an
// independent timeout and fanned out concurrently with
// golang.org/x/sync/errgroup -- the same fan-out primitive the teacher's
// domain dependency set already carries for the tailscale/claude
// collectors' concurrent probes.
package gather

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Zhangtiande/nudge-sub000/pkg/plugins"
	"github.com/Zhangtiande/nudge-sub000/pkg/session"
	"github.com/Zhangtiande/nudge-sub000/pkg/sysinfo"
)

// Source is one named, prioritized contribution to the context bundle.
type Source struct {
	Name     string
	Priority int
	Text     string
	Pinned   bool // system info is pinned at top and never truncated
}

// Bundle is the gatherer's output, per spec §3 ("Context bundle").
type Bundle struct {
	Sources []Source
}

// Config controls gatherer behavior, mirroring pkg/config's
// ContextConfig.
type Config struct {
	HistoryWindow          int
	IncludeCWDListing       bool
	IncludeSystemInfo       bool
	SimilarCommandsEnabled  bool
	SimilarCommandsWindow   int
	SimilarCommandsMax      int
	MaxFilesInListing       int
	MaxTotalTokens          int
	PriorityHistory         int
	PriorityCWD             int
	PriorityPlugins         int

	PluginTimeout time.Duration // default per-plugin timeout when a plugin doesn't set its own
}

// trivialCommands are excluded from similar-command matching, per spec
// §4.4 ("excluding trivial shell commands").
var trivialCommands = map[string]bool{
	"ls": true, "cd": true, "pwd": true, "clear": true, "exit": true, "cls": true,
}

// Gatherer assembles context bundles for completion requests.
type Gatherer struct {
	cfg       Config
	sessions  *session.Store
	plugins   *plugins.Registry
	sysInfo   *sysinfo.SystemInfo // computed once per process, per spec §4.4
}

// New builds a Gatherer. sysInfo may be nil if system info collection
// failed at startup; the gatherer then simply omits that source.
func New(cfg Config, sessions *session.Store, registry *plugins.Registry, sysInfo *sysinfo.SystemInfo) *Gatherer {
	return &Gatherer{cfg: cfg, sessions: sessions, plugins: registry, sysInfo: sysInfo}
}

// Gather assembles a bundle for a completion request at cwd with the
// given buffer, sessionID, and git root (if any). Every source runs
// under its own timeout derived from ctx; a source that errors or times
// out contributes nothing, never failing the overall call (spec §4.4).
func (g *Gatherer) Gather(ctx context.Context, sessionID, cwd, buffer string) Bundle {
	type result struct {
		src Source
		ok  bool
	}

	applicable := g.plugins.Applicable(cwd, buffer)
	slots := make([]result, 4+len(applicable))
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		slots[0] = result{src: g.gatherHistory(sessionID), ok: true}
		return nil
	})
	eg.Go(func() error {
		if !g.cfg.IncludeCWDListing {
			return nil
		}
		slots[1] = result{src: g.gatherCWDListing(egCtx, cwd), ok: true}
		return nil
	})
	eg.Go(func() error {
		if !g.cfg.IncludeSystemInfo || g.sysInfo == nil {
			return nil
		}
		slots[2] = result{src: g.gatherSystemInfo(), ok: true}
		return nil
	})
	eg.Go(func() error {
		if !g.cfg.SimilarCommandsEnabled || len(buffer) < 3 {
			return nil
		}
		slots[3] = result{src: g.gatherSimilarCommands(sessionID, buffer), ok: true}
		return nil
	})

	for i, p := range applicable {
		i, p := i, p
		eg.Go(func() error {
			slots[4+i] = result{src: g.gatherPlugin(ctx, p, cwd), ok: true}
			return nil
		})
	}

	// errgroup.Go never returns an error here; Wait only blocks until all
	// goroutines finish, each having already respected its own timeout.
	_ = eg.Wait()

	var bundle Bundle
	for _, r := range slots {
		if r.ok && (r.src.Text != "" || r.src.Pinned) {
			bundle.Sources = append(bundle.Sources, r.src)
		}
	}
	return bundle
}

func (g *Gatherer) gatherHistory(sessionID string) Source {
	snap, ok := g.sessions.Get(sessionID, g.cfg.HistoryWindow)
	if !ok || len(snap.Recent) == 0 {
		return Source{Name: "history", Priority: g.cfg.PriorityHistory}
	}
	var b strings.Builder
	for i := len(snap.Recent) - 1; i >= 0; i-- {
		e := snap.Recent[i]
		fmt.Fprintf(&b, "%s (exit %d)\n", e.Command, e.ExitCode)
	}
	return Source{Name: "history", Priority: g.cfg.PriorityHistory, Text: b.String()}
}

func (g *Gatherer) gatherCWDListing(ctx context.Context, cwd string) Source {
	deadline := 50 * time.Millisecond
	select {
	case <-ctx.Done():
		return Source{Name: "cwd_listing", Priority: g.cfg.PriorityCWD}
	default:
	}

	done := make(chan Source, 1)
	go func() {
		entries, err := os.ReadDir(cwd)
		if err != nil {
			done <- Source{Name: "cwd_listing", Priority: g.cfg.PriorityCWD}
			return
		}
		limit := g.cfg.MaxFilesInListing
		if limit <= 0 {
			limit = 50
		}
		var b strings.Builder
		for i, e := range entries {
			if i >= limit {
				break
			}
			name := e.Name()
			if e.IsDir() {
				name += "/"
			}
			fmt.Fprintf(&b, "%s\n", name)
		}
		done <- Source{Name: "cwd_listing", Priority: g.cfg.PriorityCWD, Text: b.String()}
	}()

	select {
	case s := <-done:
		return s
	case <-time.After(deadline):
		return Source{Name: "cwd_listing", Priority: g.cfg.PriorityCWD}
	case <-ctx.Done():
		return Source{Name: "cwd_listing", Priority: g.cfg.PriorityCWD}
	}
}

func (g *Gatherer) gatherSystemInfo() Source {
	info := g.sysInfo
	text := fmt.Sprintf("os: %s\narch: %s\nkernel: %s\nhostname: %s\n",
		info.OS, info.Arch, info.Kernel, info.Hostname)
	return Source{Name: "system_info", Priority: 1 << 30, Text: text, Pinned: true}
}

func (g *Gatherer) gatherSimilarCommands(sessionID, buffer string) Source {
	snap, ok := g.sessions.Get(sessionID, g.cfg.SimilarCommandsWindow)
	if !ok {
		return Source{Name: "similar_commands", Priority: 70}
	}

	keywords := keywordSet(buffer)
	max := g.cfg.SimilarCommandsMax
	if max <= 0 {
		max = 5
	}

	var matches []string
	for i := len(snap.Recent) - 1; i >= 0 && len(matches) < max; i-- {
		cmd := snap.Recent[i].Command
		first := strings.Fields(cmd)
		if len(first) > 0 && trivialCommands[first[0]] {
			continue
		}
		if overlaps(keywords, keywordSet(cmd)) {
			matches = append(matches, cmd)
		}
	}

	if len(matches) == 0 {
		return Source{Name: "similar_commands", Priority: 70}
	}
	return Source{Name: "similar_commands", Priority: 70, Text: strings.Join(matches, "\n") + "\n"}
}

func keywordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, f := range strings.Fields(s) {
		set[f] = true
	}
	return set
}

func overlaps(a, b map[string]bool) bool {
	for k := range a {
		if b[k] {
			return true
		}
	}
	return false
}

func (g *Gatherer) gatherPlugin(ctx context.Context, p plugins.Plugin, cwd string) Source {
	timeout := p.Timeout()
	if timeout <= 0 {
		timeout = g.cfg.PluginTimeout
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan struct {
		text string
		err  error
	}, 1)
	go func() {
		text, err := p.Collect(pctx, cwd)
		done <- struct {
			text string
			err  error
		}{text, err}
	}()

	priority := p.Priority()
	if priority <= 0 {
		priority = g.cfg.PriorityPlugins
	}

	select {
	case r := <-done:
		if r.err != nil {
			return Source{Name: p.Name(), Priority: priority}
		}
		return Source{Name: p.Name(), Priority: priority, Text: r.text}
	case <-pctx.Done():
		return Source{Name: p.Name(), Priority: priority}
	}
}

// Truncate drops sources from lowest priority upward until the estimated
// total word count fits maxTokens, per spec §4.4. Pinned sources are
// never dropped. Ties in priority preserve original order.
func Truncate(bundle Bundle, maxTokens int) Bundle {
	sources := append([]Source(nil), bundle.Sources...)

	total := 0
	for _, s := range sources {
		total += estimateTokens(s.Text)
	}
	if total <= maxTokens {
		return Bundle{Sources: sources}
	}

	order := make([]int, len(sources))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return sources[order[i]].Priority < sources[order[j]].Priority
	})

	dropped := make(map[int]bool)
	for _, idx := range order {
		if total <= maxTokens {
			break
		}
		if sources[idx].Pinned {
			continue
		}
		total -= estimateTokens(sources[idx].Text)
		dropped[idx] = true
	}

	var kept []Source
	for i, s := range sources {
		if !dropped[i] {
			kept = append(kept, s)
		}
	}
	return Bundle{Sources: kept}
}

// estimateTokens is a word-based token estimate, per spec §4.4.
func estimateTokens(text string) int {
	return len(strings.Fields(text))
}
