package plugins

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// GitDepth selects how much detail the git plugin contributes, per spec
// §4.5's depth-level example.
type GitDepth string

// Recognized git plugin depths.
const (
	GitLight    GitDepth = "light"    // branch + dirty flag
	GitStandard GitDepth = "standard" // + staged files and recent commits
	GitDetailed GitDepth = "detailed" // + unstaged files and diff stats
)

// GitPlugin reports branch, dirty state, and (at higher depths) staged
// and unstaged changes and recent commit summaries. All work is done by
// shelling out to git, which pkg/daemon's cooperative scheduler treats as
// a blocking external-process wait and offloads accordingly (spec §5).
type GitPlugin struct {
	TimeoutDuration time.Duration
	PriorityValue   int
	Depth           GitDepth
}

// NewGitPlugin builds a GitPlugin, defaulting an empty depth to light.
func NewGitPlugin(timeout time.Duration, priority int, depth GitDepth) *GitPlugin {
	if depth == "" {
		depth = GitLight
	}
	return &GitPlugin{TimeoutDuration: timeout, PriorityValue: priority, Depth: depth}
}

func (p *GitPlugin) Name() string          { return "git" }
func (p *GitPlugin) Timeout() time.Duration { return p.TimeoutDuration }
func (p *GitPlugin) Priority() int          { return p.PriorityValue }

func (p *GitPlugin) Applies(cwd, buffer string) bool {
	return hasAncestorFile(cwd, ".git") || matchesPrefix(buffer, "git")
}

// Collect runs one or more git subcommands scoped to the project root
// and assembles a textual payload according to p.Depth. Any failed
// subcommand is simply omitted from the payload rather than aborting
// the whole contribution, since a mid-rebase or detached-HEAD repo can
// make some git commands legitimately fail.
func (p *GitPlugin) Collect(ctx context.Context, cwd string) (string, error) {
	root := projectRoot(cwd, ".git")

	var b strings.Builder

	branch, err := runGit(ctx, root, "rev-parse", "--abbrev-ref", "HEAD")
	if err == nil {
		fmt.Fprintf(&b, "branch: %s\n", strings.TrimSpace(branch))
	}

	status, err := runGit(ctx, root, "status", "--porcelain")
	dirty := err == nil && strings.TrimSpace(status) != ""
	fmt.Fprintf(&b, "dirty: %t\n", dirty)

	if p.Depth == GitLight {
		return b.String(), nil
	}

	if dirty {
		staged, err := runGit(ctx, root, "diff", "--name-only", "--cached")
		if err == nil && strings.TrimSpace(staged) != "" {
			fmt.Fprintf(&b, "staged:\n%s", indentLines(staged))
		}
	}

	log, err := runGit(ctx, root, "log", "--oneline", "-5")
	if err == nil && strings.TrimSpace(log) != "" {
		fmt.Fprintf(&b, "recent commits:\n%s", indentLines(log))
	}

	if p.Depth != GitDetailed {
		return b.String(), nil
	}

	if dirty {
		unstaged, err := runGit(ctx, root, "diff", "--name-only")
		if err == nil && strings.TrimSpace(unstaged) != "" {
			fmt.Fprintf(&b, "unstaged:\n%s", indentLines(unstaged))
		}
		stat, err := runGit(ctx, root, "diff", "--stat")
		if err == nil && strings.TrimSpace(stat) != "" {
			fmt.Fprintf(&b, "diff stat:\n%s", indentLines(stat))
		}
	}

	return b.String(), nil
}

func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return out.String(), nil
}

func indentLines(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	var b strings.Builder
	for _, l := range lines {
		fmt.Fprintf(&b, "  %s\n", l)
	}
	return b.String()
}
