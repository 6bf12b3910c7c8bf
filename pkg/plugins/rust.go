package plugins

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// RustPlugin reports the nearest Cargo.toml's package name and version.
// Cargo.toml's [package] table is scanned with a small regexp rather
// than a full TOML parse, since only two scalar fields are needed and
// spec §6 already commits the daemon's own config format to YAML.
type RustPlugin struct {
	TimeoutDuration time.Duration
	PriorityValue   int
}

func NewRustPlugin(timeout time.Duration, priority int) *RustPlugin {
	return &RustPlugin{TimeoutDuration: timeout, PriorityValue: priority}
}

func (p *RustPlugin) Name() string          { return "rust" }
func (p *RustPlugin) Timeout() time.Duration { return p.TimeoutDuration }
func (p *RustPlugin) Priority() int          { return p.PriorityValue }

func (p *RustPlugin) Applies(cwd, buffer string) bool {
	return hasAncestorFile(cwd, "Cargo.toml") || matchesPrefix(buffer, "cargo", "rustc", "rustup")
}

var (
	rustNameRe    = regexp.MustCompile(`(?m)^\s*name\s*=\s*"([^"]+)"`)
	rustVersionRe = regexp.MustCompile(`(?m)^\s*version\s*=\s*"([^"]+)"`)
)

func (p *RustPlugin) Collect(ctx context.Context, cwd string) (string, error) {
	root := projectRoot(cwd, "Cargo.toml")
	raw, err := os.ReadFile(filepath.Join(root, "Cargo.toml"))
	if err != nil {
		return "", err
	}
	content := string(raw)

	packageSection := content
	if idx := strings.Index(content, "[dependencies"); idx >= 0 {
		packageSection = content[:idx]
	}

	name := "unknown"
	if m := rustNameRe.FindStringSubmatch(packageSection); m != nil {
		name = m[1]
	}
	version := "unknown"
	if m := rustVersionRe.FindStringSubmatch(packageSection); m != nil {
		version = m[1]
	}

	return fmt.Sprintf("crate: %s@%s\n", name, version), nil
}
