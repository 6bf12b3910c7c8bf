package plugins

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// NodePlugin reports the nearest package.json's name, version, and
// declared scripts.
type NodePlugin struct {
	TimeoutDuration time.Duration
	PriorityValue   int
}

func NewNodePlugin(timeout time.Duration, priority int) *NodePlugin {
	return &NodePlugin{TimeoutDuration: timeout, PriorityValue: priority}
}

func (p *NodePlugin) Name() string          { return "node" }
func (p *NodePlugin) Timeout() time.Duration { return p.TimeoutDuration }
func (p *NodePlugin) Priority() int          { return p.PriorityValue }

func (p *NodePlugin) Applies(cwd, buffer string) bool {
	return hasAncestorFile(cwd, "package.json") || matchesPrefix(buffer, "npm", "yarn", "pnpm", "node", "npx")
}

func (p *NodePlugin) Collect(ctx context.Context, cwd string) (string, error) {
	root := projectRoot(cwd, "package.json")
	raw, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		return "", err
	}

	var manifest struct {
		Name    string            `json:"name"`
		Version string            `json:"version"`
		Scripts map[string]string `json:"scripts"`
	}
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "package: %s@%s\n", manifest.Name, manifest.Version)
	if len(manifest.Scripts) > 0 {
		names := make([]string, 0, len(manifest.Scripts))
		for name := range manifest.Scripts {
			names = append(names, name)
		}
		fmt.Fprintf(&b, "scripts: %s\n", strings.Join(names, ", "))
	}
	return b.String(), nil
}
