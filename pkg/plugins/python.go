package plugins

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// PythonPlugin reports which dependency manifest is present
// (pyproject.toml, requirements.txt, or uv.lock) and, when available,
// the project name from pyproject.toml.
type PythonPlugin struct {
	TimeoutDuration time.Duration
	PriorityValue   int
}

func NewPythonPlugin(timeout time.Duration, priority int) *PythonPlugin {
	return &PythonPlugin{TimeoutDuration: timeout, PriorityValue: priority}
}

func (p *PythonPlugin) Name() string          { return "python" }
func (p *PythonPlugin) Timeout() time.Duration { return p.TimeoutDuration }
func (p *PythonPlugin) Priority() int          { return p.PriorityValue }

func (p *PythonPlugin) Applies(cwd, buffer string) bool {
	return hasAncestorFile(cwd, "pyproject.toml", "requirements.txt", "uv.lock") ||
		matchesPrefix(buffer, "python", "python3", "pip", "pip3", "uv", "poetry", "pytest")
}

func (p *PythonPlugin) Collect(ctx context.Context, cwd string) (string, error) {
	root := projectRoot(cwd, "pyproject.toml", "requirements.txt", "uv.lock")

	var manifests []string
	for _, name := range []string{"pyproject.toml", "requirements.txt", "uv.lock"} {
		if _, err := os.Stat(filepath.Join(root, name)); err == nil {
			manifests = append(manifests, name)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "manifests: %s\n", strings.Join(manifests, ", "))

	if raw, err := os.ReadFile(filepath.Join(root, "pyproject.toml")); err == nil {
		for _, line := range strings.Split(string(raw), "\n") {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "name") && strings.Contains(trimmed, "=") {
				fmt.Fprintf(&b, "project: %s\n", trimmed)
				break
			}
		}
	}

	return b.String(), nil
}
