package plugins

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DockerPlugin reports which container build/compose files are present
// and, for a Dockerfile, its base image.
type DockerPlugin struct {
	TimeoutDuration time.Duration
	PriorityValue   int
}

func NewDockerPlugin(timeout time.Duration, priority int) *DockerPlugin {
	return &DockerPlugin{TimeoutDuration: timeout, PriorityValue: priority}
}

func (p *DockerPlugin) Name() string          { return "docker" }
func (p *DockerPlugin) Timeout() time.Duration { return p.TimeoutDuration }
func (p *DockerPlugin) Priority() int          { return p.PriorityValue }

func (p *DockerPlugin) Applies(cwd, buffer string) bool {
	return hasAncestorFile(cwd, "Dockerfile", "compose.yml", "compose.yaml", "docker-compose.yml", "docker-compose.yaml") ||
		matchesPrefix(buffer, "docker", "docker-compose", "podman")
}

func (p *DockerPlugin) Collect(ctx context.Context, cwd string) (string, error) {
	root := projectRoot(cwd, "Dockerfile", "compose.yml", "compose.yaml", "docker-compose.yml", "docker-compose.yaml")

	var files []string
	for _, name := range []string{"Dockerfile", "compose.yml", "compose.yaml", "docker-compose.yml", "docker-compose.yaml"} {
		if _, err := os.Stat(filepath.Join(root, name)); err == nil {
			files = append(files, name)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "files: %s\n", strings.Join(files, ", "))

	if raw, err := os.ReadFile(filepath.Join(root, "Dockerfile")); err == nil {
		for _, line := range strings.Split(string(raw), "\n") {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(strings.ToUpper(trimmed), "FROM ") {
				fmt.Fprintf(&b, "base image: %s\n", strings.TrimSpace(trimmed[5:]))
				break
			}
		}
	}

	return b.String(), nil
}
