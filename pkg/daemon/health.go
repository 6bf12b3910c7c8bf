package daemon

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// HealthStatus is the daemon's self-reported liveness and configuration
// snapshot, persisted alongside the endpoint and PID file and returned
// by the transport's HEALTH-equivalent request.
type HealthStatus struct {
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
	Status    string    `json:"status"` // "ok", "degraded"
}

// WriteHealthFile writes the health status as indented JSON to path.
// The write is atomic: content goes to a temporary file first, then is
// renamed into place to prevent partial reads.
func WriteHealthFile(path string, status *HealthStatus) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create health directory: %w", err)
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal health status: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp health file: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename health file: %w", err)
	}

	return nil
}

// ReadHealthFile reads and parses the health status JSON from path.
func ReadHealthFile(path string) (*HealthStatus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read health file: %w", err)
	}

	var status HealthStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("unmarshal health file: %w", err)
	}

	return &status, nil
}

// Info is the runtime-facts surface described in spec §6 ("Info
// surface"): config dir, endpoint path, trigger mode/hotkey, zsh ghost
// owner/overlay backend, diagnosis enabled, interactive commands list,
// shell type, daemon status string.
type Info struct {
	ConfigDir           string   `json:"config_dir"`
	EndpointPath        string   `json:"endpoint_path"`
	TriggerMode         string   `json:"trigger_mode"`
	TriggerHotkey       string   `json:"trigger_hotkey"`
	ZshGhostOwner       string   `json:"zsh_ghost_owner"`
	ZshOverlayBackend   string   `json:"zsh_overlay_backend"`
	DiagnosisEnabled    bool     `json:"diagnosis_enabled"`
	InteractiveCommands []string `json:"interactive_commands"`
	ShellType           string   `json:"shell_type"`
	DaemonStatus        string   `json:"daemon_status"`
}
