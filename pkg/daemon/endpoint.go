package daemon

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
)

// EndpointPath returns the default local endpoint address, per spec
// §6's "Endpoint paths" note: a filesystem socket under a fixed
// user-scoped runtime directory on POSIX, a named pipe
// `\\.\pipe\nudge_<username>` on Windows.
func EndpointPath() string {
	if runtime.GOOS == "windows" {
		return `\\.\pipe\nudge_` + currentUsername()
	}
	return filepath.Join(runtimeDir(), "nudge.sock")
}

// PIDFilePath returns the sibling PID file path for the endpoint, per
// spec §6 ("a sibling PID file contains the daemon process id").
func PIDFilePath() string {
	return filepath.Join(runtimeDir(), "nudge.pid")
}

// HealthFilePath returns the health-status file path alongside the
// endpoint and PID file.
func HealthFilePath() string {
	return filepath.Join(runtimeDir(), "nudge-health.json")
}

// runtimeDir returns $XDG_RUNTIME_DIR if set, else a user-scoped
// fallback under the temp directory -- relevant on POSIX only, since
// Windows uses a named pipe with no backing directory.
func runtimeDir() string {
	if v := os.Getenv("XDG_RUNTIME_DIR"); v != "" {
		return filepath.Join(v, "nudge")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("nudge-%s", currentUsername()))
}

func currentUsername() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return sanitizeUsername(u.Username)
	}
	if v := os.Getenv("USER"); v != "" {
		return sanitizeUsername(v)
	}
	if v := os.Getenv("USERNAME"); v != "" {
		return sanitizeUsername(v)
	}
	return "unknown"
}

// sanitizeUsername strips characters that are unsafe in a pipe name or
// path segment (notably the domain-qualified form Windows sometimes
// returns, e.g. "DOMAIN\\user").
func sanitizeUsername(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
