package daemon

import "os"

// IsLive reports whether a daemon is already running at endpoint,
// combining the two checks spec §4.1 requires: the endpoint path (or
// pipe) is present, and the PID file names a live process. Either check
// failing means the combination is stale and safe to clean up before a
// new daemon binds.
func IsLive(endpoint, pidFilePath string) bool {
	if !endpointExists(endpoint) {
		return false
	}
	pid, err := ReadPID(pidFilePath)
	if err != nil {
		return false
	}
	return IsProcessAlive(pid)
}

// CleanStaleEndpoint removes a stale endpoint path and PID file when
// IsLive reports false, per spec §4.1 ("Stale PID/endpoint combinations
// are cleaned by the next start"). On Windows this is a no-op for the
// pipe name itself (there is no backing path to remove), but the PID
// file is still cleaned up.
func CleanStaleEndpoint(endpoint, pidFilePath string) {
	if IsLive(endpoint, pidFilePath) {
		return
	}
	os.Remove(endpoint)
	ReleasePID(pidFilePath)
}
