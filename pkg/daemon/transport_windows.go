//go:build windows

package daemon

import (
	"context"
	"net"
	"time"

	"github.com/Microsoft/go-winio"
)

// listenEndpoint binds a named pipe of the form `\\.\pipe\nudge_<user>`,
// per spec §6's "Endpoint paths" note. go-winio is the real-world
// idiomatic choice for this (used by Docker/containerd), already present
// in the teacher's dependency closure as an indirect tailscale
// dependency and promoted to direct here.
func listenEndpoint(pipeName string) (net.Listener, error) {
	return winio.ListenPipe(pipeName, nil)
}

func dialEndpoint(pipeName string, timeout time.Duration) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return winio.DialPipeContext(ctx, pipeName)
}

// endpointExists reports whether a named pipe is currently accepting
// connections, approximated by a short connection attempt since named
// pipes have no stable filesystem presence to Stat.
func endpointExists(pipeName string) bool {
	conn, err := dialEndpoint(pipeName, 200*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
