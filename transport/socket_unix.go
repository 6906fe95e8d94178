//go:build !windows

package transport

import "time"

// NewSocketTransport builds the local-socket backing appropriate for
// this platform from a single address string: a Unix domain socket
// path everywhere except Windows, where it is a named pipe path
// instead (see socket_windows.go).
func NewSocketTransport(path string, timeout time.Duration) Transport {
	return NewUnixSocket(path)
}
