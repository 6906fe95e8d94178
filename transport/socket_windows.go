//go:build windows

package transport

import "time"

// NewSocketTransport builds a Windows named-pipe backing from a
// `\\.\pipe\…` path.
func NewSocketTransport(path string, timeout time.Duration) Transport {
	return NewNamedPipe(path, timeout)
}
