package nvimrpc

import (
	"time"

	"github.com/agrinman/nvimrpc/internal/logx"
	"github.com/agrinman/nvimrpc/msgpack"
)

// Config is the transport/lifecycle configuration surface accepted at
// Client construction. Exactly one of {SocketPath, TCPAddress+TCPPort,
// UseStdio, SpawnProcess} must be set; New returns
// ErrUnsupportedTransport otherwise.
type Config struct {
	// SocketPath is a filesystem path for a Unix socket, or a
	// `\\.\pipe\…` path for a Windows named pipe.
	SocketPath string

	// TCPAddress and TCPPort together select a TCP endpoint.
	TCPAddress string
	TCPPort    uint16

	// UseStdio selects this process's own stdin/stdout.
	UseStdio bool

	// SpawnProcess selects an embedded, spawned editor instance.
	SpawnProcess bool
	// NvimPath is the binary to spawn when SpawnProcess is set.
	// Defaults to "nvim".
	NvimPath string

	// TimeoutMillis bounds Connect and the graceful-shutdown phase of
	// the spawned-child backing. nil selects the 5000ms default; a
	// pointer to 0 means no timeout. A plain uint32 field could not
	// distinguish "unset" from "explicitly 0", which is why this is a
	// pointer — construct one with nvimrpc.Millis.
	TimeoutMillis *uint32

	// SkipAPIInfo suppresses the automatic nvim_get_api_info call
	// Connect otherwise issues.
	SkipAPIInfo bool

	// Logger receives structured diagnostics. If nil, logx.Noop() is
	// used — the core never logs to a global facility on its own.
	Logger logx.Sink

	// OnNotification is the notification sink: invoked synchronously
	// from the reader goroutine for every Notification frame, in wire
	// order. It must not block on anything that depends on a pending
	// Request completing, or it will deadlock the read loop.
	OnNotification func(method string, params []msgpack.Value)
}

// Millis builds a *uint32 for Config.TimeoutMillis, since Go has no
// literal syntax for a pointer to a constant.
func Millis(n uint32) *uint32 { return &n }

// timeout returns 0 to mean "no timeout" only when TimeoutMillis was
// explicitly set to a pointer to 0; a nil TimeoutMillis still means
// "unset" and gets the 5000ms default.
func (c Config) timeout() time.Duration {
	if c.TimeoutMillis == nil {
		return 5000 * time.Millisecond
	}
	return time.Duration(*c.TimeoutMillis) * time.Millisecond
}

func (c Config) nvimPath() string {
	if c.NvimPath == "" {
		return "nvim"
	}
	return c.NvimPath
}

// selectedTransportCount reports how many of the mutually exclusive
// transport options are set, so New can reject both "none" and
// "more than one" with the same check.
func (c Config) selectedTransportCount() int {
	n := 0
	if c.SocketPath != "" {
		n++
	}
	if c.TCPAddress != "" || c.TCPPort != 0 {
		n++
	}
	if c.UseStdio {
		n++
	}
	if c.SpawnProcess {
		n++
	}
	return n
}
