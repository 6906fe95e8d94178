package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
)

// tcpInitDone guards one-time process-wide socket library setup the way
// the teacher's daemon guards against re-running its agent bootstrap.
// Go's net package already serializes its own lazy initialization, so
// this gate is a no-op in practice; it exists to give design note 9's
// "global winsock-like init" pattern (one mutex, one atomic flag,
// double-checked) a concrete, testable home rather than leaving it
// undocumented.
var (
	tcpInitDone  atomic.Bool
	tcpInitMutex sync.Mutex
)

func ensureTCPStackInitialized() {
	if tcpInitDone.Load() {
		return
	}
	tcpInitMutex.Lock()
	defer tcpInitMutex.Unlock()
	if tcpInitDone.Load() {
		return
	}
	tcpInitDone.Store(true)
}

// TCP dials a host/port endpoint.
type TCP struct {
	Host string
	Port uint16

	mu   sync.Mutex
	conn net.Conn
}

func NewTCP(host string, port uint16) *TCP {
	return &TCP{Host: host, Port: port}
}

func (t *TCP) Connect(ctx context.Context) error {
	ensureTCPStackInitialized()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		return nil
	}
	var d net.Dialer
	addr := fmt.Sprintf("%s:%d", t.Host, t.Port)
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		if ctx.Err() != nil {
			return ErrTimeout
		}
		return err
	}
	t.conn = conn
	return nil
}

func (t *TCP) Disconnect() error {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (t *TCP) Read(buf []byte) (int, error) {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return 0, ErrClosed
	}
	n, err := conn.Read(buf)
	if err != nil {
		return n, classifyReadErr(err)
	}
	if n == 0 {
		return 0, ErrClosed
	}
	return n, nil
}

func (t *TCP) Write(b []byte) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return ErrClosed
	}
	written := 0
	for written < len(b) {
		n, err := conn.Write(b[written:])
		if err != nil {
			return classifyWriteErr(err)
		}
		written += n
	}
	return nil
}

func (t *TCP) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil
}
