//go:build windows

package transport

import (
	"context"
	"net"
	"sync"
	"time"

	winio "github.com/Microsoft/go-winio"
)

// NamedPipe dials a Windows named pipe of the form `\\.\pipe\…`,
// retrying any failed dial ("pipe busy" among them) until the configured
// timeout elapses, the way
// the teacher's common/socket/socket_windows.go dials krd's agent pipe.
type NamedPipe struct {
	Path    string
	Timeout time.Duration

	mu   sync.Mutex
	conn net.Conn
}

func NewNamedPipe(path string, timeout time.Duration) *NamedPipe {
	return &NamedPipe{Path: path, Timeout: timeout}
}

func (p *NamedPipe) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		return nil
	}

	// Timeout <= 0 means no overall deadline: retry on "pipe busy" until
	// ctx alone gives up, the same "0 means no timeout" contract Config
	// documents for the rest of the package.
	var deadline time.Time
	hasDeadline := p.Timeout > 0
	if hasDeadline {
		deadline = time.Now().Add(p.Timeout)
	}

	for {
		attempt := 5 * time.Second
		if hasDeadline {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return ErrTimeout
			}
			if remaining < attempt {
				attempt = remaining
			}
		}
		conn, err := winio.DialPipe(p.Path, &attempt)
		if err == nil {
			p.conn = conn
			return nil
		}
		if ctx.Err() != nil {
			return ErrTimeout
		}
		select {
		case <-ctx.Done():
			return ErrTimeout
		case <-time.After(25 * time.Millisecond):
		}
	}
}

func (p *NamedPipe) Disconnect() error {
	p.mu.Lock()
	conn := p.conn
	p.conn = nil
	p.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (p *NamedPipe) Read(buf []byte) (int, error) {
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()
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

func (p *NamedPipe) Write(b []byte) error {
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()
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

func (p *NamedPipe) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn != nil
}
