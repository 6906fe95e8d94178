package transport

import (
	"context"
	"errors"
	"net"
	"sync"
)

// UnixSocket dials a Unix domain socket at a filesystem path, the way
// the teacher's common/socket package dials krd's agent and control
// sockets.
type UnixSocket struct {
	Path string

	mu   sync.Mutex
	conn net.Conn
}

func NewUnixSocket(path string) *UnixSocket {
	return &UnixSocket{Path: path}
}

func (u *UnixSocket) Connect(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.conn != nil {
		return nil
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", u.Path)
	if err != nil {
		if ctx.Err() != nil {
			return ErrTimeout
		}
		return err
	}
	u.conn = conn
	return nil
}

func (u *UnixSocket) Disconnect() error {
	u.mu.Lock()
	conn := u.conn
	u.conn = nil
	u.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (u *UnixSocket) Read(buf []byte) (int, error) {
	u.mu.Lock()
	conn := u.conn
	u.mu.Unlock()
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

func (u *UnixSocket) Write(b []byte) error {
	u.mu.Lock()
	conn := u.conn
	u.mu.Unlock()
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

func (u *UnixSocket) IsConnected() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.conn != nil
}

// classifyReadErr maps net.Conn read errors onto the transport error
// taxonomy, mirroring the teacher's note that WouldBlock / ConnectionReset
// style OS errors each collapse to a single client-visible kind.
func classifyReadErr(err error) error {
	if errors.Is(err, net.ErrClosed) {
		return ErrClosed
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	return ErrClosed
}

func classifyWriteErr(err error) error {
	if errors.Is(err, net.ErrClosed) {
		return ErrBrokenPipe
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	return ErrBrokenPipe
}
