package transport

import (
	"context"
	"io"
	"os"
)

// Stdio reads from this process's standard input and writes to its
// standard output, for use when the host editor has spawned this
// process as a plugin and wired its stdio to the RPC channel itself.
type Stdio struct {
	in  io.Reader
	out io.Writer
}

// NewStdio builds a Stdio transport over os.Stdin/os.Stdout.
func NewStdio() *Stdio {
	return &Stdio{in: os.Stdin, out: os.Stdout}
}

func (s *Stdio) Connect(ctx context.Context) error { return nil }

func (s *Stdio) Disconnect() error { return nil }

func (s *Stdio) Read(buf []byte) (int, error) {
	n, err := s.in.Read(buf)
	if err == io.EOF {
		return n, ErrClosed
	}
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, ErrClosed
	}
	return n, nil
}

func (s *Stdio) Write(b []byte) error {
	written := 0
	for written < len(b) {
		n, err := s.out.Write(b[written:])
		if err != nil {
			return ErrBrokenPipe
		}
		written += n
	}
	return nil
}

func (s *Stdio) IsConnected() bool { return true }
