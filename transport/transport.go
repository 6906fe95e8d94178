// Package transport defines the polymorphic duplex byte channel the
// multiplexer reads and writes frames over, plus the five concrete
// backings it can be configured with.
package transport

import (
	"context"
	"errors"
)

// Transport is a duplex byte channel. Concrete backings never interpret
// the bytes they carry; RPC framing lives entirely above this layer.
type Transport interface {
	// Connect opens the channel. ctx governs how long the connect
	// attempt may block; it does not apply to Read/Write on an
	// established connection.
	Connect(ctx context.Context) error

	// Disconnect closes the channel. It is idempotent: calling it on an
	// already-disconnected Transport returns nil.
	Disconnect() error

	// Read blocks until at least one byte is available, returning the
	// number of bytes read. Peer EOF is reported as ErrClosed, never as
	// (0, nil).
	Read(buf []byte) (int, error)

	// Write writes the entirety of b, retrying internally on short
	// writes. Partial writes are never visible to the caller.
	Write(b []byte) error

	IsConnected() bool
}

// ErrClosed means the channel is closed: peer EOF, a failed read, or any
// Read/Write after an explicit disconnect. A write that fails on an open
// channel reports ErrBrokenPipe instead.
var ErrClosed = errors.New("transport: closed")

// ErrTimeout means a deadline configured for Connect elapsed before the
// channel became usable.
var ErrTimeout = errors.New("transport: timeout")

// ErrBrokenPipe is the write-side variant of ErrClosed, kept distinct
// per the error taxonomy in case a caller wants to distinguish "peer
// hung up while I was reading" from "peer hung up while I was writing";
// both currently collapse the connection the same way.
var ErrBrokenPipe = errors.New("transport: broken pipe")
