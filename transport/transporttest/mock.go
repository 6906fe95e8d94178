// Package transporttest provides an in-memory Transport double for
// exercising the multiplexer without a real Neovim process, grounded on
// the teacher's daemon/control test helper (NewLocalUnixServer) that
// spins up a local listener a test can drive byte-for-byte.
package transporttest

import (
	"context"
	"sync"

	"github.com/agrinman/nvimrpc/transport"
)

// Mock is a duplex Transport backed by two in-memory queues: bytes fed
// in via Feed are what Read returns (in whatever chunking the test
// chose, down to one byte at a time for fragmentation tests); bytes
// passed to Write accumulate for the test to inspect via TakeWritten.
type Mock struct {
	mu        sync.Mutex
	cond      *sync.Cond
	connected bool
	closed    bool
	inbound   []byte
	written   []byte
}

func New() *Mock {
	m := &Mock{connected: true}
	m.cond = sync.NewCond(&m.mu)
	return m
}

func (m *Mock) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = true
	m.closed = false
	return nil
}

func (m *Mock) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	m.closed = true
	m.cond.Broadcast()
	return nil
}

func (m *Mock) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Feed appends bytes that a subsequent Read will observe. Call it
// repeatedly with small slices (even length 1) to simulate an
// arbitrarily fragmented transport.
func (m *Mock) Feed(b []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inbound = append(m.inbound, b...)
	m.cond.Broadcast()
}

// CloseInbound marks the mock as peer-closed: any blocked or future
// Read returns transport.ErrClosed once the fed bytes are exhausted.
func (m *Mock) CloseInbound() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.cond.Broadcast()
}

func (m *Mock) Read(buf []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.inbound) == 0 && !m.closed {
		m.cond.Wait()
	}
	if len(m.inbound) == 0 {
		return 0, transport.ErrClosed
	}
	n := copy(buf, m.inbound)
	m.inbound = m.inbound[n:]
	return n, nil
}

func (m *Mock) Write(b []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return transport.ErrBrokenPipe
	}
	m.written = append(m.written, b...)
	return nil
}

// TakeWritten drains and returns everything written so far.
func (m *Mock) TakeWritten() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.written
	m.written = nil
	return out
}
