// Package nvimrpc is the multiplexer: connection lifecycle, msgid
// generation, the outstanding-call registry, the read loop and
// notification dispatch, and API metadata caching.
package nvimrpc

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"
	uuid "github.com/satori/go.uuid"

	"github.com/agrinman/nvimrpc/internal/logx"
	"github.com/agrinman/nvimrpc/msgpack"
	"github.com/agrinman/nvimrpc/rpcframe"
	"github.com/agrinman/nvimrpc/transport"
)

// recentlyCompletedCacheSize bounds the diagnostic cache of msgid ->
// method name kept around after a call completes, purely so a late or
// duplicate response can be logged with the method name it belongs to
// instead of a bare integer.
const recentlyCompletedCacheSize = 256

type pendingEntry struct {
	method string
	result chan pendingResult
}

type pendingResult struct {
	value msgpack.Value
	err   error
}

// Client is the multiplexer: it owns the transport, the inbound byte
// accumulator, the pending-call registry, the msgid counter, the API
// catalog, and a notification sink, all reachable concurrently from
// Request/Notify.
type Client struct {
	cfg Config
	log logx.Sink
	id  string

	transport transport.Transport

	mu        sync.Mutex
	connected bool
	pending   map[uint32]*pendingEntry
	catalog   *Catalog

	writeMu sync.Mutex

	nextMsgID atomic.Uint32

	recentlyCompleted *lru.Cache

	readerWG sync.WaitGroup
}

// New allocates a Client and selects a transport backing from cfg, but
// does not open the channel — call Connect for that. It fails with
// ErrUnsupportedTransport if cfg selects none, or more than one, of the
// mutually exclusive transport options.
func New(cfg Config) (*Client, error) {
	tr, err := selectTransport(cfg)
	if err != nil {
		return nil, err
	}
	return newClient(cfg, tr), nil
}

func newClient(cfg Config, tr transport.Transport) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logx.Noop()
	}
	cache, _ := lru.New(recentlyCompletedCacheSize)
	return &Client{
		cfg:               cfg,
		log:               logger,
		id:                uuid.NewV4().String(),
		transport:         tr,
		pending:           make(map[uint32]*pendingEntry),
		recentlyCompleted: cache,
	}
}

func selectTransport(cfg Config) (transport.Transport, error) {
	if cfg.selectedTransportCount() != 1 {
		return nil, ErrUnsupportedTransport
	}
	switch {
	case cfg.SocketPath != "":
		return transport.NewSocketTransport(cfg.SocketPath, cfg.timeout()), nil
	case cfg.TCPAddress != "" || cfg.TCPPort != 0:
		return transport.NewTCP(cfg.TCPAddress, cfg.TCPPort), nil
	case cfg.UseStdio:
		return transport.NewStdio(), nil
	case cfg.SpawnProcess:
		return transport.NewChildProcess(cfg.nvimPath(), cfg.timeout()), nil
	default:
		return nil, ErrUnsupportedTransport
	}
}

// Connect opens the transport, starts the dedicated reader goroutine,
// and, unless Config.SkipAPIInfo is set, issues a synchronous
// nvim_get_api_info call to populate the API catalog.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.mu.Unlock()

	if d := c.cfg.timeout(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	if err := c.transport.Connect(ctx); err != nil {
		return mapTransportErr(err)
	}

	c.mu.Lock()
	c.connected = true
	c.pending = make(map[uint32]*pendingEntry)
	c.mu.Unlock()

	c.readerWG.Add(1)
	go c.readLoop()

	c.log.Infof("[%s] connected", c.id)

	if !c.cfg.SkipAPIInfo {
		if err := c.RefreshAPIInfo(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Disconnect closes the transport, wakes every pending caller with
// ErrTransportClosed, and drops the API catalog. It is idempotent.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil
	}
	c.connected = false
	c.failAllPendingLocked(ErrTransportClosed)
	c.catalog = nil
	c.mu.Unlock()

	err := c.transport.Disconnect()
	c.readerWG.Wait()
	c.log.Infof("[%s] disconnected", c.id)
	return err
}

func (c *Client) failAllPendingLocked(err error) {
	for msgid, entry := range c.pending {
		entry.result <- pendingResult{err: err}
		delete(c.pending, msgid)
	}
}

// Request assigns the next msgid, deep-clones params, writes the
// encoded frame, and blocks until the matching response arrives or ctx
// is done. The returned Value is freshly cloned from the decoded frame
// so the caller may hold onto it independent of the connection's
// internal buffers.
func (c *Client) Request(ctx context.Context, method string, params []msgpack.Value) (msgpack.Value, error) {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return msgpack.Value{}, ErrNotConnected
	}
	msgid := c.nextMsgID.Add(1)
	entry := &pendingEntry{method: method, result: make(chan pendingResult, 1)}
	c.pending[msgid] = entry
	c.mu.Unlock()

	cloned := cloneParams(params)
	frame := rpcframe.Request{MsgID: msgid, Method: method, Params: cloned}
	encoded, err := rpcframe.Encode(frame)
	if err != nil {
		c.removePending(msgid)
		return msgpack.Value{}, err
	}

	if err := c.writeLocked(encoded); err != nil {
		c.removePending(msgid)
		return msgpack.Value{}, err
	}

	select {
	case res := <-entry.result:
		if res.err != nil {
			return msgpack.Value{}, res.err
		}
		return res.value, nil
	case <-ctx.Done():
		// The spec does not define per-request cancellation; msgid
		// stays registered so a late response is consume-and-discarded
		// (delivered into a buffered channel nobody reads again)
		// rather than reported as UnexpectedMessage.
		return msgpack.Value{}, ctx.Err()
	}
}

// Notify encodes and writes a fire-and-forget frame; it never assigns
// an id and never waits for a reply.
func (c *Client) Notify(method string, params []msgpack.Value) error {
	c.mu.Lock()
	connected := c.connected
	c.mu.Unlock()
	if !connected {
		return ErrNotConnected
	}

	cloned := cloneParams(params)
	frame := rpcframe.Notification{Method: method, Params: cloned}
	encoded, err := rpcframe.Encode(frame)
	if err != nil {
		return err
	}
	return c.writeLocked(encoded)
}

func (c *Client) removePending(msgid uint32) {
	c.mu.Lock()
	delete(c.pending, msgid)
	c.mu.Unlock()
}

// writeLocked writes one already-encoded frame under writeMu so two
// concurrent Request/Notify callers never interleave frame bytes on the
// wire; the lock is held only across the write itself, never across the
// blocking wait for a response.
func (c *Client) writeLocked(encoded []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.transport.Write(encoded); err != nil {
		return mapTransportErr(err)
	}
	return nil
}

func cloneParams(params []msgpack.Value) []msgpack.Value {
	cloned := make([]msgpack.Value, len(params))
	for i, p := range params {
		cloned[i] = p.Clone()
	}
	return cloned
}

// APIInfo returns the cached catalog, if one has been populated by
// Connect or RefreshAPIInfo.
func (c *Client) APIInfo() (*Catalog, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.catalog == nil {
		return nil, false
	}
	return c.catalog, true
}

// RefreshAPIInfo re-issues nvim_get_api_info and replaces the cached
// catalog. On ErrMalformedMetadata the previous catalog, if any, is
// left in place.
func (c *Client) RefreshAPIInfo(ctx context.Context) error {
	result, err := c.Request(ctx, "nvim_get_api_info", nil)
	if err != nil {
		return err
	}
	catalog, err := parseAPIInfo(result)
	if err != nil {
		c.log.Warningf("[%s] malformed API metadata, keeping prior catalog: %v", c.id, err)
		return err
	}
	c.mu.Lock()
	c.catalog = catalog
	c.mu.Unlock()
	return nil
}

// readLoop owns the inbound byte accumulator exclusively; no other
// goroutine touches it. It decodes whole frames and dispatches each
// one before asking the transport for more bytes, which is what keeps
// notifications and responses delivered in wire order within a single
// read's worth of frames.
func (c *Client) readLoop() {
	defer c.readerWG.Done()

	var accumulator []byte
	readBuf := make([]byte, 4096)

	for {
		n, err := c.transport.Read(readBuf)
		if err != nil {
			c.onTransportClosed(mapTransportErr(err))
			return
		}
		accumulator = append(accumulator, readBuf[:n]...)

		for {
			frame, consumed, err := rpcframe.Decode(accumulator)
			if err == rpcframe.ErrIncomplete {
				break
			}
			if err != nil {
				c.log.Errorf("[%s] malformed frame, disconnecting: %v", c.id, err)
				c.onTransportClosed(ErrTransportClosed)
				return
			}
			accumulator = accumulator[consumed:]
			if !c.dispatch(frame) {
				return
			}
		}
	}
}

// dispatch delivers one decoded frame and reports whether the reader
// should keep going. An inbound Request is never valid on this side of
// the protocol (this client is never a server), so it is surfaced as
// ErrUnexpectedMessage and treated like any other fatal protocol
// violation: every pending call fails and the connection is torn down,
// the same way a malformed frame is handled in readLoop.
func (c *Client) dispatch(frame rpcframe.Frame) bool {
	switch f := frame.(type) {
	case rpcframe.Response:
		c.dispatchResponse(f)
		return true
	case rpcframe.Notification:
		c.dispatchNotification(f)
		return true
	case rpcframe.Request:
		c.log.Errorf("[%s] unexpected inbound request %q, this client is never a server: %v", c.id, f.Method, ErrUnexpectedMessage)
		c.onTransportClosed(ErrUnexpectedMessage)
		return false
	default:
		return true
	}
}

func (c *Client) dispatchResponse(f rpcframe.Response) {
	c.mu.Lock()
	entry, ok := c.pending[f.MsgID]
	if ok {
		delete(c.pending, f.MsgID)
	}
	c.mu.Unlock()

	if !ok {
		if method, found := c.recentlyCompleted.Get(f.MsgID); found {
			c.log.Warningf("[%s] late response for already-completed call %d (%s)", c.id, f.MsgID, method)
		} else {
			c.log.Warningf("[%s] unexpected response for unknown msgid %d", c.id, f.MsgID)
		}
		return
	}

	c.recentlyCompleted.Add(f.MsgID, entry.method)

	if !f.Error.IsNil() {
		entry.result <- pendingResult{err: &RemoteError{Value: f.Error.Clone()}}
		return
	}
	entry.result <- pendingResult{value: f.Result.Clone()}
}

func (c *Client) dispatchNotification(f rpcframe.Notification) {
	if c.cfg.OnNotification != nil {
		c.cfg.OnNotification(f.Method, f.Params)
	}
}

func (c *Client) onTransportClosed(err error) {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return
	}
	c.connected = false
	c.failAllPendingLocked(err)
	c.catalog = nil
	c.mu.Unlock()
	c.transport.Disconnect()
	c.log.Warningf("[%s] connection closed: %v", c.id, err)
}

func mapTransportErr(err error) error {
	switch err {
	case nil:
		return nil
	case transport.ErrClosed, transport.ErrBrokenPipe:
		return ErrTransportClosed
	case transport.ErrTimeout:
		return ErrTimeout
	default:
		return fmt.Errorf("nvimrpc: %w", err)
	}
}
