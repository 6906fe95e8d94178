package nvimrpc

import (
	"errors"
	"fmt"

	"github.com/agrinman/nvimrpc/msgpack"
)

// ErrUnsupportedTransport is returned by New when the Config selects no
// usable transport (or more than one).
var ErrUnsupportedTransport = errors.New("nvimrpc: no single transport selected in config")

// ErrAlreadyConnected is returned by Connect on an already-connected Client.
var ErrAlreadyConnected = errors.New("nvimrpc: already connected")

// ErrNotConnected is returned by Request/Notify/RefreshAPIInfo when the
// Client has no open transport.
var ErrNotConnected = errors.New("nvimrpc: not connected")

// ErrTransportClosed wraps transport.ErrClosed/ErrBrokenPipe at the
// Client level: calls in flight when the connection collapses (peer
// close, malformed frame, Disconnect) fail with it. Calls made after the
// collapse get ErrNotConnected until Connect succeeds again.
var ErrTransportClosed = errors.New("nvimrpc: transport closed")

// ErrTimeout is surfaced when a Connect deadline elapses.
var ErrTimeout = errors.New("nvimrpc: timeout")

// ErrMalformed names a fatal decode failure: bad MessagePack, wrong frame
// shape, or nesting beyond the depth limit. The Client does not return
// it to callers: the reader closes the connection and pending calls fail
// with ErrTransportClosed.
var ErrMalformed = errors.New("nvimrpc: malformed frame")

// ErrUnexpectedMessage is surfaced when an inbound Request frame
// arrives on a connection this client opened: it is never a server, so
// there is no well-formed response to send back, and the connection is
// torn down with every pending call failing with this error. A
// Response naming an unknown msgid (a late or duplicate reply) is not
// this error: it is logged and otherwise ignored, since the connection
// itself is still healthy in that case.
var ErrUnexpectedMessage = errors.New("nvimrpc: unexpected message")

// ErrMalformedMetadata is returned by RefreshAPIInfo/Connect when the
// nvim_get_api_info response does not fit the expected shape. The
// previous catalog, if any, is left untouched.
var ErrMalformedMetadata = errors.New("nvimrpc: malformed API metadata")

// RemoteError wraps a Response whose error field is non-nil, carrying
// the raw decoded error Value for the caller to inspect.
type RemoteError struct {
	Value msgpack.Value
}

func (e *RemoteError) Error() string {
	if s, ok := e.Value.Str(); ok {
		return fmt.Sprintf("nvimrpc: remote error: %s", s)
	}
	if arr, ok := e.Value.Array(); ok && len(arr) >= 2 {
		if msg, ok := arr[1].Str(); ok {
			return fmt.Sprintf("nvimrpc: remote error: %s", msg)
		}
	}
	return "nvimrpc: remote error"
}
