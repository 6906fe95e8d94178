// Package rpcframe encodes and decodes the three MessagePack-RPC frame
// shapes (request, response, notification) as positional arrays over
// the msgpack value model.
package rpcframe

import (
	"errors"

	"github.com/agrinman/nvimrpc/msgpack"
)

// ErrIncomplete is returned when the underlying msgpack decoder reports
// the buffer ends mid-value.
var ErrIncomplete = msgpack.ErrIncomplete

// ErrMalformed is returned when the decoded value is not a well-formed
// RPC frame: wrong array length, wrong discriminant, or a variant whose
// required fields are missing or mistyped.
var ErrMalformed = errors.New("rpcframe: malformed frame")

const (
	typeRequest      = 0
	typeResponse     = 1
	typeNotification = 2
)

// Frame is the tagged union over the three RPC message shapes.
type Frame interface {
	frameType() uint8
}

// Request is a `[0, msgid, method, params]` frame.
type Request struct {
	MsgID  uint32
	Method string
	Params []msgpack.Value
}

func (Request) frameType() uint8 { return typeRequest }

// Response is a `[1, msgid, error, result]` frame. Exactly one of Error
// or Result is non-nil on a well-formed reply.
type Response struct {
	MsgID  uint32
	Error  msgpack.Value
	Result msgpack.Value
}

func (Response) frameType() uint8 { return typeResponse }

// Notification is a `[2, method, params]` frame.
type Notification struct {
	Method string
	Params []msgpack.Value
}

func (Notification) frameType() uint8 { return typeNotification }

// Encode composes the frame's fixed-shape array and returns its
// canonical MessagePack encoding.
func Encode(f Frame) ([]byte, error) {
	switch frame := f.(type) {
	case Request:
		params := msgpack.ArrayOf(frame.Params...)
		arr := msgpack.ArrayOf(
			msgpack.Uint(typeRequest),
			msgpack.Uint(uint64(frame.MsgID)),
			msgpack.Str(frame.Method),
			params,
		)
		return msgpack.EncodeToBytes(arr)
	case Response:
		arr := msgpack.ArrayOf(
			msgpack.Uint(typeResponse),
			msgpack.Uint(uint64(frame.MsgID)),
			frame.Error,
			frame.Result,
		)
		return msgpack.EncodeToBytes(arr)
	case Notification:
		params := msgpack.ArrayOf(frame.Params...)
		arr := msgpack.ArrayOf(
			msgpack.Uint(typeNotification),
			msgpack.Str(frame.Method),
			params,
		)
		return msgpack.EncodeToBytes(arr)
	default:
		return nil, errors.New("rpcframe: unknown frame type")
	}
}

// Decode reads one frame from buf, returning the frame and the number
// of bytes it consumed. It returns ErrIncomplete if the underlying
// msgpack value is not fully present yet, and ErrMalformed if the value
// decodes fine but does not have one of the three legal RPC shapes.
func Decode(buf []byte) (Frame, int, error) {
	v, n, err := msgpack.Decode(buf)
	if err == msgpack.ErrIncomplete {
		return nil, 0, ErrIncomplete
	}
	if err != nil {
		return nil, 0, ErrMalformed
	}

	arr, ok := v.Array()
	if !ok || (len(arr) != 3 && len(arr) != 4) {
		return nil, 0, ErrMalformed
	}

	discriminant, ok := arr[0].AsInt64()
	if !ok {
		return nil, 0, ErrMalformed
	}

	switch discriminant {
	case typeRequest:
		if len(arr) != 4 {
			return nil, 0, ErrMalformed
		}
		msgid, ok := arr[1].AsInt64()
		if !ok {
			return nil, 0, ErrMalformed
		}
		method, ok := arr[2].Str()
		if !ok {
			return nil, 0, ErrMalformed
		}
		params, ok := arr[3].Array()
		if !ok {
			return nil, 0, ErrMalformed
		}
		return Request{MsgID: uint32(msgid), Method: method, Params: params}, n, nil

	case typeResponse:
		if len(arr) != 4 {
			return nil, 0, ErrMalformed
		}
		msgid, ok := arr[1].AsInt64()
		if !ok {
			return nil, 0, ErrMalformed
		}
		errVal, resVal := arr[2], arr[3]
		if !errVal.IsNil() && !resVal.IsNil() {
			return nil, 0, ErrMalformed
		}
		return Response{MsgID: uint32(msgid), Error: errVal, Result: resVal}, n, nil

	case typeNotification:
		if len(arr) != 3 {
			return nil, 0, ErrMalformed
		}
		method, ok := arr[1].Str()
		if !ok {
			return nil, 0, ErrMalformed
		}
		params, ok := arr[2].Array()
		if !ok {
			return nil, 0, ErrMalformed
		}
		return Notification{Method: method, Params: params}, n, nil

	default:
		return nil, 0, ErrMalformed
	}
}
