package rpcframe

import (
	"testing"

	"github.com/agrinman/nvimrpc/msgpack"
)

func TestRequestRoundTrip(t *testing.T) {
	req := Request{
		MsgID:  7,
		Method: "nvim_eval",
		Params: []msgpack.Value{msgpack.Str("2 + 3 * 4")},
	}
	encoded, err := Encode(req)
	if err != nil {
		t.Fatal(err)
	}
	decoded, n, err := Decode(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(encoded) {
		t.Fatalf("consumed %d want %d", n, len(encoded))
	}
	got, ok := decoded.(Request)
	if !ok {
		t.Fatalf("wrong type %T", decoded)
	}
	if got.MsgID != 7 || got.Method != "nvim_eval" || len(got.Params) != 1 {
		t.Fatalf("got %+v", got)
	}
}

func TestResponseRoundTrip(t *testing.T) {
	resp := Response{MsgID: 3, Error: msgpack.Nil(), Result: msgpack.Int(14)}
	encoded, err := Encode(resp)
	if err != nil {
		t.Fatal(err)
	}
	decoded, _, err := Decode(encoded)
	if err != nil {
		t.Fatal(err)
	}
	got := decoded.(Response)
	if got.MsgID != 3 {
		t.Fatalf("msgid = %d", got.MsgID)
	}
	if !got.Error.IsNil() {
		t.Fatalf("expected nil error")
	}
	n, ok := got.Result.AsInt64()
	if !ok || n != 14 {
		t.Fatalf("result = %v", got.Result)
	}
}

func TestNotificationRoundTrip(t *testing.T) {
	notif := Notification{Method: "test_event", Params: []msgpack.Value{msgpack.Str("payload")}}
	encoded, err := Encode(notif)
	if err != nil {
		t.Fatal(err)
	}
	decoded, _, err := Decode(encoded)
	if err != nil {
		t.Fatal(err)
	}
	got := decoded.(Notification)
	if got.Method != "test_event" || len(got.Params) != 1 {
		t.Fatalf("got %+v", got)
	}
}

func TestDecodeWrongShapeMalformed(t *testing.T) {
	// A two-element array cannot be any legal frame variant.
	v := msgpack.ArrayOf(msgpack.Uint(0), msgpack.Str("x"))
	buf, err := msgpack.EncodeToBytes(v)
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = Decode(buf)
	if err != ErrMalformed {
		t.Fatalf("got %v, want ErrMalformed", err)
	}
}

func TestDecodeUnknownDiscriminantMalformed(t *testing.T) {
	v := msgpack.ArrayOf(msgpack.Uint(9), msgpack.Str("x"), msgpack.ArrayOf())
	buf, err := msgpack.EncodeToBytes(v)
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = Decode(buf)
	if err != ErrMalformed {
		t.Fatalf("got %v, want ErrMalformed", err)
	}
}

func TestDecodeIncomplete(t *testing.T) {
	req := Request{MsgID: 1, Method: "nvim_eval", Params: nil}
	full, err := Encode(req)
	if err != nil {
		t.Fatal(err)
	}
	for n := 0; n < len(full); n++ {
		if _, _, err := Decode(full[:n]); err != ErrIncomplete {
			t.Fatalf("prefix %d: got %v want ErrIncomplete", n, err)
		}
	}
}

func TestResponseBothErrorAndResultMalformed(t *testing.T) {
	v := msgpack.ArrayOf(msgpack.Uint(1), msgpack.Uint(1), msgpack.Str("boom"), msgpack.Int(1))
	buf, err := msgpack.EncodeToBytes(v)
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = Decode(buf)
	if err != ErrMalformed {
		t.Fatalf("got %v, want ErrMalformed", err)
	}
}
