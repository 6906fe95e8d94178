package msgpack

import (
	"bytes"
	"strings"
	"testing"
)

func roundTrip(t *testing.T, v Value) []byte {
	t.Helper()
	encoded, err := EncodeToBytes(v)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, n, err := Decode(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if n != len(encoded) {
		t.Fatalf("decode consumed %d of %d bytes", n, len(encoded))
	}
	if !decoded.Equal(v) {
		t.Fatalf("round trip mismatch: got %#v want %#v", decoded, v)
	}
	return encoded
}

func TestRoundTripPrimitives(t *testing.T) {
	roundTrip(t, Nil())
	roundTrip(t, Bool(true))
	roundTrip(t, Bool(false))
	roundTrip(t, Uint(0))
	roundTrip(t, Uint(127))
	roundTrip(t, Uint(128))
	roundTrip(t, Uint(65535))
	roundTrip(t, Uint(1<<32-1))
	roundTrip(t, Uint(1<<63))
	roundTrip(t, Int(-1))
	roundTrip(t, Int(-32))
	roundTrip(t, Int(-33))
	roundTrip(t, Int(-200))
	roundTrip(t, Int(-100000))
	roundTrip(t, Int(-1<<40))
	roundTrip(t, Float(3.14159))
	roundTrip(t, Str(""))
	roundTrip(t, Str("n"))
	roundTrip(t, Str(strings.Repeat("x", 1000)))
	roundTrip(t, Bin([]byte{1, 2, 3}))
	roundTrip(t, Ext(5, []byte{0xde, 0xad}))
}

func TestRoundTripContainers(t *testing.T) {
	arr := ArrayOf(Uint(1), Str("two"), Bool(true), Nil())
	roundTrip(t, arr)

	m := Map()
	m.MapSet(Str("mode"), Str("n"))
	m.MapSet(Str("blocking"), Bool(false))
	roundTrip(t, m)

	nested := ArrayOf(arr, m, ArrayOf())
	roundTrip(t, nested)
}

func TestEvalScenario(t *testing.T) {
	// Scenario B: request("nvim_eval", ["2 + 3 * 4"]) => 14
	v := roundTrip(t, Int(14))
	got, _, err := Decode(v)
	if err != nil {
		t.Fatal(err)
	}
	n, ok := got.AsInt64()
	if !ok || n != 14 {
		t.Fatalf("got %v", got)
	}
}

func TestCanonicalReencodeStable(t *testing.T) {
	// encode(decode(bytes).0) == bytes for canonically encoded input.
	encoded, err := EncodeToBytes(Uint(300))
	if err != nil {
		t.Fatal(err)
	}
	decoded, n, err := Decode(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(encoded) {
		t.Fatalf("short decode")
	}
	reencoded, err := EncodeToBytes(decoded)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(encoded, reencoded) {
		t.Fatalf("not canonically stable: %x != %x", encoded, reencoded)
	}
}

func TestDecodeIncompletePrefixes(t *testing.T) {
	full, err := EncodeToBytes(ArrayOf(Str("nvim_eval"), ArrayOf(Str("1+1"))))
	if err != nil {
		t.Fatal(err)
	}
	for n := 0; n < len(full); n++ {
		_, _, err := Decode(full[:n])
		if err != ErrIncomplete {
			t.Fatalf("prefix length %d: want ErrIncomplete, got %v", n, err)
		}
	}
	// Full input, plus trailing garbage, must still decode the same
	// value and report the same consumed length.
	withSuffix := append(append([]byte{}, full...), 0xff, 0xff, 0xff)
	v, n, err := Decode(withSuffix)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(full) {
		t.Fatalf("consumed %d, want %d", n, len(full))
	}
	want, _, _ := Decode(full)
	if !v.Equal(want) {
		t.Fatalf("decoded value differs with trailing suffix present")
	}
}

func TestDecodeMalformedReservedMarker(t *testing.T) {
	_, _, err := Decode([]byte{0xc1})
	if err != ErrMalformed {
		t.Fatalf("got %v, want ErrMalformed", err)
	}
}

func TestDecodeMalformedInvalidUTF8(t *testing.T) {
	// fixstr of length 1 containing an invalid UTF-8 byte.
	_, _, err := Decode([]byte{0xa1, 0xff})
	if err != ErrMalformed {
		t.Fatalf("got %v, want ErrMalformed", err)
	}
}

func TestDecodeDepthLimit(t *testing.T) {
	// Build a marker stream nested 2000 fixarray(1) levels deep, each
	// wrapping the next, terminated by a single fixint. No full encode
	// round trip needed since we are hand-crafting an attack frame.
	const depth = 2000
	buf := make([]byte, 0, depth+1)
	for i := 0; i < depth; i++ {
		buf = append(buf, 0x91) // fixarray, length 1
	}
	buf = append(buf, 0x00) // fixint 0
	_, _, err := Decode(buf)
	if err != ErrMalformed {
		t.Fatalf("got %v, want ErrMalformed for depth-%d attack frame", err, depth)
	}
}

func TestDecodeWithinDepthLimitSucceeds(t *testing.T) {
	const depth = 100
	buf := make([]byte, 0, depth+1)
	for i := 0; i < depth; i++ {
		buf = append(buf, 0x91)
	}
	buf = append(buf, 0x2a)
	v, n, err := Decode(buf)
	if err != nil {
		t.Fatalf("unexpected error at depth %d: %v", depth, err)
	}
	if n != len(buf) {
		t.Fatalf("consumed %d want %d", n, len(buf))
	}
	// Unwrap all the way down to the inner fixint.
	for i := 0; i < depth; i++ {
		arr, ok := v.Array()
		if !ok || len(arr) != 1 {
			t.Fatalf("expected single-element array at level %d", i)
		}
		v = arr[0]
	}
	n64, ok := v.AsInt64()
	if !ok || n64 != 0x2a {
		t.Fatalf("inner value = %v", v)
	}
}

func TestCloneIndependence(t *testing.T) {
	original := ArrayOf(Str("hi"), Bin([]byte{1, 2, 3}))
	clone := original.Clone()
	origArr, _ := original.Array()
	cloneArr, _ := clone.Array()
	cloneBin, _ := cloneArr[1].Bin()
	cloneBin[0] = 0xff
	origBin, _ := origArr[1].Bin()
	if origBin[0] == 0xff {
		t.Fatalf("clone mutation leaked into original")
	}
}
