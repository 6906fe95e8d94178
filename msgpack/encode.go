package msgpack

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Encode writes the canonical MessagePack binary encoding of v to w,
// choosing the shortest representation available for integers and
// container headers.
func Encode(w io.Writer, v Value) error {
	e := &encoder{w: w}
	e.encodeValue(v)
	return e.err
}

// EncodeToBytes is a convenience wrapper returning the encoded bytes
// directly, used by the RPC framer to build a whole frame before a
// single atomic Transport.Write.
func EncodeToBytes(v Value) ([]byte, error) {
	var buf byteBuffer
	if err := Encode(&buf, v); err != nil {
		return nil, err
	}
	return buf.b, nil
}

// byteBuffer is a minimal io.Writer over a growable slice, avoiding a
// bytes.Buffer import purely to keep this package's surface small; any
// io.Writer works with Encode.
type byteBuffer struct{ b []byte }

func (b *byteBuffer) Write(p []byte) (int, error) {
	b.b = append(b.b, p...)
	return len(p), nil
}

type encoder struct {
	w   io.Writer
	err error
}

func (e *encoder) write(p []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(p)
}

func (e *encoder) writeByte(b byte) { e.write([]byte{b}) }

func (e *encoder) encodeValue(v Value) {
	if e.err != nil {
		return
	}
	switch v.kind {
	case KindNil:
		e.writeByte(0xc0)
	case KindBool:
		if v.b {
			e.writeByte(0xc3)
		} else {
			e.writeByte(0xc2)
		}
	case KindUint:
		e.encodeUint(v.u)
	case KindInt:
		e.encodeInt(v.i)
	case KindFloat:
		e.encodeFloat(v.f)
	case KindString:
		e.encodeStr(v.s)
	case KindBinary:
		e.encodeBin(v.bin)
	case KindArray:
		e.encodeArrayHeader(len(v.arr))
		for _, elem := range v.arr {
			e.encodeValue(elem)
		}
	case KindMap:
		e.encodeMapHeader(len(v.m))
		for _, entry := range v.m {
			e.encodeValue(entry.Key)
			e.encodeValue(entry.Value)
		}
	case KindExt:
		e.encodeExt(v.extType, v.extData)
	default:
		e.err = fmt.Errorf("msgpack: unencodable kind %v", v.kind)
	}
}

// encodeInt picks the negative-fixint / intN family for negative
// values. Non-negative signed integers are encoded exactly like Uint —
// MessagePack's wire format does not reserve a separate "small positive
// signed int" marker below intN, so the shortest legal encoding is the
// unsigned one; this client's decoder reads that back as a Uint Value
// (see decode.go), which callers that round-trip signed non-negative
// values should expect.
func (e *encoder) encodeInt(v int64) {
	if v >= 0 {
		e.encodeUint(uint64(v))
		return
	}
	switch {
	case v >= -32:
		e.writeByte(byte(v))
	case v >= math.MinInt8:
		e.writeByte(0xd0)
		e.writeByte(byte(int8(v)))
	case v >= math.MinInt16:
		e.writeByte(0xd1)
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], uint16(int16(v)))
		e.write(b[:])
	case v >= math.MinInt32:
		e.writeByte(0xd2)
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(int32(v)))
		e.write(b[:])
	default:
		e.writeByte(0xd3)
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(v))
		e.write(b[:])
	}
}

func (e *encoder) encodeUint(v uint64) {
	switch {
	case v <= 0x7f:
		e.writeByte(byte(v))
	case v <= 0xff:
		e.writeByte(0xcc)
		e.writeByte(byte(v))
	case v <= 0xffff:
		e.writeByte(0xcd)
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], uint16(v))
		e.write(b[:])
	case v <= 0xffffffff:
		e.writeByte(0xce)
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(v))
		e.write(b[:])
	default:
		e.writeByte(0xcf)
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], v)
		e.write(b[:])
	}
}

func (e *encoder) encodeFloat(v float64) {
	e.writeByte(0xcb)
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
	e.write(b[:])
}

func (e *encoder) encodeStr(s string) {
	n := len(s)
	switch {
	case n <= 31:
		e.writeByte(0xa0 | byte(n))
	case n <= 0xff:
		e.writeByte(0xd9)
		e.writeByte(byte(n))
	case n <= 0xffff:
		e.writeByte(0xda)
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], uint16(n))
		e.write(b[:])
	default:
		e.writeByte(0xdb)
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(n))
		e.write(b[:])
	}
	e.write([]byte(s))
}

func (e *encoder) encodeBin(b []byte) {
	n := len(b)
	switch {
	case n <= 0xff:
		e.writeByte(0xc4)
		e.writeByte(byte(n))
	case n <= 0xffff:
		e.writeByte(0xc5)
		var hdr [2]byte
		binary.BigEndian.PutUint16(hdr[:], uint16(n))
		e.write(hdr[:])
	default:
		e.writeByte(0xc6)
		var hdr [4]byte
		binary.BigEndian.PutUint32(hdr[:], uint32(n))
		e.write(hdr[:])
	}
	e.write(b)
}

func (e *encoder) encodeArrayHeader(n int) {
	switch {
	case n <= 15:
		e.writeByte(0x90 | byte(n))
	case n <= 0xffff:
		e.writeByte(0xdc)
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], uint16(n))
		e.write(b[:])
	default:
		e.writeByte(0xdd)
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(n))
		e.write(b[:])
	}
}

func (e *encoder) encodeMapHeader(n int) {
	switch {
	case n <= 15:
		e.writeByte(0x80 | byte(n))
	case n <= 0xffff:
		e.writeByte(0xde)
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], uint16(n))
		e.write(b[:])
	default:
		e.writeByte(0xdf)
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(n))
		e.write(b[:])
	}
}

func (e *encoder) encodeExt(typ int8, data []byte) {
	n := len(data)
	switch n {
	case 1:
		e.writeByte(0xd4)
	case 2:
		e.writeByte(0xd5)
	case 4:
		e.writeByte(0xd6)
	case 8:
		e.writeByte(0xd7)
	case 16:
		e.writeByte(0xd8)
	default:
		switch {
		case n <= 0xff:
			e.writeByte(0xc7)
			e.writeByte(byte(n))
		case n <= 0xffff:
			e.writeByte(0xc8)
			var b [2]byte
			binary.BigEndian.PutUint16(b[:], uint16(n))
			e.write(b[:])
		default:
			e.writeByte(0xc9)
			var b [4]byte
			binary.BigEndian.PutUint32(b[:], uint32(n))
			e.write(b[:])
		}
	}
	e.writeByte(byte(typ))
	e.write(data)
}
