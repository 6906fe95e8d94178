package msgpack

import (
	"encoding/binary"
	"errors"
	"math"
	"unicode/utf8"
)

// ErrIncomplete means the buffer ends mid-value: the caller must read
// more bytes from the transport and retry decoding from the start of
// the same buffer. No input is considered consumed when this error is
// returned.
var ErrIncomplete = errors.New("msgpack: incomplete value")

// ErrMalformed means the buffer contains a structural violation: a
// reserved marker, an impossible length, invalid UTF-8 inside a string
// claim, or nesting beyond maxDepth. The connection should be treated
// as unrecoverable.
var ErrMalformed = errors.New("msgpack: malformed value")

// maxDepth bounds array/map nesting so a corrupted or adversarial
// stream cannot drive the decoder into unbounded recursion.
const maxDepth = 1024

// Decode reads exactly one top-level value from buf, returning the
// value and the number of bytes it consumed. On ErrIncomplete the
// caller should append more bytes to buf and call Decode again from
// the beginning; no prefix of buf has been consumed.
func Decode(buf []byte) (Value, int, error) {
	d := &decoder{buf: buf}
	v, err := d.decodeValue(0)
	if err != nil {
		return Value{}, 0, err
	}
	return v, d.pos, nil
}

type decoder struct {
	buf []byte
	pos int
}

func (d *decoder) remaining() int { return len(d.buf) - d.pos }

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func (d *decoder) readByte() (byte, error) {
	if d.remaining() < 1 {
		return 0, ErrIncomplete
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

func (d *decoder) peekByte() (byte, error) {
	if d.remaining() < 1 {
		return 0, ErrIncomplete
	}
	return d.buf[d.pos], nil
}

func (d *decoder) readN(n int) ([]byte, error) {
	if d.remaining() < n {
		return nil, ErrIncomplete
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *decoder) readUint8() (uint8, error) {
	b, err := d.readByte()
	return b, err
}

func (d *decoder) readUint16() (uint16, error) {
	b, err := d.readN(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (d *decoder) readUint32() (uint32, error) {
	b, err := d.readN(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (d *decoder) readUint64() (uint64, error) {
	b, err := d.readN(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (d *decoder) decodeValue(depth int) (Value, error) {
	if depth > maxDepth {
		return Value{}, ErrMalformed
	}
	marker, err := d.readByte()
	if err != nil {
		return Value{}, err
	}

	switch {
	case marker <= 0x7f:
		return Uint(uint64(marker)), nil
	case marker >= 0xe0:
		return Int(int64(int8(marker))), nil
	case marker&0xf0 == 0x80:
		return d.decodeMapBody(int(marker&0x0f), depth)
	case marker&0xf0 == 0x90:
		return d.decodeArrayBody(int(marker&0x0f), depth)
	case marker&0xe0 == 0xa0:
		return d.decodeStrBody(int(marker & 0x1f))
	}

	switch marker {
	case 0xc0:
		return Nil(), nil
	case 0xc1:
		return Value{}, ErrMalformed // never-used marker
	case 0xc2:
		return Bool(false), nil
	case 0xc3:
		return Bool(true), nil
	case 0xc4:
		n, err := d.readUint8()
		if err != nil {
			return Value{}, err
		}
		return d.decodeBinBody(int(n))
	case 0xc5:
		n, err := d.readUint16()
		if err != nil {
			return Value{}, err
		}
		return d.decodeBinBody(int(n))
	case 0xc6:
		n, err := d.readUint32()
		if err != nil {
			return Value{}, err
		}
		return d.decodeBinBody(int(n))
	case 0xc7:
		n, err := d.readUint8()
		if err != nil {
			return Value{}, err
		}
		return d.decodeExtBody(int(n))
	case 0xc8:
		n, err := d.readUint16()
		if err != nil {
			return Value{}, err
		}
		return d.decodeExtBody(int(n))
	case 0xc9:
		n, err := d.readUint32()
		if err != nil {
			return Value{}, err
		}
		return d.decodeExtBody(int(n))
	case 0xca:
		b, err := d.readN(4)
		if err != nil {
			return Value{}, err
		}
		return Float(float64(math.Float32frombits(binary.BigEndian.Uint32(b)))), nil
	case 0xcb:
		u, err := d.readUint64()
		if err != nil {
			return Value{}, err
		}
		return Float(math.Float64frombits(u)), nil
	case 0xcc:
		n, err := d.readUint8()
		if err != nil {
			return Value{}, err
		}
		return Uint(uint64(n)), nil
	case 0xcd:
		n, err := d.readUint16()
		if err != nil {
			return Value{}, err
		}
		return Uint(uint64(n)), nil
	case 0xce:
		n, err := d.readUint32()
		if err != nil {
			return Value{}, err
		}
		return Uint(uint64(n)), nil
	case 0xcf:
		n, err := d.readUint64()
		if err != nil {
			return Value{}, err
		}
		return Uint(n), nil
	case 0xd0:
		n, err := d.readUint8()
		if err != nil {
			return Value{}, err
		}
		return Int(int64(int8(n))), nil
	case 0xd1:
		n, err := d.readUint16()
		if err != nil {
			return Value{}, err
		}
		return Int(int64(int16(n))), nil
	case 0xd2:
		n, err := d.readUint32()
		if err != nil {
			return Value{}, err
		}
		return Int(int64(int32(n))), nil
	case 0xd3:
		n, err := d.readUint64()
		if err != nil {
			return Value{}, err
		}
		return Int(int64(n)), nil
	case 0xd4:
		return d.decodeExtBody(1)
	case 0xd5:
		return d.decodeExtBody(2)
	case 0xd6:
		return d.decodeExtBody(4)
	case 0xd7:
		return d.decodeExtBody(8)
	case 0xd8:
		return d.decodeExtBody(16)
	case 0xd9:
		n, err := d.readUint8()
		if err != nil {
			return Value{}, err
		}
		return d.decodeStrBody(int(n))
	case 0xda:
		n, err := d.readUint16()
		if err != nil {
			return Value{}, err
		}
		return d.decodeStrBody(int(n))
	case 0xdb:
		n, err := d.readUint32()
		if err != nil {
			return Value{}, err
		}
		return d.decodeStrBody(int(n))
	case 0xdc:
		n, err := d.readUint16()
		if err != nil {
			return Value{}, err
		}
		return d.decodeArrayBody(int(n), depth)
	case 0xdd:
		n, err := d.readUint32()
		if err != nil {
			return Value{}, err
		}
		return d.decodeArrayBody(int(n), depth)
	case 0xde:
		n, err := d.readUint16()
		if err != nil {
			return Value{}, err
		}
		return d.decodeMapBody(int(n), depth)
	case 0xdf:
		n, err := d.readUint32()
		if err != nil {
			return Value{}, err
		}
		return d.decodeMapBody(int(n), depth)
	}

	return Value{}, ErrMalformed
}

func (d *decoder) decodeStrBody(n int) (Value, error) {
	b, err := d.readN(n)
	if err != nil {
		return Value{}, err
	}
	if !utf8.Valid(b) {
		return Value{}, ErrMalformed
	}
	return Str(string(b)), nil
}

func (d *decoder) decodeBinBody(n int) (Value, error) {
	b, err := d.readN(n)
	if err != nil {
		return Value{}, err
	}
	return Bin(b), nil
}

func (d *decoder) decodeExtBody(n int) (Value, error) {
	typByte, err := d.readByte()
	if err != nil {
		return Value{}, err
	}
	data, err := d.readN(n)
	if err != nil {
		return Value{}, err
	}
	return Ext(int8(typByte), data), nil
}

func (d *decoder) decodeArrayBody(n int, depth int) (Value, error) {
	// n comes straight off the wire and is attacker-controlled up to
	// 2^32-1; preallocating make([]Value, n) on that claim alone lets a
	// few header bytes request gigabytes before a single element byte
	// is checked. Every element consumes at least one byte, so cap the
	// preallocation at what the buffer could actually hold and let the
	// append-as-we-go growth handle a (valid, merely large) n beyond that.
	arr := make([]Value, 0, minInt(n, d.remaining()))
	for i := 0; i < n; i++ {
		elem, err := d.decodeValue(depth + 1)
		if err != nil {
			return Value{}, err
		}
		arr = append(arr, elem)
	}
	return Value{kind: KindArray, arr: arr}, nil
}

func (d *decoder) decodeMapBody(n int, depth int) (Value, error) {
	// Same attacker-controlled-length concern as decodeArrayBody: each
	// entry consumes at least two bytes (a key and a value), so cap the
	// preallocation accordingly rather than trusting n outright.
	entries := make([]MapEntry, 0, minInt(n, d.remaining()/2))
	for i := 0; i < n; i++ {
		key, err := d.decodeValue(depth + 1)
		if err != nil {
			return Value{}, err
		}
		val, err := d.decodeValue(depth + 1)
		if err != nil {
			return Value{}, err
		}
		entries = append(entries, MapEntry{Key: key, Value: val})
	}
	return Value{kind: KindMap, m: entries}, nil
}
