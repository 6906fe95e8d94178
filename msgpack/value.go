// Package msgpack implements the in-memory MessagePack value model and
// the canonical binary codec used by the nvimrpc wire protocol.
package msgpack

// Kind discriminates the variant held by a Value.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindString
	KindBinary
	KindArray
	KindMap
	KindExt
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBinary:
		return "binary"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	case KindExt:
		return "ext"
	default:
		return "unknown"
	}
}

// MapEntry is one (key, value) pair of a Map value. The wire format does
// not require string keys, but every map this client decodes or encodes
// in practice uses them.
type MapEntry struct {
	Key   Value
	Value Value
}

// Value is a tagged union over every MessagePack type this client needs:
// nil, bool, signed/unsigned 64-bit integers, float64, string, binary,
// array, map, and extension. Heap-held fields (strings, byte slices,
// arrays, maps) are owned by the Value; Clone deep-copies them so a
// caller can hand a Value to the multiplexer without retaining aliasing
// concerns.
type Value struct {
	kind Kind

	b bool
	i int64
	u uint64
	f float64
	s string
	bin []byte

	arr []Value
	m   []MapEntry

	extType int8
	extData []byte
}

// Nil returns the nil Value.
func Nil() Value { return Value{kind: KindNil} }

// Bool constructs a bool Value.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Int constructs a signed-integer Value.
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// Uint constructs an unsigned-integer Value.
func Uint(v uint64) Value { return Value{kind: KindUint, u: v} }

// Float constructs a float64 Value.
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

// Str constructs a string Value. Go strings are immutable, so the Value
// shares s's bytes instead of copying them.
func Str(s string) Value { return Value{kind: KindString, s: s} }

// Bin constructs a binary Value, copying b into owned storage so the
// caller may reuse or mutate b after this call returns.
func Bin(b []byte) Value {
	owned := make([]byte, len(b))
	copy(owned, b)
	return Value{kind: KindBinary, bin: owned}
}

// Array constructs an array Value of length n with every slot
// initialized to Nil.
func Array(n int) Value {
	arr := make([]Value, n)
	for i := range arr {
		arr[i] = Nil()
	}
	return Value{kind: KindArray, arr: arr}
}

// ArrayOf constructs an array Value from the given elements directly
// (no defensive copy of the elements themselves — callers that need
// ownership isolation should Clone the result).
func ArrayOf(elems ...Value) Value {
	return Value{kind: KindArray, arr: elems}
}

// Map constructs an empty map Value.
func Map() Value { return Value{kind: KindMap} }

// Ext constructs an extension Value carrying a signed 8-bit type tag and
// an opaque payload, copying data into owned storage.
func Ext(typ int8, data []byte) Value {
	owned := make([]byte, len(data))
	copy(owned, data)
	return Value{kind: KindExt, extType: typ, extData: owned}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNil() bool { return v.kind == KindNil }

func (v Value) Bool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

func (v Value) Int() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

func (v Value) Uint() (uint64, bool) {
	if v.kind != KindUint {
		return 0, false
	}
	return v.u, true
}

// AsInt64 widens either integer Kind to an int64, which is convenient
// for call sites (like the RPC framer) that just need a numeric msgid
// and do not care whether the wire chose the signed or unsigned family.
func (v Value) AsInt64() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindUint:
		return int64(v.u), true
	default:
		return 0, false
	}
}

func (v Value) Float() (float64, bool) {
	if v.kind != KindFloat {
		return 0, false
	}
	return v.f, true
}

func (v Value) Str() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

func (v Value) Bin() ([]byte, bool) {
	if v.kind != KindBinary {
		return nil, false
	}
	return v.bin, true
}

func (v Value) Array() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return v.arr, true
}

func (v Value) MapEntries() ([]MapEntry, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	return v.m, true
}

func (v Value) Ext() (int8, []byte, bool) {
	if v.kind != KindExt {
		return 0, nil, false
	}
	return v.extType, v.extData, true
}

// SetArrayIndex overwrites slot i of an array Value in place. It panics
// if v is not an array or i is out of range, matching the teacher's
// preference for explicit errors over silent truncation at call sites
// that already control the index.
func (v *Value) SetArrayIndex(i int, elem Value) {
	if v.kind != KindArray {
		panic("msgpack: SetArrayIndex on non-array value")
	}
	v.arr[i] = elem
}

// MapSet appends (or replaces, if key already present) an entry of a map
// Value. Maps are small in this client's usage (API metadata, RPC
// error payloads) so linear lookup is adequate.
func (v *Value) MapSet(key, val Value) {
	if v.kind != KindMap {
		panic("msgpack: MapSet on non-map value")
	}
	for i := range v.m {
		if v.m[i].Key.Equal(key) {
			v.m[i].Value = val
			return
		}
	}
	v.m = append(v.m, MapEntry{Key: key, Value: val})
}

// MapGet looks up a string-keyed entry, which covers every map this
// client actually decodes (RPC error payloads, nvim_get_api_info).
func (v Value) MapGet(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	for _, e := range v.m {
		if s, ok := e.Key.Str(); ok && s == key {
			return e.Value, true
		}
	}
	return Value{}, false
}

// Clone deep-copies v so the caller may mutate or discard the original
// the moment this call returns, independent of whatever retains the
// clone (the multiplexer, a response slot, ...).
func (v Value) Clone() Value {
	switch v.kind {
	case KindBinary:
		return Bin(v.bin)
	case KindExt:
		return Ext(v.extType, v.extData)
	case KindArray:
		arr := make([]Value, len(v.arr))
		for i, e := range v.arr {
			arr[i] = e.Clone()
		}
		return Value{kind: KindArray, arr: arr}
	case KindMap:
		m := make([]MapEntry, len(v.m))
		for i, e := range v.m {
			m[i] = MapEntry{Key: e.Key.Clone(), Value: e.Value.Clone()}
		}
		return Value{kind: KindMap, m: m}
	default:
		// nil/bool/int/uint/float/string hold no further heap aliasing
		// beyond the string header, which Go strings already make safe
		// to share.
		return v
	}
}

// Equal reports deep structural equality. Integers compare across the
// Int/Uint split by numeric value, since the wire format does not
// preserve that distinction for non-negative integers (see encode.go).
func (v Value) Equal(other Value) bool {
	if v.kind == KindInt || v.kind == KindUint {
		if other.kind != KindInt && other.kind != KindUint {
			return false
		}
		if v.kind == other.kind {
			return v.i == other.i && v.u == other.u
		}
		// Mixed families: only a non-negative Int can equal a Uint.
		si, u := v.i, other.u
		if v.kind == KindUint {
			si, u = other.i, v.u
		}
		return si >= 0 && uint64(si) == u
	}
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNil:
		return true
	case KindBool:
		return v.b == other.b
	case KindFloat:
		return v.f == other.f
	case KindString:
		return v.s == other.s
	case KindBinary:
		return bytesEqual(v.bin, other.bin)
	case KindExt:
		return v.extType == other.extType && bytesEqual(v.extData, other.extData)
	case KindArray:
		if len(v.arr) != len(other.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.m) != len(other.m) {
			return false
		}
		for _, e := range v.m {
			found := false
			for _, oe := range other.m {
				if oe.Key.Equal(e.Key) {
					found = e.Value.Equal(oe.Value)
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
