package ggufmeta

// valueType is the type tag of a GGUF metadata value in the binary format.
type valueType uint32

const (
	typeUint8   valueType = 0
	typeInt8    valueType = 1
	typeUint16  valueType = 2
	typeInt16   valueType = 3
	typeUint32  valueType = 4
	typeInt32   valueType = 5
	typeFloat32 valueType = 6
	typeBool    valueType = 7
	typeString  valueType = 8
	typeArray   valueType = 9
	typeUint64  valueType = 10
	typeInt64   valueType = 11
	typeFloat64 valueType = 12
)

// Value wraps a GGUF metadata value with typed accessors. Accessors return
// zero values when the underlying type doesn't match, rather than erroring;
// callers at the vocab.MetadataRecord projection layer are responsible for
// deciding whether a mismatch is fatal.
type Value struct {
	data any
}

// Raw returns the underlying value without type conversion.
func (v Value) Raw() any { return v.data }

// String returns the value as a string, or "" if it is not a string.
func (v Value) String() string {
	s, _ := v.data.(string)
	return s
}

// Strings returns the value as a string slice, or nil if it is not one.
func (v Value) Strings() []string {
	s, _ := v.data.([]string)
	return s
}

// Int returns the value as an int64, or 0 if it is not an integer.
func (v Value) Int() int64 {
	switch n := v.data.(type) {
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return int64(n)
	default:
		return 0
	}
}

// Bool returns the value as a bool, or false if it is not a bool.
func (v Value) Bool() bool {
	b, _ := v.data.(bool)
	return b
}

// Floats returns the value as a float32 slice, or nil if it is not a float
// array (narrowed to float32 since that is all the vocabulary model needs).
func (v Value) Floats() []float32 {
	switch s := v.data.(type) {
	case []float32:
		return s
	case []float64:
		out := make([]float32, len(s))
		for i, f := range s {
			out[i] = float32(f)
		}
		return out
	default:
		return nil
	}
}

// Ints returns the value as an int64 slice, or nil if it is not an integer
// array.
func (v Value) Ints() []int64 {
	switch s := v.data.(type) {
	case []int64:
		return s
	case []int32:
		return widenInts(s)
	case []int16:
		return widenInts(s)
	case []int8:
		return widenInts(s)
	case []uint64:
		out := make([]int64, len(s))
		for i, n := range s {
			out[i] = int64(n)
		}
		return out
	case []uint32:
		return widenInts(s)
	case []uint16:
		return widenInts(s)
	case []uint8:
		return widenInts(s)
	default:
		return nil
	}
}

// Bytes returns the value as a raw byte slice, for the precompiled_charsmap
// blob (stored as a uint8 array in the GGUF KV section).
func (v Value) Bytes() []byte {
	s, ok := v.data.([]uint8)
	if !ok {
		return nil
	}
	return s
}

func widenInts[T ~int8 | ~int16 | ~int32 | ~uint8 | ~uint16 | ~uint32](s []T) []int64 {
	out := make([]int64, len(s))
	for i, n := range s {
		out[i] = int64(n)
	}
	return out
}
