package common

import (
	"encoding/binary"
	"errors"
	"math"
)

// MaxVarintLen is the longest ULEB128 encoding of a uint64.
const MaxVarintLen = 10

var (
	// ErrVarintTruncated is returned when the input ends inside a varint.
	ErrVarintTruncated = errors.New("varint truncated")
	// ErrVarintOverflow is returned when a varint does not terminate before
	// the shift reaches 64 bits.
	ErrVarintOverflow = errors.New("varint overflows 64 bits")
)

// AppendUvarint appends the ULEB128 encoding of x to dst using a small stack
// scratch.
func AppendUvarint(dst []byte, x uint64) []byte {
	var scratch [MaxVarintLen]byte
	i := 0
	for x >= 0x80 {
		scratch[i] = byte(x) | 0x80
		x >>= 7
		i++
	}
	scratch[i] = byte(x)
	i++
	return append(dst, scratch[:i]...)
}

// UvarintLen returns the number of bytes AppendUvarint writes for x.
func UvarintLen(x uint64) int {
	n := 1
	for x >= 0x80 {
		x >>= 7
		n++
	}
	return n
}

// ReadUvarint decodes a ULEB128 value from b returning the value and the
// number of bytes consumed.
func ReadUvarint(b []byte) (uint64, int, error) {
	var x uint64
	var s uint
	for i, c := range b {
		if s >= 64 {
			return 0, 0, ErrVarintOverflow
		}
		if s == 63 && c > 1 {
			// only one payload bit is left at shift 63
			return 0, 0, ErrVarintOverflow
		}
		x |= uint64(c&0x7F) << s
		if c&0x80 == 0 {
			return x, i + 1, nil
		}
		s += 7
	}
	return 0, 0, ErrVarintTruncated
}

// ZigZag maps signed values onto unsigned ones so that small magnitudes stay
// small.
func ZigZag(v int64) uint64 {
	return uint64(v<<1) ^ uint64(v>>63)
}

// UnZigZag is the inverse of ZigZag.
func UnZigZag(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}

// AppendU16 appends v little-endian.
func AppendU16(dst []byte, v uint16) []byte {
	return binary.LittleEndian.AppendUint16(dst, v)
}

// AppendU32 appends v little-endian.
func AppendU32(dst []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(dst, v)
}

// AppendU64 appends v little-endian.
func AppendU64(dst []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(dst, v)
}

// AppendF32 appends the IEEE 754 bits of v little-endian.
func AppendF32(dst []byte, v float32) []byte {
	return AppendU32(dst, math.Float32bits(v))
}

// AppendF64 appends the IEEE 754 bits of v little-endian.
func AppendF64(dst []byte, v float64) []byte {
	return AppendU64(dst, math.Float64bits(v))
}

// U16 decodes a little-endian uint16; b must hold at least 2 bytes.
func U16(b []byte) uint16 { return binary.LittleEndian.Uint16(b) }

// U32 decodes a little-endian uint32; b must hold at least 4 bytes.
func U32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }

// U64 decodes a little-endian uint64; b must hold at least 8 bytes.
func U64(b []byte) uint64 { return binary.LittleEndian.Uint64(b) }

// F32 decodes a little-endian float32.
func F32(b []byte) float32 { return math.Float32frombits(U32(b)) }

// F64 decodes a little-endian float64.
func F64(b []byte) float64 { return math.Float64frombits(U64(b)) }
