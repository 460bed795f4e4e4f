package wire

import (
	"errors"
	"unicode/utf8"

	"github.com/speakez-llc/barewire/internal/common"
)

// need reports ErrTruncated unless src holds n bytes at off.
func need(src []byte, off Offset, n int) error {
	if off < 0 || int(off) > len(src) {
		return decodeErr(off, ErrOutOfBounds)
	}
	if n < 0 || len(src)-int(off) < n {
		return decodeErr(off, ErrTruncated)
	}
	return nil
}

func ReadUInt(src []byte, off Offset) (uint64, Offset, error) {
	if err := need(src, off, 1); err != nil {
		return 0, off, err
	}
	v, n, err := common.ReadUvarint(src[off:])
	if err != nil {
		if errors.Is(err, common.ErrVarintTruncated) {
			return 0, off, decodeErr(off, ErrTruncated)
		}
		return 0, off, decodeErr(off, ErrMalformedVarint)
	}
	return v, off + Offset(n), nil
}

func ReadInt(src []byte, off Offset) (int64, Offset, error) {
	u, next, err := ReadUInt(src, off)
	if err != nil {
		return 0, off, err
	}
	return common.UnZigZag(u), next, nil
}

func ReadU8(src []byte, off Offset) (uint8, Offset, error) {
	if err := need(src, off, 1); err != nil {
		return 0, off, err
	}
	return src[off], off + 1, nil
}

func ReadU16(src []byte, off Offset) (uint16, Offset, error) {
	if err := need(src, off, 2); err != nil {
		return 0, off, err
	}
	return common.U16(src[off:]), off + 2, nil
}

func ReadU32(src []byte, off Offset) (uint32, Offset, error) {
	if err := need(src, off, 4); err != nil {
		return 0, off, err
	}
	return common.U32(src[off:]), off + 4, nil
}

func ReadU64(src []byte, off Offset) (uint64, Offset, error) {
	if err := need(src, off, 8); err != nil {
		return 0, off, err
	}
	return common.U64(src[off:]), off + 8, nil
}

func ReadI8(src []byte, off Offset) (int8, Offset, error) {
	v, next, err := ReadU8(src, off)
	return int8(v), next, err
}

func ReadI16(src []byte, off Offset) (int16, Offset, error) {
	v, next, err := ReadU16(src, off)
	return int16(v), next, err
}

func ReadI32(src []byte, off Offset) (int32, Offset, error) {
	v, next, err := ReadU32(src, off)
	return int32(v), next, err
}

func ReadI64(src []byte, off Offset) (int64, Offset, error) {
	v, next, err := ReadU64(src, off)
	return int64(v), next, err
}

func ReadF32(src []byte, off Offset) (float32, Offset, error) {
	if err := need(src, off, 4); err != nil {
		return 0, off, err
	}
	return common.F32(src[off:]), off + 4, nil
}

func ReadF64(src []byte, off Offset) (float64, Offset, error) {
	if err := need(src, off, 8); err != nil {
		return 0, off, err
	}
	return common.F64(src[off:]), off + 8, nil
}

// ReadBool accepts only the bytes 0 and 1.
func ReadBool(src []byte, off Offset) (bool, Offset, error) {
	v, next, err := ReadU8(src, off)
	if err != nil {
		return false, off, err
	}
	switch v {
	case 0:
		return false, next, nil
	case 1:
		return true, next, nil
	}
	return false, off, decodeErr(off, ErrInvalidBool)
}

// ReadCount reads a length or element count and rejects counts that cannot
// fit in the remaining input, given that every element takes at least one
// byte.
func ReadCount(src []byte, off Offset) (int, Offset, error) {
	n, next, err := ReadUInt(src, off)
	if err != nil {
		return 0, off, err
	}
	if n > uint64(len(src)-int(next)) {
		return 0, off, decodeErr(off, ErrTruncated)
	}
	return int(n), next, nil
}

// ReadDataRef returns the length-prefixed bytes at off without copying.
func ReadDataRef(src []byte, off Offset) ([]byte, Offset, error) {
	n, next, err := ReadCount(src, off)
	if err != nil {
		return nil, off, err
	}
	end := next + Offset(n)
	return src[next:end:end], end, nil
}

// ReadData returns a copy of the length-prefixed bytes at off.
func ReadData(src []byte, off Offset) ([]byte, Offset, error) {
	ref, next, err := ReadDataRef(src, off)
	if err != nil {
		return nil, off, err
	}
	out := make([]byte, len(ref))
	copy(out, ref)
	return out, next, nil
}

// ReadString reads a length-prefixed UTF-8 string.
func ReadString(src []byte, off Offset) (string, Offset, error) {
	ref, next, err := ReadDataRef(src, off)
	if err != nil {
		return "", off, err
	}
	if err := validUTF8(ref, off); err != nil {
		return "", off, err
	}
	return string(ref), next, nil
}

func validUTF8(b []byte, off Offset) error {
	if !utf8.Valid(b) {
		return decodeErr(off, ErrInvalidUTF8)
	}
	return nil
}

// ReadFixedDataRef returns the n bytes at off without copying; it never
// looks past off+n.
func ReadFixedDataRef(src []byte, off Offset, n int) ([]byte, Offset, error) {
	if err := need(src, off, n); err != nil {
		return nil, off, err
	}
	end := off + Offset(n)
	return src[off:end:end], end, nil
}

// Reader decodes one value of type T at an offset.
type Reader[T any] func(src []byte, off Offset) (T, Offset, error)

// ReadOptional returns nil for an absent value.
func ReadOptional[T any](src []byte, off Offset, read Reader[T]) (*T, Offset, error) {
	present, next, err := ReadBool(src, off)
	if err != nil {
		return nil, off, err
	}
	if !present {
		return nil, next, nil
	}
	v, next, err := read(src, next)
	if err != nil {
		return nil, off, err
	}
	return &v, next, nil
}

func ReadList[T any](src []byte, off Offset, read Reader[T]) ([]T, Offset, error) {
	n, next, err := ReadCount(src, off)
	if err != nil {
		return nil, off, err
	}
	return readItems(src, next, n, read)
}

func ReadFixedList[T any](src []byte, off Offset, n int, read Reader[T]) ([]T, Offset, error) {
	return readItems(src, off, n, read)
}

func readItems[T any](src []byte, off Offset, n int, read Reader[T]) ([]T, Offset, error) {
	out := make([]T, 0, n)
	next := off
	for i := 0; i < n; i++ {
		v, after, err := read(src, next)
		if err != nil {
			return nil, off, err
		}
		out = append(out, v)
		next = after
	}
	return out, next, nil
}

func ReadMap[K, V any](src []byte, off Offset, rk Reader[K], rv Reader[V]) ([]Entry[K, V], Offset, error) {
	n, next, err := ReadCount(src, off)
	if err != nil {
		return nil, off, err
	}
	out := make([]Entry[K, V], 0, n)
	for i := 0; i < n; i++ {
		k, after, err := rk(src, next)
		if err != nil {
			return nil, off, err
		}
		v, after, err := rv(src, after)
		if err != nil {
			return nil, off, err
		}
		out = append(out, Entry[K, V]{Key: k, Value: v})
		next = after
	}
	return out, next, nil
}

// ReadUnion reads the tag and hands the payload to read, which reports
// ErrUnknownTag for undeclared tags.
func ReadUnion[T any](src []byte, off Offset, read func(tag uint64, src []byte, off Offset) (T, Offset, error)) (uint64, T, Offset, error) {
	var zero T
	tag, next, err := ReadUInt(src, off)
	if err != nil {
		return 0, zero, off, err
	}
	v, next, err := read(tag, src, next)
	if err != nil {
		return 0, zero, off, err
	}
	return tag, v, next, nil
}
