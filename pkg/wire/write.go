package wire

import (
	"github.com/speakez-llc/barewire/internal/common"
)

func (b *Buffer) WriteUInt(v uint64) { b.buf = common.AppendUvarint(b.buf, v) }

// WriteInt writes v zigzag encoded as a uint.
func (b *Buffer) WriteInt(v int64) { b.buf = common.AppendUvarint(b.buf, common.ZigZag(v)) }

func (b *Buffer) WriteU8(v uint8)    { b.buf = append(b.buf, v) }
func (b *Buffer) WriteU16(v uint16)  { b.buf = common.AppendU16(b.buf, v) }
func (b *Buffer) WriteU32(v uint32)  { b.buf = common.AppendU32(b.buf, v) }
func (b *Buffer) WriteU64(v uint64)  { b.buf = common.AppendU64(b.buf, v) }
func (b *Buffer) WriteI8(v int8)     { b.buf = append(b.buf, byte(v)) }
func (b *Buffer) WriteI16(v int16)   { b.buf = common.AppendU16(b.buf, uint16(v)) }
func (b *Buffer) WriteI32(v int32)   { b.buf = common.AppendU32(b.buf, uint32(v)) }
func (b *Buffer) WriteI64(v int64)   { b.buf = common.AppendU64(b.buf, uint64(v)) }
func (b *Buffer) WriteF32(v float32) { b.buf = common.AppendF32(b.buf, v) }
func (b *Buffer) WriteF64(v float64) { b.buf = common.AppendF64(b.buf, v) }

func (b *Buffer) WriteBool(v bool) {
	if v {
		b.buf = append(b.buf, 1)
	} else {
		b.buf = append(b.buf, 0)
	}
}

// WriteString writes the UTF-8 byte length of s followed by its bytes.
func (b *Buffer) WriteString(s string) {
	b.buf = common.AppendUvarint(b.buf, uint64(len(s)))
	b.buf = append(b.buf, s...)
}

// WriteData writes the length of v followed by its bytes.
func (b *Buffer) WriteData(v []byte) {
	b.buf = common.AppendUvarint(b.buf, uint64(len(v)))
	b.buf = append(b.buf, v...)
}

// WriteFixedData writes v without a length prefix; v must be exactly n bytes.
func (b *Buffer) WriteFixedData(v []byte, n int) error {
	if len(v) != n {
		return ErrFixedLength
	}
	b.buf = append(b.buf, v...)
	return nil
}

// Writer encodes one value of type T into a Buffer.
type Writer[T any] func(*Buffer, T) error

// Entry is one key/value pair for WriteMap and ReadMap.
type Entry[K, V any] struct {
	Key   K
	Value V
}

// rollback truncates b to start when err is non-nil.
func rollback(b *Buffer, start int, err error) error {
	if err != nil {
		b.Truncate(start)
	}
	return err
}

// WriteOptional writes 0 for a nil v, else 1 followed by *v. Like the other
// combinators it leaves b unchanged when a nested writer fails.
func WriteOptional[T any](b *Buffer, v *T, write Writer[T]) error {
	if v == nil {
		b.WriteU8(0)
		return nil
	}
	start := b.Len()
	b.WriteU8(1)
	return rollback(b, start, write(b, *v))
}

// WriteList writes the element count followed by every element.
func WriteList[T any](b *Buffer, items []T, write Writer[T]) error {
	start := b.Len()
	b.WriteUInt(uint64(len(items)))
	return rollback(b, start, writeItems(b, items, write))
}

// WriteFixedList writes exactly n elements with no count prefix.
func WriteFixedList[T any](b *Buffer, items []T, n int, write Writer[T]) error {
	if len(items) != n {
		return ErrFixedLength
	}
	start := b.Len()
	return rollback(b, start, writeItems(b, items, write))
}

func writeItems[T any](b *Buffer, items []T, write Writer[T]) error {
	for _, it := range items {
		if err := write(b, it); err != nil {
			return err
		}
	}
	return nil
}

// WriteMap writes the entry count followed by key/value pairs in the given
// order.
func WriteMap[K, V any](b *Buffer, entries []Entry[K, V], wk Writer[K], wv Writer[V]) error {
	start := b.Len()
	b.WriteUInt(uint64(len(entries)))
	for _, e := range entries {
		if err := wk(b, e.Key); err != nil {
			return rollback(b, start, err)
		}
		if err := wv(b, e.Value); err != nil {
			return rollback(b, start, err)
		}
	}
	return nil
}

// WriteUnion writes tag followed by the case payload.
func WriteUnion[T any](b *Buffer, tag uint64, v T, write Writer[T]) error {
	start := b.Len()
	b.WriteUInt(tag)
	return rollback(b, start, write(b, v))
}
