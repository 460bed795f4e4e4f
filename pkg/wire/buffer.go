package wire

// Offset is a byte position inside an encoded region.
type Offset int

// Buffer is an append-only byte sink. Its length is the write cursor; only
// Truncate moves the cursor backwards.
type Buffer struct {
	buf []byte
}

// NewBuffer returns a Buffer with room for capacity bytes.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{buf: make([]byte, 0, capacity)}
}

// Len returns the number of bytes written.
func (b *Buffer) Len() int { return len(b.buf) }

// Offset returns the write cursor.
func (b *Buffer) Offset() Offset { return Offset(len(b.buf)) }

// Bytes returns the written bytes. The slice aliases the buffer until the
// next write.
func (b *Buffer) Bytes() []byte { return b.buf }

// Reset empties the buffer and keeps its storage.
func (b *Buffer) Reset() { b.buf = b.buf[:0] }

// Truncate discards everything written after the first n bytes.
func (b *Buffer) Truncate(n int) {
	if n < 0 || n > len(b.buf) {
		panic("wire: truncate out of range")
	}
	b.buf = b.buf[:n]
}
