package zc

import (
	"fmt"

	"github.com/speakez-llc/barewire/pkg/wire"
)

// Region is a borrowed window [base, base+length) of a byte slice.
type Region struct {
	buf    []byte
	base   wire.Offset
	length int
}

// NewRegion covers all of buf.
func NewRegion(buf []byte) Region {
	return Region{buf: buf, length: len(buf)}
}

// SubRegion covers length bytes of buf starting at base.
func SubRegion(buf []byte, base wire.Offset, length int) (Region, error) {
	if base < 0 || length < 0 || int(base) > len(buf) || length > len(buf)-int(base) {
		return Region{}, fmt.Errorf("%w: region [%d, +%d) of %d bytes", ErrOutOfBounds, base, length, len(buf))
	}
	return Region{buf: buf, base: base, length: length}, nil
}

func (r Region) Base() wire.Offset { return r.base }
func (r Region) Len() int          { return r.length }

// Bytes returns the window itself, not a copy.
func (r Region) Bytes() []byte {
	end := int(r.base) + r.length
	return r.buf[r.base:end:end]
}
