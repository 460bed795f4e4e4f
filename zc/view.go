package zc

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/speakez-llc/barewire/pkg/schema"
	"github.com/speakez-llc/barewire/pkg/wire"
)

// View resolves field paths of one encoded root value. Concurrent readers
// are safe, including with the offset cache; SetField needs a single writer
// and no readers in flight.
type View struct {
	region  Region
	schema  *schema.Schema
	skipper *wire.Skipper
	scratch *wire.Buffer

	mu            sync.RWMutex
	cache         map[string]resolved
	unsafeStrings bool
	log           zerolog.Logger
}

type resolved struct {
	off wire.Offset
	typ schema.Type
}

// New returns a View of the root type of s encoded at the start of region.
func New(region Region, s *schema.Schema, opts ...Option) *View {
	v := &View{
		region:  region,
		schema:  s,
		skipper: wire.NewSkipper(s),
		scratch: wire.NewBuffer(64),
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *View) Region() Region { return v.region }

func (v *View) Schema() *schema.Schema { return v.schema }

// ResolveFieldPath returns the offset (relative to the region) and type of
// the value addressed by path. Struct segments name fields, union segments
// name the encoded case by decimal tag or type name, list segments are
// decimal indexes and "?" enters a present optional.
func (v *View) ResolveFieldPath(path []string) (wire.Offset, schema.Type, error) {
	if v.cache == nil {
		return v.resolve(path)
	}
	key := strings.Join(path, "\x00")
	v.mu.RLock()
	r, ok := v.cache[key]
	v.mu.RUnlock()
	if ok {
		v.log.Debug().Strs("path", path).Int("offset", int(r.off)).Msg("offset cache hit")
		return r.off, r.typ, nil
	}
	off, t, err := v.resolve(path)
	if err != nil {
		return 0, nil, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	// Double-check
	if r, ok := v.cache[key]; ok {
		return r.off, r.typ, nil
	}
	v.log.Debug().Strs("path", path).Int("offset", int(off)).Msg("offset cache miss")
	v.cache[key] = resolved{off: off, typ: t}
	return off, t, nil
}

func (v *View) resolve(path []string) (wire.Offset, schema.Type, error) {
	src := v.region.Bytes()
	var off wire.Offset
	t := v.schema.Resolve(schema.Named(v.schema.Root()))
	for i, seg := range path {
		at := strings.Join(path[:i+1], ".")
		var err error
		switch tt := t.(type) {
		case schema.Struct:
			idx := tt.FieldIndex(seg)
			if idx < 0 {
				return 0, nil, fmt.Errorf("%w: %s", ErrFieldNotFound, at)
			}
			for _, f := range tt.Fields[:idx] {
				if off, err = v.skipper.Skip(f.Type, src, off); err != nil {
					return 0, nil, bounds(at, err)
				}
			}
			t = tt.Fields[idx].Type
		case schema.Union:
			tag, next, err := wire.ReadUInt(src, off)
			if err != nil {
				return 0, nil, bounds(at, err)
			}
			c, ok := unionCase(tt, seg)
			if !ok {
				return 0, nil, fmt.Errorf("%w: %s", ErrFieldNotFound, at)
			}
			if c.Tag != tag {
				return 0, nil, fmt.Errorf("%w: %s (encoded tag is %d)", ErrFieldNotFound, at, tag)
			}
			off, t = next, c.Type
		case schema.List, schema.FixedList:
			if off, t, err = v.element(tt, seg, at, src, off); err != nil {
				return 0, nil, err
			}
		case schema.Optional:
			if seg != "?" {
				return 0, nil, fmt.Errorf("%w: %s", ErrFieldNotFound, at)
			}
			present, next, err := wire.ReadBool(src, off)
			if err != nil {
				return 0, nil, bounds(at, err)
			}
			if !present {
				return 0, nil, fmt.Errorf("%w: %s (absent)", ErrFieldNotFound, at)
			}
			off, t = next, tt.Elem
		default:
			return 0, nil, fmt.Errorf("%w: %s is %s", ErrTypeMismatch, at, schema.Format(t))
		}
		t = v.schema.Resolve(t)
	}
	if int(off) > len(src) {
		return 0, nil, fmt.Errorf("%w: offset %d", ErrOutOfBounds, off)
	}
	return off, t, nil
}

func (v *View) element(t schema.Type, seg, at string, src []byte, off wire.Offset) (wire.Offset, schema.Type, error) {
	idx, err := strconv.Atoi(seg)
	if err != nil || idx < 0 {
		return 0, nil, fmt.Errorf("%w: %s", ErrFieldNotFound, at)
	}
	var elem schema.Type
	var n int
	switch tt := t.(type) {
	case schema.List:
		if n, off, err = wire.ReadCount(src, off); err != nil {
			return 0, nil, bounds(at, err)
		}
		elem = tt.Elem
	case schema.FixedList:
		n, elem = tt.Len, tt.Elem
	}
	if idx >= n {
		return 0, nil, fmt.Errorf("%w: %s (length %d)", ErrFieldNotFound, at, n)
	}
	if size := v.skipper.Analyzer().Size(elem); size.IsFixed {
		off += wire.Offset(idx) * wire.Offset(size.Min)
		return off, elem, nil
	}
	for j := 0; j < idx; j++ {
		if off, err = v.skipper.Skip(elem, src, off); err != nil {
			return 0, nil, bounds(at, err)
		}
	}
	return off, elem, nil
}

func unionCase(u schema.Union, seg string) (schema.UnionCase, bool) {
	if tag, err := strconv.ParseUint(seg, 10, 64); err == nil {
		return u.CaseByTag(tag)
	}
	for _, c := range u.Cases {
		if ref, ok := c.Type.(schema.Ref); ok && ref.Name == seg {
			return c, true
		}
		if schema.Format(c.Type) == seg {
			return c, true
		}
	}
	return schema.UnionCase{}, false
}

// bounds reports running off the region as ErrOutOfBounds and keeps other
// decode failures as they are.
func bounds(at string, err error) error {
	if errors.Is(err, wire.ErrTruncated) || errors.Is(err, wire.ErrOutOfBounds) {
		return fmt.Errorf("%w: %s: %w", ErrOutOfBounds, at, err)
	}
	return fmt.Errorf("%s: %w", at, err)
}

// GetField decodes only the value addressed by path.
func (v *View) GetField(path []string) (wire.Value, error) {
	off, t, err := v.ResolveFieldPath(path)
	if err != nil {
		return nil, err
	}
	opts := wire.DecodeOptions{AliasStrings: v.unsafeStrings}
	val, _, err := opts.DecodeType(v.schema, t, v.region.Bytes(), off)
	if err != nil {
		return nil, bounds(strings.Join(path, "."), err)
	}
	return val, nil
}

// SetField overwrites the value addressed by path in place. Fixed-size
// fields can always be written; variable-size fields only when the new
// encoding has exactly the length of the old one. The region is left
// untouched on every failure.
func (v *View) SetField(path []string, value wire.Value) error {
	off, t, err := v.ResolveFieldPath(path)
	if err != nil {
		return err
	}
	src := v.region.Bytes()
	v.scratch.Reset()
	if err := wire.EncodeType(v.schema, t, value, v.scratch); err != nil {
		return err
	}
	encoded := v.scratch.Bytes()

	oldLen := len(encoded)
	if size := v.skipper.Analyzer().Size(t); !size.IsFixed {
		end, err := v.skipper.Skip(t, src, off)
		if err != nil {
			return bounds(strings.Join(path, "."), err)
		}
		oldLen = int(end - off)
	}
	if oldLen != len(encoded) {
		v.log.Debug().Strs("path", path).Int("old", oldLen).Int("new", len(encoded)).Msg("set rejected: size mismatch")
		return fmt.Errorf("%w: %s is %d bytes, new value is %d", ErrSizeMismatch, strings.Join(path, "."), oldLen, len(encoded))
	}
	if int(off)+len(encoded) > len(src) {
		return fmt.Errorf("%w: write of %d bytes at %d", ErrOutOfBounds, len(encoded), off)
	}
	copy(src[off:], encoded)
	if v.cache != nil {
		v.mu.Lock()
		clear(v.cache)
		v.mu.Unlock()
	}
	return nil
}
