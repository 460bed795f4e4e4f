package wire

import (
	"fmt"
	"unsafe"

	"github.com/speakez-llc/barewire/pkg/schema"
)

// DefaultMaxDepth bounds nesting when DecodeOptions.MaxDepth is zero.
const DefaultMaxDepth = 64

// DecodeOptions tunes the decoder. The zero value copies every byte and uses
// DefaultMaxDepth.
type DecodeOptions struct {
	// AliasData makes Data values share memory with the source.
	AliasData bool
	// AliasStrings makes String values share memory with the source. The
	// source must outlive the strings and must not be modified.
	AliasStrings bool
	// MaxDepth bounds aggregate nesting for recursive schemas.
	MaxDepth int
}

// Decode reads one value of the root type of s from the start of src and
// returns it together with the offset just past it.
func Decode(s *schema.Schema, src []byte) (Value, Offset, error) {
	return DecodeOptions{}.DecodeType(s, schema.Named(s.Root()), src, 0)
}

// DecodeType reads one value of type t at off.
func DecodeType(s *schema.Schema, t schema.Type, src []byte, off Offset) (Value, Offset, error) {
	return DecodeOptions{}.DecodeType(s, t, src, off)
}

// Unmarshal decodes the root type of s and requires src to hold nothing
// else.
func Unmarshal(s *schema.Schema, src []byte) (Value, error) {
	return DecodeOptions{}.Unmarshal(s, src)
}

func (o DecodeOptions) DecodeType(s *schema.Schema, t schema.Type, src []byte, off Offset) (Value, Offset, error) {
	if off < 0 || int(off) > len(src) {
		return nil, off, decodeErr(off, ErrOutOfBounds)
	}
	d := decoder{s: s, src: src, opts: o}
	if d.opts.MaxDepth <= 0 {
		d.opts.MaxDepth = DefaultMaxDepth
	}
	v, next, err := d.decode(t, off)
	if err != nil {
		return nil, off, err
	}
	return v, next, nil
}

func (o DecodeOptions) Unmarshal(s *schema.Schema, src []byte) (Value, error) {
	v, next, err := o.DecodeType(s, schema.Named(s.Root()), src, 0)
	if err != nil {
		return nil, err
	}
	if int(next) != len(src) {
		return nil, decodeErr(next, ErrTrailingBytes)
	}
	return v, nil
}

type decoder struct {
	s     *schema.Schema
	src   []byte
	opts  DecodeOptions
	depth int
	path  path
}

func (d *decoder) fail(off Offset, err error) error {
	return &DecodeError{Path: d.path.String(), Offset: off, Err: err}
}

func (d *decoder) enter(off Offset) error {
	d.depth++
	if d.depth > d.opts.MaxDepth {
		return d.fail(off, ErrDepthExceeded)
	}
	return nil
}

func (d *decoder) decode(t schema.Type, off Offset) (Value, Offset, error) {
	switch t := t.(type) {
	case schema.Primitive:
		v, next, err := d.primitive(t.Kind, off)
		return v, next, withPath(err, &d.path)
	case schema.FixedData:
		ref, next, err := ReadFixedDataRef(d.src, off, t.Len)
		if err != nil {
			return nil, off, withPath(err, &d.path)
		}
		return d.data(ref), next, nil
	case schema.Enum:
		n, next, err := ReadUInt(d.src, off)
		if err != nil {
			return nil, off, withPath(err, &d.path)
		}
		if _, ok := t.ByValue(n); !ok {
			return nil, off, d.fail(off, fmt.Errorf("%w: %d", ErrInvalidEnum, n))
		}
		return Enum(n), next, nil
	case schema.Ref:
		resolved, ok := d.s.Lookup(t.Name)
		if !ok {
			panic("wire: unresolved type " + t.Name + " in validated schema")
		}
		return d.decode(resolved, off)
	}

	if err := d.enter(off); err != nil {
		return nil, off, err
	}
	defer func() { d.depth-- }()

	switch t := t.(type) {
	case schema.Optional:
		present, next, err := ReadBool(d.src, off)
		if err != nil {
			return nil, off, withPath(err, &d.path)
		}
		if !present {
			return Optional{}, next, nil
		}
		d.path.some()
		v, next, err := d.decode(t.Elem, next)
		if err != nil {
			return nil, off, err
		}
		d.path.pop()
		return Optional{Value: v}, next, nil
	case schema.List:
		n, next, err := ReadCount(d.src, off)
		if err != nil {
			return nil, off, withPath(err, &d.path)
		}
		return d.items(t.Elem, n, next)
	case schema.FixedList:
		return d.items(t.Elem, t.Len, off)
	case schema.Map:
		n, next, err := ReadCount(d.src, off)
		if err != nil {
			return nil, off, withPath(err, &d.path)
		}
		m := make(Map, 0, n)
		for i := 0; i < n; i++ {
			d.path.key(i)
			k, after, err := d.decode(t.Key, next)
			if err != nil {
				return nil, off, err
			}
			d.path.pop()
			d.path.value(i)
			v, after, err := d.decode(t.Value, after)
			if err != nil {
				return nil, off, err
			}
			d.path.pop()
			m = append(m, MapEntry{Key: k, Value: v})
			next = after
		}
		return m, next, nil
	case schema.Union:
		tag, next, err := ReadUInt(d.src, off)
		if err != nil {
			return nil, off, withPath(err, &d.path)
		}
		c, ok := t.CaseByTag(tag)
		if !ok {
			return nil, off, d.fail(off, fmt.Errorf("%w: %d", ErrUnknownTag, tag))
		}
		d.path.tag(tag)
		v, next, err := d.decode(c.Type, next)
		if err != nil {
			return nil, off, err
		}
		d.path.pop()
		return Union{Tag: tag, Value: v}, next, nil
	case schema.Struct:
		sv := make(Struct, len(t.Fields))
		next := off
		for _, f := range t.Fields {
			d.path.field(f.Name)
			v, after, err := d.decode(f.Type, next)
			if err != nil {
				return nil, off, err
			}
			d.path.pop()
			sv[f.Name] = v
			next = after
		}
		return sv, next, nil
	}
	panic(fmt.Sprintf("wire: unknown schema type %T", t))
}

func (d *decoder) items(elem schema.Type, n int, off Offset) (Value, Offset, error) {
	list := make(List, 0, n)
	next := off
	for i := 0; i < n; i++ {
		d.path.index(i)
		v, after, err := d.decode(elem, next)
		if err != nil {
			return nil, off, err
		}
		d.path.pop()
		list = append(list, v)
		next = after
	}
	return list, next, nil
}

func (d *decoder) data(ref []byte) Data {
	if d.opts.AliasData {
		return Data(ref)
	}
	out := make([]byte, len(ref))
	copy(out, ref)
	return out
}

func (d *decoder) primitive(k schema.Kind, off Offset) (Value, Offset, error) {
	src := d.src
	switch k {
	case schema.KindUInt:
		v, next, err := ReadUInt(src, off)
		return UInt(v), next, err
	case schema.KindInt:
		v, next, err := ReadInt(src, off)
		return Int(v), next, err
	case schema.KindU8:
		v, next, err := ReadU8(src, off)
		return U8(v), next, err
	case schema.KindU16:
		v, next, err := ReadU16(src, off)
		return U16(v), next, err
	case schema.KindU32:
		v, next, err := ReadU32(src, off)
		return U32(v), next, err
	case schema.KindU64:
		v, next, err := ReadU64(src, off)
		return U64(v), next, err
	case schema.KindI8:
		v, next, err := ReadI8(src, off)
		return I8(v), next, err
	case schema.KindI16:
		v, next, err := ReadI16(src, off)
		return I16(v), next, err
	case schema.KindI32:
		v, next, err := ReadI32(src, off)
		return I32(v), next, err
	case schema.KindI64:
		v, next, err := ReadI64(src, off)
		return I64(v), next, err
	case schema.KindF32:
		v, next, err := ReadF32(src, off)
		return F32(v), next, err
	case schema.KindF64:
		v, next, err := ReadF64(src, off)
		return F64(v), next, err
	case schema.KindBool:
		v, next, err := ReadBool(src, off)
		return Bool(v), next, err
	case schema.KindString:
		if d.opts.AliasStrings {
			v, next, err := readStringRef(src, off)
			return String(v), next, err
		}
		v, next, err := ReadString(src, off)
		return String(v), next, err
	case schema.KindData:
		ref, next, err := ReadDataRef(src, off)
		if err != nil {
			return nil, off, err
		}
		return d.data(ref), next, nil
	case schema.KindVoid:
		return Void{}, off, nil
	}
	panic(fmt.Sprintf("wire: unknown primitive kind %d", k))
}

// readStringRef is ReadString without the copy.
func readStringRef(src []byte, off Offset) (string, Offset, error) {
	ref, next, err := ReadDataRef(src, off)
	if err != nil {
		return "", off, err
	}
	if err := validUTF8(ref, off); err != nil {
		return "", off, err
	}
	if len(ref) == 0 {
		return "", next, nil
	}
	return unsafe.String(&ref[0], len(ref)), next, nil
}
