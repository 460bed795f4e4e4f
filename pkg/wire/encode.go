package wire

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/speakez-llc/barewire/pkg/schema"
)

// Encode appends the encoding of v as the root type of s to b. On failure b
// is truncated back to its length before the call.
func Encode(s *schema.Schema, v Value, b *Buffer) error {
	return EncodeType(s, schema.Named(s.Root()), v, b)
}

// EncodeType appends the encoding of v as t to b. On failure b is truncated
// back to its length before the call.
func EncodeType(s *schema.Schema, t schema.Type, v Value, b *Buffer) error {
	start := b.Len()
	e := encoder{s: s, b: b}
	if err := e.encode(t, v); err != nil {
		b.Truncate(start)
		return err
	}
	return nil
}

// Marshal returns the encoding of v as the root type of s.
func Marshal(s *schema.Schema, v Value) ([]byte, error) {
	b := NewBuffer(64)
	if err := Encode(s, v, b); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

type encoder struct {
	s    *schema.Schema
	b    *Buffer
	path path
}

func (e *encoder) fail(err error) error {
	return &EncodeError{Path: e.path.String(), Err: err}
}

func (e *encoder) mismatch(t schema.Type, v Value) error {
	return e.fail(fmt.Errorf("%w: %T for %s", ErrShapeMismatch, v, schema.Format(t)))
}

func (e *encoder) encode(t schema.Type, v Value) error {
	switch t := t.(type) {
	case schema.Primitive:
		return e.primitive(t, v)
	case schema.FixedData:
		d, ok := v.(Data)
		if !ok {
			return e.mismatch(t, v)
		}
		if err := e.b.WriteFixedData(d, t.Len); err != nil {
			return e.fail(fmt.Errorf("%w: got %d bytes, want %d", err, len(d), t.Len))
		}
	case schema.Enum:
		ev, ok := v.(Enum)
		if !ok {
			return e.mismatch(t, v)
		}
		if _, ok := t.ByValue(uint64(ev)); !ok {
			return e.fail(fmt.Errorf("%w: %d", ErrInvalidEnum, uint64(ev)))
		}
		e.b.WriteUInt(uint64(ev))
	case schema.Optional:
		var inner Value
		switch ov := v.(type) {
		case Optional:
			inner = ov.Value
		case nil:
		default:
			return e.mismatch(t, v)
		}
		if inner == nil {
			e.b.WriteU8(0)
			return nil
		}
		e.b.WriteU8(1)
		e.path.some()
		defer e.path.pop()
		return e.encode(t.Elem, inner)
	case schema.List:
		items, ok := v.(List)
		if !ok {
			return e.mismatch(t, v)
		}
		e.b.WriteUInt(uint64(len(items)))
		return e.items(t.Elem, items)
	case schema.FixedList:
		items, ok := v.(List)
		if !ok {
			return e.mismatch(t, v)
		}
		if len(items) != t.Len {
			return e.fail(fmt.Errorf("%w: got %d elements, want %d", ErrFixedLength, len(items), t.Len))
		}
		return e.items(t.Elem, items)
	case schema.Map:
		m, ok := v.(Map)
		if !ok {
			return e.mismatch(t, v)
		}
		e.b.WriteUInt(uint64(len(m)))
		for i, entry := range m {
			e.path.key(i)
			if err := e.encode(t.Key, entry.Key); err != nil {
				return err
			}
			e.path.pop()
			e.path.value(i)
			if err := e.encode(t.Value, entry.Value); err != nil {
				return err
			}
			e.path.pop()
		}
	case schema.Union:
		u, ok := v.(Union)
		if !ok {
			return e.mismatch(t, v)
		}
		c, ok := t.CaseByTag(u.Tag)
		if !ok {
			return e.fail(fmt.Errorf("%w: %d", ErrUnknownTag, u.Tag))
		}
		e.b.WriteUInt(u.Tag)
		e.path.tag(u.Tag)
		defer e.path.pop()
		return e.encode(c.Type, u.Value)
	case schema.Struct:
		return e.structure(t, v)
	case schema.Ref:
		resolved, ok := e.s.Lookup(t.Name)
		if !ok {
			panic("wire: unresolved type " + t.Name + " in validated schema")
		}
		return e.encode(resolved, v)
	default:
		panic(fmt.Sprintf("wire: unknown schema type %T", t))
	}
	return nil
}

func (e *encoder) items(elem schema.Type, items List) error {
	for i, it := range items {
		e.path.index(i)
		if err := e.encode(elem, it); err != nil {
			return err
		}
		e.path.pop()
	}
	return nil
}

func (e *encoder) structure(t schema.Struct, v Value) error {
	sv, ok := v.(Struct)
	if !ok {
		return e.mismatch(t, v)
	}
	for _, f := range t.Fields {
		fv, ok := sv[f.Name]
		if !ok {
			e.path.field(f.Name)
			return e.fail(ErrMissingField)
		}
		e.path.field(f.Name)
		if err := e.encode(f.Type, fv); err != nil {
			return err
		}
		e.path.pop()
	}
	if len(sv) > len(t.Fields) {
		var unknown []string
		for name := range sv {
			if t.FieldIndex(name) < 0 {
				unknown = append(unknown, name)
			}
		}
		sort.Strings(unknown)
		e.path.field(unknown[0])
		return e.fail(ErrUnknownField)
	}
	return nil
}

func (e *encoder) primitive(t schema.Primitive, v Value) error {
	b := e.b
	switch t.Kind {
	case schema.KindUInt:
		if x, ok := v.(UInt); ok {
			b.WriteUInt(uint64(x))
			return nil
		}
	case schema.KindInt:
		if x, ok := v.(Int); ok {
			b.WriteInt(int64(x))
			return nil
		}
	case schema.KindU8:
		if x, ok := v.(U8); ok {
			b.WriteU8(uint8(x))
			return nil
		}
	case schema.KindU16:
		if x, ok := v.(U16); ok {
			b.WriteU16(uint16(x))
			return nil
		}
	case schema.KindU32:
		if x, ok := v.(U32); ok {
			b.WriteU32(uint32(x))
			return nil
		}
	case schema.KindU64:
		if x, ok := v.(U64); ok {
			b.WriteU64(uint64(x))
			return nil
		}
	case schema.KindI8:
		if x, ok := v.(I8); ok {
			b.WriteI8(int8(x))
			return nil
		}
	case schema.KindI16:
		if x, ok := v.(I16); ok {
			b.WriteI16(int16(x))
			return nil
		}
	case schema.KindI32:
		if x, ok := v.(I32); ok {
			b.WriteI32(int32(x))
			return nil
		}
	case schema.KindI64:
		if x, ok := v.(I64); ok {
			b.WriteI64(int64(x))
			return nil
		}
	case schema.KindF32:
		if x, ok := v.(F32); ok {
			b.WriteF32(float32(x))
			return nil
		}
	case schema.KindF64:
		if x, ok := v.(F64); ok {
			b.WriteF64(float64(x))
			return nil
		}
	case schema.KindBool:
		if x, ok := v.(Bool); ok {
			b.WriteBool(bool(x))
			return nil
		}
	case schema.KindString:
		if x, ok := v.(String); ok {
			if !utf8.ValidString(string(x)) {
				return e.fail(ErrInvalidUTF8)
			}
			b.WriteString(string(x))
			return nil
		}
	case schema.KindData:
		if x, ok := v.(Data); ok {
			b.WriteData(x)
			return nil
		}
	case schema.KindVoid:
		switch v.(type) {
		case Void, nil:
			return nil
		}
	}
	return e.mismatch(t, v)
}
