package wire

import (
	"fmt"

	"github.com/speakez-llc/barewire/pkg/schema"
)

// Skip returns the offset just past the value of type t encoded at off
// without materialising it. Fixed-size types are stepped over using the
// analyzer, so their contents (bool bytes included) are not checked; every
// other type is scanned with the same bounds, tag and UTF-8 checks as
// DecodeType.
func Skip(s *schema.Schema, t schema.Type, src []byte, off Offset) (Offset, error) {
	return NewSkipper(s).Skip(t, src, off)
}

// Skipper caches fixed sizes across calls. It is safe for concurrent use.
type Skipper struct {
	s        *schema.Schema
	analyzer *schema.Analyzer
	maxDepth int
}

func NewSkipper(s *schema.Schema) *Skipper {
	return &Skipper{s: s, analyzer: schema.NewAnalyzer(s), maxDepth: DefaultMaxDepth}
}

// Analyzer returns the size analyzer backing k.
func (k *Skipper) Analyzer() *schema.Analyzer { return k.analyzer }

func (k *Skipper) Skip(t schema.Type, src []byte, off Offset) (Offset, error) {
	if off < 0 || int(off) > len(src) {
		return off, decodeErr(off, ErrOutOfBounds)
	}
	w := skipWalk{k: k, src: src}
	return w.skip(t, off)
}

type skipWalk struct {
	k     *Skipper
	src   []byte
	depth int
	path  path
}

func (w *skipWalk) skip(t schema.Type, off Offset) (Offset, error) {
	if size := w.k.analyzer.Size(t); size.IsFixed {
		if err := need(w.src, off, int(size.Min)); err != nil {
			return off, withPath(err, &w.path)
		}
		return off + Offset(size.Min), nil
	}
	switch t := t.(type) {
	case schema.Primitive:
		return w.primitive(t.Kind, off)
	case schema.FixedData:
		_, next, err := ReadFixedDataRef(w.src, off, t.Len)
		return next, withPath(err, &w.path)
	case schema.Enum:
		n, next, err := ReadUInt(w.src, off)
		if err != nil {
			return off, withPath(err, &w.path)
		}
		if _, ok := t.ByValue(n); !ok {
			return off, &DecodeError{Path: w.path.String(), Offset: off, Err: fmt.Errorf("%w: %d", ErrInvalidEnum, n)}
		}
		return next, nil
	case schema.Ref:
		resolved, ok := w.k.s.Lookup(t.Name)
		if !ok {
			panic("wire: unresolved type " + t.Name + " in validated schema")
		}
		return w.skip(resolved, off)
	}

	w.depth++
	defer func() { w.depth-- }()
	if w.depth > w.k.maxDepth {
		return off, &DecodeError{Path: w.path.String(), Offset: off, Err: ErrDepthExceeded}
	}

	switch t := t.(type) {
	case schema.Optional:
		present, next, err := ReadBool(w.src, off)
		if err != nil || !present {
			return next, withPath(err, &w.path)
		}
		w.path.some()
		next, err = w.skip(t.Elem, next)
		if err != nil {
			return off, err
		}
		w.path.pop()
		return next, nil
	case schema.List:
		n, next, err := ReadCount(w.src, off)
		if err != nil {
			return off, withPath(err, &w.path)
		}
		return w.items(t.Elem, n, next)
	case schema.FixedList:
		return w.items(t.Elem, t.Len, off)
	case schema.Map:
		n, next, err := ReadCount(w.src, off)
		if err != nil {
			return off, withPath(err, &w.path)
		}
		for i := 0; i < n; i++ {
			w.path.key(i)
			if next, err = w.skip(t.Key, next); err != nil {
				return off, err
			}
			w.path.pop()
			w.path.value(i)
			if next, err = w.skip(t.Value, next); err != nil {
				return off, err
			}
			w.path.pop()
		}
		return next, nil
	case schema.Union:
		tag, next, err := ReadUInt(w.src, off)
		if err != nil {
			return off, withPath(err, &w.path)
		}
		c, ok := t.CaseByTag(tag)
		if !ok {
			return off, &DecodeError{Path: w.path.String(), Offset: off, Err: fmt.Errorf("%w: %d", ErrUnknownTag, tag)}
		}
		w.path.tag(tag)
		next, err = w.skip(c.Type, next)
		if err != nil {
			return off, err
		}
		w.path.pop()
		return next, nil
	case schema.Struct:
		next := off
		for _, f := range t.Fields {
			w.path.field(f.Name)
			after, err := w.skip(f.Type, next)
			if err != nil {
				return off, err
			}
			w.path.pop()
			next = after
		}
		return next, nil
	}
	panic(fmt.Sprintf("wire: unknown schema type %T", t))
}

func (w *skipWalk) items(elem schema.Type, n int, off Offset) (Offset, error) {
	next := off
	for i := 0; i < n; i++ {
		w.path.index(i)
		after, err := w.skip(elem, next)
		if err != nil {
			return off, err
		}
		w.path.pop()
		next = after
	}
	return next, nil
}

func (w *skipWalk) primitive(k schema.Kind, off Offset) (Offset, error) {
	var next Offset
	var err error
	switch k {
	case schema.KindUInt, schema.KindInt:
		_, next, err = ReadUInt(w.src, off)
	case schema.KindString:
		var ref []byte
		if ref, next, err = ReadDataRef(w.src, off); err == nil {
			err = validUTF8(ref, off)
		}
	case schema.KindData:
		_, next, err = ReadDataRef(w.src, off)
	default:
		// fixed widths never get here
		panic(fmt.Sprintf("wire: unexpected primitive kind %s", k))
	}
	if err != nil {
		return off, withPath(err, &w.path)
	}
	return next, nil
}
