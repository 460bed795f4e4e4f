package schema

import (
	"math"
	"sync"
)

// Varint bounds shared by uint, int, enum, lengths, counts and union tags.
const (
	minVarint ByteCount = 1
	maxVarint ByteCount = 10
)

// Size bounds the encoded length of a type. Max is only meaningful when
// Bounded is set. IsFixed means every value encodes to exactly Min bytes.
type Size struct {
	Min     ByteCount
	Max     ByteCount
	Bounded bool
	IsFixed bool
}

func fixedSize(n ByteCount) Size { return Size{Min: n, Max: n, Bounded: true, IsFixed: true} }

func boundedSize(min, max ByteCount) Size { return Size{Min: min, Max: max, Bounded: true} }

func unboundedSize(min ByteCount) Size { return Size{Min: min} }

// Analyzer derives sizes and alignments for types of one schema. Results for
// named types are memoized; an Analyzer is safe for concurrent use.
type Analyzer struct {
	schema *Schema

	mu     sync.RWMutex
	sizes  map[string]Size
	aligns map[string]int
}

// NewAnalyzer returns an Analyzer for s.
func NewAnalyzer(s *Schema) *Analyzer {
	return &Analyzer{
		schema: s,
		sizes:  make(map[string]Size),
		aligns: make(map[string]int),
	}
}

// SizeOf returns the encoded size bounds of t in s.
func SizeOf(s *Schema, t Type) Size { return NewAnalyzer(s).Size(t) }

// AlignmentOf returns the advisory native alignment of t in s.
func AlignmentOf(s *Schema, t Type) int { return NewAnalyzer(s).Alignment(t) }

// Size returns the encoded size bounds of t.
func (a *Analyzer) Size(t Type) Size {
	w := &sizeWalk{a: a, active: map[string]bool{}}
	return w.size(t)
}

// Alignment returns the advisory alignment of t: the largest member
// alignment, at least 1. The wire format itself is never padded.
func (a *Analyzer) Alignment(t Type) int {
	w := &alignWalk{a: a, active: map[string]bool{}}
	return w.align(t)
}

type sizeWalk struct {
	a      *Analyzer
	active map[string]bool
	// partial is set when a result depended on a type whose own size was
	// still being derived; such results are not memoized.
	partial bool
}

func (w *sizeWalk) size(t Type) Size {
	switch t := t.(type) {
	case Primitive:
		switch t.Kind {
		case KindUInt, KindInt:
			return boundedSize(minVarint, maxVarint)
		case KindString, KindData:
			return unboundedSize(minVarint)
		default:
			return fixedSize(ByteCount(t.Kind.FixedWidth()))
		}
	case FixedData:
		return fixedSize(ByteCount(t.Len))
	case Enum:
		return boundedSize(minVarint, maxVarint)
	case Optional:
		inner := w.size(t.Elem)
		if !inner.Bounded {
			return unboundedSize(1)
		}
		return boundedSize(1, satAdd(1, inner.Max))
	case List, Map:
		return unboundedSize(minVarint)
	case FixedList:
		inner := w.size(t.Elem)
		n := ByteCount(t.Len)
		min := satMul(n, inner.Min)
		if inner.IsFixed {
			return fixedSize(min)
		}
		return unboundedSize(min)
	case Union:
		return w.union(t)
	case Struct:
		s := fixedSize(0)
		for _, f := range t.Fields {
			fs := w.size(f.Type)
			s.Min = satAdd(s.Min, fs.Min)
			s.Bounded = s.Bounded && fs.Bounded
			if s.Bounded {
				s.Max = satAdd(s.Max, fs.Max)
			}
			s.IsFixed = s.IsFixed && fs.IsFixed
		}
		if !s.Bounded {
			s.Max = 0
		}
		return s
	case Ref:
		return w.named(t.Name)
	}
	return Size{}
}

func (w *sizeWalk) union(u Union) Size {
	if len(u.Cases) == 0 {
		return unboundedSize(minVarint)
	}
	var min, max ByteCount = math.MaxInt, 0
	bounded := true
	for _, c := range u.Cases {
		cs := w.size(c.Type)
		if cs.Min < min {
			min = cs.Min
		}
		if !cs.Bounded {
			bounded = false
		} else if cs.Max > max {
			max = cs.Max
		}
	}
	if !bounded {
		return unboundedSize(satAdd(minVarint, min))
	}
	return boundedSize(satAdd(minVarint, min), satAdd(maxVarint, max))
}

func (w *sizeWalk) named(name string) Size {
	w.a.mu.RLock()
	s, ok := w.a.sizes[name]
	w.a.mu.RUnlock()
	if ok {
		return s
	}
	if w.active[name] {
		// A minimal value never nests a type inside itself, so the
		// recursive branch can be treated as unreachable for Min.
		w.partial = true
		return unboundedSize(math.MaxInt)
	}
	w.active[name] = true
	outer := w.partial
	w.partial = false
	s = w.size(w.a.schema.types[name])
	delete(w.active, name)
	if !w.partial {
		w.a.mu.Lock()
		w.a.sizes[name] = s
		w.a.mu.Unlock()
	}
	w.partial = w.partial || outer
	return s
}

type alignWalk struct {
	a       *Analyzer
	active  map[string]bool
	partial bool
}

// word is the alignment used for varints, lengths and pointers.
const word = 8

func (w *alignWalk) align(t Type) int {
	switch t := t.(type) {
	case Primitive:
		switch t.Kind {
		case KindUInt, KindInt, KindString, KindData:
			return word
		case KindVoid:
			return 1
		default:
			return t.Kind.FixedWidth()
		}
	case FixedData:
		return 1
	case Enum, List, Map:
		return word
	case Optional:
		return w.align(t.Elem)
	case FixedList:
		return w.align(t.Elem)
	case Union:
		a := 1
		for _, c := range t.Cases {
			a = max(a, w.align(c.Type))
		}
		return a
	case Struct:
		a := 1
		for _, f := range t.Fields {
			a = max(a, w.align(f.Type))
		}
		return a
	case Ref:
		return w.named(t.Name)
	}
	return 1
}

func (w *alignWalk) named(name string) int {
	w.a.mu.RLock()
	n, ok := w.a.aligns[name]
	w.a.mu.RUnlock()
	if ok {
		return n
	}
	if w.active[name] {
		w.partial = true
		return 1
	}
	w.active[name] = true
	outer := w.partial
	w.partial = false
	n = w.align(w.a.schema.types[name])
	delete(w.active, name)
	if !w.partial {
		w.a.mu.Lock()
		w.a.aligns[name] = n
		w.a.mu.Unlock()
	}
	w.partial = w.partial || outer
	return n
}

func satAdd(a, b ByteCount) ByteCount {
	if a > math.MaxInt-b {
		return math.MaxInt
	}
	return a + b
}

func satMul(a, b ByteCount) ByteCount {
	if a != 0 && b > math.MaxInt/a {
		return math.MaxInt
	}
	return a * b
}
