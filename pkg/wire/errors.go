package wire

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrShapeMismatch   = errors.New("value does not match schema type")
	ErrFixedLength     = errors.New("fixed length mismatch")
	ErrUnknownTag      = errors.New("unknown union tag")
	ErrMissingField    = errors.New("missing struct field")
	ErrUnknownField    = errors.New("unknown struct field")
	ErrInvalidUTF8     = errors.New("string is not valid UTF-8")
	ErrInvalidEnum     = errors.New("undeclared enum value")
	ErrTruncated       = errors.New("input truncated")
	ErrInvalidBool     = errors.New("invalid bool byte")
	ErrMalformedVarint = errors.New("malformed varint")
	ErrOutOfBounds     = errors.New("offset out of bounds")
	ErrDepthExceeded   = errors.New("nesting depth exceeded")
	ErrTrailingBytes   = errors.New("trailing bytes after value")
)

// EncodeError reports where in a value encoding failed.
type EncodeError struct {
	Path string
	Err  error
}

func (e *EncodeError) Error() string {
	if e.Path == "" {
		return "encode: " + e.Err.Error()
	}
	return fmt.Sprintf("encode %s: %v", e.Path, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// DecodeError reports the path and byte offset where decoding failed.
type DecodeError struct {
	Path   string
	Offset Offset
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("decode at offset %d: %v", e.Offset, e.Err)
	}
	return fmt.Sprintf("decode %s at offset %d: %v", e.Path, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func decodeErr(off Offset, err error) error {
	return &DecodeError{Offset: off, Err: err}
}

// withPath fills in the path of a DecodeError raised by a primitive reader.
func withPath(err error, p *path) error {
	var de *DecodeError
	if errors.As(err, &de) && de.Path == "" {
		de.Path = p.String()
	}
	return err
}

type segKind uint8

const (
	segField segKind = iota
	segIndex
	segKey
	segValue
	segTag
	segSome
)

type segment struct {
	kind segKind
	name string
	n    uint64
}

// path records the position inside a value; it is rendered only on error.
type path struct {
	segs []segment
}

func (p *path) field(name string) { p.segs = append(p.segs, segment{kind: segField, name: name}) }
func (p *path) index(i int)       { p.segs = append(p.segs, segment{kind: segIndex, n: uint64(i)}) }
func (p *path) key(i int)         { p.segs = append(p.segs, segment{kind: segKey, n: uint64(i)}) }
func (p *path) value(i int)       { p.segs = append(p.segs, segment{kind: segValue, n: uint64(i)}) }
func (p *path) tag(t uint64)      { p.segs = append(p.segs, segment{kind: segTag, n: t}) }
func (p *path) some()             { p.segs = append(p.segs, segment{kind: segSome}) }
func (p *path) pop()              { p.segs = p.segs[:len(p.segs)-1] }

func (p *path) String() string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	for _, s := range p.segs {
		switch s.kind {
		case segField:
			if b.Len() > 0 {
				b.WriteByte('.')
			}
			b.WriteString(s.name)
		case segIndex:
			b.WriteString("[" + strconv.FormatUint(s.n, 10) + "]")
		case segKey:
			b.WriteString("{" + strconv.FormatUint(s.n, 10) + "}.key")
		case segValue:
			b.WriteString("{" + strconv.FormatUint(s.n, 10) + "}.value")
		case segTag:
			b.WriteString("|" + strconv.FormatUint(s.n, 10))
		case segSome:
			b.WriteByte('?')
		}
	}
	return b.String()
}
