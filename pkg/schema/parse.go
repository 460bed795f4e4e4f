package schema

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrSyntax is wrapped by every ParseType failure.
var ErrSyntax = errors.New("schema syntax error")

var primitiveByName = map[string]Kind{
	"uint":   KindUInt,
	"int":    KindInt,
	"u8":     KindU8,
	"u16":    KindU16,
	"u32":    KindU32,
	"u64":    KindU64,
	"i8":     KindI8,
	"i16":    KindI16,
	"i32":    KindI32,
	"i64":    KindI64,
	"f32":    KindF32,
	"f64":    KindF64,
	"bool":   KindBool,
	"str":    KindString,
	"string": KindString,
	"void":   KindVoid,
}

// ParseType parses a type expression in the BARE schema language. Unknown
// identifiers become references to user-defined types. Union tags and enum
// values that are not given explicitly continue from the previous member.
func ParseType(expr string) (Type, error) {
	p := &parser{src: expr}
	p.next()
	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, p.errorf("unexpected %q after type", p.tok.text)
	}
	return t, nil
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokIdent
	tokNumber
	tokPunct
)

type token struct {
	kind tokKind
	text string
	pos  int
}

type parser struct {
	src string
	pos int
	tok token
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w at offset %d: %s", ErrSyntax, p.tok.pos, fmt.Sprintf(format, args...))
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func (p *parser) next() {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			break
		}
		p.pos++
	}
	start := p.pos
	if p.pos >= len(p.src) {
		p.tok = token{kind: tokEOF, pos: start}
		return
	}
	c := p.src[p.pos]
	switch {
	case isIdentStart(c):
		for p.pos < len(p.src) && (isIdentStart(p.src[p.pos]) || isDigit(p.src[p.pos])) {
			p.pos++
		}
		p.tok = token{kind: tokIdent, text: p.src[start:p.pos], pos: start}
	case isDigit(c):
		for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
			p.pos++
		}
		p.tok = token{kind: tokNumber, text: p.src[start:p.pos], pos: start}
	default:
		p.pos++
		p.tok = token{kind: tokPunct, text: p.src[start:p.pos], pos: start}
	}
}

func (p *parser) accept(punct string) bool {
	if p.tok.kind == tokPunct && p.tok.text == punct {
		p.next()
		return true
	}
	return false
}

func (p *parser) expect(punct string) error {
	if !p.accept(punct) {
		return p.errorf("expected %q, got %q", punct, p.tok.text)
	}
	return nil
}

func (p *parser) number() (uint64, error) {
	if p.tok.kind != tokNumber {
		return 0, p.errorf("expected number, got %q", p.tok.text)
	}
	n, err := strconv.ParseUint(p.tok.text, 10, 64)
	if err != nil {
		return 0, p.errorf("bad number %q", p.tok.text)
	}
	p.next()
	return n, nil
}

func (p *parser) length() (int, error) {
	n, err := p.number()
	if err != nil {
		return 0, err
	}
	if n > 1<<31 {
		return 0, p.errorf("length %d too large", n)
	}
	return int(n), nil
}

func (p *parser) ident() (string, error) {
	if p.tok.kind != tokIdent {
		return "", p.errorf("expected identifier, got %q", p.tok.text)
	}
	s := p.tok.text
	p.next()
	return s, nil
}

// angled parses "<T>".
func (p *parser) angled() (Type, error) {
	if err := p.expect("<"); err != nil {
		return nil, err
	}
	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	return t, p.expect(">")
}

func (p *parser) parseType() (Type, error) {
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	if k, ok := primitiveByName[name]; ok {
		return Primitive{Kind: k}, nil
	}
	switch name {
	case "data":
		switch {
		case p.accept("["):
			n, err := p.length()
			if err != nil {
				return nil, err
			}
			return FixedData{Len: n}, p.expect("]")
		case p.accept("<"):
			n, err := p.length()
			if err != nil {
				return nil, err
			}
			return FixedData{Len: n}, p.expect(">")
		}
		return Primitive{Kind: KindData}, nil
	case "optional":
		elem, err := p.angled()
		if err != nil {
			return nil, err
		}
		return Optional{Elem: elem}, nil
	case "list":
		elem, err := p.angled()
		if err != nil {
			return nil, err
		}
		if p.accept("[") {
			n, err := p.length()
			if err != nil {
				return nil, err
			}
			return FixedList{Elem: elem, Len: n}, p.expect("]")
		}
		return List{Elem: elem}, nil
	case "map":
		key, err := p.angled()
		if err != nil {
			return nil, err
		}
		value, err := p.angled()
		if err != nil {
			return nil, err
		}
		return Map{Key: key, Value: value}, nil
	case "union":
		return p.parseUnion()
	case "struct":
		return p.parseStruct()
	case "enum":
		return p.parseEnum()
	}
	return Ref{Name: name}, nil
}

func (p *parser) parseUnion() (Type, error) {
	if err := p.expect("{"); err != nil {
		return nil, err
	}
	var u Union
	var tag uint64
	p.accept("|")
	for {
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if p.accept("=") {
			if tag, err = p.number(); err != nil {
				return nil, err
			}
		}
		u.Cases = append(u.Cases, UnionCase{Tag: tag, Type: t})
		tag++
		if p.accept("}") {
			return u, nil
		}
		if err := p.expect("|"); err != nil {
			return nil, err
		}
	}
}

func (p *parser) parseStruct() (Type, error) {
	if err := p.expect("{"); err != nil {
		return nil, err
	}
	var s Struct
	for !p.accept("}") {
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		if err := p.expect(":"); err != nil {
			return nil, err
		}
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		s.Fields = append(s.Fields, Field{Name: name, Type: t})
		p.accept(",")
	}
	return s, nil
}

func (p *parser) parseEnum() (Type, error) {
	if err := p.expect("{"); err != nil {
		return nil, err
	}
	var e Enum
	var value uint64
	for !p.accept("}") {
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		if p.accept("=") {
			if value, err = p.number(); err != nil {
				return nil, err
			}
		}
		e.Values = append(e.Values, EnumValue{Name: name, Value: value})
		value++
		p.accept(",")
	}
	return e, nil
}
