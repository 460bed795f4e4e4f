// Package schema holds the BARE type model: the closed set of primitive and
// aggregate types, the draft schema under construction, validation into an
// immutable Schema and the size/alignment analysis of validated types.
package schema

// ByteCount is a number of encoded bytes.
type ByteCount int

// Kind identifies the primitive types. Aggregates have their own Go types.
type Kind uint8

const (
	KindUInt Kind = iota + 1
	KindInt
	KindU8
	KindU16
	KindU32
	KindU64
	KindI8
	KindI16
	KindI32
	KindI64
	KindF32
	KindF64
	KindBool
	KindString
	KindData
	KindVoid
)

var kindNames = map[Kind]string{
	KindUInt:   "uint",
	KindInt:    "int",
	KindU8:     "u8",
	KindU16:    "u16",
	KindU32:    "u32",
	KindU64:    "u64",
	KindI8:     "i8",
	KindI16:    "i16",
	KindI32:    "i32",
	KindI64:    "i64",
	KindF32:    "f32",
	KindF64:    "f64",
	KindBool:   "bool",
	KindString: "str",
	KindData:   "data",
	KindVoid:   "void",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "invalid"
}

// FixedWidth returns the encoded width of fixed-width kinds, or -1.
func (k Kind) FixedWidth() int {
	switch k {
	case KindU8, KindI8, KindBool:
		return 1
	case KindU16, KindI16:
		return 2
	case KindU32, KindI32, KindF32:
		return 4
	case KindU64, KindI64, KindF64:
		return 8
	case KindVoid:
		return 0
	default:
		return -1
	}
}

// Type is one of Primitive, FixedData, Enum, Optional, List, FixedList, Map,
// Union, Struct or Ref. The set is closed.
type Type interface {
	isType()
}

// Primitive is a scalar type identified by its Kind.
type Primitive struct {
	Kind Kind
}

// FixedData is data[N]: exactly Len raw bytes.
type FixedData struct {
	Len int
}

// EnumValue is one named member of an enum.
type EnumValue struct {
	Name  string
	Value uint64
}

// Enum is encoded as a uint holding one of the declared values.
type Enum struct {
	Values []EnumValue
}

// Optional is optional<Elem>.
type Optional struct {
	Elem Type
}

// List is list<Elem> with a varint element count.
type List struct {
	Elem Type
}

// FixedList is list<Elem>[Len] with no count prefix.
type FixedList struct {
	Elem Type
	Len  int
}

// Map is map<Key><Value>.
type Map struct {
	Key   Type
	Value Type
}

// UnionCase binds a tag to the payload type written after it.
type UnionCase struct {
	Tag  uint64
	Type Type
}

// Union is a tagged choice between cases.
type Union struct {
	Cases []UnionCase
}

// Field is a named struct member.
type Field struct {
	Name string
	Type Type
}

// Struct fields are encoded in declaration order without tags or padding.
type Struct struct {
	Fields []Field
}

// Ref names a user-defined type in the owning schema.
type Ref struct {
	Name string
}

func (Primitive) isType() {}
func (FixedData) isType() {}
func (Enum) isType()      {}
func (Optional) isType()  {}
func (List) isType()      {}
func (FixedList) isType() {}
func (Map) isType()       {}
func (Union) isType()     {}
func (Struct) isType()    {}
func (Ref) isType()       {}

var (
	uintType   = Primitive{Kind: KindUInt}
	intType    = Primitive{Kind: KindInt}
	u8Type     = Primitive{Kind: KindU8}
	u16Type    = Primitive{Kind: KindU16}
	u32Type    = Primitive{Kind: KindU32}
	u64Type    = Primitive{Kind: KindU64}
	i8Type     = Primitive{Kind: KindI8}
	i16Type    = Primitive{Kind: KindI16}
	i32Type    = Primitive{Kind: KindI32}
	i64Type    = Primitive{Kind: KindI64}
	f32Type    = Primitive{Kind: KindF32}
	f64Type    = Primitive{Kind: KindF64}
	boolType   = Primitive{Kind: KindBool}
	stringType = Primitive{Kind: KindString}
	dataType   = Primitive{Kind: KindData}
	voidType   = Primitive{Kind: KindVoid}
)

func UInt() Type { return uintType }
func Int() Type  { return intType }
func U8() Type   { return u8Type }
func U16() Type  { return u16Type }
func U32() Type  { return u32Type }
func U64() Type  { return u64Type }
func I8() Type   { return i8Type }
func I16() Type  { return i16Type }
func I32() Type  { return i32Type }
func I64() Type  { return i64Type }
func F32() Type  { return f32Type }
func F64() Type  { return f64Type }
func Bool() Type { return boolType }
func Str() Type  { return stringType }
func Data() Type { return dataType }
func Void() Type { return voidType }

// FixedDataOf returns data[n].
func FixedDataOf(n int) Type { return FixedData{Len: n} }

// EnumOf returns an enum with the given members in declaration order.
func EnumOf(values ...EnumValue) Type {
	return Enum{Values: append([]EnumValue(nil), values...)}
}

// OptionalOf returns optional<t>.
func OptionalOf(t Type) Type { return Optional{Elem: t} }

// ListOf returns list<t>.
func ListOf(t Type) Type { return List{Elem: t} }

// FixedListOf returns list<t>[n].
func FixedListOf(t Type, n int) Type { return FixedList{Elem: t, Len: n} }

// MapOf returns map<k><v>.
func MapOf(k, v Type) Type { return Map{Key: k, Value: v} }

// UnionOf returns a union with the given cases in declaration order.
func UnionOf(cases ...UnionCase) Type {
	return Union{Cases: append([]UnionCase(nil), cases...)}
}

// StructOf returns a struct with the given fields in declaration order.
func StructOf(fields ...Field) Type {
	return Struct{Fields: append([]Field(nil), fields...)}
}

// Named returns a reference to the user-defined type name.
func Named(name string) Type { return Ref{Name: name} }

// Case is shorthand for a UnionCase.
func Case(tag uint64, t Type) UnionCase { return UnionCase{Tag: tag, Type: t} }

// F is shorthand for a struct Field.
func F(name string, t Type) Field { return Field{Name: name, Type: t} }

// V is shorthand for an EnumValue.
func V(name string, value uint64) EnumValue { return EnumValue{Name: name, Value: value} }

// CaseByTag returns the case declared for tag.
func (u Union) CaseByTag(tag uint64) (UnionCase, bool) {
	for _, c := range u.Cases {
		if c.Tag == tag {
			return c, true
		}
	}
	return UnionCase{}, false
}

// FieldIndex returns the position of the named field, or -1.
func (s Struct) FieldIndex(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// ByValue returns the member declared with value v.
func (e Enum) ByValue(v uint64) (EnumValue, bool) {
	for _, m := range e.Values {
		if m.Value == v {
			return m, true
		}
	}
	return EnumValue{}, false
}

// ByName returns the member declared with name.
func (e Enum) ByName(name string) (EnumValue, bool) {
	for _, m := range e.Values {
		if m.Name == name {
			return m, true
		}
	}
	return EnumValue{}, false
}
