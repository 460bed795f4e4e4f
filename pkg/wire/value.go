// Package wire implements the BARE byte rules: primitive writers and readers,
// generic combinators for the aggregate shapes, and a schema-driven encoder
// and decoder over dynamic Values.
package wire

// Value is a dynamically typed BARE value. Each shape has exactly one Go
// type; the encoder checks a Value against its schema type before writing.
type Value interface {
	isValue()
}

type (
	UInt   uint64
	Int    int64
	U8     uint8
	U16    uint16
	U32    uint32
	U64    uint64
	I8     int8
	I16    int16
	I32    int32
	I64    int64
	F32    float32
	F64    float64
	Bool   bool
	String string
	// Data holds the bytes of both data and data[N].
	Data []byte
	Void struct{}
	// Enum is the numeric value of an enum member.
	Enum uint64
)

// Optional is absent when Value is nil.
type Optional struct {
	Value Value
}

// List holds the elements of both list<T> and list<T>[N].
type List []Value

// MapEntry is one key/value pair of a Map.
type MapEntry struct {
	Key   Value
	Value Value
}

// Map keeps entries in the order they are written.
type Map []MapEntry

// Union is a tagged value; Value is Void{} for void cases.
type Union struct {
	Tag   uint64
	Value Value
}

// Struct maps field names to values.
type Struct map[string]Value

func (UInt) isValue()     {}
func (Int) isValue()      {}
func (U8) isValue()       {}
func (U16) isValue()      {}
func (U32) isValue()      {}
func (U64) isValue()      {}
func (I8) isValue()       {}
func (I16) isValue()      {}
func (I32) isValue()      {}
func (I64) isValue()      {}
func (F32) isValue()      {}
func (F64) isValue()      {}
func (Bool) isValue()     {}
func (String) isValue()   {}
func (Data) isValue()     {}
func (Void) isValue()     {}
func (Enum) isValue()     {}
func (Optional) isValue() {}
func (List) isValue()     {}
func (Map) isValue()      {}
func (Union) isValue()    {}
func (Struct) isValue()   {}

// Some wraps v as a present optional.
func Some(v Value) Optional { return Optional{Value: v} }

// None is the absent optional.
var None = Optional{}
