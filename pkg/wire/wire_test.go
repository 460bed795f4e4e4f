package wire

import (
	"bytes"
	"errors"
	"math"
	"testing"
	"testing/quick"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/speakez-llc/barewire/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func personSchema(t testing.TB) *schema.Schema {
	t.Helper()
	s, err := schema.Validate(schema.Create("Person").
		AddEnum("Department", schema.V("ACCOUNTING", 0), schema.V("ADMIN", 1), schema.V("JSMITH", 99)).
		AddStruct("Address",
			schema.F("lines", schema.FixedListOf(schema.Str(), 2)),
			schema.F("country", schema.Str()),
		).
		AddStruct("Person",
			schema.F("id", schema.UInt()),
			schema.F("name", schema.Str()),
			schema.F("email", schema.OptionalOf(schema.Str())),
			schema.F("address", schema.Named("Address")),
			schema.F("department", schema.Named("Department")),
			schema.F("tags", schema.MapOf(schema.Str(), schema.Data())),
			schema.F("key", schema.FixedDataOf(4)),
			schema.F("balance", schema.Int()),
			schema.F("scores", schema.ListOf(schema.F32())),
			schema.F("active", schema.Bool()),
			schema.F("contact", schema.UnionOf(schema.Case(0, schema.Void()), schema.Case(1, schema.U16()))),
		))
	require.NoError(t, err)
	return s
}

func person() Struct {
	return Struct{
		"id":    UInt(300),
		"name":  String("Ann"),
		"email": Some(String("a@x")),
		"address": Struct{
			"lines":   List{String("1 Main"), String("")},
			"country": String("NL"),
		},
		"department": Enum(99),
		"tags":       Map{{Key: String("k"), Value: Data{1, 2}}},
		"key":        Data{1, 2, 3, 4},
		"balance":    Int(-5),
		"scores":     List{F32(1.5)},
		"active":     Bool(true),
		"contact":    Union{Tag: 1, Value: U16(7)},
	}
}

var personBytes = []byte{
	0xAC, 0x02,                         // id
	3, 'A', 'n', 'n',                   // name
	1, 3, 'a', '@', 'x',                // email
	6, '1', ' ', 'M', 'a', 'i', 'n', 0, // address.lines
	2, 'N', 'L',                        // address.country
	99,                                 // department
	1, 1, 'k', 2, 1, 2,                 // tags
	1, 2, 3, 4,                         // key
	9,                                  // balance
	1, 0x00, 0x00, 0xC0, 0x3F,          // scores
	1,                                  // active
	1, 7, 0,                            // contact
}

func TestVarintBoundaries(t *testing.T) {
	tests := []struct {
		write func(*Buffer)
		want  []byte
	}{
		{func(b *Buffer) { b.WriteUInt(127) }, []byte{0x7F}},
		{func(b *Buffer) { b.WriteUInt(128) }, []byte{0x80, 0x01}},
		{func(b *Buffer) { b.WriteInt(-1) }, []byte{0x01}},
		{func(b *Buffer) { b.WriteInt(0) }, []byte{0x00}},
		{func(b *Buffer) { b.WriteInt(1) }, []byte{0x02}},
	}
	for _, tc := range tests {
		b := NewBuffer(0)
		tc.write(b)
		assert.Equal(t, tc.want, b.Bytes())
	}
	b := NewBuffer(0)
	b.WriteUInt(math.MaxUint64)
	require.Len(t, b.Bytes(), 10)
	v, next, err := ReadUInt(b.Bytes(), 0)
	require.NoError(t, err)
	require.Equal(t, uint64(math.MaxUint64), v)
	require.Equal(t, Offset(10), next)
}

func TestEncodePerson(t *testing.T) {
	s := personSchema(t)
	out, err := Marshal(s, person())
	require.NoError(t, err)
	require.Equal(t, personBytes, out)

	got, next, err := Decode(s, out)
	require.NoError(t, err)
	require.Equal(t, Offset(len(out)), next)
	if diff := cmp.Diff(Value(person()), got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeErrors(t *testing.T) {
	s := personSchema(t)
	tests := []struct {
		name   string
		mutate func(Struct)
		err    error
		path   string
	}{
		{"missing field", func(p Struct) { delete(p, "name") }, ErrMissingField, "name"},
		{"unknown field", func(p Struct) { p["nickname"] = String("A") }, ErrUnknownField, "nickname"},
		{"short fixed data", func(p Struct) { p["key"] = Data{1, 2, 3} }, ErrFixedLength, "key"},
		{"fixed list count", func(p Struct) {
			p["address"] = Struct{"lines": List{String("x")}, "country": String("NL")}
		}, ErrFixedLength, "address.lines"},
		{"unknown tag", func(p Struct) { p["contact"] = Union{Tag: 5, Value: Void{}} }, ErrUnknownTag, "contact"},
		{"undeclared enum", func(p Struct) { p["department"] = Enum(5) }, ErrInvalidEnum, "department"},
		{"wrong shape", func(p Struct) { p["id"] = String("300") }, ErrShapeMismatch, "id"},
		{"invalid utf8", func(p Struct) { p["name"] = String("\xff") }, ErrInvalidUTF8, "name"},
		{"nested element", func(p Struct) {
			p["address"] = Struct{"lines": List{String("x"), Int(3)}, "country": String("NL")}
		}, ErrShapeMismatch, "address.lines[1]"},
		{"map value", func(p Struct) { p["tags"] = Map{{Key: String("k"), Value: String("v")}} }, ErrShapeMismatch, "tags{0}.value"},
		{"optional payload", func(p Struct) { p["email"] = Some(Data{1}) }, ErrShapeMismatch, "email?"},
		{"union payload", func(p Struct) { p["contact"] = Union{Tag: 1, Value: U32(1)} }, ErrShapeMismatch, "contact|1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := person()
			tc.mutate(p)
			b := NewBuffer(16)
			b.WriteU8(0xEE)
			err := Encode(s, p, b)
			require.ErrorIs(t, err, tc.err)
			var ee *EncodeError
			require.ErrorAs(t, err, &ee)
			assert.Equal(t, tc.path, ee.Path)
			assert.Equal(t, []byte{0xEE}, b.Bytes(), "buffer must be rolled back")
		})
	}
}

func TestEncodeVoidAndAbsent(t *testing.T) {
	s := personSchema(t)
	p := person()
	p["email"] = None
	p["contact"] = Union{Tag: 0, Value: Void{}}
	out, err := Marshal(s, p)
	require.NoError(t, err)
	got, err := Unmarshal(s, out)
	require.NoError(t, err)
	require.Equal(t, Optional{}, got.(Struct)["email"])
	require.Equal(t, Union{Tag: 0, Value: Void{}}, got.(Struct)["contact"])

	p["email"] = nil
	again, err := Marshal(s, p)
	require.NoError(t, err)
	require.Equal(t, out, again)
}

func mustSchema(t testing.TB, typ schema.Type) *schema.Schema {
	t.Helper()
	s, err := schema.Validate(schema.Create("T").AddType("T", typ))
	require.NoError(t, err)
	return s
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		typ  schema.Type
		src  []byte
		err  error
	}{
		{"invalid bool", schema.Bool(), []byte{2}, ErrInvalidBool},
		{"short u32", schema.U32(), []byte{1, 2, 3}, ErrTruncated},
		{"empty input", schema.UInt(), nil, ErrTruncated},
		{"unterminated varint", schema.UInt(), []byte{0x80, 0x80}, ErrTruncated},
		{"varint overflow", schema.UInt(), bytes.Repeat([]byte{0xFF}, 11), ErrMalformedVarint},
		{"unknown tag", schema.UnionOf(schema.Case(0, schema.U8())), []byte{5, 1}, ErrUnknownTag},
		{"oversized count", schema.ListOf(schema.U8()), []byte{5, 1}, ErrTruncated},
		{"oversized string", schema.Str(), []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x0F, 'a'}, ErrTruncated},
		{"short fixed data", schema.FixedDataOf(4), []byte{1, 2, 3}, ErrTruncated},
		{"invalid utf8", schema.Str(), []byte{1, 0xFF}, ErrInvalidUTF8},
		{"undeclared enum", schema.EnumOf(schema.V("A", 0)), []byte{1}, ErrInvalidEnum},
		{"bad optional flag", schema.OptionalOf(schema.U8()), []byte{2, 1}, ErrInvalidBool},
		{"trailing bytes", schema.U8(), []byte{1, 2}, ErrTrailingBytes},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Unmarshal(mustSchema(t, tc.typ), tc.src)
			require.ErrorIs(t, err, tc.err)
			var de *DecodeError
			require.ErrorAs(t, err, &de)
		})
	}
}

func TestDecodeErrorPath(t *testing.T) {
	s := personSchema(t)
	_, _, err := Decode(s, personBytes[:20])
	require.ErrorIs(t, err, ErrTruncated)
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "address.country", de.Path)
	assert.Equal(t, Offset(19), de.Offset)
	assert.Contains(t, err.Error(), "address.country")
}

func TestDecodeFixedDataStopsAtLength(t *testing.T) {
	s := mustSchema(t, schema.FixedDataOf(4))
	v, next, err := Decode(s, []byte{1, 2, 3, 4, 5})
	require.NoError(t, err)
	require.Equal(t, Offset(4), next)
	require.Equal(t, Data{1, 2, 3, 4}, v)
}

func nodeSchema(t testing.TB) *schema.Schema {
	t.Helper()
	s, err := schema.Validate(schema.Create("Node").
		AddStruct("Node", schema.F("value", schema.I32()), schema.F("next", schema.OptionalOf(schema.Named("Node")))))
	require.NoError(t, err)
	return s
}

func chain(n int) []byte {
	b := NewBuffer(n * 5)
	for i := 0; i < n; i++ {
		b.WriteI32(int32(i))
		b.WriteBool(i < n-1)
	}
	return b.Bytes()
}

func TestDecodeRecursive(t *testing.T) {
	s := nodeSchema(t)
	v := Struct{"value": I32(1), "next": Some(Struct{"value": I32(2), "next": None})}
	out, err := Marshal(s, v)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 0, 0, 0, 1, 2, 0, 0, 0, 0}, out)
	got, err := Unmarshal(s, out)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(Value(v), got))
}

func TestDecodeDepthLimit(t *testing.T) {
	s := nodeSchema(t)
	deep := chain(100)
	_, err := Unmarshal(s, deep)
	require.ErrorIs(t, err, ErrDepthExceeded)

	_, err = DecodeOptions{MaxDepth: 1000}.Unmarshal(s, deep)
	require.NoError(t, err)

	_, err = Skip(s, schema.Named("Node"), deep, 0)
	require.ErrorIs(t, err, ErrDepthExceeded)
}

func TestDecodeAliasing(t *testing.T) {
	s := mustSchema(t, schema.StructOf(schema.F("d", schema.Data()), schema.F("s", schema.Str())))
	src := []byte{2, 'a', 'b', 2, 'c', 'd'}

	copied, err := Unmarshal(s, src)
	require.NoError(t, err)
	aliased, err := DecodeOptions{AliasData: true, AliasStrings: true}.Unmarshal(s, src)
	require.NoError(t, err)
	require.Equal(t, String("cd"), aliased.(Struct)["s"])

	src[1] = 'z'
	assert.Equal(t, Data("ab"), copied.(Struct)["d"])
	assert.Equal(t, Data("zb"), aliased.(Struct)["d"])
}

func TestDecodeOutOfBoundsOffset(t *testing.T) {
	s := mustSchema(t, schema.U8())
	_, _, err := DecodeType(s, schema.U8(), []byte{1}, 5)
	require.ErrorIs(t, err, ErrOutOfBounds)
}

func TestSkipMatchesDecode(t *testing.T) {
	s := personSchema(t)
	next, err := Skip(s, schema.Named("Person"), personBytes, 0)
	require.NoError(t, err)
	require.Equal(t, Offset(len(personBytes)), next)

	_, want, err := DecodeType(s, schema.Named("Address"), personBytes, 11)
	require.NoError(t, err)
	got, err := Skip(s, schema.Named("Address"), personBytes, 11)
	require.NoError(t, err)
	require.Equal(t, want, got)

	u := mustSchema(t, schema.UnionOf(schema.Case(0, schema.Str())))
	_, err = Skip(u, schema.Named("T"), []byte{3, 0}, 0)
	require.ErrorIs(t, err, ErrUnknownTag)
	_, err = Skip(u, schema.Named("T"), []byte{0, 4, 'a'}, 0)
	require.ErrorIs(t, err, ErrTruncated)
}

func TestCombinators(t *testing.T) {
	b := NewBuffer(0)
	writeU32 := func(b *Buffer, v uint32) error { b.WriteU32(v); return nil }
	writeStr := func(b *Buffer, v string) error { b.WriteString(v); return nil }
	seven := uint32(7)

	require.NoError(t, WriteList[uint32](b, []uint32{1, 2}, writeU32))
	require.NoError(t, WriteFixedList[uint32](b, []uint32{3}, 1, writeU32))
	require.ErrorIs(t, WriteFixedList[uint32](b, []uint32{3}, 2, writeU32), ErrFixedLength)
	require.NoError(t, WriteOptional[uint32](b, &seven, writeU32))
	require.NoError(t, WriteOptional[uint32](b, nil, writeU32))
	require.NoError(t, WriteMap[string, uint32](b, []Entry[string, uint32]{{Key: "a", Value: 1}}, writeStr, writeU32))
	require.NoError(t, WriteUnion[string](b, 3, "x", writeStr))
	src := b.Bytes()

	list, off, err := ReadList[uint32](src, 0, ReadU32)
	require.NoError(t, err)
	require.Equal(t, []uint32{1, 2}, list)
	fixed, off, err := ReadFixedList[uint32](src, off, 1, ReadU32)
	require.NoError(t, err)
	require.Equal(t, []uint32{3}, fixed)
	present, off, err := ReadOptional[uint32](src, off, ReadU32)
	require.NoError(t, err)
	require.Equal(t, &seven, present)
	absent, off, err := ReadOptional[uint32](src, off, ReadU32)
	require.NoError(t, err)
	require.Nil(t, absent)
	entries, off, err := ReadMap[string, uint32](src, off, ReadString, ReadU32)
	require.NoError(t, err)
	require.Equal(t, []Entry[string, uint32]{{Key: "a", Value: 1}}, entries)
	tag, payload, off, err := ReadUnion[string](src, off, func(tag uint64, src []byte, off Offset) (string, Offset, error) {
		return ReadString(src, off)
	})
	require.NoError(t, err)
	require.Equal(t, uint64(3), tag)
	require.Equal(t, "x", payload)
	require.Equal(t, Offset(len(src)), off)
}

func TestCombinatorsRollBackOnFailure(t *testing.T) {
	errTwo := errors.New("two")
	failOnTwo := func(b *Buffer, v uint32) error {
		if v == 2 {
			return errTwo
		}
		b.WriteU32(v)
		return nil
	}
	writeStr := func(b *Buffer, v string) error { b.WriteString(v); return nil }
	two := uint32(2)

	b := NewBuffer(0)
	b.WriteU8(0xEE)
	want := []byte{0xEE}

	require.ErrorIs(t, WriteList[uint32](b, []uint32{1, 2}, failOnTwo), errTwo)
	require.Equal(t, want, b.Bytes())
	require.ErrorIs(t, WriteFixedList[uint32](b, []uint32{1, 2}, 2, failOnTwo), errTwo)
	require.Equal(t, want, b.Bytes())
	require.ErrorIs(t, WriteOptional[uint32](b, &two, failOnTwo), errTwo)
	require.Equal(t, want, b.Bytes())
	entries := []Entry[string, uint32]{{Key: "a", Value: 1}, {Key: "b", Value: 2}}
	require.ErrorIs(t, WriteMap[string, uint32](b, entries, writeStr, failOnTwo), errTwo)
	require.Equal(t, want, b.Bytes())
	require.ErrorIs(t, WriteUnion[uint32](b, 5, 2, failOnTwo), errTwo)
	require.Equal(t, want, b.Bytes())
}

type primitives struct {
	A uint64
	B int64
	C uint8
	D int16
	E uint32
	F float64
	G bool
	H string
	I []byte
	J []int32
}

func primitivesSchema(t testing.TB) *schema.Schema {
	t.Helper()
	s, err := schema.Validate(schema.Create("P").AddStruct("P",
		schema.F("a", schema.UInt()),
		schema.F("b", schema.Int()),
		schema.F("c", schema.U8()),
		schema.F("d", schema.I16()),
		schema.F("e", schema.U32()),
		schema.F("f", schema.F64()),
		schema.F("g", schema.Bool()),
		schema.F("h", schema.Str()),
		schema.F("i", schema.Data()),
		schema.F("j", schema.ListOf(schema.I32())),
	))
	require.NoError(t, err)
	return s
}

func (p primitives) value() Value {
	j := make(List, 0, len(p.J))
	for _, x := range p.J {
		j = append(j, I32(x))
	}
	return Struct{
		"a": UInt(p.A), "b": Int(p.B), "c": U8(p.C), "d": I16(p.D), "e": U32(p.E),
		"f": F64(p.F), "g": Bool(p.G), "h": String(p.H), "i": Data(p.I), "j": j,
	}
}

func TestQuickRoundTrip(t *testing.T) {
	s := primitivesSchema(t)
	f := func(p primitives) bool {
		in := p.value()
		out, err := Marshal(s, in)
		if err != nil {
			t.Logf("marshal: %v", err)
			return false
		}
		got, next, err := Decode(s, out)
		if err != nil || int(next) != len(out) {
			t.Logf("decode: %v", err)
			return false
		}
		skipped, err := Skip(s, schema.Named("P"), out, 0)
		if err != nil || skipped != next {
			return false
		}
		return cmp.Equal(in, got, cmpopts.EquateEmpty())
	}
	require.NoError(t, quick.Check(f, nil))
}

func FuzzUnmarshalPerson(f *testing.F) {
	s := personSchema(f)
	f.Add(personBytes)
	f.Add([]byte{0x00})
	f.Fuzz(func(t *testing.T, data []byte) {
		v, err := Unmarshal(s, data)
		if err != nil {
			return
		}
		enc, err := Marshal(s, v)
		require.NoError(t, err)
		v2, err := Unmarshal(s, enc)
		require.NoError(t, err)
		enc2, err := Marshal(s, v2)
		require.NoError(t, err)
		require.Equal(t, enc, enc2)
	})
}

func BenchmarkMarshalPerson(b *testing.B) {
	s := personSchema(b)
	p := person()
	buf := NewBuffer(128)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		_ = Encode(s, p, buf)
	}
}

func BenchmarkUnmarshalPerson(b *testing.B) {
	s := personSchema(b)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = Unmarshal(s, personBytes)
	}
}

func BenchmarkSkipPerson(b *testing.B) {
	s := personSchema(b)
	k := NewSkipper(s)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = k.Skip(schema.Named("Person"), personBytes, 0)
	}
}
