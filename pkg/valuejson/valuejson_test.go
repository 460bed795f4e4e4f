package valuejson

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/speakez-llc/barewire/pkg/schema"
	"github.com/speakez-llc/barewire/pkg/wire"
	"github.com/stretchr/testify/require"
)

func sampleSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.Validate(schema.Create("Sample").
		AddEnum("Color", schema.V("RED", 0), schema.V("GREEN", 1)).
		AddUnion("Shape", schema.Case(0, schema.Void()), schema.Case(3, schema.F64())).
		AddStruct("Sample",
			schema.F("big", schema.U64()),
			schema.F("neg", schema.Int()),
			schema.F("ratio", schema.F32()),
			schema.F("ok", schema.Bool()),
			schema.F("name", schema.Str()),
			schema.F("blob", schema.Data()),
			schema.F("key", schema.FixedDataOf(2)),
			schema.F("color", schema.Named("Color")),
			schema.F("note", schema.OptionalOf(schema.Str())),
			schema.F("ids", schema.FixedListOf(schema.U8(), 3)),
			schema.F("attrs", schema.MapOf(schema.Str(), schema.I16())),
			schema.F("counts", schema.MapOf(schema.U32(), schema.Bool())),
			schema.F("shape", schema.Named("Shape")),
		))
	require.NoError(t, err)
	return s
}

func sampleValue() wire.Struct {
	return wire.Struct{
		"big":   wire.U64(math.MaxUint64),
		"neg":   wire.Int(-9007199254740993),
		"ratio": wire.F32(0.5),
		"ok":    wire.Bool(true),
		"name":  wire.String("h\"i"),
		"blob":  wire.Data{0xFF, 0x00},
		"key":   wire.Data{1, 2},
		"color": wire.Enum(1),
		"note":  wire.Optional{},
		"ids":   wire.List{wire.U8(1), wire.U8(2), wire.U8(3)},
		"attrs": wire.Map{
			{Key: wire.String("a"), Value: wire.I16(-1)},
			{Key: wire.String("b"), Value: wire.I16(2)},
		},
		"counts": wire.Map{
			{Key: wire.U32(7), Value: wire.Bool(false)},
		},
		"shape": wire.Union{Tag: 3, Value: wire.F64(2.5)},
	}
}

const sampleJSON = `{"big":18446744073709551615,"neg":-9007199254740993,"ratio":0.5,"ok":true,` +
	`"name":"h\"i","blob":"/wA=","key":"AQI=","color":"GREEN","note":null,"ids":[1,2,3],` +
	`"attrs":{"a":-1,"b":2},"counts":[{"key":7,"value":false}],` +
	`"shape":{"tag":3,"value":2.5}}`

func TestMarshal(t *testing.T) {
	s := sampleSchema(t)
	out, err := Marshal(s, schema.Named("Sample"), sampleValue())
	require.NoError(t, err)
	require.Equal(t, sampleJSON, string(out))
}

func TestUnmarshal(t *testing.T) {
	s := sampleSchema(t)
	got, err := Unmarshal(s, schema.Named("Sample"), []byte(sampleJSON))
	require.NoError(t, err)
	if diff := cmp.Diff(wire.Value(sampleValue()), got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}

	// the value survives the binary encoding too
	bin, err := wire.Marshal(s, got)
	require.NoError(t, err)
	back, err := wire.Unmarshal(s, bin)
	require.NoError(t, err)
	out, err := Marshal(s, schema.Named("Sample"), back)
	require.NoError(t, err)
	require.JSONEq(t, sampleJSON, string(out))
}

func TestUnmarshalErrors(t *testing.T) {
	s := sampleSchema(t)
	tests := []struct {
		name string
		typ  schema.Type
		in   string
		want error
	}{
		{"u8 overflow", schema.U8(), `256`, ErrMismatch},
		{"fraction for int", schema.Int(), `1.5`, ErrMismatch},
		{"string for bool", schema.Bool(), `"true"`, ErrMismatch},
		{"bad base64", schema.Data(), `"%%"`, ErrMismatch},
		{"fixed data length", schema.FixedDataOf(2), `"AQID"`, wire.ErrFixedLength},
		{"fixed list length", schema.FixedListOf(schema.U8(), 3), `[1,2]`, wire.ErrFixedLength},
		{"unknown enum", schema.Named("Color"), `"BLUE"`, wire.ErrInvalidEnum},
		{"unknown tag", schema.Named("Shape"), `{"tag":1,"value":null}`, wire.ErrUnknownTag},
		{"union without value", schema.Named("Shape"), `{"tag":0,"val":null}`, ErrMismatch},
		{"missing field", schema.StructOf(schema.F("a", schema.U8())), `{}`, wire.ErrMissingField},
		{"unknown field", schema.StructOf(schema.F("a", schema.U8())), `{"a":1,"b":2}`, wire.ErrUnknownField},
		{"bad entry", schema.MapOf(schema.U8(), schema.U8()), `[{"key":1}]`, ErrMismatch},
		{"trailing", schema.U8(), `1 2`, wire.ErrTrailingBytes},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Unmarshal(s, tc.typ, []byte(tc.in))
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestMarshalErrors(t *testing.T) {
	s := sampleSchema(t)
	_, err := Marshal(s, schema.F64(), wire.F64(math.NaN()))
	require.ErrorIs(t, err, ErrMismatch)
	_, err = Marshal(s, schema.U8(), wire.U16(1))
	require.ErrorIs(t, err, ErrMismatch)
	_, err = Marshal(s, schema.Named("Color"), wire.Enum(9))
	require.ErrorIs(t, err, wire.ErrInvalidEnum)
	_, err = Marshal(s, schema.StructOf(schema.F("a", schema.U8())), wire.Struct{})
	require.ErrorIs(t, err, wire.ErrMissingField)
}
