package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codes(t *testing.T, err error) []string {
	t.Helper()
	errs, ok := AsValidationErrors(err)
	require.True(t, ok, "expected ValidationErrors, got %v", err)
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Code)
	}
	return out
}

func TestDraftIsPersistent(t *testing.T) {
	base := Create("A").AddStruct("A", F("x", U8()))
	extended := base.AddStruct("B", F("y", U16()))
	_, ok := base.Lookup("B")
	require.False(t, ok)
	_, ok = extended.Lookup("B")
	require.True(t, ok)
	require.Equal(t, []string{"A"}, base.Names())
	require.Equal(t, []string{"A", "B"}, extended.Names())

	rooted := extended.WithRoot("B")
	require.Equal(t, "A", extended.Root())
	require.Equal(t, "B", rooted.Root())
}

func TestValidateAccepts(t *testing.T) {
	d := Create("Person").
		AddEnum("Department", V("ACCOUNTING", 0), V("ADMIN", 1), V("JSMITH", 99)).
		AddStruct("Address",
			F("lines", FixedListOf(Str(), 4)),
			F("country", Str()),
		).
		AddStruct("Person",
			F("name", Str()),
			F("email", OptionalOf(Str())),
			F("address", Named("Address")),
			F("department", Named("Department")),
			F("metadata", MapOf(Str(), Data())),
			F("key", FixedDataOf(32)),
		).
		AddUnion("Message", Case(0, Named("Person")), Case(1, Void()))
	s, err := Validate(d)
	require.NoError(t, err)
	require.Equal(t, "Person", s.Root())
	require.IsType(t, Struct{}, s.RootType())
	require.Equal(t, []string{"Department", "Address", "Person", "Message"}, s.Names())
	require.IsType(t, Struct{}, s.Resolve(Named("Address")))
}

func TestValidateRootMissing(t *testing.T) {
	_, err := Validate(Create("Missing").AddPrimitive("Id", U64()))
	require.Error(t, err)
	errs, _ := AsValidationErrors(err)
	require.Len(t, errs, 1)
	assert.Equal(t, CodeUndefinedType, errs[0].Code)
	assert.Equal(t, "Missing", errs[0].Type)
}

func TestValidateDirectSelfReference(t *testing.T) {
	_, err := Validate(Create("A").AddStruct("A", F("field", Named("A"))))
	require.Error(t, err)
	errs, _ := AsValidationErrors(err)
	require.True(t, errs.Has(CodeCyclicTypeReference))
	assert.Equal(t, "A", errs[0].Type)
}

func TestValidateMutualCycle(t *testing.T) {
	d := Create("A").
		AddStruct("A", F("b", Named("B"))).
		AddStruct("B", F("a", FixedListOf(Named("A"), 2)))
	_, err := Validate(d)
	require.Equal(t, []string{CodeCyclicTypeReference}, codes(t, err))
}

func TestValidateAliasCycle(t *testing.T) {
	d := Create("A").AddPrimitive("A", Named("B")).AddPrimitive("B", Named("A"))
	_, err := Validate(d)
	require.Contains(t, codes(t, err), CodeCyclicTypeReference)
}

func TestValidateRecursionThroughIndirection(t *testing.T) {
	d := Create("Node").
		AddStruct("Node", F("value", I32()), F("next", OptionalOf(Named("Node"))))
	_, err := Validate(d)
	require.NoError(t, err)

	tree := Create("Tree").
		AddStruct("Tree", F("label", Str()), F("children", ListOf(Named("Tree"))), F("index", MapOf(Str(), Named("Tree"))))
	_, err = Validate(tree)
	require.NoError(t, err)

	expr := Create("Expr").
		AddUnion("Expr", Case(0, I64()), Case(1, Named("Add"))).
		AddStruct("Add", F("left", Named("Expr")), F("right", Named("Expr")))
	_, err = Validate(expr)
	require.NoError(t, err)
}

func TestValidateUndefinedBehindIndirection(t *testing.T) {
	d := Create("A").AddStruct("A", F("x", OptionalOf(Named("Ghost"))), F("y", ListOf(Named("Ghost"))))
	_, err := Validate(d)
	errs, _ := AsValidationErrors(err)
	require.Len(t, errs, 1)
	assert.Equal(t, CodeUndefinedType, errs[0].Code)
	assert.Equal(t, "Ghost", errs[0].Type)
}

func TestValidatePerTypeInvariants(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
		code string
		path string
	}{
		{"empty struct", StructOf(), CodeEmptyStruct, ""},
		{"empty union", UnionOf(), CodeEmptyUnion, ""},
		{"empty enum", EnumOf(), CodeEmptyEnum, ""},
		{"void field", StructOf(F("v", Void())), CodeInvalidVoidUsage, "v"},
		{"void list", ListOf(Void()), CodeInvalidVoidUsage, "[*]"},
		{"top level void", Void(), CodeInvalidVoidUsage, ""},
		{"float key", MapOf(F64(), Str()), CodeInvalidMapKeyType, "{key}"},
		{"data key", MapOf(Data(), Str()), CodeInvalidMapKeyType, "{key}"},
		{"fixed data key", MapOf(FixedDataOf(4), Str()), CodeInvalidMapKeyType, "{key}"},
		{"struct key", MapOf(StructOf(F("a", U8())), Str()), CodeInvalidMapKeyType, "{key}"},
		{"zero data", FixedDataOf(0), CodeInvalidFixedLength, ""},
		{"zero list", FixedListOf(U8(), 0), CodeInvalidFixedLength, ""},
		{"duplicate field", StructOf(F("a", U8()), F("a", U16())), CodeDuplicateMember, ""},
		{"duplicate tag", UnionOf(Case(1, U8()), Case(1, U16())), CodeDuplicateMember, ""},
		{"duplicate enum", EnumOf(V("A", 1), V("B", 1)), CodeDuplicateMember, ""},
		{"nested path", StructOf(F("a", OptionalOf(StructOf()))), CodeEmptyStruct, "a?"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Validate(Create("T").AddType("T", tc.typ))
			errs, ok := AsValidationErrors(err)
			require.True(t, ok)
			require.Len(t, errs, 1, errs.Error())
			assert.Equal(t, tc.code, errs[0].Code)
			assert.Equal(t, "T", errs[0].Type)
			assert.Equal(t, tc.path, errs[0].Path)
		})
	}
}

func TestValidateVoidInUnion(t *testing.T) {
	_, err := Validate(Create("U").AddUnion("U", Case(0, Void()), Case(1, Str())))
	require.NoError(t, err)
}

func TestValidateMapKeyThroughAlias(t *testing.T) {
	d := Create("M").
		AddEnum("Color", V("RED", 0), V("GREEN", 1)).
		AddPrimitive("Name", Str()).
		AddPrimitive("Weight", F32()).
		AddStruct("M", F("byColor", MapOf(Named("Color"), U8())), F("byName", MapOf(Named("Name"), U8())))
	_, err := Validate(d)
	require.NoError(t, err)

	_, err = Validate(d.AddMap("Bad", Named("Weight"), U8()))
	require.Equal(t, []string{CodeInvalidMapKeyType}, codes(t, err))
}

func TestValidateCollectsAllErrors(t *testing.T) {
	d := Create("Root").
		AddStruct("A", F("self", Named("A"))).
		AddStruct("B").
		AddEnum("C").
		AddStruct("D", F("x", Named("Nope")))
	_, err := Validate(d)
	got := codes(t, err)
	assert.ElementsMatch(t, []string{
		CodeUndefinedType, // Root
		CodeCyclicTypeReference,
		CodeUndefinedType, // Nope
		CodeEmptyStruct,
		CodeEmptyEnum,
	}, got)
	assert.Contains(t, err.Error(), "(total 5)")
}
