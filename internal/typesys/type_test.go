package typesys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnionCommutativeAndIdempotent(t *testing.T) {
	number := Primitive(Number)
	str := Primitive(String)

	assert.True(t, Union(number, number).Equal(number), "union should be idempotent")
	assert.True(t, Union(number, str).Equal(Union(str, number)), "union should be commutative")
}

func TestUnionIdentities(t *testing.T) {
	number := Primitive(Number)

	assert.True(t, Union(Anything(), number).Equal(Anything()))
	assert.True(t, Union(Nothing(), number).Equal(number))
	assert.True(t, Union(number, Nothing()).Equal(number))
}

func TestSubsumptionReflexiveTransitiveAndBounds(t *testing.T) {
	number := Primitive(Number)
	str := Primitive(String)
	numOrStr := Union(number, str)

	assert.True(t, number.Subsumes(number), "subsumption should be reflexive")
	assert.True(t, numOrStr.Subsumes(number))
	assert.True(t, Anything().Subsumes(number), "anything subsumes everything")
	assert.True(t, number.Subsumes(Nothing()), "everything subsumes nothing")

	// transitivity: anything >= numOrStr >= number
	assert.True(t, Anything().Subsumes(numOrStr))
	assert.True(t, numOrStr.Subsumes(number))
	assert.True(t, Anything().Subsumes(number))
}

func TestIntersectionDistributesOverUnion(t *testing.T) {
	number := Primitive(Number)
	str := Primitive(String)
	boolean := Primitive(Boolean)

	left := Intersection(Union(number, str), boolean)
	right := Union(Intersection(number, boolean), Intersection(str, boolean))

	assert.True(t, left.Subsumes(right), "(a|b)&c should subsume (a&c)|(b&c)")
}

func TestAddingPropertySubsumesOriginalAndRecordsType(t *testing.T) {
	table := Primitive(Table)
	withProp := table.AddingProperty("x", Primitive(Number))

	assert.True(t, withProp.Subsumes(withProp))
	pt, ok := withProp.TypeOfProperty("x")
	require.True(t, ok)
	assert.True(t, pt.Equal(Primitive(Number)))

	// table (no constraints) subsumes withProp since it requires nothing extra.
	assert.True(t, table.Subsumes(withProp))
	// withProp does NOT subsume plain table: table doesn't guarantee property x.
	assert.False(t, withProp.Subsumes(table))
}

func TestHideUnhideRoundTrips(t *testing.T) {
	// Sanity check on the AddingProperty/RemovingProperty round trip,
	// mirroring property 12's hide/unhide symmetry at the type level.
	table := Primitive(Table)
	withProp := table.AddingProperty("x", Primitive(Number))
	removed := withProp.RemovingProperty("x")
	_, ok := removed.TypeOfProperty("x")
	assert.False(t, ok)
}

func TestMergingRejectsUnionOperands(t *testing.T) {
	number := Primitive(Number)
	str := Primitive(String)
	numOrStr := Union(number, str)

	_, ok := Merging(numOrStr, str)
	assert.False(t, ok, "merging a union operand must fail")

	merged, ok := Merging(number, Primitive(Boolean))
	require.True(t, ok)
	assert.True(t, merged.Possible&Number != 0)
	assert.True(t, merged.Possible&Boolean != 0)
}

func TestSignatureValidity(t *testing.T) {
	valid := Signature{Parameters: []Parameter{
		{Kind: ParamPlain, Type: Primitive(Number)},
		{Kind: ParamOptional, Type: Primitive(String)},
		{Kind: ParamRest, Type: Primitive(Number)},
	}}
	assert.True(t, valid.Valid())

	invalidOrder := Signature{Parameters: []Parameter{
		{Kind: ParamOptional, Type: Primitive(String)},
		{Kind: ParamPlain, Type: Primitive(Number)},
	}}
	assert.False(t, invalidOrder.Valid())

	invalidRest := Signature{Parameters: []Parameter{
		{Kind: ParamRest, Type: Primitive(Number)},
		{Kind: ParamPlain, Type: Primitive(String)},
	}}
	assert.False(t, invalidRest.Valid())
}
