package cvalue

import (
	"testing"

	"github.com/alexisbeaulieu97/constellation/internal/domain/ctype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqualPrimitives(t *testing.T) {
	assert.True(t, Equal(NewInt(3), NewInt(3)))
	assert.False(t, Equal(NewInt(3), NewInt(4)))
	assert.False(t, Equal(NewInt(3), NewFloat(3)))
}

func TestEqualOption(t *testing.T) {
	assert.True(t, Equal(NewNone(ctype.Int), NewNone(ctype.Int)))
	assert.True(t, Equal(NewSome(ctype.Int, NewInt(1)), NewSome(ctype.Int, NewInt(1))))
	assert.False(t, Equal(NewSome(ctype.Int, NewInt(1)), NewNone(ctype.Int)))
}

func TestEqualListOrderMatters(t *testing.T) {
	a := NewList(ctype.Int, []CValue{NewInt(1), NewInt(2)})
	b := NewList(ctype.Int, []CValue{NewInt(2), NewInt(1)})
	assert.False(t, Equal(a, b))
}

func TestEqualMapOrderInsignificant(t *testing.T) {
	a := NewMap(ctype.String, ctype.Int, []MapEntry{
		{Key: NewString("x"), Value: NewInt(1)},
		{Key: NewString("y"), Value: NewInt(2)},
	})
	b := NewMap(ctype.String, ctype.Int, []MapEntry{
		{Key: NewString("y"), Value: NewInt(2)},
		{Key: NewString("x"), Value: NewInt(1)},
	})
	assert.True(t, Equal(a, b))
}

func TestFieldLookup(t *testing.T) {
	fields := map[string]ctype.CType{"name": ctype.String}
	p := NewProduct(fields, map[string]CValue{"name": NewString("alice")})
	v, ok := p.Field("name")
	require.True(t, ok)
	assert.Equal(t, "alice", v.StringV)

	_, ok = p.Field("missing")
	assert.False(t, ok)
}

func roundTrip(t *testing.T, v CValue) {
	t.Helper()
	raw := FromCValue(v)
	back, err := ToCValue(raw, v.Type)
	require.NoError(t, err)
	assert.True(t, Equal(v, back), "round trip mismatch for %s", v.Type.String())
}

func TestRoundTripPrimitives(t *testing.T) {
	roundTrip(t, Unit)
	roundTrip(t, NewBool(true))
	roundTrip(t, NewInt(42))
	roundTrip(t, NewFloat(3.14))
	roundTrip(t, NewString("hello"))
}

func TestRoundTripOption(t *testing.T) {
	roundTrip(t, NewNone(ctype.Int))
	roundTrip(t, NewSome(ctype.Int, NewInt(7)))
}

func TestRoundTripPackedLists(t *testing.T) {
	roundTrip(t, NewList(ctype.Int, []CValue{NewInt(1), NewInt(2), NewInt(3)}))
	roundTrip(t, NewList(ctype.Float, []CValue{NewFloat(1.5), NewFloat(2.5)}))
	roundTrip(t, NewList(ctype.Bool, []CValue{NewBool(true), NewBool(false)}))
	roundTrip(t, NewList(ctype.String, []CValue{NewString("a"), NewString("b")}))
}

func TestRoundTripNestedList(t *testing.T) {
	elem := ctype.ListOf(ctype.Int)
	inner1 := NewList(ctype.Int, []CValue{NewInt(1)})
	inner2 := NewList(ctype.Int, []CValue{NewInt(2), NewInt(3)})
	roundTrip(t, NewList(elem, []CValue{inner1, inner2}))
}

func TestRoundTripMap(t *testing.T) {
	m := NewMap(ctype.String, ctype.Int, []MapEntry{
		{Key: NewString("a"), Value: NewInt(1)},
		{Key: NewString("b"), Value: NewInt(2)},
	})
	roundTrip(t, m)
}

func TestRoundTripProduct(t *testing.T) {
	fields := map[string]ctype.CType{"name": ctype.String, "age": ctype.Int}
	p := NewProduct(fields, map[string]CValue{
		"name": NewString("bob"),
		"age":  NewInt(30),
	})
	roundTrip(t, p)
}

func TestToCValueMissingOptionalProductField(t *testing.T) {
	fields := map[string]ctype.CType{"name": ctype.String, "nickname": ctype.OptionOf(ctype.String)}
	raw := RProduct(map[string]RawValue{"name": RString("bob")})
	v, err := ToCValue(raw, ctype.ProductOf(fields))
	require.NoError(t, err)
	nickname, ok := v.Field("nickname")
	require.True(t, ok)
	assert.True(t, nickname.IsNone())
}

func TestToCValueMissingRequiredProductFieldErrors(t *testing.T) {
	fields := map[string]ctype.CType{"name": ctype.String}
	raw := RProduct(map[string]RawValue{})
	_, err := ToCValue(raw, ctype.ProductOf(fields))
	assert.Error(t, err)
}

func TestToCValueTypeMismatch(t *testing.T) {
	_, err := ToCValue(RString("x"), ctype.Int)
	assert.Error(t, err)
}

func TestInjectExtractPrimitive(t *testing.T) {
	v, err := Inject(42)
	require.NoError(t, err)
	assert.Equal(t, ctype.Int, v.Type)

	got, err := Extract[int](v)
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestInjectExtractSlice(t *testing.T) {
	v, err := Inject([]string{"a", "b", "c"})
	require.NoError(t, err)

	got, err := Extract[[]string](v)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestInjectExtractMap(t *testing.T) {
	v, err := Inject(map[string]int{"a": 1, "b": 2})
	require.NoError(t, err)

	got, err := Extract[map[string]int](v)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, got)
}

type person struct {
	Name string
	Age  int
}

func TestInjectExtractStruct(t *testing.T) {
	v, err := Inject(person{Name: "carol", Age: 25})
	require.NoError(t, err)

	got, err := Extract[person](v)
	require.NoError(t, err)
	assert.Equal(t, person{Name: "carol", Age: 25}, got)
}

func TestInjectExtractPointerOption(t *testing.T) {
	n := 5
	v, err := Inject(&n)
	require.NoError(t, err)
	assert.True(t, v.Type.IsOption())

	got, err := Extract[*int](v)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 5, *got)

	var nilPtr *int
	vNil, err := Inject(nilPtr)
	require.NoError(t, err)
	gotNil, err := Extract[*int](vNil)
	require.NoError(t, err)
	assert.Nil(t, gotNil)
}
