package ctype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEqualPrimitives(t *testing.T) {
	assert.True(t, Int.Equal(Int))
	assert.False(t, Int.Equal(Float))
	assert.False(t, Bool.Equal(String))
}

func TestEqualOption(t *testing.T) {
	a := OptionOf(Int)
	b := OptionOf(Int)
	c := OptionOf(String)
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestEqualList(t *testing.T) {
	a := ListOf(Int)
	b := ListOf(Int)
	c := ListOf(ListOf(Int))
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestEqualMap(t *testing.T) {
	a := MapOf(String, Int)
	b := MapOf(String, Int)
	c := MapOf(String, Float)
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestEqualProduct(t *testing.T) {
	a := ProductOf(map[string]CType{"x": Int, "y": String})
	b := ProductOf(map[string]CType{"y": String, "x": Int})
	c := ProductOf(map[string]CType{"x": Int})
	assert.True(t, a.Equal(b), "field order must not affect equality")
	assert.False(t, a.Equal(c))
}

func TestProductOfCopiesMap(t *testing.T) {
	fields := map[string]CType{"x": Int}
	p := ProductOf(fields)
	fields["y"] = String
	_, ok := p.Fields["y"]
	assert.False(t, ok, "ProductOf must defensively copy its fields map")
}

func TestString(t *testing.T) {
	assert.Equal(t, "int", Int.String())
	assert.Equal(t, "option<string>", OptionOf(String).String())
	assert.Equal(t, "list<int>", ListOf(Int).String())
	assert.Equal(t, "map<string,int>", MapOf(String, Int).String())
	assert.Equal(t, "product{x:int,y:string}", ProductOf(map[string]CType{"y": String, "x": Int}).String())
}

func TestFieldNamesSorted(t *testing.T) {
	p := ProductOf(map[string]CType{"z": Int, "a": Int, "m": Int})
	assert.Equal(t, []string{"a", "m", "z"}, p.FieldNames())
}

func TestIsOption(t *testing.T) {
	assert.True(t, OptionOf(Int).IsOption())
	assert.False(t, Int.IsOption())
}
