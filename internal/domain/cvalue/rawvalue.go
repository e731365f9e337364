package cvalue

// RawKind discriminates a RawValue's payload. Unlike CValue, a RawValue does
// not carry its CType — the caller supplies it from the owning DagSpec's
// data-node metadata when one is needed (e.g. for ToCValue).
type RawKind string

const (
	RKindUnit   RawKind = "unit"
	RKindBool   RawKind = "bool"
	RKindInt    RawKind = "int"
	RKindFloat  RawKind = "float"
	RKindString RawKind = "string"
	RKindOption RawKind = "option"

	// RKindList is the boxed, generic list variant: used for mixed or
	// non-primitive element types (Option, List, Map, Product elements).
	RKindList RawKind = "list"

	// Packed primitive list variants. Spec.md §4.1: "Primitive lists must
	// materialize as their packed variant" — these store contiguous Go
	// slices of the primitive type rather than []RawValue, which is the
	// ~6x memory win over boxed lists of large numeric arrays.
	RKindIntList    RawKind = "int_list"
	RKindFloatList  RawKind = "float_list"
	RKindBoolList   RawKind = "bool_list"
	RKindStringList RawKind = "string_list"

	RKindMap     RawKind = "map"
	RKindProduct RawKind = "product"
)

// RawValue is Constellation's unboxed value representation.
type RawValue struct {
	Kind RawKind

	BoolV   bool
	IntV    int64
	FloatV  float64
	StringV string

	OptionV *RawValue

	ListV []RawValue

	IntListV    []int64
	FloatListV  []float64
	BoolListV   []bool
	StringListV []string

	MapV []RawMapEntry

	ProductV map[string]RawValue
}

// RawMapEntry is one key/value pair of a RawValue Map.
type RawMapEntry struct {
	Key   RawValue
	Value RawValue
}

// RUnit is the single Unit raw value.
var RUnit = RawValue{Kind: RKindUnit}

// RBool constructs a boxed Bool raw value.
func RBool(b bool) RawValue { return RawValue{Kind: RKindBool, BoolV: b} }

// RInt constructs a boxed Int raw value.
func RInt(i int64) RawValue { return RawValue{Kind: RKindInt, IntV: i} }

// RFloat constructs a boxed Float raw value.
func RFloat(f float64) RawValue { return RawValue{Kind: RKindFloat, FloatV: f} }

// RString constructs a boxed String raw value.
func RString(s string) RawValue { return RawValue{Kind: RKindString, StringV: s} }

// RNone constructs a None raw value.
func RNone() RawValue { return RawValue{Kind: RKindOption} }

// RSome constructs a Some(v) raw value.
func RSome(v RawValue) RawValue {
	inner := v
	return RawValue{Kind: RKindOption, OptionV: &inner}
}

// RIntList constructs a packed Int list raw value.
func RIntList(vals []int64) RawValue { return RawValue{Kind: RKindIntList, IntListV: vals} }

// RFloatList constructs a packed Float list raw value.
func RFloatList(vals []float64) RawValue { return RawValue{Kind: RKindFloatList, FloatListV: vals} }

// RBoolList constructs a packed Bool list raw value.
func RBoolList(vals []bool) RawValue { return RawValue{Kind: RKindBoolList, BoolListV: vals} }

// RStringList constructs a packed String list raw value.
func RStringList(vals []string) RawValue {
	return RawValue{Kind: RKindStringList, StringListV: vals}
}

// RList constructs a boxed, generic list raw value.
func RList(vals []RawValue) RawValue { return RawValue{Kind: RKindList, ListV: vals} }

// RMapOf constructs a Map raw value from entries.
func RMapOf(entries []RawMapEntry) RawValue { return RawValue{Kind: RKindMap, MapV: entries} }

// RProduct constructs a Product raw value.
func RProduct(fields map[string]RawValue) RawValue {
	return RawValue{Kind: RKindProduct, ProductV: fields}
}

// IsPackedList reports whether k is one of the packed primitive list kinds.
func IsPackedList(k RawKind) bool {
	switch k {
	case RKindIntList, RKindFloatList, RKindBoolList, RKindStringList:
		return true
	default:
		return false
	}
}

// Len reports the element count for any list-shaped RawValue (packed or
// boxed), and 0 otherwise.
func (r RawValue) Len() int {
	switch r.Kind {
	case RKindList:
		return len(r.ListV)
	case RKindIntList:
		return len(r.IntListV)
	case RKindFloatList:
		return len(r.FloatListV)
	case RKindBoolList:
		return len(r.BoolListV)
	case RKindStringList:
		return len(r.StringListV)
	default:
		return 0
	}
}
