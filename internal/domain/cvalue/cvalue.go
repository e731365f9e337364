// Package cvalue implements Constellation's two value representations:
// CValue (boxed, self-describing — each variant carries its CType) and
// RawValue (unboxed — the CType lives alongside it in DagSpec metadata, and
// primitive lists are packed into contiguous arrays). Both are total,
// structural value types; conversions between them and TypeMismatchError are
// defined in convert.go.
package cvalue

import (
	"sort"

	"github.com/alexisbeaulieu97/constellation/internal/domain/ctype"
)

// CValue is a self-describing runtime value: its Type field always agrees
// with which of the payload fields below is meaningful. Use the New*
// constructors rather than building a CValue by hand.
type CValue struct {
	Type ctype.CType

	BoolV   bool
	IntV    int64
	FloatV  float64
	StringV string

	// OptionV is nil for None, non-nil (pointing at the wrapped value) for Some.
	OptionV *CValue

	ListV []CValue

	// MapV holds Map<K,V> entries. Order is insignificant;
	// SortedMapEntries returns a copy in a caller-chosen deterministic order.
	MapV []MapEntry

	// ProductV holds field→value for Product types.
	ProductV map[string]CValue
}

// MapEntry is one key/value pair of a CValue Map.
type MapEntry struct {
	Key   CValue
	Value CValue
}

// Unit is the single value of type Unit.
var Unit = CValue{Type: ctype.Unit}

// NewBool constructs a Bool CValue.
func NewBool(b bool) CValue { return CValue{Type: ctype.Bool, BoolV: b} }

// NewInt constructs an Int CValue.
func NewInt(i int64) CValue { return CValue{Type: ctype.Int, IntV: i} }

// NewFloat constructs a Float CValue.
func NewFloat(f float64) CValue { return CValue{Type: ctype.Float, FloatV: f} }

// NewString constructs a String CValue.
func NewString(s string) CValue { return CValue{Type: ctype.String, StringV: s} }

// NewNone constructs None of the given element type.
func NewNone(elem ctype.CType) CValue { return CValue{Type: ctype.OptionOf(elem)} }

// NewSome constructs Some(v) where elem is the wrapped element's type.
func NewSome(elem ctype.CType, v CValue) CValue {
	inner := v
	return CValue{Type: ctype.OptionOf(elem), OptionV: &inner}
}

// NewList constructs a List<elem> value from its elements.
func NewList(elem ctype.CType, elems []CValue) CValue {
	return CValue{Type: ctype.ListOf(elem), ListV: elems}
}

// NewMap constructs a Map<key,value> value from its entries.
func NewMap(key, value ctype.CType, entries []MapEntry) CValue {
	return CValue{Type: ctype.MapOf(key, value), MapV: entries}
}

// NewProduct constructs a Product value. fieldTypes describes the type of
// each named field; it is required so the resulting CValue's Type is complete
// even for an empty product.
func NewProduct(fieldTypes map[string]ctype.CType, fields map[string]CValue) CValue {
	return CValue{Type: ctype.ProductOf(fieldTypes), ProductV: fields}
}

// IsNone reports whether an Option value is None.
func (v CValue) IsNone() bool {
	return v.Type.Kind == ctype.KindOption && v.OptionV == nil
}

// Field retrieves a Product field by name.
func (v CValue) Field(name string) (CValue, bool) {
	if v.Type.Kind != ctype.KindProduct {
		return CValue{}, false
	}
	f, ok := v.ProductV[name]
	return f, ok
}

// SortedMapEntries returns a copy of MapV sorted by a caller-supplied key
// comparator, for callers that need deterministic map ordering (spec.md
// §4.4: "maps are serialized with keys in sorted order").
func (v CValue) SortedMapEntries(less func(a, b MapEntry) bool) []MapEntry {
	entries := make([]MapEntry, len(v.MapV))
	copy(entries, v.MapV)
	sort.SliceStable(entries, func(i, j int) bool { return less(entries[i], entries[j]) })
	return entries
}

// Equal reports deep structural equality between two CValues, honoring the
// same value semantics used for hashing and testing (order within lists
// matters; order within maps does not).
func Equal(a, b CValue) bool {
	if !a.Type.Equal(b.Type) {
		return false
	}
	switch a.Type.Kind {
	case ctype.KindUnit:
		return true
	case ctype.KindBool:
		return a.BoolV == b.BoolV
	case ctype.KindInt:
		return a.IntV == b.IntV
	case ctype.KindFloat:
		return a.FloatV == b.FloatV
	case ctype.KindString:
		return a.StringV == b.StringV
	case ctype.KindOption:
		if (a.OptionV == nil) != (b.OptionV == nil) {
			return false
		}
		if a.OptionV == nil {
			return true
		}
		return Equal(*a.OptionV, *b.OptionV)
	case ctype.KindList:
		if len(a.ListV) != len(b.ListV) {
			return false
		}
		for i := range a.ListV {
			if !Equal(a.ListV[i], b.ListV[i]) {
				return false
			}
		}
		return true
	case ctype.KindMap:
		if len(a.MapV) != len(b.MapV) {
			return false
		}
		used := make([]bool, len(b.MapV))
		for _, ea := range a.MapV {
			found := false
			for j, eb := range b.MapV {
				if used[j] {
					continue
				}
				if Equal(ea.Key, eb.Key) && Equal(ea.Value, eb.Value) {
					used[j] = true
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	case ctype.KindProduct:
		if len(a.ProductV) != len(b.ProductV) {
			return false
		}
		for name, av := range a.ProductV {
			bv, ok := b.ProductV[name]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
