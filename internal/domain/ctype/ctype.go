// Package ctype implements Constellation's runtime type algebra: a closed
// sum of Unit, Bool, Int, Float, String, Option, List, Map, and Product.
package ctype

import (
	"fmt"
	"sort"
	"strings"
)

// Kind enumerates the closed set of type constructors.
type Kind string

const (
	KindUnit    Kind = "unit"
	KindBool    Kind = "bool"
	KindInt     Kind = "int"
	KindFloat   Kind = "float"
	KindString  Kind = "string"
	KindOption  Kind = "option"
	KindList    Kind = "list"
	KindMap     Kind = "map"
	KindProduct Kind = "product"
)

// CType is a closed sum type describing the runtime shape of a value.
// Equality between two CTypes is structural: compare with Equal, never with
// reflect.DeepEqual on the raw struct, since field population differs by Kind.
type CType struct {
	Kind Kind

	// Elem is the element type for Option and List.
	Elem *CType

	// Key/Value are the key and value types for Map.
	Key   *CType
	Value *CType

	// Fields holds the field→type mapping for Product. Semantically
	// unordered; canonical serialization (see internal/canon) sorts by key.
	Fields map[string]CType
}

// Unit, Bool, Int, Float, and String are the primitive type constants.
var (
	Unit   = CType{Kind: KindUnit}
	Bool   = CType{Kind: KindBool}
	Int    = CType{Kind: KindInt}
	Float  = CType{Kind: KindFloat}
	String = CType{Kind: KindString}
)

// OptionOf constructs Option<elem>.
func OptionOf(elem CType) CType {
	e := elem
	return CType{Kind: KindOption, Elem: &e}
}

// ListOf constructs List<elem>.
func ListOf(elem CType) CType {
	e := elem
	return CType{Kind: KindList, Elem: &e}
}

// MapOf constructs Map<key, value>.
func MapOf(key, value CType) CType {
	k, v := key, value
	return CType{Kind: KindMap, Key: &k, Value: &v}
}

// ProductOf constructs a Product type from a field→type map. The map is
// copied defensively; canonical ordering is applied only at serialization.
func ProductOf(fields map[string]CType) CType {
	copied := make(map[string]CType, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	return CType{Kind: KindProduct, Fields: copied}
}

// IsOption reports whether t is Option<_>, used by the JSON boundary to
// decide whether a missing Product field is tolerated (§4.2).
func (t CType) IsOption() bool {
	return t.Kind == KindOption
}

// Equal reports structural equality between two CTypes.
func (t CType) Equal(other CType) bool {
	if t.Kind != other.Kind {
		return false
	}
	switch t.Kind {
	case KindUnit, KindBool, KindInt, KindFloat, KindString:
		return true
	case KindOption, KindList:
		if t.Elem == nil || other.Elem == nil {
			return t.Elem == other.Elem
		}
		return t.Elem.Equal(*other.Elem)
	case KindMap:
		if (t.Key == nil) != (other.Key == nil) || (t.Value == nil) != (other.Value == nil) {
			return false
		}
		if t.Key != nil && !t.Key.Equal(*other.Key) {
			return false
		}
		if t.Value != nil && !t.Value.Equal(*other.Value) {
			return false
		}
		return true
	case KindProduct:
		if len(t.Fields) != len(other.Fields) {
			return false
		}
		for name, fieldType := range t.Fields {
			otherType, ok := other.Fields[name]
			if !ok || !fieldType.Equal(otherType) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String renders a human-readable (non-canonical) description, useful for
// error context and logging. The canonical wire form lives in internal/canon.
func (t CType) String() string {
	switch t.Kind {
	case KindUnit, KindBool, KindInt, KindFloat, KindString:
		return string(t.Kind)
	case KindOption:
		return fmt.Sprintf("option<%s>", t.elemString())
	case KindList:
		return fmt.Sprintf("list<%s>", t.elemString())
	case KindMap:
		return fmt.Sprintf("map<%s,%s>", typeStringOrUnknown(t.Key), typeStringOrUnknown(t.Value))
	case KindProduct:
		names := make([]string, 0, len(t.Fields))
		for name := range t.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, 0, len(names))
		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s:%s", name, t.Fields[name].String()))
		}
		return fmt.Sprintf("product{%s}", strings.Join(parts, ","))
	default:
		return "unknown"
	}
}

func (t CType) elemString() string {
	return typeStringOrUnknown(t.Elem)
}

func typeStringOrUnknown(t *CType) string {
	if t == nil {
		return "?"
	}
	return t.String()
}

// FieldNames returns the sorted field names of a Product type.
func (t CType) FieldNames() []string {
	names := make([]string, 0, len(t.Fields))
	for name := range t.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
