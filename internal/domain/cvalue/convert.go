package cvalue

import (
	"fmt"
	"reflect"

	"github.com/alexisbeaulieu97/constellation/internal/domain/ctype"
	"github.com/alexisbeaulieu97/constellation/internal/domain/xerrors"
)

// FromCValue drops v's embedded type, producing the unboxed RawValue form.
// Conversion is total for any well-formed CValue.
func FromCValue(v CValue) RawValue {
	switch v.Type.Kind {
	case ctype.KindUnit:
		return RUnit
	case ctype.KindBool:
		return RBool(v.BoolV)
	case ctype.KindInt:
		return RInt(v.IntV)
	case ctype.KindFloat:
		return RFloat(v.FloatV)
	case ctype.KindString:
		return RString(v.StringV)
	case ctype.KindOption:
		if v.OptionV == nil {
			return RNone()
		}
		return RSome(FromCValue(*v.OptionV))
	case ctype.KindList:
		return fromCValueList(v)
	case ctype.KindMap:
		entries := make([]RawMapEntry, len(v.MapV))
		for i, e := range v.MapV {
			entries[i] = RawMapEntry{Key: FromCValue(e.Key), Value: FromCValue(e.Value)}
		}
		return RMapOf(entries)
	case ctype.KindProduct:
		fields := make(map[string]RawValue, len(v.ProductV))
		for name, fv := range v.ProductV {
			fields[name] = FromCValue(fv)
		}
		return RProduct(fields)
	default:
		return RUnit
	}
}

func fromCValueList(v CValue) RawValue {
	elemKind := ctype.KindUnit
	if v.Type.Elem != nil {
		elemKind = v.Type.Elem.Kind
	}
	switch elemKind {
	case ctype.KindInt:
		vals := make([]int64, len(v.ListV))
		for i, e := range v.ListV {
			vals[i] = e.IntV
		}
		return RIntList(vals)
	case ctype.KindFloat:
		vals := make([]float64, len(v.ListV))
		for i, e := range v.ListV {
			vals[i] = e.FloatV
		}
		return RFloatList(vals)
	case ctype.KindBool:
		vals := make([]bool, len(v.ListV))
		for i, e := range v.ListV {
			vals[i] = e.BoolV
		}
		return RBoolList(vals)
	case ctype.KindString:
		vals := make([]string, len(v.ListV))
		for i, e := range v.ListV {
			vals[i] = e.StringV
		}
		return RStringList(vals)
	default:
		boxed := make([]RawValue, len(v.ListV))
		for i, e := range v.ListV {
			boxed[i] = FromCValue(e)
		}
		return RList(boxed)
	}
}

// ToCValue reconstructs a self-describing CValue from an unboxed RawValue
// using t, the CType recorded in the owning DagSpec's data-node metadata.
// It fails with a TypeMismatchError if r's shape disagrees with t.
func ToCValue(r RawValue, t ctype.CType) (CValue, error) {
	switch t.Kind {
	case ctype.KindUnit:
		if r.Kind != RKindUnit {
			return CValue{}, mismatch(t, r, nil)
		}
		return Unit, nil
	case ctype.KindBool:
		if r.Kind != RKindBool {
			return CValue{}, mismatch(t, r, nil)
		}
		return NewBool(r.BoolV), nil
	case ctype.KindInt:
		if r.Kind != RKindInt {
			return CValue{}, mismatch(t, r, nil)
		}
		return NewInt(r.IntV), nil
	case ctype.KindFloat:
		if r.Kind != RKindFloat {
			return CValue{}, mismatch(t, r, nil)
		}
		return NewFloat(r.FloatV), nil
	case ctype.KindString:
		if r.Kind != RKindString {
			return CValue{}, mismatch(t, r, nil)
		}
		return NewString(r.StringV), nil
	case ctype.KindOption:
		if r.Kind != RKindOption {
			return CValue{}, mismatch(t, r, nil)
		}
		elem := ctype.Unit
		if t.Elem != nil {
			elem = *t.Elem
		}
		if r.OptionV == nil {
			return NewNone(elem), nil
		}
		inner, err := ToCValue(*r.OptionV, elem)
		if err != nil {
			return CValue{}, err
		}
		return NewSome(elem, inner), nil
	case ctype.KindList:
		return toCValueList(r, t)
	case ctype.KindMap:
		if r.Kind != RKindMap {
			return CValue{}, mismatch(t, r, nil)
		}
		key, value := ctype.Unit, ctype.Unit
		if t.Key != nil {
			key = *t.Key
		}
		if t.Value != nil {
			value = *t.Value
		}
		entries := make([]MapEntry, len(r.MapV))
		for i, e := range r.MapV {
			k, err := ToCValue(e.Key, key)
			if err != nil {
				return CValue{}, err
			}
			v, err := ToCValue(e.Value, value)
			if err != nil {
				return CValue{}, err
			}
			entries[i] = MapEntry{Key: k, Value: v}
		}
		return NewMap(key, value, entries), nil
	case ctype.KindProduct:
		if r.Kind != RKindProduct {
			return CValue{}, mismatch(t, r, nil)
		}
		fields := make(map[string]CValue, len(t.Fields))
		for name, fieldType := range t.Fields {
			rawField, ok := r.ProductV[name]
			if !ok {
				if fieldType.IsOption() {
					fields[name] = NewNone(*fieldType.Elem)
					continue
				}
				return CValue{}, xerrors.New(xerrors.CodeNodeTypeMismatch, "product missing required field").
					WithContext(map[string]interface{}{"field": name})
			}
			fv, err := ToCValue(rawField, fieldType)
			if err != nil {
				return CValue{}, err
			}
			fields[name] = fv
		}
		return NewProduct(t.Fields, fields), nil
	default:
		return CValue{}, mismatch(t, r, nil)
	}
}

func toCValueList(r RawValue, t ctype.CType) (CValue, error) {
	elem := ctype.Unit
	if t.Elem != nil {
		elem = *t.Elem
	}
	switch r.Kind {
	case RKindIntList:
		if elem.Kind != ctype.KindInt {
			return CValue{}, mismatch(t, r, nil)
		}
		out := make([]CValue, len(r.IntListV))
		for i, v := range r.IntListV {
			out[i] = NewInt(v)
		}
		return NewList(elem, out), nil
	case RKindFloatList:
		if elem.Kind != ctype.KindFloat {
			return CValue{}, mismatch(t, r, nil)
		}
		out := make([]CValue, len(r.FloatListV))
		for i, v := range r.FloatListV {
			out[i] = NewFloat(v)
		}
		return NewList(elem, out), nil
	case RKindBoolList:
		if elem.Kind != ctype.KindBool {
			return CValue{}, mismatch(t, r, nil)
		}
		out := make([]CValue, len(r.BoolListV))
		for i, v := range r.BoolListV {
			out[i] = NewBool(v)
		}
		return NewList(elem, out), nil
	case RKindStringList:
		if elem.Kind != ctype.KindString {
			return CValue{}, mismatch(t, r, nil)
		}
		out := make([]CValue, len(r.StringListV))
		for i, v := range r.StringListV {
			out[i] = NewString(v)
		}
		return NewList(elem, out), nil
	case RKindList:
		out := make([]CValue, len(r.ListV))
		for i, v := range r.ListV {
			cv, err := ToCValue(v, elem)
			if err != nil {
				return CValue{}, err
			}
			out[i] = cv
		}
		return NewList(elem, out), nil
	default:
		return CValue{}, mismatch(t, r, nil)
	}
}

func mismatch(expected ctype.CType, actual RawValue, context map[string]interface{}) error {
	return xerrors.TypeMismatchError(expected.String(), string(actual.Kind), context)
}

// TypeOf derives the CType of a primitive, []T slice, map[string]T, or
// *T (treated as Option<T>) Go value via reflection. It is provided for
// test ergonomics and ad-hoc injection, not for the hot execution path
// (which always works from a CType already recorded in the DagSpec).
func TypeOf(goValue interface{}) (ctype.CType, error) {
	return typeOfReflect(reflect.ValueOf(goValue))
}

func typeOfReflect(rv reflect.Value) (ctype.CType, error) {
	if !rv.IsValid() {
		return ctype.Unit, nil
	}
	switch rv.Kind() {
	case reflect.Bool:
		return ctype.Bool, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return ctype.Int, nil
	case reflect.Float32, reflect.Float64:
		return ctype.Float, nil
	case reflect.String:
		return ctype.String, nil
	case reflect.Ptr:
		if rv.IsNil() {
			elemType, err := typeOfReflect(reflect.New(rv.Type().Elem()).Elem())
			if err != nil {
				return ctype.CType{}, err
			}
			return ctype.OptionOf(elemType), nil
		}
		elemType, err := typeOfReflect(rv.Elem())
		if err != nil {
			return ctype.CType{}, err
		}
		return ctype.OptionOf(elemType), nil
	case reflect.Slice, reflect.Array:
		elemGoType := rv.Type().Elem()
		elemType, err := typeOfReflect(reflect.New(elemGoType).Elem())
		if err != nil {
			return ctype.CType{}, err
		}
		return ctype.ListOf(elemType), nil
	case reflect.Map:
		keyType, err := typeOfReflect(reflect.New(rv.Type().Key()).Elem())
		if err != nil {
			return ctype.CType{}, err
		}
		valType, err := typeOfReflect(reflect.New(rv.Type().Elem()).Elem())
		if err != nil {
			return ctype.CType{}, err
		}
		return ctype.MapOf(keyType, valType), nil
	case reflect.Struct:
		fields := make(map[string]ctype.CType, rv.NumField())
		for i := 0; i < rv.NumField(); i++ {
			sf := rv.Type().Field(i)
			if !sf.IsExported() {
				continue
			}
			ft, err := typeOfReflect(rv.Field(i))
			if err != nil {
				return ctype.CType{}, err
			}
			fields[fieldName(sf)] = ft
		}
		return ctype.ProductOf(fields), nil
	default:
		return ctype.CType{}, fmt.Errorf("cvalue: cannot derive CType for kind %s", rv.Kind())
	}
}

func fieldName(sf reflect.StructField) string {
	if tag, ok := sf.Tag.Lookup("cvalue"); ok && tag != "" {
		return tag
	}
	return sf.Name
}

// Inject converts a Go value into a CValue according to its derived CType.
// It supports the same shapes as TypeOf: primitives, pointers (Option),
// slices (List), maps (Map), and structs (Product).
func Inject(goValue interface{}) (CValue, error) {
	t, err := TypeOf(goValue)
	if err != nil {
		return CValue{}, err
	}
	return injectReflect(reflect.ValueOf(goValue), t)
}

func injectReflect(rv reflect.Value, t ctype.CType) (CValue, error) {
	switch t.Kind {
	case ctype.KindUnit:
		return Unit, nil
	case ctype.KindBool:
		return NewBool(rv.Bool()), nil
	case ctype.KindInt:
		return NewInt(rv.Int()), nil
	case ctype.KindFloat:
		return NewFloat(rv.Float()), nil
	case ctype.KindString:
		return NewString(rv.String()), nil
	case ctype.KindOption:
		elem := ctype.Unit
		if t.Elem != nil {
			elem = *t.Elem
		}
		if !rv.IsValid() || rv.IsNil() {
			return NewNone(elem), nil
		}
		inner, err := injectReflect(rv.Elem(), elem)
		if err != nil {
			return CValue{}, err
		}
		return NewSome(elem, inner), nil
	case ctype.KindList:
		elem := ctype.Unit
		if t.Elem != nil {
			elem = *t.Elem
		}
		out := make([]CValue, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			cv, err := injectReflect(rv.Index(i), elem)
			if err != nil {
				return CValue{}, err
			}
			out[i] = cv
		}
		return NewList(elem, out), nil
	case ctype.KindMap:
		key, value := ctype.Unit, ctype.Unit
		if t.Key != nil {
			key = *t.Key
		}
		if t.Value != nil {
			value = *t.Value
		}
		entries := make([]MapEntry, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k, err := injectReflect(iter.Key(), key)
			if err != nil {
				return CValue{}, err
			}
			v, err := injectReflect(iter.Value(), value)
			if err != nil {
				return CValue{}, err
			}
			entries = append(entries, MapEntry{Key: k, Value: v})
		}
		return NewMap(key, value, entries), nil
	case ctype.KindProduct:
		fields := make(map[string]CValue, len(t.Fields))
		for i := 0; i < rv.NumField(); i++ {
			sf := rv.Type().Field(i)
			if !sf.IsExported() {
				continue
			}
			name := fieldName(sf)
			ft, ok := t.Fields[name]
			if !ok {
				continue
			}
			fv, err := injectReflect(rv.Field(i), ft)
			if err != nil {
				return CValue{}, err
			}
			fields[name] = fv
		}
		return NewProduct(t.Fields, fields), nil
	default:
		return CValue{}, fmt.Errorf("cvalue: cannot inject kind %s", t.Kind)
	}
}

// Extract converts a CValue back into a Go value of type T. Extraction is
// total when v's dynamic shape agrees with T's derived CType, and fails
// with a TypeMismatchError otherwise.
func Extract[T any](v CValue) (T, error) {
	var zero T
	target := reflect.New(reflect.TypeOf(zero)).Elem()
	if err := extractInto(v, target); err != nil {
		return zero, err
	}
	return target.Interface().(T), nil
}

func extractInto(v CValue, target reflect.Value) error {
	switch v.Type.Kind {
	case ctype.KindUnit:
		return nil
	case ctype.KindBool:
		if target.Kind() != reflect.Bool {
			return mismatchGo(v, target)
		}
		target.SetBool(v.BoolV)
		return nil
	case ctype.KindInt:
		if target.Kind() < reflect.Int || target.Kind() > reflect.Int64 {
			return mismatchGo(v, target)
		}
		target.SetInt(v.IntV)
		return nil
	case ctype.KindFloat:
		if target.Kind() != reflect.Float32 && target.Kind() != reflect.Float64 {
			return mismatchGo(v, target)
		}
		target.SetFloat(v.FloatV)
		return nil
	case ctype.KindString:
		if target.Kind() != reflect.String {
			return mismatchGo(v, target)
		}
		target.SetString(v.StringV)
		return nil
	case ctype.KindOption:
		if target.Kind() != reflect.Ptr {
			return mismatchGo(v, target)
		}
		if v.OptionV == nil {
			target.Set(reflect.Zero(target.Type()))
			return nil
		}
		elemPtr := reflect.New(target.Type().Elem())
		if err := extractInto(*v.OptionV, elemPtr.Elem()); err != nil {
			return err
		}
		target.Set(elemPtr)
		return nil
	case ctype.KindList:
		if target.Kind() != reflect.Slice {
			return mismatchGo(v, target)
		}
		slice := reflect.MakeSlice(target.Type(), len(v.ListV), len(v.ListV))
		for i, e := range v.ListV {
			if err := extractInto(e, slice.Index(i)); err != nil {
				return err
			}
		}
		target.Set(slice)
		return nil
	case ctype.KindMap:
		if target.Kind() != reflect.Map {
			return mismatchGo(v, target)
		}
		m := reflect.MakeMapWithSize(target.Type(), len(v.MapV))
		for _, e := range v.MapV {
			keyPtr := reflect.New(target.Type().Key()).Elem()
			if err := extractInto(e.Key, keyPtr); err != nil {
				return err
			}
			valPtr := reflect.New(target.Type().Elem()).Elem()
			if err := extractInto(e.Value, valPtr); err != nil {
				return err
			}
			m.SetMapIndex(keyPtr, valPtr)
		}
		target.Set(m)
		return nil
	case ctype.KindProduct:
		if target.Kind() != reflect.Struct {
			return mismatchGo(v, target)
		}
		for i := 0; i < target.NumField(); i++ {
			sf := target.Type().Field(i)
			if !sf.IsExported() {
				continue
			}
			name := fieldName(sf)
			fv, ok := v.ProductV[name]
			if !ok {
				continue
			}
			if err := extractInto(fv, target.Field(i)); err != nil {
				return err
			}
		}
		return nil
	default:
		return mismatchGo(v, target)
	}
}

func mismatchGo(v CValue, target reflect.Value) error {
	return xerrors.TypeMismatchError(v.Type.String(), target.Kind().String(), nil)
}
