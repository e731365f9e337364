package jsonboundary

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/alexisbeaulieu97/constellation/internal/domain/ctype"
	"github.com/alexisbeaulieu97/constellation/internal/domain/cvalue"
	"github.com/alexisbeaulieu97/constellation/internal/domain/xerrors"
)

// decodeEager parses the whole payload into a generic tree in one pass and
// converts it recursively. Used for payloads under the eager threshold,
// where the intermediate allocation is cheap relative to its simplicity.
func decodeEager(data []byte, t ctype.CType, limits Limits) (cvalue.CValue, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return cvalue.CValue{}, xerrors.Wrap(xerrors.CodeTypeConversion, "invalid json", err)
	}
	return genericToCValue(raw, t, limits, 0)
}

// genericToCValue converts a decoded json.Number/string/bool/nil/[]interface{}
// /map[string]interface{} tree into a CValue of type t, enforcing limits and
// the number/Option policy of spec.md §4.2.
func genericToCValue(raw interface{}, t ctype.CType, limits Limits, depth int) (cvalue.CValue, error) {
	if limits.MaxDepth > 0 && depth > limits.MaxDepth {
		return cvalue.CValue{}, xerrors.New(xerrors.CodeTypeConversion, "max nesting depth exceeded").
			WithContext(map[string]interface{}{"maxDepth": limits.MaxDepth})
	}

	switch t.Kind {
	case ctype.KindUnit:
		if raw != nil {
			return cvalue.CValue{}, mismatch(t, raw)
		}
		return cvalue.Unit, nil
	case ctype.KindBool:
		b, ok := raw.(bool)
		if !ok {
			return cvalue.CValue{}, mismatch(t, raw)
		}
		return cvalue.NewBool(b), nil
	case ctype.KindInt:
		n, ok := raw.(json.Number)
		if !ok {
			return cvalue.CValue{}, mismatch(t, raw)
		}
		i, err := n.Int64()
		if err != nil {
			return cvalue.CValue{}, xerrors.New(xerrors.CodeTypeConversion, "number is not a 64-bit integer").
				WithContext(map[string]interface{}{"value": n.String()})
		}
		return cvalue.NewInt(i), nil
	case ctype.KindFloat:
		n, ok := raw.(json.Number)
		if !ok {
			return cvalue.CValue{}, mismatch(t, raw)
		}
		f, err := n.Float64()
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return cvalue.CValue{}, xerrors.New(xerrors.CodeTypeConversion, "value is not a finite float").
				WithContext(map[string]interface{}{"value": n.String()})
		}
		return cvalue.NewFloat(f), nil
	case ctype.KindString:
		s, ok := raw.(string)
		if !ok {
			return cvalue.CValue{}, mismatch(t, raw)
		}
		return cvalue.NewString(s), nil
	case ctype.KindOption:
		elem := ctype.Unit
		if t.Elem != nil {
			elem = *t.Elem
		}
		if raw == nil {
			return cvalue.NewNone(elem), nil
		}
		inner, err := genericToCValue(raw, elem, limits, depth+1)
		if err != nil {
			return cvalue.CValue{}, err
		}
		return cvalue.NewSome(elem, inner), nil
	case ctype.KindList:
		arr, ok := raw.([]interface{})
		if !ok {
			return cvalue.CValue{}, mismatch(t, raw)
		}
		if limits.MaxArrayElements > 0 && len(arr) > limits.MaxArrayElements {
			return cvalue.CValue{}, xerrors.New(xerrors.CodeTypeConversion, "array exceeds max element count").
				WithContext(map[string]interface{}{"maxArrayElements": limits.MaxArrayElements, "length": len(arr)})
		}
		elem := ctype.Unit
		if t.Elem != nil {
			elem = *t.Elem
		}
		out := make([]cvalue.CValue, len(arr))
		for i, item := range arr {
			cv, err := genericToCValue(item, elem, limits, depth+1)
			if err != nil {
				return cvalue.CValue{}, err
			}
			out[i] = cv
		}
		return cvalue.NewList(elem, out), nil
	case ctype.KindMap:
		obj, ok := raw.(map[string]interface{})
		if !ok {
			return cvalue.CValue{}, mismatch(t, raw)
		}
		key, value := ctype.Unit, ctype.Unit
		if t.Key != nil {
			key = *t.Key
		}
		if t.Value != nil {
			value = *t.Value
		}
		if key.Kind != ctype.KindString {
			return cvalue.CValue{}, xerrors.New(xerrors.CodeTypeConversion, "json object keys only convert to Map<String,_>")
		}
		entries := make([]cvalue.MapEntry, 0, len(obj))
		for k, v := range obj {
			cv, err := genericToCValue(v, value, limits, depth+1)
			if err != nil {
				return cvalue.CValue{}, err
			}
			entries = append(entries, cvalue.MapEntry{Key: cvalue.NewString(k), Value: cv})
		}
		return cvalue.NewMap(key, value, entries), nil
	case ctype.KindProduct:
		obj, ok := raw.(map[string]interface{})
		if !ok {
			return cvalue.CValue{}, mismatch(t, raw)
		}
		fields := make(map[string]cvalue.CValue, len(t.Fields))
		for name, fieldType := range t.Fields {
			v, present := obj[name]
			if !present {
				if fieldType.IsOption() {
					fields[name] = cvalue.NewNone(*fieldType.Elem)
					continue
				}
				return cvalue.CValue{}, xerrors.New(xerrors.CodeInputValidation, "missing required product field").
					WithContext(map[string]interface{}{"field": name})
			}
			cv, err := genericToCValue(v, fieldType, limits, depth+1)
			if err != nil {
				return cvalue.CValue{}, err
			}
			fields[name] = cv
		}
		return cvalue.NewProduct(t.Fields, fields), nil
	default:
		return cvalue.CValue{}, mismatch(t, raw)
	}
}

func mismatch(t ctype.CType, raw interface{}) error {
	return xerrors.TypeMismatchError(t.String(), fmt.Sprintf("%T", raw), nil)
}
