package ctype

import (
	"encoding/json"
	"fmt"
)

// wireCType is CType's JSON shape: a single-letter kind tag (the same
// discipline spec.md §4.4 mandates for structural hashing — "P for product,
// L for list ...") plus whichever of elem/key/value/fields that kind needs.
// Kept separate from internal/canon's EncodeType (a one-way hash string) to
// avoid an import cycle (canon already depends on ctype); the two encode the
// same tag discipline independently rather than sharing code.
type wireCType struct {
	Kind   string               `json:"kind"`
	Elem   *wireCType           `json:"elem,omitempty"`
	Key    *wireCType           `json:"key,omitempty"`
	Value  *wireCType           `json:"value,omitempty"`
	Fields map[string]wireCType `json:"fields,omitempty"`
}

func kindTag(k Kind) (string, error) {
	switch k {
	case KindUnit:
		return "U", nil
	case KindBool:
		return "B", nil
	case KindInt:
		return "I", nil
	case KindFloat:
		return "F", nil
	case KindString:
		return "S", nil
	case KindOption:
		return "O", nil
	case KindList:
		return "L", nil
	case KindMap:
		return "M", nil
	case KindProduct:
		return "P", nil
	default:
		return "", fmt.Errorf("ctype: unrecognized kind %q", k)
	}
}

func tagKind(tag string) (Kind, error) {
	switch tag {
	case "U":
		return KindUnit, nil
	case "B":
		return KindBool, nil
	case "I":
		return KindInt, nil
	case "F":
		return KindFloat, nil
	case "S":
		return KindString, nil
	case "O":
		return KindOption, nil
	case "L":
		return KindList, nil
	case "M":
		return KindMap, nil
	case "P":
		return KindProduct, nil
	default:
		return "", fmt.Errorf("ctype: unrecognized json kind tag %q", tag)
	}
}

func toWire(t CType) (wireCType, error) {
	tag, err := kindTag(t.Kind)
	if err != nil {
		return wireCType{}, err
	}
	w := wireCType{Kind: tag}
	switch t.Kind {
	case KindOption, KindList:
		if t.Elem == nil {
			return wireCType{}, fmt.Errorf("ctype: %s type missing element", tag)
		}
		elemWire, err := toWire(*t.Elem)
		if err != nil {
			return wireCType{}, err
		}
		w.Elem = &elemWire
	case KindMap:
		if t.Key == nil || t.Value == nil {
			return wireCType{}, fmt.Errorf("ctype: map type missing key or value")
		}
		keyWire, err := toWire(*t.Key)
		if err != nil {
			return wireCType{}, err
		}
		valWire, err := toWire(*t.Value)
		if err != nil {
			return wireCType{}, err
		}
		w.Key = &keyWire
		w.Value = &valWire
	case KindProduct:
		w.Fields = make(map[string]wireCType, len(t.Fields))
		for name, fieldType := range t.Fields {
			fw, err := toWire(fieldType)
			if err != nil {
				return wireCType{}, err
			}
			w.Fields[name] = fw
		}
	}
	return w, nil
}

func fromWire(w wireCType) (CType, error) {
	kind, err := tagKind(w.Kind)
	if err != nil {
		return CType{}, err
	}
	switch kind {
	case KindOption, KindList:
		if w.Elem == nil {
			return CType{}, fmt.Errorf("ctype: %s json missing elem", w.Kind)
		}
		elem, err := fromWire(*w.Elem)
		if err != nil {
			return CType{}, err
		}
		if kind == KindOption {
			return OptionOf(elem), nil
		}
		return ListOf(elem), nil
	case KindMap:
		if w.Key == nil || w.Value == nil {
			return CType{}, fmt.Errorf("ctype: map json missing key or value")
		}
		key, err := fromWire(*w.Key)
		if err != nil {
			return CType{}, err
		}
		value, err := fromWire(*w.Value)
		if err != nil {
			return CType{}, err
		}
		return MapOf(key, value), nil
	case KindProduct:
		fields := make(map[string]CType, len(w.Fields))
		for name, fw := range w.Fields {
			ft, err := fromWire(fw)
			if err != nil {
				return CType{}, err
			}
			fields[name] = ft
		}
		return ProductOf(fields), nil
	default:
		return CType{Kind: kind}, nil
	}
}

// MarshalJSON implements json.Marshaler using the tag-byte discipline
// spec.md §4.4 and §4.10 both require of CType's wire form.
func (t CType) MarshalJSON() ([]byte, error) {
	w, err := toWire(t)
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler, the inverse of MarshalJSON.
func (t *CType) UnmarshalJSON(data []byte) error {
	var w wireCType
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	parsed, err := fromWire(w)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
