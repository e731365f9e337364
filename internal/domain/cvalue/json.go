package cvalue

import (
	"encoding/json"
	"fmt"

	"github.com/alexisbeaulieu97/constellation/internal/domain/ctype"
)

// wireCValue is CValue's self-describing JSON shape: its own CType (whose
// MarshalJSON already carries the §4.4 tag discipline) plus a
// kind-discriminated payload, so a CValue decodes standalone without the
// caller supplying an expected type out of band — unlike the JSON boundary
// (internal/jsonboundary), which decodes against a type asserted from a
// DagSpec and therefore omits the type tag entirely.
type wireCValue struct {
	Type ctype.CType `json:"type"`

	Bool   *bool        `json:"bool,omitempty"`
	Int    *int64       `json:"int,omitempty"`
	Float  *float64     `json:"float,omitempty"`
	String *string      `json:"string,omitempty"`
	Option *wireCValue  `json:"option,omitempty"`
	List   []wireCValue `json:"list,omitempty"`
	Map    []wireMapEntry `json:"map,omitempty"`
	Product map[string]wireCValue `json:"product,omitempty"`
}

type wireMapEntry struct {
	Key   wireCValue `json:"key"`
	Value wireCValue `json:"value"`
}

func toWireValue(v CValue) (wireCValue, error) {
	w := wireCValue{Type: v.Type}
	switch v.Type.Kind {
	case ctype.KindUnit:
	case ctype.KindBool:
		b := v.BoolV
		w.Bool = &b
	case ctype.KindInt:
		i := v.IntV
		w.Int = &i
	case ctype.KindFloat:
		f := v.FloatV
		w.Float = &f
	case ctype.KindString:
		s := v.StringV
		w.String = &s
	case ctype.KindOption:
		if v.OptionV != nil {
			inner, err := toWireValue(*v.OptionV)
			if err != nil {
				return wireCValue{}, err
			}
			w.Option = &inner
		}
	case ctype.KindList:
		w.List = make([]wireCValue, len(v.ListV))
		for i, e := range v.ListV {
			ew, err := toWireValue(e)
			if err != nil {
				return wireCValue{}, err
			}
			w.List[i] = ew
		}
	case ctype.KindMap:
		w.Map = make([]wireMapEntry, len(v.MapV))
		for i, e := range v.MapV {
			kw, err := toWireValue(e.Key)
			if err != nil {
				return wireCValue{}, err
			}
			vw, err := toWireValue(e.Value)
			if err != nil {
				return wireCValue{}, err
			}
			w.Map[i] = wireMapEntry{Key: kw, Value: vw}
		}
	case ctype.KindProduct:
		w.Product = make(map[string]wireCValue, len(v.ProductV))
		for name, fv := range v.ProductV {
			fw, err := toWireValue(fv)
			if err != nil {
				return wireCValue{}, err
			}
			w.Product[name] = fw
		}
	default:
		return wireCValue{}, fmt.Errorf("cvalue: unsupported kind %q for json encoding", v.Type.Kind)
	}
	return w, nil
}

func fromWireValue(w wireCValue) (CValue, error) {
	v := CValue{Type: w.Type}
	switch w.Type.Kind {
	case ctype.KindUnit:
	case ctype.KindBool:
		if w.Bool != nil {
			v.BoolV = *w.Bool
		}
	case ctype.KindInt:
		if w.Int != nil {
			v.IntV = *w.Int
		}
	case ctype.KindFloat:
		if w.Float != nil {
			v.FloatV = *w.Float
		}
	case ctype.KindString:
		if w.String != nil {
			v.StringV = *w.String
		}
	case ctype.KindOption:
		if w.Option != nil {
			inner, err := fromWireValue(*w.Option)
			if err != nil {
				return CValue{}, err
			}
			v.OptionV = &inner
		}
	case ctype.KindList:
		v.ListV = make([]CValue, len(w.List))
		for i, ew := range w.List {
			e, err := fromWireValue(ew)
			if err != nil {
				return CValue{}, err
			}
			v.ListV[i] = e
		}
	case ctype.KindMap:
		v.MapV = make([]MapEntry, len(w.Map))
		for i, ew := range w.Map {
			k, err := fromWireValue(ew.Key)
			if err != nil {
				return CValue{}, err
			}
			val, err := fromWireValue(ew.Value)
			if err != nil {
				return CValue{}, err
			}
			v.MapV[i] = MapEntry{Key: k, Value: val}
		}
	case ctype.KindProduct:
		v.ProductV = make(map[string]CValue, len(w.Product))
		for name, fw := range w.Product {
			fv, err := fromWireValue(fw)
			if err != nil {
				return CValue{}, err
			}
			v.ProductV[name] = fv
		}
	default:
		return CValue{}, fmt.Errorf("cvalue: unsupported kind %q for json decoding", w.Type.Kind)
	}
	return v, nil
}

// MarshalJSON implements json.Marshaler, embedding CValue's own Type so the
// payload decodes without external type context (spec.md §4.10: "CValues
// carry a discriminator tag and their payload").
func (v CValue) MarshalJSON() ([]byte, error) {
	w, err := toWireValue(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler, the inverse of MarshalJSON.
func (v *CValue) UnmarshalJSON(data []byte) error {
	var w wireCValue
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	parsed, err := fromWireValue(w)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
