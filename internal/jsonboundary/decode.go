package jsonboundary

import (
	"encoding/json"
	"sort"

	"github.com/alexisbeaulieu97/constellation/internal/domain/ctype"
	"github.com/alexisbeaulieu97/constellation/internal/domain/cvalue"
	"github.com/alexisbeaulieu97/constellation/internal/domain/xerrors"
)

// Decode converts a JSON payload into a CValue of type t, selecting the
// eager/lazy/streaming strategy by payload size and enforcing limits.
func Decode(data []byte, t ctype.CType, limits Limits) (cvalue.CValue, error) {
	if limits.MaxBytes > 0 && len(data) > limits.MaxBytes {
		return cvalue.CValue{}, xerrors.New(xerrors.CodeTypeConversion, "payload exceeds max byte size").
			WithContext(map[string]interface{}{"maxBytes": limits.MaxBytes, "size": len(data)})
	}

	switch SelectStrategy(len(data)) {
	case StrategyEager:
		return decodeEager(data, t, limits)
	case StrategyLazy:
		lv, err := decodeLazy(data, t, limits)
		if err != nil {
			return cvalue.CValue{}, err
		}
		return lv.Materialize()
	default:
		return decodeStreaming(data, t, limits)
	}
}

// DecodeLazy exposes the lazy strategy's partial-access form directly, for
// callers that only need a handful of fields out of a large Product and
// want to avoid materializing the rest.
func DecodeLazy(data []byte, t ctype.CType, limits Limits) (*LazyValue, error) {
	return decodeLazy(data, t, limits)
}

// Encode serializes a CValue back to JSON, following the inverse of the
// number/Option policy: None becomes null, Some(v) becomes v's encoding,
// Map<String,_> becomes a JSON object.
func Encode(v cvalue.CValue) ([]byte, error) {
	generic, err := toGeneric(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}

func toGeneric(v cvalue.CValue) (interface{}, error) {
	switch v.Type.Kind {
	case ctype.KindUnit:
		return nil, nil
	case ctype.KindBool:
		return v.BoolV, nil
	case ctype.KindInt:
		return v.IntV, nil
	case ctype.KindFloat:
		return v.FloatV, nil
	case ctype.KindString:
		return v.StringV, nil
	case ctype.KindOption:
		if v.OptionV == nil {
			return nil, nil
		}
		return toGeneric(*v.OptionV)
	case ctype.KindList:
		out := make([]interface{}, len(v.ListV))
		for i, e := range v.ListV {
			g, err := toGeneric(e)
			if err != nil {
				return nil, err
			}
			out[i] = g
		}
		return out, nil
	case ctype.KindMap:
		out := make(map[string]interface{}, len(v.MapV))
		for _, e := range v.MapV {
			if e.Key.Type.Kind != ctype.KindString {
				return nil, xerrors.New(xerrors.CodeTypeConversion, "only Map<String,_> can be encoded to a json object")
			}
			g, err := toGeneric(e.Value)
			if err != nil {
				return nil, err
			}
			out[e.Key.StringV] = g
		}
		return out, nil
	case ctype.KindProduct:
		names := make([]string, 0, len(v.ProductV))
		for name := range v.ProductV {
			names = append(names, name)
		}
		sort.Strings(names)
		out := make(map[string]interface{}, len(names))
		for _, name := range names {
			g, err := toGeneric(v.ProductV[name])
			if err != nil {
				return nil, err
			}
			out[name] = g
		}
		return out, nil
	default:
		return nil, xerrors.New(xerrors.CodeTypeConversion, "unsupported CType kind for json encoding")
	}
}
