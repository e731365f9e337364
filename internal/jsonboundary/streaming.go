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

// decodeStreaming converts payloads over the lazy threshold using an
// event-driven token walk (json.Decoder.Token) instead of building any
// intermediate generic tree, so a single oversized array or object is
// rejected as soon as a limit is crossed rather than after it is fully
// buffered in memory.
func decodeStreaming(data []byte, t ctype.CType, limits Limits) (cvalue.CValue, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	s := &streamState{dec: dec, limits: limits}
	v, err := s.value(t, 0)
	if err != nil {
		return cvalue.CValue{}, err
	}
	return v, nil
}

type streamState struct {
	dec    *json.Decoder
	limits Limits
}

func (s *streamState) value(t ctype.CType, depth int) (cvalue.CValue, error) {
	if s.limits.MaxDepth > 0 && depth > s.limits.MaxDepth {
		return cvalue.CValue{}, xerrors.New(xerrors.CodeTypeConversion, "max nesting depth exceeded").
			WithContext(map[string]interface{}{"maxDepth": s.limits.MaxDepth})
	}

	tok, err := s.dec.Token()
	if err != nil {
		return cvalue.CValue{}, xerrors.Wrap(xerrors.CodeTypeConversion, "invalid json", err)
	}

	switch t.Kind {
	case ctype.KindUnit:
		if tok != nil {
			return cvalue.CValue{}, mismatch(t, tok)
		}
		return cvalue.Unit, nil
	case ctype.KindBool:
		b, ok := tok.(bool)
		if !ok {
			return cvalue.CValue{}, mismatch(t, tok)
		}
		return cvalue.NewBool(b), nil
	case ctype.KindInt:
		n, ok := tok.(json.Number)
		if !ok {
			return cvalue.CValue{}, mismatch(t, tok)
		}
		i, err := n.Int64()
		if err != nil {
			return cvalue.CValue{}, xerrors.New(xerrors.CodeTypeConversion, "number is not a 64-bit integer").
				WithContext(map[string]interface{}{"value": n.String()})
		}
		return cvalue.NewInt(i), nil
	case ctype.KindFloat:
		n, ok := tok.(json.Number)
		if !ok {
			return cvalue.CValue{}, mismatch(t, tok)
		}
		f, err := n.Float64()
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return cvalue.CValue{}, xerrors.New(xerrors.CodeTypeConversion, "value is not a finite float").
				WithContext(map[string]interface{}{"value": n.String()})
		}
		return cvalue.NewFloat(f), nil
	case ctype.KindString:
		str, ok := tok.(string)
		if !ok {
			return cvalue.CValue{}, mismatch(t, tok)
		}
		return cvalue.NewString(str), nil
	case ctype.KindOption:
		elem := ctype.Unit
		if t.Elem != nil {
			elem = *t.Elem
		}
		if tok == nil {
			return cvalue.NewNone(elem), nil
		}
		inner, err := s.valueFromToken(tok, elem, depth+1)
		if err != nil {
			return cvalue.CValue{}, err
		}
		return cvalue.NewSome(elem, inner), nil
	case ctype.KindList:
		delim, ok := tok.(json.Delim)
		if !ok || delim != '[' {
			return cvalue.CValue{}, mismatch(t, tok)
		}
		elem := ctype.Unit
		if t.Elem != nil {
			elem = *t.Elem
		}
		var out []cvalue.CValue
		count := 0
		for s.dec.More() {
			count++
			if s.limits.MaxArrayElements > 0 && count > s.limits.MaxArrayElements {
				return cvalue.CValue{}, xerrors.New(xerrors.CodeTypeConversion, "array exceeds max element count").
					WithContext(map[string]interface{}{"maxArrayElements": s.limits.MaxArrayElements})
			}
			cv, err := s.value(elem, depth+1)
			if err != nil {
				return cvalue.CValue{}, err
			}
			out = append(out, cv)
		}
		if _, err := s.dec.Token(); err != nil { // consume ']'
			return cvalue.CValue{}, xerrors.Wrap(xerrors.CodeTypeConversion, "invalid json", err)
		}
		return cvalue.NewList(elem, out), nil
	case ctype.KindMap:
		delim, ok := tok.(json.Delim)
		if !ok || delim != '{' {
			return cvalue.CValue{}, mismatch(t, tok)
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
		var entries []cvalue.MapEntry
		for s.dec.More() {
			keyTok, err := s.dec.Token()
			if err != nil {
				return cvalue.CValue{}, xerrors.Wrap(xerrors.CodeTypeConversion, "invalid json", err)
			}
			keyStr, _ := keyTok.(string)
			v, err := s.value(value, depth+1)
			if err != nil {
				return cvalue.CValue{}, err
			}
			entries = append(entries, cvalue.MapEntry{Key: cvalue.NewString(keyStr), Value: v})
		}
		if _, err := s.dec.Token(); err != nil { // consume '}'
			return cvalue.CValue{}, xerrors.Wrap(xerrors.CodeTypeConversion, "invalid json", err)
		}
		return cvalue.NewMap(key, value, entries), nil
	case ctype.KindProduct:
		delim, ok := tok.(json.Delim)
		if !ok || delim != '{' {
			return cvalue.CValue{}, mismatch(t, tok)
		}
		seen := make(map[string]cvalue.CValue, len(t.Fields))
		for s.dec.More() {
			keyTok, err := s.dec.Token()
			if err != nil {
				return cvalue.CValue{}, xerrors.Wrap(xerrors.CodeTypeConversion, "invalid json", err)
			}
			name, _ := keyTok.(string)
			fieldType, known := t.Fields[name]
			if !known {
				if err := s.skipValue(); err != nil {
					return cvalue.CValue{}, err
				}
				continue
			}
			v, err := s.value(fieldType, depth+1)
			if err != nil {
				return cvalue.CValue{}, err
			}
			seen[name] = v
		}
		if _, err := s.dec.Token(); err != nil { // consume '}'
			return cvalue.CValue{}, xerrors.Wrap(xerrors.CodeTypeConversion, "invalid json", err)
		}
		for name, fieldType := range t.Fields {
			if _, ok := seen[name]; ok {
				continue
			}
			if fieldType.IsOption() {
				seen[name] = cvalue.NewNone(*fieldType.Elem)
				continue
			}
			return cvalue.CValue{}, xerrors.New(xerrors.CodeInputValidation, "missing required product field").
				WithContext(map[string]interface{}{"field": name})
		}
		return cvalue.NewProduct(t.Fields, seen), nil
	default:
		return cvalue.CValue{}, mismatch(t, tok)
	}
}

// valueFromToken handles an Option's inner value when the wrapping value()
// call already consumed the token that "is" the inner scalar (for
// composite inner types, the caller falls through to normal recursion via
// the decoder's own position, since Token() for '[' / '{' only consumes the
// opening delimiter).
func (s *streamState) valueFromToken(tok interface{}, t ctype.CType, depth int) (cvalue.CValue, error) {
	switch t.Kind {
	case ctype.KindBool:
		b, ok := tok.(bool)
		if !ok {
			return cvalue.CValue{}, mismatch(t, tok)
		}
		return cvalue.NewBool(b), nil
	case ctype.KindInt:
		n, ok := tok.(json.Number)
		if !ok {
			return cvalue.CValue{}, mismatch(t, tok)
		}
		i, err := n.Int64()
		if err != nil {
			return cvalue.CValue{}, xerrors.New(xerrors.CodeTypeConversion, "number is not a 64-bit integer")
		}
		return cvalue.NewInt(i), nil
	case ctype.KindFloat:
		n, ok := tok.(json.Number)
		if !ok {
			return cvalue.CValue{}, mismatch(t, tok)
		}
		f, err := n.Float64()
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return cvalue.CValue{}, xerrors.New(xerrors.CodeTypeConversion, "value is not a finite float")
		}
		return cvalue.NewFloat(f), nil
	case ctype.KindString:
		str, ok := tok.(string)
		if !ok {
			return cvalue.CValue{}, mismatch(t, tok)
		}
		return cvalue.NewString(str), nil
	case ctype.KindList, ctype.KindMap, ctype.KindProduct:
		delim, ok := tok.(json.Delim)
		if !ok {
			return cvalue.CValue{}, mismatch(t, tok)
		}
		return s.compositeFromDelim(delim, t, depth)
	default:
		return cvalue.CValue{}, mismatch(t, tok)
	}
}

// compositeFromDelim resumes decoding a composite value whose opening
// delimiter token has already been consumed (the Option-unwrap path).
func (s *streamState) compositeFromDelim(delim json.Delim, t ctype.CType, depth int) (cvalue.CValue, error) {
	switch t.Kind {
	case ctype.KindList:
		if delim != '[' {
			return cvalue.CValue{}, mismatch(t, delim)
		}
		elem := ctype.Unit
		if t.Elem != nil {
			elem = *t.Elem
		}
		var out []cvalue.CValue
		count := 0
		for s.dec.More() {
			count++
			if s.limits.MaxArrayElements > 0 && count > s.limits.MaxArrayElements {
				return cvalue.CValue{}, xerrors.New(xerrors.CodeTypeConversion, "array exceeds max element count")
			}
			cv, err := s.value(elem, depth+1)
			if err != nil {
				return cvalue.CValue{}, err
			}
			out = append(out, cv)
		}
		if _, err := s.dec.Token(); err != nil {
			return cvalue.CValue{}, xerrors.Wrap(xerrors.CodeTypeConversion, "invalid json", err)
		}
		return cvalue.NewList(elem, out), nil
	case ctype.KindMap:
		if delim != '{' {
			return cvalue.CValue{}, mismatch(t, delim)
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
		var entries []cvalue.MapEntry
		for s.dec.More() {
			keyTok, err := s.dec.Token()
			if err != nil {
				return cvalue.CValue{}, xerrors.Wrap(xerrors.CodeTypeConversion, "invalid json", err)
			}
			keyStr, _ := keyTok.(string)
			v, err := s.value(value, depth+1)
			if err != nil {
				return cvalue.CValue{}, err
			}
			entries = append(entries, cvalue.MapEntry{Key: cvalue.NewString(keyStr), Value: v})
		}
		if _, err := s.dec.Token(); err != nil {
			return cvalue.CValue{}, xerrors.Wrap(xerrors.CodeTypeConversion, "invalid json", err)
		}
		return cvalue.NewMap(key, value, entries), nil
	case ctype.KindProduct:
		if delim != '{' {
			return cvalue.CValue{}, mismatch(t, delim)
		}
		seen := make(map[string]cvalue.CValue, len(t.Fields))
		for s.dec.More() {
			keyTok, err := s.dec.Token()
			if err != nil {
				return cvalue.CValue{}, xerrors.Wrap(xerrors.CodeTypeConversion, "invalid json", err)
			}
			name, _ := keyTok.(string)
			fieldType, known := t.Fields[name]
			if !known {
				if err := s.skipValue(); err != nil {
					return cvalue.CValue{}, err
				}
				continue
			}
			v, err := s.value(fieldType, depth+1)
			if err != nil {
				return cvalue.CValue{}, err
			}
			seen[name] = v
		}
		if _, err := s.dec.Token(); err != nil {
			return cvalue.CValue{}, xerrors.Wrap(xerrors.CodeTypeConversion, "invalid json", err)
		}
		for name, fieldType := range t.Fields {
			if _, ok := seen[name]; ok {
				continue
			}
			if fieldType.IsOption() {
				seen[name] = cvalue.NewNone(*fieldType.Elem)
				continue
			}
			return cvalue.CValue{}, xerrors.New(xerrors.CodeInputValidation, "missing required product field").
				WithContext(map[string]interface{}{"field": name})
		}
		return cvalue.NewProduct(t.Fields, seen), nil
	default:
		return cvalue.CValue{}, fmt.Errorf("jsonboundary: unsupported option-wrapped composite kind %s", t.Kind)
	}
}

// skipValue discards one JSON value (scalar or composite) for an unknown
// object key.
func (s *streamState) skipValue() error {
	tok, err := s.dec.Token()
	if err != nil {
		return xerrors.Wrap(xerrors.CodeTypeConversion, "invalid json", err)
	}
	if _, ok := tok.(json.Delim); !ok {
		return nil
	}
	depth := 1
	for depth > 0 {
		tok, err := s.dec.Token()
		if err != nil {
			return xerrors.Wrap(xerrors.CodeTypeConversion, "invalid json", err)
		}
		if v, ok := tok.(json.Delim); ok {
			switch v {
			case '[', '{':
				depth++
			case ']', '}':
				depth--
			}
		}
	}
	return nil
}
