package jsonboundary

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/alexisbeaulieu97/constellation/internal/domain/ctype"
	"github.com/alexisbeaulieu97/constellation/internal/domain/cvalue"
	"github.com/alexisbeaulieu97/constellation/internal/domain/xerrors"
)

// LazyValue wraps an undecoded JSON fragment and materializes it into a
// CValue only on first access, caching the result. Used for payloads between
// the eager and streaming thresholds (spec.md §4.2: "wrap values;
// materialize on first access; cache after materialization").
type LazyValue struct {
	raw    json.RawMessage
	t      ctype.CType
	limits Limits
	depth  int

	mu       sync.Mutex
	cached   *cvalue.CValue
	cacheErr error
}

func newLazyValue(raw json.RawMessage, t ctype.CType, limits Limits, depth int) *LazyValue {
	return &LazyValue{raw: raw, t: t, limits: limits, depth: depth}
}

// decodeLazy parses only the payload's top-level structure via
// json.RawMessage deferral; nested fields/elements are materialized lazily
// through the returned LazyValue.
func decodeLazy(data []byte, t ctype.CType, limits Limits) (*LazyValue, error) {
	var raw json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeTypeConversion, "invalid json", err)
	}
	return newLazyValue(raw, t, limits, 0), nil
}

// Materialize fully converts the wrapped fragment to a CValue, recursively
// materializing every nested LazyValue, and caches the result so repeated
// calls are free.
func (l *LazyValue) Materialize() (cvalue.CValue, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cached != nil {
		return *l.cached, nil
	}
	if l.cacheErr != nil {
		return cvalue.CValue{}, l.cacheErr
	}

	var generic interface{}
	dec := json.NewDecoder(bytes.NewReader(l.raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		l.cacheErr = xerrors.Wrap(xerrors.CodeTypeConversion, "invalid json fragment", err)
		return cvalue.CValue{}, l.cacheErr
	}

	v, err := genericToCValue(generic, l.t, l.limits, l.depth)
	if err != nil {
		l.cacheErr = err
		return cvalue.CValue{}, err
	}
	l.cached = &v
	return v, nil
}

// Field returns a lazily-materialized sub-value for a Product field without
// forcing materialization of sibling fields. It still shares this
// LazyValue's top-level cache: once Materialize has cached the full value,
// subsequent Field calls read from it.
func (l *LazyValue) Field(name string) (cvalue.CValue, error) {
	if l.t.Kind != ctype.KindProduct {
		return cvalue.CValue{}, xerrors.New(xerrors.CodeTypeConversion, "Field called on non-Product LazyValue")
	}
	fieldType, ok := l.t.Fields[name]
	if !ok {
		return cvalue.CValue{}, xerrors.New(xerrors.CodeUndefinedVariable, "unknown product field").
			WithContext(map[string]interface{}{"field": name})
	}

	l.mu.Lock()
	cached := l.cached
	l.mu.Unlock()
	if cached != nil {
		if v, ok := cached.Field(name); ok {
			return v, nil
		}
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(l.raw, &obj); err != nil {
		return cvalue.CValue{}, xerrors.Wrap(xerrors.CodeTypeConversion, "invalid json object", err)
	}
	fragment, present := obj[name]
	if !present {
		if fieldType.IsOption() {
			return cvalue.NewNone(*fieldType.Elem), nil
		}
		return cvalue.CValue{}, xerrors.New(xerrors.CodeInputValidation, "missing required product field").
			WithContext(map[string]interface{}{"field": name})
	}
	return newLazyValue(fragment, fieldType, l.limits, l.depth+1).Materialize()
}
