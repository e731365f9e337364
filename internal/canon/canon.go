// Package canon implements Constellation's canonicalization and structural
// hashing (C4): turning a DagSpec plus its resolved per-module call options
// into a deterministic byte string whose SHA-256 digest is stable across
// UUID regeneration but sensitive to every semantic change. Grounded on
// open-platform-model-cli's internal/inventory.ComputeManifestDigest, which
// sorts its inputs deterministically and leans on encoding/json's built-in
// sorted-map-key marshaling rather than a hand-rolled canonical writer.
package canon

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/alexisbeaulieu97/constellation/internal/domain/ctype"
	"github.com/alexisbeaulieu97/constellation/internal/domain/dagspec"
)

type canonDoc struct {
	Modules        []canonModule  `json:"modules"`
	Data           []canonData    `json:"data"`
	InEdges        []canonEdge    `json:"inEdges"`
	OutEdges       []canonEdge    `json:"outEdges"`
	OutputBindings []canonBinding `json:"outputBindings"`
}

type canonModule struct {
	Index             int             `json:"index"`
	Name              string          `json:"name"`
	Version           string          `json:"version"`
	Tags              []string        `json:"tags"`
	Consumes          []canonField    `json:"consumes"`
	Produces          []canonField    `json:"produces"`
	InputsTimeoutNs   int64           `json:"inputsTimeoutNs"`
	ModuleTimeoutNs   int64           `json:"moduleTimeoutNs"`
	DefinitionContext json.RawMessage `json:"definitionContext,omitempty"`
	Synthetic         bool            `json:"synthetic"`
	Options           *canonOptions   `json:"options,omitempty"`
}

type canonField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type canonData struct {
	Index           int             `json:"index"`
	Name            string          `json:"name"`
	Type            string          `json:"type"`
	InlineTransform *canonTransform `json:"inlineTransform,omitempty"`
}

type canonTransform struct {
	Kind      string                `json:"kind"`
	FieldName string                `json:"fieldName,omitempty"`
	Predicate *canonPredicate       `json:"predicate,omitempty"`
	Inputs    []canonTransformInput `json:"inputs"`
}

type canonTransformInput struct {
	Name      string `json:"name"`
	DataIndex int    `json:"dataIndex"`
}

type canonPredicate struct {
	Op       string        `json:"op"`
	Constant canonConstant `json:"constant"`
}

type canonConstant struct {
	Kind  string  `json:"kind"`
	Bool  bool    `json:"bool,omitempty"`
	Int   int64   `json:"int,omitempty"`
	Float float64 `json:"float,omitempty"`
	Str   string  `json:"str,omitempty"`
}

type canonEdge struct {
	DataIndex   int `json:"dataIndex"`
	ModuleIndex int `json:"moduleIndex"`
}

type canonBinding struct {
	Name      string `json:"name"`
	DataIndex int    `json:"dataIndex"`
}

type canonOptions struct {
	RetryCount          *int    `json:"retryCount,omitempty"`
	TimeoutNs           *int64  `json:"timeoutNs,omitempty"`
	DelayNs             *int64  `json:"delayNs,omitempty"`
	Backoff             *string `json:"backoff,omitempty"`
	CacheTTLNs          *int64  `json:"cacheTtlNs,omitempty"`
	CacheBackend        *string `json:"cacheBackend,omitempty"`
	ThrottleCount       *int    `json:"throttleCount,omitempty"`
	ThrottleWindowNs    *int64  `json:"throttleWindowNs,omitempty"`
	ConcurrencyLimit    *int    `json:"concurrencyLimit,omitempty"`
	OnError             *string `json:"onError,omitempty"`
	Lazy                *bool   `json:"lazy,omitempty"`
	PriorityResolved    *int    `json:"priorityResolved,omitempty"`
}

// CanonicalBytes produces the deterministic byte string for spec plus its
// resolved per-module call options. Encoding the options alongside the spec
// (rather than the DagSpec alone) is required for testable property 2: "a
// changed module call option value changes the structural hash."
func CanonicalBytes(spec dagspec.DagSpec, moduleOptions map[uuid.UUID]dagspec.ModuleCallOptions) ([]byte, error) {
	index := indexAssignment(spec)

	doc := canonDoc{}

	moduleIDs := make([]uuid.UUID, 0, len(spec.Modules))
	for id := range spec.Modules {
		moduleIDs = append(moduleIDs, id)
	}
	sort.Slice(moduleIDs, func(i, j int) bool { return index[moduleIDs[i]] < index[moduleIDs[j]] })

	for _, id := range moduleIDs {
		m := spec.Modules[id]
		cm := canonModule{
			Index:           index[id],
			Name:            m.Name,
			Version:         m.Version,
			Tags:            sortedCopy(m.Tags),
			Consumes:        canonFields(m.Consumes),
			Produces:        canonFields(m.Produces),
			InputsTimeoutNs: int64(m.InputsTimeout),
			ModuleTimeoutNs: int64(m.ModuleTimeout),
			Synthetic:       m.Synthetic,
		}
		if len(m.DefinitionContext) > 0 {
			raw, err := json.Marshal(m.DefinitionContext)
			if err != nil {
				return nil, fmt.Errorf("canon: encoding definitionContext for module %s: %w", m.Name, err)
			}
			cm.DefinitionContext = raw
		}
		if opts, ok := moduleOptions[id]; ok {
			cm.Options = encodeOptions(opts)
		}
		doc.Modules = append(doc.Modules, cm)
	}

	dataIDs := make([]uuid.UUID, 0, len(spec.Data))
	for id := range spec.Data {
		dataIDs = append(dataIDs, id)
	}
	sort.Slice(dataIDs, func(i, j int) bool { return index[dataIDs[i]] < index[dataIDs[j]] })

	for _, id := range dataIDs {
		d := spec.Data[id]
		cd := canonData{
			Index: index[id],
			Name:  d.Name,
			Type:  EncodeType(d.Type),
		}
		if d.InlineTransform != nil {
			cd.InlineTransform = encodeTransform(*d.InlineTransform, d.TransformInputs, index)
		}
		doc.Data = append(doc.Data, cd)
	}

	for _, e := range spec.InEdges {
		doc.InEdges = append(doc.InEdges, canonEdge{DataIndex: index[e.Data], ModuleIndex: index[e.Module]})
	}
	sort.Slice(doc.InEdges, func(i, j int) bool { return lessEdge(doc.InEdges[i], doc.InEdges[j]) })

	for _, e := range spec.OutEdges {
		doc.OutEdges = append(doc.OutEdges, canonEdge{DataIndex: index[e.Data], ModuleIndex: index[e.Module]})
	}
	sort.Slice(doc.OutEdges, func(i, j int) bool { return lessEdge(doc.OutEdges[i], doc.OutEdges[j]) })

	names := sortedCopy(spec.OutputNames)
	for _, name := range names {
		doc.OutputBindings = append(doc.OutputBindings, canonBinding{Name: name, DataIndex: index[spec.OutputBindings[name]]})
	}

	return json.Marshal(doc)
}

func lessEdge(a, b canonEdge) bool {
	if a.DataIndex != b.DataIndex {
		return a.DataIndex < b.DataIndex
	}
	return a.ModuleIndex < b.ModuleIndex
}

func canonFields(fields map[string]ctype.CType) []canonField {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]canonField, len(names))
	for i, name := range names {
		out[i] = canonField{Name: name, Type: EncodeType(fields[name])}
	}
	return out
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

func encodeTransform(t dagspec.InlineTransform, inputs map[string]uuid.UUID, index map[uuid.UUID]int) *canonTransform {
	ct := &canonTransform{Kind: string(t.Kind), FieldName: t.FieldName}
	if t.Predicate != nil {
		ct.Predicate = &canonPredicate{
			Op: string(t.Predicate.Op),
			Constant: canonConstant{
				Kind:  t.Predicate.Constant.Kind,
				Bool:  t.Predicate.Constant.Bool,
				Int:   t.Predicate.Constant.Int,
				Float: t.Predicate.Constant.Float,
				Str:   t.Predicate.Constant.Str,
			},
		}
	}
	names := make([]string, 0, len(inputs))
	for name := range inputs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ct.Inputs = append(ct.Inputs, canonTransformInput{Name: name, DataIndex: index[inputs[name]]})
	}
	return ct
}

func encodeOptions(o dagspec.ModuleCallOptions) *canonOptions {
	co := &canonOptions{
		RetryCount:       o.RetryCount,
		ConcurrencyLimit: o.ConcurrencyLimit,
		CacheBackend:     o.CacheBackend,
		ThrottleCount:    o.ThrottleCount,
		Lazy:             o.Lazy,
	}
	if o.Timeout != nil {
		ns := int64(*o.Timeout)
		co.TimeoutNs = &ns
	}
	if o.Delay != nil {
		ns := int64(*o.Delay)
		co.DelayNs = &ns
	}
	if o.Backoff != nil {
		s := string(*o.Backoff)
		co.Backoff = &s
	}
	if o.CacheTTL != nil {
		ns := int64(*o.CacheTTL)
		co.CacheTTLNs = &ns
	}
	if o.ThrottleWindow != nil {
		ns := int64(*o.ThrottleWindow)
		co.ThrottleWindowNs = &ns
	}
	if o.OnError != nil {
		s := string(*o.OnError)
		co.OnError = &s
	}
	if o.Priority != nil {
		r := o.Priority.Resolved()
		co.PriorityResolved = &r
	}
	return co
}

// StructuralHash returns the lowercase hex SHA-256 digest of spec's
// canonical encoding.
func StructuralHash(spec dagspec.DagSpec, moduleOptions map[uuid.UUID]dagspec.ModuleCallOptions) (string, error) {
	b, err := CanonicalBytes(spec, moduleOptions)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return fmt.Sprintf("%x", sum), nil
}
