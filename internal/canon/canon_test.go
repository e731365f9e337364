package canon

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/constellation/internal/domain/ctype"
	"github.com/alexisbeaulieu97/constellation/internal/domain/dagspec"
)

// buildDoubleInc constructs the S1 DagSpec fixture with fresh UUIDs every
// call, optionally overriding y's type.
func buildDoubleInc(yType ctype.CType) dagspec.DagSpec {
	doubleID, incID := uuid.New(), uuid.New()
	xID, yID, zID := uuid.New(), uuid.New(), uuid.New()

	return dagspec.DagSpec{
		Modules: map[uuid.UUID]dagspec.ModuleNodeSpec{
			doubleID: {ID: doubleID, Name: "double", Version: "v1",
				Consumes: map[string]ctype.CType{"x": ctype.Int},
				Produces: map[string]ctype.CType{"y": yType}},
			incID: {ID: incID, Name: "inc", Version: "v1",
				Consumes: map[string]ctype.CType{"y": yType},
				Produces: map[string]ctype.CType{"z": ctype.Int}},
		},
		Data: map[uuid.UUID]dagspec.DataNodeSpec{
			xID: {ID: xID, Name: "x", Type: ctype.Int},
			yID: {ID: yID, Name: "y", Type: yType},
			zID: {ID: zID, Name: "z", Type: ctype.Int},
		},
		InEdges: []dagspec.InEdge{
			{Data: xID, Module: doubleID},
			{Data: yID, Module: incID},
		},
		OutEdges: []dagspec.OutEdge{
			{Module: doubleID, Data: yID},
			{Module: incID, Data: zID},
		},
		OutputNames:    []string{"z"},
		OutputBindings: map[string]uuid.UUID{"z": zID},
	}
}

func TestStructuralHashInvariantUnderUUIDReshuffling(t *testing.T) {
	specA := buildDoubleInc(ctype.Int)
	specB := buildDoubleInc(ctype.Int)

	hashA, err := StructuralHash(specA, nil)
	require.NoError(t, err)
	hashB, err := StructuralHash(specB, nil)
	require.NoError(t, err)

	assert.Equal(t, hashA, hashB, "structural hash must not depend on UUID choice")
}

func TestStructuralHashSensitiveToTypeChange(t *testing.T) {
	specInt := buildDoubleInc(ctype.Int)
	specFloat := buildDoubleInc(ctype.Float)

	hashInt, err := StructuralHash(specInt, nil)
	require.NoError(t, err)
	hashFloat, err := StructuralHash(specFloat, nil)
	require.NoError(t, err)

	assert.NotEqual(t, hashInt, hashFloat, "changing y's CType must change the structural hash")
}

func TestStructuralHashSensitiveToModuleOption(t *testing.T) {
	spec := buildDoubleInc(ctype.Int)
	var doubleID uuid.UUID
	for id, m := range spec.Modules {
		if m.Name == "double" {
			doubleID = id
		}
	}

	hashWithout, err := StructuralHash(spec, nil)
	require.NoError(t, err)

	retry := 3
	hashWith, err := StructuralHash(spec, map[uuid.UUID]dagspec.ModuleCallOptions{
		doubleID: {RetryCount: &retry},
	})
	require.NoError(t, err)

	assert.NotEqual(t, hashWithout, hashWith, "a module call option value must change the structural hash")
}

func TestStructuralHashSensitiveToEdgeChange(t *testing.T) {
	spec := buildDoubleInc(ctype.Int)
	hashBefore, err := StructuralHash(spec, nil)
	require.NoError(t, err)

	// Add a redundant edge from x to inc and declare x in inc's Consumes
	// (spec stays acyclic since x is a top-level input) — the edge set and
	// inc's Consumes change, and the hash must change with them.
	var incID, xID uuid.UUID
	for id, m := range spec.Modules {
		if m.Name == "inc" {
			incID = id
		}
	}
	for id, d := range spec.Data {
		if d.Name == "x" {
			xID = id
		}
	}
	spec.Modules[incID] = dagspec.ModuleNodeSpec{
		ID: incID, Name: "inc", Version: "v1",
		Consumes: map[string]ctype.CType{"y": ctype.Int, "x": ctype.Int},
		Produces: map[string]ctype.CType{"z": ctype.Int},
	}
	spec.InEdges = append(spec.InEdges, dagspec.InEdge{Data: xID, Module: incID})

	hashAfter, err := StructuralHash(spec, nil)
	require.NoError(t, err)
	assert.NotEqual(t, hashBefore, hashAfter)
}

func TestEncodeTypeTagDiscipline(t *testing.T) {
	assert.Equal(t, "I", EncodeType(ctype.Int))
	assert.Equal(t, "O(I)", EncodeType(ctype.OptionOf(ctype.Int)))
	assert.Equal(t, "L(S)", EncodeType(ctype.ListOf(ctype.String)))
	assert.Equal(t, "M(S,I)", EncodeType(ctype.MapOf(ctype.String, ctype.Int)))
	assert.Equal(t, "P{a:I,b:S}", EncodeType(ctype.ProductOf(map[string]ctype.CType{"b": ctype.String, "a": ctype.Int})))
}
