package synthetic

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/constellation/internal/domain/ctype"
	"github.com/alexisbeaulieu97/constellation/internal/domain/cvalue"
	"github.com/alexisbeaulieu97/constellation/internal/domain/dagspec"
)

func branchNode() dagspec.ModuleNodeSpec {
	return dagspec.ModuleNodeSpec{
		ID:      uuid.New(),
		Name:    "pick",
		Version: "v1",
		Consumes: map[string]ctype.CType{
			branchInputCondition: ctype.Bool,
			branchInputWhenTrue:  ctype.Int,
			branchInputWhenFalse: ctype.Int,
		},
		Produces:          map[string]ctype.CType{branchOutputResult: ctype.Int},
		DefinitionContext: map[string]interface{}{"kind": KindBranch},
		Synthetic:         true,
	}
}

func TestIsBranchNode(t *testing.T) {
	assert.True(t, IsBranchNode(branchNode()))

	plain := dagspec.ModuleNodeSpec{DefinitionContext: map[string]interface{}{}}
	assert.False(t, IsBranchNode(plain))

	other := dagspec.ModuleNodeSpec{DefinitionContext: map[string]interface{}{"kind": "merge"}}
	assert.False(t, IsBranchNode(other))
}

func TestNewBranchModuleValidation(t *testing.T) {
	_, err := NewBranchModule(branchNode())
	require.NoError(t, err)

	missingCond := branchNode()
	delete(missingCond.Consumes, branchInputCondition)
	_, err = NewBranchModule(missingCond)
	assert.Error(t, err)

	mismatched := branchNode()
	mismatched.Consumes[branchInputWhenFalse] = ctype.String
	_, err = NewBranchModule(mismatched)
	assert.Error(t, err)

	wrongResult := branchNode()
	wrongResult.Produces[branchOutputResult] = ctype.String
	_, err = NewBranchModule(wrongResult)
	assert.Error(t, err)
}

func TestBranchModuleInvoke(t *testing.T) {
	impl, err := NewBranchModule(branchNode())
	require.NoError(t, err)

	out, err := impl.Invoke(context.Background(), map[string]cvalue.CValue{
		branchInputCondition: cvalue.NewBool(true),
		branchInputWhenTrue:  cvalue.NewInt(1),
		branchInputWhenFalse: cvalue.NewInt(2),
	})
	require.NoError(t, err)
	assert.True(t, cvalue.Equal(cvalue.NewInt(1), out[branchOutputResult]))

	out, err = impl.Invoke(context.Background(), map[string]cvalue.CValue{
		branchInputCondition: cvalue.NewBool(false),
		branchInputWhenTrue:  cvalue.NewInt(1),
		branchInputWhenFalse: cvalue.NewInt(2),
	})
	require.NoError(t, err)
	assert.True(t, cvalue.Equal(cvalue.NewInt(2), out[branchOutputResult]))
}

func TestReconstructSkipsUnknownSyntheticKind(t *testing.T) {
	unknownID := uuid.New()
	spec := dagspec.DagSpec{
		Modules: map[uuid.UUID]dagspec.ModuleNodeSpec{
			unknownID: {ID: unknownID, Synthetic: true, DefinitionContext: map[string]interface{}{"kind": "closure"}},
		},
	}
	out, err := Reconstruct(spec)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestReconstructBuildsBranchModules(t *testing.T) {
	node := branchNode()
	spec := dagspec.DagSpec{
		Modules: map[uuid.UUID]dagspec.ModuleNodeSpec{node.ID: node},
	}
	out, err := Reconstruct(spec)
	require.NoError(t, err)
	require.Contains(t, out, node.ID)
	assert.Equal(t, "pick", out[node.ID].Name())
}
