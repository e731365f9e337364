package registry

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/constellation/internal/domain/cvalue"
	"github.com/alexisbeaulieu97/constellation/internal/domain/dagspec"
)

type stubModule struct {
	name    string
	version string
}

func (s stubModule) Name() string    { return s.name }
func (s stubModule) Version() string { return s.version }
func (s stubModule) Invoke(ctx context.Context, inputs map[string]cvalue.CValue) (map[string]cvalue.CValue, error) {
	return nil, nil
}

func TestRegisterAndLookup(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(stubModule{"double", "v1"}))

	impl, ok := r.Lookup("double", "v1")
	require.True(t, ok)
	assert.Equal(t, "double", impl.Name())

	_, ok = r.Lookup("double", "v2")
	assert.False(t, ok)
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(stubModule{"double", "v1"}))
	err := r.Register(stubModule{"double", "v1"})
	assert.Error(t, err)
}

func TestReplaceOverwrites(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(stubModule{"double", "v1"}))
	require.NoError(t, r.Replace(stubModule{"double", "v1"}))
}

func TestDeregister(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(stubModule{"double", "v1"}))
	assert.True(t, r.Deregister("double", "v1"))
	assert.False(t, r.Deregister("double", "v1"))
}

func TestNamesCaseSensitive(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(stubModule{"Double", "v1"}))
	require.NoError(t, r.Register(stubModule{"double", "v1"}))
	_, ok := r.Lookup("DOUBLE", "v1")
	assert.False(t, ok)
	assert.Equal(t, []string{"Double", "double"}, r.Names())
}

func TestInitModulesBindsAll(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(stubModule{"double", "v1"}))

	modID := uuid.New()
	spec := dagspec.DagSpec{
		Modules: map[uuid.UUID]dagspec.ModuleNodeSpec{
			modID: {ID: modID, Name: "double", Version: "v1"},
		},
	}

	bound, err := r.InitModules(spec)
	require.NoError(t, err)
	require.Contains(t, bound, modID)
	assert.Equal(t, "double", bound[modID].Name())
}

func TestInitModulesSkipsSynthetic(t *testing.T) {
	r := New()
	modID := uuid.New()
	spec := dagspec.DagSpec{
		Modules: map[uuid.UUID]dagspec.ModuleNodeSpec{
			modID: {ID: modID, Name: "branch", Version: "v1", Synthetic: true},
		},
	}
	bound, err := r.InitModules(spec)
	require.NoError(t, err)
	assert.NotContains(t, bound, modID)
}

func TestInitModulesFailsOnUnresolved(t *testing.T) {
	r := New()
	modID := uuid.New()
	spec := dagspec.DagSpec{
		Modules: map[uuid.UUID]dagspec.ModuleNodeSpec{
			modID: {ID: modID, Name: "missing", Version: "v1"},
		},
	}
	_, err := r.InitModules(spec)
	assert.Error(t, err)
}

func TestHashChangesWithRegisteredSet(t *testing.T) {
	r1 := New()
	require.NoError(t, r1.Register(stubModule{"double", "v1"}))

	r2 := New()
	require.NoError(t, r2.Register(stubModule{"double", "v1"}))
	require.NoError(t, r2.Register(stubModule{"inc", "v1"}))

	assert.NotEqual(t, r1.Hash(), r2.Hash())

	r3 := New()
	require.NoError(t, r3.Register(stubModule{"double", "v1"}))
	assert.Equal(t, r1.Hash(), r3.Hash())
}
