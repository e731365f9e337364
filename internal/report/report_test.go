package report

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/constellation/internal/domain/ctype"
	"github.com/alexisbeaulieu97/constellation/internal/domain/cvalue"
	"github.com/alexisbeaulieu97/constellation/internal/domain/dagspec"
	"github.com/alexisbeaulieu97/constellation/internal/domain/image"
	"github.com/alexisbeaulieu97/constellation/internal/domain/suspension"
	"github.com/alexisbeaulieu97/constellation/internal/engine"
)

// funcModule adapts a plain function to image.ModuleImpl, mirroring the test
// double used by internal/engine and internal/suspendstore.
type funcModule struct {
	name, version string
	fn            func(ctx context.Context, inputs map[string]cvalue.CValue) (map[string]cvalue.CValue, error)
}

func (f *funcModule) Name() string    { return f.name }
func (f *funcModule) Version() string { return f.version }
func (f *funcModule) Invoke(ctx context.Context, inputs map[string]cvalue.CValue) (map[string]cvalue.CValue, error) {
	return f.fn(ctx, inputs)
}

// doubleIncSpec builds spec.md §8's S1/S2 fixture: double(x)->y, inc(y)->z,
// declared output z.
func doubleIncSpec() (dagspec.DagSpec, uuid.UUID, uuid.UUID, uuid.UUID, uuid.UUID, uuid.UUID) {
	doubleID, incID := uuid.New(), uuid.New()
	xID, yID, zID := uuid.New(), uuid.New(), uuid.New()

	spec := dagspec.DagSpec{
		Modules: map[uuid.UUID]dagspec.ModuleNodeSpec{
			doubleID: {ID: doubleID, Name: "double", Version: "v1",
				Consumes: map[string]ctype.CType{"x": ctype.Int},
				Produces: map[string]ctype.CType{"y": ctype.Int}},
			incID: {ID: incID, Name: "inc", Version: "v1",
				Consumes: map[string]ctype.CType{"y": ctype.Int},
				Produces: map[string]ctype.CType{"z": ctype.Int}},
		},
		Data: map[uuid.UUID]dagspec.DataNodeSpec{
			xID: {ID: xID, Name: "x", Type: ctype.Int},
			yID: {ID: yID, Name: "y", Type: ctype.Int},
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
	return spec, doubleID, incID, xID, yID, zID
}

func doubleImpl() *funcModule {
	return &funcModule{name: "double", version: "v1", fn: func(_ context.Context, in map[string]cvalue.CValue) (map[string]cvalue.CValue, error) {
		return map[string]cvalue.CValue{"y": cvalue.NewInt(in["x"].IntV * 2)}, nil
	}}
}

func incImpl() *funcModule {
	return &funcModule{name: "inc", version: "v1", fn: func(_ context.Context, in map[string]cvalue.CValue) (map[string]cvalue.CValue, error) {
		return map[string]cvalue.CValue{"z": cvalue.NewInt(in["y"].IntV + 1)}, nil
	}}
}

func runDoubleInc(t *testing.T, x int64) (*engine.Result, dagspec.DagSpec) {
	t.Helper()
	spec, doubleID, incID, _, _, _ := doubleIncSpec()
	sched := engine.New(engine.Config{
		Spec:     spec,
		Impls:    map[uuid.UUID]image.ModuleImpl{doubleID: doubleImpl(), incID: incImpl()},
		Defaults: dagspec.DefaultResolvedOptions,
	})
	res, err := sched.Run(context.Background(), map[string]cvalue.CValue{"x": cvalue.NewInt(x)})
	require.NoError(t, err)
	return res, spec
}

func TestBuildMinimalReportCarriesNoOptionalSections(t *testing.T) {
	res, spec := runDoubleInc(t, 5)

	sig := Build(spec, res, nil, ExecutionOptions{})

	assert.Equal(t, StatusCompleted, sig.Status)
	assert.Equal(t, int64(11), sig.Outputs["z"].IntV)
	assert.Equal(t, 0, sig.ResumptionCount)
	assert.Nil(t, sig.SuspendedState)
	assert.Nil(t, sig.Metadata.NodeTimings)
	assert.Zero(t, sig.Metadata.TotalDuration)
	assert.Nil(t, sig.Metadata.ResolutionSources)
	assert.Nil(t, sig.Metadata.Provenance)
	assert.Nil(t, sig.Metadata.BlockedGraph)
}

func TestBuildIncludeTimingsPopulatesEveryInvokedModule(t *testing.T) {
	res, spec := runDoubleInc(t, 5)

	sig := Build(spec, res, nil, ExecutionOptions{IncludeTimings: true})

	require.Len(t, sig.Metadata.NodeTimings, 2)
	names := []string{sig.Metadata.NodeTimings[0].Name, sig.Metadata.NodeTimings[1].Name}
	assert.Equal(t, []string{"double", "inc"}, names)
	assert.GreaterOrEqual(t, sig.Metadata.TotalDuration, sig.Metadata.NodeTimings[0].Duration)
}

func TestBuildIncludeResolutionSourcesTagsEachOrigin(t *testing.T) {
	spec, doubleID, incID, xID, yID, zID := doubleIncSpec()
	sched := engine.New(engine.Config{
		Spec:     spec,
		Impls:    map[uuid.UUID]image.ModuleImpl{doubleID: doubleImpl(), incID: incImpl()},
		Defaults: dagspec.DefaultResolvedOptions,
	})
	res, err := sched.Run(context.Background(), map[string]cvalue.CValue{"x": cvalue.NewInt(3)})
	require.NoError(t, err)

	sig := Build(spec, res, nil, ExecutionOptions{IncludeResolutionSources: true, IncludeProvenance: true})

	assert.Equal(t, ResolutionSourceInput, sig.Metadata.ResolutionSources[xID])
	assert.Equal(t, ResolutionSourceModule, sig.Metadata.ResolutionSources[yID])
	assert.Equal(t, ResolutionSourceModule, sig.Metadata.ResolutionSources[zID])
	assert.Equal(t, "double", sig.Metadata.Provenance["y"])
	assert.Equal(t, "inc", sig.Metadata.Provenance["z"])
}

func TestBuildIncludeResolutionSourcesTagsResumedSnapshotValues(t *testing.T) {
	spec, doubleID, incID, _, yID, _ := doubleIncSpec()
	sched := engine.New(engine.Config{
		Spec:     spec,
		Impls:    map[uuid.UUID]image.ModuleImpl{doubleID: doubleImpl(), incID: incImpl()},
		Defaults: dagspec.DefaultResolvedOptions,
	})

	preload := engine.Preload{
		Values:         map[uuid.UUID]cvalue.CValue{yID: cvalue.NewInt(10)},
		ModuleStatuses: map[uuid.UUID]suspension.ModuleStatus{doubleID: suspension.StatusCompleted},
	}
	res, err := sched.RunResumed(context.Background(), map[string]cvalue.CValue{}, preload)
	require.NoError(t, err)
	require.Equal(t, engine.OutcomeCompleted, res.Outcome)

	snapshot := &suspension.SuspendedExecution{
		ComputedValues: map[uuid.UUID]cvalue.CValue{yID: cvalue.NewInt(10)},
		ResumptionCount: 1,
	}

	sig := Build(spec, res, snapshot, ExecutionOptions{IncludeResolutionSources: true})

	assert.Equal(t, ResolutionSourceModule, sig.Metadata.ResolutionSources[yID])
	assert.Equal(t, 1, sig.ResumptionCount)
	assert.Same(t, snapshot, sig.SuspendedState)
}

func TestBuildIncludeBlockedGraphListsUnterminatedModules(t *testing.T) {
	spec, doubleID, incID, _, _, _ := doubleIncSpec()
	sched := engine.New(engine.Config{
		Spec:     spec,
		Impls:    map[uuid.UUID]image.ModuleImpl{doubleID: doubleImpl(), incID: incImpl()},
		Defaults: dagspec.DefaultResolvedOptions,
	})

	res, err := sched.Run(context.Background(), map[string]cvalue.CValue{})
	require.NoError(t, err)
	require.Equal(t, engine.OutcomeSuspended, res.Outcome)

	sig := Build(spec, res, nil, ExecutionOptions{IncludeBlockedGraph: true})

	// Neither module ever became dispatchable: double waits directly on the
	// missing top-level input x, inc transitively waits on y (which double
	// never produced).
	require.Len(t, sig.Metadata.BlockedGraph, 2)
	assert.Equal(t, "double", sig.Metadata.BlockedGraph[0].Name)
	assert.Equal(t, []string{"x"}, sig.Metadata.BlockedGraph[0].WaitingOnData)
	assert.Equal(t, "inc", sig.Metadata.BlockedGraph[1].Name)
	assert.Equal(t, []string{"y"}, sig.Metadata.BlockedGraph[1].WaitingOnData)
}

func TestFirstDomainErrorFindsClassifiedError(t *testing.T) {
	spec, doubleID, incID, _, _, _ := doubleIncSpec()
	failing := &funcModule{name: "double", version: "v1", fn: func(_ context.Context, _ map[string]cvalue.CValue) (map[string]cvalue.CValue, error) {
		return nil, assert.AnError
	}}
	sched := engine.New(engine.Config{
		Spec:     spec,
		Impls:    map[uuid.UUID]image.ModuleImpl{doubleID: failing, incID: incImpl()},
		Defaults: dagspec.ResolvedOptions{OnError: dagspec.OnErrorFail},
	})
	res, err := sched.Run(context.Background(), map[string]cvalue.CValue{"x": cvalue.NewInt(1)})
	require.NoError(t, err)
	require.Equal(t, engine.OutcomeFailed, res.Outcome)

	sig := Build(spec, res, nil, ExecutionOptions{})
	_, ok := sig.FirstDomainError()
	assert.True(t, ok)
	assert.NotEmpty(t, sig.Errors)
}
