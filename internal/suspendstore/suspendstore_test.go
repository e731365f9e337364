package suspendstore

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/constellation/internal/canon"
	"github.com/alexisbeaulieu97/constellation/internal/domain/ctype"
	"github.com/alexisbeaulieu97/constellation/internal/domain/cvalue"
	"github.com/alexisbeaulieu97/constellation/internal/domain/dagspec"
	"github.com/alexisbeaulieu97/constellation/internal/domain/image"
	"github.com/alexisbeaulieu97/constellation/internal/domain/suspension"
	"github.com/alexisbeaulieu97/constellation/internal/domain/xerrors"
	"github.com/alexisbeaulieu97/constellation/internal/engine"
)

// funcModule adapts a plain function to image.ModuleImpl for test fixtures,
// mirroring internal/engine's test double.
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

func TestEncodeDecodeRoundTrips(t *testing.T) {
	spec, doubleID, incID, xID, yID, _ := doubleIncSpec()
	hash, err := canon.StructuralHash(spec, nil)
	require.NoError(t, err)

	priority := dagspec.CustomPriority(3)
	original := suspension.SuspendedExecution{
		ExecutionID:     uuid.New(),
		StructuralHash:  hash,
		ResumptionCount: 2,
		Spec:            spec,
		ModuleOptions: map[uuid.UUID]dagspec.ModuleCallOptions{
			doubleID: {Priority: &priority},
		},
		ProvidedInputs: map[string]cvalue.CValue{"x": cvalue.NewInt(3)},
		ComputedValues: map[uuid.UUID]cvalue.CValue{
			xID: cvalue.NewInt(3),
			yID: cvalue.NewInt(6),
		},
		ModuleStatuses: map[uuid.UUID]suspension.ModuleStatus{
			doubleID: suspension.StatusCompleted,
			incID:    suspension.StatusPending,
		},
		MissingInputs: nil,
	}

	data, err := Encode(original)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, original.ExecutionID, decoded.ExecutionID)
	assert.Equal(t, original.StructuralHash, decoded.StructuralHash)
	assert.Equal(t, original.ResumptionCount, decoded.ResumptionCount)
	assert.Equal(t, original.ProvidedInputs, decoded.ProvidedInputs)
	assert.Equal(t, original.ComputedValues, decoded.ComputedValues)
	assert.Equal(t, original.ModuleStatuses, decoded.ModuleStatuses)
	require.NotNil(t, decoded.ModuleOptions[doubleID].Priority)
	assert.Equal(t, 3, decoded.ModuleOptions[doubleID].Priority.Resolved())

	reEncoded, err := Encode(decoded)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(reEncoded))
}

func TestStoreSaveLoadDeleteList(t *testing.T) {
	s := New()
	spec, _, _, _, _, _ := doubleIncSpec()
	hash, err := canon.StructuralHash(spec, nil)
	require.NoError(t, err)

	snap := suspension.SuspendedExecution{ExecutionID: uuid.New(), StructuralHash: hash, Spec: spec}
	handle, err := s.Save(snap)
	require.NoError(t, err)
	assert.Equal(t, snap.ExecutionID, handle)

	got, ok := s.Load(handle)
	require.True(t, ok)
	assert.Equal(t, hash, got.StructuralHash)

	assert.Len(t, s.List(Filter{}), 1)
	assert.Len(t, s.List(Filter{StructuralHash: "nope"}), 0)

	require.True(t, s.Delete(handle))
	_, ok = s.Load(handle)
	assert.False(t, ok)
}

func TestResumeCompletesWithAdditionalInput(t *testing.T) {
	spec, doubleID, incID, _, _, _ := doubleIncSpec()
	hash, err := canon.StructuralHash(spec, nil)
	require.NoError(t, err)

	store := New()
	executionID := uuid.New()
	snap := suspension.SuspendedExecution{
		ExecutionID:    executionID,
		StructuralHash: hash,
		Spec:           spec,
		ProvidedInputs: map[string]cvalue.CValue{},
		ComputedValues: map[uuid.UUID]cvalue.CValue{},
		ModuleStatuses: map[uuid.UUID]suspension.ModuleStatus{
			doubleID: suspension.StatusPending,
			incID:    suspension.StatusPending,
		},
		MissingInputs: []string{"x"},
	}
	_, err = store.Save(snap)
	require.NoError(t, err)

	resumer := NewResumer(store)
	impls := map[uuid.UUID]image.ModuleImpl{doubleID: doubleImpl(), incID: incImpl()}

	result, err := resumer.Resume(context.Background(), executionID,
		map[string]cvalue.CValue{"x": cvalue.NewInt(3)}, nil, impls, dagspec.DefaultResolvedOptions)
	require.NoError(t, err)
	assert.Equal(t, engine.OutcomeCompleted, result.Outcome)
	assert.Equal(t, int64(7), result.Outputs["z"].IntV)

	_, ok := store.Load(executionID)
	assert.False(t, ok, "a completed resume should clear its snapshot")
}

func TestResumeRejectsChangedStructuralHash(t *testing.T) {
	spec, _, _, _, _, _ := doubleIncSpec()
	store := New()
	executionID := uuid.New()
	_, err := store.Save(suspension.SuspendedExecution{
		ExecutionID:    executionID,
		StructuralHash: "stale-hash",
		Spec:           spec,
		ProvidedInputs: map[string]cvalue.CValue{},
		ComputedValues: map[uuid.UUID]cvalue.CValue{},
		ModuleStatuses: map[uuid.UUID]suspension.ModuleStatus{},
	})
	require.NoError(t, err)

	resumer := NewResumer(store)
	_, err = resumer.Resume(context.Background(), executionID, nil, nil, nil, dagspec.DefaultResolvedOptions)
	require.Error(t, err)
	de, ok := xerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "PIPELINE_CHANGED", string(de.Code))
}

func TestResumeRejectsAlreadyProvidedInput(t *testing.T) {
	spec, doubleID, incID, _, _, _ := doubleIncSpec()
	hash, err := canon.StructuralHash(spec, nil)
	require.NoError(t, err)

	store := New()
	executionID := uuid.New()
	_, err = store.Save(suspension.SuspendedExecution{
		ExecutionID:    executionID,
		StructuralHash: hash,
		Spec:           spec,
		ProvidedInputs: map[string]cvalue.CValue{"x": cvalue.NewInt(3)},
		ComputedValues: map[uuid.UUID]cvalue.CValue{},
		ModuleStatuses: map[uuid.UUID]suspension.ModuleStatus{
			doubleID: suspension.StatusPending,
			incID:    suspension.StatusPending,
		},
	})
	require.NoError(t, err)

	resumer := NewResumer(store)
	_, err = resumer.Resume(context.Background(), executionID,
		map[string]cvalue.CValue{"x": cvalue.NewInt(5)}, nil, nil, dagspec.DefaultResolvedOptions)
	require.Error(t, err)
	de, ok := xerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "INPUT_ALREADY_PROVIDED", string(de.Code))
}

func TestResumeRejectsUnknownResolvedNode(t *testing.T) {
	spec, _, _, _, _, _ := doubleIncSpec()
	hash, err := canon.StructuralHash(spec, nil)
	require.NoError(t, err)

	store := New()
	executionID := uuid.New()
	_, err = store.Save(suspension.SuspendedExecution{
		ExecutionID:    executionID,
		StructuralHash: hash,
		Spec:           spec,
		ProvidedInputs: map[string]cvalue.CValue{},
		ComputedValues: map[uuid.UUID]cvalue.CValue{},
		ModuleStatuses: map[uuid.UUID]suspension.ModuleStatus{},
	})
	require.NoError(t, err)

	resumer := NewResumer(store)
	_, err = resumer.Resume(context.Background(), executionID,
		nil, map[string]cvalue.CValue{"nonexistent": cvalue.NewInt(1)}, nil, dagspec.DefaultResolvedOptions)
	require.Error(t, err)
	de, ok := xerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "UNKNOWN_NODE", string(de.Code))
}

func TestResumeRejectsAlreadyResolvedNode(t *testing.T) {
	spec, doubleID, incID, xID, _, _ := doubleIncSpec()
	hash, err := canon.StructuralHash(spec, nil)
	require.NoError(t, err)

	store := New()
	executionID := uuid.New()
	_, err = store.Save(suspension.SuspendedExecution{
		ExecutionID:    executionID,
		StructuralHash: hash,
		Spec:           spec,
		ProvidedInputs: map[string]cvalue.CValue{"x": cvalue.NewInt(3)},
		ComputedValues: map[uuid.UUID]cvalue.CValue{xID: cvalue.NewInt(3)},
		ModuleStatuses: map[uuid.UUID]suspension.ModuleStatus{
			doubleID: suspension.StatusPending,
			incID:    suspension.StatusPending,
		},
	})
	require.NoError(t, err)

	resumer := NewResumer(store)
	_, err = resumer.Resume(context.Background(), executionID,
		nil, map[string]cvalue.CValue{"x": cvalue.NewInt(9)}, nil, dagspec.DefaultResolvedOptions)
	require.Error(t, err)
	de, ok := xerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "NODE_ALREADY_RESOLVED", string(de.Code))
}

func TestResumeRejectsConcurrentResume(t *testing.T) {
	spec, doubleID, incID, _, _, _ := doubleIncSpec()
	hash, err := canon.StructuralHash(spec, nil)
	require.NoError(t, err)

	store := New()
	executionID := uuid.New()
	_, err = store.Save(suspension.SuspendedExecution{
		ExecutionID:    executionID,
		StructuralHash: hash,
		Spec:           spec,
		ProvidedInputs: map[string]cvalue.CValue{"x": cvalue.NewInt(3)},
		ComputedValues: map[uuid.UUID]cvalue.CValue{},
		ModuleStatuses: map[uuid.UUID]suspension.ModuleStatus{
			doubleID: suspension.StatusPending,
			incID:    suspension.StatusPending,
		},
	})
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	blockingDouble := &funcModule{name: "double", version: "v1", fn: func(_ context.Context, in map[string]cvalue.CValue) (map[string]cvalue.CValue, error) {
		close(started)
		<-release
		return map[string]cvalue.CValue{"y": cvalue.NewInt(in["x"].IntV * 2)}, nil
	}}
	impls := map[uuid.UUID]image.ModuleImpl{doubleID: blockingDouble, incID: incImpl()}

	resumer := NewResumer(store)

	firstDone := make(chan error, 1)
	go func() {
		_, resumeErr := resumer.Resume(context.Background(), executionID, nil, nil, impls, dagspec.DefaultResolvedOptions)
		firstDone <- resumeErr
	}()

	<-started
	_, err = resumer.Resume(context.Background(), executionID, nil, nil, impls, dagspec.DefaultResolvedOptions)
	require.Error(t, err)
	de, ok := xerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "RESUME_IN_PROGRESS", string(de.Code))

	close(release)
	require.NoError(t, <-firstDone, "the caller that won the race should still complete, not be coalesced into the loser's rejection")
}

func TestResumeRejectsTypeMismatchOnResolvedNode(t *testing.T) {
	spec, doubleID, incID, _, yID, _ := doubleIncSpec()
	hash, err := canon.StructuralHash(spec, nil)
	require.NoError(t, err)

	store := New()
	executionID := uuid.New()
	_, err = store.Save(suspension.SuspendedExecution{
		ExecutionID:    executionID,
		StructuralHash: hash,
		Spec:           spec,
		ProvidedInputs: map[string]cvalue.CValue{"x": cvalue.NewInt(3)},
		ComputedValues: map[uuid.UUID]cvalue.CValue{},
		ModuleStatuses: map[uuid.UUID]suspension.ModuleStatus{
			doubleID: suspension.StatusPending,
			incID:    suspension.StatusPending,
		},
	})
	require.NoError(t, err)
	_ = yID

	resumer := NewResumer(store)
	_, err = resumer.Resume(context.Background(), executionID,
		nil, map[string]cvalue.CValue{"y": cvalue.NewString("not an int")}, nil, dagspec.DefaultResolvedOptions)
	require.Error(t, err)
	de, ok := xerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "NODE_TYPE_MISMATCH", string(de.Code))
}
