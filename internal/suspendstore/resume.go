package suspendstore

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/alexisbeaulieu97/constellation/internal/canon"
	"github.com/alexisbeaulieu97/constellation/internal/domain/cvalue"
	"github.com/alexisbeaulieu97/constellation/internal/domain/dagspec"
	"github.com/alexisbeaulieu97/constellation/internal/domain/image"
	"github.com/alexisbeaulieu97/constellation/internal/domain/xerrors"
	"github.com/alexisbeaulieu97/constellation/internal/engine"
)

// Resumer runs the C10 resume procedure against a Store, guarding against
// concurrent resumes of the same execution with a fail-fast in-flight set
// keyed by executionId (spec.md §4.10: "Concurrent resumes for the same
// executionId fail with ResumeInProgressError; only one resume may be in
// flight per execution" — a coalescing guard like singleflight.Group would
// hand the second caller the first caller's result instead of failing it).
type Resumer struct {
	store *Store

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewResumer builds a Resumer over store.
func NewResumer(store *Store) *Resumer {
	return &Resumer{store: store, inFlight: make(map[string]struct{})}
}

// Resume executes spec.md §4.10's four-step procedure: verify the
// structural hash still matches, merge additionalInputs and resolvedNodes
// into the snapshot, increment resumptionCount, and invoke the scheduler
// with the preloaded state. impls binds the resumed spec's module nodes to
// executable code exactly as a fresh run would. A second Resume call for
// the same handle while the first is still in flight fails immediately
// with ResumeInProgressError rather than waiting on the first call.
func (r *Resumer) Resume(
	ctx context.Context,
	handle Handle,
	additionalInputs map[string]cvalue.CValue,
	resolvedNodes map[string]cvalue.CValue,
	impls map[uuid.UUID]image.ModuleImpl,
	defaults dagspec.ResolvedOptions,
) (*engine.Result, error) {
	key := handle.String()

	r.mu.Lock()
	if _, busy := r.inFlight[key]; busy {
		r.mu.Unlock()
		return nil, xerrors.ResumeInProgressError(key)
	}
	r.inFlight[key] = struct{}{}
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.inFlight, key)
		r.mu.Unlock()
	}()

	return r.resumeOnce(ctx, handle, additionalInputs, resolvedNodes, impls, defaults)
}

func (r *Resumer) resumeOnce(
	ctx context.Context,
	handle Handle,
	additionalInputs map[string]cvalue.CValue,
	resolvedNodes map[string]cvalue.CValue,
	impls map[uuid.UUID]image.ModuleImpl,
	defaults dagspec.ResolvedOptions,
) (*engine.Result, error) {
	snapshot, ok := r.store.Load(handle)
	if !ok {
		return nil, xerrors.New(xerrors.CodePipelineNotFound, "no suspended execution for handle").
			WithContext(map[string]interface{}{"executionId": handle.String()})
	}

	// Step 1: structural hash must still match the pipeline being resumed.
	actualHash, err := canon.StructuralHash(snapshot.Spec, snapshot.ModuleOptions)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInternal, "failed to recompute structural hash", err)
	}
	if actualHash != snapshot.StructuralHash {
		return nil, xerrors.PipelineChangedError(snapshot.StructuralHash, actualHash)
	}

	snapshot = snapshot.Clone()

	// Step 2: merge additionalInputs into providedInputs.
	for name, v := range additionalInputs {
		if _, exists := snapshot.ProvidedInputs[name]; exists {
			return nil, xerrors.InputAlreadyProvidedError(name)
		}
		snapshot.ProvidedInputs[name] = v
	}

	// Step 3: merge resolvedNodes into the values table by name.
	byName := make(map[string]uuid.UUID, len(snapshot.Spec.Data))
	for id, node := range snapshot.Spec.Data {
		byName[node.Name] = id
	}
	for name, v := range resolvedNodes {
		id, known := byName[name]
		if !known {
			return nil, xerrors.UnknownNodeError(name)
		}
		if _, already := snapshot.ComputedValues[id]; already {
			return nil, xerrors.NodeAlreadyResolvedError(name)
		}
		node := snapshot.Spec.Data[id]
		if !v.Type.Equal(node.Type) {
			return nil, xerrors.NodeTypeMismatchError(name, node.Type.String(), v.Type.String())
		}
		snapshot.ComputedValues[id] = v
	}

	// Step 4: increment resumptionCount and invoke the scheduler with the
	// preloaded state.
	snapshot.ResumptionCount++
	if _, err := r.store.Save(snapshot); err != nil {
		return nil, err
	}

	sched := engine.New(engine.Config{
		Spec:          snapshot.Spec,
		Impls:         impls,
		ModuleOptions: snapshot.ModuleOptions,
		Defaults:      defaults,
	})

	preload := engine.Preload{
		Values:         snapshot.ComputedValues,
		ModuleStatuses: snapshot.ModuleStatuses,
	}

	result, runErr := sched.RunResumed(ctx, snapshot.ProvidedInputs, preload)
	if runErr != nil {
		return nil, runErr
	}

	if result.Outcome == engine.OutcomeSuspended || result.Outcome == engine.OutcomeFailed {
		updated := BuildSnapshot(handle, snapshot.StructuralHash, snapshot.Spec, snapshot.ModuleOptions, snapshot.ProvidedInputs, result)
		updated.ResumptionCount = snapshot.ResumptionCount
		if _, err := r.store.Save(updated); err != nil {
			return nil, err
		}
	} else {
		r.store.Delete(handle)
	}

	return result, nil
}
