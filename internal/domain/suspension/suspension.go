// Package suspension implements the SuspendedExecution snapshot (C10):
// the value captured when a run cannot proceed because a top-level input is
// missing, and the state a resume operation needs to pick up where it left
// off. JSON encode/decode live in internal/suspendstore, which also owns the
// round-trip guarantee and the resume procedure; this package only defines
// the data shape and module status enum shared by the engine and the codec.
package suspension

import (
	"github.com/google/uuid"

	"github.com/alexisbeaulieu97/constellation/internal/domain/cvalue"
	"github.com/alexisbeaulieu97/constellation/internal/domain/dagspec"
)

// ModuleStatus is the per-module state the scheduler (C8) tracks during a
// run and that a suspension snapshot freezes.
type ModuleStatus string

const (
	StatusPending  ModuleStatus = "pending"
	StatusReady    ModuleStatus = "ready"
	StatusRunning  ModuleStatus = "running"
	StatusCompleted ModuleStatus = "completed"
	StatusFailed   ModuleStatus = "failed"
	StatusSkipped  ModuleStatus = "skipped"
)

// SuspendedExecution is the complete state needed to resume a run: the
// DagSpec and options it was compiled against, every input and
// already-computed value, and the module status table, exactly as §3
// describes.
type SuspendedExecution struct {
	ExecutionID     uuid.UUID
	StructuralHash  string
	ResumptionCount int

	Spec          dagspec.DagSpec
	ModuleOptions map[uuid.UUID]dagspec.ModuleCallOptions

	// ProvidedInputs holds the run's original top-level inputs by data-node
	// name (not UUID: names survive structural-hash-preserving UUID
	// regeneration, which is what lets a snapshot be resumed against a
	// freshly recompiled but semantically identical DagSpec).
	ProvidedInputs map[string]cvalue.CValue

	// ComputedValues holds every data node resolved so far, keyed by its
	// current DagSpec UUID. Carried as CValue for serialization stability
	// (spec.md §4.10); the engine's values table holds CValue too, so a
	// resume preloads them without conversion.
	ComputedValues map[uuid.UUID]cvalue.CValue

	ModuleStatuses map[uuid.UUID]ModuleStatus

	// MissingInputs names the top-level data nodes that caused suspension.
	MissingInputs []string
}

// Clone returns a deep-enough copy suitable for handing to a concurrent
// resume attempt guard: the maps are fresh, but CValue/DagSpec contents
// (themselves immutable value types) are shared.
func (s SuspendedExecution) Clone() SuspendedExecution {
	clone := s
	clone.ProvidedInputs = make(map[string]cvalue.CValue, len(s.ProvidedInputs))
	for k, v := range s.ProvidedInputs {
		clone.ProvidedInputs[k] = v
	}
	clone.ComputedValues = make(map[uuid.UUID]cvalue.CValue, len(s.ComputedValues))
	for k, v := range s.ComputedValues {
		clone.ComputedValues[k] = v
	}
	clone.ModuleStatuses = make(map[uuid.UUID]ModuleStatus, len(s.ModuleStatuses))
	for k, v := range s.ModuleStatuses {
		clone.ModuleStatuses[k] = v
	}
	clone.ModuleOptions = make(map[uuid.UUID]dagspec.ModuleCallOptions, len(s.ModuleOptions))
	for k, v := range s.ModuleOptions {
		clone.ModuleOptions[k] = v
	}
	clone.MissingInputs = append([]string(nil), s.MissingInputs...)
	return clone
}
