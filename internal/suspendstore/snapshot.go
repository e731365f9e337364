// Package suspendstore is the C10 suspension protocol: building a
// SuspendedExecution from a run's Result, encoding/decoding it as the
// canonical JSON form spec.md §4.10 describes, a handle-addressed store,
// and the guarded resume procedure. Grounded on internal/store's
// content-addressed PipelineImageStore (internal/store/store.go) for the
// save/load/delete/list shape, generalized from hash-addressing to
// execution-id-addressing since a suspension is per-run, not per-pipeline.
package suspendstore

import (
	"github.com/google/uuid"

	"github.com/alexisbeaulieu97/constellation/internal/domain/cvalue"
	"github.com/alexisbeaulieu97/constellation/internal/domain/dagspec"
	"github.com/alexisbeaulieu97/constellation/internal/domain/suspension"
	"github.com/alexisbeaulieu97/constellation/internal/engine"
)

// BuildSnapshot constructs a SuspendedExecution from one run's Result. It is
// the caller's job to decide whether a Result warrants suspension (Outcome
// Suspended or Failed); BuildSnapshot itself just freezes state.
func BuildSnapshot(
	executionID uuid.UUID,
	structuralHash string,
	spec dagspec.DagSpec,
	moduleOptions map[uuid.UUID]dagspec.ModuleCallOptions,
	providedInputs map[string]cvalue.CValue,
	result *engine.Result,
) suspension.SuspendedExecution {
	computed := make(map[uuid.UUID]cvalue.CValue, len(result.Values))
	for id, cell := range result.Values {
		if cell.State == engine.CellComputed {
			computed[id] = cell.Value
		}
	}

	statuses := make(map[uuid.UUID]suspension.ModuleStatus, len(result.ModuleStatuses))
	for id, status := range result.ModuleStatuses {
		statuses[id] = status
	}

	inputs := make(map[string]cvalue.CValue, len(providedInputs))
	for name, v := range providedInputs {
		inputs[name] = v
	}

	opts := make(map[uuid.UUID]dagspec.ModuleCallOptions, len(moduleOptions))
	for id, o := range moduleOptions {
		opts[id] = o
	}

	return suspension.SuspendedExecution{
		ExecutionID:     executionID,
		StructuralHash:  structuralHash,
		ResumptionCount: 0,
		Spec:            spec,
		ModuleOptions:   opts,
		ProvidedInputs:  inputs,
		ComputedValues:  computed,
		ModuleStatuses:  statuses,
		MissingInputs:   append([]string(nil), result.MissingInputs...),
	}
}
