// Package engine is the C8 runtime scheduler and executor: the component
// that actually runs a compiled DagSpec against provided inputs, producing
// either a completed result, a suspended snapshot, or a failure report.
package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/alexisbeaulieu97/constellation/internal/domain/cvalue"
	"github.com/alexisbeaulieu97/constellation/internal/domain/suspension"
)

// CellState is one of the three states a data node's value can be in
// during a run (spec.md §4.8: "Cell ∈ {Empty, Computed(RawValue), Failed(err)}").
type CellState int

const (
	CellEmpty CellState = iota
	CellComputed
	CellFailed
)

// Cell is one data node's slot in the values table. The engine operates on
// the boxed CValue form throughout a run — it already has CType context
// from the DagSpec, so it gets no benefit from RawValue's packed-list
// space saving. The JSON boundary (C2) and suspension snapshots (C10)
// carry CValue as well.
type Cell struct {
	State CellState
	Value cvalue.CValue
	Err   error
}

// Outcome is a run's terminal classification (spec.md §4.8).
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeSuspended Outcome = "suspended"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
)

// Result is everything one Run produces. internal/report builds a
// DataSignature from it; internal/suspendstore builds a SuspendedExecution
// snapshot from it when Outcome is Suspended or Failed.
type Result struct {
	Outcome Outcome

	// Outputs holds every declared OutputNames entry that resolved to a
	// Computed value. A Completed outcome has every declared output; a
	// Suspended or Failed outcome may have a strict subset.
	Outputs map[string]cvalue.CValue

	Errors []error

	// MissingInputs lists the provided-input names (by data node Name)
	// that were never bound, causing a Suspended outcome.
	MissingInputs []string

	ModuleStatuses map[uuid.UUID]suspension.ModuleStatus
	Values         map[uuid.UUID]Cell

	// ModuleDurations holds each invoked module's wall-clock span (the
	// final attempt's retries included), keyed by module node UUID.
	// internal/report surfaces these as NodeTimings when ExecutionOptions
	// requests it; modules never dispatched (e.g. Skipped) have no entry.
	ModuleDurations map[uuid.UUID]time.Duration

	StartedAt  time.Time
	FinishedAt time.Time
}
