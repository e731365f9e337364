// Package report is the C11 execution report builder: it assembles a
// DataSignature from one engine.Result (plus, for a resumed run, the
// SuspendedExecution it resumed from), honoring exactly the optional
// sections ExecutionOptions requests. Grounded on no direct teacher
// equivalent (Streamy's execution summary is a flat log, not a structured,
// opt-in-sectioned report); the opt-in-flags-gate-structured-output shape
// instead follows this codebase's own internal/dagspec.ResolvedOptions
// pattern: a small options struct of booleans/values resolved once, then
// consulted field-by-field rather than branching on a single "verbose" flag.
package report

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/alexisbeaulieu97/constellation/internal/domain/cvalue"
	"github.com/alexisbeaulieu97/constellation/internal/domain/dagspec"
	"github.com/alexisbeaulieu97/constellation/internal/domain/suspension"
	"github.com/alexisbeaulieu97/constellation/internal/domain/xerrors"
	"github.com/alexisbeaulieu97/constellation/internal/engine"
)

// Status mirrors engine.Outcome in the report's external vocabulary, kept
// as a distinct type so a report consumer never needs to import the engine
// package just to read a status.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusSuspended Status = "suspended"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

func statusFromOutcome(o engine.Outcome) Status {
	switch o {
	case engine.OutcomeCompleted:
		return StatusCompleted
	case engine.OutcomeSuspended:
		return StatusSuspended
	case engine.OutcomeCancelled:
		return StatusCancelled
	default:
		return StatusFailed
	}
}

// ResolutionSource tags how a data node's value was obtained (spec.md
// glossary: "a tag on a data node indicating whether its value came from an
// input, a module, an inline transform, or a resumed snapshot").
type ResolutionSource string

const (
	ResolutionSourceInput           ResolutionSource = "input"
	ResolutionSourceModule          ResolutionSource = "module"
	ResolutionSourceTransform       ResolutionSource = "transform"
	ResolutionSourceResumedSnapshot ResolutionSource = "resumed_snapshot"
)

// NodeTiming is one module's wall-clock invocation span.
type NodeTiming struct {
	ModuleID uuid.UUID
	Name     string
	Duration time.Duration
}

// ExecutionOptions gates which optional SignatureMetadata sections a report
// carries (spec.md §4.11). All four default to false: a report with a zero
// ExecutionOptions carries only the unconditional DataSignature fields.
type ExecutionOptions struct {
	IncludeTimings           bool
	IncludeProvenance        bool
	IncludeBlockedGraph      bool
	IncludeResolutionSources bool
}

// SignatureMetadata holds every opt-in report section. A field is present
// (non-nil/non-empty) only when its corresponding ExecutionOptions flag was
// set; Build never populates a section the caller didn't ask for.
type SignatureMetadata struct {
	// NodeTimings and TotalDuration are present iff IncludeTimings.
	NodeTimings   []NodeTiming
	TotalDuration time.Duration

	// ResolutionSources is present iff IncludeResolutionSources: every
	// Computed data node's origin, by data node UUID. Provenance (below) is
	// the richer, name-keyed form of the same underlying information, kept
	// as a separate flag since a caller may want one without the other
	// (e.g. a compact resolution tag per node vs. a full producer/consumer
	// trace for debugging).
	ResolutionSources map[uuid.UUID]ResolutionSource

	// Provenance is present iff IncludeProvenance: for every Computed data
	// node, which module or transform produced it (empty string for a
	// top-level input or resumed value).
	Provenance map[string]string

	// BlockedGraph is present iff IncludeBlockedGraph: every module that
	// never reached a terminal status (Completed/Failed/Skipped) by the
	// time the run ended, together with the data nodes still Empty that
	// blocked it — the subgraph a caller would need to inspect to
	// understand why the run didn't finish.
	BlockedGraph []BlockedModule
}

// BlockedModule names one module that never ran to completion and the
// inputs it was still waiting on.
type BlockedModule struct {
	ModuleID      uuid.UUID
	Name          string
	Status        suspension.ModuleStatus
	WaitingOnData []string
}

// DataSignature is the execution report §3 describes: the single structured
// value every `run`/`resumeFromStore` call returns.
type DataSignature struct {
	Status Status

	Outputs       map[string]cvalue.CValue
	Errors        []error
	MissingInputs []string

	// SuspendedState is the snapshot passed to Build, if any; Build sets it
	// whatever the Status. cliapp.App passes one exactly when the run ends
	// Suspended or Failed.
	SuspendedState *suspension.SuspendedExecution

	// ResumptionCount mirrors SuspendedState.ResumptionCount when present,
	// and is 0 for a fresh (never-resumed) run — duplicated onto
	// DataSignature directly since spec.md §8/S2 asserts on it at the
	// top level ("resumptionCount = 1") rather than reaching into
	// suspendedState.
	ResumptionCount int

	Metadata SignatureMetadata
}

// Build assembles a DataSignature from one run's Result. snapshot is the
// SuspendedExecution the run resumed from, or nil for a fresh run. Build
// constructs no snapshot: a non-nil snapshot is placed on SuspendedState as
// given, whatever the Status, and its ResumptionCount is mirrored. The
// snapshot of a Suspended or Failed run is built by
// internal/suspendstore.BuildSnapshot.
func Build(
	spec dagspec.DagSpec,
	result *engine.Result,
	snapshot *suspension.SuspendedExecution,
	opts ExecutionOptions,
) DataSignature {
	sig := DataSignature{
		Status:        statusFromOutcome(result.Outcome),
		Outputs:       result.Outputs,
		Errors:        result.Errors,
		MissingInputs: result.MissingInputs,
	}

	if snapshot != nil {
		sig.SuspendedState = snapshot
		sig.ResumptionCount = snapshot.ResumptionCount
	}

	if opts.IncludeTimings {
		sig.Metadata.NodeTimings, sig.Metadata.TotalDuration = buildTimings(spec, result)
	}
	if opts.IncludeResolutionSources || opts.IncludeProvenance {
		sources, provenance := buildProvenance(spec, result, snapshot)
		if opts.IncludeResolutionSources {
			sig.Metadata.ResolutionSources = sources
		}
		if opts.IncludeProvenance {
			sig.Metadata.Provenance = provenance
		}
	}
	if opts.IncludeBlockedGraph {
		sig.Metadata.BlockedGraph = buildBlockedGraph(spec, result)
	}

	return sig
}

func buildTimings(spec dagspec.DagSpec, result *engine.Result) ([]NodeTiming, time.Duration) {
	timings := make([]NodeTiming, 0, len(result.ModuleDurations))
	for moduleID, d := range result.ModuleDurations {
		timings = append(timings, NodeTiming{
			ModuleID: moduleID,
			Name:     spec.Modules[moduleID].Name,
			Duration: d,
		})
	}
	sort.Slice(timings, func(i, j int) bool { return timings[i].Name < timings[j].Name })
	return timings, result.FinishedAt.Sub(result.StartedAt)
}

// buildProvenance derives, for every Computed data node, both a coarse
// ResolutionSource tag and (for the richer Provenance section) the name of
// the module or transform that produced it. A node present in the
// snapshot's ComputedValues at resume time but not reachable from any
// OutEdge/InlineTransform is attributed to the snapshot rather than to a
// bare top-level input, distinguishing "the user supplied this" from "this
// was carried over from a prior suspended run".
func buildProvenance(spec dagspec.DagSpec, result *engine.Result, snapshot *suspension.SuspendedExecution) (map[uuid.UUID]ResolutionSource, map[string]string) {
	sources := make(map[uuid.UUID]ResolutionSource, len(result.Values))
	provenance := make(map[string]string, len(result.Values))

	var resumed map[uuid.UUID]bool
	if snapshot != nil {
		resumed = make(map[uuid.UUID]bool, len(snapshot.ComputedValues))
		for id := range snapshot.ComputedValues {
			resumed[id] = true
		}
	}

	for id, cell := range result.Values {
		if cell.State != engine.CellComputed {
			continue
		}
		node := spec.Data[id]

		switch {
		case node.InlineTransform != nil:
			sources[id] = ResolutionSourceTransform
			provenance[node.Name] = string(node.InlineTransform.Kind)
		case func() bool { _, ok := spec.ProducerModule(id); return ok }():
			moduleID, _ := spec.ProducerModule(id)
			sources[id] = ResolutionSourceModule
			provenance[node.Name] = spec.Modules[moduleID].Name
		case resumed[id]:
			sources[id] = ResolutionSourceResumedSnapshot
			provenance[node.Name] = ""
		default:
			sources[id] = ResolutionSourceInput
			provenance[node.Name] = ""
		}
	}
	return sources, provenance
}

func buildBlockedGraph(spec dagspec.DagSpec, result *engine.Result) []BlockedModule {
	var blocked []BlockedModule
	for id, status := range result.ModuleStatuses {
		switch status {
		case suspension.StatusCompleted, suspension.StatusFailed, suspension.StatusSkipped:
			continue
		}
		node := spec.Modules[id]
		var waiting []string
		for _, e := range spec.InEdgesFor(id) {
			if result.Values[e.Data].State != engine.CellComputed {
				waiting = append(waiting, spec.Data[e.Data].Name)
			}
		}
		sort.Strings(waiting)
		blocked = append(blocked, BlockedModule{
			ModuleID:      id,
			Name:          node.Name,
			Status:        status,
			WaitingOnData: waiting,
		})
	}
	sort.Slice(blocked, func(i, j int) bool { return blocked[i].Name < blocked[j].Name })
	return blocked
}

// FirstDomainError returns the first classified DomainError among a
// DataSignature's Errors, if any, for callers that want to branch on Code
// without scanning the slice themselves.
func (d DataSignature) FirstDomainError() (*xerrors.DomainError, bool) {
	for _, err := range d.Errors {
		if de, ok := xerrors.As(err); ok {
			return de, true
		}
	}
	return nil, false
}
