// Package dagspec implements Constellation's compiled dataflow graph (C3):
// the immutable description of modules, typed data slots, and the edges
// between them that the scheduler (internal/engine) executes. A DagSpec is
// produced once by an external compiler and never mutated thereafter.
package dagspec

import (
	"time"

	"github.com/google/uuid"

	"github.com/alexisbeaulieu97/constellation/internal/domain/ctype"
	"github.com/alexisbeaulieu97/constellation/internal/domain/xerrors"
)

// ModuleNodeSpec describes one processing node: its identity, declared
// input/output shapes, and per-call timing configuration. Input and output
// names must be unique within a single node (enforced by Validate).
type ModuleNodeSpec struct {
	ID   uuid.UUID
	Name string
	// Version distinguishes implementations registered under the same
	// Name; it participates in canonical hashing (internal/canon) and in
	// the module registry's lookup key.
	Version string
	Tags    []string

	Consumes map[string]ctype.CType
	Produces map[string]ctype.CType

	InputsTimeout time.Duration
	ModuleTimeout time.Duration

	// DefinitionContext is free-form metadata captured at compile time
	// (e.g. a synthetic module's branch-selector configuration). Canonical
	// hashing serializes it with sorted keys at every depth.
	DefinitionContext map[string]interface{}

	// Synthetic marks a node whose implementation is reconstructed by
	// internal/synthetic (C7) rather than looked up in the module registry
	// by name.
	Synthetic bool
}

// DataNodeSpec describes one typed value slot. A data node is produced by
// at most one module output edge, or by an InlineTransform — never both.
type DataNodeSpec struct {
	ID uuid.UUID

	// Name is the canonical visible name (used for declared outputs and for
	// matching provided run inputs).
	Name string

	// Nicknames lets a module refer to this data node by a name local to
	// that module's Consumes/Produces map, when it differs from Name.
	Nicknames map[uuid.UUID]string

	Type ctype.CType

	InlineTransform *InlineTransform
	// TransformInputs maps each of InlineTransform's required input names
	// to the data node supplying it. Non-nil iff InlineTransform is set,
	// and then it fully supplies every name InlineTransform requires.
	TransformInputs map[string]uuid.UUID
}

// NicknameFor returns the name moduleID should use to refer to this data
// node, falling back to its canonical Name.
func (d DataNodeSpec) NicknameFor(moduleID uuid.UUID) string {
	if d.Nicknames != nil {
		if nick, ok := d.Nicknames[moduleID]; ok {
			return nick
		}
	}
	return d.Name
}

// InEdge connects a data node to the module that consumes it.
type InEdge struct {
	Data   uuid.UUID
	Module uuid.UUID
}

// OutEdge connects a module to a data node it produces.
type OutEdge struct {
	Module uuid.UUID
	Data   uuid.UUID
}

// DagSpec is the complete, immutable compiled graph.
type DagSpec struct {
	Metadata map[string]string

	Modules map[uuid.UUID]ModuleNodeSpec
	Data    map[uuid.UUID]DataNodeSpec

	InEdges  []InEdge
	OutEdges []OutEdge

	OutputNames    []string
	OutputBindings map[string]uuid.UUID
}

// InEdgesFor returns every InEdge targeting moduleID, in declaration order.
func (d DagSpec) InEdgesFor(moduleID uuid.UUID) []InEdge {
	var out []InEdge
	for _, e := range d.InEdges {
		if e.Module == moduleID {
			out = append(out, e)
		}
	}
	return out
}

// OutEdgesFor returns every OutEdge originating at moduleID, in declaration
// order.
func (d DagSpec) OutEdgesFor(moduleID uuid.UUID) []OutEdge {
	var out []OutEdge
	for _, e := range d.OutEdges {
		if e.Module == moduleID {
			out = append(out, e)
		}
	}
	return out
}

// ConsumerModules returns every module that reads dataID as an input.
func (d DagSpec) ConsumerModules(dataID uuid.UUID) []uuid.UUID {
	var out []uuid.UUID
	for _, e := range d.InEdges {
		if e.Data == dataID {
			out = append(out, e.Module)
		}
	}
	return out
}

// ProducerModule returns the module producing dataID via an OutEdge, if
// any (a data node may instead be produced by an InlineTransform).
func (d DagSpec) ProducerModule(dataID uuid.UUID) (uuid.UUID, bool) {
	for _, e := range d.OutEdges {
		if e.Data == dataID {
			return e.Module, true
		}
	}
	return uuid.UUID{}, false
}

// Validate checks every invariant from spec.md §3: edges reference existing
// nodes, each data node has at most one producer, inline transforms are
// fully supplied and use a recognized kind, output bindings resolve, and the
// graph is acyclic.
func (d DagSpec) Validate() error {
	for _, e := range d.InEdges {
		if _, ok := d.Data[e.Data]; !ok {
			return xerrors.New(xerrors.CodeNodeNotFound, "in-edge references unknown data node").
				WithContext(map[string]interface{}{"dataId": e.Data.String()})
		}
		if _, ok := d.Modules[e.Module]; !ok {
			return xerrors.New(xerrors.CodeNodeNotFound, "in-edge references unknown module node").
				WithContext(map[string]interface{}{"moduleId": e.Module.String()})
		}
	}

	producers := make(map[uuid.UUID]uuid.UUID, len(d.OutEdges))
	for _, e := range d.OutEdges {
		if _, ok := d.Data[e.Data]; !ok {
			return xerrors.New(xerrors.CodeNodeNotFound, "out-edge references unknown data node").
				WithContext(map[string]interface{}{"dataId": e.Data.String()})
		}
		if _, ok := d.Modules[e.Module]; !ok {
			return xerrors.New(xerrors.CodeNodeNotFound, "out-edge references unknown module node").
				WithContext(map[string]interface{}{"moduleId": e.Module.String()})
		}
		if prior, ok := producers[e.Data]; ok && prior != e.Module {
			return xerrors.New(xerrors.CodeValidation, "data node has more than one producing module").
				WithContext(map[string]interface{}{"dataId": e.Data.String()})
		}
		producers[e.Data] = e.Module
	}

	for dataID, node := range d.Data {
		if node.InlineTransform == nil {
			continue
		}
		if _, hasProducer := producers[dataID]; hasProducer {
			return xerrors.New(xerrors.CodeValidation, "data node has both an inline transform and a module producer").
				WithContext(map[string]interface{}{"dataId": dataID.String()})
		}
		if !IsKnownTransformKind(node.InlineTransform.Kind) {
			return xerrors.New(xerrors.CodeUnsupportedOp, "unrecognized inline transform kind").
				WithContext(map[string]interface{}{"dataId": dataID.String(), "kind": string(node.InlineTransform.Kind)})
		}
		for _, name := range RequiredInputNames(node.InlineTransform.Kind) {
			inputID, ok := node.TransformInputs[name]
			if !ok {
				return xerrors.New(xerrors.CodeUndefinedVariable, "inline transform missing required input").
					WithContext(map[string]interface{}{"dataId": dataID.String(), "name": name})
			}
			if _, ok := d.Data[inputID]; !ok {
				return xerrors.New(xerrors.CodeNodeNotFound, "inline transform input references unknown data node").
					WithContext(map[string]interface{}{"dataId": dataID.String(), "name": name})
			}
		}
	}

	for _, name := range d.OutputNames {
		dataID, ok := d.OutputBindings[name]
		if !ok {
			return xerrors.New(xerrors.CodeUndefinedVariable, "declared output has no binding").
				WithContext(map[string]interface{}{"output": name})
		}
		if _, ok := d.Data[dataID]; !ok {
			return xerrors.New(xerrors.CodeNodeNotFound, "output binding references unknown data node").
				WithContext(map[string]interface{}{"output": name, "dataId": dataID.String()})
		}
	}

	return d.detectCycle()
}

// detectCycle runs a DFS over the unified module/data node space (UUIDs are
// unique across both sets), following in-edges, out-edges, and inline
// transform input edges. Grounded on the same visited/stack/path DFS used
// by the teacher's pipeline.ValidateDependencies.
func (d DagSpec) detectCycle() error {
	adjacency := d.buildAdjacency()

	visited := make(map[uuid.UUID]bool, len(adjacency))
	stack := make(map[uuid.UUID]bool, len(adjacency))
	var path []uuid.UUID

	var detect func(uuid.UUID) error
	detect = func(id uuid.UUID) error {
		visited[id] = true
		stack[id] = true
		path = append(path, id)

		for _, next := range adjacency[id] {
			if !visited[next] {
				if err := detect(next); err != nil {
					return err
				}
			} else if stack[next] {
				cycle := append([]uuid.UUID(nil), path...)
				cycle = append(cycle, next)
				return xerrors.New(xerrors.CodeCycleDetected, "cycle detected in dag").
					WithContext(map[string]interface{}{"cycle": uuidsToStrings(cycle)})
			}
		}

		stack[id] = false
		path = path[:len(path)-1]
		return nil
	}

	ids := make([]uuid.UUID, 0, len(adjacency))
	for id := range adjacency {
		ids = append(ids, id)
	}
	for _, id := range ids {
		if !visited[id] {
			if err := detect(id); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d DagSpec) buildAdjacency() map[uuid.UUID][]uuid.UUID {
	adjacency := make(map[uuid.UUID][]uuid.UUID)
	touch := func(id uuid.UUID) {
		if _, ok := adjacency[id]; !ok {
			adjacency[id] = nil
		}
	}
	for id := range d.Modules {
		touch(id)
	}
	for id := range d.Data {
		touch(id)
	}
	for _, e := range d.InEdges {
		adjacency[e.Data] = append(adjacency[e.Data], e.Module)
	}
	for _, e := range d.OutEdges {
		adjacency[e.Module] = append(adjacency[e.Module], e.Data)
	}
	for dataID, node := range d.Data {
		if node.InlineTransform == nil {
			continue
		}
		for _, inputID := range node.TransformInputs {
			adjacency[inputID] = append(adjacency[inputID], dataID)
		}
	}
	return adjacency
}

func uuidsToStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
