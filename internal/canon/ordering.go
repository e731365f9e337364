package canon

import (
	"sort"

	"github.com/google/uuid"

	"github.com/alexisbeaulieu97/constellation/internal/domain/dagspec"
)

// kind distinguishes the two node kinds sharing the unified UUID space, used
// only to decide which tie-break rule applies.
type kind int

const (
	kindData kind = iota
	kindModule
)

// indexAssignment maps every UUID in a DagSpec to a stable, UUID-independent
// integer: the order a topological traversal visits it in, with ties broken
// deterministically. Spec.md §4.4: "UUIDs are rewritten to stable indices
// derived from a topological traversal starting from data nodes that have
// no inbound edges, breaking ties by visible name lexicographically, then by
// CType canonical form, then by stable module metadata name+version."
// CanonicalIndex exposes indexAssignment's stable UUID→index map for
// callers outside this package that need the same deterministic ordering
// for tie-breaking (e.g. internal/engine's "smaller canonical index first"
// scheduling rule, spec.md §4.8).
func CanonicalIndex(spec dagspec.DagSpec) map[uuid.UUID]int {
	return indexAssignment(spec)
}

func indexAssignment(spec dagspec.DagSpec) map[uuid.UUID]int {
	inDegree := make(map[uuid.UUID]int, len(spec.Modules)+len(spec.Data))
	outNeighbors := make(map[uuid.UUID][]uuid.UUID, len(spec.Modules)+len(spec.Data))

	touch := func(id uuid.UUID) {
		if _, ok := inDegree[id]; !ok {
			inDegree[id] = 0
		}
	}
	for id := range spec.Modules {
		touch(id)
	}
	for id := range spec.Data {
		touch(id)
	}

	addEdge := func(from, to uuid.UUID) {
		outNeighbors[from] = append(outNeighbors[from], to)
		inDegree[to]++
	}

	for _, e := range spec.InEdges {
		addEdge(e.Data, e.Module)
	}
	for _, e := range spec.OutEdges {
		addEdge(e.Module, e.Data)
	}
	for dataID, node := range spec.Data {
		if node.InlineTransform == nil {
			continue
		}
		for _, inputID := range node.TransformInputs {
			addEdge(inputID, dataID)
		}
	}

	nodeKind := func(id uuid.UUID) kind {
		if _, ok := spec.Data[id]; ok {
			return kindData
		}
		return kindModule
	}

	less := func(a, b uuid.UUID) bool {
		ka, kb := nodeKind(a), nodeKind(b)
		if ka != kb {
			// Data nodes sort before module nodes when both have in-degree
			// zero at the same step; an arbitrary but fixed rule needed only
			// to make the comparator total.
			return ka == kindData
		}
		if ka == kindData {
			da, db := spec.Data[a], spec.Data[b]
			if da.Name != db.Name {
				return da.Name < db.Name
			}
			ta, tb := EncodeType(da.Type), EncodeType(db.Type)
			if ta != tb {
				return ta < tb
			}
			return a.String() < b.String()
		}
		ma, mb := spec.Modules[a], spec.Modules[b]
		if ma.Name != mb.Name {
			return ma.Name < mb.Name
		}
		if ma.Version != mb.Version {
			return ma.Version < mb.Version
		}
		return a.String() < b.String()
	}

	ready := make([]uuid.UUID, 0)
	for id, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return less(ready[i], ready[j]) })

	index := make(map[uuid.UUID]int, len(inDegree))
	next := 0
	remaining := make(map[uuid.UUID]int, len(inDegree))
	for id, deg := range inDegree {
		remaining[id] = deg
	}

	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		index[id] = next
		next++

		var newlyReady []uuid.UUID
		for _, to := range outNeighbors[id] {
			remaining[to]--
			if remaining[to] == 0 {
				newlyReady = append(newlyReady, to)
			}
		}
		sort.Slice(newlyReady, func(i, j int) bool { return less(newlyReady[i], newlyReady[j]) })
		ready = append(ready, newlyReady...)
		sort.SliceStable(ready, func(i, j int) bool { return less(ready[i], ready[j]) })
	}

	// Any UUID not reached (a cycle, or disconnected node unreachable from a
	// zero-in-degree start) still needs an index so encoding never panics;
	// DagSpec.Validate is expected to have already rejected cycles, so this
	// is a defensive fallback, not the common path.
	if len(index) != len(inDegree) {
		leftover := make([]uuid.UUID, 0, len(inDegree)-len(index))
		for id := range inDegree {
			if _, ok := index[id]; !ok {
				leftover = append(leftover, id)
			}
		}
		sort.Slice(leftover, func(i, j int) bool { return less(leftover[i], leftover[j]) })
		for _, id := range leftover {
			index[id] = next
			next++
		}
	}

	return index
}
