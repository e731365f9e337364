package synthetic

import (
	"github.com/google/uuid"

	"github.com/alexisbeaulieu97/constellation/internal/domain/dagspec"
	"github.com/alexisbeaulieu97/constellation/internal/domain/image"
)

// Reconstruct walks every synthetic module node in spec and rebuilds an
// executable implementation for the kinds this factory recognizes
// (currently KindBranch only). Synthetic nodes of an unrecognized kind are
// skipped rather than erroring — per spec.md §4.7 the external collaborator
// is expected to supply those directly in the LoadedPipeline.
func Reconstruct(spec dagspec.DagSpec) (map[uuid.UUID]image.ModuleImpl, error) {
	out := make(map[uuid.UUID]image.ModuleImpl)
	for id, node := range spec.Modules {
		if !node.Synthetic || !IsBranchNode(node) {
			continue
		}
		impl, err := NewBranchModule(node)
		if err != nil {
			return nil, err
		}
		out[id] = impl
	}
	return out, nil
}
