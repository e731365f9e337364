// Package image defines the two artifacts derived from a compiled DagSpec:
// PipelineImage (the content-addressed, cacheable compilation result) and
// LoadedPipeline (an image plus its rehydrated synthetic module
// implementations, ready to run).
package image

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/alexisbeaulieu97/constellation/internal/domain/cvalue"
	"github.com/alexisbeaulieu97/constellation/internal/domain/dagspec"
)

// PipelineImage is a DagSpec plus its derived hashes and resolved per-module
// call options. Two images with the same structural hash are semantically
// interchangeable regardless of the UUIDs their DagSpecs happen to use.
type PipelineImage struct {
	StructuralHash string
	SyntacticHash  string

	Spec DagSpecRef

	ModuleOptions map[uuid.UUID]dagspec.ModuleCallOptions

	CompiledAt time.Time
	// SourceHash optionally identifies the source text the image was
	// compiled from (e.g. a hash of the textual DAG definition), used for
	// the syntactic-hash cache key.
	SourceHash string
}

// DagSpecRef avoids an import cycle concern by naming the field type
// directly; it is simply a dagspec.DagSpec value.
type DagSpecRef = dagspec.DagSpec

// ModuleImpl is the runtime contract a module implementation satisfies.
// Defined here (rather than in internal/registry) because both the registry
// and the synthetic factory need to refer to it without depending on each
// other.
type ModuleImpl interface {
	// Name is the registry lookup key. Two implementations with the same
	// Name but different Version are distinct registrations.
	Name() string
	Version() string

	// Invoke runs the module against its shaped inputs (already keyed by
	// this module's local input names, per DataNodeSpec.NicknameFor). It
	// must honor ctx cancellation cooperatively.
	Invoke(ctx context.Context, inputs map[string]cvalue.CValue) (map[string]cvalue.CValue, error)
}

// LoadedPipeline pairs a PipelineImage with the synthetic module
// implementations (C7) reconstructed for any module node the registry does
// not cover (e.g. branch selectors).
type LoadedPipeline struct {
	Image            PipelineImage
	SyntheticModules map[uuid.UUID]ModuleImpl
}

// ModuleImplFor resolves moduleID's implementation, checking synthetic
// modules first since they take precedence over a stale registry entry of
// the same name.
func (l LoadedPipeline) ModuleImplFor(moduleID uuid.UUID, registryLookup func(name, version string) (ModuleImpl, bool)) (ModuleImpl, bool) {
	if impl, ok := l.SyntheticModules[moduleID]; ok {
		return impl, true
	}
	node, ok := l.Image.Spec.Modules[moduleID]
	if !ok {
		return nil, false
	}
	return registryLookup(node.Name, node.Version)
}
