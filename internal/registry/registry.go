// Package registry is the C6 module registry: a name+version → module
// implementation map used to bind a compiled DagSpec's module nodes to
// executable code before a run.
package registry

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/alexisbeaulieu97/constellation/internal/domain/dagspec"
	"github.com/alexisbeaulieu97/constellation/internal/domain/image"
	"github.com/alexisbeaulieu97/constellation/internal/domain/xerrors"
)

// Key identifies a module implementation by its case-sensitive name and
// version; the same name at two versions are distinct registrations.
type Key struct {
	Name    string
	Version string
}

func (k Key) String() string {
	return fmt.Sprintf("%s@%s", k.Name, k.Version)
}

// Registry is a concurrency-safe name+version → implementation map.
type Registry struct {
	mu    sync.RWMutex
	impls map[Key]image.ModuleImpl
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{impls: make(map[Key]image.ModuleImpl)}
}

// Register adds a module implementation, failing if that name+version is
// already registered. Use Replace to overwrite intentionally.
func (r *Registry) Register(impl image.ModuleImpl) error {
	if impl == nil {
		return xerrors.New(xerrors.CodeValidation, "cannot register a nil module implementation")
	}
	key := Key{Name: impl.Name(), Version: impl.Version()}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.impls[key]; exists {
		return xerrors.New(xerrors.CodeValidation, "module already registered").
			WithContext(map[string]interface{}{"name": key.Name, "version": key.Version})
	}
	r.impls[key] = impl
	return nil
}

// Replace registers a module implementation, overwriting any existing
// registration for the same name+version.
func (r *Registry) Replace(impl image.ModuleImpl) error {
	if impl == nil {
		return xerrors.New(xerrors.CodeValidation, "cannot register a nil module implementation")
	}
	key := Key{Name: impl.Name(), Version: impl.Version()}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.impls[key] = impl
	return nil
}

// Deregister removes a module implementation, reporting whether it was
// present.
func (r *Registry) Deregister(name, version string) bool {
	key := Key{Name: name, Version: version}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.impls[key]; !exists {
		return false
	}
	delete(r.impls, key)
	return true
}

// Lookup resolves a module implementation by name and version.
func (r *Registry) Lookup(name, version string) (image.ModuleImpl, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	impl, ok := r.impls[Key{Name: name, Version: version}]
	return impl, ok
}

// InitModules binds every module node in spec to a registered
// implementation by name+version, returning ModuleNotFoundError for the
// first unresolved reference it encounters. Synthetic module nodes
// (spec.md §4.7) are not resolved here; callers should filter them out of
// spec beforehand or rely on a LoadedPipeline's SyntheticModules map to
// cover those UUIDs instead.
func (r *Registry) InitModules(spec dagspec.DagSpec) (map[uuid.UUID]image.ModuleImpl, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bound := make(map[uuid.UUID]image.ModuleImpl, len(spec.Modules))
	for id, node := range spec.Modules {
		if node.Synthetic {
			continue
		}
		impl, ok := r.impls[Key{Name: node.Name, Version: node.Version}]
		if !ok {
			return nil, xerrors.New(xerrors.CodeModuleNotFound, "no registered implementation for module").
				WithContext(map[string]interface{}{"name": node.Name, "version": node.Version, "moduleId": id.String()})
		}
		bound[id] = impl
	}
	return bound, nil
}

// Hash returns a stable digest of the set of registered module identities
// (name@version pairs), used as the registryHash half of the store's
// syntactic index key: two identical source texts compiled against
// registries with a different set of implementations must not collide.
func (r *Registry) Hash() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.impls))
	for key := range r.impls {
		names = append(names, key.String())
	}
	sort.Strings(names)

	h := sha256.New()
	for _, n := range names {
		h.Write([]byte(n))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Names returns the case-sensitive names of every distinct registered
// module, sorted and de-duplicated across versions.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{}, len(r.impls))
	for key := range r.impls {
		seen[key.Name] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
