// Package store provides content-addressed storage of compiled
// PipelineImages, human-assigned aliases, and a syntactic-to-structural
// hash index, so that re-submitting identical source text against an
// identical module registry short-circuits recompilation.
package store

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/alexisbeaulieu97/constellation/internal/domain/image"
	"github.com/alexisbeaulieu97/constellation/internal/domain/xerrors"
)

// HashPrefix is prepended to a structural hash when it is used as an
// external reference string (e.g. on the CLI or in a resume handle), so
// that a ref is unambiguously distinguishable from an alias name.
const HashPrefix = "sha256:"

// StripHashPrefix removes the "sha256:" ref prefix if present, returning
// the bare hex digest unchanged otherwise.
func StripHashPrefix(ref string) string {
	if len(ref) > len(HashPrefix) && ref[:len(HashPrefix)] == HashPrefix {
		return ref[len(HashPrefix):]
	}
	return ref
}

// syntacticKey identifies a cached compilation by the hash of its source
// text together with a hash of the module registry it was compiled
// against; two identical source texts compiled against different
// registries must miss the cache.
type syntacticKey struct {
	syntacticHash string
	registryHash  string
}

// PipelineImageStore is the C5 contract: store/get by structural hash,
// alias/resolve by human name, and a syntactic index for compile-avoidance.
// The image index itself is a bounded LRU so a long-running server process
// does not grow its compiled-image set without limit; aliases and the
// syntactic index are small by comparison and kept unbounded.
type PipelineImageStore struct {
	mu sync.RWMutex

	images *lru.Cache[string, image.PipelineImage]

	aliases map[string]string
	syn     map[syntacticKey]string
}

// DefaultImageCapacity bounds the number of distinct structural hashes the
// store keeps materialized at once.
const DefaultImageCapacity = 512

// New creates an empty store with the default bounded image capacity.
func New() (*PipelineImageStore, error) {
	return NewWithCapacity(DefaultImageCapacity)
}

// NewWithCapacity creates an empty store whose image index holds at most
// capacity entries before evicting the least recently used.
func NewWithCapacity(capacity int) (*PipelineImageStore, error) {
	cache, err := lru.New[string, image.PipelineImage](capacity)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInternal, "failed to construct image cache", err)
	}
	return &PipelineImageStore{
		images:  cache,
		aliases: make(map[string]string),
		syn:     make(map[syntacticKey]string),
	}, nil
}

// Store indexes an image by its structural hash, returning that hash. A
// second Store of an image with the same structural hash is a no-op
// overwrite (images are expected to be semantically identical whenever
// their structural hashes match).
func (s *PipelineImageStore) Store(img image.PipelineImage) (string, error) {
	if img.StructuralHash == "" {
		return "", xerrors.New(xerrors.CodeValidation, "cannot store an image with an empty structural hash")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images.Add(img.StructuralHash, img)
	return img.StructuralHash, nil
}

// Get returns the image for a structural hash, and false if absent.
func (s *PipelineImageStore) Get(hash string) (image.PipelineImage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.images.Get(StripHashPrefix(hash))
}

// Alias binds a human-readable name to a structural hash. The hash must
// already be present in the store.
func (s *PipelineImageStore) Alias(name, hash string) error {
	hash = StripHashPrefix(hash)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.images.Contains(hash) {
		return xerrors.New(xerrors.CodePipelineNotFound, "cannot alias an unknown structural hash").
			WithContext(map[string]interface{}{"hash": hash})
	}
	s.aliases[name] = hash
	return nil
}

// Resolve looks up the structural hash an alias name is bound to.
func (s *PipelineImageStore) Resolve(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hash, ok := s.aliases[name]
	return hash, ok
}

// ResolveRef resolves either an alias name or a "sha256:"-prefixed (or
// bare) structural hash into the image it identifies.
func (s *PipelineImageStore) ResolveRef(ref string) (image.PipelineImage, error) {
	if hash, ok := s.Resolve(ref); ok {
		img, ok := s.Get(hash)
		if !ok {
			return image.PipelineImage{}, xerrors.New(xerrors.CodePipelineNotFound, "alias resolved to a missing image").
				WithContext(map[string]interface{}{"alias": ref, "hash": hash})
		}
		return img, nil
	}
	img, ok := s.Get(ref)
	if !ok {
		return image.PipelineImage{}, xerrors.New(xerrors.CodePipelineNotFound, "no image for reference").
			WithContext(map[string]interface{}{"ref": ref})
	}
	return img, nil
}

// IndexSyntactic records that compiling syntacticHash against registryHash
// produced structuralHash.
func (s *PipelineImageStore) IndexSyntactic(syntacticHash, registryHash, structuralHash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syn[syntacticKey{syntacticHash, registryHash}] = structuralHash
}

// LookupSyntactic returns the structural hash previously recorded for the
// given (syntacticHash, registryHash) pair, if any.
func (s *PipelineImageStore) LookupSyntactic(syntacticHash, registryHash string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hash, ok := s.syn[syntacticKey{syntacticHash, registryHash}]
	return hash, ok
}

// ListImages returns the structural hashes currently held in the store.
func (s *PipelineImageStore) ListImages() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.images.Keys()
}

// ListAliases returns a copy of the alias-name → structural-hash map.
func (s *PipelineImageStore) ListAliases() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.aliases))
	for k, v := range s.aliases {
		out[k] = v
	}
	return out
}

// Remove evicts an image (and any aliases pointing to it) from the store,
// reporting whether it was present.
func (s *PipelineImageStore) Remove(hash string) bool {
	hash = StripHashPrefix(hash)
	s.mu.Lock()
	defer s.mu.Unlock()
	present := s.images.Remove(hash)
	for name, h := range s.aliases {
		if h == hash {
			delete(s.aliases, name)
		}
	}
	return present
}

// String renders a structural hash as an external reference.
func String(hash string) string {
	return fmt.Sprintf("%s%s", HashPrefix, StripHashPrefix(hash))
}
