package suspendstore

import (
	"sync"

	"github.com/google/uuid"

	"github.com/alexisbeaulieu97/constellation/internal/domain/suspension"
	"github.com/alexisbeaulieu97/constellation/internal/domain/xerrors"
)

// Handle identifies a saved snapshot. It is the execution's own UUID: unlike
// internal/store's structural-hash addressing (many runs can share one
// compiled image), a suspension belongs to exactly one run.
type Handle = uuid.UUID

// Filter narrows a List call. A zero Filter matches everything.
type Filter struct {
	// StructuralHash, if non-empty, restricts to snapshots of that pipeline.
	StructuralHash string
}

func (f Filter) matches(s suspension.SuspendedExecution) bool {
	if f.StructuralHash != "" && f.StructuralHash != s.StructuralHash {
		return false
	}
	return true
}

// Store is the C10 suspension store: save/load/delete/list by execution
// handle, guarded by a single RWMutex (suspensions are comparatively rare
// and small next to compiled images, so no LRU eviction is needed, unlike
// internal/store's bounded image cache).
type Store struct {
	mu        sync.RWMutex
	snapshots map[Handle]suspension.SuspendedExecution
}

// New creates an empty suspension store.
func New() *Store {
	return &Store{snapshots: make(map[Handle]suspension.SuspendedExecution)}
}

// Save stores (or overwrites) a snapshot under its own ExecutionID, and
// returns that ID as the handle callers use to load/delete/resume it.
func (s *Store) Save(snapshot suspension.SuspendedExecution) (Handle, error) {
	if snapshot.ExecutionID == uuid.Nil {
		return uuid.Nil, xerrors.New(xerrors.CodeValidation, "cannot save a snapshot with a nil execution id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snapshot.ExecutionID] = snapshot.Clone()
	return snapshot.ExecutionID, nil
}

// Load returns the snapshot for handle, and false if absent.
func (s *Store) Load(handle Handle) (suspension.SuspendedExecution, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot, ok := s.snapshots[handle]
	if !ok {
		return suspension.SuspendedExecution{}, false
	}
	return snapshot.Clone(), true
}

// Delete removes a snapshot, reporting whether it was present.
func (s *Store) Delete(handle Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.snapshots[handle]; !ok {
		return false
	}
	delete(s.snapshots, handle)
	return true
}

// List returns the handles of every snapshot matching filter.
func (s *Store) List(filter Filter) []Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Handle
	for handle, snapshot := range s.snapshots {
		if filter.matches(snapshot) {
			out = append(out, handle)
		}
	}
	return out
}
