package snapshotstore

import (
	"context"
	"fmt"
	"time"

	"syslua/internal/hashutil"
	"syslua/internal/store"
)

// GCResult summarizes a completed garbage collection pass.
type GCResult struct {
	ObjectsRemoved int
	BytesFreed     int64
	BindsRemoved   int
}

// GC walks every snapshot (including ones no longer current, as long as
// they remain in snapshots/), collects the set of build and bind hashes
// they reference, and removes any obj/<hash>/ or bind/<hash>/ not in that
// set (spec.md §4.4). It runs under the store's exclusive lock so no
// concurrent apply can realize a build mid-sweep.
func (s *Store) GC(ctx context.Context, st *store.Store, lockTimeout time.Duration) (GCResult, error) {
	lock := st.NewLock()
	if err := lock.Acquire(ctx, store.ExclusiveLock, lockTimeout); err != nil {
		return GCResult{}, err
	}
	defer lock.Release()

	reachableBuilds, reachableBinds, err := s.reachableSets()
	if err != nil {
		return GCResult{}, err
	}

	var result GCResult

	objHashes, err := st.ListObjHashes()
	if err != nil {
		return result, err
	}
	for _, h := range objHashes {
		if _, ok := reachableBuilds[h]; ok {
			continue
		}
		size, _ := store.DirSize(st.ObjDir(h))
		if err := st.Delete(h); err != nil {
			return result, fmt.Errorf("snapshotstore: gc delete %s: %w", h, err)
		}
		result.ObjectsRemoved++
		result.BytesFreed += size
	}

	bindHashes, err := st.ListBindHashes()
	if err != nil {
		return result, err
	}
	for _, h := range bindHashes {
		if _, ok := reachableBinds[h]; ok {
			continue
		}
		if err := st.DeleteBindState(h); err != nil {
			return result, fmt.Errorf("snapshotstore: gc delete bind state %s: %w", h, err)
		}
		result.BindsRemoved++
	}

	return result, nil
}

// reachableSets unions the build and bind hashes referenced by every
// snapshot still present in snapshots/ (current or not — any snapshot
// file that exists is a GC root, per spec.md §4.4 invariant 1: "hash ==
// H(BuildDef) where BuildDef appears in *some* snapshot").
func (s *Store) reachableSets() (map[hashutil.Hash]struct{}, map[hashutil.Hash]struct{}, error) {
	metas, err := s.List()
	if err != nil {
		return nil, nil, err
	}
	builds := map[hashutil.Hash]struct{}{}
	binds := map[hashutil.Hash]struct{}{}
	for _, meta := range metas {
		snap, err := s.Load(meta.ID)
		if err != nil {
			return nil, nil, err
		}
		for h := range snap.Manifest.Builds {
			builds[h] = struct{}{}
		}
		for h := range snap.Manifest.Binds {
			binds[h] = struct{}{}
		}
	}
	return builds, binds, nil
}
