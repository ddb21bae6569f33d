package applyengine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"syslua/internal/dag"
	"syslua/internal/hashutil"
	"syslua/internal/ir"
	"syslua/internal/store"
	"syslua/internal/syserr"
)

// Apply runs one full apply cycle against an already-evaluated manifest:
// plan, destroy, update, realize, create, drift-check, and atomic
// snapshot commit, all under the store's exclusive lock (spec.md §4.6).
// Evaluation and input resolution happen before this call; Apply's input
// is already the resolved Manifest_new.
func Apply(ctx context.Context, st *store.Store, snaps SnapshotCommitter, newManifest ir.Manifest, configPath string, opts Options) (Result, error) {
	if err := newManifest.Validate(); err != nil {
		return Result{}, err
	}

	lock := st.NewLock()
	if err := lock.Acquire(ctx, store.ExclusiveLock, opts.LockTimeout); err != nil {
		return Result{}, err
	}
	defer lock.Release()

	curSnap, hasCur, err := snaps.LoadCurrent()
	if err != nil {
		return Result{}, err
	}
	curManifest := ir.NewManifest()
	if hasCur {
		curManifest = curSnap.Manifest
	}

	plan := ComputePlanSummary(newManifest, curManifest, st.Has)

	if opts.DryRun {
		return Result{Plan: plan, DryRun: true}, nil
	}

	exec := NewExecutor(st, curSnap.BindOutputs)

	newGraph := dag.BuildFromManifest(newManifest)
	newWaves, err := newGraph.Waves()
	if err != nil {
		return Result{Plan: plan}, err
	}
	curGraph := dag.BuildFromManifest(curManifest)
	curWaves, err := curGraph.Waves()
	if err != nil {
		return Result{Plan: plan}, err
	}

	var executedMu sync.Mutex
	var executed []executedStep
	record := func(step executedStep) {
		executedMu.Lock()
		executed = append(executed, step)
		executedMu.Unlock()
	}
	rollbackAndFail := func(cause error) (Result, error) {
		failures := rollback(ctx, exec, curManifest, newManifest, curSnap, executed)
		if len(failures) > 0 {
			return Result{Plan: plan}, &syserr.RollbackIncomplete{Original: cause, Failures: failures}
		}
		return Result{Plan: plan}, &syserr.RollbackSucceeded{Original: cause}
	}

	// Step 4: destroy, reverse topological order of the current manifest.
	destroyNodes := bindNodeSet(dag.NodeBind, hashSet(plan.BindsToDestroy))
	destroyWaves := dag.ReverseWaves(dag.FilterWaves(curWaves, destroyNodes))
	if err := dag.ExecuteWaves(ctx, destroyWaves, opts.Concurrency, func(ctx context.Context, id dag.NodeID) error {
		def := curManifest.Binds[id.Hash]
		if err := exec.DestroyBind(ctx, id.Hash, def); err != nil {
			return err
		}
		record(executedStep{kind: stepDestroy, hash: id.Hash})
		return nil
	}); err != nil {
		return rollbackAndFail(err)
	}

	// Step 5: update, topological order of the new manifest.
	updatesByNew := make(map[hashutil.Hash]hashutil.Hash, len(plan.BindsToUpdate))
	for _, u := range plan.BindsToUpdate {
		updatesByNew[u.NewHash] = u.OldHash
	}
	updateWaves := dag.FilterWaves(newWaves, updateNodeSet(plan.BindsToUpdate))
	if err := dag.ExecuteWaves(ctx, updateWaves, opts.Concurrency, func(ctx context.Context, id dag.NodeID) error {
		def := newManifest.Binds[id.Hash]
		if _, err := exec.ApplyBind(ctx, id.Hash, def); err != nil {
			return err
		}
		record(executedStep{kind: stepUpdate, hash: id.Hash, oldHash: updatesByNew[id.Hash]})
		return nil
	}); err != nil {
		return rollbackAndFail(err)
	}

	// Step 6: realize builds, topological order of the new manifest.
	realizeWaves := dag.FilterWaves(newWaves, bindNodeSet(dag.NodeBuild, hashSet(plan.BuildsToRealize)))
	if err := dag.ExecuteWaves(ctx, realizeWaves, opts.Concurrency, func(ctx context.Context, id dag.NodeID) error {
		def := newManifest.Builds[id.Hash]
		if _, err := exec.RealizeBuild(ctx, id.Hash, def); err != nil {
			return err
		}
		record(executedStep{kind: stepRealize, hash: id.Hash})
		return nil
	}); err != nil {
		return rollbackAndFail(err)
	}
	if err := exec.loadAllBuildOutputs(newManifest); err != nil {
		return rollbackAndFail(err)
	}

	// Step 7: create, topological order of the new manifest.
	createWaves := dag.FilterWaves(newWaves, bindNodeSet(dag.NodeBind, hashSet(plan.BindsToCreate)))
	if err := dag.ExecuteWaves(ctx, createWaves, opts.Concurrency, func(ctx context.Context, id dag.NodeID) error {
		def := newManifest.Binds[id.Hash]
		if _, err := exec.ApplyBind(ctx, id.Hash, def); err != nil {
			return err
		}
		record(executedStep{kind: stepCreate, hash: id.Hash})
		return nil
	}); err != nil {
		return rollbackAndFail(err)
	}

	// Step 8: drift-check binds_to_keep.
	for _, h := range plan.BindsToKeep {
		def := newManifest.Binds[h]
		drifted, err := exec.checkDrift(h)
		if err != nil {
			return rollbackAndFail(err)
		}
		if !drifted {
			continue
		}
		if opts.StrictDrift {
			return rollbackAndFail(&syserr.DriftDetected{Hash: string(h)})
		}
		if _, err := exec.ApplyBind(ctx, h, def); err != nil {
			return rollbackAndFail(err)
		}
		record(executedStep{kind: stepUpdate, hash: h, oldHash: h})
	}

	// Step 9: write snapshot, then flip index.current — the commit point.
	newID := newSnapshotID(time.Now())
	snap := ir.Snapshot{
		ID:          newID,
		CreatedAt:   uint64(time.Now().Unix()),
		ConfigPath:  configPath,
		Manifest:    newManifest,
		BindOutputs: exec.allBindOutputs(),
	}
	if err := snaps.Save(snap); err != nil {
		return Result{Plan: plan}, fmt.Errorf("applyengine: write snapshot: %w", err)
	}
	if err := snaps.SetCurrent(newID); err != nil {
		return Result{Plan: plan}, fmt.Errorf("applyengine: commit snapshot: %w", err)
	}

	return Result{Plan: plan, SnapshotID: newID}, nil
}
