// Package applyengine implements the apply orchestrator: plan diffing,
// the destroy→update→realize→create→drift-check apply sequence, atomic
// snapshot commit, and best-effort reverse-order rollback (spec.md §4.6).
package applyengine

import (
	"sort"

	"syslua/internal/hashutil"
	"syslua/internal/ir"
)

// BindUpdate pairs a new-generation bind hash with the old-generation
// hash it replaces via id-match.
type BindUpdate struct {
	NewHash hashutil.Hash
	OldHash hashutil.Hash
}

// PlanSummary is the diff between a newly evaluated manifest and the current
// snapshot's manifest (spec.md §4.6 "Plan computation").
type PlanSummary struct {
	BuildsToRealize []hashutil.Hash
	BindsToCreate   []hashutil.Hash
	BindsToUpdate   []BindUpdate
	BindsToDestroy  []hashutil.Hash
	BindsToKeep     []hashutil.Hash
}

// Empty reports whether the plan has no work at all.
func (p PlanSummary) Empty() bool {
	return len(p.BuildsToRealize) == 0 && len(p.BindsToCreate) == 0 &&
		len(p.BindsToUpdate) == 0 && len(p.BindsToDestroy) == 0
}

// ComputePlanSummary diffs newManifest against cur (the empty Manifest if no
// snapshot exists yet). isRealized reports whether a build hash is
// already present in obj/ — ordinarily store.Store.Has.
func ComputePlanSummary(newManifest, cur ir.Manifest, isRealized func(hashutil.Hash) bool) PlanSummary {
	var plan PlanSummary

	for h := range newManifest.Builds {
		if !isRealized(h) {
			plan.BuildsToRealize = append(plan.BuildsToRealize, h)
		}
	}
	sortHashes(plan.BuildsToRealize)

	idIndexCur := map[string]hashutil.Hash{}
	for h, b := range cur.Binds {
		if b.ID != "" {
			idIndexCur[b.ID] = h
		}
	}

	matchedCur := map[hashutil.Hash]bool{}

	for h, b := range newManifest.Binds {
		if _, ok := cur.Binds[h]; ok {
			plan.BindsToKeep = append(plan.BindsToKeep, h)
			matchedCur[h] = true
			continue
		}
		if b.ID != "" && b.Replace {
			if oldHash, ok := idIndexCur[b.ID]; ok {
				plan.BindsToUpdate = append(plan.BindsToUpdate, BindUpdate{NewHash: h, OldHash: oldHash})
				matchedCur[oldHash] = true
				continue
			}
		}
		plan.BindsToCreate = append(plan.BindsToCreate, h)
	}

	for h := range cur.Binds {
		if !matchedCur[h] {
			plan.BindsToDestroy = append(plan.BindsToDestroy, h)
		}
	}

	sortHashes(plan.BindsToCreate)
	sortHashes(plan.BindsToDestroy)
	sortHashes(plan.BindsToKeep)
	sort.Slice(plan.BindsToUpdate, func(i, j int) bool {
		return plan.BindsToUpdate[i].NewHash < plan.BindsToUpdate[j].NewHash
	})

	return plan
}

func sortHashes(hs []hashutil.Hash) {
	sort.Slice(hs, func(i, j int) bool { return hs[i] < hs[j] })
}
