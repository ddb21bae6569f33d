package snapshotstore

import (
	"syslua/internal/applyengine"
	"syslua/internal/ir"
	"syslua/internal/store"
)

// Diff projects the same diff machinery Apply uses internally (spec.md
// §4.6), as a pure read-only operation: it loads snapshots a and b and
// returns the PlanSummary of moving from a to b, without starting an
// apply. a or b may be "" to mean an empty manifest (e.g. diffing
// against a from-scratch store).
//
// Deviation from the literal two-string signature: Diff also takes the
// target store, needed to populate PlanSummary.BuildsToRealize
// correctly (a build already realized in obj/ is never "to realize"
// even if it's new to the snapshot being diffed toward).
func (s *Store) Diff(st *store.Store, a, b string) (applyengine.PlanSummary, error) {
	from, err := s.manifestOf(a)
	if err != nil {
		return applyengine.PlanSummary{}, err
	}
	to, err := s.manifestOf(b)
	if err != nil {
		return applyengine.PlanSummary{}, err
	}
	return applyengine.ComputePlanSummary(to, from, st.Has), nil
}

func (s *Store) manifestOf(id string) (ir.Manifest, error) {
	if id == "" {
		return ir.NewManifest(), nil
	}
	snap, err := s.Load(id)
	if err != nil {
		return ir.Manifest{}, err
	}
	return snap.Manifest, nil
}
