package snapshotstore

import (
	"testing"

	"syslua/internal/action"
	"syslua/internal/ir"
	"syslua/internal/store"
)

func TestDiffComparesTwoSnapshots(t *testing.T) {
	root := t.TempDir()
	st := store.New(root)
	if err := st.Init(); err != nil {
		t.Fatalf("store Init: %v", err)
	}
	s := New(st.SnapshotsDir())
	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	bind := ir.BindDef{
		ID:           "a",
		ApplyActions: []action.Action{action.Exec("/bin/true", nil, nil, "")},
	}
	h, err := bind.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	m := ir.NewManifest()
	m.Binds[h] = bind

	snap := ir.Snapshot{ID: "20260101T000000.000000000Z", Manifest: m}
	if err := s.Save(snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	plan, err := s.Diff(st, "", snap.ID)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if len(plan.BindsToCreate) != 1 || plan.BindsToCreate[0] != h {
		t.Fatalf("expected bind %s to be a create, got %+v", h, plan)
	}

	plan2, err := s.Diff(st, snap.ID, "")
	if err != nil {
		t.Fatalf("Diff (reverse): %v", err)
	}
	if len(plan2.BindsToDestroy) != 1 || plan2.BindsToDestroy[0] != h {
		t.Fatalf("expected bind %s to be a destroy, got %+v", h, plan2)
	}

	plan3, err := s.Diff(st, snap.ID, snap.ID)
	if err != nil {
		t.Fatalf("Diff (identity): %v", err)
	}
	if !plan3.Empty() {
		t.Fatalf("expected an empty plan diffing a snapshot against itself, got %+v", plan3)
	}
}
