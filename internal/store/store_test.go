package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"syslua/internal/action"
	"syslua/internal/hashutil"
	"syslua/internal/ir"
	"syslua/internal/syserr"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(t.TempDir())
	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return s
}

func TestRealizeIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	def := ir.BuildDef{
		Name:         "example",
		ApplyActions: []action.Action{action.Exec("/bin/true", nil, nil, "")},
		Outputs:      map[string]string{"out": "${out}"},
	}

	writes := 0
	write := func(dir string) error {
		writes++
		return os.WriteFile(filepath.Join(dir, "payload"), []byte("hi"), 0o444)
	}

	h1, err := s.RealizeBuild(def, write)
	if err != nil {
		t.Fatalf("RealizeBuild: %v", err)
	}
	if !s.Has(h1) {
		t.Fatalf("expected realized dir for %s", h1)
	}
	h2, err := s.RealizeBuild(def, write)
	if err != nil {
		t.Fatalf("RealizeBuild (again): %v", err)
	}
	if h1 != h2 {
		t.Fatalf("hash not stable across calls: %s != %s", h1, h2)
	}
	if writes != 1 {
		t.Fatalf("expected writeOutputs invoked once, got %d", writes)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	s := newTestStore(t)
	def := ir.BuildDef{Name: "tampered", ApplyActions: []action.Action{}}

	h, err := s.RealizeBuild(def, nil)
	if err != nil {
		t.Fatalf("RealizeBuild: %v", err)
	}
	if err := s.Verify(h); err != nil {
		t.Fatalf("Verify on untouched object: %v", err)
	}

	manifestPath := filepath.Join(s.ObjDir(h), buildManifestFile)
	if err := s.MakeMutable(h); err != nil {
		t.Fatalf("MakeMutable: %v", err)
	}
	if err := os.WriteFile(manifestPath, []byte(`{"name":"tampered-evil","apply_actions":[]}`), 0o644); err != nil {
		t.Fatalf("tamper write: %v", err)
	}

	err = s.Verify(h)
	if err == nil {
		t.Fatal("expected Verify to detect tampering")
	}
	if _, ok := err.(*syserr.HashMismatch); !ok {
		t.Fatalf("expected *syserr.HashMismatch, got %T: %v", err, err)
	}
}

func TestVerifyMissingObject(t *testing.T) {
	s := newTestStore(t)
	err := s.Verify("deadbeefdeadbeefdead")
	if _, ok := err.(*syserr.NotFound); !ok {
		t.Fatalf("expected *syserr.NotFound, got %T: %v", err, err)
	}
}

func TestBindStateRoundTrip(t *testing.T) {
	s := newTestStore(t)
	h := hashutil.Hash("0123456789abcdef0123")

	if s.HasBindState(h) {
		t.Fatal("expected no bind state before write")
	}
	if err := s.WriteBindState(h, map[string]string{"id": "container-123"}); err != nil {
		t.Fatalf("WriteBindState: %v", err)
	}
	if !s.HasBindState(h) {
		t.Fatal("expected bind state after write")
	}
	outputs, ok, err := s.ReadBindState(h)
	if err != nil {
		t.Fatalf("ReadBindState: %v", err)
	}
	if !ok || outputs["id"] != "container-123" {
		t.Fatalf("unexpected outputs: %+v (ok=%v)", outputs, ok)
	}
	if err := s.DeleteBindState(h); err != nil {
		t.Fatalf("DeleteBindState: %v", err)
	}
	if s.HasBindState(h) {
		t.Fatal("expected bind state gone after delete")
	}
}

func TestLockExclusiveBlocksExclusive(t *testing.T) {
	s := newTestStore(t)
	holder := s.NewLock()
	if err := holder.Acquire(context.Background(), ExclusiveLock, time.Second); err != nil {
		t.Fatalf("holder Acquire: %v", err)
	}
	defer holder.Release()

	contender := s.NewLock()
	err := contender.Acquire(context.Background(), ExclusiveLock, 200*time.Millisecond)
	if _, ok := err.(*syserr.LockBusy); !ok {
		t.Fatalf("expected *syserr.LockBusy, got %v", err)
	}
}
