package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeEntryScript(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "main.lua")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestEngineApplyEndToEnd(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "marker")
	script := writeEntryScript(t, `
sys.bind({
  id = "marker",
  apply = function(inputs, ctx)
    ctx:exec({ bin = "/usr/bin/touch", args = {"`+marker+`"} })
    return { path = "`+marker+`" }
  end,
  destroy = function(outputs, ctx)
    ctx:exec({ bin = "/bin/rm", args = {"-f", outputs.path} })
  end,
})
return { inputs = {}, setup = function(resolved) end }
`)

	e, err := New(Options{ScriptPath: script, StoreRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := e.Apply(context.Background())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if result.SnapshotID == "" {
		t.Fatal("expected a snapshot ID from a successful apply")
	}
	if _, err := os.Stat(marker); err != nil {
		t.Fatalf("expected bind apply to create %s: %v", marker, err)
	}

	current, err := e.Snapshots.Current()
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if current != result.SnapshotID {
		t.Fatalf("index.current = %q, want %q", current, result.SnapshotID)
	}
}

func TestEnginePlanDoesNotMutate(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "marker")
	script := writeEntryScript(t, `
sys.bind({
  id = "marker",
  apply = function(inputs, ctx)
    ctx:exec({ bin = "/usr/bin/touch", args = {"`+marker+`"} })
    return { path = "`+marker+`" }
  end,
})
return { inputs = {}, setup = function(resolved) end }
`)

	e, err := New(Options{ScriptPath: script, StoreRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	plan, err := e.Plan(context.Background())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.Empty() {
		t.Fatal("expected a non-empty plan for a bind not yet created")
	}
	if _, err := os.Stat(marker); err == nil {
		t.Fatal("Plan must not execute any action")
	}
}
