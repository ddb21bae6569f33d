package luaeval

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "main.lua")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestEvaluateCapturesBuildWithoutInputs(t *testing.T) {
	script := writeScript(t, `
local b = sys.build({
  name = "hello",
  version = "1.0",
  apply = function(inputs, ctx)
    local out = ctx:exec({ bin = "/bin/echo", args = {"hi"} })
    return { bin = out, dir = ctx.out }
  end,
})
return { inputs = {}, setup = function(resolved) end }
`)

	manifest, spec, err := New().Evaluate(script, map[string]ResolvedInput{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(spec) != 0 {
		t.Fatalf("expected an empty InputsSpec, got %+v", spec)
	}
	if len(manifest.Builds) != 1 {
		t.Fatalf("expected 1 build, got %d", len(manifest.Builds))
	}
	for _, b := range manifest.Builds {
		if b.Name != "hello" || b.Version != "1.0" {
			t.Fatalf("unexpected build %+v", b)
		}
		if len(b.ApplyActions) != 1 || b.ApplyActions[0].Bin != "/bin/echo" {
			t.Fatalf("unexpected apply actions %+v", b.ApplyActions)
		}
		if b.Outputs["bin"] != "$${action:0}" {
			t.Fatalf("expected action placeholder, got %q", b.Outputs["bin"])
		}
		if b.Outputs["dir"] != "$${out}" {
			t.Fatalf("expected out placeholder, got %q", b.Outputs["dir"])
		}
	}
}

func TestEvaluatePreResolutionPassSkipsSetup(t *testing.T) {
	script := writeScript(t, `
return {
  inputs = { foo = "git:https://example.com/foo#main" },
  setup = function(resolved)
    sys.build({ name = "x", apply = function(i, ctx) return {} end })
  end,
}
`)

	manifest, spec, err := New().Evaluate(script, nil)
	if err != nil {
		t.Fatalf("Evaluate (pre-resolution): %v", err)
	}
	if spec["foo"] != "git:https://example.com/foo#main" {
		t.Fatalf("unexpected InputsSpec %+v", spec)
	}
	if len(manifest.Builds) != 0 {
		t.Fatal("setup must not run before inputs are resolved")
	}

	manifest2, _, err := New().Evaluate(script, map[string]ResolvedInput{
		"foo": {Path: "/tmp/foo", Rev: "abc123"},
	})
	if err != nil {
		t.Fatalf("Evaluate (post-resolution): %v", err)
	}
	if len(manifest2.Builds) != 1 {
		t.Fatalf("expected setup's sys.build to register 1 build, got %d", len(manifest2.Builds))
	}
}

func TestEvaluateBindDestroyUsesSelfOutputs(t *testing.T) {
	script := writeScript(t, `
sys.bind({
  id = "a",
  apply = function(inputs, ctx)
    local p = ctx:exec({ bin = "/usr/bin/touch", args = {"/tmp/syslua-test-a"} })
    return { path = "/tmp/syslua-test-a" }
  end,
  destroy = function(outputs, ctx)
    ctx:exec({ bin = "/bin/rm", args = {"-f", outputs.path} })
  end,
})
return { inputs = {}, setup = function(resolved) end }
`)

	manifest, _, err := New().Evaluate(script, map[string]ResolvedInput{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(manifest.Binds) != 1 {
		t.Fatalf("expected 1 bind, got %d", len(manifest.Binds))
	}
	for _, b := range manifest.Binds {
		if b.ID != "a" {
			t.Fatalf("unexpected id %q", b.ID)
		}
		if len(b.DestroyActions) != 1 {
			t.Fatalf("expected 1 destroy action, got %d", len(b.DestroyActions))
		}
		want := "$${self:outputs:path}"
		got := b.DestroyActions[0].Args[1]
		if got != want {
			t.Fatalf("destroy action arg = %q, want %q", got, want)
		}
	}
}

func TestEvaluateCrossBuildReference(t *testing.T) {
	script := writeScript(t, `
local base = sys.build({ name = "base", apply = function(i, ctx) return { path = ctx.out } end })
sys.build({
  name = "dependent",
  inputs = { base = base },
  apply = function(inputs, ctx)
    return { base_path = inputs.base.outputs.path }
  end,
})
return { inputs = {}, setup = function(resolved) end }
`)

	manifest, _, err := New().Evaluate(script, map[string]ResolvedInput{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(manifest.Builds) != 2 {
		t.Fatalf("expected 2 builds, got %d", len(manifest.Builds))
	}
	var baseHash, depOutput string
	for h, b := range manifest.Builds {
		if b.Name == "base" {
			baseHash = string(h)
		}
		if b.Name == "dependent" {
			depOutput = b.Outputs["base_path"]
			if b.Inputs == nil || b.Inputs.Kind != "table" {
				t.Fatalf("expected dependent's Inputs to be a table, got %+v", b.Inputs)
			}
		}
	}
	if baseHash == "" || depOutput == "" {
		t.Fatal("missing base/dependent builds")
	}
	if !strings.Contains(depOutput, baseHash) {
		t.Fatalf("dependent's output %q does not reference base's hash %q", depOutput, baseHash)
	}
}

func TestEvaluateRejectsClosureAsInput(t *testing.T) {
	script := writeScript(t, `
sys.build({
  name = "bad",
  inputs = { fn = function() end },
  apply = function(i, ctx) return {} end,
})
return { inputs = {}, setup = function(resolved) end }
`)

	_, _, err := New().Evaluate(script, map[string]ResolvedInput{})
	if err == nil {
		t.Fatal("expected an evaluation error for a closure input value")
	}
}

func TestEvaluateRejectsNonTableReturn(t *testing.T) {
	script := writeScript(t, `return "oops"`)
	_, _, err := New().Evaluate(script, nil)
	if err == nil {
		t.Fatal("expected an error for a non-table entry script return")
	}
}
