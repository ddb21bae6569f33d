package placeholder

import "testing"

func TestSubstituteOut(t *testing.T) {
	r := &Resolver{Out: "/store/obj/abc"}
	got, err := r.Substitute("prefix $${out} suffix")
	if err != nil {
		t.Fatal(err)
	}
	if got != "prefix /store/obj/abc suffix" {
		t.Fatalf("got %q", got)
	}
}

func TestSubstituteAction(t *testing.T) {
	r := &Resolver{ActionResults: []string{"first", "second"}}
	got, err := r.Substitute(ActionRef(1))
	if err != nil {
		t.Fatal(err)
	}
	if got != "second" {
		t.Fatalf("got %q", got)
	}
}

func TestSubstituteBuildOutput(t *testing.T) {
	r := &Resolver{BuildOutputs: map[string]map[string]string{
		"a1c2a1c2a1c2a1c2a1c2": {"bin": "/store/obj/a1c2a1c2a1c2a1c2a1c2/bin"},
	}}
	got, err := r.Substitute(BuildOutputRef("a1c2a1c2a1c2a1c2a1c2", "bin"))
	if err != nil {
		t.Fatal(err)
	}
	if got != "/store/obj/a1c2a1c2a1c2a1c2a1c2/bin" {
		t.Fatalf("got %q", got)
	}
}

func TestSubstituteUnknownTokenFails(t *testing.T) {
	r := &Resolver{}
	_, err := r.Substitute("$${nope:x}")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestSubstituteNonRecursive(t *testing.T) {
	r := &Resolver{ActionResults: []string{"$${out}"}}
	r.Out = "should-not-appear"
	got, err := r.Substitute(ActionRef(0))
	if err != nil {
		t.Fatal(err)
	}
	if got != "$${out}" {
		t.Fatalf("expected literal insertion without re-scan, got %q", got)
	}
}

func TestClosed(t *testing.T) {
	if !Closed("no tokens here") {
		t.Fatal("expected closed")
	}
	if Closed("has $${out} token") {
		t.Fatal("expected not closed")
	}
}
