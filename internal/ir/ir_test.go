package ir

import (
	"encoding/json"
	"reflect"
	"testing"

	"syslua/internal/action"
	"syslua/internal/canonjson"
	"syslua/internal/hashutil"
)

func sampleBuildDef() BuildDef {
	return BuildDef{
		Name:    "ripgrep",
		Version: "1.0",
		Inputs:  ref(Table(map[string]InputsRef{"os": String("linux")})),
		ApplyActions: []action.Action{
			action.FetchURL("https://example.invalid/tool.tgz", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"),
			action.Exec("/bin/tar", []string{"xf", "$${action:0}", "-C", "$${out}"}, nil, ""),
		},
		Outputs: map[string]string{"bin": "$${out}/bin"},
	}
}

func ref(r InputsRef) *InputsRef { return &r }

func TestBuildDefHashDeterministic(t *testing.T) {
	h1, err := sampleBuildDef().Hash()
	if err != nil {
		t.Fatal(err)
	}
	h2, err := sampleBuildDef().Hash()
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Fatalf("expected identical hash across identical evaluations, got %s vs %s", h1, h2)
	}
}

func TestBuildDefHashIgnoresSourceLocation(t *testing.T) {
	a := sampleBuildDef()
	a.Source = SourceLocation{Script: "/home/alice/config.lua", Line: 12}
	b := sampleBuildDef()
	b.Source = SourceLocation{Script: "/home/bob/config.lua", Line: 99}
	ha, _ := a.Hash()
	hb, _ := b.Hash()
	if ha != hb {
		t.Fatalf("expected hash independent of source location, got %s vs %s", ha, hb)
	}
}

func TestManifestHashOrderIndependent(t *testing.T) {
	bd := sampleBuildDef()
	h, err := bd.Hash()
	if err != nil {
		t.Fatal(err)
	}

	m1 := NewManifest()
	m1.Builds[h] = bd

	other := sampleBuildDef()
	other.Name = "jq"
	ho, _ := other.Hash()

	m2 := NewManifest()
	m2.Builds[ho] = other
	m2.Builds[h] = bd // inserted in different order than an equivalent map built the other way

	raw1, err := canonjson.Marshal(m1.Builds[h])
	if err != nil {
		t.Fatal(err)
	}
	raw2, err := canonjson.Marshal(m2.Builds[h])
	if err != nil {
		t.Fatal(err)
	}
	if string(raw1) != string(raw2) {
		t.Fatalf("expected identical canonical form regardless of manifest insertion order")
	}
}

func TestManifestCanonicalFormStableAcrossInsertionOrder(t *testing.T) {
	a := sampleBuildDef()
	ha, _ := a.Hash()
	b := sampleBuildDef()
	b.Name = "jq"
	hb, _ := b.Hash()

	m1 := NewManifest()
	m1.Builds[ha] = a
	m1.Builds[hb] = b

	m2 := NewManifest()
	m2.Builds[hb] = b
	m2.Builds[ha] = a

	raw1, err := canonjson.Marshal(m1)
	if err != nil {
		t.Fatal(err)
	}
	raw2, err := canonjson.Marshal(m2)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw1) != string(raw2) {
		t.Fatalf("expected manifest canonical form to be independent of Go map insertion order")
	}
}

func TestInputsRefRoundTrip(t *testing.T) {
	orig := Table(map[string]InputsRef{
		"name":  String("rg"),
		"count": Number(3),
		"ok":    Boolean(true),
		"empty": Null(),
		"list":  Array([]InputsRef{String("a"), String("b")}),
		"dep":   BuildRef(hashutil.Hash("a1c2a1c2a1c2a1c2a1c2")),
	})
	raw, err := json.Marshal(orig)
	if err != nil {
		t.Fatal(err)
	}
	var got InputsRef
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(orig, got) {
		t.Fatalf("round trip mismatch:\n  orig=%+v\n  got=%+v", orig, got)
	}
}

func TestValidateRejectsBuildDependsOnBind(t *testing.T) {
	bindHash := hashutil.Hash("b1b1b1b1b1b1b1b1b1b1")
	bd := sampleBuildDef()
	bd.Inputs = ref(BindRef(bindHash))
	buildHash, _ := bd.Hash()

	m := NewManifest()
	m.Builds[buildHash] = bd
	m.Binds[bindHash] = BindDef{ApplyActions: []action.Action{}}

	err := m.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := err.(*ErrBuildDependsOnBind); !ok {
		t.Fatalf("expected *ErrBuildDependsOnBind, got %T: %v", err, err)
	}
}

func TestValidateRejectsDanglingReference(t *testing.T) {
	bd := sampleBuildDef()
	bd.Inputs = ref(BuildRef(hashutil.Hash("ffffffffffffffffffff")))
	h, _ := bd.Hash()

	m := NewManifest()
	m.Builds[h] = bd

	err := m.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := err.(*ErrDanglingReference); !ok {
		t.Fatalf("expected *ErrDanglingReference, got %T", err)
	}
}

func TestValidateAcceptsWellFormedManifest(t *testing.T) {
	bd := sampleBuildDef()
	bd.Inputs = nil
	h, _ := bd.Hash()
	m := NewManifest()
	m.Builds[h] = bd
	if err := m.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
