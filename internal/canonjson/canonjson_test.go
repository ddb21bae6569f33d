package canonjson

import "testing"

func TestMarshalSortsKeys(t *testing.T) {
	v := map[string]any{"b": 1, "a": 2}
	got, err := Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"a":2,"b":1}` {
		t.Fatalf("got %s", got)
	}
}

func TestMarshalDeterministicAcrossStructFieldOrder(t *testing.T) {
	type A struct {
		Z string `json:"z"`
		Y string `json:"y"`
	}
	type B struct {
		Y string `json:"y"`
		Z string `json:"z"`
	}
	a, err := Marshal(A{Z: "1", Y: "2"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Marshal(B{Y: "2", Z: "1"})
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Fatalf("expected identical canonical form, got %s vs %s", a, b)
	}
}

func TestMarshalNoWhitespace(t *testing.T) {
	got, err := Marshal([]any{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "[1,2,3]" {
		t.Fatalf("got %s", got)
	}
}

func TestMarshalShortestFloat(t *testing.T) {
	got, err := Marshal(1.50)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "1.5" {
		t.Fatalf("got %s", got)
	}
}

func TestMarshalNullAndBool(t *testing.T) {
	got, err := Marshal(map[string]any{"n": nil, "t": true, "f": false})
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"f":false,"n":null,"t":true}` {
		t.Fatalf("got %s", got)
	}
}
