// Package ir holds the intermediate representation produced by evaluation:
// InputsRef, BuildDef, BindDef, Manifest, Snapshot, SnapshotIndex
// (spec.md §3).
package ir

import (
	"encoding/json"
	"fmt"

	"syslua/internal/hashutil"
)

// RefKind discriminates the InputsRef tagged union.
type RefKind string

const (
	KindString  RefKind = "string"
	KindNumber  RefKind = "number"
	KindBoolean RefKind = "boolean"
	KindNull    RefKind = "null"
	KindTable   RefKind = "table"
	KindArray   RefKind = "array"
	KindBuild   RefKind = "build"
	KindBind    RefKind = "bind"
)

// InputsRef is the evaluated form of a script-provided inputs table
// (spec.md §3). Exactly one of Scalar/Entries/Items/Hash is meaningful,
// selected by Kind.
type InputsRef struct {
	Kind    RefKind
	Scalar  any
	Entries map[string]InputsRef
	Items   []InputsRef
	Hash    hashutil.Hash
}

// String builds a string-scalar InputsRef.
func String(s string) InputsRef { return InputsRef{Kind: KindString, Scalar: s} }

// Number builds a number-scalar InputsRef.
func Number(n float64) InputsRef { return InputsRef{Kind: KindNumber, Scalar: n} }

// Boolean builds a boolean-scalar InputsRef.
func Boolean(b bool) InputsRef { return InputsRef{Kind: KindBoolean, Scalar: b} }

// Null builds a null InputsRef.
func Null() InputsRef { return InputsRef{Kind: KindNull} }

// Table builds a table InputsRef from key-sorted entries (determinism is
// the caller's responsibility at conversion time per spec.md §4.1).
func Table(entries map[string]InputsRef) InputsRef {
	return InputsRef{Kind: KindTable, Entries: entries}
}

// Array builds an array InputsRef.
func Array(items []InputsRef) InputsRef {
	return InputsRef{Kind: KindArray, Items: items}
}

// BuildRef builds a reference-by-hash to another build.
func BuildRef(h hashutil.Hash) InputsRef { return InputsRef{Kind: KindBuild, Hash: h} }

// BindRef builds a reference-by-hash to another bind.
func BindRef(h hashutil.Hash) InputsRef { return InputsRef{Kind: KindBind, Hash: h} }

type wireInputsRef struct {
	Kind    RefKind              `json:"kind"`
	Value   any                  `json:"value,omitempty"`
	Entries map[string]InputsRef `json:"entries,omitempty"`
	Items   []InputsRef          `json:"items,omitempty"`
	Hash    string               `json:"hash,omitempty"`
}

// MarshalJSON renders a tagged-union shape: {"kind": "...", <variant field>}.
func (r InputsRef) MarshalJSON() ([]byte, error) {
	w := wireInputsRef{Kind: r.Kind}
	switch r.Kind {
	case KindString, KindNumber, KindBoolean:
		w.Value = r.Scalar
	case KindNull:
		// no value field; null is implied by kind alone
	case KindTable:
		w.Entries = r.Entries
		if w.Entries == nil {
			w.Entries = map[string]InputsRef{}
		}
	case KindArray:
		w.Items = r.Items
		if w.Items == nil {
			w.Items = []InputsRef{}
		}
	case KindBuild, KindBind:
		w.Hash = string(r.Hash)
	default:
		return nil, fmt.Errorf("ir: invalid InputsRef kind %q", r.Kind)
	}
	return json.Marshal(w)
}

// UnmarshalJSON parses the tagged-union shape written by MarshalJSON.
func (r *InputsRef) UnmarshalJSON(data []byte) error {
	var w wireInputsRef
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.Kind = w.Kind
	r.Entries = w.Entries
	r.Items = w.Items
	r.Hash = hashutil.Hash(w.Hash)
	switch w.Kind {
	case KindString, KindNumber, KindBoolean, KindNull:
		r.Scalar = w.Value
	case KindTable, KindArray, KindBuild, KindBind:
		// handled via the shared fields above
	default:
		return fmt.Errorf("ir: invalid InputsRef kind %q", w.Kind)
	}
	return nil
}

// Walk visits r and every InputsRef nested within it (table entries, array
// items), calling visit for each. Used by manifest validation to find
// Build/Bind references.
func (r InputsRef) Walk(visit func(InputsRef)) {
	visit(r)
	switch r.Kind {
	case KindTable:
		for _, v := range r.Entries {
			v.Walk(visit)
		}
	case KindArray:
		for _, v := range r.Items {
			v.Walk(visit)
		}
	}
}
