package ir

import (
	"syslua/internal/action"
	"syslua/internal/hashutil"
)

// SourceLocation pins a definition to where it was declared in the entry
// script, for error messages only — it is never part of the hash input
// (two checkouts at different paths must still hash identically).
type SourceLocation struct {
	Script string
	Line   int
}

// BuildDef is a pure content producer (spec.md §3 "BuildDef").
type BuildDef struct {
	Name         string         `json:"name"`
	Version      string         `json:"version,omitempty"`
	Inputs       *InputsRef     `json:"inputs,omitempty"`
	ApplyActions []action.Action `json:"apply_actions"`
	Outputs      map[string]string `json:"outputs,omitempty"`

	Source SourceLocation `json:"-"`
}

type hashableBuildDef struct {
	Name         string            `json:"name"`
	Version      string            `json:"version,omitempty"`
	Inputs       *InputsRef        `json:"inputs,omitempty"`
	ApplyActions []action.Action   `json:"apply_actions"`
	Outputs      map[string]string `json:"outputs,omitempty"`
}

// Hash computes the BuildDef's content hash over its canonical JSON form,
// excluding SourceLocation (spec.md §3 "Hash").
func (b BuildDef) Hash() (hashutil.Hash, error) {
	return hashutil.Of(hashableBuildDef{
		Name:         b.Name,
		Version:      b.Version,
		Inputs:       b.Inputs,
		ApplyActions: b.ApplyActions,
		Outputs:      b.Outputs,
	})
}

// BindDef is a stateful system effect with create/update/destroy lifecycles
// (spec.md §3 "BindDef").
type BindDef struct {
	ID             string          `json:"id,omitempty"`
	Replace        bool            `json:"replace,omitempty"`
	Inputs         *InputsRef      `json:"inputs,omitempty"`
	ApplyActions   []action.Action `json:"apply_actions"`
	DestroyActions []action.Action `json:"destroy_actions,omitempty"`
	Outputs        map[string]string `json:"outputs,omitempty"`

	Source SourceLocation `json:"-"`
}

type hashableBindDef struct {
	ID             string            `json:"id,omitempty"`
	Replace        bool              `json:"replace,omitempty"`
	Inputs         *InputsRef        `json:"inputs,omitempty"`
	ApplyActions   []action.Action   `json:"apply_actions"`
	DestroyActions []action.Action   `json:"destroy_actions,omitempty"`
	Outputs        map[string]string `json:"outputs,omitempty"`
}

// Hash computes the BindDef's content hash, excluding SourceLocation.
func (b BindDef) Hash() (hashutil.Hash, error) {
	return hashutil.Of(hashableBindDef{
		ID:             b.ID,
		Replace:        b.Replace,
		Inputs:         b.Inputs,
		ApplyActions:   b.ApplyActions,
		DestroyActions: b.DestroyActions,
		Outputs:        b.Outputs,
	})
}

// Manifest is the intermediate representation produced by evaluation: maps
// of builds and binds keyed by hash (spec.md §3 "Manifest").
type Manifest struct {
	Builds map[hashutil.Hash]BuildDef `json:"builds"`
	Binds  map[hashutil.Hash]BindDef  `json:"binds"`
}

// NewManifest returns an empty, ready-to-populate Manifest.
func NewManifest() Manifest {
	return Manifest{
		Builds: map[hashutil.Hash]BuildDef{},
		Binds:  map[hashutil.Hash]BindDef{},
	}
}

// Snapshot is a point-in-time immutable record of a successful apply
// (spec.md §3 "Snapshot").
type Snapshot struct {
	ID          string                                `json:"id"`
	CreatedAt   uint64                                `json:"created_at"`
	ConfigPath  string                                `json:"config_path,omitempty"`
	Tags        []string                              `json:"tags,omitempty"`
	Manifest    Manifest                              `json:"manifest"`
	BindOutputs map[hashutil.Hash]map[string]string `json:"bind_outputs,omitempty"`
}

// SnapshotMetadata is the summary form stored in SnapshotIndex.
type SnapshotMetadata struct {
	ID         string   `json:"id"`
	CreatedAt  uint64   `json:"created_at"`
	ConfigPath string   `json:"config_path,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	BuildCount int      `json:"build_count"`
	BindCount  int      `json:"bind_count"`
}

// SnapshotIndex is the top-level snapshots/index.json contract.
type SnapshotIndex struct {
	Version   int                `json:"version"`
	Snapshots []SnapshotMetadata `json:"snapshots"`
	Current   string             `json:"current,omitempty"`
}

// MetadataFor derives a Snapshot's index metadata entry.
func MetadataFor(s Snapshot) SnapshotMetadata {
	return SnapshotMetadata{
		ID:         s.ID,
		CreatedAt:  s.CreatedAt,
		ConfigPath: s.ConfigPath,
		Tags:       append([]string{}, s.Tags...),
		BuildCount: len(s.Manifest.Builds),
		BindCount:  len(s.Manifest.Binds),
	}
}
