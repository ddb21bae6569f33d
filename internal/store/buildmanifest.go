package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"syslua/internal/canonjson"
	"syslua/internal/hashutil"
	"syslua/internal/ir"
	"syslua/internal/syserr"
)

// buildManifestFile is the self-describing record written into every
// realized obj/<hash>/ directory, letting Verify re-derive the hash from
// the directory's own contents without consulting an external manifest.
const buildManifestFile = ".syslua-build.json"

// RealizeBuild realizes def's content-addressed output directory,
// embedding def's canonical form alongside writeOutputs' files so a later
// Verify call can detect on-disk tampering (spec.md §3, §4.5).
func (s *Store) RealizeBuild(def ir.BuildDef, writeOutputs func(dir string) error) (hashutil.Hash, error) {
	h, err := def.Hash()
	if err != nil {
		return "", fmt.Errorf("store: hash build %s: %w", def.Name, err)
	}
	err = s.Realize(h, func(dir string) error {
		data, err := canonjson.Marshal(def)
		if err != nil {
			return fmt.Errorf("store: marshal build manifest: %w", err)
		}
		if err := os.WriteFile(filepath.Join(dir, buildManifestFile), data, 0o444); err != nil {
			return fmt.Errorf("store: write build manifest: %w", err)
		}
		if writeOutputs != nil {
			return writeOutputs(dir)
		}
		return nil
	})
	return h, err
}

// Verify re-reads obj/<hash>/.syslua-build.json and recomputes its hash,
// catching on-disk tampering of the recorded build definition that GC's
// reachability sweep wouldn't notice. It does not re-run actions or
// checksum arbitrary output bytes (spec.md §3 Non-goals re: remote
// binary caches, generalized here to local verification scope).
func (s *Store) Verify(h hashutil.Hash) error {
	if !s.Has(h) {
		return &syserr.NotFound{Kind: "build", ID: string(h)}
	}
	path := filepath.Join(s.ObjDir(h), buildManifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("store: verify %s: %w", h, err)
	}
	var def ir.BuildDef
	if err := json.Unmarshal(data, &def); err != nil {
		return fmt.Errorf("store: verify %s: decode manifest: %w", h, err)
	}
	recomputed, err := def.Hash()
	if err != nil {
		return fmt.Errorf("store: verify %s: %w", h, err)
	}
	if recomputed != h {
		return &syserr.HashMismatch{Name: def.Name, Expected: string(h), Actual: string(recomputed)}
	}
	return nil
}
