package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"syslua/internal/canonjson"
	"syslua/internal/hashutil"
)

// buildOutputsFile records a realized build's placeholder-substituted
// named outputs (spec.md §3 "BuildDef.outputs"), written once at
// realization time so later references to an already-realized build don't
// need its actions re-run to recover $${out}/$${action:N}-derived values.
const buildOutputsFile = ".syslua-outputs.json"

// WriteBuildOutputs records outputs for a build being realized. Called
// by the apply orchestrator from within RealizeBuild's writeOutputs
// closure, while the object directory is still mutable.
func (s *Store) WriteBuildOutputs(dir string, outputs map[string]string) error {
	data, err := canonjson.Marshal(outputs)
	if err != nil {
		return fmt.Errorf("store: marshal build outputs: %w", err)
	}
	if err := renameio.WriteFile(filepath.Join(dir, buildOutputsFile), data, 0o444); err != nil {
		return fmt.Errorf("store: write build outputs: %w", err)
	}
	return nil
}

// ReadBuildOutputs reads a previously realized build's recorded outputs.
func (s *Store) ReadBuildOutputs(h hashutil.Hash) (map[string]string, error) {
	data, err := os.ReadFile(filepath.Join(s.ObjDir(h), buildOutputsFile))
	if err != nil {
		return nil, fmt.Errorf("store: read build outputs %s: %w", h, err)
	}
	var outputs map[string]string
	if err := json.Unmarshal(data, &outputs); err != nil {
		return nil, fmt.Errorf("store: decode build outputs %s: %w", h, err)
	}
	return outputs, nil
}
