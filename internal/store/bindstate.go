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

// bindStateFile is the per-bind record written under bind/<hash>/.
const bindStateFile = "state.json"

// bindState is the on-disk contract for a realized BindDef's recorded
// outputs (spec.md §3 "bind/<hash>/state.json").
type bindState struct {
	Outputs map[string]string `json:"outputs,omitempty"`
}

// HasBindState reports whether bind/<hash>/state.json exists.
func (s *Store) HasBindState(h hashutil.Hash) bool {
	_, err := os.Stat(filepath.Join(s.BindDir(h), bindStateFile))
	return err == nil
}

// ReadBindState loads a bind's recorded outputs. The second return value
// is false if no state has been recorded yet (the bind has never been
// successfully applied).
func (s *Store) ReadBindState(h hashutil.Hash) (map[string]string, bool, error) {
	data, err := os.ReadFile(filepath.Join(s.BindDir(h), bindStateFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("store: read bind state %s: %w", h, err)
	}
	var st bindState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, false, fmt.Errorf("store: decode bind state %s: %w", h, err)
	}
	return st.Outputs, true, nil
}

// WriteBindState atomically records a bind's outputs after a successful
// create or update (spec.md §4.6 step "realize/create").
func (s *Store) WriteBindState(h hashutil.Hash, outputs map[string]string) error {
	dir := s.BindDir(h)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store: write bind state %s: %w", h, err)
	}
	data, err := canonjson.Marshal(bindState{Outputs: outputs})
	if err != nil {
		return fmt.Errorf("store: marshal bind state %s: %w", h, err)
	}
	if err := renameio.WriteFile(filepath.Join(dir, bindStateFile), data, 0o644); err != nil {
		return fmt.Errorf("store: write bind state %s: %w", h, err)
	}
	return nil
}

// DeleteBindState removes a bind's recorded state after a successful
// destroy.
func (s *Store) DeleteBindState(h hashutil.Hash) error {
	if err := os.RemoveAll(s.BindDir(h)); err != nil {
		return fmt.Errorf("store: delete bind state %s: %w", h, err)
	}
	return nil
}
