package inputsresolver

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

const lockFileName = "syslua.lock"

// LockEntry is one input's pinned record (spec.md §4.2 lock schema).
type LockEntry struct {
	Type         string `json:"type"`
	URL          string `json:"url"`
	Rev          string `json:"rev"`
	SHA256       string `json:"sha256,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
}

// LockFile is the on-disk contract for syslua.lock, sitting beside the
// entry script.
type LockFile struct {
	Version int                  `json:"version"`
	Inputs  map[string]LockEntry `json:"inputs"`
}

func lockPath(scriptDir string) string {
	return filepath.Join(scriptDir, lockFileName)
}

func readLock(scriptDir string) (LockFile, error) {
	data, err := os.ReadFile(lockPath(scriptDir))
	if err != nil {
		if os.IsNotExist(err) {
			return LockFile{Version: 1, Inputs: map[string]LockEntry{}}, nil
		}
		return LockFile{}, fmt.Errorf("inputsresolver: read %s: %w", lockPath(scriptDir), err)
	}
	var lf LockFile
	if err := json.Unmarshal(data, &lf); err != nil {
		return LockFile{}, fmt.Errorf("inputsresolver: decode %s: %w", lockPath(scriptDir), err)
	}
	if lf.Inputs == nil {
		lf.Inputs = map[string]LockEntry{}
	}
	return lf, nil
}

// writeLock is not used for content-addressing, so it formats with
// encoding/json (human-diffable) rather than canonjson.
func writeLock(scriptDir string, lf LockFile) error {
	lf.Version = 1
	data, err := json.MarshalIndent(lf, "", "  ")
	if err != nil {
		return fmt.Errorf("inputsresolver: marshal lock: %w", err)
	}
	data = append(data, '\n')
	if err := renameio.WriteFile(lockPath(scriptDir), data, 0o644); err != nil {
		return fmt.Errorf("inputsresolver: write %s: %w", lockPath(scriptDir), err)
	}
	return nil
}
