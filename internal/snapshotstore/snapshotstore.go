// Package snapshotstore owns snapshots/index.json and snapshots/<id>.json:
// list/load/save/set_current/delete/tag/untag, and the mark-sweep garbage
// collector over the content-addressed store (spec.md §3 "Snapshot" and
// §4.4 "Garbage Collection").
package snapshotstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/renameio/v2"

	"syslua/internal/canonjson"
	"syslua/internal/ir"
	"syslua/internal/syserr"
)

// Store owns a single snapshots/ directory.
type Store struct {
	Dir string
}

// New returns a Store rooted at dir (typically store.Store.SnapshotsDir()).
func New(dir string) *Store { return &Store{Dir: dir} }

// Init creates the snapshots directory if absent.
func (s *Store) Init() error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("snapshotstore: init: %w", err)
	}
	return nil
}

func (s *Store) indexPath() string         { return filepath.Join(s.Dir, "index.json") }
func (s *Store) snapshotPath(id string) string { return filepath.Join(s.Dir, id+".json") }

func (s *Store) readIndex() (ir.SnapshotIndex, error) {
	data, err := os.ReadFile(s.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return ir.SnapshotIndex{Version: 1}, nil
		}
		return ir.SnapshotIndex{}, fmt.Errorf("snapshotstore: read index: %w", err)
	}
	var idx ir.SnapshotIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return ir.SnapshotIndex{}, fmt.Errorf("snapshotstore: decode index: %w", err)
	}
	return idx, nil
}

func (s *Store) writeIndex(idx ir.SnapshotIndex) error {
	data, err := canonjson.Marshal(idx)
	if err != nil {
		return fmt.Errorf("snapshotstore: marshal index: %w", err)
	}
	if err := renameio.WriteFile(s.indexPath(), data, 0o644); err != nil {
		return fmt.Errorf("snapshotstore: write index: %w", err)
	}
	return nil
}

// List returns every snapshot's metadata, newest-first by ID (spec.md §3's
// sortable-timestamp ID makes lexicographic order equal to creation
// order).
func (s *Store) List() ([]ir.SnapshotMetadata, error) {
	idx, err := s.readIndex()
	if err != nil {
		return nil, err
	}
	out := append([]ir.SnapshotMetadata{}, idx.Snapshots...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// Current returns the current snapshot's id, or "" if none is set.
func (s *Store) Current() (string, error) {
	idx, err := s.readIndex()
	if err != nil {
		return "", err
	}
	return idx.Current, nil
}

// Load reads a single snapshot by id.
func (s *Store) Load(id string) (ir.Snapshot, error) {
	data, err := os.ReadFile(s.snapshotPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return ir.Snapshot{}, &syserr.NotFound{Kind: "snapshot", ID: id}
		}
		return ir.Snapshot{}, fmt.Errorf("snapshotstore: load %s: %w", id, err)
	}
	var snap ir.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return ir.Snapshot{}, fmt.Errorf("snapshotstore: decode %s: %w", id, err)
	}
	return snap, nil
}

// LoadCurrent loads the snapshot referenced by index.current, or returns
// (ir.Snapshot{}, false, nil) if no apply has ever committed one.
func (s *Store) LoadCurrent() (ir.Snapshot, bool, error) {
	current, err := s.Current()
	if err != nil {
		return ir.Snapshot{}, false, err
	}
	if current == "" {
		return ir.Snapshot{}, false, nil
	}
	snap, err := s.Load(current)
	if err != nil {
		return ir.Snapshot{}, false, err
	}
	return snap, true, nil
}

// Save atomically writes <id>.json and appends its metadata to the
// index. It does not change index.current — callers call SetCurrent
// separately once the snapshot is the one they want to commit to (spec.md
// §4.6 step 9's two-write, one-commit-point structure).
func (s *Store) Save(snap ir.Snapshot) error {
	data, err := canonjson.Marshal(snap)
	if err != nil {
		return fmt.Errorf("snapshotstore: marshal %s: %w", snap.ID, err)
	}
	if err := renameio.WriteFile(s.snapshotPath(snap.ID), data, 0o644); err != nil {
		return fmt.Errorf("snapshotstore: write %s: %w", snap.ID, err)
	}

	idx, err := s.readIndex()
	if err != nil {
		return err
	}
	meta := ir.MetadataFor(snap)
	replaced := false
	for i, existing := range idx.Snapshots {
		if existing.ID == meta.ID {
			idx.Snapshots[i] = meta
			replaced = true
			break
		}
	}
	if !replaced {
		idx.Snapshots = append(idx.Snapshots, meta)
	}
	return s.writeIndex(idx)
}

// SetCurrent atomically advances index.current to id. This is the single
// commit point of an apply (spec.md §4.6 step 9).
func (s *Store) SetCurrent(id string) error {
	idx, err := s.readIndex()
	if err != nil {
		return err
	}
	idx.Current = id
	return s.writeIndex(idx)
}

// Delete removes a non-current snapshot. Returns *syserr.CannotDeleteCurrent
// if id is the current snapshot.
func (s *Store) Delete(id string) error {
	idx, err := s.readIndex()
	if err != nil {
		return err
	}
	if idx.Current == id {
		return &syserr.CannotDeleteCurrent{ID: id}
	}
	found := false
	kept := idx.Snapshots[:0:0]
	for _, meta := range idx.Snapshots {
		if meta.ID == id {
			found = true
			continue
		}
		kept = append(kept, meta)
	}
	if !found {
		return &syserr.NotFound{Kind: "snapshot", ID: id}
	}
	idx.Snapshots = kept
	if err := s.writeIndex(idx); err != nil {
		return err
	}
	if err := os.Remove(s.snapshotPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("snapshotstore: delete %s: %w", id, err)
	}
	return nil
}

// Tag adds name to id's metadata tags, if not already present.
func (s *Store) Tag(id, name string) error {
	return s.mutateMetadata(id, func(meta *ir.SnapshotMetadata) {
		for _, existing := range meta.Tags {
			if existing == name {
				return
			}
		}
		meta.Tags = append(meta.Tags, name)
	})
}

// Untag removes name from id's metadata tags. An empty name removes every
// tag (spec.md §4.4 "omitted name removes all tags").
func (s *Store) Untag(id, name string) error {
	return s.mutateMetadata(id, func(meta *ir.SnapshotMetadata) {
		if name == "" {
			meta.Tags = nil
			return
		}
		kept := meta.Tags[:0:0]
		for _, existing := range meta.Tags {
			if existing != name {
				kept = append(kept, existing)
			}
		}
		meta.Tags = kept
	})
}

func (s *Store) mutateMetadata(id string, mutate func(*ir.SnapshotMetadata)) error {
	idx, err := s.readIndex()
	if err != nil {
		return err
	}
	for i := range idx.Snapshots {
		if idx.Snapshots[i].ID == id {
			mutate(&idx.Snapshots[i])
			return s.writeIndex(idx)
		}
	}
	return &syserr.NotFound{Kind: "snapshot", ID: id}
}
