package inputsresolver

import (
	"context"
	"sort"
	"time"

	"syslua/internal/syserr"
)

// ResolvedInput is what a resolved declared input hands to the entry
// script's setup(resolved) (spec.md §4.1/§4.2). Deliberately a standalone
// type rather than an import of internal/luaeval's identically-shaped
// one — see DESIGN.md: neither package imports the other; internal/engine
// calls both and converts between the two structs, which happen to agree
// on shape rather than needing to.
type ResolvedInput struct {
	Path string
	Rev  string
}

// Resolver turns a manifest's declared inputs into local directories,
// consulting and updating syslua.lock alongside the entry script
// (spec.md §4.2).
type Resolver struct {
	// InputsDir is the store's content-addressed cache for fetched
	// inputs (store.Store.InputsDir()).
	InputsDir string
}

func New(inputsDir string) *Resolver {
	return &Resolver{InputsDir: inputsDir}
}

// Resolve implements spec.md §4.2's algorithm for every declared input:
// a locked entry whose type+url match is reused at its pinned rev; an
// unlocked or newly-declared input resolves its rev via fetch and gets
// written into the lock. Declared inputs are processed in a stable
// (sorted) order so the lock file's diffs stay deterministic.
func (r *Resolver) Resolve(ctx context.Context, scriptDir string, declared map[string]string) (map[string]ResolvedInput, error) {
	lock, err := readLock(scriptDir)
	if err != nil {
		return nil, err
	}

	out := make(map[string]ResolvedInput, len(declared))
	changed := false
	for _, name := range sortedKeys(declared) {
		parsed, err := ParseURI(declared[name])
		if err != nil {
			return nil, err
		}

		wantRev := parsed.Rev
		key := lockMatchKey(parsed)
		entry, locked := lock.Inputs[name]
		if locked {
			if entry.Type != parsed.Type || entry.URL != key {
				return nil, &syserr.LockMismatch{Name: name}
			}
			wantRev = entry.Rev
		}

		path, resolvedRev, err := r.fetch(ctx, parsed, wantRev)
		if err != nil {
			return nil, err
		}
		if !locked {
			lock.Inputs[name] = LockEntry{Type: parsed.Type, URL: key, Rev: resolvedRev, LastModified: stampNow()}
			changed = true
		}
		out[name] = ResolvedInput{Path: path, Rev: resolvedRev}
	}

	if changed {
		if err := writeLock(scriptDir, lock); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Update re-resolves declared inputs ignoring their current lock entry,
// always re-fetching and overwriting the lock (spec.md §4.2 "Update
// command"). only restricts which names are forced; an empty only
// forces every declared input. Update never applies anything — the
// caller decides whether/when to act on the new manifest.
func (r *Resolver) Update(ctx context.Context, scriptDir string, declared map[string]string, only []string) (map[string]ResolvedInput, error) {
	lock, err := readLock(scriptDir)
	if err != nil {
		return nil, err
	}
	force := toSet(only)

	out := make(map[string]ResolvedInput, len(declared))
	for _, name := range sortedKeys(declared) {
		parsed, err := ParseURI(declared[name])
		if err != nil {
			return nil, err
		}
		key := lockMatchKey(parsed)

		wantRev := parsed.Rev
		if len(force) > 0 && !force[name] {
			if entry, ok := lock.Inputs[name]; ok && entry.Type == parsed.Type && entry.URL == key {
				wantRev = entry.Rev
			}
		}

		path, resolvedRev, err := r.fetch(ctx, parsed, wantRev)
		if err != nil {
			return nil, err
		}
		lock.Inputs[name] = LockEntry{Type: parsed.Type, URL: key, Rev: resolvedRev, LastModified: stampNow()}
		out[name] = ResolvedInput{Path: path, Rev: resolvedRev}
	}

	if err := writeLock(scriptDir, lock); err != nil {
		return nil, err
	}
	return out, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func toSet(names []string) map[string]bool {
	if len(names) == 0 {
		return nil
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

func stampNow() string {
	return time.Now().UTC().Format(time.RFC3339)
}
