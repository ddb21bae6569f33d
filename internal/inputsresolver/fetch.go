package inputsresolver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"syslua/internal/hashutil"
	"syslua/internal/syserr"
)

// fetch realizes a parsed input URI at wantRev (which may be "", meaning
// "whatever the default branch/HEAD currently is") and returns the local
// directory plus the exact revision it landed on.
func (r *Resolver) fetch(ctx context.Context, p ParsedURI, wantRev string) (path, resolvedRev string, err error) {
	if p.Type == "path" {
		abs, err := filepath.Abs(p.Path)
		if err != nil {
			return "", "", fmt.Errorf("inputsresolver: %w", err)
		}
		rev, err := pathContentRev(abs)
		if err != nil {
			return "", "", err
		}
		return abs, rev, nil
	}
	return r.fetchGit(ctx, p.URL, wantRev)
}

// fetchGit clones url at wantRev into a fresh temp directory, then
// renames it into inputs/<cachekey> (the store's realize-into-temp-
// then-rename idiom, reused here since the final cache key — a hash of
// url+resolved-rev — isn't known until after the clone resolves a
// branch/tag name to its commit). A concurrent resolve landing on the
// same (url, rev) simply loses the rename race and reuses the winner's
// directory.
func (r *Resolver) fetchGit(ctx context.Context, url, wantRev string) (string, string, error) {
	tmpDir, err := os.MkdirTemp(r.InputsDir, ".tmp-fetch-")
	if err != nil {
		return "", "", fmt.Errorf("inputsresolver: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	opts := &git.CloneOptions{URL: url, Depth: 1, SingleBranch: true, Tags: git.NoTags}
	pinnedSHA := wantRev != "" && isFullSHA(wantRev)
	if wantRev != "" && !pinnedSHA {
		opts.ReferenceName = plumbing.NewBranchReferenceName(wantRev)
	}

	repo, cloneErr := git.PlainCloneContext(ctx, tmpDir, false, opts)
	if cloneErr != nil && wantRev != "" && !pinnedSHA {
		opts.ReferenceName = plumbing.NewTagReferenceName(wantRev)
		repo, cloneErr = git.PlainCloneContext(ctx, tmpDir, false, opts)
	}
	if cloneErr != nil {
		return "", "", &syserr.FetchError{Name: url, Cause: cloneErr}
	}

	head, err := repo.Head()
	if err != nil {
		return "", "", &syserr.FetchError{Name: url, Cause: err}
	}
	resolvedRev := head.Hash().String()

	if pinnedSHA && resolvedRev != wantRev {
		wt, err := repo.Worktree()
		if err != nil {
			return "", "", &syserr.FetchError{Name: url, Cause: err}
		}
		if err := wt.Checkout(&git.CheckoutOptions{Hash: plumbing.NewHash(wantRev)}); err != nil {
			return "", "", &syserr.FetchError{Name: url, Cause: err}
		}
		resolvedRev = wantRev
	}

	os.RemoveAll(filepath.Join(tmpDir, ".git"))

	dest := filepath.Join(r.InputsDir, string(cacheKey(url, resolvedRev)))
	if _, err := os.Stat(dest); err == nil {
		return dest, resolvedRev, nil
	}
	if err := os.Rename(tmpDir, dest); err != nil {
		if os.IsExist(err) {
			return dest, resolvedRev, nil
		}
		return "", "", fmt.Errorf("inputsresolver: %w", err)
	}
	return dest, resolvedRev, nil
}

func cacheKey(url, rev string) hashutil.Hash {
	h, _ := hashutil.Of(struct {
		URL string
		Rev string
	}{url, rev})
	return h
}

func isFullSHA(s string) bool {
	if len(s) != 40 {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}

// pathContentRev derives a deterministic "rev" string for a path: input
// from a lightweight structural walk (relative path, size, mtime) rather
// than a full content hash, since path: inputs reference local trees
// that may be large and are never fetched/cached.
func pathContentRev(dir string) (string, error) {
	type entry struct {
		Path    string
		Size    int64
		ModTime int64
	}
	var entries []entry
	err := filepath.Walk(dir, func(p string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, relErr := filepath.Rel(dir, p)
		if relErr != nil {
			return relErr
		}
		entries = append(entries, entry{Path: rel, Size: info.Size(), ModTime: info.ModTime().UnixNano()})
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("inputsresolver: walk %s: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	h, err := hashutil.Of(entries)
	if err != nil {
		return "", fmt.Errorf("inputsresolver: %w", err)
	}
	return string(h), nil
}
