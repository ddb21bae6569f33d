package inputsresolver

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Vendor copies a locked input's already-fetched tree into a read-only
// "vendor" subdirectory inside that input's own cache entry
// (inputs/<cachekey>/vendor), so the copy is removed together with the
// cache entry it sits in. This is a
// supplement beyond spec.md §4.2's plain resolve/update pair, for
// scripts that want to commit a dependency's exact contents alongside a
// snapshot rather than re-resolve it later.
//
// Deviates from a bare Vendor(name) signature: the resolver holds no
// state linking an input name to the script whose lock file declared
// it, so the caller's scriptDir is required to look up the entry.
func (r *Resolver) Vendor(scriptDir, name string) (string, error) {
	lock, err := readLock(scriptDir)
	if err != nil {
		return "", err
	}
	entry, ok := lock.Inputs[name]
	if !ok {
		return "", fmt.Errorf("inputsresolver: no locked input named %q", name)
	}
	if entry.Type == "path" {
		return "", fmt.Errorf("inputsresolver: path: input %q is not cached and cannot be vendored", name)
	}

	src := filepath.Join(r.InputsDir, string(cacheKey(entry.URL, entry.Rev)))
	dest := filepath.Join(src, "vendor")
	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	}

	tmp, err := os.MkdirTemp(r.InputsDir, ".tmp-vendor-")
	if err != nil {
		return "", fmt.Errorf("inputsresolver: %w", err)
	}
	if err := copyTree(src, tmp); err != nil {
		os.RemoveAll(tmp)
		return "", err
	}
	makeTreeReadOnly(tmp)

	if err := os.Rename(tmp, dest); err != nil {
		os.RemoveAll(tmp)
		if os.IsExist(err) {
			return dest, nil
		}
		return "", fmt.Errorf("inputsresolver: %w", err)
	}
	return dest, nil
}

func copyTree(src, dst string) error {
	return filepath.Walk(src, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(p, target, info.Mode())
	})
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("inputsresolver: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("inputsresolver: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("inputsresolver: copy %s: %w", src, err)
	}
	return nil
}

// makeTreeReadOnly strips write bits tree-wide, best-effort (vendored
// trees are meant to be left alone, not enforced against tampering).
func makeTreeReadOnly(dir string) {
	_ = filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		_ = os.Chmod(p, info.Mode()&^0o222)
		return nil
	})
}
