// Package platform exposes host information and store-root resolution
// (spec.md §4.1 "sys.os, sys.arch, ..." and §4.3 "Store roots").
package platform

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// OS returns the normalized OS name exposed to scripts as sys.os.
func OS() string { return runtime.GOOS }

// Arch returns the normalized architecture exposed to scripts as sys.arch.
func Arch() string { return runtime.GOARCH }

// Platform returns a combined "os-arch" string, exposed as sys.platform.
func Platform() string { return OS() + "-" + Arch() }

// storeEnvKey overrides the store root regardless of elevation, matching
// the corpus's convention of an env-var override ahead of any computed
// default (paas_store.go's resolvePaasStateRoot).
const storeEnvKey = "SYSLUA_STORE"

// StoreRoot resolves the store root a single process uses for this
// invocation (spec.md §4.3): SYSLUA_STORE override, else the system root
// when elevated, else the per-user root.
func StoreRoot() (string, error) {
	if assigned := strings.TrimSpace(os.Getenv(storeEnvKey)); assigned != "" {
		return filepath.Clean(assigned), nil
	}
	if IsElevated() {
		return systemStoreRoot(), nil
	}
	return userStoreRoot()
}

func userStoreRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		if err == nil {
			err = os.ErrNotExist
		}
		return "", err
	}
	return filepath.Join(home, ".syslua", "store"), nil
}
