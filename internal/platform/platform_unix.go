//go:build !windows

package platform

import "os"

// systemStoreRoot is the machine-wide store location on Unix-likes.
func systemStoreRoot() string { return "/syslua/store" }

// IsElevated reports whether the current process runs with root privilege.
func IsElevated() bool { return os.Geteuid() == 0 }
