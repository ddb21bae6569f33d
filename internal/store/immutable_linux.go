//go:build linux

package store

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Linux ext2/ext4/btrfs/xfs inode flags (see FS_IOC_GETFLAGS(2)). Not
// exported by golang.org/x/sys/unix as named constants, so declared here
// the way the corpus pins raw ioctl numbers it needs but the wrapper
// package doesn't surface (docker_cli.go's CLONE_NEWNS literal).
const (
	fsIOCGetFlags = 0x80086601
	fsIOCSetFlags = 0x40086601
	fsImmutableFl = 0x00000010
)

func makeImmutable(dir string) error {
	return setImmutableFlag(dir, true)
}

func makeMutable(dir string) error {
	return setImmutableFlag(dir, false)
}

func setImmutableFlag(dir string, immutable bool) error {
	f, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("store: open %s: %w", dir, err)
	}
	defer f.Close()

	flags, err := unix.IoctlGetInt(int(f.Fd()), fsIOCGetFlags)
	if err != nil {
		// Filesystem doesn't support the ioctl (e.g. tmpfs, overlayfs in
		// some configurations, or a test running under a container
		// without CAP_LINUX_IMMUTABLE). Best-effort only.
		return nil
	}
	if immutable {
		flags |= fsImmutableFl
	} else {
		flags &^= fsImmutableFl
	}
	if err := unix.IoctlSetInt(int(f.Fd()), fsIOCSetFlags, flags); err != nil {
		return nil
	}
	return nil
}
