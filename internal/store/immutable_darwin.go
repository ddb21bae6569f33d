//go:build darwin

package store

import "golang.org/x/sys/unix"

func makeImmutable(dir string) error {
	if err := unix.Chflags(dir, unix.UF_IMMUTABLE); err != nil {
		return nil // best-effort, matches Linux's ioctl fallback
	}
	return nil
}

func makeMutable(dir string) error {
	if err := unix.Chflags(dir, 0); err != nil {
		return nil
	}
	return nil
}
