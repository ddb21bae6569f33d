//go:build windows

package store

import "golang.org/x/sys/windows"

// Windows has no directory-level immutable bit equivalent to chattr +i or
// chflags uchg; the nearest cheap approximation is the read-only file
// attribute, which at least blocks naive overwrites from Explorer and most
// tooling. A full deny-write ACL would need the LSA/ACL APIs and is not
// worth the added surface for a best-effort protection layer.
func makeImmutable(dir string) error {
	return setReadOnlyAttr(dir, true)
}

func makeMutable(dir string) error {
	return setReadOnlyAttr(dir, false)
}

func setReadOnlyAttr(dir string, readOnly bool) error {
	p, err := windows.UTF16PtrFromString(dir)
	if err != nil {
		return nil
	}
	attrs, err := windows.GetFileAttributes(p)
	if err != nil {
		return nil
	}
	if readOnly {
		attrs |= windows.FILE_ATTRIBUTE_READONLY
	} else {
		attrs &^= windows.FILE_ATTRIBUTE_READONLY
	}
	_ = windows.SetFileAttributes(p, attrs)
	return nil
}
