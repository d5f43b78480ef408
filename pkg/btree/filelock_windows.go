//go:build windows

// pkg/btree/filelock_windows.go
package btree

import (
	"os"

	"golang.org/x/sys/windows"
)

// flock takes an advisory lock on the backing file: exclusive for writer
// handles, shared for readers. It fails immediately instead of blocking
// when another process holds a conflicting lock.
func flock(f *os.File, exclusive bool) error {
	var flags uint32 = windows.LOCKFILE_FAIL_IMMEDIATELY
	if exclusive {
		flags |= windows.LOCKFILE_EXCLUSIVE_LOCK
	}
	ol := new(windows.Overlapped)
	err := windows.LockFileEx(windows.Handle(f.Fd()), flags, 0, 1, 0, ol)
	if err != nil {
		if err == windows.ERROR_LOCK_VIOLATION {
			return ErrDatabaseLocked
		}
		return err
	}
	return nil
}

func funlock(f *os.File) error {
	ol := new(windows.Overlapped)
	return windows.UnlockFileEx(windows.Handle(f.Fd()), 0, 1, 0, ol)
}
