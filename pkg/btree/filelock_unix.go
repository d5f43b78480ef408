//go:build unix || darwin || linux || freebsd || openbsd || netbsd

// pkg/btree/filelock_unix.go
package btree

import (
	"os"

	"golang.org/x/sys/unix"
)

// flock takes an advisory lock on the backing file: exclusive for writer
// handles, shared for readers. It fails immediately instead of blocking
// when another process holds a conflicting lock.
func flock(f *os.File, exclusive bool) error {
	how := unix.LOCK_SH
	if exclusive {
		how = unix.LOCK_EX
	}
	if err := unix.Flock(int(f.Fd()), how|unix.LOCK_NB); err != nil {
		if err == unix.EWOULDBLOCK {
			return ErrDatabaseLocked
		}
		return err
	}
	return nil
}

func funlock(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
