// Package filelock provides the whole-file advisory locking and staleness
// detection protocol shared by both storage engines.
//
// Locks are blocking and advisory: they serialize access across processes
// and handles that honor the same convention, and constrain nobody else.
// They protect the file, not the in-memory state of a store handle.
package filelock

import "os"

// Mode selects the lock type.
type Mode int

const (
	// Shared is for pure reads; any number of handles may hold it at once.
	Shared Mode = iota
	// Exclusive is for anything that writes; it excludes all other holders.
	Exclusive
)

// Lock blocks until the whole-file advisory lock is granted on f. The lock
// is held by f's open file description; release it with Unlock before f is
// used for another operation's lock.
func Lock(f *os.File, mode Mode) error {
	return lock(f, mode)
}

// Unlock releases the advisory lock held on f. Errors are rare (bad
// descriptor) and the caller usually has nothing better to do than to
// return its own result, so Unlock is commonly deferred and its error
// dropped on success paths that already failed.
func Unlock(f *os.File) error {
	return unlock(f)
}
