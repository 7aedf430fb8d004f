package filelock

import (
	"fmt"
	"os"
	"time"
)

// Stamp is the last-observed (modification time, size) pair of a file. A
// store handle remembers one and compares it against the file's current
// values before trusting its cache; any difference means another process or
// a direct file edit happened between calls and the cache must be rebuilt.
type Stamp struct {
	ModTime time.Time
	Size    int64
}

// Stat returns the current stamp of the file at path. Stating by path, not
// descriptor, so replacements of the file are seen too.
func Stat(path string) (Stamp, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Stamp{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return Stamp{ModTime: info.ModTime(), Size: info.Size()}, nil
}

// Equal reports whether both observed values match.
func (s Stamp) Equal(other Stamp) bool {
	return s.Size == other.Size && s.ModTime.Equal(other.ModTime)
}
