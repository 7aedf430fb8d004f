//go:build unix

package slotfile

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/fulldump/flatfile"
)

// mapping owns the byte view of the whole store file. The Layout's
// offset+width pairs are the only addressing mechanism into it; no other
// view of the same bytes exists while the mapping is live.
type mapping struct {
	data []byte
}

// remap drops the current view and maps the file at its current size. An
// empty file maps to no view at all.
func (m *mapping) remap(f *os.File) error {
	if err := m.unmap(); err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: stat %s: %v", flatfile.ErrIO, f.Name(), err)
	}
	if info.Size() == 0 {
		return nil
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(info.Size()), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("%w: mmap %s: %v", flatfile.ErrIO, f.Name(), err)
	}
	m.data = data
	return nil
}

func (m *mapping) unmap() error {
	if m.data == nil {
		return nil
	}
	data := m.data
	m.data = nil
	if err := unix.Munmap(data); err != nil {
		return fmt.Errorf("%w: munmap: %v", flatfile.ErrIO, err)
	}
	return nil
}

// sync flushes mapped writes to the backing file.
func (m *mapping) sync() error {
	if m.data == nil {
		return nil
	}
	if err := unix.Msync(m.data, unix.MS_SYNC); err != nil {
		return fmt.Errorf("%w: msync: %v", flatfile.ErrIO, err)
	}
	return nil
}
