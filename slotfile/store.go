// Package slotfile implements the fixed-slot storage engine: a file treated
// as an array of equal-size binary slots, one record per slot, addressed
// through a memory mapping.
//
// A handle keeps an id→slot-index cache and revalidates it against the
// file's (mtime, size) stamp at the start of every operation, so edits made
// by other processes become visible on the next call. Every operation holds
// a whole-file advisory lock for its full duration. A single handle is not
// safe for concurrent use from multiple goroutines: the lock protects the
// file, not the handle's cache or mapping. Requires a Unix system.
package slotfile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fulldump/flatfile"
	"github.com/fulldump/flatfile/filelock"
)

// Store is a fixed-slot store for records of type T. All records in one
// file share T's schema; the file size is always an exact multiple of the
// slot size.
type Store[T RecordOf[T]] struct {
	path   string
	file   *os.File
	layout *Layout
	proto  T

	m     mapping
	cache map[string]int
	last  filelock.Stamp
}

// Open opens or creates the store file at path. The prototype supplies the
// schema and blank instances for decoding. A non-empty file whose size is
// not a whole multiple of the slot size fails with ErrCorruptStore and the
// handle is unusable.
func Open[T RecordOf[T]](path string, prototype T) (*Store[T], error) {
	schema := prototype.Schema()
	layout, err := CompileLayout(schema.TypeWidth, schema.IDWidth, schema.Fields)
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("%w: mkdir %s: %v", flatfile.ErrIO, dir, err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", flatfile.ErrIO, path, err)
	}

	s := &Store[T]{
		path:   path,
		file:   file,
		layout: layout,
		proto:  prototype,
		cache:  map[string]int{},
	}

	stamp, err := filelock.Stat(path)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%w: %v", flatfile.ErrIO, err)
	}
	if stamp.Size > 0 && stamp.Size%int64(layout.Size()) != 0 {
		file.Close()
		return nil, fmt.Errorf("%w: %s size %d is not a multiple of slot size %d",
			flatfile.ErrCorruptStore, path, stamp.Size, layout.Size())
	}
	s.last = stamp

	if stamp.Size > 0 {
		if err := s.m.remap(file); err != nil {
			file.Close()
			return nil, err
		}
		if err := s.rebuildCache(); err != nil {
			s.m.unmap()
			file.Close()
			return nil, err
		}
	}
	return s, nil
}

// Close releases the mapping and the file handle. The store is unusable
// afterwards.
func (s *Store[T]) Close() error {
	if err := s.m.unmap(); err != nil {
		s.file.Close()
		return err
	}
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", flatfile.ErrIO, s.path, err)
	}
	return nil
}

// Layout returns the compiled slot geometry.
func (s *Store[T]) Layout() *Layout {
	return s.layout
}

// Save is an upsert: if the id is already present its slot is overwritten
// in place, otherwise the file grows by one slot and the record is written
// at the new end. Identical ids never produce two slots.
func (s *Store[T]) Save(r T) error {
	if err := filelock.Lock(s.file, filelock.Exclusive); err != nil {
		return err
	}
	defer filelock.Unlock(s.file)

	if err := s.revalidate(); err != nil {
		return err
	}

	// Encode into a scratch slot before touching the file, so a rejected
	// record (oversize id) leaves nothing behind.
	buf := make([]byte, s.layout.Size())
	if err := s.layout.Encode(r, buf); err != nil {
		return err
	}

	if idx, ok := s.cache[r.ID()]; ok {
		// Update in place.
		if err := s.m.remap(s.file); err != nil {
			return err
		}
		off := idx * s.layout.Size()
		copy(s.m.data[off:off+s.layout.Size()], buf)
		if err := s.m.sync(); err != nil {
			return err
		}
		return s.updateStamp()
	}

	// Insert: truncate-grow by one slot, then write the new end slot.
	info, err := s.file.Stat()
	if err != nil {
		return fmt.Errorf("%w: stat %s: %v", flatfile.ErrIO, s.path, err)
	}
	oldSize := info.Size()
	if err := s.file.Truncate(oldSize + int64(s.layout.Size())); err != nil {
		return fmt.Errorf("%w: truncate %s: %v", flatfile.ErrIO, s.path, err)
	}
	if err := s.m.remap(s.file); err != nil {
		return err
	}
	copy(s.m.data[oldSize:oldSize+int64(s.layout.Size())], buf)
	if err := s.m.sync(); err != nil {
		return err
	}
	s.cache[r.ID()] = int(oldSize) / s.layout.Size()
	return s.updateStamp()
}

// SaveAll saves records in order; the first failure aborts.
func (s *Store[T]) SaveAll(records []T) error {
	for _, r := range records {
		if err := s.Save(r); err != nil {
			return err
		}
	}
	return nil
}

// FindAll decodes every slot in file order. A slot that fails to decode
// aborts the scan and returns the records decoded so far together with the
// error.
func (s *Store[T]) FindAll() ([]T, error) {
	if err := filelock.Lock(s.file, filelock.Shared); err != nil {
		return nil, err
	}
	defer filelock.Unlock(s.file)

	if err := s.revalidate(); err != nil {
		return nil, err
	}
	if err := s.m.remap(s.file); err != nil {
		return nil, err
	}

	result := []T{}
	slot := s.layout.Size()
	for i := 0; i < s.slotCount(); i++ {
		r := s.proto.Clone()
		if err := s.layout.Decode(s.m.data[i*slot:(i+1)*slot], r); err != nil {
			return result, fmt.Errorf("slot %d: %w", i, err)
		}
		result = append(result, r)
	}
	return result, nil
}

// FindByID returns the record with the given id, or ok=false if absent.
// The lookup is O(1) through the cache; only the matching slot is decoded.
func (s *Store[T]) FindByID(id string) (r T, ok bool, err error) {
	if err = filelock.Lock(s.file, filelock.Shared); err != nil {
		return
	}
	defer filelock.Unlock(s.file)

	if err = s.revalidate(); err != nil {
		return
	}
	idx, found := s.cache[id]
	if !found {
		return
	}
	if err = s.m.remap(s.file); err != nil {
		return
	}

	slot := s.layout.Size()
	r = s.proto.Clone()
	if err = s.layout.Decode(s.m.data[idx*slot:(idx+1)*slot], r); err != nil {
		var zero T
		return zero, false, fmt.Errorf("slot %d: %w", idx, err)
	}
	return r, true, nil
}

// ExistsByID reports whether a record with the given id is present.
func (s *Store[T]) ExistsByID(id string) (bool, error) {
	if err := filelock.Lock(s.file, filelock.Shared); err != nil {
		return false, err
	}
	defer filelock.Unlock(s.file)

	if err := s.revalidate(); err != nil {
		return false, err
	}
	_, ok := s.cache[id]
	return ok, nil
}

// DeleteByID removes the record with the given id, shifting every later
// slot down by one slot width and truncating the file. An absent id is a
// no-op success. Indices after the hole all shift, so the cache is rebuilt
// from scratch rather than patched.
func (s *Store[T]) DeleteByID(id string) error {
	if err := filelock.Lock(s.file, filelock.Exclusive); err != nil {
		return err
	}
	defer filelock.Unlock(s.file)

	if err := s.revalidate(); err != nil {
		return err
	}
	idx, ok := s.cache[id]
	if !ok {
		return nil
	}
	if err := s.m.remap(s.file); err != nil {
		return err
	}

	slot := s.layout.Size()
	cnt := s.slotCount()
	copy(s.m.data[idx*slot:], s.m.data[(idx+1)*slot:cnt*slot])

	if err := s.m.unmap(); err != nil {
		return err
	}
	if err := s.file.Truncate(int64((cnt - 1) * slot)); err != nil {
		return fmt.Errorf("%w: truncate %s: %v", flatfile.ErrIO, s.path, err)
	}
	if err := s.m.remap(s.file); err != nil {
		return err
	}
	if err := s.rebuildCache(); err != nil {
		return err
	}
	return s.updateStamp()
}

// DeleteAll truncates the file to zero length and clears the cache.
func (s *Store[T]) DeleteAll() error {
	if err := filelock.Lock(s.file, filelock.Exclusive); err != nil {
		return err
	}
	defer filelock.Unlock(s.file)

	if err := s.m.unmap(); err != nil {
		return err
	}
	if err := s.file.Truncate(0); err != nil {
		return fmt.Errorf("%w: truncate %s: %v", flatfile.ErrIO, s.path, err)
	}
	s.cache = map[string]int{}
	return s.updateStamp()
}

// Count returns the number of slots in the file.
func (s *Store[T]) Count() (int, error) {
	if err := filelock.Lock(s.file, filelock.Shared); err != nil {
		return 0, err
	}
	defer filelock.Unlock(s.file)

	if err := s.revalidate(); err != nil {
		return 0, err
	}
	if err := s.m.remap(s.file); err != nil {
		return 0, err
	}
	return s.slotCount(), nil
}

// revalidate compares the file's current stamp against the last observed
// one. On any difference the alignment invariant is rechecked, the file is
// remapped and the cache rebuilt, so modifications made outside this handle
// are picked up before the cache is trusted.
func (s *Store[T]) revalidate() error {
	stamp, err := filelock.Stat(s.path)
	if err != nil {
		return fmt.Errorf("%w: %v", flatfile.ErrIO, err)
	}
	if stamp.Equal(s.last) {
		return nil
	}

	if stamp.Size > 0 && stamp.Size%int64(s.layout.Size()) != 0 {
		return fmt.Errorf("%w: %s size %d is not a multiple of slot size %d",
			flatfile.ErrCorruptStore, s.path, stamp.Size, s.layout.Size())
	}
	if err := s.m.remap(s.file); err != nil {
		return err
	}
	if err := s.rebuildCache(); err != nil {
		return err
	}
	s.last = stamp
	return nil
}

// rebuildCache rescans every slot. Any decode failure discards the whole
// cache: it is never partially valid.
func (s *Store[T]) rebuildCache() error {
	s.cache = map[string]int{}

	slot := s.layout.Size()
	for i := 0; i < s.slotCount(); i++ {
		r := s.proto.Clone()
		if err := s.layout.Decode(s.m.data[i*slot:(i+1)*slot], r); err != nil {
			s.cache = map[string]int{}
			return fmt.Errorf("slot %d: %w", i, err)
		}
		s.cache[r.ID()] = i
	}
	return nil
}

func (s *Store[T]) updateStamp() error {
	stamp, err := filelock.Stat(s.path)
	if err != nil {
		return fmt.Errorf("%w: %v", flatfile.ErrIO, err)
	}
	s.last = stamp
	return nil
}

func (s *Store[T]) slotCount() int {
	return len(s.m.data) / s.layout.Size()
}
