// Package linefile implements the line-rewrite storage engine: a text file
// with one record per line, parsed through a prototype registry into an
// in-memory record set. Inserts append one line; updates and deletes
// rewrite the whole file, because line lengths vary and nothing can be
// patched in place.
//
// The cache rebuild is tolerant on purpose: lines that fail to parse, carry
// an unregistered type or fail to decode are skipped, not fatal. Free-form
// text files are expected to hold foreign or experimental lines alongside
// this store's records. This is the opposite of slotfile's fail-fast
// policy.
//
// Like slotfile, every operation runs under a whole-file advisory lock and
// revalidates the (mtime, size) stamp first; one handle is not safe for
// concurrent use from multiple goroutines.
package linefile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/SierraSoftworks/connor"
	"github.com/google/btree"

	"github.com/fulldump/flatfile"
	"github.com/fulldump/flatfile/filelock"
)

// Store is a line-rewrite store over one text file. The record types it can
// reconstruct are fixed by the registry given at Open.
type Store struct {
	path     string
	file     *os.File
	registry *Registry

	cache      []Record
	cacheValid bool
	index      *btree.BTreeG[string]
	last       filelock.Stamp
}

// Open opens or creates the store file at path, creating parent
// directories as needed. The cache is built lazily on the first read.
func Open(path string, registry *Registry) (*Store, error) {
	if registry == nil {
		return nil, fmt.Errorf("%w: nil registry", flatfile.ErrInvalidArgument)
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

	s := &Store{
		path:     path,
		file:     file,
		registry: registry,
	}
	stamp, err := filelock.Stat(path)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%w: %v", flatfile.ErrIO, err)
	}
	s.last = stamp
	return s, nil
}

// Close releases the file handle. The store is unusable afterwards.
func (s *Store) Close() error {
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", flatfile.ErrIO, s.path, err)
	}
	return nil
}

// Save is an upsert: an unseen id appends one line at the end of the file;
// a known id rewrites the entire file with the matched record replaced,
// keeping the original order.
func (s *Store) Save(r Record) error {
	if err := filelock.Lock(s.file, filelock.Exclusive); err != nil {
		return err
	}
	defer filelock.Unlock(s.file)

	if err := s.revalidate(); err != nil {
		return err
	}

	if s.indexOf(r.ID()) < 0 {
		if err := s.appendLine(r); err != nil {
			return err
		}
		s.invalidate()
		return s.updateStamp()
	}

	records := make([]Record, len(s.cache))
	for i, c := range s.cache {
		if c.ID() == r.ID() {
			records[i] = r.Clone()
		} else {
			records[i] = c
		}
	}
	if err := s.rewriteAll(records); err != nil {
		return err
	}
	s.invalidate()
	return s.updateStamp()
}

// SaveAll saves records in order; the first failure aborts.
func (s *Store) SaveAll(records []Record) error {
	for _, r := range records {
		if err := s.Save(r); err != nil {
			return err
		}
	}
	return nil
}

// FindAll returns independent copies of every cached record in file order,
// so callers cannot mutate the store's cache through the results.
func (s *Store) FindAll() ([]Record, error) {
	if err := filelock.Lock(s.file, filelock.Shared); err != nil {
		return nil, err
	}
	defer filelock.Unlock(s.file)

	if err := s.revalidate(); err != nil {
		return nil, err
	}

	result := []Record{}
	for _, r := range s.cache {
		result = append(result, r.Clone())
	}
	return result, nil
}

// FindByID returns a copy of the record with the given id, or ok=false.
func (s *Store) FindByID(id string) (Record, bool, error) {
	if err := filelock.Lock(s.file, filelock.Shared); err != nil {
		return nil, false, err
	}
	defer filelock.Unlock(s.file)

	if err := s.revalidate(); err != nil {
		return nil, false, err
	}

	if i := s.indexOf(id); i >= 0 {
		return s.cache[i].Clone(), true, nil
	}
	return nil, false, nil
}

// ExistsByID reports whether a record with the given id is present.
func (s *Store) ExistsByID(id string) (bool, error) {
	if err := filelock.Lock(s.file, filelock.Shared); err != nil {
		return false, err
	}
	defer filelock.Unlock(s.file)

	if err := s.revalidate(); err != nil {
		return false, err
	}
	return s.indexOf(id) >= 0, nil
}

// Count returns the number of records in the store.
func (s *Store) Count() (int, error) {
	if err := filelock.Lock(s.file, filelock.Shared); err != nil {
		return 0, err
	}
	defer filelock.Unlock(s.file)

	if err := s.revalidate(); err != nil {
		return 0, err
	}
	return len(s.cache), nil
}

// FindBy returns copies of the records matching a filter document, e.g.
// {"name": "alice"}. String fields match strings, numeric fields match
// integers.
func (s *Store) FindBy(filter map[string]interface{}) ([]Record, error) {
	if err := filelock.Lock(s.file, filelock.Shared); err != nil {
		return nil, err
	}
	defer filelock.Unlock(s.file)

	if err := s.revalidate(); err != nil {
		return nil, err
	}

	result := []Record{}
	for _, r := range s.cache {
		match, err := connor.Match(filter, document(r))
		if err != nil {
			return nil, fmt.Errorf("match: %w", err)
		}
		if match {
			result = append(result, r.Clone())
		}
	}
	return result, nil
}

// FindRange returns copies of the records whose id is in [from, to), in id
// order. An empty `to` means no upper bound.
func (s *Store) FindRange(from, to string) ([]Record, error) {
	if err := filelock.Lock(s.file, filelock.Shared); err != nil {
		return nil, err
	}
	defer filelock.Unlock(s.file)

	if err := s.revalidate(); err != nil {
		return nil, err
	}

	byID := map[string]Record{}
	for _, r := range s.cache {
		byID[r.ID()] = r
	}

	result := []Record{}
	visit := func(id string) bool {
		result = append(result, byID[id].Clone())
		return true
	}
	if to == "" {
		s.index.AscendGreaterOrEqual(from, visit)
	} else {
		s.index.AscendRange(from, to, visit)
	}
	return result, nil
}

// DeleteByID removes the record with the given id and rewrites the file
// with the remainder. An absent id is a no-op success.
func (s *Store) DeleteByID(id string) error {
	if err := filelock.Lock(s.file, filelock.Exclusive); err != nil {
		return err
	}
	defer filelock.Unlock(s.file)

	if err := s.revalidate(); err != nil {
		return err
	}

	if s.indexOf(id) < 0 {
		return nil
	}

	kept := []Record{}
	for _, r := range s.cache {
		if r.ID() != id {
			kept = append(kept, r)
		}
	}
	if err := s.rewriteAll(kept); err != nil {
		return err
	}
	s.invalidate()
	return s.updateStamp()
}

// DeleteAll truncates the file to zero length and invalidates the cache.
func (s *Store) DeleteAll() error {
	if err := filelock.Lock(s.file, filelock.Exclusive); err != nil {
		return err
	}
	defer filelock.Unlock(s.file)

	if err := s.file.Truncate(0); err != nil {
		return fmt.Errorf("%w: truncate %s: %v", flatfile.ErrIO, s.path, err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("%w: fsync %s: %v", flatfile.ErrIO, s.path, err)
	}
	s.invalidate()
	return s.updateStamp()
}

// revalidate discards the cache if the file's stamp moved, then rebuilds it
// if needed. Every public operation goes through here before touching
// cached state.
func (s *Store) revalidate() error {
	stamp, err := filelock.Stat(s.path)
	if err != nil {
		return fmt.Errorf("%w: %v", flatfile.ErrIO, err)
	}
	if !stamp.Equal(s.last) {
		s.invalidate()
		s.last = stamp
	}
	if !s.cacheValid {
		return s.loadAllToCache()
	}
	return nil
}

// loadAllToCache rescans the whole file. Lines that fail to parse, name an
// unregistered type or fail to decode are skipped; only a read failure of
// the file itself aborts the load.
func (s *Store) loadAllToCache() error {
	s.cache = nil
	s.index = btree.NewG(32, func(a, b string) bool { return a < b })

	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: seek %s: %v", flatfile.ErrIO, s.path, err)
	}

	reader := NewReader(s.file)
	for {
		line, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		typeName, kv, err := ParseLine(line)
		if err != nil {
			continue
		}
		r, err := s.registry.Clone(typeName)
		if err != nil {
			continue
		}
		if err := r.FromKV(kv); err != nil {
			continue
		}
		s.cache = append(s.cache, r)
		s.index.ReplaceOrInsert(r.ID())
	}

	s.cacheValid = true
	return nil
}

func (s *Store) invalidate() {
	s.cache = nil
	s.index = nil
	s.cacheValid = false
}

func (s *Store) indexOf(id string) int {
	for i, r := range s.cache {
		if r.ID() == id {
			return i
		}
	}
	return -1
}

func (s *Store) appendLine(r Record) error {
	end, err := s.file.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("%w: seek %s: %v", flatfile.ErrIO, s.path, err)
	}

	line := FormatLine(r.TypeName(), r.ToKV())

	// An external writer may have left the final line without its newline;
	// appending straight after it would glue two records together.
	if end > 0 {
		last := make([]byte, 1)
		if _, err := s.file.ReadAt(last, end-1); err != nil {
			return fmt.Errorf("%w: read %s: %v", flatfile.ErrIO, s.path, err)
		}
		if last[0] != '\n' {
			line = "\n" + line
		}
	}
	if _, err := s.file.WriteString(line); err != nil {
		return fmt.Errorf("%w: write %s: %v", flatfile.ErrIO, s.path, err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("%w: fsync %s: %v", flatfile.ErrIO, s.path, err)
	}
	return nil
}

func (s *Store) rewriteAll(records []Record) error {
	if err := s.file.Truncate(0); err != nil {
		return fmt.Errorf("%w: truncate %s: %v", flatfile.ErrIO, s.path, err)
	}
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: seek %s: %v", flatfile.ErrIO, s.path, err)
	}

	writer := bufio.NewWriter(s.file)
	for _, r := range records {
		if _, err := writer.WriteString(FormatLine(r.TypeName(), r.ToKV())); err != nil {
			return fmt.Errorf("%w: write %s: %v", flatfile.ErrIO, s.path, err)
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("%w: flush %s: %v", flatfile.ErrIO, s.path, err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("%w: fsync %s: %v", flatfile.ErrIO, s.path, err)
	}
	return nil
}

func (s *Store) updateStamp() error {
	stamp, err := filelock.Stat(s.path)
	if err != nil {
		return fmt.Errorf("%w: %v", flatfile.ErrIO, err)
	}
	s.last = stamp
	return nil
}

// document flattens a record to a filter-matchable map. Numeric tokens
// outside int64 range fall back to their raw text.
func document(r Record) map[string]interface{} {
	doc := map[string]interface{}{}
	for _, f := range r.ToKV() {
		if f.Value.IsString {
			doc[f.Key] = f.Value.Raw
			continue
		}
		if n, err := f.Value.AsInt(); err == nil {
			doc[f.Key] = n
		} else {
			doc[f.Key] = f.Value.Raw
		}
	}
	return doc
}
