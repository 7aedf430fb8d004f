// Package database manages a directory of named line stores. It is the one
// component allowed to hold many store handles at once; like a single store
// handle, a Database is not safe for concurrent mutation.
package database

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/fulldump/flatfile/linefile"
	"github.com/fulldump/flatfile/utils"
)

const (
	StatusOpening   = "opening"
	StatusOperating = "operating"
	StatusClosing   = "closing"
)

type Config struct {
	Dir      string
	Registry *linefile.Registry
}

type Database struct {
	config *Config
	status string
	Stores map[string]*linefile.Store
}

func NewDatabase(config *Config) *Database {
	return &Database{
		config: config,
		status: StatusOpening,
		Stores: map[string]*linefile.Store{},
	}
}

func (db *Database) GetStatus() string {
	return db.status
}

// CreateStore opens a new named store file under the data directory.
func (db *Database) CreateStore(name string) (*linefile.Store, error) {

	_, exists := db.Stores[name]
	if exists {
		return nil, fmt.Errorf("store '%s' already exists", name)
	}

	filename := path.Join(db.config.Dir, name)
	store, err := linefile.Open(filename, db.config.Registry)
	if err != nil {
		return nil, err
	}

	db.Stores[name] = store

	return store, nil
}

// GetStore returns the named store, opening it on first use.
func (db *Database) GetStore(name string) (*linefile.Store, error) {
	if store, exists := db.Stores[name]; exists {
		return store, nil
	}
	return db.CreateStore(name)
}

// DropStore closes the named store and removes its file.
func (db *Database) DropStore(name string) error {

	store, exists := db.Stores[name]
	if !exists {
		return fmt.Errorf("store '%s' not found", name)
	}

	if err := store.Close(); err != nil {
		return err
	}
	delete(db.Stores, name)

	filename := path.Join(db.config.Dir, name)
	if err := os.Remove(filename); err != nil {
		return err
	}

	return nil
}

// ListStores returns the open store names in sorted order.
func (db *Database) ListStores() []string {
	return utils.GetKeys(db.Stores)
}

// Load opens every file under the data directory as a store. A file that
// cannot be opened aborts the load and leaves the database closing.
func (db *Database) Load() error {

	dir := db.config.Dir
	slog.Info("loading database", "dir", dir)

	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}
	err = filepath.WalkDir(dir, func(filename string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		name := filename
		name = strings.TrimPrefix(name, dir)
		name = strings.TrimPrefix(name, "/")

		t0 := time.Now()
		store, err := linefile.Open(filename, db.config.Registry)
		if err != nil {
			slog.Error("open store", "file", filename, "error", err)
			return err
		}
		n, err := store.Count()
		if err != nil {
			store.Close()
			slog.Error("scan store", "file", filename, "error", err)
			return err
		}
		slog.Info("store loaded", "name", name, "records", n, "elapsed", time.Since(t0))

		db.Stores[name] = store

		return nil
	})

	if err != nil {
		db.status = StatusClosing
		return err
	}

	db.status = StatusOperating

	return nil
}

// Stop closes every open store and reports the last close failure.
func (db *Database) Stop() error {

	db.status = StatusClosing

	var lastErr error
	for name, store := range db.Stores {
		slog.Info("closing store", "name", name)
		err := store.Close()
		if err != nil {
			slog.Error("close store", "name", name, "error", err)
			lastErr = err
		}
	}

	return lastErr
}
