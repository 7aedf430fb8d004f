package database

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/fulldump/flatfile/linefile"

	. "github.com/fulldump/biff"
)

func Environment(f func(dir string)) {
	dir := fmt.Sprintf("temp-db-%v", time.Now().UnixNano())
	defer os.RemoveAll(dir)

	f(dir)
}

type note struct {
	id   string
	text string
}

func (n *note) ID() string       { return n.id }
func (n *note) TypeName() string { return "note" }

func (n *note) ToKV() []linefile.KV {
	return []linefile.KV{
		{Key: "id", Value: linefile.StringValue(n.id)},
		{Key: "text", Value: linefile.StringValue(n.text)},
	}
}

func (n *note) FromKV(kv map[string]linefile.Value) error {
	var err error
	if n.id, err = kv["id"].AsString(); err != nil {
		return err
	}
	if n.text, err = kv["text"].AsString(); err != nil {
		return err
	}
	return nil
}

func (n *note) Clone() linefile.Record {
	c := *n
	return &c
}

func newConfig(dir string) *Config {
	registry, err := linefile.NewRegistry(&note{})
	if err != nil {
		panic(err)
	}
	return &Config{Dir: dir, Registry: registry}
}

func TestDatabaseLifecycle(t *testing.T) {
	Environment(func(dir string) {

		db := NewDatabase(newConfig(dir))
		AssertEqual(db.GetStatus(), StatusOpening)

		AssertNil(db.Load())
		AssertEqual(db.GetStatus(), StatusOperating)

		store, err := db.CreateStore("notes")
		AssertNil(err)
		AssertNil(store.Save(&note{id: "n1", text: "hello"}))

		_, err = db.CreateStore("notes")
		AssertNotNil(err)

		again, err := db.GetStore("notes")
		AssertNil(err)
		AssertEqual(again, store)

		AssertNil(db.Stop())
		AssertEqual(db.GetStatus(), StatusClosing)
	})
}

func TestDatabaseLoadReopensStores(t *testing.T) {
	Environment(func(dir string) {

		db := NewDatabase(newConfig(dir))
		AssertNil(db.Load())

		store, err := db.CreateStore("notes")
		AssertNil(err)
		AssertNil(store.Save(&note{id: "n1", text: "hello"}))
		AssertNil(store.Save(&note{id: "n2", text: "bye"}))
		AssertNil(db.Stop())

		db2 := NewDatabase(newConfig(dir))
		AssertNil(db2.Load())
		defer db2.Stop()

		AssertEqual(db2.ListStores(), []string{"notes"})

		store2, err := db2.GetStore("notes")
		AssertNil(err)
		n, err := store2.Count()
		AssertNil(err)
		AssertEqual(n, 2)
	})
}

func TestDatabaseDropStore(t *testing.T) {
	Environment(func(dir string) {

		db := NewDatabase(newConfig(dir))
		AssertNil(db.Load())
		defer db.Stop()

		_, err := db.CreateStore("notes")
		AssertNil(err)

		AssertNil(db.DropStore("notes"))
		AssertEqual(db.ListStores(), []string{})

		_, err = os.Stat(dir + "/notes")
		AssertTrue(os.IsNotExist(err))

		AssertNotNil(db.DropStore("notes"))
	})
}
