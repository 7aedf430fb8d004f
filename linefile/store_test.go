package linefile

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/fulldump/flatfile"

	. "github.com/fulldump/biff"
)

func TestScenarioInsertUpdateDelete(t *testing.T) {
	Environment(func(filename string) {

		s, err := Open(filename, testRegistry())
		AssertNil(err)

		AssertNil(s.Save(&textUser{id: "u1", name: "alice", age: 30}))
		AssertNil(s.Save(&textAccount{id: "a1", name: "alice", password: "secret"}))

		n, err := s.Count()
		AssertNil(err)
		AssertEqual(n, 2)

		// Update rewrites the file but keeps the original order.
		AssertNil(s.Save(&textUser{id: "u1", name: "alice", age: 31}))

		n, err = s.Count()
		AssertNil(err)
		AssertEqual(n, 2)

		r, found, err := s.FindByID("u1")
		AssertNil(err)
		AssertTrue(found)
		AssertEqual(r.(*textUser).age, int64(31))

		AssertNil(s.DeleteByID("a1"))

		exists, err := s.ExistsByID("a1")
		AssertNil(err)
		AssertFalse(exists)

		AssertNil(s.Close())

		// A fresh handle reads the same state back from disk.
		s2, err := Open(filename, testRegistry())
		AssertNil(err)
		defer s2.Close()

		all, err := s2.FindAll()
		AssertNil(err)
		AssertEqual(len(all), 1)
		AssertEqual(all[0].ID(), "u1")
		AssertEqual(all[0].(*textUser).age, int64(31))
	})
}

func TestFindByIDAbsent(t *testing.T) {
	Environment(func(filename string) {

		s, err := Open(filename, testRegistry())
		AssertNil(err)
		defer s.Close()

		r, found, err := s.FindByID("nope")
		AssertNil(err)
		AssertFalse(found)
		AssertNil(r)
	})
}

func TestDeleteByIDAbsentIsNoop(t *testing.T) {
	Environment(func(filename string) {

		s, err := Open(filename, testRegistry())
		AssertNil(err)
		defer s.Close()

		AssertNil(s.Save(&textUser{id: "u1", name: "alice", age: 30}))
		AssertNil(s.DeleteByID("nope"))

		n, err := s.Count()
		AssertNil(err)
		AssertEqual(n, 1)
	})
}

func TestSaveAllAndDeleteAll(t *testing.T) {
	Environment(func(filename string) {

		s, err := Open(filename, testRegistry())
		AssertNil(err)
		defer s.Close()

		err = s.SaveAll([]Record{
			&textUser{id: "u1", name: "alice", age: 30},
			&textUser{id: "u2", name: "bob", age: 40},
			&textUser{id: "u3", name: "carol", age: 50},
		})
		AssertNil(err)

		n, err := s.Count()
		AssertNil(err)
		AssertEqual(n, 3)

		AssertNil(s.DeleteAll())

		n, err = s.Count()
		AssertNil(err)
		AssertEqual(n, 0)

		info, err := os.Stat(filename)
		AssertNil(err)
		AssertEqual(info.Size(), int64(0))
	})
}

func TestTolerantLoadSkipsForeignLines(t *testing.T) {
	Environment(func(filename string) {

		content := `# exported data
user { "id": "u1", "name": "alice", "age": 30 }
this is not a record line
ghost { "id": "g1" }
user { "id": "u2", "name": "bob" }
user { "id": "u3", "name": "carol", "age": 50 }
`
		AssertNil(os.WriteFile(filename, []byte(content), 0644))

		s, err := Open(filename, testRegistry())
		AssertNil(err)
		defer s.Close()

		// The garbage line, the unregistered type and the user line
		// missing its age field are all skipped.
		all, err := s.FindAll()
		AssertNil(err)
		AssertEqual(len(all), 2)
		AssertEqual(all[0].ID(), "u1")
		AssertEqual(all[1].ID(), "u3")
	})
}

func TestStalenessDetectsExternalAppend(t *testing.T) {
	Environment(func(filename string) {

		s, err := Open(filename, testRegistry())
		AssertNil(err)
		defer s.Close()

		AssertNil(s.Save(&textUser{id: "u1", name: "alice", age: 30}))

		n, err := s.Count()
		AssertNil(err)
		AssertEqual(n, 1)

		// Another writer appends behind this handle's back.
		f, err := os.OpenFile(filename, os.O_APPEND|os.O_WRONLY, 0644)
		AssertNil(err)
		_, err = f.WriteString(`user { "id": "u2", "name": "bob", "age": 40 }` + "\n")
		AssertNil(err)
		AssertNil(f.Close())

		n, err = s.Count()
		AssertNil(err)
		AssertEqual(n, 2)

		_, found, err := s.FindByID("u2")
		AssertNil(err)
		AssertTrue(found)
	})
}

func TestFindBy(t *testing.T) {
	Environment(func(filename string) {

		s, err := Open(filename, testRegistry())
		AssertNil(err)
		defer s.Close()

		err = s.SaveAll([]Record{
			&textUser{id: "u1", name: "alice", age: 30},
			&textUser{id: "u2", name: "bob", age: 40},
			&textAccount{id: "a1", name: "alice", password: "secret"},
		})
		AssertNil(err)

		byName, err := s.FindBy(map[string]interface{}{"name": "alice"})
		AssertNil(err)
		AssertEqual(len(byName), 2)

		byAge, err := s.FindBy(map[string]interface{}{"age": 40})
		AssertNil(err)
		AssertEqual(len(byAge), 1)
		AssertEqual(byAge[0].ID(), "u2")

		none, err := s.FindBy(map[string]interface{}{"name": "nobody"})
		AssertNil(err)
		AssertEqual(len(none), 0)
	})
}

func TestFindRange(t *testing.T) {
	Environment(func(filename string) {

		s, err := Open(filename, testRegistry())
		AssertNil(err)
		defer s.Close()

		// Inserted out of id order on purpose.
		err = s.SaveAll([]Record{
			&textUser{id: "d", name: "dave", age: 4},
			&textUser{id: "b", name: "bob", age: 2},
			&textUser{id: "a", name: "alice", age: 1},
			&textUser{id: "c", name: "carol", age: 3},
		})
		AssertNil(err)

		mid, err := s.FindRange("b", "d")
		AssertNil(err)
		AssertEqual(len(mid), 2)
		AssertEqual(mid[0].ID(), "b")
		AssertEqual(mid[1].ID(), "c")

		tail, err := s.FindRange("c", "")
		AssertNil(err)
		AssertEqual(len(tail), 2)
		AssertEqual(tail[0].ID(), "c")
		AssertEqual(tail[1].ID(), "d")
	})
}

func TestCloneIndependence(t *testing.T) {
	Environment(func(filename string) {

		s, err := Open(filename, testRegistry())
		AssertNil(err)
		defer s.Close()

		AssertNil(s.Save(&textUser{id: "u1", name: "alice", age: 30}))

		r, found, err := s.FindByID("u1")
		AssertNil(err)
		AssertTrue(found)

		// Mutating the result must not leak into the store's cache.
		r.(*textUser).name = "mallory"

		r2, _, err := s.FindByID("u1")
		AssertNil(err)
		AssertEqual(r2.(*textUser).name, "alice")
	})
}

func TestRegistry(t *testing.T) {

	_, err := NewRegistry(&textUser{}, &textUser{})
	AssertTrue(errors.Is(err, flatfile.ErrInvalidArgument))

	r := testRegistry()

	_, err = r.Clone("ghost")
	AssertTrue(errors.Is(err, flatfile.ErrNotSupported))

	rec, err := r.Clone("user")
	AssertNil(err)
	AssertEqual(rec.TypeName(), "user")
}

func TestOpenNilRegistryFails(t *testing.T) {
	Environment(func(filename string) {

		_, err := Open(filename, nil)
		AssertTrue(errors.Is(err, flatfile.ErrInvalidArgument))
	})
}

func BenchmarkSaveInsert(b *testing.B) {
	Environment(func(filename string) {

		s, err := Open(filename, testRegistry())
		if err != nil {
			b.Fatal(err)
		}
		defer s.Close()

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_ = s.Save(&textUser{id: fmt.Sprintf("u%09d", i), name: "bench", age: int64(i)})
		}
	})
}

func TestSaveAfterExternalLineWithoutNewline(t *testing.T) {
	Environment(func(filename string) {

		// An external writer left the final line unterminated, which is
		// still a complete record on read.
		seed := `user { "id": "u1", "name": "alice", "age": 30 }`
		AssertNil(os.WriteFile(filename, []byte(seed), 0644))

		s, err := Open(filename, testRegistry())
		AssertNil(err)
		defer s.Close()

		AssertNil(s.Save(&textUser{id: "u2", name: "bob", age: 40}))

		all, err := s.FindAll()
		AssertNil(err)
		AssertEqual(len(all), 2)
		AssertEqual(all[0].ID(), "u1")
		AssertEqual(all[1].ID(), "u2")
	})
}
