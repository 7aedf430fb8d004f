package linefile

import (
	"fmt"
	"os"
	"time"
)

func Environment(f func(filename string)) {
	filename := fmt.Sprintf("temp-%v", time.Now().UnixNano())
	defer os.Remove(filename)

	f(filename)
}

type textUser struct {
	id   string
	name string
	age  int64
}

func (u *textUser) ID() string       { return u.id }
func (u *textUser) TypeName() string { return "user" }

func (u *textUser) ToKV() []KV {
	return []KV{
		{"id", StringValue(u.id)},
		{"name", StringValue(u.name)},
		{"age", IntValue(u.age)},
	}
}

func (u *textUser) FromKV(kv map[string]Value) error {
	var err error
	if u.id, err = kv["id"].AsString(); err != nil {
		return err
	}
	if u.name, err = kv["name"].AsString(); err != nil {
		return err
	}
	if u.age, err = kv["age"].AsInt(); err != nil {
		return err
	}
	return nil
}

func (u *textUser) Clone() Record {
	c := *u
	return &c
}

type textAccount struct {
	id       string
	name     string
	password string
}

func (a *textAccount) ID() string       { return a.id }
func (a *textAccount) TypeName() string { return "account" }

func (a *textAccount) ToKV() []KV {
	return []KV{
		{"id", StringValue(a.id)},
		{"name", StringValue(a.name)},
		{"password", StringValue(a.password)},
	}
}

func (a *textAccount) FromKV(kv map[string]Value) error {
	var err error
	if a.id, err = kv["id"].AsString(); err != nil {
		return err
	}
	if a.name, err = kv["name"].AsString(); err != nil {
		return err
	}
	if a.password, err = kv["password"].AsString(); err != nil {
		return err
	}
	return nil
}

func (a *textAccount) Clone() Record {
	c := *a
	return &c
}

func testRegistry() *Registry {
	r, err := NewRegistry(&textUser{}, &textAccount{})
	if err != nil {
		panic(err)
	}
	return r
}
