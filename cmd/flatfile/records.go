package main

import (
	"github.com/fulldump/flatfile/linefile"
	"github.com/fulldump/flatfile/record"
	"github.com/fulldump/flatfile/slotfile"
)

// FixedUser is the demo record for the fixed-slot store: a 36-byte id (one
// uuid), a 16-byte name and a numeric age.
type FixedUser struct {
	Id   string `json:"id"`
	Name string `json:"name"`
	Age  int64  `json:"age"`
}

func (u *FixedUser) ID() string       { return u.Id }
func (u *FixedUser) SetID(id string)  { u.Id = id }
func (u *FixedUser) TypeName() string { return "user" }

func (u *FixedUser) Schema() slotfile.Schema {
	return slotfile.Schema{
		TypeWidth: 10,
		IDWidth:   36,
		Fields: []record.FieldSpec{
			{Name: "name", Kind: record.KindString, Width: 16},
			{Name: "age", Kind: record.KindNumeric, Width: record.NumericWidth},
		},
	}
}

func (u *FixedUser) StringField(i int) string       { return u.Name }
func (u *FixedUser) SetStringField(i int, v string) { u.Name = v }
func (u *FixedUser) NumericField(i int) int64       { return u.Age }
func (u *FixedUser) SetNumericField(i int, v int64) { u.Age = v }
func (u *FixedUser) Clone() *FixedUser              { c := *u; return &c }

// TextUser and TextAccount are the demo records for the line store.
type TextUser struct {
	Id   string `json:"id"`
	Name string `json:"name"`
	Age  int64  `json:"age"`
}

func (u *TextUser) ID() string       { return u.Id }
func (u *TextUser) TypeName() string { return "user" }

func (u *TextUser) ToKV() []linefile.KV {
	return []linefile.KV{
		{Key: "id", Value: linefile.StringValue(u.Id)},
		{Key: "name", Value: linefile.StringValue(u.Name)},
		{Key: "age", Value: linefile.IntValue(u.Age)},
	}
}

func (u *TextUser) FromKV(kv map[string]linefile.Value) error {
	var err error
	if u.Id, err = kv["id"].AsString(); err != nil {
		return err
	}
	if u.Name, err = kv["name"].AsString(); err != nil {
		return err
	}
	if u.Age, err = kv["age"].AsInt(); err != nil {
		return err
	}
	return nil
}

func (u *TextUser) Clone() linefile.Record {
	c := *u
	return &c
}

type TextAccount struct {
	Id       string `json:"id"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (a *TextAccount) ID() string       { return a.Id }
func (a *TextAccount) TypeName() string { return "account" }

func (a *TextAccount) ToKV() []linefile.KV {
	return []linefile.KV{
		{Key: "id", Value: linefile.StringValue(a.Id)},
		{Key: "name", Value: linefile.StringValue(a.Name)},
		{Key: "password", Value: linefile.StringValue(a.Password)},
	}
}

func (a *TextAccount) FromKV(kv map[string]linefile.Value) error {
	var err error
	if a.Id, err = kv["id"].AsString(); err != nil {
		return err
	}
	if a.Name, err = kv["name"].AsString(); err != nil {
		return err
	}
	if a.Password, err = kv["password"].AsString(); err != nil {
		return err
	}
	return nil
}

func (a *TextAccount) Clone() linefile.Record {
	c := *a
	return &c
}
