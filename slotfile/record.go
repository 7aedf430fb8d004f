package slotfile

import (
	"github.com/fulldump/flatfile/record"
)

// Schema declares the fixed byte geometry of a record type: the widths of
// the type tag and the id, and the ordered field list. Every record ever
// written to one file must share the same schema.
type Schema struct {
	TypeWidth int
	IDWidth   int
	Fields    []record.FieldSpec
}

// Record is the contract a fixed-width record type supplies to the store.
// Field accessors are indexed by the field's position in Schema().Fields;
// the codec calls the accessor matching the declared kind.
type Record interface {
	record.Record
	SetID(id string)
	Schema() Schema
	StringField(i int) string
	SetStringField(i int, v string)
	NumericField(i int) int64
	SetNumericField(i int, v int64)
}

// RecordOf constrains a store's record type to one that can produce blank
// copies of itself for decoding.
type RecordOf[T any] interface {
	Record
	Clone() T
}
