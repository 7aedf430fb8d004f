// Package record holds the data model shared by both storage engines: field
// kinds and widths, and the minimal contract every stored record satisfies.
package record

// Kind is the on-disk representation of a field.
type Kind byte

const (
	// KindString is a fixed byte span (slotfile) or a quoted string
	// (linefile).
	KindString Kind = iota
	// KindNumeric is a 64-bit signed integer encoded as one sign byte plus
	// 19 zero-padded decimal digits.
	KindNumeric
)

// NumericWidth is the fixed byte width of a numeric field: sign + 19 digits,
// enough for any int64 including math.MinInt64.
const NumericWidth = 20

// MaxFieldWidth is a sanity bound, not a format feature. CompileLayout
// rejects wider fields.
const MaxFieldWidth = 1024

// FieldSpec declares one field of a fixed-width record type. The declaration
// order of a type's specs is the on-disk field order; changing it changes
// the file format.
type FieldSpec struct {
	Name string
	Kind Kind
	// Width is the fixed byte count for KindString and must be
	// NumericWidth for KindNumeric.
	Width int
}

// Record is the contract common to every stored record. Ids are externally
// supplied and unique within a store at any instant.
type Record interface {
	ID() string
	TypeName() string
}
