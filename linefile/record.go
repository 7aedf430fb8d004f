package linefile

import (
	"fmt"
	"strconv"

	"github.com/fulldump/flatfile"
	"github.com/fulldump/flatfile/record"
)

// Value is one field value together with its lexical kind: a quoted string
// or a bare integer token.
type Value struct {
	IsString bool
	Raw      string
}

// AsString returns the value as a string, failing if it was an integer
// token.
func (v Value) AsString() (string, error) {
	if !v.IsString {
		return "", fmt.Errorf("%w: expected string, got number %s", flatfile.ErrInvalidArgument, v.Raw)
	}
	return v.Raw, nil
}

// AsInt returns the value as an int64, failing if it was a quoted string
// or the token does not fit a 64-bit signed integer.
func (v Value) AsInt() (int64, error) {
	if v.IsString {
		return 0, fmt.Errorf("%w: expected number, got string %q", flatfile.ErrInvalidArgument, v.Raw)
	}
	n, err := strconv.ParseInt(v.Raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", flatfile.ErrInvalidDigits, v.Raw)
	}
	return n, nil
}

// StringValue and IntValue build Values for ToKV implementations.
func StringValue(s string) Value {
	return Value{IsString: true, Raw: s}
}

func IntValue(n int64) Value {
	return Value{Raw: strconv.FormatInt(n, 10)}
}

// KV is one ordered key/value entry of a record line.
type KV struct {
	Key   string
	Value Value
}

// Record is the contract a line-store record type supplies: encode itself
// to ordered pairs and decode itself back from a parsed pair map.
type Record interface {
	record.Record
	ToKV() []KV
	FromKV(kv map[string]Value) error
	Clone() Record
}
