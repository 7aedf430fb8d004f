package slotfile

import (
	"bytes"
	"fmt"

	"github.com/fulldump/flatfile"
	"github.com/fulldump/flatfile/record"
)

// Layout is the compiled offset/width geometry of a record type. It is
// deterministic (same schema, same offsets) and immutable once compiled.
// Serialization is "copy template, then overwrite the variable spans": the
// structural punctuation is baked into a reusable template buffer so the
// hot path only touches the type tag, the id and the field values.
//
// One slot looks like:
//
//	[type],id:"[id]"{name:"[value]",age:[+0000000000000000025]}
type Layout struct {
	typeOffset int
	typeWidth  int
	idOffset   int
	idWidth    int
	fields     []fieldRegion
	size       int
	template   []byte
}

type fieldRegion struct {
	spec   record.FieldSpec
	offset int
}

// Size returns the total slot size in bytes.
func (l *Layout) Size() int {
	return l.size
}

// CompileLayout computes the Layout for a type tag width, an id width and an
// ordered field list. Widths outside (0, record.MaxFieldWidth) are rejected;
// numeric fields must declare record.NumericWidth.
func CompileLayout(typeWidth, idWidth int, fields []record.FieldSpec) (*Layout, error) {
	if typeWidth <= 0 || typeWidth >= record.MaxFieldWidth {
		return nil, fmt.Errorf("%w: type width %d out of range", flatfile.ErrInvalidArgument, typeWidth)
	}
	if idWidth <= 0 || idWidth >= record.MaxFieldWidth {
		return nil, fmt.Errorf("%w: id width %d out of range", flatfile.ErrInvalidArgument, idWidth)
	}

	l := &Layout{}
	template := &bytes.Buffer{}

	pad := func(n int) {
		template.Write(make([]byte, n))
	}

	l.typeOffset = template.Len()
	l.typeWidth = typeWidth
	pad(typeWidth)

	template.WriteString(`,id:"`)
	l.idOffset = template.Len()
	l.idWidth = idWidth
	pad(idWidth)
	template.WriteString(`"{`)

	for i, spec := range fields {
		if spec.Name == "" {
			return nil, fmt.Errorf("%w: field %d has no name", flatfile.ErrInvalidArgument, i)
		}
		switch spec.Kind {
		case record.KindString:
			if spec.Width <= 0 || spec.Width >= record.MaxFieldWidth {
				return nil, fmt.Errorf("%w: field '%s' width %d out of range", flatfile.ErrInvalidArgument, spec.Name, spec.Width)
			}
		case record.KindNumeric:
			if spec.Width != record.NumericWidth {
				return nil, fmt.Errorf("%w: numeric field '%s' must have width %d", flatfile.ErrInvalidArgument, spec.Name, record.NumericWidth)
			}
		default:
			return nil, fmt.Errorf("%w: field '%s' has unknown kind", flatfile.ErrInvalidArgument, spec.Name)
		}

		if i > 0 {
			template.WriteString(",")
		}
		template.WriteString(spec.Name)
		template.WriteString(":")
		if spec.Kind == record.KindString {
			template.WriteString(`"`)
		}
		l.fields = append(l.fields, fieldRegion{spec: spec, offset: template.Len()})
		pad(spec.Width)
		if spec.Kind == record.KindString {
			template.WriteString(`"`)
		}
	}

	template.WriteString("}")

	l.template = template.Bytes()
	l.size = len(l.template)
	return l, nil
}

// Encode serializes r into dst, which must be at least Size() bytes. The
// type tag and string fields are written left-justified, truncated or
// zero-padded to their width. The id must fit its width exactly or shorter;
// a truncated id would silently change the record's identity on the next
// read, so oversize ids are rejected instead.
func (l *Layout) Encode(r Record, dst []byte) error {
	if len(dst) < l.size {
		return fmt.Errorf("%w: buffer of %d bytes, slot needs %d", flatfile.ErrInvalidArgument, len(dst), l.size)
	}
	id := r.ID()
	if len(id) > l.idWidth {
		return fmt.Errorf("%w: id '%s' longer than %d bytes", flatfile.ErrInvalidArgument, id, l.idWidth)
	}

	copy(dst[:l.size], l.template)

	writePadded(dst[l.typeOffset:l.typeOffset+l.typeWidth], r.TypeName())
	writePadded(dst[l.idOffset:l.idOffset+l.idWidth], id)

	for i, f := range l.fields {
		span := dst[f.offset : f.offset+f.spec.Width]
		if f.spec.Kind == record.KindString {
			writePadded(span, r.StringField(i))
		} else {
			encodeNumeric(span, r.NumericField(i))
		}
	}
	return nil
}

// Decode parses one slot from buf into r. The type tag is structural and
// not read back; the id and every field are. A numeric field with a bad
// sign byte fails with ErrMalformedField, bad digits with ErrInvalidDigits;
// both are fatal to the read that hits them.
func (l *Layout) Decode(buf []byte, r Record) error {
	if len(buf) < l.size {
		return fmt.Errorf("%w: buffer of %d bytes, slot needs %d", flatfile.ErrInvalidArgument, len(buf), l.size)
	}

	r.SetID(cutPadding(buf[l.idOffset : l.idOffset+l.idWidth]))

	for i, f := range l.fields {
		span := buf[f.offset : f.offset+f.spec.Width]
		if f.spec.Kind == record.KindString {
			r.SetStringField(i, cutPadding(span))
			continue
		}
		v, err := decodeNumeric(span)
		if err != nil {
			return fmt.Errorf("field '%s': %w", f.spec.Name, err)
		}
		r.SetNumericField(i, v)
	}
	return nil
}

// writePadded copies s into span left-justified, truncating to the span
// width. The span already holds template zero bytes, so shorter values are
// zero-padded for free.
func writePadded(span []byte, s string) {
	copy(span, s)
}

// cutPadding returns span up to its first zero byte.
func cutPadding(span []byte) string {
	if i := bytes.IndexByte(span, 0); i >= 0 {
		return string(span[:i])
	}
	return string(span)
}

// encodeNumeric writes v as one sign byte plus 19 zero-padded decimal
// digits. The magnitude goes through an unsigned intermediate so negating
// math.MinInt64 cannot overflow.
func encodeNumeric(span []byte, v int64) {
	var u uint64
	if v >= 0 {
		span[0] = '+'
		u = uint64(v)
	} else {
		span[0] = '-'
		u = uint64(-(v + 1)) + 1
	}
	for i := record.NumericWidth - 1; i >= 1; i-- {
		span[i] = byte('0' + u%10)
		u /= 10
	}
}

func decodeNumeric(span []byte) (int64, error) {
	sign := span[0]
	if sign != '+' && sign != '-' {
		return 0, fmt.Errorf("%w: sign byte %q", flatfile.ErrMalformedField, sign)
	}
	var u uint64
	for _, b := range span[1:record.NumericWidth] {
		if b < '0' || b > '9' {
			return 0, fmt.Errorf("%w: byte %q", flatfile.ErrInvalidDigits, b)
		}
		u = u*10 + uint64(b-'0')
	}
	if sign == '-' {
		if u > 1<<63 {
			return 0, fmt.Errorf("%w: magnitude %d below int64 range", flatfile.ErrInvalidDigits, u)
		}
		return -int64(u - 1) - 1, nil
	}
	if u > 1<<63-1 {
		return 0, fmt.Errorf("%w: magnitude %d above int64 range", flatfile.ErrInvalidDigits, u)
	}
	return int64(u), nil
}
