package linefile

import (
	"fmt"
	"strings"

	"github.com/fulldump/flatfile"
)

// ParseLine parses one record line of the form:
//
//	TypeName { "key": "value", "count": 123 }
//
// The grammar is strict: the type is an identifier, keys are quoted
// strings, values are quoted strings or integer tokens, a duplicate key is
// a failure and nothing may follow the closing brace. There is no partial
// success: any violation returns ErrMalformedLine. Legal string escapes are
// \" \\ \n and \t, nothing else.
func ParseLine(line string) (string, map[string]Value, error) {
	p := &lineParser{s: line}

	typeName, ok := p.ident()
	if !ok {
		return "", nil, malformed(line, "missing type name")
	}

	p.skipSpace()
	if !p.eat('{') {
		return "", nil, malformed(line, "missing '{'")
	}

	kv := map[string]Value{}

	p.skipSpace()
	if p.eat('}') {
		p.skipSpace()
		if !p.done() {
			return "", nil, malformed(line, "trailing content after '}'")
		}
		return typeName, kv, nil
	}

	for {
		key, ok := p.quoted()
		if !ok {
			return "", nil, malformed(line, "missing quoted key")
		}

		p.skipSpace()
		if !p.eat(':') {
			return "", nil, malformed(line, "missing ':'")
		}

		p.skipSpace()
		var value Value
		if p.peek() == '"' {
			raw, ok := p.quoted()
			if !ok {
				return "", nil, malformed(line, "unterminated string")
			}
			value = Value{IsString: true, Raw: raw}
		} else {
			raw, ok := p.intToken()
			if !ok {
				return "", nil, malformed(line, "value is neither string nor integer")
			}
			value = Value{Raw: raw}
		}

		// Duplicate keys would need a first-wins or last-wins policy;
		// the format treats the input itself as invalid instead.
		if _, exists := kv[key]; exists {
			return "", nil, malformed(line, fmt.Sprintf("duplicate key %q", key))
		}
		kv[key] = value

		p.skipSpace()
		if p.eat(',') {
			continue
		}
		if p.eat('}') {
			break
		}
		return "", nil, malformed(line, "missing ',' or '}'")
	}

	p.skipSpace()
	if !p.done() {
		return "", nil, malformed(line, "trailing content after '}'")
	}
	return typeName, kv, nil
}

// FormatLine emits exactly the text ParseLine accepts, terminated by a
// single newline, so records round-trip byte for byte.
func FormatLine(typeName string, fields []KV) string {
	out := &strings.Builder{}
	out.WriteString(typeName)
	out.WriteString(" { ")
	for i, f := range fields {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(`"`)
		out.WriteString(escapeString(f.Key))
		out.WriteString(`": `)
		if f.Value.IsString {
			out.WriteString(`"`)
			out.WriteString(escapeString(f.Value.Raw))
			out.WriteString(`"`)
		} else {
			out.WriteString(f.Value.Raw)
		}
	}
	out.WriteString(" }\n")
	return out.String()
}

func escapeString(in string) string {
	out := &strings.Builder{}
	out.Grow(len(in) + 4)
	for i := 0; i < len(in); i++ {
		switch c := in[i]; c {
		case '"', '\\':
			out.WriteByte('\\')
			out.WriteByte(c)
		case '\n':
			out.WriteString(`\n`)
		case '\t':
			out.WriteString(`\t`)
		default:
			out.WriteByte(c)
		}
	}
	return out.String()
}

func malformed(line, reason string) error {
	return fmt.Errorf("%w: %s in %q", flatfile.ErrMalformedLine, reason, line)
}

type lineParser struct {
	s string
	i int
}

func (p *lineParser) done() bool {
	return p.i >= len(p.s)
}

func (p *lineParser) peek() byte {
	if p.done() {
		return 0
	}
	return p.s[p.i]
}

func (p *lineParser) eat(c byte) bool {
	if p.peek() != c {
		return false
	}
	p.i++
	return true
}

func (p *lineParser) skipSpace() {
	for !p.done() {
		switch p.s[p.i] {
		case ' ', '\t', '\r':
			p.i++
		default:
			return
		}
	}
}

// ident consumes [A-Za-z_][A-Za-z0-9_]*.
func (p *lineParser) ident() (string, bool) {
	p.skipSpace()
	start := p.i
	if p.done() || !isIdentStart(p.s[p.i]) {
		return "", false
	}
	p.i++
	for !p.done() && isIdentPart(p.s[p.i]) {
		p.i++
	}
	return p.s[start:p.i], true
}

// quoted consumes a double-quoted string and resolves escapes.
func (p *lineParser) quoted() (string, bool) {
	p.skipSpace()
	if !p.eat('"') {
		return "", false
	}
	out := &strings.Builder{}
	for !p.done() {
		c := p.s[p.i]
		p.i++
		if c == '"' {
			return out.String(), true
		}
		if c != '\\' {
			out.WriteByte(c)
			continue
		}
		if p.done() {
			return "", false
		}
		e := p.s[p.i]
		p.i++
		switch e {
		case '"', '\\':
			out.WriteByte(e)
		case 'n':
			out.WriteByte('\n')
		case 't':
			out.WriteByte('\t')
		default:
			return "", false
		}
	}
	return "", false
}

// intToken consumes an optional sign followed by one or more digits.
func (p *lineParser) intToken() (string, bool) {
	p.skipSpace()
	start := p.i
	if !p.done() && (p.s[p.i] == '+' || p.s[p.i] == '-') {
		p.i++
	}
	digits := p.i
	for !p.done() && p.s[p.i] >= '0' && p.s[p.i] <= '9' {
		p.i++
	}
	if p.i == digits {
		return "", false
	}
	return p.s[start:p.i], true
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
