package linefile

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fulldump/flatfile"
)

const readChunkSize = 4096

// Reader yields record lines from a text stream: comments are stripped,
// blank lines are skipped, and the final line is accepted without a
// trailing newline. Hitting end of stream with nothing buffered reports
// io.EOF, which is an end condition, not a parse error.
type Reader struct {
	r *bufio.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{
		r: bufio.NewReaderSize(r, readChunkSize),
	}
}

// Next returns the next non-blank record line, ready for ParseLine.
func (r *Reader) Next() (string, error) {
	for {
		line, err := r.r.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("%w: read line: %v", flatfile.ErrIO, err)
		}
		atEOF := err == io.EOF
		if atEOF && line == "" {
			return "", io.EOF
		}

		line = strings.TrimSuffix(line, "\n")
		line = stripComment(line)
		if !isBlank(line) {
			return line, nil
		}
		if atEOF {
			return "", io.EOF
		}
	}
}

// stripComment cuts the line at the first '#' found outside a quoted
// string, then trims trailing spaces, tabs and carriage returns.
func stripComment(s string) string {
	inString := false
	escape := false
	cut := len(s)
scan:
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escape:
				escape = false
			case c == '\\':
				escape = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '#':
			cut = i
			break scan
		}
	}
	return strings.TrimRight(s[:cut], " \t\r")
}

func isBlank(s string) bool {
	return strings.TrimLeft(s, " \t\r") == ""
}
