package linefile

import (
	"io"
	"strings"
	"testing"

	. "github.com/fulldump/biff"
)

func readAll(input string) []string {
	r := NewReader(strings.NewReader(input))
	lines := []string{}
	for {
		line, err := r.Next()
		if err == io.EOF {
			return lines
		}
		if err != nil {
			panic(err)
		}
		lines = append(lines, line)
	}
}

func TestReaderSkipsBlanksAndComments(t *testing.T) {

	input := "# header comment\n" +
		"\n" +
		"A { \"k\": 1 } # trailing comment\n" +
		"   \t\n" +
		"B { \"k\": 2 }\n"

	lines := readAll(input)

	AssertEqual(lines, []string{
		`A { "k": 1 }`,
		`B { "k": 2 }`,
	})
}

func TestReaderHashInsideStringIsKept(t *testing.T) {

	lines := readAll("A { \"tag\": \"#1 \\\" # still string\" } # real comment\n")

	AssertEqual(lines, []string{`A { "tag": "#1 \" # still string" }`})
}

func TestReaderAcceptsMissingFinalNewline(t *testing.T) {

	lines := readAll(`A { "k": 1 }`)

	AssertEqual(lines, []string{`A { "k": 1 }`})
}

func TestReaderEmptyInputIsEOF(t *testing.T) {

	AssertEqual(readAll(""), []string{})
	AssertEqual(readAll("\n\n# only comments\n"), []string{})
}

func TestReaderEOFIsSticky(t *testing.T) {

	r := NewReader(strings.NewReader("A { }\n"))

	_, err := r.Next()
	AssertNil(err)

	_, err = r.Next()
	AssertEqual(err, io.EOF)

	_, err = r.Next()
	AssertEqual(err, io.EOF)
}
