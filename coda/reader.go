package coda

import (
	"strings"
)

// Both CODA files are strictly line oriented: an index line is
// "name first last" and a draw line is "iteration value". lineReader walks
// the non-blank lines of a file and splits each into its fields, tracking
// the 1-based line number for error reporting.
type lineReader struct {
	lines []string
	pos   int
	line  int // 1-based number of the line last returned by Next
}

func newLineReader(data string) *lineReader {
	return &lineReader{lines: strings.Split(data, "\n")}
}

// Next returns the fields of the next non-blank line, or false at EOF
func (lr *lineReader) Next() ([]string, bool) {
	for lr.pos < len(lr.lines) {
		lr.pos++
		f := strings.Fields(lr.lines[lr.pos-1])
		if len(f) > 0 {
			lr.line = lr.pos
			return f, true
		}
	}
	return nil, false
}

// Line is the file line number of the last fields returned
func (lr *lineReader) Line() int {
	return lr.line
}
