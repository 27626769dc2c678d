package model

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// The engine's console reads data and initial values in the R dump format:
// one assignment per entry, numeric scalars, c(...) vectors, and
// structure(c(...), .Dim = c(...)) arrays. We write the subset the engine
// reads and parse the subset the engine (and its R front ends) write.

// WriteDump writes the data set to w in dump format
func WriteDump(w io.Writer, d *DataSet) error {
	if d == nil {
		return errors.New("No data set to write")
	}

	for _, name := range d.Names() {
		if s, ok := d.GetString(name); ok {
			if _, err := fmt.Fprintf(w, "%s <- \"%s\"\n", dumpName(name), s); err != nil {
				return errors.Wrapf(err, "Could not WRITE entry %s", name)
			}
			continue
		}

		v, ok := d.Get(name)
		if !ok {
			return errors.Errorf("Name %s has no value", name)
		}

		var err error
		switch {
		case v.IsScalar():
			_, err = fmt.Fprintf(w, "%s <- %s\n", dumpName(name), dumpNum(v.Data[0]))
		case v.Dims == nil:
			_, err = fmt.Fprintf(w, "%s <- %s\n", dumpName(name), dumpVector(v.Data))
		default:
			_, err = fmt.Fprintf(w, "%s <- structure(%s, .Dim = %s)\n",
				dumpName(name), dumpVector(v.Data), dumpDims(v.Dims))
		}
		if err != nil {
			return errors.Wrapf(err, "Could not WRITE entry %s", name)
		}
	}

	return nil
}

// DumpString renders the data set to a dump-format string
func DumpString(d *DataSet) (string, error) {
	var sb strings.Builder
	if err := WriteDump(&sb, d); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Names starting with a dot (the RNG entries) are quoted the way the R front
// ends quote them
func dumpName(name string) string {
	if strings.HasPrefix(name, ".") {
		return "\"" + name + "\""
	}
	return name
}

func dumpNum(v float64) string {
	if v != v { // NaN is our NA
		return "NA"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func dumpVector(vals []float64) string {
	var sb strings.Builder
	sb.WriteString("c(")
	for i, v := range vals {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(dumpNum(v))
	}
	sb.WriteString(")")
	return sb.String()
}

func dumpDims(dims []int) string {
	var sb strings.Builder
	sb.WriteString("c(")
	for i, d := range dims {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.Itoa(d))
	}
	sb.WriteString(")")
	return sb.String()
}

// token kinds for the dump lexer
const (
	tokEOF = iota
	tokIdent
	tokNum
	tokStr
	tokAssign // <- or =
	tokLParen
	tokRParen
	tokComma
)

type dumpToken struct {
	kind int
	text string
	num  float64
}

type dumpLexer struct {
	src string
	pos int
}

func (l *dumpLexer) errorf(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	return errors.Errorf("Dump parse error at offset %d: %s", l.pos, msg)
}

func (l *dumpLexer) next() (dumpToken, error) {
	// skip whitespace and comments
	for l.pos < len(l.src) {
		ch := l.src[l.pos]
		if ch == '#' {
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
			continue
		}
		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
			l.pos++
			continue
		}
		break
	}

	if l.pos >= len(l.src) {
		return dumpToken{kind: tokEOF}, nil
	}

	ch := l.src[l.pos]
	switch {
	case ch == '(':
		l.pos++
		return dumpToken{kind: tokLParen}, nil
	case ch == ')':
		l.pos++
		return dumpToken{kind: tokRParen}, nil
	case ch == ',':
		l.pos++
		return dumpToken{kind: tokComma}, nil
	case ch == '=':
		l.pos++
		return dumpToken{kind: tokAssign}, nil
	case ch == '<':
		if l.pos+1 < len(l.src) && l.src[l.pos+1] == '-' {
			l.pos += 2
			return dumpToken{kind: tokAssign}, nil
		}
		return dumpToken{}, l.errorf("unexpected '<'")
	case ch == '"' || ch == '`':
		return l.quoted(ch)
	case ch == '+' || ch == '-' || (ch >= '0' && ch <= '9'),
		ch == '.' && l.pos+1 < len(l.src) && l.src[l.pos+1] >= '0' && l.src[l.pos+1] <= '9':
		// a dot is only numeric when a digit follows (.Dim is an identifier)
		return l.number()
	case isIdentStart(ch):
		j := l.pos
		for j < len(l.src) && isIdentChar(l.src[j]) {
			j++
		}
		t := dumpToken{kind: tokIdent, text: l.src[l.pos:j]}
		l.pos = j
		return t, nil
	}

	return dumpToken{}, l.errorf("unexpected character %q", string(ch))
}

// quoted reads a double-quoted string or a backquoted name. Backquoted names
// come out as tokIdent since they are just escaped symbols.
func (l *dumpLexer) quoted(quote byte) (dumpToken, error) {
	j := l.pos + 1
	for j < len(l.src) && l.src[j] != quote {
		j++
	}
	if j >= len(l.src) {
		return dumpToken{}, l.errorf("unterminated quote")
	}

	text := l.src[l.pos+1 : j]
	l.pos = j + 1

	if quote == '`' {
		return dumpToken{kind: tokIdent, text: text}, nil
	}
	return dumpToken{kind: tokStr, text: text}, nil
}

func (l *dumpLexer) number() (dumpToken, error) {
	j := l.pos
	if l.src[j] == '+' || l.src[j] == '-' {
		j++
	}
	for j < len(l.src) {
		ch := l.src[j]
		if (ch >= '0' && ch <= '9') || ch == '.' {
			j++
			continue
		}
		if ch == 'e' || ch == 'E' {
			j++
			if j < len(l.src) && (l.src[j] == '+' || l.src[j] == '-') {
				j++
			}
			continue
		}
		break
	}

	text := l.src[l.pos:j]
	intSuffix := false
	if j < len(l.src) && l.src[j] == 'L' { // R integer literal suffix
		intSuffix = true
		j++
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return dumpToken{}, l.errorf("bad number %q", text)
	}
	_ = intSuffix

	l.pos = j
	return dumpToken{kind: tokNum, num: v, text: text}, nil
}

// ParseDump parses dump-format text into a DataSet
func ParseDump(data string) (*DataSet, error) {
	l := &dumpLexer{src: data}
	d := NewDataSet()

	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		if tok.kind == tokEOF {
			break
		}

		var name string
		switch tok.kind {
		case tokIdent:
			name = tok.text
		case tokStr:
			name = tok.text // R front ends quote dotted names
		default:
			return nil, l.errorf("expected a name")
		}

		tok, err = l.next()
		if err != nil {
			return nil, err
		}
		if tok.kind != tokAssign {
			return nil, l.errorf("expected assignment after %s", name)
		}

		if err := l.parseValueInto(d, name); err != nil {
			return nil, err
		}
	}

	return d, nil
}

// ParseDumpFile reads and parses a dump-format file
func ParseDumpFile(filename string) (*DataSet, error) {
	data, err := readFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "Could not READ dump from %s", filename)
	}

	d, err := ParseDump(data)
	if err != nil {
		return nil, errors.Wrapf(err, "Could not PARSE dump from %s", filename)
	}
	return d, nil
}

func readFile(filename string) (string, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (l *dumpLexer) parseValueInto(d *DataSet, name string) error {
	tok, err := l.next()
	if err != nil {
		return err
	}

	switch tok.kind {
	case tokNum:
		return d.Set(name, Scalar(tok.num))
	case tokStr:
		return d.SetString(name, tok.text)
	case tokIdent:
		switch tok.text {
		case "NA":
			return d.Set(name, Scalar(NA))
		case "c":
			vals, err := l.parseVector(false)
			if err != nil {
				return err
			}
			if len(vals) == 1 {
				return d.Set(name, Scalar(vals[0]))
			}
			return d.Set(name, Vector(vals...))
		case "structure":
			v, err := l.parseStructure()
			if err != nil {
				return err
			}
			return d.Set(name, v)
		}
		return l.errorf("unexpected identifier %s in value for %s", tok.text, name)
	}

	return l.errorf("unexpected value for %s", name)
}

// parseVector parses "(v, v, ...)" - the caller has already consumed the "c".
// With parenSeen the opening paren has been consumed too.
func (l *dumpLexer) parseVector(parenSeen bool) ([]float64, error) {
	if !parenSeen {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		if tok.kind != tokLParen {
			return nil, l.errorf("expected ( after c")
		}
	}

	vals := []float64{}
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}

		switch tok.kind {
		case tokRParen:
			if len(vals) < 1 {
				return nil, l.errorf("empty vector")
			}
			return vals, nil
		case tokNum:
			vals = append(vals, tok.num)
		case tokIdent:
			if tok.text != "NA" {
				return nil, l.errorf("unexpected identifier %s in vector", tok.text)
			}
			vals = append(vals, NA)
		case tokComma:
			continue
		default:
			return nil, l.errorf("unexpected token in vector")
		}
	}
}

// parseStructure parses "(c(...), .Dim = c(...))" - the caller has already
// consumed the "structure".
func (l *dumpLexer) parseStructure() (Value, error) {
	tok, err := l.next()
	if err != nil {
		return Value{}, err
	}
	if tok.kind != tokLParen {
		return Value{}, l.errorf("expected ( after structure")
	}

	tok, err = l.next()
	if err != nil {
		return Value{}, err
	}
	if tok.kind != tokIdent || tok.text != "c" {
		return Value{}, l.errorf("expected data vector in structure")
	}

	vals, err := l.parseVector(false)
	if err != nil {
		return Value{}, err
	}

	tok, err = l.next()
	if err != nil {
		return Value{}, err
	}
	if tok.kind != tokComma {
		return Value{}, l.errorf("expected , after structure data")
	}

	tok, err = l.next()
	if err != nil {
		return Value{}, err
	}
	if tok.kind != tokIdent || tok.text != ".Dim" {
		return Value{}, l.errorf("expected .Dim in structure")
	}

	tok, err = l.next()
	if err != nil {
		return Value{}, err
	}
	if tok.kind != tokAssign {
		return Value{}, l.errorf("expected = after .Dim")
	}

	tok, err = l.next()
	if err != nil {
		return Value{}, err
	}

	var dimVals []float64
	switch {
	case tok.kind == tokIdent && tok.text == "c":
		dimVals, err = l.parseVector(false)
		if err != nil {
			return Value{}, err
		}
	case tok.kind == tokNum:
		dimVals = []float64{tok.num}
	default:
		return Value{}, l.errorf("expected dims vector")
	}

	tok, err = l.next()
	if err != nil {
		return Value{}, err
	}
	if tok.kind != tokRParen {
		return Value{}, l.errorf("expected ) to close structure")
	}

	dims := make([]int, len(dimVals))
	for i, dv := range dimVals {
		dims[i] = int(dv)
	}

	return Array(vals, dims...)
}
