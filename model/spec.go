package model

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Spec holds the text of a model in the engine's declarative syntax. The
// engine owns the language: we never interpret it, we only scan it lexically
// so that data and initial-value bindings can be validated before a run is
// launched (name typos and missing constants otherwise surface as opaque
// engine errors after compilation).
type Spec struct {
	Name   string // Model name (from the file name when read from disk)
	Source string // Raw model text, passed to the engine untouched

	Stochastic    []string // Base names defined with the stochastic relation (~)
	Deterministic []string // Base names defined with the deterministic relation (<-)

	idents   map[string]bool // every identifier appearing in the source
	counters map[string]bool // loop counter names
	bounds   map[string]bool // identifiers used in ranges and index expressions
	indexed  map[string]bool // node names that were defined with an index
}

// NewSpec scans and validates the given model source.
func NewSpec(name string, source string) (*Spec, error) {
	s := &Spec{
		Name:     name,
		Source:   source,
		idents:   make(map[string]bool),
		counters: make(map[string]bool),
		bounds:   make(map[string]bool),
	}

	if err := s.scan(); err != nil {
		return nil, errors.Wrapf(err, "Could not scan model %s", name)
	}

	if err := s.Check(); err != nil {
		return nil, errors.Wrapf(err, "Scanned model %s is not valid", name)
	}

	return s, nil
}

// NewSpecFromFile reads a model from the specified file. The model is named
// from the file.
func NewSpecFromFile(filename string) (*Spec, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "Could not READ model from %s", filename)
	}

	ext := filepath.Ext(filename)
	name := filepath.Base(filename[0 : len(filename)-len(ext)])

	return NewSpec(name, string(data))
}

// HasIdent returns true if the given identifier appears anywhere in the model
// source.
func (s *Spec) HasIdent(name string) bool {
	return s.idents[name]
}

// Nodes returns the base names of every node the model defines, sorted.
func (s *Spec) Nodes() []string {
	seen := make(map[string]bool)
	nodes := []string{}
	for _, n := range s.Stochastic {
		if !seen[n] {
			seen[n] = true
			nodes = append(nodes, n)
		}
	}
	for _, n := range s.Deterministic {
		if !seen[n] {
			seen[n] = true
			nodes = append(nodes, n)
		}
	}
	sort.Strings(nodes)
	return nodes
}

// defines returns true if the model defines the given base name as a node.
func (s *Spec) defines(name string) bool {
	for _, n := range s.Stochastic {
		if n == name {
			return true
		}
	}
	for _, n := range s.Deterministic {
		if n == name {
			return true
		}
	}
	return false
}

// MissingConstants returns the identifiers used in loop ranges or index
// expressions that are neither defined by the model nor bound in the given
// data. These are exactly the names the engine will refuse to resolve at
// compile time.
func (s *Spec) MissingConstants(d *DataSet) []string {
	missing := []string{}
	for name := range s.bounds {
		if s.counters[name] || s.defines(name) {
			continue
		}
		if d != nil {
			if _, ok := d.Get(name); ok {
				continue
			}
		}
		missing = append(missing, name)
	}
	sort.Strings(missing)
	return missing
}

// Check returns an error if there is a problem with the model text that we
// can detect without compiling it.
func (s *Spec) Check() error {
	if len(strings.TrimSpace(s.Source)) == 0 {
		return errors.Errorf("Model %s is empty", s.Name)
	}

	if !s.idents["model"] {
		return errors.Errorf("Model %s has no model block", s.Name)
	}

	if len(s.Stochastic) < 1 {
		return errors.Errorf("Model %s defines no stochastic nodes", s.Name)
	}

	// An unindexed node deterministically defined twice is always a
	// redefinition (indexed definitions may legitimately repeat across loops)
	seen := make(map[string]bool)
	for _, name := range s.Deterministic {
		if seen[name] && !s.indexed[name] {
			return errors.Errorf("Model %s defines node %s twice", s.Name, name)
		}
		seen[name] = true
	}

	return nil
}

func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '.'
}

func isIdentChar(ch byte) bool {
	return isIdentStart(ch) || (ch >= '0' && ch <= '9') || ch == '_'
}

// scan walks the source once, collecting identifiers, node definitions, loop
// counters, and range/index identifiers. This is a lexical pass only: no
// grammar of the modeling language is assumed beyond its statement shapes.
func (s *Spec) scan() error {
	s.indexed = make(map[string]bool)

	for _, rawLine := range strings.Split(s.Source, "\n") {
		line := rawLine
		if ci := strings.IndexByte(line, '#'); ci >= 0 {
			line = line[:ci]
		}

		s.scanIdents(line)

		for _, stmt := range strings.Split(line, ";") {
			if err := s.scanStatement(stmt); err != nil {
				return err
			}
		}
	}

	return nil
}

// scanIdents collects every identifier in the line, loop counters, and the
// identifiers used in index brackets.
func (s *Spec) scanIdents(line string) {
	depth := 0 // bracket nesting
	i := 0
	var prev string
	var prev2 string

	for i < len(line) {
		ch := line[i]
		switch {
		case ch == '[':
			depth++
			i++
		case ch == ']':
			if depth > 0 {
				depth--
			}
			i++
		case isIdentStart(ch):
			j := i
			for j < len(line) && isIdentChar(line[j]) {
				j++
			}
			ident := line[i:j]
			s.idents[ident] = true
			if depth > 0 {
				s.bounds[ident] = true
			}
			// for (i in lo:hi) - the counter follows the paren after "for",
			// the range identifiers follow "in"
			if prev2 == "for" && prev == "(" {
				s.counters[ident] = true
			}
			if prev == "in" {
				s.bounds[ident] = true
			}
			prev2 = prev
			prev = ident
			i = j
		case ch == '(' || ch == ':':
			if ch == ':' && prev != "" && isIdentStart(prev[0]) {
				s.bounds[prev] = true
			}
			prev2 = prev
			prev = string(ch)
			i++
		case ch == ' ' || ch == '\t':
			i++
		default:
			prev2 = prev
			prev = string(ch)
			i++
		}
	}

	// An identifier immediately after a range colon is also a bound
	for k := 0; k+1 < len(line); k++ {
		if line[k] == ':' && isIdentStart(line[k+1]) {
			j := k + 1
			for j < len(line) && isIdentChar(line[j]) {
				j++
			}
			s.bounds[line[k+1:j]] = true
		}
	}
}

// scanStatement records the node defined by a single relation statement (if
// any).
func (s *Spec) scanStatement(stmt string) error {
	opIdx, stochastic := relationIndex(stmt)
	if opIdx < 0 {
		return nil
	}

	lhs := strings.TrimSpace(stmt[:opIdx])
	if lhs == "" {
		return errors.Errorf("Relation with empty left-hand side in %q", strings.TrimSpace(stmt))
	}

	name, wasIndexed, err := baseName(lhs)
	if err != nil {
		return errors.Wrapf(err, "Bad node in %q", strings.TrimSpace(stmt))
	}

	if stochastic {
		s.Stochastic = append(s.Stochastic, name)
	} else {
		s.Deterministic = append(s.Deterministic, name)
	}
	if wasIndexed {
		s.indexed[name] = true
	}

	return nil
}

// relationIndex finds the first relation operator in the statement. Returns
// the operator offset and whether it is the stochastic relation.
func relationIndex(stmt string) (int, bool) {
	tilde := strings.IndexByte(stmt, '~')
	arrow := strings.Index(stmt, "<-")

	if tilde < 0 && arrow < 0 {
		return -1, false
	}
	if tilde >= 0 && (arrow < 0 || tilde < arrow) {
		return tilde, true
	}
	return arrow, false
}

// baseName reduces a relation LHS to the underlying node name: index
// expressions are stripped and link functions (logit(p) <- ...) are unwrapped.
func baseName(lhs string) (string, bool, error) {
	lhs = strings.TrimSpace(lhs)

	// Unwrap a link function
	if strings.HasSuffix(lhs, ")") {
		open := strings.IndexByte(lhs, '(')
		if open < 0 {
			return "", false, errors.Errorf("Unbalanced parens in %q", lhs)
		}
		lhs = strings.TrimSpace(lhs[open+1 : len(lhs)-1])
	}

	indexed := false
	if bi := strings.IndexByte(lhs, '['); bi >= 0 {
		if !strings.HasSuffix(lhs, "]") {
			return "", false, errors.Errorf("Unbalanced index in %q", lhs)
		}
		lhs = strings.TrimSpace(lhs[:bi])
		indexed = true
	}

	if len(lhs) == 0 || !isIdentStart(lhs[0]) {
		return "", false, errors.Errorf("Invalid node name %q", lhs)
	}
	for i := 0; i < len(lhs); i++ {
		if !isIdentChar(lhs[i]) {
			return "", false, errors.Errorf("Invalid node name %q", lhs)
		}
	}

	return lhs, indexed, nil
}
