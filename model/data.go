package model

import (
	"math"
	"strings"

	"github.com/pkg/errors"
)

// RNG entry names understood by the engine in an initial-value set.
const (
	RNGNameEntry = ".RNG.name"
	RNGSeedEntry = ".RNG.seed"
)

// NA is how a missing observation is represented in memory. It round-trips
// through the dump format as the NA literal.
var NA = math.NaN()

// Value is a numeric constant bound to a model name: a scalar, a vector, or
// an n-dimensional array stored column-major with explicit dims (matching the
// engine's array layout).
type Value struct {
	Data []float64
	Dims []int // nil for scalars and plain vectors
}

// Scalar returns a single-number Value
func Scalar(v float64) Value {
	return Value{Data: []float64{v}}
}

// Vector returns a plain vector Value
func Vector(vs ...float64) Value {
	d := make([]float64, len(vs))
	copy(d, vs)
	return Value{Data: d}
}

// Array returns a dimensioned Value. The data length must equal the product
// of the dims.
func Array(data []float64, dims ...int) (Value, error) {
	v := Value{Data: data, Dims: dims}
	if err := v.Check(); err != nil {
		return Value{}, err
	}
	return v, nil
}

// IsScalar is true for single numbers without explicit dims
func (v Value) IsScalar() bool {
	return v.Dims == nil && len(v.Data) == 1
}

// Check returns an error if any problem is found
func (v Value) Check() error {
	if len(v.Data) < 1 {
		return errors.New("Empty value")
	}

	if v.Dims != nil {
		expect := 1
		for _, d := range v.Dims {
			if d < 1 {
				return errors.Errorf("Invalid dim %d", d)
			}
			expect *= d
		}
		if expect != len(v.Data) {
			return errors.Errorf("Dims %v expect %d values, found %d", v.Dims, expect, len(v.Data))
		}
	}

	return nil
}

// DataSet is an ordered mapping from model names to values, matching the list
// the engine expects for data and for per-chain initial values. String
// entries exist only for the engine's RNG selection (.RNG.name).
type DataSet struct {
	names []string
	vals  map[string]Value
	strs  map[string]string
}

// NewDataSet returns an empty DataSet
func NewDataSet() *DataSet {
	return &DataSet{
		names: []string{},
		vals:  make(map[string]Value),
		strs:  make(map[string]string),
	}
}

// Set binds a numeric value to a name. Binding a name twice is an error: that
// is the duplicate-assignment mistake the engine would otherwise report after
// compilation.
func (d *DataSet) Set(name string, v Value) error {
	if err := checkBindName(name); err != nil {
		return err
	}
	if err := v.Check(); err != nil {
		return errors.Wrapf(err, "Invalid value for %s", name)
	}
	if d.has(name) {
		return errors.Errorf("Name %s is already bound", name)
	}

	d.names = append(d.names, name)
	d.vals[name] = v
	return nil
}

// SetString binds a string entry (only meaningful for RNG selection)
func (d *DataSet) SetString(name string, val string) error {
	if err := checkBindName(name); err != nil {
		return err
	}
	if len(val) < 1 {
		return errors.Errorf("Empty string value for %s", name)
	}
	if d.has(name) {
		return errors.Errorf("Name %s is already bound", name)
	}

	d.names = append(d.names, name)
	d.strs[name] = val
	return nil
}

// Replace rebinds an already-bound numeric name. Used when a replicated
// initial-value set is perturbed per chain.
func (d *DataSet) Replace(name string, v Value) error {
	if err := v.Check(); err != nil {
		return errors.Wrapf(err, "Invalid value for %s", name)
	}
	if _, ok := d.vals[name]; !ok {
		return errors.Errorf("Name %s is not bound", name)
	}
	d.vals[name] = v
	return nil
}

// SetRNG binds the engine RNG entries for an initial-value set
func (d *DataSet) SetRNG(rngName string, seed int64) error {
	if err := d.SetString(RNGNameEntry, rngName); err != nil {
		return err
	}
	return d.Set(RNGSeedEntry, Scalar(float64(seed)))
}

// Get returns the numeric value bound to name
func (d *DataSet) Get(name string) (Value, bool) {
	v, ok := d.vals[name]
	return v, ok
}

// GetString returns the string entry bound to name
func (d *DataSet) GetString(name string) (string, bool) {
	s, ok := d.strs[name]
	return s, ok
}

// Names returns the bound names in insertion order
func (d *DataSet) Names() []string {
	cp := make([]string, len(d.names))
	copy(cp, d.names)
	return cp
}

// Len returns the number of bound names
func (d *DataSet) Len() int {
	return len(d.names)
}

func (d *DataSet) has(name string) bool {
	if _, ok := d.vals[name]; ok {
		return true
	}
	_, ok := d.strs[name]
	return ok
}

// CheckAgainst validates the bindings against a scanned model: every bound
// name must occur in the model text, and every constant the model needs in a
// range or index expression must be bound. RNG entries are engine-level and
// skipped.
func (d *DataSet) CheckAgainst(s *Spec) error {
	if s == nil {
		return errors.New("No model to check against")
	}

	for _, name := range d.names {
		if strings.HasPrefix(name, ".RNG.") {
			continue
		}
		if !s.HasIdent(name) {
			return errors.Errorf("Bound name %s does not appear in model %s", name, s.Name)
		}
	}

	if missing := s.MissingConstants(d); len(missing) > 0 {
		return errors.Errorf("Model %s needs unbound constants: %s", s.Name, strings.Join(missing, ", "))
	}

	return nil
}

func checkBindName(name string) error {
	if len(name) < 1 || !isIdentStart(name[0]) {
		return errors.Errorf("Invalid name %q", name)
	}
	for i := 1; i < len(name); i++ {
		if !isIdentChar(name[i]) {
			return errors.Errorf("Invalid name %q", name)
		}
	}
	return nil
}
