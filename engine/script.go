package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"

	"github.com/gojags/gojags/model"
	"github.com/gojags/gojags/rand"
)

// WorkFiles names the files a job occupies inside the engine workspace. All
// paths are relative to the workspace directory since the engine runs there.
type WorkFiles struct {
	Model string
	Data  string
	Inits []string
	Stem  string
}

// NewWorkFiles returns the standard workspace layout for a chain count
func NewWorkFiles(chains int) *WorkFiles {
	inits := make([]string, chains)
	for i := range inits {
		inits[i] = fmt.Sprintf("inits%d.R", i+1)
	}
	return &WorkFiles{
		Model: "model.bug",
		Data:  "data.R",
		Inits: inits,
		Stem:  "CODA",
	}
}

// Script renders the console command sequence for a job: load the model,
// load the data, compile the requested number of chains, load per-chain
// initial values, initialize, run burn-in, set monitors, sample, and write
// the CODA files.
func Script(j *Job, f *WorkFiles) (string, error) {
	if err := j.Check(); err != nil {
		return "", errors.Wrap(err, "Cannot script an invalid job")
	}
	if len(f.Inits) != j.Chains {
		return "", errors.Errorf("Workspace has %d init files for %d chains", len(f.Inits), j.Chains)
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "model in \"%s\"\n", f.Model)
	if j.Data != nil && j.Data.Len() > 0 {
		fmt.Fprintf(&sb, "data in \"%s\"\n", f.Data)
	}
	fmt.Fprintf(&sb, "compile, nchains(%d)\n", j.Chains)

	for i := 0; i < j.Chains; i++ {
		fmt.Fprintf(&sb, "parameters in \"%s\", chain(%d)\n", f.Inits[i], i+1)
	}

	sb.WriteString("initialize\n")

	if j.Burnin > 0 {
		fmt.Fprintf(&sb, "update %d\n", j.Burnin)
	}

	for _, name := range j.Monitor {
		fmt.Fprintf(&sb, "monitor %s, thin(%d)\n", name, j.Thin)
	}

	fmt.Fprintf(&sb, "update %d\n", j.Samples*j.Thin)
	fmt.Fprintf(&sb, "coda *, stem(\"%s\")\n", f.Stem)
	sb.WriteString("exit\n")

	return sb.String(), nil
}

// ensureInits returns one initial-value set per chain. User-supplied values
// are preserved; a single shared set is replicated. Every returned set
// carries RNG entries, with seeds spawned from gen so no two chains share a
// stream.
func ensureInits(j *Job, gen *rand.Generator) ([]*model.DataSet, error) {
	seeds, err := gen.SpawnSeeds(j.Chains)
	if err != nil {
		return nil, errors.Wrap(err, "Could not spawn chain seeds")
	}

	out := make([]*model.DataSet, j.Chains)
	for i := 0; i < j.Chains; i++ {
		var src *model.DataSet
		switch {
		case len(j.Inits) == j.Chains:
			src = j.Inits[i]
		case len(j.Inits) == 1:
			src = j.Inits[0]
		}

		d, err := copyDataSet(src)
		if err != nil {
			return nil, errors.Wrapf(err, "Bad initial values for chain %d", i+1)
		}

		if j.Jitter > 0.0 {
			if err := jitterDataSet(d, j.Jitter, gen); err != nil {
				return nil, errors.Wrapf(err, "Could not jitter initial values for chain %d", i+1)
			}
		}

		// Respect a user-pinned RNG, otherwise assign our own
		if _, ok := d.Get(model.RNGSeedEntry); !ok {
			if _, ok := d.GetString(model.RNGNameEntry); !ok {
				if err := d.SetString(model.RNGNameEntry, DefaultRNG); err != nil {
					return nil, err
				}
			}
			if err := d.Set(model.RNGSeedEntry, model.Scalar(float64(seeds[i]))); err != nil {
				return nil, err
			}
		}

		out[i] = d
	}

	return out, nil
}

// jitterDataSet perturbs every numeric entry by a relative normal draw so
// replicated initial-value sets start their chains from dispersed points.
// Engine control entries (dotted names) and NA values are left alone.
func jitterDataSet(d *model.DataSet, scale float64, gen *rand.Generator) error {
	for _, name := range d.Names() {
		if strings.HasPrefix(name, ".") {
			continue
		}
		v, ok := d.Get(name)
		if !ok {
			continue
		}

		data := make([]float64, len(v.Data))
		for i, x := range v.Data {
			if math.IsNaN(x) {
				data[i] = x
				continue
			}
			mag := math.Abs(x)
			if mag < 1.0 {
				mag = 1.0
			}
			data[i] = x + scale*mag*gen.NormFloat64()
		}

		v.Data = data
		if err := d.Replace(name, v); err != nil {
			return err
		}
	}

	return nil
}

func copyDataSet(src *model.DataSet) (*model.DataSet, error) {
	d := model.NewDataSet()
	if src == nil {
		return d, nil
	}

	for _, name := range src.Names() {
		if s, ok := src.GetString(name); ok {
			if err := d.SetString(name, s); err != nil {
				return nil, err
			}
			continue
		}
		v, ok := src.Get(name)
		if !ok {
			return nil, errors.Errorf("Name %s has no value", name)
		}
		if err := d.Set(name, v); err != nil {
			return nil, err
		}
	}

	return d, nil
}
