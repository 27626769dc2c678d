// Package engine launches the external sampler and marshals the workspace
// files it consumes. All model compilation and posterior sampling happens in
// the engine binary: this package only prepares its inputs, runs it, and
// reads its outputs back.
package engine

import (
	"context"

	"github.com/pkg/errors"

	"github.com/gojags/gojags/coda"
	"github.com/gojags/gojags/model"
)

// DefaultRNG is the engine RNG assigned to generated initial-value sets
const DefaultRNG = "base::Mersenne-Twister"

// A Job is one full sampling request: model, bindings, and run lengths.
// Samples counts STORED draws per chain, so the engine runs Samples*Thin
// monitored iterations.
type Job struct {
	Spec  *model.Spec
	Data  *model.DataSet
	Inits []*model.DataSet // empty, one shared set, or one per chain

	Chains  int
	Burnin  int
	Samples int
	Thin    int

	Monitor []string

	// Jitter > 0 perturbs every numeric initial value by a relative normal
	// draw, dispersing chain starting points. 0 leaves values untouched.
	Jitter float64
}

// Check returns an error if the job cannot be handed to the engine
func (j *Job) Check() error {
	if j.Spec == nil {
		return errors.New("Job has no model")
	}
	if j.Chains < 1 {
		return errors.Errorf("Invalid chain count %d", j.Chains)
	}
	if j.Burnin < 0 {
		return errors.Errorf("Invalid burn-in %d", j.Burnin)
	}
	if j.Samples < 1 {
		return errors.Errorf("Invalid sample count %d", j.Samples)
	}
	if j.Thin < 1 {
		return errors.Errorf("Invalid thinning interval %d", j.Thin)
	}
	if len(j.Monitor) < 1 {
		return errors.New("Job monitors no parameters")
	}
	if j.Jitter < 0.0 {
		return errors.Errorf("Invalid jitter %f", j.Jitter)
	}

	for _, name := range j.Monitor {
		if !j.Spec.HasIdent(name) {
			return errors.Errorf("Monitored name %s does not appear in model %s", name, j.Spec.Name)
		}
	}

	if n := len(j.Inits); n != 0 && n != 1 && n != j.Chains {
		return errors.Errorf("Job has %d initial-value sets for %d chains", n, j.Chains)
	}

	if j.Data != nil {
		if err := j.Data.CheckAgainst(j.Spec); err != nil {
			return errors.Wrap(err, "Job data does not fit the model")
		}
	}

	return nil
}

// A Runner executes a job against a sampler and returns the posterior chains
type Runner interface {
	Run(ctx context.Context, j *Job) (*coda.ChainSet, error)
}
