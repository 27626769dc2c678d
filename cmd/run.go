package cmd

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/gojags/gojags/coda"
	"github.com/gojags/gojags/engine"
	"github.com/gojags/gojags/model"
	"github.com/gojags/gojags/rand"
)

// RunSampler runs one complete sampling session: parse the model and data,
// drive the external engine, write the CODA output, and report diagnostics.
func RunSampler(sp *startupParams) error {
	closer, err := sp.Setup()
	if err != nil {
		return err
	}
	defer closer()

	sp.out.Printf("Model:    %s\n", sp.modelFile)
	sp.out.Printf("Engine:   %s\n", sp.cfg.Engine)
	sp.out.Printf("Chains:   %d, Burn-In: %d, Samples: %d, Thin: %d\n",
		sp.cfg.Chains, sp.cfg.Burnin, sp.cfg.Samples, sp.cfg.Thin)
	sp.out.Printf("Monitor:  %v\n", sp.monitorNames)
	sp.out.Printf("Seed:     %d\n", sp.cfg.Seed)

	spec, err := model.NewSpecFromFile(sp.modelFile)
	if err != nil {
		return err
	}
	if err := spec.Check(); err != nil {
		return err
	}
	sp.trace.Printf("Model %s: %d stochastic, %d deterministic nodes\n",
		spec.Name, len(spec.Stochastic), len(spec.Deterministic))

	data := model.NewDataSet()
	if len(sp.dataFile) > 0 {
		data, err = model.ParseDumpFile(sp.dataFile)
		if err != nil {
			return err
		}
		sp.trace.Printf("Data: read %d entries from %s\n", data.Len(), sp.dataFile)
	}

	inits := []*model.DataSet{}
	for _, fn := range sp.initFiles {
		ds, err := model.ParseDumpFile(fn)
		if err != nil {
			return err
		}
		inits = append(inits, ds)
	}

	job := &engine.Job{
		Spec:    spec,
		Data:    data,
		Inits:   inits,
		Chains:  sp.cfg.Chains,
		Burnin:  sp.cfg.Burnin,
		Samples: sp.cfg.Samples,
		Thin:    sp.cfg.Thin,
		Monitor: sp.monitorNames,
		Jitter:  sp.jitter,
	}
	if err := job.Check(); err != nil {
		return err
	}

	gen, err := rand.NewGenerator(sp.cfg.Seed)
	if err != nil {
		return err
	}

	console, err := engine.NewConsole(sp.cfg.Engine, gen)
	if err != nil {
		return err
	}
	console.Dir = sp.workDir
	console.Keep = sp.keepWork
	console.Trace = sp.trace

	mon := &monitor{}
	if len(sp.cfg.MonitorAddr) > 0 {
		if err := mon.Start(sp.cfg.MonitorAddr); err != nil {
			return err
		}
		defer mon.Stop()

		mon.Phase.Set("sampling")
		mon.Chains.Set(int64(job.Chains))
		mon.Burnin.Set(int64(job.Burnin))
		mon.Samples.Set(int64(job.Samples))
		mon.Thin.Set(int64(job.Thin))
		mon.MaxSeconds.Set(sp.maxSeconds)
	}

	ctx := context.Background()
	if sp.maxSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(sp.maxSeconds)*time.Second)
		defer cancel()
	}

	start := time.Now()
	set, err := console.Run(ctx, job)
	elapsed := time.Since(start)
	if err != nil {
		return errors.Wrap(err, "Sampling failed")
	}

	sp.out.Printf("Sampling finished in %.2f seconds\n", elapsed.Seconds())

	if mon.info != nil {
		mon.Phase.Set("reporting")
		mon.RunTime.Set(elapsed.Seconds())
		mon.TotalSamples.Set(int64(len(set.Chains) * set.Len()))
	}

	if err := coda.WriteCODA(sp.outDir, sp.outStem, set); err != nil {
		return err
	}
	sp.out.Printf("Chains written to %s (stem %q)\n", sp.outDir, sp.outStem)

	if err := summaryReport(sp, set); err != nil {
		return err
	}
	if len(set.Chains) > 1 {
		if err := gelmanReport(sp, set); err != nil {
			return err
		}
	}

	ds, err := splitSuite(sp, set)
	if err != nil {
		// A short run may not fill the split window. Not fatal.
		sp.trace.Printf("Skipping split-half distances: %v\n", err)
		return nil
	}
	distanceReport(sp, ds)
	mon.SetDistances(ds)

	return nil
}
