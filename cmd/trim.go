package cmd

import (
	"github.com/pkg/errors"

	"github.com/gojags/gojags/coda"
)

// TrimChains reads previously written chains, finds the smallest burn-in that
// brings every shrink factor under the threshold, and writes the trimmed
// chains back out under a new stem.
func TrimChains(sp *startupParams) error {
	closer, err := sp.Setup()
	if err != nil {
		return err
	}
	defer closer()

	set, err := readChains(sp)
	if err != nil {
		return err
	}
	if len(set.Chains) < 2 {
		return errors.New("Burn-in selection needs at least 2 chains")
	}

	sp.out.Printf("Read %d chains with %d draws each\n", len(set.Chains), set.Len())
	sp.out.Printf("Shrink threshold %.3f over %d candidate cuts\n", sp.burnThreshold, sp.burnPoints)

	before, err := coda.GelmanAll(set)
	if err != nil {
		return errors.Wrap(err, "Could not diagnose untrimmed chains")
	}

	cut, err := coda.SelectBurnIn(set, sp.burnThreshold, sp.burnPoints)
	if err != nil {
		return err
	}

	trimmed := set
	if cut > 0 {
		trimmed, err = set.Discard(cut)
		if err != nil {
			return err
		}
	}

	after, err := coda.GelmanAll(trimmed)
	if err != nil {
		return errors.Wrap(err, "Could not diagnose trimmed chains")
	}

	sp.out.Printf("Selected burn-in: %d draws (%d remain per chain)\n", cut, trimmed.Len())
	sp.out.Printf("%-16s %10s %10s\n", "Parameter", "Before", "After")
	for i, pg := range before {
		sp.out.Printf("%-16s %10.4f %10.4f\n", pg.Name, pg.Result.PSRF, after[i].Result.PSRF)
	}

	stem := sp.outStem + "trimmed-"
	if err := coda.WriteCODA(sp.outDir, stem, trimmed); err != nil {
		return err
	}
	sp.out.Printf("Trimmed chains written to %s (stem %q)\n", sp.outDir, stem)

	return nil
}
