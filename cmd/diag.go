package cmd

import (
	"os"

	"github.com/pkg/errors"

	"github.com/gojags/gojags/coda"
)

// codaPaths probes the output directory for chain files matching the stem and
// returns the paths ReadCODA needs. At least one chain file must exist.
func codaPaths(dir string, stem string) (string, []string, error) {
	nchains := 0
	for {
		_, probe := coda.CODAFiles(dir, stem, nchains+1)
		if _, err := os.Stat(probe[nchains]); err != nil {
			break
		}
		nchains++
	}
	if nchains < 1 {
		return "", nil, errors.Errorf("No chain files found in %s for stem %q", dir, stem)
	}

	index, chains := coda.CODAFiles(dir, stem, nchains)
	return index, chains, nil
}

func readChains(sp *startupParams) (*coda.ChainSet, error) {
	index, chains, err := codaPaths(sp.outDir, sp.outStem)
	if err != nil {
		return nil, err
	}

	sp.trace.Printf("Reading %d chain(s) via %s\n", len(chains), index)
	return coda.ReadCODA(index, chains)
}

// DiagReport reads previously written chains and prints the full diagnostic
// suite: posterior summaries, shrink factors, autocorrelation, and split-half
// distances.
func DiagReport(sp *startupParams) error {
	closer, err := sp.Setup()
	if err != nil {
		return err
	}
	defer closer()

	set, err := readChains(sp)
	if err != nil {
		return err
	}

	first := set.Chains[0]
	sp.out.Printf("Read %d chain(s): %d draws, start %d, thin %d\n",
		len(set.Chains), set.Len(), first.Start, first.Thin)

	if err := summaryReport(sp, set); err != nil {
		return err
	}

	if len(set.Chains) > 1 {
		if err := gelmanReport(sp, set); err != nil {
			return err
		}
	} else {
		sp.out.Printf("Shrink factors need at least 2 chains - skipping\n")
	}

	if err := autocorrReport(sp, set); err != nil {
		return err
	}

	ds, err := splitSuite(sp, set)
	if err != nil {
		sp.trace.Printf("Skipping split-half distances: %v\n", err)
		return nil
	}
	distanceReport(sp, ds)

	return nil
}
