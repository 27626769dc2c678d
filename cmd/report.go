package cmd

import (
	"github.com/pkg/errors"

	"github.com/gojags/gojags/coda"
	"github.com/gojags/gojags/model"
)

// gelmanReport prints the shrink-factor table. Needs at least 2 chains.
func gelmanReport(sp *startupParams, set *coda.ChainSet) error {
	all, err := coda.GelmanAll(set)
	if err != nil {
		return errors.Wrap(err, "Could not compute shrink factors")
	}

	sp.out.Printf("Potential scale reduction factors:\n")
	sp.out.Printf("%-16s %10s %10s\n", "Parameter", "Point", "Upper CI")
	for _, pg := range all {
		sp.out.Printf("%-16s %10.4f %10.4f\n", pg.Name, pg.Result.PSRF, pg.Result.Upper)
	}

	return nil
}

// summaryReport prints the posterior summary table
func summaryReport(sp *startupParams, set *coda.ChainSet) error {
	sums, err := coda.Summarize(set)
	if err != nil {
		return errors.Wrap(err, "Could not summarize chains")
	}

	sp.out.Printf("Posterior summary (%d chains, %d draws each):\n", len(set.Chains), set.Len())
	sp.out.Printf("%-16s %10s %10s %10s %10s %10s %10s %10s\n",
		"Parameter", "Mean", "SD", "TS-SE", "2.5%", "50%", "97.5%", "ESS")
	for _, s := range sums {
		sp.out.Printf("%-16s %10.4f %10.4f %10.4f %10.4f %10.4f %10.4f %10.1f\n",
			s.Name, s.Mean, s.SD, s.TimeSeriesSE, s.Q025, s.Median, s.Q975, s.ESS)
	}

	return nil
}

// autocorrReport prints the pooled autocorrelation at a few standard lags
func autocorrReport(sp *startupParams, set *coda.ChainSet) error {
	lags := []int{1, 5, 10, 50}

	sp.out.Printf("Autocorrelation (pooled):\n")
	sp.out.Printf("%-16s", "Parameter")
	for _, lag := range lags {
		sp.out.Printf("   Lag %-4d", lag)
	}
	sp.out.Printf("\n")

	merged, err := set.Merge()
	if err != nil {
		return errors.Wrap(err, "Could not pool chains")
	}

	for _, name := range merged.Params {
		draws, err := merged.Param(name)
		if err != nil {
			return err
		}

		maxLag := lags[len(lags)-1]
		if maxLag >= len(draws) {
			maxLag = len(draws) - 1
		}

		rho, err := coda.Autocorr(draws, maxLag)
		if err != nil {
			// Constant or too-short series have nothing to report
			sp.out.Printf("%-16s   (n/a)\n", name)
			continue
		}

		sp.out.Printf("%-16s", name)
		for _, lag := range lags {
			if lag < len(rho) {
				sp.out.Printf("   %8.4f", rho[lag])
			} else {
				sp.out.Printf("   %8s", "-")
			}
		}
		sp.out.Printf("\n")
	}

	return nil
}

// splitSuite computes the split-half distance suite over pooled draws
func splitSuite(sp *startupParams, set *coda.ChainSet) (*model.DistanceSuite, error) {
	merged, err := set.Merge()
	if err != nil {
		return nil, errors.Wrap(err, "Could not pool chains")
	}

	series := make(map[string][]float64, len(merged.Params))
	for _, name := range merged.Params {
		draws, err := merged.Param(name)
		if err != nil {
			return nil, err
		}
		series[name] = draws
	}

	return model.NewSplitSuite(series, sp.window, sp.bins)
}

// distanceReport prints the split-half distance suite
func distanceReport(sp *startupParams, ds *model.DistanceSuite) {
	sp.out.Printf("Split-half distances over the last %d draws:\n", sp.window)
	sp.out.Printf("Hellinger | Mean:%7.4f Max:%7.4f\n", ds.MeanHellinger, ds.MaxHellinger)
	sp.out.Printf("JS-Diverge| Mean:%7.4f Max:%7.4f\n", ds.MeanJSDiverge, ds.MaxJSDiverge)
	sp.out.Printf("AbsDiff   | Mean:%7.4f Max:%7.4f\n", ds.MeanMeanAbsDiff, ds.MaxMaxAbsDiff)
}
