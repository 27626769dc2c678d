package coda

import (
	"math"

	"github.com/pkg/errors"
)

// The Gelman-Rubin diagnostic compares between-chain and within-chain
// variance for one parameter across parallel chains started from dispersed
// initial values. A potential scale reduction factor near 1 means the chains
// have forgotten where they started; a large factor means more burn-in (or
// more iterations) is needed.

const gelmanEPS = 1e-12

// GelmanResult holds the potential scale reduction factor for one parameter
type GelmanResult struct {
	PSRF  float64 // Point estimate of the scale reduction factor
	Upper float64 // 97.5% upper confidence limit
}

// GelmanRubin computes the diagnostic for one parameter across all chains in
// the set. At least 2 chains of at least 4 draws are required.
func GelmanRubin(set *ChainSet, param string) (*GelmanResult, error) {
	if set == nil || len(set.Chains) < 2 {
		return nil, errors.New("At least 2 chains are required for the Gelman-Rubin diagnostic")
	}

	cols, err := set.Param(param)
	if err != nil {
		return nil, err
	}

	n := len(cols[0])
	if n < 4 {
		return nil, errors.Errorf("Chains too short for diagnostic (%d draws)", n)
	}
	for _, col := range cols[1:] {
		if len(col) != n {
			return nil, errors.Errorf("Ragged chains (%d vs %d draws)", len(col), n)
		}
	}

	m := len(cols)
	fm, fn := float64(m), float64(n)

	xbar := make([]float64, m)
	s2 := make([]float64, m)
	for j, col := range cols {
		xbar[j] = mean(col)
		s2[j] = variance(col)
	}

	w := mean(s2)
	b := fn * variance(xbar)

	if w < gelmanEPS {
		if b < gelmanEPS {
			// Everything is constant: nothing to diagnose
			return &GelmanResult{PSRF: 1.0, Upper: 1.0}, nil
		}
		return nil, errors.Errorf("Parameter %s has zero within-chain variance", param)
	}

	muhat := mean(xbar)
	xbar2 := make([]float64, m)
	for j, xb := range xbar {
		xbar2[j] = xb * xb
	}

	varW := variance(s2) / fm
	varB := 2.0 * b * b / (fm - 1.0)
	covWB := (fn / fm) * (covariance(s2, xbar2) - 2.0*muhat*covariance(s2, xbar))

	v := (fn-1.0)*w/fn + (1.0+1.0/fm)*b/fn
	varV := ((fn-1.0)*(fn-1.0)*varW +
		(1.0+1.0/fm)*(1.0+1.0/fm)*varB +
		2.0*(fn-1.0)*(1.0+1.0/fm)*covWB) / (fn * fn)

	// Degrees-of-freedom adjustment for estimating the pooled variance
	dfAdj := 1.0
	if varV > gelmanEPS {
		dfV := 2.0 * v * v / varV
		dfAdj = (dfV + 3.0) / (dfV + 1.0)
	}

	r2Fixed := (fn - 1.0) / fn
	r2Random := (1.0 + 1.0/fm) * b / (fn * w)

	psrf := math.Sqrt(dfAdj * (r2Fixed + r2Random))

	upper := psrf
	if varW > gelmanEPS {
		wDF := 2.0 * w * w / varW
		q, err := qF(0.975, fm-1.0, wDF)
		if err != nil {
			return nil, errors.Wrapf(err, "Could not compute upper limit for %s", param)
		}
		upper = math.Sqrt(dfAdj * (r2Fixed + q*r2Random))
	}
	if upper < psrf {
		upper = psrf
	}

	return &GelmanResult{PSRF: psrf, Upper: upper}, nil
}

// ParamGelman pairs a parameter name with its diagnostic
type ParamGelman struct {
	Name   string
	Result *GelmanResult
}

// GelmanAll computes the diagnostic for every parameter in the set
func GelmanAll(set *ChainSet) ([]ParamGelman, error) {
	if set == nil {
		return nil, errors.New("No chains to diagnose")
	}

	all := make([]ParamGelman, 0, len(set.Params()))
	for _, name := range set.Params() {
		r, err := GelmanRubin(set, name)
		if err != nil {
			return nil, errors.Wrapf(err, "Diagnostic failed for %s", name)
		}
		all = append(all, ParamGelman{Name: name, Result: r})
	}

	return all, nil
}

// GelmanEvolution computes the diagnostic for one parameter after discarding
// each of the given draw counts. This is the shrink-evolution view used to
// judge how much burn-in a run needs.
func GelmanEvolution(set *ChainSet, param string, cuts []int) ([]GelmanResult, error) {
	out := make([]GelmanResult, 0, len(cuts))
	for _, cut := range cuts {
		trimmed, err := set.Discard(cut)
		if err != nil {
			return nil, errors.Wrapf(err, "Could not evaluate cut %d", cut)
		}
		r, err := GelmanRubin(trimmed, param)
		if err != nil {
			return nil, errors.Wrapf(err, "Diagnostic failed at cut %d", cut)
		}
		out = append(out, *r)
	}
	return out, nil
}

// BurnInCuts returns the candidate discard counts evaluated by SelectBurnIn:
// an even grid from 0 to half the stored draws.
func BurnInCuts(n int, points int) []int {
	if points < 1 {
		points = 1
	}

	cuts := []int{}
	last := -1
	for i := 0; i <= points; i++ {
		cut := i * n / (2 * points)
		if cut != last {
			cuts = append(cuts, cut)
			last = cut
		}
	}
	return cuts
}

// SelectBurnIn picks the smallest candidate discard count after which every
// parameter's scale reduction factor (point estimate and upper limit) falls
// below the threshold. It returns an error when no candidate qualifies: the
// chains never converge in the stored window and rerunning with more
// iterations is the only fix.
func SelectBurnIn(set *ChainSet, threshold float64, points int) (int, error) {
	if threshold <= 1.0 {
		return 0, errors.Errorf("Invalid threshold %f (must be > 1)", threshold)
	}

	for _, cut := range BurnInCuts(set.Len(), points) {
		trimmed, err := set.Discard(cut)
		if err != nil {
			return 0, errors.Wrapf(err, "Could not evaluate burn-in cut %d", cut)
		}
		if trimmed.Len() < 4 {
			break
		}

		all, err := GelmanAll(trimmed)
		if err != nil {
			return 0, errors.Wrapf(err, "Diagnostic failed at burn-in cut %d", cut)
		}

		converged := true
		for _, pg := range all {
			if pg.Result.PSRF >= threshold || pg.Result.Upper >= threshold {
				converged = false
				break
			}
		}
		if converged {
			return cut, nil
		}
	}

	return 0, errors.Errorf("No burn-in cut up to %d draws reaches threshold %.3f", set.Len()/2, threshold)
}
