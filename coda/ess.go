package coda

import (
	"math"

	"github.com/pkg/errors"
)

// Effective sample size: the number of independent draws carrying the same
// information as the autocorrelated chain. Computed per chain with Geyer's
// initial monotone positive sequence over the autocovariances, then summed
// across chains.

// autocovariance at the given lag, normalized by n (the biased estimator,
// which is what the sequence method expects)
func autocovariance(x []float64, lag int) float64 {
	n := len(x)
	if lag >= n {
		return 0.0
	}

	mu := mean(x)
	sum := 0.0
	for i := 0; i+lag < n; i++ {
		sum += (x[i] - mu) * (x[i+lag] - mu)
	}
	return sum / float64(n)
}

// Autocorr returns the autocorrelation function rho[0..maxLag] of one draw
// series. rho[0] is always 1.
func Autocorr(x []float64, maxLag int) ([]float64, error) {
	if len(x) < 2 {
		return nil, errors.Errorf("Series too short for autocorrelation (%d draws)", len(x))
	}
	if maxLag < 0 || maxLag >= len(x) {
		return nil, errors.Errorf("Invalid max lag %d for %d draws", maxLag, len(x))
	}

	c0 := autocovariance(x, 0)
	if c0 < 1e-300 {
		return nil, errors.New("Series is constant")
	}

	rho := make([]float64, maxLag+1)
	for k := 0; k <= maxLag; k++ {
		rho[k] = autocovariance(x, k) / c0
	}
	return rho, nil
}

// essChain returns the effective sample size of a single draw series. A
// constant series carries no information and scores 0.
func essChain(x []float64) float64 {
	n := len(x)
	if n < 2 {
		return 0.0
	}

	c0 := autocovariance(x, 0)
	if c0 < 1e-300 {
		return 0.0
	}

	// Pair up autocorrelations: gamma_k = rho(2k) + rho(2k+1). Sums of
	// adjacent pairs are positive for any reversible chain, so the first
	// non-positive pair marks where noise has taken over. The running
	// minimum enforces the monotone-decreasing shape.
	gammaPrev := math.Inf(1)
	tau := -1.0
	for k := 0; 2*k+1 < n; k++ {
		g := autocovariance(x, 2*k)/c0 + autocovariance(x, 2*k+1)/c0
		if g <= 0.0 {
			break
		}
		if g > gammaPrev {
			g = gammaPrev
		}
		gammaPrev = g
		tau += 2.0 * g
	}

	if tau < 1e-12 {
		tau = 1e-12
	}

	return float64(n) / tau
}

// EffectiveSize returns the effective sample size for one parameter, summed
// across the chains in the set
func EffectiveSize(set *ChainSet, param string) (float64, error) {
	if set == nil || len(set.Chains) < 1 {
		return 0, errors.New("No chains to size")
	}

	cols, err := set.Param(param)
	if err != nil {
		return 0, err
	}

	total := 0.0
	for _, col := range cols {
		total += essChain(col)
	}
	return total, nil
}
