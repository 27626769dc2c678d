package coda

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

// ParamSummary is the posterior report for one monitored parameter: moments
// and quantiles of the pooled draws, plus the two standard errors (the naive
// one assumes independent draws, the time-series one discounts by the
// effective sample size).
type ParamSummary struct {
	Name string
	N    int

	Mean float64
	SD   float64

	NaiveSE      float64
	TimeSeriesSE float64
	ESS          float64

	Q025   float64
	Q25    float64
	Median float64
	Q75    float64
	Q975   float64
}

// Quantile returns the p-th quantile of the draws with linear interpolation
// between order statistics
func Quantile(draws []float64, p float64) (float64, error) {
	if len(draws) < 1 {
		return 0, errors.New("No draws for quantile")
	}
	if p < 0.0 || p > 1.0 {
		return 0, errors.Errorf("Invalid quantile probability %f", p)
	}

	sorted := make([]float64, len(draws))
	copy(sorted, draws)
	sort.Float64s(sorted)

	h := p * float64(len(sorted)-1)
	lo := int(math.Floor(h))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1], nil
	}

	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo]), nil
}

// Summarize builds the posterior report for every parameter in the set
func Summarize(set *ChainSet) ([]ParamSummary, error) {
	if set == nil || len(set.Chains) < 1 {
		return nil, errors.New("No chains to summarize")
	}

	merged, err := set.Merge()
	if err != nil {
		return nil, errors.Wrap(err, "Could not pool chains")
	}

	summaries := make([]ParamSummary, 0, len(merged.Params))
	for _, name := range merged.Params {
		pooled, err := merged.Param(name)
		if err != nil {
			return nil, err
		}
		if len(pooled) < 2 {
			return nil, errors.Errorf("Not enough draws to summarize %s", name)
		}

		ess, err := EffectiveSize(set, name)
		if err != nil {
			return nil, errors.Wrapf(err, "Could not size %s", name)
		}

		s := ParamSummary{
			Name: name,
			N:    len(pooled),
			Mean: mean(pooled),
			SD:   math.Sqrt(variance(pooled)),
			ESS:  ess,
		}

		s.NaiveSE = s.SD / math.Sqrt(float64(s.N))
		if ess > 0.0 {
			s.TimeSeriesSE = s.SD / math.Sqrt(ess)
		} else {
			s.TimeSeriesSE = math.NaN()
		}

		for _, q := range []struct {
			p    float64
			dest *float64
		}{
			{0.025, &s.Q025},
			{0.25, &s.Q25},
			{0.5, &s.Median},
			{0.75, &s.Q75},
			{0.975, &s.Q975},
		} {
			v, err := Quantile(pooled, q.p)
			if err != nil {
				return nil, errors.Wrapf(err, "Could not summarize %s", name)
			}
			*q.dest = v
		}

		summaries = append(summaries, s)
	}

	return summaries, nil
}
