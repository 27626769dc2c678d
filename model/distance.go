package model

import (
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/gojags/gojags/buffer"
)

// Distances between two empirical distributions, represented as histogram
// weight vectors over a shared binning. Inputs need not be normalized: every
// function normalizes by the vector totals before comparing, so raw bin
// counts are fine.

const distEPS = 1e-12

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func binTotals(p []float64, q []float64) (float64, float64) {
	tot1, tot2 := 0.0, 0.0
	for i := range p {
		tot1 += p[i]
		tot2 += q[i]
	}
	if tot1 < distEPS {
		tot1 = distEPS
	}
	if tot2 < distEPS {
		tot2 = distEPS
	}
	return tot1, tot2
}

// MaxAbsDiff returns the maximum difference found between the two dists
func MaxAbsDiff(p []float64, q []float64) float64 {
	tot1, tot2 := binTotals(p, q)

	maxDiff := 0.0
	for i := range p {
		d := math.Abs(p[i]/tot1 - q[i]/tot2)
		if i == 0 || d > maxDiff {
			maxDiff = d
		}
	}

	return maxDiff
}

// MeanAbsDiff returns the mean of the differences found between the two dists
func MeanAbsDiff(p []float64, q []float64) float64 {
	if len(p) < 1 {
		return 0
	}

	tot1, tot2 := binTotals(p, q)

	sum := 0.0
	for i := range p {
		sum += math.Abs(p[i]/tot1 - q[i]/tot2)
	}

	return sum / float64(len(p))
}

// HellingerDiff returns the Hellinger distance between the two dists.
// Hellinger distance is similar to the Euclidean L2:
// sum((sqrt(p) - sqrt(q))**2) / sqrt(2)
func HellingerDiff(p []float64, q []float64) float64 {
	tot1, tot2 := binTotals(p, q)

	sum := 0.0
	for i := range p {
		d := math.Sqrt(p[i]/tot1) - math.Sqrt(q[i]/tot2)
		sum += d * d // squared, so always positive
	}

	return sum / math.Sqrt2
}

// klDivergence returns the Kullback-Leibler divergence, which is
// non-symmetric! This is strictly a subroutine for JS divergence, so the
// arrays are assumed normalized (sum == 1.0). Zero-weight bins contribute
// nothing.
func klDivergence(p []float64, q []float64) float64 {
	diverge := 0.0
	for i, p1 := range p {
		if p1 < distEPS {
			continue
		}
		diverge += p1 * math.Log2(p1/q[i])
	}

	return diverge
}

// JSDivergence returns the Jensen-Shannon divergence, a symmetric
// generalization of the KL divergence, bounded in [0, 1] for log base 2
func JSDivergence(p []float64, q []float64) float64 {
	tot1, tot2 := binTotals(p, q)

	n := len(p)
	p1Norm := make([]float64, n)
	p2Norm := make([]float64, n)
	mid := make([]float64, n)
	for i := range p {
		p1Norm[i] = p[i] / tot1
		p2Norm[i] = q[i] / tot2
		mid[i] = (p1Norm[i] + p2Norm[i]) * 0.5
	}

	return 0.5 * (klDivergence(p1Norm, mid) + klDivergence(p2Norm, mid))
}

// Histogram2 bins two draw vectors over their shared range into the given
// number of equal-width bins, so the resulting weight vectors are directly
// comparable.
func Histogram2(a []float64, b []float64, bins int) ([]float64, []float64, error) {
	if bins < 2 {
		return nil, nil, errors.Errorf("Invalid bin count %d", bins)
	}
	if len(a) < 1 || len(b) < 1 {
		return nil, nil, errors.New("Empty draw vector")
	}

	lo, hi := a[0], a[0]
	for _, v := range a {
		if !isFinite(v) {
			return nil, nil, errors.Errorf("Cannot bin non-finite draw %f", v)
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	for _, v := range b {
		if !isFinite(v) {
			return nil, nil, errors.Errorf("Cannot bin non-finite draw %f", v)
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	p := make([]float64, bins)
	q := make([]float64, bins)

	width := (hi - lo) / float64(bins)
	if width < distEPS {
		// Degenerate: everything is in one bin
		p[0] = float64(len(a))
		q[0] = float64(len(b))
		return p, q, nil
	}

	binOf := func(v float64) int {
		i := int((v - lo) / width)
		if i >= bins {
			i = bins - 1 // hi itself lands in the last bin
		}
		return i
	}

	for _, v := range a {
		p[binOf(v)]++
	}
	for _, v := range b {
		q[binOf(v)]++
	}

	return p, q, nil
}

// DistanceSuite aggregates the split-half distances across all monitored
// parameters. Entries beginning with Mean are the mean across parameters,
// entries beginning with Max the worst parameter.
type DistanceSuite struct {
	MeanMeanAbsDiff float64
	MeanMaxAbsDiff  float64
	MeanHellinger   float64
	MeanJSDiverge   float64

	MaxMeanAbsDiff float64
	MaxMaxAbsDiff  float64
	MaxHellinger   float64
	MaxJSDiverge   float64
}

// NewSplitSuite computes the split-half distances for each parameter's draw
// series: the most recent window of draws is split into its older and newer
// halves, each half is binned, and the halves are compared. A stationary,
// well-mixed chain gives small distances on every metric.
func NewSplitSuite(series map[string][]float64, window int, bins int) (*DistanceSuite, error) {
	if len(series) < 1 {
		return nil, errors.New("No series to score")
	}

	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	sort.Strings(names)

	ds := DistanceSuite{}

	for _, name := range names {
		draws := series[name]

		w := window
		if w > len(draws) {
			w = len(draws)
		}
		buf := buffer.NewCircularFloat(w)
		if buf.BufSize < 4 {
			return nil, errors.Errorf("Series %s too short to split (%d draws)", name, len(draws))
		}
		for _, v := range draws {
			if err := buf.Add(v); err != nil {
				return nil, errors.Wrapf(err, "Could not buffer series %s", name)
			}
		}

		firstHalf := []float64{}
		for it := buf.FirstHalf(); it.Next(); {
			firstHalf = append(firstHalf, it.Value())
		}
		secondHalf := []float64{}
		for it := buf.SecondHalf(); it.Next(); {
			secondHalf = append(secondHalf, it.Value())
		}

		p, q, err := Histogram2(firstHalf, secondHalf, bins)
		if err != nil {
			return nil, errors.Wrapf(err, "Could not bin series %s", name)
		}

		d := MeanAbsDiff(p, q)
		ds.MeanMeanAbsDiff += d
		ds.MaxMeanAbsDiff = math.Max(d, ds.MaxMeanAbsDiff)

		d = MaxAbsDiff(p, q)
		ds.MeanMaxAbsDiff += d
		ds.MaxMaxAbsDiff = math.Max(d, ds.MaxMaxAbsDiff)

		d = HellingerDiff(p, q)
		ds.MeanHellinger += d
		ds.MaxHellinger = math.Max(d, ds.MaxHellinger)

		d = JSDivergence(p, q)
		ds.MeanJSDiverge += d
		ds.MaxJSDiverge = math.Max(d, ds.MaxJSDiverge)
	}

	fc := float64(len(names))
	ds.MeanMeanAbsDiff /= fc
	ds.MeanMaxAbsDiff /= fc
	ds.MeanHellinger /= fc
	ds.MeanJSDiverge /= fc

	return &ds, nil
}
