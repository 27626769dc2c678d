package coda

// Small numeric helpers shared by the diagnostics. Variance and covariance
// use the n-1 denominator throughout, matching the estimators the
// Gelman-Rubin formulas are written in terms of.

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func variance(xs []float64) float64 {
	if len(xs) < 2 {
		return 0.0
	}

	mu := mean(xs)
	sum := 0.0
	for _, x := range xs {
		d := x - mu
		sum += d * d
	}
	return sum / float64(len(xs)-1)
}

func covariance(xs []float64, ys []float64) float64 {
	if len(xs) < 2 || len(xs) != len(ys) {
		return 0.0
	}

	mx := mean(xs)
	my := mean(ys)
	sum := 0.0
	for i := range xs {
		sum += (xs[i] - mx) * (ys[i] - my)
	}
	return sum / float64(len(xs)-1)
}
