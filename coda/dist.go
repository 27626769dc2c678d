package coda

import (
	"math"

	"github.com/pkg/errors"
)

// Distribution quantiles needed by the Gelman-Rubin upper confidence limit.
// The F quantile is computed through the regularized incomplete beta
// function: if X ~ Beta(d1/2, d2/2) at probability p, then
// F = d2*X / (d1*(1-X)).

// betaCF evaluates the continued fraction for the incomplete beta function
// (modified Lentz method)
func betaCF(a float64, b float64, x float64) float64 {
	const maxIter = 300
	const eps = 3e-14
	const fpmin = 1e-300

	qab := a + b
	qap := a + 1.0
	qam := a - 1.0

	c := 1.0
	d := 1.0 - qab*x/qap
	if math.Abs(d) < fpmin {
		d = fpmin
	}
	d = 1.0 / d
	h := d

	for m := 1; m <= maxIter; m++ {
		fm := float64(m)
		m2 := 2.0 * fm

		aa := fm * (b - fm) * x / ((qam + m2) * (a + m2))
		d = 1.0 + aa*d
		if math.Abs(d) < fpmin {
			d = fpmin
		}
		c = 1.0 + aa/c
		if math.Abs(c) < fpmin {
			c = fpmin
		}
		d = 1.0 / d
		h *= d * c

		aa = -(a + fm) * (qab + fm) * x / ((a + m2) * (qap + m2))
		d = 1.0 + aa*d
		if math.Abs(d) < fpmin {
			d = fpmin
		}
		c = 1.0 + aa/c
		if math.Abs(c) < fpmin {
			c = fpmin
		}
		d = 1.0 / d
		del := d * c
		h *= del

		if math.Abs(del-1.0) < eps {
			break
		}
	}

	return h
}

func lnBeta(a float64, b float64) float64 {
	la, _ := math.Lgamma(a)
	lb, _ := math.Lgamma(b)
	lab, _ := math.Lgamma(a + b)
	return la + lb - lab
}

// incBeta is the regularized incomplete beta function I_x(a, b)
func incBeta(a float64, b float64, x float64) float64 {
	if x <= 0.0 {
		return 0.0
	}
	if x >= 1.0 {
		return 1.0
	}

	bt := math.Exp(a*math.Log(x) + b*math.Log(1.0-x) - lnBeta(a, b))

	if x < (a+1.0)/(a+b+2.0) {
		return bt * betaCF(a, b, x) / a
	}
	return 1.0 - bt*betaCF(b, a, 1.0-x)/b
}

// qBeta inverts the regularized incomplete beta by bisection. I_x is
// monotone in x, so bisection is slow but safe.
func qBeta(p float64, a float64, b float64) (float64, error) {
	if p < 0.0 || p > 1.0 {
		return 0, errors.Errorf("Invalid probability %f", p)
	}
	if a <= 0.0 || b <= 0.0 {
		return 0, errors.Errorf("Invalid beta shape (%f, %f)", a, b)
	}

	if p == 0.0 {
		return 0.0, nil
	}
	if p == 1.0 {
		return 1.0, nil
	}

	lo, hi := 0.0, 1.0
	for i := 0; i < 200; i++ {
		mid := 0.5 * (lo + hi)
		if incBeta(a, b, mid) < p {
			lo = mid
		} else {
			hi = mid
		}
	}

	return 0.5 * (lo + hi), nil
}

// qF is the quantile function of the F distribution with d1 and d2 degrees
// of freedom
func qF(p float64, d1 float64, d2 float64) (float64, error) {
	if d1 <= 0.0 || d2 <= 0.0 {
		return 0, errors.Errorf("Invalid F dof (%f, %f)", d1, d2)
	}

	x, err := qBeta(p, d1/2.0, d2/2.0)
	if err != nil {
		return 0, err
	}
	if x >= 1.0 {
		return math.Inf(1), nil
	}

	return d2 * x / (d1 * (1.0 - x)), nil
}
