package coda

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuantile(t *testing.T) {
	assert := assert.New(t)

	draws := []float64{5, 1, 3, 2, 4} // sorting is the function's job

	q, err := Quantile(draws, 0.5)
	assert.NoError(err)
	assert.Equal(3.0, q)

	q, err = Quantile(draws, 0.0)
	assert.NoError(err)
	assert.Equal(1.0, q)

	q, err = Quantile(draws, 1.0)
	assert.NoError(err)
	assert.Equal(5.0, q)

	// Interpolated: h = 0.25 * 4 = 1, exactly the second order statistic;
	// h = 0.1 * 4 = 0.4 interpolates between 1 and 2
	q, err = Quantile(draws, 0.25)
	assert.NoError(err)
	assert.Equal(2.0, q)

	q, err = Quantile(draws, 0.1)
	assert.NoError(err)
	assert.InDelta(1.4, q, 1e-12)

	_, err = Quantile([]float64{}, 0.5)
	assert.Error(err)
	_, err = Quantile(draws, 1.5)
	assert.Error(err)
}

func TestSummarize(t *testing.T) {
	assert := assert.New(t)

	// Two chains pooling to exactly 1..100
	first := make([]float64, 50)
	second := make([]float64, 50)
	for i := 0; i < 50; i++ {
		first[i] = float64(i + 1)
		second[i] = float64(i + 51)
	}

	set, err := NewChainSet(
		mkChain(t, []string{"mu"}, 1, 1, first),
		mkChain(t, []string{"mu"}, 1, 1, second),
	)
	assert.NoError(err)

	sums, err := Summarize(set)
	assert.NoError(err)
	assert.Len(sums, 1)

	s := sums[0]
	assert.Equal("mu", s.Name)
	assert.Equal(100, s.N)
	assert.InDelta(50.5, s.Mean, 1e-9)
	assert.InDelta(math.Sqrt(100.0*101.0/12.0), s.SD, 1e-9)
	assert.InDelta(s.SD/10.0, s.NaiveSE, 1e-9)
	assert.InDelta(50.5, s.Median, 1e-9)
	assert.InDelta(3.475, s.Q025, 1e-9)
	assert.InDelta(97.525, s.Q975, 1e-9)
	assert.InDelta(25.75, s.Q25, 1e-9)
	assert.InDelta(75.25, s.Q75, 1e-9)

	assert.True(s.ESS > 0.0)
	assert.False(math.IsNaN(s.TimeSeriesSE))
}
