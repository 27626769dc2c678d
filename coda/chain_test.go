package coda

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func mkChain(t *testing.T, params []string, start int, thin int, cols ...[]float64) *Chain {
	t.Helper()

	ch, err := NewChain(params, start, thin)
	assert.NoError(t, err)

	for i := 0; i < len(cols[0]); i++ {
		draw := make([]float64, len(cols))
		for j := range cols {
			draw[j] = cols[j][i]
		}
		assert.NoError(t, ch.Append(draw))
	}

	return ch
}

func TestChainBasics(t *testing.T) {
	assert := assert.New(t)

	_, err := NewChain([]string{}, 1, 1)
	assert.Error(err)
	_, err = NewChain([]string{"mu"}, 0, 1)
	assert.Error(err)
	_, err = NewChain([]string{"mu"}, 1, 0)
	assert.Error(err)
	_, err = NewChain([]string{"mu", "mu"}, 1, 1)
	assert.Error(err)

	ch := mkChain(t, []string{"mu", "tau"}, 1, 1,
		[]float64{1, 2, 3, 4},
		[]float64{10, 20, 30, 40},
	)

	assert.Equal(4, ch.Len())
	assert.Equal(0, ch.ParamIndex("mu"))
	assert.Equal(1, ch.ParamIndex("tau"))
	assert.Equal(-1, ch.ParamIndex("sigma"))

	assert.Error(ch.Append([]float64{1}))

	tau, err := ch.Param("tau")
	assert.NoError(err)
	assert.Equal([]float64{10, 20, 30, 40}, tau)

	_, err = ch.Param("sigma")
	assert.Error(err)
}

func TestChainWindowing(t *testing.T) {
	assert := assert.New(t)

	ch := mkChain(t, []string{"mu"}, 101, 2,
		[]float64{1, 2, 3, 4, 5, 6},
	)

	w, err := ch.Window(2, 5)
	assert.NoError(err)
	assert.Equal(3, w.Len())
	assert.Equal(105, w.Start)
	mu, err := w.Param("mu")
	assert.NoError(err)
	assert.Equal([]float64{3, 4, 5}, mu)

	_, err = ch.Window(3, 3)
	assert.Error(err)
	_, err = ch.Window(-1, 2)
	assert.Error(err)
	_, err = ch.Window(0, 7)
	assert.Error(err)

	d, err := ch.Discard(2)
	assert.NoError(err)
	assert.Equal(4, d.Len())
	assert.Equal(105, d.Start)

	same, err := ch.Discard(0)
	assert.NoError(err)
	assert.Equal(ch.Draws, same.Draws)

	_, err = ch.Discard(6)
	assert.Error(err)

	th, err := ch.ThinBy(2)
	assert.NoError(err)
	assert.Equal(3, th.Len())
	assert.Equal(4, th.Thin)
	mu, err = th.Param("mu")
	assert.NoError(err)
	assert.Equal([]float64{1, 3, 5}, mu)

	_, err = ch.ThinBy(0)
	assert.Error(err)

	// The original chain is untouched by any of the above
	assert.Equal(6, ch.Len())
	assert.Equal(101, ch.Start)
}

func TestChainSet(t *testing.T) {
	assert := assert.New(t)

	c1 := mkChain(t, []string{"mu"}, 1, 1, []float64{1, 2, 3})
	c2 := mkChain(t, []string{"mu"}, 1, 1, []float64{4, 5, 6})

	_, err := NewChainSet()
	assert.Error(err)

	set, err := NewChainSet(c1, c2)
	assert.NoError(err)
	assert.Equal([]string{"mu"}, set.Params())
	assert.Equal(3, set.Len())

	cols, err := set.Param("mu")
	assert.NoError(err)
	assert.Equal([][]float64{{1, 2, 3}, {4, 5, 6}}, cols)

	merged, err := set.Merge()
	assert.NoError(err)
	mu, err := merged.Param("mu")
	assert.NoError(err)
	assert.Equal([]float64{1, 2, 3, 4, 5, 6}, mu)

	trimmed, err := set.Discard(1)
	assert.NoError(err)
	assert.Equal(2, trimmed.Len())

	// Mismatched chains refuse to form a set
	other := mkChain(t, []string{"tau"}, 1, 1, []float64{1, 2, 3})
	_, err = NewChainSet(c1, other)
	assert.Error(err)

	shifted := mkChain(t, []string{"mu"}, 2, 1, []float64{1, 2, 3})
	_, err = NewChainSet(c1, shifted)
	assert.Error(err)
}
