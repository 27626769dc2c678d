package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCircularSizing(t *testing.T) {
	assert := assert.New(t)

	c := NewCircularFloat(5)
	assert.Equal(4, c.BufSize)

	c = NewCircularFloat(6)
	assert.Equal(6, c.BufSize)
}

func TestCircularHalves(t *testing.T) {
	assert := assert.New(t)

	c := NewCircularFloat(6)

	// Not full yet: no iterators
	for i := 0; i < 5; i++ {
		assert.NoError(c.Add(float64(i)))
		assert.Nil(c.FirstHalf())
		assert.Nil(c.SecondHalf())
	}

	assert.NoError(c.Add(5.0))
	assert.Equal(6, c.Count)
	assert.Equal(int64(6), c.TotalSeen)

	drain := func(it *CircularFloatIterator) []float64 {
		vals := []float64{}
		for it.Next() {
			vals = append(vals, it.Value())
		}
		return vals
	}

	assert.Equal([]float64{0, 1, 2}, drain(c.FirstHalf()))
	assert.Equal([]float64{3, 4, 5}, drain(c.SecondHalf()))

	// Two more wraps: oldest two drop off
	assert.NoError(c.Add(6.0))
	assert.NoError(c.Add(7.0))
	assert.Equal(6, c.Count)
	assert.Equal(int64(8), c.TotalSeen)

	assert.Equal([]float64{2, 3, 4}, drain(c.FirstHalf()))
	assert.Equal([]float64{5, 6, 7}, drain(c.SecondHalf()))
}
