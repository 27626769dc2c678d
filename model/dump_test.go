package model

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDumpWrite(t *testing.T) {
	assert := assert.New(t)

	d := NewDataSet()
	assert.NoError(d.Set("N", Scalar(30)))
	assert.NoError(d.Set("x", Vector(1.5, 2, math.NaN())))
	m, err := Array([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
	assert.NoError(err)
	assert.NoError(d.Set("m", m))
	assert.NoError(d.SetRNG("base::Mersenne-Twister", 42))

	text, err := DumpString(d)
	assert.NoError(err)

	lines := strings.Split(strings.TrimSpace(text), "\n")
	assert.Equal([]string{
		`N <- 30`,
		`x <- c(1.5, 2, NA)`,
		`m <- structure(c(1, 2, 3, 4, 5, 6), .Dim = c(2, 3))`,
		`".RNG.name" <- "base::Mersenne-Twister"`,
		`".RNG.seed" <- 42`,
	}, lines)
}

func TestDumpRoundTrip(t *testing.T) {
	assert := assert.New(t)

	d := NewDataSet()
	assert.NoError(d.Set("N", Scalar(30)))
	assert.NoError(d.Set("x", Vector(1.5, -2e-3, math.NaN())))
	m, err := Array([]float64{1, 2, 3, 4}, 2, 2)
	assert.NoError(err)
	assert.NoError(d.Set("m", m))
	assert.NoError(d.SetRNG("base::Wichmann-Hill", 7))

	text, err := DumpString(d)
	assert.NoError(err)

	back, err := ParseDump(text)
	assert.NoError(err)

	assert.Equal(d.Names(), back.Names())

	n, ok := back.Get("N")
	assert.True(ok)
	assert.True(n.IsScalar())
	assert.Equal(30.0, n.Data[0])

	x, ok := back.Get("x")
	assert.True(ok)
	assert.Equal(1.5, x.Data[0])
	assert.Equal(-2e-3, x.Data[1])
	assert.True(math.IsNaN(x.Data[2]))

	mb, ok := back.Get("m")
	assert.True(ok)
	assert.Equal([]int{2, 2}, mb.Dims)
	assert.Equal([]float64{1, 2, 3, 4}, mb.Data)

	rng, ok := back.GetString(RNGNameEntry)
	assert.True(ok)
	assert.Equal("base::Wichmann-Hill", rng)

	seed, ok := back.Get(RNGSeedEntry)
	assert.True(ok)
	assert.Equal(7.0, seed.Data[0])
}

func TestDumpParseForeign(t *testing.T) {
	assert := assert.New(t)

	// The flavors the R front ends emit: backquoted names, integer suffixes,
	// = assignment, comments, single-element c()
	text := "# generated data\n" +
		"`n` <- 5L\n" +
		"y = c(10L, 20L)\n" +
		"one <- c(99)\n" +
		"`.RNG.seed` <- 1234\n"

	d, err := ParseDump(text)
	assert.NoError(err)

	n, ok := d.Get("n")
	assert.True(ok)
	assert.Equal(5.0, n.Data[0])

	y, ok := d.Get("y")
	assert.True(ok)
	assert.Equal([]float64{10, 20}, y.Data)

	one, ok := d.Get("one")
	assert.True(ok)
	assert.True(one.IsScalar())
	assert.Equal(99.0, one.Data[0])

	seed, ok := d.Get(".RNG.seed")
	assert.True(ok)
	assert.Equal(1234.0, seed.Data[0])
}

func TestDumpParseErrors(t *testing.T) {
	assert := assert.New(t)

	bad := []string{
		"x <- c()",
		"x <-",
		"x c(1)",
		"x <- structure(c(1, 2), 2)",
		"x <- structure(c(1, 2, 3), .Dim = c(2, 2))",
		"x <- \"unterminated",
		"x <- c(1, oops)",
		"x <- 1\nx <- 2",
	}

	for _, text := range bad {
		_, err := ParseDump(text)
		assert.Error(err, "expected parse failure for %q", text)
	}
}
