package rand

import (
	"math"

	"github.com/pkg/errors"
	"github.com/seehuhn/mt19937"
)

// A Generator uses a goroutine to populate batches of random numbers from a
// Mersenne twister. It is used for per-chain seed generation and for jittered
// initial values, NOT for posterior sampling: all sampling happens in the
// external engine with its own RNG's.
type Generator struct {
	ch chan int64
}

// NewGenerator starts a new background PRNG based on the given seed
func NewGenerator(seed int64) (*Generator, error) {
	numChan := make(chan int64, 1024)

	go func() {
		r := mt19937.New()
		r.Seed(seed)
		for {
			numChan <- r.Int63()
		}
	}()

	g := &Generator{
		ch: numChan,
	}

	return g, nil
}

// Int63 provides the same interface as Go's math/rand, but with pre-generation.
func (g *Generator) Int63() int64 {
	return <-g.ch
}

// Int63n is a copy of the current Go code
func (g *Generator) Int63n(n int64) int64 {
	if n <= 0 {
		panic("invalid argument to Int63n")
	}

	if n&(n-1) == 0 { // n is power of two, can mask
		return g.Int63() & (n - 1)
	}

	max := int64((1 << 63) - 1 - (1<<63)%uint64(n))
	v := g.Int63()
	for v > max {
		v = g.Int63()
	}

	return v % n
}

// Int31 is just a copy of the golang impl
func (g *Generator) Int31() int32 {
	return int32(g.Int63() >> 32)
}

// Int31n is just a copy of the golang impl
func (g *Generator) Int31n(n int32) int32 {
	if n <= 0 {
		panic("invalid argument to Int31n")
	}

	if n&(n-1) == 0 { // n is power of two, can mask
		return g.Int31() & (n - 1)
	}

	max := int32((1 << 31) - 1 - (1<<31)%uint32(n))
	v := g.Int31()
	for v > max {
		v = g.Int31()
	}

	return v % n
}

// Float64 uses the commented, simpler implementation since we don't have the
// same support requirements as the Go stdlib
func (g *Generator) Float64() float64 {
	// See the Go lang comments for Rand Float64 implementation for details
	return float64(g.Int63n(1<<53)) / (1 << 53)
}

// NormFloat64 returns a standard normal draw via the Marsaglia polar method.
// Used for jittering generated initial values around a center.
func (g *Generator) NormFloat64() float64 {
	for {
		u := 2.0*g.Float64() - 1.0
		v := 2.0*g.Float64() - 1.0
		s := u*u + v*v
		if s > 0.0 && s < 1.0 {
			return u * math.Sqrt(-2.0*math.Log(s)/s)
		}
	}
}

// SpawnSeeds returns n distinct positive seeds suitable for the engine's
// per-chain RNG's. Seeds are distinct so parallel chains never share a stream.
func (g *Generator) SpawnSeeds(n int) ([]int64, error) {
	if n < 1 {
		return nil, errors.Errorf("Invalid seed count %d", n)
	}

	seen := make(map[int64]bool, n)
	seeds := make([]int64, 0, n)
	for len(seeds) < n {
		s := g.Int63()
		if s == 0 || seen[s] {
			continue
		}
		seen[s] = true
		seeds = append(seeds, s)
	}

	return seeds, nil
}
