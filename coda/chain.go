// Package coda post-processes posterior sample chains returned by the
// sampling engine: windowing and burn-in trimming, convergence diagnostics,
// effective sample size, and summary statistics.
package coda

import (
	"github.com/pkg/errors"
)

// Chain holds one chain's draws for a fixed set of monitored parameters.
// Draws are iteration-major: Draws[i][j] is parameter j at stored iteration
// i. Start is the engine iteration number of the first stored draw and Thin
// the engine iteration stride between stored draws.
type Chain struct {
	Params []string
	Draws  [][]float64
	Start  int
	Thin   int
}

// NewChain returns an empty chain for the given parameters
func NewChain(params []string, start int, thin int) (*Chain, error) {
	if len(params) < 1 {
		return nil, errors.New("A chain needs at least one parameter")
	}
	if start < 1 {
		return nil, errors.Errorf("Invalid start iteration %d", start)
	}
	if thin < 1 {
		return nil, errors.Errorf("Invalid thinning interval %d", thin)
	}

	seen := make(map[string]bool)
	for _, p := range params {
		if seen[p] {
			return nil, errors.Errorf("Duplicate parameter %s", p)
		}
		seen[p] = true
	}

	return &Chain{
		Params: params,
		Draws:  [][]float64{},
		Start:  start,
		Thin:   thin,
	}, nil
}

// Append adds one iteration's draw to the chain
func (c *Chain) Append(draw []float64) error {
	if len(draw) != len(c.Params) {
		return errors.Errorf("Draw has %d values for %d parameters", len(draw), len(c.Params))
	}
	cp := make([]float64, len(draw))
	copy(cp, draw)
	c.Draws = append(c.Draws, cp)
	return nil
}

// Len returns the number of stored draws
func (c *Chain) Len() int {
	return len(c.Draws)
}

// ParamIndex returns the column for the named parameter, or -1
func (c *Chain) ParamIndex(name string) int {
	for i, p := range c.Params {
		if p == name {
			return i
		}
	}
	return -1
}

// Param returns a copy of the named parameter's draw series
func (c *Chain) Param(name string) ([]float64, error) {
	idx := c.ParamIndex(name)
	if idx < 0 {
		return nil, errors.Errorf("No parameter %s in chain", name)
	}

	col := make([]float64, len(c.Draws))
	for i, draw := range c.Draws {
		col[i] = draw[idx]
	}
	return col, nil
}

// Clone returns a deep copy of the chain
func (c *Chain) Clone() *Chain {
	cp := &Chain{
		Params: make([]string, len(c.Params)),
		Draws:  make([][]float64, len(c.Draws)),
		Start:  c.Start,
		Thin:   c.Thin,
	}
	copy(cp.Params, c.Params)
	for i, draw := range c.Draws {
		row := make([]float64, len(draw))
		copy(row, draw)
		cp.Draws[i] = row
	}
	return cp
}

// Window returns the draws with stored indexes in [from, to). Start is
// advanced to keep engine iteration numbering consistent.
func (c *Chain) Window(from int, to int) (*Chain, error) {
	if from < 0 || to > len(c.Draws) || from >= to {
		return nil, errors.Errorf("Invalid window [%d, %d) for %d draws", from, to, len(c.Draws))
	}

	w := c.Clone()
	w.Draws = w.Draws[from:to]
	w.Start = c.Start + from*c.Thin
	return w, nil
}

// Discard drops the first n draws: the burn-in trim
func (c *Chain) Discard(n int) (*Chain, error) {
	if n < 0 || n >= len(c.Draws) {
		return nil, errors.Errorf("Cannot discard %d of %d draws", n, len(c.Draws))
	}
	if n == 0 {
		return c.Clone(), nil
	}
	return c.Window(n, len(c.Draws))
}

// ThinBy keeps every k-th draw
func (c *Chain) ThinBy(k int) (*Chain, error) {
	if k < 1 {
		return nil, errors.Errorf("Invalid thinning interval %d", k)
	}
	if k == 1 {
		return c.Clone(), nil
	}

	t := c.Clone()
	kept := [][]float64{}
	for i := 0; i < len(c.Draws); i += k {
		kept = append(kept, t.Draws[i])
	}
	t.Draws = kept
	t.Thin = c.Thin * k
	return t, nil
}

// ChainSet is a collection of parallel chains over the same parameters.
type ChainSet struct {
	Chains []*Chain
}

// NewChainSet validates that the given chains are comparable: same
// parameters in the same order, same start and thinning.
func NewChainSet(chains ...*Chain) (*ChainSet, error) {
	if len(chains) < 1 {
		return nil, errors.New("Cannot build a set of 0 chains")
	}

	first := chains[0]
	for _, ch := range chains[1:] {
		if len(ch.Params) != len(first.Params) {
			return nil, errors.Errorf("Chain has %d parameters, expected %d", len(ch.Params), len(first.Params))
		}
		for i, p := range ch.Params {
			if p != first.Params[i] {
				return nil, errors.Errorf("Chain parameter mismatch: %s != %s", p, first.Params[i])
			}
		}
		if ch.Start != first.Start || ch.Thin != first.Thin {
			return nil, errors.Errorf("Chain iteration mismatch: start %d/%d thin %d/%d",
				ch.Start, first.Start, ch.Thin, first.Thin)
		}
	}

	return &ChainSet{Chains: chains}, nil
}

// Params returns the shared parameter names
func (s *ChainSet) Params() []string {
	cp := make([]string, len(s.Chains[0].Params))
	copy(cp, s.Chains[0].Params)
	return cp
}

// Len returns the stored draw count of the shortest chain
func (s *ChainSet) Len() int {
	n := s.Chains[0].Len()
	for _, ch := range s.Chains[1:] {
		if ch.Len() < n {
			n = ch.Len()
		}
	}
	return n
}

// Discard drops the first n draws of every chain
func (s *ChainSet) Discard(n int) (*ChainSet, error) {
	trimmed := make([]*Chain, len(s.Chains))
	for i, ch := range s.Chains {
		t, err := ch.Discard(n)
		if err != nil {
			return nil, errors.Wrapf(err, "Could not trim chain %d", i+1)
		}
		trimmed[i] = t
	}
	return NewChainSet(trimmed...)
}

// ThinBy keeps every k-th draw of every chain
func (s *ChainSet) ThinBy(k int) (*ChainSet, error) {
	thinned := make([]*Chain, len(s.Chains))
	for i, ch := range s.Chains {
		t, err := ch.ThinBy(k)
		if err != nil {
			return nil, errors.Wrapf(err, "Could not thin chain %d", i+1)
		}
		thinned[i] = t
	}
	return NewChainSet(thinned...)
}

// Param returns the named parameter's draw series for every chain
func (s *ChainSet) Param(name string) ([][]float64, error) {
	cols := make([][]float64, len(s.Chains))
	for i, ch := range s.Chains {
		col, err := ch.Param(name)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	return cols, nil
}

// Merge pools the draws of all chains into a single chain, in chain order.
// Iteration numbering is reset since pooled draws are no longer a single
// chain's trajectory.
func (s *ChainSet) Merge() (*Chain, error) {
	merged, err := NewChain(s.Params(), 1, 1)
	if err != nil {
		return nil, err
	}

	for _, ch := range s.Chains {
		for _, draw := range ch.Draws {
			if err := merged.Append(draw); err != nil {
				return nil, err
			}
		}
	}

	return merged, nil
}
