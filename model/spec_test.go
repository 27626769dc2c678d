package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const testModel = `
model {
    for (i in 1:N) {
        x[i] ~ dnorm(mu, tau)
    }
    mu ~ dnorm(0, 1.0E-4)
    tau <- pow(sigma, -2)  # precision
    sigma ~ dunif(0, 100)
}
`

func TestSpecScan(t *testing.T) {
	assert := assert.New(t)

	s, err := NewSpec("normal", testModel)
	assert.NoError(err)

	assert.Contains(s.Stochastic, "x")
	assert.Contains(s.Stochastic, "mu")
	assert.Contains(s.Stochastic, "sigma")
	assert.Contains(s.Deterministic, "tau")

	assert.Equal([]string{"mu", "sigma", "tau", "x"}, s.Nodes())

	assert.True(s.HasIdent("dnorm"))
	assert.True(s.HasIdent("N"))
	assert.False(s.HasIdent("y"))
}

func TestSpecMissingConstants(t *testing.T) {
	assert := assert.New(t)

	s, err := NewSpec("normal", testModel)
	assert.NoError(err)

	// No data at all: N is unresolved (i is a loop counter, not a constant)
	assert.Equal([]string{"N"}, s.MissingConstants(nil))

	d := NewDataSet()
	assert.NoError(d.Set("N", Scalar(5)))
	assert.Equal([]string{}, s.MissingConstants(d))
}

func TestSpecLinkFunction(t *testing.T) {
	assert := assert.New(t)

	src := `
model {
    y ~ dbern(p)
    logit(p) <- alpha
    alpha ~ dnorm(0, 1)
}
`
	s, err := NewSpec("logistic", src)
	assert.NoError(err)
	assert.Contains(s.Deterministic, "p")
	assert.Contains(s.Stochastic, "alpha")
}

func TestSpecBadModels(t *testing.T) {
	assert := assert.New(t)

	// Empty
	_, err := NewSpec("empty", "   \n")
	assert.Error(err)

	// No model block
	_, err = NewSpec("noblock", "x ~ dnorm(0, 1)")
	assert.Error(err)

	// No stochastic nodes
	_, err = NewSpec("nostoch", "model { x <- 2 }")
	assert.Error(err)

	// Duplicate unindexed deterministic definition
	_, err = NewSpec("dup", `
model {
    y ~ dnorm(tau, 1)
    tau <- 2
    tau <- 3
}
`)
	assert.Error(err)
}

func TestSpecIndexedRedefinitionOK(t *testing.T) {
	assert := assert.New(t)

	// Indexed deterministic nodes repeat textually without being redefinitions
	src := `
model {
    mu[1] <- 0
    mu[2] <- theta
    theta ~ dnorm(0, 1)
    for (j in 1:2) {
        y[j] ~ dnorm(mu[j], 1)
    }
}
`
	s, err := NewSpec("indexed", src)
	assert.NoError(err)
	assert.Contains(s.Deterministic, "mu")
}
