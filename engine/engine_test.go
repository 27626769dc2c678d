package engine

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gojags/gojags/model"
	"github.com/gojags/gojags/rand"
)

const testModel = `
model {
    for (i in 1:N) {
        x[i] ~ dnorm(mu, tau)
    }
    mu ~ dnorm(0, 1.0E-4)
    tau ~ dgamma(0.001, 0.001)
}
`

func testJob(t *testing.T) *Job {
	t.Helper()

	spec, err := model.NewSpec("normal", testModel)
	assert.NoError(t, err)

	data := model.NewDataSet()
	assert.NoError(t, data.Set("N", model.Scalar(3)))
	assert.NoError(t, data.Set("x", model.Vector(1, 2, 3)))

	return &Job{
		Spec:    spec,
		Data:    data,
		Chains:  2,
		Burnin:  1000,
		Samples: 5000,
		Thin:    2,
		Monitor: []string{"mu", "tau"},
	}
}

func TestJobCheck(t *testing.T) {
	assert := assert.New(t)

	assert.NoError(testJob(t).Check())

	j := testJob(t)
	j.Spec = nil
	assert.Error(j.Check())

	j = testJob(t)
	j.Chains = 0
	assert.Error(j.Check())

	j = testJob(t)
	j.Samples = 0
	assert.Error(j.Check())

	j = testJob(t)
	j.Thin = 0
	assert.Error(j.Check())

	j = testJob(t)
	j.Burnin = -1
	assert.Error(j.Check())

	j = testJob(t)
	j.Monitor = nil
	assert.Error(j.Check())

	j = testJob(t)
	j.Monitor = []string{"sigma"}
	assert.Error(j.Check())

	j = testJob(t)
	j.Inits = []*model.DataSet{model.NewDataSet(), model.NewDataSet(), model.NewDataSet()}
	assert.Error(j.Check())

	// Data that doesn't resolve the model's constants
	j = testJob(t)
	incomplete := model.NewDataSet()
	assert.NoError(incomplete.Set("x", model.Vector(1, 2, 3)))
	j.Data = incomplete
	assert.Error(j.Check())
}

func TestScript(t *testing.T) {
	assert := assert.New(t)

	j := testJob(t)
	files := NewWorkFiles(j.Chains)

	script, err := Script(j, files)
	assert.NoError(err)

	lines := strings.Split(strings.TrimSpace(script), "\n")
	assert.Equal([]string{
		`model in "model.bug"`,
		`data in "data.R"`,
		`compile, nchains(2)`,
		`parameters in "inits1.R", chain(1)`,
		`parameters in "inits2.R", chain(2)`,
		`initialize`,
		`update 1000`,
		`monitor mu, thin(2)`,
		`monitor tau, thin(2)`,
		`update 10000`,
		`coda *, stem("CODA")`,
		`exit`,
	}, lines)
}

func TestScriptNoBurninNoData(t *testing.T) {
	assert := assert.New(t)

	j := testJob(t)
	j.Burnin = 0
	j.Data = nil
	j.Chains = 1

	script, err := Script(j, NewWorkFiles(1))
	assert.NoError(err)
	assert.NotContains(script, "data in")
	assert.NotContains(script, "update 0\n")
	assert.Contains(script, "update 10000\n")

	// Workspace/chain mismatch
	_, err = Script(j, NewWorkFiles(3))
	assert.Error(err)
}

func TestEnsureInits(t *testing.T) {
	assert := assert.New(t)

	gen, err := rand.NewGenerator(42)
	assert.NoError(err)

	// No user inits: everything generated
	j := testJob(t)
	inits, err := ensureInits(j, gen)
	assert.NoError(err)
	assert.Len(inits, 2)

	seeds := map[float64]bool{}
	for _, d := range inits {
		name, ok := d.GetString(model.RNGNameEntry)
		assert.True(ok)
		assert.Equal(DefaultRNG, name)

		seed, ok := d.Get(model.RNGSeedEntry)
		assert.True(ok)
		assert.False(seeds[seed.Data[0]])
		seeds[seed.Data[0]] = true
	}

	// A single shared set is replicated with distinct seeds
	shared := model.NewDataSet()
	assert.NoError(shared.Set("mu", model.Scalar(0.5)))
	j.Inits = []*model.DataSet{shared}

	inits, err = ensureInits(j, gen)
	assert.NoError(err)
	assert.Len(inits, 2)
	s1, _ := inits[0].Get(model.RNGSeedEntry)
	s2, _ := inits[1].Get(model.RNGSeedEntry)
	assert.NotEqual(s1.Data[0], s2.Data[0])
	mu, ok := inits[0].Get("mu")
	assert.True(ok)
	assert.Equal(0.5, mu.Data[0])

	// A user-pinned RNG survives untouched
	pinned := model.NewDataSet()
	assert.NoError(pinned.SetRNG("base::Wichmann-Hill", 99))
	other := model.NewDataSet()
	j.Inits = []*model.DataSet{pinned, other}

	inits, err = ensureInits(j, gen)
	assert.NoError(err)
	name, _ := inits[0].GetString(model.RNGNameEntry)
	assert.Equal("base::Wichmann-Hill", name)
	seed, _ := inits[0].Get(model.RNGSeedEntry)
	assert.Equal(99.0, seed.Data[0])
}

func TestEnsureInitsJitter(t *testing.T) {
	assert := assert.New(t)

	gen, err := rand.NewGenerator(42)
	assert.NoError(err)

	shared := model.NewDataSet()
	assert.NoError(shared.Set("mu", model.Scalar(0.5)))
	assert.NoError(shared.Set("x", model.Vector(1.0, model.NA, 3.0)))

	j := testJob(t)
	j.Inits = []*model.DataSet{shared}
	j.Jitter = 0.1

	inits, err := ensureInits(j, gen)
	assert.NoError(err)
	assert.Len(inits, 2)

	// The shared set itself stays untouched
	mu, _ := shared.Get("mu")
	assert.Equal(0.5, mu.Data[0])

	m1, _ := inits[0].Get("mu")
	m2, _ := inits[1].Get("mu")
	assert.NotEqual(0.5, m1.Data[0])
	assert.NotEqual(m1.Data[0], m2.Data[0])
	assert.InDelta(0.5, m1.Data[0], 1.0)

	// NA entries stay NA, jittered values stay near the originals
	x1, _ := inits[0].Get("x")
	assert.True(math.IsNaN(x1.Data[1]))
	assert.InDelta(1.0, x1.Data[0], 1.0)
	assert.InDelta(3.0, x1.Data[2], 3.0)

	// RNG seeds stay exact integers, never jittered
	s1, _ := inits[0].Get(model.RNGSeedEntry)
	assert.Equal(s1.Data[0], float64(int64(s1.Data[0])))
}

func TestScanConsole(t *testing.T) {
	assert := assert.New(t)

	clean := `Welcome to the sampler
Reading data file data.R
Compiling model graph
Initializing model
Adapting 1000
Updating 10000
`
	assert.NoError(scanConsole(clean))

	assert.Error(scanConsole("RUNTIME ERROR:\nPossible directed cycle involving mu\n"))
	assert.Error(scanConsole("syntax error on line 4 near \"~\"\n"))
	assert.Error(scanConsole("Error in node x[3]\nFailure to calculate log density\n"))
	assert.Error(scanConsole("Unable to resolve the following parameters:\nN\n"))
}

func TestConsoleRunMissingBinary(t *testing.T) {
	assert := assert.New(t)

	gen, err := rand.NewGenerator(42)
	assert.NoError(err)

	_, err = NewConsole("", gen)
	assert.Error(err)
	_, err = NewConsole("jags", nil)
	assert.Error(err)

	c, err := NewConsole(filepath.Join(t.TempDir(), "no-such-binary"), gen)
	assert.NoError(err)

	_, err = c.Run(context.Background(), testJob(t))
	assert.Error(err)
}

// TestConsoleRunStub exercises the full file round trip with a stand-in
// engine binary that writes a canned CODA output.
func TestConsoleRunStub(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()

	stub := filepath.Join(dir, "stub-engine")
	script := `#!/bin/sh
echo "Reading script $1"
printf 'mu 1 3\ntau 4 6\n' > CODAindex.txt
printf '1001 0.1\n1003 0.2\n1005 0.3\n1001 9\n1003 8\n1005 7\n' > CODAchain1.txt
printf '1001 -0.1\n1003 -0.2\n1005 -0.3\n1001 6\n1003 5\n1005 4\n' > CODAchain2.txt
`
	assert.NoError(os.WriteFile(stub, []byte(script), 0o755))

	gen, err := rand.NewGenerator(42)
	assert.NoError(err)

	c, err := NewConsole(stub, gen)
	assert.NoError(err)
	c.Dir = dir

	j := testJob(t)
	j.Samples = 3

	set, err := c.Run(context.Background(), j)
	assert.NoError(err)
	assert.Equal([]string{"mu", "tau"}, set.Params())
	assert.Len(set.Chains, 2)
	assert.Equal(1001, set.Chains[0].Start)
	assert.Equal(2, set.Chains[0].Thin)

	mu, err := set.Chains[1].Param("mu")
	assert.NoError(err)
	assert.Equal([]float64{-0.1, -0.2, -0.3}, mu)

	// The workspace files were all marshaled before the stub ran
	for _, name := range []string{"model.bug", "data.R", "inits1.R", "inits2.R", "script.cmd"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(err, "expected workspace file %s", name)
	}

	// And the inits round-trip through the dump format
	inits, err := model.ParseDumpFile(filepath.Join(dir, "inits1.R"))
	assert.NoError(err)
	seed, ok := inits.Get(model.RNGSeedEntry)
	assert.True(ok)
	assert.False(math.IsNaN(seed.Data[0]))
}
